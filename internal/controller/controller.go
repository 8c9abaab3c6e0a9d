// Package controller implements the Iterative Controller (C5), the
// centerpiece that drives one problem run to completion by alternating
// between enriching the knowledge graph (insert branch) and attempting to
// read an answer out of it (retrieve branch), grounded on
// kgot/controller/neo4j/queryRetrieve/controller.py's run() loop. The
// control flow itself is built on the teacher's graph.StateGraph, the same
// engine prebuilt.CreateReactAgent uses for its own node/edge wiring.
package controller

import (
	"context"
	"fmt"
	"strings"

	"github.com/spcl/knowledge-graph-of-thoughts-go/graph"
	"github.com/spcl/knowledge-graph-of-thoughts-go/internal/kgraph"
	"github.com/spcl/knowledge-graph-of-thoughts-go/internal/model"
	"github.com/spcl/knowledge-graph-of-thoughts-go/internal/oracle"
	"github.com/spcl/knowledge-graph-of-thoughts-go/internal/prompts"
	"github.com/spcl/knowledge-graph-of-thoughts-go/internal/toolkit"
	"github.com/spcl/knowledge-graph-of-thoughts-go/log"
)

// Limits bundles the retry/iteration maxima the CLI exposes as flags
// (spec.md §6.5).
type Limits struct {
	MaxIterations           int
	NumNextStepsDecision    int
	MaxQueryFixingRetry     int
	MaxRetrieveQueryRetry   int
	MaxFinalSolutionParsing int
	MaxLLMRetries           int
	GaiaFormatter           bool
}

// DefaultLimits matches the CLI's documented defaults.
func DefaultLimits() Limits {
	return Limits{
		MaxIterations:           7,
		NumNextStepsDecision:    1,
		MaxQueryFixingRetry:     3,
		MaxRetrieveQueryRetry:   3,
		MaxFinalSolutionParsing: 1,
		MaxLLMRetries:           3,
	}
}

// Controller drives one problem run over a given Store, Invoker, and
// Oracle.
type Controller struct {
	store   kgraph.Store
	invoker *toolkit.Invoker
	oracle  oracle.Oracle
	limits  Limits
	log     log.Logger
}

func New(store kgraph.Store, invoker *toolkit.Invoker, o oracle.Oracle, limits Limits, logger log.Logger) *Controller {
	if logger == nil {
		logger = log.GetDefaultLogger()
	}
	return &Controller{store: store, invoker: invoker, oracle: o, limits: limits, log: logger}
}

// runState is the control-flow graph's state, threaded through the
// vote/insert/retrieve/finalize nodes.
type runState struct {
	problem       model.Problem
	dialect       model.BackendDialect
	graphView     string
	toolCallsMade []model.ToolCall
	rawSolutions  []string
	iteration     int
	branch        string // "insert" or "retrieve", set by the vote node
	finalAnswer   string

	// set by voteNode, consumed by insertNode/retrieveNode in the same pass
	pendingInsertReasons   []string
	pendingRetrieveQueries []string
}

// Run executes one complete controller run, matching the entry contract of
// spec.md §4.5.1: it clears the graph, drives the outer loop to completion,
// and returns the final formatted answer plus the iteration count spent.
func (c *Controller) Run(ctx context.Context, problem model.Problem, runIndex int, snapshotDir string) (string, int, error) {
	if err := c.store.Init(ctx, runIndex, snapshotDir); err != nil {
		return "", 0, fmt.Errorf("controller: initializing graph: %w", err)
	}

	workflow := graph.NewStateGraph[*runState]()

	workflow.AddNode("vote", "tally next-step votes and pick a branch", c.voteNode)
	workflow.AddNode("insert", "enrich the graph via tools and write-queries", c.insertNode)
	workflow.AddNode("retrieve", "attempt to read an answer from the graph", c.retrieveNode)
	workflow.AddNode("finalize", "format the final answer", c.finalizeNode)

	workflow.AddConditionalEdge("vote", func(ctx context.Context, s *runState) string {
		return s.branch
	})
	workflow.AddConditionalEdge("insert", func(ctx context.Context, s *runState) string {
		if s.iteration >= c.limits.MaxIterations {
			return "finalize"
		}
		return "vote"
	})
	workflow.AddEdge("retrieve", "finalize")
	workflow.AddEdge("finalize", graph.END)
	workflow.SetEntryPoint("vote")

	runnable, err := workflow.Compile()
	if err != nil {
		return "", 0, fmt.Errorf("controller: compiling run graph: %w", err)
	}

	initial := &runState{problem: problem, dialect: c.store.Dialect()}
	final, err := runnable.Invoke(ctx, initial)
	if err != nil {
		return "", 0, fmt.Errorf("controller: run failed: %w", err)
	}
	return final.finalAnswer, final.iteration, nil
}

// voteNode runs spec.md §4.5.2's inner voting loop: NumNextStepsDecision
// independent next_step oracle calls, tallied by kind, with a strict-> tie
// break that favors INSERT on a tie (preserved deliberately, see
// spec.md §9(a)).
func (c *Controller) voteNode(ctx context.Context, s *runState) (*runState, error) {
	var insertCount, retrieveCount int
	var insertContent, retrieveContent []string

	tmpl := prompts.NextStep.For(s.dialect)
	for v := 0; v < max(1, c.limits.NumNextStepsDecision); v++ {
		prompt, err := prompts.Render(tmpl, prompts.NextStepData{
			Problem:       s.problem.Statement,
			GraphView:     s.graphView,
			ToolCallsMade: renderToolCalls(s.toolCallsMade),
		})
		if err != nil {
			return nil, err
		}

		var decision struct {
			Query     string `json:"query"`
			QueryType string `json:"query_type"`
		}
		if err := c.oracle.InvokeStructured(ctx, "next_step", prompt, nextStepSchema, &decision); err != nil {
			return nil, fmt.Errorf("%w: next_step: %v", model.ErrParseFailure, err)
		}

		switch strings.ToUpper(decision.QueryType) {
		case "INSERT":
			insertCount++
			insertContent = append(insertContent, decision.Query)
		case "RETRIEVE":
			retrieveCount++
			retrieveContent = append(retrieveContent, decision.Query)
		}
	}

	if retrieveCount > insertCount {
		s.branch = "retrieve"
		s.pendingRetrieveQueries = retrieveContent
		return s, nil
	}

	s.branch = "insert"
	s.pendingInsertReasons = insertContent
	return s, nil
}

var nextStepSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"query":      map[string]any{"type": "string"},
		"query_type": map[string]any{"type": "string", "enum": []string{"INSERT", "RETRIEVE"}},
	},
	"required": []string{"query", "query_type"},
}

func renderToolCalls(calls []model.ToolCall) string {
	if len(calls) == 0 {
		return "(none)"
	}
	var b strings.Builder
	for _, tc := range calls {
		args, _ := model.CanonicalJSON(tc.Arguments)
		fmt.Fprintf(&b, "- %s(%s)\n", tc.Name, args)
	}
	return b.String()
}
