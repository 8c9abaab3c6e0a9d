package controller

import (
	"context"
	"errors"
	"fmt"

	"github.com/spcl/knowledge-graph-of-thoughts-go/internal/model"
	"github.com/spcl/knowledge-graph-of-thoughts-go/internal/prompts"
)

var toolCallsSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"tool_calls": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name": map[string]any{"type": "string"},
					"args": map[string]any{"type": "object"},
				},
				"required": []string{"name", "args"},
			},
		},
	},
	"required": []string{"tool_calls"},
}

var writeQueriesSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"queries": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
	},
	"required": []string{"queries"},
}

var fixQuerySchema = map[string]any{
	"type":       "object",
	"properties": map[string]any{"query": map[string]any{"type": "string"}},
	"required":   []string{"query"},
}

// insertNode implements spec.md §4.5.3's insert branch: merge the round's
// insert rationales into one reason, ask the oracle for tool calls, invoke
// each (via the cache-aware retrying invoker), turn each tool output into
// write-queries, and commit those queries to the graph with a bounded
// fix-query repair loop. graph_view is re-rendered once after the whole
// batch, not per write (spec.md §9(c)).
func (c *Controller) insertNode(ctx context.Context, s *runState) (*runState, error) {
	reason, err := c.mergeReasons(ctx, s.pendingInsertReasons)
	if err != nil {
		return nil, err
	}

	toolCalls, err := c.chooseToolCalls(ctx, s, reason)
	if err != nil {
		return nil, err
	}

	for _, tc := range toolCalls {
		output, toolErr := c.invoker.InvokeWithRetry(ctx, tc)
		s.toolCallsMade = append(s.toolCallsMade, tc)

		var outputText string
		if errors.Is(toolErr, model.ErrToolNotFound) {
			c.log.Warn("controller: tool %q not found, skipping its write-queries", tc.Name)
			continue
		}
		if toolErr != nil {
			return nil, fmt.Errorf("controller: invoking tool %q: %w", tc.Name, toolErr)
		}
		if output.Err != nil {
			c.log.Warn("controller: tool %q failed: %v, skipping its write-queries", tc.Name, output.Err)
			continue
		}
		outputText = fmt.Sprintf("%v", output.Output)

		newInfo := fmt.Sprintf("function '%s' returned: '%s'", tc.Name, outputText)
		queries, err := c.writeQueriesFromNewInfo(ctx, s, newInfo, reason)
		if err != nil {
			return nil, err
		}

		for _, q := range queries {
			if err := c.writeWithFixRetry(ctx, s, q); err != nil {
				return nil, err
			}
		}
	}

	view, err := c.store.Render(ctx)
	if err != nil {
		return nil, fmt.Errorf("controller: rendering graph view: %w", err)
	}
	s.graphView = view
	s.iteration++
	return s, nil
}

func (c *Controller) mergeReasons(ctx context.Context, reasons []string) (string, error) {
	if len(reasons) == 1 {
		return reasons[0], nil
	}
	prompt, err := prompts.Render(prompts.MergeReasonsToInsert, prompts.MergeReasonsData{Reasons: reasons})
	if err != nil {
		return "", err
	}
	return c.oracle.Invoke(ctx, "merge_reasons_to_insert", prompt)
}

func (c *Controller) chooseToolCalls(ctx context.Context, s *runState, reason string) ([]model.ToolCall, error) {
	prompt, err := prompts.Render(prompts.ToolCalls, prompts.ToolCallsData{
		Problem:        s.problem.Statement,
		GraphView:      s.graphView,
		Reason:         reason,
		ToolCallsMade:  renderToolCalls(s.toolCallsMade),
		AvailableTools: "(bound via tool-calling mode)",
	})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		ToolCalls []struct {
			Name string         `json:"name"`
			Args map[string]any `json:"args"`
		} `json:"tool_calls"`
	}
	if err := c.oracle.InvokeStructured(ctx, "tool_calls", prompt, toolCallsSchema, &parsed); err != nil {
		return nil, fmt.Errorf("%w: tool_calls: %v", model.ErrParseFailure, err)
	}

	calls := make([]model.ToolCall, 0, len(parsed.ToolCalls))
	for _, tc := range parsed.ToolCalls {
		calls = append(calls, model.ToolCall{Name: tc.Name, Arguments: tc.Args})
	}
	return calls, nil
}

func (c *Controller) writeQueriesFromNewInfo(ctx context.Context, s *runState, newInfo, reason string) ([]string, error) {
	tmpl := prompts.WriteQueriesFromNewInfo.For(s.dialect)
	prompt, err := prompts.Render(tmpl, prompts.WriteQueriesData{
		Problem:   s.problem.Statement,
		GraphView: s.graphView,
		NewInfo:   newInfo,
		Reason:    reason,
	})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Queries []string `json:"queries"`
	}
	if err := c.oracle.InvokeStructured(ctx, "write_queries_from_new_info", prompt, writeQueriesSchema, &parsed); err != nil {
		return nil, fmt.Errorf("%w: write_queries_from_new_info: %v", model.ErrParseFailure, err)
	}
	return parsed.Queries, nil
}

// writeWithFixRetry commits one write-query, repairing it against the
// oracle up to MaxQueryFixingRetry times on failure (spec.md §4.5.3,
// property 6).
func (c *Controller) writeWithFixRetry(ctx context.Context, s *runState, query string) error {
	outcome, err := c.store.Write(ctx, query)
	if err != nil {
		return fmt.Errorf("controller: write-query connectivity error: %w", err)
	}

	for attempt := 0; !outcome.Success && attempt < c.limits.MaxQueryFixingRetry; attempt++ {
		errText := ""
		if outcome.Err != nil {
			errText = outcome.Err.Error()
		}
		fixed, err := c.fixQuery(ctx, s, query, errText)
		if err != nil {
			return err
		}
		query = fixed

		outcome, err = c.store.Write(ctx, query)
		if err != nil {
			return fmt.Errorf("controller: write-query connectivity error: %w", err)
		}
	}
	return nil
}

func (c *Controller) fixQuery(ctx context.Context, s *runState, query, errText string) (string, error) {
	tmpl := prompts.FixQuery.For(s.dialect)
	graphView := ""
	if s.dialect == model.InMemoryDirected {
		graphView = s.graphView
	}
	prompt, err := prompts.Render(tmpl, prompts.FixQueryData{Query: query, Error: errText, GraphView: graphView})
	if err != nil {
		return "", err
	}

	var parsed struct {
		Query string `json:"query"`
	}
	if err := c.oracle.InvokeStructured(ctx, "fix_query", prompt, fixQuerySchema, &parsed); err != nil {
		return "", fmt.Errorf("%w: fix_query: %v", model.ErrParseFailure, err)
	}
	return parsed.Query, nil
}
