// Package harness runs many independent problems through the Iterative
// Controller concurrently, per spec.md §5's closing paragraph: a
// higher-level driver MAY run many problems in parallel, each with its own
// controller over an isolated graph namespace and cache, bounded by a
// semaphore the way the RAG baseline bounds its own concurrent oracle calls
// (benchmarks/baselines/RAG/src/benchmark/rag_gaia_benchmark.py's
// asyncio.Semaphore).
package harness

import (
	"context"
	"fmt"
	"sync"

	"github.com/spcl/knowledge-graph-of-thoughts-go/internal/controller"
	"github.com/spcl/knowledge-graph-of-thoughts-go/internal/kgraph"
	"github.com/spcl/knowledge-graph-of-thoughts-go/internal/model"
	"github.com/spcl/knowledge-graph-of-thoughts-go/internal/oracle"
	"github.com/spcl/knowledge-graph-of-thoughts-go/internal/toolkit"
	"github.com/spcl/knowledge-graph-of-thoughts-go/log"
)

// RunSpec names one problem to solve and where its snapshots should land.
type RunSpec struct {
	Problem     model.Problem
	RunIndex    int
	SnapshotDir string
}

// Result is one run's outcome, paired back to its RunSpec by RunIndex.
type Result struct {
	RunIndex   int
	Answer     string
	Iterations int
	Err        error
}

// StoreFactory builds a fresh, run-isolated Store. Each run gets its own
// instance so the knowledge graph stays exclusively owned by one controller
// run, per spec.md §5's shared-resource policy.
type StoreFactory func() (kgraph.Store, error)

// Harness drives a bounded-concurrency fleet of controller runs, each over
// its own Store and Invoker so that no two runs share graph state or a tool
// cache.
type Harness struct {
	newStore      StoreFactory
	newInvoker    func() *toolkit.Invoker
	oracle        oracle.Oracle
	limits        controller.Limits
	maxConcurrent int
	log           log.Logger
}

func New(newStore StoreFactory, newInvoker func() *toolkit.Invoker, o oracle.Oracle, limits controller.Limits, maxConcurrent int, logger log.Logger) *Harness {
	if logger == nil {
		logger = log.GetDefaultLogger()
	}
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Harness{newStore: newStore, newInvoker: newInvoker, oracle: o, limits: limits, maxConcurrent: maxConcurrent, log: logger}
}

// RunAll executes every spec concurrently, bounded by the harness's
// maxConcurrent semaphore, and returns one Result per spec (order matches
// the input order, regardless of completion order).
func (h *Harness) RunAll(ctx context.Context, specs []RunSpec) []Result {
	results := make([]Result, len(specs))
	sem := make(chan struct{}, h.maxConcurrent)
	var wg sync.WaitGroup

	for i, spec := range specs {
		wg.Add(1)
		go func(i int, spec RunSpec) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = h.runOne(ctx, spec)
		}(i, spec)
	}

	wg.Wait()
	return results
}

func (h *Harness) runOne(ctx context.Context, spec RunSpec) Result {
	store, err := h.newStore()
	if err != nil {
		return Result{RunIndex: spec.RunIndex, Err: fmt.Errorf("harness: building store for run %d: %w", spec.RunIndex, err)}
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			h.log.Warn("harness: closing store for run %d: %v", spec.RunIndex, cerr)
		}
	}()

	invoker := h.newInvoker()
	c := controller.New(store, invoker, h.oracle, h.limits, h.log)

	answer, iterations, err := c.Run(ctx, spec.Problem, spec.RunIndex, spec.SnapshotDir)
	if err != nil {
		return Result{RunIndex: spec.RunIndex, Err: fmt.Errorf("harness: run %d: %w", spec.RunIndex, err)}
	}
	return Result{RunIndex: spec.RunIndex, Answer: answer, Iterations: iterations}
}
