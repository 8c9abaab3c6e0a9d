package harness

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"

	"github.com/spcl/knowledge-graph-of-thoughts-go/internal/controller"
	"github.com/spcl/knowledge-graph-of-thoughts-go/internal/kgraph"
	"github.com/spcl/knowledge-graph-of-thoughts-go/internal/model"
	"github.com/spcl/knowledge-graph-of-thoughts-go/internal/toolkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

type countingStore struct {
	dialect model.BackendDialect
	closed  int32
}

func (s *countingStore) Init(ctx context.Context, runIndex int, snapshotDir string) error { return nil }
func (s *countingStore) Render(ctx context.Context) (string, error)                       { return "view", nil }
func (s *countingStore) Read(ctx context.Context, query string) (*model.QueryOutcome, error) {
	return &model.QueryOutcome{Success: true, Payload: "42"}, nil
}
func (s *countingStore) Write(ctx context.Context, query string) (*model.QueryOutcome, error) {
	return &model.QueryOutcome{Success: true}, nil
}
func (s *countingStore) ReadMany(ctx context.Context, qs []string) ([]*model.QueryOutcome, error) {
	return nil, nil
}
func (s *countingStore) WriteMany(ctx context.Context, qs []string) ([]*model.QueryOutcome, error) {
	return nil, nil
}
func (s *countingStore) Dialect() model.BackendDialect { return s.dialect }
func (s *countingStore) Close() error                  { atomic.AddInt32(&s.closed, 1); return nil }

type alwaysRetrieveOracle struct{}

func (alwaysRetrieveOracle) Invoke(ctx context.Context, functionName, prompt string) (string, error) {
	return "", nil
}

func (alwaysRetrieveOracle) InvokeStructured(ctx context.Context, functionName, prompt string, schema map[string]any, out any) error {
	var payload string
	switch functionName {
	case "next_step":
		payload = `{"query":"RETURN 1 AS result","query_type":"RETRIEVE"}`
	case "parse_solution", "parse_solution_strict", "final_solution_vote":
		payload = `{"final_solution": "42"}`
	case "need_for_math":
		payload = `{"need_for_math": false}`
	default:
		payload = `{}`
	}
	return json.Unmarshal([]byte(payload), out)
}

func (alwaysRetrieveOracle) InvokeWithTools(ctx context.Context, functionName string, messages []llms.MessageContent, toolDefs []llms.Tool) (*llms.ContentResponse, error) {
	return nil, nil
}

func TestRunAllRespectsConcurrencyAndReturnsOrderedResults(t *testing.T) {
	limits := controller.DefaultLimits()
	limits.MaxIterations = 1
	limits.NumNextStepsDecision = 1

	var storesBuilt int32
	newStore := func() (kgraph.Store, error) {
		atomic.AddInt32(&storesBuilt, 1)
		return &countingStore{dialect: model.InMemoryDirected}, nil
	}

	h := New(
		newStore,
		func() *toolkit.Invoker { return toolkit.NewInvoker(toolkit.NewRegistry(), nil) },
		alwaysRetrieveOracle{},
		limits,
		2,
		nil,
	)

	specs := make([]RunSpec, 5)
	for i := range specs {
		specs[i] = RunSpec{Problem: model.Problem{Statement: "what is the answer"}, RunIndex: i, SnapshotDir: t.TempDir()}
	}

	results := h.RunAll(context.Background(), specs)
	require.Len(t, results, 5)
	for i, r := range results {
		assert.Equal(t, i, r.RunIndex)
		require.NoError(t, r.Err)
		assert.Equal(t, "42", r.Answer)
	}
	assert.EqualValues(t, 5, atomic.LoadInt32(&storesBuilt))
}

func TestRunAllIsolatesFailuresPerRun(t *testing.T) {
	limits := controller.DefaultLimits()
	limits.MaxIterations = 1
	limits.NumNextStepsDecision = 1

	calls := int32(0)
	newStore := func() (kgraph.Store, error) {
		n := atomic.AddInt32(&calls, 1)
		if n == 2 {
			return nil, assertErr{}
		}
		return &countingStore{dialect: model.InMemoryDirected}, nil
	}

	h := New(
		newStore,
		func() *toolkit.Invoker { return toolkit.NewInvoker(toolkit.NewRegistry(), nil) },
		alwaysRetrieveOracle{},
		limits,
		1,
		nil,
	)

	specs := []RunSpec{
		{Problem: model.Problem{Statement: "a"}, RunIndex: 0, SnapshotDir: t.TempDir()},
		{Problem: model.Problem{Statement: "b"}, RunIndex: 1, SnapshotDir: t.TempDir()},
		{Problem: model.Problem{Statement: "c"}, RunIndex: 2, SnapshotDir: t.TempDir()},
	}

	results := h.RunAll(context.Background(), specs)
	require.Len(t, results, 3)
	var errCount int
	for i, r := range results {
		assert.Equal(t, i, r.RunIndex)
		if r.Err != nil {
			errCount++
		}
	}
	assert.Equal(t, 1, errCount, "exactly the run whose store factory failed should report an error")
}

type assertErr struct{}

func (assertErr) Error() string { return "store construction failed" }
