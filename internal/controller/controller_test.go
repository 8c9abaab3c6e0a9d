package controller

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/spcl/knowledge-graph-of-thoughts-go/internal/model"
	"github.com/spcl/knowledge-graph-of-thoughts-go/internal/toolkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

// fakeStore is an in-test kgraph.Store stand-in driving a scripted sequence
// of vote/insert/retrieve interactions without any real backend.
type fakeStore struct {
	dialect     model.BackendDialect
	writeCount  int
	renderCalls int
	readPayload any
}

func (f *fakeStore) Init(ctx context.Context, runIndex int, snapshotDir string) error { return nil }
func (f *fakeStore) Render(ctx context.Context) (string, error) {
	f.renderCalls++
	return "graph-view", nil
}
func (f *fakeStore) Read(ctx context.Context, query string) (*model.QueryOutcome, error) {
	return &model.QueryOutcome{Success: true, Payload: f.readPayload}, nil
}
func (f *fakeStore) Write(ctx context.Context, query string) (*model.QueryOutcome, error) {
	f.writeCount++
	return &model.QueryOutcome{Success: true}, nil
}
func (f *fakeStore) ReadMany(ctx context.Context, queries []string) ([]*model.QueryOutcome, error) {
	return nil, nil
}
func (f *fakeStore) WriteMany(ctx context.Context, queries []string) ([]*model.QueryOutcome, error) {
	return nil, nil
}
func (f *fakeStore) Dialect() model.BackendDialect { return f.dialect }
func (f *fakeStore) Close() error                  { return nil }

// scriptedOracle returns canned structured responses keyed by function name,
// consumed in order, so the test can drive exactly one INSERT round
// followed by one RETRIEVE round.
type scriptedOracle struct {
	nextStepResponses []string // consumed in order, one per next_step call
	nextStepIdx       int
}

func (o *scriptedOracle) Invoke(ctx context.Context, functionName, prompt string) (string, error) {
	return "merged reason", nil
}

func (o *scriptedOracle) InvokeStructured(ctx context.Context, functionName, prompt string, schema map[string]any, out any) error {
	var payload string
	switch functionName {
	case "next_step":
		payload = o.nextStepResponses[o.nextStepIdx]
		o.nextStepIdx++
	case "tool_calls":
		payload = `{"tool_calls":[{"name":"llm_query","args":{"query":"how many legs does a spider have?"}}]}`
	case "write_queries_from_new_info":
		payload = `{"queries":["CREATE (s:Spider {legs: 8})"]}`
	case "need_for_math":
		payload = `{"need_for_math": false}`
	case "parse_solution", "parse_solution_strict":
		payload = `{"final_solution": "8"}`
	case "final_solution_vote":
		payload = `{"final_solution": "8"}`
	default:
		payload = `{}`
	}
	return json.Unmarshal([]byte(payload), out)
}

func (o *scriptedOracle) InvokeWithTools(ctx context.Context, functionName string, messages []llms.MessageContent, toolDefs []llms.Tool) (*llms.ContentResponse, error) {
	return nil, nil
}

type echoTool struct{}

func (echoTool) Name() string        { return "llm_query" }
func (echoTool) Description() string { return "echoes back a query answer" }
func (echoTool) Schema() map[string]any {
	return map[string]any{"type": "object", "properties": map[string]any{"query": map[string]any{"type": "string"}}}
}
func (echoTool) Call(ctx context.Context, input string) (string, error) {
	return "Spiders have 8 legs", nil
}

func TestRunOneInsertThenOneRetrieve(t *testing.T) {
	store := &fakeStore{dialect: model.InMemoryDirected, readPayload: "8"}
	registry := toolkit.NewRegistry(echoTool{})
	invoker := toolkit.NewInvoker(registry, nil)
	o := &scriptedOracle{nextStepResponses: []string{
		`{"query":"","query_type":"INSERT"}`,
		`{"query":"MATCH (s:Spider) RETURN s.legs AS result","query_type":"RETRIEVE"}`,
	}}

	limits := DefaultLimits()
	limits.MaxIterations = 2
	limits.NumNextStepsDecision = 1

	c := New(store, invoker, o, limits, nil)
	answer, iterations, err := c.Run(context.Background(), model.Problem{Statement: "How many legs does a spider have?"}, 0, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "8", answer)
	assert.Equal(t, 2, iterations)
	assert.Equal(t, 1, store.writeCount)
}

func TestRunTieBreaksTowardInsert(t *testing.T) {
	store := &fakeStore{dialect: model.InMemoryDirected, readPayload: "answer"}
	registry := toolkit.NewRegistry(echoTool{})
	invoker := toolkit.NewInvoker(registry, nil)
	o := &scriptedOracle{nextStepResponses: []string{
		`{"query":"","query_type":"INSERT"}`,
		`{"query":"","query_type":"RETRIEVE"}`,
		`{"query":"RETURN 1 AS result","query_type":"RETRIEVE"}`,
		`{"query":"RETURN 1 AS result","query_type":"RETRIEVE"}`,
	}}

	limits := DefaultLimits()
	limits.MaxIterations = 3
	limits.NumNextStepsDecision = 2

	c := New(store, invoker, o, limits, nil)
	_, iterations, err := c.Run(context.Background(), model.Problem{Statement: "p"}, 0, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 2, iterations)
}
