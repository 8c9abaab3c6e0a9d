package llmquery

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

type stubOracle struct {
	lastFunction string
	lastPrompt   string
	reply        string
}

func (o *stubOracle) Invoke(ctx context.Context, functionName, prompt string) (string, error) {
	o.lastFunction = functionName
	o.lastPrompt = prompt
	return o.reply, nil
}

func (o *stubOracle) InvokeStructured(ctx context.Context, functionName, prompt string, schema map[string]any, out any) error {
	return nil
}

func (o *stubOracle) InvokeWithTools(ctx context.Context, functionName string, messages []llms.MessageContent, toolDefs []llms.Tool) (*llms.ContentResponse, error) {
	return nil, nil
}

func TestCallPassesQueryThrough(t *testing.T) {
	o := &stubOracle{reply: "42 is the answer"}
	tool := New(o)

	out, err := tool.Call(context.Background(), `{"query": "what is the answer?"}`)
	require.NoError(t, err)
	assert.Equal(t, "42 is the answer", out)
	assert.Equal(t, "what is the answer?", o.lastPrompt)
}

func TestCallFallsBackToRawInputWhenNotJSON(t *testing.T) {
	o := &stubOracle{reply: "ok"}
	tool := New(o)

	_, err := tool.Call(context.Background(), "bare question")
	require.NoError(t, err)
	assert.Equal(t, "bare question", o.lastPrompt)
}
