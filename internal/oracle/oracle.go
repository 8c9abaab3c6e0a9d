// Package oracle implements the LLM Oracle (C3): a structured-output
// wrapper over a chat model with retry and usage-statistics emission,
// grounded on kgot/utils/llm_utils.py's get_llm model-family branching.
package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sashabaranov/go-openai"
	"github.com/spcl/knowledge-graph-of-thoughts-go/internal/model"
	"github.com/spcl/knowledge-graph-of-thoughts-go/internal/oracle/localdaemon"
	"github.com/spcl/knowledge-graph-of-thoughts-go/internal/statistics"
	"github.com/tmc/langchaingo/llms"
)

// FamilyConfig selects and configures one of the two model families
// kgot/utils/llm_utils.py's get_llm branches on.
type FamilyConfig struct {
	Family      string // "hosted-api" or "local-daemon"
	ModelName   string
	HostedModel llms.Model          // required when Family == "hosted-api"
	LocalDaemon localdaemon.Options // used when Family == "local-daemon"
}

// NewForFamily builds a Client for the requested model family, mirroring
// get_llm's branch between a hosted chat API and a local Ollama-compatible
// daemon.
func NewForFamily(cfg FamilyConfig, stats *statistics.Logger) (*Client, error) {
	switch cfg.Family {
	case "hosted-api":
		if cfg.HostedModel == nil {
			return nil, fmt.Errorf("oracle: hosted-api family requires a HostedModel: %w", ErrUnsupportedFamily)
		}
		return New(cfg.HostedModel, cfg.ModelName, stats), nil
	case "local-daemon":
		return New(localdaemon.New(cfg.LocalDaemon), cfg.ModelName, stats), nil
	default:
		return nil, fmt.Errorf("oracle: family %q: %w", cfg.Family, ErrUnsupportedFamily)
	}
}

// Oracle is the single LLM entry point every controller branch and tool
// calls through, so usage statistics and retry policy are applied uniformly.
type Oracle interface {
	// Invoke sends prompt to the model and returns raw text.
	Invoke(ctx context.Context, functionName, prompt string) (string, error)
	// InvokeStructured sends prompt and unmarshals the model's JSON response
	// into out, which must be a pointer. schema describes the expected shape
	// as a JSON schema for function-calling-style structured output.
	InvokeStructured(ctx context.Context, functionName, prompt string, schema map[string]any, out any) error
	// InvokeWithTools behaves like Invoke but binds toolDefs in
	// tool-choice-required mode, mirroring tool_choice="required" in the
	// insert branch's tool-call-selection step.
	InvokeWithTools(ctx context.Context, functionName string, messages []llms.MessageContent, toolDefs []llms.Tool) (*llms.ContentResponse, error)
}

// Client wraps a langchaingo llms.Model (the hosted-api family, layered over
// go-openai) with retry and statistics.
type Client struct {
	model     llms.Model
	modelName string
	stats     *statistics.Logger
	maxTries  uint64
}

var _ Oracle = (*Client)(nil)

func New(model llms.Model, modelName string, stats *statistics.Logger) *Client {
	return &Client{model: model, modelName: modelName, stats: stats, maxTries: 3}
}

func (c *Client) Invoke(ctx context.Context, functionName, prompt string) (string, error) {
	messages := []llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, prompt)}

	var resp *llms.ContentResponse
	err := c.withRetry(ctx, functionName, func() error {
		var genErr error
		resp, genErr = c.model.GenerateContent(ctx, messages)
		return genErr
	})
	if err != nil {
		return "", err
	}
	return resp.Choices[0].Content, nil
}

func (c *Client) InvokeStructured(ctx context.Context, functionName, prompt string, schema map[string]any, out any) error {
	messages := []llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, prompt)}
	toolDef := llms.Tool{
		Type: "function",
		Function: &llms.FunctionDefinition{
			Name:       "emit_structured_output",
			Description: "Emit the structured result for this task.",
			Parameters: schema,
		},
	}

	var resp *llms.ContentResponse
	err := c.withRetry(ctx, functionName, func() error {
		var genErr error
		resp, genErr = c.model.GenerateContent(ctx, messages,
			llms.WithTools([]llms.Tool{toolDef}),
			llms.WithToolChoice(map[string]any{"type": "function", "function": map[string]any{"name": "emit_structured_output"}}))
		return genErr
	})
	if err != nil {
		return err
	}

	choice := resp.Choices[0]
	if len(choice.ToolCalls) == 0 {
		return json.Unmarshal([]byte(choice.Content), out)
	}
	return json.Unmarshal([]byte(choice.ToolCalls[0].FunctionCall.Arguments), out)
}

func (c *Client) InvokeWithTools(ctx context.Context, functionName string, messages []llms.MessageContent, toolDefs []llms.Tool) (*llms.ContentResponse, error) {
	var resp *llms.ContentResponse
	err := c.withRetry(ctx, functionName, func() error {
		var genErr error
		resp, genErr = c.model.GenerateContent(ctx, messages,
			llms.WithTools(toolDefs),
			llms.WithToolChoice("required"))
		return genErr
	})
	return resp, err
}

// withRetry applies exponential backoff over the transient-error set the
// Python source retries on (internal server errors, connection errors,
// timeouts) and emits one model.UsageStat per call, successful or not.
func (c *Client) withRetry(ctx context.Context, functionName string, call func() error) error {
	start := time.Now()
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxTries), ctx)

	err := backoff.Retry(func() error {
		callErr := call()
		if callErr == nil {
			return nil
		}
		if isTransient(callErr) {
			return callErr
		}
		return backoff.Permanent(callErr)
	}, policy)

	if c.stats != nil {
		c.stats.Record(model.UsageStat{
			FunctionName: functionName,
			StartTime:    start,
			EndTime:      time.Now(),
			Model:        c.modelName,
		})
	}
	return err
}

// isTransient classifies connection errors, timeouts, and 5xx API errors as
// retryable, matching InternalServerError/APIConnectionError/timeout in the
// Python source.
func isTransient(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode >= 500
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return errors.Is(err, model.ErrTransient)
}

// ErrUnsupportedFamily is returned when a model family string doesn't match
// any known oracle backend.
var ErrUnsupportedFamily = fmt.Errorf("oracle: unsupported model family")
