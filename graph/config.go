package graph

import "context"

// CallbackHandler receives lifecycle events for a graph run, mirroring the
// langchaingo callbacks.Handler shape so the same listener can sit on both
// chains and graphs.
type CallbackHandler interface {
	OnChainStart(ctx context.Context, serialized map[string]any, inputs map[string]any, runID string, parentRunID *string, tags []string, metadata map[string]any)
	OnChainEnd(ctx context.Context, outputs map[string]any, runID string)
	OnChainError(ctx context.Context, err error, runID string)
	OnLLMStart(ctx context.Context, serialized map[string]any, prompts []string, runID string, parentRunID *string, tags []string, metadata map[string]any)
	OnLLMEnd(ctx context.Context, response any, runID string)
	OnLLMError(ctx context.Context, err error, runID string)
	OnToolStart(ctx context.Context, serialized map[string]any, inputStr string, runID string, parentRunID *string, tags []string, metadata map[string]any)
	OnToolEnd(ctx context.Context, output string, runID string)
	OnToolError(ctx context.Context, err error, runID string)
	OnRetrieverStart(ctx context.Context, serialized map[string]any, query string, runID string, parentRunID *string, tags []string, metadata map[string]any)
	OnRetrieverEnd(ctx context.Context, documents []any, runID string)
	OnRetrieverError(ctx context.Context, err error, runID string)
}

// GraphCallbackHandler is a CallbackHandler that also wants per-step
// notifications as the graph advances from one node (or parallel batch) to
// the next.
type GraphCallbackHandler interface {
	CallbackHandler
	OnGraphStep(ctx context.Context, nodeName string, state any)
}

// Config carries run-scoped options into InvokeWithConfig: resume position,
// interrupt points, and the callbacks notified of chain/tool/graph events.
type Config struct {
	// Configurable holds arbitrary run parameters, readable from node
	// functions via GetConfig(ctx).Configurable.
	Configurable map[string]any

	// ResumeFrom overrides the entry point, restarting execution at these
	// nodes instead of the graph's configured entry point.
	ResumeFrom []string
	// ResumeValue is injected into the context (via WithResumeValue) for a
	// node that previously interrupted to read back through Interrupt().
	ResumeValue any

	Callbacks []CallbackHandler
	Tags      []string
	Metadata  map[string]any

	// InterruptBefore pauses execution before any of the named nodes runs.
	InterruptBefore []string
	// InterruptAfter pauses execution after any of the named nodes has run.
	InterruptAfter []string
}

// Command is a node result that, instead of being merged as plain state,
// carries an explicit state Update and a Goto override for the next node(s)
// to run (a string or []string), bypassing the graph's static edges.
type Command struct {
	Update any
	Goto   any
}

type configKey struct{}

// WithConfig attaches a run's Config to ctx for node functions to read back
// via GetConfig.
func WithConfig(ctx context.Context, config *Config) context.Context {
	return context.WithValue(ctx, configKey{}, config)
}

// GetConfig retrieves the Config attached by WithConfig, or nil if none was set.
func GetConfig(ctx context.Context) *Config {
	config, _ := ctx.Value(configKey{}).(*Config)
	return config
}
