package toolkit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/spcl/knowledge-graph-of-thoughts-go/internal/model"
	"github.com/spcl/knowledge-graph-of-thoughts-go/log"
)

// ErrArgShapeMismatch is returned by a tool's Call when the input string
// isn't the JSON object the tool expects but looks like a single bare value,
// mirroring the Python source's TypeError-on-unpack fallback.
var ErrArgShapeMismatch = errors.New("toolkit: tool call argument shape mismatch")

// Invoker resolves tool calls against a Registry, caching results and
// retrying transient failures, directly modeled on
// ControllerInterface._invoke_tool_with_retry.
type Invoker struct {
	registry *Registry
	cache    *Cache
	log      log.Logger
	maxTries uint64
}

func NewInvoker(registry *Registry, logger log.Logger) *Invoker {
	if logger == nil {
		logger = log.GetDefaultLogger()
	}
	return &Invoker{registry: registry, cache: NewCache(), log: logger, maxTries: 3}
}

// InvokeWithRetry looks up the tool by call.Name, returns the cached result
// if present, and otherwise invokes it with exponential-backoff retry on
// transient failures, caching the result on success (unless the tool is
// cache-excluded).
func (inv *Invoker) InvokeWithRetry(ctx context.Context, call model.ToolCall) (*model.ToolResult, error) {
	if cached, ok := inv.cache.Get(call); ok {
		return cached, nil
	}

	t, ok := inv.registry.Get(call.Name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrToolNotFound, call.Name)
	}

	input, err := model.CanonicalJSON(call.Arguments)
	if err != nil {
		return nil, fmt.Errorf("encoding tool call arguments: %w", err)
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), inv.maxTries)
	policy = backoff.WithContext(policy, ctx).(backoff.BackOffContext)

	var output string
	attempt := 0
	operation := func() error {
		attempt++
		var callErr error
		output, callErr = t.Call(ctx, input)
		if callErr == nil {
			return nil
		}
		if errors.Is(callErr, ErrArgShapeMismatch) {
			output, callErr = retrySingleValue(ctx, t, call)
			if callErr == nil {
				return nil
			}
		}
		if errors.Is(callErr, model.ErrTransient) {
			return callErr
		}
		return backoff.Permanent(callErr)
	}

	notify := func(err error, wait time.Duration) {
		inv.log.Warn("toolkit: tool %q attempt %d failed, retrying in %s: %v", call.Name, attempt, wait, err)
	}

	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		result := &model.ToolResult{Err: err}
		return result, nil
	}

	result := &model.ToolResult{Output: output}
	inv.cache.Put(call, result)
	return result, nil
}

// retrySingleValue re-invokes a tool passing its single positional argument
// value directly, for tools whose Call expects a bare string rather than a
// JSON object -- the Go analogue of the Python source's unpack-then-retry.
func retrySingleValue(ctx context.Context, t Tool, call model.ToolCall) (string, error) {
	if len(call.Arguments) != 1 {
		return "", fmt.Errorf("%w: expected exactly one argument to retry as a bare value", ErrArgShapeMismatch)
	}
	for _, v := range call.Arguments {
		switch s := v.(type) {
		case string:
			return t.Call(ctx, s)
		default:
			b, err := json.Marshal(s)
			if err != nil {
				return "", err
			}
			return t.Call(ctx, strings.Trim(string(b), `"`))
		}
	}
	return "", ErrArgShapeMismatch
}
