package prebuilt

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/tools"
)

// ToolInvocation names a tool and the raw input string to call it with.
type ToolInvocation struct {
	Tool      string
	ToolInput string
}

// ToolExecutor looks tools up by name and calls them. CreateReactAgent's
// tools node builds one per run to dispatch the model's chosen tool calls.
type ToolExecutor struct {
	tools map[string]tools.Tool
}

// NewToolExecutor indexes ts by name for lookup in Execute.
func NewToolExecutor(ts []tools.Tool) *ToolExecutor {
	indexed := make(map[string]tools.Tool, len(ts))
	for _, t := range ts {
		indexed[t.Name()] = t
	}
	return &ToolExecutor{tools: indexed}
}

// Execute calls the named tool with ToolInput, or errors if it isn't registered.
func (e *ToolExecutor) Execute(ctx context.Context, invocation ToolInvocation) (string, error) {
	t, ok := e.tools[invocation.Tool]
	if !ok {
		return "", fmt.Errorf("tool %q not found", invocation.Tool)
	}
	return t.Call(ctx, invocation.ToolInput)
}
