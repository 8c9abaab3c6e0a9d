// Package toolkit implements the fixed tool portfolio (C2): a registry of
// named tools, an invocation contract with retry, and a canonical-key result
// cache, grounded on kgot/controller/controller_interface.py's
// _invoke_tool_with_retry.
package toolkit

import (
	"context"

	"github.com/tmc/langchaingo/tools"
)

// Tool extends the teacher's langchaingo tools.Tool with an oracle-visible
// argument schema, so the oracle can be bound to tool-call mode (§4.3) with a
// real JSON schema rather than a free-text description.
type Tool interface {
	tools.Tool
	Schema() map[string]any
}

// Registry holds the fixed tool portfolio, keyed by name.
type Registry struct {
	tools map[string]Tool
}

// NewRegistry builds a registry from the given tools, keyed by their Name().
func NewRegistry(ts ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool, len(ts))}
	for _, t := range ts {
		r.tools[t.Name()] = t
	}
	return r
}

// Get looks up a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Names returns every registered tool name, insertion order not guaranteed.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	return names
}

// Schemas returns the name->schema map the oracle binds as available tools.
func (r *Registry) Schemas() map[string]map[string]any {
	out := make(map[string]map[string]any, len(r.tools))
	for name, t := range r.tools {
		out[name] = t.Schema()
	}
	return out
}

// simpleTool adapts a name/description/schema/func triple to the Tool
// interface, used by the thinner tool families (llmquery, zipextract) that
// don't need their own exported type.
type simpleTool struct {
	name        string
	description string
	schema      map[string]any
	call        func(ctx context.Context, input string) (string, error)
}

func NewSimpleTool(name, description string, schema map[string]any, call func(ctx context.Context, input string) (string, error)) Tool {
	return &simpleTool{name: name, description: description, schema: schema, call: call}
}

func (t *simpleTool) Name() string                   { return t.name }
func (t *simpleTool) Description() string            { return t.description }
func (t *simpleTool) Schema() map[string]any         { return t.schema }
func (t *simpleTool) Call(ctx context.Context, input string) (string, error) {
	return t.call(ctx, input)
}
