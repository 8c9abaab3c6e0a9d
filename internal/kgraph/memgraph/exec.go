package memgraph

import (
	"fmt"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// evalResult is what evaluate() returns: the value bound to `result` by the
// script, or an error if the script raised or never set `result` — mirroring
// networkX/main.py's exec()-based evaluation, which raises NameError when the
// script's local scope lacks a `result` name.
func evaluate(script string, g *Graph, ids *idGenerator) (any, error) {
	thread := &starlark.Thread{Name: "kg-query"}
	globals := starlark.StringDict{
		"graph": &graphValue{g: g, ids: ids},
	}
	opts := &syntax.FileOptions{TopLevelControl: true, GlobalReassign: true}
	out, err := starlark.ExecFileOptions(opts, thread, "query.star", script, globals)
	if err != nil {
		return nil, fmt.Errorf("query script error: %w", err)
	}
	result, ok := out["result"]
	if !ok {
		return nil, fmt.Errorf("query script did not set a `result` binding")
	}
	return fromStarlark(result), nil
}
