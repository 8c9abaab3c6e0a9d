package memgraph

import (
	"fmt"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

// graphValue wraps a *Graph as a Starlark value so query scripts can call
// graph.add_node(...), graph.add_edge(...), graph.nodes(), etc. This is the
// sandbox's only exposed handle, mirroring the Python backend's exec()
// context that exposes nothing but the graph object.
type graphValue struct {
	g    *Graph
	ids  *idGenerator
	frozen bool
}

var _ starlark.Value = (*graphValue)(nil)
var _ starlark.HasAttrs = (*graphValue)(nil)

func (v *graphValue) String() string        { return "<graph>" }
func (v *graphValue) Type() string           { return "graph" }
func (v *graphValue) Freeze()                { v.frozen = true }
func (v *graphValue) Truth() starlark.Bool   { return starlark.Bool(len(v.g.Nodes) > 0 || len(v.g.Edges) > 0) }
func (v *graphValue) Hash() (uint32, error)  { return 0, fmt.Errorf("graph value is unhashable") }

func (v *graphValue) AttrNames() []string {
	return []string{
		"add_node", "add_edge", "remove_node", "remove_edge",
		"node", "nodes", "edges", "edges_from", "has_node",
	}
}

func (v *graphValue) Attr(name string) (starlark.Value, error) {
	switch name {
	case "add_node":
		return starlark.NewBuiltin("add_node", v.addNode), nil
	case "add_edge":
		return starlark.NewBuiltin("add_edge", v.addEdge), nil
	case "remove_node":
		return starlark.NewBuiltin("remove_node", v.removeNode), nil
	case "remove_edge":
		return starlark.NewBuiltin("remove_edge", v.removeEdge), nil
	case "node":
		return starlark.NewBuiltin("node", v.node), nil
	case "nodes":
		return starlark.NewBuiltin("nodes", v.nodes), nil
	case "edges":
		return starlark.NewBuiltin("edges", v.edges), nil
	case "edges_from":
		return starlark.NewBuiltin("edges_from", v.edgesFrom), nil
	case "has_node":
		return starlark.NewBuiltin("has_node", v.hasNode), nil
	}
	return nil, nil
}

func (v *graphValue) addNode(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var id, label starlark.Value
	var attrs *starlark.Dict
	if err := starlark.UnpackArgs("add_node", args, kwargs, "id?", &id, "label?", &label, "attrs?", &attrs); err != nil {
		return nil, err
	}
	nodeID := ""
	if s, ok := id.(starlark.String); ok {
		nodeID = string(s)
	} else {
		nodeID = v.ids.next("n")
	}
	lbl := ""
	if s, ok := label.(starlark.String); ok {
		lbl = string(s)
	}
	m := map[string]any{}
	if attrs != nil {
		m = dictToMap(attrs)
	}
	v.g.AddNode(nodeID, lbl, m)
	return starlark.String(nodeID), nil
}

func (v *graphValue) addEdge(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var from, to, typ starlark.String
	var id starlark.Value
	var attrs *starlark.Dict
	if err := starlark.UnpackArgs("add_edge", args, kwargs, "from_", &from, "to", &to, "type?", &typ, "id?", &id, "attrs?", &attrs); err != nil {
		return nil, err
	}
	edgeID := ""
	if s, ok := id.(starlark.String); ok {
		edgeID = string(s)
	} else {
		edgeID = v.ids.next("e")
	}
	m := map[string]any{}
	if attrs != nil {
		m = dictToMap(attrs)
	}
	v.g.AddEdge(edgeID, string(from), string(to), string(typ), m)
	return starlark.String(edgeID), nil
}

func (v *graphValue) removeNode(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var id starlark.String
	if err := starlark.UnpackArgs("remove_node", args, kwargs, "id", &id); err != nil {
		return nil, err
	}
	v.g.RemoveNode(string(id))
	return starlark.None, nil
}

func (v *graphValue) removeEdge(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var id starlark.String
	if err := starlark.UnpackArgs("remove_edge", args, kwargs, "id", &id); err != nil {
		return nil, err
	}
	v.g.RemoveEdge(string(id))
	return starlark.None, nil
}

func (v *graphValue) hasNode(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var id starlark.String
	if err := starlark.UnpackArgs("has_node", args, kwargs, "id", &id); err != nil {
		return nil, err
	}
	_, ok := v.g.Nodes[string(id)]
	return starlark.Bool(ok), nil
}

func (v *graphValue) node(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var id starlark.String
	if err := starlark.UnpackArgs("node", args, kwargs, "id", &id); err != nil {
		return nil, err
	}
	n, ok := v.g.Nodes[string(id)]
	if !ok {
		return starlark.None, nil
	}
	return nodeStruct(n), nil
}

func (v *graphValue) nodes(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	ids := v.g.SortedNodeIDs()
	out := make([]starlark.Value, 0, len(ids))
	for _, id := range ids {
		out = append(out, nodeStruct(v.g.Nodes[id]))
	}
	return starlark.NewList(out), nil
}

func (v *graphValue) edges(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	ids := v.g.SortedEdgeIDs()
	out := make([]starlark.Value, 0, len(ids))
	for _, id := range ids {
		out = append(out, edgeStruct(v.g.Edges[id]))
	}
	return starlark.NewList(out), nil
}

func (v *graphValue) edgesFrom(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var id starlark.String
	if err := starlark.UnpackArgs("edges_from", args, kwargs, "id", &id); err != nil {
		return nil, err
	}
	edges := v.g.EdgesFrom(string(id))
	out := make([]starlark.Value, 0, len(edges))
	for _, e := range edges {
		out = append(out, edgeStruct(e))
	}
	return starlark.NewList(out), nil
}

func nodeStruct(n *Node) *starlarkstruct.Struct {
	return starlarkstruct.FromStringDict(starlarkstruct.Default, starlark.StringDict{
		"id":    starlark.String(n.ID),
		"label": starlark.String(n.Label),
		"attrs": mapToDict(n.Attrs),
	})
}

func edgeStruct(e *Edge) *starlarkstruct.Struct {
	return starlarkstruct.FromStringDict(starlarkstruct.Default, starlark.StringDict{
		"id":    starlark.String(e.ID),
		"from":  starlark.String(e.From),
		"to":    starlark.String(e.To),
		"type":  starlark.String(e.Type),
		"attrs": mapToDict(e.Attrs),
	})
}

func mapToDict(m map[string]any) *starlark.Dict {
	d := starlark.NewDict(len(m))
	for k, val := range m {
		sv, err := toStarlark(val)
		if err != nil {
			continue
		}
		_ = d.SetKey(starlark.String(k), sv)
	}
	return d
}

func dictToMap(d *starlark.Dict) map[string]any {
	out := map[string]any{}
	for _, item := range d.Items() {
		k, ok := item[0].(starlark.String)
		if !ok {
			continue
		}
		out[string(k)] = fromStarlark(item[1])
	}
	return out
}

func toStarlark(v any) (starlark.Value, error) {
	switch t := v.(type) {
	case nil:
		return starlark.None, nil
	case string:
		return starlark.String(t), nil
	case bool:
		return starlark.Bool(t), nil
	case int:
		return starlark.MakeInt(t), nil
	case int64:
		return starlark.MakeInt64(t), nil
	case float64:
		return starlark.Float(t), nil
	case []any:
		items := make([]starlark.Value, 0, len(t))
		for _, e := range t {
			sv, err := toStarlark(e)
			if err != nil {
				return nil, err
			}
			items = append(items, sv)
		}
		return starlark.NewList(items), nil
	case map[string]any:
		return mapToDict(t), nil
	default:
		return starlark.String(fmt.Sprintf("%v", t)), nil
	}
}

func fromStarlark(v starlark.Value) any {
	switch t := v.(type) {
	case starlark.NoneType:
		return nil
	case starlark.String:
		return string(t)
	case starlark.Bool:
		return bool(t)
	case starlark.Int:
		i, _ := t.Int64()
		return i
	case starlark.Float:
		return float64(t)
	case *starlark.List:
		out := make([]any, 0, t.Len())
		iter := t.Iterate()
		defer iter.Done()
		var x starlark.Value
		for iter.Next(&x) {
			out = append(out, fromStarlark(x))
		}
		return out
	case *starlark.Dict:
		return dictToMap(t)
	default:
		return t.String()
	}
}
