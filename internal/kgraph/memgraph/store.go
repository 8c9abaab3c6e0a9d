package memgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spcl/knowledge-graph-of-thoughts-go/internal/kgraph"
	"github.com/spcl/knowledge-graph-of-thoughts-go/internal/model"
	"github.com/spcl/knowledge-graph-of-thoughts-go/log"
)

// Store implements kgraph.Store over an in-process directed multigraph.
type Store struct {
	mu   sync.Mutex
	g    *Graph
	ids  *idGenerator
	snap *kgraph.SnapshotCounter
	log  log.Logger
}

var _ kgraph.Store = (*Store)(nil)

// New returns an empty memgraph store. Call Init before use.
func New(logger log.Logger) *Store {
	if logger == nil {
		logger = log.GetDefaultLogger()
	}
	return &Store{g: NewGraph(), ids: &idGenerator{}, log: logger}
}

func (s *Store) Dialect() model.BackendDialect { return model.InMemoryDirected }

func (s *Store) Init(ctx context.Context, runIndex int, snapshotDir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.g = NewGraph()
	s.ids = &idGenerator{}
	counter, err := kgraph.NewSnapshotCounter(snapshotDir, runIndex, time.Now())
	if err != nil {
		return err
	}
	s.snap = counter
	return nil
}

func (s *Store) Render(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return render(s.g), nil
}

func render(g *Graph) string {
	var b strings.Builder
	if g.Empty() {
		return "(empty graph)"
	}
	b.WriteString("Nodes:\n")
	for _, id := range g.SortedNodeIDs() {
		n := g.Nodes[id]
		b.WriteString(fmt.Sprintf("  [%s] label=%s attrs=%v\n", n.ID, n.Label, n.Attrs))
	}
	b.WriteString("Edges:\n")
	for _, id := range g.SortedEdgeIDs() {
		e := g.Edges[id]
		b.WriteString(fmt.Sprintf("  [%s] (%s)-[%s]->(%s) attrs=%v\n", e.ID, e.From, e.Type, e.To, e.Attrs))
	}
	return b.String()
}

func (s *Store) Read(ctx context.Context, query string) (*model.QueryOutcome, error) {
	s.mu.Lock()
	g := s.g
	ids := s.ids
	s.mu.Unlock()

	result, err := evaluate(query, g, ids)
	if err != nil {
		return &model.QueryOutcome{Success: false, Err: fmt.Errorf("%w: %v", model.ErrQuerySyntax, err)}, nil
	}
	return &model.QueryOutcome{Success: true, Payload: result}, nil
}

// Write deep-copies the graph, evaluates the script against the copy, and
// only swaps the copy in on success -- on failure the previous graph is left
// untouched (testable property 8: byte-equivalent rollback).
func (s *Store) Write(ctx context.Context, query string) (*model.QueryOutcome, error) {
	s.mu.Lock()
	candidate := s.g.Copy()
	ids := s.ids
	s.mu.Unlock()

	_, err := evaluate(query, candidate, ids)
	if err != nil {
		return &model.QueryOutcome{Success: false, Err: fmt.Errorf("%w: %v", model.ErrQuerySyntax, err)}, nil
	}

	s.mu.Lock()
	s.g = candidate
	counter := s.snap
	s.mu.Unlock()

	if counter != nil {
		if err := s.snapshot(candidate, counter); err != nil {
			s.log.Warn("memgraph: failed to write snapshot: %v", err)
		}
	}
	return &model.QueryOutcome{Success: true}, nil
}

func (s *Store) snapshot(g *Graph, counter *kgraph.SnapshotCounter) error {
	path := counter.Next("jsonl")
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	for _, id := range g.SortedNodeIDs() {
		n := g.Nodes[id]
		if err := enc.Encode(map[string]any{"kind": "node", "id": n.ID, "label": n.Label, "attrs": n.Attrs}); err != nil {
			return err
		}
	}
	for _, id := range g.SortedEdgeIDs() {
		e := g.Edges[id]
		if err := enc.Encode(map[string]any{"kind": "edge", "id": e.ID, "from": e.From, "to": e.To, "type": e.Type, "attrs": e.Attrs}); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) ReadMany(ctx context.Context, queries []string) ([]*model.QueryOutcome, error) {
	out := make([]*model.QueryOutcome, 0, len(queries))
	for _, q := range queries {
		o, err := s.Read(ctx, q)
		if err != nil {
			return out, err
		}
		out = append(out, o)
	}
	return out, nil
}

func (s *Store) WriteMany(ctx context.Context, queries []string) ([]*model.QueryOutcome, error) {
	out := make([]*model.QueryOutcome, 0, len(queries))
	for _, q := range queries {
		o, err := s.Write(ctx, q)
		if err != nil {
			return out, err
		}
		out = append(out, o)
	}
	return out, nil
}

func (s *Store) Close() error { return nil }
