// Package kgraph defines the uniform knowledge-graph store contract (C1)
// implemented by the three backend dialects: labeled-property (neo4j),
// in-memory directed multigraph (memgraph), and triple-store (triplestore).
//
// This is the spec's "Knowledge Graph", not the control-flow graph.StateGraph
// engine the controller runs on — the two are unrelated despite the shared
// word.
package kgraph

import (
	"context"

	"github.com/spcl/knowledge-graph-of-thoughts-go/internal/model"
)

// Store is the capability set {init, render, read, write, read_many,
// write_many} every backend variant must satisfy, per spec.md §4.1.
type Store interface {
	// Init clears the graph, resets the snapshot counter to zero, and
	// creates the snapshot directory for this run.
	Init(ctx context.Context, runIndex int, snapshotDir string) error

	// Render returns a human-readable serialization of the current graph
	// suitable for inclusion in an oracle prompt (the "graph view").
	Render(ctx context.Context) (string, error)

	// Read executes a read-query and returns its outcome. Connectivity
	// errors bubble as errors; syntax/semantic failures are reported as a
	// QueryOutcome with Success=false so the caller's repair layer can act.
	Read(ctx context.Context, query string) (*model.QueryOutcome, error)

	// Write executes one write-query in a single transaction, and on
	// success exports the full graph to a newly numbered snapshot file.
	Write(ctx context.Context, query string) (*model.QueryOutcome, error)

	ReadMany(ctx context.Context, queries []string) ([]*model.QueryOutcome, error)
	WriteMany(ctx context.Context, queries []string) ([]*model.QueryOutcome, error)

	Dialect() model.BackendDialect
	Close() error
}
