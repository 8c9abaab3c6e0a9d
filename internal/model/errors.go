package model

import "errors"

// Sentinel errors for each recoverable error kind named in spec.md §7,
// mirroring the teacher's own sentinel-error convention (graph.ErrEntryPointNotSet,
// graph.ErrNodeNotFound, graph.ErrNoOutgoingEdge).
var (
	// ErrTransient marks a network/timeout fault eligible for exponential-backoff retry.
	ErrTransient = errors.New("transient error")

	// ErrQuerySyntax marks a graph-store query that failed to parse or execute
	// for syntax/semantic reasons; eligible for fix_query/fix_cypher repair.
	ErrQuerySyntax = errors.New("query syntax or semantics error")

	// ErrEmptyResult marks a retrieve whose payload satisfied IsEmptySolution;
	// eligible for retrieve_query fresh-query generation.
	ErrEmptyResult = errors.New("empty retrieve result")

	// ErrParseFailure marks a failed structured-output oracle call, such as a
	// response that did not parse against its schema. The oracle does not
	// retry parse failures; the error is returned to the caller.
	ErrParseFailure = errors.New("structured output parse failure")

	// ErrToolNotFound marks a tool call naming a tool absent from the registry.
	ErrToolNotFound = errors.New("tool not found")

	// ErrBackendUnreachable marks a fatal connectivity failure at startup.
	ErrBackendUnreachable = errors.New("graph backend unreachable")
)
