// Knowledge Graph of Thoughts (KGoT) is a reasoning controller that solves
// natural-language problems by iteratively constructing and querying a
// knowledge graph through a fixed portfolio of external tools and a
// language-model oracle.
//
// # Quick Start
//
// Build and run a single problem through the CLI:
//
//	go build -o kgot ./cmd/kgot
//	./kgot single -p "How many legs does a spider have?" --llm-plan gpt-4o
//
// # Package Structure
//
// internal/controller
// The Iterative Controller (vote / insert / retrieve / finalize) that drives
// one problem to an answer. Its control flow is built on graph.StateGraph,
// the same generic engine prebuilt.CreateReactAgent compiles against.
//
// internal/kgraph
// The Store interface and its three backends: neo4j (labeled-property),
// memgraph (in-memory directed), and triplestore (RDF/SPARQL).
//
// internal/oracle
// The LLM client used for structured decisions and free-form generation,
// dispatching between a hosted API model and a local daemon model.
//
// internal/toolkit
// The tool registry and retrying invoker, plus the seven tools the
// controller can call: zip extraction, ask-LLM, file inspection,
// Wikipedia lookup, sandboxed Python execution, image inspection, and a
// web-browsing ReAct sub-agent.
//
// internal/prompts, internal/config, internal/statistics
// Prompt templates, YAML model/backend configuration, and usage-stat
// logging shared across the controller and CLI.
//
// internal/harness
// A bounded-concurrency driver for running many problems in parallel, each
// over its own isolated Store and Invoker.
//
// cmd/kgot
// The CLI entry point (spec.md §6.5): `kgot single` wires a model config
// file and the process environment into one controller run.
//
// # Vendored Engine Packages
//
// graph/
// The generic state-graph construction and execution engine
// (graph.StateGraph[S], conditional edges, parallel node fan-out) that the
// controller's vote/insert/retrieve/finalize loop is compiled on.
//
// prebuilt/
// CreateReactAgent, the tool-calling ReAct sub-agent used by the
// web_surfer tool (internal/toolkit/websurfer) to drive its browser
// primitives.
//
// log/
// The structured Logger interface and its golog-backed implementation,
// used throughout internal/ and cmd/kgot for request and retry logging.
package kgot // import "github.com/spcl/knowledge-graph-of-thoughts-go"
