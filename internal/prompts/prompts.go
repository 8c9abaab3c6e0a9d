// Package prompts implements the prompt library (C4): a catalog of named,
// named-placeholder-only templates, one variant per backend dialect where
// the template's wording depends on query syntax. Grounded on
// kgot/controller/neo4j/queryRetrieve's prompt strings (the same wording
// repeated, with small syntax differences, across its neo4j/ networkX/
// rdf4j sibling packages).
package prompts

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/spcl/knowledge-graph-of-thoughts-go/internal/model"
)

// ByDialect holds the three backend-specific variants of a template whose
// wording mentions query syntax.
type ByDialect struct {
	LabeledProperty  *template.Template
	InMemoryDirected *template.Template
	TripleStore      *template.Template
}

// For selects the template variant matching d.
func (b ByDialect) For(d model.BackendDialect) *template.Template {
	switch d {
	case model.LabeledProperty:
		return b.LabeledProperty
	case model.TripleStore:
		return b.TripleStore
	default:
		return b.InMemoryDirected
	}
}

func must(name, body string) *template.Template {
	return template.Must(template.New(name).Parse(body))
}

// Render executes tmpl against data and returns the resulting text.
func Render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering prompt %q: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}

// NextStepData is the placeholder set for the NextStep templates.
type NextStepData struct {
	Problem       string
	GraphView     string
	ToolCallsMade string
}

var NextStep = ByDialect{
	LabeledProperty: must("next_step_labeled", `You are solving the following problem:
{{.Problem}}

The current knowledge graph (labeled-property, Cypher-queryable) is rendered below:
{{.GraphView}}

Tool calls already made this run:
{{.ToolCallsMade}}

Decide whether the next step should enrich the graph (INSERT) or attempt to answer from it (RETRIEVE). If RETRIEVE, also produce the Cypher query that would extract the answer. Respond with the decision and the query.`),
	InMemoryDirected: must("next_step_memgraph", `You are solving the following problem:
{{.Problem}}

The current knowledge graph (in-memory directed multigraph, script-queryable) is rendered below:
{{.GraphView}}

Tool calls already made this run:
{{.ToolCallsMade}}

Decide whether the next step should enrich the graph (INSERT) or attempt to answer from it (RETRIEVE). If RETRIEVE, also produce the graph-script query (binding a "result" variable) that would extract the answer. Respond with the decision and the query.`),
	TripleStore: must("next_step_triplestore", `You are solving the following problem:
{{.Problem}}

The current knowledge graph (RDF triple store, SPARQL-queryable) is rendered below:
{{.GraphView}}

Tool calls already made this run:
{{.ToolCallsMade}}

Decide whether the next step should enrich the graph (INSERT) or attempt to answer from it (RETRIEVE). If RETRIEVE, also produce the SPARQL SELECT query that would extract the answer. Respond with the decision and the query.`),
}

// MergeReasonsData is the placeholder set for MergeReasonsToInsert.
type MergeReasonsData struct {
	Reasons []string
}

var MergeReasonsToInsert = must("merge_reasons_to_insert", `Fold the following independent rationales for enriching the knowledge graph into one coherent paragraph:
{{range .Reasons}}
- {{.}}
{{end}}`)

// ToolCallsData is the placeholder set for ToolCalls.
type ToolCallsData struct {
	Problem         string
	GraphView       string
	Reason          string
	ToolCallsMade   string
	AvailableTools  string
}

var ToolCalls = must("tool_calls", `Problem:
{{.Problem}}

Current graph view:
{{.GraphView}}

Reason to enrich the graph:
{{.Reason}}

Tool calls already made (avoid exact duplicates):
{{.ToolCallsMade}}

Available tools:
{{.AvailableTools}}

Choose one or more tool calls that will gather the information described in the reason above.`)

// WriteQueriesData is the placeholder set for WriteQueriesFromNewInfo.
type WriteQueriesData struct {
	Problem   string
	GraphView string
	NewInfo   string
	Reason    string
}

var WriteQueriesFromNewInfo = ByDialect{
	LabeledProperty: must("write_queries_labeled", `Problem:
{{.Problem}}

Current graph (labeled-property):
{{.GraphView}}

New information to integrate:
{{.NewInfo}}

Reason:
{{.Reason}}

Produce one or more Cypher write statements (MERGE/CREATE/SET) that integrate the new information into the graph. Return each statement as a separate entry.`),
	InMemoryDirected: must("write_queries_memgraph", `Problem:
{{.Problem}}

Current graph (in-memory directed multigraph):
{{.GraphView}}

New information to integrate:
{{.NewInfo}}

Reason:
{{.Reason}}

Produce one or more graph-script write statements (using add_node/add_edge) that integrate the new information. Return each statement as a separate entry.`),
	TripleStore: must("write_queries_triplestore", `Problem:
{{.Problem}}

Current graph (RDF triple store):
{{.GraphView}}

New information to integrate:
{{.NewInfo}}

Reason:
{{.Reason}}

Produce one or more SPARQL INSERT DATA / INSERT statements that integrate the new information as triples. Return each statement as a separate entry.`),
}

// RetrieveQueryData is the placeholder set for RetrieveQuery and
// ForcedRetrieve.
type RetrieveQueryData struct {
	Problem     string
	GraphView   string
	FailedQuery string
}

var RetrieveQuery = ByDialect{
	LabeledProperty: must("retrieve_query_labeled", `Problem:
{{.Problem}}

Current graph (labeled-property):
{{.GraphView}}
{{if .FailedQuery}}
The previous attempt's query returned nothing useful:
{{.FailedQuery}}
{{end}}
Produce a fresh Cypher read query that extracts the answer.`),
	InMemoryDirected: must("retrieve_query_memgraph", `Problem:
{{.Problem}}

Current graph (in-memory directed multigraph):
{{.GraphView}}
{{if .FailedQuery}}
The previous attempt's query returned nothing useful:
{{.FailedQuery}}
{{end}}
Produce a fresh graph-script read query (binding a "result" variable) that extracts the answer.`),
	TripleStore: must("retrieve_query_triplestore", `Problem:
{{.Problem}}

Current graph (RDF triple store):
{{.GraphView}}
{{if .FailedQuery}}
The previous attempt's query returned nothing useful:
{{.FailedQuery}}
{{end}}
Produce a fresh SPARQL SELECT query that extracts the answer.`),
}

// ForcedRetrieve is used in place of RetrieveQuery once the iteration budget
// is exhausted; same placeholders, a more insistent framing.
var ForcedRetrieve = ByDialect{
	LabeledProperty: must("forced_retrieve_labeled", `The iteration budget is exhausted. Problem:
{{.Problem}}

Current graph (labeled-property):
{{.GraphView}}

Produce the best Cypher read query you can to extract any usable answer, even a partial one.`),
	InMemoryDirected: must("forced_retrieve_memgraph", `The iteration budget is exhausted. Problem:
{{.Problem}}

Current graph (in-memory directed multigraph):
{{.GraphView}}

Produce the best graph-script read query you can (binding a "result" variable) to extract any usable answer, even a partial one.`),
	TripleStore: must("forced_retrieve_triplestore", `The iteration budget is exhausted. Problem:
{{.Problem}}

Current graph (RDF triple store):
{{.GraphView}}

Produce the best SPARQL SELECT query you can to extract any usable answer, even a partial one.`),
}

// FixQueryData is the placeholder set for FixQuery.
type FixQueryData struct {
	Query     string
	Error     string
	GraphView string // only populated for the in-memory dialect
}

var FixQuery = ByDialect{
	LabeledProperty: must("fix_query_labeled", `The following Cypher query failed:
{{.Query}}

Error:
{{.Error}}

Produce a corrected Cypher query.`),
	InMemoryDirected: must("fix_query_memgraph", `The following graph-script query failed:
{{.Query}}

Error:
{{.Error}}

Current graph view:
{{.GraphView}}

Produce a corrected graph-script query.`),
	TripleStore: must("fix_query_triplestore", `The following SPARQL query failed:
{{.Query}}

Error:
{{.Error}}

Produce a corrected SPARQL query.`),
}

// NeedForMathData is the placeholder set for NeedForMath.
type NeedForMathData struct {
	Problem         string
	PartialSolution string
}

var NeedForMath = must("need_for_math", `Problem:
{{.Problem}}

Partial solution so far:
{{.PartialSolution}}

Does producing the final answer still require numeric computation this text does not already contain? Answer with a boolean.`)

// MathToolCallData is the placeholder set for MathToolCall.
type MathToolCallData struct {
	Problem         string
	PartialSolution string
}

var MathToolCall = must("math_tool_call", `Problem:
{{.Problem}}

Partial solution so far:
{{.PartialSolution}}

Write the Python code needed to compute the missing numeric result, to be run through the code executor tool.`)

// ParseSolutionData is the placeholder set for ParseSolution.
type ParseSolutionData struct {
	Problem  string
	Solution string
}

var ParseSolution = must("parse_solution", `Problem:
{{.Problem}}

Raw solution material:
{{.Solution}}

Format this into the final answer the problem is asking for, in natural prose.`)

var ParseSolutionStrict = must("parse_solution_strict", `Problem:
{{.Problem}}

Raw solution material:
{{.Solution}}

Format this into the final answer using the strict benchmark style: if the answer is a number, write only digits (no currency symbols, no thousands separators, no units unless explicitly requested); if the answer is a string, don't use articles or abbreviations; if it's a list, comma-separate the elements applying the same rules to each.`)

// FinalSolutionVoteData is the placeholder set for FinalSolutionVote.
type FinalSolutionVoteData struct {
	Problem    string
	Candidates []string
}

var FinalSolutionVote = must("final_solution_vote", `Problem:
{{.Problem}}

Candidate final answers:
{{range $i, $c := .Candidates}}
{{$i}}: {{$c}}
{{end}}
Pick the single best candidate and return it verbatim as the final answer.`)

// ForcedSolutionData is the placeholder set for ForcedSolution.
type ForcedSolutionData struct {
	Problem   string
	GraphView string
}

var ForcedSolution = must("forced_solution", `Problem:
{{.Problem}}

Current graph view (no retrieve attempt produced a usable answer):
{{.GraphView}}

Produce your best guess at the final answer anyway, using whatever partial information the graph and your own knowledge provide. Never return an empty string.`)
