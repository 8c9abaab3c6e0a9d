// Package model defines the core entities shared by every component: the
// problem statement, the per-run iteration state, tool calls and results,
// graph queries and their outcomes, and usage statistics.
package model

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Problem is the immutable input to a controller run.
type Problem struct {
	Statement       string
	AttachmentPaths []string
}

// BackendDialect identifies which of the three graph-store variants a
// query, prompt, or snapshot belongs to.
type BackendDialect int

const (
	LabeledProperty BackendDialect = iota
	InMemoryDirected
	TripleStore
)

func (d BackendDialect) String() string {
	switch d {
	case LabeledProperty:
		return "labeled-property"
	case InMemoryDirected:
		return "in-memory-directed"
	case TripleStore:
		return "triple-store"
	default:
		return "unknown"
	}
}

// ToolCall names a tool and the arguments it was invoked with. Equality is
// defined on (Name, canonical-JSON(Arguments)), never on Go struct identity.
type ToolCall struct {
	Name      string
	Arguments map[string]any
}

// CanonicalKey returns the (lowercased name, canonical-JSON(args)) cache key.
func (tc ToolCall) CanonicalKey() (string, error) {
	canon, err := CanonicalJSON(tc.Arguments)
	if err != nil {
		return "", fmt.Errorf("canonicalizing tool call arguments: %w", err)
	}
	return lower(tc.Name) + "\x00" + canon, nil
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// CanonicalJSON marshals v with map keys sorted recursively at every level,
// so two equal-but-differently-ordered argument maps hash identically.
func CanonicalJSON(v any) (string, error) {
	normalized := normalize(v)
	b, err := json.Marshal(normalized)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CacheDigest returns a short, stable hash of the canonical JSON for use as
// a compact map key (xxhash is used by the cache layer; this helper is kept
// dependency-free for tests).
func CacheDigest(canonicalJSON string) string {
	sum := sha256.Sum256([]byte(canonicalJSON))
	return hex.EncodeToString(sum[:8])
}

func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(orderedMap, 0, len(keys))
		for _, k := range keys {
			out = append(out, kv{k, normalize(t[k])})
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalize(e)
		}
		return out
	default:
		return t
	}
}

type kv struct {
	K string
	V any
}

// orderedMap marshals as a JSON object preserving insertion order, which
// normalize() has already sorted by key.
type orderedMap []kv

func (m orderedMap) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, e := range m {
		if i > 0 {
			buf = append(buf, ',')
		}
		kb, err := json.Marshal(e.K)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(e.V)
		if err != nil {
			return nil, err
		}
		buf = append(buf, kb...)
		buf = append(buf, ':')
		buf = append(buf, vb...)
	}
	buf = append(buf, '}')
	return buf, nil
}

// ToolResult is the outcome of one tool invocation.
type ToolResult struct {
	Output any
	Err    error
}

// WriteQuery and ReadQuery are backend-specific query text tagged with the
// dialect that produced them.
type WriteQuery struct {
	Text    string
	Dialect BackendDialect
}

type ReadQuery struct {
	Text    string
	Dialect BackendDialect
}

// QueryOutcome is the result of executing a ReadQuery or WriteQuery.
type QueryOutcome struct {
	Success bool
	Payload any
	Err     error
}

// IsEmpty implements the emptiness predicate from spec.md §4.5.4: nil, an
// empty map, an empty slice, or a nested structure whose leaves are all
// empty.
func (o *QueryOutcome) IsEmpty() bool {
	if o == nil {
		return true
	}
	return IsEmptySolution(o.Payload)
}

// IsEmptySolution is the recursive emptiness predicate shared by the
// retrieve branch and the finalization step, grounded on
// kgot/utils/utils.py's is_empty_solution.
func IsEmptySolution(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case map[string]any:
		if len(t) == 0 {
			return true
		}
		for _, e := range t {
			if !IsEmptySolution(e) {
				return false
			}
		}
		return true
	case []any:
		if len(t) == 0 {
			return true
		}
		for _, e := range t {
			if !IsEmptySolution(e) {
				return false
			}
		}
		return true
	case []map[string]any:
		for _, e := range t {
			if !IsEmptySolution(e) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// IterationState groups the per-run accumulator fields (iteration index,
// tool calls made, raw solutions, graph view). The controller keeps these
// in its own runState and does not use this type.
type IterationState struct {
	IterationIndex int
	ToolCallsMade  []ToolCall
	RawSolutions   []string
	GraphView      string
}

// UsageStat records one oracle invocation for the append-only statistics log.
type UsageStat struct {
	FunctionName    string    `json:"FunctionName"`
	StartTime       time.Time `json:"StartTime"`
	EndTime         time.Time `json:"EndTime"`
	Model           string    `json:"Model"`
	PromptTokens    int       `json:"PromptTokens"`
	CompletionTokens int      `json:"CompletionTokens"`
	Cost            float64   `json:"Cost"`
}
