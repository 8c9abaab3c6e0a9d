// Package statistics implements the append-only usage-statistics log (§6.6),
// grounded on kgot/utils/log_and_statistics.py's collect_stats decorator and
// UsageStatistics class.
package statistics

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/spcl/knowledge-graph-of-thoughts-go/internal/model"
)

// Logger appends one JSON line per model.UsageStat, guarded by a mutex so
// concurrent callers (the multi-run harness) never interleave partial lines.
type Logger struct {
	mu  sync.Mutex
	w   io.Writer
	enc *json.Encoder
}

// NewFileLogger opens path for appending and returns a Logger writing to it.
func NewFileLogger(path string) (*Logger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening statistics log: %w", err)
	}
	return NewLogger(f), nil
}

// NewLogger wraps an arbitrary writer, used by tests and by NewFileLogger.
func NewLogger(w io.Writer) *Logger {
	return &Logger{w: w, enc: json.NewEncoder(w)}
}

// Record appends one usage stat line. Errors are swallowed beyond a log
// line, matching the Python source's best-effort statistics collection,
// which never fails the call it's wrapping.
func (l *Logger) Record(stat model.UsageStat) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_ = l.enc.Encode(stat)
}

// Collect wraps fn, recording a UsageStat for its execution regardless of
// whether fn errors, the Go analogue of the Python @collect_stats decorator.
func Collect[T any](l *Logger, functionName string, modelName string, fn func() (T, error)) (T, error) {
	stat := model.UsageStat{FunctionName: functionName, Model: modelName}
	result, err := fn()
	if l != nil {
		l.Record(stat)
	}
	return result, err
}

// Totals aggregates usage stats by function name plus a grand total, the Go
// analogue of UsageStatistics.get_total_cost/get_stats_by_function.
type Totals struct {
	ByFunction map[string]FunctionTotal
	Grand      FunctionTotal
}

type FunctionTotal struct {
	Calls            int
	PromptTokens     int
	CompletionTokens int
	Cost             float64
}

// Aggregate reads a JSONL usage-stat log and returns per-function and grand
// totals.
func Aggregate(r io.Reader) (Totals, error) {
	totals := Totals{ByFunction: map[string]FunctionTotal{}}
	dec := json.NewDecoder(r)
	for dec.More() {
		var stat model.UsageStat
		if err := dec.Decode(&stat); err != nil {
			return totals, fmt.Errorf("decoding usage stat: %w", err)
		}
		t := totals.ByFunction[stat.FunctionName]
		t.Calls++
		t.PromptTokens += stat.PromptTokens
		t.CompletionTokens += stat.CompletionTokens
		t.Cost += stat.Cost
		totals.ByFunction[stat.FunctionName] = t

		totals.Grand.Calls++
		totals.Grand.PromptTokens += stat.PromptTokens
		totals.Grand.CompletionTokens += stat.CompletionTokens
		totals.Grand.Cost += stat.Cost
	}
	return totals, nil
}
