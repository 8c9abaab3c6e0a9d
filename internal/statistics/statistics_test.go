package statistics

import (
	"bytes"
	"testing"
	"time"

	"github.com/spcl/knowledge-graph-of-thoughts-go/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAppendsOneLinePerCall(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	l.Record(model.UsageStat{FunctionName: "next_step", StartTime: time.Now(), PromptTokens: 10, CompletionTokens: 5, Cost: 0.01})
	l.Record(model.UsageStat{FunctionName: "next_step", StartTime: time.Now(), PromptTokens: 20, CompletionTokens: 8, Cost: 0.02})

	totals, err := Aggregate(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 2, totals.Grand.Calls)
	assert.Equal(t, 30, totals.Grand.PromptTokens)
	assert.InDelta(t, 0.03, totals.Grand.Cost, 1e-9)
	assert.Equal(t, 2, totals.ByFunction["next_step"].Calls)
}

func TestAggregateSeparatesByFunction(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)
	l.Record(model.UsageStat{FunctionName: "retrieve_query", Cost: 1})
	l.Record(model.UsageStat{FunctionName: "merge_reasons_to_insert", Cost: 2})

	totals, err := Aggregate(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Len(t, totals.ByFunction, 2)
	assert.Equal(t, 1.0, totals.ByFunction["retrieve_query"].Cost)
	assert.Equal(t, 2.0, totals.ByFunction["merge_reasons_to_insert"].Cost)
}
