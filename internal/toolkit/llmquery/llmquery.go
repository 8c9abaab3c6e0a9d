// Package llmquery implements the default LLM query fallback tool, grounded
// on LLMTool.py: a thin pass-through to the oracle with no additional
// structure.
package llmquery

import (
	"context"
	"encoding/json"

	"github.com/spcl/knowledge-graph-of-thoughts-go/internal/oracle"
	"github.com/spcl/knowledge-graph-of-thoughts-go/internal/toolkit"
)

const description = `This tool interfaces with a Large Language Model (LLM) to generate responses based on provided inputs. Use it for tasks such as text generation, summarization, question answering, and more. To achieve the best results, be as specific and verbose as possible in your query. The query is the only source of information you can pass to the LLM.

Limitations:
- The LLM might produce responses that are not factually accurate or relevant if the input is ambiguous or lacks context.
- The LLM is not great at math nor at probability related queries.
- The LLM has a knowledge cutoff date and may not be aware of recent events or advancements.`

var schema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"query": map[string]any{"type": "string", "description": "The query string to ask the LLM."},
	},
	"required": []string{"query"},
}

type queryArgs struct {
	Query string `json:"query"`
}

// New returns the llm_query tool backed by o.
func New(o oracle.Oracle) toolkit.Tool {
	return toolkit.NewSimpleTool("llm_query", description, schema, func(ctx context.Context, input string) (string, error) {
		var args queryArgs
		if err := json.Unmarshal([]byte(input), &args); err != nil || args.Query == "" {
			args.Query = input
		}
		return o.Invoke(ctx, "llm_query", args.Query)
	})
}
