// Package localdaemon implements the local-daemon model family: an
// Ollama-compatible /api/generate HTTP client satisfying langchaingo's
// llms.Model, adapted from the teacher's llms/ernie package as the template
// for "a second hosted LLM client living outside langchaingo's built-in
// providers," and grounded on kgot/utils/llm_utils.py's ChatOllama branch.
package localdaemon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spcl/knowledge-graph-of-thoughts-go/internal/model"
	"github.com/tmc/langchaingo/llms"
)

// Options configure the daemon connection.
type Options struct {
	BaseURL     string
	ModelName   string
	Temperature float64
	NumCtx      int
	NumPredict  int
	NumBatch    int
}

// Client speaks the Ollama /api/generate contract.
type Client struct {
	opts Options
	http *http.Client
}

var _ llms.Model = (*Client)(nil)

func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = "http://localhost:11434"
	}
	return &Client{opts: opts, http: &http.Client{Timeout: 120 * time.Second}}
}

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
	KeepAlive int          `json:"keep_alive"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// GenerateContent implements llms.Model by flattening messages into a single
// prompt, since /api/generate is not a chat-turn endpoint.
func (c *Client) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	prompt := flatten(messages)

	reqBody := generateRequest{
		Model:  c.opts.ModelName,
		Prompt: prompt,
		Stream: false,
		Options: map[string]any{
			"temperature": c.opts.Temperature,
			"num_ctx":     c.opts.NumCtx,
			"num_predict": c.opts.NumPredict,
			"num_batch":   c.opts.NumBatch,
		},
		KeepAlive: -1,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.BaseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("local daemon returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding local daemon response: %w", err)
	}

	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: parsed.Response}},
	}, nil
}

// Call implements llms.LLM's single-string convenience entry point.
func (c *Client) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	resp, err := c.GenerateContent(ctx, []llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, prompt)}, options...)
	if err != nil {
		return "", err
	}
	return resp.Choices[0].Content, nil
}

func flatten(messages []llms.MessageContent) string {
	var b strings.Builder
	for _, m := range messages {
		for _, part := range m.Parts {
			if tp, ok := part.(llms.TextContent); ok {
				b.WriteString(string(m.Role))
				b.WriteString(": ")
				b.WriteString(tp.Text)
				b.WriteString("\n")
			}
		}
	}
	return b.String()
}
