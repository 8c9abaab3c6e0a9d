package localdaemon

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

func TestGenerateContentPostsFlattenedPromptAndKeepAlive(t *testing.T) {
	var gotReq generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(generateResponse{Response: "hi there", Done: true})
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL, ModelName: "llama3"})
	resp, err := c.GenerateContent(context.Background(), []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, "hello"),
	})
	require.NoError(t, err)
	assert.Equal(t, "hi there", resp.Choices[0].Content)
	assert.Equal(t, "llama3", gotReq.Model)
	assert.Equal(t, -1, gotReq.KeepAlive)
	assert.Contains(t, gotReq.Prompt, "hello")
}

func TestGenerateContentReturnsErrorOnNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("daemon overloaded"))
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL, ModelName: "llama3"})
	_, err := c.GenerateContent(context.Background(), []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, "hello"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "daemon overloaded")
}

func TestCallReturnsFirstChoiceContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(generateResponse{Response: "answer", Done: true})
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL})
	out, err := c.Call(context.Background(), "question")
	require.NoError(t, err)
	assert.Equal(t, "answer", out)
}

func TestDefaultsBaseURLWhenEmpty(t *testing.T) {
	c := New(Options{})
	assert.Equal(t, "http://localhost:11434", c.opts.BaseURL)
}
