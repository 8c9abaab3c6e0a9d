package fileinspect

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spcl/knowledge-graph-of-thoughts-go/internal/oracle"
	"github.com/spcl/knowledge-graph-of-thoughts-go/internal/toolkit"
)

const description = `You cannot load files yourself: instead call this tool to read a file as markdown text and ask questions about it.
This tool handles the following file extensions: [".html", ".htm", ".xlsx", ".pptx", ".pdf", ".docx"], and all other types of text files. IT DOES NOT HANDLE IMAGES.`

var imageExtensions = []string{".png", ".jpg", ".jpeg", ".svg"}

var schema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"file_path": map[string]any{"type": "string", "description": "The path to the file to read as text."},
		"question":  map[string]any{"type": "string", "description": "Optional question to ask about the file content."},
	},
	"required": []string{"file_path"},
}

type args struct {
	FilePath string `json:"file_path"`
	Question string `json:"question"`
}

// New returns the inspect_file_as_text tool, asking o when a question
// accompanies the file path.
func New(o oracle.Oracle) toolkit.Tool {
	return toolkit.NewSimpleTool("inspect_file_as_text", description, schema, func(ctx context.Context, input string) (string, error) {
		return call(ctx, o, input)
	})
}

func call(ctx context.Context, o oracle.Oracle, input string) (string, error) {
	var a args
	if err := json.Unmarshal([]byte(input), &a); err != nil {
		a.FilePath = input
	}

	filePath := a.FilePath
	if _, err := os.Stat(filePath); err != nil {
		filePath = strings.TrimPrefix(filePath, "/")
	}

	for _, ext := range imageExtensions {
		if strings.HasSuffix(filePath, ext) {
			return "Cannot use inspect_file_as_text tool with images: use the image_inspector tool instead!", nil
		}
	}

	if _, err := os.Stat(filePath); err != nil {
		return "", fmt.Errorf("inspect_file_as_text: %s: %w", filePath, err)
	}

	doc, err := Convert(filePath)
	if err != nil {
		return "", fmt.Errorf("inspect_file_as_text: %w", err)
	}

	if a.Question == "" {
		return doc.TextContent, nil
	}

	text := doc.TextContent
	if len(text) > 70000 {
		text = text[:70000]
	}
	prompt := fmt.Sprintf(
		"You will have to write a short caption for this file, then answer this question: %s\n\nHere is the complete file:\n### %s\n\n%s\n\nNow answer the question below. Use these three headings: '1. Short answer', '2. Extremely detailed answer', '3. Additional Context on the document and question asked'. %s",
		a.Question, doc.Title, text, a.Question)

	return o.Invoke(ctx, "inspect_file_as_text", prompt)
}
