// Package imageqa implements the image question-answering tool: it feeds a
// local or remote image plus a question to a vision-capable chat completion
// model, grounded on ImageQuestionTool.py.
package imageqa

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/spcl/knowledge-graph-of-thoughts-go/internal/toolkit"
)

const systemPrompt = `You are an expert in image analysis, reading and extraction. You will be given an image along with a specific question related to that image.
Give an in-depth description of what is found in the image. Give an in-depth answer to the question.
If you are unable to answer the question, give a detailed description of the items in the image which could help someone else answer the question.
Do not add any information that is not present in the image. If the image includes any code, text or numbers, transcribe it after the answer.`

const description = `You cannot inspect images yourself: instead call this tool to inspect an image by providing a local image file path or an image URI and ask questions about it.
This tool handles the following file extensions: [".jpeg", ".jpg", ".png", ".svg"], it does NOT handle .mp3 files.`

var schema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"question":           map[string]any{"type": "string", "description": "The question to ask about the image."},
		"full_path_to_image": map[string]any{"type": "string", "description": "The full path to the image file, or a URL."},
	},
	"required": []string{"full_path_to_image"},
}

type args struct {
	Question        string `json:"question"`
	FullPathToImage string `json:"full_path_to_image"`
}

// New returns the image_inspector tool, calling client's ModelName as a
// vision-capable model.
func New(client *openai.Client, modelName string) toolkit.Tool {
	return toolkit.NewSimpleTool("image_inspector", description, schema, func(ctx context.Context, input string) (string, error) {
		return call(ctx, client, modelName, input)
	})
}

func call(ctx context.Context, client *openai.Client, modelName, input string) (string, error) {
	var a args
	if err := json.Unmarshal([]byte(input), &a); err != nil {
		return "", fmt.Errorf("imageqa: decoding arguments: %w", err)
	}

	if strings.HasSuffix(a.FullPathToImage, ".mp3") {
		return "Cannot use image_question tool with .mp3 files: use inspect_file_as_text instead!", nil
	}
	if a.Question == "" {
		a.Question = "Please write a detailed caption for this image"
	}

	url, err := resolveImageURL(ctx, a.FullPathToImage)
	if err != nil {
		return err.Error(), nil
	}

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: modelName,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: a.Question + " Take a deep breath and do this step-by-step."},
					{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: url, Detail: openai.ImageURLDetailHigh}},
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("imageqa: vision completion: %w", err)
	}
	return resp.Choices[0].Message.Content, nil
}

// resolveImageURL turns a local path or remote URL into the data: or http:
// URL form the vision API accepts. SVG remote images are forwarded as-is;
// OpenAI-compatible vision endpoints that reject SVG will surface that as a
// call error, which the caller reports back to the oracle as tool output
// rather than this module attempting server-side rasterization (no
// SVG-to-raster dependency exists anywhere in the example pack).
func resolveImageURL(ctx context.Context, path string) (string, error) {
	if isURL(path) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
		if err != nil {
			return "", fmt.Errorf("failed to download image from URL")
		}
		client := &http.Client{Timeout: 30 * time.Second}
		resp, err := client.Do(req)
		if err != nil {
			return "", fmt.Errorf("failed to download image from URL")
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("the URL provided is not valid")
		}
		if strings.Contains(detectContentType(resp), "image/svg+xml") {
			return path, nil
		}
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", fmt.Errorf("failed to download image from URL")
		}
		format := imageFormat(path)
		return fmt.Sprintf("data:image/%s;base64,%s", format, encodeBytes(body)), nil
	}

	encoded, err := encodeImage(path)
	if err != nil {
		return "", fmt.Errorf("failed to open the file as an image, try using inspect_file_as_text instead")
	}
	return fmt.Sprintf("data:image/%s;base64,%s", imageFormat(path), encoded), nil
}
