package websurfer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/spcl/knowledge-graph-of-thoughts-go/internal/oracle"
	"github.com/spcl/knowledge-graph-of-thoughts-go/internal/toolkit"
	"github.com/spcl/knowledge-graph-of-thoughts-go/prebuilt"
	"github.com/tmc/langchaingo/llms"
	lctools "github.com/tmc/langchaingo/tools"
)

// New returns the web_surfer tool: a ReAct sub-agent running the ten
// browser primitives in a tool-calling loop, reusing the teacher's
// prebuilt.CreateReactAgent rather than a bespoke control loop.
func New(model llms.Model, o oracle.Oracle, downloadsDir string, maxIterations int) (toolkit.Tool, error) {
	browser := NewBrowserState(downloadsDir)
	subTools := []lctools.Tool{
		fullPageSummaryTool{browser: browser, oracle: o},
		searchInformationTool{},
		navigationalSearchTool{browser: browser},
		visitTool{browser: browser},
		downloadTool{browser: browser},
		pageUpTool{browser: browser},
		pageDownTool{browser: browser},
		finderTool{browser: browser},
		findNextTool{browser: browser},
		archiveSearchTool{browser: browser},
	}

	agent, err := prebuilt.CreateReactAgent(model, subTools, maxIterations)
	if err != nil {
		return nil, fmt.Errorf("websurfer: building react agent: %w", err)
	}

	return toolkit.NewSimpleTool("web_surfer", description, schema, func(ctx context.Context, input string) (string, error) {
		messages := []llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, input)}
		result, err := agent.Invoke(ctx, map[string]any{"messages": messages})
		if err != nil {
			return "", err
		}
		final := result["messages"].([]llms.MessageContent)
		last := final[len(final)-1]
		for _, part := range last.Parts {
			if tp, ok := part.(llms.TextContent); ok {
				return tp.Text, nil
			}
		}
		return "", nil
	}), nil
}

const description = `Browses the web to answer a question that requires visiting one or more pages, following links, searching, and reading page content. Describe what you want found; the tool will navigate and report back.`

var schema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"task": map[string]any{"type": "string", "description": "What to find on the web."},
	},
	"required": []string{"task"},
}

// fullPageSummaryTool asks the oracle to extract task-relevant information
// from a fully-rendered page, replacing FullPageSummaryTool's
// scrapegraphai-based OmniScraperGraph/SmartScraperGraph pipeline (no
// scrapegraphai analogue exists in the example pack; this module's browser
// is already text-only, so the oracle performs the extraction directly over
// the rendered text instead of a vision-capable scrape graph).
type fullPageSummaryTool struct {
	browser *BrowserState
	oracle  oracle.Oracle
}

func (t fullPageSummaryTool) Name() string { return "get_full_page_summary" }
func (t fullPageSummaryTool) Description() string {
	return "Given a url and a prompt, returns a summary of the information from the full webpage which pertains to the prompt. Input is JSON: {\"url\":...,\"prompt\":...}"
}
func (t fullPageSummaryTool) Call(ctx context.Context, input string) (string, error) {
	var args struct{ URL, Prompt string }
	if err := json.Unmarshal([]byte(input), &args); err != nil {
		return "", err
	}
	if _, err := t.browser.Visit(ctx, args.URL); err != nil {
		return "", err
	}
	prompt := fmt.Sprintf("Extract information relevant to %q from this page:\n%s", args.Prompt, t.browser.content)
	return t.oracle.Invoke(ctx, "get_full_page_summary", prompt)
}

// searchInformationTool performs a general web search, grounded on
// SearchInformationTool. The teacher's tool.BraveSearch needs an API key
// this module has no configuration surface for, so this hits DuckDuckGo's
// key-free lite HTML endpoint instead.
type searchInformationTool struct{}

func (t searchInformationTool) Name() string { return "web_search" }
func (t searchInformationTool) Description() string {
	return "Performs a web search for the given query and returns the URL of the DuckDuckGo lite results page and the HTTP status; the results themselves are not parsed or listed."
}
func (t searchInformationTool) Call(ctx context.Context, input string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://lite.duckduckgo.com/lite/?q="+url.QueryEscape(input), nil)
	if err != nil {
		return "", err
	}
	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("web_search: %w", err)
	}
	defer resp.Body.Close()
	return fmt.Sprintf("search results available at https://lite.duckduckgo.com/lite/?q=%s (status %d)", url.QueryEscape(input), resp.StatusCode), nil
}

// navigationalSearchTool resolves a site name to its most likely URL and
// visits it, grounded on NavigationalSearchTool.
type navigationalSearchTool struct{ browser *BrowserState }

func (t navigationalSearchTool) Name() string { return "navigational_search" }
func (t navigationalSearchTool) Description() string {
	return "Given the name of a website or organization, navigates to its most likely homepage."
}
func (t navigationalSearchTool) Call(ctx context.Context, input string) (string, error) {
	return t.browser.Visit(ctx, "https://"+input)
}

type visitTool struct{ browser *BrowserState }

func (t visitTool) Name() string        { return "visit_page" }
func (t visitTool) Description() string { return "Visits a URL and returns the page's visible text." }
func (t visitTool) Call(ctx context.Context, input string) (string, error) {
	return t.browser.Visit(ctx, input)
}

type downloadTool struct{ browser *BrowserState }

func (t downloadTool) Name() string        { return "download_file" }
func (t downloadTool) Description() string { return "Downloads a file from a URL and returns its local path." }
func (t downloadTool) Call(ctx context.Context, input string) (string, error) {
	return t.browser.Download(ctx, input)
}

type pageUpTool struct{ browser *BrowserState }

func (t pageUpTool) Name() string        { return "page_up" }
func (t pageUpTool) Description() string { return "Scrolls the current page up one viewport." }
func (t pageUpTool) Call(ctx context.Context, input string) (string, error) {
	return t.browser.PageUp(), nil
}

type pageDownTool struct{ browser *BrowserState }

func (t pageDownTool) Name() string        { return "page_down" }
func (t pageDownTool) Description() string { return "Scrolls the current page down one viewport." }
func (t pageDownTool) Call(ctx context.Context, input string) (string, error) {
	return t.browser.PageDown(), nil
}

type finderTool struct{ browser *BrowserState }

func (t finderTool) Name() string        { return "find_on_page" }
func (t finderTool) Description() string { return "Finds the first occurrence of a string on the current page." }
func (t finderTool) Call(ctx context.Context, input string) (string, error) {
	return t.browser.Find(input), nil
}

type findNextTool struct{ browser *BrowserState }

func (t findNextTool) Name() string        { return "find_next" }
func (t findNextTool) Description() string { return "Finds the next occurrence of the given string after the previous match, wrapping to the start of the page." }
func (t findNextTool) Call(ctx context.Context, input string) (string, error) {
	return t.browser.Find(input), nil
}

// archiveSearchTool looks up the closest archived snapshot of a URL as of a
// given date using the Wayback Machine's CDX API, grounded on
// ArchiveSearchTool.
type archiveSearchTool struct{ browser *BrowserState }

func (t archiveSearchTool) Name() string { return "archive_search" }
func (t archiveSearchTool) Description() string {
	return "Given a URL and a date (yyyyMMdd), visits the closest Wayback Machine snapshot. Input is JSON: {\"url\":...,\"date\":...}"
}
func (t archiveSearchTool) Call(ctx context.Context, input string) (string, error) {
	var args struct{ URL, Date string }
	if err := json.Unmarshal([]byte(input), &args); err != nil {
		return "", err
	}
	cdxURL := fmt.Sprintf("http://archive.org/wayback/available?url=%s&timestamp=%s", url.QueryEscape(args.URL), args.Date)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cdxURL, nil)
	if err != nil {
		return "", err
	}
	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("archive_search: %w", err)
	}
	defer resp.Body.Close()

	var parsed struct {
		ArchivedSnapshots struct {
			Closest struct {
				URL       string `json:"url"`
				Available bool   `json:"available"`
			} `json:"closest"`
		} `json:"archived_snapshots"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	if parsed.ArchivedSnapshots.Closest.URL == "" {
		return "No archived snapshot found for that URL and date.", nil
	}
	return t.browser.Visit(ctx, parsed.ArchivedSnapshots.Closest.URL)
}
