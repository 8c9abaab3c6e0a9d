// Package websurfer implements the web-surfer tool: a ReAct sub-agent
// dispatching over a headless text "browser state," grounded on
// Web_surfer.py's primitive roster (FullPageSummaryTool, SearchInformationTool,
// NavigationalSearchTool, VisitTool, DownloadTool, PageUpTool, PageDownTool,
// FinderTool, FindNextTool, ArchiveSearchTool).
package websurfer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const viewportSize = 1024 * 5

// BrowserState is a single page's text content, paginated into viewport-sized
// chunks, plus the last "find" match position -- the Go stand-in for
// SimpleTextBrowser.
type BrowserState struct {
	client         *http.Client
	downloadsDir   string
	currentURL     string
	pageTitle      string
	viewportOffset int
	content        string
	findPosition   int
}

func NewBrowserState(downloadsDir string) *BrowserState {
	return &BrowserState{
		client:       &http.Client{Timeout: 300 * time.Second},
		downloadsDir: downloadsDir,
	}
}

// Viewport returns the text visible at the current scroll offset.
func (b *BrowserState) Viewport() string {
	if b.viewportOffset >= len(b.content) {
		return ""
	}
	end := b.viewportOffset + viewportSize
	if end > len(b.content) {
		end = len(b.content)
	}
	return b.content[b.viewportOffset:end]
}

// PageUp scrolls one viewport back.
func (b *BrowserState) PageUp() string {
	b.viewportOffset -= viewportSize
	if b.viewportOffset < 0 {
		b.viewportOffset = 0
	}
	return b.Viewport()
}

// PageDown scrolls one viewport forward.
func (b *BrowserState) PageDown() string {
	b.viewportOffset += viewportSize
	if b.viewportOffset >= len(b.content) {
		b.viewportOffset = len(b.content) - viewportSize
		if b.viewportOffset < 0 {
			b.viewportOffset = 0
		}
	}
	return b.Viewport()
}

// Find locates needle starting from the current position and scrolls the
// viewport to it, wrapping from the start on no further match.
func (b *BrowserState) Find(needle string) string {
	idx := strings.Index(strings.ToLower(b.content[b.findPosition:]), strings.ToLower(needle))
	if idx == -1 {
		idx = strings.Index(strings.ToLower(b.content), strings.ToLower(needle))
		if idx == -1 {
			return "Match not found."
		}
	} else {
		idx += b.findPosition
	}
	b.viewportOffset = idx
	b.findPosition = idx + len(needle)
	return b.Viewport()
}

// Visit fetches a URL and renders its visible text, becoming the browser's
// current page.
func (b *BrowserState) Visit(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; websurfer-tool)")

	resp, err := b.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("visiting %s: %w", url, err)
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parsing %s: %w", url, err)
	}

	b.currentURL = url
	b.pageTitle = strings.TrimSpace(doc.Find("title").First().Text())
	doc.Find("script,style,noscript").Remove()
	b.content = strings.TrimSpace(doc.Text())
	b.viewportOffset = 0
	b.findPosition = 0
	return b.Viewport(), nil
}

// Download fetches url into the downloads directory and returns the local
// path.
func (b *BrowserState) Download(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := os.MkdirAll(b.downloadsDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(b.downloadsDir, filepath.Base(url))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return "", err
	}
	return path, nil
}
