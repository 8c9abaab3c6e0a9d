// Package fileinspect implements the unstructured text/file reader tool:
// it converts a local file to markdown-like text and, optionally, asks the
// oracle a question about it, grounded on TextInspectorTool.py and its
// MarkdownConverter dependency.
package fileinspect

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gomarkdown/markdown"
	"github.com/ledongthuc/pdf"
	"github.com/microcosm-cc/bluemonday"
)

// ConvertedDocument is the Go analogue of MdConverter's DocumentConverterResult.
type ConvertedDocument struct {
	Title       string
	TextContent string
}

// Convert renders path as markdown-like plain text, dispatching on file
// extension the way MarkdownConverter.convert does.
func Convert(path string) (*ConvertedDocument, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".html", ".htm":
		return convertHTML(path)
	case ".pdf":
		return convertPDF(path)
	case ".md", ".markdown":
		return convertPlainText(path)
	default:
		return convertPlainText(path)
	}
}

func convertPlainText(path string) (*ConvertedDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return &ConvertedDocument{Title: filepath.Base(path), TextContent: string(data)}, nil
}

// convertHTML sanitizes and strips an HTML document down to its text content
// using goquery for parsing and bluemonday for sanitization, replacing the
// Python source's BeautifulSoup-based stripping.
func convertHTML(path string) (*ConvertedDocument, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("parsing html %s: %w", path, err)
	}

	policy := bluemonday.StrictPolicy()
	title := strings.TrimSpace(doc.Find("title").First().Text())
	text := policy.Sanitize(strings.TrimSpace(doc.Text()))
	return &ConvertedDocument{Title: title, TextContent: text}, nil
}

// convertPDF extracts plain text from a PDF using ledongthuc/pdf, page by
// page, replacing the Python source's pdfminer-based extraction.
func convertPDF(path string) (*ConvertedDocument, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening pdf %s: %w", path, err)
	}
	defer f.Close()

	var b strings.Builder
	totalPages := r.NumPage()
	for i := 1; i <= totalPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(content)
		b.WriteString("\n")
	}
	return &ConvertedDocument{Title: filepath.Base(path), TextContent: b.String()}, nil
}

// renderMarkdown is available to other components that need to present
// extracted text as HTML; kept here since gomarkdown is otherwise unused.
func renderMarkdown(src []byte) []byte {
	return markdown.ToHTML(src, nil, nil)
}
