// Package wikipedia implements the Wikipedia retriever tool: search via the
// MediaWiki REST API, oracle-driven article selection, HTML table
// extraction, and current-vs-historical revision branching, grounded on
// WikipediaTool.py's query_wikipedia/get_page_content/ask_LLM_which_article_to_explore.
package wikipedia

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/spcl/knowledge-graph-of-thoughts-go/internal/oracle"
	"github.com/spcl/knowledge-graph-of-thoughts-go/internal/toolkit"
)

const description = `The WikipediaTool interfaces with Wikipedia's extensive database, allowing users to retrieve detailed articles and summaries on a wide range of topics.
This tool is useful for gathering information from one of the largest and most frequently updated encyclopedic sources available.

Features:
 - Access to millions of articles across diverse subjects.
 - Possibility to retrieve articles at a specific date.

date must be given in mm-dd-yyyy format, or "cur" for the current revision.`

var schema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"article_name":            map[string]any{"type": "string", "description": "Keyword or title of the article you are looking for."},
		"information_to_retrieve": map[string]any{"type": "string", "description": "Detailed description of the information you are looking for."},
		"date":                    map[string]any{"type": "string", "description": "mm-dd-yyyy, or 'cur' for the current revision."},
		"initial_problem":         map[string]any{"type": "string", "description": "The initial problem to solve."},
	},
	"required": []string{"article_name", "information_to_retrieve", "date", "initial_problem"},
}

type queryArgs struct {
	ArticleName           string `json:"article_name"`
	InformationToRetrieve string `json:"information_to_retrieve"`
	Date                  string `json:"date"`
	InitialProblem        string `json:"initial_problem"`
}

// Tool queries Wikipedia, an oracle-assisted multi-article retriever.
type Tool struct {
	oracle oracle.Oracle
	http   *http.Client
	lang   string
}

func New(o oracle.Oracle) toolkit.Tool {
	t := &Tool{oracle: o, http: &http.Client{Timeout: 30 * time.Second}, lang: "en"}
	return toolkit.NewSimpleTool("wikipedia_search", description, schema, t.call)
}

func (t *Tool) call(ctx context.Context, input string) (string, error) {
	var a queryArgs
	if err := json.Unmarshal([]byte(input), &a); err != nil {
		return "", fmt.Errorf("wikipedia: decoding arguments: %w", err)
	}

	results, err := t.queryWikipedia(ctx, a)
	if err != nil {
		return "", err
	}
	out, err := json.Marshal(results)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// queryWikipedia implements the three-article, first-result-guaranteed
// retrieval pipeline.
func (t *Tool) queryWikipedia(ctx context.Context, a queryArgs) (map[string]string, error) {
	searchResults, order, err := t.search(ctx, a.ArticleName, 10)
	if err != nil {
		return nil, err
	}
	if len(searchResults) == 0 {
		return map[string]string{}, nil
	}

	firstArticle := order[0]
	chosen, err := t.askWhichArticlesToExplore(ctx, searchResults, a.InformationToRetrieve)
	if err != nil {
		return nil, err
	}

	if !contains(chosen, firstArticle) {
		chosen = append([]string{firstArticle}, chosen...)
	}
	if len(chosen) > 3 {
		chosen = chosen[:3]
	}

	result := map[string]string{}
	for _, title := range chosen {
		content, err := t.getPageContent(ctx, title, a.InformationToRetrieve, a.InitialProblem, a.Date)
		if err != nil {
			continue
		}
		result[title] = content
	}
	return result, nil
}

func contains(list []string, v string) bool {
	for _, e := range list {
		if e == v {
			return true
		}
	}
	return false
}

type searchResponse struct {
	Query struct {
		Search []struct {
			Title string `json:"title"`
		} `json:"search"`
	} `json:"query"`
}

// search calls the MediaWiki REST API's list=search action and fetches a
// short summary (via the extracts prop) for each title, mirroring
// wikipedia.search + wikipedia.summary.
func (t *Tool) search(ctx context.Context, query string, topK int) (map[string]string, []string, error) {
	apiURL := fmt.Sprintf("https://%s.wikipedia.org/w/api.php?action=query&list=search&srsearch=%s&srlimit=%d&format=json",
		t.lang, url.QueryEscape(query), topK)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, nil, err
	}
	resp, err := t.http.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("wikipedia: search request: %w", err)
	}
	defer resp.Body.Close()

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, nil, fmt.Errorf("wikipedia: decoding search response: %w", err)
	}

	summaries := map[string]string{}
	var order []string
	for _, r := range parsed.Query.Search {
		summary, err := t.summary(ctx, r.Title)
		if err != nil {
			continue
		}
		summaries[r.Title] = summary
		order = append(order, r.Title)
	}
	return summaries, order, nil
}

type summaryResponse struct {
	Extract string `json:"extract"`
}

func (t *Tool) summary(ctx context.Context, title string) (string, error) {
	apiURL := fmt.Sprintf("https://%s.wikipedia.org/api/rest_v1/page/summary/%s", t.lang, url.PathEscape(title))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := t.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("wikipedia: no summary for %q", title)
	}
	var s summaryResponse
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return "", err
	}
	return s.Extract, nil
}

var chosenArticlesSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"chosen_articles": map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "List of chosen article titles"},
	},
	"required": []string{"chosen_articles"},
}

type chosenArticles struct {
	ChosenArticles []string `json:"chosen_articles"`
}

func (t *Tool) askWhichArticlesToExplore(ctx context.Context, searchResults map[string]string, query string) ([]string, error) {
	if len(searchResults) == 0 {
		return nil, nil
	}
	prompt := fmt.Sprintf("Given these Wikipedia articles and summaries:\n%v\n\nWhich articles are most relevant to the query %q? Return their exact titles.", searchResults, query)
	var out chosenArticles
	if err := t.oracle.InvokeStructured(ctx, "WikipediaTool.ask_LLM_which_article_to_explore", prompt, chosenArticlesSchema, &out); err != nil {
		return nil, err
	}
	return out.ChosenArticles, nil
}

var relevantInfoSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"relevant_information": map[string]any{"type": "string", "description": "The most relevant information inside the article relative to the query"},
	},
	"required": []string{"relevant_information"},
}

type relevantInformation struct {
	RelevantInformation string `json:"relevant_information"`
}

// getPageContent fetches the article body (current revision, or the latest
// revision strictly before date) plus its top-level tables, and asks the
// oracle to extract the information relevant to query.
func (t *Tool) getPageContent(ctx context.Context, pageTitle, query, originalQuery, date string) (string, error) {
	var pageText, tableData string
	var err error

	if date == "cur" || date == "" {
		pageText, tableData, err = t.fetchCurrentRevision(ctx, pageTitle)
	} else {
		pageText, tableData, err = t.fetchHistoricalRevision(ctx, pageTitle, date)
	}
	if err != nil {
		return "", err
	}

	prompt := fmt.Sprintf("Full page text:\n%s\n\nTables:\n%s\n\nSpecific query: %s\nOriginal problem: %s\n\nExtract the most relevant information.",
		pageText, tableData, query, originalQuery)

	var out relevantInformation
	if err := t.oracle.InvokeStructured(ctx, "WikipediaTool.get_page_content", prompt, relevantInfoSchema, &out); err != nil {
		return "", err
	}
	return out.RelevantInformation, nil
}

type extractResponse struct {
	Query struct {
		Pages map[string]struct {
			Extract string `json:"extract"`
		} `json:"pages"`
	} `json:"query"`
}

func (t *Tool) fetchCurrentRevision(ctx context.Context, pageTitle string) (string, string, error) {
	apiURL := fmt.Sprintf("https://%s.wikipedia.org/w/api.php?action=query&prop=extracts&explaintext=1&titles=%s&format=json",
		t.lang, url.QueryEscape(pageTitle))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return "", "", err
	}
	resp, err := t.http.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("wikipedia: fetching %q: %w", pageTitle, err)
	}
	defer resp.Body.Close()

	var parsed extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", "", err
	}
	var text string
	for _, p := range parsed.Query.Pages {
		text = p.Extract
		break
	}

	tableData, _ := t.fetchAndParseTables(ctx, pageTitle, 0)
	return text, tableData, nil
}

// fetchHistoricalRevision finds the most recent revision strictly before
// date (mm-dd-yyyy) via the MediaWiki revisions API, the REST equivalent of
// pywikibot's getVersionHistoryTable/_get_revisions_id/getOldVersion chain.
func (t *Tool) fetchHistoricalRevision(ctx context.Context, pageTitle, date string) (string, string, error) {
	cutoff, err := time.Parse("01-02-2006", date)
	if err != nil {
		return t.fetchCurrentRevision(ctx, pageTitle)
	}

	revID, err := t.findRevisionBefore(ctx, pageTitle, cutoff)
	if err != nil || revID == 0 {
		return t.fetchCurrentRevision(ctx, pageTitle)
	}

	apiURL := fmt.Sprintf("https://%s.wikipedia.org/w/api.php?action=parse&oldid=%d&prop=wikitext&format=json", t.lang, revID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return "", "", err
	}
	resp, err := t.http.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	var parsed struct {
		Parse struct {
			Wikitext struct {
				Content string `json:"*"`
			} `json:"wikitext"`
		} `json:"parse"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", "", err
	}

	tableData, _ := t.fetchAndParseTables(ctx, pageTitle, revID)
	return cleanWikitext(parsed.Parse.Wikitext.Content), tableData, nil
}

type revisionsResponse struct {
	Query struct {
		Pages map[string]struct {
			Revisions []struct {
				RevID   int    `json:"revid"`
				Timestamp string `json:"timestamp"`
			} `json:"revisions"`
		} `json:"pages"`
	} `json:"query"`
}

func (t *Tool) findRevisionBefore(ctx context.Context, pageTitle string, cutoff time.Time) (int, error) {
	apiURL := fmt.Sprintf("https://%s.wikipedia.org/w/api.php?action=query&prop=revisions&titles=%s&rvstart=%s&rvdir=older&rvlimit=50&rvprop=ids|timestamp&format=json",
		t.lang, url.QueryEscape(pageTitle), url.QueryEscape(cutoff.UTC().Format(time.RFC3339)))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return 0, err
	}
	resp, err := t.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	var parsed revisionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, err
	}

	best := 0
	var bestTime time.Time
	for _, page := range parsed.Query.Pages {
		for _, rev := range page.Revisions {
			ts, err := time.Parse(time.RFC3339, rev.Timestamp)
			if err != nil || !ts.Before(cutoff) {
				continue
			}
			if best == 0 || ts.After(bestTime) {
				best = rev.RevID
				bestTime = ts
			}
		}
	}
	return best, nil
}

// cleanWikitext strips [[File:...]] image links and [[...]] link markup,
// mirroring _clean_parse's regex-based cleanup, and truncates the text at
// the first "==External links==" or "==References==" heading (wiki tables
// are handled separately by fetchAndParseTables).
func cleanWikitext(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if strings.HasPrefix(line, "[[File:") {
			lines[i] = "''" + strings.Trim(line, "[]") + "''"
		}
	}
	text = strings.Join(lines, "\n")

	var b strings.Builder
	for {
		start := strings.Index(text, "[[")
		if start == -1 {
			b.WriteString(text)
			break
		}
		end := strings.Index(text[start:], "]]")
		if end == -1 {
			b.WriteString(text)
			break
		}
		end += start
		b.WriteString(text[:start])
		inner := text[start+2 : end]
		parts := strings.Split(inner, "|")
		b.WriteString(parts[len(parts)-1])
		text = text[end+2:]
	}
	cleaned := b.String()

	for _, marker := range []string{"==External links==", "==References=="} {
		if idx := strings.Index(cleaned, marker); idx != -1 {
			cleaned = cleaned[:idx]
		}
	}
	return cleaned
}

// fetchAndParseTables renders a page (by title, or a specific oldid) and
// extracts its top-level HTML tables as compact text, replacing
// _parse_table's BeautifulSoup/pandas pipeline with goquery.
func (t *Tool) fetchAndParseTables(ctx context.Context, pageTitle string, oldid int) (string, error) {
	apiURL := fmt.Sprintf("https://%s.wikipedia.org/w/index.php?title=%s", t.lang, url.QueryEscape(pageTitle))
	if oldid != 0 {
		apiURL += "&oldid=" + strconv.Itoa(oldid)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := t.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", err
	}

	content := doc.Find("#mw-content-text")
	var b strings.Builder
	content.Find("table").Each(func(i int, table *goquery.Selection) {
		table.Find("table").Remove()
		b.WriteString("<table>\n")
		table.Find("tr").Each(func(j int, row *goquery.Selection) {
			var cells []string
			row.Find("th,td").Each(func(k int, cell *goquery.Selection) {
				cells = append(cells, strings.TrimSpace(cell.Text()))
			})
			b.WriteString(strings.Join(cells, " | "))
			b.WriteString("\n")
		})
		b.WriteString("</table>\n\n")
	})
	return b.String(), nil
}
