// Package fetch provides direct page fetching and local text extraction.
//
// It serves as the fallback when the extract provider fails for a URL: the
// page is fetched directly and its article text recovered locally, first via
// readability and then via a goquery heuristic pass.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/jonesrussell/goresearch/internal/errs"
	"github.com/jonesrussell/goresearch/internal/httpclient"
	"github.com/jonesrussell/goresearch/internal/logger"
)

// maxResponseBodyBytes limits the size of fetched page responses.
const maxResponseBodyBytes = 10 * 1024 * 1024 // 10 MB

// ErrNoContent is returned when a page yields no extractable text.
var ErrNoContent = errors.New("no extractable text content")

// Extracted is the locally extracted content of one page.
type Extracted struct {
	URL   string
	Title string
	Text  string
}

// Fetcher fetches pages directly and extracts their text content.
type Fetcher struct {
	http      *http.Client
	userAgent string
	log       logger.Logger
}

// New creates a Fetcher.
func New(httpClient *http.Client, userAgent string, log logger.Logger) *Fetcher {
	if httpClient == nil {
		httpClient = httpclient.NewDefault()
	}
	return &Fetcher{
		http:      httpClient,
		userAgent: userAgent,
		log:       log,
	}
}

// Extract fetches pageURL and extracts its title and body text.
func (f *Fetcher) Extract(ctx context.Context, pageURL string) (*Extracted, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, errs.Transient("fetch page", 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		statusErr := fmt.Errorf("unexpected status %d", resp.StatusCode)
		if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
			return nil, errs.Transient("fetch page", resp.StatusCode, statusErr)
		}
		return nil, statusErr
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))
	if err != nil {
		return nil, errs.Transient("read page body", 0, err)
	}

	content := f.extract(parsed, body)
	if strings.TrimSpace(content.Text) == "" {
		return nil, ErrNoContent
	}
	content.URL = pageURL
	return content, nil
}

// extract recovers title and body text from raw HTML.
// readability handles article-shaped pages well; the goquery pass covers
// pages it rejects or strips to nothing.
func (f *Fetcher) extract(pageURL *url.URL, body []byte) *Extracted {
	parser := readability.NewParser()
	article, err := parser.Parse(strings.NewReader(string(body)), pageURL)
	if err == nil && strings.TrimSpace(article.TextContent) != "" {
		return &Extracted{
			Title: strings.TrimSpace(article.Title),
			Text:  strings.TrimSpace(article.TextContent),
		}
	}
	if err != nil {
		f.log.Debug("readability parse failed, using heuristic extraction",
			logger.String("url", pageURL.String()),
			logger.Error(err),
		)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return &Extracted{}
	}

	return &Extracted{
		Title: extractPageTitle(doc),
		Text:  extractBodyText(doc),
	}
}

// extractPageTitle extracts the page title, preferring <title> then og:title fallback.
func extractPageTitle(doc *goquery.Document) string {
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title
	}

	if ogTitle, exists := doc.Find("meta[property='og:title']").Attr("content"); exists {
		return strings.TrimSpace(ogTitle)
	}

	return ""
}

// nonContentSelectors lists elements to strip before extracting body text.
const nonContentSelectors = "script, style, nav, header, footer"

// extractBodyText extracts the main body text from the document.
// Prefers <article> content; falls back to <body> with non-content elements stripped.
func extractBodyText(doc *goquery.Document) string {
	article := doc.Find("article").First()
	if article.Length() > 0 {
		article.Find(nonContentSelectors).Remove()
		return strings.TrimSpace(article.Text())
	}

	body := doc.Find("body").First()
	if body.Length() > 0 {
		body.Find(nonContentSelectors).Remove()
		return strings.TrimSpace(body.Text())
	}

	return ""
}
