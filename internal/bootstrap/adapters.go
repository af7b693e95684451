package bootstrap

import (
	"context"

	"github.com/jonesrussell/goresearch/internal/fetch"
	"github.com/jonesrussell/goresearch/internal/google"
	"github.com/jonesrussell/goresearch/internal/ingest"
	"github.com/jonesrussell/goresearch/internal/tavily"
)

// === googleSearcherAdapter ===

// googleSearcherAdapter bridges ingest.Searcher to the Google Custom Search
// client. The freshness hint has no Google equivalent and is ignored.
type googleSearcherAdapter struct {
	client *google.Client
}

func (a *googleSearcherAdapter) Search(ctx context.Context, topic string, maxResults int, _ string) ([]ingest.Link, error) {
	results, err := a.client.Search(ctx, topic, google.SearchOptions{MaxResults: maxResults})
	if err != nil {
		return nil, err
	}

	links := make([]ingest.Link, 0, len(results))
	for _, r := range results {
		links = append(links, ingest.Link{URL: r.URL, Title: r.Title})
	}
	return links, nil
}

// === tavilySearcherAdapter ===

// tavilySearcherAdapter bridges ingest.Searcher to Tavily web search, used
// when Google credentials are absent.
type tavilySearcherAdapter struct {
	client *tavily.Client
}

func (a *tavilySearcherAdapter) Search(ctx context.Context, topic string, maxResults int, freshness string) ([]ingest.Link, error) {
	results, err := a.client.Search(ctx, topic, tavily.SearchOptions{
		MaxResults: maxResults,
		Freshness:  freshness,
	})
	if err != nil {
		return nil, err
	}

	links := make([]ingest.Link, 0, len(results))
	for _, r := range results {
		links = append(links, ingest.Link{URL: r.URL, Title: r.Title})
	}
	return links, nil
}

// === tavilyExtractorAdapter ===

// tavilyExtractorAdapter bridges ingest.Extractor to Tavily page extraction.
type tavilyExtractorAdapter struct {
	client *tavily.Client
}

func (a *tavilyExtractorAdapter) Extract(ctx context.Context, url string) (*ingest.Extracted, error) {
	result, err := a.client.Extract(ctx, url, tavily.DefaultTextFormat)
	if err != nil {
		return nil, err
	}
	return &ingest.Extracted{Title: result.Title, Text: result.Text}, nil
}

// === fetchExtractorAdapter ===

// fetchExtractorAdapter bridges ingest.Extractor to the local fetcher.
type fetchExtractorAdapter struct {
	fetcher *fetch.Fetcher
}

func (a *fetchExtractorAdapter) Extract(ctx context.Context, url string) (*ingest.Extracted, error) {
	result, err := a.fetcher.Extract(ctx, url)
	if err != nil {
		return nil, err
	}
	return &ingest.Extracted{Title: result.Title, Text: result.Text}, nil
}
