// Package tavily provides a client for the Tavily search and extract APIs.
//
// Unlike the paginated Google client, a search here is a single provider
// call: after retry exhaustion the error propagates as a hard failure, since
// there is no partial-page concept to degrade into. Extraction failures also
// propagate; the orchestrator decides that a single URL's failure is
// non-fatal to the overall ingestion.
package tavily

import (
	"bytes"
	"context"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jonesrussell/goresearch/internal/breaker"
	"github.com/jonesrussell/goresearch/internal/cache"
	"github.com/jonesrussell/goresearch/internal/errs"
	"github.com/jonesrussell/goresearch/internal/httpclient"
	"github.com/jonesrussell/goresearch/internal/logger"
	"github.com/jonesrussell/goresearch/internal/retry"
	"github.com/jonesrussell/goresearch/internal/telemetry"
)

const (
	// DefaultBaseURL is the official Tavily API endpoint.
	DefaultBaseURL = "https://api.tavily.com"

	// SourceTag identifies results produced by this client.
	SourceTag = "tavily"

	// searchTTL is how long whole search responses are cached.
	searchTTL = 6 * time.Hour

	// extractTTL is how long extraction results are cached per URL and format.
	extractTTL = 6 * time.Hour

	// DefaultTextFormat is the default extraction format.
	DefaultTextFormat = "text"
)

// Config holds Tavily client configuration.
type Config struct {
	APIKey  string
	BaseURL string
}

// SearchResult is a single web search result.
type SearchResult struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// ExtractResult is the extracted content of one page.
type ExtractResult struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

// SearchOptions tunes a single search call.
type SearchOptions struct {
	// MaxResults limits the result count. Defaults to 10.
	MaxResults int
	// Freshness optionally narrows results to a recency window, e.g. "month".
	Freshness string
}

// Client is a cached, retried Tavily API client. Extraction calls pass
// through a circuit breaker so a dead provider fails fast during fan-out
// instead of absorbing a full retry budget per URL.
type Client struct {
	cfg      Config
	http     *http.Client
	cache    *cache.Cache
	log      logger.Logger
	metrics  *telemetry.Metrics
	retryCfg retry.Config
	breaker  *breaker.Breaker
}

// NewClient creates a Tavily client.
// A missing API key is a configuration error, fatal at construction.
func NewClient(
	cfg Config,
	httpClient *http.Client,
	store *cache.Cache,
	log logger.Logger,
	metrics *telemetry.Metrics,
) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errs.NewConfigError("tavily.api_key", "TAVILY_API_KEY must be set")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if httpClient == nil {
		httpClient = httpclient.NewDefault()
	}

	b := breaker.New(breaker.Config{
		OnStateChange: func(from, to breaker.State) {
			log.Warn("extract circuit state changed",
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
		},
	})

	return &Client{
		cfg:      cfg,
		http:     httpClient,
		cache:    store,
		log:      log,
		metrics:  metrics,
		retryCfg: retry.DefaultConfig(),
		breaker:  b,
	}, nil
}

// Search runs a web search. The whole response is cached; on transient
// failure the call is retried with backoff, and after exhaustion the last
// error propagates to the caller as a hard failure.
func (c *Client) Search(ctx context.Context, query string, opts SearchOptions) ([]SearchResult, error) {
	if opts.MaxResults <= 0 {
		opts.MaxResults = 10
	}

	key := searchCacheKey(query, opts.MaxResults, opts.Freshness)

	if cached, ok, err := c.cache.Get(ctx, key); err != nil {
		c.log.Debug("cache read failed, calling provider", logger.Error(err))
		c.metrics.ObserveCache("error")
	} else if ok {
		var results []SearchResult
		if unmarshalErr := json.Unmarshal([]byte(cached), &results); unmarshalErr == nil {
			c.log.Debug("search cache hit", logger.String("query", query))
			c.metrics.ObserveCache("hit")
			return results, nil
		}
	} else {
		c.metrics.ObserveCache("miss")
	}

	var results []SearchResult
	attempt := 0
	err := retry.Do(ctx, c.retryCfg, func() error {
		attempt++
		fetched, fetchErr := c.doSearch(ctx, query, opts)
		if fetchErr != nil {
			return fetchErr
		}
		results = fetched
		return nil
	})
	if err != nil {
		c.log.Error("search failed",
			logger.String("query", query),
			logger.Int("attempts", attempt),
			logger.Error(err),
		)
		c.metrics.ObserveSearchPage(SourceTag, "error")
		return nil, err
	}

	if payload, marshalErr := json.Marshal(results); marshalErr == nil {
		if setErr := c.cache.Set(ctx, key, string(payload), searchTTL); setErr != nil {
			c.log.Debug("cache write failed", logger.Error(setErr))
		} else {
			c.metrics.ObserveCache("set")
		}
	}

	c.metrics.ObserveSearchPage(SourceTag, "ok")
	return results, nil
}

// Extract fetches the full text content for a URL. Results are cached per
// URL and format; persistent failure propagates to the caller.
func (c *Client) Extract(ctx context.Context, pageURL, textFormat string) (*ExtractResult, error) {
	if textFormat == "" {
		textFormat = DefaultTextFormat
	}

	key := extractCacheKey(pageURL, textFormat)

	if cached, ok, err := c.cache.Get(ctx, key); err != nil {
		c.log.Debug("cache read failed, calling provider", logger.Error(err))
		c.metrics.ObserveCache("error")
	} else if ok {
		var result ExtractResult
		if unmarshalErr := json.Unmarshal([]byte(cached), &result); unmarshalErr == nil {
			c.metrics.ObserveCache("hit")
			c.metrics.ObserveExtract("cached")
			return &result, nil
		}
	} else {
		c.metrics.ObserveCache("miss")
	}

	var result ExtractResult
	err := c.breaker.Execute(ctx, func() error {
		return retry.Do(ctx, c.retryCfg, func() error {
			return c.doExtract(ctx, pageURL, textFormat, &result)
		})
	})
	if err != nil {
		c.log.Warn("extract failed",
			logger.String("url", pageURL),
			logger.Error(err),
		)
		c.metrics.ObserveExtract("error")
		return nil, err
	}

	if payload, marshalErr := json.Marshal(result); marshalErr == nil {
		if setErr := c.cache.Set(ctx, key, string(payload), extractTTL); setErr != nil {
			c.log.Debug("cache write failed", logger.Error(setErr))
		} else {
			c.metrics.ObserveCache("set")
		}
	}

	c.metrics.ObserveExtract("ok")
	return &result, nil
}

// doSearch performs a single search request.
func (c *Client) doSearch(ctx context.Context, query string, opts SearchOptions) ([]SearchResult, error) {
	reqBody := map[string]any{
		"api_key":     c.cfg.APIKey,
		"query":       query,
		"max_results": opts.MaxResults,
	}
	if opts.Freshness != "" {
		reqBody["freshness"] = opts.Freshness
	}

	raw, err := c.post(ctx, "/search", reqBody)
	if err != nil {
		return nil, err
	}

	// The provider answers either {"results": [...]} or a bare array.
	var wrapped struct {
		Results []SearchResult `json:"results"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Results != nil {
		return wrapped.Results, nil
	}

	var bare []SearchResult
	if err := json.Unmarshal(raw, &bare); err == nil {
		return bare, nil
	}

	return nil, errors.New("unexpected search response format")
}

// doExtract performs a single extract request.
func (c *Client) doExtract(ctx context.Context, pageURL, textFormat string, out *ExtractResult) error {
	reqBody := map[string]any{
		"api_key":     c.cfg.APIKey,
		"url":         pageURL,
		"text_format": textFormat,
	}

	raw, err := c.post(ctx, "/extract", reqBody)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode extract response: %w", err)
	}
	if out.URL == "" {
		out.URL = pageURL
	}

	return nil
}

// post issues a JSON POST and returns the response body.
// 5xx and 429 responses are transient; other non-200 responses are not retried.
func (c *Client) post(ctx context.Context, path string, body map[string]any) (json.RawMessage, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errs.Transient("tavily "+path, 0, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 10*1024*1024))
	if err != nil {
		return nil, errs.Transient("tavily "+path, resp.StatusCode, err)
	}

	if resp.StatusCode == http.StatusOK {
		return raw, nil
	}

	statusErr := fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
		return nil, errs.Transient("tavily "+path, resp.StatusCode, statusErr)
	}
	return nil, fmt.Errorf("tavily %s: %w", path, statusErr)
}

// searchCacheKey derives a stable, parameter-order-independent cache key.
func searchCacheKey(query string, maxResults int, freshness string) string {
	canonical := fmt.Sprintf(`{"endpoint":"search","freshness":%q,"max_results":%d,"query":%q}`,
		freshness, maxResults, query)
	sum := sha256.Sum256([]byte(canonical))
	return "tavily:" + hex.EncodeToString(sum[:])
}

// extractCacheKey derives the per-URL extraction cache key.
func extractCacheKey(pageURL, textFormat string) string {
	sum := sha1.Sum([]byte(pageURL))
	return "tavily:extract:" + hex.EncodeToString(sum[:]) + ":" + textFormat
}
