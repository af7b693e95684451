// Package google provides a client for the Google Custom Search JSON API.
//
// The upstream API returns at most 10 results per call, so searches above
// that are split into concurrent page requests and flattened in page order.
// Pages are independently cached and retried; a page that fails after
// retries only degrades the result set, it never fails the whole search.
package google

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jonesrussell/goresearch/internal/cache"
	"github.com/jonesrussell/goresearch/internal/errs"
	"github.com/jonesrussell/goresearch/internal/httpclient"
	"github.com/jonesrussell/goresearch/internal/logger"
	"github.com/jonesrussell/goresearch/internal/retry"
	"github.com/jonesrussell/goresearch/internal/telemetry"
)

const (
	// DefaultBaseURL is the official Custom Search JSON API endpoint.
	DefaultBaseURL = "https://customsearch.googleapis.com/customsearch/v1"

	// SourceTag identifies results produced by this client.
	SourceTag = "google_cse"

	// pageSize is the maximum number of results the API returns per request.
	pageSize = 10

	// cacheTTL is how long individual page responses are cached.
	cacheTTL = time.Hour

	// defaultSafe is the default safe-search setting.
	defaultSafe = "off"
)

// Config holds Google Custom Search client configuration.
type Config struct {
	APIKey   string
	EngineID string
	BaseURL  string
}

// Result is a single search result. Rank is the 1-based position within the
// full paginated result set and is stable across pages.
type Result struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Rank        int    `json:"rank"`
	Source      string `json:"source"`
}

// SearchOptions tunes a single search call.
type SearchOptions struct {
	// MaxResults limits the flattened result set. Zero or negative returns nothing.
	MaxResults int
	// Safe is the safe-search setting ("off", "active"). Defaults to "off".
	Safe string
	// Language optionally restricts results, e.g. "en" becomes lr=lang_en.
	Language string
}

// Client is a cached, retried Google Custom Search client.
type Client struct {
	cfg      Config
	http     *http.Client
	cache    *cache.Cache
	log      logger.Logger
	metrics  *telemetry.Metrics
	retryCfg retry.Config
}

// NewClient creates a Google Custom Search client.
// Missing credentials are a configuration error, fatal at construction.
func NewClient(
	cfg Config,
	httpClient *http.Client,
	store *cache.Cache,
	log logger.Logger,
	metrics *telemetry.Metrics,
) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errs.NewConfigError("google.api_key", "GOOGLE_CSE_API_KEY must be set")
	}
	if cfg.EngineID == "" {
		return nil, errs.NewConfigError("google.engine_id", "GOOGLE_CSE_ID must be set")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = httpclient.NewDefault()
	}

	return &Client{
		cfg:      cfg,
		http:     httpClient,
		cache:    store,
		log:      log,
		metrics:  metrics,
		retryCfg: retry.DefaultConfig(),
	}, nil
}

// Search returns up to opts.MaxResults results in page order.
//
// Page requests run concurrently. A page that fails after retries is logged
// and dropped; if every page fails the call returns an empty slice with a nil
// error, since "no results found" and "all pages errored" are deliberately
// not distinguished at this layer.
func (c *Client) Search(ctx context.Context, query string, opts SearchOptions) ([]Result, error) {
	if opts.MaxResults <= 0 {
		return nil, nil
	}
	if opts.Safe == "" {
		opts.Safe = defaultSafe
	}

	type page struct {
		start int
		num   int
	}

	var pages []page
	remaining := opts.MaxResults
	start := 1
	for remaining > 0 {
		num := remaining
		if num > pageSize {
			num = pageSize
		}
		pages = append(pages, page{start: start, num: num})
		remaining -= num
		start += num
	}

	perPage := make([][]Result, len(pages))

	var wg sync.WaitGroup
	for i, p := range pages {
		wg.Add(1)
		go func(idx int, p page) {
			defer wg.Done()

			results, err := c.searchPage(ctx, query, p.start, p.num, opts.Safe, opts.Language)
			if err != nil {
				c.log.Warn("search page failed, dropping its results",
					logger.String("query", query),
					logger.Int("start", p.start),
					logger.Error(err),
				)
				c.metrics.ObserveSearchPage(SourceTag, "error")
				return
			}
			perPage[idx] = results
		}(i, p)
	}
	wg.Wait()

	var flat []Result
	for _, results := range perPage {
		flat = append(flat, results...)
	}
	if len(flat) > opts.MaxResults {
		flat = flat[:opts.MaxResults]
	}
	for i := range flat {
		flat[i].Rank = i + 1
	}

	c.log.Debug("search complete",
		logger.String("query", query),
		logger.Int("pages", len(pages)),
		logger.Int("results", len(flat)),
	)

	return flat, nil
}

// searchPage fetches one result page, consulting the cache first.
func (c *Client) searchPage(
	ctx context.Context,
	query string,
	start, num int,
	safe, lang string,
) ([]Result, error) {
	key := cacheKey(query, start, num, safe, lang)

	if cached, ok, err := c.cache.Get(ctx, key); err != nil {
		c.log.Debug("cache read failed, fetching page", logger.Error(err))
		c.metrics.ObserveCache("error")
	} else if ok {
		var results []Result
		if unmarshalErr := json.Unmarshal([]byte(cached), &results); unmarshalErr == nil {
			c.metrics.ObserveCache("hit")
			c.metrics.ObserveSearchPage(SourceTag, "cached")
			return results, nil
		}
	} else {
		c.metrics.ObserveCache("miss")
	}

	var results []Result
	attempt := 0
	err := retry.Do(ctx, c.retryCfg, func() error {
		attempt++
		fetched, fetchErr := c.fetchPage(ctx, query, start, num, safe, lang)
		if fetchErr != nil {
			return fetchErr
		}
		results = fetched
		return nil
	})
	if err != nil {
		c.log.Warn("search page exhausted retries",
			logger.Int("attempts", attempt),
			logger.Int("start", start),
			logger.Error(err),
		)
		return nil, err
	}

	if payload, marshalErr := json.Marshal(results); marshalErr == nil {
		if setErr := c.cache.Set(ctx, key, string(payload), cacheTTL); setErr != nil {
			c.log.Debug("cache write failed", logger.Error(setErr))
		} else {
			c.metrics.ObserveCache("set")
		}
	}

	c.metrics.ObserveSearchPage(SourceTag, "ok")
	return results, nil
}

// fetchPage performs a single HTTP request against the API.
func (c *Client) fetchPage(
	ctx context.Context,
	query string,
	start, num int,
	safe, lang string,
) ([]Result, error) {
	params := url.Values{}
	params.Set("key", c.cfg.APIKey)
	params.Set("cx", c.cfg.EngineID)
	params.Set("q", query)
	params.Set("start", strconv.Itoa(start))
	params.Set("num", strconv.Itoa(num))
	params.Set("safe", safe)
	if lang != "" {
		params.Set("lr", "lang_"+lang)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errs.Transient("google search", 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, errs.Transient("google search", resp.StatusCode,
			fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	var payload struct {
		Items []struct {
			Link    string `json:"link"`
			Title   string `json:"title"`
			Snippet string `json:"snippet"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	results := make([]Result, 0, len(payload.Items))
	for _, item := range payload.Items {
		if item.Link == "" {
			continue
		}
		results = append(results, Result{
			URL:         item.Link,
			Title:       item.Title,
			Description: item.Snippet,
			Source:      SourceTag,
		})
	}

	return results, nil
}

// cacheKey derives a stable cache key from the page request parameters.
func cacheKey(parts ...any) string {
	strs := make([]string, len(parts))
	for i, p := range parts {
		strs[i] = fmt.Sprint(p)
	}
	sum := sha256.Sum256([]byte(strings.Join(strs, "|")))
	return "google_cse:" + hex.EncodeToString(sum[:])
}
