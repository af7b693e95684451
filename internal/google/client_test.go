package google_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/goresearch/internal/cache"
	"github.com/jonesrussell/goresearch/internal/errs"
	"github.com/jonesrussell/goresearch/internal/google"
	"github.com/jonesrussell/goresearch/internal/logger"
)

func newClient(t *testing.T, baseURL string) *google.Client {
	t.Helper()
	client, err := google.NewClient(google.Config{
		APIKey:   "test-key",
		EngineID: "test-cx",
		BaseURL:  baseURL,
	}, nil, cache.New(cache.Config{}, logger.NewNop()), logger.NewNop(), nil)
	require.NoError(t, err)
	return client
}

// itemsResponse builds a CSE payload with n items starting at rank start.
func itemsResponse(start, n int) string {
	items := make([]map[string]string, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, map[string]string{
			"link":    fmt.Sprintf("https://example.com/%d", start+i),
			"title":   fmt.Sprintf("Result %d", start+i),
			"snippet": "snippet",
		})
	}
	payload, _ := json.Marshal(map[string]any{"items": items})
	return string(payload)
}

func TestNewClient_RequiresCredentials(t *testing.T) {
	t.Parallel()

	_, err := google.NewClient(google.Config{EngineID: "cx"}, nil, nil, logger.NewNop(), nil)
	var cfgErr *errs.ConfigError
	require.ErrorAs(t, err, &cfgErr)

	_, err = google.NewClient(google.Config{APIKey: "key"}, nil, nil, logger.NewNop(), nil)
	require.ErrorAs(t, err, &cfgErr)
}

func TestSearch_SinglePage(t *testing.T) {
	t.Parallel()

	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		assert.Equal(t, "test-cx", r.URL.Query().Get("cx"))
		assert.Equal(t, "golang", r.URL.Query().Get("q"))
		assert.Equal(t, "1", r.URL.Query().Get("start"))
		assert.Equal(t, "7", r.URL.Query().Get("num"))
		fmt.Fprint(w, itemsResponse(1, 7))
	}))
	defer server.Close()

	client := newClient(t, server.URL)
	results, err := client.Search(context.Background(), "golang", google.SearchOptions{MaxResults: 7})

	require.NoError(t, err)
	assert.EqualValues(t, 1, requests.Load())
	require.Len(t, results, 7)
	assert.Equal(t, 1, results[0].Rank)
	assert.Equal(t, 7, results[6].Rank)
	assert.Equal(t, "google_cse", results[0].Source)
}

func TestSearch_PaginatesBeyondPageSize(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var starts []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := r.URL.Query().Get("start")
		mu.Lock()
		starts = append(starts, start)
		mu.Unlock()

		startN, _ := strconv.Atoi(start)
		num, _ := strconv.Atoi(r.URL.Query().Get("num"))
		fmt.Fprint(w, itemsResponse(startN, num))
	}))
	defer server.Close()

	client := newClient(t, server.URL)
	results, err := client.Search(context.Background(), "golang", google.SearchOptions{MaxResults: 15})

	require.NoError(t, err)
	require.Len(t, results, 15)
	assert.ElementsMatch(t, []string{"1", "11"}, starts)

	// Page order is preserved regardless of response arrival order.
	assert.Equal(t, "https://example.com/1", results[0].URL)
	assert.Equal(t, "https://example.com/11", results[10].URL)
	for i, r := range results {
		assert.Equal(t, i+1, r.Rank)
	}
}

func TestSearch_RetriesTransientFailure(t *testing.T) {
	t.Parallel()

	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, itemsResponse(1, 3))
	}))
	defer server.Close()

	client := newClient(t, server.URL)
	results, err := client.Search(context.Background(), "golang", google.SearchOptions{MaxResults: 3})

	require.NoError(t, err)
	assert.EqualValues(t, 2, requests.Load())
	assert.Len(t, results, 3)
}

func TestSearch_AllPagesFailingReturnsEmptyWithoutError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newClient(t, server.URL)
	results, err := client.Search(context.Background(), "golang", google.SearchOptions{MaxResults: 5})

	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_ServesSecondCallFromCache(t *testing.T) {
	t.Parallel()

	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		fmt.Fprint(w, itemsResponse(1, 4))
	}))
	defer server.Close()

	client := newClient(t, server.URL)
	ctx := context.Background()

	first, err := client.Search(ctx, "golang", google.SearchOptions{MaxResults: 4})
	require.NoError(t, err)

	second, err := client.Search(ctx, "golang", google.SearchOptions{MaxResults: 4})
	require.NoError(t, err)

	assert.EqualValues(t, 1, requests.Load())
	assert.Equal(t, first, second)
}

func TestSearch_SkipsItemsWithoutLink(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"items":[{"link":"","title":"ghost"},{"link":"https://example.com/a","title":"real"}]}`)
	}))
	defer server.Close()

	client := newClient(t, server.URL)
	results, err := client.Search(context.Background(), "golang", google.SearchOptions{MaxResults: 10})

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "https://example.com/a", results[0].URL)
}

func TestSearch_ZeroMaxResults(t *testing.T) {
	t.Parallel()

	client := newClient(t, "http://127.0.0.1:1")
	results, err := client.Search(context.Background(), "golang", google.SearchOptions{})

	require.NoError(t, err)
	assert.Empty(t, results)
}
