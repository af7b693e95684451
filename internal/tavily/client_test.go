package tavily_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/goresearch/internal/cache"
	"github.com/jonesrussell/goresearch/internal/errs"
	"github.com/jonesrussell/goresearch/internal/logger"
	"github.com/jonesrussell/goresearch/internal/tavily"
)

func newClient(t *testing.T, baseURL string) *tavily.Client {
	t.Helper()
	client, err := tavily.NewClient(tavily.Config{
		APIKey:  "test-key",
		BaseURL: baseURL,
	}, nil, cache.New(cache.Config{}, logger.NewNop()), logger.NewNop(), nil)
	require.NoError(t, err)
	return client
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	t.Parallel()

	_, err := tavily.NewClient(tavily.Config{}, nil, nil, logger.NewNop(), nil)
	var cfgErr *errs.ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestSearch_ParsesWrappedResults(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/search", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "test-key", body["api_key"])
		assert.Equal(t, "golang", body["query"])
		assert.EqualValues(t, 5, body["max_results"])
		assert.Equal(t, "month", body["freshness"])

		fmt.Fprint(w, `{"results":[{"url":"https://example.com/a","title":"A","content":"alpha"}]}`)
	}))
	defer server.Close()

	client := newClient(t, server.URL)
	results, err := client.Search(context.Background(), "golang", tavily.SearchOptions{
		MaxResults: 5,
		Freshness:  "month",
	})

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "https://example.com/a", results[0].URL)
	assert.Equal(t, "alpha", results[0].Content)
}

func TestSearch_ParsesBareArray(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `[{"url":"https://example.com/b","title":"B","content":"beta"}]`)
	}))
	defer server.Close()

	client := newClient(t, server.URL)
	results, err := client.Search(context.Background(), "golang", tavily.SearchOptions{MaxResults: 3})

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "B", results[0].Title)
}

func TestSearch_ExhaustedRetriesPropagateError(t *testing.T) {
	t.Parallel()

	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newClient(t, server.URL)
	_, err := client.Search(context.Background(), "golang", tavily.SearchOptions{MaxResults: 3})

	require.Error(t, err)
	assert.True(t, errs.IsTransient(err))
	assert.EqualValues(t, 3, requests.Load())
}

func TestSearch_ClientErrorNotRetried(t *testing.T) {
	t.Parallel()

	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newClient(t, server.URL)
	_, err := client.Search(context.Background(), "golang", tavily.SearchOptions{MaxResults: 3})

	require.Error(t, err)
	assert.EqualValues(t, 1, requests.Load())
}

func TestSearch_ServesSecondCallFromCache(t *testing.T) {
	t.Parallel()

	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		fmt.Fprint(w, `{"results":[{"url":"https://example.com/a","title":"A","content":"alpha"}]}`)
	}))
	defer server.Close()

	client := newClient(t, server.URL)
	ctx := context.Background()

	first, err := client.Search(ctx, "golang", tavily.SearchOptions{MaxResults: 5})
	require.NoError(t, err)

	second, err := client.Search(ctx, "golang", tavily.SearchOptions{MaxResults: 5})
	require.NoError(t, err)

	assert.EqualValues(t, 1, requests.Load())
	assert.Equal(t, first, second)
}

func TestExtract_ReturnsContent(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/extract", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "https://example.com/page", body["url"])
		assert.Equal(t, "text", body["text_format"])

		fmt.Fprint(w, `{"title":"Page","text":"body text"}`)
	}))
	defer server.Close()

	client := newClient(t, server.URL)
	result, err := client.Extract(context.Background(), "https://example.com/page", "")

	require.NoError(t, err)
	assert.Equal(t, "Page", result.Title)
	assert.Equal(t, "body text", result.Text)
	// URL is filled in when the provider omits it.
	assert.Equal(t, "https://example.com/page", result.URL)
}

func TestExtract_CachesPerURLAndFormat(t *testing.T) {
	t.Parallel()

	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		fmt.Fprint(w, `{"title":"Page","text":"body text"}`)
	}))
	defer server.Close()

	client := newClient(t, server.URL)
	ctx := context.Background()

	_, err := client.Extract(ctx, "https://example.com/page", "text")
	require.NoError(t, err)
	_, err = client.Extract(ctx, "https://example.com/page", "text")
	require.NoError(t, err)
	assert.EqualValues(t, 1, requests.Load())

	// A different format misses the cache.
	_, err = client.Extract(ctx, "https://example.com/page", "markdown")
	require.NoError(t, err)
	assert.EqualValues(t, 2, requests.Load())
}

func TestExtract_FailurePropagates(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := newClient(t, server.URL)
	_, err := client.Extract(context.Background(), "https://example.com/page", "text")

	require.Error(t, err)
}
