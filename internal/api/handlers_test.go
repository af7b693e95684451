package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/goresearch/internal/api"
	"github.com/jonesrussell/goresearch/internal/ingest"
	"github.com/jonesrussell/goresearch/internal/logger"
)

type stubSearcher struct {
	links []ingest.Link
	err   error
}

func (s *stubSearcher) Search(_ context.Context, _ string, maxResults int, _ string) ([]ingest.Link, error) {
	if s.err != nil {
		return nil, s.err
	}
	if maxResults < len(s.links) {
		return s.links[:maxResults], nil
	}
	return s.links, nil
}

type stubExtractor struct{}

func (e *stubExtractor) Extract(_ context.Context, url string) (*ingest.Extracted, error) {
	return &ingest.Extracted{
		Title: "Title",
		Text:  strings.Repeat("Extracted content for "+url+". ", 10),
	}, nil
}

func newRouter(t *testing.T, searcher ingest.Searcher) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.NewNop()
	service := ingest.NewService(
		searcher,
		&stubExtractor{},
		nil,
		ingest.NewValidator(log, nil),
		ingest.NewTransformer(ingest.TransformerConfig{}, log, nil),
		log,
		nil,
		ingest.ServiceConfig{MaxConcurrency: 4},
	)

	router := gin.New()
	api.RegisterRoutes(router, api.NewHandler(service, 20, log), nil)
	return router
}

func searchLinks(n int) []ingest.Link {
	out := make([]ingest.Link, n)
	for i := range out {
		out[i] = ingest.Link{URL: fmt.Sprintf("https://example.com/%d", i), Title: fmt.Sprintf("Link %d", i)}
	}
	return out
}

func TestIngestEndpoint_ReturnsDocuments(t *testing.T) {
	t.Parallel()

	router := newRouter(t, &stubSearcher{links: searchLinks(3)})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest",
		strings.NewReader(`{"topic":"golang concurrency"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp api.IngestResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "golang concurrency", resp.Topic)
	assert.Equal(t, 3, resp.Count)
	assert.Len(t, resp.Documents, 3)
	assert.Empty(t, resp.Chunks)
}

func TestIngestEndpoint_ChunkMode(t *testing.T) {
	t.Parallel()

	router := newRouter(t, &stubSearcher{links: searchLinks(2)})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest",
		strings.NewReader(`{"topic":"golang","chunk":true}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp api.IngestResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Documents)
	assert.Len(t, resp.Chunks, 2)
}

func TestIngestEndpoint_MissingTopic(t *testing.T) {
	t.Parallel()

	router := newRouter(t, &stubSearcher{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIngestEndpoint_SearchFailure(t *testing.T) {
	t.Parallel()

	router := newRouter(t, &stubSearcher{err: errors.New("provider down")})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest",
		strings.NewReader(`{"topic":"golang"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()

	router := newRouter(t, &stubSearcher{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", http.NoBody)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestRequestIDMiddleware_SetsHeader(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(api.RequestIDMiddleware())
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", http.NoBody)
	router.ServeHTTP(w, req)

	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRequestIDMiddleware_PreservesInboundID(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(api.RequestIDMiddleware())
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", http.NoBody)
	req.Header.Set("X-Request-ID", "upstream-id-123")
	router.ServeHTTP(w, req)

	assert.Equal(t, "upstream-id-123", w.Header().Get("X-Request-ID"))
}
