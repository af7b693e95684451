// Package telemetry provides Prometheus metrics for the ingestion pipeline.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all goresearch Prometheus metrics.
type Metrics struct {
	// Provider metrics
	SearchPagesTotal *prometheus.CounterVec
	ExtractTotal     *prometheus.CounterVec
	CacheOpsTotal    *prometheus.CounterVec

	// Pipeline metrics
	DocumentsValidated *prometheus.CounterVec
	ChunksProduced     prometheus.Counter
	IngestDuration     prometheus.Histogram
}

// New registers and returns the pipeline metrics on the given registerer.
// Pass prometheus.DefaultRegisterer in production; tests should pass a fresh
// registry so repeated construction does not panic.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		SearchPagesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "goresearch_search_pages_total",
			Help: "Total search page requests by provider and outcome (ok, error, cached)",
		}, []string{"provider", "outcome"}),
		ExtractTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "goresearch_extract_total",
			Help: "Total extraction attempts by outcome (ok, error, cached, fallback)",
		}, []string{"outcome"}),
		CacheOpsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "goresearch_cache_ops_total",
			Help: "Total cache operations by result (hit, miss, set, error)",
		}, []string{"result"}),
		DocumentsValidated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "goresearch_documents_validated_total",
			Help: "Total documents run through validation by result (valid, invalid)",
		}, []string{"result"}),
		ChunksProduced: factory.NewCounter(prometheus.CounterOpts{
			Name: "goresearch_chunks_produced_total",
			Help: "Total chunks produced by the transformer",
		}),
		IngestDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "goresearch_ingest_duration_seconds",
			Help:    "Duration of whole-topic ingestion calls",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// Handler returns the Prometheus HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveSearchPage records a search page request outcome. Nil-safe.
func (m *Metrics) ObserveSearchPage(provider, outcome string) {
	if m == nil {
		return
	}
	m.SearchPagesTotal.WithLabelValues(provider, outcome).Inc()
}

// ObserveExtract records an extraction outcome. Nil-safe.
func (m *Metrics) ObserveExtract(outcome string) {
	if m == nil {
		return
	}
	m.ExtractTotal.WithLabelValues(outcome).Inc()
}

// ObserveCache records a cache operation result. Nil-safe.
func (m *Metrics) ObserveCache(result string) {
	if m == nil {
		return
	}
	m.CacheOpsTotal.WithLabelValues(result).Inc()
}

// ObserveValidation records a validation result. Nil-safe.
func (m *Metrics) ObserveValidation(result string) {
	if m == nil {
		return
	}
	m.DocumentsValidated.WithLabelValues(result).Inc()
}

// ObserveChunks records produced chunks. Nil-safe.
func (m *Metrics) ObserveChunks(n int) {
	if m == nil {
		return
	}
	m.ChunksProduced.Add(float64(n))
}

// ObserveIngestDuration records a whole-topic ingestion duration in seconds. Nil-safe.
func (m *Metrics) ObserveIngestDuration(seconds float64) {
	if m == nil {
		return
	}
	m.IngestDuration.Observe(seconds)
}
