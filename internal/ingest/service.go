package ingest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonesrussell/goresearch/internal/logger"
	"github.com/jonesrussell/goresearch/internal/telemetry"
)

// Source tags recorded on documents by provenance.
const (
	sourceExtractProvider = "google_cse+tavily"
	sourceLocalFetch      = "google_cse+fetch"
)

// Link is a discovered candidate URL.
type Link struct {
	URL   string
	Title string
}

// Searcher discovers candidate URLs for a topic.
type Searcher interface {
	Search(ctx context.Context, topic string, maxResults int, freshness string) ([]Link, error)
}

// Extracted is the text content recovered for one URL.
type Extracted struct {
	Title string
	Text  string
}

// Extractor fetches the text content of one URL.
type Extractor interface {
	Extract(ctx context.Context, url string) (*Extracted, error)
}

// ServiceConfig tunes the orchestrator.
type ServiceConfig struct {
	// MaxConcurrency bounds the extraction fan-out.
	MaxConcurrency int
}

// Service composes discovery, concurrent extraction, validation, and
// chunking into a single topic-to-documents operation. All dependencies are
// injected; the composition root owns construction.
type Service struct {
	searcher       Searcher
	extractor      Extractor
	fallback       Extractor
	validator      *Validator
	transformer    *Transformer
	log            logger.Logger
	metrics        *telemetry.Metrics
	maxConcurrency int
}

// NewService creates the ingestion orchestrator.
// fallback may be nil; when present it is tried after the primary extractor
// fails or returns empty text for a URL.
func NewService(
	searcher Searcher,
	extractor Extractor,
	fallback Extractor,
	validator *Validator,
	transformer *Transformer,
	log logger.Logger,
	metrics *telemetry.Metrics,
	cfg ServiceConfig,
) *Service {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 10
	}
	return &Service{
		searcher:       searcher,
		extractor:      extractor,
		fallback:       fallback,
		validator:      validator,
		transformer:    transformer,
		log:            log,
		metrics:        metrics,
		maxConcurrency: cfg.MaxConcurrency,
	}
}

// IngestTopic discovers up to maxLinks URLs for topic, extracts their
// content concurrently, and returns the validated, cleaned documents.
//
// Individual extraction failures are contained: failed or empty-text URLs
// are debug-logged and dropped, never surfaced as partial errors. Output
// order follows task-completion order, not search rank. Cancelling ctx
// aborts in-flight work and returns whatever completed.
func (s *Service) IngestTopic(ctx context.Context, topic string, maxLinks int, freshness string) ([]CleanDocument, error) {
	start := time.Now()
	s.log.Info("ingesting topic",
		logger.String("topic", topic),
		logger.Int("max_links", maxLinks),
	)

	links, err := s.searcher.Search(ctx, topic, maxLinks, freshness)
	if err != nil {
		return nil, fmt.Errorf("discover urls: %w", err)
	}
	if len(links) == 0 {
		s.log.Info("no urls discovered", logger.String("topic", topic))
		return nil, nil
	}

	sem := make(chan struct{}, s.maxConcurrency)
	results := make(chan RawDocument)

	var wg sync.WaitGroup
	for _, link := range links {
		wg.Add(1)
		go func(link Link) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}

			doc, ok := s.fetchDocument(ctx, link)
			if !ok {
				return
			}

			select {
			case results <- doc:
			case <-ctx.Done():
			}
		}(link)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var raws []RawDocument
collect:
	for {
		select {
		case doc, ok := <-results:
			if !ok {
				break collect
			}
			raws = append(raws, doc)
		case <-ctx.Done():
			s.log.Warn("ingestion cancelled, returning completed work",
				logger.String("topic", topic),
				logger.Int("completed", len(raws)),
			)
			break collect
		}
	}

	cleaned := s.validator.ValidateAndCleanBulk(raws)

	s.metrics.ObserveIngestDuration(time.Since(start).Seconds())
	s.log.Info("topic ingested",
		logger.String("topic", topic),
		logger.Int("discovered", len(links)),
		logger.Int("documents", len(cleaned)),
		logger.Duration("elapsed", time.Since(start)),
	)

	return cleaned, nil
}

// IngestAndChunk runs IngestTopic and transforms the documents into
// embedding-ready chunks.
func (s *Service) IngestAndChunk(ctx context.Context, topic string, maxLinks int, freshness string) ([]Chunk, error) {
	docs, err := s.IngestTopic(ctx, topic, maxLinks, freshness)
	if err != nil {
		return nil, err
	}
	return s.transformer.TransformBulk(docs), nil
}

// fetchDocument extracts one URL into a RawDocument, trying the primary
// extractor first and the local fallback second. A URL whose extraction
// fails everywhere is dropped.
func (s *Service) fetchDocument(ctx context.Context, link Link) (RawDocument, bool) {
	source := sourceExtractProvider

	extracted, err := s.extractor.Extract(ctx, link.URL)
	if err != nil || extracted == nil || strings.TrimSpace(extracted.Text) == "" {
		if err != nil {
			s.log.Debug("extract failed",
				logger.String("url", link.URL),
				logger.Error(err),
			)
		}

		if s.fallback == nil {
			return RawDocument{}, false
		}

		extracted, err = s.fallback.Extract(ctx, link.URL)
		if err != nil || strings.TrimSpace(extracted.Text) == "" {
			s.log.Debug("fallback extract failed, dropping url",
				logger.String("url", link.URL),
				logger.Error(err),
			)
			return RawDocument{}, false
		}
		s.metrics.ObserveExtract("fallback")
		source = sourceLocalFetch
	}

	title := extracted.Title
	if title == "" {
		title = link.Title
	}
	if title == "" {
		title = link.URL
	}

	return RawDocument{
		ID:       uuid.NewString(),
		Title:    title,
		Format:   FormatHTML,
		Text:     extracted.Text,
		URL:      link.URL,
		Metadata: Metadata{Source: source},
	}, true
}
