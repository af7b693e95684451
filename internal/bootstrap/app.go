// Package bootstrap handles application initialization for the ingestion
// service.
//
// Construction follows these phases:
//   - Phase 1: Config & Logger - Load configuration and create logger
//   - Phase 2: Shared state - Cache, HTTP client, metrics
//   - Phase 3: Providers - Search and extract clients, local fetcher
//   - Phase 4: Pipeline - Validator, transformer, ingestion service
package bootstrap

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jonesrussell/goresearch/internal/cache"
	"github.com/jonesrussell/goresearch/internal/config"
	"github.com/jonesrussell/goresearch/internal/errs"
	"github.com/jonesrussell/goresearch/internal/fetch"
	"github.com/jonesrussell/goresearch/internal/google"
	"github.com/jonesrussell/goresearch/internal/httpclient"
	"github.com/jonesrussell/goresearch/internal/ingest"
	"github.com/jonesrussell/goresearch/internal/logger"
	"github.com/jonesrussell/goresearch/internal/tavily"
	"github.com/jonesrussell/goresearch/internal/telemetry"
)

// App holds the fully wired application.
type App struct {
	Config  *config.Config
	Logger  logger.Logger
	Cache   *cache.Cache
	Metrics *telemetry.Metrics
	Service *ingest.Service
}

// New wires the application from the config file at cfgPath.
// debug forces debug-level logging regardless of configuration.
//
// The service runs with whichever providers are configured: Google Custom
// Search is the preferred discovery provider with Tavily search as the
// substitute, and Tavily extraction is the preferred content provider with
// the local fetcher as fallback. At least one search provider is required.
func New(cfgPath string, debug bool) (*App, error) {
	// Phase 1: config and logger.
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if debug {
		cfg.App.Debug = true
		cfg.Logging.Level = "debug"
	}

	log, err := logger.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	// Phase 2: shared state.
	metrics := telemetry.New(prometheus.DefaultRegisterer)
	store := cache.New(cfg.Redis, log)
	httpClient := httpclient.New(&httpclient.Config{Timeout: cfg.Ingest.RequestTimeout})

	// Phase 3: providers.
	searcher, extractor, fallback, err := buildProviders(cfg, httpClient, store, log, metrics)
	if err != nil {
		return nil, err
	}

	// Phase 4: pipeline.
	validator := ingest.NewValidator(log, metrics)
	transformer := ingest.NewTransformer(ingest.TransformerConfig{
		Workers: cfg.Ingest.ChunkWorkers,
	}, log, metrics)

	service := ingest.NewService(
		searcher,
		extractor,
		fallback,
		validator,
		transformer,
		log,
		metrics,
		ingest.ServiceConfig{MaxConcurrency: cfg.Ingest.MaxConcurrency},
	)

	return &App{
		Config:  cfg,
		Logger:  log,
		Cache:   store,
		Metrics: metrics,
		Service: service,
	}, nil
}

// buildProviders constructs the search and extract providers from whatever
// credentials are configured.
func buildProviders(
	cfg *config.Config,
	httpClient *http.Client,
	store *cache.Cache,
	log logger.Logger,
	metrics *telemetry.Metrics,
) (ingest.Searcher, ingest.Extractor, ingest.Extractor, error) {
	var searcher ingest.Searcher

	googleClient, err := google.NewClient(google.Config{
		APIKey:   cfg.Google.APIKey,
		EngineID: cfg.Google.EngineID,
		BaseURL:  cfg.Google.BaseURL,
	}, httpClient, store, log, metrics)
	switch {
	case err == nil:
		searcher = &googleSearcherAdapter{client: googleClient}
	case isConfigError(err):
		log.Warn("google search not configured", logger.Error(err))
	default:
		return nil, nil, nil, fmt.Errorf("create google client: %w", err)
	}

	var tavilyClient *tavily.Client
	tavilyClient, err = tavily.NewClient(tavily.Config{
		APIKey:  cfg.Tavily.APIKey,
		BaseURL: cfg.Tavily.BaseURL,
	}, httpClient, store, log, metrics)
	switch {
	case err == nil:
	case isConfigError(err):
		log.Warn("tavily not configured", logger.Error(err))
		tavilyClient = nil
	default:
		return nil, nil, nil, fmt.Errorf("create tavily client: %w", err)
	}

	if searcher == nil {
		if tavilyClient == nil {
			return nil, nil, nil, errors.New("no search provider configured: set GOOGLE_CSE_API_KEY/GOOGLE_CSE_ID or TAVILY_API_KEY")
		}
		searcher = &tavilySearcherAdapter{client: tavilyClient}
		log.Info("using tavily as the discovery provider")
	}

	fetcher := fetch.New(httpClient, cfg.Ingest.UserAgent, log)
	localExtractor := &fetchExtractorAdapter{fetcher: fetcher}

	if tavilyClient == nil {
		// Local fetcher as the primary extractor; nothing left to fall back to.
		return searcher, localExtractor, nil, nil
	}
	return searcher, &tavilyExtractorAdapter{client: tavilyClient}, localExtractor, nil
}

// Close releases shared resources.
func (a *App) Close() {
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			a.Logger.Warn("cache close failed", logger.Error(err))
		}
	}
	_ = a.Logger.Sync()
}

func isConfigError(err error) bool {
	var cfgErr *errs.ConfigError
	return errors.As(err, &cfgErr)
}
