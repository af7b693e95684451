package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/jonesrussell/goresearch/internal/cache"
	"github.com/jonesrussell/goresearch/internal/logger"
)

// Default configuration values.
const (
	defaultServerPort      = 8090
	defaultReadTimeout     = 30 * time.Second
	defaultWriteTimeout    = 60 * time.Second
	defaultIdleTimeout     = 120 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultMaxLinks        = 20
	defaultMaxConcurrency  = 10
	defaultChunkWorkers    = 4
	defaultRequestTimeout  = 15 * time.Second
	defaultUserAgent       = "goresearch/1.0"
	defaultGoogleBaseURL   = "https://customsearch.googleapis.com/customsearch/v1"
	defaultTavilyBaseURL   = "https://api.tavily.com"
	defaultEnvironment     = "development"
	defaultApplicationName = "goresearch"
)

// Config is the root configuration for the service.
type Config struct {
	App     AppConfig     `yaml:"app"`
	Logging logger.Config `yaml:"logging"`
	Redis   cache.Config  `yaml:"redis"`
	Google  GoogleConfig  `yaml:"google"`
	Tavily  TavilyConfig  `yaml:"tavily"`
	Ingest  IngestConfig  `yaml:"ingest"`
	Server  ServerConfig  `yaml:"server"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `env:"APP_ENV"   yaml:"environment"`
	Debug       bool   `env:"APP_DEBUG" yaml:"debug"`
}

// GoogleConfig holds Google Custom Search credentials and tuning.
type GoogleConfig struct {
	APIKey   string `env:"GOOGLE_CSE_API_KEY"  yaml:"api_key"`
	EngineID string `env:"GOOGLE_CSE_ID"       yaml:"engine_id"`
	BaseURL  string `env:"GOOGLE_CSE_BASE_URL" yaml:"base_url"`
}

// TavilyConfig holds Tavily API credentials and tuning.
type TavilyConfig struct {
	APIKey  string `env:"TAVILY_API_KEY"      yaml:"api_key"`
	BaseURL string `env:"TAVILY_API_BASE_URL" yaml:"base_url"`
}

// IngestConfig holds pipeline tuning.
type IngestConfig struct {
	// MaxLinks is the default number of URLs to discover per topic.
	MaxLinks int `yaml:"max_links"`
	// MaxConcurrency bounds the extraction fan-out.
	MaxConcurrency int `yaml:"max_concurrency"`
	// ChunkWorkers bounds the CPU-bound chunking worker pool.
	ChunkWorkers int `yaml:"chunk_workers"`
	// RequestTimeout applies to individual provider requests.
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// UserAgent is sent on direct page fetches.
	UserAgent string `yaml:"user_agent"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `env:"SERVER_PORT" yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// SetDefaults applies default values to unset fields.
func (c *Config) SetDefaults() {
	if c.App.Name == "" {
		c.App.Name = defaultApplicationName
	}
	if c.App.Environment == "" {
		c.App.Environment = defaultEnvironment
	}
	c.Logging.SetDefaults()
	if c.Google.BaseURL == "" {
		c.Google.BaseURL = defaultGoogleBaseURL
	}
	if c.Tavily.BaseURL == "" {
		c.Tavily.BaseURL = defaultTavilyBaseURL
	}
	if c.Ingest.MaxLinks <= 0 {
		c.Ingest.MaxLinks = defaultMaxLinks
	}
	if c.Ingest.MaxConcurrency <= 0 {
		c.Ingest.MaxConcurrency = defaultMaxConcurrency
	}
	if c.Ingest.ChunkWorkers <= 0 {
		c.Ingest.ChunkWorkers = defaultChunkWorkers
	}
	if c.Ingest.RequestTimeout <= 0 {
		c.Ingest.RequestTimeout = defaultRequestTimeout
	}
	if c.Ingest.UserAgent == "" {
		c.Ingest.UserAgent = defaultUserAgent
	}
	if c.Server.Port <= 0 {
		c.Server.Port = defaultServerPort
	}
	if c.Server.ReadTimeout <= 0 {
		c.Server.ReadTimeout = defaultReadTimeout
	}
	if c.Server.WriteTimeout <= 0 {
		c.Server.WriteTimeout = defaultWriteTimeout
	}
	if c.Server.IdleTimeout <= 0 {
		c.Server.IdleTimeout = defaultIdleTimeout
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = defaultShutdownTimeout
	}
}

// Validate checks the configuration for consistency.
// Provider credentials are validated at client construction, not here, so the
// service can run with a subset of providers configured.
func (c *Config) Validate() error {
	switch c.App.Environment {
	case "development", "staging", "production":
	default:
		return fmt.Errorf("invalid environment: %s", c.App.Environment)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Ingest.MaxConcurrency < 1 {
		return errors.New("ingest max_concurrency must be positive")
	}

	if c.Ingest.ChunkWorkers < 1 {
		return errors.New("ingest chunk_workers must be positive")
	}

	return nil
}
