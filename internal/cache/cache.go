// Package cache provides a TTL key/value cache shared by the search and
// extract clients.
//
// The backend is decided once at construction: a shared Redis store when one
// is configured and reachable, otherwise a process-local map. The local
// fallback has no cross-process visibility and does not evict entries, so
// callers must not rely on TTL expiry when degraded.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/goresearch/internal/logger"
)

// Backend identifies which store a Cache instance is using.
type Backend int

const (
	// BackendShared means the cache is backed by a shared Redis store.
	BackendShared Backend = iota
	// BackendLocal means the cache is backed by a process-local map.
	BackendLocal
)

// String returns the string representation of the backend.
func (b Backend) String() string {
	switch b {
	case BackendShared:
		return "shared"
	case BackendLocal:
		return "local"
	default:
		return "unknown"
	}
}

// connectTimeout is the timeout for verifying the Redis connection at construction.
const connectTimeout = 5 * time.Second

// Config holds cache backend configuration.
type Config struct {
	// Address is the Redis address. Empty disables the shared backend.
	Address  string `env:"REDIS_ADDRESS"  yaml:"address"`
	Password string `env:"REDIS_PASSWORD" yaml:"password"`
	DB       int    `env:"REDIS_DB"       yaml:"db"`
}

// Cache is a TTL key/value store with JSON-serialized string values.
// It is safe for concurrent use from multiple in-flight tasks.
type Cache struct {
	backend Backend
	client  *redis.Client
	log     logger.Logger

	mu    sync.RWMutex
	local map[string]string
}

// New creates a Cache. When cfg.Address is set and the store responds to a
// ping, the shared backend is used. Any construction failure is logged and
// the instance degrades to local mode permanently; there is no later re-probe.
func New(cfg Config, log logger.Logger) *Cache {
	c := &Cache{
		backend: BackendLocal,
		local:   make(map[string]string),
		log:     log,
	}

	if cfg.Address == "" {
		log.Info("no shared cache configured, using local cache")
		return c
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		log.Warn("shared cache unreachable, falling back to local cache",
			logger.String("address", cfg.Address),
			logger.Error(err),
		)
		return c
	}

	c.backend = BackendShared
	c.client = client
	log.Info("shared cache connected", logger.String("address", cfg.Address))
	return c
}

// Backend reports which backend this instance uses.
func (c *Cache) Backend() Backend {
	return c.backend
}

// Get returns the value for key and whether it was present.
func (c *Cache) Get(ctx context.Context, key string) (string, bool, error) {
	if c.backend == BackendShared {
		val, err := c.client.Get(ctx, key).Result()
		if err == redis.Nil {
			return "", false, nil
		}
		if err != nil {
			return "", false, fmt.Errorf("cache get %s: %w", key, err)
		}
		return val, true, nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	val, ok := c.local[key]
	return val, ok, nil
}

// Set stores value under key for ttl. The local backend ignores ttl.
func (c *Cache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if c.backend == BackendShared {
		if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
			return fmt.Errorf("cache set %s: %w", key, err)
		}
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.local[key] = value
	return nil
}

// Close releases the shared store connection if one is held.
func (c *Cache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}
