package x

import (
	"context"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"
)

// MemoryCache keeps entries in process memory for the lifetime of a run.
type MemoryCache struct {
	cache *bigcache.BigCache
}

// NewMemoryCache creates an in-memory cache capped at maxMB megabytes.
func NewMemoryCache(ctx context.Context, ttl time.Duration, maxMB int) (*MemoryCache, error) {
	cfg := bigcache.DefaultConfig(ttl)
	cfg.Shards = 64
	cfg.HardMaxCacheSize = maxMB
	cfg.Verbose = false

	cache, err := bigcache.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory cache: %w", err)
	}
	return &MemoryCache{cache: cache}, nil
}

func (c *MemoryCache) Get(key string) (string, bool) {
	data, err := c.cache.Get(key)
	if err != nil {
		return "", false
	}
	return string(data), true
}

func (c *MemoryCache) Set(key string, content string) error {
	return c.cache.Set(key, []byte(content))
}

func (c *MemoryCache) Close() error {
	return c.cache.Close()
}
