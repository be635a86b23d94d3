package cache

import (
	"context"
	"errors"
	"time"

	"github.com/bluele/gcache"
	"github.com/metroplanner/internal/common/logger"
)

// MemoryCache is a process-local LRU.
type MemoryCache struct {
	lru    gcache.Cache
	logger logger.Logger
}

func NewMemoryCache(size int, logger logger.Logger) *MemoryCache {
	return &MemoryCache{
		lru:    gcache.New(size).LRU().Build(),
		logger: logger,
	}
}

func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := c.lru.Get(key)
	if errors.Is(err, gcache.KeyNotFoundError) {
		c.logger.Debug("cache miss", "key", key)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c.logger.Debug("cache hit", "key", key)
	return v.([]byte), nil
}

func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return c.lru.Set(key, value)
	}
	return c.lru.SetWithExpire(key, value, ttl)
}

func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.lru.Remove(key)
	return nil
}

func (c *MemoryCache) Close() error {
	c.lru.Purge()
	return nil
}
