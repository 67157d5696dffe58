package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/nearyou-pipeline/internal/domain/repository"
)

// MemoryCache is the in-process fallback used when Redis is not
// reachable or caching is configured without a remote backend.
type MemoryCache struct {
	store *gocache.Cache
}

func NewMemoryCache(defaultTTL time.Duration) repository.CacheRepository {
	return &MemoryCache{
		store: gocache.New(defaultTTL, 60*time.Second),
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	val, found := c.store.Get(key)
	if !found {
		return nil, nil
	}
	return val.([]byte), nil
}

func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.store.Set(key, value, ttl)
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.store.Delete(key)
	return nil
}

func (c *MemoryCache) Exists(_ context.Context, key string) (bool, error) {
	_, found := c.store.Get(key)
	return found, nil
}

func (c *MemoryCache) Info(_ context.Context) map[string]interface{} {
	return map[string]interface{}{
		"backend":    "memory",
		"status":     "connected",
		"total_keys": c.store.ItemCount(),
	}
}
