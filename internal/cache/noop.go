package cache

import (
	"context"
	"time"

	"github.com/nearyou-pipeline/internal/domain/repository"
)

// NoopCache misses on every read. Used when CACHE_ENABLED=false.
type NoopCache struct{}

func NewNoopCache() repository.CacheRepository {
	return &NoopCache{}
}

func (c *NoopCache) Get(_ context.Context, _ string) ([]byte, error) {
	return nil, nil
}

func (c *NoopCache) Set(_ context.Context, _ string, _ []byte, _ time.Duration) error {
	return nil
}

func (c *NoopCache) Delete(_ context.Context, _ string) error {
	return nil
}

func (c *NoopCache) Exists(_ context.Context, _ string) (bool, error) {
	return false, nil
}

func (c *NoopCache) Info(_ context.Context) map[string]interface{} {
	return map[string]interface{}{
		"backend": "noop",
		"status":  "disabled",
	}
}
