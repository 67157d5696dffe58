package cache

import (
	"go.uber.org/zap"

	"github.com/nearyou-pipeline/internal/config"
	"github.com/nearyou-pipeline/internal/domain/repository"
)

// New picks the cache backend from configuration: Redis when reachable,
// an in-process cache otherwise, a no-op when caching is disabled.
func New(cfg *config.Config, logger *zap.Logger) repository.CacheRepository {
	if !cfg.Cache.Enabled {
		logger.Info("cache disabled")
		return NewNoopCache()
	}

	client, err := NewRedisClient(cfg)
	if err != nil {
		logger.Warn("redis unavailable, falling back to in-process cache",
			zap.String("addr", cfg.GetRedisAddr()),
			zap.Error(err))
		return NewMemoryCache(cfg.Cache.TTL)
	}

	logger.Info("cache backend ready",
		zap.String("backend", "redis"),
		zap.String("addr", cfg.GetRedisAddr()))
	return NewRedisCache(client, logger)
}
