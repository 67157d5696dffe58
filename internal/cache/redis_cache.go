package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/nearyou-pipeline/internal/domain/repository"
)

// RedisCache stores entries in Redis. Any Redis failure degrades to a
// cache miss so the caller never blocks on an unhealthy cache.
type RedisCache struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRedisCache(client *redis.Client, logger *zap.Logger) repository.CacheRepository {
	return &RedisCache{
		client: client,
		logger: logger,
	}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		c.logger.Warn("cache get failed, treating as miss",
			zap.String("key", key),
			zap.Error(err))
		return nil, nil
	}
	return val, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		c.logger.Warn("cache set failed",
			zap.String("key", key),
			zap.Error(err))
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

func (c *RedisCache) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return false, nil
	}
	return n > 0, nil
}

func (c *RedisCache) Info(ctx context.Context) map[string]interface{} {
	info := map[string]interface{}{
		"backend": "redis",
		"status":  "connected",
	}

	size, err := c.client.DBSize(ctx).Result()
	if err != nil {
		info["status"] = "degraded"
		return info
	}
	info["total_keys"] = size

	return info
}
