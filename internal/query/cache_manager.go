package query

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nearyou-pipeline/internal/domain/repository"
)

// CacheManager caches serialized query results keyed by query type and
// a digest of the parameters.
type CacheManager struct {
	cache  repository.CacheRepository
	ttl    time.Duration
	logger *zap.Logger
}

func NewCacheManager(cache repository.CacheRepository, ttl time.Duration, logger *zap.Logger) *CacheManager {
	return &CacheManager{
		cache:  cache,
		ttl:    ttl,
		logger: logger,
	}
}

// CacheKey digests the parameters. encoding/json emits map keys in
// sorted order, so logically equal parameter sets share a key.
func CacheKey(queryType string, params map[string]interface{}) string {
	encoded, err := json.Marshal(params)
	if err != nil {
		encoded = []byte(fmt.Sprintf("%v", params))
	}
	sum := md5.Sum(encoded)
	return fmt.Sprintf("query:%s:%s", queryType, hex.EncodeToString(sum[:]))
}

// Lookup returns the cached result decoded into out, reporting whether
// it was found.
func (m *CacheManager) Lookup(ctx context.Context, key string, out interface{}) bool {
	data, err := m.cache.Get(ctx, key)
	if err != nil || data == nil {
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		m.logger.Warn("discarding undecodable cached result",
			zap.String("key", key),
			zap.Error(err))
		return false
	}
	return true
}

// Store caches a result. Failures are logged, never surfaced.
func (m *CacheManager) Store(ctx context.Context, key string, result interface{}) {
	data, err := json.Marshal(result)
	if err != nil {
		m.logger.Warn("failed to encode result for cache", zap.Error(err))
		return
	}
	_ = m.cache.Set(ctx, key, data, m.ttl)
}
