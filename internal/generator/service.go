package generator

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/nearyou-pipeline/internal/domain"
	"github.com/nearyou-pipeline/internal/domain/repository"
)

const cacheKeyPrefix = "msg:"

// Categories with high repeat traffic keep their entries longer.
var popularCategories = map[string]bool{
	"ristorante":    true,
	"bar":           true,
	"abbigliamento": true,
	"supermercato":  true,
}

// Service generates personalised messages with content-addressed
// caching. Fallback messages bypass the cache so a transient model
// outage never pins canned text to a fingerprint.
type Service struct {
	cache   repository.CacheRepository
	llm     LLM
	baseTTL time.Duration
	logger  *zap.Logger

	hits   atomic.Uint64
	misses atomic.Uint64
	total  atomic.Uint64
}

func NewService(cache repository.CacheRepository, llm LLM, baseTTL time.Duration, logger *zap.Logger) *Service {
	return &Service{
		cache:   cache,
		llm:     llm,
		baseTTL: baseTTL,
		logger:  logger,
	}
}

// Generate returns the message for the profile near the shop and
// whether it was served from cache. A model failure degrades to a
// category fallback with a nil error.
func (s *Service) Generate(ctx context.Context, profile *domain.UserProfile, shop *domain.Shop, description string) (string, bool, error) {
	s.total.Add(1)
	key := cacheKeyPrefix + Fingerprint(profile, shop)

	if cached, err := s.cache.Get(ctx, key); err == nil && cached != nil {
		s.hits.Add(1)
		return string(cached), true, nil
	}
	s.misses.Add(1)

	message, err := s.llm.Complete(ctx, BuildPrompt(profile, shop, description))
	if err != nil {
		s.logger.Warn("generation failed, using fallback",
			zap.String("shop", shop.ShopName),
			zap.Error(err))
		return FallbackMessage(profile, shop), false, nil
	}

	message = strings.TrimSpace(message)
	_ = s.cache.Set(ctx, key, []byte(message), s.ttlFor(shop.Category))

	return message, false, nil
}

// ttlFor doubles the retention for categories with heavy repeat hits.
func (s *Service) ttlFor(category string) time.Duration {
	if popularCategories[strings.ToLower(category)] {
		return 2 * s.baseTTL
	}
	return s.baseTTL
}

// Stats reports counters since process start plus backend info.
func (s *Service) Stats(ctx context.Context) map[string]interface{} {
	hits := s.hits.Load()
	misses := s.misses.Load()
	total := s.total.Load()

	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return map[string]interface{}{
		"cache_hits":     hits,
		"cache_misses":   misses,
		"total_requests": total,
		"hit_rate":       hitRate,
		"cache_info":     s.cache.Info(ctx),
	}
}
