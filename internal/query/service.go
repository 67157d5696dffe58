package query

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/nearyou-pipeline/internal/domain"
	"github.com/nearyou-pipeline/internal/domain/repository"
)

// TimeseriesRequest parameters. Granularity is minute, hour, day or
// month; ShopID optionally narrows to one shop.
type TimeseriesRequest struct {
	Metric      string    `json:"metric" validate:"required"`
	Granularity string    `json:"granularity" validate:"required,oneof=minute hour day month"`
	Start       time.Time `json:"start" validate:"required"`
	End         time.Time `json:"end" validate:"required"`
	ShopID      string    `json:"shop_id"`
}

type TimeseriesResult struct {
	Points []domain.TimeSeriesPoint `json:"points"`
	Source string                   `json:"source"`
	Cached bool                     `json:"cached"`
}

type AggregateRequest struct {
	Type       string    `json:"type" validate:"required"`
	Dimensions []string  `json:"dimensions" validate:"required,min=1"`
	Start      time.Time `json:"start" validate:"required"`
	End        time.Time `json:"end" validate:"required"`
}

type AggregateResult struct {
	Points []domain.AggregatePoint `json:"points"`
	Source string                  `json:"source"`
	Cached bool                    `json:"cached"`
}

type UserActivityResult struct {
	Realtime   *domain.UserRealtimeActivity  `json:"realtime"`
	Historical *domain.UserHistoricalSummary `json:"historical"`
	Source     string                        `json:"source"`
	Cached     bool                          `json:"cached"`
}

type ShopPerformanceResult struct {
	Metrics []domain.ShopMetrics `json:"metrics"`
	Trends  []domain.ShopTrend   `json:"trends,omitempty"`
	Cached  bool                 `json:"cached"`
}

// realtimeWindowHours is the lookback for user realtime activity.
const realtimeWindowHours = 24

// batchMetrics are the aggregate metrics always answered from the
// batch projections, whatever the requested window.
var batchMetrics = map[string]bool{
	"monthly_summary":  true,
	"shop_performance": true,
	"user_journeys":    true,
}

// Service answers analytics queries, routing each to the raw log or
// the projections and caching results briefly.
type Service struct {
	analytics repository.AnalyticsRepository
	cache     *CacheManager
	logger    *zap.Logger
}

func NewService(analytics repository.AnalyticsRepository, cache *CacheManager, logger *zap.Logger) *Service {
	return &Service{
		analytics: analytics,
		cache:     cache,
		logger:    logger,
	}
}

func (s *Service) Timeseries(ctx context.Context, req TimeseriesRequest) (*TimeseriesResult, error) {
	key := CacheKey("timeseries", map[string]interface{}{
		"metric":      req.Metric,
		"granularity": req.Granularity,
		"start":       req.Start.UTC(),
		"end":         req.End.UTC(),
		"shop_id":     req.ShopID,
	})

	var result TimeseriesResult
	if s.cache.Lookup(ctx, key, &result) {
		result.Cached = true
		return &result, nil
	}

	stream := ShouldUseStream(req.Granularity, req.Start, req.End)

	var (
		points []domain.TimeSeriesPoint
		err    error
	)
	if stream {
		points, err = s.analytics.StreamTimeseries(ctx, req.Metric, req.Granularity, req.Start, req.End, req.ShopID)
	} else {
		points, err = s.analytics.BatchTimeseries(ctx, req.Metric, req.Granularity, req.Start, req.End, req.ShopID)
	}
	if err != nil {
		return nil, err
	}

	result = TimeseriesResult{Points: points, Source: Source(stream)}
	s.cache.Store(ctx, key, result)
	return &result, nil
}

func (s *Service) Aggregate(ctx context.Context, req AggregateRequest) (*AggregateResult, error) {
	key := CacheKey("aggregate", map[string]interface{}{
		"type":       req.Type,
		"dimensions": req.Dimensions,
		"start":      req.Start.UTC(),
		"end":        req.End.UTC(),
	})

	var result AggregateResult
	if s.cache.Lookup(ctx, key, &result) {
		result.Cached = true
		return &result, nil
	}

	var (
		points []domain.AggregatePoint
		err    error
	)
	stream := !batchMetrics[req.Type]
	if stream {
		// Everything else answers from a 24h stream window.
		start, end := req.Start, req.End
		if floor := time.Now().Add(-streamRangeLimit); start.Before(floor) {
			start = floor
		}
		points, err = s.analytics.StreamAggregate(ctx, req.Type, req.Dimensions, start, end)
	} else {
		points, err = s.analytics.BatchAggregate(ctx, req.Type, req.Dimensions, req.Start, req.End)
	}
	if err != nil {
		return nil, err
	}

	result = AggregateResult{Points: points, Source: Source(stream)}
	s.cache.Store(ctx, key, result)
	return &result, nil
}

// UserActivity combines the realtime view of a user (last 24h of the
// event log) with the historical summary from the daily projection.
func (s *Service) UserActivity(ctx context.Context, userID uint64) (*UserActivityResult, error) {
	key := CacheKey("user_activity", map[string]interface{}{
		"user_id": userID,
	})

	var result UserActivityResult
	if s.cache.Lookup(ctx, key, &result) {
		result.Cached = true
		return &result, nil
	}

	activity, err := s.analytics.UserRealtimeActivity(ctx, userID, realtimeWindowHours)
	if err != nil {
		return nil, err
	}
	summary, err := s.analytics.UserHistoricalSummary(ctx, userID)
	if err != nil {
		return nil, err
	}
	result = UserActivityResult{Realtime: activity, Historical: summary, Source: "stream+batch"}

	s.cache.Store(ctx, key, result)
	return &result, nil
}

// ShopPerformance reads the latest per-shop metrics and optionally the
// week-over-week trends.
func (s *Service) ShopPerformance(ctx context.Context, shopIDs []string, includeTrends bool) (*ShopPerformanceResult, error) {
	key := CacheKey("shop_performance", map[string]interface{}{
		"shop_ids": shopIDs,
		"trends":   includeTrends,
	})

	var result ShopPerformanceResult
	if s.cache.Lookup(ctx, key, &result) {
		result.Cached = true
		return &result, nil
	}

	metrics, err := s.analytics.ShopPerformance(ctx, shopIDs)
	if err != nil {
		return nil, err
	}
	result = ShopPerformanceResult{Metrics: metrics}

	if includeTrends {
		trends, err := s.analytics.ShopTrends(ctx, shopIDs)
		if err != nil {
			return nil, err
		}
		result.Trends = trends
	}

	s.cache.Store(ctx, key, result)
	return &result, nil
}

// Sources describes the backing stores and routing rule, served by
// the /data/sources endpoint.
func (s *Service) Sources() map[string]interface{} {
	return map[string]interface{}{
		"stream": map[string]interface{}{
			"table":       "user_events",
			"description": "raw enriched event log",
			"window":      "windows up to 24h, or minute/hour granularity starting within 7d",
		},
		"batch": map[string]interface{}{
			"tables":      []string{"shop_visits_hourly", "user_activity_daily", "monthly_shop_summary", "shop_performance_metrics"},
			"description": "periodically refreshed projections",
			"window":      "everything beyond the stream window",
		},
	}
}
