package repository

import (
	"context"
	"time"

	"github.com/nearyou-pipeline/internal/domain"
)

// CacheRepository is the byte-level cache used by the generator and the
// query service. Implementations degrade to miss rather than fail.
type CacheRepository interface {
	// Get returns (nil, nil) on a miss.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Info(ctx context.Context) map[string]interface{}
}

// ShopRepository resolves the nearest point of interest for a position.
type ShopRepository interface {
	// FindNearest returns (nil, nil) when the shops table is empty.
	FindNearest(ctx context.Context, lat, lon float64) (*domain.Shop, error)
}

// ProfileRepository reads user attributes for personalisation.
type ProfileRepository interface {
	// GetByID returns (nil, nil) for an unknown user.
	GetByID(ctx context.Context, userID uint64) (*domain.UserProfile, error)
}

// EventRepository appends enriched events to the sink.
type EventRepository interface {
	Insert(ctx context.Context, event *domain.EnrichedEvent) error
}

// AnalyticsRepository answers the query service's reads, split into
// stream (raw event log) and batch (projection) variants.
type AnalyticsRepository interface {
	StreamTimeseries(ctx context.Context, metric, granularity string, start, end time.Time, shopID string) ([]domain.TimeSeriesPoint, error)
	BatchTimeseries(ctx context.Context, metric, granularity string, start, end time.Time, shopID string) ([]domain.TimeSeriesPoint, error)

	StreamAggregate(ctx context.Context, aggType string, dimensions []string, start, end time.Time) ([]domain.AggregatePoint, error)
	BatchAggregate(ctx context.Context, aggType string, dimensions []string, start, end time.Time) ([]domain.AggregatePoint, error)

	UserRealtimeActivity(ctx context.Context, userID uint64, lastHours int) (*domain.UserRealtimeActivity, error)
	UserHistoricalSummary(ctx context.Context, userID uint64) (*domain.UserHistoricalSummary, error)

	ShopPerformance(ctx context.Context, shopIDs []string) ([]domain.ShopMetrics, error)
	ShopTrends(ctx context.Context, shopIDs []string) ([]domain.ShopTrend, error)
}

// ProjectionRepository owns the derived tables and their refresh jobs.
type ProjectionRepository interface {
	EnsureTables(ctx context.Context) error
	RefreshMonthlySummary(ctx context.Context) error
	CalculateShopPerformance(ctx context.Context, days int) error
	AggregateUserJourneys(ctx context.Context, day time.Time) error
	RefreshHourlyVisits(ctx context.Context) error
	RefreshDailyActivity(ctx context.Context) error
}

// GeneratorClient produces a personalised message for a user near a shop.
type GeneratorClient interface {
	Generate(ctx context.Context, profile *domain.UserProfile, shop *domain.Shop, description string) (string, error)
}
