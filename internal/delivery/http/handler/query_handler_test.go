package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/nearyou-pipeline/internal/cache"
	"github.com/nearyou-pipeline/internal/domain"
	"github.com/nearyou-pipeline/internal/query"
)

// stubAnalyticsRepo returns canned answers and records which sides of
// the user activity query were hit.
type stubAnalyticsRepo struct {
	realtimeCalls   int
	historicalCalls int
	lastHours       int
}

func (s *stubAnalyticsRepo) StreamTimeseries(_ context.Context, _, _ string, _, _ time.Time, _ string) ([]domain.TimeSeriesPoint, error) {
	return []domain.TimeSeriesPoint{{Value: 1}}, nil
}

func (s *stubAnalyticsRepo) BatchTimeseries(_ context.Context, _, _ string, _, _ time.Time, _ string) ([]domain.TimeSeriesPoint, error) {
	return nil, nil
}

func (s *stubAnalyticsRepo) StreamAggregate(_ context.Context, _ string, _ []string, _, _ time.Time) ([]domain.AggregatePoint, error) {
	return nil, nil
}

func (s *stubAnalyticsRepo) BatchAggregate(_ context.Context, _ string, _ []string, _, _ time.Time) ([]domain.AggregatePoint, error) {
	return nil, nil
}

func (s *stubAnalyticsRepo) UserRealtimeActivity(_ context.Context, _ uint64, lastHours int) (*domain.UserRealtimeActivity, error) {
	s.realtimeCalls++
	s.lastHours = lastHours
	return &domain.UserRealtimeActivity{Events: 3, RecentShops: []string{"Bar Roma"}}, nil
}

func (s *stubAnalyticsRepo) UserHistoricalSummary(_ context.Context, _ uint64) (*domain.UserHistoricalSummary, error) {
	s.historicalCalls++
	return &domain.UserHistoricalSummary{TotalDaysActive: 9}, nil
}

func (s *stubAnalyticsRepo) ShopPerformance(_ context.Context, _ []string) ([]domain.ShopMetrics, error) {
	return nil, nil
}

func (s *stubAnalyticsRepo) ShopTrends(_ context.Context, _ []string) ([]domain.ShopTrend, error) {
	return nil, nil
}

func newQueryTestApp(repo *stubAnalyticsRepo) *fiber.App {
	manager := query.NewCacheManager(cache.NewMemoryCache(time.Minute), time.Minute, zap.NewNop())
	service := query.NewService(repo, manager, zap.NewNop())
	h := NewQueryHandler(service, zap.NewNop())

	app := fiber.New()
	app.Post("/timeseries", h.Timeseries)
	app.Post("/aggregate", h.Aggregate)
	app.Post("/user/activity", h.UserActivity)
	app.Post("/shop/performance", h.ShopPerformance)
	app.Get("/data/sources", h.Sources)
	return app
}

func TestQueryHandler_UserActivityCombinesBothBlocks(t *testing.T) {
	repo := &stubAnalyticsRepo{}
	app := newQueryTestApp(repo)

	body := []byte(`{"user_id": 42}`)
	req := httptest.NewRequest("POST", "/user/activity", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	assert.Equal(t, 1, repo.realtimeCalls)
	assert.Equal(t, 1, repo.historicalCalls)
	assert.Equal(t, 24, repo.lastHours)

	var envelope struct {
		Data query.UserActivityResult `json:"data"`
	}
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.NotNil(t, envelope.Data.Realtime)
	assert.NotNil(t, envelope.Data.Historical)
	assert.Equal(t, uint64(3), envelope.Data.Realtime.Events)
	assert.Equal(t, uint64(9), envelope.Data.Historical.TotalDaysActive)
}

func TestQueryHandler_UserActivityRejectsMissingUser(t *testing.T) {
	app := newQueryTestApp(&stubAnalyticsRepo{})

	req := httptest.NewRequest("POST", "/user/activity", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestQueryHandler_TimeseriesReadsBody(t *testing.T) {
	app := newQueryTestApp(&stubAnalyticsRepo{})

	body := []byte(`{
		"metric": "visits",
		"granularity": "hour",
		"start_time": "2026-08-23 00:00:00",
		"end_time": "2026-08-23 06:00:00"
	}`)
	req := httptest.NewRequest("POST", "/timeseries", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestQueryHandler_TimeseriesRejectsBadRange(t *testing.T) {
	app := newQueryTestApp(&stubAnalyticsRepo{})

	body := []byte(`{
		"metric": "visits",
		"granularity": "hour",
		"start_time": "2026-08-23",
		"end_time": "2026-08-22"
	}`)
	req := httptest.NewRequest("POST", "/timeseries", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
