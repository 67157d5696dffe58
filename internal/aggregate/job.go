package aggregate

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/nearyou-pipeline/internal/domain/repository"
	"github.com/nearyou-pipeline/internal/worker"
)

// performanceWindowDays is the lookback for shop performance metrics.
const performanceWindowDays = 7

// Job refreshes the ClickHouse projections on a fixed interval. The
// first refresh runs immediately so a fresh deployment has data.
type Job struct {
	*worker.BaseWorker
	projections repository.ProjectionRepository
	interval    time.Duration
}

func NewJob(projections repository.ProjectionRepository, interval time.Duration, logger *zap.Logger) *Job {
	return &Job{
		BaseWorker:  worker.NewBaseWorker("projection-aggregator", logger),
		projections: projections,
		interval:    interval,
	}
}

func (j *Job) Start(ctx context.Context) error {
	if err := j.projections.EnsureTables(ctx); err != nil {
		return err
	}

	j.RunOnce(ctx)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.RunOnce(ctx)
		case <-j.StopChan():
			j.Logger().Info("Aggregator stopped")
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

// RunOnce executes every refresh, logging failures individually so one
// broken projection does not block the others.
func (j *Job) RunOnce(ctx context.Context) {
	start := time.Now()

	steps := []struct {
		name string
		run  func(context.Context) error
	}{
		{"monthly_shop_summary", j.projections.RefreshMonthlySummary},
		{"shop_performance_metrics", func(ctx context.Context) error {
			return j.projections.CalculateShopPerformance(ctx, performanceWindowDays)
		}},
		{"user_journey_summary", func(ctx context.Context) error {
			return j.projections.AggregateUserJourneys(ctx, time.Now().UTC().AddDate(0, 0, -1))
		}},
		{"shop_visits_hourly", j.projections.RefreshHourlyVisits},
		{"user_activity_daily", j.projections.RefreshDailyActivity},
	}

	for _, step := range steps {
		if err := step.run(ctx); err != nil {
			j.Logger().Error("Projection refresh failed",
				zap.String("projection", step.name),
				zap.Error(err))
			continue
		}
		j.Logger().Debug("Projection refreshed", zap.String("projection", step.name))
	}

	j.Logger().Info("Aggregation cycle finished",
		zap.Duration("took", time.Since(start)))
}
