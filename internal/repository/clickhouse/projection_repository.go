package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/nearyou-pipeline/internal/domain/repository"
)

type projectionRepository struct {
	db *DB
}

func NewProjectionRepository(db *DB) repository.ProjectionRepository {
	return &projectionRepository{db: db}
}

// Derived tables. The ReplacingMergeTree engines keep the latest
// calculation per key so refreshes behave like upserts; journeys are
// append-only.
var projectionDDL = []string{
	`CREATE TABLE IF NOT EXISTS monthly_shop_summary (
		month           Date,
		shop_id         String,
		total_visits    UInt64,
		unique_visitors UInt64,
		avg_distance    Float64,
		calculated_at   DateTime DEFAULT now()
	) ENGINE = ReplacingMergeTree(calculated_at)
	ORDER BY (month, shop_id)`,

	`CREATE TABLE IF NOT EXISTS shop_performance_metrics (
		shop_id           String,
		period_start      DateTime,
		period_end        DateTime,
		total_impressions UInt64,
		conversion_rate   Float64,
		peak_hour         UInt8,
		avg_dwell_time    Float64,
		updated_at        DateTime DEFAULT now()
	) ENGINE = ReplacingMergeTree(updated_at)
	ORDER BY shop_id`,

	`CREATE TABLE IF NOT EXISTS user_journey_summary (
		user_id          UInt64,
		journey_date     Date,
		shops_visited    Array(String),
		total_distance   Float64,
		journey_duration UInt64,
		created_at       DateTime DEFAULT now()
	) ENGINE = MergeTree()
	ORDER BY (user_id, journey_date)`,

	`CREATE TABLE IF NOT EXISTS shop_visits_hourly (
		hour            DateTime,
		shop_id         String,
		visits          UInt64,
		unique_visitors UInt64,
		avg_distance    Float64,
		calculated_at   DateTime DEFAULT now()
	) ENGINE = ReplacingMergeTree(calculated_at)
	ORDER BY (hour, shop_id)`,

	`CREATE TABLE IF NOT EXISTS user_activity_daily (
		user_id        UInt64,
		day            Date,
		total_events   UInt64,
		unique_shops   UInt64,
		total_distance Float64,
		calculated_at  DateTime DEFAULT now()
	) ENGINE = ReplacingMergeTree(calculated_at)
	ORDER BY (user_id, day)`,
}

func (r *projectionRepository) EnsureTables(ctx context.Context) error {
	for _, ddl := range projectionDDL {
		if err := r.db.Conn().Exec(ctx, ddl); err != nil {
			return fmt.Errorf("failed to ensure projection table: %w", err)
		}
	}
	return nil
}

// refreshMonthlyQuery recomputes the current calendar month only;
// closed months keep their last calculation.
const refreshMonthlyQuery = `
	INSERT INTO monthly_shop_summary (month, shop_id, total_visits, unique_visitors, avg_distance)
	SELECT
		toStartOfMonth(event_time) AS month,
		poi_name                   AS shop_id,
		count()                    AS total_visits,
		uniq(user_id)              AS unique_visitors,
		avg(poi_range)             AS avg_distance
	FROM user_events
	WHERE poi_name != ''
	  AND toStartOfMonth(event_time) = toStartOfMonth(now())
	GROUP BY month, shop_id
`

func (r *projectionRepository) RefreshMonthlySummary(ctx context.Context) error {
	if err := r.db.Conn().Exec(ctx, refreshMonthlyQuery); err != nil {
		return fmt.Errorf("failed to refresh monthly summary: %w", err)
	}
	return nil
}

// calculateShopPerformanceQuery joins the per-shop totals of the window
// with the hour bucket that saw the most visits.
const calculateShopPerformanceQuery = `
	INSERT INTO shop_performance_metrics
		(shop_id, period_start, period_end, total_impressions, conversion_rate, peak_hour, avg_dwell_time)
	SELECT
		totals.shop_id,
		now() - INTERVAL ? DAY AS period_start,
		now()                  AS period_end,
		totals.total_impressions,
		totals.conversion_rate,
		peaks.peak_hour,
		totals.avg_dwell_time
	FROM (
		SELECT
			poi_name                          AS shop_id,
			count()                           AS total_impressions,
			countIf(poi_info != '') / count() AS conversion_rate,
			avg(poi_range)                    AS avg_dwell_time
		FROM user_events
		WHERE poi_name != '' AND event_time >= now() - INTERVAL ? DAY
		GROUP BY poi_name
	) AS totals
	INNER JOIN (
		SELECT shop_id, toUInt8(argMax(hour, hits)) AS peak_hour
		FROM (
			SELECT
				poi_name             AS shop_id,
				toHour(event_time)   AS hour,
				count()              AS hits
			FROM user_events
			WHERE poi_name != '' AND event_time >= now() - INTERVAL ? DAY
			GROUP BY shop_id, hour
		)
		GROUP BY shop_id
	) AS peaks ON totals.shop_id = peaks.shop_id
`

func (r *projectionRepository) CalculateShopPerformance(ctx context.Context, days int) error {
	if err := r.db.Conn().Exec(ctx, calculateShopPerformanceQuery, days, days, days); err != nil {
		return fmt.Errorf("failed to calculate shop performance: %w", err)
	}
	return nil
}

// aggregateUserJourneysQuery emits one row per user and day with the
// shops in visit order; users who reached no shop emit nothing.
const aggregateUserJourneysQuery = `
	INSERT INTO user_journey_summary
		(user_id, journey_date, shops_visited, total_distance, journey_duration)
	SELECT
		user_id,
		toDate(event_time) AS journey_date,
		arrayMap(t -> t.2,
			arraySort(groupArrayIf((event_time, poi_name), poi_name != ''))) AS shops_visited,
		sum(poi_range) AS total_distance,
		toUInt64(dateDiff('second', min(event_time), max(event_time))) AS journey_duration
	FROM user_events
	WHERE toDate(event_time) = ?
	GROUP BY user_id, journey_date
	HAVING length(shops_visited) > 0
`

func (r *projectionRepository) AggregateUserJourneys(ctx context.Context, day time.Time) error {
	if err := r.db.Conn().Exec(ctx, aggregateUserJourneysQuery, day.Format("2006-01-02")); err != nil {
		return fmt.Errorf("failed to aggregate user journeys: %w", err)
	}
	return nil
}

const refreshHourlyVisitsQuery = `
	INSERT INTO shop_visits_hourly (hour, shop_id, visits, unique_visitors, avg_distance)
	SELECT
		toStartOfHour(event_time) AS hour,
		poi_name                  AS shop_id,
		count()                   AS visits,
		uniq(user_id)             AS unique_visitors,
		avg(poi_range)            AS avg_distance
	FROM user_events
	WHERE poi_name != ''
	GROUP BY hour, shop_id
`

func (r *projectionRepository) RefreshHourlyVisits(ctx context.Context) error {
	if err := r.db.Conn().Exec(ctx, refreshHourlyVisitsQuery); err != nil {
		return fmt.Errorf("failed to refresh hourly visits: %w", err)
	}
	return nil
}

const refreshDailyActivityQuery = `
	INSERT INTO user_activity_daily (user_id, day, total_events, unique_shops, total_distance)
	SELECT
		user_id,
		toDate(event_time)                           AS day,
		count()                                      AS total_events,
		uniqIf(poi_name, poi_name != '')             AS unique_shops,
		sum(poi_range)                               AS total_distance
	FROM user_events
	GROUP BY user_id, day
`

func (r *projectionRepository) RefreshDailyActivity(ctx context.Context) error {
	if err := r.db.Conn().Exec(ctx, refreshDailyActivityQuery); err != nil {
		return fmt.Errorf("failed to refresh daily activity: %w", err)
	}
	return nil
}
