package clickhouse

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nearyou-pipeline/internal/domain"
	"github.com/nearyou-pipeline/internal/domain/repository"
	apperrors "github.com/nearyou-pipeline/internal/pkg/errors"
)

type analyticsRepository struct {
	db *DB
}

func NewAnalyticsRepository(db *DB) repository.AnalyticsRepository {
	return &analyticsRepository{db: db}
}

// bucketExpr maps a granularity onto a ClickHouse time bucket.
func bucketExpr(granularity string) (string, error) {
	switch granularity {
	case "minute":
		return "toStartOfMinute(event_time)", nil
	case "hour":
		return "toStartOfHour(event_time)", nil
	case "day":
		return "toDateTime(toDate(event_time))", nil
	case "month":
		return "toDateTime(toStartOfMonth(event_time))", nil
	default:
		return "", apperrors.ErrInvalidRequest.WithReason(
			fmt.Sprintf("unsupported granularity: %s", granularity))
	}
}

// metricExpr maps a metric name onto an aggregate over the event log.
func metricExpr(metric string) (string, error) {
	switch metric {
	case "visits":
		return "toFloat64(count())", nil
	case "unique_users":
		return "toFloat64(uniq(user_id))", nil
	case "avg_distance":
		return "avg(poi_range)", nil
	case "messages_sent":
		return "toFloat64(countIf(poi_info != ''))", nil
	default:
		return "", apperrors.ErrInvalidRequest.WithReason(
			fmt.Sprintf("unsupported metric: %s", metric))
	}
}

func (r *analyticsRepository) StreamTimeseries(ctx context.Context, metric, granularity string, start, end time.Time, shopID string) ([]domain.TimeSeriesPoint, error) {
	bucket, err := bucketExpr(granularity)
	if err != nil {
		return nil, err
	}
	value, err := metricExpr(metric)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT %s AS bucket, %s AS value
		FROM user_events
		WHERE event_time >= ? AND event_time < ?`, bucket, value)
	args := []interface{}{start, end}

	if shopID != "" {
		query += " AND poi_name = ?"
		args = append(args, shopID)
	}
	query += " GROUP BY bucket ORDER BY bucket"

	rows, err := r.db.Conn().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query stream timeseries: %w", err)
	}
	defer rows.Close()

	var points []domain.TimeSeriesPoint
	for rows.Next() {
		var (
			bucket time.Time
			value  float64
		)
		if err := rows.Scan(&bucket, &value); err != nil {
			return nil, fmt.Errorf("failed to scan timeseries row: %w", err)
		}
		points = append(points, domain.TimeSeriesPoint{Timestamp: bucket, Value: value})
	}

	return points, rows.Err()
}

// batchMetricExpr maps a metric onto the pre-aggregated column of the
// projection table chosen for the granularity.
func batchMetricExpr(table, metric string) (string, error) {
	switch table {
	case "shop_visits_hourly":
		switch metric {
		case "visits":
			return "toFloat64(sum(visits))", nil
		case "unique_users":
			return "toFloat64(sum(unique_visitors))", nil
		case "avg_distance":
			return "avg(avg_distance)", nil
		}
	case "user_activity_daily":
		switch metric {
		case "visits":
			return "toFloat64(sum(total_events))", nil
		case "unique_users":
			return "toFloat64(uniq(user_id))", nil
		case "avg_distance":
			return "sum(total_distance) / sum(total_events)", nil
		}
	case "monthly_shop_summary":
		switch metric {
		case "visits":
			return "toFloat64(sum(total_visits))", nil
		case "unique_users":
			return "toFloat64(sum(unique_visitors))", nil
		case "avg_distance":
			return "avg(avg_distance)", nil
		}
	}
	return "", apperrors.ErrInvalidRequest.WithReason(
		fmt.Sprintf("metric %s not available on %s", metric, table))
}

func (r *analyticsRepository) BatchTimeseries(ctx context.Context, metric, granularity string, start, end time.Time, shopID string) ([]domain.TimeSeriesPoint, error) {
	var table, bucket, timeCol, shopCol string
	switch granularity {
	case "hour":
		table, bucket, timeCol, shopCol = "shop_visits_hourly", "hour", "hour", "shop_id"
	case "day":
		table, bucket, timeCol, shopCol = "user_activity_daily", "toDateTime(day)", "day", ""
	default:
		table, bucket, timeCol, shopCol = "monthly_shop_summary", "toDateTime(month)", "month", "shop_id"
	}

	value, err := batchMetricExpr(table, metric)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT %s AS bucket, %s AS value
		FROM %s
		WHERE %s >= ? AND %s < ?`, bucket, value, table, timeCol, timeCol)
	args := []interface{}{start, end}

	if shopID != "" {
		if shopCol == "" {
			return nil, apperrors.ErrInvalidRequest.WithReason(
				"shop filter not available at daily granularity")
		}
		query += fmt.Sprintf(" AND %s = ?", shopCol)
		args = append(args, shopID)
	}
	query += " GROUP BY bucket ORDER BY bucket"

	rows, err := r.db.Conn().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query batch timeseries: %w", err)
	}
	defer rows.Close()

	var points []domain.TimeSeriesPoint
	for rows.Next() {
		var (
			bucket time.Time
			value  float64
		)
		if err := rows.Scan(&bucket, &value); err != nil {
			return nil, fmt.Errorf("failed to scan timeseries row: %w", err)
		}
		points = append(points, domain.TimeSeriesPoint{Timestamp: bucket, Value: value})
	}

	return points, rows.Err()
}

// dimensionExpr maps a grouping dimension onto an event log column.
func dimensionExpr(dim string) (string, error) {
	switch dim {
	case "shop":
		return "poi_name", nil
	case "hour":
		return "toHour(event_time)", nil
	case "day":
		return "toDate(event_time)", nil
	case "user":
		return "user_id", nil
	default:
		return "", apperrors.ErrInvalidRequest.WithReason(
			fmt.Sprintf("unsupported dimension: %s", dim))
	}
}

// aggregateValueExpr maps an aggregation type onto the value column.
func aggregateValueExpr(aggType string) (string, error) {
	switch aggType {
	case "count":
		return "toFloat64(count())", nil
	case "unique_users":
		return "toFloat64(uniq(user_id))", nil
	case "avg_distance":
		return "avg(poi_range)", nil
	case "messages_sent":
		return "toFloat64(countIf(poi_info != ''))", nil
	default:
		return "", apperrors.ErrInvalidRequest.WithReason(
			fmt.Sprintf("unsupported aggregation: %s", aggType))
	}
}

func (r *analyticsRepository) StreamAggregate(ctx context.Context, aggType string, dimensions []string, start, end time.Time) ([]domain.AggregatePoint, error) {
	return r.aggregate(ctx, "user_events", aggType, dimensions, start, end)
}

// BatchAggregate answers the projection-backed metrics. Each reads the
// pre-aggregated table the batch job maintains for it.
func (r *analyticsRepository) BatchAggregate(ctx context.Context, aggType string, dimensions []string, start, end time.Time) ([]domain.AggregatePoint, error) {
	switch aggType {
	case "monthly_summary":
		return r.monthlySummaryAggregate(ctx, start, end)
	case "shop_performance":
		return r.shopPerformanceAggregate(ctx)
	case "user_journeys":
		return r.userJourneysAggregate(ctx, start, end)
	default:
		return nil, apperrors.ErrInvalidRequest.WithReason(
			fmt.Sprintf("no projection backs metric %s", aggType))
	}
}

const monthlySummaryAggregateQuery = `
	SELECT toDateTime(month) AS month, shop_id, total_visits, unique_visitors, avg_distance
	FROM monthly_shop_summary
	WHERE month >= toDate(?) AND month <= toDate(?)
	ORDER BY calculated_at DESC
	LIMIT 1 BY month, shop_id
`

func (r *analyticsRepository) monthlySummaryAggregate(ctx context.Context, start, end time.Time) ([]domain.AggregatePoint, error) {
	rows, err := r.db.Conn().Query(ctx, monthlySummaryAggregateQuery, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query monthly summary: %w", err)
	}
	defer rows.Close()

	var points []domain.AggregatePoint
	for rows.Next() {
		var (
			month          time.Time
			shopID         string
			visits, unique uint64
			avgDistance    float64
		)
		if err := rows.Scan(&month, &shopID, &visits, &unique, &avgDistance); err != nil {
			return nil, fmt.Errorf("failed to scan monthly summary row: %w", err)
		}
		points = append(points, domain.AggregatePoint{
			Dimensions: map[string]interface{}{
				"month":        month.Format("2006-01"),
				"shop_id":      shopID,
				"avg_distance": avgDistance,
			},
			Value: float64(visits),
			Count: unique,
		})
	}

	return points, rows.Err()
}

const shopPerformanceAggregateQuery = `
	SELECT shop_id, period_start, period_end, total_impressions, conversion_rate, peak_hour, avg_dwell_time
	FROM shop_performance_metrics
	ORDER BY updated_at DESC
	LIMIT 1 BY shop_id
`

func (r *analyticsRepository) shopPerformanceAggregate(ctx context.Context) ([]domain.AggregatePoint, error) {
	rows, err := r.db.Conn().Query(ctx, shopPerformanceAggregateQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query shop performance: %w", err)
	}
	defer rows.Close()

	var points []domain.AggregatePoint
	for rows.Next() {
		var m domain.ShopMetrics
		if err := rows.Scan(&m.ShopID, &m.PeriodStart, &m.PeriodEnd, &m.TotalImpressions, &m.ConversionRate, &m.PeakHour, &m.AvgDwellTime); err != nil {
			return nil, fmt.Errorf("failed to scan shop performance row: %w", err)
		}
		points = append(points, domain.AggregatePoint{
			Dimensions: map[string]interface{}{
				"shop_id":        m.ShopID,
				"period_start":   m.PeriodStart,
				"period_end":     m.PeriodEnd,
				"peak_hour":      m.PeakHour,
				"avg_dwell_time": m.AvgDwellTime,
			},
			Value: m.ConversionRate,
			Count: m.TotalImpressions,
		})
	}

	return points, rows.Err()
}

const userJourneysAggregateQuery = `
	SELECT user_id, toDateTime(journey_date) AS journey_date, shops_visited, total_distance, journey_duration
	FROM user_journey_summary
	WHERE journey_date >= toDate(?) AND journey_date <= toDate(?)
	ORDER BY user_id, journey_date
`

func (r *analyticsRepository) userJourneysAggregate(ctx context.Context, start, end time.Time) ([]domain.AggregatePoint, error) {
	rows, err := r.db.Conn().Query(ctx, userJourneysAggregateQuery, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query user journeys: %w", err)
	}
	defer rows.Close()

	var points []domain.AggregatePoint
	for rows.Next() {
		var (
			userID   uint64
			day      time.Time
			shops    []string
			distance float64
			duration uint64
		)
		if err := rows.Scan(&userID, &day, &shops, &distance, &duration); err != nil {
			return nil, fmt.Errorf("failed to scan user journey row: %w", err)
		}
		points = append(points, domain.AggregatePoint{
			Dimensions: map[string]interface{}{
				"user_id":          userID,
				"journey_date":     day.Format("2006-01-02"),
				"shops_visited":    shops,
				"journey_duration": duration,
			},
			Value: distance,
			Count: uint64(len(shops)),
		})
	}

	return points, rows.Err()
}

func (r *analyticsRepository) aggregate(ctx context.Context, table, aggType string, dimensions []string, start, end time.Time) ([]domain.AggregatePoint, error) {
	value, err := aggregateValueExpr(aggType)
	if err != nil {
		return nil, err
	}

	dimCols := make([]string, 0, len(dimensions))
	for _, dim := range dimensions {
		expr, err := dimensionExpr(dim)
		if err != nil {
			return nil, err
		}
		dimCols = append(dimCols, fmt.Sprintf("toString(%s) AS %s", expr, dim))
	}

	selectCols := strings.Join(dimCols, ", ")
	groupCols := strings.Join(dimensions, ", ")

	query := fmt.Sprintf(`
		SELECT %s, %s AS value, count() AS hits
		FROM %s
		WHERE event_time >= ? AND event_time < ?
		GROUP BY %s
		ORDER BY value DESC`, selectCols, value, table, groupCols)

	rows, err := r.db.Conn().Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query aggregate: %w", err)
	}
	defer rows.Close()

	var points []domain.AggregatePoint
	for rows.Next() {
		dims := make([]string, len(dimensions))
		dest := make([]interface{}, 0, len(dimensions)+2)
		for i := range dims {
			dest = append(dest, &dims[i])
		}
		var (
			value float64
			hits  uint64
		)
		dest = append(dest, &value, &hits)

		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan aggregate row: %w", err)
		}

		point := domain.AggregatePoint{
			Dimensions: make(map[string]interface{}, len(dimensions)),
			Value:      value,
			Count:      hits,
		}
		for i, dim := range dimensions {
			point.Dimensions[dim] = dims[i]
		}
		points = append(points, point)
	}

	return points, rows.Err()
}

const userRealtimeQuery = `
	SELECT
		argMax(latitude, event_time)  AS last_lat,
		argMax(longitude, event_time) AS last_lon,
		groupUniqArrayIf(poi_name, poi_name != '') AS recent_shops,
		count() AS events,
		countIf(poi_info != '') AS messages
	FROM user_events
	WHERE user_id = ? AND event_time >= now() - INTERVAL ? HOUR
`

func (r *analyticsRepository) UserRealtimeActivity(ctx context.Context, userID uint64, lastHours int) (*domain.UserRealtimeActivity, error) {
	rows, err := r.db.Conn().Query(ctx, userRealtimeQuery, userID, lastHours)
	if err != nil {
		return nil, fmt.Errorf("failed to query user activity: %w", err)
	}
	defer rows.Close()

	activity := &domain.UserRealtimeActivity{RecentShops: []string{}}
	if !rows.Next() {
		return activity, nil
	}

	var (
		lat, lon float64
		shops    []string
		events   uint64
		messages uint64
	)
	if err := rows.Scan(&lat, &lon, &shops, &events, &messages); err != nil {
		return nil, fmt.Errorf("failed to scan user activity: %w", err)
	}

	activity.Events = events
	activity.MessagesReceived = messages
	if shops != nil {
		activity.RecentShops = shops
	}
	if events > 0 {
		activity.LastPosition = &domain.LatLon{Lat: lat, Lon: lon}
	}

	return activity, nil
}

const userHistoricalQuery = `
	SELECT
		toUInt64(uniq(day)) AS days_active,
		toUInt64(sum(unique_shops)) AS shops_visited,
		sum(total_distance) / 1000 AS distance_km
	FROM user_activity_daily
	WHERE user_id = ?
`

const favoriteShopsQuery = `
	SELECT poi_name, count() AS visits
	FROM user_events
	WHERE user_id = ? AND poi_name != ''
	GROUP BY poi_name
	ORDER BY visits DESC
	LIMIT 5
`

const peakHourQuery = `
	SELECT toUInt8(argMax(hour, hits)) AS peak_hour
	FROM (
		SELECT toHour(event_time) AS hour, count() AS hits
		FROM user_events
		WHERE user_id = ?
		GROUP BY hour
	)
`

func (r *analyticsRepository) UserHistoricalSummary(ctx context.Context, userID uint64) (*domain.UserHistoricalSummary, error) {
	summary := &domain.UserHistoricalSummary{FavoriteShops: []domain.ShopVisit{}}

	rows, err := r.db.Conn().Query(ctx, userHistoricalQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query historical summary: %w", err)
	}
	if rows.Next() {
		if err := rows.Scan(&summary.TotalDaysActive, &summary.TotalShopsVisited, &summary.TotalDistanceKm); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan historical summary: %w", err)
		}
	}
	rows.Close()

	favRows, err := r.db.Conn().Query(ctx, favoriteShopsQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query favorite shops: %w", err)
	}
	for favRows.Next() {
		var visit domain.ShopVisit
		if err := favRows.Scan(&visit.Name, &visit.Visits); err != nil {
			favRows.Close()
			return nil, fmt.Errorf("failed to scan favorite shop: %w", err)
		}
		summary.FavoriteShops = append(summary.FavoriteShops, visit)
	}
	favRows.Close()

	peakRows, err := r.db.Conn().Query(ctx, peakHourQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query peak hour: %w", err)
	}
	if peakRows.Next() {
		if err := peakRows.Scan(&summary.PeakActivityHour); err != nil {
			peakRows.Close()
			return nil, fmt.Errorf("failed to scan peak hour: %w", err)
		}
	}
	peakRows.Close()

	return summary, nil
}

func (r *analyticsRepository) ShopPerformance(ctx context.Context, shopIDs []string) ([]domain.ShopMetrics, error) {
	query := `
		SELECT shop_id, period_start, period_end, total_impressions, conversion_rate, peak_hour, avg_dwell_time
		FROM shop_performance_metrics`
	var args []interface{}
	if len(shopIDs) > 0 {
		query += " WHERE shop_id IN (?)"
		args = append(args, shopIDs)
	}
	query += " ORDER BY updated_at DESC LIMIT 1 BY shop_id"

	rows, err := r.db.Conn().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query shop performance: %w", err)
	}
	defer rows.Close()

	var metrics []domain.ShopMetrics
	for rows.Next() {
		var m domain.ShopMetrics
		if err := rows.Scan(&m.ShopID, &m.PeriodStart, &m.PeriodEnd, &m.TotalImpressions, &m.ConversionRate, &m.PeakHour, &m.AvgDwellTime); err != nil {
			return nil, fmt.Errorf("failed to scan shop metrics: %w", err)
		}
		metrics = append(metrics, m)
	}

	return metrics, rows.Err()
}

const shopTrendsQuery = `
	SELECT
		poi_name AS shop_id,
		countIf(event_time >= now() - INTERVAL 7 DAY)  AS current_visits,
		countIf(event_time <  now() - INTERVAL 7 DAY)  AS previous_visits
	FROM user_events
	WHERE poi_name != '' AND event_time >= now() - INTERVAL 14 DAY
	GROUP BY poi_name
`

func (r *analyticsRepository) ShopTrends(ctx context.Context, shopIDs []string) ([]domain.ShopTrend, error) {
	query := shopTrendsQuery
	var args []interface{}
	if len(shopIDs) > 0 {
		query += " HAVING shop_id IN (?)"
		args = append(args, shopIDs)
	}

	rows, err := r.db.Conn().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query shop trends: %w", err)
	}
	defer rows.Close()

	var trends []domain.ShopTrend
	for rows.Next() {
		var (
			shopID             string
			current, previous  uint64
		)
		if err := rows.Scan(&shopID, &current, &previous); err != nil {
			return nil, fmt.Errorf("failed to scan shop trend: %w", err)
		}
		trends = append(trends, buildTrend(shopID, current, previous))
	}

	return trends, rows.Err()
}

// buildTrend classifies week-over-week movement. Change beyond 5% in
// either direction counts as a trend, anything inside is stable.
func buildTrend(shopID string, current, previous uint64) domain.ShopTrend {
	trend := domain.ShopTrend{ShopID: shopID}

	switch {
	case previous == 0 && current == 0:
		trend.TrendDirection = "stable"
		trend.PercentChange = 0
	case previous == 0:
		trend.TrendDirection = "up"
		trend.PercentChange = 100
	default:
		change := (float64(current) - float64(previous)) / float64(previous) * 100
		trend.PercentChange = change
		switch {
		case change > 5:
			trend.TrendDirection = "up"
		case change < -5:
			trend.TrendDirection = "down"
		default:
			trend.TrendDirection = "stable"
		}
	}

	// Naive next-week forecast: carry the observed rate of change forward.
	forecast := uint64(float64(current) * (1 + trend.PercentChange/100))
	trend.ForecastNextPeriod = &forecast

	return trend
}
