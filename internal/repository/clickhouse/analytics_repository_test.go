package clickhouse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBucketExpr(t *testing.T) {
	for granularity, want := range map[string]string{
		"minute": "toStartOfMinute(event_time)",
		"hour":   "toStartOfHour(event_time)",
		"day":    "toDateTime(toDate(event_time))",
		"month":  "toDateTime(toStartOfMonth(event_time))",
	} {
		got, err := bucketExpr(granularity)
		assert.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := bucketExpr("fortnight")
	assert.Error(t, err)
}

func TestMetricExpr_RejectsUnknown(t *testing.T) {
	_, err := metricExpr("revenue")
	assert.Error(t, err)
}

func TestBatchMetricExpr_TableColumns(t *testing.T) {
	got, err := batchMetricExpr("shop_visits_hourly", "visits")
	assert.NoError(t, err)
	assert.Equal(t, "toFloat64(sum(visits))", got)

	_, err = batchMetricExpr("shop_visits_hourly", "messages_sent")
	assert.Error(t, err, "projections do not carry message counts")
}

func TestUserHistoricalQueryCountsDistinctDays(t *testing.T) {
	// The daily projection keeps stale rows until its merge runs, so a
	// plain count() would overstate active days.
	assert.Contains(t, userHistoricalQuery, "uniq(day)")
	assert.NotContains(t, userHistoricalQuery, "count() AS days_active")
}

func TestBuildTrend(t *testing.T) {
	up := buildTrend("Bar Roma", 120, 100)
	assert.Equal(t, "up", up.TrendDirection)
	assert.InDelta(t, 20, up.PercentChange, 0.001)
	assert.Equal(t, uint64(144), *up.ForecastNextPeriod)

	down := buildTrend("Bar Roma", 80, 100)
	assert.Equal(t, "down", down.TrendDirection)

	stable := buildTrend("Bar Roma", 103, 100)
	assert.Equal(t, "stable", stable.TrendDirection)

	fresh := buildTrend("Bar Roma", 50, 0)
	assert.Equal(t, "up", fresh.TrendDirection)
	assert.InDelta(t, 100, fresh.PercentChange, 0.001)

	quiet := buildTrend("Bar Roma", 0, 0)
	assert.Equal(t, "stable", quiet.TrendDirection)
}
