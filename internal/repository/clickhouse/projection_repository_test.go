package clickhouse

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func ddlFor(t *testing.T, table string) string {
	t.Helper()
	for _, ddl := range projectionDDL {
		if strings.Contains(ddl, table+" (") {
			return ddl
		}
	}
	t.Fatalf("no DDL for table %s", table)
	return ""
}

func TestShopPerformanceSchemaCarriesPeriod(t *testing.T) {
	ddl := ddlFor(t, "shop_performance_metrics")
	for _, col := range []string{"period_start", "period_end", "total_impressions", "conversion_rate", "peak_hour", "avg_dwell_time"} {
		assert.Contains(t, ddl, col)
	}

	assert.Contains(t, calculateShopPerformanceQuery, "period_start")
	assert.Contains(t, calculateShopPerformanceQuery, "period_end")
}

func TestUserJourneySchemaAndOrdering(t *testing.T) {
	ddl := ddlFor(t, "user_journey_summary")
	for _, col := range []string{"journey_date", "shops_visited", "total_distance", "journey_duration"} {
		assert.Contains(t, ddl, col)
	}

	assert.Contains(t, aggregateUserJourneysQuery, "arraySort",
		"shops must keep visit order, not set order")
	assert.NotContains(t, aggregateUserJourneysQuery, "groupUniqArray")
	assert.Contains(t, aggregateUserJourneysQuery, "HAVING length(shops_visited) > 0",
		"users with no shop contact emit no journey row")
}

func TestMonthlyRefreshLimitedToCurrentMonth(t *testing.T) {
	assert.Contains(t, refreshMonthlyQuery, "toStartOfMonth(event_time) = toStartOfMonth(now())")
	assert.Contains(t, refreshMonthlyQuery, "shop_id")
}
