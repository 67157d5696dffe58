package domain

import "time"

// TimeSeriesPoint is one bucket of a timeseries answer.
type TimeSeriesPoint struct {
	Timestamp time.Time              `json:"timestamp"`
	Value     float64                `json:"value"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// AggregatePoint is one group of an aggregate answer.
type AggregatePoint struct {
	Dimensions map[string]interface{} `json:"dimensions"`
	Value      float64                `json:"value"`
	Count      uint64                 `json:"count"`
}

// UserRealtimeActivity summarises the last hours of raw events.
type UserRealtimeActivity struct {
	LastPosition     *LatLon  `json:"last_position"`
	RecentShops      []string `json:"recent_shops"`
	Events           uint64   `json:"events"`
	MessagesReceived uint64   `json:"messages_received"`
}

type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// UserHistoricalSummary is built from the daily projection plus
// favourite shops and peak hour from the raw event log.
type UserHistoricalSummary struct {
	TotalDaysActive   uint64      `json:"total_days_active"`
	TotalShopsVisited uint64      `json:"total_shops_visited"`
	TotalDistanceKm   float64     `json:"total_distance_km"`
	FavoriteShops     []ShopVisit `json:"favorite_shops"`
	PeakActivityHour  uint8       `json:"peak_activity_hour"`
}

type ShopVisit struct {
	Name   string `json:"name"`
	Visits uint64 `json:"visits"`
}

// ShopMetrics is the latest shop_performance_metrics row per shop.
type ShopMetrics struct {
	ShopID           string    `json:"shop_id"`
	PeriodStart      time.Time `json:"period_start"`
	PeriodEnd        time.Time `json:"period_end"`
	TotalImpressions uint64    `json:"total_impressions"`
	ConversionRate   float64   `json:"conversion_rate"`
	PeakHour         uint8     `json:"peak_hour"`
	AvgDwellTime     float64   `json:"avg_dwell_time"`
}

// ShopTrend compares the current week against the previous one.
type ShopTrend struct {
	ShopID             string  `json:"shop_id"`
	TrendDirection     string  `json:"trend_direction"` // up, down, stable
	PercentChange      float64 `json:"percent_change"`
	ForecastNextPeriod *uint64 `json:"forecast_next_period"`
}
