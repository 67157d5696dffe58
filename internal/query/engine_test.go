package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShouldUseStream(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name        string
		granularity string
		start       time.Time
		end         time.Time
		want        bool
	}{
		{"short window always streams", "day", now.Add(-40 * 24 * time.Hour), now.Add(-40*24*time.Hour + 6*time.Hour), true},
		{"exactly 24h streams", "month", now.Add(-60 * 24 * time.Hour), now.Add(-60*24*time.Hour + 24*time.Hour), true},
		{"recent minute range streams", "minute", now.Add(-3 * 24 * time.Hour), now, true},
		{"recent hour range streams", "hour", now.Add(-6 * 24 * time.Hour), now, true},
		{"recent day granularity over 24h batches", "day", now.Add(-3 * 24 * time.Hour), now, false},
		{"old hour range batches regardless of width", "hour", now.Add(-90 * 24 * time.Hour), now.Add(-85 * 24 * time.Hour), false},
		{"old minute range batches", "minute", now.Add(-10 * 24 * time.Hour), now.Add(-8 * 24 * time.Hour), false},
		{"wide month range batches", "month", now.Add(-30 * 24 * time.Hour), now, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ShouldUseStream(tt.granularity, tt.start, tt.end)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSource(t *testing.T) {
	assert.Equal(t, "stream", Source(true))
	assert.Equal(t, "batch", Source(false))
}
