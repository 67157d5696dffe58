package query

import (
	"time"
)

const (
	// streamRangeLimit is the window always answered from the raw log.
	streamRangeLimit = 24 * time.Hour

	// fineGrainLimit is how far back fine granularities still prefer
	// the raw log over projections.
	fineGrainLimit = 7 * 24 * time.Hour
)

// ShouldUseStream routes a query: recent fine-grained ranges and short
// windows read the raw event log, everything else reads the projections.
func ShouldUseStream(granularity string, start, end time.Time) bool {
	if time.Since(start) <= fineGrainLimit && (granularity == "minute" || granularity == "hour") {
		return true
	}
	return end.Sub(start) <= streamRangeLimit
}

// Source names the routing result for response metadata.
func Source(stream bool) string {
	if stream {
		return "stream"
	}
	return "batch"
}
