package domain

import "time"

// GPSEvent is a raw position fix as produced on the broker topic.
// Profile attributes may ride along but the pipeline treats the
// ClickHouse users table as the source of truth for them.
type GPSEvent struct {
	UserID     uint64  `json:"user_id"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	Timestamp  string  `json:"timestamp"`
	Age        uint8   `json:"age,omitempty"`
	Profession string  `json:"profession,omitempty"`
	Interests  string  `json:"interests,omitempty"`
}

// EnrichedEvent is the sink row written to user_events.
// EventTime is naive UTC at seconds precision. POIInfo is empty when
// the user was outside the proximity threshold or generation failed.
type EnrichedEvent struct {
	EventID   uint64
	EventTime time.Time
	UserID    uint64
	Latitude  float64
	Longitude float64
	POIRange  float64
	POIName   string
	POIInfo   string
}

// Shop is the nearest-POI lookup result. Distance is geodesic metres.
type Shop struct {
	ShopID   int
	ShopName string
	Category string
	Distance float64
}

// UserProfile holds the immutable attributes used for personalisation.
type UserProfile struct {
	UserID     uint64
	Age        uint8
	Profession string
	Interests  string
}
