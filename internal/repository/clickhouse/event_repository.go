package clickhouse

import (
	"context"
	"fmt"

	"github.com/nearyou-pipeline/internal/domain"
	"github.com/nearyou-pipeline/internal/domain/repository"
)

type eventRepository struct {
	db *DB
}

func NewEventRepository(db *DB) repository.EventRepository {
	return &eventRepository{db: db}
}

const insertEventQuery = `
	INSERT INTO user_events
		(event_id, event_time, user_id, latitude, longitude, poi_range, poi_name, poi_info)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`

func (r *eventRepository) Insert(ctx context.Context, event *domain.EnrichedEvent) error {
	err := r.db.Conn().Exec(ctx, insertEventQuery,
		event.EventID,
		event.EventTime,
		event.UserID,
		event.Latitude,
		event.Longitude,
		event.POIRange,
		event.POIName,
		event.POIInfo,
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}
