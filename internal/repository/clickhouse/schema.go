package clickhouse

import (
	"context"
	"fmt"
)

// Base tables the pipeline writes to. The profile table is seeded by
// the simulator, the event log by the pipeline itself.
var baseDDL = []string{
	`CREATE TABLE IF NOT EXISTS users (
		user_id    UInt64,
		age        UInt8,
		profession String,
		interests  String
	) ENGINE = MergeTree()
	ORDER BY user_id`,

	`CREATE TABLE IF NOT EXISTS user_events (
		event_id   UInt64,
		event_time DateTime,
		user_id    UInt64,
		latitude   Float64,
		longitude  Float64,
		poi_range  Float64,
		poi_name   String,
		poi_info   String
	) ENGINE = MergeTree()
	ORDER BY (event_time, user_id)`,
}

// EnsureBaseTables creates the raw tables when they do not exist yet.
func (db *DB) EnsureBaseTables(ctx context.Context) error {
	for _, ddl := range baseDDL {
		if err := db.conn.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("failed to ensure base table: %w", err)
		}
	}
	return nil
}
