package postgres

import (
	"context"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/nearyou-pipeline/internal/config"
)

// DB wraps the PostGIS connection pool.
type DB struct {
	*sqlx.DB
}

func NewDB(cfg *config.Config) (*DB, error) {
	db, err := sqlx.Connect("pgx", cfg.GetPostgresDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.Postgres.MaxConns)
	db.SetMaxIdleConns(cfg.Postgres.MinIdleConns)
	db.SetConnMaxLifetime(cfg.Postgres.ConnMaxLifetime)

	return &DB{db}, nil
}

func (db *DB) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}

func (db *DB) Close() error {
	return db.DB.Close()
}
