package db

import (
	"context"
	"time"

	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema holds the allow-list table. It is applied on startup and is safe to
// run repeatedly.
const Schema = `
CREATE TABLE IF NOT EXISTS allowed_users (
	user_id  BIGINT PRIMARY KEY,
	added_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}

	// The allow-list sees a handful of queries per message.
	config.MaxConns = 5
	config.MinConns = 1
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = 1 * time.Minute

	config.ConnConfig.Tracer = otelpgx.NewTracer()

	return pgxpool.NewWithConfig(ctx, config)
}

// Migrate applies Schema.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, Schema)
	return err
}
