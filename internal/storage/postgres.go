package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pindrop/pindrop/internal/config"
)

const defaultDBTimeout = 5 * time.Second

// NewPostgresPool connects to PostgreSQL using pgx.
func NewPostgresPool(ctx context.Context, cfg config.PostgresConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, defaultDBTimeout)
	defer cancel()

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return pool, nil
}

// EnsureTransfersSchema creates the transfers table if it does not exist.
// The PIN primary key is what makes insert-if-absent allocation safe
// across processes.
func EnsureTransfersSchema(ctx context.Context, pool *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(ctx, defaultDBTimeout)
	defer cancel()

	schema := `
CREATE TABLE IF NOT EXISTS transfers (
	pin               TEXT PRIMARY KEY,
	original_filename TEXT NOT NULL,
	storage_path      TEXT NOT NULL,
	size_bytes        BIGINT NOT NULL,
	content_type      TEXT NOT NULL DEFAULT '',
	created_at        TIMESTAMPTZ NOT NULL,
	expires_at        TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS transfers_expires_at_idx ON transfers (expires_at);`

	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure transfers schema: %w", err)
	}
	return nil
}
