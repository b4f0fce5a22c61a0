package transfer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const repoTimeout = 5 * time.Second

// PostgresStore keeps transfer records in a transfers table. Unlike the
// file-backed store its insert-if-absent guarantee comes from the
// database (ON CONFLICT DO NOTHING), so it stays correct with several
// relay processes sharing one store.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore builds a postgres-backed metadata store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Load returns the full mapping of stored records.
func (s *PostgresStore) Load(ctx context.Context) (map[string]Record, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
SELECT pin, original_filename, storage_path, size_bytes, content_type, created_at, expires_at
FROM transfers;`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: list transfers: %v", ErrStorageUnavailable, err)
	}
	defer rows.Close()

	records := map[string]Record{}
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.PIN, &rec.OriginalFilename, &rec.StoragePath, &rec.SizeBytes, &rec.ContentType, &rec.CreatedAt, &rec.ExpiresAt); err != nil {
			return nil, fmt.Errorf("%w: scan transfer: %v", ErrStorageUnavailable, err)
		}
		records[rec.PIN] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate transfers: %v", ErrStorageUnavailable, err)
	}
	return records, nil
}

// Get fetches a single record. Expired records are treated as absent.
func (s *PostgresStore) Get(ctx context.Context, pin string) (Record, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
SELECT pin, original_filename, storage_path, size_bytes, content_type, created_at, expires_at
FROM transfers
WHERE pin = $1 AND expires_at > $2;`

	var rec Record
	err := s.pool.QueryRow(ctx, query, pin, time.Now().UTC()).Scan(
		&rec.PIN,
		&rec.OriginalFilename,
		&rec.StoragePath,
		&rec.SizeBytes,
		&rec.ContentType,
		&rec.CreatedAt,
		&rec.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("%w: get transfer: %v", ErrStorageUnavailable, err)
	}
	return rec, nil
}

// Insert commits rec under rec.PIN if and only if the PIN is free.
func (s *PostgresStore) Insert(ctx context.Context, rec Record) error {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
INSERT INTO transfers (pin, original_filename, storage_path, size_bytes, content_type, created_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (pin) DO NOTHING;`

	tag, err := s.pool.Exec(ctx, query,
		rec.PIN,
		rec.OriginalFilename,
		rec.StoragePath,
		rec.SizeBytes,
		rec.ContentType,
		rec.CreatedAt,
		rec.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("%w: insert transfer: %v", ErrStorageUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPINTaken
	}
	return nil
}

// Remove deletes the given pins and returns how many rows were present.
func (s *PostgresStore) Remove(ctx context.Context, pins []string) (int, error) {
	if len(pins) == 0 {
		return 0, nil
	}

	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `DELETE FROM transfers WHERE pin = ANY($1);`

	tag, err := s.pool.Exec(ctx, query, pins)
	if err != nil {
		return 0, fmt.Errorf("%w: remove transfers: %v", ErrStorageUnavailable, err)
	}
	return int(tag.RowsAffected()), nil
}
