package sysconfig

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates no configuration document exists for the key.
var ErrNotFound = errors.New("system config not found")

// PGStore reads configuration documents from the system_config table.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore creates a store over the given connection pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// GetConfig returns the raw JSONB document for the key.
func (s *PGStore) GetConfig(ctx context.Context, key string) ([]byte, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM system_config WHERE key = $1`, key).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: key %q", ErrNotFound, key)
		}
		return nil, fmt.Errorf("querying system config %q: %w", key, err)
	}
	return raw, nil
}

// PutConfig upserts the document for the key. Used by tests and operator
// tooling; the engine itself only reads.
func (s *PGStore) PutConfig(ctx context.Context, key string, value []byte) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO system_config (key, value, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		key, value)
	if err != nil {
		return fmt.Errorf("upserting system config %q: %w", key, err)
	}
	return nil
}
