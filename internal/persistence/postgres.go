package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pitabwire/designer/model"
)

// PgPool is the subset of *pgxpool.Pool the PostgreSQL store uses.
type PgPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS designer_layouts (
	key        TEXT PRIMARY KEY,
	config     JSONB NOT NULL,
	version    BIGINT NOT NULL DEFAULT 1,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PgStore is a PostgreSQL-backed Store using pgx/v5. Every save bumps the
// row's version.
type PgStore struct {
	pool PgPool
}

// NewPgStore creates a new PostgreSQL store.
func NewPgStore(pool PgPool) *PgStore {
	return &PgStore{pool: pool}
}

// EnsureSchema creates the layouts table if it does not exist.
func (s *PgStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create designer_layouts: %w", err)
	}
	return nil
}

// Save upserts the configuration under key.
func (s *PgStore) Save(ctx context.Context, key string, cfg *model.Configuration) error {
	data, err := encode(key, cfg)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO designer_layouts (key, config, version, updated_at)
		VALUES ($1, $2, 1, now())
		ON CONFLICT (key) DO UPDATE SET
			config = EXCLUDED.config,
			version = designer_layouts.version + 1,
			updated_at = now()`,
		key, data,
	)
	if err != nil {
		return fmt.Errorf("upsert layout %q: %w", key, err)
	}
	return nil
}

// Load reads the configuration stored under key.
func (s *PgStore) Load(ctx context.Context, key string) (*model.Configuration, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT config FROM designer_layouts WHERE key = $1`,
		key,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound(key)
	}
	if err != nil {
		return nil, fmt.Errorf("query layout %q: %w", key, err)
	}
	return decode(key, data)
}

// Delete removes the row for key.
func (s *PgStore) Delete(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM designer_layouts WHERE key = $1`, key); err != nil {
		return fmt.Errorf("delete layout %q: %w", key, err)
	}
	return nil
}

// Keys lists every stored key.
func (s *PgStore) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT key FROM designer_layouts ORDER BY key ASC`)
	if err != nil {
		return nil, fmt.Errorf("query layout keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan layout key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// HealthCheck pings the database.
func (s *PgStore) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
