package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/dhruvkothari3/easy-claim-buddy/internal/session"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS portal_session_values (
			scope      TEXT NOT NULL,
			key        TEXT NOT NULL,
			value      TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (scope, key)
		)
	`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS portal_session_values_updated_idx
		ON portal_session_values (updated_at)
	`)
	return err
}

func (s *Store) Get(ctx context.Context, scope, key string) (string, bool, error) {
	if scope == "" {
		return "", false, session.ErrInvalidScope
	}
	var value string
	row := s.pool.QueryRow(ctx, `
		SELECT value
		FROM portal_session_values
		WHERE scope = $1 AND key = $2
	`, scope, key)
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return value, true, nil
}

func (s *Store) Set(ctx context.Context, scope, key, value string) error {
	if scope == "" {
		return session.ErrInvalidScope
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO portal_session_values (scope, key, value, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (scope, key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`, scope, key, value)
	return err
}

func (s *Store) Delete(ctx context.Context, scope string, keys ...string) error {
	if scope == "" {
		return session.ErrInvalidScope
	}
	if len(keys) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx, `
		DELETE FROM portal_session_values
		WHERE scope = $1 AND key = ANY($2)
	`, scope, keys)
	return err
}

func (s *Store) Purge(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM portal_session_values v
		WHERE v.scope IN (
			SELECT scope
			FROM portal_session_values
			GROUP BY scope
			HAVING MAX(updated_at) < $1
		)
	`, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
