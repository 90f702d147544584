package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists the namespace in the kv_entries table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps a connected pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (p *PostgresStore) Get(ctx context.Context, key string) (string, error) {
	var val string
	err := p.pool.QueryRow(ctx, `SELECT value FROM kv_entries WHERE key=$1`, key).Scan(&val)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("postgres get %q: %w", key, err)
	}
	return val, nil
}

func (p *PostgresStore) Set(ctx context.Context, key, value string) error {
	if _, err := p.pool.Exec(ctx, postgresUpsert, key, value); err != nil {
		return fmt.Errorf("postgres set %q: %w", key, err)
	}
	return nil
}

func (p *PostgresStore) Remove(ctx context.Context, key string) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM kv_entries WHERE key=$1`, key); err != nil {
		return fmt.Errorf("postgres remove %q: %w", key, err)
	}
	return nil
}

// Update serializes writers of the same key with a transaction-scoped
// advisory lock, which also covers keys that do not exist yet.
func (p *PostgresStore) Update(ctx context.Context, key string, fn UpdateFunc) error {
	return pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
			return fmt.Errorf("postgres lock %q: %w", key, err)
		}

		var cur string
		exists := true
		err := tx.QueryRow(ctx, `SELECT value FROM kv_entries WHERE key=$1`, key).Scan(&cur)
		if errors.Is(err, pgx.ErrNoRows) {
			exists = false
		} else if err != nil {
			return fmt.Errorf("postgres read %q: %w", key, err)
		}

		next, err := fn(cur, exists)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, postgresUpsert, key, next); err != nil {
			return fmt.Errorf("postgres write %q: %w", key, err)
		}
		return nil
	})
}

func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}

const postgresUpsert = `
	INSERT INTO kv_entries (key, value, updated_at) VALUES ($1, $2, NOW())
	ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`
