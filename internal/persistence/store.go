package persistence

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/ticketapp/internal/config"
	"github.com/spec-kit/ticketapp/internal/kv"
)

// OpenStore connects the configured backend and returns it as a namespace.
// Closing the store releases the connection.
func OpenStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (kv.Store, error) {
	switch cfg.Store.Backend {
	case config.BackendMemory:
		return kv.NewMemoryStore(), nil
	case config.BackendSQLite:
		db, err := NewSQLite(ctx, cfg.Store.SQLitePath, logger)
		if err != nil {
			return nil, err
		}
		return kv.NewSQLiteStore(db), nil
	case config.BackendRedis:
		r, err := NewRedis(ctx, cfg.Redis, logger)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		return kv.NewRedisStore(r.Client), nil
	case config.BackendPostgres:
		pg, err := NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		return kv.NewPostgresStore(pg.PoolHandle()), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}
