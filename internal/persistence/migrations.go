package persistence

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// RunMigrations applies the embedded schema with goose. dialect is a goose
// dialect name ("sqlite3" or "postgres").
func RunMigrations(ctx context.Context, db *sql.DB, dialect goose.Dialect, logger *zap.Logger) error {
	if db == nil {
		logger.Warn("no database handle available; skipping migrations")
		return nil
	}

	dir, err := fs.Sub(migrationFS, "migrations")
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(dialect, db, dir)
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	for _, res := range results {
		logger.Info("applied migration", zap.String("file", res.Source.Path), zap.Duration("took", res.Duration))
	}

	logger.Info("migrations applied", zap.Int("count", len(results)))
	return nil
}
