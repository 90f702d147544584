package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	_ "modernc.org/sqlite"
)

// NewSQLite opens (creating if needed) the database file at path and applies
// the schema. ":memory:" is accepted for throwaway namespaces.
func NewSQLite(ctx context.Context, path string, logger *zap.Logger) (*sql.DB, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"
	if path == ":memory:" {
		dsn = "file::memory:?cache=shared&_txlock=immediate"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if err := RunMigrations(ctx, db, goose.DialectSQLite3, logger); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Debug("opened sqlite namespace", zap.String("path", path))
	return db, nil
}
