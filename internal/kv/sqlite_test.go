package kv

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "kv.db") + "?_pragma=busy_timeout(5000)&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE kv_entries (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	require.NoError(t, err)
	return db
}

func TestSQLiteStore(t *testing.T) {
	s := NewSQLiteStore(openSQLite(t))
	t.Cleanup(func() { _ = s.Close() })
	exerciseStore(t, s)
}

func TestSQLiteStoreConcurrentUpdates(t *testing.T) {
	s := NewSQLiteStore(openSQLite(t))
	t.Cleanup(func() { _ = s.Close() })
	exerciseConcurrentUpdates(t, s, 20)
}

func TestSQLiteStoreGetWrapsDriverErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT value FROM kv_entries`).
		WithArgs("k").
		WillReturnError(errors.New("disk I/O error"))

	_, err = NewSQLiteStore(db).Get(context.Background(), "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "disk I/O error")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteStoreUpdateRollsBackOnAbort(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT value FROM kv_entries`).
		WithArgs("k").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("v"))
	mock.ExpectRollback()

	abort := errors.New("abort")
	err = NewSQLiteStore(db).Update(context.Background(), "k", func(string, bool) (string, error) {
		return "", abort
	})
	require.ErrorIs(t, err, abort)
	require.NoError(t, mock.ExpectationsWereMet())
}
