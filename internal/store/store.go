// Package store keeps the local state of the service in SQLite: the logged-in
// user and the journal of movement submissions.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

const (
	DriverModernc = "sqlite"  // modernc.org/sqlite, sin cgo
	DriverMattn   = "sqlite3" // github.com/mattn/go-sqlite3
)

type Store struct {
	DB *sqlx.DB
}

func dsn(driver, path string) (string, error) {
	switch driver {
	case DriverModernc:
		// busy_timeout para evitar "database is locked" con el consumer de la cola
		return path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout=5000", nil
	case DriverMattn:
		return path + "?_journal_mode=WAL&_busy_timeout=5000", nil
	}
	return "", fmt.Errorf("store: driver %q no soportado (sqlite|sqlite3)", driver)
}

// Open connects with the given driver and applies the schema.
func Open(ctx context.Context, driver, path string) (*Store, error) {
	d, err := dsn(driver, path)
	if err != nil {
		return nil, err
	}
	db, err := sqlx.ConnectContext(ctx, driver, d)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	db.SetConnMaxIdleTime(2 * time.Minute)
	db.SetMaxOpenConns(1)

	s := &Store{DB: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	schema := `
CREATE TABLE IF NOT EXISTS sessions(
  id             INTEGER PRIMARY KEY CHECK (id = 1),
  username       TEXT NOT NULL,
  pais           INTEGER NOT NULL DEFAULT 0,
  rol            TEXT NOT NULL DEFAULT '',
  access         TEXT NOT NULL DEFAULT '',
  refresh        TEXT NOT NULL DEFAULT '',
  access_expires INTEGER,
  created_at     INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS remembered_user(
  id       INTEGER PRIMARY KEY CHECK (id = 1),
  username TEXT NOT NULL,
  saved_at INTEGER NOT NULL DEFAULT (strftime('%s','now'))
);
CREATE TABLE IF NOT EXISTS movement_journal(
  id              TEXT PRIMARY KEY,
  direction       TEXT NOT NULL,
  type_id         INTEGER NOT NULL,
  book_id         INTEGER NOT NULL,
  quantity        INTEGER NOT NULL,
  amount          TEXT NOT NULL,
  header_id       INTEGER NOT NULL DEFAULT 0,
  state           TEXT NOT NULL,
  path            TEXT NOT NULL,
  error_code      TEXT NOT NULL DEFAULT '',
  error           TEXT NOT NULL DEFAULT '',
  rollback_failed INTEGER NOT NULL DEFAULT 0,
  new_stock       INTEGER,
  created_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_journal_created ON movement_journal(created_at);
CREATE INDEX IF NOT EXISTS idx_journal_orphans ON movement_journal(rollback_failed) WHERE rollback_failed = 1;
`
	_, err := s.DB.ExecContext(ctx, schema)
	return err
}

func (s *Store) Close() error { return s.DB.Close() }

// Ping is used by the health check.
func (s *Store) Ping(ctx context.Context) error { return s.DB.PingContext(ctx) }
