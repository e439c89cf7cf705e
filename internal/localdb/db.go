// Package localdb is the on-disk state of dsadash: the last fetched sheet
// snapshot, local status and pinned overrides, expiring settings, and the
// mutation journal.
//
// The database is a single embedded SQLite file opened in WAL mode, so the
// dashboard and one-shot CLI commands can read it at the same time.
//
// Tables:
//   - snapshot: the canonical question list in sheet order
//   - status_overrides, pinned_overrides: per-name local edits
//   - settings: key/value pairs with an expiry (sheet and webhook URLs)
//   - mutation_log: one row per dispatched mutation
package localdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// DB wraps the SQLite connection.
type DB struct {
	conn *sql.DB
	path string
	now  func() time.Time
}

// Open opens (creating if needed) the database at path and initializes the
// schema.
//
// The caller MUST call Close() when done.
//
// Example:
//
//	db, err := localdb.Open(filepath.Join(dataDir, "dsadash.db"))
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
func Open(path string) (*DB, error) {
	return OpenContext(context.Background(), path)
}

// OpenContext is Open with context support.
func OpenContext(ctx context.Context, path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(4)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(5 * time.Minute)

	db := &DB{conn: conn, path: path, now: time.Now}

	pragmas := []struct{ stmt, what string }{
		{"PRAGMA journal_mode=WAL", "enable WAL mode"},
		{"PRAGMA busy_timeout=5000", "set busy timeout"},
	}
	for _, p := range pragmas {
		if _, err := conn.ExecContext(ctx, p.stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to %s: %w", p.what, err)
		}
	}

	if err := db.InitSchemaContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// Close checkpoints the WAL and closes the connection.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}

	if _, err := db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}

	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	db.conn = nil
	return nil
}

// InitSchema creates the tables if they don't exist. Idempotent.
func (db *DB) InitSchema() error {
	return db.InitSchemaContext(context.Background())
}

// InitSchemaContext creates the schema with context support.
func (db *DB) InitSchemaContext(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshot (
		position INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		platform TEXT NOT NULL,
		link TEXT NOT NULL,
		topic TEXT NOT NULL,
		status TEXT NOT NULL,
		pinned INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS snapshot_meta (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		document_id TEXT NOT NULL,
		fetched_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS status_overrides (
		name TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS pinned_overrides (
		name TEXT PRIMARY KEY,
		pinned INTEGER NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		expires_at TEXT  -- NULL never expires
	);

	CREATE TABLE IF NOT EXISTS mutation_log (
		id TEXT PRIMARY KEY,
		action TEXT NOT NULL,
		name TEXT NOT NULL,
		value TEXT NOT NULL,
		method TEXT NOT NULL,
		outcome TEXT NOT NULL,
		message TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_mutation_log_created ON mutation_log(created_at);
	CREATE INDEX IF NOT EXISTS idx_mutation_log_name ON mutation_log(name);
	`

	if _, err := db.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
