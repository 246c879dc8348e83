package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// migration is one incremental schema change, applied when the database's
// user_version is below version.
type migration struct {
	version int
	name    string
	stmt    string
}

// migrations are applied in order. Append only.
var migrations = []migration{
	{
		version: 1,
		name:    "index runs by start time",
		stmt:    `CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC, id)`,
	},
	{
		version: 2,
		name:    "index unit identifiers by server",
		stmt:    `CREATE INDEX IF NOT EXISTS idx_unit_ids_server ON unit_ids(server, unit)`,
	},
}

// SchemaVersion is the user_version of a fully migrated database.
func SchemaVersion() int {
	return migrations[len(migrations)-1].version
}

// DefaultBusyTimeout is how long a writer waits for the history lock.
const DefaultBusyTimeout = 5 * time.Second

// Store is the run history of one output directory. Concurrent ezdbgen
// processes may share it; SQLite serializes their writes.
type Store struct {
	db *sql.DB
}

type openConfig struct {
	busyTimeout time.Duration
}

// Option configures Open.
type Option func(*openConfig)

// WithBusyTimeout sets how long a write waits for another process's lock.
func WithBusyTimeout(d time.Duration) Option {
	return func(c *openConfig) {
		if d > 0 {
			c.busyTimeout = d
		}
	}
}

// Open creates or opens the history database at path and brings its schema
// up to date. Opening an existing database is safe and changes no data.
func Open(path string, opts ...Option) (*Store, error) {
	cfg := openConfig{busyTimeout: DefaultBusyTimeout}
	for _, o := range opts {
		o(&cfg)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to history %s: %w", path, err)
	}

	// One connection: pragmas are per-connection and SQLite has a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := configure(db, cfg); err != nil {
		db.Close()
		return nil, err
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func configure(db *sql.DB, cfg openConfig) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.busyTimeout.Milliseconds()),
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// migrate creates missing tables, then applies every migration newer than
// the stored user_version inside one transaction.
func migrate(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version >= SchemaVersion() {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer tx.Rollback()

	for _, m := range migrations {
		if m.version <= version {
			continue
		}
		if _, err := tx.Exec(m.stmt); err != nil {
			return fmt.Errorf("migrate to v%d (%s): %w", m.version, m.name, err)
		}
	}
	// PRAGMA does not accept bound parameters.
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", SchemaVersion())); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return tx.Commit()
}

// PruneRuns deletes every run except the keep most recent, with their
// outcomes. It returns the number of runs deleted. Running runs are never
// deleted.
func (s *Store) PruneRuns(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		return 0, fmt.Errorf("keep must be non-negative, got %d", keep)
	}
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM runs
		WHERE status != ?
		  AND id NOT IN (
			SELECT id FROM runs
			ORDER BY started_at DESC, id COLLATE BINARY ASC
			LIMIT ?
		  )
	`, string(RunRunning), keep)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return res.RowsAffected()
}
