// Package beliefdb persists exploration runs and the belief after every
// step in SQLite. The schema is managed by embedded golang-migrate
// migrations.
package beliefdb

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/radiation.explorer/internal/monitoring"
	"github.com/banshee-data/radiation.explorer/internal/timeutil"
)

// DB wraps the SQLite handle used for run storage.
type DB struct {
	*sql.DB
	clock timeutil.Clock
}

// OpenDB opens (or creates) the database at path and applies the
// connection pragmas. It does not touch the schema; call MigrateUp for that.
func OpenDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open belief database: %w", err)
	}
	// Pragmas such as foreign_keys are per connection, so keep exactly one.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return &DB{DB: db, clock: timeutil.RealClock{}}, nil
}

// NewDB opens the database at path and applies all pending migrations.
func NewDB(path string) (*DB, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}
	if err := db.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	monitoring.Logf("initialized belief database schema at %s", path)
	return db, nil
}

// SetClock replaces the clock used to stamp new runs.
func (db *DB) SetClock(c timeutil.Clock) {
	db.clock = c
}
