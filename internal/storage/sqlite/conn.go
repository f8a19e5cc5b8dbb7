// Package sqlite is the default PersistentStore backend (spec §4.1): an
// embedded, crash-safe SQLite database accessed through the pure-Go
// modernc.org/sqlite driver (no cgo toolchain required on the developer
// machine this is designed for).
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// dbConn is satisfied by both *sql.DB and *sql.Tx, letting every query
// method below be written once and reused for both non-transactional
// calls and calls made inside a Tx/savepoint.
type dbConn interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Store is the embedded SQLite PersistentStore. The underlying *sql.DB is
// capped at a single open connection: spec §5 specifies single-threaded
// cooperative access from one process, so there is no benefit to a larger
// pool and doing so sidesteps the need to pin a dedicated connection for
// BEGIN/SAVEPOINT/COMMIT as the teacher's multi-writer-tolerant store does.
type Store struct {
	db *sql.DB
	core
}

// Open creates or opens a SQLite database file at path and ensures its
// schema is up to date. Use ":memory:" for an ephemeral store (tests).
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db, core: core{c: db}}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate sqlite store: %w", err)
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS tasks (
	id                   TEXT PRIMARY KEY,
	title                TEXT NOT NULL,
	description          TEXT,
	status               TEXT NOT NULL,
	priority             INTEGER NOT NULL,
	task_type            TEXT NOT NULL,
	parent_id            TEXT REFERENCES tasks(id),
	labels               TEXT NOT NULL DEFAULT '[]',
	created_at           INTEGER NOT NULL,
	updated_at           INTEGER NOT NULL,
	completed_at         INTEGER,
	started_at_commit    TEXT,
	completed_at_commit  TEXT,
	dirty                INTEGER NOT NULL DEFAULT 1
);

CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
CREATE INDEX IF NOT EXISTS idx_tasks_parent ON tasks(parent_id);
CREATE INDEX IF NOT EXISTS idx_tasks_ready ON tasks(status, task_type, priority, created_at);

CREATE TABLE IF NOT EXISTS dependencies (
	src_id   TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	dst_id   TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	dep_type TEXT NOT NULL,
	weight   REAL NOT NULL DEFAULT 1.0,
	PRIMARY KEY (src_id, dst_id, dep_type)
);

CREATE INDEX IF NOT EXISTS idx_deps_dst ON dependencies(dst_id, dep_type);
CREATE INDEX IF NOT EXISTS idx_deps_src ON dependencies(src_id, dep_type);

CREATE TABLE IF NOT EXISTS comments (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	task_id   TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	agent     TEXT NOT NULL,
	content   TEXT NOT NULL,
	timestamp INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_comments_task ON comments(task_id, timestamp, id);

CREATE TABLE IF NOT EXISTS session_state (
	id              INTEGER PRIMARY KEY CHECK (id = 1),
	session_id      TEXT NOT NULL,
	started_at      INTEGER NOT NULL,
	current_task_id TEXT,
	notes           TEXT
);
`

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// withBusyRetry retries fn with exponential backoff while SQLite reports
// the database as busy/locked, matching the teacher's BEGIN IMMEDIATE
// retry loop but expressed with a real backoff library (see SPEC_FULL.md
// §10) rather than a hand-rolled loop.
func withBusyRetry(ctx context.Context, fn func() error) error {
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5), ctx)
	return backoff.Retry(func() error {
		err := fn()
		if err == nil {
			return nil
		}
		if isBusyErr(err) {
			return err
		}
		return backoff.Permanent(err)
	}, b)
}

func isBusyErr(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func nowUnix() int64 { return time.Now().Unix() }
