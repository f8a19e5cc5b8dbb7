// Package dolt is the alternate PersistentStore backend named in
// SPEC_FULL.md §11, keeping tasks in an embedded Dolt database under
// .tasks/dolt. Mutations are committed as SQL transactions; the package
// issues no DOLT_COMMIT call of its own. It is grounded on
// the teacher's internal/storage/dolt package — same embedded-engine
// DSN shape (store_embedded.go), same SAVEPOINT-based nested
// transactions — generalized from beads' issue schema to this package's
// task/dependency/comment schema.
//
//go:build cgo

package dolt

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	embedded "github.com/dolthub/driver"
)

type dbConn interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Store is the Dolt-backed PersistentStore. Like the sqlite backend it
// caps the pool at one open connection (see openConnection), and
// callers already funnel every mutation through the facade's single
// Begin/Commit pair (spec §4.1, §5).
type Store struct {
	db         *sql.DB
	connector  *embedded.Connector
	committer  string
	committerE string
	core
}

// Config mirrors the subset of the teacher's dolt.Config this backend
// actually uses: a local directory, a committer identity (passed to the
// engine in the DSN), and the logical database name within it.
type Config struct {
	Path           string
	Database       string
	CommitterName  string
	CommitterEmail string
}

func (c *Config) withDefaults() *Config {
	cfg := *c
	if cfg.Database == "" {
		cfg.Database = "tasks"
	}
	if cfg.CommitterName == "" {
		cfg.CommitterName = "tg"
	}
	if cfg.CommitterEmail == "" {
		cfg.CommitterEmail = "tg@localhost"
	}
	return &cfg
}

// Open creates or opens a Dolt database directory, ensuring it exists and
// its schema is current. Grounded on newEmbeddedMode in the teacher's
// store_embedded.go, trimmed of the advisory flock and server-mode branch
// (spec §5: single cooperating process, no remote dolt sql-server).
func Open(ctx context.Context, cfg *Config) (*Store, error) {
	cfg = cfg.withDefaults()

	if info, err := os.Stat(cfg.Path); err == nil && !info.IsDir() {
		return nil, fmt.Errorf("dolt path %q is a file, not a directory", cfg.Path)
	}
	if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
		return nil, fmt.Errorf("create dolt directory: %w", err)
	}
	absPath, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("resolve dolt path: %w", err)
	}

	initDSN := fmt.Sprintf("file://%s?commitname=%s&commitemail=%s", absPath, cfg.CommitterName, cfg.CommitterEmail)
	dbDSN := fmt.Sprintf("file://%s?commitname=%s&commitemail=%s&database=%s", absPath, cfg.CommitterName, cfg.CommitterEmail, cfg.Database)

	if err := withEmbedded(ctx, initDSN, func(ctx context.Context, db *sql.DB) error {
		_, err := db.ExecContext(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", cfg.Database))
		return err
	}); err != nil {
		return nil, fmt.Errorf("create dolt database: %w", err)
	}

	if err := withEmbedded(ctx, dbDSN, func(ctx context.Context, db *sql.DB) error {
		_, err := db.ExecContext(ctx, schema)
		return err
	}); err != nil {
		return nil, fmt.Errorf("initialize dolt schema: %w", err)
	}

	db, connector, err := openConnection(dbDSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		_ = connector.Close()
		return nil, fmt.Errorf("ping dolt database: %w", err)
	}

	return &Store{
		db:         db,
		connector:  connector,
		committer:  cfg.CommitterName,
		committerE: cfg.CommitterEmail,
		core:       core{c: db},
	}, nil
}

func openConnection(dsn string) (*sql.DB, *embedded.Connector, error) {
	openCfg, err := embedded.ParseDSN(dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("parse dolt DSN: %w", err)
	}
	openCfg.BackOff = newOpenBackoff()
	connector, err := embedded.NewConnector(openCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("create dolt connector: %w", err)
	}
	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(1)
	return db, connector, nil
}

func withEmbedded(ctx context.Context, dsn string, fn func(context.Context, *sql.DB) error) error {
	openCfg, err := embedded.ParseDSN(dsn)
	if err != nil {
		return fmt.Errorf("parse dolt DSN: %w", err)
	}
	openCfg.BackOff = newOpenBackoff()
	connector, err := embedded.NewConnector(openCfg)
	if err != nil {
		return fmt.Errorf("create dolt connector: %w", err)
	}
	db := sql.OpenDB(connector)
	defer db.Close()
	defer connector.Close()
	return fn(ctx, db)
}

func newOpenBackoff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 30 * time.Second
	return bo
}

// Close releases the underlying database handle and connector.
func (s *Store) Close() error {
	err := s.db.Close()
	if cerr := s.connector.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

const schema = `
CREATE TABLE IF NOT EXISTS tasks (
	id                   VARCHAR(64) PRIMARY KEY,
	title                TEXT NOT NULL,
	description          TEXT,
	status               VARCHAR(32) NOT NULL,
	priority             INT NOT NULL,
	task_type            VARCHAR(32) NOT NULL,
	parent_id            VARCHAR(64),
	labels               JSON NOT NULL,
	created_at           BIGINT NOT NULL,
	updated_at           BIGINT NOT NULL,
	completed_at         BIGINT,
	started_at_commit    VARCHAR(64),
	completed_at_commit  VARCHAR(64),
	dirty                TINYINT NOT NULL DEFAULT 1,
	INDEX idx_tasks_status (status),
	INDEX idx_tasks_parent (parent_id),
	INDEX idx_tasks_ready (status, task_type, priority, created_at)
);

CREATE TABLE IF NOT EXISTS dependencies (
	src_id   VARCHAR(64) NOT NULL,
	dst_id   VARCHAR(64) NOT NULL,
	dep_type VARCHAR(32) NOT NULL,
	weight   DOUBLE NOT NULL DEFAULT 1.0,
	PRIMARY KEY (src_id, dst_id, dep_type),
	INDEX idx_deps_dst (dst_id, dep_type),
	INDEX idx_deps_src (src_id, dep_type)
);

CREATE TABLE IF NOT EXISTS comments (
	id        BIGINT AUTO_INCREMENT PRIMARY KEY,
	task_id   VARCHAR(64) NOT NULL,
	agent     VARCHAR(128) NOT NULL,
	content   TEXT NOT NULL,
	timestamp BIGINT NOT NULL,
	INDEX idx_comments_task (task_id, timestamp, id)
);

CREATE TABLE IF NOT EXISTS session_state (
	id              TINYINT PRIMARY KEY,
	session_id      VARCHAR(64) NOT NULL,
	started_at      BIGINT NOT NULL,
	current_task_id VARCHAR(64),
	notes           TEXT
);
`

// withRetry retries fn while Dolt reports a transient lock/busy error,
// mirroring the sqlite backend's withBusyRetry (SPEC_FULL.md §10) but
// matched against the embedded driver's own error text.
func withRetry(ctx context.Context, fn func() error) error {
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
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "Lock wait timeout")
}

func nowUnix() int64 { return time.Now().Unix() }
