package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/taskgraph/tg/internal/storage"
	"github.com/taskgraph/tg/internal/types"
)

// core implements every storage.TaskStore method against a plain dbConn,
// so the same query logic runs whether it's called on the top-level Store
// (autocommit) or inside a Tx/savepoint — only the embedded c differs.
type core struct {
	c dbConn
}

// Begin starts the outer transaction for this store. Every public
// mutation in the facade layer wraps exactly one call to Begin; nested
// facade calls use the returned Tx's own Begin, which maps onto a SQL
// SAVEPOINT (spec §4.1, §5).
func (s *Store) Begin(ctx context.Context) (storage.Tx, error) {
	var sqlTx *sql.Tx
	err := withBusyRetry(ctx, func() error {
		var beginErr error
		sqlTx, beginErr = s.db.BeginTx(ctx, nil)
		return beginErr
	})
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &tx{db: sqlTx, depth: 0, core: core{c: sqlTx}}, nil
}

// tx is a live transaction or, when depth > 0, a nested savepoint within
// one. db is always the root *sql.Tx; depth/spName identify which
// savepoint Commit/Rollback should release or roll back to.
type tx struct {
	db       *sql.Tx
	depth    int
	spName   string
	finished bool
	core
}

func (t *tx) Begin(ctx context.Context) (storage.Tx, error) {
	child := &tx{
		db:     t.db,
		depth:  t.depth + 1,
		spName: fmt.Sprintf("sp_%d", t.depth+1),
		core:   core{c: t.db},
	}
	if _, err := t.db.ExecContext(ctx, "SAVEPOINT "+child.spName); err != nil {
		return nil, fmt.Errorf("begin savepoint: %w", err)
	}
	return child, nil
}

func (t *tx) Commit() error {
	if t.finished {
		return nil
	}
	t.finished = true
	if t.depth == 0 {
		return t.db.Commit()
	}
	_, err := t.db.ExecContext(context.Background(), "RELEASE SAVEPOINT "+t.spName)
	return err
}

func (t *tx) Rollback() error {
	if t.finished {
		return nil
	}
	t.finished = true
	if t.depth == 0 {
		return t.db.Rollback()
	}
	// ROLLBACK TO discards only the work done since the savepoint without
	// releasing it, so an enclosing transaction can still use the
	// connection; release immediately after since this tx object is done.
	if _, err := t.db.ExecContext(context.Background(), "ROLLBACK TO SAVEPOINT "+t.spName); err != nil {
		return fmt.Errorf("%w: %v", types.ErrTransactionRollback, err)
	}
	_, err := t.db.ExecContext(context.Background(), "RELEASE SAVEPOINT "+t.spName)
	return err
}
