//go:build cgo

package dolt

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/taskgraph/tg/internal/storage"
	"github.com/taskgraph/tg/internal/types"
)

// core implements every storage.TaskStore method against a plain dbConn,
// identical in shape to the sqlite backend's core: the same query logic
// runs against the top-level *sql.DB or an in-flight *sql.Tx.
type core struct {
	c dbConn
}

func (s *Store) Begin(ctx context.Context) (storage.Tx, error) {
	var sqlTx *sql.Tx
	err := withRetry(ctx, func() error {
		var beginErr error
		sqlTx, beginErr = s.db.BeginTx(ctx, nil)
		return beginErr
	})
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &tx{db: sqlTx, depth: 0, core: core{c: sqlTx}}, nil
}

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
	if _, err := t.db.ExecContext(context.Background(), "ROLLBACK TO SAVEPOINT "+t.spName); err != nil {
		return fmt.Errorf("%w: %v", types.ErrTransactionRollback, err)
	}
	_, err := t.db.ExecContext(context.Background(), "RELEASE SAVEPOINT "+t.spName)
	return err
}
