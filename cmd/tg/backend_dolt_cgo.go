//go:build cgo

package main

import (
	"context"
	"fmt"

	"github.com/taskgraph/tg"
	"github.com/taskgraph/tg/internal/storage/dolt"
)

// openDoltEngine opens a Dolt-backed Engine at dbPath, grounded on
// tg.New accepting any storage.Store built outside the tg package.
func openDoltEngine(ctx context.Context, dbPath, actor string) (*tg.Engine, error) {
	store, err := dolt.Open(ctx, &dolt.Config{
		Path:           dbPath,
		CommitterName:  actor,
		CommitterEmail: actor + "@tg.local",
	})
	if err != nil {
		return nil, fmt.Errorf("open dolt store: %w", err)
	}
	eng := tg.New(store)
	if _, err := eng.Scheduler.StartSession(ctx, store); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("start session: %w", err)
	}
	return eng, nil
}
