package sqlite

import (
	"context"
	"testing"

	"github.com/taskgraph/tg/internal/types"
)

func TestTransactionCommit(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	tx, err := store.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	task := newTask("aaaaaaaa", "A", 1000)
	if err := tx.SaveTask(ctx, task); err != nil {
		t.Fatalf("SaveTask in tx failed: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	exists, err := store.TaskExists(ctx, "aaaaaaaa")
	if err != nil {
		t.Fatalf("TaskExists failed: %v", err)
	}
	if !exists {
		t.Error("task should exist after commit")
	}
}

func TestTransactionRollback(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	tx, err := store.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	task := newTask("aaaaaaaa", "A", 1000)
	if err := tx.SaveTask(ctx, task); err != nil {
		t.Fatalf("SaveTask in tx failed: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}

	exists, err := store.TaskExists(ctx, "aaaaaaaa")
	if err != nil {
		t.Fatalf("TaskExists failed: %v", err)
	}
	if exists {
		t.Error("task should not exist after rollback")
	}
}

func TestNestedSavepointRollback(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	outer, err := store.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	defer outer.Rollback()

	keep := newTask("aaaaaaaa", "Keep", 1000)
	if err := outer.SaveTask(ctx, keep); err != nil {
		t.Fatalf("SaveTask failed: %v", err)
	}

	inner, err := outer.Begin(ctx)
	if err != nil {
		t.Fatalf("inner Begin failed: %v", err)
	}
	discard := newTask("bbbbbbbb", "Discard", 1000)
	if err := inner.SaveTask(ctx, discard); err != nil {
		t.Fatalf("SaveTask in savepoint failed: %v", err)
	}
	if err := inner.Rollback(); err != nil {
		t.Fatalf("inner Rollback failed: %v", err)
	}

	exists, err := outer.TaskExists(ctx, "bbbbbbbb")
	if err != nil {
		t.Fatalf("TaskExists failed: %v", err)
	}
	if exists {
		t.Error("savepoint rollback should have discarded the nested insert")
	}
	exists, err = outer.TaskExists(ctx, "aaaaaaaa")
	if err != nil {
		t.Fatalf("TaskExists failed: %v", err)
	}
	if !exists {
		t.Error("outer transaction's write should survive the inner rollback")
	}

	if err := outer.Commit(); err != nil {
		t.Fatalf("outer Commit failed: %v", err)
	}
}

func TestNestedSavepointCommit(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	outer, err := store.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	inner, err := outer.Begin(ctx)
	if err != nil {
		t.Fatalf("inner Begin failed: %v", err)
	}
	task := newTask("aaaaaaaa", "A", 1000)
	if err := inner.SaveTask(ctx, task); err != nil {
		t.Fatalf("SaveTask failed: %v", err)
	}
	if err := inner.Commit(); err != nil {
		t.Fatalf("inner Commit failed: %v", err)
	}
	if err := outer.Commit(); err != nil {
		t.Fatalf("outer Commit failed: %v", err)
	}

	exists, err := store.TaskExists(ctx, "aaaaaaaa")
	if err != nil {
		t.Fatalf("TaskExists failed: %v", err)
	}
	if !exists {
		t.Error("task committed through nested savepoint should persist")
	}
}

func TestSaveDependencyWithinTransactionSeesUncommittedTask(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	tx, err := store.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	defer tx.Rollback()

	a := newTask("aaaaaaaa", "A", 1000)
	b := newTask("bbbbbbbb", "B", 1000)
	if err := tx.SaveTask(ctx, a); err != nil {
		t.Fatalf("SaveTask failed: %v", err)
	}
	if err := tx.SaveTask(ctx, b); err != nil {
		t.Fatalf("SaveTask failed: %v", err)
	}
	if err := tx.SaveDependency(ctx, &types.Dependency{SrcID: "aaaaaaaa", DstID: "bbbbbbbb", Type: types.DepBlocks}); err != nil {
		t.Fatalf("SaveDependency failed: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	count, err := store.GetBlockedByCount(ctx, "bbbbbbbb")
	if err != nil {
		t.Fatalf("GetBlockedByCount failed: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}
