package sqlite

import (
	"context"
	"testing"
)

func TestDirtyTrackingMarksAndClears(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	task := newTask("aaaaaaaa", "Track me", 1000)
	if err := store.SaveTask(ctx, task); err != nil {
		t.Fatalf("SaveTask failed: %v", err)
	}

	dirty, err := store.GetDirtyTaskIDs(ctx)
	if err != nil {
		t.Fatalf("GetDirtyTaskIDs failed: %v", err)
	}
	if len(dirty) != 1 || dirty[0] != "aaaaaaaa" {
		t.Fatalf("dirty = %v, want [aaaaaaaa]", dirty)
	}

	if err := store.ClearDirty(ctx, dirty); err != nil {
		t.Fatalf("ClearDirty failed: %v", err)
	}

	dirty, err = store.GetDirtyTaskIDs(ctx)
	if err != nil {
		t.Fatalf("GetDirtyTaskIDs failed: %v", err)
	}
	if len(dirty) != 0 {
		t.Fatalf("dirty after clear = %v, want none", dirty)
	}

	if err := store.UpdateTaskTitle(ctx, "aaaaaaaa", "Track me harder"); err != nil {
		t.Fatalf("UpdateTaskTitle failed: %v", err)
	}
	dirty, err = store.GetDirtyTaskIDs(ctx)
	if err != nil {
		t.Fatalf("GetDirtyTaskIDs failed: %v", err)
	}
	if len(dirty) != 1 {
		t.Fatalf("dirty after title update = %v, want 1 entry", dirty)
	}
}
