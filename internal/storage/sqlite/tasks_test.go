package sqlite

import (
	"context"
	"testing"

	"github.com/taskgraph/tg/internal/types"
)

func TestSaveAndLoadTask(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	task := newTask("aaaaaaaa", "First task", 1000)
	labels := []string{"backend", "urgent"}
	task.Labels = labels

	if err := store.SaveTask(ctx, task); err != nil {
		t.Fatalf("SaveTask failed: %v", err)
	}

	loaded, err := store.LoadTask(ctx, "aaaaaaaa")
	if err != nil {
		t.Fatalf("LoadTask failed: %v", err)
	}
	if loaded.Title != "First task" {
		t.Errorf("Title = %q, want %q", loaded.Title, "First task")
	}
	if len(loaded.Labels) != 2 {
		t.Errorf("Labels = %v, want 2 entries", loaded.Labels)
	}
	if loaded.BlockedByCount != 0 {
		t.Errorf("BlockedByCount = %d, want 0", loaded.BlockedByCount)
	}
}

func TestLoadTaskNotFound(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	_, err := store.LoadTask(ctx, "deadbeef")
	if !types.IsNotFound(err) {
		t.Errorf("LoadTask(missing) err = %v, want not_found", err)
	}
}

func TestSaveTaskEphemeralNoOp(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	task := newTask("ffffffff", "Scratch note", 1000)
	task.TaskType = types.TypeEphemeral

	if err := store.SaveTask(ctx, task); err != nil {
		t.Fatalf("SaveTask failed: %v", err)
	}

	exists, err := store.TaskExists(ctx, "ffffffff")
	if err != nil {
		t.Fatalf("TaskExists failed: %v", err)
	}
	if exists {
		t.Error("ephemeral task should never be persisted")
	}
}

func TestSaveTaskUpsert(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	task := newTask("bbbbbbbb", "Original", 1000)
	if err := store.SaveTask(ctx, task); err != nil {
		t.Fatalf("SaveTask failed: %v", err)
	}

	task.Title = "Updated"
	task.UpdatedAt = 2000
	if err := store.SaveTask(ctx, task); err != nil {
		t.Fatalf("SaveTask (update) failed: %v", err)
	}

	loaded, err := store.LoadTask(ctx, "bbbbbbbb")
	if err != nil {
		t.Fatalf("LoadTask failed: %v", err)
	}
	if loaded.Title != "Updated" {
		t.Errorf("Title = %q, want %q", loaded.Title, "Updated")
	}
}

func TestDeleteTask(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	task := newTask("cccccccc", "Temp", 1000)
	if err := store.SaveTask(ctx, task); err != nil {
		t.Fatalf("SaveTask failed: %v", err)
	}
	if err := store.DeleteTask(ctx, "cccccccc"); err != nil {
		t.Fatalf("DeleteTask failed: %v", err)
	}
	if _, err := store.LoadTask(ctx, "cccccccc"); !types.IsNotFound(err) {
		t.Errorf("expected not_found after delete, got %v", err)
	}
}

func TestDeleteTaskNotFound(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	err := store.DeleteTask(ctx, "00000000")
	if !types.IsNotFound(err) {
		t.Errorf("DeleteTask(missing) err = %v, want not_found", err)
	}
}

func TestUpdateTaskStatus(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	task := newTask("dddddddd", "Work", 1000)
	if err := store.SaveTask(ctx, task); err != nil {
		t.Fatalf("SaveTask failed: %v", err)
	}

	completedAt := int64(5000)
	if err := store.UpdateTaskStatus(ctx, "dddddddd", types.StatusCompleted, &completedAt); err != nil {
		t.Fatalf("UpdateTaskStatus failed: %v", err)
	}

	loaded, err := store.LoadTask(ctx, "dddddddd")
	if err != nil {
		t.Fatalf("LoadTask failed: %v", err)
	}
	if loaded.Status != types.StatusCompleted {
		t.Errorf("Status = %v, want completed", loaded.Status)
	}
	if loaded.CompletedAt == nil || *loaded.CompletedAt != 5000 {
		t.Errorf("CompletedAt = %v, want 5000", loaded.CompletedAt)
	}
}

func TestUpdateCommitTrackingPreservesUnsetField(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	task := newTask("eeeeeeee", "Work", 1000)
	if err := store.SaveTask(ctx, task); err != nil {
		t.Fatalf("SaveTask failed: %v", err)
	}

	started := "abc123"
	if err := store.UpdateCommitTracking(ctx, "eeeeeeee", &started, nil); err != nil {
		t.Fatalf("UpdateCommitTracking failed: %v", err)
	}
	completed := "def456"
	if err := store.UpdateCommitTracking(ctx, "eeeeeeee", nil, &completed); err != nil {
		t.Fatalf("UpdateCommitTracking failed: %v", err)
	}

	loaded, err := store.LoadTask(ctx, "eeeeeeee")
	if err != nil {
		t.Fatalf("LoadTask failed: %v", err)
	}
	if loaded.StartedAtCommit == nil || *loaded.StartedAtCommit != "abc123" {
		t.Errorf("StartedAtCommit = %v, want abc123", loaded.StartedAtCommit)
	}
	if loaded.CompletedAtCommit == nil || *loaded.CompletedAtCommit != "def456" {
		t.Errorf("CompletedAtCommit = %v, want def456", loaded.CompletedAtCommit)
	}
}
