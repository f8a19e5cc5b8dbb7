package sqlite

import (
	"context"
	"testing"

	"github.com/taskgraph/tg/internal/types"
)

func TestAppendCommentAndLoad(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	task := newTask("aaaaaaaa", "A", 1000)
	store.SaveTask(ctx, task)

	if err := store.AppendComment(ctx, "aaaaaaaa", &types.Comment{Agent: "agent-1", Content: "started work", Timestamp: 1100}); err != nil {
		t.Fatalf("AppendComment failed: %v", err)
	}
	if err := store.AppendComment(ctx, "aaaaaaaa", &types.Comment{Agent: "agent-2", Content: "STATUS: blocked on review", Timestamp: 1200}); err != nil {
		t.Fatalf("AppendComment failed: %v", err)
	}

	loaded, err := store.LoadTask(ctx, "aaaaaaaa")
	if err != nil {
		t.Fatalf("LoadTask failed: %v", err)
	}
	if len(loaded.Comments) != 2 {
		t.Fatalf("len(Comments) = %d, want 2", len(loaded.Comments))
	}
	if loaded.Comments[0].Agent != "agent-1" {
		t.Errorf("Comments[0].Agent = %q, want agent-1 (chronological order)", loaded.Comments[0].Agent)
	}
}

func TestAppendCommentMissingTask(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	err := store.AppendComment(ctx, "deadbeef", &types.Comment{Agent: "agent-1", Content: "x", Timestamp: 1000})
	if !types.IsNotFound(err) {
		t.Errorf("err = %v, want not_found", err)
	}
}

func TestGetLastCommentFrom(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	task := newTask("aaaaaaaa", "A", 1000)
	store.SaveTask(ctx, task)
	store.AppendComment(ctx, "aaaaaaaa", &types.Comment{Agent: "agent-1", Content: "first", Timestamp: 1000})
	store.AppendComment(ctx, "aaaaaaaa", &types.Comment{Agent: "agent-1", Content: "second", Timestamp: 2000})
	store.AppendComment(ctx, "aaaaaaaa", &types.Comment{Agent: "agent-2", Content: "other agent", Timestamp: 1500})

	last, err := store.GetLastCommentFrom(ctx, "aaaaaaaa", "agent-1")
	if err != nil {
		t.Fatalf("GetLastCommentFrom failed: %v", err)
	}
	if last == nil || last.Content != "second" {
		t.Errorf("last = %+v, want content=second", last)
	}
}

func TestGetLastCommentFromNone(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	task := newTask("aaaaaaaa", "A", 1000)
	store.SaveTask(ctx, task)

	last, err := store.GetLastCommentFrom(ctx, "aaaaaaaa", "nobody")
	if err != nil {
		t.Fatalf("GetLastCommentFrom failed: %v", err)
	}
	if last != nil {
		t.Errorf("last = %+v, want nil", last)
	}
}

func TestGetTasksWithCommentPrefix(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	a := newTask("aaaaaaaa", "A", 1000)
	b := newTask("bbbbbbbb", "B", 1000)
	store.SaveTask(ctx, a)
	store.SaveTask(ctx, b)
	store.AppendComment(ctx, "aaaaaaaa", &types.Comment{Agent: "agent-1", Content: "STATUS: done", Timestamp: 1000})
	store.AppendComment(ctx, "bbbbbbbb", &types.Comment{Agent: "agent-1", Content: "just a note", Timestamp: 1000})

	ids, err := store.GetTasksWithCommentPrefix(ctx, "STATUS:")
	if err != nil {
		t.Fatalf("GetTasksWithCommentPrefix failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != "aaaaaaaa" {
		t.Errorf("ids = %v, want [aaaaaaaa]", ids)
	}
}

func TestCountCommentsWithPrefix(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	a := newTask("aaaaaaaa", "A", 1000)
	store.SaveTask(ctx, a)
	store.AppendComment(ctx, "aaaaaaaa", &types.Comment{Agent: "agent-1", Content: "STATUS: a", Timestamp: 1000})
	store.AppendComment(ctx, "aaaaaaaa", &types.Comment{Agent: "agent-1", Content: "STATUS: b", Timestamp: 1001})
	store.AppendComment(ctx, "aaaaaaaa", &types.Comment{Agent: "agent-2", Content: "STATUS: c", Timestamp: 1002})

	n, err := store.CountCommentsWithPrefix(ctx, "aaaaaaaa", "agent-1", "STATUS:")
	if err != nil {
		t.Fatalf("CountCommentsWithPrefix failed: %v", err)
	}
	if n != 2 {
		t.Errorf("n = %d, want 2", n)
	}
}
