package sqlite

import (
	"testing"

	"github.com/taskgraph/tg/internal/types"
)

func setupTestDB(t *testing.T) (*Store, func()) {
	t.Helper()
	store, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return store, func() { store.Close() }
}

func newTask(id, title string, createdAt int64) *types.Task {
	return &types.Task{
		ID:        id,
		Title:     title,
		Status:    types.StatusPending,
		Priority:  types.PriorityMedium,
		TaskType:  types.TypeTask,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}
