package jsonl

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/taskgraph/tg/internal/storage/sqlite"
	"github.com/taskgraph/tg/internal/types"
)

func newPopulatedStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	ctx := context.Background()

	desc := "has a description"
	require.NoError(t, store.SaveTask(ctx, &types.Task{
		ID: "aaaaaaaa", Title: "Task A", Description: &desc,
		Status: types.StatusPending, Priority: types.PriorityHigh, TaskType: types.TypeTask,
		Labels: []string{"backend"}, CreatedAt: 1000, UpdatedAt: 1000,
	}))
	require.NoError(t, store.AppendComment(ctx, "aaaaaaaa", &types.Comment{Agent: "planner", Content: "first", Timestamp: 1001}))
	require.NoError(t, store.AppendComment(ctx, "aaaaaaaa", &types.Comment{Agent: "executor", Content: "second", Timestamp: 1002}))

	require.NoError(t, store.SaveTask(ctx, &types.Task{
		ID: "bbbbbbbb", Title: "Task B", Status: types.StatusPending,
		Priority: types.PriorityMedium, TaskType: types.TypeTask, CreatedAt: 1100, UpdatedAt: 1100,
	}))

	completedAt := int64(1300)
	require.NoError(t, store.SaveTask(ctx, &types.Task{
		ID: "cccccccc", Title: "Task C", Status: types.StatusCompleted,
		Priority: types.PriorityLow, TaskType: types.TypeTask,
		CreatedAt: 1200, UpdatedAt: 1300, CompletedAt: &completedAt,
	}))

	require.NoError(t, store.SaveDependency(ctx, &types.Dependency{SrcID: "cccccccc", DstID: "bbbbbbbb", Type: types.DepRelated, Weight: 1.0}))
	require.NoError(t, store.SaveDependency(ctx, &types.Dependency{SrcID: "bbbbbbbb", DstID: "aaaaaaaa", Type: types.DepParent, Weight: 1.0}))

	require.NoError(t, store.SaveSessionState(ctx, &types.SessionState{SessionID: "1000-abcd", StartedAt: 1000, CurrentTaskID: strPtr("aaaaaaaa")}))
	return store
}

func strPtr(s string) *string { return &s }

func TestExportThenImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := newPopulatedStore(t)
	defer src.Close()

	dir := t.TempDir()
	bridge := New(dir)
	require.NoError(t, bridge.Export(ctx, src))

	require.FileExists(t, filepath.Join(dir, "tasks.jsonl"))
	require.FileExists(t, filepath.Join(dir, "dependencies.jsonl"))
	require.FileExists(t, filepath.Join(dir, "SESSION_STATE.md"))

	dst, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	defer dst.Close()

	result, err := bridge.Import(ctx, dst)
	require.NoError(t, err)
	require.Equal(t, 3, result.NewTasks)
	require.Equal(t, 2, result.NewDependencies)

	for _, id := range []string{"aaaaaaaa", "bbbbbbbb", "cccccccc"} {
		original, err := src.LoadTask(ctx, id)
		require.NoError(t, err)
		roundTripped, err := dst.LoadTask(ctx, id)
		require.NoError(t, err)
		require.Equal(t, original.Title, roundTripped.Title)
		require.Equal(t, original.Status, roundTripped.Status)
		require.Equal(t, original.Priority, roundTripped.Priority)
		require.Equal(t, original.Labels, roundTripped.Labels)
		require.Equal(t, original.BlockedByCount, roundTripped.BlockedByCount)
		require.Len(t, roundTripped.Comments, len(original.Comments))
	}
}

func TestImportIsIdempotent(t *testing.T) {
	ctx := context.Background()
	src := newPopulatedStore(t)
	defer src.Close()

	dir := t.TempDir()
	bridge := New(dir)
	require.NoError(t, bridge.Export(ctx, src))

	dst, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	defer dst.Close()

	first, err := bridge.Import(ctx, dst)
	require.NoError(t, err)
	require.Equal(t, 3, first.NewTasks)

	second, err := bridge.Import(ctx, dst)
	require.NoError(t, err)
	require.Equal(t, 0, second.NewTasks)
	require.Equal(t, 0, second.NewDependencies)
}

func TestColdStartPrefersExistingStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	bridge := New(dir)

	store, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.SaveTask(ctx, &types.Task{
		ID: "deadbeef", Title: "Already here", Status: types.StatusPending,
		Priority: types.PriorityMedium, TaskType: types.TypeTask, CreatedAt: 1, UpdatedAt: 1,
	}))

	imported, _, err := bridge.ColdStart(ctx, store)
	require.NoError(t, err)
	require.False(t, imported)
}

func TestColdStartImportsWhenEmpty(t *testing.T) {
	ctx := context.Background()
	src := newPopulatedStore(t)
	defer src.Close()

	dir := t.TempDir()
	bridge := New(dir)
	require.NoError(t, bridge.Export(ctx, src))

	dst, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	defer dst.Close()

	imported, result, err := bridge.ColdStart(ctx, dst)
	require.NoError(t, err)
	require.True(t, imported)
	require.Equal(t, 3, result.NewTasks)
}

func TestExportIncrementalMatchesFullExport(t *testing.T) {
	ctx := context.Background()
	store := newPopulatedStore(t)
	defer store.Close()

	fullDir := t.TempDir()
	require.NoError(t, New(fullDir).Export(ctx, store))

	store2 := newPopulatedStore(t)
	defer store2.Close()

	incDir := t.TempDir()
	require.NoError(t, New(incDir).ExportIncremental(ctx, store2))

	fullTasks, err := ReadTasksFromFile(filepath.Join(fullDir, "tasks.jsonl"))
	require.NoError(t, err)
	incTasks, err := ReadTasksFromFile(filepath.Join(incDir, "tasks.jsonl"))
	require.NoError(t, err)
	require.Equal(t, len(fullTasks), len(incTasks))
	for i := range fullTasks {
		require.Equal(t, fullTasks[i].ID, incTasks[i].ID)
		require.Equal(t, fullTasks[i].Title, incTasks[i].Title)
	}
}
