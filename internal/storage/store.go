// Package storage defines the PersistentStore contract (spec §4.1): the
// single durable source of truth for tasks, dependencies, comments, and
// session state. Concrete backends live in storage/sqlite (the default,
// embedded, crash-safe store) and storage/dolt (an alternate
// version-controlled backend, see SPEC_FULL.md §11).
package storage

import (
	"context"

	"github.com/taskgraph/tg/internal/types"
)

// TaskStore is the full set of read/write primitives a PersistentStore
// backend exposes. Both the top-level Store and any in-flight Tx satisfy
// it, so facade code can be written once against whichever of the two it
// currently holds.
type TaskStore interface {
	TaskExists(ctx context.Context, id string) (bool, error)
	SaveTask(ctx context.Context, t *types.Task) error
	LoadTask(ctx context.Context, id string) (*types.Task, error)
	LoadAllTasks(ctx context.Context) ([]*types.Task, error)
	ListTasks(ctx context.Context, filter types.ListFilter) ([]*types.Task, error)
	DeleteTask(ctx context.Context, id string) error

	UpdateTaskStatus(ctx context.Context, id string, status types.Status, completedAt *int64) error
	UpdateTaskTitle(ctx context.Context, id string, title string) error
	UpdateTaskPriority(ctx context.Context, id string, priority types.Priority) error
	UpdateTaskType(ctx context.Context, id string, taskType types.TaskType) error
	UpdateCommitTracking(ctx context.Context, id string, startedAtCommit, completedAtCommit *string) error

	SaveDependency(ctx context.Context, dep *types.Dependency) error
	DeleteDependency(ctx context.Context, src, dst string, depType types.DependencyType) error
	LoadAllDependencies(ctx context.Context) ([]*types.Dependency, error)
	WouldCreateCycle(ctx context.Context, src, dst string) (bool, error)

	GetBlockedByCount(ctx context.Context, id string) (int, error)
	GetNewlyUnblockedTasks(ctx context.Context, completedSrcID string) ([]string, error)

	AppendComment(ctx context.Context, taskID string, c *types.Comment) error
	GetLastCommentFrom(ctx context.Context, taskID, agent string) (*types.Comment, error)
	GetTasksWithCommentPrefix(ctx context.Context, prefix string) ([]string, error)
	CountCommentsWithPrefix(ctx context.Context, taskID, agent, prefix string) (int, error)

	GetReadyTasks(ctx context.Context) ([]*types.Task, error)
	GetTaskCounts(ctx context.Context) (types.TaskCounts, error)
	GetChildren(ctx context.Context, parentID string) ([]*types.Task, error)
	GetSiblings(ctx context.Context, id string) ([]*types.Task, error)
	GetBlockedBy(ctx context.Context, id string) ([]*types.Task, error)
	GetBlocking(ctx context.Context, id string) ([]*types.Task, error)
	GetBlockingTaskIDs(ctx context.Context, id string) ([]string, error)
	GetContainerSummary(ctx context.Context, id string) (types.ContainerSummary, error)

	SaveSessionState(ctx context.Context, s *types.SessionState) error
	LoadSessionState(ctx context.Context) (*types.SessionState, error)

	// GetDirtyTaskIDs and ClearDirty back the incremental-export mode
	// described in SPEC_FULL.md §12: every mutation marks a task dirty,
	// and a clean export clears exactly the ids it wrote.
	GetDirtyTaskIDs(ctx context.Context) ([]string, error)
	ClearDirty(ctx context.Context, ids []string) error
}

// Tx is a transaction in progress. Begin on a Tx maps to a SQL SAVEPOINT
// so an inner Rollback discards only the inner work (spec §4.1, §5).
type Tx interface {
	TaskStore
	Begin(ctx context.Context) (Tx, error)
	Commit() error
	Rollback() error
}

// Store is the top-level handle to a PersistentStore backend. Calls made
// directly on a Store each run in their own implicit transaction; calls
// inside a Tx started by Begin are atomic as a group.
type Store interface {
	TaskStore
	Begin(ctx context.Context) (Tx, error)
	Close() error
}
