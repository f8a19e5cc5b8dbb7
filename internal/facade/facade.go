// Package facade is the public API surface agents consume (spec §4.3):
// every mutating entry point wraps exactly one PersistentStore
// transaction and coordinates with the Scheduler for cache invalidation
// and current-task clearing.
package facade

import (
	"context"
	"fmt"

	"github.com/taskgraph/tg/internal/debug"
	"github.com/taskgraph/tg/internal/idgen"
	"github.com/taskgraph/tg/internal/scheduler"
	"github.com/taskgraph/tg/internal/storage"
	"github.com/taskgraph/tg/internal/types"
)

// Facade is the single entry point mutating or reading task-graph state.
// It holds the durable Store and the volatile Scheduler together so that
// every mutation can invalidate the scheduler's cache after committing.
type Facade struct {
	store storage.Store
	sched *scheduler.Scheduler
	nowFn func() int64
}

// New builds a Facade over an already-open Store. nowFn supplies the
// current Unix time and is injected so tests can use a fixed clock.
func New(store storage.Store, sched *scheduler.Scheduler, nowFn func() int64) *Facade {
	return &Facade{store: store, sched: sched, nowFn: nowFn}
}

// CreateTaskParams mirrors spec §4.3's create_task params. Priority and
// TaskType are pointers so CreateTask can distinguish "not supplied"
// (defaults to medium/task) from an explicit zero-value choice
// (critical priority is numerically 0).
type CreateTaskParams struct {
	Title             string
	Description       *string
	Priority          *types.Priority
	TaskType          *types.TaskType
	Labels            []string
	ParentID          *string
	MustCompleteFirst []string
}

// validateID rejects a malformed id before any store lookup runs, so a
// typo'd or truncated id surfaces spec §7's invalid_id kind instead of
// masquerading as not_found.
func validateID(id string) error {
	if !idgen.ValidID(id) {
		return types.InvalidID(id)
	}
	return nil
}

// withTx wraps fn in exactly one store transaction: commit on success,
// rollback (with the original error preserved, per spec §7) on failure.
func (f *Facade) withTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	tx, err := f.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			debug.Logf("rollback failed after error %v: %v\n", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// CreateTask computes the task's id, fails with id_collision if taken,
// inserts it, and — within the same transaction — adds a blocks edge
// from each must_complete_first id, leaving the new task blocked if any
// source is not yet completed or cancelled (spec §4.3).
func (f *Facade) CreateTask(ctx context.Context, params CreateTaskParams) (string, error) {
	if params.ParentID != nil {
		if err := validateID(*params.ParentID); err != nil {
			return "", err
		}
	}
	for _, srcID := range params.MustCompleteFirst {
		if err := validateID(srcID); err != nil {
			return "", err
		}
	}
	priority := types.PriorityMedium
	if params.Priority != nil {
		priority = *params.Priority
	}
	taskType := types.TypeTask
	if params.TaskType != nil {
		taskType = *params.TaskType
	}

	now := f.nowFn()
	id := idgen.GenerateTaskID(params.Title, now, 0)

	task := &types.Task{
		ID:          id,
		Title:       params.Title,
		Description: params.Description,
		Status:      types.StatusPending,
		Priority:    priority,
		TaskType:    taskType,
		ParentID:    params.ParentID,
		Labels:      params.Labels,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := task.Validate(); err != nil {
		return "", err
	}

	err := f.withTx(ctx, func(tx storage.Tx) error {
		exists, err := tx.TaskExists(ctx, id)
		if err != nil {
			return err
		}
		if exists {
			return types.IDCollision(id)
		}
		if err := tx.SaveTask(ctx, task); err != nil {
			return err
		}

		blocked := false
		for _, srcID := range params.MustCompleteFirst {
			src, err := tx.LoadTask(ctx, srcID)
			if err != nil {
				return err
			}
			if err := tx.SaveDependency(ctx, &types.Dependency{SrcID: srcID, DstID: id, Type: types.DepBlocks}); err != nil {
				return err
			}
			if !src.Status.IsTerminal() {
				blocked = true
			}
		}
		if blocked {
			if err := tx.UpdateTaskStatus(ctx, id, types.StatusBlocked, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	f.sched.InvalidateCache()
	return id, nil
}

// AddSubtask is add_task plus parent_id, matching spec §6's add_subtask
// shortcut.
func (f *Facade) AddSubtask(ctx context.Context, parentID string, params CreateTaskParams) (string, error) {
	if err := validateID(parentID); err != nil {
		return "", err
	}
	params.ParentID = &parentID
	return f.CreateTask(ctx, params)
}

// GetTask is a read-only passthrough (spec §4.3).
func (f *Facade) GetTask(ctx context.Context, id string) (*types.Task, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	return f.store.LoadTask(ctx, id)
}

// ListTasks is a read-only passthrough.
func (f *Facade) ListTasks(ctx context.Context, filter types.ListFilter) ([]*types.Task, error) {
	return f.store.ListTasks(ctx, filter)
}

// GetChildren is a read-only passthrough.
func (f *Facade) GetChildren(ctx context.Context, parentID string) ([]*types.Task, error) {
	if err := validateID(parentID); err != nil {
		return nil, err
	}
	return f.store.GetChildren(ctx, parentID)
}

// GetSiblings is a read-only passthrough.
func (f *Facade) GetSiblings(ctx context.Context, id string) ([]*types.Task, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	return f.store.GetSiblings(ctx, id)
}

// GetBlockedBy is a read-only passthrough.
func (f *Facade) GetBlockedBy(ctx context.Context, id string) ([]*types.Task, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	return f.store.GetBlockedBy(ctx, id)
}

// GetBlocking is a read-only passthrough.
func (f *Facade) GetBlocking(ctx context.Context, id string) ([]*types.Task, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	return f.store.GetBlocking(ctx, id)
}

// GetBlockedTasks is the status=blocked filter shortcut from spec §6.
func (f *Facade) GetBlockedTasks(ctx context.Context) ([]*types.Task, error) {
	return f.store.ListTasks(ctx, types.ListFilter{Status: types.StatusBlocked})
}

// GetContainerSummary is a read-only passthrough.
func (f *Facade) GetContainerSummary(ctx context.Context, id string) (types.ContainerSummary, error) {
	if err := validateID(id); err != nil {
		return types.ContainerSummary{}, err
	}
	return f.store.GetContainerSummary(ctx, id)
}

// GetCurrentTask delegates to the scheduler.
func (f *Facade) GetCurrentTask(ctx context.Context) (*types.Task, error) {
	return f.sched.CurrentTask(ctx, f.store)
}

// GetReadyTasks delegates to the scheduler's cached ready queue.
func (f *Facade) GetReadyTasks(ctx context.Context) ([]*types.Task, error) {
	return f.sched.GetReadyTasks(ctx, f.store)
}

// SetCurrentTask is a.k.a. start_task in spec §6.
func (f *Facade) SetCurrentTask(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	return f.sched.SetCurrentTask(ctx, f.store, id)
}

// StartTask is the spec §6 alias for SetCurrentTask.
func (f *Facade) StartTask(ctx context.Context, id string) error {
	return f.SetCurrentTask(ctx, id)
}
