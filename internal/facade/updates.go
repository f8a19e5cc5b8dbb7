package facade

import (
	"context"
	"fmt"

	"github.com/taskgraph/tg/internal/debug"
	"github.com/taskgraph/tg/internal/metrics"
	"github.com/taskgraph/tg/internal/storage"
	"github.com/taskgraph/tg/internal/types"
)

// UpdateStatus rejects blocked on a container with cannot_block_container,
// forbids leaving a terminal status per the reopen decision in
// SPEC_FULL.md §13, sets completed_at iff transitioning to completed, and
// notifies the scheduler (spec §4.3).
func (f *Facade) UpdateStatus(ctx context.Context, id string, status types.Status) error {
	if err := validateID(id); err != nil {
		return err
	}
	err := f.withTx(ctx, func(tx storage.Tx) error {
		task, err := tx.LoadTask(ctx, id)
		if err != nil {
			return err
		}
		if task.TaskType == types.TypeEphemeral {
			return types.ErrCannotUpdateEphemeral
		}
		if status == types.StatusBlocked && task.TaskType == types.TypeContainer {
			return types.ErrCannotBlockContainer
		}
		if task.Status.IsTerminal() && !status.IsTerminal() {
			return types.ErrCannotReopenCompleted
		}

		var completedAt *int64
		if status == types.StatusCompleted {
			now := f.nowFn()
			completedAt = &now
		}
		return tx.UpdateTaskStatus(ctx, id, status, completedAt)
	})
	if err != nil {
		return err
	}
	return f.sched.HandleTaskStatusChange(ctx, f.store, id, status, nil)
}

// UpdateTitle sets a task's title.
func (f *Facade) UpdateTitle(ctx context.Context, id string, title string) error {
	if err := validateID(id); err != nil {
		return err
	}
	return f.withTx(ctx, func(tx storage.Tx) error {
		task, err := tx.LoadTask(ctx, id)
		if err != nil {
			return err
		}
		if task.TaskType == types.TypeEphemeral {
			return types.ErrCannotUpdateEphemeral
		}
		return tx.UpdateTaskTitle(ctx, id, title)
	})
}

// UpdatePriority sets a task's priority.
func (f *Facade) UpdatePriority(ctx context.Context, id string, priority types.Priority) error {
	if err := validateID(id); err != nil {
		return err
	}
	err := f.withTx(ctx, func(tx storage.Tx) error {
		task, err := tx.LoadTask(ctx, id)
		if err != nil {
			return err
		}
		if task.TaskType == types.TypeEphemeral {
			return types.ErrCannotUpdateEphemeral
		}
		return tx.UpdateTaskPriority(ctx, id, priority)
	})
	if err != nil {
		return err
	}
	f.sched.InvalidateCache()
	return nil
}

// UpdateTaskType changes a task's type. Converting to or from ephemeral
// is rejected. Converting to container on a currently blocked task
// relaxes status to pending, since containers can never be blocked
// (spec §4.3).
func (f *Facade) UpdateTaskType(ctx context.Context, id string, taskType types.TaskType) error {
	if err := validateID(id); err != nil {
		return err
	}
	var resultStatus types.Status
	err := f.withTx(ctx, func(tx storage.Tx) error {
		task, err := tx.LoadTask(ctx, id)
		if err != nil {
			return err
		}
		if task.TaskType == types.TypeEphemeral || taskType == types.TypeEphemeral {
			return types.ErrCannotChangeEphemeral
		}
		if err := tx.UpdateTaskType(ctx, id, taskType); err != nil {
			return err
		}
		resultStatus = task.Status
		if taskType == types.TypeContainer && task.Status == types.StatusBlocked {
			if err := tx.UpdateTaskStatus(ctx, id, types.StatusPending, nil); err != nil {
				return err
			}
			resultStatus = types.StatusPending
		}
		return nil
	})
	if err != nil {
		return err
	}
	newType := taskType
	return f.sched.HandleTaskStatusChange(ctx, f.store, id, resultStatus, &newType)
}

// UpdateCommitTracking sets the started/completed commit markers an
// external version-control collaborator uses to bracket a task's diff.
func (f *Facade) UpdateCommitTracking(ctx context.Context, id string, startedAtCommit, completedAtCommit *string) error {
	if err := validateID(id); err != nil {
		return err
	}
	return f.withTx(ctx, func(tx storage.Tx) error {
		task, err := tx.LoadTask(ctx, id)
		if err != nil {
			return err
		}
		if task.TaskType == types.TypeEphemeral {
			return types.ErrCannotUpdateEphemeral
		}
		return tx.UpdateCommitTracking(ctx, id, startedAtCommit, completedAtCommit)
	})
}

// DeleteTask destroys a task outright. Rare per spec §3 ("Destroyed only
// by explicit delete_task"); dependency edges and comments referencing it
// are removed atomically with it by the store (ON DELETE CASCADE in
// sqlite, explicit deletes in dolt). Clears the current-task
// pointer if it named id and invalidates the ready cache either way.
func (f *Facade) DeleteTask(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	err := f.withTx(ctx, func(tx storage.Tx) error {
		return tx.DeleteTask(ctx, id)
	})
	if err != nil {
		return err
	}
	return f.sched.HandleTaskStatusChange(ctx, f.store, id, types.StatusCancelled, nil)
}

// TaskUpdate is the batch form consumed by UpdateTask (spec §4.3).
type TaskUpdate struct {
	Title    *string
	Priority *types.Priority
	TaskType *types.TaskType
	Status   *types.Status
}

// UpdateTask applies every non-nil field of u to id in a single
// transaction; if Status transitions to completed it returns a
// CompleteResult with the newly-unblocked ids, exactly as CompleteTask
// does.
func (f *Facade) UpdateTask(ctx context.Context, id string, u TaskUpdate) (*types.CompleteResult, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	var result *types.CompleteResult
	var newStatus types.Status
	var newType *types.TaskType

	err := f.withTx(ctx, func(tx storage.Tx) error {
		task, err := tx.LoadTask(ctx, id)
		if err != nil {
			return err
		}
		if task.TaskType == types.TypeEphemeral {
			return types.ErrCannotUpdateEphemeral
		}

		if u.Title != nil {
			if err := tx.UpdateTaskTitle(ctx, id, *u.Title); err != nil {
				return err
			}
		}
		if u.Priority != nil {
			if err := tx.UpdateTaskPriority(ctx, id, *u.Priority); err != nil {
				return err
			}
		}
		if u.TaskType != nil {
			if task.TaskType == types.TypeEphemeral || *u.TaskType == types.TypeEphemeral {
				return types.ErrCannotChangeEphemeral
			}
			if err := tx.UpdateTaskType(ctx, id, *u.TaskType); err != nil {
				return err
			}
			newType = u.TaskType
			if *u.TaskType == types.TypeContainer && task.Status == types.StatusBlocked {
				if err := tx.UpdateTaskStatus(ctx, id, types.StatusPending, nil); err != nil {
					return err
				}
				task.Status = types.StatusPending
			}
		}
		if u.Status != nil {
			effectiveType := task.TaskType
			if newType != nil {
				effectiveType = *newType
			}
			if *u.Status == types.StatusBlocked && effectiveType == types.TypeContainer {
				return types.ErrCannotBlockContainer
			}
			if task.Status.IsTerminal() && !u.Status.IsTerminal() {
				return types.ErrCannotReopenCompleted
			}

			var completedAt *int64
			if *u.Status == types.StatusCompleted {
				now := f.nowFn()
				completedAt = &now
			}
			if err := tx.UpdateTaskStatus(ctx, id, *u.Status, completedAt); err != nil {
				return err
			}
			newStatus = *u.Status

			if *u.Status == types.StatusCompleted {
				unblocked, err := tx.GetNewlyUnblockedTasks(ctx, id)
				if err != nil {
					return err
				}
				for _, unblockedID := range unblocked {
					if err := tx.UpdateTaskStatus(ctx, unblockedID, types.StatusPending, nil); err != nil {
						return err
					}
				}
				result = &types.CompleteResult{ID: id, Unblocked: unblocked}
				metrics.RecordCascadeUnblockFanout(ctx, len(unblocked))
				debug.LogEvent("TASK_COMPLETED", id, fmt.Sprintf("unblocked=%d", len(unblocked)))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if u.Status != nil {
		if err := f.sched.HandleTaskStatusChange(ctx, f.store, id, newStatus, newType); err != nil {
			return result, err
		}
	} else {
		f.sched.InvalidateCache()
	}
	return result, nil
}

// CompleteTask sets status to completed, cascades the unblock, clears the
// current-task pointer if it pointed at id, and invalidates the cache
// (spec §4.3).
func (f *Facade) CompleteTask(ctx context.Context, id string) (*types.CompleteResult, error) {
	completed := types.StatusCompleted
	result, err := f.UpdateTask(ctx, id, TaskUpdate{Status: &completed})
	if err != nil {
		return nil, err
	}
	return result, nil
}
