package facade

import (
	"context"

	"github.com/taskgraph/tg/internal/storage"
	"github.com/taskgraph/tg/internal/types"
)

// AddComment appends a comment with a facade-assigned timestamp
// (spec §4.3).
func (f *Facade) AddComment(ctx context.Context, taskID, agent, content string) error {
	if err := validateID(taskID); err != nil {
		return err
	}
	return f.withTx(ctx, func(tx storage.Tx) error {
		return tx.AppendComment(ctx, taskID, &types.Comment{
			Agent:     agent,
			Content:   content,
			Timestamp: f.nowFn(),
		})
	})
}

// AddTaskComment is the spec §6 alias for AddComment.
func (f *Facade) AddTaskComment(ctx context.Context, taskID, agent, content string) error {
	return f.AddComment(ctx, taskID, agent, content)
}

// ListTaskComments returns a task's comments via LoadTask (spec §6).
func (f *Facade) ListTaskComments(ctx context.Context, taskID string) ([]types.Comment, error) {
	if err := validateID(taskID); err != nil {
		return nil, err
	}
	task, err := f.store.LoadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return task.Comments, nil
}

// GetLastCommentFrom is a read-only passthrough.
func (f *Facade) GetLastCommentFrom(ctx context.Context, taskID, agent string) (*types.Comment, error) {
	if err := validateID(taskID); err != nil {
		return nil, err
	}
	return f.store.GetLastCommentFrom(ctx, taskID, agent)
}

// GetTasksWithCommentPrefix is a read-only passthrough.
func (f *Facade) GetTasksWithCommentPrefix(ctx context.Context, prefix string) ([]string, error) {
	return f.store.GetTasksWithCommentPrefix(ctx, prefix)
}

// CountCommentsWithPrefix is a read-only passthrough.
func (f *Facade) CountCommentsWithPrefix(ctx context.Context, taskID, agent, prefix string) (int, error) {
	if err := validateID(taskID); err != nil {
		return 0, err
	}
	return f.store.CountCommentsWithPrefix(ctx, taskID, agent, prefix)
}

// BlockTask sets status=blocked with an explanatory comment in one call
// (spec §6).
func (f *Facade) BlockTask(ctx context.Context, id, agent, reason string) error {
	if err := f.UpdateStatus(ctx, id, types.StatusBlocked); err != nil {
		return err
	}
	return f.AddComment(ctx, id, agent, "BLOCKED: "+reason)
}

// RequestRevision appends a REJECTED: ... comment (spec §6); it is
// typically followed by the caller moving the task back to pending.
func (f *Facade) RequestRevision(ctx context.Context, id, agent, reason string) error {
	return f.AddComment(ctx, id, agent, "REJECTED: "+reason)
}

// SubmitWork appends a SUMMARY: ... comment and records the completing
// commit marker (spec §6).
func (f *Facade) SubmitWork(ctx context.Context, id, agent, summary, commit string) error {
	if err := f.AddComment(ctx, id, agent, "SUMMARY: "+summary); err != nil {
		return err
	}
	return f.UpdateCommitTracking(ctx, id, nil, &commit)
}
