package jsonl

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/taskgraph/tg/internal/types"
)

// RenderSessionState builds the human-readable SESSION_STATE.md described
// in spec §6: current task, the top 10 ready tasks by priority, the last
// 3 completed tasks, and the session id/start time.
func RenderSessionState(ctx context.Context, store interface {
	LoadSessionState(ctx context.Context) (*types.SessionState, error)
	LoadTask(ctx context.Context, id string) (*types.Task, error)
	GetReadyTasks(ctx context.Context) ([]*types.Task, error)
	ListTasks(ctx context.Context, filter types.ListFilter) ([]*types.Task, error)
}) (string, error) {
	var b strings.Builder
	b.WriteString("# Session State\n\n")

	session, err := store.LoadSessionState(ctx)
	if err != nil {
		return "", fmt.Errorf("render session state: load session: %w", err)
	}

	b.WriteString("## Current Task\n\n")
	if session != nil && session.CurrentTaskID != nil {
		task, err := store.LoadTask(ctx, *session.CurrentTaskID)
		if err != nil && !types.IsNotFound(err) {
			return "", fmt.Errorf("render session state: load current task: %w", err)
		}
		if task != nil {
			fmt.Fprintf(&b, "- **%s** — %s\n\n", task.ID, task.Title)
		} else {
			b.WriteString("_none_\n\n")
		}
	} else {
		b.WriteString("_none_\n\n")
	}

	b.WriteString("## Ready Queue (top 10)\n\n")
	ready, err := store.GetReadyTasks(ctx)
	if err != nil {
		return "", fmt.Errorf("render session state: get ready tasks: %w", err)
	}
	if len(ready) == 0 {
		b.WriteString("_empty_\n\n")
	} else {
		for i, t := range ready {
			if i >= 10 {
				break
			}
			fmt.Fprintf(&b, "%d. **%s** [%s] — %s\n", i+1, t.ID, t.Priority, t.Title)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Recently Completed (last 3)\n\n")
	completed, err := store.ListTasks(ctx, types.ListFilter{Status: types.StatusCompleted})
	if err != nil {
		return "", fmt.Errorf("render session state: list completed tasks: %w", err)
	}
	sort.Slice(completed, func(i, j int) bool {
		ci, cj := int64(0), int64(0)
		if completed[i].CompletedAt != nil {
			ci = *completed[i].CompletedAt
		}
		if completed[j].CompletedAt != nil {
			cj = *completed[j].CompletedAt
		}
		return ci > cj
	})
	if len(completed) == 0 {
		b.WriteString("_none yet_\n\n")
	} else {
		for i, t := range completed {
			if i >= 3 {
				break
			}
			fmt.Fprintf(&b, "- **%s** — %s\n", t.ID, t.Title)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Session\n\n")
	if session != nil {
		startedAt := time.Unix(session.StartedAt, 0).UTC().Format(time.RFC3339)
		fmt.Fprintf(&b, "- id: `%s`\n- started at: %s\n", session.SessionID, startedAt)
	} else {
		b.WriteString("_no session started_\n")
	}

	return b.String(), nil
}
