package facade

import (
	"context"

	"github.com/taskgraph/tg/internal/types"
)

// GetOpenAtDepth runs a breadth-first search from every root container
// (a task with no parent) down to maxDepth; at each visited node it is
// included in the result if it is pending or in_progress AND (it is not
// a container OR depth equals maxDepth) — spec §4.3, used by dashboards.
func (f *Facade) GetOpenAtDepth(ctx context.Context, maxDepth int) ([]*types.Task, error) {
	all, err := f.store.LoadAllTasks(ctx)
	if err != nil {
		return nil, err
	}

	byParent := make(map[string][]*types.Task)
	byID := make(map[string]*types.Task, len(all))
	var roots []*types.Task
	for _, t := range all {
		byID[t.ID] = t
		if t.ParentID == nil {
			roots = append(roots, t)
		} else {
			byParent[*t.ParentID] = append(byParent[*t.ParentID], t)
		}
	}

	type frame struct {
		task  *types.Task
		depth int
	}
	queue := make([]frame, 0, len(roots))
	for _, r := range roots {
		queue = append(queue, frame{r, 0})
	}

	var result []*types.Task
	open := func(t *types.Task) bool {
		return t.Status == types.StatusPending || t.Status == types.StatusInProgress
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if open(cur.task) && (cur.task.TaskType != types.TypeContainer || cur.depth == maxDepth) {
			result = append(result, cur.task)
		}
		if cur.depth >= maxDepth {
			continue
		}
		for _, child := range byParent[cur.task.ID] {
			queue = append(queue, frame{child, cur.depth + 1})
		}
	}
	return result, nil
}

// SessionContext bundles the information an agent needs to orient itself
// at the start of a turn (spec §6 get_session_context).
type SessionContext struct {
	SessionID   string
	StartedAt   int64
	CurrentTask *types.Task
	OpenTasks   []*types.Task
}

// GetSessionContext returns the current task plus the open-task tree down
// to depth (spec §6).
func (f *Facade) GetSessionContext(ctx context.Context, depth int) (*SessionContext, error) {
	current, err := f.GetCurrentTask(ctx)
	if err != nil {
		return nil, err
	}
	open, err := f.GetOpenAtDepth(ctx, depth)
	if err != nil {
		return nil, err
	}
	return &SessionContext{
		SessionID:   f.sched.SessionID(),
		StartedAt:   f.sched.SessionStartedAt(),
		CurrentTask: current,
		OpenTasks:   open,
	}, nil
}
