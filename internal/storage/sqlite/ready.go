package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/taskgraph/tg/internal/types"
)

// ListTasks runs a filtered task query. Ready-queue ordering (priority
// asc, created_at asc, id asc) is applied whenever ReadyOnly is set;
// otherwise rows come back in creation order (spec §4.1, §6).
func (co *core) ListTasks(ctx context.Context, filter types.ListFilter) ([]*types.Task, error) {
	var where []string
	var args []interface{}

	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Priority != nil {
		where = append(where, "priority = ?")
		args = append(args, int(*filter.Priority))
	}
	if filter.TaskType != "" {
		where = append(where, "task_type = ?")
		args = append(args, string(filter.TaskType))
	}
	if filter.ParentID != nil {
		where = append(where, "parent_id = ?")
		args = append(args, *filter.ParentID)
	}
	if filter.Search != "" {
		where = append(where, "(title LIKE ? ESCAPE '\\' OR description LIKE ? ESCAPE '\\')")
		like := "%" + escapeLike(filter.Search) + "%"
		args = append(args, like, like)
	}
	if filter.ReadyOnly {
		where = append(where, `status = ? AND task_type != ? AND NOT EXISTS (
			SELECT 1 FROM dependencies d JOIN tasks bt ON bt.id = d.src_id
			WHERE d.dst_id = tasks.id AND d.dep_type = ? AND bt.status NOT IN (?, ?)
		)`)
		args = append(args, string(types.StatusPending), string(types.TypeContainer),
			string(types.DepBlocks), string(types.StatusCompleted), string(types.StatusCancelled))
	}
	for _, label := range filter.Labels {
		where = append(where, `EXISTS (SELECT 1 FROM json_each(tasks.labels) WHERE value = ?)`)
		args = append(args, label)
	}
	if len(filter.LabelsAny) > 0 {
		placeholders := make([]string, len(filter.LabelsAny))
		for i, label := range filter.LabelsAny {
			placeholders[i] = "?"
			args = append(args, label)
		}
		where = append(where, fmt.Sprintf(
			`EXISTS (SELECT 1 FROM json_each(tasks.labels) WHERE value IN (%s))`,
			strings.Join(placeholders, ", ")))
	}

	query := `SELECT ` + taskColumns + ` FROM tasks`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	if filter.ReadyOnly {
		query += " ORDER BY priority ASC, created_at ASC, id ASC"
	} else {
		query += " ORDER BY created_at ASC, id ASC"
	}

	rows, err := co.c.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapDBError("list_tasks", err)
	}
	var tasks []*types.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			rows.Close()
			return nil, wrapDBError("scan_task", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, wrapDBError("iterate_tasks", err)
	}
	rows.Close()

	// Comments and blocked_by_count are filled with one query per row
	// rather than the single-query join §4.2 implies; accepted because
	// list_tasks results are typically a bounded working set, not the
	// full task table.
	for _, t := range tasks {
		comments, err := co.loadComments(ctx, t.ID)
		if err != nil {
			return nil, err
		}
		t.Comments = comments
		count, err := co.GetBlockedByCount(ctx, t.ID)
		if err != nil {
			return nil, err
		}
		t.BlockedByCount = count
	}
	return tasks, nil
}

// GetReadyTasks is the ready-queue view underlying the scheduler's cache
// (spec §4.1): pending, non-container tasks with zero open blockers,
// ordered by (priority asc, created_at asc, id asc).
func (co *core) GetReadyTasks(ctx context.Context) ([]*types.Task, error) {
	return co.ListTasks(ctx, types.ListFilter{ReadyOnly: true})
}

// GetTaskCounts returns aggregate counts by status for summary reporting
// (spec §6 status dashboard).
func (co *core) GetTaskCounts(ctx context.Context) (types.TaskCounts, error) {
	var c types.TaskCounts
	err := co.c.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0)
		FROM tasks
	`, string(types.StatusPending), string(types.StatusInProgress),
		string(types.StatusCompleted), string(types.StatusBlocked)).
		Scan(&c.Pending, &c.InProgress, &c.Completed, &c.Blocked)
	return c, wrapDBError("get_task_counts", err)
}
