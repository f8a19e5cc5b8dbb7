//go:build cgo

package dolt

import (
	"context"
	"strings"

	"github.com/taskgraph/tg/internal/types"
)

// ListTasks mirrors the sqlite backend's ListTasks; the one dialect
// difference is label filtering, which uses MySQL/Dolt's JSON_CONTAINS
// against the labels JSON column where sqlite uses json_each.
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
		where = append(where, `(title LIKE ? ESCAPE '\\' OR description LIKE ? ESCAPE '\\')`)
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
		where = append(where, `JSON_CONTAINS(tasks.labels, JSON_QUOTE(?))`)
		args = append(args, label)
	}
	if len(filter.LabelsAny) > 0 {
		clauses := make([]string, len(filter.LabelsAny))
		for i, label := range filter.LabelsAny {
			clauses[i] = `JSON_CONTAINS(tasks.labels, JSON_QUOTE(?))`
			args = append(args, label)
		}
		where = append(where, "("+strings.Join(clauses, " OR ")+")")
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

func (co *core) GetReadyTasks(ctx context.Context) ([]*types.Task, error) {
	return co.ListTasks(ctx, types.ListFilter{ReadyOnly: true})
}

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

