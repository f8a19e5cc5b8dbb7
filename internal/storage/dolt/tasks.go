//go:build cgo

package dolt

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/taskgraph/tg/internal/types"
)

const taskColumns = `id, title, description, status, priority, task_type, parent_id, labels,
	created_at, updated_at, completed_at, started_at_commit, completed_at_commit`

func scanTask(row interface{ Scan(dest ...interface{}) error }) (*types.Task, error) {
	var t types.Task
	var description, parentID, startedCommit, completedCommit sql.NullString
	var completedAt sql.NullInt64
	var labelsJSON string

	err := row.Scan(&t.ID, &t.Title, &description, &t.Status, &t.Priority, &t.TaskType,
		&parentID, &labelsJSON, &t.CreatedAt, &t.UpdatedAt, &completedAt, &startedCommit, &completedCommit)
	if err != nil {
		return nil, err
	}

	if description.Valid {
		t.Description = &description.String
	}
	if parentID.Valid {
		t.ParentID = &parentID.String
	}
	if completedAt.Valid {
		v := completedAt.Int64
		t.CompletedAt = &v
	}
	if startedCommit.Valid {
		t.StartedAtCommit = &startedCommit.String
	}
	if completedCommit.Valid {
		t.CompletedAtCommit = &completedCommit.String
	}
	if labelsJSON == "" {
		labelsJSON = "[]"
	}
	if err := json.Unmarshal([]byte(labelsJSON), &t.Labels); err != nil {
		return nil, fmt.Errorf("decode labels: %w", err)
	}
	return &t, nil
}

func (co *core) TaskExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := co.c.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM tasks WHERE id = ?)`, id).Scan(&exists)
	if err != nil {
		return false, wrapDBError("task_exists", err)
	}
	return exists, nil
}

// SaveTask upserts a task by id, using MySQL/Dolt's ON DUPLICATE KEY
// UPDATE where the sqlite backend uses ON CONFLICT — the only dialect
// difference in this query. Ephemeral tasks are dropped per spec §3
// invariant 6, same as the sqlite backend.
func (co *core) SaveTask(ctx context.Context, t *types.Task) error {
	if t.TaskType == types.TypeEphemeral {
		return nil
	}
	labelsJSON, err := json.Marshal(t.Labels)
	if err != nil {
		return fmt.Errorf("encode labels: %w", err)
	}
	_, err = co.c.ExecContext(ctx, `
		INSERT INTO tasks (id, title, description, status, priority, task_type, parent_id, labels,
			created_at, updated_at, completed_at, started_at_commit, completed_at_commit, dirty)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
		ON DUPLICATE KEY UPDATE
			title = VALUES(title),
			description = VALUES(description),
			status = VALUES(status),
			priority = VALUES(priority),
			task_type = VALUES(task_type),
			parent_id = VALUES(parent_id),
			labels = VALUES(labels),
			updated_at = VALUES(updated_at),
			completed_at = VALUES(completed_at),
			started_at_commit = VALUES(started_at_commit),
			completed_at_commit = VALUES(completed_at_commit),
			dirty = 1
	`, t.ID, t.Title, t.Description, string(t.Status), int(t.Priority), string(t.TaskType), t.ParentID,
		string(labelsJSON), t.CreatedAt, t.UpdatedAt, t.CompletedAt, t.StartedAtCommit, t.CompletedAtCommit)
	return wrapDBError("save_task", err)
}

func (co *core) LoadTask(ctx context.Context, id string) (*types.Task, error) {
	row := co.c.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err != nil {
		return nil, wrapDBError("load_task", err)
	}
	comments, err := co.loadComments(ctx, id)
	if err != nil {
		return nil, err
	}
	t.Comments = comments
	count, err := co.GetBlockedByCount(ctx, id)
	if err != nil {
		return nil, err
	}
	t.BlockedByCount = count
	return t, nil
}

func (co *core) LoadAllTasks(ctx context.Context) ([]*types.Task, error) {
	return co.ListTasks(ctx, types.ListFilter{})
}

// DeleteTask removes a task and its dependency edges. Dolt's schema has
// no ON DELETE CASCADE on a plain CREATE TABLE (the teacher's own dolt
// backend handles cascades at the query layer, not via FK actions), so
// edges are deleted explicitly first.
func (co *core) DeleteTask(ctx context.Context, id string) error {
	if _, err := co.c.ExecContext(ctx, `DELETE FROM dependencies WHERE src_id = ? OR dst_id = ?`, id, id); err != nil {
		return wrapDBError("delete_task_edges", err)
	}
	if _, err := co.c.ExecContext(ctx, `DELETE FROM comments WHERE task_id = ?`, id); err != nil {
		return wrapDBError("delete_task_comments", err)
	}
	res, err := co.c.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return wrapDBError("delete_task", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapDBError("delete_task", err)
	}
	if n == 0 {
		return types.NotFound("delete_task", id)
	}
	return nil
}

func (co *core) UpdateTaskStatus(ctx context.Context, id string, status types.Status, completedAt *int64) error {
	res, err := co.c.ExecContext(ctx, `
		UPDATE tasks SET status = ?, completed_at = ?, updated_at = ?, dirty = 1 WHERE id = ?
	`, string(status), completedAt, nowUnix(), id)
	if err != nil {
		return wrapDBError("update_task_status", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return types.NotFound("update_task_status", id)
	}
	return nil
}

func (co *core) UpdateTaskTitle(ctx context.Context, id string, title string) error {
	res, err := co.c.ExecContext(ctx, `UPDATE tasks SET title = ?, updated_at = ?, dirty = 1 WHERE id = ?`, title, nowUnix(), id)
	if err != nil {
		return wrapDBError("update_task_title", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return types.NotFound("update_task_title", id)
	}
	return nil
}

func (co *core) UpdateTaskPriority(ctx context.Context, id string, priority types.Priority) error {
	res, err := co.c.ExecContext(ctx, `UPDATE tasks SET priority = ?, updated_at = ?, dirty = 1 WHERE id = ?`, int(priority), nowUnix(), id)
	if err != nil {
		return wrapDBError("update_task_priority", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return types.NotFound("update_task_priority", id)
	}
	return nil
}

func (co *core) UpdateTaskType(ctx context.Context, id string, taskType types.TaskType) error {
	res, err := co.c.ExecContext(ctx, `UPDATE tasks SET task_type = ?, updated_at = ?, dirty = 1 WHERE id = ?`, string(taskType), nowUnix(), id)
	if err != nil {
		return wrapDBError("update_task_type", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return types.NotFound("update_task_type", id)
	}
	return nil
}

func (co *core) UpdateCommitTracking(ctx context.Context, id string, startedAtCommit, completedAtCommit *string) error {
	res, err := co.c.ExecContext(ctx, `
		UPDATE tasks SET started_at_commit = COALESCE(?, started_at_commit),
		                  completed_at_commit = COALESCE(?, completed_at_commit),
		                  updated_at = ?, dirty = 1
		WHERE id = ?
	`, startedAtCommit, completedAtCommit, nowUnix(), id)
	if err != nil {
		return wrapDBError("update_commit_tracking", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return types.NotFound("update_commit_tracking", id)
	}
	return nil
}
