//go:build cgo

package dolt

import (
	"context"

	"github.com/taskgraph/tg/internal/types"
)

func (co *core) loadComments(ctx context.Context, taskID string) ([]types.Comment, error) {
	rows, err := co.c.QueryContext(ctx, `
		SELECT id, agent, content, timestamp FROM comments
		WHERE task_id = ? ORDER BY timestamp ASC, id ASC
	`, taskID)
	if err != nil {
		return nil, wrapDBError("load_comments", err)
	}
	defer rows.Close()

	var comments []types.Comment
	for rows.Next() {
		var c types.Comment
		c.TaskID = taskID
		if err := rows.Scan(&c.Rank, &c.Agent, &c.Content, &c.Timestamp); err != nil {
			return nil, wrapDBError("scan_comment", err)
		}
		comments = append(comments, c)
	}
	return comments, wrapDBError("iterate_comments", rows.Err())
}

func (co *core) AppendComment(ctx context.Context, taskID string, c *types.Comment) error {
	exists, err := co.TaskExists(ctx, taskID)
	if err != nil {
		return err
	}
	if !exists {
		return types.NotFound("append_comment", taskID)
	}
	res, err := co.c.ExecContext(ctx, `
		INSERT INTO comments (task_id, agent, content, timestamp) VALUES (?, ?, ?, ?)
	`, taskID, c.Agent, c.Content, c.Timestamp)
	if err != nil {
		return wrapDBError("append_comment", err)
	}
	id, err := res.LastInsertId()
	if err == nil {
		c.Rank = int(id)
	}
	c.TaskID = taskID
	_, err = co.c.ExecContext(ctx, `UPDATE tasks SET dirty = 1 WHERE id = ?`, taskID)
	return wrapDBError("mark_dirty_after_comment", err)
}

func (co *core) GetLastCommentFrom(ctx context.Context, taskID, agent string) (*types.Comment, error) {
	var c types.Comment
	c.TaskID = taskID
	err := co.c.QueryRowContext(ctx, `
		SELECT id, agent, content, timestamp FROM comments
		WHERE task_id = ? AND agent = ?
		ORDER BY timestamp DESC, id DESC LIMIT 1
	`, taskID, agent).Scan(&c.Rank, &c.Agent, &c.Content, &c.Timestamp)
	if err != nil {
		if wrapped := wrapDBError("get_last_comment_from", err); types.IsNotFound(wrapped) {
			return nil, nil
		}
		return nil, wrapDBError("get_last_comment_from", err)
	}
	return &c, nil
}

func (co *core) GetTasksWithCommentPrefix(ctx context.Context, prefix string) ([]string, error) {
	rows, err := co.c.QueryContext(ctx, `
		SELECT DISTINCT task_id FROM comments WHERE content LIKE CONCAT(?, '%') ESCAPE '\\' ORDER BY task_id
	`, escapeLike(prefix))
	if err != nil {
		return nil, wrapDBError("get_tasks_with_comment_prefix", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, wrapDBError("scan_task_id", err)
		}
		ids = append(ids, id)
	}
	return ids, wrapDBError("iterate_task_ids", rows.Err())
}

func (co *core) CountCommentsWithPrefix(ctx context.Context, taskID, agent, prefix string) (int, error) {
	var n int
	err := co.c.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM comments WHERE task_id = ? AND agent = ? AND content LIKE CONCAT(?, '%') ESCAPE '\\'
	`, taskID, agent, escapeLike(prefix)).Scan(&n)
	return n, wrapDBError("count_comments_with_prefix", err)
}

func escapeLike(s string) string {
	r := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%', '_', '\\':
			r = append(r, '\\')
		}
		r = append(r, s[i])
	}
	return string(r)
}
