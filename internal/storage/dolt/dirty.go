//go:build cgo

package dolt

import (
	"context"
	"strings"
)

func (co *core) GetDirtyTaskIDs(ctx context.Context) ([]string, error) {
	rows, err := co.c.QueryContext(ctx, `SELECT id FROM tasks WHERE dirty = 1 ORDER BY id`)
	if err != nil {
		return nil, wrapDBError("get_dirty_task_ids", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, wrapDBError("scan_dirty_id", err)
		}
		ids = append(ids, id)
	}
	return ids, wrapDBError("iterate_dirty_ids", rows.Err())
}

func (co *core) ClearDirty(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	query := `UPDATE tasks SET dirty = 0 WHERE id IN (` + strings.Join(placeholders, ", ") + `)`
	_, err := co.c.ExecContext(ctx, query, args...)
	return wrapDBError("clear_dirty", err)
}
