package sqlite

import (
	"context"
	"strings"
)

// GetDirtyTaskIDs returns the ids of every task written since the last
// ClearDirty call, in id order. The dirty bit is set by every task
// mutation (SaveTask, the Update* family, AppendComment) and consumed by
// the JSONL exporter's incremental mode (SPEC_FULL.md §12).
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

// ClearDirty resets the dirty bit for exactly the given ids, mirroring
// the teacher's ClearDirtyIssuesByID called after a successful export.
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
