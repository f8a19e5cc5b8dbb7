//go:build cgo

package dolt

import (
	"context"

	"github.com/taskgraph/tg/internal/types"
)

func (co *core) GetBlockedByCount(ctx context.Context, id string) (int, error) {
	var n int
	err := co.c.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM dependencies d
		JOIN tasks t ON t.id = d.src_id
		WHERE d.dst_id = ? AND d.dep_type = ? AND t.status NOT IN (?, ?)
	`, id, string(types.DepBlocks), string(types.StatusCompleted), string(types.StatusCancelled)).Scan(&n)
	return n, wrapDBError("get_blocked_by_count", err)
}

// WouldCreateCycle uses the same recursive-CTE shape as the sqlite
// backend's WouldCreateCycle; Dolt's query engine supports WITH RECURSIVE
// against InnoDB-compatible syntax.
func (co *core) WouldCreateCycle(ctx context.Context, src, dst string) (bool, error) {
	if src == dst {
		return true, nil
	}
	var reachable bool
	err := co.c.QueryRowContext(ctx, `
		WITH RECURSIVE reach(id) AS (
			SELECT dst_id FROM dependencies WHERE src_id = ? AND dep_type = ?
			UNION
			SELECT d.dst_id FROM dependencies d JOIN reach r ON d.src_id = r.id WHERE d.dep_type = ?
		)
		SELECT EXISTS(SELECT 1 FROM reach WHERE id = ?)
	`, dst, string(types.DepBlocks), string(types.DepBlocks), src).Scan(&reachable)
	if err != nil {
		return false, wrapDBError("would_create_cycle", err)
	}
	return reachable, nil
}

func (co *core) SaveDependency(ctx context.Context, dep *types.Dependency) error {
	if dep.SrcID == dep.DstID {
		return types.ErrSelfDependency
	}
	srcExists, err := co.TaskExists(ctx, dep.SrcID)
	if err != nil {
		return err
	}
	if !srcExists {
		return types.NotFound("save_dependency", dep.SrcID)
	}
	dstExists, err := co.TaskExists(ctx, dep.DstID)
	if err != nil {
		return err
	}
	if !dstExists {
		return types.NotFound("save_dependency", dep.DstID)
	}

	if dep.Type == types.DepBlocks {
		dst, err := co.LoadTask(ctx, dep.DstID)
		if err != nil {
			return err
		}
		if dst.TaskType == types.TypeContainer {
			return types.ErrCannotBlockContainer
		}
		cyclic, err := co.WouldCreateCycle(ctx, dep.SrcID, dep.DstID)
		if err != nil {
			return err
		}
		if cyclic {
			return types.ErrCircularDependency
		}
	}

	weight := dep.Weight
	if weight == 0 {
		weight = 1.0
	}
	_, err = co.c.ExecContext(ctx, `
		INSERT INTO dependencies (src_id, dst_id, dep_type, weight) VALUES (?, ?, ?, ?)
	`, dep.SrcID, dep.DstID, string(dep.Type), weight)
	return wrapDBError("save_dependency", err)
}

func (co *core) DeleteDependency(ctx context.Context, src, dst string, depType types.DependencyType) error {
	_, err := co.c.ExecContext(ctx, `
		DELETE FROM dependencies WHERE src_id = ? AND dst_id = ? AND dep_type = ?
	`, src, dst, string(depType))
	return wrapDBError("delete_dependency", err)
}

func (co *core) LoadAllDependencies(ctx context.Context) ([]*types.Dependency, error) {
	rows, err := co.c.QueryContext(ctx, `
		SELECT src_id, dst_id, dep_type, weight FROM dependencies ORDER BY src_id, dst_id, dep_type
	`)
	if err != nil {
		return nil, wrapDBError("load_all_dependencies", err)
	}
	defer rows.Close()

	var deps []*types.Dependency
	for rows.Next() {
		var d types.Dependency
		var depType string
		if err := rows.Scan(&d.SrcID, &d.DstID, &depType, &d.Weight); err != nil {
			return nil, wrapDBError("scan_dependency", err)
		}
		d.Type = types.DependencyType(depType)
		deps = append(deps, &d)
	}
	return deps, wrapDBError("iterate_dependencies", rows.Err())
}

func (co *core) GetNewlyUnblockedTasks(ctx context.Context, completedSrcID string) ([]string, error) {
	rows, err := co.c.QueryContext(ctx, `
		SELECT t.id FROM tasks t
		WHERE t.status = ?
		  AND t.id IN (SELECT dst_id FROM dependencies WHERE src_id = ? AND dep_type = ?)
		  AND NOT EXISTS (
		      SELECT 1 FROM dependencies d
		      JOIN tasks bt ON bt.id = d.src_id
		      WHERE d.dst_id = t.id AND d.dep_type = ? AND bt.status NOT IN (?, ?)
		  )
	`, string(types.StatusPending), completedSrcID, string(types.DepBlocks),
		string(types.DepBlocks), string(types.StatusCompleted), string(types.StatusCancelled))
	if err != nil {
		return nil, wrapDBError("get_newly_unblocked_tasks", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, wrapDBError("scan_unblocked_id", err)
		}
		ids = append(ids, id)
	}
	return ids, wrapDBError("iterate_unblocked_ids", rows.Err())
}

func (co *core) GetChildren(ctx context.Context, parentID string) ([]*types.Task, error) {
	return co.queryTasks(ctx, `WHERE parent_id = ? ORDER BY created_at, id`, parentID)
}

func (co *core) GetSiblings(ctx context.Context, id string) ([]*types.Task, error) {
	t, err := co.LoadTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.ParentID == nil {
		return nil, nil
	}
	return co.queryTasks(ctx, `WHERE parent_id = ? AND id != ? ORDER BY created_at, id`, *t.ParentID, id)
}

func (co *core) GetBlockedBy(ctx context.Context, id string) ([]*types.Task, error) {
	return co.queryTasks(ctx, `
		WHERE id IN (SELECT src_id FROM dependencies WHERE dst_id = ? AND dep_type = ?)
		ORDER BY created_at, id
	`, id, string(types.DepBlocks))
}

func (co *core) GetBlocking(ctx context.Context, id string) ([]*types.Task, error) {
	return co.queryTasks(ctx, `
		WHERE id IN (SELECT dst_id FROM dependencies WHERE src_id = ? AND dep_type = ?)
		ORDER BY created_at, id
	`, id, string(types.DepBlocks))
}

func (co *core) GetBlockingTaskIDs(ctx context.Context, id string) ([]string, error) {
	rows, err := co.c.QueryContext(ctx, `
		SELECT dst_id FROM dependencies WHERE src_id = ? AND dep_type = ? ORDER BY dst_id
	`, id, string(types.DepBlocks))
	if err != nil {
		return nil, wrapDBError("get_blocking_task_ids", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var did string
		if err := rows.Scan(&did); err != nil {
			return nil, wrapDBError("scan_blocking_id", err)
		}
		ids = append(ids, did)
	}
	return ids, wrapDBError("iterate_blocking_ids", rows.Err())
}

func (co *core) GetContainerSummary(ctx context.Context, id string) (types.ContainerSummary, error) {
	var s types.ContainerSummary
	err := co.c.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0)
		FROM tasks WHERE parent_id = ?
	`, string(types.StatusCompleted), string(types.StatusBlocked), string(types.StatusInProgress), id).
		Scan(&s.Total, &s.Completed, &s.Blocked, &s.InProgress)
	if err != nil {
		return s, wrapDBError("get_container_summary", err)
	}
	if s.Total > 0 {
		s.PercentComplete = float64(s.Completed) / float64(s.Total) * 100
	}
	return s, nil
}

func (co *core) queryTasks(ctx context.Context, whereAndOrder string, args ...interface{}) ([]*types.Task, error) {
	rows, err := co.c.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks `+whereAndOrder, args...)
	if err != nil {
		return nil, wrapDBError("query_tasks", err)
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
