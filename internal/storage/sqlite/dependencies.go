package sqlite

import (
	"context"

	"github.com/taskgraph/tg/internal/types"
)

// GetBlockedByCount returns the number of open blocks edges into id: the
// count of blocks edges whose source task is neither completed nor
// cancelled (spec §4.1). This is computed at read time rather than stored,
// so it can never drift from the underlying task/dependency rows.
func (co *core) GetBlockedByCount(ctx context.Context, id string) (int, error) {
	var n int
	err := co.c.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM dependencies d
		JOIN tasks t ON t.id = d.src_id
		WHERE d.dst_id = ? AND d.dep_type = ? AND t.status NOT IN (?, ?)
	`, id, string(types.DepBlocks), string(types.StatusCompleted), string(types.StatusCancelled)).Scan(&n)
	return n, wrapDBError("get_blocked_by_count", err)
}

// WouldCreateCycle reports whether adding a blocks edge src->dst would
// create a cycle, i.e. whether dst can already reach src by following
// existing blocks edges forward. Grounded on the teacher's recursive
// reachability check in internal/storage/dolt/dependencies.go, expressed
// here as a SQLite recursive CTE rather than a round-trip per hop. The
// scheduler (spec §4.2) calls this to pre-check add_dependency;
// SaveDependency's blocks-edge path also calls it as a last-line-of-defense
// invariant.
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

// SaveDependency records a dependency edge after validating the
// invariants in spec §4.2: no self-dependency, both endpoints must
// exist, a container task cannot be the dst of a blocks edge, and a new
// blocks edge cannot close a cycle.
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

// DeleteDependency removes a single edge. It is not an error to delete an
// edge that does not exist (idempotent per spec §4.2 edge case notes).
func (co *core) DeleteDependency(ctx context.Context, src, dst string, depType types.DependencyType) error {
	_, err := co.c.ExecContext(ctx, `
		DELETE FROM dependencies WHERE src_id = ? AND dst_id = ? AND dep_type = ?
	`, src, dst, string(depType))
	return wrapDBError("delete_dependency", err)
}

// LoadAllDependencies returns every dependency edge, used by the JSONL
// exporter and by full-graph cycle audits.
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

// GetNewlyUnblockedTasks returns the ids of tasks that became ready as a
// direct result of completedSrcID finishing: tasks blocked only by
// completedSrcID among their open blockers, now pending with zero open
// blockers (spec §4.1 cascade-unblock algorithmic note).
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

// GetChildren returns the tasks whose parent_id is id, in creation order.
func (co *core) GetChildren(ctx context.Context, parentID string) ([]*types.Task, error) {
	return co.queryTasks(ctx, `WHERE parent_id = ? ORDER BY created_at, id`, parentID)
}

// GetSiblings returns the tasks sharing id's parent, excluding id itself.
// A task with no parent has no siblings.
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

// GetBlockedBy returns the tasks that directly block id via a blocks edge.
func (co *core) GetBlockedBy(ctx context.Context, id string) ([]*types.Task, error) {
	return co.queryTasks(ctx, `
		WHERE id IN (SELECT src_id FROM dependencies WHERE dst_id = ? AND dep_type = ?)
		ORDER BY created_at, id
	`, id, string(types.DepBlocks))
}

// GetBlocking returns the tasks that id directly blocks.
func (co *core) GetBlocking(ctx context.Context, id string) ([]*types.Task, error) {
	return co.queryTasks(ctx, `
		WHERE id IN (SELECT dst_id FROM dependencies WHERE src_id = ? AND dep_type = ?)
		ORDER BY created_at, id
	`, id, string(types.DepBlocks))
}

// GetBlockingTaskIDs is the id-only variant of GetBlocking, used by the
// scheduler's cascade-unblock path to avoid materializing full tasks.
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

// GetContainerSummary rolls up the status of a container task's children
// (spec §3/§6: containers track completion via their children, not their
// own status field).
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

// queryTasks runs a tasks query whose WHERE/ORDER clause is supplied by
// the caller, materializing comments and blocked-by counts for each row.
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
