package facade

import (
	"context"

	"github.com/taskgraph/tg/internal/storage"
	"github.com/taskgraph/tg/internal/types"
)

// AddDependency rejects self_dependency, missing endpoints, and (for
// blocks edges) cycles; on success it transitions dst from pending to
// blocked when src is not yet completed or cancelled (spec §4.3).
func (f *Facade) AddDependency(ctx context.Context, src, dst string, depType types.DependencyType) error {
	if err := validateID(src); err != nil {
		return err
	}
	if err := validateID(dst); err != nil {
		return err
	}
	var blockedDst string
	err := f.withTx(ctx, func(tx storage.Tx) error {
		if src == dst {
			return types.ErrSelfDependency
		}
		srcTask, err := tx.LoadTask(ctx, src)
		if err != nil {
			return err
		}
		if _, err := tx.LoadTask(ctx, dst); err != nil {
			return err
		}

		if depType == types.DepBlocks {
			cyclic, err := f.sched.WouldCreateCycle(ctx, tx, src, dst)
			if err != nil {
				return err
			}
			if cyclic {
				return types.ErrCircularDependency
			}
		}

		if err := tx.SaveDependency(ctx, &types.Dependency{SrcID: src, DstID: dst, Type: depType}); err != nil {
			return err
		}

		if depType == types.DepBlocks && !srcTask.Status.IsTerminal() {
			dstTask, err := tx.LoadTask(ctx, dst)
			if err != nil {
				return err
			}
			if dstTask.Status == types.StatusPending {
				if err := tx.UpdateTaskStatus(ctx, dst, types.StatusBlocked, nil); err != nil {
					return err
				}
				blockedDst = dst
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if blockedDst != "" {
		return f.sched.HandleTaskStatusChange(ctx, f.store, blockedDst, types.StatusBlocked, nil)
	}
	f.sched.InvalidateCache()
	return nil
}

// RemoveDependency deletes the edge; if it was blocks and dst's
// remaining non-terminal blocking count drops to 0, transitions
// blocked to pending (spec §4.3).
func (f *Facade) RemoveDependency(ctx context.Context, src, dst string, depType types.DependencyType) error {
	if err := validateID(src); err != nil {
		return err
	}
	if err := validateID(dst); err != nil {
		return err
	}
	err := f.withTx(ctx, func(tx storage.Tx) error {
		if err := tx.DeleteDependency(ctx, src, dst, depType); err != nil {
			return err
		}
		if depType != types.DepBlocks {
			return nil
		}
		dstTask, err := tx.LoadTask(ctx, dst)
		if err != nil {
			return err
		}
		if dstTask.Status != types.StatusBlocked {
			return nil
		}
		count, err := tx.GetBlockedByCount(ctx, dst)
		if err != nil {
			return err
		}
		if count == 0 {
			return tx.UpdateTaskStatus(ctx, dst, types.StatusPending, nil)
		}
		return nil
	})
	if err != nil {
		return err
	}
	f.sched.InvalidateCache()
	return nil
}

// TraverseDependencies runs a breadth-first search over the undirected
// view of the edge set (an edge is traversable from either endpoint),
// optionally restricted to one edge type, returning tasks in visit order
// (spec §4.3).
func (f *Facade) TraverseDependencies(ctx context.Context, start string, maxDepth int, edgeType *types.DependencyType) ([]*types.Task, error) {
	if err := validateID(start); err != nil {
		return nil, err
	}
	allDeps, err := f.store.LoadAllDependencies(ctx)
	if err != nil {
		return nil, err
	}

	neighbors := make(map[string][]string)
	for _, d := range allDeps {
		if edgeType != nil && d.Type != *edgeType {
			continue
		}
		neighbors[d.SrcID] = append(neighbors[d.SrcID], d.DstID)
		neighbors[d.DstID] = append(neighbors[d.DstID], d.SrcID)
	}

	visited := map[string]bool{start: true}
	queue := []struct {
		id    string
		depth int
	}{{start, 0}}

	var order []string
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		order = append(order, cur.id)
		if cur.depth >= maxDepth {
			continue
		}
		for _, next := range neighbors[cur.id] {
			if !visited[next] {
				visited[next] = true
				queue = append(queue, struct {
					id    string
					depth int
				}{next, cur.depth + 1})
			}
		}
	}

	tasks := make([]*types.Task, 0, len(order))
	for _, id := range order {
		t, err := f.store.LoadTask(ctx, id)
		if err != nil {
			if types.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}
