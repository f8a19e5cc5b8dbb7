package jsonl

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/taskgraph/tg/internal/storage"
	"github.com/taskgraph/tg/internal/types"
)

// Bridge is the SyncBridge of spec §4.4/§6: it reads and writes the three
// files under a repository's .tasks/ directory (tasks.jsonl,
// dependencies.jsonl, SESSION_STATE.md).
type Bridge struct {
	Dir string
}

// New returns a Bridge rooted at dir (normally "<repo>/.tasks").
func New(dir string) *Bridge {
	return &Bridge{Dir: dir}
}

func (b *Bridge) tasksPath() string        { return filepath.Join(b.Dir, "tasks.jsonl") }
func (b *Bridge) dependenciesPath() string { return filepath.Join(b.Dir, "dependencies.jsonl") }
func (b *Bridge) sessionStatePath() string { return filepath.Join(b.Dir, "SESSION_STATE.md") }

// Export writes all three files, each atomically (spec §4.4), and clears
// every task's dirty bit on success. The three writes have no data
// dependency on each other, so they run concurrently via errgroup,
// matching SPEC_FULL.md §11's golang.org/x/sync wiring.
func (b *Bridge) Export(ctx context.Context, store storage.TaskStore) error {
	tasks, err := store.LoadAllTasks(ctx)
	if err != nil {
		return fmt.Errorf("export: load tasks: %w", err)
	}
	deps, err := store.LoadAllDependencies(ctx)
	if err != nil {
		return fmt.Errorf("export: load dependencies: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return writeTasksFile(b.tasksPath(), tasks) })
	g.Go(func() error { return writeDependenciesFile(b.dependenciesPath(), deps) })
	g.Go(func() error {
		md, err := RenderSessionState(gctx, store)
		if err != nil {
			return err
		}
		return writeBytesAtomic(b.sessionStatePath(), []byte(md))
	})
	if err := g.Wait(); err != nil {
		return err
	}

	ids := make([]string, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.ID)
	}
	if err := store.ClearDirty(ctx, ids); err != nil {
		return fmt.Errorf("export: clear dirty: %w", err)
	}
	return nil
}

// ExportIncremental rewrites only the lines for currently-dirty tasks,
// merging them into the existing tasks.jsonl rather than re-serialising
// every row (SPEC_FULL.md §12). dependencies.jsonl and SESSION_STATE.md
// are always rewritten in full since they are cheap relative to the task
// list. A clean incremental run produces a byte-identical tasks.jsonl to
// a full Export, since both serialise the same rows in id order.
func (b *Bridge) ExportIncremental(ctx context.Context, store storage.TaskStore) error {
	dirty, err := store.GetDirtyTaskIDs(ctx)
	if err != nil {
		return fmt.Errorf("export incremental: get dirty ids: %w", err)
	}
	if len(dirty) == 0 {
		deps, err := store.LoadAllDependencies(ctx)
		if err != nil {
			return fmt.Errorf("export incremental: load dependencies: %w", err)
		}
		if err := writeDependenciesFile(b.dependenciesPath(), deps); err != nil {
			return err
		}
		md, err := RenderSessionState(ctx, store)
		if err != nil {
			return err
		}
		return writeBytesAtomic(b.sessionStatePath(), []byte(md))
	}

	existing, err := ReadTasksFromFile(b.tasksPath())
	if err != nil {
		return fmt.Errorf("export incremental: read existing tasks.jsonl: %w", err)
	}
	merged := make(map[string]*types.Task, len(existing))
	for _, t := range existing {
		merged[t.ID] = t
	}
	for _, id := range dirty {
		t, err := store.LoadTask(ctx, id)
		if err != nil {
			if types.IsNotFound(err) {
				delete(merged, id) // deleted since last export
				continue
			}
			return fmt.Errorf("export incremental: load task %s: %w", id, err)
		}
		merged[id] = t
	}

	ordered := make([]*types.Task, 0, len(merged))
	for _, t := range merged {
		ordered = append(ordered, t)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	if err := writeTasksFile(b.tasksPath(), ordered); err != nil {
		return err
	}
	deps, err := store.LoadAllDependencies(ctx)
	if err != nil {
		return fmt.Errorf("export incremental: load dependencies: %w", err)
	}
	if err := writeDependenciesFile(b.dependenciesPath(), deps); err != nil {
		return err
	}
	md, err := RenderSessionState(ctx, store)
	if err != nil {
		return err
	}
	if err := writeBytesAtomic(b.sessionStatePath(), []byte(md)); err != nil {
		return err
	}
	return store.ClearDirty(ctx, dirty)
}

func writeTasksFile(path string, tasks []*types.Task) error {
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	lines := make([]interface{}, len(tasks))
	for i, t := range tasks {
		lines[i] = t
	}
	return writeAtomic(path, lines)
}

func writeDependenciesFile(path string, deps []*types.Dependency) error {
	sort.Slice(deps, func(i, j int) bool {
		if deps[i].SrcID != deps[j].SrcID {
			return deps[i].SrcID < deps[j].SrcID
		}
		if deps[i].DstID != deps[j].DstID {
			return deps[i].DstID < deps[j].DstID
		}
		return deps[i].Type < deps[j].Type
	})
	lines := make([]interface{}, len(deps))
	for i, d := range deps {
		lines[i] = d
	}
	return writeAtomic(path, lines)
}

// ImportResult reports how many new rows an Import call inserted.
type ImportResult struct {
	NewTasks        int
	NewDependencies int
}

// Import reads tasks.jsonl and dependencies.jsonl from the bridge's
// directory and inserts each row whose key (task id, or the (src, dst,
// type) tuple for an edge) is not already present; rows whose key already
// exists are silently skipped, so re-importing the same files is
// idempotent (spec §4.4, §8 property 9). Missing files are treated as
// empty, not an error.
func (b *Bridge) Import(ctx context.Context, store storage.TaskStore) (ImportResult, error) {
	var result ImportResult

	tasks, err := ReadTasksFromFile(b.tasksPath())
	if err != nil {
		return result, fmt.Errorf("import: %w", err)
	}
	for _, t := range tasks {
		exists, err := store.TaskExists(ctx, t.ID)
		if err != nil {
			return result, fmt.Errorf("import: check task %s: %w", t.ID, err)
		}
		if exists {
			continue
		}
		comments := t.Comments
		t.Comments = nil
		if err := store.SaveTask(ctx, t); err != nil {
			return result, fmt.Errorf("import: save task %s: %w", t.ID, err)
		}
		for i := range comments {
			c := comments[i]
			if err := store.AppendComment(ctx, t.ID, &c); err != nil {
				return result, fmt.Errorf("import: append comment on %s: %w", t.ID, err)
			}
		}
		result.NewTasks++
	}

	existingDeps, err := store.LoadAllDependencies(ctx)
	if err != nil {
		return result, fmt.Errorf("import: load existing dependencies: %w", err)
	}
	seen := make(map[depKey]bool, len(existingDeps))
	for _, d := range existingDeps {
		seen[depKeyOf(d)] = true
	}

	deps, err := ReadDependenciesFromFile(b.dependenciesPath())
	if err != nil {
		return result, fmt.Errorf("import: %w", err)
	}
	for _, d := range deps {
		key := depKeyOf(d)
		if seen[key] {
			continue
		}
		if err := store.SaveDependency(ctx, d); err != nil {
			return result, fmt.Errorf("import: save dependency %s->%s: %w", d.SrcID, d.DstID, err)
		}
		seen[key] = true
		result.NewDependencies++
	}

	return result, nil
}

type depKey struct {
	src, dst string
	typ      types.DependencyType
}

func depKeyOf(d *types.Dependency) depKey {
	return depKey{d.SrcID, d.DstID, d.Type}
}

// ColdStart implements spec §4.4's boot sequence: an already-populated
// store wins outright (preserves unsaved work from a prior session);
// otherwise the .tasks/*.jsonl files are imported into the (empty) store;
// otherwise the store starts empty. imported reports whether step 2 ran.
func (b *Bridge) ColdStart(ctx context.Context, store storage.TaskStore) (imported bool, result ImportResult, err error) {
	existing, err := store.LoadAllTasks(ctx)
	if err != nil {
		return false, result, fmt.Errorf("cold start: load existing tasks: %w", err)
	}
	if len(existing) > 0 {
		return false, result, nil
	}
	result, err = b.Import(ctx, store)
	if err != nil {
		return false, result, err
	}
	return true, result, nil
}
