// Package scheduler owns the volatile per-process session state: which
// task is current, which session is active, and a memoized ready-queue
// cache (spec §4.2). None of this is persisted except through explicit
// calls into a storage.Store; the scheduler itself holds no file handle.
package scheduler

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/taskgraph/tg/internal/debug"
	"github.com/taskgraph/tg/internal/metrics"
	"github.com/taskgraph/tg/internal/storage"
	"github.com/taskgraph/tg/internal/types"
)

// Scheduler is not safe for concurrent use, matching the single-threaded
// cooperative access model of spec §5 — callers serialise access
// themselves (a single command loop, a single CLI invocation).
type Scheduler struct {
	sessionID      string
	sessionStarted int64
	currentTaskID  string
	hasCurrentTask bool

	readyCache      []string
	readyCacheValid bool

	nowFn func() int64
}

// New creates a Scheduler with no active session. Call StartSession or
// RestoreSession before using CurrentTask/SetCurrentTask.
func New(nowFn func() int64) *Scheduler {
	return &Scheduler{nowFn: nowFn}
}

// StartSession generates a fresh session id in the "<epoch>-<4 hex>" shape
// from spec §4.2, persists the initial SessionState, and invalidates the
// ready cache. The random suffix comes from github.com/google/uuid rather
// than a hand-rolled RNG (SPEC_FULL.md §11).
func (s *Scheduler) StartSession(ctx context.Context, store storage.TaskStore) (string, error) {
	now := s.nowFn()
	suffix := uuid.New().String()[:4]
	sessionID := fmt.Sprintf("%d-%s", now, suffix)

	s.sessionID = sessionID
	s.sessionStarted = now
	s.hasCurrentTask = false
	s.currentTaskID = ""
	s.invalidate()

	if err := store.SaveSessionState(ctx, &types.SessionState{SessionID: sessionID, StartedAt: now}); err != nil {
		return "", fmt.Errorf("start session: %w", err)
	}
	debug.Logf("session %s started\n", sessionID)
	return sessionID, nil
}

// RestoreSession loads volatile state only; it does not write to the
// store (spec §4.2 "restore_session ... does not persist").
func (s *Scheduler) RestoreSession(sessionID string, currentTaskID *string, startedAt int64) {
	s.sessionID = sessionID
	s.sessionStarted = startedAt
	if currentTaskID != nil {
		s.currentTaskID = *currentTaskID
		s.hasCurrentTask = true
	} else {
		s.currentTaskID = ""
		s.hasCurrentTask = false
	}
	s.invalidate()
}

// SessionID returns the active session id, or "" if none has started.
func (s *Scheduler) SessionID() string { return s.sessionID }

// SessionStartedAt returns the active session's start time.
func (s *Scheduler) SessionStartedAt() int64 { return s.sessionStarted }

// SetCurrentTask makes id the current task: if it was pending it moves to
// in_progress, session state is persisted, and the cache is invalidated.
func (s *Scheduler) SetCurrentTask(ctx context.Context, store storage.TaskStore, id string) error {
	task, err := store.LoadTask(ctx, id)
	if err != nil {
		return fmt.Errorf("set current task: %w", err)
	}
	if task.Status == types.StatusPending {
		if err := store.UpdateTaskStatus(ctx, id, types.StatusInProgress, nil); err != nil {
			return fmt.Errorf("set current task: %w", err)
		}
	}

	s.currentTaskID = id
	s.hasCurrentTask = true
	if err := s.persist(ctx, store); err != nil {
		return err
	}
	s.invalidate()
	debug.LogEventWithContext("TASK_STARTED", id, s.sessionID, "")
	return nil
}

// CurrentTask returns the current task if it is still workable (status
// pending/in_progress, not a container); otherwise it clears the pointer
// and returns nil. It never auto-assigns a task (spec §4.2, §9 open
// question: the legacy adopt-orphan behaviour is opt-in via
// AdoptOrphanedTask, never called from here).
func (s *Scheduler) CurrentTask(ctx context.Context, store storage.TaskStore) (*types.Task, error) {
	if !s.hasCurrentTask {
		return nil, nil
	}
	task, err := store.LoadTask(ctx, s.currentTaskID)
	if err != nil {
		if types.IsNotFound(err) {
			s.clearLocal()
			return nil, nil
		}
		return nil, fmt.Errorf("get current task: %w", err)
	}
	if !workable(task) {
		s.clearLocal()
		return nil, nil
	}
	return task, nil
}

// AdoptOrphanedTask implements the legacy "adopt the sole in_progress
// task" policy from spec §9's open question. It is never invoked
// automatically; callers that want the legacy behaviour must call it
// explicitly after confirming no current task is set.
func (s *Scheduler) AdoptOrphanedTask(ctx context.Context, store storage.TaskStore) (*types.Task, error) {
	if s.hasCurrentTask {
		return nil, nil
	}
	inProgress, err := store.ListTasks(ctx, types.ListFilter{Status: types.StatusInProgress})
	if err != nil {
		return nil, fmt.Errorf("adopt orphaned task: %w", err)
	}
	if len(inProgress) != 1 {
		return nil, nil
	}
	s.currentTaskID = inProgress[0].ID
	s.hasCurrentTask = true
	return inProgress[0], nil
}

// HandleTaskStatusChange clears the current-task pointer when id is the
// current task and its new state is no longer workable; always
// invalidates the ready cache (spec §4.2).
func (s *Scheduler) HandleTaskStatusChange(ctx context.Context, store storage.TaskStore, id string, newStatus types.Status, newType *types.TaskType) error {
	defer s.invalidate()

	debug.LogEventWithContext("STATUS_CHANGE", id, s.sessionID, string(newStatus))

	if !s.hasCurrentTask || s.currentTaskID != id {
		return nil
	}
	isContainer := newType != nil && *newType == types.TypeContainer
	if isContainer || (newStatus != types.StatusPending && newStatus != types.StatusInProgress) {
		s.clearLocal()
		return s.persist(ctx, store)
	}
	return nil
}

// ClearCurrentTask unconditionally clears the pointer and persists it.
func (s *Scheduler) ClearCurrentTask(ctx context.Context, store storage.TaskStore) error {
	s.clearLocal()
	return s.persist(ctx, store)
}

func (s *Scheduler) clearLocal() {
	s.currentTaskID = ""
	s.hasCurrentTask = false
}

func (s *Scheduler) persist(ctx context.Context, store storage.TaskStore) error {
	if s.sessionID == "" {
		return nil
	}
	var currentTaskID *string
	if s.hasCurrentTask {
		id := s.currentTaskID
		currentTaskID = &id
	}
	if err := store.SaveSessionState(ctx, &types.SessionState{
		SessionID:     s.sessionID,
		StartedAt:     s.sessionStarted,
		CurrentTaskID: currentTaskID,
	}); err != nil {
		return fmt.Errorf("persist session state: %w", err)
	}
	return nil
}

// InvalidateCache drops the ready-set memoization.
func (s *Scheduler) InvalidateCache() { s.invalidate() }

func (s *Scheduler) invalidate() {
	s.readyCache = nil
	s.readyCacheValid = false
}

// GetReadyTasks returns the ready queue, reusing the cached id order when
// valid and re-querying (then re-caching) otherwise. The cache stores ids
// only, so row materialisation always reflects the latest attributes
// (spec §4.2, §9 "cache vs. source of truth"). On a cache hit this costs
// one LoadTask per id rather than the single store query §4.2 describes;
// accepted because the cache only survives within one process between
// mutations, so the hit path is rarely more than a handful of rows.
func (s *Scheduler) GetReadyTasks(ctx context.Context, store storage.TaskStore) ([]*types.Task, error) {
	if s.readyCacheValid {
		tasks := make([]*types.Task, 0, len(s.readyCache))
		for _, id := range s.readyCache {
			t, err := store.LoadTask(ctx, id)
			if err != nil {
				if types.IsNotFound(err) {
					continue
				}
				return nil, fmt.Errorf("get ready tasks: %w", err)
			}
			tasks = append(tasks, t)
		}
		return tasks, nil
	}

	tasks, err := store.GetReadyTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("get ready tasks: %w", err)
	}
	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	s.readyCache = ids
	s.readyCacheValid = true
	metrics.RecordReadyQueueSize(ctx, len(tasks))
	return tasks, nil
}

// WouldCreateCycle delegates to the store's graph-reachability query
// (spec §4.2 describes an in-process DFS; the store exposes the
// equivalent computation as a single query rather than repeated
// round-trips per hop, which is strictly cheaper for the same O(V+E)
// bound on an embedded database).
func (s *Scheduler) WouldCreateCycle(ctx context.Context, store storage.TaskStore, src, dst string) (bool, error) {
	cyclic, err := store.WouldCreateCycle(ctx, src, dst)
	if err != nil {
		return false, fmt.Errorf("would create cycle: %w", err)
	}
	return cyclic, nil
}

func workable(t *types.Task) bool {
	if t.TaskType == types.TypeContainer {
		return false
	}
	return t.Status == types.StatusPending || t.Status == types.StatusInProgress
}
