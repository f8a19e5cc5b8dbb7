// Package tg is the minimal public surface for embedding the task-graph
// engine inside a larger interactive tool (spec §1: "embedded inside a
// larger interactive tool; it is not a multi-tenant server").
//
// Most callers should build against internal/facade directly if they
// live inside this module; this package exists for the rare external
// Go program that wants to open a store and drive the facade without
// reaching into internal packages.
package tg

import (
	"context"
	"fmt"
	"time"

	"github.com/taskgraph/tg/internal/facade"
	"github.com/taskgraph/tg/internal/scheduler"
	"github.com/taskgraph/tg/internal/storage"
	"github.com/taskgraph/tg/internal/storage/sqlite"
	"github.com/taskgraph/tg/internal/types"
)

// Re-exported core types, so callers depend only on this package.
type (
	Task             = types.Task
	Status           = types.Status
	Priority         = types.Priority
	TaskType         = types.TaskType
	DependencyType   = types.DependencyType
	Comment          = types.Comment
	Dependency       = types.Dependency
	ListFilter       = types.ListFilter
	CompleteResult   = types.CompleteResult
	ContainerSummary = types.ContainerSummary
	TaskCounts       = types.TaskCounts
)

// Status constants.
const (
	StatusPending    = types.StatusPending
	StatusInProgress = types.StatusInProgress
	StatusCompleted  = types.StatusCompleted
	StatusBlocked    = types.StatusBlocked
	StatusCancelled  = types.StatusCancelled
)

// Priority constants.
const (
	PriorityCritical = types.PriorityCritical
	PriorityHigh     = types.PriorityHigh
	PriorityMedium   = types.PriorityMedium
	PriorityLow      = types.PriorityLow
	PriorityWishlist = types.PriorityWishlist
)

// TaskType constants.
const (
	TypeTask      = types.TypeTask
	TypeBug       = types.TypeBug
	TypeFeature   = types.TypeFeature
	TypeResearch  = types.TypeResearch
	TypeEphemeral = types.TypeEphemeral
	TypeContainer = types.TypeContainer
)

// DependencyType constants.
const (
	DepBlocks     = types.DepBlocks
	DepParent     = types.DepParent
	DepRelated    = types.DepRelated
	DepProvenance = types.DepProvenance
)

// Engine bundles an open store, its scheduler, and the facade built over
// both — the complete runtime an embedder needs for one process (spec
// §2's three core layers plus the session they share).
type Engine struct {
	Store     storage.Store
	Scheduler *scheduler.Scheduler
	*facade.Facade
}

// Open opens (creating if necessary) a SQLite-backed engine at dbPath and
// starts a fresh session. Use ":memory:" for an ephemeral, test-only
// engine. Callers that already manage their own storage.Store (e.g. the
// Dolt backend in internal/storage/dolt) should build an Engine directly
// from New instead.
func Open(ctx context.Context, dbPath string) (*Engine, error) {
	store, err := sqlite.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	eng := New(store)
	if _, err := eng.Scheduler.StartSession(ctx, store); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("start session: %w", err)
	}
	return eng, nil
}

// New wraps an already-open Store in a fresh Scheduler and Facade, using
// the wall clock for every timestamp the facade assigns.
func New(store storage.Store) *Engine {
	sched := scheduler.New(nowUnix)
	return &Engine{
		Store:     store,
		Scheduler: sched,
		Facade:    facade.New(store, sched, nowUnix),
	}
}

// Close releases the underlying store.
func (e *Engine) Close() error {
	return e.Store.Close()
}

// ParsePriority converts a priority name to its numeric value.
func ParsePriority(s string) (Priority, error) {
	return types.ParsePriority(s)
}

func nowUnix() int64 { return time.Now().Unix() }
