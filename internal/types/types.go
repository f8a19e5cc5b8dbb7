// Package types defines the core data model shared by every layer of the
// task-graph engine: tasks, dependency edges, comments, and the volatile
// session record. Status, priority, task type, and dependency type are all
// closed sum types, encoded as validated string/int enumerations rather than
// an inheritance hierarchy.
package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Status is a task's lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusBlocked    Status = "blocked"
	StatusCancelled  Status = "cancelled"
)

// IsTerminal reports whether a status is a terminal (non-workable) state.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Valid reports whether s is one of the five recognized statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusBlocked, StatusCancelled:
		return true
	default:
		return false
	}
}

// Priority is an ordered scale; lower numeric value means higher priority.
type Priority int

const (
	PriorityCritical Priority = 0
	PriorityHigh     Priority = 1
	PriorityMedium   Priority = 2
	PriorityLow      Priority = 3
	PriorityWishlist Priority = 4
)

// Valid reports whether p is within the defined priority range.
func (p Priority) Valid() bool {
	return p >= PriorityCritical && p <= PriorityWishlist
}

func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	case PriorityLow:
		return "low"
	case PriorityWishlist:
		return "wishlist"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}

// MarshalJSON encodes a Priority as its wire name (spec §6: tasks.jsonl
// stores "critical"/"high"/"medium"/"low"/"wishlist", never the ordinal).
func (p Priority) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON decodes a Priority from its wire name.
func (p *Priority) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParsePriority(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ParsePriority converts a priority name to its numeric value.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "critical":
		return PriorityCritical, nil
	case "high":
		return PriorityHigh, nil
	case "medium":
		return PriorityMedium, nil
	case "low":
		return PriorityLow, nil
	case "wishlist":
		return PriorityWishlist, nil
	default:
		return 0, fmt.Errorf("invalid priority %q", s)
	}
}

// TaskType is the closed set of task kinds.
type TaskType string

const (
	TypeTask      TaskType = "task"
	TypeBug       TaskType = "bug"
	TypeFeature   TaskType = "feature"
	TypeResearch  TaskType = "research"
	TypeEphemeral TaskType = "ephemeral"
	TypeContainer TaskType = "container"
)

// Valid reports whether t is a built-in task type. Callers that allow
// config-defined custom types (see internal/config) should check those
// separately before rejecting an unrecognized type.
func (t TaskType) Valid() bool {
	switch t {
	case TypeTask, TypeBug, TypeFeature, TypeResearch, TypeEphemeral, TypeContainer:
		return true
	default:
		return false
	}
}

// DependencyType is the closed set of edge kinds in the dependency graph.
type DependencyType string

const (
	DepBlocks     DependencyType = "blocks"
	DepParent     DependencyType = "parent"
	DepRelated    DependencyType = "related"
	DepProvenance DependencyType = "provenance"
)

func (d DependencyType) Valid() bool {
	switch d {
	case DepBlocks, DepParent, DepRelated, DepProvenance:
		return true
	default:
		return false
	}
}

// Comment is a single append-only note attached to a task.
type Comment struct {
	TaskID    string `json:"-"`
	Agent     string `json:"agent"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
	// Rank breaks ties between comments inserted in the same second; it is
	// the monotonically increasing insertion order within a task, not a
	// durable column callers should rely on outside this process.
	Rank int `json:"-"`
}

// Task is the primary entity of the store.
type Task struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description *string  `json:"description"`
	Status      Status   `json:"status"`
	Priority    Priority `json:"priority"`
	TaskType    TaskType `json:"task_type"`
	ParentID    *string  `json:"parent_id"`
	Labels      []string `json:"labels"`

	CreatedAt   int64  `json:"created_at"`
	UpdatedAt   int64  `json:"updated_at"`
	CompletedAt *int64 `json:"completed_at"`

	StartedAtCommit   *string `json:"started_at_commit"`
	CompletedAtCommit *string `json:"completed_at_commit"`

	// BlockedByCount is derived at read time; it is never the source of
	// truth for status and is not part of the JSONL wire schema.
	BlockedByCount int `json:"-"`

	Comments []Comment `json:"comments"`
}

// Validate checks the structural invariants that must hold for any Task
// regardless of which store it is headed to (required fields, enum
// membership, completed_at consistency). It does not check graph-level
// invariants such as cycles or blocked_by_count, which require a store.
func (t *Task) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if len(t.Title) > 500 {
		return fmt.Errorf("title must be 500 characters or less")
	}
	if !t.Status.Valid() {
		return fmt.Errorf("invalid status %q", t.Status)
	}
	if !t.Priority.Valid() {
		return fmt.Errorf("priority must be between %d and %d", PriorityCritical, PriorityWishlist)
	}
	if !t.TaskType.Valid() {
		return fmt.Errorf("invalid task type %q", t.TaskType)
	}
	if (t.Status == StatusCompleted) != (t.CompletedAt != nil) {
		return fmt.Errorf("completed_at must be set iff status is completed")
	}
	if t.Status == StatusBlocked && t.TaskType == TypeContainer {
		return fmt.Errorf("container tasks cannot be blocked")
	}
	return nil
}

// Dependency is a directed edge between two tasks.
type Dependency struct {
	SrcID  string         `json:"src_id"`
	DstID  string         `json:"dst_id"`
	Type   DependencyType `json:"dep_type"`
	Weight float64        `json:"weight"`
}

// SessionState is the volatile per-process record of the active agent
// session, persisted so a cold start can resume it.
type SessionState struct {
	SessionID     string  `json:"session_id"`
	StartedAt     int64   `json:"started_at"`
	CurrentTaskID *string `json:"current_task_id,omitempty"`
	Notes         *string `json:"notes,omitempty"`
}

// TaskCounts summarizes how many tasks are in each major status bucket.
type TaskCounts struct {
	Pending    int
	InProgress int
	Completed  int
	Blocked    int
}

// ContainerSummary describes the children of a container task.
type ContainerSummary struct {
	Total           int
	Completed       int
	Blocked         int
	InProgress      int
	PercentComplete float64
}

// CompleteResult is returned by complete_task: the completed id plus every
// task the completion cascaded open.
type CompleteResult struct {
	ID        string
	Unblocked []string
}

// ListFilter narrows list_tasks. Zero values are "don't filter on this
// field"; Labels applies AND semantics, LabelsAny applies OR semantics,
// mirroring the teacher's WorkFilter split between strict and any-of label
// matching.
type ListFilter struct {
	Status     Status
	Priority   *Priority
	TaskType   TaskType
	ParentID   *string
	ReadyOnly  bool
	Labels     []string
	LabelsAny  []string
	Search     string
}
