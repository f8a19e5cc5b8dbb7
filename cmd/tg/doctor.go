// tg doctor re-verifies the store-level invariants of spec §8 directly
// against the live database, independent of whatever path the data took
// to get there. It is a supplemented feature (SPEC_FULL.md §12): none of
// the example repos name it, but the teacher's own cmd/bd/config.go
// validate subcommand establishes the same pattern — a read-only command
// that reports violations instead of fixing them.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/taskgraph/tg"
	"github.com/taskgraph/tg/internal/debug"
)

type doctorViolation struct {
	Rule   string `json:"rule"`
	TaskID string `json:"task_id,omitempty"`
	Detail string `json:"detail"`
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the task graph against its invariants (spec §8)",
	RunE: func(cmd *cobra.Command, args []string) error {
		violations, err := runDoctor(rootCtx)
		if err != nil {
			return err
		}
		if jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(violations)
		}
		if len(violations) == 0 {
			fmt.Println("ok: no invariant violations")
			return nil
		}
		for _, v := range violations {
			fmt.Printf("%s\t%s\t%s\n", v.Rule, v.TaskID, v.Detail)
		}
		return fmt.Errorf("%d invariant violation(s)", len(violations))
	},
}

func runDoctor(ctx context.Context) ([]doctorViolation, error) {
	tasks, err := engine.Store.LoadAllTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	deps, err := engine.Store.LoadAllDependencies(ctx)
	if err != nil {
		return nil, fmt.Errorf("load dependencies: %w", err)
	}

	debug.Printf("doctor: checking %d tasks, %d dependencies\n", len(tasks), len(deps))

	byID := make(map[string]*tg.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	// blockers[dst] = srcs with a blocks edge into dst
	blockers := make(map[string][]string)
	blocksEdges := make(map[string][]string) // adjacency restricted to the blocks graph
	for _, d := range deps {
		if d.Type != tg.DepBlocks {
			continue
		}
		blockers[d.DstID] = append(blockers[d.DstID], d.SrcID)
		blocksEdges[d.SrcID] = append(blocksEdges[d.SrcID], d.DstID)
	}

	var violations []doctorViolation

	for _, t := range tasks {
		// 1. status=completed <=> completed_at != nil
		if (t.Status == tg.StatusCompleted) != (t.CompletedAt != nil) {
			violations = append(violations, doctorViolation{
				Rule: "completed_at_consistency", TaskID: t.ID,
				Detail: fmt.Sprintf("status=%s completed_at=%v", t.Status, t.CompletedAt),
			})
		}

		// 2. status=blocked <=> some non-terminal blocker exists
		hasOpenBlocker := false
		for _, srcID := range blockers[t.ID] {
			if src, ok := byID[srcID]; ok && !isTerminal(src.Status) {
				hasOpenBlocker = true
				break
			}
		}
		if (t.Status == tg.StatusBlocked) != hasOpenBlocker {
			violations = append(violations, doctorViolation{
				Rule: "blocked_status_consistency", TaskID: t.ID,
				Detail: fmt.Sprintf("status=%s has_open_blocker=%v", t.Status, hasOpenBlocker),
			})
		}

		// 3. containers are never blocked
		if t.TaskType == tg.TypeContainer && t.Status == tg.StatusBlocked {
			violations = append(violations, doctorViolation{
				Rule: "container_never_blocked", TaskID: t.ID,
				Detail: "container task has status=blocked",
			})
		}

		// 7. comment sequence is monotone by timestamp
		for i := 1; i < len(t.Comments); i++ {
			if t.Comments[i].Timestamp < t.Comments[i-1].Timestamp {
				violations = append(violations, doctorViolation{
					Rule: "comments_monotone", TaskID: t.ID,
					Detail: fmt.Sprintf("comment %d precedes comment %d in time", i, i-1),
				})
				break
			}
		}
	}

	// 4. no cycle in the blocks subgraph restricted to non-terminal tasks
	if cyc := findCycle(byID, blocksEdges); cyc != "" {
		violations = append(violations, doctorViolation{
			Rule: "no_blocks_cycle", Detail: "cycle through " + cyc,
		})
	}

	// 5. ready queue matches its definition and sort order
	ready, err := engine.GetReadyTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("get ready tasks: %w", err)
	}
	if detail := checkReadyQueue(tasks, blockers, byID, ready); detail != "" {
		violations = append(violations, doctorViolation{Rule: "ready_queue_definition", Detail: detail})
	}

	return violations, nil
}

func isTerminal(s tg.Status) bool {
	return s == tg.StatusCompleted || s == tg.StatusCancelled
}

// findCycle runs a DFS over the blocks subgraph restricted to tasks that
// are not yet completed or cancelled, returning the first task id found
// to be part of a cycle, or "" if none exists.
func findCycle(byID map[string]*tg.Task, edges map[string][]string) string {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(byID))
	var found string

	var visit func(id string) bool
	visit = func(id string) bool {
		if t, ok := byID[id]; ok && isTerminal(t.Status) {
			return false
		}
		switch color[id] {
		case gray:
			found = id
			return true
		case black:
			return false
		}
		color[id] = gray
		for _, next := range edges[id] {
			if visit(next) {
				return true
			}
		}
		color[id] = black
		return false
	}

	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if color[id] == white && visit(id) {
			return found
		}
	}
	return ""
}

// checkReadyQueue recomputes the ready set from scratch (pending,
// non-container, zero open blockers) and compares it against the
// engine's own answer, ignoring order (ready-queue ordering is tested by the
// sqlite store's TestGetReadyTasksOrdering).
func checkReadyQueue(tasks []*tg.Task, blockers map[string][]string, byID map[string]*tg.Task, ready []*tg.Task) string {
	expected := make(map[string]bool)
	for _, t := range tasks {
		if t.Status != tg.StatusPending || t.TaskType == tg.TypeContainer {
			continue
		}
		open := 0
		for _, srcID := range blockers[t.ID] {
			if src, ok := byID[srcID]; ok && !isTerminal(src.Status) {
				open++
			}
		}
		if open == 0 {
			expected[t.ID] = true
		}
	}
	actual := make(map[string]bool, len(ready))
	for _, t := range ready {
		actual[t.ID] = true
	}
	if len(expected) != len(actual) {
		return fmt.Sprintf("expected %d ready tasks, engine returned %d", len(expected), len(actual))
	}
	for id := range expected {
		if !actual[id] {
			return fmt.Sprintf("task %s should be ready but is missing from get_ready_tasks", id)
		}
	}
	return ""
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
