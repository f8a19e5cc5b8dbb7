package tg_test

import (
	"context"
	"testing"

	"github.com/taskgraph/tg"
	"github.com/taskgraph/tg/internal/facade"
)

func TestOpenAndBasicLifecycle(t *testing.T) {
	ctx := context.Background()
	eng, err := tg.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer eng.Close()

	id, err := eng.CreateTask(ctx, facade.CreateTaskParams{Title: "Write the onboarding doc"})
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	task, err := eng.GetTask(ctx, id)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if task.Status != tg.StatusPending {
		t.Errorf("Status = %v, want pending", task.Status)
	}

	if err := eng.SetCurrentTask(ctx, id); err != nil {
		t.Fatalf("SetCurrentTask failed: %v", err)
	}
	current, err := eng.GetCurrentTask(ctx)
	if err != nil {
		t.Fatalf("GetCurrentTask failed: %v", err)
	}
	if current == nil || current.ID != id {
		t.Fatalf("GetCurrentTask = %v, want %s", current, id)
	}

	result, err := eng.CompleteTask(ctx, id)
	if err != nil {
		t.Fatalf("CompleteTask failed: %v", err)
	}
	if len(result.Unblocked) != 0 {
		t.Errorf("Unblocked = %v, want none", result.Unblocked)
	}

	current, err = eng.GetCurrentTask(ctx)
	if err != nil {
		t.Fatalf("GetCurrentTask failed: %v", err)
	}
	if current != nil {
		t.Errorf("GetCurrentTask after completion = %v, want nil", current)
	}
}
