package types

import (
	"encoding/json"
	"testing"
)

func i64Ptr(v int64) *int64 { return &v }

func TestTaskValidation(t *testing.T) {
	tests := []struct {
		name    string
		task    Task
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid task",
			task: Task{
				ID:       "a1b2c3d4",
				Title:    "Valid task",
				Status:   StatusPending,
				Priority: PriorityMedium,
				TaskType: TypeTask,
			},
			wantErr: false,
		},
		{
			name: "missing title",
			task: Task{
				ID:       "a1b2c3d4",
				Status:   StatusPending,
				Priority: PriorityMedium,
				TaskType: TypeTask,
			},
			wantErr: true,
			errMsg:  "title is required",
		},
		{
			name: "title too long",
			task: Task{
				ID:       "a1b2c3d4",
				Title:    string(make([]byte, 501)),
				Status:   StatusPending,
				Priority: PriorityMedium,
				TaskType: TypeTask,
			},
			wantErr: true,
			errMsg:  "title must be 500 characters or less",
		},
		{
			name: "invalid priority too low",
			task: Task{
				ID:       "a1b2c3d4",
				Title:    "Test",
				Status:   StatusPending,
				Priority: -1,
				TaskType: TypeTask,
			},
			wantErr: true,
		},
		{
			name: "invalid priority too high",
			task: Task{
				ID:       "a1b2c3d4",
				Title:    "Test",
				Status:   StatusPending,
				Priority: 5,
				TaskType: TypeTask,
			},
			wantErr: true,
		},
		{
			name: "invalid status",
			task: Task{
				ID:       "a1b2c3d4",
				Title:    "Test",
				Status:   Status("bogus"),
				Priority: PriorityMedium,
				TaskType: TypeTask,
			},
			wantErr: true,
		},
		{
			name: "invalid task type",
			task: Task{
				ID:       "a1b2c3d4",
				Title:    "Test",
				Status:   StatusPending,
				Priority: PriorityMedium,
				TaskType: TaskType("bogus"),
			},
			wantErr: true,
		},
		{
			name: "completed without completed_at",
			task: Task{
				ID:       "a1b2c3d4",
				Title:    "Test",
				Status:   StatusCompleted,
				Priority: PriorityMedium,
				TaskType: TypeTask,
			},
			wantErr: true,
		},
		{
			name: "completed_at set without completed status",
			task: Task{
				ID:          "a1b2c3d4",
				Title:       "Test",
				Status:      StatusPending,
				Priority:    PriorityMedium,
				TaskType:    TypeTask,
				CompletedAt: i64Ptr(1700000000),
			},
			wantErr: true,
		},
		{
			name: "container cannot be blocked",
			task: Task{
				ID:       "a1b2c3d4",
				Title:    "Test",
				Status:   StatusBlocked,
				Priority: PriorityMedium,
				TaskType: TypeContainer,
			},
			wantErr: true,
		},
		{
			name: "completed with completed_at is valid",
			task: Task{
				ID:          "a1b2c3d4",
				Title:       "Test",
				Status:      StatusCompleted,
				Priority:    PriorityMedium,
				TaskType:    TypeTask,
				CompletedAt: i64Ptr(1700000000),
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.task.Validate()
			if tt.wantErr && err == nil {
				t.Fatalf("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestPriorityOrdering(t *testing.T) {
	if !(PriorityCritical < PriorityHigh && PriorityHigh < PriorityMedium &&
		PriorityMedium < PriorityLow && PriorityLow < PriorityWishlist) {
		t.Fatalf("priority scale is not monotonically ordered")
	}
}

func TestParsePriority(t *testing.T) {
	p, err := ParsePriority("High")
	if err != nil || p != PriorityHigh {
		t.Fatalf("ParsePriority(High) = %v, %v; want PriorityHigh, nil", p, err)
	}
	if _, err := ParsePriority("urgent"); err == nil {
		t.Fatalf("expected error for unknown priority name")
	}
}

func TestPriorityJSON(t *testing.T) {
	data, err := json.Marshal(PriorityHigh)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"high"` {
		t.Fatalf("Priority marshals to %s, want the wire name per spec §6", data)
	}

	var p Priority
	if err := json.Unmarshal([]byte(`"wishlist"`), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p != PriorityWishlist {
		t.Fatalf("unmarshal %q = %v, want PriorityWishlist", `"wishlist"`, p)
	}

	if err := json.Unmarshal([]byte(`"urgent"`), &p); err == nil {
		t.Fatalf("expected error unmarshalling unknown priority name")
	}
}

func TestStatusIsTerminal(t *testing.T) {
	for _, s := range []Status{StatusCompleted, StatusCancelled} {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []Status{StatusPending, StatusInProgress, StatusBlocked} {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}
