package observability

import (
	"testing"
	"time"
)

func TestMetricsCalculator_CountsEvents(t *testing.T) {
	log, _ := newTestLog(t)
	writeAll(t, log,
		Event{Time: epoch.Add(-time.Hour), Type: "task.created", Data: map[string]any{"project_id": "old"}},
		Event{Time: epoch, Type: "project.created", Data: map[string]any{"project_id": "p1"}},
		Event{Time: epoch.Add(1 * time.Minute), Type: "task.created", Data: map[string]any{"project_id": "p1", "task_id": "t1"}},
		Event{Time: epoch.Add(2 * time.Minute), Type: "task.started", Data: map[string]any{"project_id": "p1", "task_id": "t1"}},
		Event{Time: epoch.Add(3 * time.Minute), Type: "task.paused", Data: map[string]any{"project_id": "p1", "task_id": "t1", "elapsed_ms": 60000}},
		Event{Time: epoch.Add(4 * time.Minute), Type: "task.started", Data: map[string]any{"project_id": "p1", "task_id": "t1"}},
		Event{Time: epoch.Add(5 * time.Minute), Type: "task.completed", Data: map[string]any{"project_id": "p1", "task_id": "t1", "elapsed_ms": 90000}},
		Event{Time: epoch.Add(6 * time.Minute), Type: "task.deleted", Data: map[string]any{"project_id": "p2", "task_id": "t9"}},
		Event{Time: epoch.Add(7 * time.Minute), Type: "store.imported"},
		Event{Time: epoch.Add(8 * time.Minute), Type: "store.persist_failed"},
		Event{Time: epoch.Add(9 * time.Minute), Type: "project.deleted", Data: map[string]any{"project_id": "p2"}},
	)

	a, err := NewMetricsCalculator(log).Calculate(epoch)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}

	if a.EventCount != 10 {
		t.Errorf("expected 10 events in window, got %d", a.EventCount)
	}
	if a.ProjectsCreated != 1 || a.ProjectsDeleted != 1 {
		t.Errorf("expected 1 created and 1 deleted project, got %d/%d", a.ProjectsCreated, a.ProjectsDeleted)
	}
	if a.TasksCreated != 1 || a.TasksStarted != 2 || a.TasksPaused != 1 || a.TasksCompleted != 1 || a.TasksDeleted != 1 {
		t.Errorf("unexpected task counts %+v", a)
	}
	if a.Imports != 1 || a.PersistFailures != 1 {
		t.Errorf("expected 1 import and 1 failure, got %d/%d", a.Imports, a.PersistFailures)
	}
	if a.TrackedMs != 90000 {
		t.Errorf("expected 90000 tracked ms, got %d", a.TrackedMs)
	}
	if a.ByProject["p1"] != 6 || a.ByProject["p2"] != 2 {
		t.Errorf("unexpected per-project counts %v", a.ByProject)
	}
	if a.OldestEvent == nil || !a.OldestEvent.Equal(epoch) {
		t.Errorf("expected oldest event at %v, got %v", epoch, a.OldestEvent)
	}
	if a.NewestEvent == nil || !a.NewestEvent.Equal(epoch.Add(9*time.Minute)) {
		t.Errorf("unexpected newest event %v", a.NewestEvent)
	}
}

func TestMetricsCalculator_EmptyLog(t *testing.T) {
	log, _ := newTestLog(t)
	a, err := NewMetricsCalculator(log).Calculate(epoch)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if a.EventCount != 0 || a.OldestEvent != nil || a.TrackedMs != 0 {
		t.Fatalf("expected empty activity, got %+v", a)
	}
}

func TestParseSince(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Time
		wantErr bool
	}{
		{"", epoch.AddDate(0, 0, -7), false},
		{"7d", epoch.AddDate(0, 0, -7), false},
		{" 30d ", epoch.AddDate(0, 0, -30), false},
		{"24h", epoch.Add(-24 * time.Hour), false},
		{"0d", epoch, false},
		{"x", time.Time{}, true},
		{"7w", time.Time{}, true},
		{"-1d", time.Time{}, true},
		{"abcd", time.Time{}, true},
	}

	for _, tt := range tests {
		got, err := ParseSince(tt.input, epoch)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseSince(%q): expected error=%v, got %v", tt.input, tt.wantErr, err)
		}
		if !tt.wantErr && !got.Equal(tt.want) {
			t.Fatalf("ParseSince(%q): expected %v, got %v", tt.input, tt.want, got)
		}
	}
}
