package core

import (
	"testing"
	"time"

	"github.com/valter-silva-au/ptrack/pkg/models"
)

var base = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func newTodo() *models.Task {
	return &models.Task{ID: "t1", Title: "Task", Status: models.StatusTodo, CreatedAt: base}
}

func TestStart_OpensInterval(t *testing.T) {
	task := newTodo()

	if !Start(task, base) {
		t.Fatal("expected Start to change a todo task")
	}
	if task.Status != models.StatusInProgress {
		t.Fatalf("expected status in_progress, got %s", task.Status)
	}
	if task.ActiveStart == nil || !task.ActiveStart.Equal(base) {
		t.Fatalf("expected ActiveStart %v, got %v", base, task.ActiveStart)
	}
}

func TestStart_NoOpWhenRunningOrDone(t *testing.T) {
	task := newTodo()
	Start(task, base)
	if Start(task, base.Add(time.Minute)) {
		t.Fatal("expected second Start to be a no-op")
	}
	if !task.ActiveStart.Equal(base) {
		t.Fatalf("expected ActiveStart to stay %v, got %v", base, *task.ActiveStart)
	}

	done := newTodo()
	Complete(done, base)
	if Start(done, base.Add(time.Minute)) {
		t.Fatal("expected Start on a done task to be a no-op")
	}
	if done.Status != models.StatusDone || done.ActiveStart != nil {
		t.Fatalf("expected done task untouched, got status %s active %v", done.Status, done.ActiveStart)
	}
}

func TestPause_FoldsInterval(t *testing.T) {
	task := newTodo()
	Start(task, base)

	if !Pause(task, base.Add(45*time.Second)) {
		t.Fatal("expected Pause to change a running task")
	}
	if task.Status != models.StatusTodo {
		t.Fatalf("expected status todo, got %s", task.Status)
	}
	if task.ActiveStart != nil {
		t.Fatal("expected ActiveStart to be cleared")
	}
	if task.Elapsed != 45*time.Second {
		t.Fatalf("expected elapsed 45s, got %v", task.Elapsed)
	}
}

func TestPause_NoOpWhenNotRunning(t *testing.T) {
	task := newTodo()
	task.Elapsed = time.Minute
	if Pause(task, base) {
		t.Fatal("expected Pause on a paused task to be a no-op")
	}
	if task.Elapsed != time.Minute || task.Status != models.StatusTodo {
		t.Fatalf("expected task untouched, got elapsed %v status %s", task.Elapsed, task.Status)
	}
}

func TestPause_ClockSkewClampsToZero(t *testing.T) {
	task := newTodo()
	Start(task, base)
	Pause(task, base.Add(-time.Hour))
	if task.Elapsed != 0 {
		t.Fatalf("expected negative interval to clamp to 0, got %v", task.Elapsed)
	}
}

func TestComplete_ScenarioStartPauseStartComplete(t *testing.T) {
	task := newTodo()

	Start(task, base)
	Pause(task, base.Add(60*time.Second))
	if got := Milliseconds(task.Elapsed); got != 60000 {
		t.Fatalf("expected 60000 ms after first pause, got %d", got)
	}

	Start(task, base.Add(120*time.Second))
	Complete(task, base.Add(150*time.Second))
	if got := Milliseconds(task.Elapsed); got != 90000 {
		t.Fatalf("expected 90000 ms after completion, got %d", got)
	}
	if task.Status != models.StatusDone {
		t.Fatalf("expected status done, got %s", task.Status)
	}
	if task.CompletedAt == nil || !task.CompletedAt.Equal(base.Add(150*time.Second)) {
		t.Fatalf("expected CompletedAt %v, got %v", base.Add(150*time.Second), task.CompletedAt)
	}
	if task.ActiveStart != nil {
		t.Fatal("expected ActiveStart cleared on completion")
	}
}

func TestComplete_FromTodoKeepsElapsed(t *testing.T) {
	task := newTodo()
	task.Elapsed = 5 * time.Second
	Complete(task, base)
	if task.Elapsed != 5*time.Second {
		t.Fatalf("expected elapsed 5s, got %v", task.Elapsed)
	}
}

func TestComplete_AlreadyDoneIsNoOp(t *testing.T) {
	task := newTodo()
	Start(task, base)
	Complete(task, base.Add(time.Minute))
	completedAt := *task.CompletedAt

	if Complete(task, base.Add(time.Hour)) {
		t.Fatal("expected re-completing a done task to be a no-op")
	}
	if task.Elapsed != time.Minute {
		t.Fatalf("expected elapsed to stay 1m, got %v", task.Elapsed)
	}
	if !task.CompletedAt.Equal(completedAt) {
		t.Fatalf("expected CompletedAt to stay %v, got %v", completedAt, *task.CompletedAt)
	}
}

func TestEffectiveDuration(t *testing.T) {
	running := newTodo()
	running.Elapsed = 10 * time.Second
	Start(running, base)

	done := newTodo()
	done.Elapsed = 30 * time.Second
	done.Status = models.StatusDone

	future := newTodo()
	Start(future, base.Add(time.Hour))

	tests := []struct {
		name string
		task *models.Task
		now  time.Time
		want time.Duration
	}{
		{"nil task", nil, base, 0},
		{"todo", newTodo(), base, 0},
		{"running", running, base.Add(20 * time.Second), 30 * time.Second},
		{"done ignores now", done, base.Add(24 * time.Hour), 30 * time.Second},
		{"future start clamps", future, base, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EffectiveDuration(tt.task, tt.now); got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
