package core

import (
	"time"

	"github.com/valter-silva-au/ptrack/pkg/models"
)

// EffectiveDuration returns the task's total running time as of now. For a
// done task this is the closed total; otherwise the open interval since
// ActiveStart is added. A start in the future contributes nothing.
func EffectiveDuration(t *models.Task, now time.Time) time.Duration {
	if t == nil {
		return 0
	}
	if t.Status == models.StatusDone {
		return max(t.Elapsed, 0)
	}
	return max(t.Elapsed, 0) + runningInterval(t, now)
}

// Start opens a running interval at now. It is a no-op for done tasks and
// for tasks that are already running. It reports whether the task changed.
func Start(t *models.Task, now time.Time) bool {
	if t.Status == models.StatusDone || t.ActiveStart != nil {
		return false
	}
	at := now.UTC()
	t.Status = models.StatusInProgress
	t.ActiveStart = &at
	return true
}

// Pause folds the open running interval into Elapsed and returns the task to
// todo. It is a no-op when the task is not running.
func Pause(t *models.Task, now time.Time) bool {
	if t.ActiveStart == nil {
		return false
	}
	t.Elapsed += runningInterval(t, now)
	t.Status = models.StatusTodo
	t.ActiveStart = nil
	return true
}

// Complete closes any running interval and marks the task done at now.
// Completing a task that is already done is a no-op so time is never
// counted twice.
func Complete(t *models.Task, now time.Time) bool {
	if t.Status == models.StatusDone {
		return false
	}
	t.Elapsed += runningInterval(t, now)
	at := now.UTC()
	t.Status = models.StatusDone
	t.ActiveStart = nil
	t.CompletedAt = &at
	return true
}

// runningInterval is now - ActiveStart clamped at zero, or zero when the
// task is not running.
func runningInterval(t *models.Task, now time.Time) time.Duration {
	if t.ActiveStart == nil {
		return 0
	}
	return max(now.Sub(*t.ActiveStart), 0)
}
