package observability

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Activity summarises what happened in the event log over a window.
type Activity struct {
	ProjectsCreated int            `json:"projects_created"`
	ProjectsDeleted int            `json:"projects_deleted"`
	TasksCreated    int            `json:"tasks_created"`
	TasksStarted    int            `json:"tasks_started"`
	TasksPaused     int            `json:"tasks_paused"`
	TasksCompleted  int            `json:"tasks_completed"`
	TasksDeleted    int            `json:"tasks_deleted"`
	Imports         int            `json:"imports"`
	PersistFailures int            `json:"persist_failures"`
	TrackedMs       int64          `json:"tracked_ms"`
	ByProject       map[string]int `json:"by_project"`
	EventCount      int            `json:"event_count"`
	OldestEvent     *time.Time     `json:"oldest_event,omitempty"`
	NewestEvent     *time.Time     `json:"newest_event,omitempty"`
}

// MetricsCalculator derives activity figures from the event log.
type MetricsCalculator interface {
	Calculate(since time.Time) (*Activity, error)
}

// metricsCalculator implements MetricsCalculator by reading from an EventLog.
type metricsCalculator struct {
	eventLog EventLog
}

// NewMetricsCalculator creates a MetricsCalculator that reads from eventLog.
func NewMetricsCalculator(eventLog EventLog) MetricsCalculator {
	return &metricsCalculator{eventLog: eventLog}
}

// Calculate aggregates every event at or after since. TrackedMs sums the
// elapsed time recorded by pause and complete events, which is the time
// closed during the window as of each transition.
func (mc *metricsCalculator) Calculate(since time.Time) (*Activity, error) {
	events, err := mc.eventLog.Read(EventFilter{Since: &since})
	if err != nil {
		return nil, fmt.Errorf("reading events for activity: %w", err)
	}

	a := &Activity{ByProject: make(map[string]int)}
	a.EventCount = len(events)

	for i, event := range events {
		t := event.Time
		if i == 0 {
			a.OldestEvent = &t
		}
		a.NewestEvent = &t

		if id, ok := event.Data["project_id"].(string); ok && id != "" {
			a.ByProject[id]++
		}

		switch event.Type {
		case "project.created":
			a.ProjectsCreated++
		case "project.deleted":
			a.ProjectsDeleted++
		case "task.created":
			a.TasksCreated++
		case "task.started":
			a.TasksStarted++
		case "task.paused":
			a.TasksPaused++
		case "task.completed":
			a.TasksCompleted++
		case "task.deleted":
			a.TasksDeleted++
		case "store.imported":
			a.Imports++
		case "store.persist_failed":
			a.PersistFailures++
		}
	}

	a.TrackedMs = trackedMs(events)
	return a, nil
}

// trackedMs sums, per task, the growth of elapsed_ms across pause and
// complete events in the window. The first sighting of a task counts in
// full.
func trackedMs(events []Event) int64 {
	last := make(map[string]int64)
	var total int64
	for _, event := range events {
		if event.Type != "task.paused" && event.Type != "task.completed" {
			continue
		}
		id, _ := event.Data["task_id"].(string)
		ms, ok := numberAsInt64(event.Data["elapsed_ms"])
		if id == "" || !ok {
			continue
		}
		if delta := ms - last[id]; delta > 0 {
			total += delta
		}
		last[id] = ms
	}
	return total
}

// numberAsInt64 accepts the numeric forms a value can take after a JSON
// round trip.
func numberAsInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	}
	return 0, false
}

// ParseSince parses a window such as "7d", "30d" or "24h" and returns the
// corresponding time before now. An empty string means 7 days.
func ParseSince(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return now.AddDate(0, 0, -7), nil
	}

	unit := s[len(s)-1]
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || n < 0 {
		return time.Time{}, fmt.Errorf("invalid duration %q (use e.g. 7d, 30d, 24h)", s)
	}

	switch unit {
	case 'd':
		return now.AddDate(0, 0, -n), nil
	case 'h':
		return now.Add(-time.Duration(n) * time.Hour), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported duration suffix %q in %q (use d or h)", string(unit), s)
	}
}
