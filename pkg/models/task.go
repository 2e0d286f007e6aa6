package models

import (
	"strings"
	"time"
)

// TaskStatus represents the current lifecycle state of a task.
type TaskStatus string

const (
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "in_progress"
	StatusDone       TaskStatus = "done"
)

// Valid reports whether s is one of the known task statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// Task is a unit of work tracked inside a project. Elapsed holds the running
// time of every closed start/pause interval; the interval opened at
// ActiveStart is not included until it is closed.
type Task struct {
	ID          string        `json:"id" yaml:"id"`
	Title       string        `json:"title" yaml:"title"`
	Description string        `json:"description,omitempty" yaml:"description,omitempty"`
	Status      TaskStatus    `json:"status" yaml:"status"`
	CreatedAt   time.Time     `json:"created_at" yaml:"created_at"`
	ActiveStart *time.Time    `json:"active_start,omitempty" yaml:"active_start,omitempty"`
	Elapsed     time.Duration `json:"elapsed" yaml:"elapsed"`
	CompletedAt *time.Time    `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
	DueAt       *time.Time    `json:"due_at,omitempty" yaml:"due_at,omitempty"`
	Tags        []string      `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// Running reports whether the task has an open running interval.
func (t *Task) Running() bool {
	return t.ActiveStart != nil
}

// Clone returns a deep copy of the task.
func (t Task) Clone() Task {
	c := t
	c.ActiveStart = cloneTime(t.ActiveStart)
	c.CompletedAt = cloneTime(t.CompletedAt)
	c.DueAt = cloneTime(t.DueAt)
	if t.Tags != nil {
		c.Tags = append([]string(nil), t.Tags...)
	}
	return c
}

// NormalizeTags trims every tag, drops empty ones and removes exact
// duplicates while keeping first-seen order.
func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// SplitTags parses a comma-delimited tag string into a normalized tag set.
func SplitTags(s string) []string {
	return NormalizeTags(strings.Split(s, ","))
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
