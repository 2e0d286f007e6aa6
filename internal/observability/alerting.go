package observability

import (
	"fmt"
	"sort"
	"time"

	"github.com/valter-silva-au/ptrack/pkg/models"
)

// AlertSeverity represents the urgency of an alert.
type AlertSeverity string

const (
	SeverityHigh   AlertSeverity = "high"
	SeverityMedium AlertSeverity = "medium"
	SeverityLow    AlertSeverity = "low"
)

// Alert conditions.
const (
	ConditionOverdue        = "task_overdue"
	ConditionDueSoon        = "task_due_soon"
	ConditionRunningLong    = "task_running_long"
	ConditionPersistFailing = "store_persist_failing"
)

// Alert represents a triggered alert condition.
type Alert struct {
	ID          string        `json:"id"`
	Condition   string        `json:"condition"`
	Severity    AlertSeverity `json:"severity"`
	Message     string        `json:"message"`
	ProjectID   string        `json:"project_id,omitempty"`
	TaskID      string        `json:"task_id,omitempty"`
	TriggeredAt time.Time     `json:"triggered_at"`
}

// AlertThresholds configures when alerts fire.
type AlertThresholds struct {
	DueSoonHours     int `yaml:"due_soon_hours" json:"due_soon_hours"`
	LongRunningHours int `yaml:"long_running_hours" json:"long_running_hours"`
}

// DefaultAlertThresholds returns the default alert windows.
func DefaultAlertThresholds() AlertThresholds {
	return AlertThresholds{
		DueSoonHours:     24,
		LongRunningHours: 8,
	}
}

// AlertEngine evaluates alert conditions against the project collection.
type AlertEngine interface {
	Evaluate(projects []models.Project, now time.Time) ([]Alert, error)
}

// alertEngine implements AlertEngine. The event log is optional; without it
// only task conditions are checked.
type alertEngine struct {
	eventLog   EventLog
	thresholds AlertThresholds
}

// NewAlertEngine creates an AlertEngine. eventLog may be nil.
func NewAlertEngine(eventLog EventLog, thresholds AlertThresholds) AlertEngine {
	return &alertEngine{
		eventLog:   eventLog,
		thresholds: thresholds,
	}
}

// Evaluate checks every task of every project and the recent event log.
// Alerts are ordered high to low severity, then by project order.
func (ae *alertEngine) Evaluate(projects []models.Project, now time.Time) ([]Alert, error) {
	now = now.UTC()
	var alerts []Alert

	for _, p := range projects {
		for i := range p.Tasks {
			alerts = append(alerts, ae.checkTask(p, &p.Tasks[i], now)...)
		}
	}

	persistAlerts, err := ae.checkPersistFailures(now)
	if err != nil {
		return nil, fmt.Errorf("checking persist failures: %w", err)
	}
	alerts = append(alerts, persistAlerts...)

	sort.SliceStable(alerts, func(i, j int) bool {
		return severityRank(alerts[i].Severity) < severityRank(alerts[j].Severity)
	})
	return alerts, nil
}

func (ae *alertEngine) checkTask(p models.Project, t *models.Task, now time.Time) []Alert {
	if t.Status == models.StatusDone {
		return nil
	}
	var alerts []Alert

	if t.DueAt != nil {
		dueSoon := time.Duration(ae.thresholds.DueSoonHours) * time.Hour
		switch {
		case t.DueAt.Before(now):
			alerts = append(alerts, Alert{
				ID:          "overdue-" + t.ID,
				Condition:   ConditionOverdue,
				Severity:    SeverityHigh,
				Message:     fmt.Sprintf("%s: %q was due %s", p.Name, t.Title, t.DueAt.UTC().Format("2006-01-02 15:04")),
				ProjectID:   p.ID,
				TaskID:      t.ID,
				TriggeredAt: now,
			})
		case t.DueAt.Sub(now) <= dueSoon:
			alerts = append(alerts, Alert{
				ID:          "due-soon-" + t.ID,
				Condition:   ConditionDueSoon,
				Severity:    SeverityMedium,
				Message:     fmt.Sprintf("%s: %q is due within %d hours", p.Name, t.Title, ae.thresholds.DueSoonHours),
				ProjectID:   p.ID,
				TaskID:      t.ID,
				TriggeredAt: now,
			})
		}
	}

	if t.ActiveStart != nil && ae.thresholds.LongRunningHours > 0 {
		limit := time.Duration(ae.thresholds.LongRunningHours) * time.Hour
		if now.Sub(*t.ActiveStart) > limit {
			alerts = append(alerts, Alert{
				ID:          "running-" + t.ID,
				Condition:   ConditionRunningLong,
				Severity:    SeverityLow,
				Message:     fmt.Sprintf("%s: %q has been running for more than %d hours", p.Name, t.Title, ae.thresholds.LongRunningHours),
				ProjectID:   p.ID,
				TaskID:      t.ID,
				TriggeredAt: now,
			})
		}
	}
	return alerts
}

// checkPersistFailures raises one alert when the store failed to persist
// in the last 24 hours.
func (ae *alertEngine) checkPersistFailures(now time.Time) ([]Alert, error) {
	if ae.eventLog == nil {
		return nil, nil
	}
	since := now.Add(-24 * time.Hour)
	events, err := ae.eventLog.Read(EventFilter{Since: &since, Type: "store.persist_failed"})
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, nil
	}
	return []Alert{{
		ID:          "persist-failing",
		Condition:   ConditionPersistFailing,
		Severity:    SeverityHigh,
		Message:     fmt.Sprintf("%d save(s) failed in the last 24 hours; recent changes may not be on disk", len(events)),
		TriggeredAt: now,
	}}, nil
}

func severityRank(s AlertSeverity) int {
	switch s {
	case SeverityHigh:
		return 0
	case SeverityMedium:
		return 1
	case SeverityLow:
		return 2
	default:
		return 3
	}
}
