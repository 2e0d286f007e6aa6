// Package mcp provides an MCP (Model Context Protocol) server that exposes
// ptrack projects, task timing and alerts as tools for AI assistants.
package mcp

import (
	"context"
	"fmt"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/valter-silva-au/ptrack/internal/core"
	"github.com/valter-silva-au/ptrack/internal/observability"
	"github.com/valter-silva-au/ptrack/pkg/models"
)

// Server wraps the ptrack services and exposes them as MCP tools.
type Server struct {
	server      *gomcp.Server
	store       core.ProjectStore
	metricsCalc observability.MetricsCalculator
	alertEngine observability.AlertEngine
	tools       []*gomcp.Tool
}

// NewServer creates a new MCP server over the project store. metricsCalc and
// alertEngine may be nil if the event log is unavailable.
func NewServer(store core.ProjectStore, metricsCalc observability.MetricsCalculator, alertEngine observability.AlertEngine, version string) *Server {
	if version == "" {
		version = "dev"
	}

	s := &Server{
		store:       store,
		metricsCalc: metricsCalc,
		alertEngine: alertEngine,
	}

	s.server = gomcp.NewServer(
		&gomcp.Implementation{Name: "ptrack", Version: version},
		nil,
	)

	s.registerTools()

	return s
}

// Run serves MCP over stdio until the client disconnects or ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// Tools returns the registered tools in registration order.
func (s *Server) Tools() []*gomcp.Tool {
	return s.tools
}

// MCPServer returns the underlying mcp.Server for testing purposes.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

// --- Tool input/output types ---

type listProjectsInput struct{}

type projectOutput struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
	TaskCount int    `json:"task_count"`
	DoneCount int    `json:"done_count"`
	Percent   int    `json:"percent"`
	Color     string `json:"color"`
}

type listProjectsOutput struct {
	Projects []projectOutput `json:"projects"`
	Count    int             `json:"count"`
}

type projectInput struct {
	Project string `json:"project" jsonschema:"project ID, unique ID prefix, or exact project name"`
}

type trendOutput struct {
	At   string `json:"at"`
	Done int    `json:"done"`
}

type projectMetricsOutput struct {
	ProjectID        string        `json:"project_id"`
	Name             string        `json:"name"`
	Count            int           `json:"count"`
	Completed        int           `json:"completed"`
	Percent          int           `json:"percent"`
	AvgDurationMs    int64         `json:"avg_duration_ms"`
	MedianDurationMs int64         `json:"median_duration_ms"`
	AvgGapMs         int64         `json:"avg_gap_ms"`
	AvgDuration      string        `json:"avg_duration"`
	MedianDuration   string        `json:"median_duration"`
	AvgGap           string        `json:"avg_gap"`
	Trend            []trendOutput `json:"trend"`
}

type filterTasksInput struct {
	Project string `json:"project" jsonschema:"project ID, unique ID prefix, or exact project name"`
	Status  string `json:"status,omitempty" jsonschema:"filter by status (all, todo, in_progress, done)"`
	Tag     string `json:"tag,omitempty" jsonschema:"only tasks carrying this tag (case-insensitive)"`
	Search  string `json:"search,omitempty" jsonschema:"substring matched against title, description and tags"`
}

type taskOutput struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Status      string   `json:"status"`
	CreatedAt   string   `json:"created_at"`
	DueAt       string   `json:"due_at,omitempty"`
	CompletedAt string   `json:"completed_at,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	ElapsedMs   int64    `json:"elapsed_ms"`
	EffectiveMs int64    `json:"effective_ms"`
	Effective   string   `json:"effective"`
	Running     bool     `json:"running"`
}

type filterTasksOutput struct {
	Tasks []taskOutput `json:"tasks"`
	Count int          `json:"count"`
}

type taskRefInput struct {
	Project string `json:"project" jsonschema:"project ID, unique ID prefix, or exact project name"`
	TaskID  string `json:"task_id" jsonschema:"task ID or unique ID prefix within the project"`
}

type getActivityInput struct {
	Since string `json:"since,omitempty" jsonschema:"time window (e.g. 7d, 30d, 24h). Defaults to 7d."`
}

type activityOutput struct {
	ProjectsCreated int            `json:"projects_created"`
	TasksCreated    int            `json:"tasks_created"`
	TasksStarted    int            `json:"tasks_started"`
	TasksPaused     int            `json:"tasks_paused"`
	TasksCompleted  int            `json:"tasks_completed"`
	TasksDeleted    int            `json:"tasks_deleted"`
	TrackedMs       int64          `json:"tracked_ms"`
	ByProject       map[string]int `json:"by_project"`
	EventCount      int            `json:"event_count"`
}

type getAlertsInput struct{}

type alertOutput struct {
	ID          string `json:"id"`
	Condition   string `json:"condition"`
	Severity    string `json:"severity"`
	Message     string `json:"message"`
	ProjectID   string `json:"project_id,omitempty"`
	TaskID      string `json:"task_id,omitempty"`
	TriggeredAt string `json:"triggered_at"`
}

type getAlertsOutput struct {
	Alerts []alertOutput `json:"alerts"`
	Count  int           `json:"count"`
}

// --- Tool registration ---

func addTool[In, Out any](s *Server, tool *gomcp.Tool, h gomcp.ToolHandlerFor[In, Out]) {
	gomcp.AddTool(s.server, tool, h)
	s.tools = append(s.tools, tool)
}

func (s *Server) registerTools() {
	addTool(s, &gomcp.Tool{
		Name:        "list_projects",
		Description: "List all projects, newest first, with task counts and percent complete.",
	}, s.handleListProjects)

	addTool(s, &gomcp.Tool{
		Name:        "get_project_metrics",
		Description: "Get completion and timing metrics for one project: percent complete, average and median task duration, average gap between completions, and the completion trend.",
	}, s.handleGetProjectMetrics)

	addTool(s, &gomcp.Tool{
		Name:        "filter_tasks",
		Description: "List a project's tasks filtered by status, tag and search text, ordered by due date then status.",
	}, s.handleFilterTasks)

	addTool(s, &gomcp.Tool{
		Name:        "start_task",
		Description: "Start the timer on a task. No effect if the task is done or already running.",
	}, s.transitionHandler("start", s.store.StartTask))

	addTool(s, &gomcp.Tool{
		Name:        "pause_task",
		Description: "Pause a running task, adding the running interval to its elapsed time.",
	}, s.transitionHandler("pause", s.store.PauseTask))

	addTool(s, &gomcp.Tool{
		Name:        "complete_task",
		Description: "Mark a task done, closing any running interval. No effect if already done.",
	}, s.transitionHandler("complete", s.store.CompleteTask))

	addTool(s, &gomcp.Tool{
		Name:        "get_activity",
		Description: "Summarise project and task activity from the event log over a time window.",
	}, s.handleGetActivity)

	addTool(s, &gomcp.Tool{
		Name:        "get_alerts",
		Description: "Evaluate and return active alerts (overdue tasks, tasks due soon, tasks running too long, failing saves).",
	}, s.handleGetAlerts)
}

// --- Tool handlers ---

func (s *Server) handleListProjects(_ context.Context, _ *gomcp.CallToolRequest, _ listProjectsInput) (*gomcp.CallToolResult, listProjectsOutput, error) {
	projects := s.store.Projects()
	out := listProjectsOutput{
		Projects: make([]projectOutput, len(projects)),
		Count:    len(projects),
	}
	for i := range projects {
		out.Projects[i] = projectToOutput(&projects[i])
	}
	return nil, out, nil
}

func (s *Server) handleGetProjectMetrics(_ context.Context, _ *gomcp.CallToolRequest, input projectInput) (*gomcp.CallToolResult, projectMetricsOutput, error) {
	if input.Project == "" {
		return errorResult("project is required"), projectMetricsOutput{}, nil
	}
	p, err := s.store.Project(input.Project)
	if err != nil {
		return errorResult(err.Error()), projectMetricsOutput{}, nil
	}

	m := core.ComputeMetrics(&p, s.store.Now())
	out := projectMetricsOutput{
		ProjectID:        p.ID,
		Name:             p.Name,
		Count:            m.Count,
		Completed:        m.Completed,
		Percent:          m.Percent,
		AvgDurationMs:    core.Milliseconds(m.AvgDuration),
		MedianDurationMs: core.Milliseconds(m.MedianDuration),
		AvgGapMs:         core.Milliseconds(m.AvgGap),
		AvgDuration:      core.FormatDuration(m.AvgDuration),
		MedianDuration:   core.FormatDuration(m.MedianDuration),
		AvgGap:           core.FormatDuration(m.AvgGap),
		Trend:            []trendOutput{},
	}
	for _, pt := range core.CompletionTrend(&p) {
		out.Trend = append(out.Trend, trendOutput{At: pt.At.Format(time.RFC3339), Done: pt.Done})
	}
	return nil, out, nil
}

func (s *Server) handleFilterTasks(_ context.Context, _ *gomcp.CallToolRequest, input filterTasksInput) (*gomcp.CallToolResult, filterTasksOutput, error) {
	if input.Project == "" {
		return errorResult("project is required"), filterTasksOutput{}, nil
	}
	status, err := core.ParseStatusFilter(input.Status)
	if err != nil {
		return errorResult(err.Error()), filterTasksOutput{}, nil
	}
	p, err := s.store.Project(input.Project)
	if err != nil {
		return errorResult(err.Error()), filterTasksOutput{}, nil
	}

	now := s.store.Now()
	tasks := core.FilterTasks(&p, core.TaskFilter{Status: status, Tag: input.Tag, Search: input.Search})
	out := filterTasksOutput{
		Tasks: make([]taskOutput, len(tasks)),
		Count: len(tasks),
	}
	for i := range tasks {
		out.Tasks[i] = taskToOutput(&tasks[i], now)
	}
	return nil, out, nil
}

// transitionHandler builds the handler shared by start, pause and complete.
func (s *Server) transitionHandler(verb string, fn func(projectRef, taskRef string) (models.Task, error)) gomcp.ToolHandlerFor[taskRefInput, taskOutput] {
	return func(_ context.Context, _ *gomcp.CallToolRequest, input taskRefInput) (*gomcp.CallToolResult, taskOutput, error) {
		if input.Project == "" || input.TaskID == "" {
			return errorResult("project and task_id are required"), taskOutput{}, nil
		}
		task, err := fn(input.Project, input.TaskID)
		if err != nil {
			return errorResult(fmt.Sprintf("%s task: %s", verb, err)), taskOutput{}, nil
		}
		return nil, taskToOutput(&task, s.store.Now()), nil
	}
}

func (s *Server) handleGetActivity(_ context.Context, _ *gomcp.CallToolRequest, input getActivityInput) (*gomcp.CallToolResult, activityOutput, error) {
	if s.metricsCalc == nil {
		return errorResult("activity metrics not available (event log disabled)"), activityOutput{ByProject: map[string]int{}}, nil
	}

	sinceStr := input.Since
	if sinceStr == "" {
		sinceStr = "7d"
	}
	since, err := observability.ParseSince(sinceStr, s.store.Now())
	if err != nil {
		return errorResult(fmt.Sprintf("parsing since duration: %s", err)), activityOutput{ByProject: map[string]int{}}, nil
	}

	a, err := s.metricsCalc.Calculate(since)
	if err != nil {
		return errorResult(fmt.Sprintf("calculating activity: %s", err)), activityOutput{ByProject: map[string]int{}}, nil
	}
	return nil, activityOutput{
		ProjectsCreated: a.ProjectsCreated,
		TasksCreated:    a.TasksCreated,
		TasksStarted:    a.TasksStarted,
		TasksPaused:     a.TasksPaused,
		TasksCompleted:  a.TasksCompleted,
		TasksDeleted:    a.TasksDeleted,
		TrackedMs:       a.TrackedMs,
		ByProject:       a.ByProject,
		EventCount:      a.EventCount,
	}, nil
}

func (s *Server) handleGetAlerts(_ context.Context, _ *gomcp.CallToolRequest, _ getAlertsInput) (*gomcp.CallToolResult, getAlertsOutput, error) {
	if s.alertEngine == nil {
		return errorResult("alert engine not available"), getAlertsOutput{Alerts: []alertOutput{}}, nil
	}

	alerts, err := s.alertEngine.Evaluate(s.store.Projects(), s.store.Now())
	if err != nil {
		return errorResult(fmt.Sprintf("evaluating alerts: %s", err)), getAlertsOutput{Alerts: []alertOutput{}}, nil
	}

	out := getAlertsOutput{
		Alerts: make([]alertOutput, len(alerts)),
		Count:  len(alerts),
	}
	for i, a := range alerts {
		out.Alerts[i] = alertOutput{
			ID:          a.ID,
			Condition:   a.Condition,
			Severity:    string(a.Severity),
			Message:     a.Message,
			ProjectID:   a.ProjectID,
			TaskID:      a.TaskID,
			TriggeredAt: a.TriggeredAt.Format(time.RFC3339),
		}
	}
	return nil, out, nil
}

// --- Helpers ---

func projectToOutput(p *models.Project) projectOutput {
	done := 0
	for i := range p.Tasks {
		if p.Tasks[i].Status == models.StatusDone {
			done++
		}
	}
	return projectOutput{
		ID:        p.ID,
		Name:      p.Name,
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
		TaskCount: len(p.Tasks),
		DoneCount: done,
		Percent:   core.PercentComplete(p),
		Color:     core.ColorForID(p.ID),
	}
}

func taskToOutput(t *models.Task, now time.Time) taskOutput {
	eff := core.EffectiveDuration(t, now)
	out := taskOutput{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		CreatedAt:   t.CreatedAt.Format(time.RFC3339),
		Tags:        t.Tags,
		ElapsedMs:   core.Milliseconds(t.Elapsed),
		EffectiveMs: core.Milliseconds(eff),
		Effective:   core.FormatDuration(eff),
		Running:     t.Running(),
	}
	if t.DueAt != nil {
		out.DueAt = t.DueAt.Format(time.RFC3339)
	}
	if t.CompletedAt != nil {
		out.CompletedAt = t.CompletedAt.Format(time.RFC3339)
	}
	return out
}

func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}
