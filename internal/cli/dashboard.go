package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/valter-silva-au/ptrack/internal/core"
	"github.com/valter-silva-au/ptrack/internal/observability"
	"github.com/valter-silva-au/ptrack/pkg/models"
)

// Dashboard panel indices.
const (
	panelProjects = iota
	panelTasks
	panelAlerts
	panelCount
)

// statusCycle is the order the status filter steps through. The empty
// status passes every task.
var statusCycle = []models.TaskStatus{"", models.StatusTodo, models.StatusInProgress, models.StatusDone}

func statusLabel(s models.TaskStatus) string {
	if s == "" {
		return core.StatusAll
	}
	return string(s)
}

type dashboardKeyMap struct {
	Next     key.Binding
	Prev     key.Binding
	Up       key.Binding
	Down     key.Binding
	Search   key.Binding
	Filter   key.Binding
	Toggle   key.Binding
	Complete key.Binding
	Refresh  key.Binding
	Quit     key.Binding
}

func (k dashboardKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Up, k.Down, k.Search, k.Filter, k.Toggle, k.Complete, k.Refresh, k.Quit}
}

func (k dashboardKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Next, k.Prev, k.Up, k.Down},
		{k.Search, k.Filter, k.Toggle, k.Complete},
		{k.Refresh, k.Quit},
	}
}

var dashboardKeys = dashboardKeyMap{
	Next:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch panel")),
	Prev:     key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "previous panel")),
	Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Search:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
	Filter:   key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "status filter")),
	Toggle:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "start/pause")),
	Complete: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "complete")),
	Refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Quit:     key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
}

type dashboardModel struct {
	store  core.ProjectStore
	alerts observability.AlertEngine

	activePanel int
	width       int
	height      int

	// Data.
	projects    []models.Project
	alertList   []observability.Alert
	now         time.Time
	projectIdx  int
	taskIdx     int
	statusIdx   int
	search      textinput.Model
	searching   bool
	keys        dashboardKeyMap
	help        help.Model
	lastMessage string

	// State.
	loading bool
	err     error
}

// dataLoadedMsg carries loaded data back to the model.
type dataLoadedMsg struct {
	projects []models.Project
	alerts   []observability.Alert
	now      time.Time
	err      error
}

// tickMsg advances the clock so running timers keep counting.
type tickMsg time.Time

// Style definitions.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(1, 2)

	activePanelStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("62")).
				Padding(1, 2)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			MarginBottom(1)

	selectedStyle = lipgloss.NewStyle().Bold(true)

	statusTodo       = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	statusInProgress = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	statusDone       = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	overdueStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)

	severityHigh   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	severityMedium = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	severityLow    = lipgloss.NewStyle().Foreground(lipgloss.Color("69"))

	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func newDashboardModel(store core.ProjectStore, alerts observability.AlertEngine) dashboardModel {
	search := textinput.New()
	search.Placeholder = "search tasks"
	search.Prompt = "/ "
	search.CharLimit = 64

	return dashboardModel{
		store:       store,
		alerts:      alerts,
		activePanel: panelProjects,
		search:      search,
		keys:        dashboardKeys,
		help:        help.New(),
		loading:     true,
	}
}

func (m dashboardModel) Init() tea.Cmd {
	return tea.Batch(m.loadData, tick())
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.searching {
			return m.updateSearch(msg)
		}
		return m.updateKeys(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tickMsg:
		if m.store != nil {
			m.now = m.store.Now()
		} else {
			m.now = time.Time(msg)
		}
		return m, tick()

	case dataLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.projects = msg.projects
		m.alertList = msg.alerts
		m.now = msg.now
		m.err = nil
		m.clampCursors()
		return m, nil
	}

	return m, nil
}

func (m dashboardModel) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.searching = false
		m.search.Blur()
		return m, nil
	case tea.KeyEsc:
		m.searching = false
		m.search.Blur()
		m.search.SetValue("")
		m.taskIdx = 0
		return m, nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.taskIdx = 0
	return m, cmd
}

func (m dashboardModel) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Next):
		m.activePanel = (m.activePanel + 1) % panelCount
	case key.Matches(msg, m.keys.Prev):
		m.activePanel = (m.activePanel - 1 + panelCount) % panelCount
	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, m.keys.Search):
		m.searching = true
		m.activePanel = panelTasks
		return m, m.search.Focus()
	case key.Matches(msg, m.keys.Filter):
		m.statusIdx = (m.statusIdx + 1) % len(statusCycle)
		m.taskIdx = 0
	case key.Matches(msg, m.keys.Toggle):
		return m.applyToSelected(func(projectID string, t *models.Task) (models.Task, error) {
			if t.Running() {
				return m.store.PauseTask(projectID, t.ID)
			}
			return m.store.StartTask(projectID, t.ID)
		})
	case key.Matches(msg, m.keys.Complete):
		return m.applyToSelected(func(projectID string, t *models.Task) (models.Task, error) {
			return m.store.CompleteTask(projectID, t.ID)
		})
	case key.Matches(msg, m.keys.Refresh):
		m.loading = true
		return m, m.loadData
	}
	return m, nil
}

func (m *dashboardModel) moveCursor(delta int) {
	switch m.activePanel {
	case panelProjects:
		m.projectIdx += delta
		m.taskIdx = 0
	case panelTasks:
		m.taskIdx += delta
	}
	m.clampCursors()
}

func (m *dashboardModel) clampCursors() {
	m.projectIdx = clamp(m.projectIdx, len(m.projects))
	m.taskIdx = clamp(m.taskIdx, len(m.visibleTasks()))
}

func clamp(i, n int) int {
	if n == 0 || i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// applyToSelected runs fn on the highlighted task and reloads on success.
func (m dashboardModel) applyToSelected(fn func(projectID string, t *models.Task) (models.Task, error)) (tea.Model, tea.Cmd) {
	if m.store == nil || m.activePanel != panelTasks {
		return m, nil
	}
	p := m.selectedProject()
	tasks := m.visibleTasks()
	if p == nil || len(tasks) == 0 {
		return m, nil
	}
	task, err := fn(p.ID, &tasks[m.taskIdx])
	if err != nil {
		m.lastMessage = "Error: " + err.Error()
		return m, nil
	}
	m.lastMessage = fmt.Sprintf("%s is now %s", task.Title, task.Status)
	return m, m.loadData
}

func (m dashboardModel) selectedProject() *models.Project {
	if len(m.projects) == 0 {
		return nil
	}
	return &m.projects[clamp(m.projectIdx, len(m.projects))]
}

func (m dashboardModel) visibleTasks() []models.Task {
	p := m.selectedProject()
	if p == nil {
		return nil
	}
	return core.FilterTasks(p, core.TaskFilter{
		Status: statusCycle[m.statusIdx],
		Search: m.search.Value(),
	})
}

func (m dashboardModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	title := titleStyle.Render(" ptrack dashboard ")
	helpView := helpStyle.Render(m.help.View(m.keys))

	if m.loading {
		return fmt.Sprintf("%s\n\n  Loading data...\n\n%s", title, helpView)
	}

	if m.err != nil {
		return fmt.Sprintf("%s\n\n  Error: %s\n\n%s", title, m.err, helpView)
	}

	projectsPanel := m.renderProjectsPanel()
	tasksPanel := m.renderTasksPanel()
	alertsPanel := m.renderAlertsPanel()

	// Available width for panels after accounting for margins.
	availableWidth := m.width - 2

	var body string
	if availableWidth > 120 {
		colWidth := availableWidth / 3
		projectsPanel = m.applyPanelStyle(panelProjects, projectsPanel, colWidth-4)
		tasksPanel = m.applyPanelStyle(panelTasks, tasksPanel, colWidth-4)
		alertsPanel = m.applyPanelStyle(panelAlerts, alertsPanel, colWidth-4)
		body = lipgloss.JoinHorizontal(lipgloss.Top, projectsPanel, tasksPanel, alertsPanel)
	} else {
		panelWidth := availableWidth - 4
		if panelWidth < 20 {
			panelWidth = 20
		}
		projectsPanel = m.applyPanelStyle(panelProjects, projectsPanel, panelWidth)
		tasksPanel = m.applyPanelStyle(panelTasks, tasksPanel, panelWidth)
		alertsPanel = m.applyPanelStyle(panelAlerts, alertsPanel, panelWidth)
		body = lipgloss.JoinVertical(lipgloss.Left, projectsPanel, tasksPanel, alertsPanel)
	}

	footer := helpView
	if m.lastMessage != "" {
		footer = m.lastMessage + "\n" + helpView
	}
	return fmt.Sprintf("%s\n\n%s\n\n%s", title, body, footer)
}

func (m dashboardModel) applyPanelStyle(panel int, content string, width int) string {
	style := panelStyle
	if m.activePanel == panel {
		style = activePanelStyle
	}
	return style.Width(width).Render(content)
}

func (m dashboardModel) renderProjectsPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Projects"))
	b.WriteString("\n")

	if len(m.projects) == 0 {
		b.WriteString("  No projects yet.")
		return b.String()
	}

	for i := range m.projects {
		p := &m.projects[i]
		dot := lipgloss.NewStyle().Foreground(lipgloss.Color(core.ColorForID(p.ID))).Render("●")
		line := fmt.Sprintf("%s %-20s %3d%%", dot, p.Name, core.PercentComplete(p))
		if i == m.projectIdx {
			line = selectedStyle.Render("> " + line)
		} else {
			line = "  " + line
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func (m dashboardModel) renderTasksPanel() string {
	var b strings.Builder
	p := m.selectedProject()
	if p == nil {
		b.WriteString(headerStyle.Render("Tasks"))
		b.WriteString("\n  No project selected.")
		return b.String()
	}

	b.WriteString(headerStyle.Render("Tasks: " + p.Name))
	b.WriteString("\n")
	fmt.Fprintf(&b, "  status: %s\n", statusLabel(statusCycle[m.statusIdx]))
	if m.searching || m.search.Value() != "" {
		b.WriteString("  " + m.search.View() + "\n")
	}
	b.WriteString("\n")

	tasks := m.visibleTasks()
	if len(tasks) == 0 {
		b.WriteString("  No matching tasks.\n")
	}
	for i := range tasks {
		t := &tasks[i]
		line := fmt.Sprintf("%-13s %s  %s", "["+string(t.Status)+"]", t.Title,
			core.FormatDuration(core.EffectiveDuration(t, m.now)))
		if t.Running() {
			line += " ⏱"
		}
		line = styleForStatus(t.Status).Render(line)
		if t.DueAt != nil && t.Status != models.StatusDone && t.DueAt.Before(m.now) {
			line += " " + overdueStyle.Render("overdue")
		}
		if i == m.taskIdx && m.activePanel == panelTasks {
			line = selectedStyle.Render("> ") + line
		} else {
			line = "  " + line
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	metrics := core.ComputeMetrics(p, m.now)
	fmt.Fprintf(&b, "\n  %d/%d done (%d%%)  avg %s  median %s",
		metrics.Completed, metrics.Count, metrics.Percent,
		core.FormatDuration(metrics.AvgDuration), core.FormatDuration(metrics.MedianDuration))
	return b.String()
}

func (m dashboardModel) renderAlertsPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Alerts"))
	b.WriteString("\n")

	if len(m.alertList) == 0 {
		b.WriteString("  No active alerts.")
		return b.String()
	}

	for _, a := range m.alertList {
		sev := styleForSeverity(a.Severity).Render(fmt.Sprintf("[%s]", strings.ToUpper(string(a.Severity))))
		b.WriteString(fmt.Sprintf("  %s %s\n", sev, a.Message))
	}

	b.WriteString(fmt.Sprintf("\n  Total: %d alert(s)", len(m.alertList)))

	return b.String()
}

func styleForStatus(status models.TaskStatus) lipgloss.Style {
	switch status {
	case models.StatusInProgress:
		return statusInProgress
	case models.StatusDone:
		return statusDone
	case models.StatusTodo:
		return statusTodo
	default:
		return lipgloss.NewStyle()
	}
}

func styleForSeverity(severity observability.AlertSeverity) lipgloss.Style {
	switch severity {
	case observability.SeverityHigh:
		return severityHigh
	case observability.SeverityMedium:
		return severityMedium
	case observability.SeverityLow:
		return severityLow
	default:
		return lipgloss.NewStyle()
	}
}

// loadData snapshots the store and evaluates alerts against it.
func (m dashboardModel) loadData() tea.Msg {
	if m.store == nil {
		return dataLoadedMsg{err: errStoreNotInitialized}
	}
	result := dataLoadedMsg{
		projects: m.store.Projects(),
		now:      m.store.Now(),
	}
	if m.alerts != nil {
		alerts, err := m.alerts.Evaluate(result.projects, result.now)
		if err != nil {
			result.err = fmt.Errorf("loading alerts: %w", err)
			return result
		}
		result.alerts = alerts
	}
	return result
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Interactive TUI dashboard for projects, tasks and alerts",
	Long: `Launch an interactive terminal dashboard showing projects with their
completion, the tasks of the selected project with live timers, and alerts.

Navigate between panels with Tab, move with the arrow keys, search with /,
cycle the status filter with f, start or pause a task with s, complete it
with c, refresh with r, quit with q.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireStore(); err != nil {
			return err
		}
		p := tea.NewProgram(newDashboardModel(Store, AlertEngine), tea.WithAltScreen())
		_, err := p.Run()
		return err
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}
