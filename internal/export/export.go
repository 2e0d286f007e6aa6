// Package export writes the project collection out as an XLSX report or a
// JSON snapshot.
package export

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/valter-silva-au/ptrack/internal/core"
	"github.com/valter-silva-au/ptrack/internal/storage"
	"github.com/valter-silva-au/ptrack/pkg/models"
	"github.com/xuri/excelize/v2"
)

// Format selects the export document type.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
)

// Sheet names of the XLSX report, in workbook order.
const (
	SheetProjects = "Projects"
	SheetTasks    = "Tasks"
	SheetMetrics  = "Metrics"
)

var (
	projectsHeader = []string{"projectId", "projectName", "createdAt", "taskCount", "doneCount", "percentComplete"}
	tasksHeader    = []string{
		"projectId", "projectName", "taskIndex", "taskId", "title", "description", "status",
		"createdAt", "activeStart", "elapsedMs", "completedAt", "dueAt", "tags", "durationMs", "durationReadable",
	}
	metricsHeader = []string{
		"projectId", "projectName", "taskCount", "completedCount", "percentComplete",
		"avgDurationMs", "medianDurationMs", "avgGapMs",
	}
)

// ParseFormat validates a format name. The empty string means xlsx.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatXLSX:
		return FormatXLSX, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("invalid export format %q, must be xlsx or json", s)
	}
}

// FileName returns the dated export file name, e.g.
// project-tracker-2024-06-03.xlsx. The date is taken in UTC.
func FileName(format Format, now time.Time) string {
	return fmt.Sprintf("project-tracker-%s.%s", now.UTC().Format("2006-01-02"), format)
}

// Exporter writes export documents for the projects held by a store.
type Exporter interface {
	// WriteTo writes the document in the given format to w.
	WriteTo(w io.Writer, format Format) error
	// ToDir writes the document into dir under its dated file name and
	// returns the path written.
	ToDir(dir string, format Format) (string, error)
}

type exporter struct {
	store core.ProjectStore
}

// NewExporter creates an Exporter over store.
func NewExporter(store core.ProjectStore) Exporter {
	return &exporter{store: store}
}

func (e *exporter) WriteTo(w io.Writer, format Format) error {
	switch format {
	case FormatJSON:
		data, err := e.store.Export()
		if err != nil {
			return fmt.Errorf("exporting json: %w", err)
		}
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("writing json export: %w", err)
		}
		return nil
	case FormatXLSX:
		return WriteWorkbook(w, e.store.Projects(), e.store.Now())
	default:
		return fmt.Errorf("invalid export format %q", format)
	}
}

func (e *exporter) ToDir(dir string, format Format) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating export directory: %w", err)
	}

	var buf bytes.Buffer
	if err := e.WriteTo(&buf, format); err != nil {
		return "", err
	}

	path := filepath.Join(dir, FileName(format, e.store.Now()))
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("writing export file: %w", err)
	}
	return path, nil
}

// WriteWorkbook renders projects as the three-sheet report and writes the
// XLSX bytes to w. Running tasks are measured as of now.
func WriteWorkbook(w io.Writer, projects []models.Project, now time.Time) error {
	f, err := BuildWorkbook(projects, now)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

// BuildWorkbook lays out the Projects, Tasks and Metrics sheets. Each sheet
// starts with a header row; every project contributes one row to Projects
// and Metrics and one row per task to Tasks.
func BuildWorkbook(projects []models.Project, now time.Time) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetProjects); err != nil {
		f.Close()
		return nil, fmt.Errorf("naming projects sheet: %w", err)
	}
	for _, name := range []string{SheetTasks, SheetMetrics} {
		if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, fmt.Errorf("creating %s sheet: %w", name, err)
		}
	}

	sheets := map[string][][]any{
		SheetProjects: {headerRow(projectsHeader)},
		SheetTasks:    {headerRow(tasksHeader)},
		SheetMetrics:  {headerRow(metricsHeader)},
	}
	for i := range projects {
		p := &projects[i]
		sheets[SheetProjects] = append(sheets[SheetProjects], projectRow(p))
		for j := range p.Tasks {
			sheets[SheetTasks] = append(sheets[SheetTasks], taskRow(p, j, now))
		}
		sheets[SheetMetrics] = append(sheets[SheetMetrics], metricsRow(p, now))
	}

	for _, name := range []string{SheetProjects, SheetTasks, SheetMetrics} {
		if err := writeRows(f, name, sheets[name]); err != nil {
			f.Close()
			return nil, err
		}
	}
	f.SetActiveSheet(0)
	return f, nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("addressing %s row %d: %w", sheet, i+1, err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func headerRow(names []string) []any {
	row := make([]any, len(names))
	for i, n := range names {
		row[i] = n
	}
	return row
}

func projectRow(p *models.Project) []any {
	done := 0
	for i := range p.Tasks {
		if p.Tasks[i].Status == models.StatusDone {
			done++
		}
	}
	return []any{
		p.ID,
		p.Name,
		storage.FormatTime(p.CreatedAt),
		len(p.Tasks),
		done,
		core.PercentComplete(p),
	}
}

func taskRow(p *models.Project, idx int, now time.Time) []any {
	t := &p.Tasks[idx]
	d := core.EffectiveDuration(t, now)
	return []any{
		p.ID,
		p.Name,
		idx + 1,
		t.ID,
		t.Title,
		t.Description,
		string(t.Status),
		storage.FormatTime(t.CreatedAt),
		optionalTime(t.ActiveStart),
		core.Milliseconds(t.Elapsed),
		optionalTime(t.CompletedAt),
		optionalTime(t.DueAt),
		strings.Join(t.Tags, ", "),
		core.Milliseconds(d),
		core.FormatDuration(d),
	}
}

func metricsRow(p *models.Project, now time.Time) []any {
	m := core.ComputeMetrics(p, now)
	return []any{
		p.ID,
		p.Name,
		m.Count,
		m.Completed,
		m.Percent,
		core.Milliseconds(m.AvgDuration),
		core.Milliseconds(m.MedianDuration),
		core.Milliseconds(m.AvgGap),
	}
}

func optionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return storage.FormatTime(*t)
}
