package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"github.com/valter-silva-au/ptrack/pkg/models"
)

// TimeLayout is the wire format for timestamps: RFC 3339 in UTC with
// millisecond precision.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// ErrNotArray is returned when a project document is not a JSON array.
var ErrNotArray = errors.New("document is not a JSON array of projects")

// fallback layouts accepted when reading timestamps written by other tools.
var readLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// projectRecord is the persisted shape of a project.
type projectRecord struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	CreatedAt string       `json:"createdAt"`
	Tasks     []taskRecord `json:"tasks"`
}

// taskRecord is the persisted shape of a task.
type taskRecord struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Status      string   `json:"status"`
	CreatedAt   string   `json:"createdAt"`
	ActiveStart *string  `json:"activeStart"`
	ElapsedMs   float64  `json:"elapsedMs"`
	CompletedAt *string  `json:"completedAt"`
	DueAt       *string  `json:"dueAt"`
	Tags        wireTags `json:"tags"`
}

// wireTags reads either a JSON array of strings or a comma-delimited string.
// It is always written as an array.
type wireTags []string

func (w *wireTags) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*w = nil
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*w = models.SplitTags(s)
		return nil
	}
	var raw []any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("tags: %w", err)
	}
	tags := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			tags = append(tags, s)
		}
	}
	*w = models.NormalizeTags(tags)
	return nil
}

func (w wireTags) MarshalJSON() ([]byte, error) {
	if w == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(w))
}

// JSONCodec encodes the project collection as the JSON array stored in the
// blob store and exchanged by import and export.
type JSONCodec struct{}

// Decode parses a project document. Comments and trailing commas are
// tolerated. Anything other than a top-level array is rejected.
func (JSONCodec) Decode(data []byte) ([]models.Project, error) {
	clean := bytes.TrimSpace(jsonc.ToJSON(data))
	if len(clean) == 0 || clean[0] != '[' {
		return nil, ErrNotArray
	}
	var records []projectRecord
	if err := json.Unmarshal(clean, &records); err != nil {
		return nil, fmt.Errorf("decoding projects: %w", err)
	}

	projects := make([]models.Project, 0, len(records))
	for _, r := range records {
		projects = append(projects, r.toModel())
	}
	return projects, nil
}

// Encode renders projects as an indented JSON array.
func (JSONCodec) Encode(projects []models.Project) ([]byte, error) {
	records := make([]projectRecord, 0, len(projects))
	for _, p := range projects {
		records = append(records, fromProject(p))
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding projects: %w", err)
	}
	return data, nil
}

func (r projectRecord) toModel() models.Project {
	p := models.Project{
		ID:        strings.TrimSpace(r.ID),
		Name:      r.Name,
		CreatedAt: parseTime(r.CreatedAt),
		Tasks:     make([]models.Task, 0, len(r.Tasks)),
	}
	for _, tr := range r.Tasks {
		p.Tasks = append(p.Tasks, tr.toModel())
	}
	return p
}

func (r taskRecord) toModel() models.Task {
	ms := r.ElapsedMs
	if math.IsNaN(ms) || ms < 0 {
		ms = 0
	}
	return models.Task{
		ID:          strings.TrimSpace(r.ID),
		Title:       r.Title,
		Description: r.Description,
		Status:      models.TaskStatus(r.Status),
		CreatedAt:   parseTime(r.CreatedAt),
		ActiveStart: parseTimePtr(r.ActiveStart),
		Elapsed:     time.Duration(math.Round(ms)) * time.Millisecond,
		CompletedAt: parseTimePtr(r.CompletedAt),
		DueAt:       parseTimePtr(r.DueAt),
		Tags:        models.NormalizeTags(r.Tags),
	}
}

func fromProject(p models.Project) projectRecord {
	r := projectRecord{
		ID:        p.ID,
		Name:      p.Name,
		CreatedAt: FormatTime(p.CreatedAt),
		Tasks:     make([]taskRecord, 0, len(p.Tasks)),
	}
	for _, t := range p.Tasks {
		r.Tasks = append(r.Tasks, fromTask(t))
	}
	return r
}

func fromTask(t models.Task) taskRecord {
	return taskRecord{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		CreatedAt:   FormatTime(t.CreatedAt),
		ActiveStart: formatTimePtr(t.ActiveStart),
		ElapsedMs:   float64(t.Elapsed.Round(time.Millisecond).Milliseconds()),
		CompletedAt: formatTimePtr(t.CompletedAt),
		DueAt:       formatTimePtr(t.DueAt),
		Tags:        wireTags(t.Tags),
	}
}

// FormatTime renders t in the wire layout. The zero time renders as "".
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses a wire timestamp. Unparseable or empty values yield the
// zero time.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range readLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func parseTime(s string) time.Time {
	t, _ := ParseTime(s)
	return t
}

func parseTimePtr(s *string) *time.Time {
	if s == nil {
		return nil
	}
	t, ok := ParseTime(*s)
	if !ok {
		return nil
	}
	return &t
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := FormatTime(*t)
	return &s
}

// JoinTags renders tags as the comma-delimited form used by relational
// storage.
func JoinTags(tags []string) string {
	return strings.Join(models.NormalizeTags(tags), ",")
}
