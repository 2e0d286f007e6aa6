package core

import (
	"fmt"
	"sort"
	"strings"

	"github.com/valter-silva-au/ptrack/pkg/models"
	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// StatusAll is the status filter value that passes every task.
const StatusAll = "all"

// TaskFilter selects tasks of a project. All criteria use AND logic; zero
// values pass everything.
type TaskFilter struct {
	Status models.TaskStatus
	Tag    string
	Search string
}

// ParseStatusFilter validates a status filter string. "" and "all" both
// mean no status filtering.
func ParseStatusFilter(s string) (models.TaskStatus, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == StatusAll {
		return "", nil
	}
	status := models.TaskStatus(s)
	if !status.Valid() {
		return "", fmt.Errorf("invalid status filter %q, must be one of: all, todo, in_progress, done", s)
	}
	return status, nil
}

// FilterTasks returns copies of the tasks of p that match f, ordered by due
// date ascending with undated tasks last, then by status rank, then by
// project order. p is not modified.
func FilterTasks(p *models.Project, f TaskFilter) []models.Task {
	if p == nil {
		return nil
	}

	fold := cases.Fold()
	wantTag := fold.String(strings.TrimSpace(f.Tag))
	query := fold.String(strings.TrimSpace(f.Search))

	result := make([]models.Task, 0, len(p.Tasks))
	for i := range p.Tasks {
		t := &p.Tasks[i]
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if wantTag != "" && !hasTagFolded(t.Tags, wantTag) {
			continue
		}
		if query != "" && !matchesSearch(t, query) {
			continue
		}
		result = append(result, t.Clone())
	}

	sort.SliceStable(result, func(i, j int) bool {
		return taskLess(&result[i], &result[j])
	})
	return result
}

// AllTags returns the distinct, trimmed, non-empty tags used in p sorted
// with the collation rules of locale.
func AllTags(p *models.Project, locale language.Tag) []string {
	if p == nil {
		return nil
	}
	var tags []string
	for i := range p.Tasks {
		tags = append(tags, p.Tasks[i].Tags...)
	}
	tags = models.NormalizeTags(tags)
	if tags == nil {
		return []string{}
	}
	collate.New(locale).SortStrings(tags)
	return tags
}

// statusRank orders statuses for display: running work first, finished last.
func statusRank(s models.TaskStatus) int {
	switch s {
	case models.StatusInProgress:
		return 0
	case models.StatusTodo:
		return 1
	case models.StatusDone:
		return 2
	default:
		return 3
	}
}

func taskLess(a, b *models.Task) bool {
	switch {
	case a.DueAt != nil && b.DueAt != nil:
		if !a.DueAt.Equal(*b.DueAt) {
			return a.DueAt.Before(*b.DueAt)
		}
	case a.DueAt != nil:
		return true
	case b.DueAt != nil:
		return false
	}
	return statusRank(a.Status) < statusRank(b.Status)
}

func hasTagFolded(tags []string, want string) bool {
	fold := cases.Fold()
	for _, tag := range tags {
		if fold.String(strings.TrimSpace(tag)) == want {
			return true
		}
	}
	return false
}

func matchesSearch(t *models.Task, query string) bool {
	fold := cases.Fold()
	if strings.Contains(fold.String(t.Title), query) {
		return true
	}
	if strings.Contains(fold.String(t.Description), query) {
		return true
	}
	for _, tag := range t.Tags {
		if strings.Contains(fold.String(tag), query) {
			return true
		}
	}
	return false
}
