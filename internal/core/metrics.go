package core

import (
	"math"
	"slices"
	"sort"
	"time"

	"github.com/valter-silva-au/ptrack/pkg/models"
)

// ProjectMetrics holds the derived completion and timing figures for a project.
type ProjectMetrics struct {
	Count          int           `json:"count"`
	Completed      int           `json:"completed"`
	Percent        int           `json:"percent"`
	AvgDuration    time.Duration `json:"avg_duration"`
	MedianDuration time.Duration `json:"median_duration"`
	AvgGap         time.Duration `json:"avg_gap"`
}

// TrendPoint is one step of the cumulative completion trend.
type TrendPoint struct {
	At   time.Time `json:"at"`
	Done int       `json:"done"`
}

// DurationPoint is the closed duration of one completed task.
type DurationPoint struct {
	TaskID   string        `json:"task_id"`
	Title    string        `json:"title"`
	Duration time.Duration `json:"duration"`
}

// ProjectProgress is a row of the projects overview.
type ProjectProgress struct {
	ProjectID string `json:"project_id"`
	Name      string `json:"name"`
	Percent   int    `json:"percent"`
}

// ComputeMetrics derives the aggregate metrics of p as of now.
func ComputeMetrics(p *models.Project, now time.Time) ProjectMetrics {
	m := ProjectMetrics{}
	if p == nil {
		return m
	}

	m.Count = len(p.Tasks)
	var durations []time.Duration
	for i := range p.Tasks {
		t := &p.Tasks[i]
		if t.Status != models.StatusDone {
			continue
		}
		m.Completed++
		durations = append(durations, EffectiveDuration(t, now))
	}

	m.Percent = Percent(m.Completed, m.Count)
	m.AvgDuration = Mean(durations)
	m.MedianDuration = Median(durations)
	m.AvgGap = Mean(CompletionGaps(p))
	return m
}

// PercentComplete returns round(100 * done / max(total, 1)).
func PercentComplete(p *models.Project) int {
	if p == nil {
		return 0
	}
	done := 0
	for i := range p.Tasks {
		if p.Tasks[i].Status == models.StatusDone {
			done++
		}
	}
	return Percent(done, len(p.Tasks))
}

// Percent returns round(100 * done / total), or 0 when total is 0.
func Percent(done, total int) int {
	return int(math.Round(100 * float64(done) / float64(max(total, 1))))
}

// Mean returns the arithmetic mean of ds, or 0 for an empty slice.
func Mean(ds []time.Duration) time.Duration {
	if len(ds) == 0 {
		return 0
	}
	var sum time.Duration
	for _, d := range ds {
		sum += d
	}
	return sum / time.Duration(len(ds))
}

// Median returns the middle value of ds, the mean of the two middle values
// for an even count, or 0 for an empty slice. ds is not modified.
func Median(ds []time.Duration) time.Duration {
	if len(ds) == 0 {
		return 0
	}
	s := slices.Clone(ds)
	slices.Sort(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return (s[mid-1] + s[mid]) / 2
}

// CompletionGaps returns the differences between consecutive completion
// times of done tasks, ordered by completion. Done tasks without a
// completion time are skipped.
func CompletionGaps(p *models.Project) []time.Duration {
	times := completionTimes(p)
	if len(times) < 2 {
		return nil
	}
	gaps := make([]time.Duration, 0, len(times)-1)
	for i := 1; i < len(times); i++ {
		gaps = append(gaps, times[i].Sub(times[i-1]))
	}
	return gaps
}

// CompletionTrend returns the cumulative count of completions at each
// completion time, oldest first.
func CompletionTrend(p *models.Project) []TrendPoint {
	times := completionTimes(p)
	points := make([]TrendPoint, len(times))
	for i, at := range times {
		points[i] = TrendPoint{At: at, Done: i + 1}
	}
	return points
}

// DurationSeries lists the closed duration of every done task in project
// order.
func DurationSeries(p *models.Project) []DurationPoint {
	var series []DurationPoint
	if p == nil {
		return series
	}
	for i := range p.Tasks {
		t := &p.Tasks[i]
		if t.Status != models.StatusDone {
			continue
		}
		series = append(series, DurationPoint{TaskID: t.ID, Title: t.Title, Duration: max(t.Elapsed, 0)})
	}
	return series
}

// ProjectsOverview returns the percent complete of every project in order.
func ProjectsOverview(projects []models.Project) []ProjectProgress {
	out := make([]ProjectProgress, len(projects))
	for i := range projects {
		out[i] = ProjectProgress{
			ProjectID: projects[i].ID,
			Name:      projects[i].Name,
			Percent:   PercentComplete(&projects[i]),
		}
	}
	return out
}

func completionTimes(p *models.Project) []time.Time {
	if p == nil {
		return nil
	}
	var times []time.Time
	for i := range p.Tasks {
		t := &p.Tasks[i]
		if t.Status == models.StatusDone && t.CompletedAt != nil {
			times = append(times, t.CompletedAt.UTC())
		}
	}
	sort.SliceStable(times, func(i, j int) bool { return times[i].Before(times[j]) })
	return times
}
