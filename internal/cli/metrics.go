package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/ptrack/internal/core"
	"github.com/valter-silva-au/ptrack/pkg/models"
)

var metricsJSON bool

// projectMetricsReport is the JSON form of one project's metrics. Durations
// are reported in milliseconds.
type projectMetricsReport struct {
	ProjectID        string            `json:"project_id"`
	Name             string            `json:"name"`
	Count            int               `json:"count"`
	Completed        int               `json:"completed"`
	Percent          int               `json:"percent"`
	AvgDurationMs    int64             `json:"avg_duration_ms"`
	MedianDurationMs int64             `json:"median_duration_ms"`
	AvgGapMs         int64             `json:"avg_gap_ms"`
	Trend            []core.TrendPoint `json:"trend,omitempty"`
	Durations        []durationPointMs `json:"durations,omitempty"`
}

type durationPointMs struct {
	TaskID     string `json:"task_id"`
	Title      string `json:"title"`
	DurationMs int64  `json:"duration_ms"`
}

var metricsCmd = &cobra.Command{
	Use:   "metrics [project]",
	Short: "Display completion and timing metrics",
	Long: `Display completion and timing metrics derived from tracked time.

Without a project, prints one line per project. With a project, prints its
average and median task duration, the average gap between completions, the
cumulative completion trend and the duration of every completed task.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireStore(); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		now := Store.Now()

		if len(args) == 0 {
			projects := Store.Projects()
			if metricsJSON {
				reports := make([]projectMetricsReport, len(projects))
				for i := range projects {
					reports[i] = buildMetricsReport(&projects[i], now, false)
				}
				return writeJSON(out, reports)
			}
			if len(projects) == 0 {
				fmt.Fprintln(out, "No projects yet.")
				return nil
			}
			fmt.Fprintf(out, "%-30s %5s %9s %12s %12s %12s\n", "PROJECT", "DONE", "COMPLETE", "AVG", "MEDIAN", "GAP")
			for i := range projects {
				m := core.ComputeMetrics(&projects[i], now)
				fmt.Fprintf(out, "%-30s %5s %8d%% %12s %12s %12s\n",
					projects[i].Name,
					fmt.Sprintf("%d/%d", m.Completed, m.Count),
					m.Percent,
					core.FormatDuration(m.AvgDuration),
					core.FormatDuration(m.MedianDuration),
					core.FormatDuration(m.AvgGap),
				)
			}
			return nil
		}

		p, err := Store.Project(args[0])
		if err != nil {
			return err
		}
		if metricsJSON {
			return writeJSON(out, buildMetricsReport(&p, now, true))
		}
		fmt.Fprintf(out, "Metrics for %s\n\n", p.Name)
		printMetrics(out, core.ComputeMetrics(&p, now))
		printTrend(out, core.CompletionTrend(&p))
		printDurations(out, core.DurationSeries(&p))
		return nil
	},
	ValidArgsFunction: completeProjectRefs,
}

func buildMetricsReport(p *models.Project, now time.Time, detail bool) projectMetricsReport {
	m := core.ComputeMetrics(p, now)
	r := projectMetricsReport{
		ProjectID:        p.ID,
		Name:             p.Name,
		Count:            m.Count,
		Completed:        m.Completed,
		Percent:          m.Percent,
		AvgDurationMs:    core.Milliseconds(m.AvgDuration),
		MedianDurationMs: core.Milliseconds(m.MedianDuration),
		AvgGapMs:         core.Milliseconds(m.AvgGap),
	}
	if detail {
		r.Trend = core.CompletionTrend(p)
		for _, d := range core.DurationSeries(p) {
			r.Durations = append(r.Durations, durationPointMs{TaskID: d.TaskID, Title: d.Title, DurationMs: core.Milliseconds(d.Duration)})
		}
	}
	return r
}

func printTrend(out io.Writer, trend []core.TrendPoint) {
	if len(trend) == 0 {
		return
	}
	fmt.Fprintln(out, "\n  Completion trend:")
	for _, pt := range trend {
		fmt.Fprintf(out, "    %s  %d done\n", pt.At.Local().Format("2006-01-02 15:04"), pt.Done)
	}
}

func printDurations(out io.Writer, series []core.DurationPoint) {
	if len(series) == 0 {
		return
	}
	fmt.Fprintln(out, "\n  Task durations:")
	for _, d := range series {
		fmt.Fprintf(out, "    %-40s %s\n", d.Title, core.FormatDuration(d.Duration))
	}
}

func init() {
	metricsCmd.Flags().BoolVar(&metricsJSON, "json", false, "Output metrics as JSON")
	rootCmd.AddCommand(metricsCmd)
}
