package cli

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/ptrack/internal/core"
	"github.com/valter-silva-au/ptrack/internal/observability"
)

var (
	activityJSON  bool
	activitySince string
)

var activityCmd = &cobra.Command{
	Use:   "activity",
	Short: "Summarise recent activity from the event log",
	Long: `Display activity aggregated from the event log over a time window.

Counts project and task events, imports and failed saves, and the time
closed by pauses and completions during the window.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if MetricsCalc == nil {
			return fmt.Errorf("metrics calculator not initialized (event log may be unavailable)")
		}

		now := time.Now().UTC()
		if Store != nil {
			now = Store.Now()
		}
		sinceTime, err := observability.ParseSince(activitySince, now)
		if err != nil {
			return fmt.Errorf("parsing --since: %w", err)
		}

		a, err := MetricsCalc.Calculate(sinceTime)
		if err != nil {
			return fmt.Errorf("calculating activity: %w", err)
		}

		out := cmd.OutOrStdout()
		if activityJSON {
			return writeJSON(out, a)
		}

		fmt.Fprintf(out, "Activity (since %s)\n\n", sinceTime.Format("2006-01-02"))
		rows := []struct {
			label string
			value int
		}{
			{"Events recorded:", a.EventCount},
			{"Projects created:", a.ProjectsCreated},
			{"Projects deleted:", a.ProjectsDeleted},
			{"Tasks created:", a.TasksCreated},
			{"Tasks started:", a.TasksStarted},
			{"Tasks paused:", a.TasksPaused},
			{"Tasks completed:", a.TasksCompleted},
			{"Tasks deleted:", a.TasksDeleted},
			{"Imports:", a.Imports},
			{"Failed saves:", a.PersistFailures},
		}
		for _, r := range rows {
			fmt.Fprintf(out, "  %-24s %d\n", r.label, r.value)
		}
		fmt.Fprintf(out, "  %-24s %s\n", "Time tracked:", formatMs(a.TrackedMs))

		if len(a.ByProject) > 0 {
			fmt.Fprintln(out, "\n  Events by project:")
			for _, id := range sortedKeys(a.ByProject) {
				fmt.Fprintf(out, "    %-20s %d\n", projectLabel(id), a.ByProject[id])
			}
		}

		if a.OldestEvent != nil {
			fmt.Fprintf(out, "\n  %-24s %s\n", "Oldest event:", a.OldestEvent.Format(time.RFC3339))
		}
		if a.NewestEvent != nil {
			fmt.Fprintf(out, "  %-24s %s\n", "Newest event:", a.NewestEvent.Format(time.RFC3339))
		}
		return nil
	},
}

func formatMs(ms int64) string {
	return core.FormatDuration(time.Duration(ms) * time.Millisecond)
}

// projectLabel prefers the project's current name over its ID.
func projectLabel(id string) string {
	if Store != nil {
		if p, err := Store.Project(id); err == nil {
			return p.Name
		}
	}
	return id
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func init() {
	activityCmd.Flags().BoolVar(&activityJSON, "json", false, "Output activity as JSON")
	activityCmd.Flags().StringVar(&activitySince, "since", "7d", "Time window (e.g. 7d, 30d, 24h)")
	rootCmd.AddCommand(activityCmd)
}
