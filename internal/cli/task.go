package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/ptrack/internal/core"
	"github.com/valter-silva-au/ptrack/internal/storage"
	"github.com/valter-silva-au/ptrack/pkg/models"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks (add, edit, start, pause, complete, delete, list)",
	Long: `Unified task management commands.

Every subcommand takes the project first. Tasks accept their ID or a unique
ID prefix within the project.`,
}

var (
	taskAddDescription string
	taskAddDue         string
	taskAddTags        string
)

var taskAddCmd = &cobra.Command{
	Use:   "add <project> <title>",
	Short: "Add a task to the front of a project",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireStore(); err != nil {
			return err
		}
		due, err := parseDue(taskAddDue)
		if err != nil {
			return err
		}
		task, err := Store.AddTask(args[0], core.NewTask{
			Title:       args[1],
			Description: taskAddDescription,
			DueAt:       due,
			Tags:        models.SplitTags(taskAddTags),
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added task %s\n", task.ID)
		return nil
	},
}

var taskEditCmd = &cobra.Command{
	Use:   "edit <project> <task>",
	Short: "Edit a task's title, description, due date or tags",
	Long: `Edit a task. Only the flags given are changed.

Use --due "" or --clear-due to remove a due date and --tags "" to remove all tags.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireStore(); err != nil {
			return err
		}
		upd, err := taskUpdateFromFlags(cmd)
		if err != nil {
			return err
		}
		task, err := Store.UpdateTask(args[0], args[1], upd)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated task %s\n", task.ID)
		return nil
	},
}

// taskUpdateFromFlags builds a TaskUpdate from the flags that were set.
func taskUpdateFromFlags(cmd *cobra.Command) (core.TaskUpdate, error) {
	var upd core.TaskUpdate
	flags := cmd.Flags()

	if flags.Changed("title") {
		v, _ := flags.GetString("title")
		upd.Title = &v
	}
	if flags.Changed("description") {
		v, _ := flags.GetString("description")
		upd.Description = &v
	}
	if flags.Changed("due") {
		v, _ := flags.GetString("due")
		due, err := parseDue(v)
		if err != nil {
			return upd, err
		}
		upd.DueAt = due
		upd.ClearDue = due == nil
	}
	if clearDue, _ := flags.GetBool("clear-due"); clearDue {
		upd.DueAt = nil
		upd.ClearDue = true
	}
	if flags.Changed("tags") {
		v, _ := flags.GetString("tags")
		upd.Tags = models.SplitTags(v)
		upd.SetTags = true
	}
	return upd, nil
}

// newTransitionCommand builds the start, pause and complete commands, which
// differ only in the store method they call.
func newTransitionCommand(use, short, verb string, fn func(projectRef, taskRef string) (models.Task, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <project> <task>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireStore(); err != nil {
				return err
			}
			task, err := fn(args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %q (%s, %s)\n", verb, task.Title, task.Status,
				core.FormatDuration(core.EffectiveDuration(&task, Store.Now())))
			return nil
		},
		ValidArgsFunction: completeProjectThenTask,
	}
}

var taskStartCmd = newTransitionCommand("start", "Start timing a task", "Started", func(p, t string) (models.Task, error) {
	return Store.StartTask(p, t)
})

var taskPauseCmd = newTransitionCommand("pause", "Pause a running task", "Paused", func(p, t string) (models.Task, error) {
	return Store.PauseTask(p, t)
})

var taskCompleteCmd = newTransitionCommand("complete", "Mark a task done", "Completed", func(p, t string) (models.Task, error) {
	return Store.CompleteTask(p, t)
})

var taskDeleteCmd = &cobra.Command{
	Use:   "delete <project> <task>",
	Short: "Delete a task",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireStore(); err != nil {
			return err
		}
		if err := Store.DeleteTask(args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Deleted task.")
		return nil
	},
}

var (
	taskListStatus string
	taskListTag    string
	taskListSearch string
	taskListJSON   bool
)

var taskListCmd = &cobra.Command{
	Use:   "list <project>",
	Short: "List a project's tasks",
	Long: `List a project's tasks ordered by due date (undated last), then status.

Filters combine: --status (all, todo, in_progress, done), --tag (exact,
case-insensitive) and --search (title, description and tags).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireStore(); err != nil {
			return err
		}
		status, err := core.ParseStatusFilter(taskListStatus)
		if err != nil {
			return err
		}
		p, err := Store.Project(args[0])
		if err != nil {
			return err
		}
		tasks := core.FilterTasks(&p, core.TaskFilter{Status: status, Tag: taskListTag, Search: taskListSearch})
		out := cmd.OutOrStdout()

		if taskListJSON {
			return writeJSON(out, tasks)
		}
		if len(tasks) == 0 {
			fmt.Fprintln(out, "No matching tasks.")
			return nil
		}
		now := Store.Now()
		for i := range tasks {
			printTaskLine(out, &tasks[i], now)
		}
		return nil
	},
}

// printTaskLine writes one task as
// "<id>  [status]  title  duration  due <date>  #tag".
func printTaskLine(out io.Writer, t *models.Task, now time.Time) {
	var b strings.Builder
	fmt.Fprintf(&b, "  %s  %-13s %s", t.ID, "["+string(t.Status)+"]", t.Title)
	fmt.Fprintf(&b, "  %s", core.FormatDuration(core.EffectiveDuration(t, now)))
	if t.Running() {
		b.WriteString(" (running)")
	}
	if t.DueAt != nil {
		fmt.Fprintf(&b, "  due %s", t.DueAt.Local().Format("2006-01-02 15:04"))
		if t.Status != models.StatusDone && t.DueAt.Before(now) {
			b.WriteString(" OVERDUE")
		}
	}
	for _, tag := range t.Tags {
		b.WriteString("  #" + tag)
	}
	fmt.Fprintln(out, b.String())
}

// parseDue parses a --due value. An empty value means no due date.
func parseDue(s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, ok := storage.ParseTime(s)
	if !ok {
		return nil, fmt.Errorf("invalid due date %q (use YYYY-MM-DD, YYYY-MM-DDTHH:MM or RFC 3339)", s)
	}
	return &t, nil
}

func init() {
	taskAddCmd.Flags().StringVarP(&taskAddDescription, "description", "d", "", "Task description")
	taskAddCmd.Flags().StringVar(&taskAddDue, "due", "", "Due date (YYYY-MM-DD, YYYY-MM-DDTHH:MM or RFC 3339)")
	taskAddCmd.Flags().StringVar(&taskAddTags, "tags", "", "Comma-separated tags")
	taskAddCmd.ValidArgsFunction = completeProjectRefs

	taskEditCmd.Flags().String("title", "", "New title")
	taskEditCmd.Flags().StringP("description", "d", "", "New description")
	taskEditCmd.Flags().String("due", "", "New due date; empty clears it")
	taskEditCmd.Flags().Bool("clear-due", false, "Remove the due date")
	taskEditCmd.Flags().String("tags", "", "Replace tags (comma-separated)")
	taskEditCmd.ValidArgsFunction = completeProjectThenTask

	taskDeleteCmd.ValidArgsFunction = completeProjectThenTask

	taskListCmd.Flags().StringVar(&taskListStatus, "status", core.StatusAll, "Filter by status (all, todo, in_progress, done)")
	taskListCmd.Flags().StringVar(&taskListTag, "tag", "", "Only tasks with this tag")
	taskListCmd.Flags().StringVar(&taskListSearch, "search", "", "Search title, description and tags")
	taskListCmd.Flags().BoolVar(&taskListJSON, "json", false, "Output tasks as JSON")
	_ = taskListCmd.RegisterFlagCompletionFunc("status", completeStatuses)
	taskListCmd.ValidArgsFunction = completeProjectRefs

	taskCmd.AddCommand(taskAddCmd)
	taskCmd.AddCommand(taskEditCmd)
	taskCmd.AddCommand(taskStartCmd)
	taskCmd.AddCommand(taskPauseCmd)
	taskCmd.AddCommand(taskCompleteCmd)
	taskCmd.AddCommand(taskDeleteCmd)
	taskCmd.AddCommand(taskListCmd)

	rootCmd.AddCommand(taskCmd)
}
