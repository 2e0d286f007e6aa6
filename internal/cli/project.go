package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/ptrack/internal/core"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage projects (create, list, show, rename, delete)",
	Long: `Manage projects.

Projects accept an ID, a unique ID prefix, or their exact name (case-insensitive)
wherever a <project> argument is expected.`,
}

var projectCreateTemplate string

var projectCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new project",
	Long: `Create a new project, optionally seeded with the tasks of a template.

Run 'ptrack template list' to see the available templates.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireStore(); err != nil {
			return err
		}
		p, err := Store.CreateProject(args[0], projectCreateTemplate)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Created project %s\n", p.ID)
		fmt.Fprintf(out, "  Name:  %s\n", p.Name)
		fmt.Fprintf(out, "  Tasks: %d\n", len(p.Tasks))
		return nil
	},
}

var projectListJSON bool

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireStore(); err != nil {
			return err
		}
		projects := Store.Projects()
		out := cmd.OutOrStdout()

		if projectListJSON {
			return writeJSON(out, core.ProjectsOverview(projects))
		}
		if len(projects) == 0 {
			fmt.Fprintln(out, "No projects yet. Create one with 'ptrack project create <name>'.")
			return nil
		}
		for i := range projects {
			p := &projects[i]
			fmt.Fprintf(out, "%s  %-30s %3d%%  %d task(s)\n", p.ID, p.Name, core.PercentComplete(p), len(p.Tasks))
		}
		return nil
	},
}

var projectShowCmd = &cobra.Command{
	Use:   "show <project>",
	Short: "Show a project with its tasks and metrics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireStore(); err != nil {
			return err
		}
		p, err := Store.Project(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		now := Store.Now()

		fmt.Fprintf(out, "%s\n", p.Name)
		fmt.Fprintf(out, "  ID:      %s\n", p.ID)
		fmt.Fprintf(out, "  Created: %s\n", p.CreatedAt.Local().Format("2006-01-02 15:04"))
		printMetrics(out, core.ComputeMetrics(&p, now))

		fmt.Fprintln(out)
		if len(p.Tasks) == 0 {
			fmt.Fprintln(out, "  No tasks.")
			return nil
		}
		for i := range p.Tasks {
			printTaskLine(out, &p.Tasks[i], now)
		}
		return nil
	},
}

var projectRenameCmd = &cobra.Command{
	Use:   "rename <project> <new-name>",
	Short: "Rename a project",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireStore(); err != nil {
			return err
		}
		if err := Store.RenameProject(args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Renamed project to %q\n", args[1])
		return nil
	},
}

var projectDeleteCmd = &cobra.Command{
	Use:   "delete <project>",
	Short: "Delete a project and all of its tasks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireStore(); err != nil {
			return err
		}
		p, err := Store.Project(args[0])
		if err != nil {
			return err
		}
		if err := Store.DeleteProject(p.ID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted project %q (%d task(s))\n", p.Name, len(p.Tasks))
		return nil
	},
}

// printMetrics writes the metric block shared by project show and metrics.
func printMetrics(out io.Writer, m core.ProjectMetrics) {
	fmt.Fprintf(out, "  %-18s %d/%d (%d%%)\n", "Completed:", m.Completed, m.Count, m.Percent)
	fmt.Fprintf(out, "  %-18s %s\n", "Avg duration:", core.FormatDuration(m.AvgDuration))
	fmt.Fprintf(out, "  %-18s %s\n", "Median duration:", core.FormatDuration(m.MedianDuration))
	fmt.Fprintf(out, "  %-18s %s\n", "Avg gap:", core.FormatDuration(m.AvgGap))
}

func writeJSON(out io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("formatting JSON: %w", err)
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

func init() {
	projectCreateCmd.Flags().StringVarP(&projectCreateTemplate, "template", "t", core.BlankTemplateID, "Template to seed the project with")
	_ = projectCreateCmd.RegisterFlagCompletionFunc("template", completeTemplateIDs)

	projectListCmd.Flags().BoolVar(&projectListJSON, "json", false, "Output the projects overview as JSON")

	projectShowCmd.ValidArgsFunction = completeProjectRefs
	projectRenameCmd.ValidArgsFunction = completeProjectRefs
	projectDeleteCmd.ValidArgsFunction = completeProjectRefs

	projectCmd.AddCommand(projectCreateCmd)
	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectShowCmd)
	projectCmd.AddCommand(projectRenameCmd)
	projectCmd.AddCommand(projectDeleteCmd)

	rootCmd.AddCommand(projectCmd)
}
