package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/ptrack/pkg/models"
)

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "List and manage project templates",
	Long: `Templates are named lists of task titles used to seed new projects.

The built-in templates are always available; user templates live in
templates.yaml in the ptrack home directory and may override a built-in.`,
}

var templateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available templates",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Templates == nil {
			return fmt.Errorf("template catalog not initialized")
		}
		out := cmd.OutOrStdout()
		for _, t := range Templates.List() {
			fmt.Fprintf(out, "%-18s %s (%d task(s))\n", t.ID, t.Name, len(t.Tasks))
			for _, title := range t.Tasks {
				fmt.Fprintf(out, "    - %s\n", title)
			}
		}
		return nil
	},
}

var (
	templateAddName  string
	templateAddTasks []string
)

var templateAddCmd = &cobra.Command{
	Use:   "add <id>",
	Short: "Add or replace a user template",
	Long: `Add or replace a user template. Give one --task per task title, in order.

  ptrack template add release --name "Release" --task "Tag" --task "Publish notes"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Templates == nil {
			return fmt.Errorf("template catalog not initialized")
		}
		tmpl := models.Template{ID: args[0], Name: templateAddName, Tasks: templateAddTasks}
		if err := Templates.Register(tmpl); err != nil {
			return err
		}
		if err := Templates.Save(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved template %s (%d task(s))\n", strings.TrimSpace(args[0]), len(templateAddTasks))
		return nil
	},
}

var templateRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a user template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Templates == nil {
			return fmt.Errorf("template catalog not initialized")
		}
		if err := Templates.Remove(args[0]); err != nil {
			return err
		}
		if err := Templates.Save(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed template %s\n", args[0])
		return nil
	},
	ValidArgsFunction: completeTemplateIDs,
}

func init() {
	templateAddCmd.Flags().StringVar(&templateAddName, "name", "", "Display name (defaults to the ID)")
	templateAddCmd.Flags().StringArrayVar(&templateAddTasks, "task", nil, "Task title (repeatable)")

	templateCmd.AddCommand(templateListCmd)
	templateCmd.AddCommand(templateAddCmd)
	templateCmd.AddCommand(templateRemoveCmd)

	rootCmd.AddCommand(templateCmd)
}
