package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/ptrack/internal/core"
)

var tagsCmd = &cobra.Command{
	Use:   "tags <project>",
	Short: "List the distinct tags used in a project",
	Long: `List the distinct tags used by a project's tasks, sorted with the
collation rules of the configured locale.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireStore(); err != nil {
			return err
		}
		p, err := Store.Project(args[0])
		if err != nil {
			return err
		}
		tags := core.AllTags(&p, core.ResolveLocale(configuredLocale()))
		out := cmd.OutOrStdout()
		if len(tags) == 0 {
			fmt.Fprintln(out, "No tags.")
			return nil
		}
		for _, tag := range tags {
			fmt.Fprintln(out, tag)
		}
		return nil
	},
	ValidArgsFunction: completeProjectRefs,
}

func configuredLocale() string {
	if Config == nil {
		return core.DefaultGlobalConfig().Locale
	}
	return Config.Locale
}

func init() {
	rootCmd.AddCommand(tagsCmd)
}
