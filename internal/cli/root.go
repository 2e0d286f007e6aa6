package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// SetVersionInfo sets the version information injected via ldflags.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

var rootCmd = &cobra.Command{
	Use:   "ptrack",
	Short: "ptrack - project and task time tracker",
	Long: `ptrack tracks projects and their tasks from the terminal.

Create projects from templates, add tasks with due dates and tags, and time
your work with start, pause and complete. ptrack derives completion metrics
from the tracked time, raises alerts for overdue and long-running work, and
exports everything as an XLSX report or a JSON snapshot.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "ptrack %s\ncommit: %s\nbuilt:  %s\n", appVersion, appCommit, appDate)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

var errStoreNotInitialized = errors.New("project store not initialized")

// requireStore returns the shared store or an error when wiring failed.
func requireStore() error {
	if Store == nil {
		return errStoreNotInitialized
	}
	return nil
}

// commandContext returns the command's context, or Background when the
// command was invoked directly rather than through Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
