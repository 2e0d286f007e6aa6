package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace all projects with the contents of a JSON export",
	Long: `Replace the whole project collection with a document written by
'ptrack export --format json'.

The current data is left untouched if the document cannot be decoded.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireStore(); err != nil {
			return err
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}
		if err := Store.Import(data); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d project(s)\n", len(Store.Projects()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}
