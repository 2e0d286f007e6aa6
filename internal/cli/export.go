package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/ptrack/internal/core"
	"github.com/valter-silva-au/ptrack/internal/export"
)

var (
	exportFormat string
	exportDir    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all projects to an XLSX workbook or JSON document",
	Long: `Export every project to a file named project-tracker-YYYY-MM-DD.<ext>.

The XLSX workbook has Projects, Tasks and Metrics sheets. The JSON document
uses the persisted format and can be loaded back with 'ptrack import'.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireStore(); err != nil {
			return err
		}
		format, err := export.ParseFormat(exportFormat)
		if err != nil {
			return err
		}

		dir := exportDir
		if dir == "" && Config != nil {
			dir = Config.ExportDir
		}
		if dir == "" {
			dir = "."
		}
		dir = core.ResolvePath(BasePath, dir)

		path, err := export.NewExporter(Store).ToDir(dir, format)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d project(s) to %s\n", len(Store.Projects()), path)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", string(export.FormatXLSX), "Output format (xlsx, json)")
	exportCmd.Flags().StringVar(&exportDir, "dir", "", "Output directory (defaults to export.dir in .ptrackconfig)")
	_ = exportCmd.RegisterFlagCompletionFunc("format", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{string(export.FormatXLSX), string(export.FormatJSON)}, cobra.ShellCompDirectiveNoFileComp
	})
	rootCmd.AddCommand(exportCmd)
}
