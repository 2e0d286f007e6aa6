package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	ptrackmcp "github.com/valter-silva-au/ptrack/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Expose ptrack to AI assistants over MCP",
	Long: `Run ptrack as a Model Context Protocol server so assistants can read
projects, filter tasks, drive task timers and check alerts.

Register it with a client as the command "ptrack mcp serve".`,
}

func newMCPServer() (*ptrackmcp.Server, error) {
	if err := requireStore(); err != nil {
		return nil, err
	}
	return ptrackmcp.NewServer(Store, MetricsCalc, AlertEngine, appVersion), nil
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve MCP on stdin/stdout until the client disconnects",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		srv, err := newMCPServer()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("mcp server stopped: %w", err)
		}
		return nil
	},
}

var mcpToolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools the MCP server offers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		srv, err := newMCPServer()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, tool := range srv.Tools() {
			fmt.Fprintf(out, "%-20s %s\n", tool.Name, tool.Description)
		}
		return nil
	},
}

func init() {
	mcpCmd.AddCommand(mcpServeCmd, mcpToolsCmd)
	rootCmd.AddCommand(mcpCmd)
}
