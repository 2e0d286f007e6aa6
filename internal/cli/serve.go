package cli

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/ptrack/internal/core"
	"github.com/valter-silva-au/ptrack/internal/remote"
	"github.com/valter-silva-au/ptrack/internal/storage"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the remote CRUD HTTP server",
	Long: `Run the HTTP server that exposes projects and tasks over a relational
database under /api.

The database is chosen by database.driver (sqlite3 or postgres) and
database.dsn in .ptrackconfig. A relative sqlite path is resolved against
the ptrack home directory.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := Config
		if cfg == nil {
			cfg = core.DefaultGlobalConfig()
		}
		addr := serveAddr
		if addr == "" {
			addr = cfg.ServerAddr
		}

		dsn := cfg.Database.DSN
		if cfg.Database.Driver == "sqlite3" {
			dsn = core.ResolvePath(BasePath, dsn)
		}
		store, err := storage.OpenSQLStore(cfg.Database.Driver, dsn)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		logger := slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), nil))
		srv := remote.NewServer(store, logger, nil)

		ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Fprintf(cmd.OutOrStdout(), "Serving %s database on %s\n", cfg.Database.Driver, addr)
		if err := srv.Run(ctx, addr); err != nil {
			return fmt.Errorf("running server: %w", err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (defaults to server.addr in .ptrackconfig)")
	rootCmd.AddCommand(serveCmd)
}
