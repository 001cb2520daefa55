package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/whitewolf2000ani/sdx/internal/config"
	"github.com/whitewolf2000ani/sdx/internal/home"
	"github.com/whitewolf2000ani/sdx/internal/server"
)

var (
	serveHost string
	servePort string
	serveMem  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the sdx server",
	Long: `Start the sdx HTTP server.

This starts both the HTTP API server and the Postgres container.
When the server shuts down (via Ctrl+C or SIGTERM), Postgres is also stopped.

Configuration is hot-reloaded: edits to config.yaml take effect on the
next request without a restart.

Examples:
  sdx serve                    # Start on default port 8085
  sdx serve --port 3000        # Start on custom port
  sdx serve --host 0.0.0.0     # Bind to all interfaces
  sdx serve --mem              # In-memory store, no Postgres (nothing persists)`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		// Set up logger
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))

		// Get home directory
		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}

		// Load configuration with hot reload
		mgr, err := config.NewManager(cfgFile)
		if err != nil {
			return err
		}
		mgr.WatchConfig()

		// Create server
		srv, err := server.New(server.Config{
			Host:          serveHost,
			Port:          servePort,
			Home:          h,
			ConfigManager: mgr,
			Logger:        logger,
			MemStore:      serveMem,
		})
		if err != nil {
			return err
		}

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "Host to bind to")
	serveCmd.Flags().StringVar(&servePort, "port", "", "Port to listen on (default from config)")
	serveCmd.Flags().BoolVar(&serveMem, "mem", false, "Use the in-memory store instead of Postgres")

	rootCmd.AddCommand(serveCmd)
}
