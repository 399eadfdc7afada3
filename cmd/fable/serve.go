package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/fablehouse/fable/internal/config"
	"github.com/fablehouse/fable/internal/home"
	"github.com/fablehouse/fable/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Fable server",
	Long: `Start the Fable HTTP server.

On startup any flows interrupted by a previous shutdown are settled
against the pages that actually finished, so book statuses stay honest
across restarts.

Examples:
  fable serve                       # Listen on the configured address
  fable serve --addr 0.0.0.0:3000   # Bind to a custom address`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))

		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}

		cfgPath := cfgFile
		if cfgPath == "" {
			cfgPath = h.ConfigPath()
		}
		if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
			if err := config.WriteDefault(cfgPath); err != nil {
				return fmt.Errorf("failed to write default config: %w", err)
			}
			logger.Info("wrote default config", "path", cfgPath)
		}

		cfgMgr, err := config.NewManager(cfgPath)
		if err != nil {
			return err
		}

		srv, err := server.New(server.Config{
			Addr:          serveAddr,
			Home:          h,
			ConfigManager: cfgMgr,
			Logger:        logger,
		})
		if err != nil {
			return err
		}

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Address to listen on (default from config)")

	rootCmd.AddCommand(serveCmd)
}
