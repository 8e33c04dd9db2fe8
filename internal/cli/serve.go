package cli

import (
	"fmt"

	"github.com/HendryAvila/specwright/internal/config"
	appserver "github.com/HendryAvila/specwright/internal/server"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

func newServeCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server (stdio transport)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := rt.loadConfig()
			if err != nil {
				return err
			}
			// stdout carries the protocol; logs go to stderr and the log file.
			logger, closeLog := config.SetupLogger(cfg.Log.File, config.ParseLogLevel(cfg.Log.Level))
			defer func() { _ = closeLog() }()

			s, cleanup, err := appserver.New(cfg, logger)
			if err != nil {
				return fmt.Errorf("creating server: %w", err)
			}
			defer cleanup()

			logger.Info("serving MCP over stdio", "version", appserver.Version, "db", cfg.DBPath())
			return server.ServeStdio(s)
		},
	}
}
