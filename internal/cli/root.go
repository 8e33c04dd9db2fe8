// Package cli implements the specwright command line.
package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/HendryAvila/specwright/internal/config"
	"github.com/HendryAvila/specwright/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Output formats accepted by --format.
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

// opener resolves the application for one command invocation.
type opener func(cfg config.Config, logger *slog.Logger) (*server.App, func(), error)

// runtime carries the global flags and how to open the application.
type runtime struct {
	configPath string
	format     string
	open       opener
}

func openApp(cfg config.Config, logger *slog.Logger) (*server.App, func(), error) {
	app, err := server.Open(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return app, func() {
		if err := app.Close(); err != nil {
			logger.Warn("closing session database", "error", err)
		}
	}, nil
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&runtime{open: openApp})
}

func newRootCmd(rt *runtime) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "specwright",
		Short: "Turn business ideas into specifications through guided conversation",
		Long: "specwright runs a guided requirements conversation, keeps every session and " +
			"specification version on disk, and serves the same engine to AI tools over MCP.",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&rt.configPath, "config", "c", rt.configPath, "Config file (default: ~/.specwright/config.toml)")
	rootCmd.PersistentFlags().StringVarP(&rt.format, "format", "f", formatText, "Output format: text, json or yaml")

	rootCmd.AddCommand(
		newServeCmd(rt),
		newSessionCmd(rt),
		newLinkCmd(rt),
		newChatCmd(rt),
		newOfflineCmd(rt),
		newSubmitCmd(rt),
		newConfigCmd(rt),
		newVersionCmd(),
	)
	return rootCmd
}

func (rt *runtime) loadConfig() (config.Config, error) {
	cfg, err := config.Load(viper.New(), rt.configPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// app loads the configuration, sets up logging and opens the application.
// The returned cleanup is always non-nil.
func (rt *runtime) app() (*server.App, func(), error) {
	cfg, err := rt.loadConfig()
	if err != nil {
		return nil, func() {}, err
	}
	logger, closeLog := config.SetupLogger(cfg.Log.File, config.ParseLogLevel(cfg.Log.Level))
	app, closeApp, err := rt.open(cfg, logger)
	if err != nil {
		_ = closeLog()
		return nil, func() {}, err
	}
	return app, func() {
		closeApp()
		_ = closeLog()
	}, nil
}
