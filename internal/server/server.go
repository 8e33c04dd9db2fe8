// Package server wires all components and creates the MCP server instance.
//
// This is the composition root (DIP): it creates concrete implementations
// and injects them into the tools/prompts/resources that depend on them.
// No business logic lives here, only wiring.
package server

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/HendryAvila/specwright/internal/config"
	"github.com/HendryAvila/specwright/internal/generation"
	"github.com/HendryAvila/specwright/internal/intake"
	"github.com/HendryAvila/specwright/internal/magiclink"
	"github.com/HendryAvila/specwright/internal/offline"
	"github.com/HendryAvila/specwright/internal/pipeline"
	"github.com/HendryAvila/specwright/internal/prompts"
	"github.com/HendryAvila/specwright/internal/records"
	"github.com/HendryAvila/specwright/internal/resources"
	"github.com/HendryAvila/specwright/internal/session"
	"github.com/HendryAvila/specwright/internal/tools"
	"github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via ldflags.
var Version = "dev"

// App holds the resolved dependencies shared by the MCP server and the CLI.
type App struct {
	Config   config.Config
	Logger   *slog.Logger
	Records  records.Store
	Sessions *session.Store
	Intake   *intake.Service
	Links    *magiclink.Resolver
	Offline  *offline.Queue
}

// Open resolves every dependency from cfg. The caller must Close the
// returned App.
func Open(cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dbPath := cfg.DBPath()
	rs, err := records.NewSQLite(records.Config{
		DataDir:  filepath.Dir(dbPath),
		FileName: filepath.Base(dbPath),
	})
	if err != nil {
		return nil, fmt.Errorf("opening session database: %w", err)
	}

	app, err := Wire(cfg, logger, rs)
	if err != nil {
		_ = rs.Close()
		return nil, err
	}
	return app, nil
}

// Wire builds an App on top of an already opened record store.
func Wire(cfg config.Config, logger *slog.Logger, rs records.Store) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	gen, err := newGenerationClient(cfg, logger)
	if err != nil {
		return nil, err
	}

	sessions := session.New(rs, session.WithLogger(logger))

	rules := pipeline.DefaultRules()
	if cfg.Conversation.MinMessages > 0 {
		rules.MinMessages = cfg.Conversation.MinMessages
	}
	opts := []intake.Option{
		intake.WithRules(rules),
		intake.WithMaxTokens(cfg.Generation.MaxTokens),
		intake.WithLogger(logger),
	}
	if cfg.Conversation.HistoryWindow > 0 {
		opts = append(opts, intake.WithHistoryWindow(cfg.Conversation.HistoryWindow, cfg.Conversation.KeepRecent))
	}
	svc, err := intake.New(sessions, gen, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating intake service: %w", err)
	}

	return &App{
		Config:   cfg,
		Logger:   logger,
		Records:  rs,
		Sessions: sessions,
		Intake:   svc,
		Links:    magiclink.New(sessions),
		Offline:  offline.NewQueue(offline.NewFileStorage(cfg.OfflineDir()), logger),
	}, nil
}

// Close releases the session database.
func (a *App) Close() error {
	return a.Records.Close()
}

// newGenerationClient builds the primary provider, an optional fallback and
// the shared rate limiter. A fallback that cannot be configured is skipped
// with a warning; the primary is required.
func newGenerationClient(cfg config.Config, logger *slog.Logger) (*generation.Client, error) {
	primary, err := generation.NewProvider(providerConfig(cfg.Generation.Primary))
	if err != nil {
		return nil, fmt.Errorf("configuring primary provider: %w", err)
	}

	opts := []generation.ClientOption{
		generation.WithTimeout(cfg.Timeout()),
		generation.WithRateLimiter(generation.NewRateLimiter(cfg.Window(), cfg.RateLimit.Global, cfg.RateLimit.PerSession)),
		generation.WithLogger(logger),
	}
	if fb := cfg.Generation.Fallback; fb.Provider != "" {
		fallback, err := generation.NewProvider(providerConfig(fb))
		if err != nil {
			logger.Warn("fallback provider disabled", "provider", fb.Provider, "error", err)
		} else {
			opts = append(opts, generation.WithFallback(fallback))
		}
	}
	return generation.NewClient(primary, opts...), nil
}

func providerConfig(p config.ProviderConfig) generation.ProviderConfig {
	return generation.ProviderConfig{
		Kind:    p.Provider,
		Model:   p.Model,
		APIKey:  p.APIKey,
		BaseURL: p.BaseURL,
	}
}

// New creates and configures the MCP server with all tools, prompts,
// and resources registered. This is the single place where all
// dependencies are resolved.
//
// The returned cleanup function closes the session database and must be
// called on shutdown (typically via defer). It is always non-nil.
func New(cfg config.Config, logger *slog.Logger) (*server.MCPServer, func(), error) {
	app, err := Open(cfg, logger)
	if err != nil {
		return nil, noop, err
	}
	cleanup := func() {
		if err := app.Close(); err != nil {
			app.Logger.Warn("closing session database", "error", err)
		}
	}
	return NewMCPServer(app), cleanup, nil
}

// NewMCPServer registers every tool, prompt and resource against app.
func NewMCPServer(app *App) *server.MCPServer {
	s := server.NewMCPServer(
		"specwright",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	// --- Session lifecycle ---

	createTool := tools.NewSessionCreateTool(app.Sessions)
	s.AddTool(createTool.Definition(), createTool.Handle)

	getTool := tools.NewSessionGetTool(app.Intake)
	s.AddTool(getTool.Definition(), getTool.Handle)

	abandonTool := tools.NewSessionAbandonTool(app.Intake)
	s.AddTool(abandonTool.Definition(), abandonTool.Handle)

	// --- Conversation ---

	messageTool := tools.NewIntakeMessageTool(app.Intake, app.Offline, app.Logger)
	s.AddTool(messageTool.Definition(), messageTool.Handle)

	statusTool := tools.NewSpecStatusTool(app.Intake)
	s.AddTool(statusTool.Definition(), statusTool.Handle)

	redoTool := tools.NewCheckpointRedoTool(app.Intake)
	s.AddTool(redoTool.Definition(), redoTool.Handle)

	syncTool := tools.NewOfflineSyncTool(app.Offline, app.Sessions)
	s.AddTool(syncTool.Definition(), syncTool.Handle)

	// --- Resume and handoff ---

	issueTool := tools.NewMagicLinkIssueTool(app.Links)
	s.AddTool(issueTool.Definition(), issueTool.Handle)

	restoreTool := tools.NewMagicLinkRestoreTool(app.Links)
	s.AddTool(restoreTool.Definition(), restoreTool.Handle)

	submitTool := tools.NewSubmissionCreateTool(app.Intake)
	s.AddTool(submitTool.Definition(), submitTool.Handle)

	// --- Register prompts ---

	startPrompt := prompts.NewStartPrompt()
	s.AddPrompt(startPrompt.Definition(), startPrompt.Handle)

	reviewPrompt := prompts.NewReviewPrompt()
	s.AddPrompt(reviewPrompt.Definition(), reviewPrompt.Handle)

	// --- Register resources ---

	resourceHandler := resources.NewHandler(app.Intake)
	s.AddResourceTemplate(resourceHandler.SpecTemplate(), resourceHandler.HandleSpec)

	return s
}

// noop is the cleanup returned when nothing was opened.
func noop() {}

func serverInstructions() string {
	return `You have access to Specwright, a guided requirements-intake MCP server.

## WHEN TO ACTIVATE Specwright

Suggest Specwright when the user:
- Describes a business idea or product they want built
- Wants a specification, requirements document or scope for a project
- Says things like "I have an idea for an app...", "we need a system that..."

## HOW A SESSION WORKS

1. session_create opens a session. Offer magic_link_issue right away so the
   user can resume later; magic_link_restore brings a session back.
2. Pass every user answer to intake_message and show the reply verbatim.
   The reply already asks the next question; do not add your own.
3. The conversation moves through stages: initial, discovery, refinement,
   validation, completion. Entering a stage locks a checkpoint. If the user
   changes their mind about a settled point, use checkpoint_redo.
4. spec_status shows coverage, missing topics and conflicting requirements.
   The resource specwright://session/{id}/spec holds the full document.
5. When the specification is ready for handoff, collect name and email and
   call submission_create. Quote the reference number back to the user.

## FAILURES

- If the assistant is unavailable, intake_message still saves the message;
  tell the user to try again later.
- If storage is down, messages are kept offline. Call offline_sync later.
- Abandoned sessions stay readable but accept no new messages.
`
}
