package server

import (
	"strings"
	"testing"

	"github.com/HendryAvila/specwright/internal/config"
	"github.com/HendryAvila/specwright/internal/records"
)

func testApp(t *testing.T, cfg config.Config) *App {
	t.Helper()
	rs := records.NewMemory()
	app, err := Wire(cfg, nil, rs)
	if err != nil {
		t.Fatalf("Wire: %v", err)
	}
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func TestNewMCPServer_RegistersTools(t *testing.T) {
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	s := NewMCPServer(testApp(t, cfg))

	want := []string{
		"session_create", "session_get", "session_abandon",
		"intake_message", "spec_status", "checkpoint_redo",
		"magic_link_issue", "magic_link_restore",
		"submission_create", "offline_sync",
	}
	registered := s.ListTools()
	if len(registered) != len(want) {
		t.Errorf("registered %d tools, want %d", len(registered), len(want))
	}
	for _, name := range want {
		if s.GetTool(name) == nil {
			t.Errorf("tool %q not registered", name)
		}
	}
}

func TestWire_RequiresUsablePrimaryProvider(t *testing.T) {
	cfg := config.Default()
	cfg.Generation.Primary = config.ProviderConfig{Provider: "openai", Model: "gpt-4o-mini"}

	_, err := Wire(cfg, nil, records.NewMemory())
	if err == nil || !strings.Contains(err.Error(), "primary provider") {
		t.Fatalf("expected primary provider error, got %v", err)
	}
}

func TestWire_SkipsBrokenFallback(t *testing.T) {
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.Generation.Fallback = config.ProviderConfig{Provider: "carrier-pigeon"}

	app := testApp(t, cfg)
	if app.Intake == nil || app.Links == nil || app.Offline == nil {
		t.Fatal("app should be fully wired without a fallback")
	}
}

func TestOpen_CreatesDatabase(t *testing.T) {
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.DBFile = "nested/specwright.db"

	app, err := Open(cfg, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := app.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestServerInstructions_NameEveryTool(t *testing.T) {
	text := serverInstructions()
	for _, name := range []string{"session_create", "intake_message", "checkpoint_redo", "submission_create", "offline_sync"} {
		if !strings.Contains(text, name) {
			t.Errorf("instructions do not mention %s", name)
		}
	}
}
