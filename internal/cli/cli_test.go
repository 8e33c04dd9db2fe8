package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/HendryAvila/specwright/internal/config"
	"github.com/HendryAvila/specwright/internal/generation"
	"github.com/HendryAvila/specwright/internal/intake"
	"github.com/HendryAvila/specwright/internal/magiclink"
	"github.com/HendryAvila/specwright/internal/offline"
	"github.com/HendryAvila/specwright/internal/records"
	"github.com/HendryAvila/specwright/internal/server"
	"github.com/HendryAvila/specwright/internal/session"
)

const readyReply = "Great, I have what I need for a first draft.\n\n```json\n[" +
	`{"topic": "overview", "data": {"text": "Something to help volunteers coordinate neighborhood cleanups"}, "confidence": 0.9},` +
	`{"topic": "target_users", "data": {"users": ["volunteer"]}, "confidence": 0.9},` +
	`{"topic": "key_features", "data": {"features": ["sign up for an event", "invite neighbors", "log collected bags"]}, "confidence": 0.9},` +
	`{"topic": "user_flows", "data": {"flows": ["join a cleanup"]}, "confidence": 0.9},` +
	`{"topic": "mvp_scope", "data": {"in": ["sign up"], "out": ["donations"]}, "confidence": 0.9},` +
	`{"topic": "data_entities", "data": {"entities": ["volunteer", "cleanup event"]}, "confidence": 0.9},` +
	`{"topic": "integrations", "data": {"name": "none"}, "confidence": 0.9}` +
	"]\n```"

// fixedGen streams its reply in small pieces, so fences arrive split.
type fixedGen struct{ text string }

func (g fixedGen) Generate(_ context.Context, _ string, _ generation.Request, stream generation.Stream) generation.Reply {
	if stream != nil {
		for rest := g.text; rest != ""; {
			n := min(5, len(rest))
			stream.Write(rest[:n])
			rest = rest[n:]
		}
	}
	return generation.Reply{Text: g.text, Provider: "fake"}
}

// newTestRuntime wires the commands to one in-memory app shared by every
// invocation.
func newTestRuntime(t *testing.T, reply string) (*runtime, *server.App) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	rs := records.NewMemory()
	t.Cleanup(func() { _ = rs.Close() })

	sessions := session.New(rs)
	svc, err := intake.New(sessions, fixedGen{text: reply})
	require.NoError(t, err)

	app := &server.App{
		Config:   config.Default(),
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Records:  rs,
		Sessions: sessions,
		Intake:   svc,
		Links:    magiclink.New(sessions),
		Offline:  offline.NewQueue(offline.NewMemoryStorage(), nil),
	}
	rt := &runtime{
		configPath: filepath.Join(t.TempDir(), "config.toml"),
		open: func(config.Config, *slog.Logger) (*server.App, func(), error) {
			return app, func() {}, nil
		},
	}
	return rt, app
}

func run(t *testing.T, rt *runtime, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(rt)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func createSession(t *testing.T, rt *runtime) string {
	t.Helper()
	out, err := run(t, rt, "", "session", "create", "--format", "json")
	require.NoError(t, err)
	var sess struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &sess))
	require.NotEmpty(t, sess.ID)
	return sess.ID
}

func TestSessionCreateAndShow(t *testing.T) {
	rt, _ := newTestRuntime(t, "Tell me more.")

	out, err := run(t, rt, "", "session", "create")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Created session "))

	id := createSession(t, rt)
	out, err = run(t, rt, "", "session", "show", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Session:   "+id+" (active)")
	assert.Contains(t, out, "Missing:   ")
}

func TestSessionShow_Unknown(t *testing.T) {
	rt, _ := newTestRuntime(t, "Tell me more.")
	_, err := run(t, rt, "", "session", "show", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "couldn't find that session")
}

func TestChat_ConversationReachesHandoff(t *testing.T) {
	rt, _ := newTestRuntime(t, readyReply)
	id := createSession(t, rt)

	out, err := run(t, rt, "Volunteers sign up for cleanups and log bags.\n\n/status\n/quit\n", "chat", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Great, I have what I need for a first draft.")
	assert.NotContains(t, out, "```json")
	assert.Contains(t, out, "[checkpoint locked: requirements]")
	assert.Contains(t, out, "Ready:     true")

	out, err = run(t, rt, "", "submit", id, "--name", "Ana", "--email", "ana@example.com")
	require.NoError(t, err)
	assert.Regexp(t, `Submitted specification v7, reference SPEC-\d{8}-[0-9A-Z]{8}`, out)
}

func TestChat_StartsSessionWithoutID(t *testing.T) {
	rt, _ := newTestRuntime(t, "Tell me more.")
	out, err := run(t, rt, "/quit\n", "chat")
	require.NoError(t, err)
	assert.Contains(t, out, "Started session ")
}

func TestSubmit_NotReady(t *testing.T) {
	rt, _ := newTestRuntime(t, "Tell me more.")
	id := createSession(t, rt)
	_, err := run(t, rt, "", "submit", id, "--name", "Ana", "--email", "ana@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Please fix the following")
}

func TestSessionExport(t *testing.T) {
	rt, _ := newTestRuntime(t, readyReply)
	id := createSession(t, rt)
	_, err := run(t, rt, "Volunteers sign up for cleanups.\n/quit\n", "chat", id)
	require.NoError(t, err)

	out, err := run(t, rt, "", "session", "export", id)
	require.NoError(t, err)
	var doc sessionExport
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	require.NotNil(t, doc.Session)
	assert.Equal(t, id, doc.Session.ID)
	require.NotEmpty(t, doc.Versions)
	assert.Equal(t, 7, doc.Versions[len(doc.Versions)-1].Version)

	path := filepath.Join(t.TempDir(), "session.json")
	_, err = run(t, rt, "", "session", "export", id, "--format", "json", "-o", path)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var fromJSON sessionExport
	require.NoError(t, json.Unmarshal(data, &fromJSON))
	assert.Equal(t, id, fromJSON.Session.ID)
}

func TestSessionAbandon(t *testing.T) {
	rt, _ := newTestRuntime(t, "Tell me more.")
	id := createSession(t, rt)

	out, err := run(t, rt, "", "session", "abandon", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Abandoned session "+id)

	out, err = run(t, rt, "", "session", "show", id)
	require.NoError(t, err)
	assert.Contains(t, out, "(abandoned)")
}

func TestLinkIssueAndRestore(t *testing.T) {
	rt, _ := newTestRuntime(t, "Tell me more.")
	id := createSession(t, rt)

	out, err := run(t, rt, "", "link", "issue", id)
	require.NoError(t, err)
	token := strings.TrimSpace(out)
	require.Len(t, token, 22)

	out, err = run(t, rt, "", "link", "restore", token)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, id+" (active"))

	_, err = run(t, rt, "", "link", "restore", "stale-token")
	require.Error(t, err)
}

func TestOfflineQueueAndSync(t *testing.T) {
	rt, app := newTestRuntime(t, "Tell me more.")
	id := createSession(t, rt)

	out, err := run(t, rt, "", "offline", "queue", id)
	require.NoError(t, err)
	assert.Contains(t, out, "No queued messages.")

	app.Offline.Enqueue(id, "We also need reminders")
	out, err = run(t, rt, "", "offline", "queue", id)
	require.NoError(t, err)
	assert.Contains(t, out, "We also need reminders")

	out, err = run(t, rt, "", "offline", "sync", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Synced 1 message(s)")
	assert.Empty(t, app.Offline.Messages(id))
}

func TestConfigInitAndShow(t *testing.T) {
	rt, _ := newTestRuntime(t, "Tell me more.")

	out, err := run(t, rt, "", "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+rt.configPath)
	assert.FileExists(t, rt.configPath)

	_, err = run(t, rt, "", "config", "init")
	require.Error(t, err)
	_, err = run(t, rt, "", "config", "init", "--force")
	require.NoError(t, err)

	out, err = run(t, rt, "", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "provider = 'ollama'")
}

func TestConfigFlagDefaultsToRuntimePath(t *testing.T) {
	rt, _ := newTestRuntime(t, "Tell me more.")
	want := rt.configPath

	_, err := run(t, rt, "", "version")
	require.NoError(t, err)
	assert.Equal(t, want, rt.configPath)

	other := filepath.Join(t.TempDir(), "other.toml")
	_, err = run(t, rt, "", "config", "init", "--config", other)
	require.NoError(t, err)
	assert.FileExists(t, other)
	assert.NoFileExists(t, want)
}

func TestReplyStream_HidesSplitExtractionFence(t *testing.T) {
	var out bytes.Buffer
	s := &replyStream{out: &out}
	for _, chunk := range []string{"Sounds good.\n\n``", "`js", "on\n[{\"topic\":", " \"overview\"}]\n`", "``\nWhat else?"} {
		s.Write(chunk)
	}
	s.Flush()
	assert.Equal(t, "Sounds good.\n\n\nWhat else?", out.String())
	assert.True(t, s.wrote)
}

func TestReplyStream_ResetAnnouncesRetry(t *testing.T) {
	var out bytes.Buffer
	s := &replyStream{out: &out}
	s.Write("Half an ans")
	s.Reset()
	s.Write("Whole answer.")
	s.Flush()
	assert.Equal(t, "Half an ans\n[connection lost, retrying]\nWhole answer.", out.String())

	out.Reset()
	quiet := &replyStream{out: &out}
	quiet.Reset()
	assert.Empty(t, out.String())
}

func TestVersionAndFormat(t *testing.T) {
	rt, _ := newTestRuntime(t, "Tell me more.")

	out, err := run(t, rt, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "specwright v"+server.Version+"\n", out)

	_, err = run(t, rt, "", "session", "create", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}
