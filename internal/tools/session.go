package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/HendryAvila/specwright/internal/intake"
	"github.com/HendryAvila/specwright/internal/model"
	"github.com/HendryAvila/specwright/internal/session"
	"github.com/mark3labs/mcp-go/mcp"
)

// recentMessages is how many messages the standard detail level shows.
const recentMessages = 6

// SessionCreateTool handles the session_create MCP tool.
type SessionCreateTool struct {
	sessions *session.Store
}

// NewSessionCreateTool creates a SessionCreateTool.
func NewSessionCreateTool(sessions *session.Store) *SessionCreateTool {
	return &SessionCreateTool{sessions: sessions}
}

// Definition returns the MCP tool definition for registration.
func (t *SessionCreateTool) Definition() mcp.Tool {
	return mcp.NewTool("session_create",
		mcp.WithDescription(
			"Start a new requirements-gathering session. Returns the session ID "+
				"to pass to every other tool. The session starts empty, in the initial stage.",
		),
	)
}

// Handle processes the session_create tool call.
func (t *SessionCreateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := t.sessions.Create(ctx)
	if err != nil {
		return toolError(err)
	}

	response := fmt.Sprintf(
		"# Session Created\n\n"+
			"**ID:** `%s`\n"+
			"**Status:** %s\n"+
			"**Created:** %s\n\n"+
			"## Still to discuss\n\n%s\n"+
			"## Next Steps\n\n"+
			"1. Ask the user to describe their idea, then send it with `intake_message`\n"+
			"2. Offer a resume link with `magic_link_issue` so they can come back later\n",
		sess.ID, sess.Status, sess.CreatedAt.Format("2006-01-02 15:04"),
		bulletList(sess.State.Completeness.MissingSections, "_Nothing._"),
	)
	return mcp.NewToolResultText(response), nil
}

// SessionGetTool handles the session_get MCP tool.
type SessionGetTool struct {
	intake *intake.Service
}

// NewSessionGetTool creates a SessionGetTool.
func NewSessionGetTool(svc *intake.Service) *SessionGetTool {
	return &SessionGetTool{intake: svc}
}

// Definition returns the MCP tool definition for registration.
func (t *SessionGetTool) Definition() mcp.Tool {
	return mcp.NewTool("session_get",
		mcp.WithDescription(
			"Show a session: its stage, coverage and what is still missing. "+
				"Use detail_level to include checkpoints, the conversation and the full specification.",
		),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session ID returned by session_create or magic_link_restore"),
		),
		mcp.WithString("detail_level",
			mcp.Description("summary: status only. standard: + checkpoints and recent messages. full: + whole conversation and specification."),
			mcp.Enum(DetailLevelValues()...),
		),
	)
}

// Handle processes the session_get tool call.
func (t *SessionGetTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, bad := requireString(req, "session_id")
	if bad != nil {
		return bad, nil
	}
	level := ParseDetailLevel(req.GetString("detail_level", ""))

	st, err := t.intake.Status(ctx, id)
	if err != nil {
		return toolError(err)
	}
	sess := st.Session

	var b strings.Builder
	fmt.Fprintf(&b, "# Session `%s`\n\n", sess.ID)
	fmt.Fprintf(&b, "**Status:** %s\n", sess.Status)
	fmt.Fprintf(&b, "**Stage:** %s\n", st.Stage)
	fmt.Fprintf(&b, "**Coverage:** %d%% (%s, %s)\n", st.Assessment.Percentage, st.Assessment.Archetype, st.Assessment.Tier)
	fmt.Fprintf(&b, "**Specification version:** %d\n", sess.State.Specification.Version)
	fmt.Fprintf(&b, "**Ready for handoff:** %t\n", st.Assessment.ReadyForHandoff)
	fmt.Fprintf(&b, "**Last accessed:** %s\n\n", sess.LastAccessedAt.Format("2006-01-02 15:04"))
	b.WriteString("## Missing\n\n")
	b.WriteString(bulletList(st.Assessment.MissingSections, "_Nothing, every required topic is covered._"))

	if level == DetailSummary {
		b.WriteString(summaryFooter)
		return mcp.NewToolResultText(b.String()), nil
	}

	b.WriteString("\n## Checkpoints\n\n")
	var checkpoints []string
	for _, c := range st.Active {
		checkpoints = append(checkpoints, fmt.Sprintf("**%s** (%s): %s", c.Name, c.Stage, c.Summary))
	}
	b.WriteString(bulletList(checkpoints, "_None locked yet._"))

	history := sess.State.ConversationHistory
	if level == DetailStandard {
		shown := history
		if len(shown) > recentMessages {
			shown = shown[len(shown)-recentMessages:]
		}
		fmt.Fprintf(&b, "\n## Recent Conversation (%d of %d)\n\n", len(shown), len(history))
		writeMessages(&b, shown, 200)
	} else {
		fmt.Fprintf(&b, "\n## Conversation (%d messages)\n\n", len(history))
		writeMessages(&b, history, 0)

		doc, err := t.intake.RenderSpecification(ctx, id)
		if err != nil {
			return toolError(err)
		}
		b.WriteString("\n---\n\n")
		b.WriteString(doc)
	}

	text := b.String()
	return mcp.NewToolResultText(text + tokenFooter(text)), nil
}

// writeMessages renders messages one per line. limit > 0 truncates content.
func writeMessages(b *strings.Builder, msgs []model.Message, limit int) {
	if len(msgs) == 0 {
		b.WriteString("_No messages yet._\n")
		return
	}
	for _, m := range msgs {
		content := m.Content
		if limit > 0 {
			content = truncate(content, limit)
		}
		fmt.Fprintf(b, "- **%s** (%s): %s\n", m.Role, m.Timestamp.Format("15:04"), content)
	}
}

// SessionAbandonTool handles the session_abandon MCP tool.
type SessionAbandonTool struct {
	intake *intake.Service
}

// NewSessionAbandonTool creates a SessionAbandonTool.
func NewSessionAbandonTool(svc *intake.Service) *SessionAbandonTool {
	return &SessionAbandonTool{intake: svc}
}

// Definition returns the MCP tool definition for registration.
func (t *SessionAbandonTool) Definition() mcp.Tool {
	return mcp.NewTool("session_abandon",
		mcp.WithDescription(
			"Mark a session as abandoned. Nothing is deleted: the conversation and "+
				"specification stay readable and a magic link still restores them.",
		),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session ID to abandon"),
		),
	)
}

// Handle processes the session_abandon tool call.
func (t *SessionAbandonTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, bad := requireString(req, "session_id")
	if bad != nil {
		return bad, nil
	}
	if err := t.intake.Abandon(ctx, id); err != nil {
		return toolError(err)
	}
	return mcp.NewToolResultText(fmt.Sprintf(
		"# Session Abandoned\n\n"+
			"Session `%s` is now abandoned. Its content is preserved and can still be "+
			"read with `session_get`.\n", id)), nil
}
