package tools

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/HendryAvila/specwright/internal/intake"
	"github.com/HendryAvila/specwright/internal/offline"
	"github.com/mark3labs/mcp-go/mcp"
)

// IntakeMessageTool handles the intake_message MCP tool.
// When the session store cannot take the user's message, the message is
// parked in the offline queue instead of being lost.
type IntakeMessageTool struct {
	intake *intake.Service
	queue  *offline.Queue
	logger *slog.Logger
}

// NewIntakeMessageTool creates an IntakeMessageTool. queue may be nil.
func NewIntakeMessageTool(svc *intake.Service, queue *offline.Queue, logger *slog.Logger) *IntakeMessageTool {
	if logger == nil {
		logger = slog.Default()
	}
	return &IntakeMessageTool{intake: svc, queue: queue, logger: logger}
}

// Definition returns the MCP tool definition for registration.
func (t *IntakeMessageTool) Definition() mcp.Tool {
	return mcp.NewTool("intake_message",
		mcp.WithDescription(
			"Send the user's next message to the intake assistant. Returns the assistant's "+
				"reply plus the updated stage and coverage. Relay the reply to the user verbatim.",
		),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session ID"),
		),
		mcp.WithString("message",
			mcp.Required(),
			mcp.Description(fmt.Sprintf("The user's message, at most %d characters", intake.MaxMessageLength)),
		),
	)
}

// Handle processes the intake_message tool call.
func (t *IntakeMessageTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, bad := requireString(req, "session_id")
	if bad != nil {
		return bad, nil
	}
	message := req.GetString("message", "")

	turn, err := t.intake.HandleMessage(ctx, id, message, nil)
	if err != nil {
		if msg, unsaved := intake.UnsavedMessage(err); unsaved && t.queue != nil {
			t.queue.Park(id, msg)
			t.logger.Warn("message parked offline", "session_id", id, "message_id", msg.ID, "error", err)
			return mcp.NewToolResultText(
				"# Message Saved Offline\n\n" +
					"The session could not be saved right now, so the message was kept locally. " +
					"Run `offline_sync` once storage is back to add it to the conversation.\n"), nil
		}
		return toolError(err)
	}

	var b strings.Builder
	b.WriteString(turn.Reply)
	b.WriteString("\n\n---\n")
	if turn.Degraded {
		b.WriteString("⚠️ The assistant is unavailable. The message was saved and can be retried later.\n")
	}
	if turn.PreviousStage != turn.Stage {
		fmt.Fprintf(&b, "**Stage:** %s → %s\n", turn.PreviousStage, turn.Stage)
	} else {
		fmt.Fprintf(&b, "**Stage:** %s\n", turn.Stage)
	}
	fmt.Fprintf(&b, "**Coverage:** %d%%", turn.Assessment.Percentage)
	if turn.Extractions > 0 {
		fmt.Fprintf(&b, " (%d update(s), specification v%d)", turn.Extractions, turn.Specification.Version)
	}
	b.WriteString("\n")
	for _, c := range turn.NewCheckpoints {
		fmt.Fprintf(&b, "🔒 Checkpoint locked: **%s**\n", c.Name)
	}
	if turn.Assessment.ReadyForHandoff {
		b.WriteString("✅ Ready for handoff: collect contact details and call `submission_create`.\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}
