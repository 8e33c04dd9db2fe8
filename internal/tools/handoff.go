package tools

import (
	"context"
	"fmt"

	"github.com/HendryAvila/specwright/internal/intake"
	"github.com/HendryAvila/specwright/internal/magiclink"
	"github.com/HendryAvila/specwright/internal/model"
	"github.com/HendryAvila/specwright/internal/offline"
	"github.com/HendryAvila/specwright/internal/session"
	"github.com/mark3labs/mcp-go/mcp"
)

// MagicLinkIssueTool handles the magic_link_issue MCP tool.
type MagicLinkIssueTool struct {
	links *magiclink.Resolver
}

// NewMagicLinkIssueTool creates a MagicLinkIssueTool.
func NewMagicLinkIssueTool(links *magiclink.Resolver) *MagicLinkIssueTool {
	return &MagicLinkIssueTool{links: links}
}

// Definition returns the MCP tool definition for registration.
func (t *MagicLinkIssueTool) Definition() mcp.Tool {
	return mcp.NewTool("magic_link_issue",
		mcp.WithDescription(
			"Issue a resume token for a session. Issuing a new token invalidates the previous one.",
		),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session ID"),
		),
	)
}

// Handle processes the magic_link_issue tool call.
func (t *MagicLinkIssueTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, bad := requireString(req, "session_id")
	if bad != nil {
		return bad, nil
	}
	token, err := t.links.Generate(ctx, id)
	if err != nil {
		return toolError(err)
	}
	return mcp.NewToolResultText(fmt.Sprintf(
		"# Resume Token Issued\n\n"+
			"**Token:** `%s`\n\n"+
			"Give this token to the user. `magic_link_restore` with it brings back the session. "+
			"Any earlier token for this session no longer works.\n", token)), nil
}

// MagicLinkRestoreTool handles the magic_link_restore MCP tool.
type MagicLinkRestoreTool struct {
	links *magiclink.Resolver
}

// NewMagicLinkRestoreTool creates a MagicLinkRestoreTool.
func NewMagicLinkRestoreTool(links *magiclink.Resolver) *MagicLinkRestoreTool {
	return &MagicLinkRestoreTool{links: links}
}

// Definition returns the MCP tool definition for registration.
func (t *MagicLinkRestoreTool) Definition() mcp.Tool {
	return mcp.NewTool("magic_link_restore",
		mcp.WithDescription("Find the session a resume token belongs to."),
		mcp.WithString("token",
			mcp.Required(),
			mcp.Description("Token from magic_link_issue"),
		),
	)
}

// Handle processes the magic_link_restore tool call.
func (t *MagicLinkRestoreTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	token, bad := requireString(req, "token")
	if bad != nil {
		return bad, nil
	}
	sess, err := t.links.Restore(ctx, token)
	if err != nil {
		return toolError(err)
	}
	return mcp.NewToolResultText(fmt.Sprintf(
		"# Session Restored\n\n"+
			"**ID:** `%s`\n"+
			"**Status:** %s\n"+
			"**Messages:** %d\n"+
			"**Specification version:** %d\n\n"+
			"Continue with `intake_message`, or call `session_get` for details.\n",
		sess.ID, sess.Status, len(sess.State.ConversationHistory), sess.State.Specification.Version)), nil
}

// SubmissionCreateTool handles the submission_create MCP tool.
type SubmissionCreateTool struct {
	intake *intake.Service
}

// NewSubmissionCreateTool creates a SubmissionCreateTool.
func NewSubmissionCreateTool(svc *intake.Service) *SubmissionCreateTool {
	return &SubmissionCreateTool{intake: svc}
}

// Definition returns the MCP tool definition for registration.
func (t *SubmissionCreateTool) Definition() mcp.Tool {
	return mcp.NewTool("submission_create",
		mcp.WithDescription(
			"Hand off a finished specification. Only works once spec_status reports it ready. "+
				"Returns a reference number the user can quote.",
		),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
		mcp.WithString("name", mcp.Required(), mcp.Description("Contact name")),
		mcp.WithString("email", mcp.Required(), mcp.Description("Contact email")),
		mcp.WithString("company", mcp.Description("Company, optional")),
		mcp.WithString("phone", mcp.Description("Phone number, optional")),
	)
}

// Handle processes the submission_create tool call.
func (t *SubmissionCreateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, bad := requireString(req, "session_id")
	if bad != nil {
		return bad, nil
	}
	sub, err := t.intake.Submit(ctx, id, model.ContactInfo{
		Name:    req.GetString("name", ""),
		Email:   req.GetString("email", ""),
		Company: req.GetString("company", ""),
		Phone:   req.GetString("phone", ""),
	})
	if err != nil {
		return toolError(err)
	}
	return mcp.NewToolResultText(fmt.Sprintf(
		"# Specification Submitted\n\n"+
			"**Reference:** %s\n"+
			"**Specification version:** %d\n"+
			"**Contact:** %s <%s>\n"+
			"**Status:** %s\n",
		sub.ReferenceNumber, sub.SpecificationVersion, sub.ContactInfo.Name, sub.ContactInfo.Email, sub.Status)), nil
}

// OfflineSyncTool handles the offline_sync MCP tool.
type OfflineSyncTool struct {
	queue    *offline.Queue
	sessions *session.Store
}

// NewOfflineSyncTool creates an OfflineSyncTool.
func NewOfflineSyncTool(queue *offline.Queue, sessions *session.Store) *OfflineSyncTool {
	return &OfflineSyncTool{queue: queue, sessions: sessions}
}

// Definition returns the MCP tool definition for registration.
func (t *OfflineSyncTool) Definition() mcp.Tool {
	return mcp.NewTool("offline_sync",
		mcp.WithDescription(
			"Append messages that were kept locally while storage was unavailable to the "+
				"session's conversation, in the order they were written.",
		),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session ID"),
		),
	)
}

// Handle processes the offline_sync tool call.
func (t *OfflineSyncTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, bad := requireString(req, "session_id")
	if bad != nil {
		return bad, nil
	}
	n, err := t.queue.Sync(ctx, id, t.sessions)
	if err != nil {
		return toolError(err)
	}
	if n == 0 {
		return mcp.NewToolResultText("Nothing to sync: no messages are queued for this session.\n"), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf(
		"# Offline Messages Synced\n\n%d message(s) added to session `%s`.\n", n, id)), nil
}
