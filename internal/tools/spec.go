package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/HendryAvila/specwright/internal/completeness"
	"github.com/HendryAvila/specwright/internal/intake"
	"github.com/HendryAvila/specwright/internal/ledger"
	"github.com/HendryAvila/specwright/internal/pipeline"
	"github.com/mark3labs/mcp-go/mcp"
)

// SpecStatusTool handles the spec_status MCP tool.
// It shows topic coverage and the findings of the validation pass.
type SpecStatusTool struct {
	intake *intake.Service
}

// NewSpecStatusTool creates a SpecStatusTool.
func NewSpecStatusTool(svc *intake.Service) *SpecStatusTool {
	return &SpecStatusTool{intake: svc}
}

// Definition returns the MCP tool definition for registration.
func (t *SpecStatusTool) Definition() mcp.Tool {
	return mcp.NewTool("spec_status",
		mcp.WithDescription(
			"Show how complete a session's specification is: per-topic coverage, "+
				"ambiguous or conflicting requirements, and whether it is ready for handoff.",
		),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session ID"),
		),
	)
}

// Handle processes the spec_status tool call.
func (t *SpecStatusTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, bad := requireString(req, "session_id")
	if bad != nil {
		return bad, nil
	}
	st, err := t.intake.Status(ctx, id)
	if err != nil {
		return toolError(err)
	}
	a := st.Assessment

	var b strings.Builder
	fmt.Fprintf(&b, "# Specification Status\n\n")
	fmt.Fprintf(&b, "**Stage:** %s\n", st.Stage)
	fmt.Fprintf(&b, "**Coverage:** %d%%\n", a.Percentage)
	fmt.Fprintf(&b, "**Project type:** %s (complexity %.1f, %s)\n", a.Archetype, a.ComplexityScore, a.Tier)
	fmt.Fprintf(&b, "**Ready for handoff:** %t\n\n", a.ReadyForHandoff)

	b.WriteString("## Topics\n\n")
	b.WriteString("| Topic | Why | Status |\n")
	b.WriteString("|-------|-----|--------|\n")
	for _, tp := range a.Topics {
		marker := "⬜"
		switch tp.Status {
		case completeness.StatusComplete:
			marker = "✅"
		case completeness.StatusInProgress:
			marker = "🔄"
		}
		fmt.Fprintf(&b, "| %s %s | %s | %s |\n", marker, tp.Name, tp.Source, tp.Status)
	}

	writeFindings(&b, "Ambiguous Requirements", st.Validation.AmbiguousRequirements)
	writeFindings(&b, "Conflicting Requirements", st.Validation.ConflictingRequirements)

	text := b.String()
	return mcp.NewToolResultText(text + tokenFooter(text)), nil
}

func writeFindings(b *strings.Builder, title string, findings []ledger.Finding) {
	if len(findings) == 0 {
		return
	}
	fmt.Fprintf(b, "\n## %s\n\n", title)
	for _, f := range findings {
		fmt.Fprintf(b, "- `%s`: %s\n", f.ID, f.Detail)
	}
}

// CheckpointRedoTool handles the checkpoint_redo MCP tool.
type CheckpointRedoTool struct {
	intake *intake.Service
}

// NewCheckpointRedoTool creates a CheckpointRedoTool.
func NewCheckpointRedoTool(svc *intake.Service) *CheckpointRedoTool {
	return &CheckpointRedoTool{intake: svc}
}

// Definition returns the MCP tool definition for registration.
func (t *CheckpointRedoTool) Definition() mcp.Tool {
	return mcp.NewTool("checkpoint_redo",
		mcp.WithDescription(
			"Re-open a locked checkpoint when the user changes their mind. A new checkpoint "+
				"summarizing the conversation as it stands now replaces the old one; the old one stays in the log.",
		),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session ID"),
		),
		mcp.WithString("checkpoint",
			mcp.Required(),
			mcp.Description("Checkpoint to redo"),
			mcp.Enum(pipeline.CheckpointNames()...),
		),
	)
}

// Handle processes the checkpoint_redo tool call.
func (t *CheckpointRedoTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, bad := requireString(req, "session_id")
	if bad != nil {
		return bad, nil
	}
	name, bad := requireString(req, "checkpoint")
	if bad != nil {
		return bad, nil
	}
	redo, err := t.intake.RedoCheckpoint(ctx, id, name)
	if err != nil {
		return toolError(err)
	}
	return mcp.NewToolResultText(fmt.Sprintf(
		"# Checkpoint Reopened\n\n"+
			"**Checkpoint:** %s\n"+
			"**Replaces:** `%s`\n"+
			"**Summary:** %s\n",
		redo.Name, redo.Supersedes, redo.Summary)), nil
}
