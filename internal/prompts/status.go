package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// ReviewPrompt handles the intake-review MCP prompt.
// It instructs the AI to read and present the state of a session's
// specification.
type ReviewPrompt struct{}

// NewReviewPrompt creates a ReviewPrompt.
func NewReviewPrompt() *ReviewPrompt {
	return &ReviewPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *ReviewPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("intake-review",
		mcp.WithPromptDescription(
			"Review a session's specification: coverage, open questions, "+
				"conflicting requirements, and what to discuss next.",
		),
		mcp.WithArgument("session_id",
			mcp.ArgumentDescription("Session to review"),
			mcp.RequiredArgument(),
		),
	)
}

// Handle processes the intake-review prompt request.
func (p *ReviewPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	id := req.Params.Arguments["session_id"]
	if id == "" {
		return nil, fmt.Errorf("session_id is required")
	}

	return &mcp.GetPromptResult{
		Description: "Specification review",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"Please run `spec_status` for session `%s`, then read the resource "+
						"`specwright://session/%s/spec`.\n\n"+
						"Then:\n"+
						"1. Summarize what the specification already covers, in plain language\n"+
						"2. List the topics still missing and suggest one question for each\n"+
						"3. Point out every ambiguous or conflicting requirement and how to resolve it\n"+
						"4. Tell me whether it is ready for handoff, and if not, what blocks it",
					id, id),
				),
			},
		},
	}, nil
}
