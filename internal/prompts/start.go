// Package prompts implements MCP prompt handlers for the intake engine.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI to execute a specific sequence. Unlike tools (which
// the AI calls), prompts are initiated by the user.
package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// StartPrompt handles the intake-start MCP prompt.
// It guides the AI to open a session, or resume one from a token, and run
// the intake conversation.
type StartPrompt struct{}

// NewStartPrompt creates a StartPrompt.
func NewStartPrompt() *StartPrompt {
	return &StartPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *StartPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("intake-start",
		mcp.WithPromptDescription(
			"Turn a business idea into a specification through a guided conversation. "+
				"Starts a new session, or resumes one when a token is given.",
		),
		mcp.WithArgument("idea",
			mcp.ArgumentDescription("A first description of what you want to build"),
		),
		mcp.WithArgument("token",
			mcp.ArgumentDescription("Resume token from an earlier session"),
		),
	)
}

// Handle processes the intake-start prompt request.
func (p *StartPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	var idea, token string
	if args := req.Params.Arguments; args != nil {
		idea = args["idea"]
		token = args["token"]
	}

	opening := "1. Call `session_create` and keep the returned session ID\n" +
		"2. Call `magic_link_issue` and give me the token so I can come back later\n"
	if token != "" {
		opening = fmt.Sprintf("1. Call `magic_link_restore` with token `%s` and keep the session ID it returns\n"+
			"2. Call `session_get` with detail_level `standard` and recap where we left off\n", token)
	}

	first := "3. Ask me to describe my idea in my own words\n"
	if idea != "" {
		first = fmt.Sprintf("3. Send this as my first message with `intake_message`: %q\n", idea)
	}

	return &mcp.GetPromptResult{
		Description: "Guided requirements intake",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(
					"I want to turn my idea into a clear specification.\n\n" +
						"Please:\n" +
						opening +
						first +
						"4. From then on, pass every answer I give to `intake_message` and show me the reply as-is\n" +
						"5. When a checkpoint is locked, tell me what was settled; if I change my mind use `checkpoint_redo`\n" +
						"6. When the reply says the specification is ready, ask for my name and email and call `submission_create`\n\n" +
						"Keep the conversation in plain language. I am not a developer.",
				),
			},
		},
	}, nil
}
