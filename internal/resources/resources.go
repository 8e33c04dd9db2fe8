// Package resources implements MCP resource handlers for the intake engine.
//
// Resources provide read-only data that the host can consume for context.
// They use URI-based addressing (specwright://...) following MCP conventions.
package resources

import (
	"context"
	"fmt"

	"github.com/HendryAvila/specwright/internal/apperr"
	"github.com/HendryAvila/specwright/internal/intake"
	"github.com/mark3labs/mcp-go/mcp"
)

// SpecURITemplate addresses the rendered specification of one session.
const SpecURITemplate = "specwright://session/{id}/spec"

// Handler manages intake resource endpoints.
type Handler struct {
	intake *intake.Service
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(svc *intake.Service) *Handler {
	return &Handler{intake: svc}
}

// SpecTemplate returns the MCP resource template for session specifications.
func (h *Handler) SpecTemplate() mcp.ResourceTemplate {
	return mcp.NewResourceTemplate(
		SpecURITemplate,
		"Session Specification",
		mcp.WithTemplateDescription("Current specification of a session, plain summary and formal document, as Markdown"),
		mcp.WithTemplateMIMEType("text/markdown"),
	)
}

// HandleSpec renders the specification addressed by the request URI.
func (h *Handler) HandleSpec(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	id, err := sessionIDFromURI(uri)
	if err != nil {
		return errorResource(uri, err.Error()), nil
	}

	doc, err := h.intake.RenderSpecification(ctx, id)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindUnknown {
			return nil, fmt.Errorf("rendering specification: %w", err)
		}
		return errorResource(uri, apperr.UserMessage(err)), nil
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/markdown",
			Text:     doc,
		},
	}, nil
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
