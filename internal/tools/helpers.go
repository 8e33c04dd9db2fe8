// Package tools implements the MCP tool handlers of the intake engine.
//
// Each tool receives its dependencies through its struct and exposes a
// Definition for registration and a Handle compatible with mcp-go's
// CallToolRequest signature.
//
// Design principles:
// - SRP: each file = one tool (or one closely related pair)
// - DIP: tools depend on the services they drive, never on storage
// - OCP: new tools are added without modifying existing ones
package tools

import (
	"fmt"
	"strings"

	"github.com/HendryAvila/specwright/internal/apperr"
	"github.com/mark3labs/mcp-go/mcp"
)

// Detail level constants for read-heavy tools.
const (
	DetailSummary  = "summary"
	DetailStandard = "standard"
	DetailFull     = "full"
)

// DetailLevelValues returns the enum values for MCP tool definitions.
func DetailLevelValues() []string {
	return []string{DetailSummary, DetailStandard, DetailFull}
}

// ParseDetailLevel normalizes a detail_level string, defaulting to
// "standard" for empty or unrecognized values.
func ParseDetailLevel(s string) string {
	switch s {
	case DetailSummary, DetailFull:
		return s
	default:
		return DetailStandard
	}
}

// summaryFooter is appended to summary-mode responses.
const summaryFooter = "\n---\n💡 Use detail_level: standard or full for more detail."

// toolError converts a service error into a tool result the host can show.
// Errors that are not part of the app taxonomy are returned as protocol
// errors so the server's recovery and logging see them.
func toolError(err error) (*mcp.CallToolResult, error) {
	if apperr.KindOf(err) == apperr.KindUnknown {
		return nil, err
	}
	return mcp.NewToolResultError(apperr.UserMessage(err)), nil
}

// requireString reads a required, non-blank string argument.
func requireString(req mcp.CallToolRequest, name string) (string, *mcp.CallToolResult) {
	v := strings.TrimSpace(req.GetString(name, ""))
	if v == "" {
		return "", mcp.NewToolResultError(fmt.Sprintf("'%s' is required", name))
	}
	return v, nil
}

// estimateTokens approximates the token count of text with the chars/4
// heuristic.
func estimateTokens(text string) int {
	n := len(text)
	if n == 0 {
		return 0
	}
	if n/4 == 0 {
		return 1
	}
	return n / 4
}

// tokenFooter returns a one-line footer with the estimated token count of a
// response.
func tokenFooter(text string) string {
	return fmt.Sprintf("\n📏 ~%s tokens", formatNumber(estimateTokens(text)))
}

// formatNumber formats an integer with comma separators.
func formatNumber(n int) string {
	s := fmt.Sprintf("%d", n)
	if n < 1000 {
		return s
	}
	var out []byte
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, byte(c))
	}
	return string(out)
}

// truncate shortens s to at most n runes, marking the cut.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

// bulletList renders items as Markdown bullets, or fallback when empty.
func bulletList(items []string, fallback string) string {
	if len(items) == 0 {
		return fallback + "\n"
	}
	var b strings.Builder
	for _, it := range items {
		fmt.Fprintf(&b, "- %s\n", it)
	}
	return b.String()
}
