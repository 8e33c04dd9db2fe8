package prompts

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

func promptText(t *testing.T, res *mcp.GetPromptResult) string {
	t.Helper()
	if len(res.Messages) != 1 {
		t.Fatalf("got %d messages, want 1", len(res.Messages))
	}
	tc, ok := res.Messages[0].Content.(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T", res.Messages[0].Content)
	}
	return tc.Text
}

func TestStartPrompt(t *testing.T) {
	tests := []struct {
		name    string
		args    map[string]string
		want    []string
		notWant string
	}{
		{"fresh", nil, []string{"session_create", "magic_link_issue", "describe my idea"}, "magic_link_restore"},
		{"with idea", map[string]string{"idea": "a cleanup planner"}, []string{"session_create", `"a cleanup planner"`}, "describe my idea"},
		{"resume", map[string]string{"token": "tok123"}, []string{"magic_link_restore", "`tok123`"}, "session_create"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := mcp.GetPromptRequest{}
			req.Params.Arguments = tt.args
			res, err := NewStartPrompt().Handle(context.Background(), req)
			if err != nil {
				t.Fatalf("Handle: %v", err)
			}
			text := promptText(t, res)
			for _, w := range tt.want {
				if !strings.Contains(text, w) {
					t.Errorf("prompt missing %q", w)
				}
			}
			if strings.Contains(text, tt.notWant) {
				t.Errorf("prompt should not mention %q", tt.notWant)
			}
		})
	}
}

func TestReviewPrompt(t *testing.T) {
	p := NewReviewPrompt()
	if def := p.Definition(); def.Name != "intake-review" || len(def.Arguments) != 1 || !def.Arguments[0].Required {
		t.Errorf("unexpected definition: %+v", def)
	}

	req := mcp.GetPromptRequest{}
	if _, err := p.Handle(context.Background(), req); err == nil {
		t.Error("expected error without session_id")
	}

	req.Params.Arguments = map[string]string{"session_id": "s1"}
	res, err := p.Handle(context.Background(), req)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	text := promptText(t, res)
	if !strings.Contains(text, "spec_status") || !strings.Contains(text, "specwright://session/s1/spec") {
		t.Errorf("unexpected prompt:\n%s", text)
	}
}
