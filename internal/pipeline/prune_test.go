package pipeline

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/HendryAvila/specwright/internal/model"
)

func history(n int) []model.Message {
	out := make([]model.Message, n)
	for i := range out {
		out[i] = model.Message{
			ID:        fmt.Sprintf("m%02d", i),
			Role:      model.RoleUser,
			Content:   fmt.Sprintf("message %d", i),
			Timestamp: frozen.Add(time.Duration(i) * time.Minute),
		}
	}
	return out
}

func TestPruneHistory_ShortHistoryUnchanged(t *testing.T) {
	h := history(5)
	got := PruneHistory(h, nil, 20, 10)
	if len(got) != 5 {
		t.Fatalf("len = %d, want 5", len(got))
	}
	got[0].Content = "mutated"
	if h[0].Content == "mutated" {
		t.Error("PruneHistory returned the input slice")
	}
}

func TestPruneHistory_KeepsRecentAndSummarizesLocks(t *testing.T) {
	h := history(25)
	locked := []model.LockedSection{
		{ID: "problem_statement-1", Name: CheckpointProblemStatement, Summary: "Old idea"},
		{ID: "problem_statement-2", Name: CheckpointProblemStatement, Summary: "Dog walking marketplace", Supersedes: "problem_statement-1"},
		{ID: "users_and_scope-1", Name: CheckpointUsersAndScope, Summary: "Users: walkers, owners."},
	}

	got := PruneHistory(h, locked, 20, 10)
	if len(got) != 11 {
		t.Fatalf("len = %d, want 11", len(got))
	}
	sum := got[0]
	if sum.Role != model.RoleSystem || sum.ID != SummaryMessageID {
		t.Errorf("first message = %+v, want synthetic system summary", sum)
	}
	if !strings.Contains(sum.Content, "Dog walking marketplace") || !strings.Contains(sum.Content, "Users: walkers, owners.") {
		t.Errorf("summary missing active checkpoints: %q", sum.Content)
	}
	if strings.Contains(sum.Content, "Old idea") {
		t.Errorf("summary includes superseded checkpoint: %q", sum.Content)
	}
	if !strings.HasPrefix(sum.Content, "15 earlier messages") {
		t.Errorf("summary = %q", sum.Content)
	}
	for i, m := range got[1:] {
		if m.ID != h[15+i].ID {
			t.Errorf("got[%d] = %s, want %s", i+1, m.ID, h[15+i].ID)
		}
	}
	if len(h) != 25 {
		t.Error("input history modified")
	}
}

func TestPruneHistory_Defaults(t *testing.T) {
	got := PruneHistory(history(DefaultHistoryWindow+1), nil, 0, 0)
	if len(got) != DefaultKeepRecent+1 {
		t.Errorf("len = %d, want %d", len(got), DefaultKeepRecent+1)
	}
}
