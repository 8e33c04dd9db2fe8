package pipeline

import (
	"fmt"
	"strings"

	"github.com/HendryAvila/specwright/internal/model"
)

// Default pruning window.
const (
	DefaultHistoryWindow = 20
	DefaultKeepRecent    = 10
)

// SummaryMessageID identifies the synthetic message PruneHistory inserts.
const SummaryMessageID = "context-summary"

// PruneHistory bounds the history handed to the text generator. When the
// history is longer than window, everything but the last keep messages is
// replaced by one system message listing the active checkpoints. The input
// slice is not modified.
func PruneHistory(history []model.Message, locked []model.LockedSection, window, keep int) []model.Message {
	if window <= 0 {
		window = DefaultHistoryWindow
	}
	if keep <= 0 || keep > window {
		keep = min(DefaultKeepRecent, window)
	}
	if len(history) <= window {
		return append([]model.Message(nil), history...)
	}

	cut := len(history) - keep
	summary := model.Message{
		ID:        SummaryMessageID,
		Role:      model.RoleSystem,
		Content:   summaryText(locked, cut),
		Timestamp: history[cut-1].Timestamp,
	}
	out := make([]model.Message, 0, keep+1)
	out = append(out, summary)
	return append(out, history[cut:]...)
}

func summaryText(locked []model.LockedSection, omitted int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d earlier messages were condensed.", omitted)
	active := Active(locked)
	if len(active) == 0 {
		return b.String()
	}
	b.WriteString(" Settled decisions, do not reopen unless the user asks:")
	for _, l := range active {
		fmt.Fprintf(&b, "\n- %s: %s", l.Name, l.Summary)
	}
	return b.String()
}
