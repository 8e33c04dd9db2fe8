package pipeline

import (
	"sync"
	"testing"
)

func TestTopicTracker_NextPrefersUnasked(t *testing.T) {
	tr := NewTopicTracker()
	missing := []string{"target_users", "key_features", "mvp_scope"}

	if got := tr.Next("s1", missing); got != "target_users" {
		t.Errorf("Next = %s, want target_users", got)
	}
	tr.Mark("s1", "target_users")
	if got := tr.Next("s1", missing); got != "key_features" {
		t.Errorf("Next = %s, want key_features", got)
	}
	// Other sessions are unaffected.
	if got := tr.Next("s2", missing); got != "target_users" {
		t.Errorf("Next(s2) = %s, want target_users", got)
	}
	if got := tr.Next("s1", nil); got != "" {
		t.Errorf("Next(nil) = %q, want empty", got)
	}
}

func TestTopicTracker_ConcurrentSessions(t *testing.T) {
	tr := NewTopicTracker()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tr.Mark("shared", "overview")
			}
		}()
	}
	wg.Wait()
	if got := tr.Count("shared", "overview"); got != 800 {
		t.Errorf("Count = %d, want 800", got)
	}
	tr.Forget("shared")
	if got := tr.Count("shared", "overview"); got != 0 {
		t.Errorf("Count after Forget = %d", got)
	}
}
