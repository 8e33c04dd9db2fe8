package pipeline

import "sync"

// TopicTracker remembers which topics the assistant has already asked about
// in each session, so the next question can go to something new. One
// tracker is shared by every session; state is partitioned by session id.
type TopicTracker struct {
	mu    sync.Mutex
	asked map[string]map[string]int
}

// NewTopicTracker returns an empty tracker.
func NewTopicTracker() *TopicTracker {
	return &TopicTracker{asked: make(map[string]map[string]int)}
}

// Mark records that topic was asked in session.
func (t *TopicTracker) Mark(session, topic string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	m, ok := t.asked[session]
	if !ok {
		m = make(map[string]int)
		t.asked[session] = m
	}
	m[topic]++
}

// Count returns how many times topic was asked in session.
func (t *TopicTracker) Count(session, topic string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.asked[session][topic]
}

// Next picks the first missing topic asked the fewest times. Ties keep the
// order of missing. Returns "" when nothing is missing.
func (t *TopicTracker) Next(session string, missing []string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	best, bestCount := "", -1
	for _, topic := range missing {
		c := t.asked[session][topic]
		if bestCount < 0 || c < bestCount {
			best, bestCount = topic, c
		}
	}
	return best
}

// Forget drops everything recorded for session.
func (t *TopicTracker) Forget(session string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.asked, session)
}
