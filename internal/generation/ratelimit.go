package generation

import (
	"sync"
	"time"
)

// RateLimiter bounds generation calls inside a sliding time window, both
// across all sessions and per session. It is the only state shared between
// sessions, so one instance is built at startup and handed to the Client.
type RateLimiter struct {
	mu         sync.Mutex
	window     time.Duration
	global     int
	perSession int
	now        func() time.Time

	all      []time.Time
	sessions map[string][]time.Time
}

// NewRateLimiter allows at most global calls overall and perSession calls
// per session within any window. A limit of zero disables that check.
func NewRateLimiter(window time.Duration, global, perSession int) *RateLimiter {
	return NewRateLimiterWithClock(window, global, perSession, time.Now)
}

// NewRateLimiterWithClock is NewRateLimiter with an injected clock.
func NewRateLimiterWithClock(window time.Duration, global, perSession int, now func() time.Time) *RateLimiter {
	return &RateLimiter{
		window:     window,
		global:     global,
		perSession: perSession,
		now:        now,
		sessions:   make(map[string][]time.Time),
	}
}

// Allow records a call for sessionID if both limits permit it. Otherwise it
// returns false and how long until the oldest blocking call leaves the
// window.
func (r *RateLimiter) Allow(sessionID string) (bool, time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	cutoff := now.Add(-r.window)
	r.all = trim(r.all, cutoff)
	calls := trim(r.sessions[sessionID], cutoff)
	if len(calls) == 0 {
		delete(r.sessions, sessionID)
	} else {
		r.sessions[sessionID] = calls
	}

	var wait time.Duration
	if r.global > 0 && len(r.all) >= r.global {
		wait = r.all[len(r.all)-r.global].Add(r.window).Sub(now)
	}
	if r.perSession > 0 && len(calls) >= r.perSession {
		if w := calls[len(calls)-r.perSession].Add(r.window).Sub(now); w > wait {
			wait = w
		}
	}
	if wait > 0 {
		return false, wait
	}

	r.all = append(r.all, now)
	r.sessions[sessionID] = append(calls, now)
	return true, 0
}

// Forget drops the per-session history of sessionID.
func (r *RateLimiter) Forget(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
}

// trim drops timestamps at or before cutoff. Timestamps are in call order.
func trim(ts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}
	return ts[i:]
}
