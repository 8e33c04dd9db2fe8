// Package offline buffers user messages typed while the server cannot be
// reached and replays them, in order, once it can.
//
// The queue never fails its caller: a broken disk or a corrupt queue file
// is logged and the operation becomes a no-op, because losing a buffered
// message is better than refusing to accept the next one.
package offline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/HendryAvila/specwright/internal/model"
)

// Sink receives synced messages. session.Store satisfies it.
type Sink interface {
	AppendMessages(ctx context.Context, sessionID string, msgs []model.Message) error
}

// Queue is the per-session offline buffer.
type Queue struct {
	storage Storage
	logger  *slog.Logger
	mu      sync.Mutex
}

// NewQueue creates a Queue over storage. A nil logger means slog.Default().
func NewQueue(storage Storage, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{storage: storage, logger: logger}
}

// Enqueue appends a new user message to the queue of sessionID and returns
// it.
func (q *Queue) Enqueue(sessionID, content string) model.Message {
	return q.Park(sessionID, model.NewMessage(model.RoleUser, content, timeNow()))
}

// Park appends msg to the queue of sessionID, keeping its ID so that a sync
// skips it if the session already holds it. Parking a message twice keeps
// one copy.
func (q *Queue) Park(sessionID string, msg model.Message) model.Message {
	if msg.ID == "" {
		msg.ID = model.NewID()
	}
	meta := make(map[string]string, len(msg.Metadata)+1)
	for k, v := range msg.Metadata {
		meta[k] = v
	}
	meta["source"] = "offline"
	msg.Metadata = meta

	q.mu.Lock()
	defer q.mu.Unlock()
	msgs, err := q.storage.Load(sessionID)
	if err != nil {
		// Keep the unreadable queue for inspection rather than overwrite it.
		if serr := q.storage.SetAside(sessionID); serr != nil {
			q.logger.Error("offline enqueue dropped", "session_id", sessionID, "error", err, "set_aside_error", serr)
			return msg
		}
		q.logger.Warn("offline queue unreadable, set aside", "session_id", sessionID, "error", err)
		msgs = nil
	}
	for _, m := range msgs {
		if m.ID == msg.ID {
			return msg
		}
	}
	if err := q.storage.Save(sessionID, append(msgs, msg)); err != nil {
		q.logger.Error("offline enqueue dropped", "session_id", sessionID, "error", err)
	}
	return msg
}

// Messages returns the buffered messages of sessionID in the order they
// were enqueued.
func (q *Queue) Messages(sessionID string) []model.Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	msgs, err := q.storage.Load(sessionID)
	if err != nil {
		q.logger.Warn("offline queue unreadable", "session_id", sessionID, "error", err)
		return []model.Message{}
	}
	if msgs == nil {
		msgs = []model.Message{}
	}
	return msgs
}

// Clear drops the queue of sessionID.
func (q *Queue) Clear(sessionID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.storage.Remove(sessionID); err != nil {
		q.logger.Error("offline clear failed", "session_id", sessionID, "error", err)
	}
}

// dropSynced removes synced from the queue, keeping anything enqueued
// while the sync was in flight.
func (q *Queue) dropSynced(sessionID string, synced []model.Message) {
	done := make(map[string]bool, len(synced))
	for _, m := range synced {
		done[m.ID] = true
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	current, err := q.storage.Load(sessionID)
	if err != nil {
		q.logger.Warn("offline queue unreadable after sync", "session_id", sessionID, "error", err)
		return
	}
	var rest []model.Message
	for _, m := range current {
		if !done[m.ID] {
			rest = append(rest, m)
		}
	}
	if len(rest) == 0 {
		err = q.storage.Remove(sessionID)
	} else {
		err = q.storage.Save(sessionID, rest)
	}
	if err != nil {
		q.logger.Error("offline clear failed", "session_id", sessionID, "error", err)
	}
}

// Sync appends the buffered messages of sessionID to sink and clears the
// queue once the append succeeds. On failure the queue is kept so a later
// Sync can retry; the sink skips messages it already holds. Sync returns the
// number of messages handed over.
func (q *Queue) Sync(ctx context.Context, sessionID string, sink Sink) (int, error) {
	msgs := q.Messages(sessionID)
	if len(msgs) == 0 {
		return 0, nil
	}
	if err := sink.AppendMessages(ctx, sessionID, msgs); err != nil {
		return 0, fmt.Errorf("syncing %d offline messages: %w", len(msgs), err)
	}
	q.dropSynced(sessionID, msgs)
	q.logger.Info("offline messages synced", "session_id", sessionID, "count", len(msgs))
	return len(msgs), nil
}
