package session

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/HendryAvila/specwright/internal/apperr"
	"github.com/HendryAvila/specwright/internal/model"
	"github.com/HendryAvila/specwright/internal/records"
)

type linkTarget struct {
	SessionID string `json:"session_id"`
}

// SetMagicLinkToken makes token the only valid magic link of session id.
// The token index entry is insert-only, so a token can never be pointed at a
// second session.
func (s *Store) SetMagicLinkToken(ctx context.Context, id, token string) error {
	m, err := s.readMeta(ctx, id)
	if err != nil {
		if errors.Is(err, records.ErrNotFound) {
			return apperr.NotFound("session.link", "session %q not found", id)
		}
		return apperr.Persistence("session.link", err)
	}
	if err := s.putJSON(ctx, linkKey(token), linkTargetSK, kindLink, linkTarget{SessionID: id}, true); err != nil {
		return apperr.Persistence("session.link", err)
	}
	m.MagicLinkToken = token
	if err := s.putJSON(ctx, sessionKey(id), metaSK, kindSession, m, false); err != nil {
		return apperr.Persistence("session.link", err)
	}
	return nil
}

// ResolveMagicLinkToken returns the session a token belongs to. Tokens that
// were never issued, or were replaced by a newer one, are NotFound.
func (s *Store) ResolveMagicLinkToken(ctx context.Context, token string) (*model.Session, error) {
	if token == "" {
		return nil, apperr.NotFound("session.resolve_link", "magic link not found")
	}
	rec, err := s.records.Get(ctx, linkKey(token), linkTargetSK)
	if err != nil {
		if errors.Is(err, records.ErrNotFound) {
			return nil, apperr.NotFound("session.resolve_link", "magic link not found")
		}
		return nil, apperr.Persistence("session.resolve_link", err)
	}
	var target linkTarget
	if err := json.Unmarshal(rec.Body, &target); err != nil {
		return nil, apperr.Persistence("session.resolve_link", err)
	}

	sess, err := s.Get(ctx, target.SessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil || sess.MagicLinkToken != token {
		return nil, apperr.NotFound("session.resolve_link", "magic link not found")
	}
	return sess, nil
}
