// Package magiclink issues and redeems the bearer tokens that let a user
// resume a session from another device.
package magiclink

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/HendryAvila/specwright/internal/apperr"
	"github.com/HendryAvila/specwright/internal/model"
)

// TokenBytes is the amount of randomness in a token (128 bits).
const TokenBytes = 16

// Sessions is the part of the session store the resolver needs.
type Sessions interface {
	SetMagicLinkToken(ctx context.Context, id, token string) error
	ResolveMagicLinkToken(ctx context.Context, token string) (*model.Session, error)
}

// Resolver generates and restores magic links.
type Resolver struct {
	sessions Sessions
	random   func([]byte) (int, error)
}

// New creates a Resolver backed by sessions.
func New(sessions Sessions) *Resolver {
	return &Resolver{sessions: sessions, random: rand.Read}
}

// Generate issues a fresh token for sessionID. Any token issued before
// stops resolving.
func (r *Resolver) Generate(ctx context.Context, sessionID string) (string, error) {
	if sessionID == "" {
		return "", apperr.Validation("magiclink.generate", apperr.FieldError{Field: "session_id", Message: "is required"})
	}
	buf := make([]byte, TokenBytes)
	if _, err := r.random(buf); err != nil {
		return "", fmt.Errorf("generating magic link token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(buf)
	if err := r.sessions.SetMagicLinkToken(ctx, sessionID, token); err != nil {
		return "", err
	}
	return token, nil
}

// Restore returns the session a token belongs to. Abandoned sessions are
// restored like any other; the caller decides what to do with them.
func (r *Resolver) Restore(ctx context.Context, token string) (*model.Session, error) {
	return r.sessions.ResolveMagicLinkToken(ctx, token)
}
