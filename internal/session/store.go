// Package session is the single source of truth for session existence and
// full-state reconstruction.
//
// It maps sessions onto the durable record store as one partition per
// session holding metadata, an append-only message log, integer-keyed
// specification versions, an append-only checkpoint log and an append-only
// error log. Secondary partitions index magic-link tokens and submission
// reference numbers.
//
// Writes are idempotent so a retried save never duplicates a message or
// skips a version. Specification versions are insert-only: a second writer
// racing for the same version loses with apperr.ErrVersionConflict.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/HendryAvila/specwright/internal/apperr"
	"github.com/HendryAvila/specwright/internal/completeness"
	"github.com/HendryAvila/specwright/internal/model"
	"github.com/HendryAvila/specwright/internal/records"
)

// meta is the body of a session's META record.
type meta struct {
	ID             string              `json:"id"`
	CreatedAt      time.Time           `json:"created_at"`
	LastAccessedAt time.Time           `json:"last_accessed_at"`
	Status         model.SessionStatus `json:"status"`
	MagicLinkToken string              `json:"magic_link_token,omitempty"`
}

// Store orchestrates sessions on top of a records.Store.
type Store struct {
	records records.Store
	tracker *completeness.Tracker
	logger  *slog.Logger
	now     func() time.Time
	newID   func() string
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for best-effort failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator replaces the session id generator.
func WithIDGenerator(f func() string) Option {
	return func(s *Store) { s.newID = f }
}

// New creates a Store over rs.
func New(rs records.Store, opts ...Option) *Store {
	s := &Store{
		records: rs,
		logger:  slog.Default(),
		now:     time.Now,
		newID:   func() string { return uuid.New().String() },
	}
	for _, o := range opts {
		o(s)
	}
	s.tracker = completeness.NewTrackerWithClock(s.now)
	return s
}

// ─── Lifecycle ───────────────────────────────────────────────────────────────

// Create allocates a session. Only the metadata is written; the version-0
// specification and the default completeness state exist in memory until
// the first save.
func (s *Store) Create(ctx context.Context) (*model.Session, error) {
	now := s.now().UTC()
	m := meta{
		ID:             s.newID(),
		CreatedAt:      now,
		LastAccessedAt: now,
		Status:         model.StatusActive,
	}
	if err := s.putJSON(ctx, sessionKey(m.ID), metaSK, kindSession, m, true); err != nil {
		return nil, apperr.Persistence("session.create", err)
	}
	return &model.Session{
		ID:             m.ID,
		CreatedAt:      m.CreatedAt,
		LastAccessedAt: m.LastAccessedAt,
		Status:         m.Status,
		State: model.SessionState{
			ConversationHistory: []model.Message{},
			Specification:       model.EmptySpecification(m.ID, now),
			Completeness:        s.tracker.Initial(),
		},
	}, nil
}

// Get reconstructs a session. It returns (nil, nil) only when the session
// metadata does not exist; abandoned sessions are returned like any other.
// LastAccessedAt is updated as a side effect.
func (s *Store) Get(ctx context.Context, id string) (*model.Session, error) {
	sess, err := s.load(ctx, id)
	if err != nil || sess == nil {
		return nil, err
	}

	m := metaOf(sess)
	m.LastAccessedAt = s.now().UTC()
	if err := s.putJSON(ctx, sessionKey(id), metaSK, kindSession, m, false); err != nil {
		return nil, apperr.Persistence("session.get", err)
	}
	sess.LastAccessedAt = m.LastAccessedAt
	return sess, nil
}

// load reads a session without touching LastAccessedAt.
func (s *Store) load(ctx context.Context, id string) (*model.Session, error) {
	m, err := s.readMeta(ctx, id)
	if err != nil {
		if errors.Is(err, records.ErrNotFound) {
			return nil, nil
		}
		return nil, apperr.Persistence("session.get", err)
	}

	msgs, err := s.messages(ctx, id)
	if err != nil {
		return nil, apperr.Persistence("session.get", err)
	}
	spec, err := s.currentSpec(ctx, id)
	if err != nil {
		return nil, apperr.Persistence("session.get", err)
	}
	if spec == nil {
		empty := model.EmptySpecification(id, m.CreatedAt)
		spec = &empty
	}
	locks, err := s.lockedSections(ctx, id)
	if err != nil {
		return nil, apperr.Persistence("session.get", err)
	}

	return &model.Session{
		ID:             m.ID,
		CreatedAt:      m.CreatedAt,
		LastAccessedAt: m.LastAccessedAt,
		Status:         m.Status,
		MagicLinkToken: m.MagicLinkToken,
		State: model.SessionState{
			ConversationHistory: msgs,
			Specification:       *spec,
			Completeness:        s.tracker.State(*spec),
			LockedSections:      locks,
		},
	}, nil
}

// Abandon flips the status to abandoned. Messages and specification
// versions are untouched. Abandoning twice is not an error.
func (s *Store) Abandon(ctx context.Context, id string) error {
	m, err := s.readMeta(ctx, id)
	if err != nil {
		if errors.Is(err, records.ErrNotFound) {
			return apperr.NotFound("session.abandon", "session %q not found", id)
		}
		return apperr.Persistence("session.abandon", err)
	}
	if m.Status == model.StatusAbandoned {
		return nil
	}
	m.Status = model.StatusAbandoned
	if err := s.putJSON(ctx, sessionKey(id), metaSK, kindSession, m, false); err != nil {
		return apperr.Persistence("session.abandon", err)
	}
	return nil
}

// ─── State ───────────────────────────────────────────────────────────────────

// Save persists state. Messages not yet stored are appended in order;
// the specification is written only when its version differs from the
// stored current one; checkpoints not yet stored are appended. Replaying
// the same state is a no-op.
func (s *Store) Save(ctx context.Context, id string, state model.SessionState) error {
	if _, err := s.readMeta(ctx, id); err != nil {
		if errors.Is(err, records.ErrNotFound) {
			return apperr.NotFound("session.save", "session %q not found", id)
		}
		return apperr.Persistence("session.save", err)
	}
	if err := s.appendMessages(ctx, id, state.ConversationHistory); err != nil {
		return err
	}
	if err := s.SaveSpecification(ctx, id, state.Specification); err != nil {
		return err
	}
	return s.appendLocks(ctx, id, state.LockedSections)
}

// SaveSpecification writes spec as a new version record unless that
// version is already the current one. A version lower than the current one,
// or one already taken by a concurrent writer, fails with
// apperr.ErrVersionConflict.
func (s *Store) SaveSpecification(ctx context.Context, id string, spec model.Specification) error {
	if spec.ID == "" {
		spec.ID = id
	}
	if spec.ID != id {
		return apperr.Validation("session.save",
			apperr.FieldError{Field: "specification.id", Message: fmt.Sprintf("must equal session id %q", id)})
	}

	current, err := s.currentSpec(ctx, id)
	if err != nil {
		return apperr.Persistence("session.save", err)
	}
	currentVersion := 0
	if current != nil {
		currentVersion = current.Version
	}
	switch {
	case spec.Version == currentVersion:
		return nil
	case spec.Version < currentVersion:
		return apperr.Persistence("session.save",
			fmt.Errorf("version %d is behind stored version %d: %w", spec.Version, currentVersion, apperr.ErrVersionConflict))
	}

	if err := s.putJSON(ctx, sessionKey(id), specKey(spec.Version), kindSpec, spec, true); err != nil {
		if errors.Is(err, records.ErrConflict) {
			return apperr.Persistence("session.save",
				fmt.Errorf("version %d already written: %w", spec.Version, apperr.ErrVersionConflict))
		}
		return apperr.Persistence("session.save", err)
	}
	return nil
}

// AppendMessages adds msgs to the end of the stored history in the given
// order, skipping any already stored. Messages without an id get one.
func (s *Store) AppendMessages(ctx context.Context, id string, msgs []model.Message) error {
	if _, err := s.readMeta(ctx, id); err != nil {
		if errors.Is(err, records.ErrNotFound) {
			return apperr.NotFound("session.append", "session %q not found", id)
		}
		return apperr.Persistence("session.append", err)
	}
	withIDs := make([]model.Message, len(msgs))
	for i, m := range msgs {
		if m.ID == "" {
			m.ID = model.NewID()
		}
		withIDs[i] = m
	}
	return s.appendMessages(ctx, id, withIDs)
}

func (s *Store) appendMessages(ctx context.Context, id string, msgs []model.Message) error {
	stored, err := s.messages(ctx, id)
	if err != nil {
		return apperr.Persistence("session.save", err)
	}
	seen := make(map[string]bool, len(stored))
	for _, m := range stored {
		seen[m.ID] = true
	}

	seq := len(stored)
	for _, m := range msgs {
		if m.ID == "" {
			return apperr.Validation("session.save", apperr.FieldError{Field: "message.id", Message: "is required"})
		}
		if !model.ValidRole(m.Role) {
			return apperr.Validation("session.save", apperr.FieldError{Field: "message.role", Message: fmt.Sprintf("unknown role %q", m.Role)})
		}
		if seen[m.ID] {
			continue
		}
		if err := s.putJSON(ctx, sessionKey(id), messageKey(seq), kindMessage, m, true); err != nil {
			if errors.Is(err, records.ErrConflict) {
				err = fmt.Errorf("message slot %d taken by a concurrent save: %w", seq, apperr.ErrVersionConflict)
			}
			return apperr.Persistence("session.save", err)
		}
		seen[m.ID] = true
		seq++
	}
	return nil
}

func (s *Store) appendLocks(ctx context.Context, id string, locks []model.LockedSection) error {
	stored, err := s.lockedSections(ctx, id)
	if err != nil {
		return apperr.Persistence("session.save", err)
	}
	seen := make(map[string]bool, len(stored))
	for _, l := range stored {
		seen[l.ID] = true
	}
	seq := len(stored)
	for _, l := range locks {
		if seen[l.ID] {
			continue
		}
		if err := s.putJSON(ctx, sessionKey(id), lockKey(seq), kindLock, l, true); err != nil {
			return apperr.Persistence("session.save", err)
		}
		seen[l.ID] = true
		seq++
	}
	return nil
}

// Versions returns every stored specification version, oldest first.
func (s *Store) Versions(ctx context.Context, id string) ([]model.Specification, error) {
	recs, err := s.records.Query(ctx, sessionKey(id), specSK, records.QueryOptions{})
	if err != nil {
		return nil, apperr.Persistence("session.versions", err)
	}
	return decodeAll[model.Specification](recs)
}

// ─── Errors ──────────────────────────────────────────────────────────────────

// PreserveErrorState records cause and the input that triggered it, then
// makes a best-effort save of state when given. It never fails and never
// panics: every problem is logged instead.
func (s *Store) PreserveErrorState(ctx context.Context, id string, cause error, userInput string, state *model.SessionState) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("preserve error state panicked", "session_id", id, "panic", r)
		}
	}()

	rec := model.ErrorRecord{
		SessionID:    id,
		UserInput:    userInput,
		Timestamp:    s.now().UTC(),
		ErrorMessage: "unknown error",
	}
	if cause != nil {
		rec.ErrorMessage = cause.Error()
		rec.ErrorStack = errorChain(cause)
	}
	if err := s.putJSON(ctx, sessionKey(id), errorKey(model.NewID()), kindError, rec, true); err != nil {
		s.logger.Error("failed to record error state", "session_id", id, "error", err, "cause", rec.ErrorMessage)
	}

	if state != nil {
		if err := s.Save(ctx, id, *state); err != nil {
			s.logger.Error("failed to save state after error", "session_id", id, "error", err)
		}
	}
}

// ReconstructContextAfterError reads the stored state back after a
// transient failure. It returns (nil, nil) for an unknown session.
func (s *Store) ReconstructContextAfterError(ctx context.Context, id string) (*model.SessionState, error) {
	sess, err := s.Get(ctx, id)
	if err != nil || sess == nil {
		return nil, err
	}
	return &sess.State, nil
}

// Errors returns the error records of a session, oldest first.
func (s *Store) Errors(ctx context.Context, id string) ([]model.ErrorRecord, error) {
	recs, err := s.records.Query(ctx, sessionKey(id), errorSK, records.QueryOptions{})
	if err != nil {
		return nil, apperr.Persistence("session.errors", err)
	}
	return decodeAll[model.ErrorRecord](recs)
}

// errorChain renders each layer of a wrapped error on its own line.
func errorChain(err error) string {
	var out string
	for e := err; e != nil; e = errors.Unwrap(e) {
		if out != "" {
			out += "\n"
		}
		out += fmt.Sprintf("%T: %s", e, e.Error())
	}
	return out
}

// ─── Record helpers ──────────────────────────────────────────────────────────

func (s *Store) readMeta(ctx context.Context, id string) (meta, error) {
	rec, err := s.records.Get(ctx, sessionKey(id), metaSK)
	if err != nil {
		return meta{}, err
	}
	var m meta
	if err := json.Unmarshal(rec.Body, &m); err != nil {
		return meta{}, fmt.Errorf("decoding session %q: %w", id, err)
	}
	return m, nil
}

func (s *Store) messages(ctx context.Context, id string) ([]model.Message, error) {
	recs, err := s.records.Query(ctx, sessionKey(id), messageSK, records.QueryOptions{})
	if err != nil {
		return nil, err
	}
	msgs, err := decodeAll[model.Message](recs)
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []model.Message{}
	}
	return msgs, nil
}

func (s *Store) currentSpec(ctx context.Context, id string) (*model.Specification, error) {
	recs, err := s.records.Query(ctx, sessionKey(id), specSK, records.QueryOptions{Reverse: true, Limit: 1})
	if err != nil || len(recs) == 0 {
		return nil, err
	}
	var spec model.Specification
	if err := json.Unmarshal(recs[0].Body, &spec); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", recs[0].SK, err)
	}
	return &spec, nil
}

func (s *Store) lockedSections(ctx context.Context, id string) ([]model.LockedSection, error) {
	recs, err := s.records.Query(ctx, sessionKey(id), lockSK, records.QueryOptions{})
	if err != nil {
		return nil, err
	}
	return decodeAll[model.LockedSection](recs)
}

// putJSON encodes v into a record. With create set, the write fails with
// records.ErrConflict if the key is taken.
func (s *Store) putJSON(ctx context.Context, pk, sk, kind string, v any, create bool) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", kind, err)
	}
	rec := records.Record{PK: pk, SK: sk, Kind: kind, Body: body}
	if create {
		return s.records.Create(ctx, rec)
	}
	return s.records.Put(ctx, rec)
}

func decodeAll[T any](recs []records.Record) ([]T, error) {
	var out []T
	for _, r := range recs {
		var v T
		if err := json.Unmarshal(r.Body, &v); err != nil {
			return nil, fmt.Errorf("decoding %s/%s: %w", r.PK, r.SK, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func metaOf(sess *model.Session) meta {
	return meta{
		ID:             sess.ID,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		Status:         sess.Status,
		MagicLinkToken: sess.MagicLinkToken,
	}
}
