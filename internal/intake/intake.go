// Package intake runs one conversation turn end to end: it records the
// user's message, asks the language model for the next question, folds the
// facts it reports into the specification ledger, advances the conversation
// stage and persists the result.
//
// The user's message is stored before anything that can fail, and a failed
// generation call is answered with a degraded reply after the error has been
// recorded, so no input is ever lost.
package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/HendryAvila/specwright/internal/apperr"
	"github.com/HendryAvila/specwright/internal/completeness"
	"github.com/HendryAvila/specwright/internal/generation"
	"github.com/HendryAvila/specwright/internal/ledger"
	"github.com/HendryAvila/specwright/internal/model"
	"github.com/HendryAvila/specwright/internal/pipeline"
	"github.com/HendryAvila/specwright/internal/session"
	"github.com/HendryAvila/specwright/internal/templates"
)

// MaxMessageLength bounds a single user message, in bytes.
const MaxMessageLength = 8000

// Generator produces assistant replies. *generation.Client satisfies it.
type Generator interface {
	Generate(ctx context.Context, sessionID string, req generation.Request, stream generation.Stream) generation.Reply
}

// Service is the per-message request pipeline.
type Service struct {
	sessions *session.Store
	gen      Generator
	topics   *pipeline.TopicTracker
	renderer *templates.Renderer
	rules    pipeline.Rules
	window   int
	keep     int
	maxToks  int
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithRules overrides the stage thresholds.
func WithRules(r pipeline.Rules) Option {
	return func(s *Service) { s.rules = r }
}

// WithHistoryWindow sets how many messages are sent verbatim before older
// ones are condensed, and how many recent ones survive condensing.
func WithHistoryWindow(window, keep int) Option {
	return func(s *Service) { s.window, s.keep = window, keep }
}

// WithMaxTokens caps the length of generated replies. Zero leaves the
// provider default.
func WithMaxTokens(n int) Option {
	return func(s *Service) { s.maxToks = n }
}

// WithTopicTracker shares a topic tracker with the service.
func WithTopicTracker(t *pipeline.TopicTracker) Option {
	return func(s *Service) { s.topics = t }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock replaces the wall clock used for message timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a Service.
func New(sessions *session.Store, gen Generator, opts ...Option) (*Service, error) {
	renderer, err := templates.NewRenderer()
	if err != nil {
		return nil, err
	}
	s := &Service{
		sessions: sessions,
		gen:      gen,
		topics:   pipeline.NewTopicTracker(),
		renderer: renderer,
		rules:    pipeline.DefaultRules(),
		window:   pipeline.DefaultHistoryWindow,
		keep:     pipeline.DefaultKeepRecent,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Turn is the outcome of one user message.
type Turn struct {
	SessionID      string                  `json:"session_id"`
	Reply          string                  `json:"reply"`
	Degraded       bool                    `json:"degraded"`
	Provider       string                  `json:"provider,omitempty"`
	PreviousStage  pipeline.Stage          `json:"previous_stage"`
	Stage          pipeline.Stage          `json:"stage"`
	Specification  model.Specification     `json:"specification"`
	Assessment     completeness.Assessment `json:"assessment"`
	NewCheckpoints []model.LockedSection   `json:"new_checkpoints,omitempty"`
	Extractions    int                     `json:"extractions"`
}

// UnsavedError reports that the user's message never reached the session
// store. Message keeps the ID it was written under, so replaying it later
// cannot duplicate a write that did land.
type UnsavedError struct {
	Message model.Message
	Err     error
}

func (e *UnsavedError) Error() string { return e.Err.Error() }

func (e *UnsavedError) Unwrap() error { return e.Err }

// UnsavedMessage returns the message err reports as not stored. Errors
// raised after the message was stored carry none.
func UnsavedMessage(err error) (model.Message, bool) {
	var u *UnsavedError
	if errors.As(err, &u) {
		return u.Message, true
	}
	return model.Message{}, false
}

// HandleMessage processes one user message for sessionID. stream, when
// non-nil, receives the raw model output as it is generated.
func (s *Service) HandleMessage(ctx context.Context, sessionID, content string, stream generation.Stream) (*Turn, error) {
	content = strings.TrimSpace(content)
	if err := validateMessage(sessionID, content); err != nil {
		return nil, err
	}
	userMsg := model.NewMessage(model.RoleUser, content, s.now())

	sess, err := s.activeSession(ctx, sessionID, "intake.message")
	if err != nil {
		if apperr.Is(err, apperr.KindPersistence) {
			return nil, &UnsavedError{Message: userMsg, Err: err}
		}
		return nil, err
	}
	state := sess.State
	before := completeness.Evaluate(state.Specification)
	prevStage := s.stage(state, before)

	if err := s.sessions.AppendMessages(ctx, sessionID, []model.Message{userMsg}); err != nil {
		s.sessions.PreserveErrorState(ctx, sessionID, err, content, nil)
		if apperr.Is(err, apperr.KindPersistence) {
			return nil, &UnsavedError{Message: userMsg, Err: err}
		}
		return nil, err
	}
	state.ConversationHistory = append(state.ConversationHistory, userMsg)

	req, err := s.request(sessionID, prevStage, state, before)
	if err != nil {
		s.sessions.PreserveErrorState(ctx, sessionID, err, content, &state)
		return nil, err
	}

	reply := s.gen.Generate(ctx, sessionID, req, stream)
	if reply.Degraded {
		s.sessions.PreserveErrorState(ctx, sessionID, reply.Err, content, &state)
		return &Turn{
			SessionID:     sessionID,
			Reply:         reply.Text,
			Degraded:      true,
			PreviousStage: prevStage,
			Stage:         prevStage,
			Specification: state.Specification,
			Assessment:    before,
		}, nil
	}

	extractions, perr := ledger.ParseExtractions(reply.Text)
	if perr != nil {
		s.logger.Warn("some extractions could not be parsed", "session_id", sessionID, "error", perr)
	}
	spec := state.Specification
	for _, ex := range extractions {
		next := ledger.Update(&spec, ex, state.ConversationHistory)
		if err := s.sessions.SaveSpecification(ctx, sessionID, *next); err != nil {
			s.sessions.PreserveErrorState(ctx, sessionID, err, content, &state)
			return nil, err
		}
		spec = *next
	}
	state.Specification = spec

	assistant := model.NewMessage(model.RoleAssistant, ledger.StripExtractions(reply.Text), s.now())
	assistant.Metadata = map[string]string{"provider": reply.Provider}
	state.ConversationHistory = append(state.ConversationHistory, assistant)

	after := completeness.Evaluate(spec)
	nextStage := s.stage(state, after)
	locks := pipeline.Transition(prevStage, nextStage, spec, state.ConversationHistory, state.LockedSections)
	state.LockedSections = append(state.LockedSections, locks...)

	if err := s.sessions.Save(ctx, sessionID, state); err != nil {
		s.sessions.PreserveErrorState(ctx, sessionID, err, content, nil)
		return nil, err
	}

	s.logger.Debug("turn complete",
		"session_id", sessionID,
		"stage", nextStage,
		"version", spec.Version,
		"extractions", len(extractions),
		"percentage", after.Percentage,
	)

	return &Turn{
		SessionID:      sessionID,
		Reply:          assistant.Content,
		Provider:       reply.Provider,
		PreviousStage:  prevStage,
		Stage:          nextStage,
		Specification:  spec,
		Assessment:     after,
		NewCheckpoints: locks,
		Extractions:    len(extractions),
	}, nil
}

// request assembles the generation request for the next turn and marks the
// topic it focuses on as asked.
func (s *Service) request(sessionID string, stage pipeline.Stage, state model.SessionState, a completeness.Assessment) (generation.Request, error) {
	focus := s.topics.Next(sessionID, a.MissingSections)
	if focus != "" {
		s.topics.Mark(sessionID, focus)
	}

	topics := make([]string, len(ledger.Topics))
	for i, t := range ledger.Topics {
		topics[i] = string(t)
	}
	system, err := s.renderer.Render(templates.IntakeSystem, templates.IntakeData{
		Stage:   string(stage),
		Focus:   focus,
		Missing: a.MissingSections,
		Summary: state.Specification.PlainSummary,
		Locked:  pipeline.Active(state.LockedSections),
		Topics:  topics,
	})
	if err != nil {
		return generation.Request{}, fmt.Errorf("building prompt: %w", err)
	}

	return generation.Request{
		System:    system,
		Messages:  pipeline.PruneHistory(state.ConversationHistory, state.LockedSections, s.window, s.keep),
		MaxTokens: s.maxToks,
	}, nil
}

func (s *Service) stage(state model.SessionState, a completeness.Assessment) pipeline.Stage {
	return s.rules.Determine(pipeline.Snapshot{
		MessageCount:     len(state.ConversationHistory),
		HasSpecification: state.Specification.Version > 0,
		SpecVersion:      state.Specification.Version,
		MissingSections:  len(a.MissingSections),
		ReadyForHandoff:  a.ReadyForHandoff,
		LockedStage:      pipeline.LockedStage(state.LockedSections),
	})
}

// activeSession loads a session that can still take input.
func (s *Service) activeSession(ctx context.Context, sessionID, op string) (*model.Session, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, apperr.NotFound(op, "session %q not found", sessionID)
	}
	if sess.Status == model.StatusAbandoned {
		return nil, apperr.Validation(op, apperr.FieldError{Field: "session_id", Message: "session was abandoned; start a new one"})
	}
	return sess, nil
}

func validateMessage(sessionID, content string) error {
	var fields []apperr.FieldError
	if sessionID == "" {
		fields = append(fields, apperr.FieldError{Field: "session_id", Message: "is required"})
	}
	switch {
	case content == "":
		fields = append(fields, apperr.FieldError{Field: "message", Message: "must not be empty"})
	case len(content) > MaxMessageLength:
		fields = append(fields, apperr.FieldError{Field: "message", Message: fmt.Sprintf("must be at most %d characters", MaxMessageLength)})
	}
	if len(fields) > 0 {
		return apperr.Validation("intake.message", fields...)
	}
	return nil
}
