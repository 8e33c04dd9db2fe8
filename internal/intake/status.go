package intake

import (
	"context"
	"fmt"

	"github.com/HendryAvila/specwright/internal/apperr"
	"github.com/HendryAvila/specwright/internal/completeness"
	"github.com/HendryAvila/specwright/internal/ledger"
	"github.com/HendryAvila/specwright/internal/model"
	"github.com/HendryAvila/specwright/internal/pipeline"
	"github.com/HendryAvila/specwright/internal/templates"
)

// Status is a read-only view of where a session stands.
type Status struct {
	Session    *model.Session          `json:"session"`
	Stage      pipeline.Stage          `json:"stage"`
	Assessment completeness.Assessment `json:"assessment"`
	Validation ledger.Report           `json:"validation"`
	Active     []model.LockedSection   `json:"active_checkpoints"`
}

// Status evaluates a session without changing it (apart from its access
// time).
func (s *Service) Status(ctx context.Context, sessionID string) (*Status, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, apperr.NotFound("intake.status", "session %q not found", sessionID)
	}
	a := completeness.Evaluate(sess.State.Specification)
	return &Status{
		Session:    sess,
		Stage:      s.stage(sess.State, a),
		Assessment: a,
		Validation: ledger.Validate(sess.State.Specification),
		Active:     pipeline.Active(sess.State.LockedSections),
	}, nil
}

// RenderSpecification renders the current specification of a session as
// Markdown.
func (s *Service) RenderSpecification(ctx context.Context, sessionID string) (string, error) {
	st, err := s.Status(ctx, sessionID)
	if err != nil {
		return "", err
	}
	return s.renderer.Render(templates.Specification, templates.SpecificationData{
		SessionID:  sessionID,
		Stage:      string(st.Stage),
		Percentage: st.Assessment.Percentage,
		Missing:    st.Assessment.MissingSections,
		Spec:       st.Session.State.Specification,
	})
}

// RedoCheckpoint re-opens a locked checkpoint: a new entry supersedes the
// current one, summarizing the conversation as it stands now.
func (s *Service) RedoCheckpoint(ctx context.Context, sessionID, name string) (model.LockedSection, error) {
	sess, err := s.activeSession(ctx, sessionID, "intake.redo")
	if err != nil {
		return model.LockedSection{}, err
	}
	state := sess.State
	redo, err := pipeline.Redo(state.LockedSections, name, state.Specification, state.ConversationHistory)
	if err != nil {
		return model.LockedSection{}, apperr.Validation("intake.redo", apperr.FieldError{Field: "checkpoint", Message: err.Error()})
	}
	state.LockedSections = append(state.LockedSections, redo)
	if err := s.sessions.Save(ctx, sessionID, state); err != nil {
		return model.LockedSection{}, err
	}
	s.logger.Info("checkpoint reopened", "session_id", sessionID, "checkpoint", name, "supersedes", redo.Supersedes)
	return redo, nil
}

// Abandon abandons a session and forgets the topics asked in it.
func (s *Service) Abandon(ctx context.Context, sessionID string) error {
	if err := s.sessions.Abandon(ctx, sessionID); err != nil {
		return err
	}
	s.topics.Forget(sessionID)
	return nil
}

// missingFields itemizes what blocks a handoff.
func missingFields(a completeness.Assessment) []apperr.FieldError {
	var fields []apperr.FieldError
	for _, id := range a.MissingSections {
		fields = append(fields, apperr.FieldError{Field: "specification." + id, Message: "still needs to be covered"})
	}
	if a.Conflicts > 0 {
		fields = append(fields, apperr.FieldError{
			Field:   "specification.requirements",
			Message: fmt.Sprintf("%d conflicting requirement(s) must be resolved", a.Conflicts),
		})
	}
	return fields
}
