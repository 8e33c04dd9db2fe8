package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/HendryAvila/specwright/internal/apperr"
	"github.com/HendryAvila/specwright/internal/model"
	"github.com/HendryAvila/specwright/internal/records"
)

// maxReferenceAttempts bounds retries when a generated reference collides.
const maxReferenceAttempts = 5

type referenceTarget struct {
	SessionID    string `json:"session_id"`
	SubmissionID string `json:"submission_id"`
}

// CreateSubmission records a handoff of the given specification version.
// The reference number is reserved before the submission is written, so a
// reference is never handed out twice, even if the write that follows fails.
func (s *Store) CreateSubmission(ctx context.Context, id string, contact model.ContactInfo, specVersion int) (*model.Submission, error) {
	if _, err := s.readMeta(ctx, id); err != nil {
		if errors.Is(err, records.ErrNotFound) {
			return nil, apperr.NotFound("session.submit", "session %q not found", id)
		}
		return nil, apperr.Persistence("session.submit", err)
	}

	now := s.now().UTC()
	sub := model.Submission{
		ID:                   model.NewID(),
		SessionID:            id,
		ContactInfo:          contact,
		SpecificationVersion: specVersion,
		SubmittedAt:          now,
		Status:               model.SubmissionPending,
	}

	for attempt := 0; ; attempt++ {
		ref := newReference(now)
		err := s.putJSON(ctx, refKey(ref), refTargetSK, kindReference, referenceTarget{SessionID: id, SubmissionID: sub.ID}, true)
		if err == nil {
			sub.ReferenceNumber = ref
			break
		}
		if !errors.Is(err, records.ErrConflict) || attempt+1 >= maxReferenceAttempts {
			return nil, apperr.Persistence("session.submit", err)
		}
	}

	if err := s.putJSON(ctx, sessionKey(id), submissionKey(sub.ID), kindSubmission, sub, true); err != nil {
		return nil, apperr.Persistence("session.submit", err)
	}
	return &sub, nil
}

// Submissions returns every submission of a session, oldest first.
func (s *Store) Submissions(ctx context.Context, id string) ([]model.Submission, error) {
	recs, err := s.records.Query(ctx, sessionKey(id), submissionSK, records.QueryOptions{})
	if err != nil {
		return nil, apperr.Persistence("session.submissions", err)
	}
	return decodeAll[model.Submission](recs)
}

// ResolveReference looks a submission up by its reference number.
func (s *Store) ResolveReference(ctx context.Context, ref string) (*model.Submission, error) {
	rec, err := s.records.Get(ctx, refKey(ref), refTargetSK)
	if err != nil {
		if errors.Is(err, records.ErrNotFound) {
			return nil, apperr.NotFound("session.reference", "reference %q not found", ref)
		}
		return nil, apperr.Persistence("session.reference", err)
	}
	var target referenceTarget
	if err := json.Unmarshal(rec.Body, &target); err != nil {
		return nil, apperr.Persistence("session.reference", err)
	}

	subRec, err := s.records.Get(ctx, sessionKey(target.SessionID), submissionKey(target.SubmissionID))
	if err != nil {
		if errors.Is(err, records.ErrNotFound) {
			// Reserved by an attempt whose submission write failed.
			return nil, apperr.NotFound("session.reference", "reference %q has no submission", ref)
		}
		return nil, apperr.Persistence("session.reference", err)
	}
	var sub model.Submission
	if err := json.Unmarshal(subRec.Body, &sub); err != nil {
		return nil, apperr.Persistence("session.reference", err)
	}
	return &sub, nil
}

// newReference builds a reference like SPEC-20260301-7K2M9QXD. The suffix
// is the random part of a fresh ULID.
var newReference = func(at time.Time) string {
	id := model.NewID()
	return fmt.Sprintf("SPEC-%s-%s", at.Format("20060102"), strings.ToUpper(id[len(id)-8:]))
}
