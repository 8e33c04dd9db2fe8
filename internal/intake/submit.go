package intake

import (
	"context"
	"net/mail"
	"strings"
	"unicode"

	"github.com/HendryAvila/specwright/internal/apperr"
	"github.com/HendryAvila/specwright/internal/completeness"
	"github.com/HendryAvila/specwright/internal/model"
)

// Submit hands the current specification of a session over to the team.
// The specification must be ready for handoff and the contact details
// valid; every problem is reported as its own field error.
func (s *Service) Submit(ctx context.Context, sessionID string, contact model.ContactInfo) (*model.Submission, error) {
	contact = normalizeContact(contact)
	if fields := validateContact(contact); len(fields) > 0 {
		return nil, apperr.Validation("intake.submit", fields...)
	}

	sess, err := s.activeSession(ctx, sessionID, "intake.submit")
	if err != nil {
		return nil, err
	}
	a := completeness.Evaluate(sess.State.Specification)
	if !a.ReadyForHandoff {
		return nil, apperr.Validation("intake.submit", missingFields(a)...)
	}

	sub, err := s.sessions.CreateSubmission(ctx, sessionID, contact, sess.State.Specification.Version)
	if err != nil {
		return nil, err
	}
	s.logger.Info("specification submitted",
		"session_id", sessionID,
		"reference", sub.ReferenceNumber,
		"version", sub.SpecificationVersion,
	)
	return sub, nil
}

func normalizeContact(c model.ContactInfo) model.ContactInfo {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.TrimSpace(c.Email)
	c.Company = strings.TrimSpace(c.Company)
	c.Phone = strings.TrimSpace(c.Phone)
	return c
}

func validateContact(c model.ContactInfo) []apperr.FieldError {
	var fields []apperr.FieldError
	if c.Name == "" {
		fields = append(fields, apperr.FieldError{Field: "contact.name", Message: "is required"})
	}
	switch {
	case c.Email == "":
		fields = append(fields, apperr.FieldError{Field: "contact.email", Message: "is required"})
	case !validEmail(c.Email):
		fields = append(fields, apperr.FieldError{Field: "contact.email", Message: "is not a valid email address"})
	}
	if c.Phone != "" && !validPhone(c.Phone) {
		fields = append(fields, apperr.FieldError{Field: "contact.phone", Message: "may only contain digits, spaces and + - ( )"})
	}
	return fields
}

// validEmail accepts a bare address with a dotted domain.
func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return false
	}
	at := strings.LastIndex(s, "@")
	return at > 0 && strings.Contains(s[at+1:], ".")
}

func validPhone(s string) bool {
	digits := 0
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			digits++
		case strings.ContainsRune(" +-()", r):
		default:
			return false
		}
	}
	return digits >= 6
}
