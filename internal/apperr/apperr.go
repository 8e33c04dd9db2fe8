// Package apperr is the error taxonomy shared by every layer of the engine.
//
// Errors are classified by Kind so that callers can decide how to react
// (propagate, retry against another provider, degrade, or itemize for the
// user) without inspecting messages. Wrapping follows the usual rules:
// errors.Is and errors.As see through an *Error to its cause.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure.
type Kind string

const (
	KindNetwork            Kind = "network"
	KindGenerationProvider Kind = "generation_provider"
	KindPersistence        Kind = "persistence"
	KindValidation         Kind = "validation"
	KindNotFound           Kind = "not_found"
	KindUnknown            Kind = "unknown"
)

// ErrVersionConflict is returned when a specification version has already
// been written by another save, or when a save would move the current
// version backwards.
var ErrVersionConflict = errors.New("specification version conflict")

// FieldError describes one invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is a classified error.
type Error struct {
	Kind   Kind
	Op     string
	Err    error
	Fields []FieldError
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	switch {
	case e.Err != nil:
		b.WriteString(e.Err.Error())
	case len(e.Fields) > 0:
		parts := make([]string, len(e.Fields))
		for i, f := range e.Fields {
			parts[i] = f.Field + ": " + f.Message
		}
		b.WriteString("invalid input (" + strings.Join(parts, "; ") + ")")
	default:
		b.WriteString(string(e.Kind))
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err with a kind and operation name. A nil err yields nil.
func New(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Persistence classifies a durable store failure.
func Persistence(op string, err error) error { return New(KindPersistence, op, err) }

// Network classifies a transport or timeout failure.
func Network(op string, err error) error { return New(KindNetwork, op, err) }

// Generation classifies a text-generation provider failure.
func Generation(op string, err error) error { return New(KindGenerationProvider, op, err) }

// NotFound reports a missing session, token or reference.
func NotFound(op, format string, args ...any) error {
	return &Error{Kind: KindNotFound, Op: op, Err: fmt.Errorf(format, args...)}
}

// Validation reports malformed input, one entry per offending field.
func Validation(op string, fields ...FieldError) error {
	return &Error{Kind: KindValidation, Op: op, Fields: fields}
}

// KindOf returns the kind of the outermost classified error in err's chain,
// or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// FieldsOf returns the field errors of a validation error, if any.
func FieldsOf(err error) []FieldError {
	var e *Error
	if errors.As(err, &e) {
		return e.Fields
	}
	return nil
}
