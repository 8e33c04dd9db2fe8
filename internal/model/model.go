// Package model defines the data shared by the session engine: sessions,
// conversation messages, versioned specifications and the records derived
// from them.
//
// Everything here is plain data. Behaviour lives in the ledger, completeness,
// pipeline and session packages, which pass these values around by copy or
// pointer but never mutate a value they did not create.
package model

import "time"

// ─── Session ─────────────────────────────────────────────────────────────────

// SessionStatus is the lifecycle flag of a session.
type SessionStatus string

const (
	StatusActive    SessionStatus = "active"
	StatusAbandoned SessionStatus = "abandoned"
)

// Session is the durable container for one user's conversation and the
// specification it produces. Sessions are never deleted; abandoning one only
// flips Status.
type Session struct {
	ID             string        `json:"id" yaml:"id"`
	CreatedAt      time.Time     `json:"created_at" yaml:"created_at"`
	LastAccessedAt time.Time     `json:"last_accessed_at" yaml:"last_accessed_at"`
	Status         SessionStatus `json:"status" yaml:"status"`
	MagicLinkToken string        `json:"magic_link_token,omitempty" yaml:"magic_link_token,omitempty"`
	State          SessionState  `json:"state" yaml:"state"`
}

// SessionState is everything a session owns besides its metadata.
type SessionState struct {
	ConversationHistory []Message         `json:"conversation_history" yaml:"conversation_history"`
	Specification       Specification     `json:"specification" yaml:"specification"`
	Completeness        CompletenessState `json:"completeness" yaml:"completeness"`
	LockedSections      []LockedSection   `json:"locked_sections,omitempty" yaml:"locked_sections,omitempty"`
}

// ─── Messages ────────────────────────────────────────────────────────────────

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ValidRole reports whether r is one of the known roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Message is one immutable entry of a conversation.
type Message struct {
	ID        string            `json:"id" yaml:"id"`
	Role      Role              `json:"role" yaml:"role"`
	Content   string            `json:"content" yaml:"content"`
	Timestamp time.Time         `json:"timestamp" yaml:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// ─── Completeness ────────────────────────────────────────────────────────────

// CompletenessState is the gap analysis computed against one specification
// version. It is derived data and is recomputed on every read.
type CompletenessState struct {
	MissingSections []string  `json:"missing_sections" yaml:"missing_sections"`
	ReadyForHandoff bool      `json:"ready_for_handoff" yaml:"ready_for_handoff"`
	LastEvaluated   time.Time `json:"last_evaluated" yaml:"last_evaluated"`
}

// ─── Checkpoints ─────────────────────────────────────────────────────────────

// LockedSection is a checkpoint: a frozen summary of a settled topic.
// A redo appends a new checkpoint whose Supersedes names the one it replaces;
// the old entry stays in the log.
type LockedSection struct {
	ID         string    `json:"id" yaml:"id"`
	Name       string    `json:"name" yaml:"name"`
	Summary    string    `json:"summary" yaml:"summary"`
	Stage      string    `json:"stage" yaml:"stage"`
	LockedAt   time.Time `json:"locked_at" yaml:"locked_at"`
	Supersedes string    `json:"supersedes,omitempty" yaml:"supersedes,omitempty"`
}

// ─── Submissions and errors ──────────────────────────────────────────────────

// ContactInfo identifies who a finished specification is handed to.
type ContactInfo struct {
	Name    string `json:"name" yaml:"name"`
	Email   string `json:"email" yaml:"email"`
	Company string `json:"company,omitempty" yaml:"company,omitempty"`
	Phone   string `json:"phone,omitempty" yaml:"phone,omitempty"`
}

// SubmissionStatus tracks a handoff after it is recorded.
type SubmissionStatus string

const (
	SubmissionPending   SubmissionStatus = "pending"
	SubmissionDelivered SubmissionStatus = "delivered"
	SubmissionFailed    SubmissionStatus = "failed"
)

// Submission records one successful handoff of a specification version.
type Submission struct {
	ID                   string           `json:"id" yaml:"id"`
	SessionID            string           `json:"session_id" yaml:"session_id"`
	ContactInfo          ContactInfo      `json:"contact_info" yaml:"contact_info"`
	SpecificationVersion int              `json:"specification_version" yaml:"specification_version"`
	SubmittedAt          time.Time        `json:"submitted_at" yaml:"submitted_at"`
	Status               SubmissionStatus `json:"status" yaml:"status"`
	ReferenceNumber      string           `json:"reference_number" yaml:"reference_number"`
}

// ErrorRecord captures a failure together with the input that triggered it.
type ErrorRecord struct {
	SessionID    string    `json:"session_id" yaml:"session_id"`
	ErrorMessage string    `json:"error_message" yaml:"error_message"`
	ErrorStack   string    `json:"error_stack,omitempty" yaml:"error_stack,omitempty"`
	UserInput    string    `json:"user_input" yaml:"user_input"`
	Timestamp    time.Time `json:"timestamp" yaml:"timestamp"`
}
