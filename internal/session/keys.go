package session

import "fmt"

// Record layout. Every session owns one partition; the sort-key prefixes
// below order each collection as plain strings.
const (
	sessionPK    = "SESSION#"
	linkPK       = "LINK#"
	referencePK  = "REF#"
	metaSK       = "META"
	messageSK    = "MSG#"
	specSK       = "SPEC#"
	lockSK       = "LOCK#"
	errorSK      = "ERR#"
	submissionSK = "SUB#"
	linkTargetSK = "SESSION"
	refTargetSK  = "SUBMISSION"
)

// Record kinds, stored for inspection only.
const (
	kindSession    = "session"
	kindMessage    = "message"
	kindSpec       = "specification"
	kindLock       = "locked_section"
	kindError      = "error"
	kindSubmission = "submission"
	kindLink       = "magic_link"
	kindReference  = "reference"
)

func sessionKey(id string) string    { return sessionPK + id }
func linkKey(token string) string    { return linkPK + token }
func refKey(ref string) string       { return referencePK + ref }
func messageKey(seq int) string      { return fmt.Sprintf("%s%08d", messageSK, seq) }
func specKey(version int) string     { return fmt.Sprintf("%s%010d", specSK, version) }
func lockKey(seq int) string         { return fmt.Sprintf("%s%06d", lockSK, seq) }
func errorKey(id string) string      { return errorSK + id }
func submissionKey(id string) string { return submissionSK + id }
