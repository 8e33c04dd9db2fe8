package apperr

import "strings"

// DegradedReply is sent in place of a generated answer when no provider
// could respond. The user's message has already been saved at that point.
const DegradedReply = "I'm having trouble reaching the assistant right now. " +
	"Your message has been saved, so nothing is lost. " +
	"Please try again in a moment, or come back later and pick up where you left off."

// UserMessage turns err into text that can be shown to an end user.
// Validation errors are itemized per field; everything else is worded as
// temporary and actionable.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	switch KindOf(err) {
	case KindValidation:
		fields := FieldsOf(err)
		if len(fields) == 0 {
			return "Some of the information provided is not valid. Please check it and try again."
		}
		var b strings.Builder
		b.WriteString("Please fix the following and try again:")
		for _, f := range fields {
			b.WriteString("\n- ")
			b.WriteString(f.Field)
			b.WriteString(": ")
			b.WriteString(f.Message)
		}
		return b.String()
	case KindNotFound:
		return "We couldn't find that session. Check the link you used, or start a new session."
	case KindNetwork:
		return "The connection was interrupted. Please check your connection and try again."
	case KindGenerationProvider:
		return DegradedReply
	case KindPersistence:
		return "We couldn't save your progress just now. Please try again in a moment."
	default:
		return "Something went wrong on our side. Please try again in a moment."
	}
}
