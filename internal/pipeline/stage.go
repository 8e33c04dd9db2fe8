// Package pipeline is the conversation stage engine.
//
// A conversation moves through five stages:
//
//	initial → discovery → refinement → validation → completion
//
// The stage is never stored. It is recomputed every turn from an immutable
// Snapshot of the session, so it cannot drift from the specification it
// describes. Two floors keep it moving forward only:
//   - completion needs a minimum number of messages, even at 100% coverage
//   - a stage never drops below the stage of the latest active checkpoint
//
// Forward transitions lock the topic that was just settled as a checkpoint
// (see checkpoint.go). Long histories are pruned down to the recent messages
// plus one summary of the checkpoints (see prune.go).
package pipeline

// Stage is a conversation stage.
type Stage string

const (
	StageInitial    Stage = "initial"
	StageDiscovery  Stage = "discovery"
	StageRefinement Stage = "refinement"
	StageValidation Stage = "validation"
	StageCompletion Stage = "completion"
)

// StageOrder is the linear stage sequence.
var StageOrder = []Stage{StageInitial, StageDiscovery, StageRefinement, StageValidation, StageCompletion}

// StageIndex returns the position of s in StageOrder, or -1.
func StageIndex(s Stage) int {
	for i, st := range StageOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// Snapshot is the state the stage is derived from.
type Snapshot struct {
	MessageCount     int
	HasSpecification bool
	SpecVersion      int
	MissingSections  int
	ReadyForHandoff  bool
	// LockedStage is the stage of the latest active checkpoint, if any.
	LockedStage Stage
}

// Rules holds the thresholds of the transition function.
type Rules struct {
	// MinMessages is the message floor for completion.
	MinMessages int
	// RefinementMaxMissing is the most missing sections refinement allows.
	RefinementMaxMissing int
	// ValidationMaxMissing is the most missing sections validation allows.
	ValidationMaxMissing int
}

// Default thresholds.
const (
	DefaultMinMessages          = 10
	DefaultRefinementMaxMissing = 5
	DefaultValidationMaxMissing = 2
)

// DefaultRules returns the standard thresholds.
func DefaultRules() Rules {
	return Rules{
		MinMessages:          DefaultMinMessages,
		RefinementMaxMissing: DefaultRefinementMaxMissing,
		ValidationMaxMissing: DefaultValidationMaxMissing,
	}
}

// DetermineStage applies the default rules to s.
func DetermineStage(s Snapshot) Stage {
	return DefaultRules().Determine(s)
}

// Determine derives the stage of s.
func (r Rules) Determine(s Snapshot) Stage {
	stage := r.raw(s)
	if floor := StageIndex(s.LockedStage); floor > StageIndex(stage) {
		stage = StageOrder[floor]
	}
	return stage
}

func (r Rules) raw(s Snapshot) Stage {
	switch {
	case s.MessageCount == 0:
		return StageInitial
	case !s.HasSpecification || s.SpecVersion == 0:
		if s.MessageCount < 2 {
			return StageInitial
		}
		return StageDiscovery
	case s.ReadyForHandoff && s.MissingSections == 0:
		if s.MessageCount >= r.MinMessages {
			return StageCompletion
		}
		return StageValidation
	case s.MissingSections <= r.ValidationMaxMissing:
		return StageValidation
	case s.MissingSections <= r.RefinementMaxMissing:
		return StageRefinement
	default:
		return StageDiscovery
	}
}
