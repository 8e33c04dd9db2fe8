package completeness

import (
	"math"
	"strings"
	"time"

	"github.com/HendryAvila/specwright/internal/ledger"
	"github.com/HendryAvila/specwright/internal/model"
)

// Complexity weights. Integrations weigh most because each one is a system
// the team does not control.
const (
	weightRequirement   = 1.0
	weightNonFunctional = 1.5
	weightFeature       = 0.5
	weightIntegration   = 2.0

	moderateThreshold = 5.0
	complexThreshold  = 12.0
)

// TopicStatus is one row of an assessment.
type TopicStatus struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Source   Source `json:"source"`
	Required bool   `json:"required"`
	Status   Status `json:"status"`
}

// Assessment is the full derived view of a specification's coverage.
type Assessment struct {
	Archetype       Archetype     `json:"archetype"`
	ComplexityScore float64       `json:"complexity_score"`
	Tier            Tier          `json:"tier"`
	Topics          []TopicStatus `json:"topics"`
	Percentage      int           `json:"percentage"`
	MissingSections []string      `json:"missing_sections"`
	Conflicts       int           `json:"conflicts"`
	ReadyForHandoff bool          `json:"ready_for_handoff"`
}

// ComplexityScore weighs requirement, quality, feature and integration
// counts.
func ComplexityScore(spec model.Specification) float64 {
	return float64(len(spec.FormalDocument.Requirements))*weightRequirement +
		float64(len(spec.FormalDocument.NonFunctionalRequirements))*weightNonFunctional +
		float64(len(nonBlank(spec.PlainSummary.KeyFeatures)))*weightFeature +
		float64(integrationCount(spec.PlainSummary.Integrations))*weightIntegration
}

// TierFor bands a complexity score.
func TierFor(score float64) Tier {
	switch {
	case score >= complexThreshold:
		return TierComplex
	case score >= moderateThreshold:
		return TierModerate
	default:
		return TierSimple
	}
}

// Evaluate computes the assessment of spec. It is pure.
func Evaluate(spec model.Specification) Assessment {
	score := ComplexityScore(spec)
	a := Assessment{
		Archetype:       Classify(spec),
		ComplexityScore: score,
		Tier:            TierFor(score),
		MissingSections: []string{},
	}

	text := specText(spec)
	required := make(map[string]bool)
	for _, id := range TierTopics[a.Tier] {
		required[id] = true
	}

	for _, t := range CoreTopics {
		a.Topics = append(a.Topics, TopicStatus{ID: t.ID, Name: t.Name, Source: SourceCore, Required: true, Status: coreStatus(t.ID, spec)})
	}
	for _, t := range ComplexityTopics {
		a.Topics = append(a.Topics, TopicStatus{ID: t.ID, Name: t.Name, Source: SourceComplexity, Required: required[t.ID], Status: complexityStatus(t, spec, text)})
	}
	for _, t := range ArchetypeTopics[a.Archetype] {
		a.Topics = append(a.Topics, TopicStatus{ID: t.ID, Name: t.Name, Source: SourceArchetype, Required: true, Status: keywordStatus(text, t.Keywords)})
	}

	var earned, total float64
	for _, t := range a.Topics {
		if !t.Required {
			continue
		}
		total++
		switch t.Status {
		case StatusComplete:
			earned++
		case StatusInProgress:
			earned += 0.5
		}
		if t.Status != StatusComplete {
			a.MissingSections = append(a.MissingSections, t.ID)
		}
	}
	if total > 0 {
		a.Percentage = int(math.Round(earned / total * 100))
	}

	a.Conflicts = len(ledger.Validate(spec).ConflictingRequirements)
	a.ReadyForHandoff = len(a.MissingSections) == 0 && a.Conflicts == 0
	return a
}

// NonCoreTopicIDs returns the ids of the non-core required topics.
func (a Assessment) NonCoreTopicIDs() []string {
	var ids []string
	for _, t := range a.Topics {
		if t.Required && t.Source != SourceCore {
			ids = append(ids, t.ID)
		}
	}
	return ids
}

func coreStatus(id string, spec model.Specification) Status {
	p := spec.PlainSummary
	switch id {
	case TopicOverview:
		n := len(strings.TrimSpace(p.Overview))
		return byCount(n, 1, 40)
	case TopicTargetUsers:
		return byCount(len(nonBlank(p.TargetUsers)), 1, 1)
	case TopicKeyFeatures:
		return byCount(len(nonBlank(p.KeyFeatures)), 1, 3)
	case TopicUserFlows:
		return byCount(len(nonBlank(p.UserFlows)), 1, 1)
	case TopicMVPScope:
		in, out := len(nonBlank(p.MVPScope.In)), len(nonBlank(p.MVPScope.Out))
		switch {
		case in > 0 && out > 0:
			return StatusComplete
		case in > 0 || out > 0:
			return StatusInProgress
		}
	}
	return StatusNotStarted
}

func complexityStatus(t TopicDef, spec model.Specification, text string) Status {
	p := spec.PlainSummary
	switch t.ID {
	case TopicDataRequirements:
		return byCount(len(nonBlank(p.DataEntities)), 1, 2)
	case TopicIntegrations:
		// An explicit "none" counts as answered.
		return byCount(len(nonBlank(p.Integrations)), 1, 1)
	case TopicNonFunctional:
		n := len(nonBlank(p.NonFunctional))
		if m := len(spec.FormalDocument.NonFunctionalRequirements); m > n {
			n = m
		}
		return byCount(n, 1, 2)
	default:
		return keywordStatus(text, t.Keywords)
	}
}

func keywordStatus(text string, keywords []string) Status {
	return byCount(countMatches(text, keywords), 1, 2)
}

// byCount maps a count to a status using the in-progress and complete
// thresholds.
func byCount(n, inProgress, complete int) Status {
	switch {
	case n >= complete:
		return StatusComplete
	case n >= inProgress:
		return StatusInProgress
	default:
		return StatusNotStarted
	}
}

// specText is the plain summary flattened for keyword matching.
func specText(spec model.Specification) string {
	p := spec.PlainSummary
	parts := []string{p.Overview}
	for _, list := range [][]string{
		p.TargetUsers, p.KeyFeatures, p.UserFlows, p.BusinessRules,
		p.Integrations, p.DataEntities, p.NonFunctional, p.MVPScope.In, p.MVPScope.Out,
	} {
		parts = append(parts, list...)
	}
	return strings.Join(parts, "\n")
}

func integrationCount(list []string) int {
	n := 0
	for _, s := range nonBlank(list) {
		if !strings.EqualFold(s, "none") {
			n++
		}
	}
	return n
}

func nonBlank(list []string) []string {
	var out []string
	for _, s := range list {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ─── Tracker ─────────────────────────────────────────────────────────────────

// Tracker stamps assessments with the time they were computed.
type Tracker struct {
	now func() time.Time
}

// NewTracker creates a Tracker using the wall clock.
func NewTracker() *Tracker {
	return &Tracker{now: time.Now}
}

// NewTrackerWithClock creates a Tracker with an injected clock.
func NewTrackerWithClock(now func() time.Time) *Tracker {
	return &Tracker{now: now}
}

// State returns the completeness state stored alongside a session.
func (t *Tracker) State(spec model.Specification) model.CompletenessState {
	a := Evaluate(spec)
	return model.CompletenessState{
		MissingSections: a.MissingSections,
		ReadyForHandoff: a.ReadyForHandoff,
		LastEvaluated:   t.now().UTC(),
	}
}

// Initial returns the completeness state of a brand-new session.
func (t *Tracker) Initial() model.CompletenessState {
	return model.CompletenessState{
		MissingSections: DefaultTopics(),
		LastEvaluated:   t.now().UTC(),
	}
}
