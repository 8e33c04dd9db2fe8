package model

import "time"

// Specification is one version of the document pair produced for a session.
// ID always equals the owning session's ID. Every accepted update produces a
// new value with Version incremented by one.
type Specification struct {
	ID             string         `json:"id" yaml:"id"`
	Version        int            `json:"version" yaml:"version"`
	PlainSummary   PlainSummary   `json:"plain_summary" yaml:"plain_summary"`
	FormalDocument FormalDocument `json:"formal_document" yaml:"formal_document"`
	LastUpdated    time.Time      `json:"last_updated" yaml:"last_updated"`
}

// PlainSummary is the plain-language view of a specification.
type PlainSummary struct {
	Overview      string   `json:"overview" yaml:"overview"`
	TargetUsers   []string `json:"target_users" yaml:"target_users"`
	KeyFeatures   []string `json:"key_features" yaml:"key_features"`
	UserFlows     []string `json:"user_flows" yaml:"user_flows"`
	BusinessRules []string `json:"business_rules" yaml:"business_rules"`
	Integrations  []string `json:"integrations" yaml:"integrations"`
	DataEntities  []string `json:"data_entities" yaml:"data_entities"`
	NonFunctional []string `json:"non_functional" yaml:"non_functional"`
	MVPScope      MVPScope `json:"mvp_scope" yaml:"mvp_scope"`
}

// MVPScope lists what is in and out of the first release.
type MVPScope struct {
	In  []string `json:"in" yaml:"in"`
	Out []string `json:"out" yaml:"out"`
}

// FormalDocument is the formally worded view of a specification.
type FormalDocument struct {
	Introduction              string                     `json:"introduction" yaml:"introduction"`
	Glossary                  []GlossaryTerm             `json:"glossary" yaml:"glossary"`
	Requirements              []Requirement              `json:"requirements" yaml:"requirements"`
	NonFunctionalRequirements []NonFunctionalRequirement `json:"non_functional_requirements" yaml:"non_functional_requirements"`
}

// GlossaryTerm defines one domain word.
type GlossaryTerm struct {
	Term       string `json:"term" yaml:"term"`
	Definition string `json:"definition" yaml:"definition"`
}

// Requirement is a functional requirement with EARS acceptance criteria.
type Requirement struct {
	ID                 string   `json:"id" yaml:"id"`
	Title              string   `json:"title" yaml:"title"`
	UserStory          string   `json:"user_story" yaml:"user_story"`
	AcceptanceCriteria []string `json:"acceptance_criteria" yaml:"acceptance_criteria"`
}

// NonFunctionalRequirement is a quality attribute with a measurable criterion.
type NonFunctionalRequirement struct {
	ID          string `json:"id" yaml:"id"`
	Category    string `json:"category" yaml:"category"`
	Description string `json:"description" yaml:"description"`
	Criteria    string `json:"criteria" yaml:"criteria"`
}

// EmptySpecification returns the version-0 specification of a session.
func EmptySpecification(sessionID string, at time.Time) Specification {
	return Specification{
		ID:          sessionID,
		Version:     0,
		LastUpdated: at,
	}
}

// Clone returns a deep copy of s so callers can derive a new version without
// touching the original.
func (s Specification) Clone() Specification {
	out := s
	p := &out.PlainSummary
	p.TargetUsers = cloneStrings(s.PlainSummary.TargetUsers)
	p.KeyFeatures = cloneStrings(s.PlainSummary.KeyFeatures)
	p.UserFlows = cloneStrings(s.PlainSummary.UserFlows)
	p.BusinessRules = cloneStrings(s.PlainSummary.BusinessRules)
	p.Integrations = cloneStrings(s.PlainSummary.Integrations)
	p.DataEntities = cloneStrings(s.PlainSummary.DataEntities)
	p.NonFunctional = cloneStrings(s.PlainSummary.NonFunctional)
	p.MVPScope.In = cloneStrings(s.PlainSummary.MVPScope.In)
	p.MVPScope.Out = cloneStrings(s.PlainSummary.MVPScope.Out)

	f := &out.FormalDocument
	if s.FormalDocument.Glossary != nil {
		f.Glossary = append([]GlossaryTerm(nil), s.FormalDocument.Glossary...)
	}
	if s.FormalDocument.Requirements != nil {
		f.Requirements = make([]Requirement, len(s.FormalDocument.Requirements))
		for i, r := range s.FormalDocument.Requirements {
			r.AcceptanceCriteria = cloneStrings(r.AcceptanceCriteria)
			f.Requirements[i] = r
		}
	}
	if s.FormalDocument.NonFunctionalRequirements != nil {
		f.NonFunctionalRequirements = append([]NonFunctionalRequirement(nil), s.FormalDocument.NonFunctionalRequirements...)
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}
