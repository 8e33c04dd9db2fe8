package ledger

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/HendryAvila/specwright/internal/model"
)

// Core checklist topic identifiers used by Validate.
const (
	CheckOverview      = "overview"
	CheckUsers         = "users"
	CheckFeatures      = "features"
	CheckIntegrations  = "integrations"
	CheckData          = "data"
	CheckWorkflows     = "workflows"
	CheckNonFunctional = "non_functional"
)

// Finding points at one requirement (or scope item) with a problem.
type Finding struct {
	ID     string `json:"id"`
	Detail string `json:"detail"`
}

// Report is the result of Validate.
type Report struct {
	IsComplete              bool      `json:"is_complete"`
	MissingTopics           []string  `json:"missing_topics"`
	AmbiguousRequirements   []Finding `json:"ambiguous_requirements"`
	ConflictingRequirements []Finding `json:"conflicting_requirements"`
}

var coreChecklist = []struct {
	id      string
	present func(model.Specification) bool
}{
	{CheckOverview, func(s model.Specification) bool { return strings.TrimSpace(s.PlainSummary.Overview) != "" }},
	{CheckUsers, func(s model.Specification) bool { return len(nonBlank(s.PlainSummary.TargetUsers)) > 0 }},
	{CheckFeatures, func(s model.Specification) bool { return len(nonBlank(s.PlainSummary.KeyFeatures)) > 0 }},
	{CheckIntegrations, func(s model.Specification) bool { return len(nonBlank(s.PlainSummary.Integrations)) > 0 }},
	{CheckData, func(s model.Specification) bool { return len(nonBlank(s.PlainSummary.DataEntities)) > 0 }},
	{CheckWorkflows, func(s model.Specification) bool { return len(nonBlank(s.PlainSummary.UserFlows)) > 0 }},
	{CheckNonFunctional, func(s model.Specification) bool {
		return len(nonBlank(s.PlainSummary.NonFunctional)) > 0 || len(s.FormalDocument.NonFunctionalRequirements) > 0
	}},
}

// vagueTerms are words that make a requirement impossible to verify.
var vagueTerms = []string{
	"fast", "quick", "quickly", "easy", "easily", "user-friendly", "intuitive",
	"simple", "flexible", "efficient", "robust", "seamless", "etc", "various",
	"several", "some", "many", "appropriate", "adequate", "as needed", "and/or", "tbd",
}

// Validate checks a specification against the core checklist and looks for
// ambiguous and conflicting requirements. It is pure.
func Validate(spec model.Specification) Report {
	r := Report{
		MissingTopics:           []string{},
		AmbiguousRequirements:   []Finding{},
		ConflictingRequirements: []Finding{},
	}
	for _, c := range coreChecklist {
		if !c.present(spec) {
			r.MissingTopics = append(r.MissingTopics, c.id)
		}
	}

	for _, req := range spec.FormalDocument.Requirements {
		text := strings.Join(append([]string{req.Title, req.UserStory}, req.AcceptanceCriteria...), "\n")
		if terms := vagueIn(text); len(terms) > 0 {
			r.AmbiguousRequirements = append(r.AmbiguousRequirements, Finding{
				ID:     req.ID,
				Detail: "unmeasurable wording: " + strings.Join(terms, ", "),
			})
		}
	}
	for _, nfr := range spec.FormalDocument.NonFunctionalRequirements {
		if terms := vagueIn(nfr.Criteria); len(terms) > 0 {
			r.AmbiguousRequirements = append(r.AmbiguousRequirements, Finding{
				ID:     nfr.ID,
				Detail: "unmeasurable wording: " + strings.Join(terms, ", "),
			})
		}
	}

	r.ConflictingRequirements = append(r.ConflictingRequirements, scopeConflicts(spec.PlainSummary.MVPScope)...)
	r.ConflictingRequirements = append(r.ConflictingRequirements, shallConflicts(spec.FormalDocument.Requirements)...)

	r.IsComplete = len(r.MissingTopics) == 0 &&
		len(r.AmbiguousRequirements) == 0 &&
		len(r.ConflictingRequirements) == 0
	return r
}

func vagueIn(text string) []string {
	lower := strings.ToLower(text)
	words := make(map[string]bool)
	for _, w := range wordSplit.Split(lower, -1) {
		words[w] = true
	}
	var terms []string
	for _, t := range vagueTerms {
		if strings.Contains(t, " ") {
			if strings.Contains(lower, t) {
				terms = append(terms, t)
			}
			continue
		}
		if words[t] {
			terms = append(terms, t)
		}
	}
	return terms
}

func scopeConflicts(scope model.MVPScope) []Finding {
	out := make(map[string]bool)
	for _, o := range scope.Out {
		out[strings.ToLower(strings.TrimSpace(o))] = true
	}
	var findings []Finding
	for _, in := range scope.In {
		if out[strings.ToLower(strings.TrimSpace(in))] {
			findings = append(findings, Finding{
				ID:     "mvp_scope",
				Detail: fmt.Sprintf("%q is both in and out of the first release", in),
			})
		}
	}
	return findings
}

var shallClause = regexp.MustCompile(`SHALL( NOT)? (.+)$`)

// shallConflicts finds pairs of criteria where one requirement demands what
// another forbids.
func shallConflicts(reqs []model.Requirement) []Finding {
	must := make(map[string]string)
	mustNot := make(map[string]string)
	for _, req := range reqs {
		for _, c := range req.AcceptanceCriteria {
			m := shallClause.FindStringSubmatch(c)
			if m == nil {
				continue
			}
			pred := normalizePredicate(m[2])
			if m[1] != "" {
				if _, ok := mustNot[pred]; !ok {
					mustNot[pred] = req.ID
				}
			} else if _, ok := must[pred]; !ok {
				must[pred] = req.ID
			}
		}
	}

	var findings []Finding
	for _, req := range reqs {
		for _, c := range req.AcceptanceCriteria {
			m := shallClause.FindStringSubmatch(c)
			if m == nil || m[1] == "" {
				continue
			}
			pred := normalizePredicate(m[2])
			if other, ok := must[pred]; ok && mustNot[pred] == req.ID {
				findings = append(findings, Finding{
					ID:     req.ID,
					Detail: fmt.Sprintf("forbids %q, which %s requires", pred, other),
				})
				delete(must, pred)
			}
		}
	}
	return findings
}

func normalizePredicate(p string) string {
	p = strings.ToLower(strings.TrimSpace(p))
	p = strings.TrimSuffix(p, ".")
	p = strings.TrimSuffix(p, " in the first release")
	return strings.Join(strings.Fields(p), " ")
}
