package ledger

import (
	"strings"

	"github.com/HendryAvila/specwright/internal/model"
)

const (
	userDefinitionPrefix   = "A person who uses the System as "
	entityDefinitionSuffix = " record stored and managed by the System."
	rulePrefix             = "THE System SHALL enforce the rule: "
)

// GeneratePlainSummary reads a formal document back into plain language.
// The summary never lists more features than the document has requirements,
// and lists none only when the document has no requirements.
func GeneratePlainSummary(doc model.FormalDocument) model.PlainSummary {
	var p model.PlainSummary

	if intro := strings.TrimSpace(doc.Introduction); intro != introFallback {
		overview, _, _ := strings.Cut(intro, "\n\n")
		p.Overview = strings.TrimSpace(overview)
	}

	for _, g := range doc.Glossary {
		switch {
		case strings.HasPrefix(g.Definition, userDefinitionPrefix):
			user := strings.TrimSuffix(strings.TrimPrefix(g.Definition, userDefinitionPrefix), ".")
			p.TargetUsers = mergeUnique(p.TargetUsers, []string{user})
		case strings.HasSuffix(g.Definition, entityDefinitionSuffix):
			entity := strings.TrimPrefix(strings.TrimSuffix(g.Definition, entityDefinitionSuffix), "A ")
			p.DataEntities = mergeUnique(p.DataEntities, []string{entity})
		}
	}

	var all []string
	for _, r := range doc.Requirements {
		all = mergeUnique(all, []string{r.Title})
		switch {
		case strings.HasPrefix(r.Title, "Flow: "):
			p.UserFlows = mergeUnique(p.UserFlows, []string{lowerFirst(strings.TrimPrefix(r.Title, "Flow: "))})
		case strings.HasPrefix(r.Title, "Integration with "):
			p.Integrations = mergeUnique(p.Integrations, []string{integrationEntry(r)})
		case strings.HasPrefix(r.Title, includedPrefix):
			p.MVPScope.In = mergeUnique(p.MVPScope.In, []string{strings.TrimPrefix(r.Title, includedPrefix)})
		case strings.HasPrefix(r.Title, excludedPrefix):
			p.MVPScope.Out = mergeUnique(p.MVPScope.Out, []string{strings.TrimPrefix(r.Title, excludedPrefix)})
		case r.Title == "Business rules":
			for _, c := range r.AcceptanceCriteria {
				p.BusinessRules = mergeUnique(p.BusinessRules, []string{strings.TrimSuffix(strings.TrimPrefix(c, rulePrefix), ".")})
			}
		default:
			p.KeyFeatures = mergeUnique(p.KeyFeatures, []string{r.Title})
		}
	}
	if len(p.KeyFeatures) == 0 && len(all) > 0 {
		p.KeyFeatures = all
	}

	for _, n := range doc.NonFunctionalRequirements {
		p.NonFunctional = mergeUnique(p.NonFunctional, []string{n.Description})
	}
	return p
}

// integrationEntry rebuilds "Name: purpose" from an integration requirement.
func integrationEntry(r model.Requirement) string {
	name := strings.TrimPrefix(r.Title, "Integration with ")
	if len(r.AcceptanceCriteria) == 0 {
		return name
	}
	lead := integrationPurposePrefix + name + " for "
	if c := r.AcceptanceCriteria[0]; strings.HasPrefix(c, lead) {
		return name + ": " + strings.TrimSuffix(strings.TrimPrefix(c, lead), ".")
	}
	return name
}
