// Package ledger builds and checks specification versions.
//
// A specification has two views of the same facts: the plain summary a
// business owner reads and the formal requirements document an engineering
// team works from. The ledger keeps them in lock-step by treating the plain
// summary as the source of each fact and deriving the formal document from
// it on every update, so a fact can never sit in one view only.
//
// Every call to Update yields a new value with the version bumped by one.
// Inputs are never modified; the session store persists each result as an
// immutable version record.
package ledger

import (
	"strings"

	"github.com/HendryAvila/specwright/internal/model"
)

// Update applies one extraction to current and returns the next version.
// Quality concerns users raised in history are written to the summary too.
//
// A nil current is treated as an empty specification at version 0, so the
// first update always produces version 1. The returned specification keeps
// current's ID; with a nil current the ID is empty and the caller assigns it.
func Update(current *model.Specification, ex Extracted, history []model.Message) *model.Specification {
	var next model.Specification
	if current != nil {
		next = current.Clone()
	}

	applyPayload(&next.PlainSummary, ex.Data)
	next.PlainSummary.NonFunctional = mergeUnique(next.PlainSummary.NonFunctional,
		QualityNotes(next.PlainSummary.NonFunctional, history))
	next.FormalDocument = GenerateFormalDocument(IntentFromSummary(next.PlainSummary), history)
	next.Version++
	next.LastUpdated = timeNow().UTC()
	return &next
}

// applyPayload merges one payload into the summary. A nil payload changes
// nothing but the update still counts as a version.
func applyPayload(p *model.PlainSummary, data Payload) {
	switch d := data.(type) {
	case OverviewData:
		if text := strings.TrimSpace(d.Text); text != "" {
			p.Overview = text
		}
	case UsersData:
		p.TargetUsers = mergeUnique(p.TargetUsers, d.Users)
	case FeaturesData:
		p.KeyFeatures = mergeUnique(p.KeyFeatures, d.Features)
	case WorkflowsData:
		p.UserFlows = mergeUnique(p.UserFlows, d.Flows)
	case RulesData:
		p.BusinessRules = mergeUnique(p.BusinessRules, d.Rules)
	case IntegrationData:
		p.Integrations = mergeIntegration(p.Integrations, d)
	case DataEntitiesData:
		p.DataEntities = mergeUnique(p.DataEntities, d.Entities)
	case NonFunctionalData:
		p.NonFunctional = mergeUnique(p.NonFunctional, d.Notes)
	case ScopeData:
		// The latest statement about an item wins: moving it in removes it
		// from the out list and vice versa.
		p.MVPScope.Out = removeAll(p.MVPScope.Out, d.In)
		p.MVPScope.In = removeAll(p.MVPScope.In, d.Out)
		p.MVPScope.In = mergeUnique(p.MVPScope.In, d.In)
		p.MVPScope.Out = mergeUnique(p.MVPScope.Out, d.Out)
	case nil:
	}
}

// IntentFromSummary lifts a plain summary into the input of
// GenerateFormalDocument.
func IntentFromSummary(p model.PlainSummary) UserIntent {
	return UserIntent{
		Overview:      p.Overview,
		TargetUsers:   p.TargetUsers,
		Features:      p.KeyFeatures,
		Workflows:     p.UserFlows,
		BusinessRules: p.BusinessRules,
		Integrations:  p.Integrations,
		DataEntities:  p.DataEntities,
		NonFunctional: p.NonFunctional,
		MVPIn:         p.MVPScope.In,
		MVPOut:        p.MVPScope.Out,
	}
}

func mergeIntegration(existing []string, d IntegrationData) []string {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return existing
	}
	entry := name
	if purpose := strings.TrimSpace(d.Purpose); purpose != "" {
		entry = name + ": " + purpose
	}
	out := make([]string, 0, len(existing)+1)
	replaced := false
	for _, e := range existing {
		if strings.EqualFold(integrationName(e), name) {
			// Keep the richer description.
			if !replaced && len(entry) >= len(e) {
				out = append(out, entry)
			} else {
				out = append(out, e)
			}
			replaced = true
			continue
		}
		out = append(out, e)
	}
	if !replaced {
		out = append(out, entry)
	}
	return out
}

// integrationName returns the name part of a "Name: purpose" entry.
func integrationName(entry string) string {
	name, _ := splitIntegration(entry)
	return name
}

// mergeUnique appends the non-blank items of add that are not already in
// existing (case-insensitive), preserving order.
func mergeUnique(existing, add []string) []string {
	seen := make(map[string]bool, len(existing)+len(add))
	out := make([]string, 0, len(existing)+len(add))
	for _, list := range [][]string{existing, add} {
		for _, item := range list {
			item = strings.TrimSpace(item)
			key := strings.ToLower(item)
			if item == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, item)
		}
	}
	return out
}

func removeAll(list, drop []string) []string {
	if len(drop) == 0 {
		return list
	}
	dropped := make(map[string]bool, len(drop))
	for _, d := range drop {
		dropped[strings.ToLower(strings.TrimSpace(d))] = true
	}
	var out []string
	for _, item := range list {
		if !dropped[strings.ToLower(strings.TrimSpace(item))] {
			out = append(out, item)
		}
	}
	return out
}
