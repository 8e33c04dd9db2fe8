package pipeline

import (
	"fmt"
	"strings"

	"github.com/HendryAvila/specwright/internal/model"
)

// Checkpoint names.
const (
	CheckpointProblemStatement = "problem_statement"
	CheckpointUsersAndScope    = "users_and_scope"
	CheckpointRequirements     = "requirements"
	CheckpointFinalDocument    = "final_document"
)

// checkpointOnEntry names the checkpoint locked when a stage is entered.
var checkpointOnEntry = map[Stage]string{
	StageDiscovery:  CheckpointProblemStatement,
	StageRefinement: CheckpointUsersAndScope,
	StageValidation: CheckpointRequirements,
	StageCompletion: CheckpointFinalDocument,
}

// checkpointStage is the reverse of checkpointOnEntry.
var checkpointStage = func() map[string]Stage {
	m := make(map[string]Stage, len(checkpointOnEntry))
	for st, name := range checkpointOnEntry {
		m[name] = st
	}
	return m
}()

// CheckpointNames lists checkpoints in the order they are reached.
func CheckpointNames() []string {
	var names []string
	for _, st := range StageOrder {
		if name, ok := checkpointOnEntry[st]; ok {
			names = append(names, name)
		}
	}
	return names
}

// Transition returns the checkpoints to append when the conversation moves
// from prev to next. Nothing is returned for a non-forward move or when the
// checkpoint is already held. When a turn skips stages, each stage entered
// locks its own checkpoint.
func Transition(prev, next Stage, spec model.Specification, history []model.Message, locked []model.LockedSection) []model.LockedSection {
	from, to := StageIndex(prev), StageIndex(next)
	if to <= from {
		return nil
	}

	held := make(map[string]bool)
	for _, l := range Active(locked) {
		held[l.Name] = true
	}

	now := timeNow().UTC()
	var out []model.LockedSection
	for i := from + 1; i <= to; i++ {
		st := StageOrder[i]
		name, ok := checkpointOnEntry[st]
		if !ok || held[name] {
			continue
		}
		held[name] = true
		out = append(out, model.LockedSection{
			ID:       checkpointID(name, locked, out),
			Name:     name,
			Summary:  Summarize(name, spec, history),
			Stage:    string(st),
			LockedAt: now,
		})
	}
	return out
}

// Redo re-opens a checkpoint at the user's request. The old entry stays in
// the log; the returned checkpoint supersedes it. It fails when no active
// checkpoint has the given name.
func Redo(locked []model.LockedSection, name string, spec model.Specification, history []model.Message) (model.LockedSection, error) {
	var current *model.LockedSection
	active := Active(locked)
	for i := range active {
		if active[i].Name == name {
			current = &active[i]
		}
	}
	if current == nil {
		return model.LockedSection{}, fmt.Errorf("no locked section named %q to redo", name)
	}
	return model.LockedSection{
		ID:         checkpointID(name, locked),
		Name:       name,
		Summary:    Summarize(name, spec, history),
		Stage:      current.Stage,
		LockedAt:   timeNow().UTC(),
		Supersedes: current.ID,
	}, nil
}

// Active returns the checkpoints that have not been superseded, in log order.
func Active(locked []model.LockedSection) []model.LockedSection {
	superseded := make(map[string]bool)
	for _, l := range locked {
		if l.Supersedes != "" {
			superseded[l.Supersedes] = true
		}
	}
	var out []model.LockedSection
	for _, l := range locked {
		if !superseded[l.ID] {
			out = append(out, l)
		}
	}
	return out
}

// LockedStage returns the furthest stage held by an active checkpoint.
func LockedStage(locked []model.LockedSection) Stage {
	best := -1
	for _, l := range Active(locked) {
		if i := StageIndex(checkpointStage[l.Name]); i > best {
			best = i
		}
	}
	if best < 0 {
		return ""
	}
	return StageOrder[best]
}

func checkpointID(name string, logs ...[]model.LockedSection) string {
	n := 1
	for _, log := range logs {
		for _, l := range log {
			if l.Name == name {
				n++
			}
		}
	}
	return fmt.Sprintf("%s-%d", name, n)
}

// Summarize renders the settled facts behind a checkpoint.
func Summarize(name string, spec model.Specification, history []model.Message) string {
	p := spec.PlainSummary
	switch name {
	case CheckpointProblemStatement:
		if p.Overview != "" {
			return p.Overview
		}
		for _, m := range history {
			if m.Role == model.RoleUser && strings.TrimSpace(m.Content) != "" {
				return strings.TrimSpace(m.Content)
			}
		}
		return "No problem statement captured yet."
	case CheckpointUsersAndScope:
		var parts []string
		if len(p.TargetUsers) > 0 {
			parts = append(parts, "Users: "+strings.Join(p.TargetUsers, ", "))
		}
		if len(p.MVPScope.In) > 0 {
			parts = append(parts, "In scope: "+strings.Join(p.MVPScope.In, ", "))
		}
		if len(p.MVPScope.Out) > 0 {
			parts = append(parts, "Out of scope: "+strings.Join(p.MVPScope.Out, ", "))
		}
		if len(parts) == 0 {
			return "Users and scope not stated yet."
		}
		return strings.Join(parts, ". ") + "."
	case CheckpointRequirements:
		reqs := spec.FormalDocument.Requirements
		if len(reqs) == 0 {
			return "No requirements yet."
		}
		titles := make([]string, len(reqs))
		for i, r := range reqs {
			titles[i] = r.ID + " " + r.Title
		}
		return fmt.Sprintf("%d requirements: %s.", len(reqs), strings.Join(titles, "; "))
	case CheckpointFinalDocument:
		return fmt.Sprintf("Specification version %d with %d requirements and %d quality requirements accepted for handoff.",
			spec.Version, len(spec.FormalDocument.Requirements), len(spec.FormalDocument.NonFunctionalRequirements))
	default:
		return ""
	}
}
