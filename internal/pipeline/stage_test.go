package pipeline

import (
	"strings"
	"testing"
	"time"

	"github.com/HendryAvila/specwright/internal/model"
)

var frozen = time.Date(2026, 2, 20, 12, 0, 0, 0, time.UTC)

func init() {
	// Freeze time for deterministic tests.
	timeNow = func() time.Time { return frozen }
}

// --- StageIndex ---

func TestStageIndex_AllStages(t *testing.T) {
	for want, st := range StageOrder {
		if got := StageIndex(st); got != want {
			t.Errorf("StageIndex(%s) = %d, want %d", st, got, want)
		}
	}
	if got := StageIndex("banana"); got != -1 {
		t.Errorf("StageIndex(unknown) = %d, want -1", got)
	}
}

// --- DetermineStage ---

func TestDetermineStage(t *testing.T) {
	tests := []struct {
		name string
		snap Snapshot
		want Stage
	}{
		{"no messages", Snapshot{}, StageInitial},
		{"one message no spec", Snapshot{MessageCount: 1}, StageInitial},
		{"conversation without spec", Snapshot{MessageCount: 4}, StageDiscovery},
		{"version zero", Snapshot{MessageCount: 4, HasSpecification: true}, StageDiscovery},
		{"many missing", Snapshot{MessageCount: 6, HasSpecification: true, SpecVersion: 2, MissingSections: 8}, StageDiscovery},
		{"some missing", Snapshot{MessageCount: 8, HasSpecification: true, SpecVersion: 5, MissingSections: 4}, StageRefinement},
		{"few missing", Snapshot{MessageCount: 12, HasSpecification: true, SpecVersion: 9, MissingSections: 2}, StageValidation},
		{"complete but not ready", Snapshot{MessageCount: 12, HasSpecification: true, SpecVersion: 9}, StageValidation},
		{
			"ready at floor",
			Snapshot{MessageCount: DefaultMinMessages, HasSpecification: true, SpecVersion: 9, ReadyForHandoff: true},
			StageCompletion,
		},
		{
			"ready below floor",
			Snapshot{MessageCount: DefaultMinMessages - 1, HasSpecification: true, SpecVersion: 9, ReadyForHandoff: true},
			StageValidation,
		},
		{
			"checkpoint floor",
			Snapshot{MessageCount: 14, HasSpecification: true, SpecVersion: 10, MissingSections: 7, LockedStage: StageValidation},
			StageValidation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetermineStage(tt.snap); got != tt.want {
				t.Errorf("DetermineStage(%+v) = %s, want %s", tt.snap, got, tt.want)
			}
		})
	}
}

func TestRules_CustomFloor(t *testing.T) {
	r := DefaultRules()
	r.MinMessages = 3
	snap := Snapshot{MessageCount: 3, HasSpecification: true, SpecVersion: 1, ReadyForHandoff: true}
	if got := r.Determine(snap); got != StageCompletion {
		t.Errorf("Determine = %s, want completion", got)
	}
}

// --- Checkpoints ---

func specWithOverview(overview string) model.Specification {
	s := model.EmptySpecification("s1", frozen)
	s.Version = 3
	s.PlainSummary.Overview = overview
	s.PlainSummary.TargetUsers = []string{"tutor"}
	return s
}

func TestTransition_ForwardLocksOne(t *testing.T) {
	spec := specWithOverview("Marketplace for tutors.")
	got := Transition(StageInitial, StageDiscovery, spec, nil, nil)
	if len(got) != 1 {
		t.Fatalf("got %d checkpoints, want 1", len(got))
	}
	l := got[0]
	if l.Name != CheckpointProblemStatement || l.ID != "problem_statement-1" {
		t.Errorf("checkpoint = %+v", l)
	}
	if l.Summary != "Marketplace for tutors." {
		t.Errorf("Summary = %q", l.Summary)
	}
	if !l.LockedAt.Equal(frozen) || l.Stage != string(StageDiscovery) {
		t.Errorf("LockedAt/Stage = %v/%s", l.LockedAt, l.Stage)
	}
}

func TestTransition_SkippedStagesEachLock(t *testing.T) {
	got := Transition(StageInitial, StageValidation, specWithOverview("x"), nil, nil)
	var names []string
	for _, l := range got {
		names = append(names, l.Name)
	}
	want := []string{CheckpointProblemStatement, CheckpointUsersAndScope, CheckpointRequirements}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("names = %v, want %v", names, want)
	}
}

func TestTransition_NoBackwardOrRepeat(t *testing.T) {
	spec := specWithOverview("x")
	if got := Transition(StageRefinement, StageDiscovery, spec, nil, nil); got != nil {
		t.Errorf("backward transition locked %v", got)
	}
	if got := Transition(StageDiscovery, StageDiscovery, spec, nil, nil); got != nil {
		t.Errorf("same-stage transition locked %v", got)
	}

	held := Transition(StageInitial, StageDiscovery, spec, nil, nil)
	if got := Transition(StageInitial, StageDiscovery, spec, nil, held); len(got) != 0 {
		t.Errorf("held checkpoint locked again: %v", got)
	}
}

func TestRedo_AppendsAndSupersedes(t *testing.T) {
	first := Transition(StageInitial, StageDiscovery, specWithOverview("Tutoring app."), nil, nil)

	redo, err := Redo(first, CheckpointProblemStatement, specWithOverview("Tutoring marketplace for high schools."), nil)
	if err != nil {
		t.Fatalf("Redo: %v", err)
	}
	if redo.Supersedes != first[0].ID {
		t.Errorf("Supersedes = %q, want %q", redo.Supersedes, first[0].ID)
	}
	if redo.ID == first[0].ID {
		t.Errorf("redo reused id %q", redo.ID)
	}

	log := append(first, redo)
	active := Active(log)
	if len(active) != 1 || active[0].Summary != "Tutoring marketplace for high schools." {
		t.Errorf("Active = %+v", active)
	}
	if len(log) != 2 {
		t.Errorf("log length = %d, old checkpoint must stay", len(log))
	}

	// A second redo supersedes the first redo, not the original.
	again, err := Redo(log, CheckpointProblemStatement, specWithOverview("v3"), nil)
	if err != nil {
		t.Fatalf("Redo again: %v", err)
	}
	if again.Supersedes != redo.ID {
		t.Errorf("Supersedes = %q, want %q", again.Supersedes, redo.ID)
	}
}

func TestRedo_UnknownCheckpoint(t *testing.T) {
	if _, err := Redo(nil, CheckpointRequirements, specWithOverview("x"), nil); err == nil {
		t.Fatal("expected error for a checkpoint that was never locked")
	}
}

func TestLockedStage(t *testing.T) {
	if got := LockedStage(nil); got != "" {
		t.Errorf("LockedStage(nil) = %q", got)
	}
	locked := Transition(StageInitial, StageRefinement, specWithOverview("x"), nil, nil)
	if got := LockedStage(locked); got != StageRefinement {
		t.Errorf("LockedStage = %s, want refinement", got)
	}
}

func TestSummarize_ProblemStatementFallsBackToFirstUserMessage(t *testing.T) {
	history := []model.Message{
		{Role: model.RoleAssistant, Content: "What are you building?"},
		{Role: model.RoleUser, Content: "  An app for dog walkers  "},
	}
	got := Summarize(CheckpointProblemStatement, model.Specification{}, history)
	if got != "An app for dog walkers" {
		t.Errorf("Summarize = %q", got)
	}
}

func TestCheckpointNames(t *testing.T) {
	want := "problem_statement,users_and_scope,requirements,final_document"
	if got := strings.Join(CheckpointNames(), ","); got != want {
		t.Errorf("CheckpointNames = %s", got)
	}
}
