package templates

import (
	"strings"
	"testing"
	"time"

	"github.com/HendryAvila/specwright/internal/model"
)

// --- NewRenderer ---

func TestNewRenderer_Succeeds(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer() failed: %v", err)
	}
	if r == nil {
		t.Fatal("NewRenderer() returned nil")
	}
}

// --- Render: IntakeSystem ---

func TestRender_IntakeSystem(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	data := IntakeData{
		Stage:   "discovery",
		Focus:   "target_users",
		Missing: []string{"target_users", "user_flows"},
		Summary: model.PlainSummary{
			Overview:    "A booking site for dog groomers.",
			KeyFeatures: []string{"online booking", "reminders"},
		},
		Locked: []model.LockedSection{{Name: "problem_statement", Summary: "Groomers lose bookings by phone."}},
		Topics: []string{"overview", "target_users"},
	}

	result, err := r.Render(IntakeSystem, data)
	if err != nil {
		t.Fatalf("Render(IntakeSystem) failed: %v", err)
	}

	checks := []string{
		"Conversation stage: discovery",
		"Next topic to explore: target_users",
		"Topics still missing: target_users, user_flows",
		"- problem_statement: Groomers lose bookings by phone.",
		"Overview: A booking site for dog groomers.",
		"- online booking\n- reminders",
		"Allowed topics: overview, target_users.",
		"```json",
	}
	for _, check := range checks {
		if !strings.Contains(result, check) {
			t.Errorf("IntakeSystem missing %q", check)
		}
	}
}

func TestRender_IntakeSystem_EmptyState(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	result, err := r.Render(IntakeSystem, IntakeData{Stage: "initial"})
	if err != nil {
		t.Fatalf("Render(IntakeSystem) failed: %v", err)
	}
	if strings.Contains(result, "Next topic to explore") {
		t.Error("empty focus should be omitted")
	}
	if strings.Contains(result, "Settled decisions") {
		t.Error("no locked sections should be listed")
	}
	if !strings.Contains(result, "_Not yet discussed._") {
		t.Error("empty lists should render a placeholder")
	}
}

// --- Render: Specification ---

func TestRender_Specification(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	spec := model.EmptySpecification("s1", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	spec.Version = 3
	spec.PlainSummary.Overview = "Pet sitting marketplace."
	spec.PlainSummary.MVPScope.Out = []string{"mobile app"}
	spec.FormalDocument.Introduction = "Pet sitting marketplace."
	spec.FormalDocument.Glossary = []model.GlossaryTerm{{Term: "System", Definition: "The product."}}
	spec.FormalDocument.Requirements = []model.Requirement{{
		ID:                 "REQ-001",
		Title:              "Login",
		UserStory:          "As an owner, I want to log in, so that my pets are saved.",
		AcceptanceCriteria: []string{"THE System SHALL authenticate users.", "WHEN login fails, THE System SHALL show an error."},
	}}
	spec.FormalDocument.NonFunctionalRequirements = []model.NonFunctionalRequirement{{
		ID: "NFR-001", Category: "Performance", Description: "Fast pages.", Criteria: "THE System SHALL respond within 2 seconds.",
	}}

	result, err := r.Render(Specification, SpecificationData{
		SessionID: "s1", Stage: "refinement", Percentage: 60, Missing: []string{"user_flows"}, Spec: spec,
	})
	if err != nil {
		t.Fatalf("Render(Specification) failed: %v", err)
	}

	checks := []string{
		"# Specification s1 (version 3)",
		"Stage: refinement | Coverage: 60%",
		"Still missing: user_flows",
		"Out of scope:\n- mobile app",
		"- **System**: The product.",
		"### REQ-001 Login",
		"1. THE System SHALL authenticate users.",
		"2. WHEN login fails, THE System SHALL show an error.",
		"## Non-functional requirements",
		"### NFR-001 Performance",
		"Fast pages.\n\nTHE System SHALL respond within 2 seconds.",
	}
	for _, check := range checks {
		if !strings.Contains(result, check) {
			t.Errorf("Specification missing %q\n%s", check, result)
		}
	}
}

func TestRender_UnknownTemplate(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	if _, err := r.Render("nope.tmpl", nil); err == nil {
		t.Fatal("expected error for unknown template")
	}
}
