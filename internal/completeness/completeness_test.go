package completeness_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HendryAvila/specwright/internal/completeness"
	"github.com/HendryAvila/specwright/internal/model"
)

func specWithOverview(overview string, features ...string) model.Specification {
	s := model.EmptySpecification("s1", time.Time{})
	s.PlainSummary.Overview = overview
	s.PlainSummary.KeyFeatures = features
	return s
}

func TestClassify(t *testing.T) {
	tests := []struct {
		overview string
		features []string
		want     completeness.Archetype
	}{
		{"An online booking system for hair salons", nil, completeness.ArchetypeBooking},
		{"An e-commerce store for handmade jewelry", nil, completeness.ArchetypeEcommerce},
		{"A CRM to track leads for our sales team", nil, completeness.ArchetypeCRM},
		{"A mobile app for iOS and Android runners", nil, completeness.ArchetypeMobileApp},
		{"A website with a blog for my bakery", nil, completeness.ArchetypeWebsite},
		{"Something to help volunteers coordinate cleanups", nil, completeness.ArchetypeGeneric},
		{"A tool for studios", []string{"class reservations", "appointment reminders"}, completeness.ArchetypeBooking},
		{"", nil, completeness.ArchetypeGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.overview, func(t *testing.T) {
			assert.Equal(t, tt.want, completeness.Classify(specWithOverview(tt.overview, tt.features...)))
		})
	}
}

func TestArchetypeTopicsAreDisjoint(t *testing.T) {
	owner := make(map[string]completeness.Archetype)
	for _, t0 := range completeness.CoreTopics {
		owner[t0.ID] = "core"
	}
	for _, t0 := range completeness.ComplexityTopics {
		owner[t0.ID] = "complexity"
	}
	for a, topics := range completeness.ArchetypeTopics {
		for _, topic := range topics {
			prev, taken := owner[topic.ID]
			assert.False(t, taken, "topic %q of %s already belongs to %s", topic.ID, a, prev)
			owner[topic.ID] = a
		}
	}
}

func TestEvaluate_BookingAndEcommerceDiffer(t *testing.T) {
	booking := completeness.Evaluate(specWithOverview("An online booking system for a dog grooming salon"))
	shop := completeness.Evaluate(specWithOverview("An e-commerce shop selling dog grooming products"))

	require.Equal(t, completeness.ArchetypeBooking, booking.Archetype)
	require.Equal(t, completeness.ArchetypeEcommerce, shop.Archetype)
	assert.NotEmpty(t, booking.NonCoreTopicIDs())
	assert.NotEqual(t, booking.NonCoreTopicIDs(), shop.NonCoreTopicIDs())
}

func TestEvaluate_EmptySpecMissesDefaultTopics(t *testing.T) {
	a := completeness.Evaluate(model.EmptySpecification("s1", time.Time{}))
	assert.Equal(t, completeness.DefaultTopics(), a.MissingSections)
	assert.Equal(t, completeness.TierSimple, a.Tier)
	assert.Zero(t, a.Percentage)
	assert.False(t, a.ReadyForHandoff)
}

func TestEvaluate_InProgressCountsHalf(t *testing.T) {
	a := completeness.Evaluate(specWithOverview("Cleanup app"))
	// One of five core topics is in progress.
	assert.Equal(t, 10, a.Percentage)
}

func TestEvaluate_OptionalTopicsDoNotCount(t *testing.T) {
	s := specWithOverview("Something to help volunteers coordinate neighborhood cleanups")
	s.PlainSummary.DataEntities = []string{"volunteer", "event"}

	a := completeness.Evaluate(s)
	require.Equal(t, completeness.TierSimple, a.Tier)
	for _, topic := range a.Topics {
		if topic.ID == completeness.TopicDataRequirements {
			assert.False(t, topic.Required)
			assert.Equal(t, completeness.StatusComplete, topic.Status)
		}
	}
	assert.Equal(t, 20, a.Percentage)
}

func TestTierFor(t *testing.T) {
	assert.Equal(t, completeness.TierSimple, completeness.TierFor(0))
	assert.Equal(t, completeness.TierSimple, completeness.TierFor(4.5))
	assert.Equal(t, completeness.TierModerate, completeness.TierFor(5))
	assert.Equal(t, completeness.TierModerate, completeness.TierFor(11.5))
	assert.Equal(t, completeness.TierComplex, completeness.TierFor(12))
}

func TestComplexityScore(t *testing.T) {
	s := specWithOverview("x", "a", "b")
	s.PlainSummary.Integrations = []string{"Stripe", "none"}
	s.FormalDocument.Requirements = make([]model.Requirement, 3)
	s.FormalDocument.NonFunctionalRequirements = make([]model.NonFunctionalRequirement, 2)

	// 3*1 + 2*1.5 + 2*0.5 + 1*2
	assert.InDelta(t, 9.0, completeness.ComplexityScore(s), 0.001)

	a := completeness.Evaluate(s)
	assert.Equal(t, completeness.TierModerate, a.Tier)
	assert.Contains(t, a.NonCoreTopicIDs(), completeness.TopicIntegrations)
	assert.Contains(t, a.NonCoreTopicIDs(), completeness.TopicDataRequirements)
}

func readySpec() model.Specification {
	s := specWithOverview(
		"Something to help volunteers coordinate neighborhood cleanups",
		"sign up for an event", "invite neighbors", "log collected bags",
	)
	s.PlainSummary.TargetUsers = []string{"volunteer"}
	s.PlainSummary.UserFlows = []string{"join a cleanup"}
	s.PlainSummary.MVPScope = model.MVPScope{In: []string{"sign up"}, Out: []string{"donations"}}
	return s
}

func TestEvaluate_ReadyForHandoff(t *testing.T) {
	a := completeness.Evaluate(readySpec())
	assert.Empty(t, a.MissingSections)
	assert.Equal(t, 100, a.Percentage)
	assert.True(t, a.ReadyForHandoff)
}

func TestEvaluate_ConflictBlocksHandoff(t *testing.T) {
	s := readySpec()
	s.FormalDocument.Requirements = []model.Requirement{
		{ID: "REQ-001", AcceptanceCriteria: []string{"THE System SHALL share volunteer emails."}},
		{ID: "REQ-002", AcceptanceCriteria: []string{"THE System SHALL NOT share volunteer emails."}},
	}
	a := completeness.Evaluate(s)
	assert.Equal(t, 1, a.Conflicts)
	assert.False(t, a.ReadyForHandoff)
}

func TestEvaluate_Deterministic(t *testing.T) {
	s := specWithOverview("An online booking system with reminders and calendar sync", "book a slot")
	assert.Equal(t, completeness.Evaluate(s), completeness.Evaluate(s))
}

func TestTracker_StampsEvaluationTime(t *testing.T) {
	at := time.Date(2026, 5, 5, 10, 0, 0, 0, time.UTC)
	tr := completeness.NewTrackerWithClock(func() time.Time { return at })

	st := tr.State(readySpec())
	assert.True(t, st.ReadyForHandoff)
	assert.Empty(t, st.MissingSections)
	assert.Equal(t, at, st.LastEvaluated)

	fresh := tr.Initial()
	assert.Equal(t, completeness.DefaultTopics(), fresh.MissingSections)
}
