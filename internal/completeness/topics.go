// Package completeness decides, from specification content alone, which
// topics a project still has to cover and how far along it is.
//
// The required topic set adapts to the project:
//   - core topics are always required
//   - the complexity tier (from a weighted score over the specification)
//     adds data, integration, quality and security topics
//   - the project archetype (from a keyword classifier) adds its own topics
//
// Archetype topic lists are disjoint by construction. Everything here is a
// pure function of the specification, so evaluating the same input twice
// yields the same result.
package completeness

// Status is the coverage state of one topic.
type Status string

const (
	StatusNotStarted Status = "not-started"
	StatusInProgress Status = "in-progress"
	StatusComplete   Status = "complete"
)

// Source records why a topic is part of the checklist.
type Source string

const (
	SourceCore       Source = "core"
	SourceComplexity Source = "complexity"
	SourceArchetype  Source = "archetype"
)

// TopicDef describes one checklist topic.
type TopicDef struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	// Keywords are used by archetype and keyword-driven topics; a topic is
	// in progress with one matching keyword and complete with two.
	Keywords []string `json:"-"`
}

// Core topic identifiers.
const (
	TopicOverview    = "overview"
	TopicTargetUsers = "target_users"
	TopicKeyFeatures = "key_features"
	TopicUserFlows   = "user_flows"
	TopicMVPScope    = "mvp_scope"
)

// Complexity topic identifiers.
const (
	TopicDataRequirements   = "data_requirements"
	TopicIntegrations       = "integrations"
	TopicNonFunctional      = "non_functional"
	TopicSecurityCompliance = "security_compliance"
)

// CoreTopics are required for every project.
var CoreTopics = []TopicDef{
	{ID: TopicOverview, Name: "Overview", Description: "What is the idea, in a paragraph?"},
	{ID: TopicTargetUsers, Name: "Target users", Description: "Who will use the product?"},
	{ID: TopicKeyFeatures, Name: "Key features", Description: "What must the product do?"},
	{ID: TopicUserFlows, Name: "User flows", Description: "How do users move through the main tasks?"},
	{ID: TopicMVPScope, Name: "MVP scope", Description: "What is in and out of the first release?"},
}

// ComplexityTopics are added as the project's complexity tier rises.
var ComplexityTopics = []TopicDef{
	{ID: TopicDataRequirements, Name: "Data requirements", Description: "What information does the product store?"},
	{ID: TopicIntegrations, Name: "Integrations", Description: "Which outside systems does it talk to?"},
	{ID: TopicNonFunctional, Name: "Quality requirements", Description: "How fast, available and scalable must it be?"},
	{
		ID: TopicSecurityCompliance, Name: "Security and compliance",
		Description: "Who may see what, and which regulations apply?",
		Keywords:    []string{"security", "secure", "privacy", "gdpr", "hipaa", "pci", "encrypt", "permission", "role", "compliance", "consent"},
	},
}

// Tier is a complexity band.
type Tier string

const (
	TierSimple   Tier = "simple"
	TierModerate Tier = "moderate"
	TierComplex  Tier = "complex"
)

// TierTopics maps each tier to the complexity topics it requires.
var TierTopics = map[Tier][]string{
	TierSimple:   {},
	TierModerate: {TopicDataRequirements, TopicIntegrations},
	TierComplex:  {TopicDataRequirements, TopicIntegrations, TopicNonFunctional, TopicSecurityCompliance},
}

// ArchetypeTopics holds the topics each archetype adds. IDs never repeat
// across archetypes.
var ArchetypeTopics = map[Archetype][]TopicDef{
	ArchetypeBooking: {
		{ID: "scheduling", Name: "Scheduling", Description: "How are time slots defined and booked?",
			Keywords: []string{"schedul", "slot", "calendar", "time", "duration"}},
		{ID: "availability_rules", Name: "Availability rules", Description: "When can and can't people book?",
			Keywords: []string{"availab", "opening hours", "holiday", "buffer", "cancel", "overlap"}},
		{ID: "booking_notifications", Name: "Booking notifications", Description: "Who is told about bookings, and how?",
			Keywords: []string{"remind", "notif", "confirm", "sms", "email"}},
	},
	ArchetypeEcommerce: {
		{ID: "product_catalog", Name: "Product catalog", Description: "What is sold and how is it organized?",
			Keywords: []string{"product", "catalog", "inventory", "sku", "categor", "stock"}},
		{ID: "payments", Name: "Payments", Description: "How do customers pay?",
			Keywords: []string{"pay", "checkout", "stripe", "paypal", "card", "refund"}},
		{ID: "order_fulfillment", Name: "Order fulfillment", Description: "How do orders reach customers?",
			Keywords: []string{"ship", "deliver", "fulfil", "pickup", "return", "tracking"}},
	},
	ArchetypeCRM: {
		{ID: "contact_management", Name: "Contact management", Description: "Which people and companies are tracked?",
			Keywords: []string{"contact", "lead", "client", "company", "companies"}},
		{ID: "sales_pipeline", Name: "Sales pipeline", Description: "How do deals progress?",
			Keywords: []string{"pipeline", "deal", "opportunit", "forecast", "stage", "quote"}},
		{ID: "crm_reporting", Name: "CRM reporting", Description: "What does management need to see?",
			Keywords: []string{"report", "dashboard", "analytic", "metric", "kpi"}},
	},
	ArchetypeMobileApp: {
		{ID: "platforms", Name: "Platforms", Description: "Which devices and stores are targeted?",
			Keywords: []string{"ios", "android", "iphone", "tablet", "platform", "app store"}},
		{ID: "offline_support", Name: "Offline support", Description: "What works without a connection?",
			Keywords: []string{"offline", "sync", "connectivity", "cache"}},
		{ID: "push_notifications", Name: "Push notifications", Description: "What does the app push to users?",
			Keywords: []string{"push", "badge", "alert"}},
	},
	ArchetypeWebsite: {
		{ID: "content_pages", Name: "Content pages", Description: "Which pages exist and who edits them?",
			Keywords: []string{"page", "about", "blog", "content", "homepage"}},
		{ID: "seo", Name: "Search visibility", Description: "How will people find the site?",
			Keywords: []string{"seo", "search engine", "google", "keyword", "meta"}},
		{ID: "hosting", Name: "Hosting", Description: "Where does the site live and who maintains it?",
			Keywords: []string{"host", "domain", "deploy", "cms", "wordpress"}},
	},
	ArchetypeGeneric: {},
}

// DefaultTopics returns the missing-section list of a brand-new session.
func DefaultTopics() []string {
	ids := make([]string, len(CoreTopics))
	for i, t := range CoreTopics {
		ids[i] = t.ID
	}
	return ids
}
