package ledger

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/HendryAvila/specwright/internal/model"
)

// UserIntent is the free-form description of what the business owner wants.
// Every field is optional.
type UserIntent struct {
	Overview      string   `json:"overview,omitempty"`
	TargetUsers   []string `json:"target_users,omitempty"`
	Features      []string `json:"features,omitempty"`
	Workflows     []string `json:"workflows,omitempty"`
	BusinessRules []string `json:"business_rules,omitempty"`
	Integrations  []string `json:"integrations,omitempty"`
	DataEntities  []string `json:"data_entities,omitempty"`
	NonFunctional []string `json:"non_functional,omitempty"`
	MVPIn         []string `json:"mvp_in,omitempty"`
	MVPOut        []string `json:"mvp_out,omitempty"`
}

// introFallback is used until an overview has been captured.
const introFallback = "This document captures the requirements gathered so far."

// Title and criterion prefixes that GeneratePlainSummary reads back.
const (
	includedPrefix           = "Included in first release: "
	excludedPrefix           = "Excluded from first release: "
	integrationPurposePrefix = "THE System SHALL use "
)

// GenerateFormalDocument synthesizes the formal view from an intent and the
// conversation so far. Every feature yields at least one requirement, and
// every acceptance criterion is worded in EARS form.
func GenerateFormalDocument(intent UserIntent, history []model.Message) model.FormalDocument {
	actor := primaryActor(intent.TargetUsers)
	doc := model.FormalDocument{
		Introduction: introduction(intent),
		Glossary:     glossary(intent),
	}

	var reqs []model.Requirement
	add := func(title, story string, criteria []string) {
		reqs = append(reqs, model.Requirement{
			ID:                 fmt.Sprintf("REQ-%03d", len(reqs)+1),
			Title:              title,
			UserStory:          story,
			AcceptanceCriteria: criteria,
		})
	}

	for _, f := range nonBlank(intent.Features) {
		add(titleCase(f), userStory(actor, f), featureCriteria(actor, f))
	}
	for _, flow := range nonBlank(intent.Workflows) {
		add("Flow: "+titleCase(flow), userStory(actor, "complete the "+flow+" flow"), []string{
			fmt.Sprintf("WHEN a %s starts the %s flow, THE System SHALL present each step in order.", actor, flow),
			fmt.Sprintf("IF a %s leaves the %s flow before finishing, THE System SHALL keep the steps already completed.", actor, flow),
		})
	}
	if rules := nonBlank(intent.BusinessRules); len(rules) > 0 {
		criteria := make([]string, len(rules))
		for i, r := range rules {
			criteria[i] = "THE System SHALL enforce the rule: " + strings.TrimSuffix(r, ".") + "."
		}
		add("Business rules", "As the business owner, I want the product to follow my business rules, so that operations stay consistent.", criteria)
	}
	for _, entry := range nonBlank(intent.Integrations) {
		name, purpose := splitIntegration(entry)
		if strings.EqualFold(name, "none") {
			continue
		}
		story := userStory(actor, "use "+name+" through the product")
		criteria := []string{
			fmt.Sprintf("WHEN the System exchanges data with %s, THE System SHALL record the outcome of each exchange.", name),
			fmt.Sprintf("IF %s is unavailable, THE System SHALL inform the %s and retain any data entered.", name, actor),
		}
		if purpose != "" {
			story = userStory(actor, "use "+name+" for "+purpose)
			criteria = append([]string{integrationPurposePrefix + name + " for " + purpose + "."}, criteria...)
		}
		add("Integration with "+name, story, criteria)
	}
	for _, item := range nonBlank(intent.MVPIn) {
		add(includedPrefix+item, "As the business owner, I want the first release to cover what matters most, so that it is useful from day one.", []string{
			fmt.Sprintf("THE System SHALL include %s in the first release.", lowerFirst(strings.TrimSuffix(item, "."))),
		})
	}
	for _, item := range nonBlank(intent.MVPOut) {
		add(excludedPrefix+item, "As the business owner, I want the first release kept focused, so that it ships sooner.", []string{
			fmt.Sprintf("THE System SHALL NOT include %s in the first release.", lowerFirst(strings.TrimSuffix(item, "."))),
		})
	}
	doc.Requirements = reqs
	doc.NonFunctionalRequirements = nonFunctionalRequirements(intent.NonFunctional, history)
	return doc
}

func introduction(intent UserIntent) string {
	overview := strings.TrimSpace(intent.Overview)
	if overview == "" {
		return introFallback
	}
	var b strings.Builder
	b.WriteString(overview)
	users := nonBlank(intent.TargetUsers)
	if len(users) > 0 {
		b.WriteString("\n\nThe System is intended for: ")
		b.WriteString(strings.Join(users, ", "))
		b.WriteString(".")
	}
	return b.String()
}

func glossary(intent UserIntent) []model.GlossaryTerm {
	terms := []model.GlossaryTerm{{Term: "System", Definition: "The product described by this document."}}
	seen := map[string]bool{"system": true}
	for _, u := range nonBlank(intent.TargetUsers) {
		if key := strings.ToLower(u); !seen[key] {
			seen[key] = true
			terms = append(terms, model.GlossaryTerm{Term: titleCase(u), Definition: "A person who uses the System as " + u + "."})
		}
	}
	for _, e := range nonBlank(intent.DataEntities) {
		if key := strings.ToLower(e); !seen[key] {
			seen[key] = true
			terms = append(terms, model.GlossaryTerm{Term: titleCase(e), Definition: "A " + e + " record stored and managed by the System."})
		}
	}
	return terms
}

// ─── Feature templates ───────────────────────────────────────────────────────

// featureTemplate maps recognizable feature wording to concrete criteria.
type featureTemplate struct {
	keywords []string
	criteria func(actor, feature string) []string
}

var featureTemplates = []featureTemplate{
	{
		keywords: []string{"login", "log in", "sign in", "signin", "sign-in", "authentication", "account"},
		criteria: func(actor, _ string) []string {
			return []string{
				fmt.Sprintf("WHEN a %s submits valid credentials, THE System SHALL authenticate the %s and start a session.", actor, actor),
				fmt.Sprintf("IF a %s submits invalid credentials, THE System SHALL reject the attempt and show an error message.", actor),
				fmt.Sprintf("WHEN a %s logs out, THE System SHALL end the session.", actor),
			}
		},
	},
	{
		keywords: []string{"search", "filter", "find"},
		criteria: func(actor, _ string) []string {
			return []string{
				fmt.Sprintf("WHEN a %s submits a search query, THE System SHALL display the matching results.", actor),
				"IF a search returns no matches, THE System SHALL tell the user that nothing was found.",
			}
		},
	},
	{
		keywords: []string{"book", "reservation", "appointment", "schedul"},
		criteria: func(actor, _ string) []string {
			return []string{
				fmt.Sprintf("WHEN a %s selects an available time slot, THE System SHALL reserve the slot and confirm the booking.", actor),
				"IF a selected time slot is no longer available, THE System SHALL offer the nearest available alternatives.",
				fmt.Sprintf("WHEN a %s cancels a booking, THE System SHALL release the time slot.", actor),
			}
		},
	},
	{
		keywords: []string{"pay", "checkout", "billing", "invoice", "subscription"},
		criteria: func(actor, _ string) []string {
			return []string{
				fmt.Sprintf("WHEN a %s confirms a payment, THE System SHALL charge the selected payment method and issue a receipt.", actor),
				"IF a payment is declined, THE System SHALL leave the order unpaid and show the reason to the user.",
			}
		},
	},
	{
		keywords: []string{"cart", "basket"},
		criteria: func(actor, _ string) []string {
			return []string{
				fmt.Sprintf("WHEN a %s adds an item to the cart, THE System SHALL update the cart total.", actor),
				fmt.Sprintf("WHILE a %s has items in the cart, THE System SHALL keep the cart between visits.", actor),
			}
		},
	},
	{
		keywords: []string{"notif", "remind", "alert", "email"},
		criteria: func(actor, _ string) []string {
			return []string{
				fmt.Sprintf("WHEN a relevant event occurs, THE System SHALL send a notification to the affected %s.", actor),
				fmt.Sprintf("WHERE a %s has turned notifications off, THE System SHALL not send that %s notifications.", actor, actor),
			}
		},
	},
	{
		keywords: []string{"upload", "photo", "image", "file", "document"},
		criteria: func(actor, _ string) []string {
			return []string{
				fmt.Sprintf("WHEN a %s uploads a file, THE System SHALL store the file and show it in the list of uploads.", actor),
				"IF an uploaded file exceeds the size limit, THE System SHALL reject the file and state the limit.",
			}
		},
	},
	{
		keywords: []string{"report", "dashboard", "analytics", "statistics"},
		criteria: func(actor, _ string) []string {
			return []string{
				fmt.Sprintf("WHEN a %s opens the dashboard, THE System SHALL display the current figures for the selected period.", actor),
			}
		},
	},
}

func featureCriteria(actor, feature string) []string {
	for _, tpl := range featureTemplates {
		if containsAnyWord(feature, tpl.keywords) {
			return tpl.criteria(actor, feature)
		}
	}
	action := lowerFirst(strings.TrimSuffix(feature, "."))
	return []string{
		fmt.Sprintf("THE System SHALL allow a %s to %s.", actor, action),
		fmt.Sprintf("WHEN a %s completes the action \"%s\", THE System SHALL confirm the result.", actor, action),
	}
}

func userStory(actor, feature string) string {
	return fmt.Sprintf("As a %s, I want to %s, so that I can get value from the product.", actor, lowerFirst(strings.TrimSuffix(feature, ".")))
}

func primaryActor(users []string) string {
	for _, u := range users {
		if u = strings.TrimSpace(u); u != "" {
			return strings.ToLower(u)
		}
	}
	return "user"
}

// ─── Non-functional requirements ─────────────────────────────────────────────

type qualityCategory struct {
	name        string
	keywords    []string
	description string
	criteria    string
}

var qualityCategories = []qualityCategory{
	{
		name:        "Performance",
		keywords:    []string{"fast", "speed", "quick", "performance", "performant", "latency", "responsive", "slow", "lag"},
		description: "Performance: pages and actions respond without noticeable delay.",
		criteria:    "THE System SHALL respond to 95% of user requests within 2 seconds.",
	},
	{
		name:        "Security",
		keywords:    []string{"secure", "security", "privacy", "private", "encrypt", "gdpr", "hipaa", "password"},
		description: "Security: personal and business data is protected from unauthorized access.",
		criteria:    "THE System SHALL encrypt personal data in transit and at rest.",
	},
	{
		name:        "Scalability",
		keywords:    []string{"scale", "scalable", "growth", "grow", "thousands", "millions", "concurrent"},
		description: "Scalability: the product keeps working as the number of users grows.",
		criteria:    "THE System SHALL support ten times the expected launch load without degraded response times.",
	},
	{
		name:        "Availability",
		keywords:    []string{"uptime", "available", "availability", "24/7", "reliable", "reliability", "downtime"},
		description: "Availability: the product is reachable whenever users need it.",
		criteria:    "THE System SHALL be available 99.9% of each calendar month.",
	},
	{
		name:        "Usability",
		keywords:    []string{"easy", "simple", "intuitive", "user-friendly", "accessible", "accessibility"},
		description: "Usability: a first-time user can complete the main tasks unaided.",
		criteria:    "WHEN a first-time user opens the product, THE System SHALL let them complete the primary flow without assistance.",
	},
	{
		name:        "Compatibility",
		keywords:    []string{"mobile", "phone", "tablet", "browser", "ios", "android"},
		description: "Compatibility: the product works on the devices the users already own.",
		criteria:    "THE System SHALL support the current versions of major mobile and desktop browsers.",
	},
}

func (c qualityCategory) matches(text string) bool {
	return strings.TrimSpace(text) == c.description || containsAnyWord(text, c.keywords)
}

// userTexts returns what users said, oldest first.
func userTexts(history []model.Message) []string {
	var out []string
	for _, m := range history {
		if m.Role == model.RoleUser {
			out = append(out, m.Content)
		}
	}
	return out
}

// QualityNotes returns a plain description for every quality category users
// raised in conversation that no note in notes already covers.
func QualityNotes(notes []string, history []model.Message) []string {
	var out []string
	for _, c := range qualityCategories {
		if anyMatch(c, notes) || !anyMatch(c, userTexts(history)) {
			continue
		}
		out = append(out, c.description)
	}
	return out
}

func anyMatch(c qualityCategory, texts []string) bool {
	for _, t := range texts {
		if c.matches(t) {
			return true
		}
	}
	return false
}

// nonFunctionalRequirements mines quality attributes from explicit notes and
// from what users said in the conversation. Each category appears once.
func nonFunctionalRequirements(notes []string, history []model.Message) []model.NonFunctionalRequirement {
	texts := append(append([]string(nil), notes...), userTexts(history)...)

	var out []model.NonFunctionalRequirement
	add := func(category, description, criteria string) {
		out = append(out, model.NonFunctionalRequirement{
			ID:          fmt.Sprintf("NFR-%03d", len(out)+1),
			Category:    category,
			Description: description,
			Criteria:    criteria,
		})
	}
	for _, c := range qualityCategories {
		if anyMatch(c, texts) {
			add(c.name, c.description, c.criteria)
		}
	}
	// Notes that match no known category are kept verbatim.
	for _, n := range nonBlank(notes) {
		matched := false
		for _, c := range qualityCategories {
			if c.matches(n) {
				matched = true
				break
			}
		}
		if !matched {
			add("General", n, "THE System SHALL satisfy the following quality constraint: "+strings.TrimSuffix(n, ".")+".")
		}
	}
	return out
}

// ─── Text helpers ────────────────────────────────────────────────────────────

var wordSplit = regexp.MustCompile(`[^a-z0-9/\-]+`)

// containsAnyWord reports whether text contains any keyword as a whole word
// or as a word prefix ("notif" matches "notifications").
func containsAnyWord(text string, keywords []string) bool {
	words := wordSplit.Split(strings.ToLower(text), -1)
	for _, kw := range keywords {
		if strings.Contains(kw, " ") {
			if strings.Contains(strings.ToLower(text), kw) {
				return true
			}
			continue
		}
		for _, w := range words {
			if w != "" && strings.HasPrefix(w, kw) {
				return true
			}
		}
	}
	return false
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

// splitIntegration splits a "Name: purpose" entry.
func splitIntegration(entry string) (name, purpose string) {
	name, purpose, _ = strings.Cut(entry, ":")
	return strings.TrimSpace(name), strings.TrimSpace(purpose)
}

func titleCase(s string) string {
	return mapFirst(s, unicode.ToUpper)
}

func lowerFirst(s string) string {
	return mapFirst(s, unicode.ToLower)
}

// mapFirst applies f to the first rune of the trimmed s.
func mapFirst(s string, f func(rune) rune) string {
	s = strings.TrimSpace(s)
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 || r == utf8.RuneError {
		return s
	}
	return string(f(r)) + s[size:]
}
