package completeness

import (
	"regexp"
	"strings"

	"github.com/HendryAvila/specwright/internal/model"
)

// Archetype is a broad project category.
type Archetype string

const (
	ArchetypeBooking   Archetype = "booking"
	ArchetypeEcommerce Archetype = "ecommerce"
	ArchetypeCRM       Archetype = "crm"
	ArchetypeMobileApp Archetype = "mobile_app"
	ArchetypeWebsite   Archetype = "website"
	ArchetypeGeneric   Archetype = "generic"
)

// archetypeOrder is the tie-break order when two archetypes score equally.
var archetypeOrder = []Archetype{
	ArchetypeBooking, ArchetypeEcommerce, ArchetypeCRM, ArchetypeMobileApp, ArchetypeWebsite,
}

var archetypeKeywords = map[Archetype][]string{
	ArchetypeBooking:   {"booking", "book", "reservation", "reserve", "appointment", "schedul", "salon", "clinic"},
	ArchetypeEcommerce: {"e-commerce", "ecommerce", "shop", "store", "storefront", "cart", "checkout", "marketplace", "sell"},
	ArchetypeCRM:       {"crm", "customer relationship", "lead", "sales pipeline", "deal", "prospect"},
	ArchetypeMobileApp: {"mobile app", "ios", "android", "iphone", "app store", "smartphone"},
	ArchetypeWebsite:   {"website", "web site", "landing page", "blog", "portfolio", "homepage"},
}

// Classify maps the overview and feature text to an archetype. Text that
// matches nothing is generic.
func Classify(spec model.Specification) Archetype {
	text := strings.Join(append([]string{spec.PlainSummary.Overview}, spec.PlainSummary.KeyFeatures...), " ")
	best, bestScore := ArchetypeGeneric, 0
	for _, a := range archetypeOrder {
		if s := countMatches(text, archetypeKeywords[a]); s > bestScore {
			best, bestScore = a, s
		}
	}
	return best
}

var wordSplit = regexp.MustCompile(`[^a-z0-9\-]+`)

// countMatches counts how many keywords occur in text. Single-word
// keywords match word prefixes; phrases match as substrings.
func countMatches(text string, keywords []string) int {
	lower := strings.ToLower(text)
	words := wordSplit.Split(lower, -1)
	n := 0
	for _, kw := range keywords {
		if strings.Contains(kw, " ") {
			if strings.Contains(lower, kw) {
				n++
			}
			continue
		}
		for _, w := range words {
			if w != "" && strings.HasPrefix(w, kw) {
				n++
				break
			}
		}
	}
	return n
}
