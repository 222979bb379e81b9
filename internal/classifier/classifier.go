// Package classifier tags free-text queries with a type, matched pattern
// categories, and a confidence. Classification is a pure function over the
// query text: no I/O, no state, identical input always yields identical
// output.
package classifier

import (
	"regexp"
	"sort"

	"github.com/omnisearch/omnisearch/internal/search"
)

// Category is one named pattern group evaluated against queries.
type Category struct {
	Name       string
	Confidence float64
	patterns   []*regexp.Regexp
}

// Classifier evaluates categories in a fixed priority order.
type Classifier struct {
	categories []Category
	// suggestions maps a category name to the providers the routing layer
	// declares for that condition, surfaced as the classification's
	// suggested provider list.
	suggestions map[string][]string
}

// TypeGeneral is assigned when no category matches.
const TypeGeneral = "general"

// generalConfidence applies when nothing matched.
const generalConfidence = 0.5

// builtinConfidence fixes the confidence per well-known category. Categories
// supplied through configuration that are not named here score 0.7.
var builtinConfidence = map[string]float64{
	"url":               0.9,
	"technical":         0.8,
	"news":              0.8,
	"privacy_sensitive": 0.8,
}

const customConfidence = 0.7

// categoryPriority fixes the evaluation order of well-known categories.
// Custom categories follow the built-ins, alphabetically, so the order is
// total and deterministic.
var categoryPriority = []string{"url", "technical", "news", "privacy_sensitive"}

// builtinPatterns back the well-known categories when configuration defines
// no query_analysis section (or omits a category).
var builtinPatterns = map[string][]string{
	"url":               {`https?://\S+`, `\bwww\.\S+\.\S+`, `\b\S+\.(com|org|net|io|dev|gov|edu)(/\S*)?\b`},
	"technical":         {`\b(golang|python|rust|javascript|typescript|kubernetes|docker|api|sdk|compiler|stack trace|segfault)\b`, `\berror code\b`, `\bhow (do|to) .*(code|program|implement|debug)\b`},
	"news":              {`\b(news|latest|breaking|today|headline|announcement)\b`, `\bwhat happened\b`},
	"privacy_sensitive": {`\b(medical|health|diagnosis|salary|ssn|passport)\b`, `\bmy (address|password|account)\b`},
}

// New builds a classifier from configured pattern categories. Configured
// categories replace the built-in patterns of the same name; built-ins with no
// configured counterpart remain active. Patterns are case-insensitive and
// match any substring of the query. Patterns were validated at config load,
// so compilation cannot fail here.
func New(configured map[string][]string, suggestions map[string][]string) *Classifier {
	merged := make(map[string][]string, len(builtinPatterns)+len(configured))
	for name, patterns := range builtinPatterns {
		merged[name] = patterns
	}
	for name, patterns := range configured {
		merged[name] = patterns
	}

	names := orderedNames(merged)
	categories := make([]Category, 0, len(names))
	for _, name := range names {
		confidence, ok := builtinConfidence[name]
		if !ok {
			confidence = customConfidence
		}
		cat := Category{Name: name, Confidence: confidence}
		for _, pattern := range merged[name] {
			cat.patterns = append(cat.patterns, regexp.MustCompile("(?i)"+pattern))
		}
		categories = append(categories, cat)
	}

	return &Classifier{categories: categories, suggestions: suggestions}
}

// orderedNames returns category names with the well-known priority order
// first, then any remaining categories alphabetically.
func orderedNames(categories map[string][]string) []string {
	seen := make(map[string]bool, len(categories))
	names := make([]string, 0, len(categories))
	for _, name := range categoryPriority {
		if _, ok := categories[name]; ok {
			names = append(names, name)
			seen[name] = true
		}
	}
	var rest []string
	for name := range categories {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(names, rest...)
}

// Classify evaluates every category against the query. The first matching
// category (in priority order) sets the primary type and confidence; every
// matching category is recorded as a tag.
func (c *Classifier) Classify(query string) search.Classification {
	classification := search.Classification{
		Type:       TypeGeneral,
		Confidence: generalConfidence,
	}

	for _, cat := range c.categories {
		if !cat.matches(query) {
			continue
		}
		classification.Matched = append(classification.Matched, cat.Name)
		if classification.Type == TypeGeneral {
			classification.Type = cat.Name
			classification.Confidence = cat.Confidence
		}
	}

	if suggested, ok := c.suggestions[classification.Type]; ok {
		classification.Suggested = append([]string(nil), suggested...)
	}
	return classification
}

func (cat Category) matches(query string) bool {
	for _, re := range cat.patterns {
		if re.MatchString(query) {
			return true
		}
	}
	return false
}
