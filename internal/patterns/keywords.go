package patterns

import (
	"regexp"
	"strings"
)

// fieldKeywords associates each field with the words that mark a
// sentence as relevant to it. The semantic filter keeps only sentences
// containing at least one keyword before the regex rules run, which
// cuts false positives from amounts and dates elsewhere on the page.
var fieldKeywords = map[Field][]string{
	FieldTuition:         {"tuition", "cost", "fee", "fees", "per year", "annually"},
	FieldDeadline:        {"deadline", "apply", "due", "priority", "admission"},
	FieldDuration:        {"duration", "year", "years", "semester", "semesters", "full-time", "part-time", "length"},
	FieldLocation:        {"located", "location", "campus", "city"},
	FieldTestRequirement: {"gre", "gmat", "test", "score"},
}

// Keywords returns the relevance keyword set for a field, or nil when
// the field has no semantic narrowing (title, institution and
// description rely on structure, not sentences).
func Keywords(field Field) []string {
	return fieldKeywords[field]
}

// testMentionRe needs word boundaries: "degree" contains "gre".
var testMentionRe = regexp.MustCompile(`\b(?:gre|gmat)\b`)

// TestRequirement classifies the page's standardized-test stance from
// a keyword scan of the full lowercased page text. Returns "" when the
// page says nothing about tests.
func TestRequirement(lowerText string) string {
	switch {
	case containsAny(lowerText, "gre not required", "gre optional", "no gre", "gmat not required", "gmat optional"):
		return "Not required"
	case containsAny(lowerText, "gre required", "gre score", "gmat required", "gmat score"):
		return "Required"
	case testMentionRe.MatchString(lowerText):
		return "Check requirements"
	}
	return ""
}

func containsAny(text string, terms ...string) bool {
	for _, term := range terms {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}
