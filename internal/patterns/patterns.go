// Package patterns defines the per-field extraction rule sets used by
// the extraction engine. Each field carries an ordered list of rules;
// position encodes precedence. Structural rules (structured data,
// scoped selectors, document metadata attributes) come before free-text
// regex rules, which come before the loosest catch-all patterns,
// because structural signals have far lower false-positive rates than
// a regex matching anywhere on the page.
package patterns

import (
	"regexp"
	"strconv"
	"strings"
)

// Field identifies one attribute of a program record.
type Field string

const (
	FieldTitle           Field = "title"
	FieldInstitution     Field = "institution"
	FieldTuition         Field = "tuition"
	FieldDeadline        Field = "deadline"
	FieldDuration        Field = "duration"
	FieldLocation        Field = "location"
	FieldTestRequirement Field = "test_requirement"
	FieldDescription     Field = "description"
)

// Kind tags the rule variant so the evaluator can dispatch
// exhaustively instead of duck-typing on which members are set.
type Kind string

const (
	// KindStructured reads author-declared machine-readable metadata
	// (JSON-LD, microdata). Highest trust.
	KindStructured Kind = "structured"
	// KindSelector reads the text content of the first element
	// matching a CSS selector.
	KindSelector Kind = "selector"
	// KindAttribute reads a named attribute of the first element
	// matching a CSS selector.
	KindAttribute Kind = "attribute"
	// KindRegex matches a pattern against page text.
	KindRegex Kind = "regex"
)

// Rule is one candidate extraction strategy for a field. Priority is
// implicit in its position within the field's rule list.
type Rule struct {
	Kind      Kind
	Selector  string
	Attribute string
	Pattern   *regexp.Regexp
	// Group selects a capture group from Pattern; 0 takes the whole
	// match.
	Group int
	// Plausible rejects matches that are syntactically valid but make
	// no sense for the field (a "$50" banner price is not tuition).
	// Nil means every match is accepted.
	Plausible func(string) bool
}

// MatchText applies a regex rule to text and returns the selected
// group of the first plausible match, or "" when nothing acceptable
// matches. Non-regex rules always return "".
func (r Rule) MatchText(text string) string {
	if r.Kind != KindRegex || r.Pattern == nil {
		return ""
	}
	for _, groups := range r.Pattern.FindAllStringSubmatch(text, 10) {
		if r.Group >= len(groups) {
			continue
		}
		candidate := strings.TrimSpace(groups[r.Group])
		if candidate == "" {
			continue
		}
		if r.Plausible != nil && !r.Plausible(candidate) {
			continue
		}
		return candidate
	}
	return ""
}

// Tuition amounts outside this range are treated as unrelated dollar
// figures (application fees, banner ads, endowment totals).
const (
	minPlausibleTuition = 1000
	maxPlausibleTuition = 200000
)

var amountRe = regexp.MustCompile(`[\d][\d,]*`)

// PlausibleTuition reports whether the first numeric amount in s falls
// in the accepted tuition range.
func PlausibleTuition(s string) bool {
	raw := amountRe.FindString(s)
	if raw == "" {
		return false
	}
	amount, err := strconv.Atoi(strings.ReplaceAll(raw, ",", ""))
	if err != nil {
		return false
	}
	return amount >= minPlausibleTuition && amount <= maxPlausibleTuition
}

// plausibleLocation filters out comma matches that are too short to be
// a place or long enough to be a sentence fragment.
func plausibleLocation(s string) bool {
	return len(s) > 5 && len(s) < 50
}

var ruleSets = map[Field][]Rule{
	FieldTitle: {
		{Kind: KindStructured},
		{Kind: KindSelector, Selector: "h1"},
		{Kind: KindSelector, Selector: ".program-title, .course-title, .degree-title"},
		{Kind: KindSelector, Selector: `[class*="title"], [class*="heading"]`},
		{Kind: KindSelector, Selector: "h2"},
	},
	FieldInstitution: {
		{Kind: KindStructured},
		{Kind: KindAttribute, Selector: `meta[property="og:site_name"]`, Attribute: "content"},
		{Kind: KindSelector, Selector: ".university-name, .site-title"},
		{Kind: KindSelector, Selector: `[class*="university"], [class*="school"]`},
		{Kind: KindSelector, Selector: `header h1, header [class*="brand"]`},
		{Kind: KindAttribute, Selector: ".logo img", Attribute: "alt"},
		{Kind: KindRegex, Pattern: regexp.MustCompile(`([A-Z][A-Za-z.&' ]+(?:University|College|Institute))`), Group: 1},
	},
	FieldTuition: {
		{Kind: KindSelector, Selector: `[class*="tuition"], [class*="cost"], [class*="fee"]`},
		{Kind: KindRegex, Pattern: regexp.MustCompile(`(?i)\$[\d,]+(?:\.\d{2})?\s*(?:per year|annually|/year|per annum)`), Plausible: PlausibleTuition},
		{Kind: KindRegex, Pattern: regexp.MustCompile(`(?i)tuition[:\s]+\$[\d,]+(?:\.\d{2})?`), Plausible: PlausibleTuition},
		{Kind: KindRegex, Pattern: regexp.MustCompile(`(?i)\$[\d,]+(?:\.\d{2})?\s*(?:tuition|fees?)`), Plausible: PlausibleTuition},
		{Kind: KindRegex, Pattern: regexp.MustCompile(`\$[\d,]+(?:\.\d{2})?`), Plausible: PlausibleTuition},
	},
	FieldDeadline: {
		{Kind: KindSelector, Selector: `[class*="deadline"]`},
		{Kind: KindRegex, Pattern: regexp.MustCompile(`(?i)(?:deadline|apply by|due)[:\s]+([A-Za-z]+ \d{1,2}(?:, \d{4})?)`), Group: 1},
		{Kind: KindRegex, Pattern: regexp.MustCompile(`(?i)([A-Za-z]+ \d{1,2}(?:, \d{4})?)[:\s]*(?:deadline|due)`), Group: 1},
		{Kind: KindRegex, Pattern: regexp.MustCompile(`(January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2}(?:, \d{4})?`)},
	},
	FieldDuration: {
		{Kind: KindSelector, Selector: `[class*="duration"], [class*="length"]`},
		{Kind: KindRegex, Pattern: regexp.MustCompile(`(?i)\d+(?:\.\d+)?\s*(?:years?|yrs?)`)},
		{Kind: KindRegex, Pattern: regexp.MustCompile(`(?i)\d+\s*semesters?`)},
		{Kind: KindRegex, Pattern: regexp.MustCompile(`(?i)(?:one|two|three|four|five|six)\s*years?`)},
	},
	FieldLocation: {
		{Kind: KindStructured},
		{Kind: KindSelector, Selector: ".location, .address, .campus, .city"},
		{Kind: KindSelector, Selector: `[class*="location"], [class*="campus"]`},
		{Kind: KindRegex, Pattern: regexp.MustCompile(`([A-Z][a-zA-Z]+(?: [A-Z][a-zA-Z]+)*, [A-Z]{2})\b`), Group: 1, Plausible: plausibleLocation},
	},
	FieldDescription: {
		{Kind: KindStructured},
		{Kind: KindAttribute, Selector: `meta[name="description"]`, Attribute: "content"},
		{Kind: KindAttribute, Selector: `meta[property="og:description"]`, Attribute: "content"},
		{Kind: KindSelector, Selector: `.program-description, [class*="description"]`},
	},
}

// Rules returns the ordered rule list for a field. The returned slice
// is shared; callers must not modify it.
func Rules(field Field) []Rule {
	return ruleSets[field]
}

// AllFields lists every extractable field in record order.
func AllFields() []Field {
	return []Field{
		FieldTitle, FieldInstitution, FieldTuition, FieldDeadline,
		FieldDuration, FieldLocation, FieldTestRequirement, FieldDescription,
	}
}
