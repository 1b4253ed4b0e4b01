// Package normalize provides text cleanup utilities shared by the
// extraction pipeline and the record store. All functions are pure and
// total: they never fail, and at worst return the capped or unchanged
// input.
package normalize

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
)

// MaxFieldLength caps normalized field values. Malformed pages can
// produce selector matches spanning most of the document; anything
// longer than this is noise, not a field value.
const MaxFieldLength = 200

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	wordNumberRe = regexp.MustCompile(`(?i)\b(one|two|three|four|five|six)\b`)

	wordDigits = map[string]string{
		"one": "1", "two": "2", "three": "3",
		"four": "4", "five": "5", "six": "6",
	}

	foldCaser = cases.Fold()
)

// Normalize collapses runs of whitespace to single spaces, trims the
// result, and caps it at MaxFieldLength characters.
func Normalize(text string) string {
	cleaned := strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
	runes := []rune(cleaned)
	if len(runes) > MaxFieldLength {
		return string(runes[:MaxFieldLength])
	}
	return cleaned
}

// WordToDigit replaces spelled-out small numbers ("one" through "six")
// with digits, case-insensitively. All other text is left untouched.
func WordToDigit(text string) string {
	return wordNumberRe.ReplaceAllStringFunc(text, func(match string) string {
		return wordDigits[strings.ToLower(match)]
	})
}

// Fold returns a case-folded form of s suitable for case-insensitive
// comparison, e.g. when computing a (title, institution) dedup key.
func Fold(s string) string {
	return foldCaser.String(strings.TrimSpace(s))
}

// StripSiteSuffix cuts a document title at the first " | " or " - "
// separator. Page titles routinely append the site name after one of
// these separators ("MS in Data Science | Example University").
func StripSiteSuffix(title string) string {
	for _, sep := range []string{" | ", " - ", " – ", " — "} {
		if idx := strings.Index(title, sep); idx > 0 {
			title = title[:idx]
		}
	}
	return strings.TrimSpace(title)
}

// genericHostLabels are hostname labels that never identify an
// institution on their own.
var genericHostLabels = map[string]bool{
	"www": true, "edu": true, "ac": true,
	"uk": true, "ca": true, "com": true, "org": true,
}

// InstitutionFromHost derives a best-effort institution name from a
// hostname: the first label that is not a generic prefix or TLD,
// capitalized. Returns "" when every label is generic.
func InstitutionFromHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if idx := strings.Index(host, ":"); idx >= 0 {
		host = host[:idx]
	}
	for _, part := range strings.Split(host, ".") {
		if part == "" || genericHostLabels[part] {
			continue
		}
		return strings.ToUpper(part[:1]) + part[1:]
	}
	return ""
}
