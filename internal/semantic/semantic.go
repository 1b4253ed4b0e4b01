// Package semantic narrows page text to the sentences relevant to a
// field before regex extraction runs. Narrowing first raises precision
// (a dollar amount inside a sentence mentioning tuition is far more
// likely to be tuition); the engine falls back to full-text scanning
// when narrowing yields nothing, which preserves recall.
package semantic

import (
	"strings"

	"github.com/progscout/progscout/internal/patterns"
)

// Sentences splits text on sentence boundaries (., !, ?) and returns
// the non-empty sentences in document order.
func Sentences(text string) []string {
	var sentences []string
	start := 0
	for i, r := range text {
		switch r {
		case '.', '!', '?':
			if s := strings.TrimSpace(text[start:i]); s != "" {
				sentences = append(sentences, s)
			}
			start = i + 1
		}
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// RelevantSentences returns, in original order, the sentences of text
// containing at least one of the field's keywords. Fields without a
// keyword set get no narrowing and an empty result.
func RelevantSentences(text string, field patterns.Field) []string {
	keywords := patterns.Keywords(field)
	if len(keywords) == 0 {
		return nil
	}

	var relevant []string
	for _, sentence := range Sentences(text) {
		lower := strings.ToLower(sentence)
		for _, keyword := range keywords {
			if strings.Contains(lower, keyword) {
				relevant = append(relevant, sentence)
				break
			}
		}
	}
	return relevant
}
