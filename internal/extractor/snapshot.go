// Package extractor turns a noisy page snapshot into a best-effort
// program record by cascading over signal sources per field:
// structured data, scoped selectors, keyword-narrowed regex rules,
// full-text regex rules, and finally a field-specific fallback.
package extractor

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PageSnapshot is an immutable view of one fetched page: the parsed
// document plus its flattened visible text. Extraction reads the
// snapshot and never mutates it.
type PageSnapshot struct {
	URL  string
	Text string

	doc  *goquery.Document
	host string
}

var spacesRe = regexp.MustCompile(`\s+`)

// NewSnapshot parses raw HTML into a snapshot. The visible text is
// taken from a second parse so that stripping script and style
// elements never touches the document extraction rules run against.
func NewSnapshot(pageURL, html string) (*PageSnapshot, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page HTML: %w", err)
	}

	textDoc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page HTML: %w", err)
	}
	textDoc.Find("script, style, noscript").Remove()
	text := spacesRe.ReplaceAllString(strings.TrimSpace(textDoc.Find("body").Text()), " ")

	snapshot := &PageSnapshot{
		URL:  pageURL,
		Text: text,
		doc:  doc,
	}
	if u, err := url.Parse(pageURL); err == nil {
		snapshot.host = u.Hostname()
	}
	return snapshot, nil
}

// Document exposes the parsed page for rule evaluation.
func (s *PageSnapshot) Document() *goquery.Document { return s.doc }

// Host returns the hostname of the snapshot's URL, or "" when the URL
// is absent or unparseable.
func (s *PageSnapshot) Host() string { return s.host }

var programURLRe = regexp.MustCompile(`\.edu/|\.ac\.uk/|/programs?/|/courses?/|/degrees?/|/admissions?/`)

var programPageKeywords = []string{
	"bachelor", "master", "phd", "doctorate",
	"degree", "program", "major",
	"tuition", "semester", "credit",
	"admission", "application",
}

// LooksLikeProgramPage applies a cheap heuristic for whether the page
// plausibly describes an academic program: a university-style URL, or
// at least three program-related keywords in the page text. Callers
// can use it to skip extraction on unrelated pages.
func (s *PageSnapshot) LooksLikeProgramPage() bool {
	if programURLRe.MatchString(strings.ToLower(s.URL)) {
		return true
	}
	lower := strings.ToLower(s.Text)
	count := 0
	for _, keyword := range programPageKeywords {
		if strings.Contains(lower, keyword) {
			count++
			if count >= 3 {
				return true
			}
		}
	}
	return false
}
