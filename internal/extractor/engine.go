package extractor

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/progscout/progscout/internal/normalize"
	"github.com/progscout/progscout/internal/patterns"
	"github.com/progscout/progscout/internal/semantic"
	"github.com/progscout/progscout/internal/store"
	"github.com/progscout/progscout/internal/structured"
	"github.com/progscout/progscout/internal/utils"
)

// ErrMissingRequiredField reports that extraction could not resolve a
// mandatory field (title or institution) from any source. The caller
// must not store the result.
var ErrMissingRequiredField = errors.New("missing required field")

// ExtractionError carries which mandatory field failed to resolve. It
// matches ErrMissingRequiredField under errors.Is.
type ExtractionError struct {
	Field patterns.Field
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("could not extract required field %q from page", e.Field)
}

func (e *ExtractionError) Is(target error) bool {
	return target == ErrMissingRequiredField
}

// Engine orchestrates per-field extraction over a page snapshot. It
// has no side effects: it reads the snapshot and produces a value,
// never touching the document or the store.
type Engine struct {
	logger utils.Logger
}

// NewEngine creates an extraction engine.
func NewEngine(logger utils.Logger) *Engine {
	if logger == nil {
		logger = utils.NewLogger()
	}
	return &Engine{logger: logger}
}

// Extract assembles a program record from the snapshot. Optional
// fields that no source resolves are set to the NotSpecified sentinel;
// a missing title or institution fails the extraction as a whole.
// ID and ExtractedAt are left unset — the store assigns them at
// commit time.
func (e *Engine) Extract(snapshot *PageSnapshot) (*store.ProgramRecord, error) {
	values := make(map[patterns.Field]string, len(patterns.AllFields()))
	for _, field := range patterns.AllFields() {
		values[field] = e.extractField(snapshot, field)
	}

	for _, required := range []patterns.Field{patterns.FieldTitle, patterns.FieldInstitution} {
		if values[required] == "" {
			e.logger.WithField("url", snapshot.URL).Warnf("extraction failed: no %s found", required)
			return nil, &ExtractionError{Field: required}
		}
	}

	orDefault := func(field patterns.Field) string {
		if values[field] == "" {
			return store.NotSpecified
		}
		return values[field]
	}

	record := &store.ProgramRecord{
		Title:           values[patterns.FieldTitle],
		Institution:     values[patterns.FieldInstitution],
		Tuition:         orDefault(patterns.FieldTuition),
		Deadline:        orDefault(patterns.FieldDeadline),
		Duration:        orDefault(patterns.FieldDuration),
		Location:        orDefault(patterns.FieldLocation),
		TestRequirement: orDefault(patterns.FieldTestRequirement),
		Description:     orDefault(patterns.FieldDescription),
		SourceURL:       snapshot.URL,
		ExtraFields:     extraFields(snapshot),
	}

	e.logger.WithFields(map[string]interface{}{
		"url":         snapshot.URL,
		"title":       record.Title,
		"institution": record.Institution,
	}).Debug("extraction complete")

	return record, nil
}

// extractField runs the source cascade for one field: structural rules
// in priority order, then regex rules over keyword-relevant sentences,
// then regex rules over the full page text, then the field fallback.
// The first non-empty normalized result wins.
func (e *Engine) extractField(snapshot *PageSnapshot, field patterns.Field) string {
	rules := patterns.Rules(field)

	for _, rule := range rules {
		var raw string
		switch rule.Kind {
		case patterns.KindStructured:
			raw = structured.Read(snapshot.Document(), field)
		case patterns.KindSelector:
			raw = selectorText(snapshot.Document(), rule.Selector)
		case patterns.KindAttribute:
			raw = attributeValue(snapshot.Document(), rule.Selector, rule.Attribute)
		case patterns.KindRegex:
			continue
		}
		if value := e.acceptCandidate(field, raw, false); value != "" {
			return value
		}
	}

	sentences := semantic.RelevantSentences(snapshot.Text, field)
	for _, rule := range rules {
		if rule.Kind != patterns.KindRegex {
			continue
		}
		for _, sentence := range sentences {
			if match := rule.MatchText(sentence); match != "" {
				if value := e.acceptCandidate(field, match, true); value != "" {
					return value
				}
			}
		}
	}

	for _, rule := range rules {
		if rule.Kind != patterns.KindRegex {
			continue
		}
		if match := rule.MatchText(snapshot.Text); match != "" {
			if value := e.acceptCandidate(field, match, true); value != "" {
				return value
			}
		}
	}

	return e.fallback(snapshot, field)
}

// numericFields are the fields whose regex matches go through
// word-number conversion before acceptance.
var numericFields = map[patterns.Field]bool{
	patterns.FieldTuition:  true,
	patterns.FieldDeadline: true,
	patterns.FieldDuration: true,
}

// acceptCandidate normalizes a raw candidate and applies per-field
// post-processing. Returns "" when the candidate is empty after
// cleanup.
func (e *Engine) acceptCandidate(field patterns.Field, raw string, fromRegex bool) string {
	value := normalize.Normalize(raw)
	if value == "" {
		return ""
	}
	if fromRegex && numericFields[field] {
		value = normalize.WordToDigit(value)
	}
	if field == patterns.FieldInstitution {
		// Site names routinely carry a tagline after a separator.
		value = normalize.StripSiteSuffix(value)
	}
	return value
}

// fallback is the last source in the cascade, specific per field.
func (e *Engine) fallback(snapshot *PageSnapshot, field patterns.Field) string {
	switch field {
	case patterns.FieldTitle:
		title := snapshot.Document().Find("title").First().Text()
		return normalize.Normalize(normalize.StripSiteSuffix(title))
	case patterns.FieldInstitution:
		return normalize.InstitutionFromHost(snapshot.Host())
	case patterns.FieldTestRequirement:
		return patterns.TestRequirement(strings.ToLower(snapshot.Text))
	}
	return ""
}

// selectorText returns the trimmed text of the first element matching
// the selector. An invalid selector or empty match set is simply a
// miss, never an error: rule failures must not abort extraction.
func selectorText(doc *goquery.Document, selector string) string {
	selection := doc.Find(selector)
	if selection.Length() == 0 {
		return ""
	}
	return strings.TrimSpace(selection.First().Text())
}

// attributeValue returns the named attribute of the first element
// matching the selector, or "" when absent.
func attributeValue(doc *goquery.Document, selector, attribute string) string {
	selection := doc.Find(selector)
	if selection.Length() == 0 {
		return ""
	}
	value, _ := selection.First().Attr(attribute)
	return strings.TrimSpace(value)
}

var (
	creditsRe = regexp.MustCompile(`(?i)(\d+)\s*credit(?:s| hours)?`)
	formatRe  = regexp.MustCompile(`(?i)\b(online|on-campus|on campus|hybrid)\b`)
)

// extraFields collects auxiliary attributes that enrich a record
// without being first-class columns: delivery format and credit count.
func extraFields(snapshot *PageSnapshot) map[string]string {
	extras := make(map[string]string)
	if match := formatRe.FindString(snapshot.Text); match != "" {
		extras["format"] = strings.Title(strings.ToLower(match))
	}
	if groups := creditsRe.FindStringSubmatch(snapshot.Text); groups != nil {
		extras["credits"] = groups[1]
	}
	if len(extras) == 0 {
		return nil
	}
	return extras
}
