package patterns

import "testing"

func TestPlausibleTuition(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"$45,000 per year", true},
		{"$1,000", true},
		{"$200,000", true},
		{"$50", false},
		{"$999", false},
		{"$200,001", false},
		{"$5,000,000", false},
		{"no amount", false},
	}

	for _, tt := range tests {
		if got := PlausibleTuition(tt.input); got != tt.expected {
			t.Errorf("PlausibleTuition(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}

func TestTuitionRulesRejectImplausibleAmounts(t *testing.T) {
	text := "Application fee: $50. Tuition: $45,000 per year for residents."

	var match string
	for _, rule := range Rules(FieldTuition) {
		if rule.Kind != KindRegex {
			continue
		}
		if match = rule.MatchText(text); match != "" {
			break
		}
	}

	if match != "$45,000 per year" {
		t.Errorf("expected plausible tuition match, got %q", match)
	}
}

func TestDeadlineRuleCapturesDate(t *testing.T) {
	text := "Applications are due: January 15, 2026 for fall admission."

	var match string
	for _, rule := range Rules(FieldDeadline) {
		if rule.Kind != KindRegex {
			continue
		}
		if match = rule.MatchText(text); match != "" {
			break
		}
	}

	if match != "January 15, 2026" {
		t.Errorf("expected captured deadline date, got %q", match)
	}
}

func TestRulesOrderStructuralBeforeRegex(t *testing.T) {
	for _, field := range AllFields() {
		rules := Rules(field)
		seenRegex := false
		for _, rule := range rules {
			if rule.Kind == KindRegex {
				seenRegex = true
				continue
			}
			if seenRegex {
				t.Errorf("field %s: structural rule listed after a regex rule", field)
			}
		}
	}
}

func TestMatchTextIgnoresNonRegexRules(t *testing.T) {
	rule := Rule{Kind: KindSelector, Selector: "h1"}
	if got := rule.MatchText("anything"); got != "" {
		t.Errorf("expected empty match for selector rule, got %q", got)
	}
}

func TestTestRequirement(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{"explicitly optional", "the gre optional policy applies", "Not required"},
		{"not required", "gre not required for this program", "Not required"},
		{"required", "a competitive gre score is expected", "Required"},
		{"mentioned only", "contact us about gre policies", "Check requirements"},
		{"absent", "no tests are mentioned here", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TestRequirement(tt.text); got != tt.expected {
				t.Errorf("TestRequirement(%q) = %q, want %q", tt.text, got, tt.expected)
			}
		})
	}
}
