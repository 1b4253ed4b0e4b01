package normalize

import (
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"collapses whitespace", "MS  in\t\tData   Science", "MS in Data Science"},
		{"trims", "  Example University \n", "Example University"},
		{"newlines and tabs", "Tuition:\n\t$45,000", "Tuition: $45,000"},
		{"empty", "", ""},
		{"only whitespace", " \t\n ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.expected {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNormalizeCapsLength(t *testing.T) {
	long := strings.Repeat("a", 500)
	got := Normalize(long)
	if len(got) != MaxFieldLength {
		t.Errorf("expected capped length %d, got %d", MaxFieldLength, len(got))
	}
}

func TestNormalizeCapCountsRunes(t *testing.T) {
	long := strings.Repeat("é", 300)
	got := Normalize(long)
	if n := len([]rune(got)); n != MaxFieldLength {
		t.Errorf("expected %d runes, got %d", MaxFieldLength, n)
	}
}

func TestWordToDigit(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"two years", "2 years"},
		{"Two Years full-time", "2 Years full-time"},
		{"THREE semesters", "3 semesters"},
		{"one to six years", "1 to 6 years"},
		{"someone applied", "someone applied"},
		{"no numbers here", "no numbers here"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := WordToDigit(tt.input); got != tt.expected {
			t.Errorf("WordToDigit(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestFold(t *testing.T) {
	if Fold("Example UNIVERSITY") != Fold("example university") {
		t.Error("expected folded forms to match regardless of case")
	}
	if Fold("  Example  ") != Fold("Example") {
		t.Error("expected surrounding whitespace to be ignored")
	}
	if Fold("MIT") == Fold("Stanford") {
		t.Error("distinct values must not fold together")
	}
}

func TestStripSiteSuffix(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"MS in Data Science | Example University", "MS in Data Science"},
		{"MBA Program - Example College", "MBA Program"},
		{"Plain Title", "Plain Title"},
		{"A | B | C", "A"},
	}

	for _, tt := range tests {
		if got := StripSiteSuffix(tt.input); got != tt.expected {
			t.Errorf("StripSiteSuffix(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestInstitutionFromHost(t *testing.T) {
	tests := []struct {
		host     string
		expected string
	}{
		{"www.stanford.edu", "Stanford"},
		{"www.ox.ac.uk", "Ox"},
		{"example.com", "Example"},
		{"www.edu", ""},
		{"gradschool.example.edu:8080", "Gradschool"},
	}

	for _, tt := range tests {
		if got := InstitutionFromHost(tt.host); got != tt.expected {
			t.Errorf("InstitutionFromHost(%q) = %q, want %q", tt.host, got, tt.expected)
		}
	}
}
