package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/progscout/progscout/internal/store"
)

func sampleRecords() []store.ProgramRecord {
	return []store.ProgramRecord{
		{
			ID:              "a",
			Title:           "MS in Computer Science",
			Institution:     "Example University",
			Tuition:         "$45,000 per year",
			Deadline:        "January 15, 2027",
			Duration:        "2 years",
			Location:        "Boston, MA",
			TestRequirement: "Not required",
			Description:     "Graduate study in computing.",
			SourceURL:       "https://example.edu/ms-cs",
			ExtractedAt:     time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		},
		{
			ID:              "b",
			Title:           "MS in Data Science",
			Institution:     "Coastal College",
			Tuition:         store.NotSpecified,
			Deadline:        store.NotSpecified,
			Duration:        "18 months",
			Location:        store.NotSpecified,
			TestRequirement: "Required",
			Description:     store.NotSpecified,
			SourceURL:       "https://coastal.edu/msds",
			ExtractedAt:     time.Date(2026, 8, 2, 9, 30, 0, 0, time.UTC),
		},
	}
}

func TestMatrixRows(t *testing.T) {
	rows := MatrixRows(sampleRecords())

	if got := rows[0]; got[0] != "Field" || got[1] != "MS in Computer Science" || got[2] != "MS in Data Science" {
		t.Errorf("unexpected header row %v", got)
	}

	byLabel := make(map[string][]string, len(rows))
	for _, row := range rows[1:] {
		byLabel[row[0]] = row[1:]
	}
	if got := byLabel["Tuition"]; got[0] != "$45,000 per year" || got[1] != store.NotSpecified {
		t.Errorf("unexpected tuition row %v", got)
	}
	if got := byLabel["Saved"]; got[0] != "2026-08-01" {
		t.Errorf("unexpected saved row %v", got)
	}
	for _, label := range rowLabels {
		if _, ok := byLabel[label]; !ok {
			t.Errorf("missing row %q", label)
		}
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sampleRecords()); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	parsed, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(parsed) != len(rowLabels)+1 {
		t.Fatalf("expected %d rows, got %d", len(rowLabels)+1, len(parsed))
	}
	for i, row := range parsed {
		if len(row) != 3 {
			t.Errorf("row %d: expected 3 columns, got %d", i, len(row))
		}
	}
}

func TestWriteCSVEmptyStore(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, nil); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	parsed, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	// Labels survive even with no programs to compare.
	if len(parsed) != len(rowLabels)+1 {
		t.Errorf("expected label rows, got %d rows", len(parsed))
	}
}

func TestWriteJSONRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, sampleRecords()); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	var decoded []store.ProgramRecord
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("expected 2 records, got %d", len(decoded))
	}
	if decoded[1].Tuition != store.NotSpecified {
		t.Errorf("sentinel must survive export, got %q", decoded[1].Tuition)
	}
	if !strings.Contains(buf.String(), `"source_url"`) {
		t.Error("expected snake_case field names in JSON output")
	}
}

func TestWriteJSONNilRecords(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, nil); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if got := strings.TrimSpace(buf.String()); got != "[]" {
		t.Errorf("expected empty array, got %q", got)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"csv", FormatCSV, false},
		{"JSON", FormatJSON, false},
		{"xlsx", FormatXLSX, false},
		{"pdf", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseFormat(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseFormat(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestFormatForPath(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"out.csv", FormatCSV},
		{"out.json", FormatJSON},
		{"out.XLSX", FormatXLSX},
		{"out", FormatCSV},
	}
	for _, tt := range tests {
		if got := FormatForPath(tt.path); got != tt.want {
			t.Errorf("FormatForPath(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestExportToFile(t *testing.T) {
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "programs.csv")
	if err := Export(csvPath, FormatCSV, sampleRecords()); err != nil {
		t.Fatalf("csv export failed: %v", err)
	}
	data, err := os.ReadFile(csvPath)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !strings.Contains(string(data), "MS in Computer Science") {
		t.Error("expected program title in CSV file")
	}

	xlsxPath := filepath.Join(dir, "programs.xlsx")
	if err := Export(xlsxPath, FormatXLSX, sampleRecords()); err != nil {
		t.Fatalf("xlsx export failed: %v", err)
	}
	if info, err := os.Stat(xlsxPath); err != nil || info.Size() == 0 {
		t.Errorf("expected non-empty workbook, err=%v", err)
	}
}
