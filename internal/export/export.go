// Package export renders saved program records as a side-by-side
// comparison matrix: attributes as rows, programs as columns. The
// matrix keeps unresolved attribute sentinels as-is so a reader can
// tell "not on the page" apart from an empty cell.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/progscout/progscout/internal/store"
)

// Format identifies an export encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
)

// ParseFormat resolves a format name, case-insensitively.
func ParseFormat(name string) (Format, error) {
	switch Format(strings.ToLower(name)) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatXLSX:
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported export format: %s", name)
	}
}

// FormatForPath guesses the format from a file extension, defaulting
// to CSV.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".xlsx":
		return FormatXLSX
	default:
		return FormatCSV
	}
}

// matrix row labels, in display order.
var rowLabels = []string{
	"Institution",
	"Tuition",
	"Application Deadline",
	"Duration",
	"Location",
	"Test Requirement",
	"Description",
	"Source URL",
	"Saved",
}

func rowValue(label string, record store.ProgramRecord) string {
	switch label {
	case "Institution":
		return record.Institution
	case "Tuition":
		return record.Tuition
	case "Application Deadline":
		return record.Deadline
	case "Duration":
		return record.Duration
	case "Location":
		return record.Location
	case "Test Requirement":
		return record.TestRequirement
	case "Description":
		return record.Description
	case "Source URL":
		return record.SourceURL
	case "Saved":
		if record.ExtractedAt.IsZero() {
			return ""
		}
		return record.ExtractedAt.Format("2006-01-02")
	}
	return ""
}

// MatrixRows lays the records out as a comparison table: the first row
// holds program titles, each following row one attribute across all
// programs.
func MatrixRows(records []store.ProgramRecord) [][]string {
	header := make([]string, 0, len(records)+1)
	header = append(header, "Field")
	for _, record := range records {
		header = append(header, record.Title)
	}

	rows := [][]string{header}
	for _, label := range rowLabels {
		row := make([]string, 0, len(records)+1)
		row = append(row, label)
		for _, record := range records {
			row = append(row, rowValue(label, record))
		}
		rows = append(rows, row)
	}
	return rows
}

// WriteCSV writes the comparison matrix as CSV.
func WriteCSV(w io.Writer, records []store.ProgramRecord) error {
	writer := csv.NewWriter(w)
	for _, row := range MatrixRows(records) {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write matrix row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteJSON writes the records as an indented JSON array, preserving
// every field of each record including extras.
func WriteJSON(w io.Writer, records []store.ProgramRecord) error {
	if records == nil {
		records = []store.ProgramRecord{}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(records)
}

// Export writes the records to path in the given format.
func Export(path string, format Format, records []store.ProgramRecord) error {
	if format == FormatXLSX {
		return WriteXLSX(path, records)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer file.Close()

	switch format {
	case FormatCSV:
		return WriteCSV(file, records)
	case FormatJSON:
		return WriteJSON(file, records)
	default:
		return fmt.Errorf("unsupported export format: %s", format)
	}
}
