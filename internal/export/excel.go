package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/progscout/progscout/internal/store"
)

const sheetName = "Programs"

// WriteXLSX writes the comparison matrix as an Excel workbook with a
// bold frozen header row.
func WriteXLSX(path string, records []store.ProgramRecord) error {
	file := excelize.NewFile()
	defer file.Close()

	file.SetSheetName("Sheet1", sheetName)

	for rowIdx, row := range MatrixRows(records) {
		for colIdx, value := range row {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+1)
			if err != nil {
				return fmt.Errorf("failed to compute cell name: %w", err)
			}
			if err := file.SetCellValue(sheetName, cell, value); err != nil {
				return fmt.Errorf("failed to set cell %s: %w", cell, err)
			}
		}
	}

	headerStyle, err := file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err == nil {
		endCell, _ := excelize.CoordinatesToCellName(len(records)+1, 1)
		file.SetCellStyle(sheetName, "A1", endCell, headerStyle)
	}

	if err := file.SetPanes(sheetName, &excelize.Panes{
		Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header row: %w", err)
	}

	// Label column plus one column per program.
	file.SetColWidth(sheetName, "A", "A", 22)
	if len(records) > 0 {
		lastCol, err := excelize.ColumnNumberToName(len(records) + 1)
		if err == nil {
			file.SetColWidth(sheetName, "B", lastCol, 34)
		}
	}

	if err := file.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}
