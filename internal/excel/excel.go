package excel

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

func OpenFile(filename string) (*excelize.File, error) {
	return excelize.OpenFile(filename)
}

// ReadTable returns the header row and the data rows of a sheet.
// An empty sheetName selects the first sheet of the workbook.
// Cells are returned as raw values so number formats do not leak into parsing.
func ReadTable(f *excelize.File, sheetName string) ([]string, [][]string, error) {
	if sheetName == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, nil, fmt.Errorf("workbook has no sheets")
		}
		sheetName = sheets[0]
	}

	rows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, nil, fmt.Errorf("read sheet %q: %w", sheetName, err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("sheet %q has no header row", sheetName)
	}
	return rows[0], rows[1:], nil
}
