package fileimport

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// XLSXRows reads contact rows from the first sheet of an XLSX file. The first
// row is the header and maps columns to contact fields.
func XLSXRows(path string) ([]any, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "fileimport: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("fileimport: xlsx file has no sheets")
	}
	sheet := f.Sheets[0]
	if len(sheet.Rows) == 0 {
		return nil, eris.New("fileimport: xlsx sheet is empty")
	}

	fields := headerFields(rowToStrings(sheet.Rows[0]))

	var rows []any
	for _, row := range sheet.Rows[1:] {
		rows = append(rows, any(rowFromCells(fields, rowToStrings(row))))
	}

	return rows, nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
