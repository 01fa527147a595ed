package fileimport

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/rotisserie/eris"
)

// CSVRows reads contact rows from a CSV file. The first record is the header
// and maps columns to contact fields.
func CSVRows(path string) ([]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "fileimport: open csv")
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // allow variable fields

	header, err := reader.Read()
	if err == io.EOF {
		return nil, eris.New("fileimport: csv file is empty")
	}
	if err != nil {
		return nil, eris.Wrap(err, "fileimport: read csv header")
	}
	fields := headerFields(header)

	var rows []any
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "fileimport: read csv row")
		}
		rows = append(rows, any(rowFromCells(fields, record)))
	}

	return rows, nil
}
