package fetcher

import (
	"bytes"
	"encoding/csv"
	"io"
	"os"

	"github.com/rotisserie/eris"

	"github.com/spotaudit/spotaudit/internal/model"
)

// utf8BOM is stripped before parsing; Excel-exported CSVs often carry it.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadCSV reads a CSV file into a Table. The first record is the header.
func ReadCSV(path string) (*model.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: read csv")
	}
	return ReadCSVBytes(data)
}

// ReadCSVBytes parses CSV file contents into a Table.
func ReadCSVBytes(data []byte) (*model.Table, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1 // tolerate ragged rows

	t := &model.Table{}
	for i := 0; ; i++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "fetcher: parse csv")
		}
		if i == 0 {
			t.Columns = record
			continue
		}
		t.Rows = append(t.Rows, record)
	}
	return t, nil
}
