// Package fetcher loads externally supplied tables (broadcast logs) into the
// arbitrary-width model.Table shape. The first row is the header; everything
// else is data. No interpretation happens here — the reconciliation engine
// owns column semantics.
package fetcher

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/spotaudit/spotaudit/internal/model"
)

// XLSXOptions configures the XLSX table reader.
type XLSXOptions struct {
	SheetIndex int    // default 0
	SheetName  string // if set, overrides SheetIndex
}

// ReadXLSX reads a worksheet into a Table.
func ReadXLSX(path string, opts XLSXOptions) (*model.Table, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: open xlsx")
	}
	return tableFromFile(f, opts)
}

// ReadXLSXBytes reads a worksheet from in-memory file contents, as received
// from an upload.
func ReadXLSXBytes(data []byte, opts XLSXOptions) (*model.Table, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: open xlsx bytes")
	}
	return tableFromFile(f, opts)
}

func tableFromFile(f *xlsx.File, opts XLSXOptions) (*model.Table, error) {
	sheet, err := getSheet(f, opts)
	if err != nil {
		return nil, err
	}

	t := &model.Table{}
	for i, row := range sheet.Rows {
		cells := rowToStrings(row)
		if i == 0 {
			t.Columns = cells
			continue
		}
		t.Rows = append(t.Rows, cells)
	}
	return t, nil
}

func getSheet(f *xlsx.File, opts XLSXOptions) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("fetcher: sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}

	if opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("fetcher: sheet index %d out of range (file has %d sheets)", opts.SheetIndex, len(f.Sheets))
	}

	return f.Sheets[opts.SheetIndex], nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}

// ReadTable loads a log table from a file path, dispatching on extension
// (.csv or .xlsx).
func ReadTable(path string) (*model.Table, error) {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return ReadCSV(path)
	}
	return ReadXLSX(path, XLSXOptions{})
}
