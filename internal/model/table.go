package model

import "strings"

// Table is an arbitrary-width string table, used for the externally supplied
// broadcast log whose column set is not under our control. Rows may be ragged;
// cell access is bounds-safe.
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// NewTable creates a table with the given columns.
func NewTable(columns ...string) *Table {
	return &Table{Columns: columns}
}

// ColumnIndex finds a column by name, ignoring case and surrounding
// whitespace. Returns -1 when absent.
func (t *Table) ColumnIndex(name string) int {
	want := strings.ToLower(strings.TrimSpace(name))
	for i, c := range t.Columns {
		if strings.ToLower(strings.TrimSpace(c)) == want {
			return i
		}
	}
	return -1
}

// EnsureColumn returns the index of the named column, appending it (with
// empty cells on every row) when missing.
func (t *Table) EnsureColumn(name string) int {
	if i := t.ColumnIndex(name); i >= 0 {
		return i
	}
	t.Columns = append(t.Columns, name)
	return len(t.Columns) - 1
}

// Cell returns the cell at (row, col), or an empty string when out of range.
func (t *Table) Cell(row, col int) string {
	if row < 0 || row >= len(t.Rows) || col < 0 || col >= len(t.Rows[row]) {
		return ""
	}
	return t.Rows[row][col]
}

// SetCell writes the cell at (row, col), padding the row when needed.
func (t *Table) SetCell(row, col int, value string) {
	if row < 0 || row >= len(t.Rows) || col < 0 {
		return
	}
	for len(t.Rows[row]) <= col {
		t.Rows[row] = append(t.Rows[row], "")
	}
	t.Rows[row][col] = value
}

// AppendRow adds a row to the table.
func (t *Table) AppendRow(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

// Clone returns a deep copy. The engine reconciles against a private copy so
// caller-owned tables are never mutated.
func (t *Table) Clone() *Table {
	out := &Table{
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([][]string, len(t.Rows)),
	}
	for i, row := range t.Rows {
		out.Rows[i] = append([]string(nil), row...)
	}
	return out
}
