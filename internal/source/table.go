package source

import "strings"

// Table is a raw rectangular dataset with named columns. Cells are kept as
// the trimmed strings read from the file.
type Table struct {
	Name   Name
	Header []string
	Rows   [][]string

	cols map[string]int
}

// NewTable indexes header and returns a Table.
func NewTable(name Name, header []string, rows [][]string) *Table {
	t := &Table{Name: name, Header: header, Rows: rows, cols: make(map[string]int, len(header))}
	for i, h := range header {
		if _, ok := t.cols[h]; !ok {
			t.cols[h] = i
		}
	}
	return t
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.Rows) }

// Has reports whether the table carries the column.
func (t *Table) Has(col string) bool {
	_, ok := t.cols[col]
	return ok
}

// Cell returns the value of col in row i. Short rows and absent columns
// yield "".
func (t *Table) Cell(i int, col string) string {
	c, ok := t.cols[col]
	if !ok || i < 0 || i >= len(t.Rows) || c >= len(t.Rows[i]) {
		return ""
	}
	return strings.TrimSpace(t.Rows[i][c])
}

// CellOr returns the cell or def when it is blank.
func (t *Table) CellOr(i int, col, def string) string {
	if v := t.Cell(i, col); v != "" {
		return v
	}
	return def
}

// Tables holds the loaded raw tables by name.
type Tables map[Name]*Table
