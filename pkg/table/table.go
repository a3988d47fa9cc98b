// Package table is the in-memory tabular form the cleaners work on, with
// CSV and XLSX readers and writers.
package table

import (
	"errors"
	"fmt"
	"slices"
)

// ErrColumnNotFound is returned when a named column is absent.
var ErrColumnNotFound = errors.New("column not found")

// Table is a header plus string rows. Rows shorter than the header read as
// empty cells. Methods that change shape return a new Table and leave the
// receiver untouched.
type Table struct {
	Columns []string
	Rows    [][]string
}

// New builds a table from a header and rows.
func New(columns []string, rows [][]string) *Table {
	return &Table{Columns: columns, Rows: rows}
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// Index returns the position of col, or -1.
func (t *Table) Index(col string) int {
	return slices.Index(t.Columns, col)
}

// Has reports whether col exists.
func (t *Table) Has(col string) bool { return t.Index(col) >= 0 }

// Cell returns the value at row i, column j, or "" when the row is short.
func (t *Table) Cell(i, j int) string {
	if j < 0 || j >= len(t.Rows[i]) {
		return ""
	}
	return t.Rows[i][j]
}

// Column returns a copy of the values of col.
func (t *Table) Column(col string) ([]string, error) {
	j := t.Index(col)
	if j < 0 {
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, col)
	}
	out := make([]string, len(t.Rows))
	for i := range t.Rows {
		out[i] = t.Cell(i, j)
	}
	return out, nil
}

// WithColumn returns a copy of t where col holds values, appended as a new
// column when absent. len(values) must equal t.Len().
func (t *Table) WithColumn(col string, values []string) (*Table, error) {
	if len(values) != len(t.Rows) {
		return nil, fmt.Errorf("column %q: %d values for %d rows", col, len(values), len(t.Rows))
	}
	j := t.Index(col)
	columns := slices.Clone(t.Columns)
	if j < 0 {
		j = len(columns)
		columns = append(columns, col)
	}
	rows := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		r := make([]string, len(columns))
		copy(r, row)
		r[j] = values[i]
		rows[i] = r
	}
	return &Table{Columns: columns, Rows: rows}, nil
}

// Select returns a table holding only cols, in that order.
func (t *Table) Select(cols ...string) (*Table, error) {
	idx := make([]int, len(cols))
	for k, c := range cols {
		if idx[k] = t.Index(c); idx[k] < 0 {
			return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, c)
		}
	}
	rows := make([][]string, len(t.Rows))
	for i := range t.Rows {
		r := make([]string, len(idx))
		for k, j := range idx {
			r[k] = t.Cell(i, j)
		}
		rows[i] = r
	}
	return &Table{Columns: slices.Clone(cols), Rows: rows}, nil
}

// Rename returns a copy of t with columns renamed per names (old -> new).
func (t *Table) Rename(names map[string]string) (*Table, error) {
	columns := slices.Clone(t.Columns)
	for old, name := range names {
		j := t.Index(old)
		if j < 0 {
			return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, old)
		}
		columns[j] = name
	}
	return &Table{Columns: columns, Rows: t.Rows}, nil
}
