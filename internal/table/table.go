package table

import (
	"errors"
	"fmt"
)

var (
	// ErrColumnNotFound is returned when a named column is absent
	ErrColumnNotFound = errors.New("column not found")

	// ErrDuplicateColumn is returned when two columns would share a name
	ErrDuplicateColumn = errors.New("duplicate column")

	// ErrRowCountMismatch is returned when columns differ in length
	ErrRowCountMismatch = errors.New("row count mismatch")
)

// Column is a named sequence of values.
// Levels optionally declares the ordered category set of a categorical column.
type Column struct {
	Name   string
	Values []Value
	Levels []string
}

// Len returns the number of values in the column
func (c Column) Len() int {
	return len(c.Values)
}

func (c Column) clone() Column {
	out := Column{Name: c.Name}
	if c.Values != nil {
		out.Values = make([]Value, len(c.Values))
		copy(out.Values, c.Values)
	}
	if c.Levels != nil {
		out.Levels = make([]string, len(c.Levels))
		copy(out.Levels, c.Levels)
	}
	return out
}

// Table is an ordered collection of uniquely named, equal-length columns.
// A Table is never modified after construction; every operation returns a new
// Table and unchanged column storage is shared between them.
type Table struct {
	columns []Column
	index   map[string]int
	rows    int
}

// New creates a table from deep copies of the given columns
func New(columns ...Column) (*Table, error) {
	cols := make([]Column, len(columns))
	for i, c := range columns {
		cols[i] = c.clone()
	}
	return build(cols)
}

// MustNew is like New but panics on error. Intended for tests and fixtures.
func MustNew(columns ...Column) *Table {
	t, err := New(columns...)
	if err != nil {
		panic(err)
	}
	return t
}

// build takes ownership of cols without copying
func build(cols []Column) (*Table, error) {
	t := &Table{
		columns: cols,
		index:   make(map[string]int, len(cols)),
	}
	for i, c := range cols {
		if _, exists := t.index[c.Name]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, c.Name)
		}
		if i == 0 {
			t.rows = c.Len()
		} else if c.Len() != t.rows {
			return nil, fmt.Errorf("%w: column %q has %d rows, expected %d", ErrRowCountMismatch, c.Name, c.Len(), t.rows)
		}
		t.index[c.Name] = i
	}
	return t, nil
}

// Rows returns the number of rows
func (t *Table) Rows() int {
	if t == nil {
		return 0
	}
	return t.rows
}

// Width returns the number of columns
func (t *Table) Width() int {
	if t == nil {
		return 0
	}
	return len(t.columns)
}

// Names returns the column names in table order
func (t *Table) Names() []string {
	if t == nil {
		return nil
	}
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Has reports whether the table contains the named column
func (t *Table) Has(name string) bool {
	if t == nil {
		return false
	}
	_, ok := t.index[name]
	return ok
}

// Column returns a copy of the named column
func (t *Table) Column(name string) (Column, bool) {
	if t == nil {
		return Column{}, false
	}
	i, ok := t.index[name]
	if !ok {
		return Column{}, false
	}
	return t.columns[i].clone(), true
}

// Value returns the value at row i of the named column
func (t *Table) Value(name string, row int) (Value, error) {
	i, ok := t.index[name]
	if !ok {
		return Value{}, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
	}
	if row < 0 || row >= t.rows {
		return Value{}, fmt.Errorf("row %d out of range [0,%d)", row, t.rows)
	}
	return t.columns[i].Values[row], nil
}

// Row returns the values of row i in column order
func (t *Table) Row(i int) []Value {
	row := make([]Value, len(t.columns))
	for j, c := range t.columns {
		row[j] = c.Values[i]
	}
	return row
}

// Clone returns a deep copy of the table
func (t *Table) Clone() *Table {
	cols := make([]Column, len(t.columns))
	for i, c := range t.columns {
		cols[i] = c.clone()
	}
	out, _ := build(cols)
	return out
}

// Select returns the named columns in the table's original relative order
func (t *Table) Select(names ...string) (*Table, error) {
	keep := make(map[string]bool, len(names))
	for _, name := range names {
		if !t.Has(name) {
			return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
		}
		keep[name] = true
	}
	cols := make([]Column, 0, len(keep))
	for _, c := range t.columns {
		if keep[c.Name] {
			cols = append(cols, c)
		}
	}
	out, err := build(cols)
	if err != nil {
		return nil, err
	}
	out.rows = t.rows
	return out, nil
}

// Drop returns the table without the named columns
func (t *Table) Drop(names ...string) (*Table, error) {
	drop := make(map[string]bool, len(names))
	for _, name := range names {
		if !t.Has(name) {
			return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
		}
		drop[name] = true
	}
	cols := make([]Column, 0, len(t.columns))
	for _, c := range t.columns {
		if !drop[c.Name] {
			cols = append(cols, c)
		}
	}
	out, err := build(cols)
	if err != nil {
		return nil, err
	}
	out.rows = t.rows
	return out, nil
}

// WithColumns returns the table with the given columns appended
func (t *Table) WithColumns(added ...Column) (*Table, error) {
	cols := make([]Column, 0, len(t.columns)+len(added))
	cols = append(cols, t.columns...)
	for _, c := range added {
		if len(t.columns) > 0 && c.Len() != t.rows {
			return nil, fmt.Errorf("%w: column %q has %d rows, expected %d", ErrRowCountMismatch, c.Name, c.Len(), t.rows)
		}
		cols = append(cols, c.clone())
	}
	return build(cols)
}

// ReplaceColumn returns the table with the named column's values replaced in place
func (t *Table) ReplaceColumn(c Column) (*Table, error) {
	i, ok := t.index[c.Name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, c.Name)
	}
	if c.Len() != t.rows {
		return nil, fmt.Errorf("%w: column %q has %d rows, expected %d", ErrRowCountMismatch, c.Name, c.Len(), t.rows)
	}
	cols := make([]Column, len(t.columns))
	copy(cols, t.columns)
	cols[i] = c.clone()
	return build(cols)
}

// Rename returns the table with columns renamed per mapping.
// Names absent from the table are ignored.
func (t *Table) Rename(mapping map[string]string) (*Table, error) {
	cols := make([]Column, len(t.columns))
	for i, c := range t.columns {
		cols[i] = c
		if to, ok := mapping[c.Name]; ok {
			cols[i].Name = to
		}
	}
	out, err := build(cols)
	if err != nil {
		return nil, err
	}
	out.rows = t.rows
	return out, nil
}
