package schema

import (
	"strconv"

	"dataprocessor/internal/dataset"
)

// Column is a named, typed column of a Table.
type Column struct {
	Name string
	Type ColumnType
	// Synthetic marks the id column generated from row positions.
	Synthetic bool
}

// Table is a typed copy of a Frame. Rows hold the values produced by Coerce,
// or nil for NULL, aligned with Columns.
type Table struct {
	Columns []Column
	Rows    [][]any
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// Build types every column of f and coerces every cell. Column names in f
// must already be normalised. When f has no IDColumn, one is prepended
// holding the 0-based row position. Declared types for columns f does not
// have are ignored.
func Build(f *dataset.Frame, declared Types) (*Table, error) {
	synthetic := f.Index(IDColumn) < 0

	t := &Table{Columns: make([]Column, 0, len(f.Columns)+1)}
	if synthetic {
		typ, ok := declared[IDColumn]
		if !ok {
			typ = BigInt
		}
		t.Columns = append(t.Columns, Column{Name: IDColumn, Type: typ, Synthetic: true})
	}
	for j, name := range f.Columns {
		typ, ok := declared[name]
		if !ok {
			typ = Infer(f.Values(j))
		}
		t.Columns = append(t.Columns, Column{Name: name, Type: typ})
	}

	off := 0
	if synthetic {
		off = 1
	}
	t.Rows = make([][]any, 0, f.Len())
	for i, row := range f.Rows {
		out := make([]any, len(t.Columns))
		if synthetic {
			v, err := Coerce(strconv.Itoa(i), t.Columns[0].Type)
			if err != nil {
				return nil, &CoerceError{Row: i, Column: IDColumn, Value: strconv.Itoa(i), Type: t.Columns[0].Type, Err: err}
			}
			out[0] = v
		}
		for j, cell := range row {
			if cell == nil {
				continue
			}
			col := t.Columns[j+off]
			v, err := Coerce(*cell, col.Type)
			if err != nil {
				return nil, &CoerceError{Row: i, Column: col.Name, Value: *cell, Type: col.Type, Err: err}
			}
			out[j+off] = v
		}
		t.Rows = append(t.Rows, out)
	}
	return t, nil
}
