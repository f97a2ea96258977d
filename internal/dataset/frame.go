// Package dataset holds a parsed CSV as an untyped, column-ordered frame.
// Types are assigned later by package schema when the frame is written.
package dataset

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Frame is an in-memory table of untyped cells. A nil cell is NULL.
// Every row has exactly len(Columns) cells.
type Frame struct {
	Columns []string
	Rows    [][]*string
}

// Len returns the number of data rows.
func (f *Frame) Len() int { return len(f.Rows) }

// Index returns the position of column name, or -1.
func (f *Frame) Index(name string) int {
	for i, c := range f.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Values returns the cells of column i in row order.
func (f *Frame) Values(i int) []*string {
	out := make([]*string, len(f.Rows))
	for r, row := range f.Rows {
		out[r] = row[i]
	}
	return out
}

// NormalizeColumn lowercases a column name after NFC normalisation, so
// "KVK_Nummer" and a decomposed "Naám" fold to stable keys.
func NormalizeColumn(name string) string {
	// A Caser holds state; one per call keeps concurrent loads independent.
	return cases.Lower(language.Und).String(norm.NFC.String(name))
}

// DuplicateColumnError reports two source columns that fold to the same name.
type DuplicateColumnError struct {
	Name      string
	First     int
	Duplicate int
}

func (e *DuplicateColumnError) Error() string {
	return fmt.Sprintf("dataset: columns %d and %d both normalise to %q", e.First, e.Duplicate, e.Name)
}

// NormalizeColumns lowercases every column name in place. Blank names become
// "unnamed: <pos>". Names that collide after folding are rejected.
func (f *Frame) NormalizeColumns() error {
	seen := make(map[string]int, len(f.Columns))
	for i, c := range f.Columns {
		n := NormalizeColumn(c)
		if strings.TrimSpace(n) == "" {
			n = fmt.Sprintf("unnamed: %d", i)
		}
		if j, dup := seen[n]; dup {
			return &DuplicateColumnError{Name: n, First: j, Duplicate: i}
		}
		seen[n] = i
		f.Columns[i] = n
	}
	return nil
}
