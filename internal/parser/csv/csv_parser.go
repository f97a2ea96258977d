// Package csv parses a downloaded CSV export into a dataset.Frame.
//
// Parsing is strict: the first record is the header, every data row must
// have the header's width, and malformed quoting stops the parse. Cells
// matching one of the null markers become NULL.
package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"dataprocessor/internal/dataset"
	"dataprocessor/internal/parser"
)

// DefaultNullValues are the cell contents read as NULL when Options.NullValues
// is nil.
var DefaultNullValues = []string{"", "NA", "N/A", "NULL", "NaN", "nan", "null", "#N/A", "<NA>"}

// Options configures the parser. Zero values select defaults.
type Options struct {
	// Comma is the field delimiter; ',' when zero.
	Comma rune

	// TrimSpace trims leading/trailing white space from each data cell.
	TrimSpace bool

	// NullValues lists cell contents read as NULL. nil selects
	// DefaultNullValues; an empty non-nil slice treats only "" as NULL.
	NullValues []string
}

// Parser parses CSV input according to Options. Parse does not modify the
// Parser, so one value can serve concurrent loads.
type Parser struct {
	opt   Options
	nulls map[string]struct{}
}

var _ parser.Parser = (*Parser)(nil)

// ParseError reports malformed CSV. Line is the 1-based line in the input,
// or 0 when unknown.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("csv: line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("csv: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ErrNoHeader is returned for an empty input.
var ErrNoHeader = errors.New("missing header row")

// NewParser constructs a Parser with the provided Options.
func NewParser(opt Options) *Parser {
	nv := opt.NullValues
	if nv == nil {
		nv = DefaultNullValues
	}
	nulls := make(map[string]struct{}, len(nv)+1)
	nulls[""] = struct{}{}
	for _, v := range nv {
		nulls[v] = struct{}{}
	}
	return &Parser{opt: opt, nulls: nulls}
}

// Parse reads all of r. Header names are returned as found in the file, with
// a leading UTF-8 BOM removed; lowercasing is left to the caller.
func (p *Parser) Parse(r io.Reader) (*dataset.Frame, error) {
	cr := csv.NewReader(r)
	if p.opt.Comma != 0 {
		cr.Comma = p.opt.Comma
	}
	// FieldsPerRecord=0 pins every row to the header width.
	cr.FieldsPerRecord = 0

	header, err := cr.Read()
	if err == io.EOF {
		return nil, &ParseError{Line: 1, Err: ErrNoHeader}
	}
	if err != nil {
		return nil, wrapReadErr(err)
	}
	header = StripHeaderBOM(header)

	f := &dataset.Frame{Columns: header}
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, wrapReadErr(err)
		}

		cells := make([]*string, len(row))
		for i, v := range row {
			v := v
			if p.opt.TrimSpace {
				v = strings.TrimSpace(v)
			}
			if _, isNull := p.nulls[v]; isNull {
				continue
			}
			cells[i] = &v
		}
		f.Rows = append(f.Rows, cells)
	}
	return f, nil
}

// wrapReadErr lifts the line number out of encoding/csv errors.
func wrapReadErr(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &ParseError{Line: pe.Line, Err: pe.Err}
	}
	return &ParseError{Err: err}
}

const utf8BOM = "\uFEFF"

// StripHeaderBOM removes a UTF-8 BOM from the first header cell if present.
func StripHeaderBOM(headers []string) []string {
	if len(headers) == 0 {
		return headers
	}
	headers[0] = strings.TrimPrefix(headers[0], utf8BOM)
	return headers
}
