// Package parser defines the contract between downloaded bytes and the typed
// table builder. The CSV implementation lives in parser/csv.
package parser

import (
	"io"

	"dataprocessor/internal/dataset"
)

// Parser reads a whole input into a frame of untyped cells.
type Parser interface {
	Parse(r io.Reader) (*dataset.Frame, error)
}
