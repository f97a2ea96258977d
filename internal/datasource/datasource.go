// Package datasource defines how the loader obtains raw bytes to parse.
package datasource

import (
	"context"
	"io"
)

// Source opens a byte stream. Implementations live in subpackages
// (file for downloaded CSVs).
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}
