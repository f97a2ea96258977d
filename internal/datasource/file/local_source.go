// Package file implements the local filesystem side of a download: making
// sure the target directory exists and opening the downloaded file for
// parsing.
package file

import (
	"context"
	"fmt"
	"io"
	"os"

	"dataprocessor/internal/datasource"
)

// Local is a filesystem data source that opens a single downloaded file.
type Local struct{ path string }

var _ datasource.Source = (*Local)(nil)

// NewLocal returns a Local bound to path.
func NewLocal(path string) *Local { return &Local{path: path} }

// Open opens the configured path for reading.
//
// A context that is already done short-circuits without touching the
// filesystem. Filesystem errors are wrapped with the path but still satisfy
// errors.Is(err, os.ErrNotExist) and friends. The kernel is told that the file
// will be read once front to back.
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	adviseSequential(f)
	return f, nil
}
