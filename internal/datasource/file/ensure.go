package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// DirError reports that the directory holding a download target could not be
// created.
type DirError struct {
	Dir string
	Err error
}

func (e *DirError) Error() string {
	return fmt.Sprintf("file: create directory %s: %v", e.Dir, e.Err)
}

func (e *DirError) Unwrap() error { return e.Err }

// mkdirAll is a test hook; tests swap it to simulate a concurrent creator.
var mkdirAll = os.MkdirAll

// EnsureDir guarantees that the directory containing path exists. A path that
// ends in a separator names the directory itself, so both
// "/data/downloads/x.csv" and "/data/downloads/" ensure "/data/downloads".
//
// When creation fails because another process created the directory first,
// EnsureDir reports success. Any other failure is returned as *DirError.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	if fi, err := os.Stat(dir); err == nil && fi.IsDir() {
		return nil
	}

	err := mkdirAll(dir, 0o755)
	if err == nil {
		return nil
	}
	if errors.Is(err, fs.ErrExist) {
		if fi, serr := os.Stat(dir); serr == nil && fi.IsDir() {
			return nil
		}
	}
	return &DirError{Dir: dir, Err: err}
}
