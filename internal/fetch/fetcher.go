// Package fetch resolves a resource name through the registry, downloads it
// over HTTP and stores it as <dir>/<resource>.csv.
//
// The target file is only ever replaced by a complete download: the body is
// streamed into a temporary file next to the target and renamed over it on
// success. When a download fails, any file left at the target path by an
// earlier run is removed so it cannot be mistaken for current data.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/zeebo/xxh3"

	"dataprocessor/internal/datasource/file"
	"dataprocessor/internal/datasource/httpds"
	"dataprocessor/internal/registry"
)

// Config configures a Fetcher.
type Config struct {
	// BaseURL is the root every registry path is joined onto.
	BaseURL string
	// Dir is the shared download directory.
	Dir string
	// Source and Family select the registry branch; they default to
	// registry.SourceDUO and registry.FamilyRIO.
	Source string
	Family string
}

// Fetcher downloads registry resources into a shared directory.
type Fetcher struct {
	client *httpds.Client
	reg    registry.Registry
	cfg    Config
}

// Download describes a completed download.
type Download struct {
	Resource string
	URL      string
	Path     string
	Bytes    int64
	Checksum uint64 // xxh3 of the content
	Elapsed  time.Duration
}

// Error reports a failed download of a resource.
type Error struct {
	Resource string
	URL      string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("fetch: %s: please check URL %s: %v", e.Resource, e.URL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// StatusCode returns the HTTP status behind the failure, or 0 when the
// failure happened below HTTP (DNS, TLS, I/O).
func (e *Error) StatusCode() int {
	var se *httpds.StatusError
	if errors.As(e.Err, &se) {
		return se.StatusCode
	}
	return 0
}

// New returns a Fetcher.
func New(client *httpds.Client, reg registry.Registry, cfg Config) *Fetcher {
	if cfg.Source == "" {
		cfg.Source = registry.SourceDUO
	}
	if cfg.Family == "" {
		cfg.Family = registry.FamilyRIO
	}
	return &Fetcher{client: client, reg: reg, cfg: cfg}
}

// Path returns the local file a resource is downloaded to.
func (f *Fetcher) Path(resource string) string {
	return filepath.Join(f.cfg.Dir, resource+".csv")
}

// URL resolves a resource to its remote location.
func (f *Fetcher) URL(resource string) (string, error) {
	p, err := f.reg.Resolve(f.cfg.Source, f.cfg.Family, resource)
	if err != nil {
		return "", err
	}
	u, err := url.JoinPath(f.cfg.BaseURL, p)
	if err != nil {
		return "", fmt.Errorf("fetch: join %q onto base url: %w", p, err)
	}
	return u, nil
}

// Fetch downloads resource and stores it at Path(resource), overwriting any
// previous download.
func (f *Fetcher) Fetch(ctx context.Context, resource string) (Download, error) {
	start := time.Now()

	if err := file.EnsureDir(f.cfg.Dir + string(filepath.Separator)); err != nil {
		return Download{}, err
	}

	u, err := f.URL(resource)
	if err != nil {
		return Download{}, err
	}
	target := f.Path(resource)
	log.Printf("fetch: resource=%s url=%s", resource, u)

	n, sum, err := f.download(ctx, u, target)
	if err != nil {
		if rmErr := os.Remove(target); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			log.Printf("fetch: remove stale %s: %v", target, rmErr)
		}
		return Download{}, &Error{Resource: resource, URL: u, Err: err}
	}

	d := Download{
		Resource: resource,
		URL:      u,
		Path:     target,
		Bytes:    n,
		Checksum: sum,
		Elapsed:  time.Since(start),
	}
	log.Printf("fetch: wrote path=%s bytes=%d xxh3=%016x elapsed=%s",
		d.Path, d.Bytes, d.Checksum, d.Elapsed.Truncate(time.Millisecond))
	return d, nil
}

// download streams u into a temp file beside target and renames it into
// place once the body has been read completely.
func (f *Fetcher) download(ctx context.Context, u, target string) (int64, uint64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(target), filepath.Base(target)+".*.part")
	if err != nil {
		return 0, 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	h := xxh3.New()
	n, err := f.client.Download(ctx, u, io.MultiWriter(tmp, h))
	if err != nil {
		return 0, 0, err
	}
	if err := tmp.Chmod(0o644); err != nil {
		return 0, 0, fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return 0, 0, fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		return 0, 0, fmt.Errorf("rename %s: %w", tmpName, err)
	}
	committed = true
	return n, h.Sum64(), nil
}
