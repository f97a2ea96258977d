// Package loader runs one resource end to end: ensure the target schema,
// download the CSV, parse and type it, then replace the target table.
package loader

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"dataprocessor/internal/dataset"
	"dataprocessor/internal/datasource"
	"dataprocessor/internal/datasource/file"
	"dataprocessor/internal/ddl"
	"dataprocessor/internal/fetch"
	"dataprocessor/internal/metrics"
	"dataprocessor/internal/parser"
	"dataprocessor/internal/parser/csv"
	"dataprocessor/internal/schema"
	"dataprocessor/internal/storage"
)

// DefaultDatasetPrefix names the dataset every table belongs to.
const DefaultDatasetPrefix = "onderwijs"

// Fetcher downloads a resource to local disk. *fetch.Fetcher implements it.
type Fetcher interface {
	Fetch(ctx context.Context, resource string) (fetch.Download, error)
}

// Config configures a Loader. Zero values select defaults.
type Config struct {
	// DatasetPrefix is the first part of every table name; DefaultDatasetPrefix when empty.
	DatasetPrefix string
	// Types declares column types; schema.OnderwijsTypes when nil.
	Types schema.Types
	// CSV configures the default parser.
	CSV csv.Options
	// Parser overrides the CSV parser built from CSV.
	Parser parser.Parser
}

// Loader loads resources into tables.
type Loader struct {
	repo    storage.Repository
	fetcher Fetcher
	cfg     Config
}

// Report summarises one completed load.
type Report struct {
	Resource string
	Table    string // schema-qualified
	Rows     int64
	Bytes    int64
	Checksum uint64
	Elapsed  time.Duration
}

// New builds a Loader.
func New(repo storage.Repository, f Fetcher, cfg Config) *Loader {
	if cfg.DatasetPrefix == "" {
		cfg.DatasetPrefix = DefaultDatasetPrefix
	}
	if cfg.Types == nil {
		cfg.Types = schema.OnderwijsTypes
	}
	if cfg.Parser == nil {
		cfg.Parser = csv.NewParser(cfg.CSV)
	}
	return &Loader{repo: repo, fetcher: f, cfg: cfg}
}

// TableName returns the target table of resource: <prefix>_<resource>_new.
func TableName(prefix, resource string) string {
	return prefix + "_" + resource + "_new"
}

// Load downloads resource and replaces <schemaName>.<prefix>_<resource>_new
// with its contents. The table keeps its previous contents when any step
// fails.
func (l *Loader) Load(ctx context.Context, schemaName, resource string) (Report, error) {
	start := time.Now()
	ctx = storage.WithJob(ctx, resource)
	table := TableName(l.cfg.DatasetPrefix, resource)

	fail := func(err error) (Report, error) {
		log.Printf("loader: failed resource=%s table=%s.%s err=%v", resource, schemaName, table, err)
		return Report{}, fmt.Errorf("loader: %s: %w", resource, err)
	}

	if err := step(resource, "schema", func() error {
		return l.repo.EnsureSchema(ctx, schemaName)
	}); err != nil {
		return fail(err)
	}

	var dl fetch.Download
	if err := step(resource, "fetch", func() (err error) {
		dl, err = l.fetcher.Fetch(ctx, resource)
		return err
	}); err != nil {
		return fail(err)
	}
	metrics.RecordDownload(resource, dl.Bytes)

	var frame *dataset.Frame
	if err := step(resource, "parse", func() (err error) {
		frame, err = l.parse(ctx, file.NewLocal(dl.Path))
		return err
	}); err != nil {
		return fail(err)
	}
	metrics.RecordRow(resource, "parsed", int64(frame.Len()))

	var tbl *schema.Table
	if err := step(resource, "build", func() (err error) {
		tbl, err = schema.Build(frame, l.cfg.Types)
		return err
	}); err != nil {
		return fail(err)
	}

	def := ddl.FromTable(schemaName, table, tbl)
	var n int64
	if err := step(resource, "write", func() (err error) {
		n, err = l.repo.ReplaceTable(ctx, def, tbl.Rows)
		return err
	}); err != nil {
		return fail(err)
	}
	metrics.RecordRow(resource, "inserted", n)

	rep := Report{
		Resource: resource,
		Table:    def.FQN(),
		Rows:     n,
		Bytes:    dl.Bytes,
		Checksum: dl.Checksum,
		Elapsed:  time.Since(start),
	}
	log.Printf("loader: done resource=%s table=%s rows=%d columns=%d bytes=%d xxh3=%016x elapsed=%s",
		rep.Resource, rep.Table, rep.Rows, len(def.Columns), rep.Bytes, rep.Checksum, rep.Elapsed.Truncate(time.Millisecond))
	return rep, nil
}

// parse reads src into a frame with lowercased column names.
func (l *Loader) parse(ctx context.Context, src datasource.Source) (*dataset.Frame, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	f, err := l.cfg.Parser.Parse(rc)
	if err != nil {
		return nil, err
	}
	if err := f.NormalizeColumns(); err != nil {
		var dup *dataset.DuplicateColumnError
		if errors.As(err, &dup) {
			return nil, &csv.ParseError{Line: 1, Err: err}
		}
		return nil, err
	}
	return f, nil
}

// step runs fn and records it as a load step.
func step(job, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.RecordStep(job, name, err, time.Since(start))
	return err
}
