package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"dataprocessor/internal/journal"
	"dataprocessor/internal/loader"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// resourceLoader is satisfied by *loader.Loader.
type resourceLoader interface {
	Load(ctx context.Context, schemaName, resource string) (loader.Report, error)
}

type runConfig struct {
	Schema        string
	DatasetPrefix string
	Resources     []string
	Parallel      int
}

// loadAll loads every resource, at most Parallel at a time. A failed
// resource does not cancel the others; all failures are joined into the
// returned error. j may be nil.
func loadAll(ctx context.Context, l resourceLoader, j *journal.Journal, rc runConfig) error {
	limit := rc.Parallel
	if limit < 1 {
		limit = 1
	}

	var g errgroup.Group
	g.SetLimit(limit)

	errs := make([]error, len(rc.Resources))
	for i, res := range rc.Resources {
		i, res := i, res
		g.Go(func() error {
			errs[i] = loadOne(ctx, l, j, rc, res)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("run: %d of %d resource(s) failed: %w", failed, len(rc.Resources), errors.Join(errs...))
	}
	return nil
}

func loadOne(ctx context.Context, l resourceLoader, j *journal.Journal, rc runConfig, res string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", res, err)
	}

	var id uuid.UUID
	if j != nil {
		var err error
		table := rc.Schema + "." + loader.TableName(rc.DatasetPrefix, res)
		if id, err = j.Begin(ctx, res, table); err != nil {
			return err
		}
	}

	rep, err := l.Load(ctx, rc.Schema, res)
	if err == nil {
		log.Printf("run: resource=%s table=%s rows=%d bytes=%d checksum=%016x elapsed=%s",
			rep.Resource, rep.Table, rep.Rows, rep.Bytes, rep.Checksum, rep.Elapsed)
	}

	if j != nil {
		// The journal entry is closed even when ctx was cancelled mid-load.
		fin := journal.Result{Rows: rep.Rows, Bytes: rep.Bytes, Checksum: rep.Checksum}
		if jerr := j.Finish(context.WithoutCancel(ctx), id, fin, err); jerr != nil {
			log.Printf("run: journal finish resource=%s: %v", res, jerr)
		}
	}
	return err
}
