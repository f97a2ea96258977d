// Package postgres implements storage.Repository on pgx v5. A table is
// replaced inside one transaction: drop, create, COPY in batches, then add
// the primary key, so readers see either the old table or the complete new
// one.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"dataprocessor/internal/ddl"
	"dataprocessor/internal/storage"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultBatchSize is the number of rows per COPY round trip.
const DefaultBatchSize = 5000

// Config holds Postgres repository configuration.
type Config struct {
	DSN       string // connection string for pgxpool
	BatchSize int    // rows per COPY; <=0 selects DefaultBatchSize
}

// Repository is a Postgres-backed implementation of storage.Repository.
type Repository struct {
	pool *pgxpool.Pool
	cfg  Config
}

// NewRepository constructs a Repository and returns a Close function for
// cleanup. Connections are opened lazily; the first statement surfaces an
// unreachable server.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("pgxpool: %w", err)
	}
	return &Repository{pool: pool, cfg: cfg}, pool.Close, nil
}

// EnsureSchema runs CREATE SCHEMA IF NOT EXISTS in autocommit mode.
func (r *Repository) EnsureSchema(ctx context.Context, name string) error {
	stmt, err := BuildCreateSchemaSQL(name)
	if err != nil {
		return err
	}
	if _, err := r.pool.Exec(ctx, stmt); err != nil {
		return wrapErr("create schema", name, err)
	}
	return nil
}

// ReplaceTable implements storage.Repository.
func (r *Repository) ReplaceTable(ctx context.Context, def ddl.TableDef, rows [][]any) (int64, error) {
	create, err := BuildCreateTableSQL(def)
	if err != nil {
		return 0, err
	}
	var addPK string
	if len(def.PrimaryKey()) > 0 {
		if addPK, err = BuildAddPrimaryKeySQL(def); err != nil {
			return 0, err
		}
	}

	fqn := def.FQN()
	job := storage.JobFrom(ctx, def.Name)
	start := time.Now()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, wrapErr("begin", fqn, err)
	}
	// No-op once committed.
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	if _, err := tx.Exec(ctx, BuildDropTableSQL(def)); err != nil {
		return 0, wrapErr("drop table", fqn, err)
	}
	if _, err := tx.Exec(ctx, create); err != nil {
		return 0, wrapErr("create table", fqn, err)
	}

	feedCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	ident := tableIdent(def)
	n, err := storage.LoadBatches(feedCtx, job, def.ColumnNames(), storage.Feed(feedCtx, rows), r.cfg.BatchSize,
		func(ctx context.Context, columns []string, batch [][]any) (int64, error) {
			return tx.CopyFrom(ctx, ident, columns, pgx.CopyFromRows(batch))
		})
	if err != nil {
		return 0, wrapErr("copy", fqn, err)
	}

	if addPK != "" {
		if _, err := tx.Exec(ctx, addPK); err != nil {
			return 0, wrapErr("add primary key", fqn, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, wrapErr("commit", fqn, err)
	}

	log.Printf("postgres: replaced table=%s rows=%d elapsed=%s", fqn, n, time.Since(start).Truncate(time.Millisecond))
	return n, nil
}

// wrapErr lifts SQLSTATE and detail out of a server error.
func wrapErr(op, table string, err error) error {
	e := &storage.Error{Op: op, Table: table, Err: err}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		e.Code = pgErr.Code
		e.Detail = pgErr.Detail
	}
	return e
}
