// Package journal keeps a local SQLite record of every resource load: when
// it started and finished, what it wrote and why it failed.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Status is the state of a run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Run is one journal row.
type Run struct {
	ID         uuid.UUID
	Resource   string
	Table      string
	Status     Status
	Rows       int64
	Bytes      int64
	Checksum   uint64
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time // zero while running
}

// Result is what a finished run reports.
type Result struct {
	Rows     int64
	Bytes    int64
	Checksum uint64
}

// ErrUnknownRun is returned by Finish for an id that Begin never issued.
var ErrUnknownRun = errors.New("journal: unknown run")

const createRuns = `CREATE TABLE IF NOT EXISTS runs (
  id          TEXT PRIMARY KEY,
  resource    TEXT NOT NULL,
  table_name  TEXT NOT NULL,
  status      TEXT NOT NULL,
  rows        INTEGER NOT NULL DEFAULT 0,
  bytes       INTEGER NOT NULL DEFAULT 0,
  checksum    TEXT NOT NULL DEFAULT '',
  error       TEXT NOT NULL DEFAULT '',
  started_at  TEXT NOT NULL,
  finished_at TEXT NOT NULL DEFAULT ''
)`

// Journal is safe for concurrent use; writes are serialised on a single
// connection.
type Journal struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the journal at path.
func Open(ctx context.Context, path string) (*Journal, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("journal: path must not be empty")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("journal: open: %w", err)
	}
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, createRuns); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: create table: %w", err)
	}
	return &Journal{db: db, now: time.Now}, nil
}

// Close closes the database.
func (j *Journal) Close() error { return j.db.Close() }

// Begin records a running load and returns its id.
func (j *Journal) Begin(ctx context.Context, resource, table string) (uuid.UUID, error) {
	id := uuid.New()
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO runs (id, resource, table_name, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		id.String(), resource, table, string(StatusRunning), formatTime(j.now()))
	if err != nil {
		return uuid.Nil, fmt.Errorf("journal: begin %s: %w", resource, err)
	}
	return id, nil
}

// Finish closes run id as succeeded, or failed when runErr is non-nil.
func (j *Journal) Finish(ctx context.Context, id uuid.UUID, res Result, runErr error) error {
	status, msg := StatusSucceeded, ""
	if runErr != nil {
		status, msg = StatusFailed, runErr.Error()
	}
	out, err := j.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, rows = ?, bytes = ?, checksum = ?, error = ?, finished_at = ? WHERE id = ?`,
		string(status), res.Rows, res.Bytes, formatChecksum(res.Checksum), msg, formatTime(j.now()), id.String())
	if err != nil {
		return fmt.Errorf("journal: finish %s: %w", id, err)
	}
	if n, err := out.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownRun, id)
	}
	return nil
}

// Recent returns up to limit runs, newest first. An empty resource matches
// every resource.
func (j *Journal) Recent(ctx context.Context, resource string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	q := `SELECT id, resource, table_name, status, rows, bytes, checksum, error, started_at, finished_at FROM runs`
	args := []any{}
	if resource != "" {
		q += ` WHERE resource = ?`
		args = append(args, resource)
	}
	q += ` ORDER BY started_at DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := j.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("journal: query: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			r                 Run
			id, status, sum   string
			started, finished string
		)
		if err := rows.Scan(&id, &r.Resource, &r.Table, &status, &r.Rows, &r.Bytes, &sum, &r.Error, &started, &finished); err != nil {
			return nil, fmt.Errorf("journal: scan: %w", err)
		}
		if r.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("journal: bad id %q: %w", id, err)
		}
		r.Status = Status(status)
		if sum != "" {
			if r.Checksum, err = strconv.ParseUint(sum, 16, 64); err != nil {
				return nil, fmt.Errorf("journal: bad checksum %q: %w", sum, err)
			}
		}
		if r.StartedAt, err = parseTime(started); err != nil {
			return nil, err
		}
		if r.FinishedAt, err = parseTime(finished); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// tsLayout is fixed width so timestamps sort as text.
const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string { return t.UTC().Format(tsLayout) }

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(tsLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("journal: bad timestamp %q: %w", s, err)
	}
	return t, nil
}

func formatChecksum(sum uint64) string {
	if sum == 0 {
		return ""
	}
	return fmt.Sprintf("%016x", sum)
}
