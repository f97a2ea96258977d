// Package storage holds the backend-agnostic contract for writing loaded
// tables, a registry of backends, the batched COPY driver they share and the
// DatabaseError type they return.
package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"dataprocessor/internal/ddl"
)

// Repository writes typed tables into a database.
type Repository interface {
	// EnsureSchema creates the schema if it does not exist. It never drops.
	EnsureSchema(ctx context.Context, name string) error

	// ReplaceTable drops def's table if present, recreates it, bulk-loads
	// rows (aligned with def.Columns) and adds def's primary key. The whole
	// replacement is atomic. It returns the number of rows written.
	ReplaceTable(ctx context.Context, def ddl.TableDef, rows [][]any) (int64, error)

	Close()
}

// Config selects and configures a backend.
type Config struct {
	Kind string // registered backend name, e.g. "postgres"
	DSN  string

	// BatchSize is the number of rows per COPY round trip; <=0 picks the
	// backend default.
	BatchSize int
}

// Factory opens a Repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	factoriesMu sync.RWMutex
	factories   = map[string]Factory{}
)

// Register makes a backend available under kind, replacing any previous
// registration. Backends call it from init.
func Register(kind string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[kind] = f
}

// New opens a Repository using the factory registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	factoriesMu.RLock()
	f, ok := factories[cfg.Kind]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%s (registered: %s)", cfg.Kind, strings.Join(ListKinds(), ", "))
	}
	return f(ctx, cfg)
}

// ListKinds returns the registered backend names, sorted. The slice is a copy.
func ListKinds() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
