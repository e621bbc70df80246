package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Config selects and connects a table backend.
type Config struct {
	// Kind is the backend name: "sqlite", "postgres" or "mssql".
	Kind string
	DSN  string
}

// Repository writes dataset rows into a relational table.
//
// Rows are positional and aligned with the columns argument. A nil cell is
// written as SQL NULL.
type Repository interface {
	// EnsureTable creates the table if it does not exist. It is idempotent.
	EnsureTable(ctx context.Context, spec TableSpec) error
	// Begin starts a write transaction.
	Begin(ctx context.Context) (Tx, error)
	Close()
}

// Tx groups table writes. None of them is visible to other sessions until
// Commit returns nil; Rollback discards all of them.
type Tx interface {
	// Truncate removes every row from table.
	Truncate(ctx context.Context, table string) error
	// InsertRows appends rows and returns how many were written.
	InsertRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error)
	Commit(ctx context.Context) error
	// Rollback is a no-op after a successful Commit.
	Rollback(ctx context.Context) error
}

// Factory constructs a Repository for one backend.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes a backend available to New. Backends call it from init.
// It panics on an empty kind, a nil factory or a duplicate registration.
func Register(kind string, f Factory) {
	kind = strings.ToLower(strings.TrimSpace(kind))
	if kind == "" {
		panic("storage: Register with empty kind")
	}
	if f == nil {
		panic("storage: Register nil factory for " + kind)
	}
	mu.Lock()
	defer mu.Unlock()
	if _, dup := factories[kind]; dup {
		panic("storage: Register called twice for " + kind)
	}
	factories[kind] = f
}

// New opens the registered backend for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	kind := strings.ToLower(strings.TrimSpace(cfg.Kind))
	mu.RLock()
	f, ok := factories[kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("storage: unknown backend %q (registered: %s)", cfg.Kind, strings.Join(Kinds(), ", "))
	}
	return f(ctx, cfg)
}

// Kinds lists registered backends in sorted order.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Batches splits rows into consecutive chunks of at most size rows.
func Batches(rows [][]any, size int) [][][]any {
	if size <= 0 {
		size = len(rows)
	}
	var out [][][]any
	for start := 0; start < len(rows); start += size {
		end := min(start+size, len(rows))
		out = append(out, rows[start:end])
	}
	return out
}
