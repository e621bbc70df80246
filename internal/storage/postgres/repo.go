// Package postgres is the PostgreSQL table backend. Rows are loaded with the
// COPY protocol through pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"housingprep/internal/dataset"
	"housingprep/internal/storage"
)

func init() {
	storage.Register("postgres", New)
}

// Repo implements storage.Repository for Postgres.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a connection pool for cfg.DSN and checks connectivity.
func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Repo{pool: pool}, nil
}

// Close closes the connection pool.
func (r *Repo) Close() {
	r.pool.Close()
}

// EnsureTable creates the schema (for qualified names) and the table.
func (r *Repo) EnsureTable(ctx context.Context, spec storage.TableSpec) error {
	schemaSQL, tableSQL, err := buildCreateSQL(spec)
	if err != nil {
		return err
	}
	if schemaSQL != "" {
		if _, err := r.pool.Exec(ctx, schemaSQL); err != nil {
			return fmt.Errorf("postgres: create schema for %s: %w", spec.Name, err)
		}
	}
	if _, err := r.pool.Exec(ctx, tableSQL); err != nil {
		return fmt.Errorf("postgres: create table %s: %w", spec.Name, err)
	}
	return nil
}

func (r *Repo) Begin(ctx context.Context) (storage.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("postgres: begin: %w", err)
	}
	return &Tx{tx: tx}, nil
}

// Tx implements storage.Tx over a pgx transaction.
type Tx struct {
	tx pgx.Tx
}

func (t *Tx) Truncate(ctx context.Context, table string) error {
	if _, err := t.tx.Exec(ctx, "TRUNCATE TABLE "+pgTableIdent(table)); err != nil {
		return fmt.Errorf("postgres: truncate %s: %w", table, err)
	}
	return nil
}

// InsertRows streams rows with COPY FROM inside the transaction.
func (t *Tx) InsertRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	n, err := t.tx.CopyFrom(ctx, tableIdentifier(table), columns, pgx.CopyFromRows(rows))
	if err != nil {
		return n, fmt.Errorf("postgres: copy into %s: %w", table, err)
	}
	return n, nil
}

func (t *Tx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

func (t *Tx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("postgres: rollback: %w", err)
	}
	return nil
}

func tableIdentifier(name string) pgx.Identifier {
	schema, table := storage.SplitQualifiedName(name)
	if schema == "" {
		return pgx.Identifier{table}
	}
	return pgx.Identifier{schema, table}
}

func pgIdent(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func pgTableIdent(name string) string {
	return tableIdentifier(name).Sanitize()
}

func columnType(t dataset.Type) string {
	if t == dataset.Float64 {
		return "DOUBLE PRECISION"
	}
	return "TEXT"
}

func buildCreateSQL(t storage.TableSpec) (schemaSQL, tableSQL string, err error) {
	if strings.TrimSpace(t.Name) == "" {
		return "", "", fmt.Errorf("postgres: table name is empty")
	}
	if len(t.Columns) == 0 {
		return "", "", fmt.Errorf("postgres: table %s has no columns", t.Name)
	}
	if schema, _ := storage.SplitQualifiedName(t.Name); schema != "" {
		schemaSQL = fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s;`, pgIdent(schema))
	}

	cols := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		cols = append(cols, pgIdent(c.Name)+" "+columnType(c.Type))
	}
	tableSQL = fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (%s);`, pgTableIdent(t.Name), strings.Join(cols, ", "))
	return schemaSQL, tableSQL, nil
}
