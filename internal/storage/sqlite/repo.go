// Package sqlite is the SQLite table backend, built on the pure-Go
// modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"housingprep/internal/dataset"
	"housingprep/internal/storage"
)

// maxVariables is SQLite's default SQLITE_MAX_VARIABLE_NUMBER.
const maxVariables = 32766

func init() {
	storage.Register("sqlite", New)
}

// Repo implements storage.Repository for SQLite.
type Repo struct {
	db *sql.DB
}

// New opens the database at cfg.DSN and checks connectivity.
func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	// SQLite serialises writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repo{db: db}, nil
}

func (r *Repo) Close() {
	if r == nil || r.db == nil {
		return
	}
	_ = r.db.Close()
}

func (r *Repo) EnsureTable(ctx context.Context, spec storage.TableSpec) error {
	q, err := buildCreateTableSQL(spec)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("sqlite: create table %s: %w", spec.Name, err)
	}
	return nil
}

func (r *Repo) Begin(ctx context.Context) (storage.Tx, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: begin: %w", err)
	}
	return &Tx{tx: tx}, nil
}

// Tx implements storage.Tx over one database/sql transaction.
type Tx struct {
	tx *sql.Tx
}

func (t *Tx) Truncate(ctx context.Context, table string) error {
	if _, err := t.tx.ExecContext(ctx, "DELETE FROM "+sqlIdent(table)); err != nil {
		return fmt.Errorf("sqlite: truncate %s: %w", table, err)
	}
	return nil
}

// InsertRows writes rows with multi-row INSERT statements, chunked below
// the bound-variable limit.
func (t *Tx) InsertRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	perStmt := max(1, maxVariables/max(1, len(columns)))

	var total int64
	for _, part := range storage.Batches(rows, perStmt) {
		q, args := buildInsertSQL(table, columns, part)
		res, err := t.tx.ExecContext(ctx, q, args...)
		if err != nil {
			return total, fmt.Errorf("sqlite: insert into %s: %w", table, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}

func (t *Tx) Commit(context.Context) error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}

func (t *Tx) Rollback(context.Context) error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("sqlite: rollback: %w", err)
	}
	return nil
}

func sqlIdent(id string) string {
	// SQLite supports "quoted identifiers"
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

func columnType(t dataset.Type) string {
	if t == dataset.Float64 {
		return "REAL"
	}
	return "TEXT"
}

func buildCreateTableSQL(t storage.TableSpec) (string, error) {
	if strings.TrimSpace(t.Name) == "" {
		return "", fmt.Errorf("sqlite: table name is empty")
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("sqlite: table %s has no columns", t.Name)
	}
	parts := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		parts = append(parts, fmt.Sprintf("%s %s", sqlIdent(c.Name), columnType(c.Type)))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n);", sqlIdent(t.Name), strings.Join(parts, ",\n  ")), nil
}

func buildInsertSQL(table string, columns []string, rows [][]any) (string, []any) {
	colList := make([]string, 0, len(columns))
	for _, c := range columns {
		colList = append(colList, sqlIdent(c))
	}
	placeholders := "(" + strings.TrimRight(strings.Repeat("?,", len(columns)), ",") + ")"

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(sqlIdent(table))
	b.WriteString(" (")
	b.WriteString(strings.Join(colList, ", "))
	b.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*len(columns))
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(placeholders)
		args = append(args, row...)
	}
	return b.String(), args
}
