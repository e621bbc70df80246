// Package mssql is the Microsoft SQL Server table backend. Rows are loaded
// through the bulk copy API of github.com/microsoft/go-mssqldb.
package mssql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	mssqldb "github.com/microsoft/go-mssqldb"

	"housingprep/internal/dataset"
	"housingprep/internal/storage"
)

func init() {
	storage.Register("mssql", New)
}

// Repo implements storage.Repository for SQL Server.
type Repo struct {
	db *sql.DB
}

// New opens cfg.DSN with the "sqlserver" driver and checks connectivity.
func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	db, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, err
	}
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
		return fmt.Errorf("mssql: create table %s: %w", spec.Name, err)
	}
	return nil
}

func (r *Repo) Begin(ctx context.Context) (storage.Tx, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("mssql: begin: %w", err)
	}
	return &Tx{tx: tx}, nil
}

// Tx implements storage.Tx over one database/sql transaction.
type Tx struct {
	tx *sql.Tx
}

func (t *Tx) Truncate(ctx context.Context, table string) error {
	if _, err := t.tx.ExecContext(ctx, "TRUNCATE TABLE "+mssqlTableIdent(table)); err != nil {
		return fmt.Errorf("mssql: truncate %s: %w", table, err)
	}
	return nil
}

// InsertRows bulk-copies rows inside the transaction.
func (t *Tx) InsertRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	stmt, err := t.tx.PrepareContext(ctx, mssqldb.CopyIn(mssqlTableIdent(table), mssqldb.BulkOptions{}, columns...))
	if err != nil {
		return 0, fmt.Errorf("mssql: prepare bulk copy into %s: %w", table, err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return 0, fmt.Errorf("mssql: bulk copy into %s: %w", table, err)
		}
	}
	// An argument-less Exec flushes the batch.
	res, err := stmt.ExecContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("mssql: flush bulk copy into %s: %w", table, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (t *Tx) Commit(context.Context) error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("mssql: commit: %w", err)
	}
	return nil
}

func (t *Tx) Rollback(context.Context) error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("mssql: rollback: %w", err)
	}
	return nil
}

func columnType(t dataset.Type) string {
	if t == dataset.Float64 {
		return "FLOAT"
	}
	return "NVARCHAR(MAX)"
}

func buildCreateTableSQL(t storage.TableSpec) (string, error) {
	if strings.TrimSpace(t.Name) == "" {
		return "", fmt.Errorf("mssql: table name is empty")
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("mssql: table %s has no columns", t.Name)
	}
	cols := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		cols = append(cols, mssqlIdent(c.Name)+" "+columnType(c.Type)+" NULL")
	}
	return fmt.Sprintf(
		"IF OBJECT_ID(N'%s', N'U') IS NULL CREATE TABLE %s (%s);",
		strings.ReplaceAll(mssqlTableIdent(t.Name), "'", "''"),
		mssqlTableIdent(t.Name),
		strings.Join(cols, ", "),
	), nil
}

func mssqlIdent(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

// mssqlTableIdent returns a bracket-quoted identifier for schema-qualified names.
//
// Example:
//
//	"dbo.imports" -> [dbo].[imports]
func mssqlTableIdent(name string) string {
	schema, table := storage.SplitQualifiedName(name)
	if schema == "" {
		return mssqlIdent(table)
	}
	return mssqlIdent(schema) + "." + mssqlIdent(table)
}
