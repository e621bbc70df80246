// Package sink persists a prepared dataset to a file or a database table.
package sink

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"housingprep/internal/config"
	"housingprep/internal/dataset"
	"housingprep/internal/storage"
	_ "housingprep/internal/storage/all"
)

// DefaultBatchSize is the number of rows per table insert.
const DefaultBatchSize = 500

// Sink writes one dataset. Write is called at most once per run.
type Sink interface {
	Write(ctx context.Context, ds *dataset.Dataset) error
	Close() error
}

// New builds the sink selected by cfg.Kind. Table sinks connect here.
func New(ctx context.Context, cfg config.Sink) (Sink, error) {
	kind := strings.ToLower(strings.TrimSpace(cfg.Kind))
	switch kind {
	case "csv":
		return &CSV{Path: cfg.Path, Comma: cfg.Options.Rune("comma", ',')}, nil
	case "xlsx":
		return &XLSX{Path: cfg.Path, Sheet: cfg.Options.String("sheet", DefaultSheet)}, nil
	case "arrow":
		return &Arrow{Path: cfg.Path}, nil
	case "sqlite", "postgres", "mssql":
		repo, err := storage.New(ctx, storage.Config{Kind: kind, DSN: cfg.DSN})
		if err != nil {
			return nil, fmt.Errorf("sink %s: %w", kind, err)
		}
		return &Table{
			Repo:       repo,
			Name:       cfg.Table,
			AutoCreate: cfg.Options.Bool("auto_create_table", true),
			Truncate:   cfg.Options.Bool("truncate", false),
			BatchSize:  cfg.Options.Int("batch_size", DefaultBatchSize),
		}, nil
	default:
		return nil, fmt.Errorf("sink: unsupported kind %q", cfg.Kind)
	}
}

// FormatCell renders one cell of dataset.Row for text outputs. Missing is
// the empty string; floats use the shortest round-trip form without an
// exponent.
func FormatCell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

// writeFile runs write against a temp file beside path and renames it over
// path only when write, sync and close all succeed. On failure the temp file
// is removed and any existing file at path is untouched.
func writeFile(path string, write func(w io.Writer) error) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("sink: empty output path")
	}
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	writeErr := write(tmp)
	if writeErr == nil {
		writeErr = tmp.Sync()
	}
	if writeErr == nil {
		writeErr = tmp.Chmod(0o644)
	}
	closeErr := tmp.Close()

	if writeErr != nil {
		_ = os.Remove(tmpName)
		return writeErr
	}
	if closeErr != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", path, closeErr)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}
