// Package source loads the raw housing table into a typed dataset.
//
// Every loader resolves columns by header name, so the physical column order
// of the input does not matter. A required column that is absent from the
// header fails with dataset.ErrMissingColumn.
package source

import (
	"context"
	"fmt"
	"strings"

	"housingprep/internal/config"
	"housingprep/internal/dataset"
)

// Loader produces the dataset for one run.
type Loader interface {
	Load(ctx context.Context) (*dataset.Dataset, error)
}

// New builds the loader selected by cfg.Kind.
func New(cfg config.Source, schema dataset.Schema) (Loader, error) {
	switch strings.ToLower(cfg.Kind) {
	case "csv":
		return &CSV{Path: cfg.Path, Schema: schema, Options: cfg.Options}, nil
	case "html":
		return &HTML{Path: cfg.Path, Schema: schema, Options: cfg.Options}, nil
	case "xlsx":
		return &XLSX{Path: cfg.Path, Schema: schema, Options: cfg.Options}, nil
	case "json":
		return &JSON{Path: cfg.Path, Schema: schema, Options: cfg.Options}, nil
	default:
		return nil, fmt.Errorf("source: unknown kind %q", cfg.Kind)
	}
}

// normalizeHeader trims a header cell and strips a UTF-8 BOM from the first
// one. Mapped names (header_map, matched case-insensitively) win; otherwise the
// name is lower-cased with spaces turned into underscores.
func normalizeHeader(h string, first bool, headerMap map[string]string) string {
	if first {
		h = strings.TrimPrefix(h, "\uFEFF")
	}
	h = strings.TrimSpace(h)
	if mapped, ok := headerMap[strings.ToLower(h)]; ok {
		return mapped
	}
	return strings.ReplaceAll(strings.ToLower(h), " ", "_")
}

func lowerKeys(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return out
}

// columnIndex returns, for each schema field, its position in header.
func columnIndex(header []string, schema dataset.Schema, headerMap map[string]string) ([]int, error) {
	hm := lowerKeys(headerMap)
	pos := make(map[string]int, len(header))
	for i, h := range header {
		name := normalizeHeader(h, i == 0, hm)
		if _, dup := pos[name]; !dup {
			pos[name] = i
		}
	}

	ix := make([]int, schema.Len())
	for i, f := range schema.Fields() {
		p, ok := pos[f.Name]
		if !ok {
			return nil, &dataset.ColumnError{Op: "load", Column: f.Name, Err: dataset.ErrMissingColumn}
		}
		ix[i] = p
	}
	return ix, nil
}

// positional is the identity mapping used when the input has no header.
func positional(n int) []int {
	ix := make([]int, n)
	for i := range ix {
		ix[i] = i
	}
	return ix
}

// align copies rec into dst following ix. Cells past the end of rec are
// left empty, which loads as Missing for numeric columns.
func align(dst []string, rec []string, ix []int, trim bool) {
	for t, si := range ix {
		if si < 0 || si >= len(rec) {
			dst[t] = ""
			continue
		}
		v := rec[si]
		if trim {
			v = strings.TrimSpace(v)
		}
		dst[t] = v
	}
}
