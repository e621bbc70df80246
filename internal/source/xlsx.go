package source

import (
	"context"
	"fmt"
	"net/http"

	"github.com/xuri/excelize/v2"

	"housingprep/internal/config"
	"housingprep/internal/dataset"
)

// XLSX loads one worksheet (options.sheet, default the first). The first
// row is the header. Rows are read with the streaming row iterator.
//
// Options: sheet, header_map, skip_bad_rows.
type XLSX struct {
	Path    string
	Schema  dataset.Schema
	Options config.Options

	OnSkip func(line int, err error)
	Client *http.Client
}

func (x *XLSX) Load(ctx context.Context) (*dataset.Dataset, error) {
	src, err := opener{client: x.Client}.open(ctx, x.Path)
	if err != nil {
		return nil, fmt.Errorf("xlsx source: %w", err)
	}
	defer src.Close()

	f, err := excelize.OpenReader(src)
	if err != nil {
		return nil, fmt.Errorf("xlsx source: open workbook: %w", err)
	}
	defer f.Close()

	sheet := x.Options.String("sheet", "")
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("xlsx source %s: workbook has no sheets", x.Path)
		}
		sheet = sheets[0]
	}

	rows, err := f.Rows(sheet)
	if err != nil {
		return nil, fmt.Errorf("xlsx source %s: sheet %q: %w", x.Path, sheet, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, fmt.Errorf("xlsx source %s: sheet %q is empty", x.Path, sheet)
	}
	hdr, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("xlsx source %s: read header: %w", x.Path, err)
	}
	ix, err := columnIndex(hdr, x.Schema, x.Options.StringMap("header_map"))
	if err != nil {
		return nil, fmt.Errorf("xlsx source %s: %w", x.Path, err)
	}

	skip := x.Options.Bool("skip_bad_rows", false)
	b := dataset.NewBuilder(x.Schema)
	cells := make([]string, x.Schema.Len())

	for line := 2; rows.Next(); line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := rows.Columns()
		if err != nil {
			return nil, fmt.Errorf("xlsx source %s: row %d: %w", x.Path, line, err)
		}
		if len(rec) == 0 {
			continue
		}
		align(cells, rec, ix, true)
		if err := b.AppendRaw(cells); err != nil {
			if skip {
				if x.OnSkip != nil {
					x.OnSkip(line, err)
				}
				continue
			}
			return nil, fmt.Errorf("xlsx source %s: row %d: %w", x.Path, line, err)
		}
	}
	if err := rows.Error(); err != nil {
		return nil, fmt.Errorf("xlsx source %s: %w", x.Path, err)
	}
	return b.Build(), nil
}
