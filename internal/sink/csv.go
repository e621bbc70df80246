package sink

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"housingprep/internal/dataset"
)

// CSV writes a header line followed by one line per record.
type CSV struct {
	Path  string
	Comma rune
}

func (s *CSV) Write(ctx context.Context, ds *dataset.Dataset) error {
	err := writeFile(s.Path, func(out io.Writer) error {
		return s.encode(ctx, out, ds)
	})
	if err != nil {
		return fmt.Errorf("csv sink: %w", err)
	}
	return nil
}

func (s *CSV) encode(ctx context.Context, out io.Writer, ds *dataset.Dataset) error {
	w := csv.NewWriter(out)
	if s.Comma != 0 {
		w.Comma = s.Comma
	}
	if err := w.Write(ds.Schema().Names()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	rec := make([]string, ds.Schema().Len())
	for i := 0; i < ds.Len(); i++ {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		for j, v := range ds.Row(i) {
			rec[j] = FormatCell(v)
		}
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}

func (s *CSV) Close() error { return nil }
