package sink

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"housingprep/internal/dataset"
)

// DefaultSheet names the worksheet written by the xlsx sink.
const DefaultSheet = "housing"

// XLSX writes one worksheet with a header row. Missing cells are left blank.
type XLSX struct {
	Path  string
	Sheet string
}

func (s *XLSX) Write(ctx context.Context, ds *dataset.Dataset) error {
	sheet := s.Sheet
	if sheet == "" {
		sheet = DefaultSheet
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("xlsx sink: %w", err)
	}
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("xlsx sink: %w", err)
	}

	header := make([]any, 0, ds.Schema().Len())
	for _, n := range ds.Schema().Names() {
		header = append(header, n)
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("xlsx sink: write header: %w", err)
	}

	for i := 0; i < ds.Len(); i++ {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("xlsx sink: %w", err)
		}
		if err := sw.SetRow(cell, ds.Row(i)); err != nil {
			return fmt.Errorf("xlsx sink: write row %d: %w", i+1, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("xlsx sink: %w", err)
	}

	if err := writeFile(s.Path, func(out io.Writer) error {
		_, err := f.WriteTo(out)
		return err
	}); err != nil {
		return fmt.Errorf("xlsx sink: write %s: %w", s.Path, err)
	}
	return nil
}

func (s *XLSX) Close() error { return nil }
