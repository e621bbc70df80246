package prep

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"housingprep/internal/dataset"
)

// EmptyPolicy decides what Impute does with a column that has no
// non-missing value.
type EmptyPolicy string

const (
	// EmptyFail aborts with dataset.ErrEmptyColumn.
	EmptyFail EmptyPolicy = "fail"
	// EmptyZero imputes 0 into every cell of the column.
	EmptyZero EmptyPolicy = "zero"
)

// ImputeOptions configures Impute.
type ImputeOptions struct {
	// Columns to impute. Empty means every Float64 column of the schema.
	Columns []string

	// RelativeError is the quantile tolerance used for the median.
	RelativeError float64

	OnEmpty EmptyPolicy

	// Workers bounds per-column parallelism. <= 0 means 1.
	Workers int
}

// ImputeResult reports what Impute did, per column.
type ImputeResult struct {
	Medians map[string]float64
	Filled  map[string]int
}

// Impute replaces Missing cells of each numeric column with that column's
// approximate median.
//
// All medians are computed from the input snapshot before any cell is
// filled, so imputing column A never influences the median of column B.
// String columns are never touched.
func Impute(ctx context.Context, ds *dataset.Dataset, opts ImputeOptions) (*dataset.Dataset, ImputeResult, error) {
	columns := opts.Columns
	if len(columns) == 0 {
		for _, f := range ds.Schema().Fields() {
			if f.Type == dataset.Float64 {
				columns = append(columns, f.Name)
			}
		}
	}

	cols := make([]dataset.Float64Column, len(columns))
	for i, name := range columns {
		c, err := float64Column(ds, "impute", name)
		if err != nil {
			return nil, ImputeResult{}, err
		}
		cols[i] = c
	}

	medians := make([]float64, len(columns))
	filled := make([]dataset.Float64Column, len(columns))
	counts := make([]int, len(columns))

	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range columns {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			src := cols[i]

			var median float64
			st, err := ComputeStats(columns[i], src, opts.RelativeError)
			switch {
			case err == nil:
				median = st.Median
			case errors.Is(err, dataset.ErrEmptyColumn) && opts.OnEmpty == EmptyZero:
				median = 0
			default:
				return fmt.Errorf("impute: %w", err)
			}
			medians[i] = median

			if src.MissingCount() == 0 {
				filled[i] = src
				return nil
			}
			out := src.Clone()
			for j := range out.Values {
				if !out.Valid[j] {
					out.Set(j, median)
					counts[i]++
				}
			}
			filled[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, ImputeResult{}, err
	}

	res := ImputeResult{
		Medians: make(map[string]float64, len(columns)),
		Filled:  make(map[string]int, len(columns)),
	}
	out := ds
	for i, name := range columns {
		res.Medians[name] = medians[i]
		res.Filled[name] = counts[i]
		if counts[i] == 0 {
			continue
		}
		next, err := out.WithFloat64(name, filled[i])
		if err != nil {
			return nil, ImputeResult{}, fmt.Errorf("impute: %w", err)
		}
		out = next
	}
	return out, res, nil
}
