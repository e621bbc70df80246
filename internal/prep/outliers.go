package prep

import (
	"context"
	"fmt"

	"housingprep/internal/dataset"
)

// DefaultIQRMultiplier is the classic Tukey fence multiplier.
const DefaultIQRMultiplier = 1.5

// Bounds records one column pass of FilterOutliers.
type Bounds struct {
	Column  string
	Q1      float64
	Q3      float64
	Lower   float64
	Upper   float64
	Before  int
	Dropped int
}

// FilterOutliers drops records outside [Q1 - k*IQR, Q3 + k*IQR] for each
// column, in the given order.
//
// Columns are processed sequentially: the quartiles of column N are computed
// on the dataset already trimmed by columns 1..N-1. Bounds are inclusive.
// A record whose value is Missing in the column being filtered is dropped.
func FilterOutliers(ctx context.Context, ds *dataset.Dataset, columns []string, k, relErr float64) (*dataset.Dataset, []Bounds, error) {
	if k < 0 {
		return nil, nil, fmt.Errorf("filter outliers: negative IQR multiplier %v", k)
	}

	out := ds
	bounds := make([]Bounds, 0, len(columns))
	for _, name := range columns {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		col, err := float64Column(out, "filter outliers", name)
		if err != nil {
			return nil, nil, err
		}
		st, err := ComputeStats(name, col, relErr)
		if err != nil {
			return nil, nil, fmt.Errorf("filter outliers: %w", err)
		}

		iqr := st.IQR()
		b := Bounds{
			Column: name,
			Q1:     st.Q1,
			Q3:     st.Q3,
			Lower:  st.Q1 - k*iqr,
			Upper:  st.Q3 + k*iqr,
			Before: out.Len(),
		}

		keep := make([]bool, col.Len())
		for i, v := range col.Values {
			if !col.Valid[i] {
				b.Dropped++
				continue
			}
			if v < b.Lower || v > b.Upper {
				b.Dropped++
				continue
			}
			keep[i] = true
		}
		bounds = append(bounds, b)

		if b.Dropped == 0 {
			continue
		}
		if out, err = out.Filter(keep); err != nil {
			return nil, nil, fmt.Errorf("filter outliers: %w", err)
		}
	}
	return out, bounds, nil
}
