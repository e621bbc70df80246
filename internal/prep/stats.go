// Package prep implements the dataset transformation stages: median
// imputation, IQR outlier filtering, ratio feature derivation, categorical
// encoding and grouped mean attachment.
//
// Every stage takes a *dataset.Dataset and returns a new one; the input is
// never modified.
package prep

import (
	"fmt"

	"housingprep/internal/dataset"
	"housingprep/internal/quantile"
)

// ColumnStats are the order statistics of one numeric column, computed with
// the approximate estimator. They are never persisted.
type ColumnStats struct {
	Median float64
	Q1     float64
	Q3     float64
	Count  int // non-missing values used
}

// IQR returns Q3 - Q1.
func (s ColumnStats) IQR() float64 { return s.Q3 - s.Q1 }

// ComputeStats estimates median and quartiles over the non-missing cells of
// col with relative rank error relErr.
func ComputeStats(column string, col dataset.Float64Column, relErr float64) (ColumnStats, error) {
	s, err := quantile.New(relErr)
	if err != nil {
		return ColumnStats{}, err
	}
	for i, v := range col.Values {
		if col.Valid[i] {
			s.Insert(v)
		}
	}
	if s.Count() == 0 {
		return ColumnStats{}, &dataset.ColumnError{Op: "stats", Column: column, Err: dataset.ErrEmptyColumn}
	}

	q1, _ := s.Query(0.25)
	med, _ := s.Query(0.5)
	q3, _ := s.Query(0.75)
	return ColumnStats{Median: med, Q1: q1, Q3: q3, Count: s.Count()}, nil
}

func float64Column(ds *dataset.Dataset, op, name string) (dataset.Float64Column, error) {
	col, err := ds.Float64(name)
	if err != nil {
		return dataset.Float64Column{}, fmt.Errorf("%s: %w", op, err)
	}
	return col, nil
}
