package prep

import (
	"fmt"

	"housingprep/internal/dataset"
	"housingprep/internal/housing"
)

// Ratio defines a derived column Output = Numerator / Denominator.
type Ratio struct {
	Output      string
	Numerator   string
	Denominator string
}

// HousingRatios are the three features attached to every housing record.
var HousingRatios = []Ratio{
	{Output: housing.RoomsPerHousehold, Numerator: housing.TotalRooms, Denominator: housing.Households},
	{Output: housing.PopulationPerHousehold, Numerator: housing.Population, Denominator: housing.Households},
	{Output: housing.BedroomsPerRoom, Numerator: housing.TotalBedrooms, Denominator: housing.TotalRooms},
}

// DivisionStats counts cells written as Missing per derived column.
type DivisionStats struct {
	// Undefined counts zero denominators (dataset.ErrDivisionUndefined).
	Undefined map[string]int
	// MissingInput counts records where an operand was Missing.
	MissingInput map[string]int
}

// Total is the number of Missing cells written across all ratios.
func (s DivisionStats) Total() int {
	n := 0
	for _, v := range s.Undefined {
		n += v
	}
	for _, v := range s.MissingInput {
		n += v
	}
	return n
}

// DeriveFeatures attaches HousingRatios.
func DeriveFeatures(ds *dataset.Dataset) (*dataset.Dataset, DivisionStats, error) {
	return DeriveRatios(ds, HousingRatios)
}

// DeriveRatios attaches one Float64 column per ratio, computed record by
// record. A zero denominator or a Missing operand yields Missing; this is
// never an error.
func DeriveRatios(ds *dataset.Dataset, ratios []Ratio) (*dataset.Dataset, DivisionStats, error) {
	stats := DivisionStats{
		Undefined:    make(map[string]int, len(ratios)),
		MissingInput: make(map[string]int, len(ratios)),
	}

	// Resolve every operand against the input so derived columns never feed
	// each other.
	type resolved struct {
		num, den dataset.Float64Column
	}
	rs := make([]resolved, len(ratios))
	for i, r := range ratios {
		num, err := float64Column(ds, "derive features", r.Numerator)
		if err != nil {
			return nil, DivisionStats{}, err
		}
		den, err := float64Column(ds, "derive features", r.Denominator)
		if err != nil {
			return nil, DivisionStats{}, err
		}
		rs[i] = resolved{num: num, den: den}
	}

	out := ds
	for i, r := range ratios {
		col := dataset.NewFloat64Column(ds.Len())
		for j := 0; j < ds.Len(); j++ {
			n, okN := rs[i].num.Get(j)
			d, okD := rs[i].den.Get(j)
			switch {
			case !okN || !okD:
				stats.MissingInput[r.Output]++
			case d == 0:
				stats.Undefined[r.Output]++
			default:
				col.Set(j, n/d)
			}
		}

		next, err := out.WithFloat64(r.Output, col)
		if err != nil {
			return nil, DivisionStats{}, fmt.Errorf("derive features: %w", err)
		}
		out = next
	}
	return out, stats, nil
}
