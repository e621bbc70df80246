package prep

import (
	"context"
	"errors"
	"math/rand"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"housingprep/internal/dataset"
	"housingprep/internal/housing"
)

func TestFilterOutliers_SampleRecords(t *testing.T) {
	t.Parallel()

	ds := housingDataset(t, sampleRows)
	out, bounds, err := FilterOutliers(context.Background(), ds, housing.DefaultOutlierColumns(), DefaultIQRMultiplier, 0)
	require.NoError(t, err)

	require.Equal(t, 3, out.Len())
	assert.Equal(t, []float64{1467, 1274, 1627}, mustFloat(t, out, housing.TotalRooms).Values)

	require.Len(t, bounds, len(housing.DefaultOutlierColumns()))
	age := bounds[1]
	assert.Equal(t, housing.HousingMedianAge, age.Column)
	assert.Equal(t, 41.0, age.Q1)
	assert.Equal(t, 52.0, age.Q3)
	assert.Equal(t, 24.5, age.Lower)
	assert.Equal(t, 68.5, age.Upper)
	assert.Equal(t, 5, age.Before)
	assert.Equal(t, 1, age.Dropped)

	// Later passes see the trimmed dataset.
	assert.Equal(t, 4, bounds[2].Before)

	value := bounds[len(bounds)-1]
	assert.Equal(t, housing.MedianHouseValue, value.Column)
	assert.Equal(t, 368300.0, value.Upper)
	assert.Equal(t, 1, value.Dropped)

	// Input untouched.
	assert.Equal(t, 5, ds.Len())
}

func TestFilterOutliers_SecondPassIsNoop(t *testing.T) {
	t.Parallel()

	cells := []string{"1000"}
	for v := 10; v < 20; v++ {
		cells = append(cells, strconv.Itoa(v))
	}
	ds := numericDataset(t, map[string][]string{"x": cells}, "x")

	once, b1, err := FilterOutliers(context.Background(), ds, []string{"x"}, 1.5, 0)
	require.NoError(t, err)
	assert.Equal(t, 10, once.Len())
	assert.Equal(t, 1, b1[0].Dropped)
	assert.Equal(t, 27.0, b1[0].Upper)

	twice, b2, err := FilterOutliers(context.Background(), once, []string{"x"}, 1.5, 0)
	require.NoError(t, err)
	assert.Equal(t, 10, twice.Len())
	assert.Zero(t, b2[0].Dropped)
	assert.Same(t, once, twice)
}

func TestFilterOutliers_DropsMissing(t *testing.T) {
	t.Parallel()

	ds := numericDataset(t, map[string][]string{
		"x": {"1", "2", "3", "", "4"},
	}, "x")

	out, bounds, err := FilterOutliers(context.Background(), ds, []string{"x"}, 1.5, 0)
	require.NoError(t, err)
	assert.Equal(t, 4, out.Len())
	assert.Equal(t, 1, bounds[0].Dropped)
	assert.Zero(t, mustFloat(t, out, "x").MissingCount())
}

func TestFilterOutliers_InclusiveBounds(t *testing.T) {
	t.Parallel()

	// k == 0 keeps exactly the values in [Q1, Q3].
	ds := numericDataset(t, map[string][]string{"x": {"1", "2", "3", "4", "5"}}, "x")

	out, bounds, err := FilterOutliers(context.Background(), ds, []string{"x"}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 2.0, bounds[0].Lower)
	assert.Equal(t, 4.0, bounds[0].Upper)
	assert.Equal(t, []float64{2, 3, 4}, mustFloat(t, out, "x").Values)
}

func TestFilterOutliers_NeverGrows(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(7))
	a := make([]string, 2000)
	b := make([]string, 2000)
	for i := range a {
		a[i] = strconv.FormatFloat(rng.NormFloat64()*10, 'f', -1, 64)
		b[i] = strconv.FormatFloat(rng.ExpFloat64(), 'f', -1, 64)
	}
	ds := numericDataset(t, map[string][]string{"a": a, "b": b}, "a", "b")

	out, bounds, err := FilterOutliers(context.Background(), ds, []string{"a", "b"}, 1.5, 0.01)
	require.NoError(t, err)
	assert.LessOrEqual(t, out.Len(), ds.Len())
	assert.Equal(t, ds.Len()-bounds[0].Dropped-bounds[1].Dropped, out.Len())

	// Survivors of the last pass lie within its bounds.
	last := bounds[1]
	for _, v := range mustFloat(t, out, "b").Values {
		assert.GreaterOrEqual(t, v, last.Lower)
		assert.LessOrEqual(t, v, last.Upper)
	}
}

func TestFilterOutliers_Errors(t *testing.T) {
	t.Parallel()

	ds := housingDataset(t, sampleRows)

	_, _, err := FilterOutliers(context.Background(), ds, []string{housing.MedianIncome}, -1, 0)
	assert.Error(t, err)

	_, _, err = FilterOutliers(context.Background(), ds, []string{"nope"}, 1.5, 0)
	assert.True(t, errors.Is(err, dataset.ErrMissingColumn))

	empty := numericDataset(t, map[string][]string{"x": {"", ""}}, "x")
	_, _, err = FilterOutliers(context.Background(), empty, []string{"x"}, 1.5, 0)
	assert.True(t, errors.Is(err, dataset.ErrEmptyColumn))
}
