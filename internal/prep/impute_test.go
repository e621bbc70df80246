package prep

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"housingprep/internal/dataset"
	"housingprep/internal/housing"
)

func TestImpute_FillsWithPerColumnMedian(t *testing.T) {
	t.Parallel()

	ds := numericDataset(t, map[string][]string{
		"a": {"1", "", "3", "5", ""},
		"b": {"", "10", "20", "30", "40"},
	}, "a", "b")

	out, res, err := Impute(context.Background(), ds, ImputeOptions{RelativeError: 0, Workers: 4})
	require.NoError(t, err)

	assert.Equal(t, 3.0, res.Medians["a"])
	assert.Equal(t, 20.0, res.Medians["b"])
	assert.Equal(t, 2, res.Filled["a"])
	assert.Equal(t, 1, res.Filled["b"])

	a := mustFloat(t, out, "a")
	b := mustFloat(t, out, "b")
	assert.Equal(t, []float64{1, 3, 3, 5, 3}, a.Values)
	assert.Equal(t, []float64{20, 10, 20, 30, 40}, b.Values)
	assert.Equal(t, 0, a.MissingCount())
	assert.Equal(t, 0, b.MissingCount())

	// Input untouched.
	assert.Equal(t, 2, mustFloat(t, ds, "a").MissingCount())
}

func TestImpute_Idempotent(t *testing.T) {
	t.Parallel()

	rows := append([][]string(nil), sampleRows...)
	rows = append(rows, []string{"-122.25", "37.84", "", "2535", "", "1094", "514", "3.6591", "299200", "NEAR BAY"})
	ds := housingDataset(t, rows)

	once, _, err := Impute(context.Background(), ds, ImputeOptions{RelativeError: 0.25, Workers: 2})
	require.NoError(t, err)
	twice, res, err := Impute(context.Background(), once, ImputeOptions{RelativeError: 0.25, Workers: 2})
	require.NoError(t, err)

	require.Equal(t, once.Len(), twice.Len())
	for i := 0; i < once.Len(); i++ {
		assert.Equal(t, once.Row(i), twice.Row(i), "row %d", i)
	}
	for _, n := range res.Filled {
		assert.Zero(t, n)
	}
}

func TestImpute_LeavesStringColumns(t *testing.T) {
	t.Parallel()

	ds := housingDataset(t, [][]string{
		{"-122.23", "37.88", "41", "880", "", "322", "126", "8.3252", "452600", ""},
		{"-122.22", "37.86", "21", "7099", "1106", "2401", "1138", "8.3014", "358500", "INLAND"},
	})

	out, _, err := Impute(context.Background(), ds, ImputeOptions{RelativeError: 0})
	require.NoError(t, err)

	labels, err := out.String(housing.OceanProximity)
	require.NoError(t, err)
	assert.Equal(t, []string{"", "INLAND"}, labels)
	assert.Equal(t, 0, mustFloat(t, out, housing.TotalBedrooms).MissingCount())
}

func TestImpute_EmptyColumn(t *testing.T) {
	t.Parallel()

	ds := numericDataset(t, map[string][]string{
		"a": {"1", "2"},
		"b": {"", "NA"},
	}, "a", "b")

	_, _, err := Impute(context.Background(), ds, ImputeOptions{RelativeError: 0.25, OnEmpty: EmptyFail})
	require.Error(t, err)
	assert.True(t, errors.Is(err, dataset.ErrEmptyColumn))
	var ce *dataset.ColumnError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "b", ce.Column)

	out, res, err := Impute(context.Background(), ds, ImputeOptions{RelativeError: 0.25, OnEmpty: EmptyZero})
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Medians["b"])
	assert.Equal(t, []float64{0, 0}, mustFloat(t, out, "b").Values)
}

func TestImpute_UnknownOrStringColumn(t *testing.T) {
	t.Parallel()

	ds := housingDataset(t, sampleRows)

	_, _, err := Impute(context.Background(), ds, ImputeOptions{Columns: []string{"nope"}})
	assert.True(t, errors.Is(err, dataset.ErrMissingColumn))

	_, _, err = Impute(context.Background(), ds, ImputeOptions{Columns: []string{housing.OceanProximity}})
	assert.True(t, errors.Is(err, dataset.ErrColumnType))
}

func TestImpute_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := Impute(ctx, housingDataset(t, sampleRows), ImputeOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}
