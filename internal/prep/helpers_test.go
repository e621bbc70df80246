package prep

import (
	"testing"

	"github.com/stretchr/testify/require"

	"housingprep/internal/dataset"
	"housingprep/internal/housing"
)

// sampleRows are the first records of the California housing dataset.
var sampleRows = [][]string{
	{"-122.23", "37.88", "41", "880", "129", "322", "126", "8.3252", "452600", "NEAR BAY"},
	{"-122.22", "37.86", "21", "7099", "1106", "2401", "1138", "8.3014", "358500", "NEAR BAY"},
	{"-122.24", "37.85", "52", "1467", "190", "496", "177", "7.2574", "352100", "NEAR BAY"},
	{"-122.25", "37.85", "52", "1274", "235", "558", "219", "5.6431", "341300", "NEAR BAY"},
	{"-122.25", "37.85", "52", "1627", "280", "565", "259", "3.8462", "342200", "NEAR BAY"},
}

func housingDataset(t *testing.T, rows [][]string) *dataset.Dataset {
	t.Helper()
	b := dataset.NewBuilder(housing.InputSchema())
	for _, r := range rows {
		require.NoError(t, b.AppendRaw(r))
	}
	return b.Build()
}

// numericDataset builds a dataset of Float64 columns from raw cells, one
// slice per column. "" is Missing.
func numericDataset(t *testing.T, cols map[string][]string, order ...string) *dataset.Dataset {
	t.Helper()
	fields := make([]dataset.Field, len(order))
	for i, name := range order {
		fields[i] = dataset.Field{Name: name, Type: dataset.Float64}
	}
	b := dataset.NewBuilder(dataset.MustSchema(fields...))
	n := len(cols[order[0]])
	for r := 0; r < n; r++ {
		cells := make([]string, len(order))
		for i, name := range order {
			cells[i] = cols[name][r]
		}
		require.NoError(t, b.AppendRaw(cells))
	}
	return b.Build()
}

func mustFloat(t *testing.T, ds *dataset.Dataset, name string) dataset.Float64Column {
	t.Helper()
	c, err := ds.Float64(name)
	require.NoError(t, err)
	return c
}
