package sink

import (
	"testing"

	"github.com/stretchr/testify/require"

	"housingprep/internal/dataset"
)

// smallDataset has one Missing float and a label that needs CSV quoting.
func smallDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	b := dataset.NewBuilder(dataset.MustSchema(
		dataset.Field{Name: "median_income", Type: dataset.Float64},
		dataset.Field{Name: "ocean_proximity", Type: dataset.String},
		dataset.Field{Name: "median_house_value", Type: dataset.Float64},
	))
	require.NoError(t, b.AppendRaw([]string{"8.3252", "NEAR BAY", "452600"}))
	require.NoError(t, b.AppendRaw([]string{"", "INLAND, CA", "1e-7"}))
	return b.Build()
}
