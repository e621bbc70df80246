package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"housingprep/internal/dataset"
	"housingprep/internal/storage"
)

func TestBuildCreateSQL_Unqualified(t *testing.T) {
	t.Parallel()

	schemaSQL, tableSQL, err := buildCreateSQL(storage.TableSpec{
		Name: "housing",
		Columns: []storage.ColumnSpec{
			{Name: "median_income", Type: dataset.Float64},
			{Name: "ocean_proximity", Type: dataset.String},
		},
	})
	require.NoError(t, err)
	assert.Empty(t, schemaSQL)
	assert.Equal(t, `CREATE TABLE IF NOT EXISTS "housing" ("median_income" DOUBLE PRECISION, "ocean_proximity" TEXT);`, tableSQL)
}

func TestBuildCreateSQL_Qualified(t *testing.T) {
	t.Parallel()

	schemaSQL, tableSQL, err := buildCreateSQL(storage.TableSpec{
		Name:    "prep.housing",
		Columns: []storage.ColumnSpec{{Name: "avg_price_by_age", Type: dataset.Float64}},
	})
	require.NoError(t, err)
	assert.Equal(t, `CREATE SCHEMA IF NOT EXISTS "prep";`, schemaSQL)
	assert.Equal(t, `CREATE TABLE IF NOT EXISTS "prep"."housing" ("avg_price_by_age" DOUBLE PRECISION);`, tableSQL)
}

func TestBuildCreateSQL_Errors(t *testing.T) {
	t.Parallel()

	_, _, err := buildCreateSQL(storage.TableSpec{})
	assert.Error(t, err)
	_, _, err = buildCreateSQL(storage.TableSpec{Name: "t"})
	assert.Error(t, err)
}

func TestTableIdentifier(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `"a"."b"`, pgTableIdent("a.b"))
	assert.Equal(t, `"t"`, pgTableIdent(" t "))
	assert.Equal(t, `"we""ird"`, pgIdent(`we"ird`))
}
