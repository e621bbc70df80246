package storage

import (
	"fmt"
	"strings"

	"housingprep/internal/dataset"
)

// TableSpec describes a destination table derived from a dataset schema.
type TableSpec struct {
	Name    string
	Columns []ColumnSpec
}

// ColumnSpec is one destination column. Every column is nullable because any
// Float64 cell may be Missing.
type ColumnSpec struct {
	Name string
	Type dataset.Type
}

// TableSpecFor maps schema onto a table named name.
func TableSpecFor(name string, schema dataset.Schema) (TableSpec, error) {
	if strings.TrimSpace(name) == "" {
		return TableSpec{}, fmt.Errorf("storage: table name is empty")
	}
	spec := TableSpec{Name: name}
	for _, f := range schema.Fields() {
		spec.Columns = append(spec.Columns, ColumnSpec{Name: f.Name, Type: f.Type})
	}
	return spec, nil
}

// ColumnNames returns the column names in table order.
func (t TableSpec) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// SplitQualifiedName splits "schema.table". Anything other than exactly one
// dot is treated as an unqualified name.
func SplitQualifiedName(name string) (schema, table string) {
	name = strings.TrimSpace(name)
	parts := strings.Split(name, ".")
	if len(parts) != 2 {
		return "", name
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
}
