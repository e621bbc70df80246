package dataset

import "fmt"

// Dataset is a columnar batch of records sharing one Schema.
type Dataset struct {
	schema  Schema
	floats  map[string]Float64Column
	strings map[string][]string
	n       int
}

// New returns an empty Dataset (zero records) with the given schema.
func New(schema Schema) *Dataset {
	return NewBuilder(schema).Build()
}

func (d *Dataset) Len() int { return d.n }

func (d *Dataset) Schema() Schema { return d.schema }

// Float64 returns the named numeric column. The column is shared; callers
// must not mutate it.
func (d *Dataset) Float64(name string) (Float64Column, error) {
	f, ok := d.schema.Lookup(name)
	if !ok {
		return Float64Column{}, columnErr("float64", name, ErrMissingColumn)
	}
	if f.Type != Float64 {
		return Float64Column{}, columnErr("float64", name, ErrColumnType)
	}
	return d.floats[name], nil
}

// String returns the named string column. The slice is shared; callers must
// not mutate it.
func (d *Dataset) String(name string) ([]string, error) {
	f, ok := d.schema.Lookup(name)
	if !ok {
		return nil, columnErr("string", name, ErrMissingColumn)
	}
	if f.Type != String {
		return nil, columnErr("string", name, ErrColumnType)
	}
	return d.strings[name], nil
}

// WithFloat64 returns a new Dataset where name holds col. An existing Float64
// column of that name is replaced; otherwise the column is appended to the
// schema. Other columns are shared with d.
func (d *Dataset) WithFloat64(name string, col Float64Column) (*Dataset, error) {
	if col.Len() != d.n || len(col.Valid) != d.n {
		return nil, fmt.Errorf("dataset: column %q has %d cells, want %d", name, col.Len(), d.n)
	}
	if f, ok := d.schema.Lookup(name); ok && f.Type != Float64 {
		return nil, columnErr("with_float64", name, ErrColumnType)
	}

	out := d.shallow()
	out.schema = d.schema.with(Field{Name: name, Type: Float64})
	out.floats[name] = col
	return out, nil
}

// Filter returns a new Dataset holding only the records i with keep[i].
func (d *Dataset) Filter(keep []bool) (*Dataset, error) {
	if len(keep) != d.n {
		return nil, fmt.Errorf("dataset: filter mask has %d entries, want %d", len(keep), d.n)
	}
	n := 0
	for _, k := range keep {
		if k {
			n++
		}
	}

	out := &Dataset{
		schema:  d.schema,
		floats:  make(map[string]Float64Column, len(d.floats)),
		strings: make(map[string][]string, len(d.strings)),
		n:       n,
	}
	for name, c := range d.floats {
		nc := NewFloat64Column(n)
		j := 0
		for i, k := range keep {
			if !k {
				continue
			}
			nc.Values[j] = c.Values[i]
			nc.Valid[j] = c.Valid[i]
			j++
		}
		out.floats[name] = nc
	}
	for name, c := range d.strings {
		nc := make([]string, 0, n)
		for i, k := range keep {
			if k {
				nc = append(nc, c[i])
			}
		}
		out.strings[name] = nc
	}
	return out, nil
}

// Clone returns a deep copy.
func (d *Dataset) Clone() *Dataset {
	out := &Dataset{
		schema:  d.schema,
		floats:  make(map[string]Float64Column, len(d.floats)),
		strings: make(map[string][]string, len(d.strings)),
		n:       d.n,
	}
	for name, c := range d.floats {
		out.floats[name] = c.Clone()
	}
	for name, c := range d.strings {
		out.strings[name] = append([]string(nil), c...)
	}
	return out
}

// Row returns record i positionally in schema order: float64 for present
// numeric cells, nil for Missing, string for string cells.
func (d *Dataset) Row(i int) []any {
	fields := d.schema.fields
	out := make([]any, len(fields))
	for j, f := range fields {
		switch f.Type {
		case Float64:
			if v, ok := d.floats[f.Name].Get(i); ok {
				out[j] = v
			}
		case String:
			out[j] = d.strings[f.Name][i]
		}
	}
	return out
}

func (d *Dataset) shallow() *Dataset {
	out := &Dataset{
		schema:  d.schema,
		floats:  make(map[string]Float64Column, len(d.floats)+1),
		strings: make(map[string][]string, len(d.strings)),
		n:       d.n,
	}
	for k, v := range d.floats {
		out.floats[k] = v
	}
	for k, v := range d.strings {
		out.strings[k] = v
	}
	return out
}
