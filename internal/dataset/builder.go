package dataset

import (
	"fmt"
	"strconv"
	"strings"
)

// Builder accumulates records row by row and produces a Dataset.
// It is not safe for concurrent use.
type Builder struct {
	schema Schema
	floats []Float64Column // indexed by field position; zero value for string fields
	strs   [][]string      // indexed by field position; nil for float fields
	n      int
}

func NewBuilder(schema Schema) *Builder {
	b := &Builder{
		schema: schema,
		floats: make([]Float64Column, schema.Len()),
		strs:   make([][]string, schema.Len()),
	}
	return b
}

// AppendRaw parses one record given as raw cells in schema order.
//
// Float64 cells holding a missing token (see IsMissingToken) become Missing.
// String cells are stored verbatim.
func (b *Builder) AppendRaw(cells []string) error {
	if len(cells) != b.schema.Len() {
		return fmt.Errorf("dataset: record has %d cells, want %d", len(cells), b.schema.Len())
	}
	// Parse first so a bad record leaves the builder untouched.
	parsed := make([]float64, len(cells))
	valid := make([]bool, len(cells))
	for i, f := range b.schema.fields {
		if f.Type != Float64 || IsMissingToken(cells[i]) {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(cells[i]), 64)
		if err != nil {
			return fmt.Errorf("dataset: column %q: parse %q: %w", f.Name, cells[i], err)
		}
		parsed[i] = v
		valid[i] = true
	}

	for i, f := range b.schema.fields {
		switch f.Type {
		case Float64:
			b.floats[i].Values = append(b.floats[i].Values, parsed[i])
			b.floats[i].Valid = append(b.floats[i].Valid, valid[i])
		case String:
			b.strs[i] = append(b.strs[i], cells[i])
		}
	}
	b.n++
	return nil
}

// AppendRow appends a pooled Row. The caller keeps ownership of r.
func (b *Builder) AppendRow(r *Row) error {
	if err := b.AppendRaw(r.V); err != nil {
		if r.Line > 0 {
			return fmt.Errorf("line %d: %w", r.Line, err)
		}
		return err
	}
	return nil
}

func (b *Builder) Len() int { return b.n }

// Build returns the Dataset. The Builder must not be used afterwards.
func (b *Builder) Build() *Dataset {
	d := &Dataset{
		schema:  b.schema,
		floats:  make(map[string]Float64Column),
		strings: make(map[string][]string),
		n:       b.n,
	}
	for i, f := range b.schema.fields {
		switch f.Type {
		case Float64:
			c := b.floats[i]
			if c.Values == nil {
				c = NewFloat64Column(0)
			}
			d.floats[f.Name] = c
		case String:
			s := b.strs[i]
			if s == nil {
				s = []string{}
			}
			d.strings[f.Name] = s
		}
	}
	return d
}
