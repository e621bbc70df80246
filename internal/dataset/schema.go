// Package dataset holds the in-memory columnar dataset shared by every
// pipeline stage.
//
// A Dataset is treated as a value: stages read it and return a new Dataset
// rather than mutating the one they were given. Columns may share backing
// arrays between Datasets, so slices returned by accessors are read-only.
package dataset

import (
	"fmt"
	"strings"
)

// Type is the declared type of a column.
type Type int

const (
	Float64 Type = iota + 1
	String
)

func (t Type) String() string {
	switch t {
	case Float64:
		return "float64"
	case String:
		return "string"
	default:
		return fmt.Sprintf("type(%d)", int(t))
	}
}

// ParseType maps a config spelling ("float64", "double", "string", "text") to a Type.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "float64", "float", "double", "numeric":
		return Float64, nil
	case "string", "text", "str":
		return String, nil
	default:
		return 0, fmt.Errorf("unknown column type %q", s)
	}
}

// Field is one named, typed column of a Schema.
type Field struct {
	Name string
	Type Type
}

// Schema is an ordered set of uniquely named fields.
type Schema struct {
	fields []Field
	index  map[string]int
}

// NewSchema builds a Schema. Duplicate or empty names are rejected.
func NewSchema(fields ...Field) (Schema, error) {
	s := Schema{
		fields: make([]Field, 0, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	for _, f := range fields {
		if f.Name == "" {
			return Schema{}, fmt.Errorf("schema: empty column name")
		}
		if f.Type != Float64 && f.Type != String {
			return Schema{}, fmt.Errorf("schema: column %q has invalid type %v", f.Name, f.Type)
		}
		if _, dup := s.index[f.Name]; dup {
			return Schema{}, fmt.Errorf("schema: duplicate column %q", f.Name)
		}
		s.index[f.Name] = len(s.fields)
		s.fields = append(s.fields, f)
	}
	return s, nil
}

// MustSchema is NewSchema for static schemas; it panics on error.
func MustSchema(fields ...Field) Schema {
	s, err := NewSchema(fields...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s Schema) Len() int { return len(s.fields) }

// Fields returns a copy of the fields in declaration order.
func (s Schema) Fields() []Field {
	return append([]Field(nil), s.fields...)
}

// Names returns the column names in declaration order.
func (s Schema) Names() []string {
	out := make([]string, len(s.fields))
	for i, f := range s.fields {
		out[i] = f.Name
	}
	return out
}

// Index returns the position of name, or -1.
func (s Schema) Index(name string) int {
	if i, ok := s.index[name]; ok {
		return i
	}
	return -1
}

func (s Schema) Lookup(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// Equal reports whether both schemas have the same fields in the same order.
func (s Schema) Equal(o Schema) bool {
	if len(s.fields) != len(o.fields) {
		return false
	}
	for i := range s.fields {
		if s.fields[i] != o.fields[i] {
			return false
		}
	}
	return true
}

// with returns a schema where f replaces the field of the same name, or is
// appended when no such field exists.
func (s Schema) with(f Field) Schema {
	out := Schema{
		fields: append([]Field(nil), s.fields...),
		index:  make(map[string]int, len(s.fields)+1),
	}
	for k, v := range s.index {
		out.index[k] = v
	}
	if i, ok := out.index[f.Name]; ok {
		out.fields[i] = f
		return out
	}
	out.index[f.Name] = len(out.fields)
	out.fields = append(out.fields, f)
	return out
}
