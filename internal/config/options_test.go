package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOptionsAccessors(t *testing.T) {
	t.Parallel()

	o := Options{
		"has_header":  false,
		"trim":        "true",
		"batch":       250.0,
		"batch_str":   " 12 ",
		"comma":       ";",
		"tab":         `\t`,
		"header_map":  map[string]any{"a b": "a_b", "n": 3},
		"list":        []any{"x", 2},
		"csv_list":    "x, y,,z",
		"sheet":       "Data",
		"not_a_slice": 3,
	}

	assert.False(t, o.Bool("has_header", true))
	assert.True(t, o.Bool("trim", false))
	assert.True(t, o.Bool("absent", true))
	assert.Equal(t, 250, o.Int("batch", 0))
	assert.Equal(t, 12, o.Int("batch_str", 0))
	assert.Equal(t, 7, o.Int("comma", 7))
	assert.Equal(t, ';', o.Rune("comma", ','))
	assert.Equal(t, '\t', o.Rune("tab", ','))
	assert.Equal(t, ',', o.Rune("absent", ','))
	assert.Equal(t, map[string]string{"a b": "a_b", "n": "3"}, o.StringMap("header_map"))
	assert.Empty(t, o.StringMap("absent"))
	assert.Equal(t, []string{"x", "2"}, o.StringSlice("list"))
	assert.Equal(t, []string{"x", "y", "z"}, o.StringSlice("csv_list"))
	assert.Nil(t, o.StringSlice("not_a_slice"))
	assert.Equal(t, "Data", o.String("sheet", ""))
	assert.Equal(t, "3", o.String("not_a_slice", ""))
	assert.Equal(t, "def", o.String("absent", "def"))

	var nilOpts Options
	assert.Nil(t, nilOpts.Any("x"))
	assert.Equal(t, 5, nilOpts.Int("x", 5))
}
