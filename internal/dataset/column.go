package dataset

import "strings"

// Float64Column is a numeric column with an explicit validity mask.
// Valid[i] == false means cell i is Missing and Values[i] is meaningless.
type Float64Column struct {
	Values []float64
	Valid  []bool
}

// NewFloat64Column returns a column of n Missing cells.
func NewFloat64Column(n int) Float64Column {
	return Float64Column{
		Values: make([]float64, n),
		Valid:  make([]bool, n),
	}
}

// Float64Of builds a fully populated column. Handy in tests.
func Float64Of(vs ...float64) Float64Column {
	c := NewFloat64Column(len(vs))
	for i, v := range vs {
		c.Set(i, v)
	}
	return c
}

func (c Float64Column) Len() int { return len(c.Values) }

func (c Float64Column) IsMissing(i int) bool { return !c.Valid[i] }

// Get returns the value at i and whether it is present.
func (c Float64Column) Get(i int) (float64, bool) {
	if !c.Valid[i] {
		return 0, false
	}
	return c.Values[i], true
}

func (c Float64Column) Set(i int, v float64) {
	c.Values[i] = v
	c.Valid[i] = true
}

func (c Float64Column) SetMissing(i int) {
	c.Values[i] = 0
	c.Valid[i] = false
}

// NonMissing returns the present values in record order.
func (c Float64Column) NonMissing() []float64 {
	out := make([]float64, 0, len(c.Values))
	for i, v := range c.Values {
		if c.Valid[i] {
			out = append(out, v)
		}
	}
	return out
}

func (c Float64Column) MissingCount() int {
	n := 0
	for _, ok := range c.Valid {
		if !ok {
			n++
		}
	}
	return n
}

func (c Float64Column) Clone() Float64Column {
	return Float64Column{
		Values: append([]float64(nil), c.Values...),
		Valid:  append([]bool(nil), c.Valid...),
	}
}

// IsMissingToken reports whether a raw cell means Missing at load time.
func IsMissingToken(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "na", "nan", "null":
		return true
	}
	return false
}
