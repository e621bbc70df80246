package prep

import (
	"fmt"
	"sort"

	"golang.org/x/text/unicode/norm"

	"housingprep/internal/dataset"
)

// CategoryIndex maps each distinct category to a non-negative index.
// Index 0 is the most frequent category; ties keep first-appearance order.
type CategoryIndex struct {
	Categories []string // by index
	Counts     []int    // by index
	index      map[string]int
}

// BuildCategoryIndex counts values (after NFC normalisation) and assigns
// indices by descending frequency.
func BuildCategoryIndex(values []string) CategoryIndex {
	counts := make(map[string]int)
	var order []string
	for _, v := range values {
		v = norm.NFC.String(v)
		if _, seen := counts[v]; !seen {
			order = append(order, v)
		}
		counts[v]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	ci := CategoryIndex{
		Categories: order,
		Counts:     make([]int, len(order)),
		index:      make(map[string]int, len(order)),
	}
	for i, c := range order {
		ci.Counts[i] = counts[c]
		ci.index[c] = i
	}
	return ci
}

func (ci CategoryIndex) Len() int { return len(ci.Categories) }

// Lookup returns the index of v.
func (ci CategoryIndex) Lookup(v string) (int, bool) {
	i, ok := ci.index[norm.NFC.String(v)]
	return i, ok
}

// Mapping returns category -> index.
func (ci CategoryIndex) Mapping() map[string]int {
	out := make(map[string]int, len(ci.index))
	for k, v := range ci.index {
		out[k] = v
	}
	return out
}

// EncodeCategory builds a CategoryIndex over source and writes each record's
// index into target as an integer-valued Float64.
func EncodeCategory(ds *dataset.Dataset, source, target string) (*dataset.Dataset, CategoryIndex, error) {
	values, err := ds.String(source)
	if err != nil {
		return nil, CategoryIndex{}, fmt.Errorf("encode category: %w", err)
	}

	ci := BuildCategoryIndex(values)

	col := dataset.NewFloat64Column(len(values))
	for i, v := range values {
		idx, _ := ci.Lookup(v)
		col.Set(i, float64(idx))
	}

	out, err := ds.WithFloat64(target, col)
	if err != nil {
		return nil, CategoryIndex{}, fmt.Errorf("encode category: %w", err)
	}
	return out, ci, nil
}
