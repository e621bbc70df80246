package prep

import (
	"fmt"
	"sort"

	"housingprep/internal/dataset"
)

type groupAcc struct {
	values []float64
	mean   float64
}

// finish sums in ascending order so the mean is independent of record order.
func (a *groupAcc) finish() {
	if len(a.values) == 0 {
		return
	}
	sort.Float64s(a.values)
	var sum float64
	for _, v := range a.values {
		sum += v
	}
	a.mean = sum / float64(len(a.values))
}

// groupKey identifies a partition. Records with a Missing group value share
// the missing partition.
type groupKey struct {
	missing bool
	v       float64
}

// AttachGroupMean partitions records by exact equality of group and writes
// the mean of target within each partition into output on every member.
//
// Missing targets are ignored; a partition with only Missing targets gets
// Missing. The result does not depend on record order. It returns the number
// of partitions.
func AttachGroupMean(ds *dataset.Dataset, group, target, output string) (*dataset.Dataset, int, error) {
	keys, err := float64Column(ds, "group mean", group)
	if err != nil {
		return nil, 0, err
	}
	vals, err := float64Column(ds, "group mean", target)
	if err != nil {
		return nil, 0, err
	}

	keyOf := func(i int) groupKey {
		v, ok := keys.Get(i)
		if !ok {
			return groupKey{missing: true}
		}
		return groupKey{v: v}
	}

	accs := make(map[groupKey]*groupAcc)
	for i := 0; i < ds.Len(); i++ {
		k := keyOf(i)
		a := accs[k]
		if a == nil {
			a = &groupAcc{}
			accs[k] = a
		}
		if v, ok := vals.Get(i); ok {
			a.values = append(a.values, v)
		}
	}
	for _, a := range accs {
		a.finish()
	}

	col := dataset.NewFloat64Column(ds.Len())
	for i := 0; i < ds.Len(); i++ {
		a := accs[keyOf(i)]
		if len(a.values) == 0 {
			continue
		}
		col.Set(i, a.mean)
	}

	out, err := ds.WithFloat64(output, col)
	if err != nil {
		return nil, 0, fmt.Errorf("group mean: %w", err)
	}
	return out, len(accs), nil
}
