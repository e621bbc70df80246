// Package quantile implements a Greenwald-Khanna approximate quantile
// summary with a tunable relative rank error.
//
// For a summary over n values built with relative error eps, Query(p)
// returns a value whose rank is within eps*n of ceil(p*n). eps == 0 keeps
// every value and answers exactly (nearest-rank, no interpolation).
package quantile

import (
	"fmt"
	"math"
	"sort"
)

type tuple struct {
	v     float64
	g     int // rmin(i) - rmin(i-1)
	delta int // rmax(i) - rmin(i)
}

// Summary is not safe for concurrent use.
type Summary struct {
	eps     float64
	n       int
	period  int
	tuples  []tuple
	inserts int

	// eps == 0: every value is kept and sorted on demand.
	exact  []float64
	sorted bool
}

// New returns an empty summary. eps must be in [0, 1).
func New(eps float64) (*Summary, error) {
	if math.IsNaN(eps) || eps < 0 || eps >= 1 {
		return nil, fmt.Errorf("quantile: relative error %v out of range [0, 1)", eps)
	}
	s := &Summary{eps: eps}
	if eps > 0 {
		s.period = int(math.Floor(1 / (2 * eps)))
		if s.period < 1 {
			s.period = 1
		}
	}
	return s, nil
}

func (s *Summary) Count() int { return s.n }

// Size is the number of retained entries.
func (s *Summary) Size() int {
	if s.eps == 0 {
		return len(s.exact)
	}
	return len(s.tuples)
}

// Insert adds v. NaN is ignored.
func (s *Summary) Insert(v float64) {
	if math.IsNaN(v) {
		return
	}
	if s.eps == 0 {
		s.exact = append(s.exact, v)
		s.sorted = false
		s.n++
		return
	}

	i := sort.Search(len(s.tuples), func(j int) bool { return s.tuples[j].v > v })

	delta := 0
	if i > 0 && i < len(s.tuples) {
		delta = s.band()
	}

	s.tuples = append(s.tuples, tuple{})
	copy(s.tuples[i+1:], s.tuples[i:])
	s.tuples[i] = tuple{v: v, g: 1, delta: delta}
	s.n++

	if s.period > 0 {
		s.inserts++
		if s.inserts >= s.period {
			s.inserts = 0
			s.compress()
		}
	}
}

// band is floor(2*eps*n), the GK capacity bound for g+delta.
func (s *Summary) band() int {
	return int(math.Floor(2 * s.eps * float64(s.n)))
}

// compress merges adjacent tuples while g+delta stays within the band.
// The first (minimum) and last (maximum) values are always kept.
func (s *Summary) compress() {
	if len(s.tuples) < 3 {
		return
	}
	threshold := s.band()

	merged := make([]tuple, 0, len(s.tuples))
	head := s.tuples[len(s.tuples)-1]
	for i := len(s.tuples) - 2; i >= 1; i-- {
		t := s.tuples[i]
		if t.g+head.g+head.delta <= threshold {
			head.g += t.g
			continue
		}
		merged = append(merged, head)
		head = t
	}
	merged = append(merged, head, s.tuples[0])

	for l, r := 0, len(merged)-1; l < r; l, r = l+1, r-1 {
		merged[l], merged[r] = merged[r], merged[l]
	}
	s.tuples = merged
}

// Query returns the approximate p-quantile, p in [0, 1].
// ok is false when the summary is empty.
func (s *Summary) Query(p float64) (v float64, ok bool) {
	if s.eps == 0 {
		return s.queryExact(p)
	}
	if len(s.tuples) == 0 {
		return 0, false
	}
	last := len(s.tuples) - 1
	if p <= 0 {
		return s.tuples[0].v, true
	}
	if p >= 1 {
		return s.tuples[last].v, true
	}

	rank := int(math.Ceil(p * float64(s.n)))
	maxGD := 0
	for _, t := range s.tuples {
		if gd := t.g + t.delta; gd > maxGD {
			maxGD = gd
		}
	}
	targetErr := maxGD / 2

	minRank := 0
	for i := 0; i < last; i++ {
		t := s.tuples[i]
		minRank += t.g
		maxRank := minRank + t.delta
		if maxRank-targetErr <= rank && rank <= minRank+targetErr {
			return t.v, true
		}
	}
	return s.tuples[last].v, true
}

func (s *Summary) queryExact(p float64) (float64, bool) {
	if len(s.exact) == 0 {
		return 0, false
	}
	if !s.sorted {
		sort.Float64s(s.exact)
		s.sorted = true
	}
	rank := int(math.Ceil(p * float64(s.n)))
	if rank < 1 {
		rank = 1
	}
	if rank > s.n {
		rank = s.n
	}
	return s.exact[rank-1], true
}

// Quantiles builds a summary over values and answers every p in ps.
// ok is false when values is empty (or all NaN).
func Quantiles(values []float64, eps float64, ps ...float64) (out []float64, ok bool, err error) {
	s, err := New(eps)
	if err != nil {
		return nil, false, err
	}
	for _, v := range values {
		s.Insert(v)
	}
	if s.Count() == 0 {
		return nil, false, nil
	}
	out = make([]float64, len(ps))
	for i, p := range ps {
		out[i], _ = s.Query(p)
	}
	return out, true, nil
}
