package dataset

import "sync"

// Row is a pooled container holding one raw record as read by a loader,
// positionally aligned to the target schema.
//
// Ownership contract:
//   - Exactly one goroutine "owns" a Row at a time.
//   - A Row may be passed downstream via channels (ownership transfer).
//   - The final consumer (the Builder side of a loader) calls Free() once it
//     has copied the cells out.
//
// On ctx cancellation use Drop() instead of Free(): a canceled consumer may
// still be reading r.V while the producer unwinds, and re-pooling would let
// the producer reuse it concurrently.
type Row struct {
	V    []string
	Line int // 1-based physical line in the source, if known
}

var rowPool sync.Pool

// GetRow returns a pooled Row with length colCount. All cells are zeroed.
func GetRow(colCount int) *Row {
	if v := rowPool.Get(); v != nil {
		r := v.(*Row)
		if cap(r.V) < colCount {
			r.V = make([]string, colCount)
		}
		r.V = r.V[:colCount]
		for i := range r.V {
			r.V[i] = ""
		}
		r.Line = 0
		return r
	}
	return &Row{V: make([]string, colCount)}
}

// Free returns the Row to the pool.
func (r *Row) Free() {
	rowPool.Put(r)
}

// Drop discards the Row without returning it to the pool.
func (r *Row) Drop() {
	r.V = nil
	r.Line = 0
}
