package matrix

import "sort"

// Tuple is one nonzero (row, col) entry.
type Tuple struct {
	Row uint64
	Col uint64
}

// TupleIterator walks the nonzero entries of a Matrix in row-major,
// ascending-column order within each row. It mirrors the external matrix
// library's iterator new/next/reset/free contract (spec §6); Free is a
// no-op here since there is no native resource to release.
type TupleIterator struct {
	m       *Matrix
	rowKeys []uint64
	rowIdx  int
	cols    []uint32
	colIdx  int
}

// NewTupleIterator allocates an iterator positioned before the first entry.
func NewTupleIterator(m *Matrix) *TupleIterator {
	it := &TupleIterator{m: m}
	it.Reset()
	return it
}

// Reset repositions the iterator to the first entry, re-snapshotting the
// matrix's row set (a fresh batch evaluation always gets a fresh reset).
func (it *TupleIterator) Reset() {
	it.m.mu.RLock()
	defer it.m.mu.RUnlock()
	it.rowKeys = it.rowKeys[:0]
	for r, b := range it.m.rows {
		if !b.IsEmpty() {
			it.rowKeys = append(it.rowKeys, r)
		}
	}
	sort.Slice(it.rowKeys, func(i, j int) bool { return it.rowKeys[i] < it.rowKeys[j] })
	it.rowIdx = 0
	it.cols = nil
	it.colIdx = 0
	it.loadRow()
}

func (it *TupleIterator) loadRow() {
	it.cols = nil
	it.colIdx = 0
	for it.rowIdx < len(it.rowKeys) {
		row := it.rowKeys[it.rowIdx]
		b := it.m.rows[row]
		if b != nil && !b.IsEmpty() {
			it.cols = b.ToArray()
			return
		}
		it.rowIdx++
	}
}

// Next returns the next (row, col) tuple and true, or (0,0,false) at
// end-of-stream.
func (it *TupleIterator) Next() (Tuple, bool) {
	for {
		if it.rowIdx >= len(it.rowKeys) {
			return Tuple{}, false
		}
		if it.colIdx >= len(it.cols) {
			it.rowIdx++
			it.loadRow()
			continue
		}
		row := it.rowKeys[it.rowIdx]
		col := it.cols[it.colIdx]
		it.colIdx++
		return Tuple{Row: row, Col: uint64(col)}, true
	}
}

// Free releases iterator-local resources. No-op: Go's GC reclaims the
// slices; kept to mirror the external library's four-call contract.
func (it *TupleIterator) Free() {}
