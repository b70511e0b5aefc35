// Package matrix is a minimal stand-in for the sparse-matrix library the
// execution engine treats as an external collaborator (spec §1(ii), §6).
// It exposes exactly the operations the algebraic-expression evaluator
// needs — multiply, transpose, select, tuple iteration — and nothing of a
// general linear-algebra API.
//
// Rows are backed by compressed bitmaps (github.com/RoaringBitmap/roaring),
// the same structure pack repo erigon uses for its adjacency/index
// bitmaps. A Matrix is a boolean relation: row i, column j is set iff
// there's a nonzero entry at (i, j).
package matrix

import (
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
)

// Matrix is a sparse boolean relation over a growable id space. Rows are
// stored; the transposed (column-indexed) view is built lazily and cached.
type Matrix struct {
	mu   sync.RWMutex
	rows map[uint64]*roaring.Bitmap
	cols map[uint64]*roaring.Bitmap // lazily built transpose cache
	dim  uint64                     // highest id + 1 seen so far
}

// New returns an empty matrix.
func New() *Matrix {
	return &Matrix{rows: make(map[uint64]*roaring.Bitmap)}
}

// Set marks entry (row, col) as true.
func (m *Matrix) Set(row, col uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.rows[row]
	if !ok {
		b = roaring.New()
		m.rows[row] = b
	}
	b.Add(uint32(col))
	m.cols = nil // invalidate transpose cache
	if row+1 > m.dim {
		m.dim = row + 1
	}
	if col+1 > m.dim {
		m.dim = col + 1
	}
}

// Clear removes every row, leaving an empty matrix with the same
// dimension.
func (m *Matrix) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.rows {
		delete(m.rows, k)
	}
	m.cols = nil
}

// Row returns the bitmap of set columns for a row, or nil if the row is empty.
func (m *Matrix) Row(row uint64) *roaring.Bitmap {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rows[row]
}

// IsEmpty reports whether the matrix has no set entries.
func (m *Matrix) IsEmpty() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, b := range m.rows {
		if !b.IsEmpty() {
			return false
		}
	}
	return true
}

func (m *Matrix) transpose() map[uint64]*roaring.Bitmap {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cols != nil {
		return m.cols
	}
	cols := make(map[uint64]*roaring.Bitmap)
	for r, bm := range m.rows {
		it := bm.Iterator()
		for it.HasNext() {
			c := uint64(it.Next())
			cb, ok := cols[c]
			if !ok {
				cb = roaring.New()
				cols[c] = cb
			}
			cb.Add(uint32(r))
		}
	}
	m.cols = cols
	return cols
}

// Transpose returns a new Matrix with rows and columns swapped. The
// algebraic-expression Transpose node defers the actual swap to here;
// every call materializes a full copy.
func (m *Matrix) Transpose() *Matrix {
	out := New()
	cols := m.transpose()
	for r, b := range cols {
		out.rows[r] = b.Clone()
	}
	out.dim = m.dim
	return out
}

// Multiply computes the boolean (OR-AND) matrix product a*b into a fresh
// Matrix: result[i,k] iff exists j such that a[i,j] and b[j,k].
func Multiply(a, b *Matrix) *Matrix {
	out := New()
	a.mu.RLock()
	defer a.mu.RUnlock()
	for i, arow := range a.rows {
		it := arow.Iterator()
		var acc *roaring.Bitmap
		for it.HasNext() {
			j := uint64(it.Next())
			brow := b.Row(j)
			if brow == nil || brow.IsEmpty() {
				continue
			}
			if acc == nil {
				acc = brow.Clone()
			} else {
				acc.Or(brow)
			}
		}
		if acc != nil && !acc.IsEmpty() {
			out.rows[i] = acc
			if i+1 > out.dim {
				out.dim = i + 1
			}
		}
	}
	return out
}

// Add computes the boolean union (OR) of two matrices of the same shape.
func Add(a, b *Matrix) *Matrix {
	out := New()
	a.mu.RLock()
	for i, arow := range a.rows {
		out.rows[i] = arow.Clone()
	}
	a.mu.RUnlock()
	b.mu.RLock()
	defer b.mu.RUnlock()
	for i, brow := range b.rows {
		if existing, ok := out.rows[i]; ok {
			existing.Or(brow)
		} else {
			out.rows[i] = brow.Clone()
		}
	}
	if a.dim > b.dim {
		out.dim = a.dim
	} else {
		out.dim = b.dim
	}
	return out
}

// Select builds a batch filter matrix F from a slice of bound source node
// ids: row i of F has a single set entry at column rows[i], so F selects
// and reindexes those ids by their position in the slice once multiplied
// against a relation matrix.
func Select(rows []uint64) *Matrix {
	out := New()
	for batchRow, srcID := range rows {
		b := roaring.New()
		b.Add(uint32(srcID))
		out.rows[uint64(batchRow)] = b
	}
	out.dim = uint64(len(rows))
	return out
}

// Reduce returns the total count of set entries in the matrix — used by
// the "reduce count" optimization to answer RETURN count(*) without a
// full scan.
func (m *Matrix) Reduce() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var total int64
	for _, b := range m.rows {
		total += int64(b.GetCardinality())
	}
	return total
}
