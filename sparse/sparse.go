// Package sparse implements the sparse HighPrecReal matrix at the core
// of the solver: construction via Builder, dense-vector right-multiply
// via MultiplyGeneral, and in-place self-squaring via
// SelfSquareInPlace / SquareRepeatedly.
//
// Storage is row-major: each row is a slice of (column, value) pairs
// sorted ascending by column, rather than the map-of-map-of-HighPrecReal
// the source program uses, so that a row's reduction order is fixed
// and reproducible (see SelfSquareInPlace) and so that At can binary
// search instead of walking a map.
package sparse

import (
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/crn-lab/nuctran/hpreal"
)

type entry struct {
	col int
	val hpreal.HighPrecReal
}

// Matrix is a sparse, arbitrary-precision matrix. The zero value is
// not usable; construct one via NewBuilder or MultiplyGeneral.
type Matrix struct {
	rows, cols int
	data       [][]entry // data[r] sorted ascending by col, no duplicate cols
}

var _ mat.Matrix = (*Matrix)(nil)

// Dims implements gonum/mat.Matrix.
func (m *Matrix) Dims() (r, c int) { return m.rows, m.cols }

// T implements gonum/mat.Matrix.
func (m *Matrix) T() mat.Matrix { return mat.Transpose{Matrix: m} }

// At implements gonum/mat.Matrix, returning entries as float64 for
// display and interop; arithmetic within this package always goes
// through AtPrec to stay at full precision.
func (m *Matrix) At(i, j int) float64 {
	v, ok := m.AtPrec(i, j)
	if !ok {
		return 0
	}
	return v.Float64()
}

// AtPrec returns the full-precision entry at (i, j), and whether it is
// explicitly stored (an absent entry is an implicit zero, reported as
// (_, false)).
func (m *Matrix) AtPrec(i, j int) (hpreal.HighPrecReal, bool) {
	row := m.data[i]
	lo, hi := 0, len(row)
	for lo < hi {
		mid := (lo + hi) / 2
		if row[mid].col < j {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(row) && row[lo].col == j {
		return row[lo].val, true
	}
	return hpreal.HighPrecReal{}, false
}

// NNZ returns the number of explicitly stored entries.
func (m *Matrix) NNZ() int {
	n := 0
	for _, row := range m.data {
		n += len(row)
	}
	return n
}

// Builder accumulates entries, possibly out of order and with
// repeated (row, col) pairs summed together, then produces an
// immutable sorted Matrix.
type Builder struct {
	rows, cols int
	rowAcc     []map[int]hpreal.HighPrecReal
}

// NewBuilder creates a Builder for a matrix of the given shape.
func NewBuilder(rows, cols int) *Builder {
	return &Builder{rows: rows, cols: cols, rowAcc: make([]map[int]hpreal.HighPrecReal, rows)}
}

// Add accumulates v into the entry at (i, j). Calls with the same (i,
// j) add together; the addition order is the call order of Add, which
// callers must keep deterministic themselves if they need a
// reproducible result (see the transfer-matrix construction in
// package solver, which always calls Add in ascending source/event
// order).
func (b *Builder) Add(i, j int, v hpreal.HighPrecReal) {
	if b.rowAcc[i] == nil {
		b.rowAcc[i] = make(map[int]hpreal.HighPrecReal)
	}
	if cur, ok := b.rowAcc[i][j]; ok {
		b.rowAcc[i][j] = cur.Add(v)
	} else {
		b.rowAcc[i][j] = v
	}
}

// Build finalizes the accumulated entries into a Matrix with each row
// sorted ascending by column.
func (b *Builder) Build() *Matrix {
	m := &Matrix{rows: b.rows, cols: b.cols, data: make([][]entry, b.rows)}
	for i, acc := range b.rowAcc {
		if len(acc) == 0 {
			continue
		}
		m.data[i] = sortedRow(acc)
	}
	return m
}

func sortedRow(acc map[int]hpreal.HighPrecReal) []entry {
	cols := make([]int, 0, len(acc))
	for c := range acc {
		cols = append(cols, c)
	}
	sort.Ints(cols)
	row := make([]entry, len(cols))
	for i, c := range cols {
		row[i] = entry{col: c, val: acc[c]}
	}
	return row
}

// multiplyRow computes row r of A*B, where rowA is A's row r and B is
// the full right-hand operand. Contributions are accumulated in a
// fixed order: rowA's entries ascending by column, and for each, B's
// corresponding row ascending by column — the same order regardless of
// which goroutine or caller computes this particular row, so the
// result is reproducible independent of how rows are parallelized.
func multiplyRow(rowA []entry, b *Matrix) []entry {
	if len(rowA) == 0 {
		return nil
	}
	acc := make(map[int]hpreal.HighPrecReal)
	for _, a := range rowA {
		for _, bEntry := range b.data[a.col] {
			contribution := a.val.Mul(bEntry.val)
			if cur, ok := acc[bEntry.col]; ok {
				acc[bEntry.col] = cur.Add(contribution)
			} else {
				acc[bEntry.col] = contribution
			}
		}
	}
	if len(acc) == 0 {
		return nil
	}
	return sortedRow(acc)
}

// MultiplyGeneral computes C = A*B for A of shape (m, k) and B of
// shape (k, n). Used by the solver to apply the exponentiated transfer
// matrix to the initial concentration vector, where n = 1.
func MultiplyGeneral(a, b *Matrix) *Matrix {
	if a.cols != b.rows {
		panic("sparse: dimension mismatch in MultiplyGeneral")
	}
	out := &Matrix{rows: a.rows, cols: b.cols, data: make([][]entry, a.rows)}
	for r := 0; r < a.rows; r++ {
		out.data[r] = multiplyRow(a.data[r], b)
	}
	return out
}

// SelfSquareInPlace computes M <- M*M. There is no cancellation or
// timeout: the call blocks until every row is complete, or the process
// is terminated. The right-hand operand read by every row's
// computation is the snapshot of M at entry: a fresh data table is
// built row by row and only swapped into m once every row is
// complete, so a row being computed never observes a partially
// updated M. Rows are computed in parallel: each goroutine reads the
// entire snapshot but writes only to its own slot of the output
// slice, which needs no locking since slice indices don't alias.
func (m *Matrix) SelfSquareInPlace() {
	snapshot := &Matrix{rows: m.rows, cols: m.cols, data: m.data}
	next := make([][]entry, m.rows)

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for r := 0; r < m.rows; r++ {
		r := r
		g.Go(func() error {
			next[r] = multiplyRow(snapshot.data[r], snapshot)
			return nil
		})
	}
	g.Wait()
	m.data = next
}

// SquareRepeatedly applies SelfSquareInPlace exactly k times, computing
// M <- M^(2^k). This is not general integer exponentiation: the caller
// always passes the base-2 logarithm of the desired power, and the
// algorithm exploits M^(2^k) = ((M^2)^2...)^2. k = 0 leaves M
// unchanged. progress, if non-nil, is called after each completed
// self-square with (step, k).
func (m *Matrix) SquareRepeatedly(k int, progress func(step, total int)) {
	if k < 0 {
		panic("sparse: SquareRepeatedly requires k >= 0")
	}
	for step := 1; step <= k; step++ {
		m.SelfSquareInPlace()
		if progress != nil {
			progress(step, k)
		}
	}
}
