// Package trace gives a Solver an optional observer for long-running
// self-square exponentiation, in place of the process-global cout
// diagnostics interleaved with arithmetic in the source program. Nop,
// which a Solver uses when no tracer or a nil one is given, costs
// nothing on the hot path.
package trace

// Tracer observes a solve in progress. Implementations must be safe to
// call from the single goroutine driving Solver.Solve; SparseMatrix's
// internal row parallelism is not observable through this interface.
type Tracer interface {
	// SquareStep reports that self-square iteration `step` of `total`
	// has just completed.
	SquareStep(step, total int)
	// ColumnSkipped reports that nuclideIndex's column was left empty
	// in the transfer matrix because its normalization underflowed to
	// exactly zero (the DegenerateColumn case).
	ColumnSkipped(nuclideIndex int)
}

// Nop is a Tracer that does nothing.
type Nop struct{}

func (Nop) SquareStep(step, total int)    {}
func (Nop) ColumnSkipped(nuclideIndex int) {}
