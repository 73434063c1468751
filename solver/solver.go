// Package solver orchestrates the core computation: it consumes a
// removal.Model and a time step, derives the substep count, builds the
// per-substep transfer matrix, drives it through binary-exponentiation
// self-squares, applies the result to the initial concentration
// vector, and returns the final named concentration map.
package solver

import (
	"github.com/crn-lab/nuctran/config"
	"github.com/crn-lab/nuctran/hpreal"
	"github.com/crn-lab/nuctran/removal"
	"github.com/crn-lab/nuctran/sparse"
	"github.com/crn-lab/nuctran/trace"
)

// Solver owns one RemovalModel and exposes the external interface:
// construction from an ordered species list, removal registration, and
// Solve.
type Solver struct {
	model  *removal.Model
	tracer trace.Tracer
}

// Option configures a Solver at construction.
type Option func(*Solver)

// WithTracer installs an observer for self-square progress and
// degenerate columns. The default is trace.Nop{}; a nil t selects it too.
func WithTracer(t trace.Tracer) Option {
	if t == nil {
		t = trace.Nop{}
	}
	return func(s *Solver) { s.tracer = t }
}

// New creates a Solver with I = len(speciesNames) nuclides, each
// seeded with the synthetic "no removal" event.
func New(speciesNames []string, cfg config.Config, opts ...Option) *Solver {
	s := &Solver{
		model:  removal.NewModel(speciesNames, cfg),
		tracer: trace.Nop{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddRemoval registers a removal event on nuclide index; see
// removal.Model.AddRemoval for the exact contract.
func (s *Solver) AddRemoval(index int, rate hpreal.HighPrecReal, products []removal.ProductRef, yields []hpreal.HighPrecReal) error {
	return s.model.AddRemoval(index, rate, products, yields)
}

// Solve evolves initial forward by time, at the substep size implied
// by order, and returns the final concentration of every tracked
// species. Names in initial that are not tracked by this Solver are
// ignored.
func (s *Solver) Solve(initial map[string]hpreal.HighPrecReal, order, time hpreal.HighPrecReal) map[string]hpreal.HighPrecReal {
	k := substepExponent(order, time)
	dt := time.Quo(hpreal.PowerOfTwo(k))

	a := buildTransferMatrix(s.model, dt, s.tracer)
	a.SquareRepeatedly(k, s.tracer.SquareStep)

	w0 := packVector(s.model, initial)
	w := sparse.MultiplyGeneral(a, w0)
	return unpackVector(s.model, w)
}

// substepExponent derives k = floor(log2(t / 10^-n)) so that dt =
// t/2^k is approximately 10^-n. floor is used, not round or ceil:
// preserved from the source program unchanged, per the Open Questions
// of the specification.
func substepExponent(order, time hpreal.HighPrecReal) int {
	tenPowN := hpreal.Pow(hpreal.FromInt64(10), order)
	x := time.Mul(tenPowN) // t / 10^-n == t * 10^n
	return hpreal.Log2(x).FloorInt()
}

func packVector(model *removal.Model, initial map[string]hpreal.HighPrecReal) *sparse.Matrix {
	b := sparse.NewBuilder(model.NuclideCount(), 1)
	for name, v := range initial {
		if idx, ok := model.Index(name); ok {
			b.Add(idx, 0, v)
		}
	}
	return b.Build()
}

func unpackVector(model *removal.Model, w *sparse.Matrix) map[string]hpreal.HighPrecReal {
	names := model.Names()
	out := make(map[string]hpreal.HighPrecReal, len(names))
	for i, name := range names {
		v, ok := w.AtPrec(i, 0)
		if !ok {
			v = hpreal.Zero()
		}
		out[name] = v
	}
	return out
}
