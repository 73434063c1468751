package solver

import (
	"github.com/crn-lab/nuctran/hpreal"
	"github.com/crn-lab/nuctran/removal"
	"github.com/crn-lab/nuctran/sparse"
	"github.com/crn-lab/nuctran/trace"
)

// buildTransferMatrix assembles the per-substep transfer matrix A of
// shape (I, I) from model, for a substep duration of dt, per the
// pi-distribution construction: for each source nuclide, compute the
// per-event survival exponentials, turn them into a normalized
// probability over "which event fired", and scatter each event's
// probability into A according to its products (and, for the
// synthetic no-removal event, into the diagonal "stay" term).
func buildTransferMatrix(model *removal.Model, dt hpreal.HighPrecReal, tracer trace.Tracer) *sparse.Matrix {
	n := model.NuclideCount()
	b := sparse.NewBuilder(n, n)

	for i := 0; i < n; i++ {
		events := model.Events(i)
		m := len(events)
		if m <= 1 {
			// No real removals: the synthetic event fires with
			// probability 1, so the column is exactly the i-th unit
			// vector (pure "stay"). Running the general
			// pi-distribution machinery below on zero real events
			// would produce the same result (an empty product for
			// survival, pi[0] = 1, norm = 1); this is just the
			// shortcut.
			b.Add(i, i, hpreal.One())
			continue
		}

		survival := make([]hpreal.HighPrecReal, m-1)
		for l := 0; l < m-1; l++ {
			survival[l] = hpreal.Exp(events[l+1].Rate.Mul(dt).Neg())
		}

		pi := make([]hpreal.HighPrecReal, m)
		for j := 0; j < m; j++ {
			p := hpreal.One()
			for l := 0; l < m-1; l++ {
				if l == j-1 {
					p = p.Mul(hpreal.One().Sub(survival[l]))
				} else {
					p = p.Mul(survival[l])
				}
			}
			pi[j] = p
		}

		norm := hpreal.Zero()
		for _, v := range pi {
			norm = norm.Add(v)
		}
		if norm.IsZero() {
			tracer.ColumnSkipped(i)
			continue
		}

		for j := 0; j < m; j++ {
			p := pi[j].Quo(norm)
			event := events[j]
			fission := len(event.Products) > 1
			for l, product := range event.Products {
				idx, tracked := product.Index()
				if !tracked {
					continue
				}
				if fission {
					b.Add(idx, i, p.Mul(event.Yields[l]))
				} else {
					b.Add(idx, i, p)
				}
			}
			if j == 0 {
				b.Add(i, i, p)
			}
		}
	}

	return b.Build()
}
