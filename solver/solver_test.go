package solver

import (
	"testing"

	"gonum.org/v1/gonum/floats"

	"github.com/crn-lab/nuctran/config"
	"github.com/crn-lab/nuctran/hpreal"
	"github.com/crn-lab/nuctran/removal"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.New(60, "1e-200", "1e+200", "1e-30")
	if err != nil {
		t.Fatalf("config.New: %v", err)
	}
	return cfg
}

// A single stable nuclide with no removals keeps its concentration exactly.
func TestScenarioSingleStableNuclide(t *testing.T) {
	cfg := testConfig(t)
	s := New([]string{"X"}, cfg)

	w := s.Solve(
		map[string]hpreal.HighPrecReal{"X": hpreal.MustNew("1.0")},
		hpreal.MustNew("5"), hpreal.MustNew("1.0"),
	)
	if got := w["X"]; got.Cmp(hpreal.MustNew("1.0")) != 0 {
		t.Errorf("X = %s, want exactly 1.0", got)
	}
}

// A single decay splits mass 50/50 at one half-life.
func TestScenarioSingleDecay(t *testing.T) {
	cfg := testConfig(t)
	s := New([]string{"A", "B"}, cfg)
	lambda := hpreal.Log(hpreal.MustNew("2")) // ln(2)/1.0
	if err := s.AddRemoval(0, lambda, []removal.ProductRef{removal.Tracked(1)}, nil); err != nil {
		t.Fatalf("AddRemoval: %v", err)
	}

	w := s.Solve(
		map[string]hpreal.HighPrecReal{"A": hpreal.MustNew("1.0")},
		hpreal.MustNew("5"), hpreal.MustNew("1.0"),
	)
	half := hpreal.MustNew("0.5")
	if !hpreal.CloseWithinDigits(w["A"], half, 40) {
		t.Errorf("A = %s, want ~0.5", w["A"])
	}
	if !hpreal.CloseWithinDigits(w["B"], half, 40) {
		t.Errorf("B = %s, want ~0.5", w["B"])
	}
	if !floats.EqualWithinAbsOrRel(w["A"].Float64(), 0.5, 1e-9, 1e-9) {
		t.Errorf("A.Float64() = %v, want ~0.5", w["A"].Float64())
	}
	if !floats.EqualWithinAbsOrRel(w["B"].Float64(), 0.5, 1e-9, 1e-9) {
		t.Errorf("B.Float64() = %v, want ~0.5", w["B"].Float64())
	}
}

// A two-step decay chain matches the analytic Bateman solution.
func TestScenarioTwoStepChain(t *testing.T) {
	cfg := testConfig(t)
	s := New([]string{"A", "B", "C"}, cfg)
	if err := s.AddRemoval(0, hpreal.MustNew("1.0"), []removal.ProductRef{removal.Tracked(1)}, nil); err != nil {
		t.Fatalf("AddRemoval A: %v", err)
	}
	if err := s.AddRemoval(1, hpreal.MustNew("2.0"), []removal.ProductRef{removal.Tracked(2)}, nil); err != nil {
		t.Fatalf("AddRemoval B: %v", err)
	}

	w := s.Solve(
		map[string]hpreal.HighPrecReal{"A": hpreal.MustNew("1.0")},
		hpreal.MustNew("6"), hpreal.MustNew("1.0"),
	)

	eA := hpreal.Exp(hpreal.MustNew("-1"))
	e2 := hpreal.Exp(hpreal.MustNew("-2"))
	wantA := eA
	wantB := eA.Sub(e2)
	wantC := hpreal.One().Sub(wantA).Sub(wantB)

	if !hpreal.CloseWithinDigits(w["A"], wantA, 18) {
		t.Errorf("A = %s, want %s", w["A"], wantA)
	}
	if !hpreal.CloseWithinDigits(w["B"], wantB, 18) {
		t.Errorf("B = %s, want %s", w["B"], wantB)
	}
	if !hpreal.CloseWithinDigits(w["C"], wantC, 18) {
		t.Errorf("C = %s, want %s", w["C"], wantC)
	}
	if !floats.EqualWithinAbsOrRel(w["A"].Float64(), wantA.Float64(), 1e-9, 1e-9) {
		t.Errorf("A.Float64() = %v, want ~%v", w["A"].Float64(), wantA.Float64())
	}
}

// A two-product fission event splits mass by yield.
func TestScenarioTwoProductFission(t *testing.T) {
	cfg := testConfig(t)
	s := New([]string{"P", "X", "Y"}, cfg)
	err := s.AddRemoval(0, hpreal.MustNew("0.1"),
		[]removal.ProductRef{removal.Tracked(1), removal.Tracked(2)},
		[]hpreal.HighPrecReal{hpreal.MustNew("0.6"), hpreal.MustNew("0.4")})
	if err != nil {
		t.Fatalf("AddRemoval: %v", err)
	}

	w := s.Solve(
		map[string]hpreal.HighPrecReal{"P": hpreal.MustNew("1.0")},
		hpreal.MustNew("5"), hpreal.MustNew("10.0"),
	)

	survival := hpreal.Exp(hpreal.MustNew("-1"))
	removed := hpreal.One().Sub(survival)
	wantX := hpreal.MustNew("0.6").Mul(removed)
	wantY := hpreal.MustNew("0.4").Mul(removed)

	if !hpreal.CloseWithinDigits(w["P"], survival, 10) {
		t.Errorf("P = %s, want %s", w["P"], survival)
	}
	if !hpreal.CloseWithinDigits(w["X"], wantX, 10) {
		t.Errorf("X = %s, want %s", w["X"], wantX)
	}
	if !hpreal.CloseWithinDigits(w["Y"], wantY, 10) {
		t.Errorf("Y = %s, want %s", w["Y"], wantY)
	}
}

// An untracked product is a sink; mass is not conserved.
func TestScenarioUntrackedProductSink(t *testing.T) {
	cfg := testConfig(t)
	s := New([]string{"A", "B"}, cfg)
	lambda := hpreal.Log(hpreal.MustNew("2"))
	if err := s.AddRemoval(0, lambda, []removal.ProductRef{removal.Untracked()}, nil); err != nil {
		t.Fatalf("AddRemoval: %v", err)
	}

	w := s.Solve(
		map[string]hpreal.HighPrecReal{"A": hpreal.MustNew("1.0")},
		hpreal.MustNew("5"), hpreal.MustNew("1.0"),
	)
	if !hpreal.CloseWithinDigits(w["A"], hpreal.MustNew("0.5"), 40) {
		t.Errorf("A = %s, want ~0.5", w["A"])
	}
	if w["B"].Sign() != 0 {
		t.Errorf("B = %s, want exactly 0 (untracked sink)", w["B"])
	}
}

// A rate below the configured minimum is silently dropped.
func TestScenarioRateFiltering(t *testing.T) {
	cfg := testConfig(t)
	s := New([]string{"A", "B"}, cfg)
	tooSmall := hpreal.MustNew("1e-300")
	if err := s.AddRemoval(0, tooSmall, []removal.ProductRef{removal.Tracked(1)}, nil); err != nil {
		t.Fatalf("expected silent drop, got error: %v", err)
	}

	w := s.Solve(
		map[string]hpreal.HighPrecReal{"A": hpreal.MustNew("1.0")},
		hpreal.MustNew("5"), hpreal.MustNew("1.0"),
	)
	if w["A"].Cmp(hpreal.MustNew("1.0")) != 0 {
		t.Errorf("A = %s, want exactly 1.0 (removal dropped)", w["A"])
	}
	if w["B"].Sign() != 0 {
		t.Errorf("B = %s, want exactly 0", w["B"])
	}
}

// Column stochasticity: a non-fission column's probabilities (mass
// either stays or reaches a tracked product) sum to 1.
func TestTransferMatrixColumnStochasticity(t *testing.T) {
	cfg := testConfig(t)
	model := removal.NewModel([]string{"A", "B"}, cfg)
	if err := model.AddRemoval(0, hpreal.MustNew("0.3"), []removal.ProductRef{removal.Tracked(1)}, nil); err != nil {
		t.Fatalf("AddRemoval: %v", err)
	}

	a := buildTransferMatrix(model, hpreal.MustNew("0.01"), nopTracer{})
	stay, _ := a.AtPrec(0, 0)
	moved, _ := a.AtPrec(1, 0)
	total := stay.Add(moved)
	if !hpreal.CloseWithinDigits(total, hpreal.One(), 40) {
		t.Errorf("column 0 sums to %s, want 1", total)
	}
}

type nopTracer struct{}

func (nopTracer) SquareStep(step, total int)     {}
func (nopTracer) ColumnSkipped(nuclideIndex int) {}
