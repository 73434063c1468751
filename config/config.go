// Package config holds the immutable process-wide knobs the solver
// needs: working precision and the rate bounds and output epsilon. It
// replaces the scattered global mutable precision/epsilon/rate-bounds
// of the source program with one value constructed before a Solver
// exists and never mutated after.
package config

import "github.com/crn-lab/nuctran/hpreal"

// Config bundles the knobs read once at the start of a solve and held
// constant thereafter.
type Config struct {
	// Precision is the working precision of every HighPrecReal
	// constructed for the lifetime of this Config, in decimal digits.
	Precision uint
	MinRate   hpreal.HighPrecReal
	MaxRate   hpreal.HighPrecReal
	Epsilon   hpreal.HighPrecReal
}

// New sets the process-wide HighPrecReal precision and parses the rate
// bounds and epsilon at that precision. It must run before any
// RemovalModel, Solver or SparseMatrix is constructed, and before any
// self-square worker goroutines are spawned, since HighPrecReal values
// already built when the precision changes keep their original
// precision (see hpreal.SetPrecision).
func New(precision uint, minRate, maxRate, epsilon string) (Config, error) {
	hpreal.SetPrecision(precision)

	minR, err := hpreal.New(minRate)
	if err != nil {
		return Config{}, err
	}
	maxR, err := hpreal.New(maxRate)
	if err != nil {
		return Config{}, err
	}
	eps, err := hpreal.New(epsilon)
	if err != nil {
		return Config{}, err
	}
	return Config{Precision: precision, MinRate: minR, MaxRate: maxR, Epsilon: eps}, nil
}

// Default matches the precision and rate bounds used throughout the
// end-to-end scenarios of the testable-properties section: 60 digits,
// MIN_RATE = 1e-200, MAX_RATE = 1e+200, epsilon = 1e-30.
func Default() Config {
	cfg, err := New(60, "1e-200", "1e+200", "1e-30")
	if err != nil {
		panic(err)
	}
	return cfg
}
