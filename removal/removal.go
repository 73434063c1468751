// Package removal holds the per-nuclide catalogue of removal events
// (decays, reactions, fission) that drive one Solver's transfer
// matrix. See solver for how events are turned into transition
// probabilities.
package removal

import (
	"errors"
	"fmt"

	"github.com/crn-lab/nuctran/config"
	"github.com/crn-lab/nuctran/hpreal"
)

// ErrYieldsTooShort is returned by AddRemoval when a multi-product
// (fission) event supplies fewer yields than products.
var ErrYieldsTooShort = errors.New("removal: fission event has fewer yields than products")

// ErrUnexpectedYields is returned by AddRemoval when a single-product
// event supplies any yields at all.
var ErrUnexpectedYields = errors.New("removal: single-product event must not supply yields")

// ProductRef names a removal event's product: either a tracked
// nuclide, by index, or Untracked, the NO_PRODUCT sentinel of the
// spec rendered as a variant instead of a raw negative index so a
// caller cannot accidentally use it to index a slice.
type ProductRef struct {
	index   int
	tracked bool
}

// Tracked returns a reference to the nuclide at index.
func Tracked(index int) ProductRef {
	return ProductRef{index: index, tracked: true}
}

// Untracked returns the NO_PRODUCT reference: a product exists but its
// concentration is discarded.
func Untracked() ProductRef {
	return ProductRef{}
}

// Index returns the referenced nuclide index and true, or (0, false)
// if the reference is Untracked.
func (p ProductRef) Index() (int, bool) {
	return p.index, p.tracked
}

// Event is one possible outcome of a substep for a single source
// nuclide: either "no removal happened" (the synthetic event, Rate
// unused) or a specific decay/reaction/fission.
type Event struct {
	Rate     hpreal.HighPrecReal
	Products []ProductRef
	Yields   []hpreal.HighPrecReal
}

// Model is the per-nuclide catalogue of Events for one Solver run.
// events[i][0] is always the synthetic "no removal" event.
type Model struct {
	names  []string
	index  map[string]int
	events [][]Event
	cfg    config.Config
}

// NewModel creates a Model over the given ordered, unique species
// names, with every nuclide's event list seeded with the synthetic
// zeroth event.
func NewModel(speciesNames []string, cfg config.Config) *Model {
	names := append([]string(nil), speciesNames...)
	idx := make(map[string]int, len(names))
	events := make([][]Event, len(names))
	for i, name := range names {
		idx[name] = i
		events[i] = []Event{{Products: []ProductRef{Untracked()}}}
	}
	return &Model{names: names, index: idx, events: events, cfg: cfg}
}

// NuclideCount returns the number of tracked nuclides, I.
func (m *Model) NuclideCount() int { return len(m.names) }

// Names returns the ordered species names this Model was built from.
func (m *Model) Names() []string { return m.names }

// Index returns the internal index of name, and whether it is tracked.
func (m *Model) Index(name string) (int, bool) {
	i, ok := m.index[name]
	return i, ok
}

// Events returns the event list for nuclide i, synthetic zeroth event
// included.
func (m *Model) Events(i int) []Event { return m.events[i] }

// AddRemoval appends a removal event to nuclide i's event list.
//
// A rate outside [MinRate, MaxRate] is dropped silently: the returned
// error is nil and no event is added.
// A structurally inconsistent event (yields/products length mismatch)
// returns a non-nil error; the caller's model is malformed and there
// is no sensible per-event recovery.
func (m *Model) AddRemoval(i int, rate hpreal.HighPrecReal, products []ProductRef, yields []hpreal.HighPrecReal) error {
	if rate.Cmp(m.cfg.MinRate) < 0 || rate.Cmp(m.cfg.MaxRate) > 0 {
		return nil
	}

	switch {
	case len(products) > 1 && len(yields) < len(products):
		return fmt.Errorf("%w: nuclide %s", ErrYieldsTooShort, m.names[i])
	case len(products) == 1 && len(yields) != 0:
		return fmt.Errorf("%w: nuclide %s", ErrUnexpectedYields, m.names[i])
	}

	m.events[i] = append(m.events[i], Event{
		Rate:     rate,
		Products: append([]ProductRef(nil), products...),
		Yields:   append([]hpreal.HighPrecReal(nil), yields...),
	})
	return nil
}
