package energyparams

import (
	"fmt"
	"math"
)

// Ensemble selects which dangling-end/coaxial-stacking treatment the DP
// recursions apply at multi-branch and exterior junctions.
type Ensemble int

const (
	// NoStacking disables both dangles and coaxial stacking entirely.
	NoStacking Ensemble = iota
	// MinDangles applies at most one dangle per junction (mfold/ViennaRNA -d1).
	MinDangles
	// AllDangles applies every admissible dangle independently (-d2).
	AllDangles
	// CoaxialStacking adds flush and mismatch-mediated coaxial stacking on
	// top of AllDangles.
	CoaxialStacking
)

func (e Ensemble) String() string {
	switch e {
	case NoStacking:
		return "none"
	case MinDangles:
		return "min-dangles"
	case AllDangles:
		return "all-dangles"
	case CoaxialStacking:
		return "coaxial-stacking"
	default:
		return fmt.Sprintf("Ensemble(%d)", int(e))
	}
}

// Model is the temperature-scaled, alphabet-bound view of a ParameterSet
// that the block recursions consult. It holds plain kcal/mol deltaG
// values; Boltzmann-factor conversion and caching is CachedModel's job.
type Model struct {
	Params            *ParameterSet
	TemperatureKelvin float64
	Ensemble          Ensemble

	pairKey   map[[2]byte]bool
	closeKey  map[[2]byte]bool
}

// NewModel binds a ParameterSet to a temperature and ensemble choice,
// pre-indexing its pair/closing tables for O(1) lookup.
func NewModel(p *ParameterSet, temperatureKelvin float64, ensemble Ensemble) *Model {
	m := &Model{Params: p, TemperatureKelvin: temperatureKelvin, Ensemble: ensemble}
	m.pairKey = make(map[[2]byte]bool, len(p.Pairs))
	for _, pr := range p.Pairs {
		if len(pr) == 2 {
			m.pairKey[[2]byte{pr[0], pr[1]}] = true
		}
	}
	m.closeKey = make(map[[2]byte]bool, len(p.Closing))
	for _, pr := range p.Closing {
		if len(pr) == 2 {
			m.closeKey[[2]byte{pr[0], pr[1]}] = true
		}
	}
	return m
}

// CanPair reports whether two base letters form an admissible pair under
// this model's parameter set.
func (m *Model) CanPair(a, b byte) bool { return m.pairKey[[2]byte{a, b}] }

// CanClose reports whether a pair may close a loop (a stricter or equal
// set to CanPair: some models forbid certain pairs from closing hairpins).
func (m *Model) CanClose(a, b byte) bool {
	if len(m.closeKey) == 0 {
		return m.CanPair(a, b)
	}
	return m.closeKey[[2]byte{a, b}]
}

// Stack returns the stacking free energy (kcal/mol) for a 5'->3' pair of
// adjacent base pairs, keyed "WXYZ" where WX and YZ are the two pairs read
// 5' to 3' on the top strand and 3' to 5' on the bottom.
func (m *Model) Stack(key string) (float64, bool) {
	e, ok := m.Params.Stacking[key]
	if !ok {
		return 0, false
	}
	return e.DeltaG(m.TemperatureKelvin), true
}

// Dangle returns the dangling-end free energy for a base stacked on one
// side of a closing pair, or 0 with ok=false if absent from the table or
// the ensemble is NoStacking (callers then apply no dangle energy).
func (m *Model) Dangle(key string) (float64, bool) {
	if m.Ensemble == NoStacking {
		return 0, false
	}
	e, ok := m.Params.DanglingEnds[key]
	if !ok {
		return 0, false
	}
	return e.DeltaG(m.TemperatureKelvin), true
}

// TerminalPenalty returns the terminal AU/GU-type penalty applied when a
// helix ends on a weaker-than-GC pair; 0 for a CG/GC closing pair.
func (m *Model) TerminalPenalty(a, b byte) float64 {
	if (a == 'C' && b == 'G') || (a == 'G' && b == 'C') {
		return 0
	}
	return m.Params.TerminalAUPenalty.DeltaG(m.TemperatureKelvin)
}

// Mismatch returns the terminal mismatch free energy at a helix end.
func (m *Model) Mismatch(key string) (float64, bool) {
	e, ok := m.Params.TerminalMismatch[key]
	if !ok {
		return 0, false
	}
	return e.DeltaG(m.TemperatureKelvin), true
}

// CoaxStack returns the flush coaxial-stacking free energy for two adjacent
// helix ends, keyed the same way as Stack, falling back to the Stacking
// table when the parameter set carries no dedicated coaxial entries.
func (m *Model) CoaxStack(key string) (float64, bool) {
	if e, ok := m.Params.CoaxialStack[key]; ok {
		return e.DeltaG(m.TemperatureKelvin), true
	}
	return m.Stack(key)
}

// JoinPenalty returns the strand-association free energy charged once per
// strand joined into a complex.
func (m *Model) JoinPenalty() float64 {
	return m.Params.JoinPenalty.DeltaG(m.TemperatureKelvin)
}

// MultiUnpairedPenalty returns the per-unpaired-base multiloop penalty.
func (m *Model) MultiUnpairedPenalty() float64 {
	return m.Params.MultiLoop.PerUnpaired.DeltaG(m.TemperatureKelvin)
}

// InteriorAsymmetryPenalty returns the penalty for an interior loop whose
// two unpaired sides differ in length by diff, saturating at the last
// tabulated entry (the conventional Ninio cap).
func (m *Model) InteriorAsymmetryPenalty(diff int) float64 {
	table := m.Params.InteriorAsymmetry
	if diff <= 0 || len(table) == 0 {
		return 0
	}
	if diff > len(table) {
		diff = len(table)
	}
	return table[diff-1].DeltaG(m.TemperatureKelvin)
}

// HairpinLoopPenalty returns the length-dependent hairpin initiation
// penalty, falling back to Jacobson-Stockmayer log extrapolation beyond
// the tabulated lengths.
func (m *Model) HairpinLoopPenalty(length int) float64 {
	return m.tabulatedOrExtrapolated(m.Params.HairpinLoop, length)
}

// BulgeLoopPenalty is the analogous lookup for bulge loops.
func (m *Model) BulgeLoopPenalty(length int) float64 {
	return m.tabulatedOrExtrapolated(m.Params.BulgeLoop, length)
}

// InteriorLoopPenalty is the analogous lookup for interior (internal)
// loops, addressed by total unpaired length on both sides.
func (m *Model) InteriorLoopPenalty(length int) float64 {
	return m.tabulatedOrExtrapolated(m.Params.InteriorLoop, length)
}

func (m *Model) tabulatedOrExtrapolated(table []LoopEnergy, length int) float64 {
	if length <= 0 {
		return 0
	}
	if length <= len(table) {
		return table[length-1].DeltaG(m.TemperatureKelvin)
	}
	lmax := len(table)
	if lmax == 0 {
		return 0
	}
	base := table[lmax-1].DeltaG(m.TemperatureKelvin)
	return base + m.Params.LogExtrapolationAt*logRatio(float64(length), float64(lmax))
}

func logRatio(length, lmax float64) float64 {
	if lmax <= 0 {
		return 0
	}
	return math.Log(length / lmax)
}
