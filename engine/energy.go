package engine

import (
	"github.com/foldspace/thermo/energyparams"
	"github.com/foldspace/thermo/seqtypes"
)

// StructureEnergy scores one structure by loop decomposition, mirroring
// the recursion engine's accounting term for term: the same stack, bulge,
// interior, multiloop, and exterior charges, terminal penalties at every
// stem-loop junction, and the ensemble's dangle combine rule. Structures
// under the coaxial-stacking ensemble are scored with all-dangles terms,
// since a PairList carries no stacking state.
func StructureEnergy(m *energyparams.Model, seq []byte, nicks []int, pairs seqtypes.PairList) (float64, error) {
	if len(pairs) != len(seq) {
		return 0, errorf(InvalidInput, "structure length %d does not match sequence length %d", len(pairs), len(seq))
	}
	if err := pairs.Validate(); err != nil {
		return 0, wrapErr(InvalidInput, err)
	}
	s := &scorer{m: m, seq: seq, nicks: nicks, pairs: pairs}
	total := 0.0
	for _, arc := range s.children(-1, len(seq)) {
		total += s.stemInLoop(arc[0], arc[1]) + s.scorePair(arc[0], arc[1])
	}
	return total, nil
}

type scorer struct {
	m     *energyparams.Model
	seq   []byte
	nicks []int
	pairs seqtypes.PairList
}

// children lists the top-level arcs strictly inside (i, j).
func (s *scorer) children(i, j int) [][2]int {
	var out [][2]int
	for k := i + 1; k < j; k++ {
		if p := s.pairs[k]; p > k && p < j {
			out = append(out, [2]int{k, p})
			k = p
		}
	}
	return out
}

func (s *scorer) nickAt(v int) bool {
	for _, nk := range s.nicks {
		if nk == v {
			return true
		}
	}
	return false
}

// exposedNick reports whether a strand boundary in (i, j] is covered by
// none of the child arcs.
func (s *scorer) exposedNick(i, j int, kids [][2]int) bool {
	for _, v := range s.nicks {
		if v <= i || v > j {
			continue
		}
		covered := false
		for _, k := range kids {
			if k[0] < v && v <= k[1] {
				covered = true
				break
			}
		}
		if !covered {
			return true
		}
	}
	return false
}

// scorePair scores the loop closed by (i, j) plus everything nested
// below it; the pair's own stem-side terminal/dangle charges belong to
// the enclosing context.
func (s *scorer) scorePair(i, j int) float64 {
	kids := s.children(i, j)

	if s.exposedNick(i, j, kids) {
		e := s.terminal(i, j)
		for _, k := range kids {
			e += s.stemInLoop(k[0], k[1]) + s.scorePair(k[0], k[1])
		}
		return e
	}

	switch len(kids) {
	case 0:
		return s.hairpin(i, j)
	case 1:
		ii, jj := kids[0][0], kids[0][1]
		return s.twoLoop(i, j, ii, jj) + s.scorePair(ii, jj)
	default:
		mlp := s.m.Params.MultiLoop
		e := mlp.Offset.DeltaG(s.m.TemperatureKelvin) + mlp.PerHelix.DeltaG(s.m.TemperatureKelvin)
		e += s.terminal(i, j) + s.closingDangle(i, j)
		unpaired := j - i - 1
		for _, k := range kids {
			e += mlp.PerHelix.DeltaG(s.m.TemperatureKelvin)
			e += s.terminal(k[0], k[1]) + s.dangle(k[0], k[1])
			e += s.scorePair(k[0], k[1])
			unpaired -= k[1] - k[0] + 1
		}
		e += s.m.MultiUnpairedPenalty() * float64(unpaired)
		return e
	}
}

// stemInLoop is the charge a stem takes from the loop it protrudes into:
// the terminal penalty plus the ensemble dangle terms. In a multiloop the
// per-helix factor is added by the caller.
func (s *scorer) stemInLoop(a, b int) float64 {
	return s.terminal(a, b) + s.dangle(a, b)
}

func (s *scorer) hairpin(i, j int) float64 {
	span := j - i - 1
	e := s.m.HairpinLoopPenalty(span)
	if span == 3 || span == 4 {
		if bonus, ok := s.m.Params.TriTetraLoopBonus[string(s.seq[i+1:j])]; ok {
			e += bonus.DeltaG(s.m.TemperatureKelvin)
		}
	}
	return e
}

// twoLoop scores the stack/bulge/interior loop between (i, j) and its
// single child (ii, jj), reproducing the recursion engine's sector split:
// small loops carry no mismatches, loops with an extensible side add the
// closing mismatch, the inner-pair mismatch, and the inner terminal; the
// asymmetry penalty saturates when both sides are extensible.
func (s *scorer) twoLoop(i, j, ii, jj int) float64 {
	const small = 3
	l1 := ii - i - 1
	l2 := j - jj - 1
	switch {
	case l1 == 0 && l2 == 0:
		if dG, ok := s.m.Stack(string([]byte{s.seq[i], s.seq[j], s.seq[ii], s.seq[jj]})); ok {
			return dG
		}
		return 0
	case l1 == 0 || l2 == 0:
		return s.m.BulgeLoopPenalty(l1 + l2)
	case l1 <= small && l2 <= small:
		return s.m.InteriorLoopPenalty(l1+l2) + s.m.InteriorAsymmetryPenalty(abs(l1-l2))
	}
	e := s.m.InteriorLoopPenalty(l1+l2) + s.mismatch(i, j, i+1, j-1) + s.terminal(ii, jj)
	switch {
	case l1 <= small:
		e += s.m.InteriorAsymmetryPenalty(l2-l1) + s.mismatch(jj, ii, jj+1, ii-1)
	case l2 <= small:
		e += s.m.InteriorAsymmetryPenalty(l1-l2) + s.mismatch(ii, jj, ii-1, jj+1)
	default:
		e += s.m.InteriorAsymmetryPenalty(len(s.m.Params.InteriorAsymmetry)) + s.mismatch(ii, jj, ii-1, jj+1)
	}
	return e
}

func (s *scorer) terminal(i, j int) float64 {
	return s.m.TerminalPenalty(s.seq[i], s.seq[j])
}

func (s *scorer) mismatch(a, b, c, d int) float64 {
	if c < 0 || d < 0 || c >= len(s.seq) || d >= len(s.seq) {
		return 0
	}
	if dG, ok := s.m.Mismatch(string([]byte{s.seq[a], s.seq[b], s.seq[c], s.seq[d]})); ok {
		return dG
	}
	return 0
}

// dangle mirrors the recursion engine's per-stem dangle weight for a stem
// (a, b) seen from its enclosing loop.
func (s *scorer) dangle(a, b int) float64 {
	return s.dangleAt(a, b, a-1, b+1)
}

// closingDangle mirrors the closing pair's contribution seen from inside
// its multiloop.
func (s *scorer) closingDangle(i, j int) float64 {
	return s.dangleAt(j, i, j-1, i+1)
}

func (s *scorer) dangleAt(pa, pb, n5, n3 int) float64 {
	if s.m.Ensemble == energyparams.NoStacking {
		return 0
	}
	e5, ok5 := 0.0, false
	if n5 >= 0 && n5 < len(s.seq) && !s.nickAt(min(pa, n5)+1) {
		e5, ok5 = s.m.Dangle(string([]byte{s.seq[pa], s.seq[pb], '5', s.seq[n5]}))
	}
	e3, ok3 := 0.0, false
	if n3 >= 0 && n3 < len(s.seq) && !s.nickAt(min(pb, n3)+1) {
		e3, ok3 = s.m.Dangle(string([]byte{s.seq[pa], s.seq[pb], '3', s.seq[n3]}))
	}
	if !ok5 && !ok3 {
		return 0
	}
	if s.m.Ensemble == energyparams.MinDangles {
		if !ok5 || (ok3 && e3 < e5) {
			return e3
		}
		return e5
	}
	e := 0.0
	if ok5 {
		e += e5
	}
	if ok3 {
		e += e3
	}
	return e
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
