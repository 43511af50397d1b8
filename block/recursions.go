package block

import (
	"fmt"
	"sort"

	"github.com/foldspace/thermo/action"
	"github.com/foldspace/thermo/energyparams"
	"github.com/foldspace/thermo/rig"
)

// minHairpinUnpaired is the shortest admissible hairpin loop (3 unpaired
// bases between a closing pair), the conventional nucleic-acid turn. Pairs
// closer than the turn are admissible only across a strand nick.
const minHairpinUnpaired = 3

// maxInextensibleUnpaired bounds the exhaustively-enumerated interior-loop
// search; a side with more unpaired bases is folded through the YA/YB
// tables and the fast-interior X rotation instead.
const maxInextensibleUnpaired = 3

// ErrOverflow is returned by a forward-pass step when an element failed
// alg.Valid; the scheduler is expected to catch this, run a precision
// upgrade, and restart the pass from Stat.FailedDiagonal.
type ErrOverflow struct {
	Diagonal int
}

func (e *ErrOverflow) Error() string {
	return fmt.Sprintf("block: element invalid at diagonal %d, overflow", e.Diagonal)
}

// Recursions holds every DP matrix for a single contiguous span, generic
// over the algebra element type E (float64 for PF/MFE, rig.Big[float64]
// once a block has fallen back to the backup precision stage).
type Recursions[E any] struct {
	n int

	B, Z, D, YA, YB   Triangle[E]
	MS, M1, M, M2, M3 Triangle[E]
	CD, MCS, MC, MD   Triangle[E]
	S, Qno, Q         Triangle[E]

	Stat Stat

	Action action.Action[E]
	Alg    rig.Algebra[E]
	Model  *energyparams.CachedModel[E]
	Seq    []byte // 5'->3' letters for this span, length n
	Nicks  []int  // sorted strand boundaries: a nick v sits between positions v-1 and v

	// seeded marks cells imported from a dependency block by SeedFrom;
	// the forward pass leaves them untouched.
	seeded Triangle[bool]

	fi *fastInterior[E]
}

// NewRecursions allocates all matrices for a span of n positions. nicks
// lists the strand boundaries inside the span (Complex.Nicks convention,
// excluding the trailing boundary at n); nil means single-strand.
func NewRecursions[E any](n int, alg rig.Algebra[E], model *energyparams.CachedModel[E], seq []byte, nicks []int, act action.Action[E]) *Recursions[E] {
	zero := alg.Zero()
	nk := make([]int, 0, len(nicks))
	for _, v := range nicks {
		if v > 0 && v < n {
			nk = append(nk, v)
		}
	}
	sort.Ints(nk)
	return &Recursions[E]{
		n:      n,
		B:      NewTriangle(n, zero),
		Z:      NewTriangle(n, zero),
		D:      NewTriangle(n, zero),
		YA:     NewTriangle(n, zero),
		YB:     NewTriangle(n, zero),
		MS:     NewTriangle(n, zero),
		M1:     NewTriangle(n, zero),
		M:      NewTriangle(n, zero),
		M2:     NewTriangle(n, zero),
		M3:     NewTriangle(n, zero),
		CD:     NewTriangle(n, zero),
		MCS:    NewTriangle(n, zero),
		MC:     NewTriangle(n, zero),
		MD:     NewTriangle(n, zero),
		S:      NewTriangle(n, zero),
		Qno:    NewTriangle(n, zero),
		Q:      NewTriangle(n, zero),
		Stat:   NewStat(),
		seeded: NewTriangle(n, false),
		Action: act,
		Alg:    alg,
		Model:  model,
		Seq:    seq,
		Nicks:  nk,
		fi:     newFastInterior[E](n, zero),
	}
}

// N returns the span size.
func (r *Recursions[E]) N() int { return r.n }

// Value reads the stored element for one recursion kind.
func (r *Recursions[E]) Value(kind Kind, i, j int) E {
	return r.triangle(kind).Get(i, j)
}

func (r *Recursions[E]) triangle(kind Kind) *Triangle[E] {
	switch kind {
	case KindB:
		return &r.B
	case KindZ:
		return &r.Z
	case KindD:
		return &r.D
	case KindYA:
		return &r.YA
	case KindYB:
		return &r.YB
	case KindMS:
		return &r.MS
	case KindM1:
		return &r.M1
	case KindM:
		return &r.M
	case KindM2:
		return &r.M2
	case KindM3:
		return &r.M3
	case KindCD:
		return &r.CD
	case KindMCS:
		return &r.MCS
	case KindMC:
		return &r.MC
	case KindMD:
		return &r.MD
	case KindS:
		return &r.S
	case KindQno:
		return &r.Qno
	case KindQ:
		return &r.Q
	default:
		panic(fmt.Sprintf("block: unknown recursion kind %v", kind))
	}
}

// Forward runs the whole forward pass, diagonal by diagonal (increasing
// span length): a diagonal completes entirely before the next begins. It
// stops and returns *ErrOverflow the first time an element fails
// alg.Valid. stop, if non-nil, is polled once per diagonal with the
// current diagonal index so the scheduler can abort a cancelled batch.
func (r *Recursions[E]) Forward(stop func(diagonal int) error) error {
	return r.ForwardFrom(0, stop)
}

// ForwardFrom resumes the forward pass at a given diagonal, used by the
// precision-fallback path to avoid recomputing diagonals that completed
// before the overflow.
func (r *Recursions[E]) ForwardFrom(fromDiagonal int, stop func(diagonal int) error) error {
	r.fi.reset(r.Alg, &r.YA, fromDiagonal)
	for d := fromDiagonal; d < r.n; d++ {
		if stop != nil {
			if err := stop(d); err != nil {
				r.Stat.Fail(d)
				return err
			}
		}
		r.fi.advance(r.Alg, &r.YA, d)
		if err := r.computeDiagonal(d); err != nil {
			return err
		}
		r.Stat.Advance(d)
	}
	return nil
}

func (r *Recursions[E]) computeDiagonal(d int) error {
	for i := 0; i+d < r.n; i++ {
		j := i + d
		if err := r.computeCell(i, j); err != nil {
			r.Stat.Fail(d)
			return err
		}
	}
	return nil
}

func (r *Recursions[E]) computeCell(i, j int) error {
	if r.seeded.Get(i, j) {
		return nil
	}
	alg := r.Alg
	for _, kind := range forwardOrder {
		acc := alg.Zero()
		r.enumerate(kind, i, j, true, func(w E, _ ...Ref) {
			acc = alg.Plus(acc, w)
		})
		if !alg.Valid(acc) {
			return &ErrOverflow{Diagonal: j - i}
		}
		r.triangle(kind).Set(i, j, acc)
	}
	return nil
}

// SeedFrom imports the recursion values of a dependency block computed
// over the same letters, placed at the given offset within r (the
// sub-tuple of strands it covers must sit flush against one end of r's
// window). Only cells whose every read stays inside the source window
// carry over unchanged: a left-aligned source contributes cells up to
// its penultimate column, a right-aligned one cells from its second row
// (the excluded rim reads a neighbouring base or boundary the source
// never saw). Seeded cells are skipped by the forward pass.
func (r *Recursions[E]) SeedFrom(src *Recursions[E]) {
	if src.Action != r.Action {
		return
	}
	offset := -1
	switch {
	case src.n <= 0 || src.n >= r.n:
		return
	case string(src.Seq) == string(r.Seq[:src.n]):
		offset = 0
	case string(src.Seq) == string(r.Seq[r.n-src.n:]):
		offset = r.n - src.n
	default:
		return
	}
	if !nicksAgree(src.Nicks, r.Nicks, offset, src.n) {
		return
	}
	leftAligned := offset == 0
	for si := 0; si < src.n; si++ {
		for sj := si; sj < src.n; sj++ {
			if leftAligned && sj+1 >= src.n {
				continue
			}
			if !leftAligned && si == 0 {
				continue
			}
			i, j := si+offset, sj+offset
			for _, kind := range forwardOrder {
				r.triangle(kind).Set(i, j, src.triangle(kind).Get(si, sj))
			}
			r.seeded.Set(i, j, true)
		}
	}
}

// nicksAgree reports whether the source window's boundaries are exactly
// the destination's boundaries falling strictly inside [offset, offset+n].
func nicksAgree(src, dst []int, offset, n int) bool {
	var want []int
	for _, v := range dst {
		if v > offset && v < offset+n {
			want = append(want, v-offset)
		}
	}
	if len(want) != len(src) {
		return false
	}
	for k := range want {
		if want[k] != src[k] {
			return false
		}
	}
	return true
}

// nickAt reports whether a strand boundary sits between positions v-1 and v.
func (r *Recursions[E]) nickAt(v int) bool {
	for _, nk := range r.Nicks {
		if nk == v {
			return true
		}
		if nk > v {
			return false
		}
	}
	return false
}

// nickIn reports whether any strand boundary lies in (a, b], i.e. inside
// the region of positions a..b.
func (r *Recursions[E]) nickIn(a, b int) bool {
	for _, nk := range r.Nicks {
		if nk > a && nk <= b {
			return true
		}
		if nk > b {
			return false
		}
	}
	return false
}

// nicksIn returns the boundaries in (a, b], ascending.
func (r *Recursions[E]) nicksIn(a, b int) []int {
	var out []int
	for _, nk := range r.Nicks {
		if nk > a && nk <= b {
			out = append(out, nk)
		}
	}
	return out
}

func (r *Recursions[E]) canPair(i, j int) bool {
	return r.Model.Model().CanPair(r.Seq[i], r.Seq[j])
}

func (r *Recursions[E]) canClose(i, j int) bool {
	return r.Model.Model().CanClose(r.Seq[i], r.Seq[j])
}

// terminalBoltz is the terminal-pair penalty factor applied wherever a
// helix end abuts a loop (Z, multiloop and exterior closures).
func (r *Recursions[E]) terminalBoltz(i, j int) E {
	return r.Alg.Boltz(r.Model.Model().TerminalPenalty(r.Seq[i], r.Seq[j]))
}

// stackBoltz is the helix-stacking factor for the pair (i, j) stacked on
// (i+1, j-1); an absent table entry contributes no stacking energy.
func (r *Recursions[E]) stackBoltz(i, j int) E {
	key := string([]byte{r.Seq[i], r.Seq[j], r.Seq[i+1], r.Seq[j-1]})
	if dG, ok := r.Model.Model().Stack(key); ok {
		return r.Alg.Boltz(dG)
	}
	return r.Alg.One()
}

// coaxBoltz is the flush coaxial-stacking factor for helix end (a, b)
// stacked against helix end (c, d).
func (r *Recursions[E]) coaxBoltz(a, b, c, d int) E {
	key := string([]byte{r.Seq[a], r.Seq[b], r.Seq[c], r.Seq[d]})
	if dG, ok := r.Model.Model().CoaxStack(key); ok {
		return r.Alg.Boltz(dG)
	}
	return r.Alg.One()
}

// mismatchA and mismatchB are the two orientations of the terminal
// mismatch applied to an interior-loop inner pair (the YA/YB weightings).
func (r *Recursions[E]) mismatchA(i, j int) E {
	if i-1 < 0 || j+1 >= r.n {
		return r.Alg.One()
	}
	key := string([]byte{r.Seq[i], r.Seq[j], r.Seq[i-1], r.Seq[j+1]})
	if dG, ok := r.Model.Model().Mismatch(key); ok {
		return r.Alg.Boltz(dG)
	}
	return r.Alg.One()
}

func (r *Recursions[E]) mismatchB(i, j int) E {
	if i-1 < 0 || j+1 >= r.n {
		return r.Alg.One()
	}
	key := string([]byte{r.Seq[j], r.Seq[i], r.Seq[j+1], r.Seq[i-1]})
	if dG, ok := r.Model.Model().Mismatch(key); ok {
		return r.Alg.Boltz(dG)
	}
	return r.Alg.One()
}

// outerMismatch is the closing-pair-side mismatch applied to extensible
// interior loops (both unpaired sides non-empty).
func (r *Recursions[E]) outerMismatch(i, j int) E {
	key := string([]byte{r.Seq[i], r.Seq[j], r.Seq[i+1], r.Seq[j-1]})
	if dG, ok := r.Model.Model().Mismatch(key); ok {
		return r.Alg.Boltz(dG)
	}
	return r.Alg.One()
}

// asymmetryCap is the saturated interior-loop asymmetry factor carried by
// the fast-interior sector, where the convolution cannot see the
// per-term side-length difference.
func (r *Recursions[E]) asymmetryCap() E {
	table := r.Model.Model().Params.InteriorAsymmetry
	return r.Model.AsymmetryBoltz(len(table))
}

// multi1x2 is the multiloop closing factor multi1*multi2 (offset plus
// per-helix) charged once at the closing pair.
func (r *Recursions[E]) multi1x2() E {
	m := r.Model.Model()
	mlp := m.Params.MultiLoop
	dG := mlp.Offset.DeltaG(m.TemperatureKelvin) + mlp.PerHelix.DeltaG(m.TemperatureKelvin)
	return r.Alg.Boltz(dG)
}

// multi2 is the per-helix multiloop factor charged once per stem.
func (r *Recursions[E]) multi2() E {
	m := r.Model.Model()
	return r.Alg.Boltz(m.Params.MultiLoop.PerHelix.DeltaG(m.TemperatureKelvin))
}

// dangleFactor is the per-stem dangle weight for a stem (i, d) sitting in
// a multiloop or exterior context, combining the 5' and 3' neighbouring
// bases per the ensemble's combine rule: min-dangles takes the more
// favourable of the two, all-dangles (and coaxial-stacking) applies both.
func (r *Recursions[E]) dangleFactor(i, d int) E {
	m := r.Model.Model()
	if m.Ensemble == energyparams.NoStacking {
		return r.Alg.One()
	}
	e5, ok5 := 0.0, false
	if i-1 >= 0 && !r.nickAt(i) {
		e5, ok5 = m.Dangle(string([]byte{r.Seq[i], r.Seq[d], '5', r.Seq[i-1]}))
	}
	e3, ok3 := 0.0, false
	if d+1 < r.n && !r.nickAt(d+1) {
		e3, ok3 = m.Dangle(string([]byte{r.Seq[i], r.Seq[d], '3', r.Seq[d+1]}))
	}
	if !ok5 && !ok3 {
		return r.Alg.One()
	}
	if m.Ensemble == energyparams.MinDangles {
		e := e5
		if !ok5 || (ok3 && e3 < e5) {
			e = e3
		}
		return r.Alg.Boltz(e)
	}
	dG := 0.0
	if ok5 {
		dG += e5
	}
	if ok3 {
		dG += e3
	}
	return r.Alg.Boltz(dG)
}

// closingDangle is the dangle weight contributed by the closing pair
// (i, j) of a multiloop, seen from inside: its neighbours are i+1 and j-1.
func (r *Recursions[E]) closingDangle(i, j int) E {
	// the closing pair read from inside the loop is (j, i)
	return r.dangleFactor2(j, i, j-1, i+1)
}

// dangle2x2 sums the 2x2 which-side-dangles states of a closing pair over
// bases lo and hi, the coaxial ensemble's closing-pair state sum:
// {neither, 5' only, 3' only, both}.
func (r *Recursions[E]) dangle2x2(pairA, pairB, lo, hi int) E {
	m := r.Model.Model()
	alg := r.Alg
	e5, ok5 := m.Dangle(string([]byte{r.Seq[pairA], r.Seq[pairB], '5', r.Seq[lo]}))
	e3, ok3 := m.Dangle(string([]byte{r.Seq[pairA], r.Seq[pairB], '3', r.Seq[hi]}))
	acc := alg.One()
	if ok5 {
		acc = alg.Plus(acc, alg.Boltz(e5))
	}
	if ok3 {
		acc = alg.Plus(acc, alg.Boltz(e3))
	}
	if ok5 && ok3 {
		acc = alg.Plus(acc, alg.Boltz(e5+e3))
	}
	return acc
}

// dangleFactor2 is dangleFactor with explicit neighbour positions.
func (r *Recursions[E]) dangleFactor2(pairA, pairB, n5, n3 int) E {
	m := r.Model.Model()
	if m.Ensemble == energyparams.NoStacking {
		return r.Alg.One()
	}
	e5, ok5 := 0.0, false
	if n5 >= 0 && n5 < r.n {
		e5, ok5 = m.Dangle(string([]byte{r.Seq[pairA], r.Seq[pairB], '5', r.Seq[n5]}))
	}
	e3, ok3 := 0.0, false
	if n3 >= 0 && n3 < r.n {
		e3, ok3 = m.Dangle(string([]byte{r.Seq[pairA], r.Seq[pairB], '3', r.Seq[n3]}))
	}
	if !ok5 && !ok3 {
		return r.Alg.One()
	}
	if m.Ensemble == energyparams.MinDangles {
		e := e5
		if !ok5 || (ok3 && e3 < e5) {
			e = e3
		}
		return r.Alg.Boltz(e)
	}
	dG := 0.0
	if ok5 {
		dG += e5
	}
	if ok3 {
		dG += e3
	}
	return r.Alg.Boltz(dG)
}

// triTetraBoltz is the sequence-specific bonus for 3- and 4-base hairpin
// loops.
func (r *Recursions[E]) triTetraBoltz(i, j int) E {
	span := j - i - 1
	if span != 3 && span != 4 {
		return r.Alg.One()
	}
	key := string(r.Seq[i+1 : j])
	m := r.Model.Model()
	if e, ok := m.Params.TriTetraLoopBonus[key]; ok {
		return r.Alg.Boltz(e.DeltaG(m.TemperatureKelvin))
	}
	return r.Alg.One()
}
