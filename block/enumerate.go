package block

import (
	"github.com/foldspace/thermo/action"
	"github.com/foldspace/thermo/energyparams"
)

// Visit replays the stored forward expression for one element, invoking
// fn once per additive contribution with the contribution's full weight
// and the child elements it routes into. The backtrack queues are built
// on this: the weights it reports sum to the stored element value.
func (r *Recursions[E]) Visit(kind Kind, i, j int, fn func(w E, children ...Ref)) {
	r.enumerate(kind, i, j, false, fn)
}

// enumerate walks every additive contribution of one recursion element.
// Each emitted weight is the contribution's full value (local factors
// times the referenced child elements), so the forward pass folds weights
// with Plus, the outside pass divides a child back out with Div, and the
// backtrack replays the same expression to route samples or suboptimal
// structures into children.
//
// fast selects the forward-pass shape of the extensible-interior sector:
// the rotating X matrix replaces the direct (ii, jj) double loop on
// nick-free spans. Replay callers pass fast=false and receive the direct
// per-pair contributions instead; the two shapes sum to the same value.
func (r *Recursions[E]) enumerate(kind Kind, i, j int, fast bool, emit func(w E, children ...Ref)) {
	switch kind {
	case KindB:
		r.enumerateB(i, j, fast, emit)
	case KindZ:
		emit(r.Alg.Times(r.B.Get(i, j), r.terminalBoltz(i, j)), Ref{KindB, i, j})
	case KindD:
		if r.canClose(i, j) {
			emit(r.Z.Get(i, j), Ref{KindZ, i, j})
		}
	case KindYA:
		emit(r.Alg.Times(r.Z.Get(i, j), r.mismatchA(i, j)), Ref{KindZ, i, j})
	case KindYB:
		emit(r.Alg.Times(r.Z.Get(i, j), r.mismatchB(i, j)), Ref{KindZ, i, j})
	case KindCD:
		r.enumerateCD(i, j, emit)
	case KindMCS:
		r.enumerateMCS(i, j, emit)
	case KindMC:
		r.enumerateMC(i, j, emit)
	case KindMS:
		r.enumerateMS(i, j, emit)
	case KindM1:
		r.enumerateM1(i, j, emit)
	case KindM:
		r.enumerateM(i, j, emit)
	case KindM2:
		r.enumerateM2(i, j, emit)
	case KindM3:
		r.enumerateM3(i, j, emit)
	case KindMD:
		r.enumerateMD(i, j, emit)
	case KindS:
		r.enumerateS(i, j, emit)
	case KindQno:
		r.enumerateQno(i, j, emit)
	case KindQ:
		r.enumerateQ(i, j, emit)
	}
}

// enumerateB covers every way the pair (i, j) closes a loop: hairpin,
// helix stack, small (inextensible) bulge and interior loops, the three
// extensible-interior sectors, multiloop closure, and the exterior
// (sandwich) decomposition at each strand nick inside the loop. The
// Action contract from the design hook is applied per contribution:
// Forbid and non-pairing cells emit nothing, Flat replaces the whole sum
// with a single weight, Bonus scales every contribution.
func (r *Recursions[E]) enumerateB(i, j int, fast bool, emit func(w E, children ...Ref)) {
	alg := r.Alg
	if j <= i || !r.canPair(i, j) || r.Action.Kind == action.Forbid {
		return
	}
	if r.Action.Kind == action.Flat {
		emit(alg.Boltz(r.Action.Delta))
		return
	}
	factor := alg.One()
	if r.Action.Kind == action.Bonus {
		factor = alg.Boltz(r.Action.Delta)
	}
	emitB := func(w E, children ...Ref) {
		emit(alg.Times(w, factor), children...)
	}

	span := j - i - 1

	// hairpin: only without a strand boundary inside the loop
	if span >= minHairpinUnpaired && !r.nickIn(i, j) {
		emitB(alg.Times(r.Model.HairpinBoltz(span), r.triTetraBoltz(i, j)))
	}

	// helix stack on (i+1, j-1)
	if j-1 > i+1 && r.canPair(i+1, j-1) && !r.nickAt(i+1) && !r.nickAt(j) {
		emitB(alg.Times(r.stackBoltz(i, j), r.B.Get(i+1, j-1)), Ref{KindB, i + 1, j - 1})
	}

	// small bulges and interiors, both sides at most maxInextensibleUnpaired
	for bl := 0; bl <= maxInextensibleUnpaired; bl++ {
		for br := 0; br <= maxInextensibleUnpaired; br++ {
			if bl == 0 && br == 0 {
				continue // the stack case above
			}
			ii := i + 1 + bl
			jj := j - 1 - br
			if ii >= jj || !r.canPair(ii, jj) {
				continue
			}
			if r.nickIn(i, ii) || r.nickIn(jj, j) {
				continue
			}
			var w E
			if bl == 0 || br == 0 {
				w = alg.Times(r.Model.BulgeBoltz(bl+br), r.B.Get(ii, jj))
			} else {
				w = alg.Times(r.Model.InteriorBoltz(bl+br), alg.Times(r.Model.AsymmetryBoltz(absInt(bl-br)), r.B.Get(ii, jj)))
			}
			emitB(w, Ref{KindB, ii, jj})
		}
	}

	r.enumerateExtensible(i, j, fast, emitB)
	r.enumerateMultiClose(i, j, emitB)

	// exterior loop: decompose at the leftmost exposed nick v; the left
	// factor is Qno so no exposed nick precedes v
	for _, v := range r.nicksIn(i, j) {
		w := r.terminalBoltz(i, j)
		var children []Ref
		if v-1 >= i+1 {
			w = alg.Times(w, r.Qno.Get(i+1, v-1))
			children = append(children, Ref{KindQno, i + 1, v - 1})
		}
		if j-1 >= v {
			w = alg.Times(w, r.Q.Get(v, j-1))
			children = append(children, Ref{KindQ, v, j - 1})
		}
		emitB(w, children...)
	}
}

// enumerateExtensible covers interior loops with more than
// maxInextensibleUnpaired bases on at least one side. Sectors with one
// small side are direct 1-D sums through YA/YB; the both-sides-large
// sector reads the rotating X matrix in the forward pass and enumerates
// pairs directly in replay.
func (r *Recursions[E]) enumerateExtensible(i, j int, fast bool, emitB func(w E, children ...Ref)) {
	alg := r.Alg
	outer := r.outerMismatch(i, j)

	// small 5' side, large 3' side
	for bl := 0; bl <= maxInextensibleUnpaired; bl++ {
		ii := i + 1 + bl
		if ii >= j || r.nickIn(i, ii) {
			continue
		}
		for jj := ii + 1; jj <= j-1-(maxInextensibleUnpaired+1); jj++ {
			br := j - jj - 1
			if r.nickIn(jj, j) {
				continue
			}
			if bl == 0 {
				emitB(alg.Times(r.Model.BulgeBoltz(br), r.B.Get(ii, jj)), Ref{KindB, ii, jj})
				continue
			}
			w := alg.Times(r.Model.InteriorBoltz(bl+br), r.Model.AsymmetryBoltz(br-bl))
			w = alg.Times(w, alg.Times(outer, r.YB.Get(ii, jj)))
			emitB(w, Ref{KindYB, ii, jj})
		}
	}

	// large 5' side, small 3' side
	for br := 0; br <= maxInextensibleUnpaired; br++ {
		jj := j - 1 - br
		if jj <= i || r.nickIn(jj, j) {
			continue
		}
		for ii := i + 1 + (maxInextensibleUnpaired + 1); ii < jj; ii++ {
			bl := ii - i - 1
			if r.nickIn(i, ii) {
				continue
			}
			if br == 0 {
				emitB(alg.Times(r.Model.BulgeBoltz(bl), r.B.Get(ii, jj)), Ref{KindB, ii, jj})
				continue
			}
			w := alg.Times(r.Model.InteriorBoltz(bl+br), r.Model.AsymmetryBoltz(bl-br))
			w = alg.Times(w, alg.Times(outer, r.YA.Get(ii, jj)))
			emitB(w, Ref{KindYA, ii, jj})
		}
	}

	// both sides large
	minBig := maxInextensibleUnpaired + 1
	if fast && !r.nickIn(i, j) {
		w := r.fi.sum(alg, i, j-i, func(g int) E { return r.Model.InteriorBoltz(g) })
		emitB(alg.Times(alg.Times(outer, r.asymmetryCap()), w))
		return
	}
	asymCap := r.asymmetryCap()
	for ii := i + 1 + minBig; ii < j-minBig-1; ii++ {
		if r.nickIn(i, ii) {
			continue
		}
		for jj := ii + 1; jj <= j-1-minBig; jj++ {
			if r.nickIn(jj, j) {
				continue
			}
			total := (ii - i - 1) + (j - jj - 1)
			w := alg.Times(r.Model.InteriorBoltz(total), alg.Times(asymCap, alg.Times(outer, r.YA.Get(ii, jj))))
			emitB(w, Ref{KindYA, ii, jj})
		}
	}
}

// enumerateMultiClose covers the multiloop closed by (i, j): the plain
// body for the dangle ensembles, and for coaxial stacking the
// state-summed MD body plus the three closing-stack configurations.
func (r *Recursions[E]) enumerateMultiClose(i, j int, emitB func(w E, children ...Ref)) {
	alg := r.Alg
	if j-i < 2 {
		return
	}
	// a boundary flush against the closing pair makes the loop exterior,
	// which the nick decomposition owns
	if r.nickAt(i+1) || r.nickAt(j) {
		return
	}
	term := r.terminalBoltz(i, j)
	closeFactor := alg.Times(r.multi1x2(), term)

	if r.Model.Model().Ensemble != energyparams.CoaxialStacking {
		w := alg.Times(r.M2.Get(i+1, j-1), alg.Times(closeFactor, r.closingDangle(i, j)))
		emitB(w, Ref{KindM2, i + 1, j - 1})
		return
	}

	// state-summed body (closing-pair dangle states live in MD)
	emitB(alg.Times(r.MD.Get(i+1, j-1), closeFactor), Ref{KindMD, i + 1, j - 1})

	// closing pair coaxially stacked on the first helix
	for d := i + 2; d <= j-2; d++ {
		w := alg.Times(r.D.Get(i+1, d), r.coaxBoltz(i, j, i+1, d))
		w = alg.Times(w, alg.Times(r.multi2(), alg.Times(r.M1.Get(d+1, j-1), closeFactor)))
		emitB(w, Ref{KindD, i + 1, d}, Ref{KindM1, d + 1, j - 1})
	}
	// closing pair coaxially stacked on the last helix
	for d := i + 2; d <= j-2; d++ {
		w := alg.Times(r.D.Get(d, j-1), r.coaxBoltz(d, j-1, j, i))
		w = alg.Times(w, alg.Times(r.multi2(), alg.Times(r.M1.Get(i+1, d-1), closeFactor)))
		emitB(w, Ref{KindD, d, j - 1}, Ref{KindM1, i + 1, d - 1})
	}
	// both faces stacked; the body needs a third stem
	w := alg.Times(r.M3.Get(i+1, j-1), alg.Times(r.coaxBoltz(i, j, i+1, j-1), closeFactor))
	emitB(w, Ref{KindM3, i + 1, j - 1})
}

func (r *Recursions[E]) enumerateCD(i, j int, emit func(w E, children ...Ref)) {
	if r.Model.Model().Ensemble != energyparams.CoaxialStacking {
		return
	}
	alg := r.Alg
	for d := i + 1; d <= j-2; d++ {
		w := alg.Times(r.D.Get(i, d), alg.Times(r.D.Get(d+1, j), r.coaxBoltz(d, i, d+1, j)))
		emit(w, Ref{KindD, i, d}, Ref{KindD, d + 1, j})
	}
}

func (r *Recursions[E]) enumerateMCS(i, j int, emit func(w E, children ...Ref)) {
	if r.Model.Model().Ensemble != energyparams.CoaxialStacking {
		return
	}
	alg := r.Alg
	m2sq := alg.Times(r.multi2(), r.multi2())
	emit(alg.Times(r.CD.Get(i, j), m2sq), Ref{KindCD, i, j})
	for d := i + 1; d <= j-1; d++ {
		if r.nickIn(d, j) {
			continue
		}
		w := alg.Times(r.CD.Get(i, d), alg.Times(m2sq, r.Model.MultiUnpairedBoltz(j-d)))
		emit(w, Ref{KindCD, i, d})
	}
}

func (r *Recursions[E]) enumerateMC(i, j int, emit func(w E, children ...Ref)) {
	if r.Model.Model().Ensemble != energyparams.CoaxialStacking {
		return
	}
	alg := r.Alg
	emit(r.MCS.Get(i, j), Ref{KindMCS, i, j})
	if i < j && !r.nickAt(i+1) {
		emit(alg.Times(r.Model.MultiUnpairedBoltz(1), r.MC.Get(i+1, j)), Ref{KindMC, i + 1, j})
	}
}

// enumerateMS: a multiloop stem starting at i, with every base after the
// stem's 3' end unpaired (and inside the loop, so nick-free).
func (r *Recursions[E]) enumerateMS(i, j int, emit func(w E, children ...Ref)) {
	alg := r.Alg
	emit(alg.Times(r.D.Get(i, j), alg.Times(r.multi2(), r.dangleFactor(i, j))), Ref{KindD, i, j})
	for d := i + 1; d <= j-1; d++ {
		if r.nickIn(d, j) {
			continue
		}
		w := alg.Times(r.D.Get(i, d), alg.Times(r.multi2(), alg.Times(r.Model.MultiUnpairedBoltz(j-d), r.dangleFactor(i, d))))
		emit(w, Ref{KindD, i, d})
	}
}

// enumerateM1: exactly one stem, optionally preceded by penalised
// unpaired bases; the stem and its trailing unpaired run live in MS.
func (r *Recursions[E]) enumerateM1(i, j int, emit func(w E, children ...Ref)) {
	alg := r.Alg
	emit(r.MS.Get(i, j), Ref{KindMS, i, j})
	if i < j && !r.nickAt(i+1) {
		emit(alg.Times(r.Model.MultiUnpairedBoltz(1), r.M1.Get(i+1, j)), Ref{KindM1, i + 1, j})
	}
}

// enumerateM: at least one stem.
func (r *Recursions[E]) enumerateM(i, j int, emit func(w E, children ...Ref)) {
	emit(r.M1.Get(i, j), Ref{KindM1, i, j})
	emit(r.M2.Get(i, j), Ref{KindM2, i, j})
}

// enumerateM2: at least two stems, decomposed on the exact start of the
// last stem so every body is produced once: everything before d+1 is an
// M body, the last stem and its trailing unpaired run are an MS.
func (r *Recursions[E]) enumerateM2(i, j int, emit func(w E, children ...Ref)) {
	alg := r.Alg
	for d := i; d < j; d++ {
		if r.nickAt(d + 1) {
			continue
		}
		emit(alg.Times(r.M.Get(i, d), r.MS.Get(d+1, j)), Ref{KindM, i, d}, Ref{KindMS, d + 1, j})
	}
}

// enumerateM3: at least three stems; the body before the last stem has at
// least two.
func (r *Recursions[E]) enumerateM3(i, j int, emit func(w E, children ...Ref)) {
	alg := r.Alg
	for d := i; d < j; d++ {
		if r.nickAt(d + 1) {
			continue
		}
		emit(alg.Times(r.M2.Get(i, d), r.MS.Get(d+1, j)), Ref{KindM2, i, d}, Ref{KindMS, d + 1, j})
	}
}

func (r *Recursions[E]) enumerateMD(i, j int, emit func(w E, children ...Ref)) {
	if r.Model.Model().Ensemble != energyparams.CoaxialStacking {
		return
	}
	alg := r.Alg
	dd := alg.One()
	if i-1 >= 0 && j+1 < r.n {
		dd = r.dangle2x2(i-1, j+1, j, i)
	}
	emit(alg.Times(r.M2.Get(i, j), dd), Ref{KindM2, i, j})
	emit(alg.Times(r.MC.Get(i, j), dd), Ref{KindMC, i, j})
}

// enumerateS: S(i, j) = sum over d of D(i, d), the stem-starting-at-i sum
// with everything right of the stem unpaired; dangle ensembles weight
// each stem by its combine rule.
func (r *Recursions[E]) enumerateS(i, j int, emit func(w E, children ...Ref)) {
	alg := r.Alg
	for d := i + 1; d <= j; d++ {
		emit(alg.Times(r.D.Get(i, d), r.dangleFactor(i, d)), Ref{KindD, i, d})
	}
}

// enumerateQno: the partition function over [i, j] restricted to
// structures whose top level leaves no nick exposed. On a nick-free span
// this is Q itself; otherwise the leftmost nick must be covered by a
// top-level arc (a, b), and the remainder recurses.
func (r *Recursions[E]) enumerateQno(i, j int, emit func(w E, children ...Ref)) {
	alg := r.Alg
	nicks := r.nicksIn(i, j)
	if len(nicks) == 0 {
		emit(r.Q.Get(i, j), Ref{KindQ, i, j})
		return
	}
	v1 := nicks[0]
	for a := i; a <= v1-1; a++ {
		for b := v1; b <= j; b++ {
			if b < j && r.nickAt(b+1) {
				continue
			}
			w := alg.Times(r.D.Get(a, b), r.dangleFactor(a, b))
			children := []Ref{{KindD, a, b}}
			if a > i {
				w = alg.Times(r.Q.Get(i, a-1), w)
				children = append([]Ref{{KindQ, i, a - 1}}, children...)
			}
			if b < j {
				w = alg.Times(w, r.Qno.Get(b+1, j))
				children = append(children, Ref{KindQno, b + 1, j})
			}
			emit(w, children...)
		}
	}
}

// enumerateQ: Q(i, i) = 1; otherwise the empty structure, plus a
// decomposition on the start position of the rightmost top-level stem.
func (r *Recursions[E]) enumerateQ(i, j int, emit func(w E, children ...Ref)) {
	alg := r.Alg
	emit(alg.One())
	if i == j {
		return
	}
	emit(r.S.Get(i, j), Ref{KindS, i, j})
	for d := i; d < j; d++ {
		emit(alg.Times(r.Q.Get(i, d), r.S.Get(d+1, j)), Ref{KindQ, i, d}, Ref{KindS, d + 1, j})
	}
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
