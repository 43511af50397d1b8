package block

import "github.com/foldspace/thermo/rig"

// fastInterior carries the extensible-interior partial sums
//
//	X_d(i, g) = sum over l1 in [4, g-4] of YA(i+l1+1, j-(g-l1)-1), j = i+d,
//
// one row per 5' position i, one column per total unpaired size g. When
// the forward pass advances a diagonal the matrix rotates through
// (current, prev, prev-prev): shrinking the loop by one base on each side
// maps (i, j, g) onto (i+1, j-1, g-2) two diagonals back, so each
// diagonal's update adds only the two boundary terms l1 = 4 and
// l1 = g-4 and costs O(N^2) in total.
type fastInterior[E any] struct {
	n                   int
	zero                E
	cur, prev, prevprev [][]E
}

func newFastInterior[E any](n int, zero E) *fastInterior[E] {
	alloc := func() [][]E {
		rows := make([][]E, n)
		for i := range rows {
			rows[i] = make([]E, n+1)
		}
		return rows
	}
	if n == 0 {
		return &fastInterior[E]{n: n, zero: zero}
	}
	return &fastInterior[E]{n: n, zero: zero, cur: alloc(), prev: alloc(), prevprev: alloc()}
}

// minExtensibleSide is the smallest per-side unpaired count handled by
// the fast-interior sector; smaller sides are enumerated directly.
const minExtensibleSide = maxInextensibleUnpaired + 1

// reset prepares the rotation state for a pass starting at fromDiagonal.
// A fresh pass clears everything; a resumed pass (precision fallback
// restarting at the failed diagonal) rebuilds the two preceding
// diagonals' partial sums directly from the already-converted YA table,
// so the first advance after the resume rotates onto correct history.
func (x *fastInterior[E]) reset(alg rig.Algebra[E], ya *Triangle[E], fromDiagonal int) {
	for _, rows := range [][][]E{x.cur, x.prev, x.prevprev} {
		for i := range rows {
			for g := range rows[i] {
				rows[i][g] = x.zero
			}
		}
	}
	if fromDiagonal <= 0 {
		return
	}
	// advance rotates before filling, so the state it expects on entry to
	// diagonal d is cur = X(d-1), prev = X(d-2).
	x.fill(alg, ya, x.cur, fromDiagonal-1)
	if fromDiagonal >= 2 {
		x.fill(alg, ya, x.prev, fromDiagonal-2)
	}
}

// fill computes one diagonal's partial sums by the direct definition.
func (x *fastInterior[E]) fill(alg rig.Algebra[E], ya *Triangle[E], rows [][]E, d int) {
	for i := 0; i+d < x.n; i++ {
		j := i + d
		for g := 2 * minExtensibleSide; g <= d-3; g++ {
			acc := x.zero
			for l1 := minExtensibleSide; l1 <= g-minExtensibleSide; l1++ {
				acc = alg.Plus(acc, ya.Get(i+l1+1, j-(g-l1)-1))
			}
			rows[i][g] = acc
		}
	}
}

// advance rotates the buffers and fills the current diagonal's row of
// partial sums from the YA table.
func (x *fastInterior[E]) advance(alg rig.Algebra[E], ya *Triangle[E], d int) {
	if x.n == 0 {
		return
	}
	x.cur, x.prev, x.prevprev = x.prevprev, x.cur, x.prev
	gMax := d - 3
	for i := 0; i+d < x.n; i++ {
		j := i + d
		row := x.cur[i]
		for g := 2 * minExtensibleSide; g <= gMax; g++ {
			v := x.zero
			if g-2 >= 2*minExtensibleSide && i+1 < x.n {
				v = x.prevprev[i+1][g-2]
			}
			v = alg.Plus(v, ya.Get(i+minExtensibleSide+1, j-g+minExtensibleSide-1))
			if g > 2*minExtensibleSide {
				v = alg.Plus(v, ya.Get(i+g-minExtensibleSide+1, j-minExtensibleSide-1))
			}
			row[g] = v
		}
	}
}

// sum folds gamma(g) against the current diagonal's partial sums for the
// cell at 5' position i on diagonal d.
func (x *fastInterior[E]) sum(alg rig.Algebra[E], i, d int, gamma func(g int) E) E {
	lo := 2 * minExtensibleSide
	hi := d - 3 + 1
	if hi <= lo {
		return alg.Zero()
	}
	row := x.cur[i]
	return rig.DotChunked(alg, lo, hi, gamma, func(g int) E { return row[g] })
}
