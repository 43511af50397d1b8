package block

import "math"

// OutsideTables holds, per recursion kind, the exterior weight of each
// element: the algebra-sum over all structures factoring through that
// element of everything outside it. The defining identity is
//
//	value(Q, 0, n-1) = sum over contexts of O(kind,i,j) (x) value(kind,i,j)
//
// for any kind that partitions the ensemble, which for KindB yields the
// base-pair probability matrix, and under the MFE rig the per-pair energy
// costs.
type OutsideTables[E any] struct {
	tables [numKinds + 1]Triangle[E]
}

// Get reads the exterior weight of one element.
func (o *OutsideTables[E]) Get(kind Kind, i, j int) E {
	return o.tables[kind].Get(i, j)
}

// Outside runs the exterior pass over a completed forward block. It
// replays the same contribution expressions the forward pass summed,
// scattering each parent's exterior weight into its children with the
// sibling factors divided back out. Cells are visited by decreasing span
// and, within a cell, by decreasing recursion priority, so every weight
// is final before it is scattered.
func (r *Recursions[E]) Outside() *OutsideTables[E] {
	alg := r.Alg
	o := &OutsideTables[E]{}
	for k := Kind(1); k <= Kind(numKinds); k++ {
		o.tables[k] = NewTriangle(r.n, alg.Zero())
	}
	if r.n == 0 {
		return o
	}
	o.tables[KindQ].Set(0, r.n-1, alg.One())

	for d := r.n - 1; d >= 0; d-- {
		for i := 0; i+d < r.n; i++ {
			j := i + d
			for _, kind := range outsideOrder {
				ov := o.tables[kind].Get(i, j)
				if alg.IsZero(ov) {
					continue
				}
				r.enumerate(kind, i, j, false, func(w E, children ...Ref) {
					if alg.IsZero(w) {
						return
					}
					for _, c := range children {
						cv := r.Value(c.Kind, c.I, c.J)
						if alg.IsZero(cv) {
							continue
						}
						share := alg.Times(ov, alg.Div(w, cv))
						t := &o.tables[c.Kind]
						t.Set(c.I, c.J, alg.Plus(t.Get(c.I, c.J), share))
					}
				})
			}
		}
	}
	return o
}

// PairProbabilities builds the dense base-pair probability matrix from a
// completed forward pass and its outside tables: P[i][j] is the
// probability that (i, j) pair, and P[i][i] the probability that i is
// unpaired, so every row sums to 1 after clamping.
func PairProbabilities[E any](r *Recursions[E], o *OutsideTables[E]) [][]float64 {
	alg := r.Alg
	n := r.n
	total := alg.Log(r.Q.Get(0, n-1))
	p := make([][]float64, n)
	for i := range p {
		p[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			b := r.B.Get(i, j)
			ob := o.Get(KindB, i, j)
			if alg.IsZero(b) || alg.IsZero(ob) {
				continue
			}
			v := math.Exp(alg.Log(alg.Times(b, ob)) - total)
			if v < 0 {
				v = 0
			}
			if v > 1 {
				v = 1
			}
			p[i][j] = v
			p[j][i] = v
		}
	}
	for i := 0; i < n; i++ {
		paired := 0.0
		for j := 0; j < n; j++ {
			if j != i {
				paired += p[i][j]
			}
		}
		unpaired := 1 - paired
		if unpaired < 0 {
			unpaired = 0
		}
		p[i][i] = unpaired
	}
	return p
}

// PairCosts builds, under the MFE rig, the matrix of best attainable
// energies over structures containing each pair: cost[i][j] =
// B(i,j) + O(B,i,j). Pairs no structure contains report +Inf.
func PairCosts(r *Recursions[float64], o *OutsideTables[float64]) [][]float64 {
	n := r.n
	costs := make([][]float64, n)
	for i := range costs {
		costs[i] = make([]float64, n)
		for j := range costs[i] {
			costs[i][j] = math.Inf(1)
		}
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			b := r.B.Get(i, j)
			ob := o.Get(KindB, i, j)
			if math.IsInf(b, 1) || math.IsInf(ob, 1) {
				continue
			}
			costs[i][j] = b + ob
			costs[j][i] = b + ob
		}
	}
	return costs
}
