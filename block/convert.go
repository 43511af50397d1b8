package block

import (
	"github.com/foldspace/thermo/action"
	"github.com/foldspace/thermo/energyparams"
	"github.com/foldspace/thermo/rig"
)

// ToBig converts a partially-computed primary-precision block into the
// backup mantissa/exponent representation, preserving every stored
// element exactly (a finite float64 maps onto a normalized Big with no
// rounding) along with the progress Stat, so the scheduler can resume the
// forward pass at the diagonal that overflowed instead of recomputing
// completed ones.
func ToBig(src *Recursions[float64], alg rig.Algebra[rig.Big[float64]], model *energyparams.CachedModel[rig.Big[float64]]) *Recursions[rig.Big[float64]] {
	act := action.Action[rig.Big[float64]]{Kind: src.Action.Kind, Delta: src.Action.Delta}
	dst := NewRecursions[rig.Big[float64]](src.n, alg, model, src.Seq, src.Nicks, act)
	dst.Stat = src.Stat
	dst.seeded = src.seeded

	convert := func(from *Triangle[float64], to *Triangle[rig.Big[float64]]) {
		for i := 0; i < src.n; i++ {
			for j := i; j < src.n; j++ {
				to.Set(i, j, rig.MakeBig(from.Get(i, j)))
			}
		}
	}
	convert(&src.B, &dst.B)
	convert(&src.Z, &dst.Z)
	convert(&src.D, &dst.D)
	convert(&src.YA, &dst.YA)
	convert(&src.YB, &dst.YB)
	convert(&src.MS, &dst.MS)
	convert(&src.M1, &dst.M1)
	convert(&src.M, &dst.M)
	convert(&src.M2, &dst.M2)
	convert(&src.M3, &dst.M3)
	convert(&src.CD, &dst.CD)
	convert(&src.MCS, &dst.MCS)
	convert(&src.MC, &dst.MC)
	convert(&src.MD, &dst.MD)
	convert(&src.S, &dst.S)
	convert(&src.Qno, &dst.Qno)
	convert(&src.Q, &dst.Q)
	return dst
}
