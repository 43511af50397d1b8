package block

import (
	"math"
	"testing"

	"github.com/foldspace/thermo/action"
	"github.com/foldspace/thermo/energyparams"
	"github.com/foldspace/thermo/rig"
	"github.com/stretchr/testify/require"
)

func toyModel(t *testing.T, ensemble energyparams.Ensemble) *energyparams.Model {
	t.Helper()
	p, err := energyparams.ToyRNA()
	require.NoError(t, err)
	return energyparams.NewModel(p, 310.15, ensemble)
}

func pfRecursions(t *testing.T, seq string, nicks []int) *Recursions[float64] {
	t.Helper()
	m := toyModel(t, energyparams.AllDangles)
	alg := rig.NewScalarPF[float64](310.15)
	cm := energyparams.NewCachedModel[float64](m, alg)
	cm.Reserve(len(seq))
	return NewRecursions[float64](len(seq), alg, cm, []byte(seq), nicks, action.None[float64]())
}

func mfeRecursions(t *testing.T, seq string, nicks []int) *Recursions[float64] {
	t.Helper()
	m := toyModel(t, energyparams.AllDangles)
	alg := rig.MFE{}
	cm := energyparams.NewCachedModel[float64](m, alg)
	cm.Reserve(len(seq))
	return NewRecursions[float64](len(seq), alg, cm, []byte(seq), nicks, action.None[float64]())
}

func TestForwardPassCompletesAllDiagonals(t *testing.T) {
	r := pfRecursions(t, "GGGAAACCC", nil)
	require.NoError(t, r.Forward(nil))
	require.True(t, r.Stat.Done(r.N()-1))
}

func TestPartitionFunctionAtLeastOne(t *testing.T) {
	r := pfRecursions(t, "GGGAAACCC", nil)
	require.NoError(t, r.Forward(nil))

	q := r.Q.Get(0, r.N()-1)
	require.GreaterOrEqual(t, q, 1.0, "the all-unpaired structure always contributes weight 1")
	require.True(t, r.Alg.Valid(q))
	require.Greater(t, r.B.Get(0, r.N()-1), 0.0, "the GC closing pair admits a hairpin")
}

func TestSingleBaseQIsOne(t *testing.T) {
	r := pfRecursions(t, "G", nil)
	require.NoError(t, r.Forward(nil))
	require.Equal(t, 1.0, r.Q.Get(0, 0))
}

func TestForbidActionZeroesEveryPair(t *testing.T) {
	seq := "GGGAAACCC"
	m := toyModel(t, energyparams.AllDangles)
	alg := rig.NewScalarPF[float64](310.15)
	cm := energyparams.NewCachedModel[float64](m, alg)
	cm.Reserve(len(seq))
	r := NewRecursions[float64](len(seq), alg, cm, []byte(seq), nil, action.NewForbid[float64]())
	require.NoError(t, r.Forward(nil))
	n := r.N()
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			require.Equal(t, 0.0, r.B.Get(i, j))
		}
	}
	// with every pair forbidden, the only admissible structure is fully
	// unpaired, so Q(i,j) collapses to exactly 1 everywhere.
	require.Equal(t, 1.0, r.Q.Get(0, n-1))
}

func TestBZeroWheneverCannotPair(t *testing.T) {
	r := pfRecursions(t, "GGGAAACCC", nil)
	require.NoError(t, r.Forward(nil))
	n := r.N()
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if !r.canPair(i, j) {
				require.Zero(t, r.B.Get(i, j), "B(%d,%d) must be zero for a non-pairing pair", i, j)
			}
		}
	}
}

func TestStackingEnrichesHelix(t *testing.T) {
	// the middle pair of a stacked helix must be weighted higher than the
	// same pair computed with all stacking entries absent
	seq := "GGGAAACCC"
	withStack := pfRecursions(t, seq, nil)
	require.NoError(t, withStack.Forward(nil))

	p, err := energyparams.ToyRNA()
	require.NoError(t, err)
	p.Stacking = map[string]energyparams.LoopEnergy{}
	m := energyparams.NewModel(p, 310.15, energyparams.AllDangles)
	alg := rig.NewScalarPF[float64](310.15)
	cm := energyparams.NewCachedModel[float64](m, alg)
	cm.Reserve(len(seq))
	without := NewRecursions[float64](len(seq), alg, cm, []byte(seq), nil, action.None[float64]())
	require.NoError(t, without.Forward(nil))

	require.Greater(t, withStack.B.Get(0, 8), without.B.Get(0, 8))
}

func TestDuplexPairsAcrossNick(t *testing.T) {
	// "AAAA"+"UUUU": every cross-strand pair is admissible only because
	// of the exterior decomposition at the nick; there is no hairpin room
	r := pfRecursions(t, "AAAAUUUU", []int{4})
	require.NoError(t, r.Forward(nil))
	require.Greater(t, r.B.Get(0, 7), 0.0, "outermost duplex pair")
	require.Greater(t, r.B.Get(3, 4), 0.0, "innermost pair straddles the nick with no turn")
	require.Greater(t, r.Q.Get(0, 7), 1.0)
}

func TestNoHairpinWithoutNickUnderTurn(t *testing.T) {
	r := pfRecursions(t, "AAAAUUUU", nil)
	require.NoError(t, r.Forward(nil))
	// without the nick, (3,4) has no room for a hairpin loop
	require.Zero(t, r.B.Get(3, 4))
}

func TestMFEForwardFindsHairpin(t *testing.T) {
	r := mfeRecursions(t, "GGGAAACCC", nil)
	require.NoError(t, r.Forward(nil))
	mfe := r.Q.Get(0, r.N()-1)
	require.False(t, math.IsInf(mfe, 1))
	require.Less(t, mfe, 0.0, "a stacked GC hairpin must be favourable")
	// the hairpin's closing pair is the best pairing element
	require.Less(t, r.B.Get(0, 8), 0.0)
}

func TestOutsideThroughBNeverExceedsTotal(t *testing.T) {
	r := pfRecursions(t, "GGGGAAAACCCC", nil)
	require.NoError(t, r.Forward(nil))
	o := r.Outside()

	// B(i,j)*O(B,i,j) is the weight of the structures containing pair
	// (i, j), a subset of the ensemble, so it can never exceed Q
	q := r.Q.Get(0, r.N()-1)
	for i := 0; i < r.N(); i++ {
		for j := i + 1; j < r.N(); j++ {
			through := r.B.Get(i, j) * o.Get(KindB, i, j)
			require.LessOrEqual(t, through, q*(1+1e-9), "B(%d,%d) exterior weight exceeds the ensemble", i, j)
		}
	}
}

func TestPairProbabilityRowsSumToOne(t *testing.T) {
	r := pfRecursions(t, "GGGGAAAACCCC", nil)
	require.NoError(t, r.Forward(nil))
	p := PairProbabilities(r, r.Outside())
	for i := range p {
		sum := 0.0
		for j := range p[i] {
			require.GreaterOrEqual(t, p[i][j], 0.0)
			require.LessOrEqual(t, p[i][j], 1.0)
			sum += p[i][j]
		}
		require.InDelta(t, 1.0, sum, 1e-9, "row %d", i)
	}
	// the designed hairpin stem must dominate
	require.Greater(t, p[0][11], 0.25)
}

func TestPairCostsMatchMFEAtArgmin(t *testing.T) {
	r := mfeRecursions(t, "GGGAAACCC", nil)
	require.NoError(t, r.Forward(nil))
	costs := PairCosts(r, r.Outside())
	mfe := r.Q.Get(0, r.N()-1)
	best := math.Inf(1)
	for i := 0; i < r.N(); i++ {
		for j := i + 1; j < r.N(); j++ {
			require.GreaterOrEqual(t, costs[i][j], mfe-1e-9, "no pair can beat the MFE")
			if costs[i][j] < best {
				best = costs[i][j]
			}
		}
	}
	// the MFE structure is paired, so its pairs achieve the MFE exactly
	require.InDelta(t, mfe, best, 1e-9)
}

func TestEnumerateMatchesForwardValues(t *testing.T) {
	// replay mode must reproduce the stored forward sums, including the
	// fast-interior sector, for a span long enough to exercise it
	r := pfRecursions(t, "GGGGGAAAAAAAAAAAAAAACCCCC", nil)
	require.NoError(t, r.Forward(nil))
	n := r.N()
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			for _, kind := range forwardOrder {
				sum := 0.0
				r.enumerate(kind, i, j, false, func(w float64, _ ...Ref) { sum += w })
				stored := r.Value(kind, i, j)
				if stored == 0 {
					require.InDelta(t, 0.0, sum, 1e-12)
					continue
				}
				require.InEpsilon(t, stored, sum, 1e-9, "%v(%d,%d)", kind, i, j)
			}
		}
	}
}

func TestCoaxialEnsembleAddsWeight(t *testing.T) {
	seq := "GGGAAACCCGGGAAACCC"
	coax := func(e energyparams.Ensemble) float64 {
		m := toyModel(t, e)
		alg := rig.NewScalarPF[float64](310.15)
		cm := energyparams.NewCachedModel[float64](m, alg)
		cm.Reserve(len(seq))
		r := NewRecursions[float64](len(seq), alg, cm, []byte(seq), nil, action.None[float64]())
		require.NoError(t, r.Forward(nil))
		return r.Q.Get(0, len(seq)-1)
	}
	qAll := coax(energyparams.AllDangles)
	qCoax := coax(energyparams.CoaxialStacking)
	require.Greater(t, qCoax, qAll, "coaxial states are extra configurations on top of all-dangles")
}

func TestForwardFromResumesCleanly(t *testing.T) {
	full := pfRecursions(t, "GGGGGAAAAAAAAAAAAAAACCCCC", nil)
	require.NoError(t, full.Forward(nil))

	resumed := pfRecursions(t, "GGGGGAAAAAAAAAAAAAAACCCCC", nil)
	mid := 14
	for d := 0; d < mid; d++ {
		resumed.fi.advance(resumed.Alg, &resumed.YA, d)
		require.NoError(t, resumed.computeDiagonal(d))
		resumed.Stat.Advance(d)
	}
	require.NoError(t, resumed.ForwardFrom(mid, nil))
	require.InEpsilon(t, full.Q.Get(0, full.N()-1), resumed.Q.Get(0, resumed.N()-1), 1e-12)
}

func TestSeedFromMatchesFreshComputation(t *testing.T) {
	// the duplex window seeded from its two strand blocks must reproduce
	// the from-scratch forward pass exactly
	left := pfRecursions(t, "GGGAAACCC", nil)
	require.NoError(t, left.Forward(nil))
	right := pfRecursions(t, "GGCAAAGCC", nil)
	require.NoError(t, right.Forward(nil))

	fresh := pfRecursions(t, "GGGAAACCCGGCAAAGCC", []int{9})
	require.NoError(t, fresh.Forward(nil))

	seededRun := pfRecursions(t, "GGGAAACCCGGCAAAGCC", []int{9})
	seededRun.SeedFrom(left)
	seededRun.SeedFrom(right)
	require.True(t, seededRun.seeded.Get(0, 2), "left interior must be imported")
	require.True(t, seededRun.seeded.Get(10, 17), "right interior must be imported")
	require.False(t, seededRun.seeded.Get(0, 8), "the left block's last column reads a base it never saw")
	require.False(t, seededRun.seeded.Get(9, 17), "the right block's first row reads a base it never saw")
	require.False(t, seededRun.seeded.Get(0, 17))
	require.NoError(t, seededRun.Forward(nil))

	n := fresh.N()
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			for _, kind := range forwardOrder {
				want := fresh.Value(kind, i, j)
				got := seededRun.Value(kind, i, j)
				if want == 0 {
					require.Zero(t, got, "%v(%d,%d)", kind, i, j)
					continue
				}
				require.InEpsilon(t, want, got, 1e-12, "%v(%d,%d)", kind, i, j)
			}
		}
	}
}

func TestSeedFromRejectsMismatchedContext(t *testing.T) {
	src := pfRecursions(t, "GGGAAACCC", nil)
	require.NoError(t, src.Forward(nil))

	// same letters but a boundary the source never had
	dst := pfRecursions(t, "GGGAAACCCUUUU", []int{3, 9})
	dst.SeedFrom(src)
	for i := 0; i < src.N(); i++ {
		for j := i; j < src.N(); j++ {
			require.False(t, dst.seeded.Get(i, j))
		}
	}
}

func TestToBigResumesMidPass(t *testing.T) {
	seq := "GGGGGAAAAAAAAAAAAAAACCCCC"
	full := pfRecursions(t, seq, nil)
	require.NoError(t, full.Forward(nil))

	partial := pfRecursions(t, seq, nil)
	mid := 13
	for d := 0; d < mid; d++ {
		partial.fi.advance(partial.Alg, &partial.YA, d)
		require.NoError(t, partial.computeDiagonal(d))
		partial.Stat.Advance(d)
	}

	p, err := energyparams.ToyRNA()
	require.NoError(t, err)
	m := energyparams.NewModel(p, 310.15, energyparams.AllDangles)
	algB := rig.NewBigPF[float64](310.15)
	cmB := energyparams.NewCachedModel[rig.Big[float64]](m, algB)
	cmB.Reserve(len(seq))

	big := ToBig(partial, algB, cmB)
	big.Stat.Reset(mid)
	require.NoError(t, big.ForwardFrom(mid, nil))

	want := math.Log(full.Q.Get(0, full.N()-1))
	got := algB.Log(big.Q.Get(0, big.N()-1))
	require.InDelta(t, want, got, 1e-9, "backup-stage resume must reproduce the primary result")
}

func TestTriangleResizePreservesEntries(t *testing.T) {
	tr := NewTriangle[float64](3, 0)
	tr.Set(0, 2, 7.5)
	tr.Resize(6, 0)
	require.Equal(t, 7.5, tr.Get(0, 2))
	require.Equal(t, 6, tr.N())
}

func TestStatTracksFailureAndProgress(t *testing.T) {
	s := NewStat()
	s.Advance(0)
	s.Advance(3)
	require.Equal(t, 3, s.HighestDiagonal)
	require.False(t, s.Done(5))
	s.Fail(4)
	require.True(t, s.Failed)
	s.Reset(4)
	require.False(t, s.Failed)
	require.Equal(t, 3, s.HighestDiagonal)
}
