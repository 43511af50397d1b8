package backtrack

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/foldspace/thermo/action"
	"github.com/foldspace/thermo/block"
	"github.com/foldspace/thermo/energyparams"
	"github.com/foldspace/thermo/rig"
	"github.com/stretchr/testify/require"
)

func forwardPF(t *testing.T, seq string, nicks []int) *block.Recursions[float64] {
	t.Helper()
	p, err := energyparams.ToyRNA()
	require.NoError(t, err)
	m := energyparams.NewModel(p, 310.15, energyparams.AllDangles)
	alg := rig.NewScalarPF[float64](310.15)
	cm := energyparams.NewCachedModel[float64](m, alg)
	cm.Reserve(len(seq))
	r := block.NewRecursions[float64](len(seq), alg, cm, []byte(seq), nicks, action.None[float64]())
	require.NoError(t, r.Forward(nil))
	return r
}

func forwardMFE(t *testing.T, seq string, nicks []int) *block.Recursions[float64] {
	t.Helper()
	p, err := energyparams.ToyRNA()
	require.NoError(t, err)
	m := energyparams.NewModel(p, 310.15, energyparams.AllDangles)
	alg := rig.MFE{}
	cm := energyparams.NewCachedModel[float64](m, alg)
	cm.Reserve(len(seq))
	r := block.NewRecursions[float64](len(seq), alg, cm, []byte(seq), nicks, action.None[float64]())
	require.NoError(t, r.Forward(nil))
	return r
}

func TestQueueOrdersBySpanThenPriority(t *testing.T) {
	q := newRefQueue()
	small := block.Ref{Kind: block.KindQ, I: 2, J: 4}
	large := block.Ref{Kind: block.KindB, I: 0, J: 8}
	sameSpanLow := block.Ref{Kind: block.KindB, I: 0, J: 2}
	sameSpanHigh := block.Ref{Kind: block.KindQ, I: 0, J: 2}
	q.Push(small)
	q.Push(large)
	q.Push(sameSpanLow)
	q.Push(sameSpanHigh)
	require.Equal(t, large, q.Pop(), "largest span first")
	require.Equal(t, sameSpanHigh, q.Pop(), "higher priority on equal span")
	require.Equal(t, small, q.Pop(), "smaller 5' index is the final tie-break")
	require.Equal(t, sameSpanLow, q.Pop())
	require.True(t, q.Empty())
}

func TestQueueDedupesPushes(t *testing.T) {
	q := newRefQueue()
	ref := block.Ref{Kind: block.KindZ, I: 1, J: 5}
	q.Push(ref)
	q.Push(ref)
	require.Equal(t, ref, q.Pop())
	require.True(t, q.Empty())
}

func TestMFEStructureIsHairpin(t *testing.T) {
	r := forwardMFE(t, "GGGAAACCC", nil)
	pairs, energy, err := MFEStructure(r)
	require.NoError(t, err)
	require.Equal(t, r.Value(block.KindQ, 0, 8), energy)
	require.Equal(t, 8, pairs[0])
	require.Equal(t, 7, pairs[1])
	require.Equal(t, 6, pairs[2])
	for i := 3; i <= 5; i++ {
		require.Equal(t, i, pairs[i], "hairpin loop base %d must stay unpaired", i)
	}
	require.NoError(t, pairs.Validate())
}

func TestSuboptFirstEntryIsMFE(t *testing.T) {
	r := forwardMFE(t, "GGGGAAAACCCC", nil)
	list, err := Subopt(r, 3.0, 0)
	require.NoError(t, err)
	require.NotEmpty(t, list)
	mfe := r.Value(block.KindQ, 0, r.N()-1)
	require.InDelta(t, mfe, list[0].Energy, 1e-9)
	for i := 1; i < len(list); i++ {
		require.GreaterOrEqual(t, list[i].Energy, list[i-1].Energy, "energies must be non-decreasing")
		require.LessOrEqual(t, list[i].Energy, mfe+3.0+1e-6)
	}
	for _, s := range list {
		require.NoError(t, s.Pairs.Validate())
	}
}

func TestSuboptEnumeratesDistinctStructures(t *testing.T) {
	r := forwardMFE(t, "GGGGAAAACCCC", nil)
	list, err := Subopt(r, 6.0, 0)
	require.NoError(t, err)
	seen := map[string]bool{}
	for _, s := range list {
		key := fmt.Sprint(s.Pairs)
		require.False(t, seen[key], "structure enumerated twice: %v", s.Pairs)
		seen[key] = true
	}
	// the fully-unpaired structure has energy 0 and must appear within a
	// gap that reaches it
	mfe := r.Value(block.KindQ, 0, r.N()-1)
	if -mfe <= 6.0 {
		found := false
		for _, s := range list {
			unpaired := true
			for i, p := range s.Pairs {
				if p != i {
					unpaired = false
				}
			}
			if unpaired {
				found = true
				require.InDelta(t, 0.0, s.Energy, 1e-9)
			}
		}
		require.True(t, found)
	}
}

func TestSuboptRespectsMaxNumber(t *testing.T) {
	r := forwardMFE(t, "GGGGAAAACCCC", nil)
	list, err := Subopt(r, 10.0, 3)
	require.NoError(t, err)
	require.LessOrEqual(t, len(list), 3)
}

func TestSampleCommitsValidPairLists(t *testing.T) {
	r := forwardPF(t, "GGGAAACCC", nil)
	rnd := rand.New(rand.NewSource(42))
	samples, err := Sample(r, 200, rnd)
	require.NoError(t, err)
	require.Len(t, samples, 200)
	for _, s := range samples {
		require.NoError(t, s.Validate())
	}
}

func TestSampleFrequenciesTrackPairProbabilities(t *testing.T) {
	r := forwardPF(t, "GGGAAACCC", nil)
	probs := block.PairProbabilities(r, r.Outside())

	rnd := rand.New(rand.NewSource(7))
	const n = 4000
	samples, err := Sample(r, n, rnd)
	require.NoError(t, err)

	counts := make([][]float64, r.N())
	for i := range counts {
		counts[i] = make([]float64, r.N())
	}
	for _, s := range samples {
		for i, p := range s {
			if p > i {
				counts[i][p]++
			}
		}
	}
	for i := 0; i < r.N(); i++ {
		for j := i + 1; j < r.N(); j++ {
			freq := counts[i][j] / n
			// binomial 4-sigma band
			sigma := 0.5 / 63.2 // sqrt(p(1-p)/n) <= 0.5/sqrt(n)
			require.InDelta(t, probs[i][j], freq, 4*sigma, "pair (%d,%d)", i, j)
		}
	}
}

func TestSampleDuplexAcrossNick(t *testing.T) {
	r := forwardPF(t, "GGGGCCCC", []int{4})
	rnd := rand.New(rand.NewSource(11))
	samples, err := Sample(r, 100, rnd)
	require.NoError(t, err)
	paired := 0
	for _, s := range samples {
		if s.IsPaired(0) {
			paired++
		}
	}
	require.Greater(t, paired, 10, "the GC duplex must pair base 0 in a fair share of samples")
	for _, s := range samples {
		require.NoError(t, s.Validate())
	}
}
