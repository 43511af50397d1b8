package scheduler

import (
	"context"
	"testing"

	"github.com/foldspace/thermo/action"
	"github.com/foldspace/thermo/alphabet"
	"github.com/foldspace/thermo/energyparams"
	"github.com/foldspace/thermo/rig"
	"github.com/foldspace/thermo/seqtypes"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSubblocksCountMatchesTriangularFormula(t *testing.T) {
	for k := 1; k <= 5; k++ {
		sb := Subblocks(k)
		require.Len(t, sb, k*(k+1)/2)
	}
}

func TestSubblocksOrderedBySpan(t *testing.T) {
	sb := Subblocks(4)
	lastSpan := 0
	for _, s := range sb {
		require.GreaterOrEqual(t, s.Span(), lastSpan)
		lastSpan = s.Span()
	}
}

func TestDependenciesCoverInternalNicks(t *testing.T) {
	sb := Subblock{I: 0, J: 3}
	strands, pairs := sb.Dependencies()
	require.Equal(t, []int{0, 1, 2, 3}, strands)
	require.Len(t, pairs, 3)
}

func TestGuardRLockRejectsStageMismatch(t *testing.T) {
	var g Guard
	require.True(t, g.RLock(0))
	g.RUnlock()
	g.UpgradeStage(1)
	require.False(t, g.RLock(0))
	require.True(t, g.RLock(1))
}

func TestSharedErrorFirstWins(t *testing.T) {
	var se SharedError
	se.Set(nil)
	require.Nil(t, se.Get())
	err1 := errString("first")
	err2 := errString("second")
	se.Set(err1)
	se.Set(err2)
	require.Equal(t, err1, se.Get())
}

type errString string

func (e errString) Error() string { return string(e) }

func TestCacheReturnsSameIdentity(t *testing.T) {
	c := NewCache(1 << 20)
	calls := 0
	create := func() (any, error) {
		calls++
		return &struct{ n int }{n: 42}, nil
	}
	v1, rel1, err := c.GetOrCreate(Key{ComplexKey: "x", Rig: "pf", I: 0, J: 1}, 8, create)
	require.NoError(t, err)
	v2, rel2, err := c.GetOrCreate(Key{ComplexKey: "x", Rig: "pf", I: 0, J: 1}, 8, create)
	require.NoError(t, err)
	require.Same(t, v1, v2)
	require.Equal(t, 1, calls)
	rel1()
	rel2()
}

func TestCacheKeysSeparateRigs(t *testing.T) {
	c := NewCache(1 << 20)
	mk := func(tag string) any {
		v, rel, err := c.GetOrCreate(Key{ComplexKey: "x", Rig: tag, I: 0, J: 0}, 8, func() (any, error) {
			return &struct{ tag string }{tag: tag}, nil
		})
		require.NoError(t, err)
		rel()
		return v
	}
	require.NotSame(t, mk("pf"), mk("mfe"))
}

func buildToyComplex(t *testing.T) (seqtypes.Complex, *alphabet.Alphabet) {
	t.Helper()
	alpha, _, err := alphabet.WatsonCrick(true)
	require.NoError(t, err)
	bases, err := alpha.ParseSequence("GGGAAACCC")
	require.NoError(t, err)
	seq := seqtypes.NewSequence("s1", bases)
	return seqtypes.NewComplex(seq), alpha
}

func TestRunComputesTopLevelBlock(t *testing.T) {
	c, alpha := buildToyComplex(t)
	p, err := energyparams.ToyRNA()
	require.NoError(t, err)
	m := energyparams.NewModel(p, 310.15, energyparams.AllDangles)
	alg := rig.NewScalarPF[float64](310.15)
	cm := energyparams.NewCachedModel[float64](m, alg)

	pool := NewPool(context.Background(), 4, zap.NewNop())
	cache := NewCache(1 << 30)

	res, err := Run[float64](context.Background(), pool, cache, c.Key(), "pf", c, alpha, cm, alg, action.None[float64]())
	require.NoError(t, err)
	require.NotNil(t, res.Top)
	q := res.Top.Recursions.Q.Get(0, c.Length()-1)
	require.GreaterOrEqual(t, q, 1.0)
}

func TestRunAutoStaysPrimaryOnSmallInput(t *testing.T) {
	c, alpha := buildToyComplex(t)
	p, err := energyparams.ToyRNA()
	require.NoError(t, err)
	m := energyparams.NewModel(p, 310.15, energyparams.AllDangles)
	models := energyparams.NewModelData(m)

	pool := NewPool(context.Background(), 4, zap.NewNop())
	cache := NewCache(1 << 30)

	res, err := RunAuto(context.Background(), pool, cache, c.Key(), c, alpha, models, action.None[float64]())
	require.NoError(t, err)
	require.False(t, res.FellBack)
	require.True(t, res.Top.Primary())
	require.GreaterOrEqual(t, res.Top.F.Q.Get(0, c.Length()-1), 1.0)
}

func TestWindowConcatenatesWithNicks(t *testing.T) {
	strands := []*StrandData{
		{Letters: []byte("AAAA")},
		{Letters: []byte("UU")},
		{Letters: []byte("GGG")},
	}
	letters, nicks := Window(strands, 0, 2)
	require.Equal(t, "AAAAUUGGG", string(letters))
	require.Equal(t, []int{4, 6}, nicks)

	letters, nicks = Window(strands, 1, 1)
	require.Equal(t, "UU", string(letters))
	require.Empty(t, nicks)
}

func TestSharedErrorStopPollsAtGranularity(t *testing.T) {
	var se SharedError
	se.Set(errString("boom"))
	require.NoError(t, se.Stop(3), "off-granularity diagonals must not observe the flag")
	require.Error(t, se.Stop(DiagonalCheckGranularity))
}
