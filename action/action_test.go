package action

import (
	"testing"

	"github.com/foldspace/thermo/rig"
	"github.com/stretchr/testify/require"
)

func TestDefaultActionGatesOnCanPair(t *testing.T) {
	a := None[float64]()
	alg := rig.NewScalarPF[float64](310.15)
	calls := 0
	recur := func() float64 { calls++; return 2.0 }

	require.Equal(t, 2.0, Apply(a, alg, true, recur))
	require.Equal(t, 1, calls)
	require.Equal(t, alg.Zero(), Apply(a, alg, false, recur))
}

func TestForbidAlwaysZero(t *testing.T) {
	a := NewForbid[float64]()
	alg := rig.NewScalarPF[float64](310.15)
	recur := func() float64 { t.Fatal("forbid must never evaluate recursion"); return 0 }
	require.Equal(t, alg.Zero(), Apply(a, alg, true, recur))
}

func TestFlatNeverCallsRecursion(t *testing.T) {
	a := NewFlat[float64](-3.0)
	alg := rig.NewScalarPF[float64](310.15)
	recur := func() float64 { t.Fatal("flat must never evaluate recursion"); return 0 }
	got := Apply(a, alg, true, recur)
	require.InDelta(t, alg.Boltz(-3.0), got, 1e-12)
}

func TestBonusMultipliesRecursionByBoltz(t *testing.T) {
	a := NewBonus[float64](-1.5)
	alg := rig.NewScalarPF[float64](310.15)
	got := Apply(a, alg, true, func() float64 { return 4.0 })
	require.InDelta(t, 4.0*alg.Boltz(-1.5), got, 1e-12)

	gotForbidden := Apply(a, alg, false, func() float64 {
		t.Fatal("bonus must not evaluate recursion when pair is inadmissible")
		return 0
	})
	require.Equal(t, alg.Zero(), gotForbidden)
}
