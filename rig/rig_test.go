package rig

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScalarPFBoltzMonotonic(t *testing.T) {
	r := NewScalarPF[float64](310.15)
	lo := r.Boltz(-5)
	hi := r.Boltz(-1)
	require.Greater(t, lo, hi, "more negative energy must give a larger Boltzmann weight")
	require.True(t, r.Valid(lo))
	require.True(t, r.Valid(hi))
}

func TestScalarPFLogRoundTrips(t *testing.T) {
	r := NewScalarPF[float64](310.15)
	x := r.Boltz(-2.5) * 3
	require.InDelta(t, math.Log(x), r.Log(x), 1e-12)
}

func TestMFERigIdentities(t *testing.T) {
	var m MFE
	require.Equal(t, math.Inf(1), m.Zero())
	require.Equal(t, 0.0, m.One())
	require.Equal(t, -3.0, m.Plus(-3.0, 5.0))
	require.Equal(t, 2.0, m.Times(-1.0, 3.0))
	require.True(t, m.Valid(math.Inf(1)))
	require.False(t, m.Valid(math.NaN()))
}

func TestLSERigMatchesLogSumExp(t *testing.T) {
	l := NewLSE(310.15)
	a, b := -2.0, -3.5
	got := l.Plus(a, b)
	want := math.Log(math.Exp(a) + math.Exp(b))
	require.InDelta(t, want, got, 1e-9)
}

func TestBigArithmeticMatchesFloat64(t *testing.T) {
	a := MakeBig[float64](3.0)
	b := MakeBig[float64](4.0)
	sum := a.Plus(b)
	require.InDelta(t, 7.0, sum.Float64(), 1e-9)

	prod := a.Times(b)
	require.InDelta(t, 12.0, prod.Float64(), 1e-9)
}

func TestBigHandlesWidelyDifferentExponents(t *testing.T) {
	huge := Big[float64]{Mantissa: 1.0, Exponent: 2000}
	tiny := Big[float64]{Mantissa: 1.0, Exponent: -2000}
	sum := huge.Plus(tiny)
	// tiny is lost in the mantissa of huge, so the sum should equal huge.
	require.Equal(t, huge.Exponent, sum.Exponent)
}

func TestBigEqualAfterNormalize(t *testing.T) {
	a := Normalize(Big[float64]{Mantissa: 4.0, Exponent: 0})
	b := Normalize(Big[float64]{Mantissa: 1.0, Exponent: 2})
	require.True(t, a.Equal(b))
}

func TestFormElementReportsOverflowForInfiniteMantissa(t *testing.T) {
	big, err := FormElement(math.Inf(1), 0)
	require.Error(t, err)
	require.Equal(t, Big[float64]{}, big)
}

func TestFormElementAcceptsFiniteMantissa(t *testing.T) {
	big, err := FormElement(2.0, 5)
	require.NoError(t, err)
	require.InDelta(t, 64.0, big.Float64(), 1e-9)
}

func TestDivInvertsTimesAcrossRigs(t *testing.T) {
	pf := NewScalarPF[float64](310.15)
	a, b := pf.Boltz(-3.0), pf.Boltz(-1.2)
	require.InDelta(t, a, pf.Div(pf.Times(a, b), b), 1e-12)
	require.True(t, pf.IsZero(pf.Zero()))
	require.False(t, pf.IsZero(pf.One()))

	var m MFE
	require.Equal(t, -4.0, m.Div(m.Times(-4.0, 2.0), 2.0))
	require.True(t, m.IsZero(m.Zero()))

	big := NewBigPF[float64](310.15)
	x, y := big.Boltz(-30.0), big.Boltz(-7.0)
	require.InDelta(t, big.Log(x), big.Log(big.Div(big.Times(x, y), y)), 1e-9)
	require.True(t, big.IsZero(big.Zero()))
}

func TestMapReduceChunkedMatchesNaiveSum(t *testing.T) {
	r := NewScalarPF[float64](310.15)
	n := 37
	want := 0.0
	for i := 0; i < n; i++ {
		want += float64(i)
	}
	got := MapReduceChunked[float64](r, 0, n, false, func(i int) float64 { return float64(i) })
	require.InDelta(t, want, got, 1e-9)

	gotRev := MapReduceChunked[float64](r, 0, n, true, func(i int) float64 { return float64(i) })
	require.InDelta(t, want, gotRev, 1e-9)
}

func TestDotChunked(t *testing.T) {
	r := NewScalarPF[float64](310.15)
	x := []float64{1, 2, 3, 4, 5}
	y := []float64{5, 4, 3, 2, 1}
	got := DotChunked[float64](r, 0, len(x), func(i int) float64 { return x[i] }, func(i int) float64 { return y[i] })
	require.InDelta(t, 35.0, got, 1e-9)
}
