package energyparams

import (
	"testing"

	"github.com/foldspace/thermo/rig"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func yamlRoundTrip(p *ParameterSet) (*ParameterSet, error) {
	data, err := yaml.Marshal(p)
	if err != nil {
		return nil, err
	}
	return LoadYAML(data)
}

func mustToy(t *testing.T) *ParameterSet {
	t.Helper()
	p, err := ToyRNA()
	require.NoError(t, err)
	return p
}

func TestLoadJSONReadsToySet(t *testing.T) {
	p := mustToy(t)
	require.Equal(t, "ACGU", p.Alphabet)
	require.Equal(t, 37.0, p.MeasurementTemperatureCelsius)
	require.NotZero(t, p.LogExtrapolationAt)
}

func TestLoadYAMLEquivalent(t *testing.T) {
	p := mustToy(t)
	raw, err := yamlRoundTrip(p)
	require.NoError(t, err)
	require.Equal(t, p.Alphabet, raw.Alphabet)
	require.Equal(t, len(p.Stacking), len(raw.Stacking))
}

func TestModelCanPairAndClose(t *testing.T) {
	p := mustToy(t)
	m := NewModel(p, 310.15, AllDangles)
	require.True(t, m.CanPair('C', 'G'))
	require.True(t, m.CanPair('G', 'U'))
	require.False(t, m.CanPair('A', 'A'))
	require.True(t, m.CanClose('A', 'U'))
}

func TestHairpinPenaltyExtrapolatesPastTable(t *testing.T) {
	p := mustToy(t)
	m := NewModel(p, 310.15, AllDangles)
	within := m.HairpinLoopPenalty(len(p.HairpinLoop))
	beyond := m.HairpinLoopPenalty(len(p.HairpinLoop) * 4)
	require.Greater(t, beyond, within, "extrapolated penalty must exceed the last tabulated value for a longer loop")
}

func TestDangleSuppressedUnderNoStacking(t *testing.T) {
	p := mustToy(t)
	m := NewModel(p, 310.15, NoStacking)
	_, ok := m.Dangle("AU3A")
	require.False(t, ok)

	m2 := NewModel(p, 310.15, AllDangles)
	_, ok2 := m2.Dangle("AU3A")
	require.True(t, ok2)
}

func TestCachedModelReserveThenHit(t *testing.T) {
	p := mustToy(t)
	m := NewModel(p, 310.15, AllDangles)
	a := rig.NewScalarPF[float64](310.15)
	c := NewCachedModel[float64](m, a)
	c.Reserve(10)

	first := c.HairpinBoltz(5)
	second := c.HairpinBoltz(5)
	require.Equal(t, first, second)
	require.True(t, a.Valid(first))
}

func TestCachedModelGrowsWithoutLosingEntries(t *testing.T) {
	p := mustToy(t)
	m := NewModel(p, 310.15, AllDangles)
	a := rig.NewScalarPF[float64](310.15)
	c := NewCachedModel[float64](m, a)
	c.Reserve(4)
	a4 := c.BulgeBoltz(4)
	c.Reserve(20)
	require.Equal(t, a4, c.BulgeBoltz(4))
}

func TestSaltCorrectShiftsJoinPenalty(t *testing.T) {
	p := mustToy(t)
	before := p.JoinPenalty.DeltaG(310.15)
	p.SaltCorrect(310.15, 310.15, 1.0)
	after := p.JoinPenalty.DeltaG(310.15)
	require.NotEqual(t, before, after, "salt correction with nonzero molarity must change the join penalty")
}
