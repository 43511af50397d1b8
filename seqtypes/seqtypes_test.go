package seqtypes

import (
	"testing"

	"github.com/foldspace/thermo/alphabet"
	"github.com/stretchr/testify/require"
)

func mustSeq(t *testing.T, a *alphabet.Alphabet, label, s string) *Sequence {
	t.Helper()
	bases, err := a.ParseSequence(s)
	require.NoError(t, err)
	return NewSequence(label, bases)
}

func TestComplexCanonicalRotation(t *testing.T) {
	a, _, err := alphabet.WatsonCrick(true)
	require.NoError(t, err)

	s1 := mustSeq(t, a, "s1", "AAAA")
	s2 := mustSeq(t, a, "s2", "CCCC")
	s3 := mustSeq(t, a, "s3", "GGGG")

	c1 := NewComplex(s1, s2, s3)
	c2 := NewComplex(s2, s3, s1)
	c3 := NewComplex(s3, s1, s2)

	canon1, _, sym1 := c1.Canonical()
	canon2, _, sym2 := c2.Canonical()
	canon3, _, sym3 := c3.Canonical()

	require.Equal(t, canon1.Key(), canon2.Key())
	require.Equal(t, canon1.Key(), canon3.Key())
	require.Equal(t, 1, sym1)
	require.Equal(t, 1, sym2)
	require.Equal(t, 1, sym3)
}

func TestComplexSymmetryNumber(t *testing.T) {
	a, _, err := alphabet.WatsonCrick(true)
	require.NoError(t, err)
	s := mustSeq(t, a, "s", "AAAA")

	c := NewComplex(s, s, s) // homodimer-like: 3 identical strands
	_, _, sym := c.Canonical()
	require.Equal(t, 3, sym)
}

func TestPairListInvolutionAndCrossing(t *testing.T) {
	v := NewPairList(9)
	v.Pair(0, 8)
	v.Pair(1, 7)
	v.Pair(2, 6)
	require.NoError(t, v.Validate())

	bad := NewPairList(4)
	bad.Pair(0, 2)
	bad.Pair(1, 3)
	require.Error(t, bad.Validate())
}

func TestPairListBrokenInvolutionDetected(t *testing.T) {
	v := NewPairList(4)
	v[0] = 2 // breaks involution: v[2] still == 2
	require.Error(t, v.Validate())
}

func TestNicks(t *testing.T) {
	a, _, err := alphabet.WatsonCrick(true)
	require.NoError(t, err)
	s1 := mustSeq(t, a, "s1", "AAAA")
	s2 := mustSeq(t, a, "s2", "CCC")
	c := NewComplex(s1, s2)
	require.Equal(t, []int{4, 7}, c.Nicks())
}
