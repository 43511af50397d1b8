package alphabet

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWatsonCrickRoundTrip(t *testing.T) {
	a, bp, err := WatsonCrick(true)
	require.NoError(t, err)

	bases, err := a.ParseSequence("ACGU")
	require.NoError(t, err)
	require.Len(t, bases, 4)

	rendered, err := a.Render(bases)
	require.NoError(t, err)
	require.Equal(t, "ACGU", rendered)

	A, _ := a.Encode('A')
	U, _ := a.Encode('U')
	G, _ := a.Encode('G')
	C, _ := a.Encode('C')

	require.True(t, bp.CanPair(A, U))
	require.True(t, bp.CanClose(A, U))
	require.True(t, bp.CanPair(G, U))
	require.False(t, bp.CanClose(G, U))
	require.False(t, bp.CanPair(A, C))
}

func TestWildcardMembership(t *testing.T) {
	a, _, err := WatsonCrick(true)
	require.NoError(t, err)

	n, err := a.Wildcard('N')
	require.NoError(t, err)
	A, _ := a.Encode('A')
	require.True(t, n.Has(A))
	require.False(t, n.Determined())

	single, err := a.Wildcard('A')
	require.NoError(t, err)
	require.True(t, single.Determined())
	require.Equal(t, 1, single.Popcount())
}

func TestNullNeverInWildcard(t *testing.T) {
	a, _, err := WatsonCrick(true)
	require.NoError(t, err)
	n, err := a.Wildcard('N')
	require.NoError(t, err)
	require.False(t, n.Has(Null))
}

func TestParseSequenceRejectsUnknownLetter(t *testing.T) {
	a, _, err := WatsonCrick(true)
	require.NoError(t, err)
	_, err = a.ParseSequence("ACGX")
	require.Error(t, err)
}

func TestParseSequenceSkipsStrandSeparators(t *testing.T) {
	a, _, err := WatsonCrick(true)
	require.NoError(t, err)
	bases, err := a.ParseSequence("AC+GU")
	require.NoError(t, err)
	require.Len(t, bases, 4)
}
