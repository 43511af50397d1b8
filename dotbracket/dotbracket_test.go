package dotbracket

import (
	"testing"

	"github.com/foldspace/thermo/seqtypes"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestParseRenderRoundTrip(t *testing.T) {
	cases := []string{
		"...",
		"((...))",
		"((..))..((..))",
		"((.+.))",
	}
	for _, s := range cases {
		st, err := Parse(s)
		require.NoError(t, err, s)
		rendered, err := Render(st)
		require.NoError(t, err, s)
		require.Equal(t, s, rendered, s)
	}
}

func TestParseRLE(t *testing.T) {
	st, err := Parse("3(2.3)")
	require.NoError(t, err)
	plain, err := Render(st)
	require.NoError(t, err)
	require.Equal(t, "(((..)))", plain)
}

func TestRenderRLERoundTrip(t *testing.T) {
	st, err := Parse("((((....))))")
	require.NoError(t, err)
	rle, err := RenderRLE(st)
	require.NoError(t, err)
	st2, err := Parse(rle)
	require.NoError(t, err)
	require.Empty(t, cmp.Diff(st.Pairs, st2.Pairs))
}

func TestMultiStrandStructureKeepsNicks(t *testing.T) {
	st, err := Parse("((((+))))")
	require.NoError(t, err)
	want := seqtypes.Structure{
		Pairs: seqtypes.PairList{7, 6, 5, 4, 3, 2, 1, 0},
		Nicks: []int{4},
	}
	require.Empty(t, cmp.Diff(want, st))
}

func TestRejectsUnmatchedClose(t *testing.T) {
	// "([)]" isn't representable in plain dot-bracket (no second bracket
	// alphabet here), but a crossing pairing built directly is rejected by
	// the underlying PairList validation; exercise via mismatched brackets.
	_, err := Parse("(.)).")
	require.Error(t, err)
}

func TestRejectsUnmatchedOpen(t *testing.T) {
	_, err := Parse("((..)")
	require.Error(t, err)
}

func TestRejectsInvalidCharacter(t *testing.T) {
	_, err := Parse("((Z))")
	require.Error(t, err)
}
