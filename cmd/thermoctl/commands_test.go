package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// runApp drives the cli app exactly as a shell invocation would, with
// captured output.
func runApp(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	app := application()
	var out, errOut bytes.Buffer
	app.Writer = &out
	app.ErrWriter = &errOut
	err := app.Run(append([]string{"thermoctl"}, args...))
	return out.String(), errOut.String(), err
}

func TestPFCommandPrintsLogQ(t *testing.T) {
	out, _, err := runApp(t, "pf", "GGGAAACCC")
	require.NoError(t, err)
	require.Contains(t, out, "GGGAAACCC")
	require.Contains(t, out, "logq=")
}

func TestMFECommandPrintsDotParens(t *testing.T) {
	out, _, err := runApp(t, "mfe", "GGGAAACCC")
	require.NoError(t, err)
	require.Contains(t, out, "(((...)))")
}

func TestPairsCommandSparse(t *testing.T) {
	out, _, err := runApp(t, "pairs", "--threshold", "0.05", "GGGG+CCCC")
	require.NoError(t, err)
	require.Contains(t, out, "logq=")
	require.Greater(t, len(strings.Split(strings.TrimSpace(out), "\n")), 1)
}

func TestSuboptCommand(t *testing.T) {
	out, _, err := runApp(t, "subopt", "--gap", "3.0", "GGGGAAAACCCC")
	require.NoError(t, err)
	require.NotEmpty(t, out)
}

func TestSampleCommandDeterministicWithSeed(t *testing.T) {
	out1, _, err := runApp(t, "sample", "--n", "5", "--seed", "9", "GGGAAACCC")
	require.NoError(t, err)
	out2, _, err := runApp(t, "sample", "--n", "5", "--seed", "9", "GGGAAACCC")
	require.NoError(t, err)
	require.Equal(t, out1, out2)
}

func TestTubeCommand(t *testing.T) {
	out, _, err := runApp(t, "tube",
		"--strand", "1e-6:GGGG", "--strand", "1e-6:CCCC",
		"GGGG", "CCCC", "GGGG+CCCC")
	require.NoError(t, err)
	require.Contains(t, out, "GGGG+CCCC")
	require.Contains(t, out, "x=")
}

func TestUnknownEnsembleFails(t *testing.T) {
	_, _, err := runApp(t, "--ensemble", "quantum", "pf", "ACGU")
	require.Error(t, err)
}

func TestInvalidLetterFails(t *testing.T) {
	_, _, err := runApp(t, "pf", "ACGX")
	require.Error(t, err)
}
