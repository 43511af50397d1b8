package engine

import (
	"context"

	"github.com/foldspace/thermo/equilibrium"
	"github.com/foldspace/thermo/seqtypes"
	"gonum.org/v1/gonum/mat"
)

// Tube states one test-tube problem: named strands with total
// concentrations, and the candidate complexes assembled from them.
type Tube struct {
	Strands []*seqtypes.Sequence
	// Totals are the per-strand total concentrations, molar.
	Totals    []float64
	Complexes []seqtypes.Complex
}

// TubeResult reports the equilibrium concentrations per complex, in the
// order the Tube listed them.
type TubeResult struct {
	LogQ           []float64
	Concentrations []float64
	Converged      bool
	Iterations     int
}

// SolveTube computes every complex's partition function and inverts the
// law of mass action for the tube's equilibrium concentrations.
func (e *Engine) SolveTube(ctx context.Context, tube Tube) (*TubeResult, error) {
	if len(tube.Strands) != len(tube.Totals) {
		return nil, errorf(InvalidInput, "%d strands but %d totals", len(tube.Strands), len(tube.Totals))
	}
	index := make(map[string]int, len(tube.Strands))
	for i, s := range tube.Strands {
		index[strandKey(s)] = i
	}

	c, s := len(tube.Complexes), len(tube.Strands)
	a := mat.NewDense(c, s, nil)
	logq := make([]float64, c)
	for ci, cx := range tube.Complexes {
		for _, strand := range cx.Strands {
			j, ok := index[strandKey(strand)]
			if !ok {
				return nil, errorf(InvalidInput, "complex %d uses a strand missing from the tube", ci)
			}
			a.Set(ci, j, a.At(ci, j)+1)
		}
		res := e.runJob(ctx, Job{Complex: cx, Kind: PF})
		if res.Err != nil {
			return nil, res.Err
		}
		logq[ci] = res.LogQ
	}

	sol, err := equilibrium.Solve(equilibrium.Problem{A: a, LogQ: logq, X0: tube.Totals}, e.cfg.Solver)
	if err != nil {
		return nil, wrapErr(EquilibriumSolve, err)
	}
	return &TubeResult{
		LogQ:           logq,
		Concentrations: sol.X,
		Converged:      sol.Converged,
		Iterations:     sol.Iterations,
	}, nil
}

// strandKey identifies a strand by content; base codes are shifted off
// the zero byte so the key is printable-safe.
func strandKey(s *seqtypes.Sequence) string {
	out := make([]byte, s.Len())
	for i := 0; i < s.Len(); i++ {
		out[i] = byte(s.At(i)) + 1
	}
	return string(out)
}
