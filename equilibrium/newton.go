package equilibrium

import (
	"fmt"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// solveLSENewton rephrases strand conservation as a log-sum-exp equation
// per strand and Newton-iterates on the dual directly in log space,
// which keeps the iteration well-conditioned when the logq entries span
// many orders of magnitude.
func solveLSENewton(p Problem, cfg Config) (Solution, error) {
	c, s := p.A.Dims()
	y := initialDual(p)

	residual := func(y []float64) []float64 {
		yv := mat.NewVecDense(s, y)
		var ay mat.VecDense
		ay.MulVec(p.A, yv)
		r := make([]float64, s)
		terms := make([]float64, 0, c)
		for j := 0; j < s; j++ {
			terms = terms[:0]
			for i := 0; i < c; i++ {
				if a := p.A.At(i, j); a > 0 {
					terms = append(terms, math.Log(a)+ay.AtVec(i)+p.LogQ[i])
				}
			}
			r[j] = floats.LogSumExp(terms) - math.Log(p.X0[j])
		}
		return r
	}

	for iter := 0; iter < cfg.MaxIterations; iter++ {
		x := concentrations(p, y)
		if !allFinite(x) || !allFinite(y) {
			return Solution{Y: y, Iterations: iter}, fmt.Errorf("equilibrium: non-finite intermediate at iteration %d", iter)
		}
		if converged(p, x, cfg.Tolerance) {
			return Solution{X: x, Y: y, Converged: true, Iterations: iter}, nil
		}

		r := residual(y)
		// Jacobian of the LSE residual: J[j][t] = sum_c A_cj x_c A_ct / sum_c A_cj x_c
		jac := mat.NewDense(s, s, nil)
		for j := 0; j < s; j++ {
			den := 0.0
			for i := 0; i < c; i++ {
				den += p.A.At(i, j) * x[i]
			}
			if den <= 0 {
				return Solution{Y: y, Iterations: iter}, fmt.Errorf("equilibrium: strand %d carries no mass at iteration %d", j, iter)
			}
			for t := 0; t < s; t++ {
				num := 0.0
				for i := 0; i < c; i++ {
					num += p.A.At(i, j) * x[i] * p.A.At(i, t)
				}
				jac.Set(j, t, num/den)
			}
		}

		neg := mat.NewVecDense(s, nil)
		for j := 0; j < s; j++ {
			neg.SetVec(j, -r[j])
		}
		var dy mat.VecDense
		if err := dy.SolveVec(jac, neg); err != nil {
			return Solution{Y: y, Iterations: iter}, fmt.Errorf("equilibrium: singular LSE Jacobian at iteration %d: %w", iter, err)
		}

		// damp until the residual norm improves
		rNorm := floats.Norm(r, math.Inf(1))
		t := 1.0
		trial := make([]float64, s)
		accepted := false
		for b := 0; b < maxBisections; b++ {
			for j := 0; j < s; j++ {
				trial[j] = y[j] + t*dy.AtVec(j)
			}
			if floats.Norm(residual(trial), math.Inf(1)) < rNorm {
				copy(y, trial)
				accepted = true
				break
			}
			t /= 2
		}
		if !accepted {
			return Solution{Y: y, Iterations: iter}, fmt.Errorf("equilibrium: LSE-Newton stalled at iteration %d", iter)
		}
		cfg.Logger.Debug("lse-newton step",
			zap.Int("iteration", iter),
			zap.Float64("residual", rNorm),
			zap.Float64("damping", t),
		)
	}
	x := concentrations(p, y)
	if converged(p, x, cfg.Tolerance) {
		return Solution{X: x, Y: y, Converged: true, Iterations: cfg.MaxIterations}, nil
	}
	return Solution{X: x, Y: y, Iterations: cfg.MaxIterations}, fmt.Errorf("equilibrium: LSE-Newton exhausted %d iterations", cfg.MaxIterations)
}
