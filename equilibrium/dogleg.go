package equilibrium

import (
	"fmt"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// solveDogleg minimises the dual with a trust-region dogleg: the step
// interpolates between the steepest-descent Cauchy point and the full
// Newton point, clipped to the radius delta, which expands on
// well-modelled steps (rho > 0.75) and shrinks on poor ones (rho < 0.25).
func solveDogleg(p Problem, cfg Config) (Solution, error) {
	_, s := p.A.Dims()
	y := initialDual(p)
	delta := 1.0

	for iter := 0; iter < cfg.MaxIterations; iter++ {
		x := concentrations(p, y)
		if !allFinite(x) || !allFinite(y) {
			return Solution{Y: y, Iterations: iter}, fmt.Errorf("equilibrium: non-finite intermediate at iteration %d", iter)
		}
		if converged(p, x, cfg.Tolerance) {
			return Solution{X: x, Y: y, Converged: true, Iterations: iter}, nil
		}

		g := gradient(p, x)
		h := hessian(p, x)
		step, err := doglegStep(g, h, delta)
		if err != nil {
			return Solution{Y: y, Iterations: iter}, fmt.Errorf("equilibrium: %w at iteration %d", err, iter)
		}

		f0 := objective(p, y)
		trial := make([]float64, s)
		for j := 0; j < s; j++ {
			trial[j] = y[j] + step[j]
		}
		actual := f0 - objective(p, trial)
		predicted := modelDecrease(g, h, step)

		rho := 0.0
		if predicted > 0 {
			rho = actual / predicted
		}
		norm := floats.Norm(step, 2)
		switch {
		case rho > 0.75 && norm >= 0.99*delta:
			delta = math.Min(2*delta, cfg.DeltaMax)
		case rho < 0.25:
			delta = math.Max(delta/4, cfg.DeltaMin)
		}
		if actual > 0 {
			copy(y, trial)
		}
		cfg.Logger.Debug("dogleg step",
			zap.Int("iteration", iter),
			zap.Float64("rho", rho),
			zap.Float64("delta", delta),
		)
	}
	x := concentrations(p, y)
	if converged(p, x, cfg.Tolerance) {
		return Solution{X: x, Y: y, Converged: true, Iterations: cfg.MaxIterations}, nil
	}
	return Solution{X: x, Y: y, Iterations: cfg.MaxIterations}, fmt.Errorf("equilibrium: dogleg exhausted %d iterations", cfg.MaxIterations)
}

// doglegStep picks the classic dogleg path point within radius delta.
func doglegStep(g []float64, h *mat.SymDense, delta float64) ([]float64, error) {
	s := len(g)
	gv := mat.NewVecDense(s, g)

	// Cauchy point: -(g.g / g.Hg) g
	var hg mat.VecDense
	hg.MulVec(h, gv)
	gg := mat.Dot(gv, gv)
	ghg := mat.Dot(gv, &hg)
	if ghg <= 0 {
		return nil, fmt.Errorf("singular Hessian (non-positive curvature)")
	}
	cauchy := make([]float64, s)
	for j := range cauchy {
		cauchy[j] = -gg / ghg * g[j]
	}

	// Newton point: -H^-1 g, by Cholesky with a ridge retry
	newton := make([]float64, s)
	var ch mat.Cholesky
	hTry := mat.NewSymDense(s, nil)
	hTry.CopySym(h)
	solved := false
	for ridge := 0.0; ridge <= 1e-8; ridge = nextRidge(ridge) {
		for j := 0; j < s; j++ {
			hTry.SetSym(j, j, h.At(j, j)+ridge*h.At(j, j))
		}
		if ch.Factorize(hTry) {
			var nv mat.VecDense
			neg := mat.NewVecDense(s, nil)
			for j := 0; j < s; j++ {
				neg.SetVec(j, -g[j])
			}
			if err := ch.SolveVecTo(&nv, neg); err == nil {
				for j := 0; j < s; j++ {
					newton[j] = nv.AtVec(j)
				}
				solved = true
				break
			}
		}
		if ridge == 1e-8 {
			break
		}
	}
	if !solved {
		return nil, fmt.Errorf("singular Hessian")
	}

	if floats.Norm(newton, 2) <= delta {
		return newton, nil
	}
	cNorm := floats.Norm(cauchy, 2)
	if cNorm >= delta {
		scaled := make([]float64, s)
		for j := range scaled {
			scaled[j] = cauchy[j] * delta / cNorm
		}
		return scaled, nil
	}
	// walk the Cauchy->Newton leg until it leaves the region
	diff := make([]float64, s)
	for j := range diff {
		diff[j] = newton[j] - cauchy[j]
	}
	a, b, c := 0.0, 0.0, 0.0
	for j := range diff {
		a += diff[j] * diff[j]
		b += 2 * cauchy[j] * diff[j]
		c += cauchy[j]*cauchy[j] - delta*delta
	}
	t := (-b + math.Sqrt(b*b-4*a*c)) / (2 * a)
	step := make([]float64, s)
	for j := range step {
		step[j] = cauchy[j] + t*diff[j]
	}
	return step, nil
}

// modelDecrease is the quadratic model's predicted objective drop,
// -(g.p + p.Hp/2).
func modelDecrease(g []float64, h *mat.SymDense, p []float64) float64 {
	s := len(g)
	pv := mat.NewVecDense(s, p)
	var hp mat.VecDense
	hp.MulVec(h, pv)
	return -(floats.Dot(g, p) + 0.5*mat.Dot(pv, &hp))
}

func nextRidge(r float64) float64 {
	if r == 0 {
		return 1e-12
	}
	return r * 100
}
