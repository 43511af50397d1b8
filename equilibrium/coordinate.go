package equilibrium

import (
	"fmt"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// maxBisections bounds the per-direction line search; halving a Newton
// step 60 times leaves no representable progress.
const maxBisections = 60

// solveCoordinateDescent minimises the dual by rotating the Hessian into
// its eigenbasis and taking a Newton step along each eigendirection, with
// a bisection line search guaranteeing monotone improvement. The
// eigendecomposition is refreshed every S sweeps.
func solveCoordinateDescent(p Problem, cfg Config) (Solution, error) {
	_, s := p.A.Dims()
	y := initialDual(p)

	var vectors mat.Dense
	var values []float64
	stale := 0

	for iter := 0; iter < cfg.MaxIterations; iter++ {
		x := concentrations(p, y)
		if !allFinite(x) || !allFinite(y) {
			return Solution{Y: y, Iterations: iter}, fmt.Errorf("equilibrium: non-finite intermediate at iteration %d", iter)
		}
		if converged(p, x, cfg.Tolerance) {
			return Solution{X: x, Y: y, Converged: true, Iterations: iter}, nil
		}

		if stale == 0 {
			h := hessian(p, x)
			var es mat.EigenSym
			if !es.Factorize(h, true) {
				return Solution{Y: y, Iterations: iter}, fmt.Errorf("equilibrium: Hessian eigendecomposition failed at iteration %d", iter)
			}
			values = es.Values(nil)
			es.VectorsTo(&vectors)
			stale = s
		}
		stale--

		g := gradient(p, x)
		f0 := objective(p, y)
		for k := 0; k < s; k++ {
			if values[k] <= 1e-300 {
				continue
			}
			ghat := 0.0
			for j := 0; j < s; j++ {
				ghat += vectors.At(j, k) * g[j]
			}
			step := -ghat / values[k]
			t := 1.0
			improved := false
			trial := make([]float64, s)
			for b := 0; b < maxBisections; b++ {
				for j := 0; j < s; j++ {
					trial[j] = y[j] + t*step*vectors.At(j, k)
				}
				if f := objective(p, trial); f < f0 {
					copy(y, trial)
					f0 = f
					improved = true
					break
				}
				t /= 2
			}
			if improved {
				g = gradient(p, concentrations(p, y))
			}
		}
		cfg.Logger.Debug("coordinate-descent sweep",
			zap.Int("iteration", iter),
			zap.Float64("objective", f0),
		)
	}
	x := concentrations(p, y)
	if converged(p, x, cfg.Tolerance) {
		return Solution{X: x, Y: y, Converged: true, Iterations: cfg.MaxIterations}, nil
	}
	return Solution{X: x, Y: y, Iterations: cfg.MaxIterations}, fmt.Errorf("equilibrium: coordinate descent exhausted %d iterations", cfg.MaxIterations)
}
