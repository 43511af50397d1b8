// Package equilibrium inverts the law of mass action: given per-complex
// partition functions and total strand concentrations, it solves for the
// equilibrium concentration of every complex in a test tube by minimising
// the dual Lagrangian of the constrained free energy. Three interchangeable
// methods are provided: eigenbasis coordinate descent (the default), a
// log-sum-exp Newton iteration robust to partition functions spanning many
// orders of magnitude, and a dogleg trust region.
package equilibrium

import (
	"fmt"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// Method selects the solver algorithm.
type Method int

const (
	// CoordinateDescent rotates the Hessian into its eigenbasis and takes a
	// bisection-guarded Newton step per eigendirection.
	CoordinateDescent Method = iota
	// LSENewton iterates Newton steps on the log-sum-exp form of the KKT
	// conditions.
	LSENewton
	// Dogleg combines Newton and Cauchy directions inside a trust region.
	Dogleg
)

func (m Method) String() string {
	switch m {
	case CoordinateDescent:
		return "cd"
	case LSENewton:
		return "lse-newton"
	case Dogleg:
		return "dogleg"
	default:
		return fmt.Sprintf("Method(%d)", int(m))
	}
}

// Config carries the solver's tunables; the zero value is completed by
// Defaults.
type Config struct {
	Method        Method
	Tolerance     float64
	MaxIterations int
	DeltaMin      float64
	DeltaMax      float64
	Logger        *zap.Logger
}

// Defaults fills unset fields with the published iteration budgets and
// trust-region schedule.
func (c Config) Defaults() Config {
	if c.Tolerance == 0 {
		c.Tolerance = 1e-8
	}
	if c.MaxIterations == 0 {
		c.MaxIterations = 10000
	}
	if c.DeltaMin == 0 {
		c.DeltaMin = 1e-12
	}
	if c.DeltaMax == 0 {
		c.DeltaMax = 1e3
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

// Problem states one tube: A is the C-by-S stoichiometry matrix counting
// how many copies of strand s complex c contains, LogQ the per-complex
// log partition functions, and X0 the total concentration of each strand.
// At equilibrium log x = A y + logq for the dual y, with A^T x = x0.
type Problem struct {
	A    *mat.Dense
	LogQ []float64
	X0   []float64
}

// Solution is the solver's output: complex concentrations X, the dual Y,
// and whether the shared convergence criterion was met.
type Solution struct {
	X          []float64
	Y          []float64
	Converged  bool
	Iterations int
}

// Solve dispatches on the configured method.
func Solve(p Problem, cfg Config) (Solution, error) {
	cfg = cfg.Defaults()
	if err := p.validate(); err != nil {
		return Solution{}, err
	}
	reduced, cols := p.deflate()
	var (
		sol Solution
		err error
	)
	switch cfg.Method {
	case LSENewton:
		sol, err = solveLSENewton(reduced, cfg)
	case Dogleg:
		sol, err = solveDogleg(reduced, cfg)
	default:
		sol, err = solveCoordinateDescent(reduced, cfg)
	}
	if err != nil {
		return sol, err
	}
	return reinflate(p, sol, cols), nil
}

func (p Problem) validate() error {
	c, s := p.A.Dims()
	if len(p.LogQ) != c {
		return fmt.Errorf("equilibrium: %d complexes but %d log partition functions", c, len(p.LogQ))
	}
	if len(p.X0) != s {
		return fmt.Errorf("equilibrium: %d strands but %d total concentrations", s, len(p.X0))
	}
	for i, x := range p.X0 {
		if !(x > 0) || math.IsInf(x, 0) {
			return fmt.Errorf("equilibrium: strand %d total concentration %v must be positive and finite", i, x)
		}
	}
	for s2 := 0; s2 < s; s2++ {
		used := false
		for c2 := 0; c2 < c; c2++ {
			if p.A.At(c2, s2) != 0 {
				used = true
				break
			}
		}
		if !used {
			return fmt.Errorf("equilibrium: strand %d appears in no complex", s2)
		}
	}
	return nil
}

// deflate drops linearly dependent strand columns (possible when there
// are fewer complexes than strands), returning the reduced problem and
// the surviving column indices; reinflate scatters the dual back.
func (p Problem) deflate() (Problem, []int) {
	c, s := p.A.Dims()
	if c >= s {
		cols := make([]int, s)
		for i := range cols {
			cols[i] = i
		}
		return p, cols
	}
	// modified Gram-Schmidt over columns
	var keep []int
	basis := make([][]float64, 0, s)
	for col := 0; col < s; col++ {
		v := mat.Col(nil, col, p.A)
		for _, b := range basis {
			dot := 0.0
			for i := range v {
				dot += v[i] * b[i]
			}
			for i := range v {
				v[i] -= dot * b[i]
			}
		}
		norm := 0.0
		for _, x := range v {
			norm += x * x
		}
		norm = math.Sqrt(norm)
		if norm < 1e-12 {
			continue
		}
		for i := range v {
			v[i] /= norm
		}
		basis = append(basis, v)
		keep = append(keep, col)
	}
	if len(keep) == s {
		return p, keep
	}
	reduced := mat.NewDense(c, len(keep), nil)
	x0 := make([]float64, len(keep))
	for k, col := range keep {
		for row := 0; row < c; row++ {
			reduced.Set(row, k, p.A.At(row, col))
		}
		x0[k] = p.X0[col]
	}
	return Problem{A: reduced, LogQ: p.LogQ, X0: x0}, keep
}

func reinflate(full Problem, sol Solution, cols []int) Solution {
	_, s := full.A.Dims()
	if len(cols) == s {
		return sol
	}
	y := make([]float64, s)
	for k, col := range cols {
		y[col] = sol.Y[k]
	}
	sol.Y = y
	sol.X = concentrations(full, y)
	return sol
}

// concentrations evaluates x = exp(A y + logq).
func concentrations(p Problem, y []float64) []float64 {
	c, _ := p.A.Dims()
	x := make([]float64, c)
	yv := mat.NewVecDense(len(y), y)
	var ay mat.VecDense
	ay.MulVec(p.A, yv)
	for i := 0; i < c; i++ {
		x[i] = math.Exp(ay.AtVec(i) + p.LogQ[i])
	}
	return x
}

// gradient evaluates A^T x - x0, the strand-conservation residual.
func gradient(p Problem, x []float64) []float64 {
	c, s := p.A.Dims()
	g := make([]float64, s)
	for j := 0; j < s; j++ {
		sum := 0.0
		for i := 0; i < c; i++ {
			sum += p.A.At(i, j) * x[i]
		}
		g[j] = sum - p.X0[j]
	}
	return g
}

// hessian evaluates A^T diag(x) A.
func hessian(p Problem, x []float64) *mat.SymDense {
	c, s := p.A.Dims()
	h := mat.NewSymDense(s, nil)
	for a := 0; a < s; a++ {
		for b := a; b < s; b++ {
			sum := 0.0
			for i := 0; i < c; i++ {
				sum += p.A.At(i, a) * x[i] * p.A.At(i, b)
			}
			h.SetSym(a, b, sum)
		}
	}
	return h
}

// objective is the dual Lagrangian sum(x) - x0 . y, whose minimiser
// satisfies both equilibrium conditions.
func objective(p Problem, y []float64) float64 {
	x := concentrations(p, y)
	f := 0.0
	for _, v := range x {
		f += v
	}
	for j, v := range p.X0 {
		f -= v * y[j]
	}
	return f
}

// converged applies the shared criterion max |A^T x - x0| / x0 < tol.
func converged(p Problem, x []float64, tol float64) bool {
	g := gradient(p, x)
	for j, v := range g {
		if math.Abs(v)/p.X0[j] >= tol {
			return false
		}
	}
	return true
}

func allFinite(xs []float64) bool {
	for _, v := range xs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// initialDual seeds y from the singleton complexes where possible: a
// complex containing exactly one copy of one strand pins that strand's
// dual at log x0 - logq; strands without a singleton start at log x0.
func initialDual(p Problem) []float64 {
	c, s := p.A.Dims()
	y := make([]float64, s)
	for j := 0; j < s; j++ {
		y[j] = math.Log(p.X0[j])
	}
	for i := 0; i < c; i++ {
		only, count := -1, 0.0
		singleton := true
		for j := 0; j < s; j++ {
			if a := p.A.At(i, j); a != 0 {
				if only >= 0 {
					singleton = false
					break
				}
				only, count = j, a
			}
		}
		if singleton && only >= 0 && count == 1 {
			y[only] = math.Log(p.X0[only]) - p.LogQ[i]
		}
	}
	return y
}
