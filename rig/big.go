package rig

import (
	"fmt"
	"math"
)

// maxShiftBudget bounds how many times FormElement will renormalise a
// mantissa before giving up and reporting overflow.
const maxShiftBudget = 2 * (1 << 18)

// Big is a mantissa/exponent number used by the PF rig when a plain T
// would overflow. Contract: equal values have equal (Mantissa, Exponent)
// after Normalize.
type Big[T Number] struct {
	Mantissa T
	Exponent int
}

// Normalize rescales b so its mantissa's binary exponent sits in the
// canonical [0.5, 1) range (as by math.Frexp), carrying the difference
// into b.Exponent.
func Normalize[T Number](b Big[T]) Big[T] {
	f := float64(b.Mantissa)
	if f == 0 {
		return Big[T]{Mantissa: 0, Exponent: 0}
	}
	frac, exp := math.Frexp(f)
	return Big[T]{Mantissa: T(frac), Exponent: b.Exponent + exp}
}

// MakeBig wraps a plain value as a normalized Big.
func MakeBig[T Number](m T) Big[T] {
	return Normalize(Big[T]{Mantissa: m, Exponent: 0})
}

// Equal reports whether two normalized Big values represent the same
// number.
func (b Big[T]) Equal(o Big[T]) bool {
	return b.Mantissa == o.Mantissa && b.Exponent == o.Exponent
}

// Plus rescales the smaller-exponent operand up to match the larger, adds
// mantissas, and renormalizes, keeping the larger exponent as the base.
func (b Big[T]) Plus(o Big[T]) Big[T] {
	hi, lo := b, o
	if lo.Exponent > hi.Exponent {
		hi, lo = lo, hi
	}
	shift := hi.Exponent - lo.Exponent
	scaledLo := math.Ldexp(float64(lo.Mantissa), -shift)
	sum := float64(hi.Mantissa) + scaledLo
	return Normalize(Big[T]{Mantissa: T(sum), Exponent: hi.Exponent})
}

// Times multiplies mantissas and adds exponents, then renormalizes.
func (b Big[T]) Times(o Big[T]) Big[T] {
	return Normalize(Big[T]{Mantissa: b.Mantissa * o.Mantissa, Exponent: b.Exponent + o.Exponent})
}

// Float64 converts back to a plain float64 via ldexp.
func (b Big[T]) Float64() float64 {
	return math.Ldexp(float64(b.Mantissa), b.Exponent)
}

func (b Big[T]) String() string {
	return fmt.Sprintf("%vo%d", b.Mantissa, b.Exponent)
}

// ErrOverflow is returned by FormElement when no valid mantissa could be
// produced within the shift budget; the caller (package block) treats this
// as the block-level Overflow condition that triggers precision fallback.
var ErrOverflow = fmt.Errorf("rig: element overflowed shift budget of %d", maxShiftBudget)

// FormElement retries constructing a Big with a shifted exponent until the
// mantissa is finite and non-negative, or the shift budget is exhausted.
func FormElement[T Number](m T, e int) (Big[T], error) {
	shifts := 0
	for {
		f := float64(m)
		if f >= 0 && !math.IsInf(f, 0) {
			return Normalize(Big[T]{Mantissa: m, Exponent: e}), nil
		}
		m = T(f / 2)
		e++
		shifts++
		if shifts > maxShiftBudget {
			return Big[T]{}, ErrOverflow
		}
	}
}

// BigPF is the partition-function rig instantiated over Big[T] mantissas,
// used automatically by the scheduler's precision-fallback path once a
// plain ScalarPF block overflows.
type BigPF[T Number] struct {
	Kappa float64
}

// NewBigPF builds the Big-backed PF rig's scale factor for a temperature
// in Kelvin.
func NewBigPF[T Number](temperatureKelvin float64) BigPF[T] {
	return BigPF[T]{Kappa: -1.0 / (GasConstant * temperatureKelvin * math.Ln2)}
}

// Div divides mantissas and subtracts exponents, then renormalizes.
func (b Big[T]) Div(o Big[T]) Big[T] {
	return Normalize(Big[T]{Mantissa: b.Mantissa / o.Mantissa, Exponent: b.Exponent - o.Exponent})
}

func (r BigPF[T]) Plus(a, b Big[T]) Big[T]  { return a.Plus(b) }
func (r BigPF[T]) Times(a, b Big[T]) Big[T] { return a.Times(b) }
func (r BigPF[T]) Div(a, b Big[T]) Big[T]   { return a.Div(b) }
func (r BigPF[T]) Zero() Big[T]             { return Big[T]{Mantissa: 0, Exponent: 0} }
func (r BigPF[T]) One() Big[T]              { return Big[T]{Mantissa: 1, Exponent: 0} }
func (r BigPF[T]) IsZero(x Big[T]) bool     { return x.Mantissa == 0 }
func (r BigPF[T]) Boltz(dG float64) Big[T] {
	// boltz(E) = 2^(E*Kappa): split into an integer exponent and a mantissa
	// 2^frac with frac in [0, 1), avoiding a premature float64 overflow.
	scaled := dG * r.Kappa
	e := math.Floor(scaled)
	frac := scaled - e
	return Normalize(Big[T]{Mantissa: T(math.Exp2(frac)), Exponent: int(e)})
}
func (r BigPF[T]) Log(x Big[T]) float64 {
	return math.Log(float64(x.Mantissa)) + float64(x.Exponent)*math.Ln2
}
func (r BigPF[T]) Valid(x Big[T]) bool {
	f := float64(x.Mantissa)
	return f >= 0 && !math.IsInf(f, 0) && !math.IsNaN(f)
}
