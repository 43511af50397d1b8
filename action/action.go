// Package action implements the per-pair design hook wrapped around the
// block recursions: a caller can bias, forbid, or flatten a pair's
// contribution without editing the recursion code itself.
package action

import "github.com/foldspace/thermo/rig"

// Kind selects which of the four contracts an Action applies.
type Kind int

const (
	// Default is the identity action: can_pair ? recursion() : zero.
	Default Kind = iota
	// Bonus multiplies the recursion's value by boltz(delta) when the pair
	// is admissible, else returns zero.
	Bonus
	// Flat replaces the recursion entirely with boltz(delta); the nested
	// recursion is never evaluated.
	Flat
	// Forbid always returns zero, regardless of admissibility.
	Forbid
)

// Action is the functor threaded through every B(i,j)-shaped recursion
// call. Recursion is evaluated lazily: Bonus and Default only call it when
// the pair is admissible, and Flat never calls it at all, since the
// underlying DP work can be skipped entirely in that case.
type Action[E any] struct {
	Kind  Kind
	Delta float64 // energy bonus/override in kcal/mol, used by Bonus and Flat
}

// None is the zero-value default action (identity, no-op).
func None[E any]() Action[E] { return Action[E]{Kind: Default} }

// NewBonus builds a Bonus action with the given energy delta.
func NewBonus[E any](deltaKcal float64) Action[E] {
	return Action[E]{Kind: Bonus, Delta: deltaKcal}
}

// NewFlat builds a Flat action with the given energy delta.
func NewFlat[E any](deltaKcal float64) Action[E] {
	return Action[E]{Kind: Flat, Delta: deltaKcal}
}

// NewForbid builds a Forbid action.
func NewForbid[E any]() Action[E] { return Action[E]{Kind: Forbid} }

// Apply evaluates the action at a given (i, j) pair per the four-case
// contract. recursion is only invoked when its value is actually needed.
func Apply[E any](a Action[E], alg rig.Algebra[E], canPair bool, recursion func() E) E {
	switch a.Kind {
	case Forbid:
		return alg.Zero()
	case Flat:
		if !canPair {
			return alg.Zero()
		}
		return alg.Boltz(a.Delta)
	case Bonus:
		if !canPair {
			return alg.Zero()
		}
		return alg.Times(recursion(), alg.Boltz(a.Delta))
	default: // Default
		if !canPair {
			return alg.Zero()
		}
		return recursion()
	}
}
