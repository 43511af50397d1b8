// Package seqtypes holds the sequence, complex, pair-list, and structure
// value types shared by the recursion, scheduler, and backtrack packages.
package seqtypes

import (
	"fmt"

	"github.com/foldspace/thermo/alphabet"
)

// Sequence is an immutable, shareable vector of bases. Because Go slices
// already share their backing array on copy, a Sequence is simply never
// mutated after NewSequence returns it; every view (Subsequence, window)
// aliases the same backing array instead of copying.
type Sequence struct {
	bases []alphabet.Base
	label string
}

// NewSequence copies bases into a fresh, immutable Sequence.
func NewSequence(label string, bases []alphabet.Base) *Sequence {
	cp := make([]alphabet.Base, len(bases))
	copy(cp, bases)
	return &Sequence{bases: cp, label: label}
}

// Len returns the number of bases in the sequence.
func (s *Sequence) Len() int { return len(s.bases) }

// Label returns the sequence's identifying label, if any.
func (s *Sequence) Label() string { return s.label }

// At returns the base at position i.
func (s *Sequence) At(i int) alphabet.Base { return s.bases[i] }

// Bases returns the full backing slice. Callers must not mutate it.
func (s *Sequence) Bases() []alphabet.Base { return s.bases }

// Subsequence is a read-only window [start, end) into a Sequence's backing
// array; it does not copy.
type Subsequence struct {
	Seq        *Sequence
	Start, End int
}

// Len returns the number of bases spanned by the subsequence.
func (sub Subsequence) Len() int { return sub.End - sub.Start }

// At returns the base at offset i within the subsequence window.
func (sub Subsequence) At(i int) alphabet.Base { return sub.Seq.bases[sub.Start+i] }

// DomainList is an ordered list of subsequence windows, the view a
// design-layer caller uses to address named regions of its strands.
type DomainList []Subsequence

// TotalLength returns the sum of all domain lengths.
func (l DomainList) TotalLength() int {
	n := 0
	for _, d := range l {
		n += d.Len()
	}
	return n
}

// SequenceList is an ordered tuple of sequences, e.g. the strands of a
// DomainList or a batch of independent single-strand jobs.
type SequenceList []*Sequence

// TotalLength returns the sum of all strand lengths.
func (l SequenceList) TotalLength() int {
	n := 0
	for _, s := range l {
		n += s.Len()
	}
	return n
}

// Complex is an ordered tuple of strands forming one multi-strand job.
// Two complexes are considered identical when related by a cyclic rotation
// of their strand tuple.
type Complex struct {
	Strands SequenceList
}

// NewComplex builds a Complex from an ordered strand list.
func NewComplex(strands ...*Sequence) Complex {
	return Complex{Strands: append(SequenceList(nil), strands...)}
}

// NumStrands returns the number of strands in the complex.
func (c Complex) NumStrands() int { return len(c.Strands) }

// Length returns the total number of bases across all strands.
func (c Complex) Length() int { return c.Strands.TotalLength() }

// rotate returns the strand tuple cyclically rotated left by n positions.
func rotate(strands SequenceList, n int) SequenceList {
	k := len(strands)
	if k == 0 {
		return strands
	}
	n = ((n % k) + k) % k
	out := make(SequenceList, k)
	for i := range strands {
		out[i] = strands[(i+n)%k]
	}
	return out
}

// sequenceLess orders two strands by length then base-by-base then label,
// giving a total order usable to pick a canonical rotation.
func sequenceLess(a, b *Sequence) bool {
	if a.Len() != b.Len() {
		return a.Len() < b.Len()
	}
	for i := 0; i < a.Len(); i++ {
		if a.bases[i] != b.bases[i] {
			return a.bases[i] < b.bases[i]
		}
	}
	return a.label < b.label
}

func tupleLess(a, b SequenceList) bool {
	for i := range a {
		if sequenceLess(a[i], b[i]) {
			return true
		}
		if sequenceLess(b[i], a[i]) {
			return false
		}
	}
	return false
}

// Canonical returns the lowest-rotation form of c (the cyclic rotation that
// sorts first under a deterministic strand order) together with the
// rotation amount that was applied and the complex's rotational symmetry
// number (the size of the stabiliser of c's strand tuple under cyclic
// rotation). Canonical forms of cyclically-related complexes are byte
// identical, which is what makes them usable as cache/hash keys.
func (c Complex) Canonical() (canon Complex, rotationApplied int, symmetry int) {
	k := len(c.Strands)
	if k == 0 {
		return c, 0, 1
	}
	best := c.Strands
	bestRot := 0
	for r := 1; r < k; r++ {
		cand := rotate(c.Strands, r)
		if tupleLess(cand, best) {
			best = cand
			bestRot = r
		}
	}
	sym := 0
	for r := 0; r < k; r++ {
		if sequencesEqual(rotate(c.Strands, r), c.Strands) {
			sym++
		}
	}
	return Complex{Strands: best}, bestRot, sym
}

func sequencesEqual(a, b SequenceList) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Len() != b[i].Len() {
			return false
		}
		for j := 0; j < a[i].Len(); j++ {
			if a[i].bases[j] != b[i].bases[j] {
				return false
			}
		}
	}
	return true
}

// Key returns a comparable string key suitable for cache lookups, built
// from the complex's canonical rotation.
func (c Complex) Key() string {
	canon, _, _ := c.Canonical()
	var out []byte
	for i, s := range canon.Strands {
		if i > 0 {
			out = append(out, '+')
		}
		for _, b := range s.bases {
			out = append(out, byte(b)+1)
		}
	}
	return string(out)
}

// Nicks returns the cumulative prefix lengths marking strand boundaries,
// e.g. for strands of length 4,3,5 the nicks are [4,7,12].
func (c Complex) Nicks() []int {
	nicks := make([]int, len(c.Strands))
	total := 0
	for i, s := range c.Strands {
		total += s.Len()
		nicks[i] = total
	}
	return nicks
}

// StrandWindow identifies the contiguous sub-tuple of strands [I..J]
// (inclusive) addressed by a block.
type StrandWindow struct {
	I, J int
}

// String renders the window for diagnostics.
func (w StrandWindow) String() string { return fmt.Sprintf("[%d..%d]", w.I, w.J) }
