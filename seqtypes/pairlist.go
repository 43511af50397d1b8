package seqtypes

import "fmt"

// PairList is a length-n array where v[i] = j means bases i and j are
// paired, and v[i] = i means base i is unpaired. Invariant: v[v[i]] == i
// for all i, and the implied arcs are non-crossing (no pseudoknots).
type PairList []int

// NewPairList allocates an all-unpaired PairList of length n.
func NewPairList(n int) PairList {
	v := make(PairList, n)
	for i := range v {
		v[i] = i
	}
	return v
}

// Pair records that i and j are paired, enforcing the involution.
func (v PairList) Pair(i, j int) {
	v[i] = j
	v[j] = i
}

// Unpair marks i as unpaired. If i was paired with j, j is unpaired too.
func (v PairList) Unpair(i int) {
	j := v[i]
	v[i] = i
	v[j] = j
}

// IsPaired reports whether base i participates in a pair.
func (v PairList) IsPaired(i int) bool { return v[i] != i }

// Validate checks the involution and non-crossing invariants, returning an
// error describing the first violation found.
func (v PairList) Validate() error {
	n := len(v)
	for i, j := range v {
		if j < 0 || j >= n {
			return fmt.Errorf("pairlist: v[%d]=%d out of range [0,%d)", i, j, n)
		}
		if v[j] != i {
			return fmt.Errorf("pairlist: involution broken, v[%d]=%d but v[%d]=%d", i, j, j, v[j])
		}
	}
	// non-crossing check: for every pair (i,j) with i<j, every k in (i,j)
	// must pair within (i,j) too.
	for i, j := range v {
		if j <= i {
			continue
		}
		for k := i + 1; k < j; k++ {
			pk := v[k]
			if pk < i || pk > j {
				return fmt.Errorf("pairlist: crossing arc at (%d,%d) vs (%d,%d)", i, j, k, pk)
			}
		}
	}
	return nil
}

// Clone returns an independent copy of v.
func (v PairList) Clone() PairList {
	cp := make(PairList, len(v))
	copy(cp, v)
	return cp
}

// Structure is a PairList together with the per-strand nick positions that
// mark strand boundaries inside a multi-strand complex.
type Structure struct {
	Pairs PairList
	Nicks []int
}

// NewStructure builds an all-unpaired Structure over a complex with the
// given nick positions (see Complex.Nicks).
func NewStructure(n int, nicks []int) Structure {
	return Structure{Pairs: NewPairList(n), Nicks: append([]int(nil), nicks...)}
}

// Validate checks the underlying PairList plus that no pair crosses a nick
// in a way that would require a pseudoknot (nicks themselves never forbid a
// pairing; multi-strand loops pair across nicks routinely, so this only
// re-validates the PairList invariants).
func (s Structure) Validate() error {
	return s.Pairs.Validate()
}
