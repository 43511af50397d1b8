package scheduler

// Subblock is a contiguous sub-tuple [I, J] of strand indices within a
// complex.
type Subblock struct {
	I, J int
}

// Span reports how many strands this subblock covers.
func (s Subblock) Span() int { return s.J - s.I + 1 }

// Subblocks enumerates all k(k+1)/2 contiguous sub-tuples of a k-strand
// complex, ordered by increasing span so a caller processing them in
// slice order automatically respects "smaller spans before larger".
func Subblocks(k int) []Subblock {
	out := make([]Subblock, 0, k*(k+1)/2)
	for span := 1; span <= k; span++ {
		for i := 0; i+span-1 < k; i++ {
			out = append(out, Subblock{I: i, J: i + span - 1})
		}
	}
	return out
}

// Dependencies returns the strand-table indices and proper sub-subblocks
// that b depends on: strand-tables I..J,
// and every pair of proper subblocks [I, J-n-1], [I+n+1, J] for each
// admissible internal nick n.
func (b Subblock) Dependencies() (strands []int, pairs [][2]Subblock) {
	for s := b.I; s <= b.J; s++ {
		strands = append(strands, s)
	}
	for n := 0; n <= b.J-b.I-1; n++ {
		left := Subblock{I: b.I, J: b.J - n - 1}
		right := Subblock{I: b.I + n + 1, J: b.J}
		if left.I <= left.J && right.I <= right.J {
			pairs = append(pairs, [2]Subblock{left, right})
		}
	}
	return strands, pairs
}

// TopLevel returns the subblock spanning the whole complex, whose (0,
// last) corner carries the final Q or MFE value.
func TopLevel(k int) Subblock { return Subblock{I: 0, J: k - 1} }
