package scheduler

import (
	"fmt"

	"github.com/foldspace/thermo/alphabet"
	"github.com/foldspace/thermo/seqtypes"
)

// StrandData holds the linear, strand-local precomputations (dangle and
// coaxial-row tables in a full implementation) keyed by strand sequence;
// here it carries the decoded letter window the block recursions read
// directly, since those tables are folded into CachedModel lookups rather
// than duplicated per strand.
type StrandData struct {
	Letters []byte
}

// ComputeStrand decodes strand index s of complex c through alpha into a
// plain byte window; it depends only on the strand and the alphabet, so
// the cache may share it across every complex referencing the strand.
func ComputeStrand(c seqtypes.Complex, alpha *alphabet.Alphabet, s int) (*StrandData, error) {
	if s < 0 || s >= c.NumStrands() {
		return nil, fmt.Errorf("scheduler: strand index %d out of range [0,%d)", s, c.NumStrands())
	}
	seq := c.Strands[s]
	letters := make([]byte, seq.Len())
	for i := 0; i < seq.Len(); i++ {
		r, err := alpha.Decode(seq.At(i))
		if err != nil {
			return nil, fmt.Errorf("scheduler: decoding strand %d position %d: %w", s, i, err)
		}
		letters[i] = byte(r)
	}
	return &StrandData{Letters: letters}, nil
}

// Window extracts the concatenated byte sequence spanned by strand
// indices [i, j] of the complex (a single contiguous sub-tuple), given
// each strand's already-computed StrandData, together with the nick
// positions separating the strands inside the window.
func Window(strands []*StrandData, i, j int) (letters []byte, nicks []int) {
	for s := i; s <= j; s++ {
		if s > i {
			nicks = append(nicks, len(letters))
		}
		letters = append(letters, strands[s].Letters...)
	}
	return letters, nicks
}
