// Package alphabet provides the base alphabet, wildcard masks, and
// base-pairing tables that every other package in this module is
// parametrised over.
package alphabet

import (
	"fmt"
	"strings"
)

// Base is a small integer code for one letter of an alphabet. Null is a
// reserved marker denoting a strand terminus inside a multi-strand loop;
// it is never a member of any Wildcard mask.
type Base uint8

// Null denotes a strand terminus. It is never a valid index into an
// Alphabet's tables.
const Null Base = 0xFF

// Wildcard is a bitmask over an alphabet's bases. Bit i set means base i
// is a member. The mask of Null is always 0.
type Wildcard uint32

// Union returns the bitwise union of w and other.
func (w Wildcard) Union(other Wildcard) Wildcard { return w | other }

// Intersect returns the bitwise intersection of w and other.
func (w Wildcard) Intersect(other Wildcard) Wildcard { return w & other }

// Has reports whether base b is a member of w.
func (w Wildcard) Has(b Base) bool {
	if b == Null || b >= 32 {
		return false
	}
	return w&(1<<uint(b)) != 0
}

// Determined reports whether w names exactly one base.
func (w Wildcard) Determined() bool {
	return w != 0 && w&(w-1) == 0
}

// Popcount returns the number of bases named by w.
func (w Wildcard) Popcount() int {
	n := 0
	for x := w; x != 0; x &= x - 1 {
		n++
	}
	return n
}

func maskOf(b Base) Wildcard {
	if b == Null || b >= 32 {
		return 0
	}
	return 1 << uint(b)
}

// Alphabet is an ordered set of bases with a complement table, optional
// per-material letter prefix (for mixed RNA/DNA ensembles), and IUPAC-style
// wildcard letters.
type Alphabet struct {
	letters    []rune            // canonical letter for each Base, index == Base
	index      map[rune]Base     // letter -> Base, includes lowercase forms
	wildcards  map[rune]Wildcard // wildcard letter -> mask, e.g. 'N' -> all bases
	complement []Base            // complement[b] is the Watson-Crick partner of b, or Null
	Material   string            // optional per-material prefix, e.g. "rna", "dna"
}

// Error is returned when a symbol is not a member of an Alphabet.
type Error struct {
	Symbol rune
	Index  int
}

func (e *Error) Error() string {
	return fmt.Sprintf("symbol %q at position %d not in alphabet", e.Symbol, e.Index)
}

// New builds an Alphabet from canonical letters (in Base order) and a
// complement table given as letter pairs, e.g. New([]rune("ACGU"),
// map[rune]rune{'A': 'U', 'C': 'G'}).
func New(letters []rune, complements map[rune]rune) (*Alphabet, error) {
	if len(letters) == 0 || len(letters) > 31 {
		return nil, fmt.Errorf("alphabet: letter count %d out of range [1,31]", len(letters))
	}
	a := &Alphabet{
		letters:    append([]rune(nil), letters...),
		index:      make(map[rune]Base, len(letters)*2),
		wildcards:  make(map[rune]Wildcard),
		complement: make([]Base, len(letters)),
	}
	for i, l := range letters {
		b := Base(i)
		a.index[l] = b
		a.index[toLower(l)] = b
		a.complement[i] = Null
	}
	for l, r := range complements {
		lb, ok := a.index[l]
		if !ok {
			return nil, fmt.Errorf("alphabet: complement letter %q not in alphabet", l)
		}
		rb, ok := a.index[r]
		if !ok {
			return nil, fmt.Errorf("alphabet: complement letter %q not in alphabet", r)
		}
		a.complement[lb] = rb
		a.complement[rb] = lb
	}
	for i, l := range letters {
		a.wildcards[l] = maskOf(Base(i))
		a.wildcards[toLower(l)] = maskOf(Base(i))
	}
	return a, nil
}

func toLower(r rune) rune {
	if r >= 'A' && r <= 'Z' {
		return r + ('a' - 'A')
	}
	return r
}

// AddWildcard registers a wildcard letter (e.g. IUPAC 'N', 'R', 'Y') as the
// union of the given bases.
func (a *Alphabet) AddWildcard(letter rune, bases ...rune) error {
	var mask Wildcard
	for _, l := range bases {
		b, ok := a.index[l]
		if !ok {
			return fmt.Errorf("alphabet: wildcard %q references unknown base %q", letter, l)
		}
		mask = mask.Union(maskOf(b))
	}
	a.wildcards[letter] = mask
	a.wildcards[toLower(letter)] = mask
	return nil
}

// Len returns the number of distinct bases in the alphabet.
func (a *Alphabet) Len() int { return len(a.letters) }

// Encode maps a single letter to its Base code.
func (a *Alphabet) Encode(letter rune) (Base, error) {
	b, ok := a.index[letter]
	if !ok {
		return Null, &Error{Symbol: letter, Index: -1}
	}
	return b, nil
}

// Decode maps a Base back to its canonical letter.
func (a *Alphabet) Decode(b Base) (rune, error) {
	if b == Null || int(b) >= len(a.letters) {
		return 0, fmt.Errorf("alphabet: base code %d out of range", b)
	}
	return a.letters[b], nil
}

// Complement returns the Watson-Crick complement of b, or Null if b has
// none registered.
func (a *Alphabet) Complement(b Base) Base {
	if b == Null || int(b) >= len(a.complement) {
		return Null
	}
	return a.complement[b]
}

// Wildcard returns the bitmask named by letter, including plain bases and
// any IUPAC-style wildcard letters registered with AddWildcard.
func (a *Alphabet) Wildcard(letter rune) (Wildcard, error) {
	m, ok := a.wildcards[letter]
	if !ok {
		return 0, &Error{Symbol: letter, Index: -1}
	}
	return m, nil
}

// ParseSequence parses a dotted/annotated sequence string into a slice of
// Base codes, skipping whitespace and strand separators ('+', ',').
// Unrecognised letters yield an *Error naming their position.
func (a *Alphabet) ParseSequence(s string) ([]Base, error) {
	out := make([]Base, 0, len(s))
	pos := 0
	for _, r := range s {
		if r == '+' || r == ',' || isSpace(r) {
			continue
		}
		b, err := a.Encode(r)
		if err != nil {
			return nil, &Error{Symbol: r, Index: pos}
		}
		out = append(out, b)
		pos++
	}
	return out, nil
}

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r':
		return true
	}
	return false
}

// Render turns a slice of Base codes back into a letter string.
func (a *Alphabet) Render(bases []Base) (string, error) {
	var sb strings.Builder
	sb.Grow(len(bases))
	for _, b := range bases {
		r, err := a.Decode(b)
		if err != nil {
			return "", err
		}
		sb.WriteRune(r)
	}
	return sb.String(), nil
}

// BasePairing is a symmetric boolean table over an alphabet's bases,
// separated into an interior can-pair relation and a stricter can-close
// relation. Invariant: closing is a subset of pairing.
type BasePairing struct {
	n       int
	pairing []bool // n*n, row-major
	closing []bool
}

// NewBasePairing allocates an empty BasePairing table over n bases.
func NewBasePairing(n int) *BasePairing {
	return &BasePairing{
		n:       n,
		pairing: make([]bool, n*n),
		closing: make([]bool, n*n),
	}
}

// SetPair marks bases i and j (symmetrically) as able to pair. If closing
// is true they may also close a loop (can-close implies can-pair).
func (p *BasePairing) SetPair(i, j Base, closing bool) {
	p.set(p.pairing, i, j)
	if closing {
		p.set(p.closing, i, j)
	}
}

func (p *BasePairing) set(table []bool, i, j Base) {
	table[int(i)*p.n+int(j)] = true
	table[int(j)*p.n+int(i)] = true
}

// CanPair reports whether i and j may form an interior base pair.
func (p *BasePairing) CanPair(i, j Base) bool {
	if i == Null || j == Null || int(i) >= p.n || int(j) >= p.n {
		return false
	}
	return p.pairing[int(i)*p.n+int(j)]
}

// CanClose reports whether i and j may close a loop. Guaranteed false
// whenever CanPair is false, by construction.
func (p *BasePairing) CanClose(i, j Base) bool {
	if i == Null || j == Null || int(i) >= p.n || int(j) >= p.n {
		return false
	}
	return p.closing[int(i)*p.n+int(j)]
}

// WatsonCrick builds the standard RNA/DNA alphabet (A, C, G, U or T) with
// canonical Watson-Crick complements and an IUPAC wildcard set.
func WatsonCrick(uracil bool) (*Alphabet, *BasePairing, error) {
	t := 'T'
	if uracil {
		t = 'U'
	}
	letters := []rune{'A', 'C', 'G', t}
	a, err := New(letters, map[rune]rune{'A': t, 'C': 'G'})
	if err != nil {
		return nil, nil, err
	}
	_ = a.AddWildcard('N', 'A', 'C', 'G', t)
	_ = a.AddWildcard('R', 'A', 'G')
	_ = a.AddWildcard('Y', 'C', t)
	_ = a.AddWildcard('W', 'A', t)
	_ = a.AddWildcard('S', 'C', 'G')
	_ = a.AddWildcard('K', 'G', t)
	_ = a.AddWildcard('M', 'A', 'C')

	A, _ := a.Encode('A')
	C, _ := a.Encode('C')
	G, _ := a.Encode('G')
	T, _ := a.Encode(t)

	bp := NewBasePairing(a.Len())
	bp.SetPair(A, T, true)
	bp.SetPair(C, G, true)
	bp.SetPair(G, T, false) // wobble pair: can-pair, not can-close
	return a, bp, nil
}
