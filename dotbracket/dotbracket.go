// Package dotbracket parses and renders dot-parens(-plus) secondary
// structure notation, with optional run-length encoding and multi-strand
// '+' separators. Pseudoknots are rejected at parse time.
//
// Dot-bracket notation represents unpaired bases with '.' and base pairs
// with matching '(' / ')'. A '+' marks a strand boundary (a nick). A
// numeric run-length prefix before any of '.', '(', ')', or '+' repeats
// that character the given number of times, e.g. "3(2." means "(((..".
package dotbracket

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/foldspace/thermo/seqtypes"
)

const (
	unpaired  = '.'
	openChar  = '('
	closeChar = ')'
	nickChar  = '+'
)

// Parse decodes a dot-parens(-plus) string, optionally run-length encoded,
// into a Structure. Pseudoknotted input (crossing arcs, or an unmatched
// bracket) is rejected with an error.
func Parse(s string) (seqtypes.Structure, error) {
	expanded, err := expandRLE(s)
	if err != nil {
		return seqtypes.Structure{}, fmt.Errorf("dotbracket: %w", err)
	}

	n := 0
	var nicks []int
	for _, r := range expanded {
		if r == nickChar {
			nicks = append(nicks, n)
			continue
		}
		n++
	}

	pairs := seqtypes.NewPairList(n)
	var stack []int
	pos := 0
	for _, r := range expanded {
		switch r {
		case unpaired:
			pos++
		case openChar:
			stack = append(stack, pos)
			pos++
		case closeChar:
			if len(stack) == 0 {
				return seqtypes.Structure{}, fmt.Errorf("dotbracket: unmatched ')' at position %d", pos)
			}
			open := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			pairs.Pair(open, pos)
			pos++
		case nickChar:
			// handled above; doesn't advance pos
		default:
			return seqtypes.Structure{}, fmt.Errorf("dotbracket: invalid character %q", r)
		}
	}
	if len(stack) != 0 {
		return seqtypes.Structure{}, fmt.Errorf("dotbracket: %d unmatched '(' remain", len(stack))
	}
	if err := pairs.Validate(); err != nil {
		return seqtypes.Structure{}, fmt.Errorf("dotbracket: pseudoknot or invalid structure: %w", err)
	}
	return seqtypes.Structure{Pairs: pairs, Nicks: nicks}, nil
}

// expandRLE expands numeric run-length prefixes, e.g. "3(2." -> "(((..".
func expandRLE(s string) (string, error) {
	var sb strings.Builder
	var numBuf strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			numBuf.WriteRune(r)
			continue
		}
		if isWhitespace(r) {
			continue
		}
		count := 1
		if numBuf.Len() > 0 {
			n, err := strconv.Atoi(numBuf.String())
			if err != nil {
				return "", fmt.Errorf("invalid run-length count %q", numBuf.String())
			}
			count = n
			numBuf.Reset()
		}
		switch r {
		case unpaired, openChar, closeChar, nickChar:
			sb.WriteString(strings.Repeat(string(r), count))
		default:
			return "", fmt.Errorf("invalid character %q", r)
		}
	}
	if numBuf.Len() > 0 {
		return "", fmt.Errorf("trailing run-length count %q with no following character", numBuf.String())
	}
	return sb.String(), nil
}

func isWhitespace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r':
		return true
	}
	return false
}

// Render encodes a Structure back into plain (non-run-length-encoded)
// dot-parens-plus notation. Render(Parse(s)) == s up to whitespace and RLE
// compression, as required by the round-trip invariant.
func Render(s seqtypes.Structure) (string, error) {
	n := len(s.Pairs)
	nickSet := make(map[int]bool, len(s.Nicks))
	for _, nk := range s.Nicks {
		nickSet[nk] = true
	}
	var sb strings.Builder
	for i := 0; i < n; i++ {
		if nickSet[i] {
			sb.WriteByte(nickChar)
		}
		switch j := s.Pairs[i]; {
		case j == i:
			sb.WriteByte(unpaired)
		case j > i:
			sb.WriteByte(openChar)
		default:
			sb.WriteByte(closeChar)
		}
	}
	if nickSet[n] {
		sb.WriteByte(nickChar)
	}
	return sb.String(), nil
}

// RenderRLE is like Render but run-length encodes maximal runs of
// identical characters, producing the compact form accepted by Parse.
func RenderRLE(s seqtypes.Structure) (string, error) {
	plain, err := Render(s)
	if err != nil {
		return "", err
	}
	if plain == "" {
		return "", nil
	}
	var sb strings.Builder
	run := 1
	for i := 1; i <= len(plain); i++ {
		if i < len(plain) && plain[i] == plain[i-1] {
			run++
			continue
		}
		if run > 1 {
			fmt.Fprintf(&sb, "%d", run)
		}
		sb.WriteByte(plain[i-1])
		run = 1
	}
	return sb.String(), nil
}
