package backtrack

import (
	"fmt"
	"math"
	"sort"

	"github.com/foldspace/thermo/block"
	"github.com/foldspace/thermo/seqtypes"
)

// gapSlack absorbs floating-point drift when comparing an accumulated gap
// against the caller's budget.
const gapSlack = 1e-9

// SuboptStructure is one enumerated structure with its total free energy.
type SuboptStructure struct {
	Pairs  seqtypes.PairList
	Energy float64
}

type suboptState struct {
	pairs   seqtypes.PairList
	gap     float64
	pending map[block.Ref]bool
}

// Subopt enumerates every structure within gap kcal/mol of the minimum
// free energy, at most maxNumber of them, sorted by energy. The forward
// block must have been computed under the MFE rig. Each popped segment
// offers its contributions to the attached structures: a contribution
// whose excess over the segment's minimum still fits the structure's
// remaining budget is taken, forking the structure when more than one
// fits; popping a pairing segment writes the pair into every attachment.
func Subopt(r *block.Recursions[float64], gap float64, maxNumber int) ([]SuboptStructure, error) {
	n := r.N()
	if maxNumber <= 0 {
		maxNumber = math.MaxInt32
	}
	if n == 0 {
		return nil, nil
	}
	mfe := r.Value(block.KindQ, 0, n-1)
	if math.IsInf(mfe, 1) {
		return nil, fmt.Errorf("backtrack: block has no admissible structure")
	}

	top := block.Ref{Kind: block.KindQ, I: 0, J: n - 1}
	root := &suboptState{
		pairs:   seqtypes.NewPairList(n),
		pending: map[block.Ref]bool{top: true},
	}
	states := []*suboptState{root}
	queue := newRefQueue()
	attached := map[block.Ref][]*suboptState{top: {root}}
	queue.Push(top)

	for !queue.Empty() {
		seg := queue.Pop()
		list := attached[seg]
		delete(attached, seg)
		if len(list) == 0 {
			continue
		}
		elem := r.Value(seg.Kind, seg.I, seg.J)

		for _, s := range list {
			delete(s.pending, seg)
			if seg.Kind == block.KindB {
				s.pairs.Pair(seg.I, seg.J)
			}
		}

		type contribution struct {
			delta    float64
			children []block.Ref
		}
		var contribs []contribution
		r.Visit(seg.Kind, seg.I, seg.J, func(w float64, children ...block.Ref) {
			if math.IsInf(w, 1) {
				return
			}
			delta := w - elem
			if delta < 0 {
				delta = 0
			}
			contribs = append(contribs, contribution{delta: delta, children: append([]block.Ref(nil), children...)})
		})
		// deterministic fork order: cheapest continuation first, so the
		// maxNumber bound keeps the lowest-energy structures
		sort.SliceStable(contribs, func(a, b int) bool { return contribs[a].delta < contribs[b].delta })

		attach := func(st *suboptState, children []block.Ref) {
			for _, c := range children {
				st.pending[c] = true
				attached[c] = append(attached[c], st)
				queue.Push(c)
			}
		}

		for _, s := range list {
			snapGap := s.gap
			snapPairs := s.pairs
			snapPending := make(map[block.Ref]bool, len(s.pending))
			for ref := range s.pending {
				snapPending[ref] = true
			}
			taken := false
			for _, c := range contribs {
				if snapGap+c.delta > gap+gapSlack {
					break
				}
				if !taken {
					s.gap = snapGap + c.delta
					attach(s, c.children)
					taken = true
					continue
				}
				if len(states) >= maxNumber {
					break
				}
				forked := &suboptState{
					pairs:   snapPairs.Clone(),
					gap:     snapGap + c.delta,
					pending: make(map[block.Ref]bool, len(snapPending)),
				}
				// the fork shares every other still-unresolved segment
				for ref := range snapPending {
					forked.pending[ref] = true
					attached[ref] = append(attached[ref], forked)
				}
				attach(forked, c.children)
				states = append(states, forked)
			}
			if !taken {
				return nil, fmt.Errorf("backtrack: no contribution of %v fits gap %.6f", seg, gap)
			}
		}
	}

	out := make([]SuboptStructure, len(states))
	for i, s := range states {
		out[i] = SuboptStructure{Pairs: s.pairs, Energy: mfe + s.gap}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Energy < out[b].Energy })
	return out, nil
}

// MFEStructure backtracks the single minimum-free-energy structure.
func MFEStructure(r *block.Recursions[float64]) (seqtypes.PairList, float64, error) {
	list, err := Subopt(r, 0, 1)
	if err != nil {
		return nil, 0, err
	}
	if len(list) == 0 {
		return nil, 0, fmt.Errorf("backtrack: empty suboptimal enumeration")
	}
	return list[0].Pairs, list[0].Energy, nil
}
