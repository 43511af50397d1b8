package backtrack

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/foldspace/thermo/block"
	"github.com/foldspace/thermo/seqtypes"
)

// sampleRetries bounds the rounding-residue rescue attempts when the
// replayed contribution fractions sum to slightly under 1.
const sampleRetries = 2

// Sample draws count structures from the Boltzmann distribution encoded
// by a completed partition-function block. Each popped segment assigns
// its still-attached samples fresh uniform weights, replays the forward
// expression, and routes every sample whose weight falls inside a
// contribution's probability interval to that contribution's children;
// popping a pairing segment commits the pair into the routed samples.
func Sample[E any](r *block.Recursions[E], count int, rnd *rand.Rand) ([]seqtypes.PairList, error) {
	n := r.N()
	samples := make([]seqtypes.PairList, count)
	for s := range samples {
		samples[s] = seqtypes.NewPairList(n)
	}
	if n == 0 || count == 0 {
		return samples, nil
	}

	alg := r.Alg
	top := block.Ref{Kind: block.KindQ, I: 0, J: n - 1}
	if alg.IsZero(r.Value(top.Kind, top.I, top.J)) {
		return nil, fmt.Errorf("backtrack: partition function is zero, nothing to sample")
	}

	queue := newRefQueue()
	attached := make(map[block.Ref][]int)
	queue.Push(top)
	all := make([]int, count)
	for s := range all {
		all[s] = s
	}
	attached[top] = all

	for !queue.Empty() {
		seg := queue.Pop()
		idxs := attached[seg]
		delete(attached, seg)
		if len(idxs) == 0 {
			continue
		}

		if seg.Kind == block.KindB {
			for _, s := range idxs {
				samples[s].Pair(seg.I, seg.J)
			}
		}

		total := alg.Log(r.Value(seg.Kind, seg.I, seg.J))
		type draw struct {
			weight float64
			sample int
		}
		draws := make([]draw, len(idxs))
		for d, s := range idxs {
			draws[d] = draw{weight: rnd.Float64(), sample: s}
		}
		sort.Slice(draws, func(a, b int) bool { return draws[a].weight < draws[b].weight })

		route := func(s int, children []block.Ref) {
			for _, c := range children {
				attached[c] = append(attached[c], s)
				queue.Push(c)
			}
		}

		pos := 0
		scale := 1.0
		for attempt := 0; attempt <= sampleRetries && pos < len(draws); attempt++ {
			accum := 0.0
			r.Visit(seg.Kind, seg.I, seg.J, func(w E, children ...block.Ref) {
				lw := alg.Log(w)
				if math.IsInf(lw, -1) {
					return
				}
				accum += math.Exp(lw-total) / scale
				for pos < len(draws) && draws[pos].weight < accum {
					route(draws[pos].sample, children)
					pos++
				}
			})
			if pos == len(draws) {
				break
			}
			// rounding residue: the replayed fractions summed to a hair under
			// 1; rescale the element by the observed mass once, then nudge
			if attempt == 0 && accum > 0 {
				scale = accum
			} else {
				scale *= 0.999
			}
		}
		if pos < len(draws) {
			return nil, fmt.Errorf("backtrack: %d sample weights unrouted at %v after rescaling", len(draws)-pos, seg)
		}
	}
	return samples, nil
}
