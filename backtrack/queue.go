// Package backtrack replays a completed forward block's recursion
// expressions backwards: Boltzmann-weighted structure sampling and
// energy-ordered suboptimal enumeration both walk the DP tables through
// priority-ordered segment queues, routing attached samples or partial
// structures into the contributions of each popped segment.
package backtrack

import (
	"container/heap"

	"github.com/foldspace/thermo/block"
)

// refQueue pops segments in the order that guarantees every parent is
// processed before any of its children: larger spans first, then higher
// recursion priority, then smaller 5' index as the tie-break.
type refQueue struct {
	h      refHeap
	member map[block.Ref]bool
}

func newRefQueue() *refQueue {
	return &refQueue{member: make(map[block.Ref]bool)}
}

// Push enqueues a segment once; re-pushing a pending segment is a no-op,
// since its attachment list is tracked by the caller.
func (q *refQueue) Push(ref block.Ref) {
	if q.member[ref] {
		return
	}
	q.member[ref] = true
	heap.Push(&q.h, ref)
}

// Pop removes and returns the largest remaining segment.
func (q *refQueue) Pop() block.Ref {
	ref := heap.Pop(&q.h).(block.Ref)
	delete(q.member, ref)
	return ref
}

// Empty reports whether any segment remains.
func (q *refQueue) Empty() bool { return q.h.Len() == 0 }

type refHeap []block.Ref

func (h refHeap) Len() int { return len(h) }

func (h refHeap) Less(a, b int) bool {
	sa := h[a].J - h[a].I
	sb := h[b].J - h[b].I
	if sa != sb {
		return sa > sb
	}
	if h[a].Kind != h[b].Kind {
		return h[a].Kind.Priority() > h[b].Kind.Priority()
	}
	return h[a].I < h[b].I
}

func (h refHeap) Swap(a, b int) { h[a], h[b] = h[b], h[a] }

func (h *refHeap) Push(x any) { *h = append(*h, x.(block.Ref)) }

func (h *refHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
