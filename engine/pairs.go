package engine

import "container/heap"

// Sparsity configures the sparse emission of a pair-probability matrix.
type Sparsity struct {
	// Threshold drops entries below this probability.
	Threshold float64
	// RowSize, when positive, keeps only the largest RowSize entries per
	// row (the heap path); zero keeps every super-threshold entry.
	RowSize int
	// Clamp caps each column's off-diagonal sum at 1 before filtering.
	Clamp bool
	// DiagonalOnly emits only the unpaired probabilities.
	DiagonalOnly bool
}

// SparseEntry is one retained pair probability.
type SparseEntry struct {
	Row, Col int
	Value    float64
}

// PairMatrix is a pair-probability matrix in dense form, with the sparse
// form filled in when a Sparsity was requested.
type PairMatrix struct {
	N      int
	Dense  [][]float64
	Sparse []SparseEntry
}

// Sparsify filters a dense matrix per the configuration: the simple path
// emits every entry at or above the threshold, the heap path keeps the
// top RowSize per row.
func Sparsify(dense [][]float64, sp Sparsity) []SparseEntry {
	n := len(dense)
	work := dense
	if sp.Clamp {
		work = clampColumns(dense)
	}
	var out []SparseEntry
	for i := 0; i < n; i++ {
		if sp.DiagonalOnly {
			if work[i][i] >= sp.Threshold {
				out = append(out, SparseEntry{Row: i, Col: i, Value: work[i][i]})
			}
			continue
		}
		if sp.RowSize <= 0 {
			for j := 0; j < n; j++ {
				if work[i][j] >= sp.Threshold && work[i][j] > 0 {
					out = append(out, SparseEntry{Row: i, Col: j, Value: work[i][j]})
				}
			}
			continue
		}
		out = append(out, topOfRow(work[i], i, sp)...)
	}
	return out
}

// clampColumns rescales any column whose off-diagonal sum exceeds 1.
func clampColumns(dense [][]float64) [][]float64 {
	n := len(dense)
	out := make([][]float64, n)
	for i := range out {
		out[i] = append([]float64(nil), dense[i]...)
	}
	for j := 0; j < n; j++ {
		sum := 0.0
		for i := 0; i < n; i++ {
			if i != j {
				sum += out[i][j]
			}
		}
		if sum > 1 {
			for i := 0; i < n; i++ {
				if i != j {
					out[i][j] /= sum
				}
			}
		}
	}
	return out
}

// topOfRow keeps the RowSize largest super-threshold entries of one row,
// via a min-heap so each row costs O(n log RowSize).
func topOfRow(row []float64, i int, sp Sparsity) []SparseEntry {
	h := &entryHeap{}
	for j, v := range row {
		if v < sp.Threshold || v <= 0 {
			continue
		}
		heap.Push(h, SparseEntry{Row: i, Col: j, Value: v})
		if h.Len() > sp.RowSize {
			heap.Pop(h)
		}
	}
	out := make([]SparseEntry, h.Len())
	for k := len(out) - 1; k >= 0; k-- {
		out[k] = heap.Pop(h).(SparseEntry)
	}
	return out
}

type entryHeap []SparseEntry

func (h entryHeap) Len() int           { return len(h) }
func (h entryHeap) Less(a, b int) bool { return h[a].Value < h[b].Value }
func (h entryHeap) Swap(a, b int)      { h[a], h[b] = h[b], h[a] }
func (h *entryHeap) Push(x any)        { *h = append(*h, x.(SparseEntry)) }
func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
