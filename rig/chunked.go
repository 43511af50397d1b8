package rig

// chunkSize is the granularity the chunked loader processes at a time. A
// real SIMD backend would widen this to the platform's vector lane count;
// kept as a named constant so recursion code never bakes in a width.
const chunkSize = 8

// MapReduceChunked computes a.Plus-fold of f(i) for i in [lo, hi), reading
// in fixed-size chunks. reverse reads the range back-to-front; aligned
// chunk boundaries are
// handled internally so callers never see partial chunks. This is the
// degrade-to-scalar fallback described in the design notes: a real
// implementation could widen chunkSize and vectorize the inner loop
// without changing this function's contract.
func MapReduceChunked[E any](a Algebra[E], lo, hi int, reverse bool, f func(i int) E) E {
	acc := a.Zero()
	if hi <= lo {
		return acc
	}
	n := hi - lo
	full := n / chunkSize * chunkSize
	if !reverse {
		for c := 0; c < full; c += chunkSize {
			for k := 0; k < chunkSize; k++ {
				acc = a.Plus(acc, f(lo+c+k))
			}
		}
		for i := lo + full; i < hi; i++ {
			acc = a.Plus(acc, f(i))
		}
		return acc
	}
	for i := hi - 1; i >= lo+full; i-- {
		acc = a.Plus(acc, f(i))
	}
	for c := full - chunkSize; c >= 0; c -= chunkSize {
		for k := chunkSize - 1; k >= 0; k-- {
			acc = a.Plus(acc, f(lo+c+k))
		}
	}
	return acc
}

// DotChunked computes the Times-then-Plus reduction sum_i a(i)*b(i), used
// by the fast-interior X matrix rotation.
func DotChunked[E any](a Algebra[E], lo, hi int, x, y func(i int) E) E {
	return MapReduceChunked(a, lo, hi, false, func(i int) E {
		return a.Times(x(i), y(i))
	})
}
