package scheduler

import "sync/atomic"

// DiagonalCheckGranularity is how often (in diagonals) a forward pass
// polls the SharedError cancellation flag.
const DiagonalCheckGranularity = 16

// SharedError is the single atomic cancellation flag shared across every
// task in one batch: the first captured error aborts all subsequent
// tasks. Safe to poll from many goroutines without additional locking.
type SharedError struct {
	err atomic.Pointer[error]
}

// Set records err as the batch's failure, if none has been recorded yet.
// Later calls are no-ops: the first error wins.
func (s *SharedError) Set(err error) {
	if err == nil {
		return
	}
	s.err.CompareAndSwap(nil, &err)
}

// Get returns the recorded error, or nil if the batch has not failed.
func (s *SharedError) Get() error {
	p := s.err.Load()
	if p == nil {
		return nil
	}
	return *p
}

// ShouldAbort reports whether a task reaching diagonal d should stop: the
// flag is only actually loaded every DiagonalCheckGranularity diagonals,
// matching the granularity the forward pass is specified to poll at.
func (s *SharedError) ShouldAbort(diagonal int) bool {
	if diagonal%DiagonalCheckGranularity != 0 {
		return false
	}
	return s.Get() != nil
}

// Stop adapts the flag to the forward pass's per-diagonal poll callback.
func (s *SharedError) Stop(diagonal int) error {
	if !s.ShouldAbort(diagonal) {
		return nil
	}
	return s.Get()
}
