package block

// Stat tracks a block's forward-pass progress: the highest diagonal
// completed, or a failure sentinel recording the diagonal an overflow was
// first observed on so the scheduler can restart the pass there under
// higher precision.
type Stat struct {
	HighestDiagonal int
	Failed          bool
	FailedDiagonal  int
}

// NewStat returns a fresh Stat with nothing yet computed.
func NewStat() Stat { return Stat{HighestDiagonal: -1} }

// Advance records that diagonal d completed successfully.
func (s *Stat) Advance(d int) {
	if d > s.HighestDiagonal {
		s.HighestDiagonal = d
	}
}

// Fail records an overflow at diagonal d; the forward pass must stop.
func (s *Stat) Fail(d int) {
	s.Failed = true
	s.FailedDiagonal = d
}

// Done reports whether the triangle of diagonals [0, lastDiagonal] all
// completed without failure.
func (s *Stat) Done(lastDiagonal int) bool {
	return !s.Failed && s.HighestDiagonal >= lastDiagonal
}

// Reset clears the failure and rewinds progress to fromDiagonal-1, used
// after a stage upgrade restarts the forward pass from the failing
// diagonal.
func (s *Stat) Reset(fromDiagonal int) {
	s.Failed = false
	s.HighestDiagonal = fromDiagonal - 1
	s.FailedDiagonal = 0
}
