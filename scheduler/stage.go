package scheduler

import (
	"runtime"
	"sync/atomic"
)

// Guard is the per-BlockData/StrandData lock:
// a lock-free shared read-lock tagged with the stage (precision) the
// reader expects, and a wait-for-drain exclusive upgrade used once, when
// a block's forward pass overflows and must be recomputed at the backup
// precision. readers holds a non-negative live-reader count, or the
// sentinel -1 while a writer holds the upgrade.
type Guard struct {
	stage   atomic.Int32
	readers atomic.Int64
}

// writeLocked is the sentinel value of readers while an upgrade is in
// progress.
const writeLocked = -1

// Stage returns the guard's current stage (0 = primary, 1 = backup).
func (g *Guard) Stage() int32 { return g.stage.Load() }

// RLock acquires a shared read-lock tagged with the stage the caller
// expects to observe. It reports false (and does not hold the lock) if a
// writer is active or the stage does not match, in which case the caller
// retries its computation against the current stage.
func (g *Guard) RLock(expectStage int32) bool {
	for {
		r := g.readers.Load()
		if r == writeLocked {
			return false
		}
		if g.readers.CompareAndSwap(r, r+1) {
			break
		}
	}
	if g.stage.Load() != expectStage {
		g.readers.Add(-1)
		return false
	}
	return true
}

// RUnlock releases a previously acquired read-lock.
func (g *Guard) RUnlock() { g.readers.Add(-1) }

// UpgradeStage blocks until every live reader has drained, then flips the
// stage and releases the lock. Spec: "the write lock uses a sentinel
// negative counter; the read-with-stage check is lock-free on the fast
// path."
func (g *Guard) UpgradeStage(newStage int32) {
	for !g.readers.CompareAndSwap(0, writeLocked) {
		runtime.Gosched()
	}
	g.stage.Store(newStage)
	g.readers.Store(0)
}
