package scheduler

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Pool runs the batch task graph: ComputeStrand per referenced strand,
// then ComputeBlock per subblock in dependency order (smallest span
// first). Per-result work after the top-level block (backtracking, the
// outside pass) does not run on the pool. It is a thin wrapper
// over errgroup.Group that also feeds every failure into a SharedError
// and logs task lifecycle at Debug.
type Pool struct {
	group  *errgroup.Group
	ctx    context.Context
	logger *zap.Logger
	shared *SharedError
}

// NewPool builds a Pool bounded to maxWorkers concurrent tasks, logging
// through logger (never nil; pass zap.NewNop() for silent operation).
func NewPool(ctx context.Context, maxWorkers int, logger *zap.Logger) *Pool {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)
	return &Pool{group: g, ctx: gctx, logger: logger, shared: &SharedError{}}
}

// Shared returns the pool's cancellation flag.
func (p *Pool) Shared() *SharedError { return p.shared }

// Context returns the group's derived context, cancelled on first error.
func (p *Pool) Context() context.Context { return p.ctx }

// Go schedules a named task. If it returns an error, the error is
// recorded on the pool's SharedError and propagated to errgroup so
// Wait returns it.
func (p *Pool) Go(name string, task func(ctx context.Context) error) {
	p.group.Go(func() error {
		p.logger.Debug("task start", zap.String("task", name))
		err := task(p.ctx)
		if err != nil {
			p.logger.Warn("task failed", zap.String("task", name), zap.Error(err))
			p.shared.Set(err)
			return err
		}
		p.logger.Debug("task done", zap.String("task", name))
		return nil
	})
}

// Wait blocks until every scheduled task has completed, returning the
// first error encountered (if any).
func (p *Pool) Wait() error {
	return p.group.Wait()
}
