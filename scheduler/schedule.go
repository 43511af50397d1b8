package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/foldspace/thermo/action"
	"github.com/foldspace/thermo/alphabet"
	"github.com/foldspace/thermo/block"
	"github.com/foldspace/thermo/energyparams"
	"github.com/foldspace/thermo/rig"
	"github.com/foldspace/thermo/seqtypes"
	"go.uber.org/zap"
)

// BlockData is the computed state for one subblock: its recursion
// matrices and a Guard carrying the precision stage bit.
type BlockData[E any] struct {
	Guard      Guard
	Recursions *block.Recursions[E]
}

// Result is the top-level block's output for a complex, which Run
// returns to its caller.
type Result[E any] struct {
	Complex seqtypes.Complex
	Top     *BlockData[E]
}

// Run executes the full task graph for one complex under a single fixed
// rig: reserve CachedModel capacity, decode every strand, compute every
// subblock in dependency order (smallest span first, which Subblocks
// already yields), and return the top-level block. rigTag distinguishes
// cache entries computed under different algebras over the same complex.
func Run[E any](
	ctx context.Context,
	pool *Pool,
	cache *Cache,
	complexKey, rigTag string,
	c seqtypes.Complex,
	alpha *alphabet.Alphabet,
	model *energyparams.CachedModel[E],
	alg rig.Algebra[E],
	act action.Action[E],
) (*Result[E], error) {
	strands, err := computeStrands(pool, c, alpha)
	if err != nil {
		return nil, err
	}
	model.Reserve(c.Length())

	k := c.NumStrands()
	subblocks := Subblocks(k)
	blocks := make(map[Subblock]*BlockData[E], len(subblocks))
	var bmu sync.Mutex
	var releases []func()
	defer func() {
		for _, r := range releases {
			r()
		}
	}()

	for _, sb := range subblocks {
		sb := sb
		pool.Go(fmt.Sprintf("ComputeBlock%s", blockName(sb)), func(ctx context.Context) error {
			window, nicks := Window(strands, sb.I, sb.J)
			key := Key{ComplexKey: complexKey, Rig: rigTag, I: sb.I, J: sb.J}
			v, release, err := cache.GetOrCreate(key, blockBytes(len(window)), func() (any, error) {
				r := block.NewRecursions[E](len(window), alg, model, window, nicks, act)
				// the two maximal proper subblocks transitively cover every
				// smaller dependency; their interiors carry over unchanged
				bmu.Lock()
				left, right := blocks[Subblock{I: sb.I, J: sb.J - 1}], blocks[Subblock{I: sb.I + 1, J: sb.J}]
				bmu.Unlock()
				if left != nil {
					r.SeedFrom(left.Recursions)
				}
				if right != nil {
					r.SeedFrom(right.Recursions)
				}
				if err := r.Forward(pool.Shared().Stop); err != nil {
					return nil, fmt.Errorf("block %s: %w", blockName(sb), err)
				}
				return &BlockData[E]{Recursions: r}, nil
			})
			if err != nil {
				return err
			}
			bmu.Lock()
			blocks[sb] = v.(*BlockData[E])
			releases = append(releases, release)
			bmu.Unlock()
			return nil
		})
		// Dependency rule requires every smaller subblock this one depends
		// on to already be complete; Subblocks() yields increasing-span
		// order, so draining the pool once per span level enforces that
		// without building an explicit DAG scheduler.
		if lastOfSpan(subblocks, sb) {
			if err := pool.Wait(); err != nil {
				return nil, fmt.Errorf("scheduler: computing blocks: %w", err)
			}
		}
	}

	top, ok := blocks[TopLevel(k)]
	if !ok {
		return nil, fmt.Errorf("scheduler: top-level block never computed")
	}
	return &Result[E]{Complex: c, Top: top}, nil
}

// computeStrands decodes every strand of the complex on the pool.
func computeStrands(pool *Pool, c seqtypes.Complex, alpha *alphabet.Alphabet) ([]*StrandData, error) {
	k := c.NumStrands()
	if k == 0 {
		return nil, fmt.Errorf("scheduler: complex has no strands")
	}
	strands := make([]*StrandData, k)
	var mu sync.Mutex
	for s := 0; s < k; s++ {
		s := s
		pool.Go(fmt.Sprintf("ComputeStrand(%d)", s), func(ctx context.Context) error {
			sd, err := ComputeStrand(c, alpha, s)
			if err != nil {
				return err
			}
			mu.Lock()
			strands[s] = sd
			mu.Unlock()
			return nil
		})
	}
	if err := pool.Wait(); err != nil {
		return nil, fmt.Errorf("scheduler: computing strands: %w", err)
	}
	return strands, nil
}

// blockBytes estimates a block's resident size for the cache budget: the
// triangular storage of every recursion matrix at 8 bytes per element,
// plus the three fast-interior rotation buffers.
func blockBytes(n int) int64 {
	perTriangle := int64(n) * int64(n+1) / 2 * 8
	fastInterior := 3 * int64(n) * int64(n+1) * 8
	return 17*perTriangle + fastInterior
}

func blockName(sb Subblock) string { return fmt.Sprintf("[%d,%d]", sb.I, sb.J) }

// lastOfSpan reports whether sb is the last subblock of its span length
// in the Subblocks() ordering, i.e. the next entry (if any) begins a
// strictly larger span.
func lastOfSpan(all []Subblock, sb Subblock) bool {
	span := sb.Span()
	for idx, s := range all {
		if s == sb && idx+1 < len(all) {
			return all[idx+1].Span() > span
		}
	}
	return true
}

// LogPrecisionFallback emits the Warn-level diagnostic for a block whose
// stage bit upgrades from primary to backup precision.
func LogPrecisionFallback(logger *zap.Logger, sb Subblock, diagonal int) {
	logger.Warn("precision fallback",
		zap.String("block", blockName(sb)),
		zap.Int("failed_diagonal", diagonal),
	)
}
