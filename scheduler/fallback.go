package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/foldspace/thermo/action"
	"github.com/foldspace/thermo/alphabet"
	"github.com/foldspace/thermo/block"
	"github.com/foldspace/thermo/energyparams"
	"github.com/foldspace/thermo/rig"
	"github.com/foldspace/thermo/seqtypes"
)

// AutoBlock is a subblock computed under the partition-function rig with
// automatic precision fallback: it starts at the primary (plain float64)
// stage and, if the forward pass overflows, is converted in place to the
// backup mantissa/exponent stage and resumed from the diagonal that
// failed. The Guard's stage bit tells readers which representation is
// live; a reader holding the wrong expectation retries.
type AutoBlock struct {
	Guard Guard
	F     *block.Recursions[float64]
	Big   *block.Recursions[rig.Big[float64]]
}

// Primary reports whether the block is still at the primary stage.
func (b *AutoBlock) Primary() bool { return b.Guard.Stage() == 0 }

// AutoResult is RunAuto's output for one complex.
type AutoResult struct {
	Complex seqtypes.Complex
	Top     *AutoBlock
	// FellBack reports whether any subblock needed the backup stage.
	FellBack bool
}

// RunAuto executes the partition-function task graph for one complex with
// per-block precision fallback. Each subblock is first computed at the
// primary stage; a block whose forward pass reports overflow is upgraded:
// the stored matrices are converted element-for-element to the backup
// representation, the stage bit flips under the exclusive guard, and the
// pass restarts at the failing diagonal. Only an overflow that persists
// at the backup stage surfaces as an error.
func RunAuto(
	ctx context.Context,
	pool *Pool,
	cache *Cache,
	complexKey string,
	c seqtypes.Complex,
	alpha *alphabet.Alphabet,
	models *energyparams.ModelData,
	act action.Action[float64],
) (*AutoResult, error) {
	strands, err := computeStrands(pool, c, alpha)
	if err != nil {
		return nil, err
	}
	models.Reserve(c.Length())

	algF := rig.NewScalarPF[float64](models.Primary().Model().TemperatureKelvin)
	algB := rig.NewBigPF[float64](models.Primary().Model().TemperatureKelvin)

	k := c.NumStrands()
	subblocks := Subblocks(k)
	blocks := make(map[Subblock]*AutoBlock, len(subblocks))
	fellBack := false
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
			key := Key{ComplexKey: complexKey, Rig: "pf", I: sb.I, J: sb.J}
			v, release, err := cache.GetOrCreate(key, blockBytes(len(window)), func() (any, error) {
				ab := &AutoBlock{}
				ab.F = block.NewRecursions[float64](len(window), algF, models.Primary(), window, nicks, act)
				// seed from dependency blocks still at the primary stage; a
				// fallen-back dependency holds values a float64 cannot carry
				bmu.Lock()
				left, right := blocks[Subblock{I: sb.I, J: sb.J - 1}], blocks[Subblock{I: sb.I + 1, J: sb.J}]
				bmu.Unlock()
				if left != nil && left.Primary() {
					ab.F.SeedFrom(left.F)
				}
				if right != nil && right.Primary() {
					ab.F.SeedFrom(right.F)
				}
				err := ab.F.Forward(pool.Shared().Stop)
				var overflow *block.ErrOverflow
				if err == nil {
					return ab, nil
				}
				if !errors.As(err, &overflow) {
					return nil, fmt.Errorf("block %s: %w", blockName(sb), err)
				}

				LogPrecisionFallback(pool.logger, sb, overflow.Diagonal)
				ab.Big = block.ToBig(ab.F, algB, models.Backup())
				ab.Big.Stat.Reset(overflow.Diagonal)
				ab.Guard.UpgradeStage(1)
				ab.F = nil
				if err := ab.Big.ForwardFrom(overflow.Diagonal, pool.Shared().Stop); err != nil {
					return nil, fmt.Errorf("block %s: backup stage: %w", blockName(sb), err)
				}
				return ab, nil
			})
			if err != nil {
				return err
			}
			ab := v.(*AutoBlock)
			bmu.Lock()
			blocks[sb] = ab
			if !ab.Primary() {
				fellBack = true
			}
			releases = append(releases, release)
			bmu.Unlock()
			return nil
		})
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
	return &AutoResult{Complex: c, Top: top, FellBack: fellBack}, nil
}
