// Package engine is the top-level driver of the thermodynamic core: it
// accepts a batch of (complex, kind) jobs, runs the block scheduler under
// the appropriate rig with automatic precision fallback, walks the
// backtrack and outside passes the job kind requires, and delivers one
// Result per complex through a map or a streaming sink. Failures are
// isolated per complex; the rest of the batch completes.
package engine

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"runtime"
	"sync"

	"github.com/foldspace/thermo/action"
	"github.com/foldspace/thermo/alphabet"
	"github.com/foldspace/thermo/backtrack"
	"github.com/foldspace/thermo/block"
	"github.com/foldspace/thermo/energyparams"
	"github.com/foldspace/thermo/equilibrium"
	"github.com/foldspace/thermo/rig"
	"github.com/foldspace/thermo/scheduler"
	"github.com/foldspace/thermo/seqtypes"
	"go.uber.org/zap"
)

// Config is the engine's explicit configuration; no package-level state
// exists, so two engines with different configs coexist freely.
type Config struct {
	Workers           int
	MemoryBudgetBytes int64
	TemperatureKelvin float64
	Ensemble          energyparams.Ensemble
	Logger            *zap.Logger
	Solver            equilibrium.Config
}

func (c Config) defaults() Config {
	if c.Workers == 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.MemoryBudgetBytes == 0 {
		c.MemoryBudgetBytes = 2 << 30
	}
	if c.TemperatureKelvin == 0 {
		c.TemperatureKelvin = 310.15
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

// Engine binds a parameter set, a temperature, and an ensemble into a
// reusable job runner with a shared block cache.
type Engine struct {
	cfg      Config
	alpha    *alphabet.Alphabet
	model    *energyparams.Model
	models   *energyparams.ModelData
	mfeModel *energyparams.CachedModel[float64]
	cache    *scheduler.Cache
}

// New builds an Engine over a loaded parameter set.
func New(cfg Config, params *energyparams.ParameterSet) (*Engine, error) {
	cfg = cfg.defaults()
	alpha, err := buildAlphabet(params)
	if err != nil {
		return nil, wrapErr(ParameterLoad, err)
	}
	model := energyparams.NewModel(params, cfg.TemperatureKelvin, cfg.Ensemble)
	return &Engine{
		cfg:      cfg,
		alpha:    alpha,
		model:    model,
		models:   energyparams.NewModelData(model),
		mfeModel: energyparams.NewCachedModel[float64](model, rig.MFE{}),
		cache:    scheduler.NewCache(cfg.MemoryBudgetBytes),
	}, nil
}

// Model exposes the engine's temperature-scaled model, used by callers
// re-scoring structures.
func (e *Engine) Model() *energyparams.Model { return e.model }

// buildAlphabet derives the runtime alphabet from the parameter set's
// letter list, with complements read off the pair table and the IUPAC
// any-base wildcard registered.
func buildAlphabet(params *energyparams.ParameterSet) (*alphabet.Alphabet, error) {
	letters := []rune(params.Alphabet)
	complements := make(map[rune]rune)
	seen := make(map[rune]bool)
	for _, pr := range params.Pairs {
		if len(pr) != 2 {
			continue
		}
		a, b := rune(pr[0]), rune(pr[1])
		if !seen[a] && !seen[b] {
			complements[a] = b
			seen[a], seen[b] = true, true
		}
	}
	alpha, err := alphabet.New(letters, complements)
	if err != nil {
		return nil, err
	}
	if err := alpha.AddWildcard('N', letters...); err != nil {
		return nil, err
	}
	return alpha, nil
}

// ParseComplex parses a complex string: strands of alphabet letters
// separated by '+', ',', or newlines.
func (e *Engine) ParseComplex(s string) (seqtypes.Complex, error) {
	var strands []*seqtypes.Sequence
	start := 0
	flush := func(end int) error {
		if end <= start {
			return nil
		}
		bases, err := e.alpha.ParseSequence(s[start:end])
		if err != nil {
			return err
		}
		strands = append(strands, seqtypes.NewSequence("", bases))
		return nil
	}
	for i, r := range s {
		if r == '+' || r == ',' || r == '\n' {
			if err := flush(i); err != nil {
				return seqtypes.Complex{}, wrapErr(InvalidInput, err)
			}
			start = i + 1
		}
	}
	if err := flush(len(s)); err != nil {
		return seqtypes.Complex{}, wrapErr(InvalidInput, err)
	}
	if len(strands) == 0 {
		return seqtypes.Complex{}, errorf(InvalidInput, "empty complex string")
	}
	return seqtypes.NewComplex(strands...), nil
}

// Run executes a batch and collects results into a map keyed by each
// complex's canonical key.
func (e *Engine) Run(ctx context.Context, jobs []Job) map[string]Result {
	out := make(map[string]Result, len(jobs))
	var mu sync.Mutex
	e.RunSink(ctx, jobs, func(c seqtypes.Complex, r Result) {
		mu.Lock()
		out[c.Key()] = r
		mu.Unlock()
	})
	return out
}

// RunSink executes a batch, streaming one Result per job. A failed job
// yields a Result with Err set; the remaining jobs still run.
func (e *Engine) RunSink(ctx context.Context, jobs []Job, sink Sink) {
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			sink(job.Complex, Result{Err: wrapErr(Cancelled, err)})
			continue
		}
		sink(job.Complex, e.runJob(ctx, job))
	}
}

func (e *Engine) runJob(ctx context.Context, job Job) Result {
	canon, _, sym := job.Complex.Canonical()
	if canon.NumStrands() == 0 {
		return Result{Err: errorf(InvalidInput, "complex has no strands")}
	}

	switch job.Kind {
	case PF:
		res, err := e.runPF(ctx, canon)
		if err != nil {
			return Result{Err: err}
		}
		return Result{LogQ: e.logQ(res, sym), HasPF: true, FellBack: res.FellBack}

	case Pairs:
		res, err := e.runPF(ctx, canon)
		if err != nil {
			return Result{Err: err}
		}
		var dense [][]float64
		if res.Top.Primary() {
			dense = block.PairProbabilities(res.Top.F, res.Top.F.Outside())
		} else {
			dense = block.PairProbabilities(res.Top.Big, res.Top.Big.Outside())
		}
		pm := &PairMatrix{N: canon.Length(), Dense: dense}
		if job.Sparsity != nil {
			pm.Sparse = Sparsify(dense, *job.Sparsity)
		}
		return Result{LogQ: e.logQ(res, sym), HasPF: true, FellBack: res.FellBack, Pairs: pm}

	case Sample:
		res, err := e.runPF(ctx, canon)
		if err != nil {
			return Result{Err: err}
		}
		rnd := rand.New(rand.NewSource(job.Seed))
		var samples []seqtypes.PairList
		if res.Top.Primary() {
			samples, err = backtrack.Sample(res.Top.F, job.Number, rnd)
		} else {
			samples, err = backtrack.Sample(res.Top.Big, job.Number, rnd)
		}
		if err != nil {
			return Result{Err: wrapErr(Bug, err)}
		}
		return Result{LogQ: e.logQ(res, sym), HasPF: true, FellBack: res.FellBack, Samples: samples}

	case MFE:
		rec, err := e.runMFE(ctx, canon)
		if err != nil {
			return Result{Err: err}
		}
		pairs, energy, err := backtrack.MFEStructure(rec)
		if err != nil {
			return Result{Err: wrapErr(Bug, err)}
		}
		return Result{
			MFE:       energy + e.joinEnergy(canon),
			HasMFE:    true,
			Structure: seqtypes.Structure{Pairs: pairs, Nicks: rec.Nicks},
		}

	case Subopt:
		rec, err := e.runMFE(ctx, canon)
		if err != nil {
			return Result{Err: err}
		}
		list, err := backtrack.Subopt(rec, job.Gap, job.MaxNumber)
		if err != nil {
			return Result{Err: wrapErr(Bug, err)}
		}
		join := e.joinEnergy(canon)
		entries := make([]SuboptEntry, len(list))
		for i, s := range list {
			stack, err := StructureEnergy(e.model, rec.Seq, rec.Nicks, s.Pairs)
			if err != nil {
				return Result{Err: err}
			}
			entries[i] = SuboptEntry{
				Structure:   seqtypes.Structure{Pairs: s.Pairs, Nicks: rec.Nicks},
				Energy:      s.Energy + join,
				StackEnergy: stack + join,
			}
		}
		return Result{Subopt: entries}

	case Costs:
		rec, err := e.runMFE(ctx, canon)
		if err != nil {
			return Result{Err: err}
		}
		return Result{Costs: block.PairCosts(rec, rec.Outside())}

	default:
		return Result{Err: errorf(InvalidInput, "unknown job kind %v", job.Kind)}
	}
}

func (e *Engine) runPF(ctx context.Context, canon seqtypes.Complex) (*scheduler.AutoResult, error) {
	pool := scheduler.NewPool(ctx, e.cfg.Workers, e.cfg.Logger)
	res, err := scheduler.RunAuto(ctx, pool, e.cache, canon.Key(), canon, e.alpha, e.models, action.None[float64]())
	if err != nil {
		return nil, e.classify(err)
	}
	return res, nil
}

func (e *Engine) runMFE(ctx context.Context, canon seqtypes.Complex) (*block.Recursions[float64], error) {
	pool := scheduler.NewPool(ctx, e.cfg.Workers, e.cfg.Logger)
	res, err := scheduler.Run[float64](ctx, pool, e.cache, canon.Key(), "mfe", canon, e.alpha, e.mfeModel, rig.MFE{}, action.None[float64]())
	if err != nil {
		return nil, e.classify(err)
	}
	return res.Top.Recursions, nil
}

// logQ converts the top block's corner value into the reported natural
// log partition function: strand-association penalties once per join, and
// the rotational symmetry correction for indistinguishable strands.
func (e *Engine) logQ(res *scheduler.AutoResult, symmetry int) float64 {
	n := res.Complex.Length()
	var raw float64
	if res.Top.Primary() {
		alg := rig.NewScalarPF[float64](e.model.TemperatureKelvin)
		raw = alg.Log(res.Top.F.Q.Get(0, n-1))
	} else {
		alg := rig.NewBigPF[float64](e.model.TemperatureKelvin)
		raw = alg.Log(res.Top.Big.Q.Get(0, n-1))
	}
	rt := rig.GasConstant * e.model.TemperatureKelvin
	raw -= e.joinEnergy(res.Complex) / rt
	raw -= math.Log(float64(symmetry))
	return raw
}

// joinEnergy is the strand-association penalty for the whole complex.
func (e *Engine) joinEnergy(c seqtypes.Complex) float64 {
	return float64(c.NumStrands()-1) * e.model.JoinPenalty()
}

// classify maps lower-layer failures onto the engine's error kinds.
func (e *Engine) classify(err error) error {
	var overflow *block.ErrOverflow
	var alphaErr *alphabet.Error
	switch {
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		return wrapErr(Cancelled, err)
	case errors.As(err, &overflow):
		return wrapErr(Overflow, err)
	case errors.As(err, &alphaErr):
		return wrapErr(InvalidInput, err)
	default:
		return wrapErr(Bug, err)
	}
}
