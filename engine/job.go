package engine

import (
	"github.com/foldspace/thermo/seqtypes"
)

// JobKind selects what a Job computes for its complex.
type JobKind int

const (
	// PF computes the log partition function.
	PF JobKind = iota
	// MFE computes the minimum free energy and one such structure.
	MFE
	// Pairs computes the base-pair probability matrix, optionally
	// sparsified.
	Pairs
	// Subopt enumerates every structure within an energy gap of the MFE.
	Subopt
	// Sample draws Boltzmann-distributed structures.
	Sample
	// Costs computes, per pair, the best energy over structures containing
	// that pair.
	Costs
)

func (k JobKind) String() string {
	switch k {
	case PF:
		return "pf"
	case MFE:
		return "mfe"
	case Pairs:
		return "pairs"
	case Subopt:
		return "subopt"
	case Sample:
		return "sample"
	case Costs:
		return "costs"
	default:
		return "unknown"
	}
}

// Job bundles one complex with the computation requested for it.
type Job struct {
	Complex seqtypes.Complex
	Kind    JobKind

	// Sparsity, when set on a Pairs job, switches the output to sparse
	// form.
	Sparsity *Sparsity

	// Gap and MaxNumber bound a Subopt enumeration (kcal/mol, count).
	Gap       float64
	MaxNumber int

	// Number and Seed drive a Sample job.
	Number int
	Seed   int64
}

// SuboptEntry is one enumerated suboptimal structure: the structure, its
// ensemble free energy, and its energy re-scored by loop decomposition
// (including the ensemble's dangle/stacking terms).
type SuboptEntry struct {
	Structure   seqtypes.Structure
	Energy      float64
	StackEnergy float64
}

// Result carries everything computed for one complex; fields are set
// according to the job kind, and Err carries a per-complex failure
// without aborting the rest of the batch.
type Result struct {
	LogQ   float64
	HasPF  bool
	MFE    float64
	HasMFE bool
	// Structure is the MFE structure for MFE jobs.
	Structure seqtypes.Structure
	// FellBack reports that the backup precision stage was needed.
	FellBack bool

	Pairs   *PairMatrix
	Samples []seqtypes.PairList
	Subopt  []SuboptEntry
	Costs   [][]float64

	Err error
}

// Sink receives one Result per job as it completes.
type Sink func(c seqtypes.Complex, r Result)
