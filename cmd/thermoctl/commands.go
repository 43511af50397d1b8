package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/foldspace/thermo/dotbracket"
	"github.com/foldspace/thermo/energyparams"
	"github.com/foldspace/thermo/engine"
	"github.com/foldspace/thermo/equilibrium"
	"github.com/foldspace/thermo/seqtypes"
	"github.com/urfave/cli/v2"
)

// buildEngine assembles an engine from the app-level flags.
func buildEngine(c *cli.Context) (*engine.Engine, error) {
	params, err := loadParams(c.String("params"))
	if err != nil {
		return nil, err
	}
	ensemble, err := parseEnsemble(c.String("ensemble"))
	if err != nil {
		return nil, err
	}
	return engine.New(engine.Config{
		TemperatureKelvin: c.Float64("temperature") + 273.15,
		Ensemble:          ensemble,
		Solver:            equilibrium.Config{Method: parseMethod(c.String("method"))},
	}, params)
}

func loadParams(path string) (*energyparams.ParameterSet, error) {
	if path == "" {
		return energyparams.ToyRNA()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading parameter set: %w", err)
	}
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		return energyparams.LoadYAML(data)
	}
	return energyparams.LoadJSON(data)
}

func parseEnsemble(name string) (energyparams.Ensemble, error) {
	switch name {
	case "none":
		return energyparams.NoStacking, nil
	case "min-dangles":
		return energyparams.MinDangles, nil
	case "all-dangles":
		return energyparams.AllDangles, nil
	case "coaxial-stacking":
		return energyparams.CoaxialStacking, nil
	default:
		return 0, fmt.Errorf("unknown ensemble %q", name)
	}
}

func parseMethod(name string) equilibrium.Method {
	switch name {
	case "fit":
		return equilibrium.LSENewton
	case "dogleg":
		return equilibrium.Dogleg
	default:
		return equilibrium.CoordinateDescent
	}
}

// runBatch parses every positional argument as a complex, runs one job
// kind over the batch, and prints through emit.
func runBatch(c *cli.Context, kind engine.JobKind, configure func(*engine.Job), emit func(string, engine.Result)) error {
	if c.NArg() == 0 {
		return fmt.Errorf("no complexes given")
	}
	e, err := buildEngine(c)
	if err != nil {
		return err
	}
	jobs := make([]engine.Job, 0, c.NArg())
	for _, arg := range c.Args().Slice() {
		cx, err := e.ParseComplex(arg)
		if err != nil {
			return fmt.Errorf("%q: %w", arg, err)
		}
		job := engine.Job{Complex: cx, Kind: kind}
		if configure != nil {
			configure(&job)
		}
		jobs = append(jobs, job)
	}
	names := make(map[string]string, len(jobs))
	for i, arg := range c.Args().Slice() {
		names[jobs[i].Complex.Key()] = arg
	}
	for key, res := range e.Run(c.Context, jobs) {
		if res.Err != nil {
			fmt.Fprintf(c.App.ErrWriter, "%s: %v\n", names[key], res.Err)
			continue
		}
		emit(names[key], res)
	}
	return nil
}

func pfCommand(c *cli.Context) error {
	return runBatch(c, engine.PF, nil, func(name string, res engine.Result) {
		fmt.Fprintf(c.App.Writer, "%s\tlogq=%.6f\n", name, res.LogQ)
	})
}

func mfeCommand(c *cli.Context) error {
	return runBatch(c, engine.MFE, nil, func(name string, res engine.Result) {
		rendered, err := dotbracket.Render(res.Structure)
		if err != nil {
			rendered = "?"
		}
		fmt.Fprintf(c.App.Writer, "%s\t%.2f kcal/mol\t%s\n", name, res.MFE, rendered)
	})
}

func pairsCommand(c *cli.Context) error {
	var sparsity *engine.Sparsity
	if c.IsSet("threshold") || c.IsSet("row-size") {
		sparsity = &engine.Sparsity{Threshold: c.Float64("threshold"), RowSize: c.Int("row-size"), Clamp: true}
	}
	return runBatch(c, engine.Pairs, func(j *engine.Job) { j.Sparsity = sparsity }, func(name string, res engine.Result) {
		fmt.Fprintf(c.App.Writer, "%s\tlogq=%.6f\n", name, res.LogQ)
		if res.Pairs.Sparse != nil {
			for _, e := range res.Pairs.Sparse {
				fmt.Fprintf(c.App.Writer, "%d\t%d\t%.6f\n", e.Row, e.Col, e.Value)
			}
			return
		}
		for _, row := range res.Pairs.Dense {
			cells := make([]string, len(row))
			for j, v := range row {
				cells[j] = strconv.FormatFloat(v, 'f', 4, 64)
			}
			fmt.Fprintln(c.App.Writer, strings.Join(cells, "\t"))
		}
	})
}

func suboptCommand(c *cli.Context) error {
	gap := c.Float64("gap")
	maxNumber := c.Int("max")
	return runBatch(c, engine.Subopt, func(j *engine.Job) { j.Gap = gap; j.MaxNumber = maxNumber }, func(name string, res engine.Result) {
		for _, entry := range res.Subopt {
			rendered, err := dotbracket.Render(entry.Structure)
			if err != nil {
				rendered = "?"
			}
			fmt.Fprintf(c.App.Writer, "%s\t%.2f\t%.2f\t%s\n", name, entry.Energy, entry.StackEnergy, rendered)
		}
	})
}

func sampleCommand(c *cli.Context) error {
	n := c.Int("n")
	seed := c.Int64("seed")
	return runBatch(c, engine.Sample, func(j *engine.Job) { j.Number = n; j.Seed = seed }, func(name string, res engine.Result) {
		for _, pairs := range res.Samples {
			rendered, err := dotbracket.Render(seqtypes.Structure{Pairs: pairs})
			if err != nil {
				rendered = "?"
			}
			fmt.Fprintf(c.App.Writer, "%s\t%s\n", name, rendered)
		}
	})
}

func tubeCommand(c *cli.Context) error {
	e, err := buildEngine(c)
	if err != nil {
		return err
	}
	var strands []*seqtypes.Sequence
	var totals []float64
	for _, spec := range c.StringSlice("strand") {
		conc, seq, ok := strings.Cut(spec, ":")
		if !ok {
			return fmt.Errorf("strand %q: want CONC:SEQ", spec)
		}
		x0, err := strconv.ParseFloat(conc, 64)
		if err != nil {
			return fmt.Errorf("strand %q: %w", spec, err)
		}
		cx, err := e.ParseComplex(seq)
		if err != nil || cx.NumStrands() != 1 {
			return fmt.Errorf("strand %q must be a single sequence", spec)
		}
		strands = append(strands, cx.Strands[0])
		totals = append(totals, x0)
	}
	var complexes []seqtypes.Complex
	for _, arg := range c.Args().Slice() {
		cx, err := e.ParseComplex(arg)
		if err != nil {
			return fmt.Errorf("%q: %w", arg, err)
		}
		complexes = append(complexes, cx)
	}
	res, err := e.SolveTube(c.Context, engine.Tube{Strands: strands, Totals: totals, Complexes: complexes})
	if err != nil {
		return err
	}
	for i, arg := range c.Args().Slice() {
		fmt.Fprintf(c.App.Writer, "%s\tlogq=%.4f\tx=%.6e\n", arg, res.LogQ[i], res.Concentrations[i])
	}
	if !res.Converged {
		fmt.Fprintln(c.App.ErrWriter, "warning: solver did not converge")
	}
	return nil
}
