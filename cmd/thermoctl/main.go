package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"
)

// main is the entry point for the thermoctl command line utility. The
// &cli.App definition lives in application so tests can drive it without
// spawning a process.
func main() {
	if err := application().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// application templates the app: global model flags, one subcommand per
// job kind, and a tube solver.
func application() *cli.App {
	return &cli.App{
		Name:  "thermoctl",
		Usage: "Equilibrium thermodynamics of interacting nucleic acid strands.",

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "params",
				Usage: "Path to a JSON or YAML thermodynamic parameter set. Defaults to the built-in toy RNA set.",
			},
			&cli.Float64Flag{
				Name:  "temperature",
				Value: 37.0,
				Usage: "Temperature in degrees Celsius.",
			},
			&cli.StringFlag{
				Name:  "ensemble",
				Value: "all-dangles",
				Usage: "Dangle/stacking ensemble: none, min-dangles, all-dangles, or coaxial-stacking.",
			},
		},

		Commands: []*cli.Command{
			{
				Name:      "pf",
				Usage:     "Log partition function of each complex, e.g. thermoctl pf GGGAAACCC ACGU+ACGU",
				ArgsUsage: "COMPLEX...",
				Action:    pfCommand,
			},
			{
				Name:      "mfe",
				Usage:     "Minimum free energy and one MFE structure per complex.",
				ArgsUsage: "COMPLEX...",
				Action:    mfeCommand,
			},
			{
				Name:      "pairs",
				Usage:     "Base-pair probability matrix per complex.",
				ArgsUsage: "COMPLEX...",
				Flags: []cli.Flag{
					&cli.Float64Flag{
						Name:  "threshold",
						Value: 0,
						Usage: "Emit the sparse form, dropping probabilities below this value.",
					},
					&cli.IntFlag{
						Name:  "row-size",
						Usage: "Keep at most this many entries per row of the sparse form.",
					},
				},
				Action: pairsCommand,
			},
			{
				Name:      "subopt",
				Usage:     "Suboptimal structures within an energy gap of the MFE.",
				ArgsUsage: "COMPLEX...",
				Flags: []cli.Flag{
					&cli.Float64Flag{
						Name:  "gap",
						Value: 1.0,
						Usage: "Energy gap in kcal/mol.",
					},
					&cli.IntFlag{
						Name:  "max",
						Usage: "Upper bound on the number of structures.",
					},
				},
				Action: suboptCommand,
			},
			{
				Name:      "sample",
				Usage:     "Boltzmann-distributed structure samples.",
				ArgsUsage: "COMPLEX...",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "n",
						Value: 10,
						Usage: "Number of samples per complex.",
					},
					&cli.Int64Flag{
						Name:  "seed",
						Usage: "Random seed.",
					},
				},
				Action: sampleCommand,
			},
			{
				Name:      "tube",
				Usage:     "Equilibrium concentrations, e.g. thermoctl tube -c 1e-6:GGGG -c 1e-6:CCCC GGGG CCCC GGGG+CCCC",
				ArgsUsage: "COMPLEX...",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:    "strand",
						Aliases: []string{"c"},
						Usage:   "CONC:SEQ total strand concentration (molar), repeatable.",
					},
					&cli.StringFlag{
						Name:  "method",
						Value: "cd",
						Usage: "Solver method: cd, fit, or dogleg.",
					},
				},
				Action: tubeCommand,
			},
		},
	}
}
