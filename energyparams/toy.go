package energyparams

import _ "embed"

//go:embed testdata/toy_rna.json
var toyRNAJSON []byte

// ToyRNA returns a small, hand-built Watson-Crick parameter set sized for
// tests and examples. It is not a fit to any published thermodynamic
// measurement; production use requires a real Turner/Andronescu-style
// parameter file loaded via LoadJSON or LoadYAML.
func ToyRNA() (*ParameterSet, error) {
	return LoadJSON(toyRNAJSON)
}
