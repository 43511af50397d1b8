// Package energyparams loads a nucleic-acid thermodynamic parameter set
// (JSON or YAML, see ParameterSet), scales it to a temperature and salt
// condition, and exposes it to the DP engine as a length-indexed,
// capacity-reserved CachedModel of Boltzmann factors.
package energyparams

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// LoopEnergy is a raw enthalpy/entropy pair as read from a parameter file,
// in kcal/mol and cal/(mol*K) respectively.
type LoopEnergy struct {
	EnthalpyH float64 `json:"dH" yaml:"dH"`
	EntropyS  float64 `json:"dS" yaml:"dS"`
}

// DeltaG evaluates the loop's free energy at a temperature in Kelvin:
// dG = dH - T*(dS/1000).
func (e LoopEnergy) DeltaG(temperatureKelvin float64) float64 {
	return e.EnthalpyH - temperatureKelvin*(e.EntropyS/1000.0)
}

// MultiLoopParams are the linear multi-branch penalty coefficients from
// Jaeger, Turner & Zuker 1989: a fixed offset, a per-helix penalty, a
// per-unpaired-base penalty, and a zero-unpaired-bases penalty. The
// recursions read Offset, PerHelix and PerUnpaired only;
// ZeroUnpairedPenalty is loaded but not applied to any multiloop.
type MultiLoopParams struct {
	Offset              LoopEnergy `json:"offset" yaml:"offset"`
	PerHelix            LoopEnergy `json:"perHelix" yaml:"perHelix"`
	PerUnpaired         LoopEnergy `json:"perUnpaired" yaml:"perUnpaired"`
	ZeroUnpairedPenalty LoopEnergy `json:"zeroUnpairedPenalty" yaml:"zeroUnpairedPenalty"`
}

// ParameterSet is the on-disk representation of a thermodynamic parameter
// file: alphabet, material tag, can-pair/can-close table, and the energy
// tables addressed by tuples of base letters.
type ParameterSet struct {
	Alphabet string   `json:"alphabet" yaml:"alphabet"`
	Material string   `json:"material" yaml:"material"`
	Pairs    []string `json:"pairs" yaml:"pairs"` // e.g. "AU", "CG", "GU"
	Closing  []string `json:"closing" yaml:"closing"`

	Stacking           map[string]LoopEnergy `json:"stacking" yaml:"stacking"`
	CoaxialStack       map[string]LoopEnergy `json:"coaxialStack" yaml:"coaxialStack"`
	TerminalMismatch   map[string]LoopEnergy `json:"terminalMismatch" yaml:"terminalMismatch"`
	DanglingEnds       map[string]LoopEnergy `json:"danglingEnds" yaml:"danglingEnds"`
	HairpinLoop        []LoopEnergy          `json:"hairpinLoop" yaml:"hairpinLoop"`
	BulgeLoop          []LoopEnergy          `json:"bulgeLoop" yaml:"bulgeLoop"`
	InteriorLoop       []LoopEnergy          `json:"interiorLoop" yaml:"interiorLoop"`
	InteriorAsymmetry  []LoopEnergy          `json:"interiorAsymmetry" yaml:"interiorAsymmetry"`
	TriTetraLoopBonus  map[string]LoopEnergy `json:"triTetraLoopBonus" yaml:"triTetraLoopBonus"`
	MultiLoop          MultiLoopParams       `json:"multiLoop" yaml:"multiLoop"`
	TerminalAUPenalty  LoopEnergy            `json:"terminalAUPenalty" yaml:"terminalAUPenalty"`
	// JoinPenalty is the strand-association penalty charged once per strand
	// joined into a complex; the salt correction's molarity term lands here.
	JoinPenalty        LoopEnergy            `json:"joinPenalty" yaml:"joinPenalty"`
	LogExtrapolationAt float64               `json:"logExtrapolationConstant" yaml:"logExtrapolationConstant"`

	// MeasurementTemperatureCelsius is the temperature the raw dH/dS values
	// above were measured at (conventionally 37C).
	MeasurementTemperatureCelsius float64 `json:"measurementTemperatureCelsius" yaml:"measurementTemperatureCelsius"`
}

// LoadJSON parses a JSON-encoded ParameterSet.
func LoadJSON(data []byte) (*ParameterSet, error) {
	var p ParameterSet
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("energyparams: parsing JSON parameter set: %w", err)
	}
	return p.withDefaults(), nil
}

// LoadYAML parses a YAML-encoded ParameterSet.
func LoadYAML(data []byte) (*ParameterSet, error) {
	var p ParameterSet
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("energyparams: parsing YAML parameter set: %w", err)
	}
	return p.withDefaults(), nil
}

func (p ParameterSet) withDefaults() *ParameterSet {
	if p.MeasurementTemperatureCelsius == 0 {
		p.MeasurementTemperatureCelsius = 37.0
	}
	if p.LogExtrapolationAt == 0 {
		p.LogExtrapolationAt = 107.856
	}
	return &p
}

// SaltCorrect applies the load-time salt/temperature correction:
// dG <- (T/Tref)*dG + (1-T/Tref)*dH on every table, plus a
// molarity-dependent additive term on the strand-join penalty.
func (p *ParameterSet) SaltCorrect(temperatureKelvin, refKelvin, saltMolar float64) {
	ratio := temperatureKelvin / refKelvin
	correct := func(e LoopEnergy) LoopEnergy {
		dG := e.DeltaG(refKelvin)
		corrected := ratio*dG + (1-ratio)*e.EnthalpyH
		// re-derive an equivalent entropy so DeltaG(T) reproduces `corrected`
		// at the reference temperature the model will actually be scaled at.
		return LoopEnergy{EnthalpyH: e.EnthalpyH, EntropyS: (e.EnthalpyH - corrected) / refKelvin * 1000.0}
	}
	for _, table := range []map[string]LoopEnergy{p.Stacking, p.CoaxialStack, p.TerminalMismatch, p.DanglingEnds, p.TriTetraLoopBonus} {
		for k, v := range table {
			table[k] = correct(v)
		}
	}
	for _, table := range [][]LoopEnergy{p.HairpinLoop, p.BulgeLoop, p.InteriorLoop, p.InteriorAsymmetry} {
		for k, v := range table {
			table[k] = correct(v)
		}
	}
	ml := &p.MultiLoop
	ml.Offset, ml.PerHelix, ml.PerUnpaired, ml.ZeroUnpairedPenalty = correct(ml.Offset), correct(ml.PerHelix), correct(ml.PerUnpaired), correct(ml.ZeroUnpairedPenalty)
	p.TerminalAUPenalty = correct(p.TerminalAUPenalty)
	join := correct(p.JoinPenalty)
	join.EnthalpyH += 0.087 * saltMolar
	p.JoinPenalty = join
}
