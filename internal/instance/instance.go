package instance

import (
	"fmt"

	"ionbatch/internal/chem"
	"ionbatch/internal/spectrum"
)

// Experiment is the spectral record of one compound.
type Experiment struct {
	Name      string
	IonMass   float64
	IonType   chem.IonType
	Formula   chem.Formula
	MergedMS1 spectrum.Spectrum
	MS1       []spectrum.Spectrum
	MS2       []spectrum.Spectrum
}

// HasFormula reports whether a molecular formula hint is known.
func (e *Experiment) HasFormula() bool {
	return e != nil && !e.Formula.IsEmpty()
}

// Charge returns the charge sign of the precursor, defaulting to positive.
func (e *Experiment) Charge() int {
	if e == nil || !e.IonType.IsValid() {
		return 1
	}
	return e.IonType.Charge()
}

// Instance is the unit of work flowing through the pipeline.
type Instance struct {
	Index       int
	SourceFile  string
	Experiment  Experiment
	Annotations Annotations
}

// Label returns a short identifier for logs and summaries.
func (i *Instance) Label() string {
	if i == nil {
		return ""
	}
	if i.Experiment.Name != "" {
		return fmt.Sprintf("%d_%s", i.Index, i.Experiment.Name)
	}
	return fmt.Sprintf("%d", i.Index)
}

// IonizationUnknown reports whether only the precursor charge is known.
func (i *Instance) IonizationUnknown() bool {
	return i.Experiment.IonType.IsIonizationUnknown()
}
