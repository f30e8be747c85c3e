package ingest

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"ionbatch/internal/chem"
	"ionbatch/internal/instance"
	"ionbatch/internal/services"
	"ionbatch/internal/spectrum"
)

// precursorTolerance is the largest difference between MS2 precursor m/z
// values that still counts as the same precursor.
const precursorTolerance = 1e-3

// DirectInput is a single compound given as explicit peak list files.
type DirectInput struct {
	MS1Files   []string
	MS2Files   []string
	IonTypes   []chem.IonType
	ParentMass float64
	Formula    chem.Formula
	Name       string
}

// Enabled reports whether any direct spectra were given.
func (d DirectInput) Enabled() bool {
	return len(d.MS1Files) > 0 || len(d.MS2Files) > 0
}

func directError(operation, message string) error {
	return services.Wrap(services.ErrValidation, "ingest", operation, message, nil)
}

// BuildDirect merges the direct input files into one experiment. Every
// failure is fatal for the run.
func BuildDirect(in DirectInput) (instance.Experiment, error) {
	if len(in.MS2Files) == 0 {
		return instance.Experiment{}, directError("direct input", "at least one MS2 file is required; MS1 only input is not supported")
	}
	if len(in.IonTypes) != 1 || in.IonTypes[0].IsIonizationUnknown() {
		return instance.Experiment{}, directError("direct input", "exactly one explicit ion type is required")
	}
	ion := in.IonTypes[0]

	exp := instance.Experiment{
		Name:    strings.TrimSpace(in.Name),
		IonType: ion,
		Formula: in.Formula,
	}
	if exp.Name == "" {
		base := filepath.Base(in.MS2Files[0])
		exp.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	for _, path := range in.MS1Files {
		s, err := ReadPeakList(path)
		if err != nil {
			return instance.Experiment{}, err
		}
		s.Level = 1
		s.IonType = ion
		exp.MS1 = append(exp.MS1, s)
	}
	for _, path := range in.MS2Files {
		s, err := ReadPeakList(path)
		if err != nil {
			return instance.Experiment{}, err
		}
		if s.Level == 0 {
			s.Level = 2
		}
		if s.Level != 2 {
			return instance.Experiment{}, directError("direct input", fmt.Sprintf("%s is not an MS2 spectrum", path))
		}
		s.IonType = ion
		exp.MS2 = append(exp.MS2, s)
	}
	if len(exp.MS1) > 0 {
		exp.MergedMS1 = spectrum.Merge(exp.MS1, mergePPM)
		exp.MergedMS1.IonType = ion
	}

	shared, conflict := sharedPrecursor(exp.MS2)

	switch {
	case in.ParentMass > 0:
		exp.IonMass = in.ParentMass
	case exp.HasFormula():
		exp.IonMass = ion.NeutralToMZ(exp.Formula.Mass())
	case conflict != nil:
		return instance.Experiment{}, conflict
	case shared > 0:
		exp.IonMass = shared
	default:
		mass, err := massFromMS1(exp.MergedMS1, ion.Charge())
		if err != nil {
			return instance.Experiment{}, err
		}
		exp.IonMass = mass
	}

	fallback := shared
	if fallback <= 0 && exp.HasFormula() {
		fallback = ion.NeutralToMZ(exp.Formula.Mass())
	}
	if fallback <= 0 {
		fallback = in.ParentMass
	}
	if fallback <= 0 {
		fallback = exp.IonMass
	}
	for i := range exp.MS2 {
		if exp.MS2[i].PrecursorMZ <= 0 {
			exp.MS2[i].PrecursorMZ = fallback
		}
	}
	return exp, nil
}

// sharedPrecursor returns the precursor m/z common to all MS2 spectra that
// carry one, or 0 if none does. When two of them disagree it returns 0 and the
// contradiction, which only matters if no stronger mass source is given.
func sharedPrecursor(ms2 []spectrum.Spectrum) (float64, error) {
	var shared float64
	for _, s := range ms2 {
		if s.PrecursorMZ <= 0 {
			continue
		}
		if shared == 0 {
			shared = s.PrecursorMZ
			continue
		}
		if math.Abs(shared-s.PrecursorMZ) > precursorTolerance {
			return 0, directError("direct input", fmt.Sprintf("MS2 spectra have different precursor masses %.4f and %.4f", shared, s.PrecursorMZ))
		}
	}
	return shared, nil
}

func massFromMS1(merged spectrum.Spectrum, charge int) (float64, error) {
	if merged.IsEmpty() {
		return 0, directError("direct input", "precursor mass unknown: give a parent mass, a formula, or MS2 spectra with precursor m/z")
	}
	pattern := spectrum.ExtractIsotopePattern(merged, charge)
	if len(pattern) != len(merged.Peaks) {
		return 0, directError("direct input", fmt.Sprintf("cannot derive precursor mass: MS1 has %d peaks but only %d form an isotope pattern", len(merged.Peaks), len(pattern)))
	}
	return pattern[0].MZ, nil
}
