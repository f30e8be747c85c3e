package ingest

import (
	"fmt"
	"strconv"
	"strings"

	"ionbatch/internal/chem"
	"ionbatch/internal/instance"
	"ionbatch/internal/services"
	"ionbatch/internal/spectrum"
)

// mergePPM is the tolerance used to merge raw MS1 spectra into one.
const mergePPM = 10

// draft collects the fields of one experiment while a file is scanned.
type draft struct {
	path       string
	line       int
	index      int
	name       string
	formula    string
	ionization string
	charge     int
	parentMass float64
	mergedMS1  []spectrum.Peak
	ms1        []spectrum.Spectrum
	ms2        []spectrum.Spectrum
}

func newDraft(path string, line int) *draft {
	return &draft{path: path, line: line, index: -1}
}

func (d *draft) empty() bool {
	return d.name == "" && d.formula == "" && d.parentMass == 0 && len(d.ms1) == 0 && len(d.ms2) == 0 && len(d.mergedMS1) == 0
}

func (d *draft) reject(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	return services.Wrap(services.ErrValidation, "ingest", fmt.Sprintf("%s:%d", d.path, d.line), msg, nil)
}

// finish validates the draft and derives ion type and ion mass.
func (d *draft) finish() (Record, error) {
	exp := instance.Experiment{Name: strings.TrimSpace(d.name)}

	if raw := strings.TrimSpace(d.formula); raw != "" {
		f, err := chem.ParseFormula(raw)
		if err != nil {
			return Record{}, d.reject("formula: %v", err)
		}
		exp.Formula = f
	}

	charge := d.charge
	if raw := strings.TrimSpace(d.ionization); raw != "" {
		ion, err := chem.ParseIonType(raw)
		if err != nil {
			return Record{}, d.reject("ionization: %v", err)
		}
		if charge != 0 && sign(charge) != sign(ion.Charge()) {
			return Record{}, d.reject("ionization %s contradicts charge %d", ion, charge)
		}
		exp.IonType = ion
	} else {
		exp.IonType = chem.UnknownIonType(charge)
	}

	if len(d.ms2) == 0 {
		return Record{}, d.reject("compound %q has no MS2 spectra", exp.Name)
	}

	switch {
	case d.parentMass > 0:
		exp.IonMass = d.parentMass
	case exp.HasFormula() && !exp.IonType.IsIonizationUnknown():
		exp.IonMass = exp.IonType.NeutralToMZ(exp.Formula.Mass())
	default:
		for _, s := range d.ms2 {
			if s.PrecursorMZ > 0 {
				exp.IonMass = s.PrecursorMZ
				break
			}
		}
	}
	if exp.IonMass <= 0 {
		return Record{}, d.reject("compound %q has no parent mass", exp.Name)
	}

	for _, s := range d.ms1 {
		s.Level = 1
		s.IonType = exp.IonType
		exp.MS1 = append(exp.MS1, s)
	}
	for _, s := range d.ms2 {
		s.Level = 2
		s.IonType = exp.IonType
		if s.PrecursorMZ <= 0 {
			s.PrecursorMZ = exp.IonMass
		}
		exp.MS2 = append(exp.MS2, s)
	}
	if len(d.mergedMS1) > 0 {
		exp.MergedMS1 = spectrum.Spectrum{Level: 1, IonType: exp.IonType, Peaks: d.mergedMS1}
	} else if len(exp.MS1) > 0 {
		exp.MergedMS1 = spectrum.Merge(exp.MS1, mergePPM)
		exp.MergedMS1.IonType = exp.IonType
	}
	return Record{Index: d.index, Experiment: exp}, nil
}

func sign(v int) int {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	default:
		return 0
	}
}

// parsePeakLine reads "mz intensity" separated by whitespace, comma,
// semicolon or tab.
func parsePeakLine(line string) (spectrum.Peak, bool) {
	fields := strings.FieldsFunc(line, func(r rune) bool {
		return r == ' ' || r == '\t' || r == ',' || r == ';'
	})
	if len(fields) < 2 {
		return spectrum.Peak{}, false
	}
	mz, err := strconv.ParseFloat(fields[0], 64)
	if err != nil || mz <= 0 {
		return spectrum.Peak{}, false
	}
	intensity, err := strconv.ParseFloat(fields[1], 64)
	if err != nil || intensity < 0 {
		return spectrum.Peak{}, false
	}
	return spectrum.Peak{MZ: mz, Intensity: intensity}, true
}

// parseCharge accepts "1", "+1", "1+", "2-" and "-2".
func parseCharge(raw string) (int, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return 0, nil
	}
	negative := false
	switch {
	case strings.HasSuffix(value, "-"):
		negative = true
		value = strings.TrimSuffix(value, "-")
	case strings.HasSuffix(value, "+"):
		value = strings.TrimSuffix(value, "+")
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("invalid charge %q", raw)
	}
	if negative {
		n = -n
	}
	return n, nil
}

// parseLeadingFloat reads the first field of values such as "195.08 1200".
func parseLeadingFloat(raw string) (float64, error) {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return 0, nil
	}
	return strconv.ParseFloat(fields[0], 64)
}
