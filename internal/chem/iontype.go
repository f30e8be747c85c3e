package chem

import (
	"fmt"
	"math"
	"strings"
)

// Ionization is the charge-carrying part of a precursor ion type, such as a
// proton or a sodium cation.
type Ionization struct {
	name     string
	atoms    Formula
	sign     int
	charge   int
	massDiff float64
}

func newIonization(name, atoms string, sign, charge int) Ionization {
	f := MustParseFormula(atoms)
	return Ionization{
		name:     name,
		atoms:    f,
		sign:     sign,
		charge:   charge,
		massDiff: float64(sign)*f.Mass() - float64(charge)*ElectronMass,
	}
}

var (
	Protonation   = newIonization("H+", "H", 1, 1)
	Sodiation     = newIonization("Na+", "Na", 1, 1)
	Potassiation  = newIonization("K+", "K", 1, 1)
	Deprotonation = newIonization("H-", "H", -1, -1)
	Chlorination  = newIonization("Cl-", "Cl", 1, -1)
)

var knownIonizations = []Ionization{Protonation, Sodiation, Potassiation, Deprotonation, Chlorination}

// Name returns the ionization label, e.g. "Na+".
func (i Ionization) Name() string { return i.name }

// Charge returns the signed charge.
func (i Ionization) Charge() int { return i.charge }

// MassDifference is the mass added to a neutral molecule by this ionization,
// including the electrons gained or lost.
func (i Ionization) MassDifference() float64 { return i.massDiff }

func (i Ionization) term() string {
	if i.sign < 0 {
		return "-" + i.atoms.String()
	}
	return "+" + i.atoms.String()
}

// IonType describes a precursor ion: an ionization plus optional adduct and
// in-source loss. The zero value is invalid; use the constructors or ParseIonType.
type IonType struct {
	ionization Ionization
	adduct     Formula
	loss       Formula
	unknown    bool
	charge     int
}

// NewIonType builds a known ion type from an ionization with no adduct or loss.
func NewIonType(ionization Ionization) IonType {
	return IonType{ionization: ionization, charge: ionization.charge}
}

// UnknownIonType returns the placeholder ion type for the given charge sign.
// A zero charge is treated as positive.
func UnknownIonType(charge int) IonType {
	if charge < 0 {
		return IonType{unknown: true, charge: -1}
	}
	return IonType{unknown: true, charge: 1}
}

var (
	IonMH  = NewIonType(Protonation)
	IonMNa = NewIonType(Sodiation)
	IonMK  = NewIonType(Potassiation)
	IonMmH = NewIonType(Deprotonation)
	IonMCl = NewIonType(Chlorination)
)

// PlausibleIonTypes returns the chemically plausible single ionizations for a
// charge sign. A zero charge is treated as positive.
func PlausibleIonTypes(charge int) []IonType {
	if charge < 0 {
		return []IonType{IonMmH, IonMCl}
	}
	return []IonType{IonMH, IonMNa, IonMK}
}

// DefaultIonType returns [M+H]+ for positive (or zero) charge and [M-H]- for negative charge.
func DefaultIonType(charge int) IonType {
	if charge < 0 {
		return IonMmH
	}
	return IonMH
}

// IsValid reports whether the value was constructed rather than zero.
func (t IonType) IsValid() bool { return t.charge != 0 }

// IsIonizationUnknown reports whether only the charge of the ion is known.
func (t IonType) IsIonizationUnknown() bool { return !t.IsValid() || t.unknown }

// Charge returns the signed charge. Invalid ion types report zero.
func (t IonType) Charge() int { return t.charge }

// Ionization returns the charge carrier. The result is meaningless for unknown ion types.
func (t IonType) Ionization() Ionization { return t.ionization }

// Adduct returns atoms attached in addition to the ionization.
func (t IonType) Adduct() Formula { return t.adduct }

// Loss returns atoms lost in source.
func (t IonType) Loss() Formula { return t.loss }

// NeutralToMZ converts a neutral monoisotopic mass into the precursor m/z.
// Unknown ion types only account for the electron mass of the charge.
func (t IonType) NeutralToMZ(neutral float64) float64 {
	z := math.Abs(float64(t.charge))
	if z == 0 {
		return neutral
	}
	if t.IsIonizationUnknown() {
		return (neutral - float64(t.charge)*ElectronMass) / z
	}
	return (neutral + t.adduct.Mass() - t.loss.Mass() + t.ionization.massDiff) / z
}

// MZToNeutral is the inverse of NeutralToMZ.
func (t IonType) MZToNeutral(mz float64) float64 {
	z := math.Abs(float64(t.charge))
	if z == 0 {
		return mz
	}
	if t.IsIonizationUnknown() {
		return mz*z + float64(t.charge)*ElectronMass
	}
	return mz*z - t.ionization.massDiff - t.adduct.Mass() + t.loss.Mass()
}

// Equal compares ion types by their canonical name.
func (t IonType) Equal(other IonType) bool {
	return t.String() == other.String()
}

// String renders the bracket notation, e.g. "[M+H]+", "[M+NH3+H]+", "[M+?]-".
func (t IonType) String() string {
	if !t.IsValid() {
		return ""
	}
	suffix := "+"
	if t.charge < 0 {
		suffix = "-"
	}
	if t.unknown {
		return "[M+?]" + suffix
	}
	var b strings.Builder
	b.WriteString("[M")
	if !t.adduct.IsEmpty() {
		b.WriteString("+")
		b.WriteString(conventionalName(t.adduct))
	}
	b.WriteString(t.ionization.term())
	if !t.loss.IsEmpty() {
		b.WriteString("-")
		b.WriteString(conventionalName(t.loss))
	}
	b.WriteString("]")
	b.WriteString(suffix)
	return b.String()
}

// Hill notation is unreadable for a few common adducts.
var conventionalNames = map[string]string{
	"H3N":    "NH3",
	"H4N":    "NH4",
	"CH2O2":  "HCOOH",
	"C2H4O2": "CH3COOH",
}

func conventionalName(f Formula) string {
	key := f.String()
	if name, ok := conventionalNames[key]; ok {
		return name
	}
	return key
}

var ionAliases = map[string]string{
	"[M+NH4]+": "[M+NH3+H]+",
	"M+NH4":    "[M+NH3+H]+",
	"[M]+":     "[M+?]+",
	"[M]-":     "[M+?]-",
	"+":        "[M+?]+",
	"-":        "[M+?]-",
	"positive": "[M+?]+",
	"negative": "[M+?]-",
}

// ParseIonType parses bracket notation such as "[M+H]+", "[M+Na]+", "[M-H]-",
// "[M+H-H2O]+", "[M+NH4]+" or the charge-only placeholders "[M+?]+" and "[M+?]-".
// Only singly charged ions are supported.
func ParseIonType(raw string) (IonType, error) {
	value := strings.Join(strings.Fields(raw), "")
	if value == "" {
		return IonType{}, fmt.Errorf("ion type is empty")
	}
	if alias, ok := ionAliases[value]; ok {
		value = alias
	} else if alias, ok := ionAliases[strings.ToLower(value)]; ok {
		value = alias
	}

	body := value
	charge := 0
	switch {
	case strings.HasSuffix(body, "]+"), strings.HasSuffix(body, "]1+"):
		charge = 1
	case strings.HasSuffix(body, "]-"), strings.HasSuffix(body, "]1-"):
		charge = -1
	default:
		if strings.HasPrefix(body, "[") {
			return IonType{}, fmt.Errorf("ion type %q: missing or unsupported charge", raw)
		}
		body = "[" + body + "]"
	}
	if start, end := strings.Index(body, "["), strings.LastIndex(body, "]"); start == 0 && end > 0 {
		body = body[1:end]
	} else {
		return IonType{}, fmt.Errorf("ion type %q: malformed brackets", raw)
	}
	if !strings.HasPrefix(body, "M") {
		return IonType{}, fmt.Errorf("ion type %q: must start with M", raw)
	}
	terms, err := splitTerms(body[1:])
	if err != nil {
		return IonType{}, fmt.Errorf("ion type %q: %w", raw, err)
	}
	if charge == 0 {
		charge = inferCharge(terms)
	}
	if charge == 0 {
		return IonType{}, fmt.Errorf("ion type %q: cannot infer charge", raw)
	}

	t := IonType{charge: charge}
	ionizationSet := false
	for _, term := range terms {
		if term.name == "?" {
			return UnknownIonType(charge), nil
		}
		if !ionizationSet {
			if ion, ok := matchIonization(term, charge); ok {
				t.ionization = ion
				ionizationSet = true
				continue
			}
		}
		f, err := ParseFormula(term.name)
		if err != nil {
			return IonType{}, fmt.Errorf("ion type %q: %w", raw, err)
		}
		if term.sign > 0 {
			t.adduct = t.adduct.Add(f)
		} else {
			t.loss = t.loss.Add(f)
		}
	}
	if !ionizationSet {
		if len(terms) == 0 && charge != 0 {
			return UnknownIonType(charge), nil
		}
		return IonType{}, fmt.Errorf("ion type %q: no supported ionization", raw)
	}
	return t, nil
}

type ionTerm struct {
	sign int
	name string
}

func splitTerms(value string) ([]ionTerm, error) {
	var terms []ionTerm
	for value != "" {
		sign := 0
		switch value[0] {
		case '+':
			sign = 1
		case '-':
			sign = -1
		default:
			return nil, fmt.Errorf("expected + or - before %q", value)
		}
		value = value[1:]
		end := strings.IndexAny(value, "+-")
		if end < 0 {
			end = len(value)
		}
		name := value[:end]
		if name == "" {
			return nil, fmt.Errorf("empty term")
		}
		terms = append(terms, ionTerm{sign: sign, name: name})
		value = value[end:]
	}
	return terms, nil
}

func inferCharge(terms []ionTerm) int {
	for _, term := range terms {
		for _, ion := range knownIonizations {
			if ion.atoms.String() == term.name && ion.sign == term.sign {
				return ion.charge
			}
		}
	}
	return 0
}

func matchIonization(term ionTerm, charge int) (Ionization, bool) {
	for _, ion := range knownIonizations {
		if ion.charge != charge || ion.sign != term.sign {
			continue
		}
		if ion.atoms.String() == term.name {
			return ion, true
		}
	}
	return Ionization{}, false
}
