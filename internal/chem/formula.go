package chem

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// ElectronMass is the rest mass of an electron in Dalton.
const ElectronMass = 0.00054857990946

// ProtonMass is the mass of a proton in Dalton.
const ProtonMass = 1.00727646677

var monoisotopicMass = map[string]float64{
	"H":  1.00782503207,
	"B":  11.0093054,
	"C":  12.0,
	"N":  14.0030740048,
	"O":  15.99491461956,
	"F":  18.99840322,
	"Na": 22.9897692809,
	"Si": 27.9769265325,
	"P":  30.97376163,
	"S":  31.97207100,
	"Cl": 34.96885268,
	"K":  38.96370668,
	"Se": 79.9165213,
	"Br": 78.9183371,
	"I":  126.904473,
}

// KnownElement reports whether symbol is part of the supported periodic table subset.
func KnownElement(symbol string) bool {
	_, ok := monoisotopicMass[symbol]
	return ok
}

// ElementMass returns the monoisotopic mass of the most abundant isotope.
func ElementMass(symbol string) (float64, bool) {
	mass, ok := monoisotopicMass[symbol]
	return mass, ok
}

// Formula is an immutable molecular formula. The zero value is the empty formula.
type Formula struct {
	counts map[string]int
}

// ParseFormula parses a formula such as "C6H12O6". Element counts may repeat
// ("CH3CH2OH") and are summed.
func ParseFormula(raw string) (Formula, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return Formula{}, fmt.Errorf("formula is empty")
	}
	counts := make(map[string]int)
	runes := []rune(value)
	for i := 0; i < len(runes); {
		if !unicode.IsUpper(runes[i]) {
			return Formula{}, fmt.Errorf("formula %q: unexpected character %q", value, runes[i])
		}
		j := i + 1
		for j < len(runes) && unicode.IsLower(runes[j]) {
			j++
		}
		symbol := string(runes[i:j])
		if !KnownElement(symbol) {
			return Formula{}, fmt.Errorf("formula %q: unknown element %q", value, symbol)
		}
		k := j
		for k < len(runes) && unicode.IsDigit(runes[k]) {
			k++
		}
		count := 1
		if k > j {
			n, err := strconv.Atoi(string(runes[j:k]))
			if err != nil {
				return Formula{}, fmt.Errorf("formula %q: %w", value, err)
			}
			count = n
		}
		counts[symbol] += count
		i = k
	}
	for symbol, n := range counts {
		if n == 0 {
			delete(counts, symbol)
		}
	}
	return Formula{counts: counts}, nil
}

// MustParseFormula is ParseFormula for constants; it panics on malformed input.
func MustParseFormula(raw string) Formula {
	f, err := ParseFormula(raw)
	if err != nil {
		panic(err)
	}
	return f
}

// IsEmpty reports whether the formula has no atoms.
func (f Formula) IsEmpty() bool {
	return len(f.counts) == 0
}

// Count returns the number of atoms of symbol.
func (f Formula) Count(symbol string) int {
	return f.counts[symbol]
}

// Elements returns the element symbols in Hill order.
func (f Formula) Elements() []string {
	symbols := make([]string, 0, len(f.counts))
	for symbol := range f.counts {
		symbols = append(symbols, symbol)
	}
	_, hasCarbon := f.counts["C"]
	sort.Slice(symbols, func(i, j int) bool {
		return hillRank(symbols[i], hasCarbon) < hillRank(symbols[j], hasCarbon)
	})
	return symbols
}

func hillRank(symbol string, hasCarbon bool) string {
	if hasCarbon {
		switch symbol {
		case "C":
			return "\x00"
		case "H":
			return "\x01"
		}
	}
	return symbol
}

// Mass returns the monoisotopic mass of the neutral formula.
func (f Formula) Mass() float64 {
	var total float64
	for symbol, n := range f.counts {
		total += monoisotopicMass[symbol] * float64(n)
	}
	return total
}

// Add returns f plus other.
func (f Formula) Add(other Formula) Formula {
	return f.combine(other, 1)
}

// Subtract returns f minus other. Counts may become negative, which is only
// meaningful for mass arithmetic.
func (f Formula) Subtract(other Formula) Formula {
	return f.combine(other, -1)
}

func (f Formula) combine(other Formula, sign int) Formula {
	counts := make(map[string]int, len(f.counts)+len(other.counts))
	for symbol, n := range f.counts {
		counts[symbol] = n
	}
	for symbol, n := range other.counts {
		counts[symbol] += sign * n
		if counts[symbol] == 0 {
			delete(counts, symbol)
		}
	}
	return Formula{counts: counts}
}

// Equal reports whether both formulas contain the same atoms.
func (f Formula) Equal(other Formula) bool {
	if len(f.counts) != len(other.counts) {
		return false
	}
	for symbol, n := range f.counts {
		if other.counts[symbol] != n {
			return false
		}
	}
	return true
}

// String renders the formula in Hill notation.
func (f Formula) String() string {
	var b strings.Builder
	for _, symbol := range f.Elements() {
		b.WriteString(symbol)
		if n := f.counts[symbol]; n != 1 {
			b.WriteString(strconv.Itoa(n))
		}
	}
	return b.String()
}

// ParseFormulaList parses a comma or whitespace separated list of formulas,
// dropping duplicates while keeping first-seen order.
func ParseFormulaList(values []string) ([]Formula, error) {
	var out []Formula
	seen := make(map[string]struct{})
	for _, value := range values {
		for _, token := range strings.FieldsFunc(value, func(r rune) bool {
			return r == ',' || r == ';' || unicode.IsSpace(r)
		}) {
			f, err := ParseFormula(token)
			if err != nil {
				return nil, err
			}
			key := f.String()
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, f)
		}
	}
	return out, nil
}
