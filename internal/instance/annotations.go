package instance

import (
	"strings"

	"ionbatch/internal/chem"
)

// GuessingMode controls how MS1 evidence may change the ion type hypotheses.
type GuessingMode int

const (
	// GuessDisabled keeps the candidate ion types as given.
	GuessDisabled GuessingMode = iota
	// GuessSelectBest lets MS1 evidence pick a single best ionization.
	GuessSelectBest
	// GuessAddIons lets MS1 evidence add further ionizations to the candidates.
	GuessAddIons
)

func (m GuessingMode) String() string {
	switch m {
	case GuessSelectBest:
		return "select_best"
	case GuessAddIons:
		return "add_ions"
	default:
		return "disabled"
	}
}

// Hypotheses is the set of candidate precursor ion types for one instance.
// Priors are keyed by ionization name and only rank candidates.
type Hypotheses struct {
	Candidates []chem.IonType
	Mode       GuessingMode
	Priors     map[string]float64
}

// CandidateNames returns the candidate ion types in bracket notation.
func (h *Hypotheses) CandidateNames() []string {
	if h == nil {
		return nil
	}
	names := make([]string, 0, len(h.Candidates))
	for _, c := range h.Candidates {
		names = append(names, c.String())
	}
	return names
}

// String renders the candidates for logging.
func (h *Hypotheses) String() string {
	return strings.Join(h.CandidateNames(), ",")
}

// FormulaConstraints restricts the elements a candidate formula may contain.
type FormulaConstraints struct {
	Elements chem.ElementConstraints
}

// ElementDetection asks the engine to detect additional elements from MS1 isotope patterns.
type ElementDetection struct {
	Enabled bool
}

// QualityFlags records preprocessing decisions made during ingestion.
type QualityFlags struct {
	ReducedToMostIntenseMS2 bool
	SelectedByMS1           bool
}

// Annotations is the closed set of typed slots attached to an instance.
// A nil pointer means the slot was never set.
type Annotations struct {
	Hypotheses       *Hypotheses
	Constraints      *FormulaConstraints
	ElementDetection *ElementDetection
	Quality          QualityFlags
}
