package identify

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"ionbatch/internal/chem"
	"ionbatch/internal/instance"
)

// IsotopeMode controls how the engine uses MS1 isotope patterns.
type IsotopeMode string

const (
	IsotopeOmit   IsotopeMode = "omit"
	IsotopeFilter IsotopeMode = "filter"
	IsotopeScore  IsotopeMode = "score"
	IsotopeBoth   IsotopeMode = "both"
)

// ParseIsotopeMode validates a configured isotope mode. Blank means both.
func ParseIsotopeMode(raw string) (IsotopeMode, error) {
	switch mode := IsotopeMode(strings.ToLower(strings.TrimSpace(raw))); mode {
	case "":
		return IsotopeBoth, nil
	case IsotopeOmit, IsotopeFilter, IsotopeScore, IsotopeBoth:
		return mode, nil
	default:
		return "", fmt.Errorf("unsupported isotope mode %q", raw)
	}
}

// Settings are the run-wide options every job handle is built from.
type Settings struct {
	TreeTimeout     time.Duration
	InstanceTimeout time.Duration
	Candidates      int
	// CandidatesSet records whether the candidate count was requested
	// explicitly rather than taken from defaults.
	CandidatesSet bool
	IsotopeMode   IsotopeMode
	Formulas      []chem.Formula
	PPMMax        float64
}

// Handle is one identification job request. It owns its instance until the
// outcome is reconciled.
type Handle struct {
	Instance        *instance.Instance
	TreeTimeout     time.Duration
	InstanceTimeout time.Duration
	Whitelist       []chem.Formula
	IsotopeMode     IsotopeMode
	Candidates      int
	PPMMax          float64
	CorrelationID   string
}

// NewHandle builds the job handle for inst.
func NewHandle(inst *instance.Instance, settings Settings) Handle {
	return Handle{
		Instance:        inst,
		TreeTimeout:     settings.TreeTimeout,
		InstanceTimeout: settings.InstanceTimeout,
		Whitelist:       Whitelist(inst, settings),
		IsotopeMode:     settings.IsotopeMode,
		Candidates:      settings.Candidates,
		PPMMax:          settings.PPMMax,
	}
}

// Whitelist returns the formula restriction for inst. An explicit formula
// list always wins. A single known formula restricts the search unless a
// broader candidate count was requested. Nil means unrestricted.
func Whitelist(inst *instance.Instance, settings Settings) []chem.Formula {
	if len(settings.Formulas) > 0 {
		return append([]chem.Formula(nil), settings.Formulas...)
	}
	if inst == nil || !inst.Experiment.HasFormula() {
		return nil
	}
	if settings.CandidatesSet && settings.Candidates > 1 {
		return nil
	}
	return []chem.Formula{inst.Experiment.Formula}
}

// Candidate is one ranked molecular formula explanation.
type Candidate struct {
	Formula            chem.Formula
	IonType            chem.IonType
	Score              float64
	TreeScore          float64
	IsotopeScore       float64
	TreeSize           int
	ExplainedIntensity float64
	IsotopePeaks       int
}

// SortCandidates orders candidates by descending score. Ties keep engine order.
func SortCandidates(candidates []Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
}

// Job is a submitted identification. Await blocks until the engine finishes.
type Job interface {
	Await(ctx context.Context) ([]Candidate, error)
}

// Engine turns job handles into jobs.
type Engine interface {
	Identify(ctx context.Context, handle Handle) (Job, error)
}

// JobFunc adapts a function to the Job interface.
type JobFunc func(ctx context.Context) ([]Candidate, error)

// Await calls f.
func (f JobFunc) Await(ctx context.Context) ([]Candidate, error) {
	return f(ctx)
}
