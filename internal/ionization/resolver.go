// Package ionization decides which precursor ion types the engine may
// consider for an instance and how MS1 evidence may change that set.
package ionization

import (
	"ionbatch/internal/chem"
	"ionbatch/internal/instance"
)

const (
	// uniformPrior is the weight of every ionization when the default adduct is preferred.
	uniformPrior = 0.02
	// preferredPrior is the weight of protonation or deprotonation when preferred.
	preferredPrior = 1.0
	unitPrior      = 1.0
)

// Options are the run-wide resolution settings.
type Options struct {
	AutoCharge bool
	IonTypes   []chem.IonType
	TrustMS1   bool
}

// Branch names the rule that produced a hypothesis set.
type Branch string

const (
	BranchAutoChargeUnknown Branch = "auto_charge_unknown"
	BranchAutoChargeKnown   Branch = "auto_charge_known"
	BranchExplicitUnknown   Branch = "explicit_list_unknown"
	BranchExplicitKnown     Branch = "explicit_list_known"
	BranchDefaultUnknown    Branch = "default_unknown"
	BranchDefaultKnown      Branch = "default_known"
)

// Resolver attaches ion type hypotheses to instances.
type Resolver struct {
	opts Options
}

// NewResolver returns a resolver for opts.
func NewResolver(opts Options) *Resolver {
	opts.IonTypes = append([]chem.IonType(nil), opts.IonTypes...)
	return &Resolver{opts: opts}
}

// Resolve sets the hypotheses annotation of inst and returns the branch that
// produced it. An instance with an unknown ionization keeps it unknown but
// always ends up with a valid charge.
func (r *Resolver) Resolve(inst *instance.Instance) Branch {
	exp := &inst.Experiment
	charge := exp.Charge()
	if !exp.IonType.IsValid() {
		exp.IonType = chem.UnknownIonType(charge)
	}
	if r.singleExplicit(charge) && exp.IonType.IsIonizationUnknown() {
		exp.IonType = r.opts.IonTypes[0]
	}
	known := !exp.IonType.IsIonizationUnknown()

	var (
		h      *instance.Hypotheses
		branch Branch
	)
	switch {
	case r.opts.AutoCharge && !known:
		h = &instance.Hypotheses{Candidates: chem.PlausibleIonTypes(charge), Mode: r.guessingMode()}
		branch = BranchAutoChargeUnknown
	case r.opts.AutoCharge:
		h, branch = fixed(exp.IonType), BranchAutoChargeKnown
	case len(r.opts.IonTypes) > 1 && !known:
		h = &instance.Hypotheses{Candidates: append([]chem.IonType(nil), r.opts.IonTypes...), Mode: r.guessingMode()}
		branch = BranchExplicitUnknown
	case len(r.opts.IonTypes) > 1:
		h, branch = fixed(exp.IonType), BranchExplicitKnown
	case !known:
		preferred := chem.DefaultIonType(charge)
		h = &instance.Hypotheses{Candidates: []chem.IonType{preferred}, Mode: instance.GuessAddIons}
		h.Priors = preferencePriors(h.Candidates, preferred)
		branch = BranchDefaultUnknown
	default:
		h, branch = fixed(exp.IonType), BranchDefaultKnown
	}
	if h.Priors == nil {
		h.Priors = unitPriors(h.Candidates)
	}
	inst.Annotations.Hypotheses = h
	return branch
}

// singleExplicit reports whether exactly one known ion type of the
// instance's charge sign was requested.
func (r *Resolver) singleExplicit(charge int) bool {
	if len(r.opts.IonTypes) != 1 {
		return false
	}
	ion := r.opts.IonTypes[0]
	return !ion.IsIonizationUnknown() && (ion.Charge() < 0) == (charge < 0)
}

func (r *Resolver) guessingMode() instance.GuessingMode {
	if r.opts.TrustMS1 {
		return instance.GuessSelectBest
	}
	return instance.GuessAddIons
}

func fixed(ion chem.IonType) *instance.Hypotheses {
	return &instance.Hypotheses{Candidates: []chem.IonType{ion}, Mode: instance.GuessDisabled}
}

func unitPriors(candidates []chem.IonType) map[string]float64 {
	priors := make(map[string]float64, len(candidates))
	for _, c := range candidates {
		priors[priorKey(c)] = unitPrior
	}
	return priors
}

// preferencePriors weights every distinct candidate ionization uniformly low
// and the preferred adduct high.
func preferencePriors(candidates []chem.IonType, preferred chem.IonType) map[string]float64 {
	priors := make(map[string]float64, len(candidates)+1)
	for _, c := range candidates {
		priors[priorKey(c)] = uniformPrior
	}
	priors[priorKey(preferred)] = preferredPrior
	return priors
}

func priorKey(ion chem.IonType) string {
	if ion.IsIonizationUnknown() {
		return ion.String()
	}
	return ion.Ionization().Name()
}
