package engine

import (
	"fmt"
	"strings"

	"ionbatch/internal/chem"
	"ionbatch/internal/identify"
	"ionbatch/internal/spectrum"
)

type request struct {
	Index              int                `json:"index"`
	Name               string             `json:"name,omitempty"`
	SourceFile         string             `json:"source_file,omitempty"`
	IonMass            float64            `json:"ion_mass"`
	IonType            string             `json:"ion_type"`
	Formula            string             `json:"formula,omitempty"`
	CandidateIonTypes  []string           `json:"candidate_ion_types,omitempty"`
	GuessingMode       string             `json:"guessing_mode,omitempty"`
	IonPriors          map[string]float64 `json:"ion_priors,omitempty"`
	Elements           string             `json:"elements,omitempty"`
	DetectElements     bool               `json:"detect_elements,omitempty"`
	Whitelist          []string           `json:"whitelist,omitempty"`
	IsotopeMode        string             `json:"isotope_mode"`
	Candidates         int                `json:"candidates"`
	PPMMax             float64            `json:"ppm_max,omitempty"`
	TreeTimeoutSeconds float64            `json:"tree_timeout_seconds,omitempty"`
	MergedMS1          []spectrum.Peak    `json:"merged_ms1,omitempty"`
	MS1                []wireSpectrum     `json:"ms1,omitempty"`
	MS2                []wireSpectrum     `json:"ms2"`
}

type wireSpectrum struct {
	PrecursorMZ     float64         `json:"precursor_mz,omitempty"`
	CollisionEnergy string          `json:"collision_energy,omitempty"`
	Peaks           []spectrum.Peak `json:"peaks"`
}

type response struct {
	Candidates []wireCandidate `json:"candidates"`
	Error      string          `json:"error,omitempty"`
}

type wireCandidate struct {
	Formula            string  `json:"formula"`
	IonType            string  `json:"ion_type"`
	Score              float64 `json:"score"`
	TreeScore          float64 `json:"tree_score"`
	IsotopeScore       float64 `json:"isotope_score"`
	TreeSize           int     `json:"tree_size"`
	ExplainedIntensity float64 `json:"explained_intensity"`
	IsotopePeaks       int     `json:"isotope_peaks"`
}

func buildRequest(handle identify.Handle) request {
	inst := handle.Instance
	exp := inst.Experiment
	req := request{
		Index:       inst.Index,
		Name:        exp.Name,
		SourceFile:  inst.SourceFile,
		IonMass:     exp.IonMass,
		IonType:     exp.IonType.String(),
		IsotopeMode: string(handle.IsotopeMode),
		Candidates:  handle.Candidates,
		PPMMax:      handle.PPMMax,
		MergedMS1:   exp.MergedMS1.Peaks,
	}
	if exp.HasFormula() {
		req.Formula = exp.Formula.String()
	}
	if handle.TreeTimeout > 0 {
		req.TreeTimeoutSeconds = handle.TreeTimeout.Seconds()
	}
	if h := inst.Annotations.Hypotheses; h != nil {
		req.CandidateIonTypes = h.CandidateNames()
		req.GuessingMode = h.Mode.String()
		req.IonPriors = h.Priors
	}
	if c := inst.Annotations.Constraints; c != nil && !c.Elements.IsEmpty() {
		req.Elements = c.Elements.String()
	}
	if d := inst.Annotations.ElementDetection; d != nil {
		req.DetectElements = d.Enabled
	}
	for _, f := range handle.Whitelist {
		req.Whitelist = append(req.Whitelist, f.String())
	}
	for _, s := range exp.MS1 {
		req.MS1 = append(req.MS1, toWire(s))
	}
	req.MS2 = make([]wireSpectrum, 0, len(exp.MS2))
	for _, s := range exp.MS2 {
		req.MS2 = append(req.MS2, toWire(s))
	}
	return req
}

func toWire(s spectrum.Spectrum) wireSpectrum {
	peaks := s.Peaks
	if peaks == nil {
		peaks = []spectrum.Peak{}
	}
	return wireSpectrum{PrecursorMZ: s.PrecursorMZ, CollisionEnergy: s.CollisionEnergy, Peaks: peaks}
}

func decodeCandidates(resp response) ([]identify.Candidate, error) {
	out := make([]identify.Candidate, 0, len(resp.Candidates))
	for i, wc := range resp.Candidates {
		formula, err := chem.ParseFormula(wc.Formula)
		if err != nil {
			return nil, fmt.Errorf("candidate %d: %w", i+1, err)
		}
		var ion chem.IonType
		if strings.TrimSpace(wc.IonType) != "" {
			ion, err = chem.ParseIonType(wc.IonType)
			if err != nil {
				return nil, fmt.Errorf("candidate %d: %w", i+1, err)
			}
		}
		out = append(out, identify.Candidate{
			Formula:            formula,
			IonType:            ion,
			Score:              wc.Score,
			TreeScore:          wc.TreeScore,
			IsotopeScore:       wc.IsotopeScore,
			TreeSize:           wc.TreeSize,
			ExplainedIntensity: wc.ExplainedIntensity,
			IsotopePeaks:       wc.IsotopePeaks,
		})
	}
	identify.SortCandidates(out)
	return out, nil
}
