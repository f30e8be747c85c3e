package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"ionbatch/internal/outcome"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type candidateView struct {
	Formula            string  `json:"formula"`
	IonType            string  `json:"ion_type,omitempty"`
	Score              float64 `json:"score"`
	TreeScore          float64 `json:"tree_score"`
	IsotopeScore       float64 `json:"isotope_score"`
	TreeSize           int     `json:"tree_size"`
	ExplainedIntensity float64 `json:"explained_intensity"`
}

type outcomeView struct {
	Index      int             `json:"index"`
	Name       string          `json:"name,omitempty"`
	SourceFile string          `json:"source_file,omitempty"`
	Status     string          `json:"status"`
	IonType    string          `json:"ion_type,omitempty"`
	IonMass    float64         `json:"ion_mass,omitempty"`
	Message    string          `json:"message,omitempty"`
	Candidates []candidateView `json:"candidates,omitempty"`
}

func newOutcomeView(rec outcome.Record, allCandidates bool) outcomeView {
	view := outcomeView{
		Index:      rec.Index,
		Name:       rec.Name,
		SourceFile: rec.SourceFile,
		Status:     string(rec.Kind),
		IonType:    rec.IonType,
		IonMass:    rec.IonMass,
		Message:    rec.Message,
	}
	for i, c := range rec.Candidates {
		if !allCandidates && i > 0 {
			break
		}
		view.Candidates = append(view.Candidates, candidateView{
			Formula:            c.Formula.String(),
			IonType:            c.IonType.String(),
			Score:              c.Score,
			TreeScore:          c.TreeScore,
			IsotopeScore:       c.IsotopeScore,
			TreeSize:           c.TreeSize,
			ExplainedIntensity: c.ExplainedIntensity,
		})
	}
	return view
}
