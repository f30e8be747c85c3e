package reconcile

import (
	"errors"

	"ionbatch/internal/identify"
	"ionbatch/internal/outcome"
	"ionbatch/internal/scheduler"
	"ionbatch/internal/services"
)

const (
	noResultsHint = "no candidate explained the spectra; consider relaxing the mass accuracy (ppm_max)"
	noJobMessage  = "identification job was never produced"
	timeoutText   = "identification timed out"
)

// Classify turns a completion into exactly one outcome record.
func Classify(c scheduler.Completion) outcome.Record {
	rec := outcome.Record{Index: -1, CorrelationID: c.Handle.CorrelationID}
	if inst := c.Handle.Instance; inst != nil {
		rec.Index = inst.Index
		rec.Name = inst.Experiment.Name
		rec.SourceFile = inst.SourceFile
		rec.IonType = inst.Experiment.IonType.String()
		rec.IonMass = inst.Experiment.IonMass
	}

	switch {
	case c.Err == nil && len(c.Candidates) > 0:
		rec.Kind = outcome.KindSuccess
		rec.Candidates = append([]identify.Candidate(nil), c.Candidates...)
		identify.SortCandidates(rec.Candidates)
	case c.Err == nil:
		rec.Kind = outcome.KindNoResults
		rec.Message = noResultsHint
	case errors.Is(c.Err, scheduler.ErrNoJob):
		rec.Kind = outcome.KindError
		rec.Message = noJobMessage
	case services.Details(c.Err).Kind == services.KindTimeout:
		rec.Kind = outcome.KindTimeout
		rec.Message = timeoutText
	default:
		rec.Kind = outcome.KindError
		rec.Message = services.Details(c.Err).Message
	}
	return rec
}
