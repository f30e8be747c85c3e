// Package outcome defines the terminal record produced for every instance
// that entered the scheduler.
package outcome

import (
	"fmt"

	"ionbatch/internal/identify"
)

// Kind tags an outcome record.
type Kind string

const (
	KindSuccess   Kind = "success"
	KindNoResults Kind = "no_results"
	KindTimeout   Kind = "timeout"
	KindError     Kind = "error"
)

// Kinds lists every outcome kind in display order.
func Kinds() []Kind {
	return []Kind{KindSuccess, KindNoResults, KindTimeout, KindError}
}

// ParseKind validates an outcome kind string.
func ParseKind(raw string) (Kind, error) {
	for _, k := range Kinds() {
		if string(k) == raw {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown outcome kind %q", raw)
}

// Record is the persisted result for one instance. Candidates are only set on
// success and are ranked by descending score. Message carries the error text
// or a diagnostic hint.
type Record struct {
	Index         int
	Name          string
	SourceFile    string
	IonType       string
	IonMass       float64
	Kind          Kind
	Candidates    []identify.Candidate
	Message       string
	CorrelationID string
}

// Best returns the top ranked candidate when the record is a success.
func (r Record) Best() (identify.Candidate, bool) {
	if r.Kind != KindSuccess || len(r.Candidates) == 0 {
		return identify.Candidate{}, false
	}
	return r.Candidates[0], true
}
