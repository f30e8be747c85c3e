package outcome_test

import (
	"testing"

	"ionbatch/internal/identify"
	"ionbatch/internal/outcome"
)

func TestParseKind(t *testing.T) {
	for _, k := range outcome.Kinds() {
		got, err := outcome.ParseKind(string(k))
		if err != nil || got != k {
			t.Fatalf("ParseKind(%q) = %q, %v", k, got, err)
		}
	}
	if _, err := outcome.ParseKind("pending"); err == nil {
		t.Fatal("expected unknown kind to be rejected")
	}
}

func TestBest(t *testing.T) {
	rec := outcome.Record{Kind: outcome.KindSuccess, Candidates: []identify.Candidate{{Score: 9}, {Score: 2}}}
	best, ok := rec.Best()
	if !ok || best.Score != 9 {
		t.Fatalf("expected top candidate, got %+v %v", best, ok)
	}
	if _, ok := (outcome.Record{Kind: outcome.KindTimeout}).Best(); ok {
		t.Fatal("expected no best candidate for timeout")
	}
}
