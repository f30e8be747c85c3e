package project_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"ionbatch/internal/chem"
	"ionbatch/internal/identify"
	"ionbatch/internal/outcome"
	"ionbatch/internal/project"
	"ionbatch/internal/services"
)

func openStore(t *testing.T, dir string) *project.Store {
	t.Helper()
	store, err := project.Open(dir)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func successRecord(index int) outcome.Record {
	return outcome.Record{
		Index:      index,
		Name:       "caffeine",
		SourceFile: "/data/a.ms",
		IonType:    "[M+H]+",
		IonMass:    195.0877,
		Kind:       outcome.KindSuccess,
		Candidates: []identify.Candidate{
			{Formula: chem.MustParseFormula("C8H10N4O2"), IonType: chem.IonMH, Score: 12.5, TreeScore: 10, IsotopeScore: 2.5, TreeSize: 7, ExplainedIntensity: 0.9, IsotopePeaks: 3},
			{Formula: chem.MustParseFormula("C7H6N4O3"), Score: 4},
		},
	}
}

func TestStoreWriteAndGet(t *testing.T) {
	ctx := context.Background()
	store := openStore(t, t.TempDir())

	if err := store.Write(ctx, successRecord(3)); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	got, err := store.Get(ctx, 3)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got == nil {
		t.Fatal("expected stored record")
	}
	if got.Kind != outcome.KindSuccess || got.Name != "caffeine" || len(got.Candidates) != 2 {
		t.Fatalf("unexpected record %+v", got)
	}
	best := got.Candidates[0]
	if best.Formula.String() != "C8H10N4O2" || best.IonType.String() != "[M+H]+" || best.TreeSize != 7 || best.IsotopePeaks != 3 {
		t.Fatalf("candidate fields lost: %+v", best)
	}
	if missing, err := store.Get(ctx, 99); err != nil || missing != nil {
		t.Fatalf("expected nil for missing record, got %v %v", missing, err)
	}
}

func TestStoreWriteReplacesSameIndex(t *testing.T) {
	ctx := context.Background()
	store := openStore(t, t.TempDir())
	if err := store.Write(ctx, successRecord(1)); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	if err := store.Write(ctx, outcome.Record{Index: 1, Kind: outcome.KindTimeout, Message: "identification timed out"}); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	got, err := store.Get(ctx, 1)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got.Kind != outcome.KindTimeout || len(got.Candidates) != 0 {
		t.Fatalf("expected replaced record without candidates, got %+v", got)
	}
}

func TestStoreListCountsAndMaxIndex(t *testing.T) {
	ctx := context.Background()
	store := openStore(t, t.TempDir())

	if idx, ok, err := store.MaxIndex(ctx); err != nil || ok || idx != 0 {
		t.Fatalf("expected empty project, got %d ok=%v %v", idx, ok, err)
	}
	records := []outcome.Record{
		successRecord(8),
		{Index: 2, Kind: outcome.KindNoResults},
		{Index: 5, Kind: outcome.KindError, Message: "boom"},
	}
	for _, rec := range records {
		if err := store.Write(ctx, rec); err != nil {
			t.Fatalf("Write returned error: %v", err)
		}
	}
	if idx, ok, err := store.MaxIndex(ctx); err != nil || !ok || idx != 8 {
		t.Fatalf("expected max index 8, got %d ok=%v %v", idx, ok, err)
	}

	all, err := store.List(ctx, project.Filter{})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	var order []int
	for _, rec := range all {
		order = append(order, rec.Index)
	}
	if diff := cmp.Diff([]int{2, 5, 8}, order); diff != "" {
		t.Fatalf("unexpected order (-want +got):\n%s", diff)
	}
	if len(all[2].Candidates) != 1 {
		t.Fatalf("expected only the best candidate in listings, got %d", len(all[2].Candidates))
	}

	failed, err := store.List(ctx, project.Filter{Kinds: []outcome.Kind{outcome.KindError, outcome.KindTimeout}})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(failed) != 1 || failed[0].Message != "boom" {
		t.Fatalf("unexpected filtered list %+v", failed)
	}

	counts, err := store.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts returned error: %v", err)
	}
	want := map[outcome.Kind]int{outcome.KindSuccess: 1, outcome.KindNoResults: 1, outcome.KindError: 1}
	if diff := cmp.Diff(want, counts); diff != "" {
		t.Fatalf("unexpected counts (-want +got):\n%s", diff)
	}
}

func TestStoreRunsAndRunID(t *testing.T) {
	ctx := context.Background()
	store := openStore(t, t.TempDir())

	if err := store.BeginRun(ctx, "run-1", []string{"/data/a", "/data/b"}, 0); err != nil {
		t.Fatalf("BeginRun returned error: %v", err)
	}
	runCtx := services.WithRunID(ctx, "run-1")
	if err := store.Write(runCtx, successRecord(1)); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	if err := store.FinishRun(ctx, "run-1", 1, errors.New("interrupted")); err != nil {
		t.Fatalf("FinishRun returned error: %v", err)
	}

	runs, err := store.Runs(ctx)
	if err != nil {
		t.Fatalf("Runs returned error: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected one run, got %d", len(runs))
	}
	run := runs[0]
	if run.Status != project.RunFailed || run.Instances != 1 || run.Error != "interrupted" || run.FinishedAt == nil {
		t.Fatalf("unexpected run %+v", run)
	}
	if diff := cmp.Diff([]string{"/data/a", "/data/b"}, run.Inputs); diff != "" {
		t.Fatalf("unexpected inputs (-want +got):\n%s", diff)
	}

	byRun, err := store.List(ctx, project.Filter{RunID: "run-1"})
	if err != nil || len(byRun) != 1 {
		t.Fatalf("expected record tagged with run id, got %v %v", byRun, err)
	}
}

func TestStoreLockIsExclusive(t *testing.T) {
	dir := t.TempDir()
	first := openStore(t, dir)

	if _, err := project.Open(dir); !errors.Is(err, project.ErrLocked) {
		t.Fatalf("expected lock error, got %v", err)
	}
	reader, err := project.OpenReadOnly(dir)
	if err != nil {
		t.Fatalf("OpenReadOnly returned error: %v", err)
	}
	_ = reader.Close()

	if err := first.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	second, err := project.Open(dir)
	if err != nil {
		t.Fatalf("expected lock to be released, got %v", err)
	}
	_ = second.Close()
}

func TestOpenReadOnlyMissingProject(t *testing.T) {
	if _, err := project.OpenReadOnly(t.TempDir()); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestStoreMaxIndexZeroIsNotEmpty(t *testing.T) {
	ctx := context.Background()
	store := openStore(t, t.TempDir())

	if err := store.Write(ctx, outcome.Record{Index: 0, Kind: outcome.KindNoResults}); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	idx, ok, err := store.MaxIndex(ctx)
	if err != nil {
		t.Fatalf("MaxIndex returned error: %v", err)
	}
	if !ok || idx != 0 {
		t.Fatalf("expected stored index 0 to count as non-empty, got %d ok=%v", idx, ok)
	}
}
