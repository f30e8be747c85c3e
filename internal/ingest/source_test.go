package ingest_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"ionbatch/internal/chem"
	"ionbatch/internal/ingest"
	"ionbatch/internal/instance"
	"ionbatch/internal/services"
	"ionbatch/internal/spectrum"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func msCompound(name string, index int, mass float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, ">compound %s\n", name)
	if index >= 0 {
		fmt.Fprintf(&b, ">index %d\n", index)
	}
	fmt.Fprintf(&b, ">parentmass %.4f\n>ionization [M+H]+\n\n>ms2\n100.0 10\n150.0 20\n\n", mass)
	return b.String()
}

func drain(t *testing.T, src *ingest.Source) []*instance.Instance {
	t.Helper()
	var out []*instance.Instance
	for {
		inst, err := src.Next(context.Background())
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next returned error: %v", err)
		}
		out = append(out, inst)
	}
	if err := src.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	return out
}

func indices(insts []*instance.Instance) []int {
	out := make([]int, 0, len(insts))
	for _, inst := range insts {
		out = append(out, inst.Index)
	}
	return out
}

func TestSourceIndexContinuity(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.ms", msCompound("first", 3, 195.0877)+msCompound("second", 7, 181.0707))
	writeFile(t, dir, "b.ms", msCompound("third", -1, 151.0400))

	src, err := ingest.NewSource(ingest.Options{Inputs: []string{dir}})
	if err != nil {
		t.Fatalf("NewSource returned error: %v", err)
	}
	if diff := cmp.Diff([]int{3, 7, 8}, indices(drain(t, src))); diff != "" {
		t.Fatalf("fresh run indices (-want +got):\n%s", diff)
	}

	merged, err := ingest.NewSource(ingest.Options{Inputs: []string{dir}, Offset: 5, Merge: true})
	if err != nil {
		t.Fatalf("NewSource returned error: %v", err)
	}
	if diff := cmp.Diff([]int{6, 7, 8}, indices(drain(t, merged))); diff != "" {
		t.Fatalf("merge run indices (-want +got):\n%s", diff)
	}
}

func TestSourceIsIdempotentOverSameInputs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "z.ms", msCompound("z", -1, 200))
	writeFile(t, dir, "a.ms", msCompound("a", -1, 210)+msCompound("b", 4, 220))
	writeFile(t, dir, "m.mgf", "BEGIN IONS\nFEATURE_ID=9\nPEPMASS=230.1\nCHARGE=1+\nMSLEVEL=2\n100 5\nEND IONS\n")

	run := func() ([]int, []string) {
		src, err := ingest.NewSource(ingest.Options{Inputs: []string{dir}})
		if err != nil {
			t.Fatalf("NewSource returned error: %v", err)
		}
		insts := drain(t, src)
		names := make([]string, 0, len(insts))
		for _, inst := range insts {
			names = append(names, inst.Experiment.Name)
		}
		return indices(insts), names
	}
	firstIdx, firstNames := run()
	secondIdx, secondNames := run()
	if diff := cmp.Diff(firstIdx, secondIdx); diff != "" {
		t.Fatalf("indices differ between runs (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a", "b", "9", "z"}, firstNames); diff != "" {
		t.Fatalf("expected lexicographic file order (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(firstNames, secondNames); diff != "" {
		t.Fatalf("order differs between runs:\n%s", diff)
	}
}

func TestSourceSkipsUnknownUnreadableAndOverMass(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "notes.txt", "not a spectrum file")
	writeFile(t, dir, "a.ms", msCompound("light", -1, 300)+msCompound("heavy", -1, 1200))
	writeFile(t, dir, "b.ms", ">compound broken\n>parentmass 250\n>ms2\n100 abc\n\n"+msCompound("after", -1, 260))
	if err := os.Mkdir(filepath.Join(dir, "nested"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeFile(t, filepath.Join(dir, "nested"), "deep.ms", msCompound("deep", -1, 270))

	src, err := ingest.NewSource(ingest.Options{Inputs: []string{dir}, MaxMZ: 1000})
	if err != nil {
		t.Fatalf("NewSource returned error: %v", err)
	}
	insts := drain(t, src)
	var names []string
	for _, inst := range insts {
		names = append(names, inst.Experiment.Name)
	}
	if diff := cmp.Diff([]string{"light", "after"}, names); diff != "" {
		t.Fatalf("unexpected instances (-want +got):\n%s", diff)
	}
	stats := src.Stats()
	if stats.UnknownFormat != 1 || stats.OverMaxMZ != 1 || stats.RejectedRecord != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestSourceMissingInputIsFatal(t *testing.T) {
	_, err := ingest.NewSource(ingest.Options{Inputs: []string{filepath.Join(t.TempDir(), "missing")}})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := ingest.NewSource(ingest.Options{}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty input, got %v", err)
	}
}

func TestSourceAttachesAnnotations(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.ms", msCompound("a", -1, 195.0877))
	elements, err := chem.ParseElementConstraints("CHNOP")
	if err != nil {
		t.Fatalf("ParseElementConstraints: %v", err)
	}
	src, err := ingest.NewSource(ingest.Options{Inputs: []string{dir}, Elements: elements, AutoElements: true})
	if err != nil {
		t.Fatalf("NewSource returned error: %v", err)
	}
	insts := drain(t, src)
	if len(insts) != 1 {
		t.Fatalf("expected one instance, got %d", len(insts))
	}
	ann := insts[0].Annotations
	if ann.Constraints == nil || ann.Constraints.Elements.String() != elements.String() {
		t.Fatalf("expected element constraints, got %+v", ann.Constraints)
	}
	if ann.ElementDetection == nil || !ann.ElementDetection.Enabled {
		t.Fatal("expected element detection annotation")
	}
	if ann.Hypotheses != nil {
		t.Fatal("ingestion must not set hypotheses")
	}
}

func TestMGFGroupsByFeatureID(t *testing.T) {
	dir := t.TempDir()
	content := strings.Join([]string{
		"BEGIN IONS", "FEATURE_ID=12", "PEPMASS=195.0877", "CHARGE=1+", "MSLEVEL=1", "195.0877 100", "196.0910 10", "END IONS",
		"BEGIN IONS", "FEATURE_ID=12", "PEPMASS=195.0877", "CHARGE=1+", "MSLEVEL=2", "138.0662 50", "END IONS",
		"BEGIN IONS", "FEATURE_ID=13", "PEPMASS=181.0707", "CHARGE=1-", "MSLEVEL=2", "NAME=other", "120 5", "END IONS",
	}, "\n")
	writeFile(t, dir, "features.mgf", content)

	src, err := ingest.NewSource(ingest.Options{Inputs: []string{dir}})
	if err != nil {
		t.Fatalf("NewSource returned error: %v", err)
	}
	insts := drain(t, src)
	if len(insts) != 2 {
		t.Fatalf("expected two instances, got %d", len(insts))
	}
	first := insts[0]
	if first.Index != 12 || len(first.Experiment.MS1) != 1 || len(first.Experiment.MS2) != 1 {
		t.Fatalf("unexpected first instance %+v", first)
	}
	if first.Experiment.MergedMS1.IsEmpty() {
		t.Fatal("expected merged MS1 to be built")
	}
	second := insts[1]
	if second.Experiment.Name != "other" || second.Experiment.Charge() != -1 || !second.IonizationUnknown() {
		t.Fatalf("unexpected second instance %+v", second.Experiment)
	}
}

func TestDirectInputConflictingPrecursors(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", "#precursor=300.1\n100 10\n")
	b := writeFile(t, dir, "b.txt", "#precursor=305.2\n110 10\n")
	_, err := ingest.NewSource(ingest.Options{Direct: ingest.DirectInput{
		MS2Files: []string{a, b},
		IonTypes: []chem.IonType{chem.IonMH},
	}})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected fatal validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "different precursor") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestDirectInputExplicitMassSettlesConflictingPrecursors(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", "#precursor=300.1\n100 10\n")
	b := writeFile(t, dir, "b.txt", "#precursor=305.2\n110 10\n")
	bare := writeFile(t, dir, "bare.txt", "120 5\n")
	ion := []chem.IonType{chem.IonMH}

	exp, err := ingest.BuildDirect(ingest.DirectInput{MS2Files: []string{a, b, bare}, IonTypes: ion, ParentMass: 300})
	if err != nil {
		t.Fatalf("BuildDirect: %v", err)
	}
	if exp.IonMass != 300 {
		t.Fatalf("expected explicit parent mass, got %f", exp.IonMass)
	}
	if exp.MS2[0].PrecursorMZ != 300.1 || exp.MS2[1].PrecursorMZ != 305.2 {
		t.Fatalf("expected recorded precursors to be kept, got %f / %f", exp.MS2[0].PrecursorMZ, exp.MS2[1].PrecursorMZ)
	}
	if exp.MS2[2].PrecursorMZ != 300 {
		t.Fatalf("expected back-fill from the parent mass, got %f", exp.MS2[2].PrecursorMZ)
	}

	caffeine := chem.MustParseFormula("C8H10N4O2")
	exp, err = ingest.BuildDirect(ingest.DirectInput{MS2Files: []string{a, b}, IonTypes: ion, Formula: caffeine})
	if err != nil {
		t.Fatalf("BuildDirect with formula: %v", err)
	}
	if want := chem.IonMH.NeutralToMZ(caffeine.Mass()); exp.IonMass != want {
		t.Fatalf("expected formula derived mass %f, got %f", want, exp.IonMass)
	}
}

func TestDirectInputRequirements(t *testing.T) {
	dir := t.TempDir()
	ms1 := writeFile(t, dir, "ms1.txt", "195.0877 100\n")
	ms2 := writeFile(t, dir, "ms2.txt", "100 10\n")

	cases := []struct {
		name  string
		input ingest.DirectInput
	}{
		{"ms1 only", ingest.DirectInput{MS1Files: []string{ms1}, IonTypes: []chem.IonType{chem.IonMH}}},
		{"no ion type", ingest.DirectInput{MS2Files: []string{ms2}}},
		{"two ion types", ingest.DirectInput{MS2Files: []string{ms2}, IonTypes: []chem.IonType{chem.IonMH, chem.IonMNa}}},
		{"unknown ionization", ingest.DirectInput{MS2Files: []string{ms2}, IonTypes: []chem.IonType{chem.UnknownIonType(1)}}},
		{"no mass source", ingest.DirectInput{MS2Files: []string{ms2}, IonTypes: []chem.IonType{chem.IonMH}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ingest.BuildDirect(tc.input); !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestDirectInputIonMassPriority(t *testing.T) {
	dir := t.TempDir()
	withPrecursor := writeFile(t, dir, "p.txt", "precursor: 195.0880\n100 10\n")
	bare := writeFile(t, dir, "bare.txt", "m/z intensity\n120 5\n")
	isotopes := writeFile(t, dir, "ms1.txt", "195.0877 100\n196.0910 10\n197.0940 1\n")
	noisy := writeFile(t, dir, "noisy.txt", "195.0877 100\n196.0910 10\n250 3\n")
	caffeine := chem.MustParseFormula("C8H10N4O2")
	ion := []chem.IonType{chem.IonMH}

	exp, err := ingest.BuildDirect(ingest.DirectInput{MS2Files: []string{withPrecursor, bare}, IonTypes: ion, ParentMass: 195.1})
	if err != nil {
		t.Fatalf("BuildDirect: %v", err)
	}
	if exp.IonMass != 195.1 {
		t.Fatalf("expected explicit parent mass, got %f", exp.IonMass)
	}
	if exp.MS2[1].PrecursorMZ != 195.0880 {
		t.Fatalf("expected back-fill from the known MS2 precursor, got %f", exp.MS2[1].PrecursorMZ)
	}
	if exp.MS2[1].Level != 2 || !exp.MS2[1].IonType.Equal(chem.IonMH) {
		t.Fatalf("expected level and ion type back-fill, got %+v", exp.MS2[1])
	}

	exp, err = ingest.BuildDirect(ingest.DirectInput{MS2Files: []string{bare}, IonTypes: ion, Formula: caffeine})
	if err != nil {
		t.Fatalf("BuildDirect: %v", err)
	}
	want := chem.IonMH.NeutralToMZ(caffeine.Mass())
	if exp.IonMass != want || exp.MS2[0].PrecursorMZ != want {
		t.Fatalf("expected formula derived mass %f, got %f / %f", want, exp.IonMass, exp.MS2[0].PrecursorMZ)
	}

	exp, err = ingest.BuildDirect(ingest.DirectInput{MS2Files: []string{withPrecursor}, IonTypes: ion})
	if err != nil {
		t.Fatalf("BuildDirect: %v", err)
	}
	if exp.IonMass != 195.0880 {
		t.Fatalf("expected shared MS2 precursor, got %f", exp.IonMass)
	}

	exp, err = ingest.BuildDirect(ingest.DirectInput{MS1Files: []string{isotopes}, MS2Files: []string{bare}, IonTypes: ion})
	if err != nil {
		t.Fatalf("BuildDirect: %v", err)
	}
	if exp.IonMass < 195.087 || exp.IonMass > 195.089 {
		t.Fatalf("expected monoisotopic MS1 mass, got %f", exp.IonMass)
	}
	if exp.Name != "bare" {
		t.Fatalf("expected name from first MS2 file, got %q", exp.Name)
	}

	if _, err := ingest.BuildDirect(ingest.DirectInput{MS1Files: []string{noisy}, MS2Files: []string{bare}, IonTypes: ion}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected isotope pattern mismatch to be fatal, got %v", err)
	}
}

func TestReduceToMostIntenseMS2Paired(t *testing.T) {
	precursor := 195.0877
	inst := &instance.Instance{Experiment: instance.Experiment{
		IonMass: precursor,
		MS1: []spectrum.Spectrum{
			{Level: 1, Peaks: []spectrum.Peak{{MZ: precursor, Intensity: 10}, {MZ: 250, Intensity: 999}}},
			{Level: 1, Peaks: []spectrum.Peak{{MZ: precursor + 0.005, Intensity: 80}}},
		},
		MS2: []spectrum.Spectrum{
			{Level: 2, PrecursorMZ: precursor, Peaks: []spectrum.Peak{{MZ: 100, Intensity: 1000}}},
			{Level: 2, PrecursorMZ: precursor, Peaks: []spectrum.Peak{{MZ: 110, Intensity: 1}}},
		},
	}}
	if !ingest.ReduceToMostIntenseMS2(inst) {
		t.Fatal("expected instance to be reduced")
	}
	if len(inst.Experiment.MS2) != 1 || inst.Experiment.MS2[0].Peaks[0].MZ != 110 {
		t.Fatalf("expected MS2 #2 to be kept, got %+v", inst.Experiment.MS2)
	}
	if len(inst.Experiment.MS1) != 1 || inst.Experiment.MS1[0].Peaks[0].Intensity != 80 {
		t.Fatalf("expected MS1 #2 to be kept, got %+v", inst.Experiment.MS1)
	}
	if !inst.Annotations.Quality.SelectedByMS1 || !inst.Annotations.Quality.ReducedToMostIntenseMS2 {
		t.Fatalf("unexpected quality flags %+v", inst.Annotations.Quality)
	}
}

func TestReduceToMostIntenseMS2FallsBackToTotalIntensity(t *testing.T) {
	inst := &instance.Instance{Experiment: instance.Experiment{
		IonMass: 300,
		MS1: []spectrum.Spectrum{
			{Level: 1, Peaks: []spectrum.Peak{{MZ: 400, Intensity: 10}}},
		},
		MS2: []spectrum.Spectrum{
			{Level: 2, Peaks: []spectrum.Peak{{MZ: 100, Intensity: 5}, {MZ: 101, Intensity: 5}}},
			{Level: 2, Peaks: []spectrum.Peak{{MZ: 100, Intensity: 50}}},
			{Level: 2, Peaks: []spectrum.Peak{{MZ: 100, Intensity: 20}}},
		},
	}}
	ingest.ReduceToMostIntenseMS2(inst)
	if len(inst.Experiment.MS2) != 1 || inst.Experiment.MS2[0].Peaks[0].Intensity != 50 {
		t.Fatalf("expected the most intense MS2, got %+v", inst.Experiment.MS2)
	}
	if len(inst.Experiment.MS1) != 1 {
		t.Fatal("expected unpaired MS1 to stay unchanged")
	}
	if inst.Annotations.Quality.SelectedByMS1 {
		t.Fatal("expected selection by total intensity")
	}
}
