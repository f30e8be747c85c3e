package spectrum_test

import (
	"math"
	"testing"

	"ionbatch/internal/spectrum"
)

func TestMostIntenseWithin(t *testing.T) {
	s := spectrum.Spectrum{Peaks: []spectrum.Peak{
		{MZ: 195.0870, Intensity: 10},
		{MZ: 195.0880, Intensity: 30},
		{MZ: 195.2000, Intensity: 100},
	}}
	peak, ok := s.MostIntenseWithin(195.0877, 10)
	if !ok {
		t.Fatal("expected a peak within tolerance")
	}
	if peak.Intensity != 30 {
		t.Fatalf("expected most intense nearby peak, got %+v", peak)
	}
	if _, ok := s.MostIntenseWithin(300, 10); ok {
		t.Fatal("expected no peak near 300")
	}
}

func TestMergeGroupsClosePeaks(t *testing.T) {
	a := spectrum.Spectrum{Level: 1, Peaks: []spectrum.Peak{{MZ: 100.0000, Intensity: 1}, {MZ: 200, Intensity: 5}}}
	b := spectrum.Spectrum{Level: 1, Peaks: []spectrum.Peak{{MZ: 100.0002, Intensity: 3}}}
	merged := spectrum.Merge([]spectrum.Spectrum{a, b}, 10)
	if len(merged.Peaks) != 2 {
		t.Fatalf("expected 2 merged peaks, got %d", len(merged.Peaks))
	}
	if merged.Peaks[0].Intensity != 4 {
		t.Fatalf("expected summed intensity 4, got %f", merged.Peaks[0].Intensity)
	}
	if math.Abs(merged.Peaks[0].MZ-100.00015) > 1e-9 {
		t.Fatalf("expected weighted m/z, got %f", merged.Peaks[0].MZ)
	}
}

func TestExtractIsotopePattern(t *testing.T) {
	s := spectrum.Spectrum{Peaks: []spectrum.Peak{
		{MZ: 196.0910, Intensity: 10},
		{MZ: 195.0877, Intensity: 100},
		{MZ: 197.0940, Intensity: 1},
	}}
	pattern := spectrum.ExtractIsotopePattern(s, 1)
	if len(pattern) != 3 {
		t.Fatalf("expected 3 isotope peaks, got %d", len(pattern))
	}
	if pattern[0].MZ != 195.0877 {
		t.Fatalf("expected monoisotopic peak first, got %f", pattern[0].MZ)
	}

	noisy := spectrum.Spectrum{Peaks: append(s.Peaks, spectrum.Peak{MZ: 250, Intensity: 3})}
	if got := len(spectrum.ExtractIsotopePattern(noisy, 1)); got != 3 {
		t.Fatalf("expected unrelated peak to be excluded, got %d peaks", got)
	}
}
