package spectrum

import (
	"math"
	"sort"
)

const (
	isotopeSpacing   = 1.00335
	isotopeTolerance = 0.01
)

// ExtractIsotopePattern walks an isotope envelope starting at the lowest m/z
// peak and returns the peaks that continue it, monoisotopic peak first.
func ExtractIsotopePattern(s Spectrum, charge int) []Peak {
	if len(s.Peaks) == 0 {
		return nil
	}
	z := math.Abs(float64(charge))
	if z == 0 {
		z = 1
	}
	peaks := append([]Peak(nil), s.Peaks...)
	sort.Slice(peaks, func(i, j int) bool { return peaks[i].MZ < peaks[j].MZ })

	pattern := []Peak{peaks[0]}
	for {
		expected := pattern[len(pattern)-1].MZ + isotopeSpacing/z
		next, ok := closestPeak(peaks, expected, isotopeTolerance)
		if !ok {
			break
		}
		pattern = append(pattern, next)
	}
	return pattern
}

func closestPeak(peaks []Peak, mz, tolerance float64) (Peak, bool) {
	var (
		best  Peak
		found bool
	)
	for _, p := range peaks {
		d := math.Abs(p.MZ - mz)
		if d > tolerance {
			continue
		}
		if !found || d < math.Abs(best.MZ-mz) {
			best = p
			found = true
		}
	}
	return best, found
}
