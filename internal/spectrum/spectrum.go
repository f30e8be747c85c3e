package spectrum

import (
	"math"
	"sort"

	"ionbatch/internal/chem"
)

// Peak is a single centroided signal.
type Peak struct {
	MZ        float64 `json:"mz"`
	Intensity float64 `json:"intensity"`
}

// Spectrum is a centroided mass spectrum. Zero values for Level and
// PrecursorMZ mean the value is unknown; an invalid IonType means the
// ionization of the spectrum was not annotated.
type Spectrum struct {
	Level           int          `json:"level"`
	PrecursorMZ     float64      `json:"precursor_mz,omitempty"`
	IonType         chem.IonType `json:"-"`
	CollisionEnergy string       `json:"collision_energy,omitempty"`
	Peaks           []Peak       `json:"peaks"`
}

// Clone returns a deep copy.
func (s Spectrum) Clone() Spectrum {
	out := s
	out.Peaks = append([]Peak(nil), s.Peaks...)
	return out
}

// IsEmpty reports whether the spectrum has no peaks.
func (s Spectrum) IsEmpty() bool { return len(s.Peaks) == 0 }

// TotalIntensity returns the sum over all peak intensities.
func (s Spectrum) TotalIntensity() float64 {
	var total float64
	for _, p := range s.Peaks {
		total += p.Intensity
	}
	return total
}

// MostIntenseWithin returns the most intense peak within ppm of mz.
func (s Spectrum) MostIntenseWithin(mz, ppm float64) (Peak, bool) {
	var (
		best  Peak
		found bool
	)
	for _, p := range s.Peaks {
		if !WithinPPM(p.MZ, mz, ppm) {
			continue
		}
		if !found || p.Intensity > best.Intensity {
			best = p
			found = true
		}
	}
	return best, found
}

// SortByMZ orders peaks by ascending m/z in place.
func (s *Spectrum) SortByMZ() {
	sort.Slice(s.Peaks, func(i, j int) bool { return s.Peaks[i].MZ < s.Peaks[j].MZ })
}

// WithinPPM reports whether a and b differ by at most ppm parts per million of b.
func WithinPPM(a, b, ppm float64) bool {
	return math.Abs(a-b) <= math.Abs(b)*ppm*1e-6
}

// Merge combines spectra into one by grouping peaks closer than ppm. Grouped
// peaks get summed intensity and an intensity weighted m/z. The level of the
// first spectrum is kept.
func Merge(spectra []Spectrum, ppm float64) Spectrum {
	var all []Peak
	level := 0
	for _, s := range spectra {
		if level == 0 {
			level = s.Level
		}
		all = append(all, s.Peaks...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].MZ < all[j].MZ })

	merged := Spectrum{Level: level}
	for _, p := range all {
		if n := len(merged.Peaks); n > 0 && WithinPPM(p.MZ, merged.Peaks[n-1].MZ, ppm) {
			last := &merged.Peaks[n-1]
			total := last.Intensity + p.Intensity
			if total > 0 {
				last.MZ = (last.MZ*last.Intensity + p.MZ*p.Intensity) / total
			}
			last.Intensity = total
			continue
		}
		merged.Peaks = append(merged.Peaks, p)
	}
	return merged
}
