package ingest

import "ionbatch/internal/instance"

// mostIntensePPM is the window around the precursor searched in paired MS1 spectra.
const mostIntensePPM = 100

// ReduceToMostIntenseMS2 keeps only the most informative MS2 spectrum. With
// paired MS1/MS2 spectra the pair whose MS1 has the strongest precursor peak
// wins; otherwise the MS2 with the highest total intensity is kept. It
// reports whether the instance changed.
func ReduceToMostIntenseMS2(inst *instance.Instance) bool {
	exp := &inst.Experiment
	if len(exp.MS2) <= 1 {
		return false
	}
	paired := len(exp.MS1) == len(exp.MS2)

	best := -1
	if paired {
		bestIntensity := -1.0
		for i := range exp.MS2 {
			precursor := exp.MS2[i].PrecursorMZ
			if precursor <= 0 {
				precursor = exp.IonMass
			}
			peak, ok := exp.MS1[i].MostIntenseWithin(precursor, mostIntensePPM)
			if ok && peak.Intensity > bestIntensity {
				best = i
				bestIntensity = peak.Intensity
			}
		}
	}
	selectedByMS1 := best >= 0
	if best < 0 {
		bestTotal := -1.0
		for i := range exp.MS2 {
			if total := exp.MS2[i].TotalIntensity(); total > bestTotal {
				best = i
				bestTotal = total
			}
		}
	}

	exp.MS2 = exp.MS2[best : best+1 : best+1]
	if paired {
		exp.MS1 = exp.MS1[best : best+1 : best+1]
	}
	inst.Annotations.Quality.ReducedToMostIntenseMS2 = true
	inst.Annotations.Quality.SelectedByMS1 = selectedByMS1
	return true
}
