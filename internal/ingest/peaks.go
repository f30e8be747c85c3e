package ingest

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"ionbatch/internal/services"
	"ionbatch/internal/spectrum"
)

var peakListHeader = regexp.MustCompile(`(?i)^#?\s*(pepmass|precursor_mz|precursor|collision|collision_energy|mslevel)\s*[:=]\s*(.+)$`)

// ReadPeakList reads a plain two column peak list (.txt, .csv, .tsv, .xy).
// Optional header lines such as "#precursor=195.08" or "mslevel: 1" set the
// spectrum metadata; any other non numeric line is ignored.
func ReadPeakList(path string) (spectrum.Spectrum, error) {
	f, err := os.Open(path)
	if err != nil {
		return spectrum.Spectrum{}, services.Wrap(services.ErrValidation, "ingest", "read peak list", path, err)
	}
	defer f.Close()

	var s spectrum.Spectrum
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if m := peakListHeader.FindStringSubmatch(line); m != nil {
			if err := applyPeakListHeader(&s, strings.ToLower(m[1]), strings.TrimSpace(m[2])); err != nil {
				return spectrum.Spectrum{}, services.Wrap(services.ErrValidation, "ingest", "read peak list", path, err)
			}
			continue
		}
		if peak, ok := parsePeakLine(line); ok {
			s.Peaks = append(s.Peaks, peak)
		}
	}
	if err := scanner.Err(); err != nil {
		return spectrum.Spectrum{}, services.Wrap(services.ErrValidation, "ingest", "read peak list", path, err)
	}
	if len(s.Peaks) == 0 {
		return spectrum.Spectrum{}, services.Wrap(services.ErrValidation, "ingest", "read peak list", fmt.Sprintf("%s contains no peaks", path), nil)
	}
	return s, nil
}

func applyPeakListHeader(s *spectrum.Spectrum, key, value string) error {
	switch key {
	case "pepmass", "precursor_mz", "precursor":
		mz, err := parseLeadingFloat(value)
		if err != nil {
			return fmt.Errorf("invalid precursor %q", value)
		}
		s.PrecursorMZ = mz
	case "collision", "collision_energy":
		s.CollisionEnergy = value
	case "mslevel":
		level, err := strconv.Atoi(value)
		if err != nil || level < 1 || level > 2 {
			return fmt.Errorf("unsupported ms level %q", value)
		}
		s.Level = level
	}
	return nil
}
