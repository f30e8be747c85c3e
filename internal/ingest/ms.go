package ingest

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode"

	"ionbatch/internal/spectrum"
)

const maxLineBytes = 1 << 20

// msReader reads the line based .ms format. A ">compound" line starts a new
// experiment; ">ms1", ">ms2" and ">collision" lines start peak lists that
// run until the next blank or header line.
type msReader struct {
	path    string
	file    *os.File
	scanner *bufio.Scanner
	line    int
	current *draft
	peaks   *[]spectrum.Peak
	done    bool
}

// OpenMS opens a .ms file for lazy reading.
func OpenMS(path string) (RecordReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	return &msReader{path: path, file: f, scanner: scanner}, nil
}

func (r *msReader) Next() (Record, error) {
	for !r.done {
		if !r.scanner.Scan() {
			r.done = true
			if err := r.scanner.Err(); err != nil {
				return Record{}, fmt.Errorf("read %s: %w", r.path, err)
			}
			break
		}
		r.line++
		line := strings.TrimSpace(r.scanner.Text())
		if line == "" {
			r.peaks = nil
			continue
		}
		if strings.HasPrefix(line, "#") {
			continue
		}
		if !strings.HasPrefix(line, ">") {
			if r.peaks == nil {
				return Record{}, r.failLine("peak outside of a spectrum block")
			}
			peak, ok := parsePeakLine(line)
			if !ok {
				return Record{}, r.failLine(fmt.Sprintf("malformed peak %q", line))
			}
			*r.peaks = append(*r.peaks, peak)
			continue
		}

		key, value := splitHeader(line[1:])
		if key == "compound" && r.current != nil && !r.current.empty() {
			finished := r.current
			r.current = newDraft(r.path, r.line)
			r.current.name = value
			r.peaks = nil
			return finished.finish()
		}
		if r.current == nil {
			r.current = newDraft(r.path, r.line)
		}
		if err := r.applyHeader(key, value); err != nil {
			return Record{}, err
		}
	}
	if r.current != nil && !r.current.empty() {
		finished := r.current
		r.current = nil
		return finished.finish()
	}
	return Record{}, io.EOF
}

func (r *msReader) applyHeader(key, value string) error {
	d := r.current
	r.peaks = nil
	switch key {
	case "compound":
		d.name = value
	case "formula":
		d.formula = value
	case "parentmass":
		mass, err := parseLeadingFloat(value)
		if err != nil {
			return r.failLine(fmt.Sprintf("invalid parentmass %q", value))
		}
		d.parentMass = mass
	case "ionization", "ion":
		d.ionization = value
	case "charge":
		charge, err := parseCharge(value)
		if err != nil {
			return r.failLine(err.Error())
		}
		d.charge = charge
	case "index":
		idx, err := strconv.Atoi(value)
		if err != nil {
			return r.failLine(fmt.Sprintf("invalid index %q", value))
		}
		d.index = idx
	case "ms1", "ms1peaks":
		d.ms1 = append(d.ms1, spectrum.Spectrum{Level: 1})
		r.peaks = &d.ms1[len(d.ms1)-1].Peaks
	case "ms1merged":
		d.mergedMS1 = d.mergedMS1[:0]
		r.peaks = &d.mergedMS1
	case "ms2", "ms2peaks":
		d.ms2 = append(d.ms2, spectrum.Spectrum{Level: 2})
		r.peaks = &d.ms2[len(d.ms2)-1].Peaks
	case "collision":
		d.ms2 = append(d.ms2, spectrum.Spectrum{Level: 2, CollisionEnergy: value})
		r.peaks = &d.ms2[len(d.ms2)-1].Peaks
	}
	return nil
}

// failLine rejects the current compound and skips the rest of its block.
func (r *msReader) failLine(reason string) error {
	d := r.current
	if d == nil {
		d = newDraft(r.path, r.line)
	}
	d.line = r.line
	err := d.reject("%s", reason)
	r.current = nil
	r.peaks = nil
	r.skipToNextCompound()
	return err
}

func (r *msReader) skipToNextCompound() {
	for r.scanner.Scan() {
		r.line++
		line := strings.TrimSpace(r.scanner.Text())
		if !strings.HasPrefix(line, ">") {
			continue
		}
		key, value := splitHeader(line[1:])
		if key == "compound" {
			r.current = newDraft(r.path, r.line)
			r.current.name = value
			return
		}
	}
	r.done = true
}

func (r *msReader) Close() error {
	return r.file.Close()
}

func splitHeader(raw string) (string, string) {
	raw = strings.TrimSpace(raw)
	key, value := raw, ""
	if idx := strings.IndexFunc(raw, unicode.IsSpace); idx >= 0 {
		key, value = raw[:idx], raw[idx:]
	}
	return strings.ToLower(strings.TrimSpace(key)), strings.TrimSpace(value)
}
