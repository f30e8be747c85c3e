package ingest

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"ionbatch/internal/spectrum"
)

// mgfBlock is one BEGIN IONS ... END IONS section.
type mgfBlock struct {
	line      int
	featureID string
	level     int
	pepmass   float64
	charge    int
	ion       string
	name      string
	formula   string
	energy    string
	peaks     []spectrum.Peak
}

// mgfReader groups consecutive blocks sharing a FEATURE_ID into one
// experiment. Blocks without a feature id stand alone.
type mgfReader struct {
	path    string
	file    *os.File
	scanner *bufio.Scanner
	line    int
	pending *mgfBlock
}

// OpenMGF opens a Mascot generic format file for lazy reading.
func OpenMGF(path string) (RecordReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	return &mgfReader{path: path, file: f, scanner: scanner}, nil
}

func (r *mgfReader) Next() (Record, error) {
	var group []*mgfBlock
	for {
		block := r.pending
		r.pending = nil
		if block == nil {
			var err error
			block, err = r.readBlock()
			if err != nil {
				return Record{}, err
			}
		}
		if block == nil {
			break
		}
		if len(group) > 0 && (block.featureID == "" || block.featureID != group[0].featureID) {
			r.pending = block
			break
		}
		group = append(group, block)
		if block.featureID == "" {
			break
		}
	}
	if len(group) == 0 {
		return Record{}, io.EOF
	}
	return r.assemble(group)
}

func (r *mgfReader) readBlock() (*mgfBlock, error) {
	var block *mgfBlock
	for r.scanner.Scan() {
		r.line++
		line := strings.TrimSpace(r.scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		upper := strings.ToUpper(line)
		if upper == "BEGIN IONS" {
			block = &mgfBlock{line: r.line, level: 2}
			continue
		}
		if block == nil {
			continue
		}
		if upper == "END IONS" {
			return block, nil
		}
		if key, value, ok := strings.Cut(line, "="); ok {
			if err := applyMGFKey(block, strings.ToUpper(strings.TrimSpace(key)), strings.TrimSpace(value)); err != nil {
				d := newDraft(r.path, r.line)
				return nil, d.reject("%v", err)
			}
			continue
		}
		peak, ok := parsePeakLine(line)
		if !ok {
			d := newDraft(r.path, r.line)
			return nil, d.reject("malformed peak %q", line)
		}
		block.peaks = append(block.peaks, peak)
	}
	if err := r.scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", r.path, err)
	}
	if block != nil {
		d := newDraft(r.path, block.line)
		return nil, d.reject("unterminated BEGIN IONS block")
	}
	return nil, nil
}

func applyMGFKey(block *mgfBlock, key, value string) error {
	switch key {
	case "FEATURE_ID":
		block.featureID = value
	case "MSLEVEL":
		level, err := strconv.Atoi(value)
		if err != nil || level < 1 || level > 2 {
			return fmt.Errorf("unsupported MSLEVEL %q", value)
		}
		block.level = level
	case "PEPMASS":
		mass, err := parseLeadingFloat(value)
		if err != nil {
			return fmt.Errorf("invalid PEPMASS %q", value)
		}
		block.pepmass = mass
	case "CHARGE":
		charge, err := parseCharge(value)
		if err != nil {
			return err
		}
		block.charge = charge
	case "ION", "ADDUCT", "IONMODE_ADDUCT":
		block.ion = value
	case "NAME", "TITLE":
		if block.name == "" {
			block.name = value
		}
	case "FORMULA":
		block.formula = value
	case "COLLISION_ENERGY":
		block.energy = value
	}
	return nil
}

func (r *mgfReader) assemble(group []*mgfBlock) (Record, error) {
	first := group[0]
	d := newDraft(r.path, first.line)
	d.name = first.name
	if d.name == "" {
		d.name = first.featureID
	}
	if idx, err := strconv.Atoi(first.featureID); err == nil {
		d.index = idx
	}
	for _, b := range group {
		if d.formula == "" {
			d.formula = b.formula
		}
		if d.ionization == "" {
			d.ionization = b.ion
		}
		if d.charge == 0 {
			d.charge = b.charge
		}
		s := spectrum.Spectrum{Level: b.level, PrecursorMZ: b.pepmass, CollisionEnergy: b.energy, Peaks: b.peaks}
		if b.level == 1 {
			d.ms1 = append(d.ms1, s)
			continue
		}
		d.ms2 = append(d.ms2, s)
	}
	for _, s := range d.ms2 {
		if s.PrecursorMZ > 0 {
			d.parentMass = s.PrecursorMZ
			break
		}
	}
	return d.finish()
}

func (r *mgfReader) Close() error {
	return r.file.Close()
}
