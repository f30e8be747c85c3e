package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"ionbatch/internal/chem"
	"ionbatch/internal/instance"
	"ionbatch/internal/logging"
	"ionbatch/internal/services"
)

// Options configures a Source.
type Options struct {
	Inputs         []string
	Direct         DirectInput
	Registry       *Registry
	Offset         int
	Merge          bool
	MaxMZ          float64
	Elements       chem.ElementConstraints
	AutoElements   bool
	MostIntenseMS2 bool
	Logger         *slog.Logger
}

// Stats counts what ingestion skipped.
type Stats struct {
	Emitted        int
	UnknownFormat  int
	UnreadableFile int
	RejectedRecord int
	OverMaxMZ      int
}

// Source is a single forward pass over the instances of one run.
type Source struct {
	opts     Options
	logger   *slog.Logger
	assigner *indexAssigner

	direct *instance.Instance
	files  []string
	next   int

	reader RecordReader
	path   string
	stats  Stats
}

// NewSource expands the inputs and builds the direct-input instance. Missing
// inputs and direct-input contradictions are returned as fatal errors.
func NewSource(opts Options) (*Source, error) {
	if opts.Registry == nil {
		opts.Registry = DefaultRegistry()
	}
	s := &Source{
		opts:     opts,
		logger:   logging.NewComponentLogger(opts.Logger, "ingest"),
		assigner: newIndexAssigner(opts.Offset, opts.Merge),
	}
	if opts.Direct.Enabled() {
		exp, err := BuildDirect(opts.Direct)
		if err != nil {
			return nil, err
		}
		s.direct = s.newInstance(Record{Index: -1, Experiment: exp}, "")
		s.logger.Info("direct input prepared",
			logging.Int("ms1_spectra", len(exp.MS1)),
			logging.Int("ms2_spectra", len(exp.MS2)),
			logging.Float64("ion_mass", exp.IonMass),
			logging.String("ion_type", exp.IonType.String()),
		)
	}
	files, err := expandInputs(opts.Inputs)
	if err != nil {
		return nil, err
	}
	s.files = files
	if s.direct == nil && len(files) == 0 {
		return nil, services.Wrap(services.ErrValidation, "ingest", "expand inputs", "no input files", nil)
	}
	s.logger.Debug("inputs expanded", logging.Int("files", len(files)), logging.Int("offset", opts.Offset), logging.String("mode", indexMode(opts.Merge)))
	return s, nil
}

// Files returns the sorted input files.
func (s *Source) Files() []string {
	return append([]string(nil), s.files...)
}

// Stats returns skip counters for the pass so far.
func (s *Source) Stats() Stats {
	return s.stats
}

// Next returns the next instance, or io.EOF when the inputs are exhausted.
// Unknown formats, unreadable files, rejected records and instances above
// the m/z limit are logged and skipped.
func (s *Source) Next(ctx context.Context) (*instance.Instance, error) {
	if s.direct != nil {
		inst := s.direct
		s.direct = nil
		s.stats.Emitted++
		return inst, nil
	}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if s.reader == nil {
			if s.next >= len(s.files) {
				return nil, io.EOF
			}
			s.openNext()
			continue
		}

		rec, err := s.reader.Next()
		if errors.Is(err, io.EOF) {
			s.closeReader()
			continue
		}
		if err != nil {
			if errors.Is(err, services.ErrValidation) {
				s.stats.RejectedRecord++
				logging.WarnWithContext(s.logger, "record rejected", "ingest_record_rejected",
					logging.String(logging.FieldSourceFile, s.path),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "fix the record in the input file"),
					logging.String(logging.FieldImpact, "compound skipped"),
				)
				continue
			}
			s.stats.UnreadableFile++
			logging.WarnWithContext(s.logger, "input file unreadable", "ingest_file_unreadable",
				logging.String(logging.FieldSourceFile, s.path),
				logging.Error(err),
				logging.String(logging.FieldImpact, "remaining compounds of this file skipped"),
			)
			s.closeReader()
			continue
		}

		if s.opts.MaxMZ > 0 && rec.Experiment.IonMass > s.opts.MaxMZ {
			s.stats.OverMaxMZ++
			s.logger.Debug("instance above max m/z skipped",
				logging.String(logging.FieldSourceFile, s.path),
				logging.String("name", rec.Experiment.Name),
				logging.Float64("ion_mass", rec.Experiment.IonMass),
			)
			continue
		}
		s.stats.Emitted++
		return s.newInstance(rec, s.path), nil
	}
}

// Close releases the open file, if any.
func (s *Source) Close() error {
	return s.closeReader()
}

func (s *Source) openNext() {
	path := s.files[s.next]
	s.next++
	parser, ok := s.opts.Registry.ParserFor(path)
	if !ok {
		s.stats.UnknownFormat++
		logging.WarnWithContext(s.logger, "unknown input format", "ingest_unknown_format",
			logging.String(logging.FieldSourceFile, path),
			logging.String(logging.FieldErrorHint, "supported extensions: "+strings.Join(s.opts.Registry.Extensions(), ", ")),
			logging.String(logging.FieldImpact, "file skipped"),
		)
		return
	}
	reader, err := parser.Open(path)
	if err != nil {
		s.stats.UnreadableFile++
		logging.WarnWithContext(s.logger, "input file unreadable", "ingest_file_unreadable",
			logging.String(logging.FieldSourceFile, path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "file skipped"),
		)
		return
	}
	s.reader = reader
	s.path = path
}

func (s *Source) closeReader() error {
	if s.reader == nil {
		return nil
	}
	err := s.reader.Close()
	s.reader = nil
	s.path = ""
	return err
}

func (s *Source) newInstance(rec Record, path string) *instance.Instance {
	inst := &instance.Instance{
		Index:      s.assigner.assign(rec.Index),
		SourceFile: path,
		Experiment: rec.Experiment,
	}
	if !s.opts.Elements.IsEmpty() {
		inst.Annotations.Constraints = &instance.FormulaConstraints{Elements: s.opts.Elements}
	}
	if s.opts.AutoElements {
		inst.Annotations.ElementDetection = &instance.ElementDetection{Enabled: true}
	}
	if s.opts.MostIntenseMS2 {
		ReduceToMostIntenseMS2(inst)
	}
	return inst
}

// expandInputs lists directories (without recursion) and sorts all files
// lexicographically.
func expandInputs(inputs []string) ([]string, error) {
	var files []string
	seen := make(map[string]struct{})
	add := func(path string) {
		if _, dup := seen[path]; dup {
			return
		}
		seen[path] = struct{}{}
		files = append(files, path)
	}
	for _, raw := range inputs {
		path := strings.TrimSpace(raw)
		if path == "" {
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "ingest", "expand inputs", fmt.Sprintf("input %s", path), err)
		}
		if !info.IsDir() {
			add(filepath.Clean(path))
			continue
		}
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "ingest", "expand inputs", fmt.Sprintf("list %s", path), err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			add(filepath.Join(path, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func indexMode(merge bool) string {
	if merge {
		return "merge"
	}
	return "fresh"
}
