package project

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"

	"ionbatch/internal/outcome"
)

// Sink receives every outcome record of a run and is closed once at shutdown.
type Sink interface {
	Write(ctx context.Context, rec outcome.Record) error
	Close() error
}

// Fanout writes each record to all sinks in order. A failing sink does not
// stop the others; their errors are combined.
type Fanout struct {
	mu     sync.Mutex
	sinks  []Sink
	closed bool
}

// NewFanout combines sinks. Nil entries are ignored.
func NewFanout(sinks ...Sink) *Fanout {
	f := &Fanout{}
	for _, s := range sinks {
		if s != nil {
			f.sinks = append(f.sinks, s)
		}
	}
	return f
}

// Write implements Sink.
func (f *Fanout) Write(ctx context.Context, rec outcome.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return fmt.Errorf("write outcome %d: sink closed", rec.Index)
	}
	var result *multierror.Error
	for _, s := range f.sinks {
		if err := s.Write(ctx, rec); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// Close closes every sink once. Later calls are no-ops.
func (f *Fanout) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	var result *multierror.Error
	for _, s := range f.sinks {
		if err := s.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

var tsvHeader = []string{"index", "name", "source_file", "status", "formula", "ion_type", "score", "candidates", "message"}

// TSVSink writes one tab separated line per record listing the top candidate.
type TSVSink struct {
	file *os.File
	w    *bufio.Writer
}

// NewTSVSink creates (or truncates) path and writes the header line.
func NewTSVSink(path string) (*TSVSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create summary directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create summary file: %w", err)
	}
	s := &TSVSink{file: f, w: bufio.NewWriter(f)}
	if err := s.writeLine(tsvHeader); err != nil {
		_ = f.Close()
		return nil, err
	}
	return s, nil
}

// Write implements Sink.
func (s *TSVSink) Write(_ context.Context, rec outcome.Record) error {
	fields := []string{
		strconv.Itoa(rec.Index),
		rec.Name,
		rec.SourceFile,
		string(rec.Kind),
		"",
		rec.IonType,
		"",
		strconv.Itoa(len(rec.Candidates)),
		rec.Message,
	}
	if best, ok := rec.Best(); ok {
		fields[4] = best.Formula.String()
		if ion := best.IonType.String(); ion != "" {
			fields[5] = ion
		}
		fields[6] = strconv.FormatFloat(best.Score, 'f', 4, 64)
	}
	if err := s.writeLine(fields); err != nil {
		return err
	}
	return s.w.Flush()
}

// Close flushes and closes the file.
func (s *TSVSink) Close() error {
	flushErr := s.w.Flush()
	closeErr := s.file.Close()
	if flushErr != nil {
		return fmt.Errorf("flush summary: %w", flushErr)
	}
	return closeErr
}

var tsvEscaper = strings.NewReplacer("\t", " ", "\n", " ", "\r", " ")

func (s *TSVSink) writeLine(fields []string) error {
	cleaned := make([]string, len(fields))
	for i, f := range fields {
		cleaned[i] = tsvEscaper.Replace(f)
	}
	if _, err := s.w.WriteString(strings.Join(cleaned, "\t") + "\n"); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}
