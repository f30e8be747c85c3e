package ingest

import (
	"io"
	"path/filepath"
	"sort"
	"strings"

	"ionbatch/internal/instance"
)

// Record is one experiment as produced by a format parser. Index is the
// parser supplied index, or -1 when the format carries none.
type Record struct {
	Index      int
	Experiment instance.Experiment
}

// RecordReader is a lazy stream of records from one file. Next returns io.EOF
// once the file is exhausted. Errors marked services.ErrValidation reject a
// single record; the reader may be advanced again afterwards.
type RecordReader interface {
	Next() (Record, error)
	io.Closer
}

// Parser opens files of one format.
type Parser interface {
	Open(path string) (RecordReader, error)
}

// ParserFunc adapts a function to the Parser interface.
type ParserFunc func(path string) (RecordReader, error)

// Open calls f.
func (f ParserFunc) Open(path string) (RecordReader, error) { return f(path) }

// Registry maps lowercase file extensions to parsers.
type Registry struct {
	parsers map[string]Parser
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

// DefaultRegistry knows the .ms and .mgf formats.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(".ms", ParserFunc(OpenMS))
	r.Register(".mgf", ParserFunc(OpenMGF))
	return r
}

// Register binds a parser to an extension, replacing any previous binding.
func (r *Registry) Register(ext string, p Parser) {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" || p == nil {
		return
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	r.parsers[ext] = p
}

// ParserFor returns the parser for path, or false when the format is unknown.
func (r *Registry) ParserFor(path string) (Parser, bool) {
	if r == nil {
		return nil, false
	}
	p, ok := r.parsers[strings.ToLower(filepath.Ext(path))]
	return p, ok
}

// Extensions lists the registered extensions in sorted order.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.parsers))
	for ext := range r.parsers {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
