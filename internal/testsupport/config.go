package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"ionbatch/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.ProjectDir = filepath.Join(base, "project")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Logging.RetentionDays = 0
	cfgVal.Scheduler.Cores = 2

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithBuffers overrides the scheduler watermarks.
func WithBuffers(initial, maxBuffer int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Scheduler.InitialBuffer = initial
		b.cfg.Scheduler.MaxBuffer = maxBuffer
	}
}

// WithSummaryFile enables the TSV summary sink inside the temp directory.
func WithSummaryFile(name string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.SummaryFile = filepath.Join(b.baseDir, name)
	}
}

// WithStubbedEngine writes a stub engine executable and points the config at
// it. The stub is only resolved by preflight; tests inject their own engine.
func WithStubbedEngine() ConfigOption {
	return func(b *configBuilder) {
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		target := filepath.Join(binDir, "ionbatch-engine")
		if err := os.WriteFile(target, []byte("#!/bin/sh\ncat >/dev/null\necho '{\"candidates\":[]}'\n"), 0o755); err != nil {
			b.t.Fatalf("write stub engine: %v", err)
		}
		b.cfg.Identification.EngineBinary = target
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.ProjectDir)
}
