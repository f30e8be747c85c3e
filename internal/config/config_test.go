package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"ionbatch/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("IONBATCH_ENGINE", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantProject := filepath.Join(tempHome, ".local", "share", "ionbatch", "project")
	if cfg.Paths.ProjectDir != wantProject {
		t.Fatalf("unexpected project dir: got %q want %q", cfg.Paths.ProjectDir, wantProject)
	}
	if cfg.Paths.SummaryFile != "" {
		t.Fatalf("expected no summary file by default, got %q", cfg.Paths.SummaryFile)
	}
	if cfg.Scheduler.InitialBuffer != 32 || cfg.Scheduler.MaxBuffer != 64 {
		t.Fatalf("unexpected buffer defaults: %+v", cfg.Scheduler)
	}
	if cfg.Identification.EngineBinary != "ionbatch-engine" {
		t.Fatalf("unexpected engine default %q", cfg.Identification.EngineBinary)
	}
	if cfg.InstanceTimeout() != 0 || cfg.TreeTimeout() != 0 {
		t.Fatal("expected timeouts disabled by default")
	}
}

func TestLoadEngineFromEnvironment(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("IONBATCH_ENGINE", "/opt/engine/bin/identify")
	t.Chdir(t.TempDir())

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Identification.EngineBinary != "/opt/engine/bin/identify" {
		t.Fatalf("expected env engine, got %q", cfg.Identification.EngineBinary)
	}
}

func TestLoadCustomConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("IONBATCH_ENGINE", "")
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.toml")
	content := `
[paths]
project_dir = "~/runs/p1"
summary_file = "~/runs/p1.tsv"

[ionization]
ion_types = ["[M+H]+", " [M+Na]+ ", "[M+H]+"]

[scheduler]
initial_buffer = 40
max_buffer = 10
cores = 4

[identification]
engine_binary = "/usr/local/bin/engine"
instance_timeout = 120
isotope_mode = "SCORE"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected custom path resolved, got %q exists=%v", resolved, exists)
	}
	home := os.Getenv("HOME")
	if cfg.Paths.ProjectDir != filepath.Join(home, "runs", "p1") {
		t.Fatalf("unexpected project dir %q", cfg.Paths.ProjectDir)
	}
	if cfg.Paths.SummaryFile != filepath.Join(home, "runs", "p1.tsv") {
		t.Fatalf("unexpected summary file %q", cfg.Paths.SummaryFile)
	}
	if got := strings.Join(cfg.Ionization.IonTypes, ","); got != "[M+H]+,[M+Na]+" {
		t.Fatalf("expected trimmed, deduplicated ion types, got %q", got)
	}
	if cfg.Scheduler.MaxBuffer != 40 {
		t.Fatalf("expected max buffer raised to initial buffer, got %d", cfg.Scheduler.MaxBuffer)
	}
	if cfg.Identification.IsotopeMode != "score" {
		t.Fatalf("expected lowercased isotope mode, got %q", cfg.Identification.IsotopeMode)
	}
	if cfg.InstanceTimeout().Seconds() != 120 {
		t.Fatalf("unexpected instance timeout %v", cfg.InstanceTimeout())
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[scheduler]\nworkers = 3\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected unknown key to be rejected")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{name: "ion type", mutate: func(c *config.Config) { c.Ionization.IonTypes = []string{"[M+Zz]+"} }, want: "ionization.ion_types"},
		{name: "unknown ionization", mutate: func(c *config.Config) { c.Ionization.IonTypes = []string{"[M+?]+"} }, want: "does not name an ionization"},
		{name: "elements", mutate: func(c *config.Config) { c.Ingest.Elements = "CHNO[" }, want: "ingest.elements"},
		{name: "cores", mutate: func(c *config.Config) { c.Scheduler.Cores = -1 }, want: "scheduler.cores"},
		{name: "buffers", mutate: func(c *config.Config) { c.Scheduler.MaxBuffer = 1 }, want: "scheduler.max_buffer"},
		{name: "candidates", mutate: func(c *config.Config) { c.Identification.Candidates = 0 }, want: "identification.candidates"},
		{name: "timeout", mutate: func(c *config.Config) { c.Identification.TreeTimeout = -5 }, want: "identification.tree_timeout"},
		{name: "isotope", mutate: func(c *config.Config) { c.Identification.IsotopeMode = "sometimes" }, want: "identification.isotope_mode"},
		{name: "ppm", mutate: func(c *config.Config) { c.Identification.PPMMax = 0 }, want: "identification.ppm_max"},
		{name: "engine", mutate: func(c *config.Config) { c.Identification.EngineBinary = " " }, want: "identification.engine_binary"},
		{name: "log level", mutate: func(c *config.Config) { c.Logging.Level = "verbose" }, want: "logging.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Paths.ProjectDir = t.TempDir()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestCreateSampleProducesLoadableConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("IONBATCH_ENGINE", "")
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var decoded map[string]any
	if err := toml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("sample is not valid TOML: %v", err)
	}
	for _, section := range []string{"paths", "ingest", "ionization", "scheduler", "identification", "logging"} {
		if _, ok := decoded[section]; !ok {
			t.Fatalf("sample missing [%s] section", section)
		}
	}
	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample config failed to load: %v", err)
	}
}
