package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains project, log and summary locations.
type Paths struct {
	ProjectDir  string `toml:"project_dir"`
	LogDir      string `toml:"log_dir"`
	SummaryFile string `toml:"summary_file"`
}

// Ingest contains configuration for reading input spectra.
type Ingest struct {
	MaxMZ          float64 `toml:"max_mz"`
	MostIntenseMS2 bool    `toml:"most_intense_ms2"`
	Elements       string  `toml:"elements"`
	AutoElements   bool    `toml:"auto_elements"`
}

// Ionization contains defaults for precursor ion type resolution.
type Ionization struct {
	IonTypes   []string `toml:"ion_types"`
	AutoCharge bool     `toml:"auto_charge"`
	TrustMS1   bool     `toml:"trust_ms1"`
}

// Scheduler contains buffer watermarks and worker count. An initial buffer of
// zero loads every instance before submitting.
type Scheduler struct {
	InitialBuffer int `toml:"initial_buffer"`
	MaxBuffer     int `toml:"max_buffer"`
	Cores         int `toml:"cores"`
}

// Identification contains the external engine and per-job limits.
type Identification struct {
	EngineBinary    string   `toml:"engine_binary"`
	EngineArgs      []string `toml:"engine_args"`
	InstanceTimeout int      `toml:"instance_timeout"` // seconds, 0 disables
	TreeTimeout     int      `toml:"tree_timeout"`     // seconds, 0 disables
	Candidates      int      `toml:"candidates"`
	IsotopeMode     string   `toml:"isotope_mode"`
	PPMMax          float64  `toml:"ppm_max"`
	SummaryLimit    int      `toml:"summary_limit"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for ionbatch.
//
// Configuration sections by subsystem:
//   - Paths: project store, log directory and optional TSV summary
//   - Ingest: m/z cutoff, MS2 reduction and element constraints
//   - Ionization: ion type defaults for the resolver
//   - Scheduler: buffer watermarks and worker count
//   - Identification: engine binary and per-job limits
//   - Logging: log format, level, and retention
type Config struct {
	Paths          Paths          `toml:"paths"`
	Ingest         Ingest         `toml:"ingest"`
	Ionization     Ionization     `toml:"ionization"`
	Scheduler      Scheduler      `toml:"scheduler"`
	Identification Identification `toml:"identification"`
	Logging        Logging        `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/ionbatch/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("ionbatch.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// Normalize re-applies path expansion and defaults, for use after command line
// overrides were written into a loaded config.
func (c *Config) Normalize() error {
	return c.normalize()
}

// EnsureDirectories creates the project and log directories and the parent of
// the summary file.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.ProjectDir, c.Paths.LogDir}
	if c.Paths.SummaryFile != "" {
		dirs = append(dirs, filepath.Dir(c.Paths.SummaryFile))
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// InstanceTimeout returns the per-instance wall clock limit, zero when disabled.
func (c *Config) InstanceTimeout() time.Duration {
	return time.Duration(c.Identification.InstanceTimeout) * time.Second
}

// TreeTimeout returns the per-tree computation limit, zero when disabled.
func (c *Config) TreeTimeout() time.Duration {
	return time.Duration(c.Identification.TreeTimeout) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
