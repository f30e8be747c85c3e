package config

import (
	"errors"
	"fmt"
	"strings"

	"ionbatch/internal/chem"
	"ionbatch/internal/identify"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateIngest(); err != nil {
		return err
	}
	if err := c.validateIonization(); err != nil {
		return err
	}
	if err := c.validateScheduler(); err != nil {
		return err
	}
	if err := c.validateIdentification(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.ProjectDir) == "" {
		return errors.New("paths.project_dir must be set")
	}
	return nil
}

func (c *Config) validateIngest() error {
	if c.Ingest.MaxMZ < 0 {
		return errors.New("ingest.max_mz must be >= 0")
	}
	if c.Ingest.Elements != "" {
		if _, err := chem.ParseElementConstraints(c.Ingest.Elements); err != nil {
			return fmt.Errorf("ingest.elements: %w", err)
		}
	}
	return nil
}

func (c *Config) validateIonization() error {
	for _, raw := range c.Ionization.IonTypes {
		ion, err := chem.ParseIonType(raw)
		if err != nil {
			return fmt.Errorf("ionization.ion_types: %w", err)
		}
		if ion.IsIonizationUnknown() {
			return fmt.Errorf("ionization.ion_types: %q does not name an ionization", raw)
		}
	}
	return nil
}

func (c *Config) validateScheduler() error {
	if c.Scheduler.InitialBuffer < 0 {
		return errors.New("scheduler.initial_buffer must be >= 0")
	}
	if c.Scheduler.MaxBuffer < 0 {
		return errors.New("scheduler.max_buffer must be >= 0")
	}
	if c.Scheduler.InitialBuffer > 0 && c.Scheduler.MaxBuffer < c.Scheduler.InitialBuffer {
		return errors.New("scheduler.max_buffer must be >= scheduler.initial_buffer")
	}
	if c.Scheduler.Cores < 0 {
		return errors.New("scheduler.cores must be >= 0")
	}
	return nil
}

func (c *Config) validateIdentification() error {
	if strings.TrimSpace(c.Identification.EngineBinary) == "" {
		return errors.New("identification.engine_binary must be set (or set IONBATCH_ENGINE)")
	}
	if err := ensureNonNegativeMap(map[string]int{
		"identification.instance_timeout": c.Identification.InstanceTimeout,
		"identification.tree_timeout":     c.Identification.TreeTimeout,
		"identification.summary_limit":    c.Identification.SummaryLimit,
	}); err != nil {
		return err
	}
	if c.Identification.Candidates < 1 {
		return errors.New("identification.candidates must be >= 1")
	}
	if _, err := identify.ParseIsotopeMode(c.Identification.IsotopeMode); err != nil {
		return fmt.Errorf("identification.isotope_mode: %w", err)
	}
	if c.Identification.PPMMax <= 0 {
		return errors.New("identification.ppm_max must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func ensureNonNegativeMap(values map[string]int) error {
	for key, value := range values {
		if value < 0 {
			return fmt.Errorf("%s must be >= 0", key)
		}
	}
	return nil
}
