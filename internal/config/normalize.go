package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeIngest()
	c.normalizeIonization()
	c.normalizeScheduler()
	c.normalizeIdentification()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.ProjectDir) == "" {
		c.Paths.ProjectDir = defaultProjectDir
	}
	if c.Paths.ProjectDir, err = expandPath(strings.TrimSpace(c.Paths.ProjectDir)); err != nil {
		return fmt.Errorf("paths.project_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.SummaryFile, err = expandPath(strings.TrimSpace(c.Paths.SummaryFile)); err != nil {
		return fmt.Errorf("paths.summary_file: %w", err)
	}
	return nil
}

func (c *Config) normalizeIngest() {
	c.Ingest.Elements = strings.TrimSpace(c.Ingest.Elements)
	if c.Ingest.MaxMZ < 0 {
		c.Ingest.MaxMZ = 0
	}
}

func (c *Config) normalizeIonization() {
	if len(c.Ionization.IonTypes) == 0 {
		return
	}
	types := make([]string, 0, len(c.Ionization.IonTypes))
	seen := make(map[string]struct{}, len(c.Ionization.IonTypes))
	for _, raw := range c.Ionization.IonTypes {
		value := strings.TrimSpace(raw)
		if value == "" {
			continue
		}
		if _, exists := seen[value]; exists {
			continue
		}
		seen[value] = struct{}{}
		types = append(types, value)
	}
	c.Ionization.IonTypes = types
}

func (c *Config) normalizeScheduler() {
	if c.Scheduler.InitialBuffer < 0 {
		c.Scheduler.InitialBuffer = 0
	}
	if c.Scheduler.InitialBuffer > 0 && c.Scheduler.MaxBuffer < c.Scheduler.InitialBuffer {
		c.Scheduler.MaxBuffer = c.Scheduler.InitialBuffer
	}
}

func (c *Config) normalizeIdentification() {
	c.Identification.EngineBinary = strings.TrimSpace(c.Identification.EngineBinary)
	if value, ok := os.LookupEnv(defaultEngineEnv); ok && strings.TrimSpace(value) != "" {
		if c.Identification.EngineBinary == "" || c.Identification.EngineBinary == defaultEngineBinary {
			c.Identification.EngineBinary = strings.TrimSpace(value)
		}
	}
	if c.Identification.EngineBinary == "" {
		c.Identification.EngineBinary = defaultEngineBinary
	}
	c.Identification.IsotopeMode = strings.ToLower(strings.TrimSpace(c.Identification.IsotopeMode))
	if c.Identification.IsotopeMode == "" {
		c.Identification.IsotopeMode = defaultIsotopeMode
	}
	if c.Identification.SummaryLimit < 0 {
		c.Identification.SummaryLimit = 0
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
