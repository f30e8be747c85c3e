package preflight

import (
	"fmt"
	"path/filepath"
	"strings"

	"ionbatch/internal/config"
	"ionbatch/internal/services"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Project directory", cfg.Paths.ProjectDir),
		CheckBinary("Identification engine", cfg.Identification.EngineBinary),
	}
	if cfg.Paths.LogDir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}
	if cfg.Paths.SummaryFile != "" {
		results = append(results, CheckDirectoryAccess("Summary directory", filepath.Dir(cfg.Paths.SummaryFile)))
	}
	return results
}

// Err returns a configuration error naming every failed check, or nil.
func Err(results []Result) error {
	var failed []string
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r.Name+": "+r.Detail)
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return services.Wrap(services.ErrConfiguration, "preflight", "check",
		fmt.Sprintf("%d check(s) failed: %s", len(failed), strings.Join(failed, "; ")), nil)
}
