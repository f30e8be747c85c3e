package logging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-multierror"
)

// runLogPattern matches the per-run log files created by NewFromConfig.
const runLogPattern = "ionbatch-*.log"

// PruneRunLogs removes run logs in dir older than retentionDays, keeping
// current. A retentionDays value of 0 disables pruning. Removal failures are
// combined into the returned error.
func PruneRunLogs(logger *slog.Logger, dir string, retentionDays int, current string) ([]string, error) {
	if retentionDays <= 0 || dir == "" {
		return nil, nil
	}
	matches, err := filepath.Glob(filepath.Join(dir, runLogPattern))
	if err != nil {
		return nil, fmt.Errorf("list run logs: %w", err)
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	if abs, err := filepath.Abs(current); err == nil {
		current = abs
	}

	var (
		removed []string
		result  *multierror.Error
	)
	for _, path := range matches {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		if path == current {
			continue
		}
		info, err := os.Stat(path)
		if err != nil || info.IsDir() || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			result = multierror.Append(result, fmt.Errorf("remove %s: %w", path, err))
			continue
		}
		removed = append(removed, path)
	}
	if logger != nil && len(removed) > 0 {
		logger.Debug("old run logs pruned",
			Int("count", len(removed)),
			Int("retention_days", retentionDays),
			String(FieldEventType, "log_pruned"),
		)
	}
	return removed, result.ErrorOrNil()
}
