package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ionbatch/internal/config"
	"ionbatch/internal/logging"
	"ionbatch/internal/services"
)

func TestNewFromConfigWritesRunLog(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Logging.Level = "warn"

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Debug("debug message reaches the file only", logging.Int("n", 1))

	matches, err := filepath.Glob(filepath.Join(cfg.Paths.LogDir, "ionbatch-*.log"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("expected one run log, got %v %v", matches, err)
	}
	content, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read run log: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(content), &entry); err != nil {
		t.Fatalf("expected JSON run log, got %q: %v", content, err)
	}
	if entry["level"] != "debug" || entry["msg"] != "debug message reaches the file only" {
		t.Fatalf("unexpected entry %v", entry)
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", entry)
	}
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-info.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message without caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(content), ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", content)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-debug.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message with caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), ".go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected unsupported format error")
	}
}

func TestWithContextAddsFields(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithInstanceIndex(ctx, 42)
	ctx = services.WithSourceFile(ctx, "/data/a.ms")
	ctx = services.WithStage(ctx, "identify")
	ctx = services.WithRequestID(ctx, "req-xyz")
	ctx = services.WithRunID(ctx, "run-1")

	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))
	logging.WithContext(ctx, base).Info("contextual log")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log: %v", err)
	}
	want := map[string]any{
		logging.FieldInstanceIndex: float64(42),
		logging.FieldSourceFile:    "/data/a.ms",
		logging.FieldStage:         "identify",
		logging.FieldCorrelationID: "req-xyz",
		logging.FieldRunID:         "run-1",
	}
	for key, value := range want {
		if entry[key] != value {
			t.Fatalf("field %s = %v, want %v", key, entry[key], value)
		}
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	logging.WarnWithContext(logger, "file skipped", "ingest_skip", logging.String(logging.FieldErrorHint, "check the format"))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log: %v", err)
	}
	if entry[logging.FieldEventType] != "ingest_skip" {
		t.Fatalf("expected event type, got %v", entry)
	}
	if entry[logging.FieldErrorHint] != "check the format" {
		t.Fatalf("expected caller hint preserved, got %v", entry)
	}
	if entry[logging.FieldImpact] == nil {
		t.Fatalf("expected default impact, got %v", entry)
	}
}

func TestPruneRunLogs(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "ionbatch-20200101T000000.log")
	current := filepath.Join(dir, "ionbatch-20200102T000000.log")
	unrelated := filepath.Join(dir, "notes.log")
	for _, path := range []string{old, current, unrelated} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		stale := time.Now().AddDate(0, 0, -10)
		if err := os.Chtimes(path, stale, stale); err != nil {
			t.Fatalf("chtimes %s: %v", path, err)
		}
	}

	removed, err := logging.PruneRunLogs(logging.NewNop(), dir, 7, current)
	if err != nil {
		t.Fatalf("PruneRunLogs returned error: %v", err)
	}
	if len(removed) != 1 || filepath.Base(removed[0]) != filepath.Base(old) {
		t.Fatalf("expected only the stale run log removed, got %v", removed)
	}
	for _, keep := range []string{current, unrelated} {
		if _, err := os.Stat(keep); err != nil {
			t.Fatalf("expected %s kept: %v", keep, err)
		}
	}
	if removed, _ := logging.PruneRunLogs(nil, dir, 0, ""); removed != nil {
		t.Fatal("expected retention 0 to disable pruning")
	}
}
