package project_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ionbatch/internal/outcome"
	"ionbatch/internal/project"
)

type countingSink struct {
	writes   int
	closes   int
	writeErr error
	closeErr error
}

func (s *countingSink) Write(context.Context, outcome.Record) error {
	s.writes++
	return s.writeErr
}

func (s *countingSink) Close() error {
	s.closes++
	return s.closeErr
}

func TestFanoutWritesEverySink(t *testing.T) {
	failing := &countingSink{writeErr: errors.New("disk full"), closeErr: errors.New("close failed")}
	healthy := &countingSink{}
	fan := project.NewFanout(failing, nil, healthy)

	err := fan.Write(context.Background(), outcome.Record{Index: 1, Kind: outcome.KindNoResults})
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected combined write error, got %v", err)
	}
	if failing.writes != 1 || healthy.writes != 1 {
		t.Fatalf("expected every sink written once, got %d/%d", failing.writes, healthy.writes)
	}

	if err := fan.Close(); err == nil || !strings.Contains(err.Error(), "close failed") {
		t.Fatalf("expected close error, got %v", err)
	}
	if err := fan.Close(); err != nil {
		t.Fatalf("second close should be a no-op, got %v", err)
	}
	if failing.closes != 1 || healthy.closes != 1 {
		t.Fatalf("expected sinks closed exactly once, got %d/%d", failing.closes, healthy.closes)
	}
	if err := fan.Write(context.Background(), outcome.Record{Index: 2}); err == nil {
		t.Fatal("expected write after close to fail")
	}
}

func TestTSVSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "summary.tsv")
	sink, err := project.NewTSVSink(path)
	if err != nil {
		t.Fatalf("NewTSVSink returned error: %v", err)
	}
	if err := sink.Write(context.Background(), successRecord(4)); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	if err := sink.Write(context.Background(), outcome.Record{Index: 5, Kind: outcome.KindError, Message: "engine\tcrashed"}); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read summary: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus two rows, got %q", lines)
	}
	if !strings.HasPrefix(lines[0], "index\tname") {
		t.Fatalf("unexpected header %q", lines[0])
	}
	row := strings.Split(lines[1], "\t")
	if row[0] != "4" || row[3] != "success" || row[4] != "C8H10N4O2" || row[6] != "12.5000" || row[7] != "2" {
		t.Fatalf("unexpected success row %q", row)
	}
	if got := strings.Split(lines[2], "\t"); len(got) != 9 || got[8] != "engine crashed" {
		t.Fatalf("expected escaped message, got %q", got)
	}
}
