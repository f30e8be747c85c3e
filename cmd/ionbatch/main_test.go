package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pelletier/go-toml/v2"

	"ionbatch/internal/chem"
	"ionbatch/internal/config"
	"ionbatch/internal/identify"
	"ionbatch/internal/services"
	"ionbatch/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
	input      string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, testsupport.WithStubbedEngine())
	cfg.Logging.Level = "error"
	base := testsupport.BaseDir(cfg)
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	configPath := filepath.Join(homeDir, ".config", "ionbatch", "config.toml")
	writeTestConfig(t, configPath, cfg)

	input := testsupport.WriteSpectrumFile(t, base, "input/batch.ms",
		testsupport.Compound{Name: "caffeine", Formula: "C8H10N4O2", Ionization: "[M+H]+", ParentMass: 195.0877},
		testsupport.Compound{Name: "unknown", Ionization: "[M+H]+", ParentMass: 301.1410},
	)
	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base, input: input}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func useEngine(t *testing.T, engine identify.Engine) {
	t.Helper()
	engineOverride = engine
	t.Cleanup(func() { engineOverride = nil })
}

func caffeineEngine() *testsupport.StubEngine {
	return &testsupport.StubEngine{Answer: func(_ context.Context, handle identify.Handle) ([]identify.Candidate, error) {
		if handle.Instance.Experiment.Name != "caffeine" {
			return nil, nil
		}
		return []identify.Candidate{
			{Formula: chem.MustParseFormula("C8H10N4O2"), IonType: chem.IonMH, Score: 12.5},
			{Formula: chem.MustParseFormula("C7H6N8O"), IonType: chem.IonMH, Score: 3.1},
		}, nil
	}}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate", "--check"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Identification engine:")
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected existing config to be refused without --overwrite")
	}
}

func TestConfigShowAppliesLogOverrides(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"--log-level", "debug", "config", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, env.configPath)

	var shown config.Config
	body := out[strings.Index(out, "\n")+1:]
	if err := toml.Unmarshal([]byte(body), &shown); err != nil {
		t.Fatalf("decode shown config: %v", err)
	}
	if shown.Logging.Level != "debug" {
		t.Fatalf("expected log level override, got %q", shown.Logging.Level)
	}
	if shown.Paths.ProjectDir != env.cfg.Paths.ProjectDir {
		t.Fatalf("expected project dir %q, got %q", env.cfg.Paths.ProjectDir, shown.Paths.ProjectDir)
	}
}

func TestRunThenShow(t *testing.T) {
	env := setupCLITestEnv(t)
	useEngine(t, caffeineEngine())
	summary := filepath.Join(env.baseDir, "summary.tsv")

	out, _, err := runCLI(t, []string{"run", "--initial-buffer", "1", "--max-buffer", "1", "--summary", summary, env.input}, env.configPath)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	requireContains(t, out, "C8H10N4O2")
	requireContains(t, out, "Processed 2 instances")
	if _, err := os.Stat(summary); err != nil {
		t.Fatalf("expected summary file: %v", err)
	}

	out, _, err = runCLI(t, []string{"show"}, env.configPath)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	requireContains(t, out, "caffeine")
	requireContains(t, out, "Success")
	requireContains(t, out, "No Results")

	out, _, err = runCLI(t, []string{"show", "--status", "no_results", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("show --status: %v", err)
	}
	var views []outcomeView
	if err := json.Unmarshal([]byte(out), &views); err != nil {
		t.Fatalf("decode show json: %v\n%s", err, out)
	}
	var names []string
	for _, v := range views {
		names = append(names, v.Name)
	}
	if diff := cmp.Diff([]string{"unknown"}, names); diff != "" {
		t.Fatalf("filtered names mismatch (-want +got):\n%s", diff)
	}

	out, _, err = runCLI(t, []string{"show", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("show 1: %v", err)
	}
	requireContains(t, out, "C7H6N8O")

	out, _, err = runCLI(t, []string{"runs"}, env.configPath)
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	requireContains(t, out, "completed")
}

func TestRunWithEngineBinary(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"run", env.input}, env.configPath); err != nil {
		t.Fatalf("run: %v", err)
	}
	out, _, err := runCLI(t, []string{"show", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("show --json: %v", err)
	}
	var views []outcomeView
	if err := json.Unmarshal([]byte(out), &views); err != nil {
		t.Fatalf("decode show json: %v\n%s", err, out)
	}
	if len(views) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(views))
	}
	for _, v := range views {
		if v.Status != "no_results" {
			t.Fatalf("expected no_results from the stub engine, got %+v", v)
		}
	}
}

func TestRunRejectsBadInvocations(t *testing.T) {
	env := setupCLITestEnv(t)
	useEngine(t, caffeineEngine())

	cases := []struct {
		name string
		args []string
	}{
		{name: "no inputs", args: []string{"run"}},
		{name: "invalid ion type", args: []string{"run", "--ion", "[M+Zz]+", env.input}},
		{name: "negative cores", args: []string{"run", "--cores", "-1", env.input}},
		{name: "bad formula", args: []string{"run", "--formula", "C8H10N4O2,Qq", env.input}},
		{name: "missing input", args: []string{"run", filepath.Join(env.baseDir, "missing.ms")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := runCLI(t, tc.args, env.configPath)
			if err == nil {
				t.Fatal("expected error")
			}
			if !services.IsFatal(err) {
				t.Fatalf("expected fatal classification, got %v", err)
			}
		})
	}
}

func TestShowMissingProject(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"show"}, env.configPath)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, _, err := runCLI(t, []string{"show", "--status", "bogus"}, env.configPath); err == nil {
		t.Fatal("expected unknown status to fail")
	}
}
