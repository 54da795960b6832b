package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/phobologic/repoclassify/internal/config"
)

// TestInitDryRun verifies that --dry-run prints the default config without
// writing anything.
func TestInitDryRun(t *testing.T) {
	t.Parallel()

	out, _, err := runCmd(t, "", "init", "--dry-run")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	for _, want := range []string{"forge:", "parse_policy: fallback", "format: text"} {
		if !strings.Contains(out, want) {
			t.Errorf("dry-run output missing %q:\n%s", want, out)
		}
	}
}

// TestInitWritesLoadableConfig verifies that the written file loads back into
// the defaults.
func TestInitWritesLoadableConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), config.FileName)
	_, stderr, err := runCmd(t, "", "init", path)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(stderr, "wrote default config to "+path) {
		t.Errorf("stderr: %s", stderr)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("written config invalid: %v", err)
	}
	if cfg.Source.Mode != config.Default().Source.Mode {
		t.Errorf("Mode = %q", cfg.Source.Mode)
	}
}

// TestInitKeepsExistingFile verifies that an existing file is only replaced
// with --force.
func TestInitKeepsExistingFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), config.FileName)
	if err := os.WriteFile(path, []byte("logging:\n  level: debug\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, _, err := runCmd(t, "", "init", path)
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("error = %v, want already exists", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "logging:\n  level: debug\n" {
		t.Errorf("existing file modified:\n%s", data)
	}

	if _, _, err := runCmd(t, "", "init", "--force", path); err != nil {
		t.Fatalf("run --force: %v", err)
	}
	data, _ = os.ReadFile(path)
	if !strings.Contains(string(data), "parse_policy: fallback") {
		t.Errorf("file not overwritten:\n%s", data)
	}
}

// TestInitUsesConfigForSubsequentRuns verifies that a written config is
// picked up through --config.
func TestInitUsesConfigForSubsequentRuns(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	path := filepath.Join(tmp, config.FileName)
	if _, _, err := runCmd(t, "", "init", path); err != nil {
		t.Fatalf("init: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	updated := strings.Replace(string(data), "format: text", "format: toon", 1)
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		t.Fatal(err)
	}

	dir := createSampleRepo(t)
	out, _, err := runCmd(t, "", "--config", path, "analyze", dir)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if !strings.Contains(out, "categories[3]{category,kind,name,file}:") {
		t.Errorf("config format not applied:\n%s", out)
	}
}
