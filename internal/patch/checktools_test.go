package patch

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCheckToolsSkipsEmptyCommand(t *testing.T) {
	ct := NewCheckTools(t.TempDir(), CheckConfig{})
	res := ct.Typecheck(context.Background())
	if !res.OK || !res.Skipped {
		t.Fatalf("expected skipped ok result, got %+v", res)
	}
}

func TestCheckToolsRunsSuccessfulCommand(t *testing.T) {
	ct := NewCheckTools(t.TempDir(), CheckConfig{
		Lint:    []string{"true"},
		Timeout: 5 * time.Second,
	})
	res := ct.Lint(context.Background())
	if !res.OK {
		t.Fatalf("expected ok, got %+v", res)
	}
}

func TestCheckToolsRunsFailingCommand(t *testing.T) {
	ct := NewCheckTools(t.TempDir(), CheckConfig{
		Unit:    []string{"false"},
		Timeout: 5 * time.Second,
	})
	res := ct.Unit(context.Background())
	if res.OK {
		t.Fatal("expected not ok for a command exiting nonzero")
	}
}

func TestCheckToolsAllFoldsResults(t *testing.T) {
	ct := NewCheckTools(t.TempDir(), CheckConfig{
		Typecheck: []string{"true"},
		Lint:      []string{"true"},
		Unit:      []string{"false"},
		Timeout:   5 * time.Second,
	})
	report := ct.All(context.Background())
	if report.OK {
		t.Fatal("expected overall report not ok when unit fails")
	}
	if !report.TypecheckOK || !report.LintOK || report.UnitOK {
		t.Fatalf("unexpected per-check results: %+v", report)
	}
}

func TestNewCheckToolsDiscoversCommandsFromFrontendPackageJSON(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "frontend"), 0o755); err != nil {
		t.Fatal(err)
	}
	pkg, _ := json.Marshal(map[string]any{
		"scripts": map[string]string{"typecheck": "tsc --noEmit", "lint": "eslint ."},
	})
	if err := os.WriteFile(filepath.Join(dir, "frontend", "package.json"), pkg, 0o644); err != nil {
		t.Fatal(err)
	}

	ct := NewCheckTools(dir, CheckConfig{})
	if got := ct.Config.Typecheck; len(got) == 0 {
		t.Fatal("expected typecheck command discovered from package.json")
	}
	if got := ct.Config.Lint; len(got) == 0 {
		t.Fatal("expected lint command discovered from package.json")
	}
	if len(ct.Config.Unit) != 0 {
		t.Fatalf("expected no unit command when package.json has no \"test\" script, got %v", ct.Config.Unit)
	}
}

func TestNewCheckToolsKeepsExplicitConfigOverDiscovery(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "frontend"), 0o755); err != nil {
		t.Fatal(err)
	}
	pkg, _ := json.Marshal(map[string]any{"scripts": map[string]string{"lint": "eslint ."}})
	if err := os.WriteFile(filepath.Join(dir, "frontend", "package.json"), pkg, 0o644); err != nil {
		t.Fatal(err)
	}

	ct := NewCheckTools(dir, CheckConfig{Lint: []string{"custom-linter"}})
	if got := ct.Config.Lint; len(got) != 1 || got[0] != "custom-linter" {
		t.Fatalf("expected explicit lint command preserved, got %v", got)
	}
}

func TestCheckToolsMissingBinarySkips(t *testing.T) {
	ct := NewCheckTools(t.TempDir(), CheckConfig{
		Lint:    []string{"definitely-not-a-real-binary-xyz"},
		Timeout: 5 * time.Second,
	})
	res := ct.Lint(context.Background())
	if !res.Skipped {
		t.Fatalf("expected skip for missing binary, got %+v", res)
	}
}
