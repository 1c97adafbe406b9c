package rfmcli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/regtest/rfmrun/pkg/rfm"
)

func writeTempCaseFile(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "cases.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write temp case file: %v", err)
	}
	return path
}

func TestLoadCasesBuildsPipelines(t *testing.T) {
	path := writeTempCaseFile(t, `[
		{"check": "alpha", "partition": "cpu", "environment": "gnu", "kind": "full",
		 "compile_polls": 2, "run_polls": 1},
		{"check": "beta", "partition": "cpu", "environment": "gnu", "kind": "run_only",
		 "deps": [{"check": "alpha", "partition": "cpu", "environment": "gnu"}],
		 "run_polls": 3, "run_fails": true}
	]`)

	cases, err := LoadCases(path)
	if err != nil {
		t.Fatalf("LoadCases: %v", err)
	}
	if len(cases) != 2 {
		t.Fatalf("len(cases) = %d, want 2", len(cases))
	}

	if cases[0].Pipeline == nil {
		t.Fatal("expected a pipeline on case 0")
	}
	if cases[0].Pipeline.Kind() != rfm.KindFull {
		t.Errorf("case 0 kind = %v, want KindFull", cases[0].Pipeline.Kind())
	}
	if cases[1].Pipeline.Kind() != rfm.KindRunOnly {
		t.Errorf("case 1 kind = %v, want KindRunOnly", cases[1].Pipeline.Kind())
	}
	if len(cases[1].Deps) != 1 || cases[1].Deps[0].Check != "alpha" {
		t.Errorf("case 1 deps = %+v, want one dep on alpha", cases[1].Deps)
	}
}

func TestLoadCasesRejectsUnknownKind(t *testing.T) {
	path := writeTempCaseFile(t, `[{"check": "x", "kind": "bogus"}]`)

	if _, err := LoadCases(path); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestLoadCasesMissingFile(t *testing.T) {
	if _, err := LoadCases(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing case file")
	}
}
