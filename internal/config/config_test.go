package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadParsesAllSections(t *testing.T) {
	path := writeTempConfig(t, `
engine:
  policy: async
  max_failures: 3
  keep_stage_files: true
  strict_caps: true

partitions:
  - name: gpu
    max_jobs: 8
    address: "gpu-scheduler:9443"
    dial_timeout: 5s
  - name: cpu
    max_jobs: 32

local:
  rfm_max_jobs: 4

metrics:
  enabled: true
  port: 9191
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Engine.Policy != "async" {
		t.Errorf("Engine.Policy = %q, want async", cfg.Engine.Policy)
	}
	if cfg.Engine.MaxFailures != 3 {
		t.Errorf("Engine.MaxFailures = %d, want 3", cfg.Engine.MaxFailures)
	}
	if !cfg.Engine.KeepStageFiles || !cfg.Engine.StrictCaps {
		t.Errorf("expected KeepStageFiles and StrictCaps true")
	}
	if len(cfg.Partitions) != 2 || cfg.Partitions[0].Name != "gpu" || cfg.Partitions[0].MaxJobs != 8 {
		t.Fatalf("unexpected partitions: %+v", cfg.Partitions)
	}
	if cfg.Local.MaxJobs != 4 {
		t.Errorf("Local.MaxJobs = %d, want 4", cfg.Local.MaxJobs)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Port != 9191 {
		t.Errorf("unexpected metrics config: %+v", cfg.Metrics)
	}
}

func TestLoadDefaultsPolicyToSerial(t *testing.T) {
	path := writeTempConfig(t, "engine:\n  max_failures: 1\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Engine.Policy != "serial" {
		t.Errorf("Engine.Policy = %q, want serial default", cfg.Engine.Policy)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
