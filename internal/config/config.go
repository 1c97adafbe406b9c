// ============================================================================
// rfm Configuration
// ============================================================================
//
// Package: internal/config
// File: config.go
// Purpose: YAML configuration for the task engine, scheduler partitions,
//          and metrics server.
//
// ============================================================================

package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete on-disk configuration.
type Config struct {
	Engine struct {
		Policy                           string `yaml:"policy"`
		MaxFailures                      int    `yaml:"max_failures"`
		KeepStageFiles                   bool   `yaml:"keep_stage_files"`
		SkipSanityCheck                  bool   `yaml:"skip_sanity_check"`
		SkipPerformanceCheck             bool   `yaml:"skip_performance_check"`
		StrictCaps                       bool   `yaml:"strict_caps"`
		CleanupFailuresCountTowardBudget bool   `yaml:"cleanup_failures_count_toward_budget"`
	} `yaml:"engine"`

	Partitions []PartitionConfig `yaml:"partitions"`

	Local struct {
		MaxJobs int `yaml:"rfm_max_jobs"`
	} `yaml:"local"`

	Metrics struct {
		Enabled bool `yaml:"enabled"`
		Port    int  `yaml:"port"`
	} `yaml:"metrics"`
}

// PartitionConfig describes one logical scheduling domain and, when remote,
// the address of the PartitionScheduler server fronting it.
type PartitionConfig struct {
	Name        string        `yaml:"name"`
	MaxJobs     int           `yaml:"max_jobs"`
	Address     string        `yaml:"address"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

// Load reads and parses the YAML configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	// Keys absent from the file keep these pre-set values.
	cfg.Engine.CleanupFailuresCountTowardBudget = true
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if cfg.Engine.Policy == "" {
		cfg.Engine.Policy = "serial"
	}
	return &cfg, nil
}
