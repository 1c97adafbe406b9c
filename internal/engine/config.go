// ============================================================================
// rfm Engine - Shared Policy Configuration
// ============================================================================
//
// Package: internal/engine
// File: config.go
// Purpose: Configuration shared by the serial and asynchronous policies.
//
// ============================================================================

package engine

import (
	"fmt"

	"github.com/regtest/rfmrun/pkg/rfm"
)

// Config holds the external configuration options plus two policy choices
// that are exposed as configurable flags rather than baked in.
type Config struct {
	// MaxFailures is the global failure budget; <= 0 disables it.
	MaxFailures int
	// KeepStageFiles, if true, tells Cleanup to keep the staging directory.
	KeepStageFiles bool
	SkipSanityCheck      bool
	SkipPerformanceCheck bool

	// StrictCaps switches admission from the default inclusive `<= cap`
	// (effective capacity cap+1) to strict `<`.
	StrictCaps bool

	// CleanupFailuresCountTowardBudget controls whether a cleanup() failure
	// increments the global failure counter. config.Load sets it to true
	// when the YAML file does not mention it; the struct's zero value is
	// false.
	CleanupFailuresCountTowardBudget bool

	// LocalMaxJobs is rfm_max_jobs: the cap on the local queue.
	LocalMaxJobs int
	// LocalScheduler polls jobs dispatched to the driver host.
	LocalScheduler rfm.Scheduler

	// Partitions maps partition name to its scheduler and job cap. Every
	// partition name a submitted case references must be present.
	Partitions map[string]rfm.Partition

	SchedFlexAllocNodes int
	SchedOptions        rfm.SchedOptions
}

// partition looks up the partition a case targets, failing loudly if it
// was never registered — an unregistered partition has no known cap or
// scheduler and the engine cannot safely admit work onto it.
func (c Config) partition(name string) (rfm.Partition, error) {
	p, ok := c.Partitions[name]
	if !ok {
		return rfm.Partition{}, fmt.Errorf("rfm: unknown partition %q", name)
	}
	return p, nil
}
