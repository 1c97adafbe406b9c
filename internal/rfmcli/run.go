// ============================================================================
// rfm CLI - Engine Wiring and "run" Command
// ============================================================================
//
// Package: internal/rfmcli
// File: run.go
// Purpose: Translates the YAML config into an engine.Config, builds the
//          configured policy, registers the metrics collector and a stats
//          listener, drives the case list to completion, and prints a
//          summary: construct the engine, optionally start the metrics
//          HTTP server in a goroutine, run to completion or until a
//          shutdown signal, then report.
//
// ============================================================================

package rfmcli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/regtest/rfmrun/internal/config"
	"github.com/regtest/rfmrun/internal/engine"
	"github.com/regtest/rfmrun/internal/localsched"
	"github.com/regtest/rfmrun/internal/metrics"
	"github.com/regtest/rfmrun/internal/rpcsched"
	"github.com/regtest/rfmrun/internal/rpcsched/rfmv1"
	"github.com/regtest/rfmrun/pkg/rfm"
)

// engineConfig bundles the parsed YAML plus the engine.Config it translates
// to, so "status" can report the former without re-deriving schedulers.
type engineConfig struct {
	raw *config.Config
	eng engine.Config
}

// runSummary is what "status" reports about the most recently completed
// run in this process.
type runSummary struct {
	total, succeeded, failed, skipped int
}

func loadEngineConfig(path string) (*engineConfig, error) {
	raw, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	partitions := make(map[string]rfm.Partition, len(raw.Partitions))
	for _, p := range raw.Partitions {
		sched, err := schedulerFor(p)
		if err != nil {
			return nil, err
		}
		partitions[p.Name] = rfm.Partition{Name: p.Name, MaxJobs: p.MaxJobs, Scheduler: sched}
	}

	localJobs := raw.Local.MaxJobs
	if localJobs < 1 {
		localJobs = 1
	}

	eng := engine.Config{
		MaxFailures:                      raw.Engine.MaxFailures,
		KeepStageFiles:                   raw.Engine.KeepStageFiles,
		SkipSanityCheck:                  raw.Engine.SkipSanityCheck,
		SkipPerformanceCheck:             raw.Engine.SkipPerformanceCheck,
		StrictCaps:                       raw.Engine.StrictCaps,
		CleanupFailuresCountTowardBudget: raw.Engine.CleanupFailuresCountTowardBudget,
		LocalMaxJobs:                     raw.Local.MaxJobs,
		LocalScheduler:                   localsched.New(localJobs, 200*time.Millisecond, 0),
		Partitions:                       partitions,
		SchedOptions:                     rfm.SchedOptions{},
	}

	return &engineConfig{raw: raw, eng: eng}, nil
}

// schedulerFor builds a partition's scheduler: a local simulated scheduler
// by default, or a gRPC client dialed against Address when one is
// configured (the remote-partition path, internal/rpcsched).
func schedulerFor(p config.PartitionConfig) (rfm.Scheduler, error) {
	if p.Address == "" {
		workers := p.MaxJobs
		if workers < 1 {
			workers = 1
		}
		return localsched.New(workers, 200*time.Millisecond, 0), nil
	}

	// grpc.NewClient does not dial eagerly, so DialTimeout bounds each Poll
	// round trip instead of this call.
	conn, err := grpc.NewClient(p.Address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("rfmcli: dial partition %s at %s: %w", p.Name, p.Address, err)
	}

	return rpcsched.NewClient(rfmv1.NewPartitionSchedulerClient(conn), p.DialTimeout), nil
}

func runCases(cmd *cobra.Command, caseFile string) error {
	cfg, err := loadEngineConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cases, err := LoadCases(caseFile)
	if err != nil {
		return fmt.Errorf("failed to load case file: %w", err)
	}

	var policy engine.Policy
	switch cfg.raw.Engine.Policy {
	case "async":
		policy = engine.NewAsyncPolicy(cfg.eng)
	default:
		policy = engine.NewSerialPolicy(cfg.eng)
	}

	stats := engine.NewStats()
	policy.Bus().Register(stats)

	if cfg.raw.Metrics.Enabled {
		policy.Bus().Register(metrics.NewCollector())
		go func() {
			if err := metrics.StartServer(cfg.raw.Metrics.Port); err != nil {
				fmt.Fprintf(os.Stderr, "metrics server error: %v\n", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for _, c := range cases {
		if err := policy.Submit(ctx, c); err != nil {
			return fmt.Errorf("submit %s: %w", c.Key(), err)
		}
	}

	if err := policy.Drain(ctx); err != nil {
		return fmt.Errorf("drain: %w", err)
	}
	if err := policy.Exit(ctx); err != nil {
		return fmt.Errorf("exit: %w", err)
	}

	lastRun = &runSummary{
		total:     stats.Total(),
		succeeded: stats.Succeeded,
		failed:    stats.Failed,
		skipped:   stats.Skipped,
	}

	fmt.Printf("ran %d case(s): %d succeeded, %d failed, %d skipped\n",
		lastRun.total, lastRun.succeeded, lastRun.failed, lastRun.skipped)

	if lastRun.failed > 0 {
		return fmt.Errorf("%d case(s) failed", lastRun.failed)
	}
	return nil
}
