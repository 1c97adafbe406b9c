// ============================================================================
// rfm CLI - Command Line Interface
// ============================================================================
//
// Package: internal/rfmcli
// File: cli.go
// Purpose: Cobra command tree for the task engine driver: a root command
//          with a persistent --config/-c flag, "run" and "status"
//          subcommands, and SIGINT/SIGTERM graceful shutdown around the
//          long-running command.
//
// ============================================================================

package rfmcli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var configFile string

// lastRun holds the summary of the most recently completed run, so "status"
// has something to report without a separate daemon: there is no
// persistent controller process here, so status only ever describes the
// configuration and the last run in this process.
var lastRun *runSummary

// BuildCLI assembles the root command and its subcommands.
func BuildCLI() *cobra.Command {
	root := &cobra.Command{
		Use:   "rfmrun",
		Short: "rfmrun: a regression-test execution engine and scheduler driver",
		Long: `rfmrun drives a set of regression-test cases through compile and run
stages on local or remote partition schedulers, honouring per-case
dependencies, admission caps, and a global failure budget.`,
		Version: "1.0.0",
	}

	root.PersistentFlags().StringVarP(&configFile, "config", "c", "configs/default.yaml", "config file path")

	root.AddCommand(buildRunCommand())
	root.AddCommand(buildStatusCommand())

	return root
}

func buildRunCommand() *cobra.Command {
	var caseFile string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Drive a case list to completion",
		Long:  "Load cases from a JSON file and run them to completion under the configured policy",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCases(cmd, caseFile)
		},
	}

	cmd.Flags().StringVarP(&caseFile, "file", "f", "", "JSON case-list file (required)")
	cmd.MarkFlagRequired("file")

	return cmd
}

func buildStatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show configuration and last-run status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showStatus()
		},
	}
	return cmd
}

func showStatus() error {
	cfg, err := loadEngineConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════╗")
	fmt.Println("║                   rfmrun Engine Status                     ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════╝")
	fmt.Println()

	fmt.Println("Configuration:")
	fmt.Printf("  └─ Config File:    %s\n", configFile)
	fmt.Printf("  └─ Policy:         %s\n", cfg.raw.Engine.Policy)
	fmt.Printf("  └─ Max Failures:   %d\n", cfg.raw.Engine.MaxFailures)
	fmt.Printf("  └─ Strict Caps:    %v\n", cfg.raw.Engine.StrictCaps)
	fmt.Println()

	fmt.Println("Partitions:")
	for _, p := range cfg.raw.Partitions {
		kind := "local simulation"
		if p.Address != "" {
			kind = fmt.Sprintf("remote at %s", p.Address)
		}
		fmt.Printf("  ├─ %-10s max_jobs=%-4d %s\n", p.Name, p.MaxJobs, kind)
	}
	fmt.Println()

	fmt.Println("Metrics:")
	if cfg.raw.Metrics.Enabled {
		fmt.Printf("  └─ Status: enabled on http://localhost:%d/metrics\n", cfg.raw.Metrics.Port)
	} else {
		fmt.Println("  └─ Status: disabled")
	}
	fmt.Println()

	if lastRun == nil {
		fmt.Println("Last Run: none in this process")
		fmt.Println()
		return nil
	}

	fmt.Println("Last Run:")
	fmt.Printf("  ├─ Submitted: %d\n", lastRun.total)
	fmt.Printf("  ├─ Succeeded: %d\n", lastRun.succeeded)
	fmt.Printf("  ├─ Failed:    %d\n", lastRun.failed)
	fmt.Printf("  └─ Skipped:   %d\n", lastRun.skipped)
	fmt.Println()

	return nil
}
