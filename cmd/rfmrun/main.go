// ============================================================================
// rfmrun - Main Entry Point
// ============================================================================
//
// File: cmd/rfmrun/main.go
// Purpose: Application entry point: build the Cobra command tree, inject
//          build-time version info, recover panics, execute.
//
// ============================================================================

package main

import (
	"fmt"
	"os"

	"github.com/regtest/rfmrun/internal/rfmcli"
	"github.com/regtest/rfmrun/pkg/rfm"
)

var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "fatal error: %v\n", r)
			os.Exit(1)
		}
	}()

	root := rfmcli.BuildCLI()
	root.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if rfm.IsAbort(err) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
