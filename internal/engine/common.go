// ============================================================================
// rfm Engine - Shared Driver Plumbing
// ============================================================================
//
// Package: internal/engine
// File: common.go
// Purpose: Pieces shared by the serial and asynchronous policies: the
//          Policy contract callers drive cases through, the global abort
//          fan-out, and queue/scheduler selection (build_locally affects
//          compile only, local affects both compile and run).
//
// ============================================================================

package engine

import (
	"context"
	"errors"

	"github.com/regtest/rfmrun/internal/admission"
	"github.com/regtest/rfmrun/internal/depgraph"
	"github.com/regtest/rfmrun/internal/events"
	"github.com/regtest/rfmrun/internal/retire"
	"github.com/regtest/rfmrun/internal/task"
	"github.com/regtest/rfmrun/pkg/rfm"
)

// Policy is the contract both execution policies satisfy.
type Policy interface {
	// Bus returns the event bus, so callers can register additional
	// listeners (metrics, logging) before submitting any case.
	Bus() *events.Bus
	// Submit registers a case for execution. The serial policy blocks
	// until the case reaches a terminal state; the asynchronous policy
	// returns promptly and the case advances during Drain.
	Submit(ctx context.Context, c rfm.Case) error
	// Drain runs the engine until every submitted case reaches a terminal
	// state. It returns nil on success or an *rfm.AbortError on a global
	// abort.
	Drain(ctx context.Context) error
	// Exit performs a final retirement sweep, cleaning up any task still
	// sitting in the retired list.
	Exit(ctx context.Context) error
}

// newAdmission builds the admission controller shared by both policies.
func newAdmission(cfg Config) *admission.Controller {
	return admission.New(cfg.LocalMaxJobs, cfg.StrictCaps)
}

// wireBudget registers the failure-budget listener on bus and returns it so
// callers (tests, metrics) can inspect the running count.
func wireBudget(bus *events.Bus, cfg Config) *events.Budget {
	b := events.NewBudget(cfg.MaxFailures, cfg.CleanupFailuresCountTowardBudget)
	bus.Register(b)
	return b
}

// classify interprets the return value of a Task pipeline-phase call:
//   - nil: the phase succeeded, the caller should proceed.
//   - task.ErrTaskExit: the task already recorded its own failure/skip and
//     fanned it out to listeners; the caller should stop driving this task
//     but report no error upward (progress was still made).
//   - anything else: an abort-class signal (the failure budget or a fatal
//     listener error) that must tear down the whole drain.
func classify(err error) (proceed bool, abort error) {
	if err == nil {
		return true, nil
	}
	if errors.Is(err, task.ErrTaskExit) {
		return false, nil
	}
	return false, err
}

// queueFor resolves which admission queue a stage transition should use.
// local selects the local queue (the driver host); otherwise the named
// partition's queue is used, created on first reference with its
// configured cap.
func queueFor(cfg Config, adm *admission.Controller, local bool, partitionName string) (*admission.Queue, error) {
	if local {
		return adm.Local(), nil
	}
	p, err := cfg.partition(partitionName)
	if err != nil {
		return nil, err
	}
	return adm.Partition(p.Name, p.MaxJobs), nil
}

// schedulerFor resolves which scheduler a wait loop should poll.
func schedulerFor(cfg Config, local bool, partitionName string) (rfm.Scheduler, error) {
	if local {
		return cfg.LocalScheduler, nil
	}
	p, err := cfg.partition(partitionName)
	if err != nil {
		return nil, err
	}
	return p.Scheduler, nil
}

// abortEverything fans cause out to every task in idx via Abort and wraps
// cause as an *rfm.AbortError, the value both policies return from
// Drain/Submit on a global abort.
func abortEverything(idx *task.Index, cause error) error {
	for _, t := range idx.All() {
		t.Abort(cause)
	}
	if _, ok := cause.(*rfm.AbortError); ok {
		return cause
	}
	return &rfm.AbortError{Cause: cause}
}

// oracleFor is a tiny constructor alias shared by serial.go/async.go.
func oracleFor(idx *task.Index) *depgraph.Oracle { return depgraph.New(idx) }

// newRetired is likewise a one-line alias kept for readability at call
// sites in serial.go/async.go.
func newRetired() *retire.List { return retire.New() }
