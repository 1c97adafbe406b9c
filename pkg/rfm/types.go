// ============================================================================
// rfm Core Type Definitions
// ============================================================================
//
// Package: pkg/rfm
// Purpose: Core domain models shared by the regression-test execution engine
//
// Design Principles:
//   1. The test pipeline, schedulers, and cases are opaque collaborators —
//      this package only defines the contracts the engine drives them
//      through, never their internals.
//   2. Cases are interned by the (check, partition, environment) triple
//      rather than compared by identity, so they can be used as map keys.
//   3. Stage is a closed, tagged-variant enum dispatched with a switch, never
//      via reflection or string-built method names.
//
// Core Types:
//   - Case / CaseKey: the unit of submission and its hashable identity
//   - Stage: the six-state (plus terminal) pipeline stage enum
//   - Pipeline: the opaque per-case test operations
//   - Scheduler / Job: the opaque batch-scheduler contract
//   - Partition: a logical scheduling domain
//
// ============================================================================

// Package rfm defines the shared data model for the regression-test engine:
// cases, stages, and the opaque pipeline/scheduler contracts the engine
// drives without ever interpreting their internals.
package rfm

import (
	"context"
	"fmt"
)

// CaseKey is the hashable identity of a Case: the (check, partition,
// environment) triple. Two Case values with identical components always
// produce the same CaseKey, even though they may be distinct Go values.
type CaseKey struct {
	Check       string
	Partition   string
	Environment string
}

func (k CaseKey) String() string {
	return fmt.Sprintf("%s@%s+%s", k.Check, k.Partition, k.Environment)
}

// Kind classifies a case's pipeline shape, mirroring the original
// CompileOnlyRegressionTest / RunOnlyRegressionTest distinction.
type Kind int

const (
	KindFull Kind = iota
	KindCompileOnly
	KindRunOnly
)

// Job is an opaque scheduler job handle (a compile job or a run job). The
// engine never interprets it; it only forwards it to Scheduler.Poll and
// consults Pipeline.CompileComplete/RunComplete for progress.
type Job any

// Scheduler is the opaque batch-scheduler contract. Implementations own
// the actual child processes; the engine only ever asks them to refresh
// the state of a batch of jobs.
type Scheduler interface {
	// Poll refreshes the in-place state of the given job handles. It must
	// not block indefinitely; batching jobs into one call is mandatory so
	// schedulers can amortise system calls.
	Poll(ctx context.Context, jobs ...Job) error
}

// Partition is a logical scheduling domain with its own scheduler and job
// cap.
type Partition struct {
	Name      string
	MaxJobs   int
	Scheduler Scheduler
}

// SchedOptions are opaque scheduler options forwarded verbatim to
// Pipeline.Setup.
type SchedOptions map[string]string

// Pipeline is the opaque per-case test pipeline. Deliberately out of
// scope: the engine never interprets the stage bodies, only their
// success/failure and completion signals.
type Pipeline interface {
	Setup(ctx context.Context, partition, environment string, flexAllocNodes int, opts SchedOptions) error
	Compile(ctx context.Context) error
	CompileComplete(ctx context.Context) (bool, error)
	Run(ctx context.Context) error
	RunComplete(ctx context.Context) (bool, error)
	Sanity(ctx context.Context) error
	Performance(ctx context.Context) error
	Finalize(ctx context.Context) error
	Cleanup(ctx context.Context, keepFiles bool) error

	// Local reports whether both compile and run must run on the driver
	// host's local scheduler.
	Local() bool
	// BuildLocally reports whether only the compile stage must run
	// locally; it does not affect the run stage's queue choice.
	BuildLocally() bool
	// Kind classifies the pipeline as full, compile-only, or run-only.
	Kind() Kind
	// CurrentPartition names the partition this pipeline executes on.
	CurrentPartition() string
	// Job returns the run-stage job handle, valid once Run has been called.
	Job() Job
	// BuildJob returns the compile-stage job handle, valid once Compile has
	// been called.
	BuildJob() Job
}

// Case is the unit of submission: a (check, partition, environment) triple
// plus its dependencies and pipeline. Distinct Case values with identical
// components share a CaseKey, and the task index keeps one task per key:
// the asynchronous policy rejects a second submission of the same key.
type Case struct {
	Check       string
	Partition   string
	Environment string
	Deps        []CaseKey
	Pipeline    Pipeline
}

// Key returns the hashable identity of the case.
func (c Case) Key() CaseKey {
	return CaseKey{Check: c.Check, Partition: c.Partition, Environment: c.Environment}
}

// Stage is a tagged-variant pipeline stage. It only ever advances forward;
// failed/skipped/retired are terminal.
type Stage string

const (
	StageWaiting        Stage = "waiting"
	StageReadyToCompile Stage = "ready_to_compile"
	StageCompiling      Stage = "compiling"
	StageReadyToRun     Stage = "ready_to_run"
	StageRunning        Stage = "running"
	StageCompleted      Stage = "completed"
	StageRetired        Stage = "retired"
	StageFailed         Stage = "failed"
	StageSkipped        Stage = "skipped"
)

// Phase names a pipeline operation for timing and failure reporting. It is
// distinct from Stage: Stage is the policy-visible state machine position,
// Phase is "which pipeline method raised or was timed".
type Phase string

const (
	PhaseSetup           Phase = "setup"
	PhaseCompile         Phase = "compile"
	PhaseCompileComplete Phase = "compile_complete"
	PhaseRun             Phase = "run"
	PhaseRunComplete     Phase = "run_complete"
	PhaseSanity          Phase = "sanity"
	PhasePerformance     Phase = "performance"
	PhaseFinalize        Phase = "finalize"
	// PhaseCleanup is the distinguished FailedStage value used when
	// cleanup() raises after the task has already retired — a distinct
	// error path, separate from a stage FAIL.
	PhaseCleanup Phase = "cleanup"
	PhaseTotal   Phase = "total"
)

// Terminal reports whether a stage cannot be advanced out of.
func (s Stage) Terminal() bool {
	switch s {
	case StageFailed, StageSkipped, StageRetired:
		return true
	default:
		return false
	}
}
