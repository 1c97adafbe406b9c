// ============================================================================
// rfm Task Record - Per-Case State Machine
// ============================================================================
//
// Package: internal/task
// File: task.go
// Purpose: Per-test-case state, stage, ref-count, failure info, and event
//          dispatch.
//
// State Machine:
//   waiting -> ready_to_compile -> compiling -> ready_to_run -> running
//           -> completed -> retired
//   Any of the above can instead transition to failed or skipped, which
//   (along with retired) are terminal: Stage only ever advances forward.
//
// Failure Propagation:
//   Every pipeline-phase method (Setup/Compile/Run/Sanity/Performance/
//   Finalize) wraps the opaque Pipeline call: on error it records
//   a StageFailure, transitions the task to failed, emits on_task_failure
//   to the bus, and returns ErrTaskExit — the signal that the task has
//   already handled its own failure and the driver should simply stop
//   advancing it. A listener may instead turn the failure into an
//   abort-class error (the failure budget), which is returned directly
//   instead of ErrTaskExit so the driver knows to abort everything.
//   Cleanup is the exception: a cleanup failure is recorded and emitted,
//   but the task stays retired and Cleanup returns the listeners' result.
//
// ============================================================================

package task

import (
	"context"
	"errors"
	"time"

	"github.com/regtest/rfmrun/internal/events"
	"github.com/regtest/rfmrun/pkg/rfm"
)

// ErrTaskExit signals that a stage method already recorded its own failure
// and fanned it out to the listeners; the driver should stop driving this
// task but must not report the error further up.
var ErrTaskExit = errors.New("task exit")

// Task is one submitted case's execution record.
type Task struct {
	Case rfm.Case

	stage       rfm.Stage
	refCount    int
	failedStage rfm.Phase
	err         error
	timings     map[rfm.Phase]time.Duration
	createdAt   time.Time

	bus *events.Bus
}

// New creates a task record for case, wired to bus for event dispatch.
// ref_count starts at zero; it is incremented by the task index whenever a
// later submission names this case as a dependency, and decremented once
// per dependent on that dependent's success.
func New(c rfm.Case, bus *events.Bus) *Task {
	return &Task{
		Case:      c,
		stage:     rfm.StageWaiting,
		timings:   make(map[rfm.Phase]time.Duration),
		createdAt: time.Now(),
		bus:       bus,
	}
}

// Stage returns the task's current policy stage.
func (t *Task) Stage() rfm.Stage { return t.stage }

// SetStage advances the policy stage. It never checks monotonicity itself —
// the driver (engine package) is the sole owner of stage transitions and is
// trusted to only ever move forward.
func (t *Task) SetStage(s rfm.Stage) { t.stage = s }

// RefCount returns the number of not-yet-finished dependents.
func (t *Task) RefCount() int { return t.refCount }

// AddDependent increments the ref-count; called by the task index when a
// later case names this task's case as a dependency.
func (t *Task) AddDependent() { t.refCount++ }

// ReleaseDependent decrements the ref-count; called once per successful
// dependent. It never goes below zero.
func (t *Task) ReleaseDependent() {
	if t.refCount > 0 {
		t.refCount--
	}
}

// FailedStage returns the pipeline phase that raised, if any.
func (t *Task) FailedStage() rfm.Phase { return t.failedStage }

// Err returns the captured failure context: a *rfm.StageFailure for every
// pipeline-phase or cleanup failure, or the bare reason for a skip or abort.
func (t *Task) Err() error { return t.err }

func (t *Task) snapshot() events.TaskSnapshot {
	timings := make(map[rfm.Phase]time.Duration, len(t.timings))
	for k, v := range t.timings {
		timings[k] = v
	}
	return events.TaskSnapshot{
		Case:        t.Case,
		Stage:       t.stage,
		FailedStage: t.failedStage,
		Err:         t.err,
		Timings:     timings,
	}
}

func (t *Task) record(phase rfm.Phase, d time.Duration) {
	t.timings[phase] = d
	t.timings[rfm.PhaseTotal] = time.Since(t.createdAt)
}

// run times a pipeline phase call and, on error, performs the common
// failure-propagation dance described in the package doc.
func (t *Task) run(phase rfm.Phase, fn func() error) error {
	start := time.Now()
	err := fn()
	t.record(phase, time.Since(start))
	if err != nil {
		return t.fail(phase, err)
	}
	return nil
}

// fail marks the task failed, emits on_task_failure, and returns either
// ErrTaskExit (normal path) or whatever abort-class error a listener (the
// failure budget) raised instead.
func (t *Task) fail(phase rfm.Phase, cause error) error {
	t.failedStage = phase
	t.err = rfm.NewStageFailure(phase, cause)
	t.stage = rfm.StageFailed
	if busErr := t.bus.EmitFailure(t.snapshot()); busErr != nil {
		return busErr
	}
	return ErrTaskExit
}

// Fail transitions the task to failed with a synthesized cause (used by the
// dependency oracle path) rather than a pipeline phase raising.
func (t *Task) Fail(cause error) error {
	return t.fail("", cause)
}

// Setup runs the pipeline's setup phase. A Setup error satisfying
// rfm.SkipSignal is treated as a self-requested skip rather than a
// failure; any other error follows the normal stage-failure path.
func (t *Task) Setup(ctx context.Context, flexAllocNodes int, opts rfm.SchedOptions) error {
	start := time.Now()
	err := t.Case.Pipeline.Setup(ctx, t.Case.Partition, t.Case.Environment, flexAllocNodes, opts)
	t.record(rfm.PhaseSetup, time.Since(start))
	if err != nil {
		var skip rfm.SkipSignal
		if errors.As(err, &skip) {
			if busErr := t.Skip(err); busErr != nil {
				return busErr
			}
			return ErrTaskExit
		}
		return t.fail(rfm.PhaseSetup, err)
	}
	return t.bus.EmitSetup(t.snapshot())
}

// Compile runs the pipeline's compile phase.
func (t *Task) Compile(ctx context.Context) error {
	err := t.run(rfm.PhaseCompile, func() error {
		return t.Case.Pipeline.Compile(ctx)
	})
	if err != nil {
		return err
	}
	return t.bus.EmitCompile(t.snapshot())
}

// CompileComplete polls the pipeline for compile completion. On the
// transition to "done" it times the overall compile_complete phase and
// emits on_task_compile_exit.
func (t *Task) CompileComplete(ctx context.Context) (bool, error) {
	start := time.Now()
	done, err := t.Case.Pipeline.CompileComplete(ctx)
	if err != nil {
		return false, t.fail(rfm.PhaseCompileComplete, err)
	}
	if !done {
		return false, nil
	}
	t.record(rfm.PhaseCompileComplete, time.Since(start))
	if err := t.bus.EmitCompileExit(t.snapshot()); err != nil {
		return true, err
	}
	return true, nil
}

// Run runs the pipeline's run phase.
func (t *Task) Run(ctx context.Context) error {
	err := t.run(rfm.PhaseRun, func() error {
		return t.Case.Pipeline.Run(ctx)
	})
	if err != nil {
		return err
	}
	return t.bus.EmitRun(t.snapshot())
}

// RunComplete polls the pipeline for run completion, mirroring
// CompileComplete but emitting on_task_exit.
func (t *Task) RunComplete(ctx context.Context) (bool, error) {
	start := time.Now()
	done, err := t.Case.Pipeline.RunComplete(ctx)
	if err != nil {
		return false, t.fail(rfm.PhaseRunComplete, err)
	}
	if !done {
		return false, nil
	}
	t.record(rfm.PhaseRunComplete, time.Since(start))
	if err := t.bus.EmitExit(t.snapshot()); err != nil {
		return true, err
	}
	return true, nil
}

// Sanity runs the pipeline's sanity-check phase.
func (t *Task) Sanity(ctx context.Context) error {
	return t.run(rfm.PhaseSanity, func() error {
		return t.Case.Pipeline.Sanity(ctx)
	})
}

// Performance runs the pipeline's performance-check phase.
func (t *Task) Performance(ctx context.Context) error {
	return t.run(rfm.PhasePerformance, func() error {
		return t.Case.Pipeline.Performance(ctx)
	})
}

// Finalize runs the pipeline's finalize phase and, on success, emits
// on_task_success and transitions the task to retired.
func (t *Task) Finalize(ctx context.Context) error {
	if err := t.run(rfm.PhaseFinalize, func() error {
		return t.Case.Pipeline.Finalize(ctx)
	}); err != nil {
		return err
	}
	t.stage = rfm.StageRetired
	return t.bus.EmitSuccess(t.snapshot())
}

// Cleanup runs the pipeline's cleanup phase. A cleanup failure is reported
// with FailedStage == PhaseCleanup (a distinguished error path, separate
// from a stage FAIL) but the task remains retired; it does not re-enter the
// failed stage.
func (t *Task) Cleanup(ctx context.Context, keepFiles bool) error {
	start := time.Now()
	err := t.Case.Pipeline.Cleanup(ctx, keepFiles)
	t.record(rfm.PhaseCleanup, time.Since(start))
	if err != nil {
		t.failedStage = rfm.PhaseCleanup
		t.err = rfm.NewStageFailure(rfm.PhaseCleanup, err)
		return t.bus.EmitFailure(t.snapshot())
	}
	return nil
}

// Skip transitions the task to skipped and emits on_task_skip.
func (t *Task) Skip(reason error) error {
	t.stage = rfm.StageSkipped
	t.err = reason
	return t.bus.EmitSkip(t.snapshot())
}

// Abort is called by the driver when a global fatal condition (interrupt,
// failure-budget overflow) must tear everything down. It transitions
// straight to failed with cause attached and does not propagate through
// the normal failure counter/listener path.
func (t *Task) Abort(cause error) {
	if t.stage.Terminal() {
		return
	}
	t.err = cause
	t.stage = rfm.StageFailed
}

// PipelineTimings returns the recorded durations for the requested phases
// (unrequested phases are omitted).
func (t *Task) PipelineTimings(phases ...rfm.Phase) map[rfm.Phase]time.Duration {
	out := make(map[rfm.Phase]time.Duration, len(phases))
	for _, p := range phases {
		if d, ok := t.timings[p]; ok {
			out[p] = d
		}
	}
	return out
}
