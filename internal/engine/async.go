// ============================================================================
// rfm Engine - Asynchronous Execution Policy
// ============================================================================
//
// Package: internal/engine
// File: async.go
// Purpose: A cooperative single-threaded state machine that advances many
//          in-flight cases concurrently by polling.
//
// ============================================================================

package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/regtest/rfmrun/internal/admission"
	"github.com/regtest/rfmrun/internal/depgraph"
	"github.com/regtest/rfmrun/internal/events"
	"github.com/regtest/rfmrun/internal/pollctl"
	"github.com/regtest/rfmrun/internal/retire"
	"github.com/regtest/rfmrun/internal/task"
	"github.com/regtest/rfmrun/pkg/rfm"
)

// AsyncPolicy advances every submitted, not-yet-terminal case on each
// Drain pass: poll batch, advance, cleanup, snooze. There are no
// goroutines here — all state (current tasks, queues, retired list) is
// touched only from Submit and Drain, in the same thread of control.
type AsyncPolicy struct {
	cfg    Config
	bus    *events.Bus
	idx    *task.Index
	oracle *depgraph.Oracle
	adm    *admission.Controller
	budget *events.Budget
	ret    *retire.List
	pc     *pollctl.Controller

	// current holds every submitted, not-yet-terminal task in submission
	// order.
	current []*task.Task
}

// NewAsyncPolicy creates an asynchronous policy from cfg.
func NewAsyncPolicy(cfg Config) *AsyncPolicy {
	bus := events.NewBus()
	idx := task.NewIndex()
	p := &AsyncPolicy{
		cfg: cfg,
		bus: bus,
		idx: idx,
		adm: newAdmission(cfg),
		ret: newRetired(),
		pc:  pollctl.New(),
	}
	p.oracle = oracleFor(idx)
	p.budget = wireBudget(bus, cfg)
	return p
}

func (p *AsyncPolicy) Bus() *events.Bus { return p.bus }

// Submit records c and marks it waiting. It returns promptly; the case
// only starts advancing on the next Drain call.
func (p *AsyncPolicy) Submit(ctx context.Context, c rfm.Case) error {
	if _, exists := p.idx.Get(c.Key()); exists {
		return fmt.Errorf("rfm: case %s already submitted", c.Key())
	}
	t := task.New(c, p.bus)
	p.idx.Put(t)
	p.current = append(p.current, t)
	return nil
}

// Drain runs the poll/advance/cleanup/snooze cycle until every submitted
// case has reached a terminal state.
func (p *AsyncPolicy) Drain(ctx context.Context) error {
	for len(p.current) > 0 {
		if err := ctx.Err(); err != nil {
			return abortEverything(p.idx, err)
		}

		if err := p.pollBatch(ctx); err != nil {
			return abortEverything(p.idx, err)
		}

		if _, err := p.advance(ctx); err != nil {
			return abortEverything(p.idx, err)
		}

		p.sweep(ctx)
		p.pruneCurrent()

		if n := p.countActive(); n > 0 {
			p.pc.NoteRunning(n).Snooze()
		}
	}
	return nil
}

// Exit performs a final retirement sweep, for symmetry with the serial
// policy. Tasks whose ref-count is still above zero (a dependent failed or
// was skipped and so never released it) stay in the retired list.
func (p *AsyncPolicy) Exit(ctx context.Context) error {
	p.ret.Sweep(ctx, !p.cfg.KeepStageFiles)
	return nil
}

func (p *AsyncPolicy) sweep(ctx context.Context) {
	p.ret.Sweep(ctx, !p.cfg.KeepStageFiles)
}

// pollBatch groups compiling/running tasks by destination scheduler and
// issues one Poll call per destination: batching is mandatory, never one
// RPC per job.
func (p *AsyncPolicy) pollBatch(ctx context.Context) error {
	partitionJobs := make(map[string][]rfm.Job)
	var localJobs []rfm.Job

	for _, t := range p.current {
		pl := t.Case.Pipeline
		switch t.Stage() {
		case rfm.StageCompiling:
			if pl.Local() || pl.BuildLocally() {
				localJobs = append(localJobs, pl.BuildJob())
			} else {
				partitionJobs[t.Case.Partition] = append(partitionJobs[t.Case.Partition], pl.BuildJob())
			}
		case rfm.StageRunning:
			if pl.Local() {
				localJobs = append(localJobs, pl.Job())
			} else {
				partitionJobs[t.Case.Partition] = append(partitionJobs[t.Case.Partition], pl.Job())
			}
		}
	}

	if len(localJobs) > 0 && p.cfg.LocalScheduler != nil {
		if err := p.cfg.LocalScheduler.Poll(ctx, localJobs...); err != nil {
			return err
		}
	}
	for name, jobs := range partitionJobs {
		part, err := p.cfg.partition(name)
		if err != nil {
			return err
		}
		if err := part.Scheduler.Poll(ctx, jobs...); err != nil {
			return err
		}
	}
	return nil
}

// advance dispatches every current task to its stage's advance function
// over a snapshot of the current set, so a task that changes stage mid-pass
// (e.g. compiling -> ready_to_run) is not advanced twice in the same Drain.
func (p *AsyncPolicy) advance(ctx context.Context) (int, error) {
	snapshot := make([]*task.Task, len(p.current))
	copy(snapshot, p.current)

	progress := 0
	for _, t := range snapshot {
		var n int
		var err error
		switch t.Stage() {
		case rfm.StageWaiting:
			n, err = p.advanceWaiting(ctx, t)
		case rfm.StageReadyToCompile:
			n, err = p.advanceReadyToCompile(ctx, t)
		case rfm.StageCompiling:
			n, err = p.advanceCompiling(ctx, t)
		case rfm.StageReadyToRun:
			n, err = p.advanceReadyToRun(ctx, t)
		case rfm.StageRunning:
			n, err = p.advanceRunning(ctx, t)
		case rfm.StageCompleted:
			n, err = p.advanceCompleted(ctx, t)
		default:
			continue
		}
		if err != nil {
			return progress, err
		}
		progress += n
	}
	return progress, nil
}

// advanceWaiting consults the dependency oracle: a failed dep overrides a
// skipped one, which overrides succeeded.
func (p *AsyncPolicy) advanceWaiting(ctx context.Context, t *task.Task) (int, error) {
	if p.oracle.Failed(t) {
		if err := t.Fail(rfm.ErrDependenciesFailed); !errors.Is(err, task.ErrTaskExit) {
			return 0, err
		}
		return 1, nil
	}
	if p.oracle.Skipped(t) {
		if err := t.Skip(rfm.ErrSkippedDependencies); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if !p.oracle.Succeeded(t) {
		return 0, nil
	}

	proceed, abortErr := classify(t.Setup(ctx, p.cfg.SchedFlexAllocNodes, p.cfg.SchedOptions))
	if abortErr != nil {
		return 0, abortErr
	}
	if !proceed {
		return 1, nil
	}

	if t.Case.Pipeline.Kind() == rfm.KindRunOnly {
		t.SetStage(rfm.StageReadyToRun)
	} else {
		t.SetStage(rfm.StageReadyToCompile)
	}
	return 1, nil
}

func (p *AsyncPolicy) advanceReadyToCompile(ctx context.Context, t *task.Task) (int, error) {
	pl := t.Case.Pipeline
	local := pl.Local() || pl.BuildLocally()
	q, err := queueFor(p.cfg, p.adm, local, t.Case.Partition)
	if err != nil {
		return 0, err
	}
	key := t.Case.Key()
	if !q.Admit(key) {
		return 0, nil
	}

	proceed, abortErr := classify(t.Compile(ctx))
	if abortErr != nil {
		q.Release(key)
		return 0, abortErr
	}
	if !proceed {
		q.Release(key)
		return 1, nil
	}
	t.SetStage(rfm.StageCompiling)
	return 1, nil
}

func (p *AsyncPolicy) advanceCompiling(ctx context.Context, t *task.Task) (int, error) {
	done, err := t.CompileComplete(ctx)
	if err != nil {
		p.releaseCompileQueue(t)
		if !errors.Is(err, task.ErrTaskExit) {
			return 0, err
		}
		return 1, nil
	}
	if !done {
		return 0, nil
	}
	p.releaseCompileQueue(t)
	if t.Case.Pipeline.Kind() == rfm.KindCompileOnly {
		t.SetStage(rfm.StageCompleted)
	} else {
		t.SetStage(rfm.StageReadyToRun)
	}
	return 1, nil
}

func (p *AsyncPolicy) advanceReadyToRun(ctx context.Context, t *task.Task) (int, error) {
	pl := t.Case.Pipeline
	q, err := queueFor(p.cfg, p.adm, pl.Local(), t.Case.Partition)
	if err != nil {
		return 0, err
	}
	key := t.Case.Key()
	if !q.Admit(key) {
		return 0, nil
	}

	proceed, abortErr := classify(t.Run(ctx))
	if abortErr != nil {
		q.Release(key)
		return 0, abortErr
	}
	if !proceed {
		q.Release(key)
		return 1, nil
	}
	t.SetStage(rfm.StageRunning)
	return 1, nil
}

func (p *AsyncPolicy) advanceRunning(ctx context.Context, t *task.Task) (int, error) {
	done, err := t.RunComplete(ctx)
	if err != nil {
		p.releaseRunQueue(t)
		if !errors.Is(err, task.ErrTaskExit) {
			return 0, err
		}
		return 1, nil
	}
	if !done {
		return 0, nil
	}
	p.releaseRunQueue(t)
	t.SetStage(rfm.StageCompleted)
	return 1, nil
}

func (p *AsyncPolicy) advanceCompleted(ctx context.Context, t *task.Task) (int, error) {
	if !p.cfg.SkipSanityCheck {
		proceed, abortErr := classify(t.Sanity(ctx))
		if abortErr != nil {
			return 0, abortErr
		}
		if !proceed {
			return 1, nil
		}
	}
	if !p.cfg.SkipPerformanceCheck {
		proceed, abortErr := classify(t.Performance(ctx))
		if abortErr != nil {
			return 0, abortErr
		}
		if !proceed {
			return 1, nil
		}
	}
	proceed, abortErr := classify(t.Finalize(ctx))
	if abortErr != nil {
		return 0, abortErr
	}
	if !proceed {
		return 1, nil
	}

	p.idx.ReleaseDependencies(t)
	p.ret.Append(t)
	return 1, nil
}

func (p *AsyncPolicy) releaseCompileQueue(t *task.Task) {
	pl := t.Case.Pipeline
	local := pl.Local() || pl.BuildLocally()
	if q, err := queueFor(p.cfg, p.adm, local, t.Case.Partition); err == nil {
		q.Release(t.Case.Key())
	}
}

func (p *AsyncPolicy) releaseRunQueue(t *task.Task) {
	pl := t.Case.Pipeline
	if q, err := queueFor(p.cfg, p.adm, pl.Local(), t.Case.Partition); err == nil {
		q.Release(t.Case.Key())
	}
}

// pruneCurrent drops every task that reached a terminal stage this pass.
func (p *AsyncPolicy) pruneCurrent() {
	kept := p.current[:0]
	for _, t := range p.current {
		if !t.Stage().Terminal() {
			kept = append(kept, t)
		}
	}
	p.current = kept
}

// countActive reports how many current tasks are occupying a compile or
// run slot, the `n` the poll controller adapts its sleep interval on.
func (p *AsyncPolicy) countActive() int {
	n := 0
	for _, t := range p.current {
		switch t.Stage() {
		case rfm.StageCompiling, rfm.StageRunning:
			n++
		}
	}
	return n
}
