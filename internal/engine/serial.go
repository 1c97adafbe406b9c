// ============================================================================
// rfm Engine - Serial Execution Policy
// ============================================================================
//
// Package: internal/engine
// File: serial.go
// Purpose: Run one case at a time to completion before accepting the next.
//
// ============================================================================

package engine

import (
	"context"

	"github.com/regtest/rfmrun/internal/admission"
	"github.com/regtest/rfmrun/internal/depgraph"
	"github.com/regtest/rfmrun/internal/events"
	"github.com/regtest/rfmrun/internal/pollctl"
	"github.com/regtest/rfmrun/internal/retire"
	"github.com/regtest/rfmrun/internal/task"
	"github.com/regtest/rfmrun/pkg/rfm"
)

// SerialPolicy drives each submitted case through every pipeline phase
// before Submit returns. There is never more than one task in flight, so
// no task is admitted into an admission queue, and the poll controller sees
// n staying at 1 for the whole wait — the adaptive controller still grows/caps the
// sleep interval exactly as it would for any other stable single-task
// workload.
type SerialPolicy struct {
	cfg    Config
	bus    *events.Bus
	idx    *task.Index
	oracle *depgraph.Oracle
	adm    *admission.Controller
	budget *events.Budget
	ret    *retire.List
}

// NewSerialPolicy creates a serial policy from cfg.
func NewSerialPolicy(cfg Config) *SerialPolicy {
	bus := events.NewBus()
	idx := task.NewIndex()
	p := &SerialPolicy{
		cfg: cfg,
		bus: bus,
		idx: idx,
		adm: newAdmission(cfg),
		ret: newRetired(),
	}
	p.oracle = oracleFor(idx)
	p.budget = wireBudget(bus, cfg)
	return p
}

func (p *SerialPolicy) Bus() *events.Bus { return p.bus }

// Submit runs c's case to completion (or to a terminal non-success state)
// before returning. It returns a non-nil error only on a global abort; a
// case that itself fails or is skipped is reported through events, not
// through Submit's return value.
func (p *SerialPolicy) Submit(ctx context.Context, c rfm.Case) error {
	t := task.New(c, p.bus)
	p.idx.Put(t)

	// Dependency check first: a failed dep overrides a skipped one.
	if p.oracle.Failed(t) {
		if proceed, abortErr := classify(t.Fail(rfm.ErrDependenciesFailed)); abortErr != nil {
			return abortEverything(p.idx, abortErr)
		} else if !proceed {
			return p.afterTerminal(ctx, t)
		}
	}
	if p.oracle.Skipped(t) {
		if err := t.Skip(rfm.ErrSkippedDependencies); err != nil {
			return abortEverything(p.idx, err)
		}
		return p.afterTerminal(ctx, t)
	}

	if proceed, abortErr := classify(t.Setup(ctx, p.cfg.SchedFlexAllocNodes, p.cfg.SchedOptions)); abortErr != nil {
		return abortEverything(p.idx, abortErr)
	} else if !proceed {
		return p.afterTerminal(ctx, t)
	}

	if proceed, abortErr := classify(t.Compile(ctx)); abortErr != nil {
		return abortEverything(p.idx, abortErr)
	} else if !proceed {
		return p.afterTerminal(ctx, t)
	}

	buildLocal := t.Case.Pipeline.Local() || t.Case.Pipeline.BuildLocally()
	if err := p.wait(ctx, t, buildLocal, t.Case.Pipeline.BuildJob, t.CompileComplete); err != nil {
		if proceed, abortErr := classify(err); abortErr != nil {
			return abortEverything(p.idx, abortErr)
		} else if !proceed {
			return p.afterTerminal(ctx, t)
		}
	}

	if proceed, abortErr := classify(t.Run(ctx)); abortErr != nil {
		return abortEverything(p.idx, abortErr)
	} else if !proceed {
		return p.afterTerminal(ctx, t)
	}

	if err := p.wait(ctx, t, t.Case.Pipeline.Local(), t.Case.Pipeline.Job, t.RunComplete); err != nil {
		if proceed, abortErr := classify(err); abortErr != nil {
			return abortEverything(p.idx, abortErr)
		} else if !proceed {
			return p.afterTerminal(ctx, t)
		}
	}

	if !p.cfg.SkipSanityCheck {
		if proceed, abortErr := classify(t.Sanity(ctx)); abortErr != nil {
			return abortEverything(p.idx, abortErr)
		} else if !proceed {
			return p.afterTerminal(ctx, t)
		}
	}
	if !p.cfg.SkipPerformanceCheck {
		if proceed, abortErr := classify(t.Performance(ctx)); abortErr != nil {
			return abortEverything(p.idx, abortErr)
		} else if !proceed {
			return p.afterTerminal(ctx, t)
		}
	}

	if proceed, abortErr := classify(t.Finalize(ctx)); abortErr != nil {
		return abortEverything(p.idx, abortErr)
	} else if !proceed {
		return p.afterTerminal(ctx, t)
	}

	p.idx.ReleaseDependencies(t)
	p.ret.Append(t)
	p.ret.Sweep(ctx, !p.cfg.KeepStageFiles)
	return nil
}

// afterTerminal runs the opportunistic retirement sweep even when the case
// itself failed or was skipped. A failed or skipped case releases none of
// its dependencies' references, so their ref-counts stay where they were.
func (p *SerialPolicy) afterTerminal(ctx context.Context, t *task.Task) error {
	p.ret.Sweep(ctx, !p.cfg.KeepStageFiles)
	return nil
}

// wait polls the job's scheduler and the completion check until the
// pipeline reports done, backing off via a fresh poll controller.
func (p *SerialPolicy) wait(ctx context.Context, t *task.Task, local bool, job func() rfm.Job, complete func(context.Context) (bool, error)) error {
	sched, err := schedulerFor(p.cfg, local, t.Case.Partition)
	if err != nil {
		return err
	}
	pc := pollctl.New()
	for {
		if err := sched.Poll(ctx, job()); err != nil {
			return t.Fail(err)
		}
		done, err := complete(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		pc.NoteRunning(1).Snooze()
	}
}

// Drain is a no-op for the serial policy: every Submit already runs its
// case to completion. It exists so SerialPolicy satisfies Policy.
func (p *SerialPolicy) Drain(ctx context.Context) error { return nil }

// Exit performs the final retirement sweep, cleaning up any still-retired
// tasks.
func (p *SerialPolicy) Exit(ctx context.Context) error {
	p.ret.Sweep(ctx, !p.cfg.KeepStageFiles)
	return nil
}
