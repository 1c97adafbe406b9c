// ============================================================================
// rfm Simulated Pipeline
// ============================================================================
//
// Package: internal/simpipeline
// File: pipeline.go
// Purpose: A concrete rfm.Pipeline for demos and tests: no real compiler or
//          batch job is spawned, every stage sleeps a random jitter and
//          optionally fails or is skipped on a per-case configured phase,
//          with context-timeout awareness throughout.
//
// ============================================================================

package simpipeline

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/regtest/rfmrun/pkg/rfm"
)

// SkipError is what Pipeline.Setup returns when Config.SkipReason is set, so
// the task layer (via rfm.SkipSignal) recognises a skip request distinct
// from an ordinary setup failure: a tagged skip-outcome carrying the reason
// string.
type SkipError struct {
	Reason string
}

func (e *SkipError) Error() string { return fmt.Sprintf("skipped: %s", e.Reason) }

// SkipReason implements rfm.SkipSignal.
func (e *SkipError) SkipReason() string { return e.Reason }

// Config parameterises one simulated case. Zero value is a fast, always-
// succeeding full test.
type Config struct {
	Kind         rfm.Kind
	Local        bool
	BuildLocally bool
	Partition    string

	// JitterMax bounds the random per-stage sleep.
	JitterMax time.Duration
	// RandomFailChance is a percentage [0,100) chance any stage fails
	// spontaneously.
	RandomFailChance int

	// FailAt names a phase that always fails with FailErr (empty = never).
	FailAt  rfm.Phase
	FailErr error
	// SkipReason, if non-empty, makes Setup return a *SkipError.
	SkipReason string

	// CompilePolls / RunPolls is how many scheduler polls each stage's job
	// takes to report done.
	CompilePolls int
	RunPolls     int
	// CompileFails / RunFails make the corresponding job finish with
	// ErrSimulatedFailure instead of success.
	CompileFails bool
	RunFails     bool

	// NewBuildJob / NewRunJob construct the job handle each stage hands to
	// its scheduler. Both default to the in-memory Job (paired with
	// localsched). A remote partition wires one or both to a factory that
	// returns a handle its own scheduler client understands (rpcsched).
	NewBuildJob func(id string, polls int, failOnDone bool) JobHandle
	NewRunJob   func(id string, polls int, failOnDone bool) JobHandle
}

// JobHandle is the minimum a simulated pipeline needs from a job: whether
// it's done and, if so, its outcome. *Job satisfies it directly; rpcsched's
// remote job handle satisfies it too, so the same Pipeline works against
// either scheduler family.
type JobHandle interface {
	Status() (done bool, err error)
}

// Pipeline is a simulated rfm.Pipeline driven entirely by Config.
type Pipeline struct {
	cfg Config
	rnd *rand.Rand

	buildJob JobHandle
	job      JobHandle
}

// New creates a simulated pipeline for one case. rnd may be nil, in which
// case a new source seeded with 1 is used.
func New(cfg Config, rnd *rand.Rand) *Pipeline {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(1))
	}
	if cfg.NewBuildJob == nil {
		cfg.NewBuildJob = func(id string, polls int, failOnDone bool) JobHandle { return NewJob(id, polls, failOnDone) }
	}
	if cfg.NewRunJob == nil {
		cfg.NewRunJob = func(id string, polls int, failOnDone bool) JobHandle { return NewJob(id, polls, failOnDone) }
	}
	return &Pipeline{cfg: cfg, rnd: rnd}
}

func (p *Pipeline) jitter(ctx context.Context) error {
	if p.cfg.JitterMax <= 0 {
		return nil
	}
	d := time.Duration(p.rnd.Int63n(int64(p.cfg.JitterMax)))
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func (p *Pipeline) maybeFail(ctx context.Context, phase rfm.Phase) error {
	if err := p.jitter(ctx); err != nil {
		return err
	}
	if p.cfg.FailAt == phase && p.cfg.FailErr != nil {
		return p.cfg.FailErr
	}
	if p.cfg.RandomFailChance > 0 && p.rnd.Intn(100) < p.cfg.RandomFailChance {
		return ErrSimulatedFailure
	}
	return nil
}

func (p *Pipeline) Setup(ctx context.Context, partition, environment string, flexAllocNodes int, opts rfm.SchedOptions) error {
	if p.cfg.SkipReason != "" {
		return &SkipError{Reason: p.cfg.SkipReason}
	}
	return p.maybeFail(ctx, rfm.PhaseSetup)
}

func (p *Pipeline) Compile(ctx context.Context) error {
	if err := p.maybeFail(ctx, rfm.PhaseCompile); err != nil {
		return err
	}
	p.buildJob = p.cfg.NewBuildJob(p.cfg.Partition+"-build", p.cfg.CompilePolls, p.cfg.CompileFails)
	return nil
}

func (p *Pipeline) CompileComplete(ctx context.Context) (bool, error) {
	if p.buildJob == nil {
		return false, nil
	}
	done, err := p.buildJob.Status()
	return done, err
}

func (p *Pipeline) Run(ctx context.Context) error {
	if err := p.maybeFail(ctx, rfm.PhaseRun); err != nil {
		return err
	}
	p.job = p.cfg.NewRunJob(p.cfg.Partition+"-run", p.cfg.RunPolls, p.cfg.RunFails)
	return nil
}

func (p *Pipeline) RunComplete(ctx context.Context) (bool, error) {
	if p.job == nil {
		return false, nil
	}
	done, err := p.job.Status()
	return done, err
}

func (p *Pipeline) Sanity(ctx context.Context) error      { return p.maybeFail(ctx, rfm.PhaseSanity) }
func (p *Pipeline) Performance(ctx context.Context) error { return p.maybeFail(ctx, rfm.PhasePerformance) }
func (p *Pipeline) Finalize(ctx context.Context) error    { return p.maybeFail(ctx, rfm.PhaseFinalize) }

func (p *Pipeline) Cleanup(ctx context.Context, keepFiles bool) error {
	return p.maybeFail(ctx, rfm.PhaseCleanup)
}

func (p *Pipeline) Local() bool        { return p.cfg.Local }
func (p *Pipeline) BuildLocally() bool { return p.cfg.BuildLocally }
func (p *Pipeline) Kind() rfm.Kind     { return p.cfg.Kind }

func (p *Pipeline) CurrentPartition() string { return p.cfg.Partition }

func (p *Pipeline) Job() rfm.Job { return p.job }

func (p *Pipeline) BuildJob() rfm.Job { return p.buildJob }
