package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/regtest/rfmrun/internal/localsched"
	"github.com/regtest/rfmrun/internal/simpipeline"
	"github.com/regtest/rfmrun/pkg/rfm"
)

func newAsyncConfig(maxFailures int) Config {
	return Config{
		LocalMaxJobs:   8,
		LocalScheduler: localsched.New(4, 0, 0),
		MaxFailures:    maxFailures,
	}
}

func TestAsyncPolicySucceedsSimpleCase(t *testing.T) {
	p := NewAsyncPolicy(newAsyncConfig(0))
	stats := NewStats()
	p.Bus().Register(stats)

	require.NoError(t, p.Submit(context.Background(), fullCase("hello")))
	require.NoError(t, p.Drain(context.Background()))
	require.NoError(t, p.Exit(context.Background()))

	require.Equal(t, 1, stats.Succeeded)
	require.Equal(t, 0, stats.Failed)
	require.Equal(t, 0, stats.Skipped)
}

// TestAsyncPolicyDrainsMultipleConcurrentCases exercises the admission
// queue and the cooperative single-thread advance loop driving several
// in-flight cases at once (§4.6).
func TestAsyncPolicyDrainsMultipleConcurrentCases(t *testing.T) {
	p := NewAsyncPolicy(newAsyncConfig(0))
	stats := NewStats()
	p.Bus().Register(stats)

	for i := 0; i < 5; i++ {
		c := rfm.Case{
			Check: "case", Partition: "cpu", Environment: fmt.Sprintf("env%d", i),
			Pipeline: simpipeline.New(simpipeline.Config{Local: true, CompilePolls: 2, RunPolls: 2}, nil),
		}
		require.NoError(t, p.Submit(context.Background(), c))
	}

	require.NoError(t, p.Drain(context.Background()))
	require.Equal(t, 5, stats.Succeeded)
}

// TestAsyncPolicyFailedDependencyOverridesSkipped mirrors the serial-policy
// scenario but submission is asynchronous: the dependent only resolves
// during Drain, once its dependencies have reached a terminal stage.
func TestAsyncPolicyFailedDependencyOverridesSkipped(t *testing.T) {
	p := NewAsyncPolicy(newAsyncConfig(0))
	stats := NewStats()
	p.Bus().Register(stats)

	failing := rfm.Case{
		Check: "dep-fail", Partition: "cpu", Environment: "gnu",
		Pipeline: simpipeline.New(simpipeline.Config{Local: true, FailAt: rfm.PhaseSetup, FailErr: errors.New("boom")}, nil),
	}
	skipped := rfm.Case{
		Check: "dep-skip", Partition: "cpu", Environment: "gnu",
		Pipeline: simpipeline.New(simpipeline.Config{Local: true, SkipReason: "unsupported arch"}, nil),
	}
	dependent := fullCase("dependent", failing.Key(), skipped.Key())

	require.NoError(t, p.Submit(context.Background(), failing))
	require.NoError(t, p.Submit(context.Background(), skipped))
	require.NoError(t, p.Submit(context.Background(), dependent))

	require.NoError(t, p.Drain(context.Background()))

	depTask, ok := p.idx.Get(dependent.Key())
	require.True(t, ok)
	require.Equal(t, rfm.StageFailed, depTask.Stage())
	require.ErrorIs(t, depTask.Err(), rfm.ErrDependenciesFailed)

	require.Equal(t, 0, stats.Succeeded)
	require.Equal(t, 2, stats.Failed)
	require.Equal(t, 1, stats.Skipped)
}

// TestAsyncPolicySelfRequestedSkip drains a lone case whose Setup requests
// a skip; it should resolve on the very first Drain pass.
func TestAsyncPolicySelfRequestedSkip(t *testing.T) {
	p := NewAsyncPolicy(newAsyncConfig(0))
	stats := NewStats()
	p.Bus().Register(stats)

	c := rfm.Case{
		Check: "arch-specific", Partition: "cpu", Environment: "gnu",
		Pipeline: simpipeline.New(simpipeline.Config{Local: true, SkipReason: "no GPU on this host"}, nil),
	}
	require.NoError(t, p.Submit(context.Background(), c))
	require.NoError(t, p.Drain(context.Background()))

	require.Equal(t, 1, stats.Skipped)
}

// TestAsyncPolicyFailureBudgetAborts confirms Drain returns an
// *rfm.AbortError once the global failure budget is reached and fans the
// abort out to every still-current task (§4.8).
func TestAsyncPolicyFailureBudgetAborts(t *testing.T) {
	p := NewAsyncPolicy(newAsyncConfig(1))

	failing := func(env string) rfm.Case {
		return rfm.Case{
			Check: "boom", Partition: "cpu", Environment: env,
			Pipeline: simpipeline.New(simpipeline.Config{Local: true, FailAt: rfm.PhaseSetup, FailErr: errors.New("boom")}, nil),
		}
	}

	require.NoError(t, p.Submit(context.Background(), failing("a")))
	require.NoError(t, p.Submit(context.Background(), failing("b")))

	err := p.Drain(context.Background())
	var abortErr *rfm.AbortError
	require.ErrorAs(t, err, &abortErr)

	for _, tk := range p.idx.All() {
		require.True(t, tk.Stage().Terminal())
	}
}

// TestAsyncPolicyReleasesAdmissionQueueOnCompletion submits more cases than
// the local queue's capacity and confirms every one still completes, which
// only holds if Release is symmetric with every Admit (§4.4).
func TestAsyncPolicyReleasesAdmissionQueueOnCompletion(t *testing.T) {
	cfg := newAsyncConfig(0)
	cfg.LocalMaxJobs = 1
	p := NewAsyncPolicy(cfg)
	stats := NewStats()
	p.Bus().Register(stats)

	for i := 0; i < 4; i++ {
		c := rfm.Case{
			Check: "queued", Partition: "cpu", Environment: fmt.Sprintf("env%d", i),
			Pipeline: simpipeline.New(simpipeline.Config{Local: true, CompilePolls: 1, RunPolls: 1}, nil),
		}
		require.NoError(t, p.Submit(context.Background(), c))
	}

	require.NoError(t, p.Drain(context.Background()))
	require.Equal(t, 4, stats.Succeeded)
}
