package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/regtest/rfmrun/internal/events"
	"github.com/regtest/rfmrun/pkg/rfm"
)

func assertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func newSnapshot(check, partition string) events.TaskSnapshot {
	return events.TaskSnapshot{
		Case: rfm.Case{Check: check, Partition: partition, Environment: "env"},
	}
}

func TestCollectorCountsLifecycleEvents(t *testing.T) {
	prometheus.DefaultRegisterer = prometheus.NewRegistry()
	c := NewCollector()

	assertNoError(t, c.OnTaskSetup(newSnapshot("a", "gpu")))
	assertNoError(t, c.OnTaskSuccess(newSnapshot("a", "gpu")))

	assertNoError(t, c.OnTaskSetup(newSnapshot("b", "gpu")))
	assertNoError(t, c.OnTaskFailure(newSnapshot("b", "gpu")))

	assertNoError(t, c.OnTaskSetup(newSnapshot("c", "gpu")))
	assertNoError(t, c.OnTaskSkip(newSnapshot("c", "gpu")))

	if got := testutil.ToFloat64(c.tasksSubmitted); got != 3 {
		t.Errorf("tasksSubmitted = %v, want 3", got)
	}
	if got := testutil.ToFloat64(c.tasksRetired); got != 1 {
		t.Errorf("tasksRetired = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.tasksFailed); got != 1 {
		t.Errorf("tasksFailed = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.tasksSkipped); got != 1 {
		t.Errorf("tasksSkipped = %v, want 1", got)
	}
}

func TestCollectorObservesStageDurations(t *testing.T) {
	prometheus.DefaultRegisterer = prometheus.NewRegistry()
	c := NewCollector()

	snap := newSnapshot("a", "gpu")
	snap.Timings = map[rfm.Phase]time.Duration{
		rfm.PhaseSetup:   10 * time.Millisecond,
		rfm.PhaseCompile: 20 * time.Millisecond,
	}
	assertNoError(t, c.OnTaskSetup(newSnapshot("a", "gpu")))
	assertNoError(t, c.OnTaskSuccess(snap))

	if got := testutil.CollectAndCount(c.stageDuration); got == 0 {
		t.Errorf("stageDuration sample count = %v, want nonzero", got)
	}
}

func TestCollectorQueueDepthTracksExitEvents(t *testing.T) {
	prometheus.DefaultRegisterer = prometheus.NewRegistry()
	c := NewCollector()

	assertNoError(t, c.OnTaskSetup(newSnapshot("a", "gpu")))
	if got := testutil.ToFloat64(c.queueDepth.WithLabelValues("gpu")); got != 1 {
		t.Errorf("queueDepth[gpu] = %v, want 1", got)
	}
	assertNoError(t, c.OnTaskExit(newSnapshot("a", "gpu")))
	if got := testutil.ToFloat64(c.queueDepth.WithLabelValues("gpu")); got != 0 {
		t.Errorf("queueDepth[gpu] = %v, want 0", got)
	}
}
