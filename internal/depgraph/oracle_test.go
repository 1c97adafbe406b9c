package depgraph

import (
	"testing"

	"github.com/regtest/rfmrun/internal/events"
	"github.com/regtest/rfmrun/internal/task"
	"github.com/regtest/rfmrun/pkg/rfm"
)

func newIndexedTask(idx *task.Index, bus *events.Bus, check string, deps ...rfm.CaseKey) *task.Task {
	c := rfm.Case{Check: check, Partition: "p", Environment: "e", Deps: deps}
	t := task.New(c, bus)
	idx.Put(t)
	return t
}

func TestOracleSucceededTreatsUnindexedDepsAsSucceeded(t *testing.T) {
	idx := task.NewIndex()
	bus := events.NewBus()
	dep := rfm.CaseKey{Check: "missing", Partition: "p", Environment: "e"}
	tk := newIndexedTask(idx, bus, "a", dep)

	o := New(idx)
	if !o.Succeeded(tk) {
		t.Fatal("expected an unindexed dependency to be treated as already succeeded")
	}
	if o.Failed(tk) || o.Skipped(tk) {
		t.Fatal("expected an unindexed dependency to be neither failed nor skipped")
	}
}

func TestOracleSucceededRequiresRetiredStage(t *testing.T) {
	idx := task.NewIndex()
	bus := events.NewBus()
	depTask := newIndexedTask(idx, bus, "dep")
	tk := newIndexedTask(idx, bus, "a", depTask.Case.Key())

	o := New(idx)
	if o.Succeeded(tk) {
		t.Fatal("expected Succeeded to be false while dependency is still waiting")
	}

	depTask.SetStage(rfm.StageRetired)
	if !o.Succeeded(tk) {
		t.Fatal("expected Succeeded to be true once dependency is retired")
	}
}

func TestOracleFailedOverridesSkipped(t *testing.T) {
	idx := task.NewIndex()
	bus := events.NewBus()
	failedDep := newIndexedTask(idx, bus, "failed-dep")
	skippedDep := newIndexedTask(idx, bus, "skipped-dep")
	tk := newIndexedTask(idx, bus, "a", failedDep.Case.Key(), skippedDep.Case.Key())

	failedDep.SetStage(rfm.StageFailed)
	skippedDep.SetStage(rfm.StageSkipped)

	o := New(idx)
	if !o.Failed(tk) {
		t.Fatal("expected Failed to report true when one dependency failed")
	}
	if !o.Skipped(tk) {
		t.Fatal("expected Skipped to also report true (the driver must check Failed first)")
	}
}
