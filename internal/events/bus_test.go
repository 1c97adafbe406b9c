package events

import (
	"errors"
	"testing"

	"github.com/regtest/rfmrun/pkg/rfm"
)

type recordingListener struct {
	BaseListener
	name   string
	order  *[]string
	failOn string
}

func (l *recordingListener) OnTaskSuccess(t TaskSnapshot) error {
	*l.order = append(*l.order, l.name)
	if l.failOn == "success" {
		return errors.New(l.name + " refused")
	}
	return nil
}

func TestBusEmitsInRegistrationOrder(t *testing.T) {
	bus := NewBus()
	var order []string
	bus.Register(&recordingListener{name: "first", order: &order})
	bus.Register(&recordingListener{name: "second", order: &order})

	if err := bus.EmitSuccess(TaskSnapshot{Case: rfm.Case{Check: "a"}}); err != nil {
		t.Fatalf("EmitSuccess: %v", err)
	}
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("order = %v, want [first second]", order)
	}
}

func TestBusStopsAtFirstError(t *testing.T) {
	bus := NewBus()
	var order []string
	bus.Register(&recordingListener{name: "first", order: &order, failOn: "success"})
	bus.Register(&recordingListener{name: "second", order: &order})

	if err := bus.EmitSuccess(TaskSnapshot{Case: rfm.Case{Check: "a"}}); err == nil {
		t.Fatal("expected an error from the first listener")
	}
	if len(order) != 1 || order[0] != "first" {
		t.Fatalf("order = %v, want [first] (second must not run after first errors)", order)
	}
}

func TestBaseListenerIsAllNoop(t *testing.T) {
	var l BaseListener
	snap := TaskSnapshot{}
	if err := l.OnTaskSetup(snap); err != nil {
		t.Errorf("OnTaskSetup: %v", err)
	}
	if err := l.OnTaskCompile(snap); err != nil {
		t.Errorf("OnTaskCompile: %v", err)
	}
	if err := l.OnTaskCompileExit(snap); err != nil {
		t.Errorf("OnTaskCompileExit: %v", err)
	}
	if err := l.OnTaskRun(snap); err != nil {
		t.Errorf("OnTaskRun: %v", err)
	}
	if err := l.OnTaskExit(snap); err != nil {
		t.Errorf("OnTaskExit: %v", err)
	}
	if err := l.OnTaskSkip(snap); err != nil {
		t.Errorf("OnTaskSkip: %v", err)
	}
	if err := l.OnTaskFailure(snap); err != nil {
		t.Errorf("OnTaskFailure: %v", err)
	}
	if err := l.OnTaskSuccess(snap); err != nil {
		t.Errorf("OnTaskSuccess: %v", err)
	}
}
