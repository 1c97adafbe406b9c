// ============================================================================
// rfm Event Bus - Task Lifecycle Broadcast
// ============================================================================
//
// Package: internal/events
// File: bus.go
// Purpose: Broadcast task lifecycle events to registered listeners, in
//          registration order.
//
// Design Philosophy:
//   Modeled as a typed interface with a list of subscribers, not a generic
//   pub/sub with string topics. Re-entrancy from a listener back into the
//   policy is allowed only for state-reading calls — listeners must never
//   mutate engine state directly.
//
// ============================================================================

package events

import (
	"log/slog"
	"time"

	"github.com/regtest/rfmrun/pkg/rfm"
)

// TaskSnapshot is the read-only view of a task handed to listeners. It is
// built fresh by the task package on every transition so listeners can never
// hold a mutable reference into engine state.
type TaskSnapshot struct {
	Case        rfm.Case
	Stage       rfm.Stage
	FailedStage rfm.Phase
	Err         error
	Timings     map[rfm.Phase]time.Duration
}

// Listener is the task lifecycle observer contract. Every method
// corresponds 1:1 to a pipeline transition. Listeners may return an error
// from OnTaskFailure to force a global abort (e.g. the failure budget); any
// other non-nil return from any method propagates and terminates the
// drain.
type Listener interface {
	OnTaskSetup(t TaskSnapshot) error
	OnTaskCompile(t TaskSnapshot) error
	OnTaskCompileExit(t TaskSnapshot) error
	OnTaskRun(t TaskSnapshot) error
	OnTaskExit(t TaskSnapshot) error
	OnTaskSkip(t TaskSnapshot) error
	OnTaskFailure(t TaskSnapshot) error
	OnTaskSuccess(t TaskSnapshot) error
}

// BaseListener implements Listener with no-op bodies, so concrete listeners
// only need to override the events they care about.
type BaseListener struct{}

func (BaseListener) OnTaskSetup(TaskSnapshot) error       { return nil }
func (BaseListener) OnTaskCompile(TaskSnapshot) error     { return nil }
func (BaseListener) OnTaskCompileExit(TaskSnapshot) error { return nil }
func (BaseListener) OnTaskRun(TaskSnapshot) error         { return nil }
func (BaseListener) OnTaskExit(TaskSnapshot) error        { return nil }
func (BaseListener) OnTaskSkip(TaskSnapshot) error        { return nil }
func (BaseListener) OnTaskFailure(TaskSnapshot) error     { return nil }
func (BaseListener) OnTaskSuccess(TaskSnapshot) error     { return nil }

// Bus fans an event out to every registered listener, in registration
// order, stopping at the first error.
type Bus struct {
	listeners []Listener
	log       *slog.Logger
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{log: slog.Default()}
}

// Register appends a listener. Listeners are invoked in registration order.
func (b *Bus) Register(l Listener) {
	b.listeners = append(b.listeners, l)
}

func (b *Bus) emit(step string, t TaskSnapshot, call func(Listener) error) error {
	for _, l := range b.listeners {
		if err := call(l); err != nil {
			b.log.Debug("listener returned error", "step", step, "case", t.Case.Key().String(), "error", err)
			return err
		}
	}
	return nil
}

func (b *Bus) EmitSetup(t TaskSnapshot) error {
	return b.emit("setup", t, func(l Listener) error { return l.OnTaskSetup(t) })
}

func (b *Bus) EmitCompile(t TaskSnapshot) error {
	return b.emit("compile", t, func(l Listener) error { return l.OnTaskCompile(t) })
}

func (b *Bus) EmitCompileExit(t TaskSnapshot) error {
	return b.emit("compile_exit", t, func(l Listener) error { return l.OnTaskCompileExit(t) })
}

func (b *Bus) EmitRun(t TaskSnapshot) error {
	return b.emit("run", t, func(l Listener) error { return l.OnTaskRun(t) })
}

func (b *Bus) EmitExit(t TaskSnapshot) error {
	return b.emit("exit", t, func(l Listener) error { return l.OnTaskExit(t) })
}

func (b *Bus) EmitSkip(t TaskSnapshot) error {
	return b.emit("skip", t, func(l Listener) error { return l.OnTaskSkip(t) })
}

func (b *Bus) EmitFailure(t TaskSnapshot) error {
	return b.emit("failure", t, func(l Listener) error { return l.OnTaskFailure(t) })
}

func (b *Bus) EmitSuccess(t TaskSnapshot) error {
	return b.emit("success", t, func(l Listener) error { return l.OnTaskSuccess(t) })
}
