package rfm

import (
	"errors"
	"fmt"
	"time"
)

// ErrDependenciesFailed is wrapped into a StageFailure when the dependency
// oracle finds a failed dependency.
var ErrDependenciesFailed = errors.New("dependencies failed")

// ErrSkippedDependencies is the reason attached to a task skipped because
// one of its dependencies was skipped.
var ErrSkippedDependencies = errors.New("skipped due to skipped dependencies")

// SkipSignal is implemented by an error a Pipeline's Setup can return to
// request that the task be skipped rather than failed.
type SkipSignal interface {
	error
	SkipReason() string
}

// StageFailure captures the context of a failed pipeline phase: the phase
// that raised, the underlying error, and when it happened.
type StageFailure struct {
	Phase Phase
	Err   error
	At    time.Time
}

func (f *StageFailure) Error() string {
	return fmt.Sprintf("stage %q failed: %v", f.Phase, f.Err)
}

func (f *StageFailure) Unwrap() error { return f.Err }

// NewStageFailure wraps err as having occurred during phase.
func NewStageFailure(phase Phase, err error) *StageFailure {
	return &StageFailure{Phase: phase, Err: err, At: time.Now()}
}

// FailureLimitError is raised once the global failure counter reaches the
// configured maximum. It is abort-class: the driver aborts every current
// task and re-raises it to the caller.
type FailureLimitError struct {
	Count int
	Max   int
}

func (e *FailureLimitError) Error() string {
	return fmt.Sprintf("maximum number of failures (%d) reached", e.Max)
}

// AbortError wraps whatever fatal condition (failure budget, host signal)
// forced a global abort. Drain() (and the serial policy's Submit()) return
// it to the caller after fanning the abort out to every indexed task.
type AbortError struct {
	Cause error
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("aborted: %v", e.Cause)
}

func (e *AbortError) Unwrap() error { return e.Cause }

// IsAbort reports whether err is (or wraps) an abort-class condition.
func IsAbort(err error) bool {
	var abortErr *AbortError
	var limitErr *FailureLimitError
	return errors.As(err, &abortErr) || errors.As(err, &limitErr)
}
