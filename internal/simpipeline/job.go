// ============================================================================
// rfm Simulated Pipeline - Job Handle
// ============================================================================
//
// Package: internal/simpipeline
// File: job.go
// Purpose: The concrete job handle a simulated Pipeline hands to schedulers
//          (localsched, rpcsched): one in-flight unit of simulated work,
//          polled to completion instead of run synchronously by a
//          goroutine.
//
// Job is read from the engine's single thread of control but written from
// whichever scheduler goroutine(s) are driving it (localsched runs actual
// worker goroutines; concurrency is otherwise externalised to the batch
// schedulers) — so status access is mutex-guarded even though the engine
// itself never needs locking.
//
// ============================================================================

package simpipeline

import (
	"errors"
	"sync"
)

// ErrSimulatedFailure is returned by a Job once its poll budget injects a
// failure.
var ErrSimulatedFailure = errors.New("simpipeline: simulated execution failure")

// Job is one simulated compile or run job.
type Job struct {
	ID string

	mu        sync.Mutex
	remaining int
	done      bool
	err       error

	failOnDone bool
}

// NewJob creates a job that becomes done after polls polls.
func NewJob(id string, polls int, failOnDone bool) *Job {
	if polls < 0 {
		polls = 0
	}
	return &Job{ID: id, remaining: polls, failOnDone: failOnDone}
}

// Advance moves the job one poll closer to completion, for a caller that
// polls once per loop iteration. No scheduler here calls it (localsched uses
// Complete; rpcsched's Server keeps its own countdown); tests do.
// Safe to call after the job is already done (no-op).
func (j *Job) Advance() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.advanceLocked()
}

func (j *Job) advanceLocked() {
	if j.done {
		return
	}
	if j.remaining > 0 {
		j.remaining--
	}
	if j.remaining == 0 {
		j.done = true
		if j.failOnDone {
			j.err = ErrSimulatedFailure
		}
	}
}

// Complete runs the job to completion in one step, for a scheduler that
// does the simulated work on its own goroutine rather than via repeated
// polling (localsched).
func (j *Job) Complete(err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.done {
		return
	}
	j.done = true
	j.remaining = 0
	if err != nil {
		j.err = err
	} else if j.failOnDone {
		j.err = ErrSimulatedFailure
	}
}

// Status reports whether the job is done and, if so, its outcome.
func (j *Job) Status() (done bool, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.done, j.err
}

// Done reports whether the job has finished, matching the bare *Job.Done
// bool the old single-threaded design exposed directly.
func (j *Job) Done() bool {
	done, _ := j.Status()
	return done
}

// Err reports the job's outcome; only meaningful once Done() is true.
func (j *Job) Err() error {
	_, err := j.Status()
	return err
}
