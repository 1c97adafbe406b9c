// ============================================================================
// rfm Remote Partition Scheduler - Job Handle
// ============================================================================
//
// Package: internal/rpcsched
// File: remotejob.go
// Purpose: The Job handle a remote-scheduled simpipeline.Pipeline gets back
//          from Client, satisfying both rfm.Job (an opaque any, so no
//          constraint) and simpipeline.JobHandle (Status() (bool, error)).
//
// ============================================================================

package rpcsched

import "sync"

// RemoteJob is a job whose state is refreshed by Client.Poll rather than by
// an in-process goroutine. It starts not-done; Client.Poll fills in Done/Err
// after each round trip.
type RemoteJob struct {
	id string

	mu   sync.Mutex
	done bool
	err  error
}

// NewRemoteJob constructs an unpolled remote job handle for id.
func NewRemoteJob(id string) *RemoteJob {
	return &RemoteJob{id: id}
}

// ID is the identifier the server's job table keys on.
func (j *RemoteJob) ID() string { return j.id }

// Status implements simpipeline.JobHandle.
func (j *RemoteJob) Status() (done bool, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.done, j.err
}

func (j *RemoteJob) setStatus(done bool, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.done = done
	j.err = err
}
