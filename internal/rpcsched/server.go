// ============================================================================
// rfm Remote Partition Scheduler - Server
// ============================================================================
//
// Package: internal/rpcsched
// File: server.go
// Purpose: Reference PartitionSchedulerServer implementation: a standalone
//          process would embed this to stand in for a real partition's batch
//          queue. Jobs are tracked in an arbitrary job table keyed by ID,
//          each resolving to done/failed after a configurable number of
//          polls plus optional random jitter and failure injection.
//
// ============================================================================

package rpcsched

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/regtest/rfmrun/internal/rpcsched/rfmv1"
)

// job is the server's bookkeeping for one outstanding unit of remote work.
type job struct {
	done      bool
	fail      bool
	pollsLeft int
}

// Server simulates a remote partition's batch scheduler. Jobs are created
// implicitly on first Poll of an unseen ID and report done after pollsLeft
// polls, the same job-lifecycle shape as the in-memory simpipeline.Job but
// driven over the wire instead of in-process.
type Server struct {
	rfmv1.UnimplementedPartitionSchedulerServer

	mu   sync.Mutex
	jobs map[string]*job

	defaultPolls     int
	randomFailChance int
	rnd              *rand.Rand
	jitterMax        time.Duration
}

// NewServer constructs a Server. defaultPolls is how many Poll calls a newly
// seen job ID takes to finish if the caller doesn't pre-register it via
// Seed; randomFailChance is a percentage [0,100) chance a job fails instead
// of succeeding.
func NewServer(defaultPolls, randomFailChance int, jitterMax time.Duration) *Server {
	return &Server{
		jobs:             make(map[string]*job),
		defaultPolls:     defaultPolls,
		randomFailChance: randomFailChance,
		rnd:              rand.New(rand.NewSource(time.Now().UnixNano())),
		jitterMax:        jitterMax,
	}
}

// Seed pre-registers a job with an explicit poll count and outcome, for
// tests that need deterministic timing instead of the random defaults.
func (s *Server) Seed(id string, polls int, fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[id] = &job{pollsLeft: polls, fail: fail}
}

func (s *Server) lookup(id string) *job {
	j, ok := s.jobs[id]
	if ok {
		return j
	}
	fail := s.randomFailChance > 0 && s.rnd.Intn(100) < s.randomFailChance
	j = &job{pollsLeft: s.defaultPolls, fail: fail}
	s.jobs[id] = j
	return j
}

// Poll implements rfmv1.PartitionSchedulerServer.
func (s *Server) Poll(ctx context.Context, req *rfmv1.PollRequest) (*rfmv1.PollResponse, error) {
	if s.jitterMax > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(s.rnd.Int63n(int64(s.jitterMax)))):
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	resp := &rfmv1.PollResponse{Jobs: make([]rfmv1.JobStatus, 0, len(req.JobIDs))}
	for _, id := range req.JobIDs {
		j := s.lookup(id)
		if !j.done && j.pollsLeft > 0 {
			j.pollsLeft--
			if j.pollsLeft == 0 {
				j.done = true
			}
		}
		status := rfmv1.JobStatus{ID: id, Done: j.done}
		if j.done && j.fail {
			status.Error = "rpcsched: simulated remote execution failure"
		}
		resp.Jobs = append(resp.Jobs, status)
	}
	return resp, nil
}
