// ============================================================================
// rfm Local Scheduler - In-Process Worker Pool
// ============================================================================
//
// Package: internal/localsched
// Purpose: An rfm.Scheduler for jobs that run on the driver host instead of
//          a batch system (the "local" / "build_locally" queue).
//
// Design Philosophy:
//   A fixed goroutine pool pulls jobs off a buffered channel and executes
//   them. A job here is a simpipeline.Job, and the result is written back
//   onto the job itself (Job.Complete) instead of forwarded on a result
//   channel, because rfm.Scheduler.Poll only needs to have advanced job
//   state in place by the time it returns control — the caller discovers
//   completion later via Pipeline.CompileComplete/RunComplete, not via a
//   result channel.
//
// ============================================================================

package localsched

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/regtest/rfmrun/internal/simpipeline"
	"github.com/regtest/rfmrun/pkg/rfm"
)

// ErrClosed is returned by Poll after Close.
var ErrClosed = errors.New("localsched: scheduler is closed")

// Scheduler runs simulated jobs on a fixed pool of goroutines local to the
// driver process.
type Scheduler struct {
	taskCh chan *simpipeline.Job
	wg     sync.WaitGroup
	log    *slog.Logger

	mu     sync.Mutex
	seen   map[*simpipeline.Job]struct{}
	closed bool

	jitterMax        time.Duration
	randomFailChance int
	rnd              *rand.Rand
	rndMu            sync.Mutex
}

// New starts a local scheduler with workers goroutines. jitterMax bounds
// each job's simulated execution time; randomFailChance is the percent
// chance [0,100) a job fails spontaneously even when not configured to.
func New(workers int, jitterMax time.Duration, randomFailChance int) *Scheduler {
	if workers < 1 {
		workers = 1
	}
	s := &Scheduler{
		taskCh:           make(chan *simpipeline.Job, 256),
		log:              slog.Default(),
		seen:             make(map[*simpipeline.Job]struct{}),
		jitterMax:        jitterMax,
		randomFailChance: randomFailChance,
		rnd:              rand.New(rand.NewSource(1)),
	}
	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go s.runWorker(i)
	}
	return s
}

func (s *Scheduler) runWorker(id int) {
	defer s.wg.Done()
	for job := range s.taskCh {
		s.execute(job)
	}
}

func (s *Scheduler) execute(job *simpipeline.Job) {
	start := time.Now()
	d := s.randomJitter()
	time.Sleep(d)

	var err error
	if s.randomFailChance > 0 && s.randomJitterChance() < s.randomFailChance {
		err = simpipeline.ErrSimulatedFailure
	}
	job.Complete(err)
	s.log.Debug("local job finished", "job", job.ID, "duration", time.Since(start), "error", err)
}

func (s *Scheduler) randomJitter() time.Duration {
	if s.jitterMax <= 0 {
		return 0
	}
	s.rndMu.Lock()
	defer s.rndMu.Unlock()
	return time.Duration(s.rnd.Int63n(int64(s.jitterMax)))
}

func (s *Scheduler) randomJitterChance() int {
	s.rndMu.Lock()
	defer s.rndMu.Unlock()
	return s.rnd.Intn(100)
}

// Poll enqueues every not-yet-seen job for execution and returns
// immediately; it never blocks on a job's completion.
func (s *Scheduler) Poll(ctx context.Context, jobs ...rfm.Job) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	var toEnqueue []*simpipeline.Job
	for _, j := range jobs {
		sj, ok := j.(*simpipeline.Job)
		if !ok || sj == nil {
			continue
		}
		if _, ok := s.seen[sj]; ok {
			continue
		}
		s.seen[sj] = struct{}{}
		toEnqueue = append(toEnqueue, sj)
	}
	s.mu.Unlock()

	for _, sj := range toEnqueue {
		select {
		case s.taskCh <- sj:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Close stops accepting new jobs and waits for in-flight workers to drain.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	close(s.taskCh)
	s.wg.Wait()
}
