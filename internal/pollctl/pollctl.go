// ============================================================================
// rfm Poll Controller - Adaptive Inter-Poll Sleep
// ============================================================================
//
// Package: internal/pollctl
// Purpose: Adapt the sleep interval between scheduler polls.
//
// Rationale: when the workload is stable the controller grows sleep
// exponentially to minimise scheduler load; every membership change
// (arrival or completion) snaps back to the minimum to preserve latency.
//
// ============================================================================

package pollctl

import (
	"log/slog"
	"math"
	"time"
)

const (
	SleepMin   = 100 * time.Millisecond
	SleepMax   = 10 * time.Second
	GrowthRate = 1.1
)

// Sleeper abstracts time.Sleep so tests can run the controller without
// real wall-clock delays.
type Sleeper func(time.Duration)

// Controller adapts the inter-poll sleep interval.
type Controller struct {
	sleep    Sleeper
	now      func() time.Time
	interval time.Duration
	lastN    int
	nPolls   int
	tInit    time.Time
	log      *slog.Logger
}

// New creates a poll controller using real time.Sleep/time.Now.
func New() *Controller {
	return &Controller{
		sleep: time.Sleep,
		now:   time.Now,
		lastN: -1,
		log:   slog.Default(),
	}
}

// NewWithClock creates a poll controller with injected sleep/now functions,
// for deterministic tests of the adaptive-poll behaviour.
func NewWithClock(sleep Sleeper, now func() time.Time) *Controller {
	c := New()
	c.sleep = sleep
	c.now = now
	return c
}

// NoteRunning records that n tasks are currently awaiting poll. If n
// differs from the previous call, the sleep interval resets to SleepMin;
// otherwise it grows by GrowthRate, capped at SleepMax. The first call of a
// drain initialises the wall-clock reference used by the poll-rate metric.
func (c *Controller) NoteRunning(n int) *Controller {
	if c.nPolls == 0 {
		c.tInit = c.now()
		c.interval = SleepMin
	} else if n != c.lastN {
		c.interval = SleepMin
	} else {
		next := time.Duration(float64(c.interval) * GrowthRate)
		if next > SleepMax {
			next = SleepMax
		}
		c.interval = next
	}
	c.lastN = n
	return c
}

// Snooze sleeps for the current interval and reports the running poll
// rate (polls per elapsed second).
func (c *Controller) Snooze() {
	elapsed := c.now().Sub(c.tInit)
	c.nPolls++
	rate := math.Inf(1)
	if elapsed > 0 {
		rate = float64(c.nPolls) / elapsed.Seconds()
	}
	c.log.Debug("poll rate control", "sleep", c.interval, "poll_rate_per_s", rate)
	c.sleep(c.interval)
}

// Interval returns the interval the next Snooze will sleep for, mostly for
// tests and metrics export.
func (c *Controller) Interval() time.Duration { return c.interval }

// Reset clears accumulated poll-rate state, e.g. at the start of a new
// drain.
func (c *Controller) Reset() {
	c.nPolls = 0
	c.lastN = -1
	c.interval = 0
}
