// ============================================================================
// rfm Admission Controller
// ============================================================================
//
// Package: internal/admission
// Purpose: Per-partition and per-local queues with capacity caps.
//
// Design Philosophy:
//   Admission is expressed as counting sets rather than channels: it gates
//   *queue membership* (how many tasks are currently compiling/running
//   against a scheduler), not task dispatch itself.
//
//   Admission is inclusive (`len(queue) <= cap`), so the effective capacity
//   is cap+1 — preserved as the default for observable-behaviour
//   compatibility. StrictCaps switches every queue in the controller to
//   `<` instead, as a configurable policy rather than a silent fix.
//
// ============================================================================

package admission

import "github.com/regtest/rfmrun/pkg/rfm"

// Queue is a capacity-bounded set of tasks (identified by CaseKey) that are
// currently occupying a compile or run slot on some scheduler.
type Queue struct {
	cap     int
	strict  bool
	members map[rfm.CaseKey]struct{}
}

func newQueue(cap int, strict bool) *Queue {
	return &Queue{cap: cap, strict: strict, members: make(map[rfm.CaseKey]struct{})}
}

// Len reports the current queue occupancy.
func (q *Queue) Len() int { return len(q.members) }

// HasRoom reports whether one more task can be admitted right now.
func (q *Queue) HasRoom() bool {
	if q.strict {
		return q.Len() < q.cap
	}
	return q.Len() <= q.cap
}

// Admit adds key to the queue if there is room, reporting whether it was
// admitted.
func (q *Queue) Admit(key rfm.CaseKey) bool {
	if !q.HasRoom() {
		return false
	}
	q.members[key] = struct{}{}
	return true
}

// Release removes key from the queue. It is a no-op if key is not a
// member, matching the "admission symmetry" law (a task is never re-added
// except on a subsequent stage transition).
func (q *Queue) Release(key rfm.CaseKey) {
	delete(q.members, key)
}

// Members snapshots the current membership in no particular order: members
// are kept in a Go map, so insertion order is not preserved. Callers that
// need FIFO-ish iteration (the poll batch) track order themselves;
// membership here is purely for admission accounting.
func (q *Queue) Members() []rfm.CaseKey {
	out := make([]rfm.CaseKey, 0, len(q.members))
	for k := range q.members {
		out = append(out, k)
	}
	return out
}

// Controller owns the local queue and one queue per partition.
type Controller struct {
	strict     bool
	local      *Queue
	partitions map[string]*Queue
}

// New creates an admission controller. localCap is rfm_max_jobs.
func New(localCap int, strictCaps bool) *Controller {
	return &Controller{
		strict:     strictCaps,
		local:      newQueue(localCap, strictCaps),
		partitions: make(map[string]*Queue),
	}
}

// Local returns the local queue.
func (c *Controller) Local() *Queue { return c.local }

// Partition returns (creating if necessary) the queue for partition p with
// capacity cap. Subsequent calls for the same partition name reuse the
// existing queue and ignore cap: the capacity is fixed on first
// observation.
func (c *Controller) Partition(name string, cap int) *Queue {
	q, ok := c.partitions[name]
	if !ok {
		q = newQueue(cap, c.strict)
		c.partitions[name] = q
	}
	return q
}
