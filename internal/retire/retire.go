// ============================================================================
// rfm Retire / Cleanup Manager
// ============================================================================
//
// Package: internal/retire
// Purpose: Ref-count-driven stage-directory cleanup.
//
// A task that has finished its pipeline is appended to the retired list but
// keeps its staging directory until every dependent has also finished
// (ref_count reaches zero). Sweep is idempotent: a task already removed
// from the list is simply absent on the next call, and cleanup is invoked
// at most once per task.
//
// ============================================================================

package retire

import (
	"context"
	"log/slog"

	"github.com/regtest/rfmrun/internal/task"
)

// List is the ordered sequence of retired-but-not-yet-cleaned tasks.
type List struct {
	tasks []*task.Task
	log   *slog.Logger
}

// New creates an empty retired list.
func New() *List {
	return &List{log: slog.Default()}
}

// Append adds t to the retired list. Call this once, right after
// t.Finalize succeeds.
func (l *List) Append(t *task.Task) {
	l.tasks = append(l.tasks, t)
}

// Len reports how many tasks are still awaiting cleanup.
func (l *List) Len() int { return len(l.tasks) }

// Sweep invokes Cleanup(keepFiles) on every retired task whose ref-count
// has reached zero, then removes cleaned tasks from the list in place.
// Calling Sweep again with no newly-zeroed tasks is a no-op.
func (l *List) Sweep(ctx context.Context, keepFiles bool) {
	remaining := l.tasks[:0]
	for _, t := range l.tasks {
		if t.RefCount() != 0 {
			remaining = append(remaining, t)
			continue
		}
		if err := t.Cleanup(ctx, keepFiles); err != nil {
			// Cleanup failures are reported through the event bus inside
			// Cleanup itself (FailedStage == PhaseCleanup); the drain
			// loop is not aborted.
			l.log.Error("cleanup failed", "case", t.Case.Key().String(), "error", err)
		}
	}
	l.tasks = remaining
}
