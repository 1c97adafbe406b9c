package events

import (
	"log/slog"

	"github.com/regtest/rfmrun/pkg/rfm"
)

// Budget tracks the global failure counter and turns "too many failures"
// into an abort-class condition.
//
// Whether a cleanup-stage failure counts toward the budget is genuinely
// ambiguous — CountsCleanupFailures makes it a configurable policy instead
// of a hard-coded assumption.
type Budget struct {
	BaseListener

	Max                   int
	CountsCleanupFailures bool
	count                 int
	log                   *slog.Logger
}

// NewBudget creates a failure budget listener. max <= 0 disables the budget
// (it never fires).
func NewBudget(max int, countsCleanupFailures bool) *Budget {
	return &Budget{Max: max, CountsCleanupFailures: countsCleanupFailures, log: slog.Default()}
}

// Count returns the number of failures observed so far.
func (b *Budget) Count() int { return b.count }

func (b *Budget) OnTaskFailure(t TaskSnapshot) error {
	if t.FailedStage == rfm.PhaseCleanup && !b.CountsCleanupFailures {
		return nil
	}

	b.count++
	b.log.Warn("task failed", "case", t.Case.Key().String(), "failed_stage", t.FailedStage, "error", t.Err, "total_failures", b.count)

	if b.Max > 0 && b.count >= b.Max {
		return &rfm.FailureLimitError{Count: b.count, Max: b.Max}
	}
	return nil
}
