package engine

import "github.com/regtest/rfmrun/internal/events"

// Stats counts terminal task outcomes observed on the bus, for verifying
// that submitted == success + failure + skip and for exposing simple
// totals to a CLI or metrics collector. Like every other listener it is
// only ever invoked from within Submit/Drain, so no locking is needed.
type Stats struct {
	events.BaseListener

	Succeeded int
	Failed    int
	Skipped   int
}

// NewStats creates a zeroed Stats listener. Register it on a Policy's bus
// before submitting any case.
func NewStats() *Stats { return &Stats{} }

func (s *Stats) OnTaskSuccess(events.TaskSnapshot) error {
	s.Succeeded++
	return nil
}

func (s *Stats) OnTaskFailure(events.TaskSnapshot) error {
	s.Failed++
	return nil
}

func (s *Stats) OnTaskSkip(events.TaskSnapshot) error {
	s.Skipped++
	return nil
}

// Total returns the sum of all three terminal-outcome counts.
func (s *Stats) Total() int { return s.Succeeded + s.Failed + s.Skipped }
