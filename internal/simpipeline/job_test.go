package simpipeline

import (
	"errors"
	"testing"
)

func TestJobAdvanceReachesDoneAfterPolls(t *testing.T) {
	j := NewJob("j1", 3, false)

	for i := 0; i < 2; i++ {
		j.Advance()
		if j.Done() {
			t.Fatalf("Done() = true after %d advances, want false before the 3rd", i+1)
		}
	}
	j.Advance()
	if !j.Done() {
		t.Fatal("Done() = false, want true after 3 advances")
	}
	if j.Err() != nil {
		t.Fatalf("Err() = %v, want nil", j.Err())
	}
}

func TestJobAdvanceFailOnDone(t *testing.T) {
	j := NewJob("j1", 1, true)
	j.Advance()
	if !errors.Is(j.Err(), ErrSimulatedFailure) {
		t.Fatalf("Err() = %v, want ErrSimulatedFailure", j.Err())
	}
}

func TestJobAdvancePastDoneIsNoop(t *testing.T) {
	j := NewJob("j1", 1, false)
	j.Advance()
	j.Advance()
	j.Advance()
	if !j.Done() || j.Err() != nil {
		t.Fatalf("Done()=%v Err()=%v, want done with no error", j.Done(), j.Err())
	}
}

func TestJobCompleteWithExplicitError(t *testing.T) {
	j := NewJob("j1", 5, false)
	boom := errors.New("boom")
	j.Complete(boom)
	if !j.Done() || !errors.Is(j.Err(), boom) {
		t.Fatalf("Done()=%v Err()=%v, want done with boom", j.Done(), j.Err())
	}
}

func TestJobCompleteIsOneShot(t *testing.T) {
	j := NewJob("j1", 5, false)
	j.Complete(nil)
	j.Complete(errors.New("too late"))
	if j.Err() != nil {
		t.Fatalf("Err() = %v, want nil (second Complete must be ignored)", j.Err())
	}
}
