package localsched

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/regtest/rfmrun/internal/simpipeline"
)

func waitForDone(t *testing.T, j *simpipeline.Job) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if j.Done() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("job did not complete within the test deadline")
}

func TestPollRunsJobToCompletion(t *testing.T) {
	s := New(2, 0, 0)
	defer s.Close()

	j := simpipeline.NewJob("j1", 5, false)
	if err := s.Poll(context.Background(), j); err != nil {
		t.Fatalf("Poll() = %v, want nil", err)
	}
	waitForDone(t, j)
	if j.Err() != nil {
		t.Fatalf("Err() = %v, want nil", j.Err())
	}
}

func TestPollIsIdempotentPerJob(t *testing.T) {
	s := New(1, 0, 0)
	defer s.Close()

	j := simpipeline.NewJob("j1", 5, false)
	if err := s.Poll(context.Background(), j); err != nil {
		t.Fatalf("Poll() = %v, want nil", err)
	}
	if err := s.Poll(context.Background(), j); err != nil {
		t.Fatalf("second Poll() = %v, want nil (already-seen job silently skipped)", err)
	}
	waitForDone(t, j)
}

func TestPollAfterCloseReturnsErrClosed(t *testing.T) {
	s := New(1, 0, 0)
	s.Close()

	j := simpipeline.NewJob("j1", 1, false)
	if err := s.Poll(context.Background(), j); !errors.Is(err, ErrClosed) {
		t.Fatalf("Poll() after Close = %v, want ErrClosed", err)
	}
}

func TestPollIgnoresForeignJobTypes(t *testing.T) {
	s := New(1, 0, 0)
	defer s.Close()

	if err := s.Poll(context.Background(), "not a job"); err != nil {
		t.Fatalf("Poll() = %v, want nil for an unrecognised job type", err)
	}
}
