package rpcsched

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/grpc"

	"github.com/regtest/rfmrun/internal/rpcsched/rfmv1"
)

type fakeRPC struct {
	resp *rfmv1.PollResponse
	err  error
	seen *rfmv1.PollRequest
}

func (f *fakeRPC) Poll(ctx context.Context, in *rfmv1.PollRequest, opts ...grpc.CallOption) (*rfmv1.PollResponse, error) {
	f.seen = in
	return f.resp, f.err
}

func TestClientPollUpdatesRemoteJobs(t *testing.T) {
	fake := &fakeRPC{resp: &rfmv1.PollResponse{Jobs: []rfmv1.JobStatus{
		{ID: "a", Done: true},
		{ID: "b", Done: false},
	}}}
	c := NewClient(fake, 0)

	a := NewRemoteJob("a")
	b := NewRemoteJob("b")
	if err := c.Poll(context.Background(), a, b); err != nil {
		t.Fatalf("Poll: %v", err)
	}

	if done, err := a.Status(); !done || err != nil {
		t.Fatalf("a.Status() = (%v, %v), want (true, nil)", done, err)
	}
	if done, _ := b.Status(); done {
		t.Fatal("b.Status() done = true, want false")
	}
	if len(fake.seen.JobIDs) != 2 {
		t.Fatalf("server saw %d job IDs, want 2 (batched into one call)", len(fake.seen.JobIDs))
	}
}

func TestClientPollTranslatesServerError(t *testing.T) {
	fake := &fakeRPC{resp: &rfmv1.PollResponse{Jobs: []rfmv1.JobStatus{
		{ID: "a", Done: true, Error: "remote batch job crashed"},
	}}}
	c := NewClient(fake, 0)

	a := NewRemoteJob("a")
	if err := c.Poll(context.Background(), a); err != nil {
		t.Fatalf("Poll: %v", err)
	}
	done, err := a.Status()
	if !done || !errors.Is(err, ErrSimulatedFailure) {
		t.Fatalf("a.Status() = (%v, %v), want (true, ErrSimulatedFailure)", done, err)
	}
}

func TestClientPollSkipsNonRemoteJobs(t *testing.T) {
	fake := &fakeRPC{resp: &rfmv1.PollResponse{}}
	c := NewClient(fake, 0)

	if err := c.Poll(context.Background(), "not a remote job"); err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if fake.seen != nil {
		t.Fatal("expected the RPC to be skipped entirely when no RemoteJob is present")
	}
}

func TestClientPollPropagatesTransportError(t *testing.T) {
	fake := &fakeRPC{err: errors.New("connection refused")}
	c := NewClient(fake, 0)

	a := NewRemoteJob("a")
	if err := c.Poll(context.Background(), a); err == nil {
		t.Fatal("expected an error when the RPC itself fails")
	}
}
