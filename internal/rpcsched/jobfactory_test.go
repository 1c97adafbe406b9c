package rpcsched

import (
	"context"
	"testing"

	"google.golang.org/grpc"

	"github.com/regtest/rfmrun/internal/rpcsched/rfmv1"
	"github.com/regtest/rfmrun/internal/simpipeline"
)

// directClient adapts a *Server directly to rfmv1.PartitionSchedulerClient,
// skipping the network for an in-process round-trip test of the
// factory/server/client trio.
type directClient struct{ srv *Server }

func (d directClient) Poll(ctx context.Context, in *rfmv1.PollRequest, opts ...grpc.CallOption) (*rfmv1.PollResponse, error) {
	return d.srv.Poll(ctx, in)
}

func TestSeedingJobFactoryDrivesPipelineToCompletion(t *testing.T) {
	srv := NewServer(10, 0, 0)
	client := NewClient(directClient{srv}, 0)

	cfg := simpipeline.Config{
		RunPolls:    2,
		NewRunJob:   SeedingJobFactory(srv),
		NewBuildJob: SeedingJobFactory(srv),
	}
	p := simpipeline.New(cfg, nil)

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := client.Poll(context.Background(), p.Job()); err != nil {
			t.Fatalf("client.Poll: %v", err)
		}
		done, err := p.RunComplete(context.Background())
		if err != nil {
			t.Fatalf("RunComplete: %v", err)
		}
		if done {
			if i != 1 {
				t.Fatalf("RunComplete reported done after %d polls, want 2", i+1)
			}
			return
		}
	}
	t.Fatal("job never completed within 2 polls")
}
