// ============================================================================
// rfm Remote Partition Scheduler - Client
// ============================================================================
//
// Package: internal/rpcsched
// File: client.go
// Purpose: An rfm.Scheduler backed by a PartitionSchedulerClient gRPC stub.
//          Poll batches every outstanding job handle into a single
//          PollRequest per call, honouring Scheduler's "batch jobs to
//          amortise system calls" contract instead of issuing one RPC per
//          job.
//
// ============================================================================

package rpcsched

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/regtest/rfmrun/internal/rpcsched/rfmv1"
	"github.com/regtest/rfmrun/pkg/rfm"
)

// ErrSimulatedFailure is returned via a RemoteJob's Status when the server
// reports a job as done-but-failed.
var ErrSimulatedFailure = errors.New("rpcsched: simulated remote execution failure")

// Client implements rfm.Scheduler against a remote PartitionSchedulerClient.
type Client struct {
	rpc     rfmv1.PartitionSchedulerClient
	timeout time.Duration
}

// NewClient wraps an already-dialed PartitionSchedulerClient. timeout bounds
// each Poll round trip; zero means no additional deadline beyond ctx.
func NewClient(rpc rfmv1.PartitionSchedulerClient, timeout time.Duration) *Client {
	return &Client{rpc: rpc, timeout: timeout}
}

// Poll implements rfm.Scheduler. Every job not a *RemoteJob is skipped.
func (c *Client) Poll(ctx context.Context, jobs ...rfm.Job) error {
	byID := make(map[string]*RemoteJob, len(jobs))
	ids := make([]string, 0, len(jobs))
	for _, j := range jobs {
		rj, ok := j.(*RemoteJob)
		if !ok || rj == nil {
			continue
		}
		byID[rj.ID()] = rj
		ids = append(ids, rj.ID())
	}
	if len(ids) == 0 {
		return nil
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.rpc.Poll(ctx, &rfmv1.PollRequest{JobIDs: ids})
	if err != nil {
		return fmt.Errorf("rpcsched: poll: %w", err)
	}

	for _, status := range resp.Jobs {
		rj, ok := byID[status.ID]
		if !ok {
			continue
		}
		var jobErr error
		if status.Error != "" {
			jobErr = fmt.Errorf("%w: %s", ErrSimulatedFailure, status.Error)
		}
		rj.setStatus(status.Done, jobErr)
	}
	return nil
}
