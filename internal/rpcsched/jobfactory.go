// ============================================================================
// rfm Remote Partition Scheduler - Job Factory
// ============================================================================
//
// Package: internal/rpcsched
// File: jobfactory.go
// Purpose: Bridges simpipeline.Config.NewBuildJob/NewRunJob (which must
//          return a simpipeline.JobHandle) to the RemoteJob/Server pair,
//          so a case can be configured to run its compile or run stage
//          against a remote partition without simpipeline importing
//          anything about gRPC.
//
// ============================================================================

package rpcsched

import "github.com/regtest/rfmrun/internal/simpipeline"

// SeedingJobFactory returns a simpipeline job factory that pre-registers
// each job's poll count and outcome on srv (so a test harness gets the same
// determinism a local *simpipeline.Job would give it) and returns the
// RemoteJob handle the pipeline will poll via a Client.
func SeedingJobFactory(srv *Server) func(id string, polls int, failOnDone bool) simpipeline.JobHandle {
	return func(id string, polls int, failOnDone bool) simpipeline.JobHandle {
		srv.Seed(id, polls, failOnDone)
		return NewRemoteJob(id)
	}
}
