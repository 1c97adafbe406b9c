// ============================================================================
// rfm v1 - Hand-Written Service Stubs
// ============================================================================
//
// Package: rfmv1
// File: service.go
// Purpose: Client/server plumbing for PartitionScheduler, hand-written in
//          the shape protoc-gen-go-grpc would produce: an UnimplementedXServer
//          embed, a thin XClient interface, and a package-level ServiceDesc
//          — see messages.go for why the messages themselves are plain
//          structs rather than protoc output.
//
// ============================================================================

package rfmv1

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const serviceName = "rfm.v1.PartitionScheduler"

func grpcUnimplemented(method string) error {
	return status.Error(codes.Unimplemented, fmt.Sprintf("method %s not implemented", method))
}

// PartitionSchedulerServer is the service contract a remote partition
// agent implements.
type PartitionSchedulerServer interface {
	Poll(context.Context, *PollRequest) (*PollResponse, error)
}

// UnimplementedPartitionSchedulerServer satisfies PartitionSchedulerServer
// with method-not-implemented errors, for embedding by real servers
// (mirrors protoc-gen-go-grpc's UnimplementedXServer convention).
type UnimplementedPartitionSchedulerServer struct{}

func (UnimplementedPartitionSchedulerServer) Poll(context.Context, *PollRequest) (*PollResponse, error) {
	return nil, grpcUnimplemented("Poll")
}

// RegisterPartitionSchedulerServer registers srv's implementation on s.
func RegisterPartitionSchedulerServer(s grpc.ServiceRegistrar, srv PartitionSchedulerServer) {
	s.RegisterService(&serviceDesc, srv)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*PartitionSchedulerServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Poll",
			Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
				req := new(PollRequest)
				if err := dec(req); err != nil {
					return nil, err
				}
				if interceptor == nil {
					return srv.(PartitionSchedulerServer).Poll(ctx, req)
				}
				info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Poll"}
				handler := func(ctx context.Context, req any) (any, error) {
					return srv.(PartitionSchedulerServer).Poll(ctx, req.(*PollRequest))
				}
				return interceptor(ctx, req, info, handler)
			},
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "rfm/v1/scheduler.proto",
}

// PartitionSchedulerClient is the client-side contract.
type PartitionSchedulerClient interface {
	Poll(ctx context.Context, in *PollRequest, opts ...grpc.CallOption) (*PollResponse, error)
}

type partitionSchedulerClient struct {
	cc grpc.ClientConnInterface
}

// NewPartitionSchedulerClient wraps an established gRPC connection.
func NewPartitionSchedulerClient(cc grpc.ClientConnInterface) PartitionSchedulerClient {
	return &partitionSchedulerClient{cc: cc}
}

func (c *partitionSchedulerClient) Poll(ctx context.Context, in *PollRequest, opts ...grpc.CallOption) (*PollResponse, error) {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(jsonCodec{}.Name())}, opts...)
	out := new(PollResponse)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Poll", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
