// Package rpc defines the dispatch.v1.StatsService gRPC contract. Requests
// and responses travel as protobuf well-known types (google.protobuf.Struct
// for the stats calls, Empty and StringValue for Health) on the default
// proto codec. The typed Go messages below are converted at the stub and
// handler boundary, so callers never see the wire form.
package rpc

import (
	"context"

	"github.com/alfredjeanlab/dispatch/internal/journeys"
	"github.com/alfredjeanlab/dispatch/internal/model"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const ServiceName = "dispatch.v1.StatsService"

const (
	StatsService_GetJourneysStats_FullMethodName       = "/dispatch.v1.StatsService/GetJourneysStats"
	StatsService_GetJourneyMessageStats_FullMethodName = "/dispatch.v1.StatsService/GetJourneyMessageStats"
	StatsService_Health_FullMethodName                 = "/dispatch.v1.StatsService/Health"
)

type GetJourneysStatsRequest struct {
	WorkspaceID string   `json:"workspace_id"`
	JourneyIDs  []string `json:"journey_ids"`
}

type GetJourneysStatsResponse struct {
	Stats []*model.JourneyStats `json:"stats"`
}

type GetJourneyMessageStatsRequest struct {
	WorkspaceID string                         `json:"workspace_id"`
	Journeys    []journeys.MessageStatsJourney `json:"journeys"`
}

type GetJourneyMessageStatsResponse struct {
	Stats []*model.JourneyMessageStats `json:"stats"`
}

type HealthRequest struct{}

type HealthResponse struct {
	Status string `json:"status"`
}

// StatsServiceClient is the client API for StatsService.
type StatsServiceClient interface {
	GetJourneysStats(ctx context.Context, in *GetJourneysStatsRequest, opts ...grpc.CallOption) (*GetJourneysStatsResponse, error)
	GetJourneyMessageStats(ctx context.Context, in *GetJourneyMessageStatsRequest, opts ...grpc.CallOption) (*GetJourneyMessageStatsResponse, error)
	Health(ctx context.Context, in *HealthRequest, opts ...grpc.CallOption) (*HealthResponse, error)
}

type statsServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewStatsServiceClient(cc grpc.ClientConnInterface) StatsServiceClient {
	return &statsServiceClient{cc}
}

// invokeStruct sends in as a Struct and decodes the Struct reply into out.
func (c *statsServiceClient) invokeStruct(ctx context.Context, method string, in, out any, opts []grpc.CallOption) error {
	req, err := toStruct(in)
	if err != nil {
		return err
	}
	reply := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, req, reply, opts...); err != nil {
		return err
	}
	return fromStruct(reply, out)
}

func (c *statsServiceClient) GetJourneysStats(ctx context.Context, in *GetJourneysStatsRequest, opts ...grpc.CallOption) (*GetJourneysStatsResponse, error) {
	out := new(GetJourneysStatsResponse)
	if err := c.invokeStruct(ctx, StatsService_GetJourneysStats_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *statsServiceClient) GetJourneyMessageStats(ctx context.Context, in *GetJourneyMessageStatsRequest, opts ...grpc.CallOption) (*GetJourneyMessageStatsResponse, error) {
	out := new(GetJourneyMessageStatsResponse)
	if err := c.invokeStruct(ctx, StatsService_GetJourneyMessageStats_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *statsServiceClient) Health(ctx context.Context, _ *HealthRequest, opts ...grpc.CallOption) (*HealthResponse, error) {
	reply := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, StatsService_Health_FullMethodName, &emptypb.Empty{}, reply, opts...); err != nil {
		return nil, err
	}
	return &HealthResponse{Status: reply.GetValue()}, nil
}

// StatsServiceServer is the server API for StatsService. Implementations
// should embed UnimplementedStatsServiceServer.
type StatsServiceServer interface {
	GetJourneysStats(context.Context, *GetJourneysStatsRequest) (*GetJourneysStatsResponse, error)
	GetJourneyMessageStats(context.Context, *GetJourneyMessageStatsRequest) (*GetJourneyMessageStatsResponse, error)
	Health(context.Context, *HealthRequest) (*HealthResponse, error)
}

type UnimplementedStatsServiceServer struct{}

func (UnimplementedStatsServiceServer) GetJourneysStats(context.Context, *GetJourneysStatsRequest) (*GetJourneysStatsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetJourneysStats not implemented")
}

func (UnimplementedStatsServiceServer) GetJourneyMessageStats(context.Context, *GetJourneyMessageStatsRequest) (*GetJourneyMessageStatsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetJourneyMessageStats not implemented")
}

func (UnimplementedStatsServiceServer) Health(context.Context, *HealthRequest) (*HealthResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Health not implemented")
}

func RegisterStatsServiceServer(s grpc.ServiceRegistrar, srv StatsServiceServer) {
	s.RegisterService(&StatsService_ServiceDesc, srv)
}

// structHandler adapts a typed unary method to the Struct wire form. The
// interceptor chain sees the wire messages.
func structHandler[Req, Resp any](fullMethod string, call func(StatsServiceServer, context.Context, *Req) (*Resp, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		handler := func(ctx context.Context, req any) (any, error) {
			typed := new(Req)
			if err := fromStruct(req.(*structpb.Struct), typed); err != nil {
				return nil, status.Error(codes.InvalidArgument, err.Error())
			}
			resp, err := call(srv.(StatsServiceServer), ctx, typed)
			if err != nil {
				return nil, err
			}
			out, err := toStruct(resp)
			if err != nil {
				return nil, status.Error(codes.Internal, err.Error())
			}
			return out, nil
		}
		if interceptor == nil {
			return handler(ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		return interceptor(ctx, in, info, handler)
	}
}

func _StatsService_Health_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	handler := func(ctx context.Context, _ any) (any, error) {
		resp, err := srv.(StatsServiceServer).Health(ctx, &HealthRequest{})
		if err != nil {
			return nil, err
		}
		return wrapperspb.String(resp.Status), nil
	}
	if interceptor == nil {
		return handler(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: StatsService_Health_FullMethodName}
	return interceptor(ctx, in, info, handler)
}

// StatsService_ServiceDesc is the grpc.ServiceDesc for StatsService.
var StatsService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*StatsServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetJourneysStats",
			Handler: structHandler(StatsService_GetJourneysStats_FullMethodName,
				StatsServiceServer.GetJourneysStats),
		},
		{
			MethodName: "GetJourneyMessageStats",
			Handler: structHandler(StatsService_GetJourneyMessageStats_FullMethodName,
				StatsServiceServer.GetJourneyMessageStats),
		},
		{MethodName: "Health", Handler: _StatsService_Health_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: FileName,
}
