package server

import (
	"context"

	"github.com/alfredjeanlab/dispatch/internal/rpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"
)

// NewGRPCServer creates a gRPC server with standard interceptors, registers
// the StatsService and reflection, and returns the server ready to serve.
// An empty authToken disables authentication.
func NewGRPCServer(srv *DispatchServer, authToken string) *grpc.Server {
	gs := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			RecoveryInterceptor,
			LoggingInterceptor,
			AuthInterceptor(authToken),
		),
	)

	rpc.RegisterStatsServiceServer(gs, srv)
	reflection.Register(gs)

	return gs
}

// GetJourneysStats implements rpc.StatsServiceServer.
func (s *DispatchServer) GetJourneysStats(ctx context.Context, req *rpc.GetJourneysStatsRequest) (*rpc.GetJourneysStatsResponse, error) {
	stats, err := s.journeysStats(ctx, req.WorkspaceID, req.JourneyIDs)
	if err != nil {
		return nil, grpcError(err)
	}
	return &rpc.GetJourneysStatsResponse{Stats: stats}, nil
}

// GetJourneyMessageStats implements rpc.StatsServiceServer.
func (s *DispatchServer) GetJourneyMessageStats(ctx context.Context, req *rpc.GetJourneyMessageStatsRequest) (*rpc.GetJourneyMessageStatsResponse, error) {
	stats, err := s.journeyMessageStats(ctx, req.WorkspaceID, req.Journeys)
	if err != nil {
		return nil, grpcError(err)
	}
	return &rpc.GetJourneyMessageStatsResponse{Stats: stats}, nil
}

func (s *DispatchServer) Health(_ context.Context, _ *rpc.HealthRequest) (*rpc.HealthResponse, error) {
	return &rpc.HealthResponse{Status: "ok"}, nil
}
