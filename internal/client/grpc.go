package client

import (
	"context"
	"fmt"

	"github.com/alfredjeanlab/dispatch/internal/journeys"
	"github.com/alfredjeanlab/dispatch/internal/model"
	"github.com/alfredjeanlab/dispatch/internal/rpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

// GRPCClient implements DispatchClient over the gRPC StatsService. Only the
// stats and health calls are served; everything else returns ErrUnsupported.
type GRPCClient struct {
	conn   *grpc.ClientConn
	client rpc.StatsServiceClient
}

// NewGRPCClient connects to the given gRPC address and returns a client.
// When token is non-empty it is sent as a bearer token on every call.
func NewGRPCClient(addr, token string, opts ...grpc.DialOption) (*GRPCClient, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	if token != "" {
		opts = append(opts, grpc.WithUnaryInterceptor(bearerInterceptor(token)))
	}
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial: %w", err)
	}
	return &GRPCClient{
		conn:   conn,
		client: rpc.NewStatsServiceClient(conn),
	}, nil
}

func bearerInterceptor(token string) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

func (c *GRPCClient) Close() error {
	return c.conn.Close()
}

// --- Stats ---

func (c *GRPCClient) GetJourneysStats(ctx context.Context, workspaceID string, journeyIDs []string) ([]*model.JourneyStats, error) {
	resp, err := c.client.GetJourneysStats(ctx, &rpc.GetJourneysStatsRequest{WorkspaceID: workspaceID, JourneyIDs: journeyIDs})
	if err != nil {
		return nil, err
	}
	return resp.Stats, nil
}

func (c *GRPCClient) GetJourneyMessageStats(ctx context.Context, workspaceID string, js []journeys.MessageStatsJourney) ([]*model.JourneyMessageStats, error) {
	resp, err := c.client.GetJourneyMessageStats(ctx, &rpc.GetJourneyMessageStatsRequest{WorkspaceID: workspaceID, Journeys: js})
	if err != nil {
		return nil, err
	}
	return resp.Stats, nil
}

func (c *GRPCClient) Health(ctx context.Context) (string, error) {
	resp, err := c.client.Health(ctx, &rpc.HealthRequest{})
	if err != nil {
		return "", err
	}
	return resp.Status, nil
}

// --- Unsupported over gRPC ---

func unsupported(op string) error {
	return fmt.Errorf("grpc %s: %w", op, ErrUnsupported)
}

func (c *GRPCClient) CreateWorkspace(context.Context, *CreateWorkspaceRequest) (*model.Workspace, error) {
	return nil, unsupported("CreateWorkspace")
}

func (c *GRPCClient) ListWorkspaces(context.Context) ([]*model.Workspace, error) {
	return nil, unsupported("ListWorkspaces")
}

func (c *GRPCClient) GetWorkspace(context.Context, string) (*model.Workspace, error) {
	return nil, unsupported("GetWorkspace")
}

func (c *GRPCClient) UpsertJourney(context.Context, *UpsertJourneyRequest) (*model.Journey, error) {
	return nil, unsupported("UpsertJourney")
}

func (c *GRPCClient) ListJourneys(context.Context, string, []string) ([]*model.Journey, error) {
	return nil, unsupported("ListJourneys")
}

func (c *GRPCClient) GetJourney(context.Context, string, string) (*model.Journey, error) {
	return nil, unsupported("GetJourney")
}

func (c *GRPCClient) DeleteJourney(context.Context, string, string) error {
	return unsupported("DeleteJourney")
}

func (c *GRPCClient) RecordNodeProcessed(context.Context, *RecordNodeProcessedRequest) (*model.NodeProcessed, error) {
	return nil, unsupported("RecordNodeProcessed")
}

func (c *GRPCClient) CreateBroadcast(context.Context, *CreateBroadcastRequest) (*model.Broadcast, error) {
	return nil, unsupported("CreateBroadcast")
}

func (c *GRPCClient) ListBroadcasts(context.Context, string, []string) ([]*model.Broadcast, error) {
	return nil, unsupported("ListBroadcasts")
}

func (c *GRPCClient) BroadcastAction(context.Context, model.BroadcastAction, string, string) (*model.MessageResponse, error) {
	return nil, unsupported("BroadcastAction")
}

func (c *GRPCClient) Track(context.Context, *TrackRequest) (*TrackResponse, error) {
	return nil, unsupported("Track")
}

func (c *GRPCClient) Batch(context.Context, string, []model.TrackData) (*TrackResponse, error) {
	return nil, unsupported("Batch")
}

func (c *GRPCClient) ListEvents(context.Context, *ListEventsRequest) ([]*model.Event, error) {
	return nil, unsupported("ListEvents")
}
