package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alfredjeanlab/dispatch/internal/events"
	"github.com/alfredjeanlab/dispatch/internal/journeys"
	"github.com/alfredjeanlab/dispatch/internal/model"
	"github.com/alfredjeanlab/dispatch/internal/rpc"
	"github.com/alfredjeanlab/dispatch/internal/store"
	"github.com/alfredjeanlab/dispatch/internal/track"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// DefaultMaxBatchSize caps POST /v1/batch when no limit is configured.
const DefaultMaxBatchSize = 500

// DispatchServer serves the dispatch HTTP API and the gRPC StatsService.
type DispatchServer struct {
	rpc.UnimplementedStatsServiceServer
	store     store.Store
	publisher events.Publisher
	sseHub    *sseHub

	// MaxBatchSize bounds the number of events accepted by one batch call.
	MaxBatchSize int
}

// NewDispatchServer returns a new DispatchServer backed by the given store and publisher.
func NewDispatchServer(s store.Store, p events.Publisher) *DispatchServer {
	return &DispatchServer{
		store:        s,
		publisher:    p,
		sseHub:       newSSEHub(),
		MaxBatchSize: DefaultMaxBatchSize,
	}
}

// recordAndPublish publishes an event to NATS and records it in the SSE
// replay buffer. Both are best-effort; failures are logged but do not block
// the caller.
func (s *DispatchServer) recordAndPublish(ctx context.Context, topic string, event any) {
	if err := s.publisher.Publish(ctx, topic, event); err != nil {
		slog.Warn("failed to publish event", "topic", topic, "error", err)
	}
	s.broadcastEvent(topic, event)
}

// publishUpsert emits the events implied by a journey upsert.
func (s *DispatchServer) publishUpsert(ctx context.Context, res *journeys.UpsertResult) {
	j := res.Journey
	s.recordAndPublish(ctx, events.TopicJourneyUpserted, events.JourneyUpserted{Journey: j, Created: res.Created})
	if res.StatusChange == nil {
		return
	}
	change := events.JourneyStatusChanged{
		WorkspaceID: j.WorkspaceID,
		JourneyID:   j.ID,
		From:        res.StatusChange.From,
		To:          res.StatusChange.To,
	}
	s.recordAndPublish(ctx, events.TopicJourneyStatusChanged, change)
	if res.Resumed {
		s.recordAndPublish(ctx, events.TopicJourneyResumed, change)
	}
}

// inputError indicates invalid user input.
// Transport layers map this to 400 / InvalidArgument.
type inputError string

func (e inputError) Error() string { return string(e) }

// journeysStats is shared by the HTTP and gRPC transports.
func (s *DispatchServer) journeysStats(ctx context.Context, workspaceID string, journeyIDs []string) ([]*model.JourneyStats, error) {
	if workspaceID == "" {
		return nil, inputError("workspace_id is required")
	}
	return journeys.GetJourneysStats(ctx, s.store, workspaceID, journeyIDs)
}

func (s *DispatchServer) journeyMessageStats(ctx context.Context, workspaceID string, js []journeys.MessageStatsJourney) ([]*model.JourneyMessageStats, error) {
	if workspaceID == "" {
		return nil, inputError("workspace_id is required")
	}
	for _, j := range js {
		if j.ID == "" {
			return nil, inputError("journeys[].id is required")
		}
	}
	return journeys.GetJourneyMessageStats(ctx, s.store, workspaceID, js)
}

// httpStatus maps a service error to a status code and client message.
func httpStatus(err error) (int, string) {
	var (
		ie inputError
		ve *model.ValidationError
	)
	switch {
	case errors.As(err, &ie):
		return http.StatusBadRequest, ie.Error()
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve.Error()
	case errors.Is(err, track.ErrBatchTooLarge):
		return http.StatusRequestEntityTooLarge, err.Error()
	case errors.Is(err, store.ErrUniqueViolation):
		return http.StatusConflict, "already exists"
	case errors.Is(err, sql.ErrNoRows):
		return http.StatusNotFound, "not found"
	}
	return http.StatusInternalServerError, "internal error"
}

// writeServiceError writes err as a JSON error. notFound replaces the
// generic message for missing resources.
func writeServiceError(w http.ResponseWriter, err error, notFound string) {
	var ue *journeys.UpsertError
	if errors.As(err, &ue) {
		code := http.StatusBadRequest
		if ue.Type == journeys.ErrorUniqueConstraint {
			code = http.StatusConflict
		}
		writeJSON(w, code, map[string]string{"error": ue.Message, "type": string(ue.Type)})
		return
	}
	code, msg := httpStatus(err)
	switch code {
	case http.StatusNotFound:
		if notFound != "" {
			msg = notFound
		}
	case http.StatusInternalServerError:
		slog.Error("request failed", "error", err)
	}
	writeError(w, code, msg)
}

// grpcError maps a service error to a gRPC status.
func grpcError(err error) error {
	code, msg := httpStatus(err)
	switch code {
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge:
		return status.Error(codes.InvalidArgument, msg)
	case http.StatusNotFound:
		return status.Error(codes.NotFound, msg)
	case http.StatusConflict:
		return status.Error(codes.AlreadyExists, msg)
	}
	slog.Error("rpc failed", "error", err)
	return status.Errorf(codes.Internal, "internal error")
}

// decodeBody decodes a JSON request body into v.
func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return inputError("invalid JSON body")
	}
	return nil
}
