package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/alfredjeanlab/dispatch/internal/journeys"
	"github.com/alfredjeanlab/dispatch/internal/model"
)

// HTTPClient implements DispatchClient using the dispatch HTTP/JSON REST API.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewHTTPClient creates a new HTTP client targeting the given base URL
// (e.g. "http://localhost:8080"). When token is non-empty, an Authorization
// header is set on every request.
func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{},
	}
}

// Close is a no-op for the HTTP client.
func (c *HTTPClient) Close() error { return nil }

// --- Workspaces ---

func (c *HTTPClient) CreateWorkspace(ctx context.Context, req *CreateWorkspaceRequest) (*model.Workspace, error) {
	var ws model.Workspace
	if err := c.doJSON(ctx, http.MethodPost, "/v1/workspaces", req, &ws); err != nil {
		return nil, err
	}
	return &ws, nil
}

func (c *HTTPClient) ListWorkspaces(ctx context.Context) ([]*model.Workspace, error) {
	var resp struct {
		Workspaces []*model.Workspace `json:"workspaces"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/workspaces", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Workspaces, nil
}

func (c *HTTPClient) GetWorkspace(ctx context.Context, id string) (*model.Workspace, error) {
	var ws model.Workspace
	if err := c.doJSON(ctx, http.MethodGet, "/v1/workspaces/"+url.PathEscape(id), nil, &ws); err != nil {
		return nil, err
	}
	return &ws, nil
}

// --- Journeys ---

func (c *HTTPClient) UpsertJourney(ctx context.Context, req *UpsertJourneyRequest) (*model.Journey, error) {
	var j model.Journey
	if err := c.doJSON(ctx, http.MethodPut, "/v1/journeys", req, &j); err != nil {
		return nil, err
	}
	return &j, nil
}

func (c *HTTPClient) ListJourneys(ctx context.Context, workspaceID string, ids []string) ([]*model.Journey, error) {
	var resp struct {
		Journeys []*model.Journey `json:"journeys"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/journeys?"+scopedQuery(workspaceID, "ids", ids).Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Journeys, nil
}

func (c *HTTPClient) GetJourney(ctx context.Context, workspaceID, id string) (*model.Journey, error) {
	var j model.Journey
	path := "/v1/journeys/" + url.PathEscape(id) + "?" + scopedQuery(workspaceID, "", nil).Encode()
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &j); err != nil {
		return nil, err
	}
	return &j, nil
}

func (c *HTTPClient) DeleteJourney(ctx context.Context, workspaceID, id string) error {
	path := "/v1/journeys/" + url.PathEscape(id) + "?" + scopedQuery(workspaceID, "", nil).Encode()
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil)
}

func (c *HTTPClient) RecordNodeProcessed(ctx context.Context, req *RecordNodeProcessedRequest) (*model.NodeProcessed, error) {
	var np model.NodeProcessed
	if err := c.doJSON(ctx, http.MethodPost, "/v1/journeys/node-processed", req, &np); err != nil {
		return nil, err
	}
	return &np, nil
}

// --- Stats ---

func (c *HTTPClient) GetJourneysStats(ctx context.Context, workspaceID string, journeyIDs []string) ([]*model.JourneyStats, error) {
	var resp struct {
		Stats []*model.JourneyStats `json:"stats"`
	}
	path := "/v1/journeys/stats?" + scopedQuery(workspaceID, "journey_ids", journeyIDs).Encode()
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Stats, nil
}

func (c *HTTPClient) GetJourneyMessageStats(ctx context.Context, workspaceID string, js []journeys.MessageStatsJourney) ([]*model.JourneyMessageStats, error) {
	body := map[string]any{"workspace_id": workspaceID, "journeys": js}
	var resp struct {
		Stats []*model.JourneyMessageStats `json:"stats"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/v1/journeys/message-stats", body, &resp); err != nil {
		return nil, err
	}
	return resp.Stats, nil
}

// --- Broadcasts ---

func (c *HTTPClient) CreateBroadcast(ctx context.Context, req *CreateBroadcastRequest) (*model.Broadcast, error) {
	var b model.Broadcast
	if err := c.doJSON(ctx, http.MethodPost, "/v1/broadcasts", req, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (c *HTTPClient) ListBroadcasts(ctx context.Context, workspaceID string, ids []string) ([]*model.Broadcast, error) {
	var resp struct {
		Broadcasts []*model.Broadcast `json:"broadcasts"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/broadcasts?"+scopedQuery(workspaceID, "ids", ids).Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Broadcasts, nil
}

// BroadcastAction posts to /v1/broadcasts/{action}. The raw response is
// returned without validation; callers that need a well-formed body check
// it themselves.
func (c *HTTPClient) BroadcastAction(ctx context.Context, action model.BroadcastAction, workspaceID, broadcastID string) (*model.MessageResponse, error) {
	body := map[string]string{"workspace_id": workspaceID, "broadcast_id": broadcastID}
	var resp model.MessageResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v1/broadcasts/"+url.PathEscape(string(action)), body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// --- Events ---

func (c *HTTPClient) Track(ctx context.Context, req *TrackRequest) (*TrackResponse, error) {
	var resp TrackResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v1/track", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) Batch(ctx context.Context, workspaceID string, batch []model.TrackData) (*TrackResponse, error) {
	body := map[string]any{"workspace_id": workspaceID, "batch": batch}
	var resp TrackResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v1/batch", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) ListEvents(ctx context.Context, req *ListEventsRequest) ([]*model.Event, error) {
	q := scopedQuery(req.WorkspaceID, "", nil)
	if req.UserID != "" {
		q.Set("user_id", req.UserID)
	}
	if req.Event != "" {
		q.Set("event", req.Event)
	}
	if req.Limit > 0 {
		q.Set("limit", strconv.Itoa(req.Limit))
	}
	var resp struct {
		Events []*model.Event `json:"events"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/events?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Events, nil
}

// --- Health ---

func (c *HTTPClient) Health(ctx context.Context) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/health", nil, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// --- internal helpers ---

// scopedQuery builds a workspace-scoped query string, adding listName as a
// comma-separated list when values is non-empty.
func scopedQuery(workspaceID, listName string, values []string) url.Values {
	q := url.Values{}
	q.Set("workspace_id", workspaceID)
	if listName != "" && len(values) > 0 {
		q.Set(listName, strings.Join(values, ","))
	}
	return q
}

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	Message    string
	// Type is set for journey upsert failures (e.g. "UniqueConstraintViolation").
	Type string
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("HTTP %d: %s: %s", e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// doJSON performs an HTTP request with optional JSON body and decodes the JSON response.
// If result is nil, the response body is discarded (for DELETE/204 responses).
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
			Type  string `json:"type"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error, Type: errResp.Type}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}
