package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alfredjeanlab/dispatch/internal/events"
)

// sseEventParsed represents a single parsed SSE event from the stream.
type sseEventParsed struct {
	ID    string
	Event string
	Data  string
}

// sseReader reads SSE events from an HTTP response body using a bufio.Scanner.
// It sends parsed events to the returned channel and stops when the context is cancelled
// or the body is closed.
func sseReader(ctx context.Context, resp *http.Response) <-chan sseEventParsed {
	ch := make(chan sseEventParsed, 32)
	go func() {
		defer close(ch)
		scanner := bufio.NewScanner(resp.Body)
		var current sseEventParsed
		for scanner.Scan() {
			select {
			case <-ctx.Done():
				return
			default:
			}

			line := scanner.Text()
			switch {
			case strings.HasPrefix(line, "id:"):
				current.ID = strings.TrimPrefix(line, "id:")
			case strings.HasPrefix(line, "event:"):
				current.Event = strings.TrimPrefix(line, "event:")
			case strings.HasPrefix(line, "data:"):
				current.Data = strings.TrimPrefix(line, "data:")
			case line == "":
				// Empty line marks end of SSE event block.
				if current.Event != "" || current.Data != "" {
					ch <- current
					current = sseEventParsed{}
				}
			}
		}
	}()
	return ch
}

// waitForEvent reads from the SSE event channel until an event with the given
// topic is received, or the timeout expires.
func waitForEvent(t *testing.T, ch <-chan sseEventParsed, topic string, timeout time.Duration) sseEventParsed {
	t.Helper()
	timer := time.After(timeout)
	for {
		select {
		case evt, ok := <-ch:
			if !ok {
				t.Fatalf("SSE channel closed before receiving event %q", topic)
			}
			if evt.Event == topic {
				return evt
			}
			// Keep reading; may receive other events first.
		case <-timer:
			t.Fatalf("timed out waiting for SSE event %q", topic)
		}
	}
}

// startSSEClient opens an SSE connection to the test server and returns a channel
// of parsed events plus a cancel function. The caller must call cancel when done.
func startSSEClient(t *testing.T, serverURL string, queryParams string) (<-chan sseEventParsed, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	url := serverURL + "/v1/events/stream"
	if queryParams != "" {
		url += "?" + queryParams
	}

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		cancel()
		t.Fatalf("failed to create SSE request: %v", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		cancel()
		t.Fatalf("failed to connect to SSE stream: %v", err)
	}

	if resp.Header.Get("Content-Type") != "text/event-stream" {
		resp.Body.Close()
		cancel()
		t.Fatalf("expected Content-Type=text/event-stream, got %q", resp.Header.Get("Content-Type"))
	}

	ch := sseReader(ctx, resp)

	// Return a wrapped cancel that also closes the body.
	cleanup := func() {
		cancel()
		resp.Body.Close()
	}

	return ch, cleanup
}

// startIntegrationServer creates a test server with a real TCP listener for
// integration tests, returning the server URL and HTTP handler for direct calls.
func startIntegrationServer(t *testing.T) (string, http.Handler, func()) {
	t.Helper()
	_, _, handler := newTestServer()
	ts := httptest.NewServer(handler)
	return ts.URL, handler, ts.Close
}

// doHTTPJSON performs an HTTP request with an optional JSON body against a real server URL.
func doHTTPJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var req *http.Request
	var err error
	if body != nil {
		b, _ := json.Marshal(body)
		req, err = http.NewRequest(method, url, strings.NewReader(string(b)))
		if err != nil {
			t.Fatalf("failed to create request: %v", err)
		}
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, err = http.NewRequest(method, url, nil)
		if err != nil {
			t.Fatalf("failed to create request: %v", err)
		}
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("HTTP request failed: %v", err)
	}
	return resp
}

// requireHTTPStatus asserts the response has the expected status code.
func requireHTTPStatus(t *testing.T, resp *http.Response, code int) {
	t.Helper()
	if resp.StatusCode != code {
		t.Fatalf("expected status %d, got %d", code, resp.StatusCode)
	}
}

// decodeHTTPJSON decodes the response body JSON into v.
func decodeHTTPJSON(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
}

// --- Integration Tests ---

func TestSSEIntegration_UpsertJourneyTriggersEvent(t *testing.T) {
	serverURL, _, cleanup := startIntegrationServer(t)
	defer cleanup()

	sseEvents, sseCancel := startSSEClient(t, serverURL, "")
	defer sseCancel()
	time.Sleep(50 * time.Millisecond)

	resp := doHTTPJSON(t, "PUT", serverURL+"/v1/journeys", map[string]any{
		"workspace_id": "ws-1", "name": "Integration journey",
	})
	requireHTTPStatus(t, resp, 201)
	var created struct {
		ID string `json:"id"`
	}
	decodeHTTPJSON(t, resp, &created)
	if created.ID == "" {
		t.Fatal("expected created journey to have an ID")
	}

	evt := waitForEvent(t, sseEvents, events.TopicJourneyUpserted, 2*time.Second)
	var payload struct {
		Journey struct {
			ID string `json:"id"`
		} `json:"journey"`
		Created bool `json:"created"`
	}
	if err := json.Unmarshal([]byte(evt.Data), &payload); err != nil {
		t.Fatalf("failed to parse SSE data: %v", err)
	}
	if payload.Journey.ID != created.ID || !payload.Created {
		t.Fatalf("SSE payload %+v does not match created journey %q", payload, created.ID)
	}
	if evt.ID == "" {
		t.Fatal("expected SSE event to have a non-empty ID")
	}
}

func TestSSEIntegration_BroadcastActionTriggersEvent(t *testing.T) {
	serverURL, _, cleanup := startIntegrationServer(t)
	defer cleanup()

	resp := doHTTPJSON(t, "POST", serverURL+"/v1/broadcasts", map[string]any{
		"workspace_id": "ws-1", "name": "Spring sale",
	})
	requireHTTPStatus(t, resp, 201)
	var created struct {
		ID string `json:"id"`
	}
	decodeHTTPJSON(t, resp, &created)

	sseEvents, sseCancel := startSSEClient(t, serverURL, "topics=dispatch.broadcast.*")
	defer sseCancel()
	time.Sleep(50 * time.Millisecond)

	resp = doHTTPJSON(t, "POST", serverURL+"/v1/broadcasts/start", map[string]any{
		"workspace_id": "ws-1", "broadcast_id": created.ID,
	})
	requireHTTPStatus(t, resp, 200)
	resp.Body.Close()

	evt := waitForEvent(t, sseEvents, events.TopicBroadcastStatusChanged, 2*time.Second)
	var payload struct {
		Broadcast struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"broadcast"`
		Action string `json:"action"`
	}
	if err := json.Unmarshal([]byte(evt.Data), &payload); err != nil {
		t.Fatalf("failed to parse SSE data: %v", err)
	}
	if payload.Broadcast.ID != created.ID || payload.Broadcast.Status != "Running" || payload.Action != "start" {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestSSEIntegration_TopicFilterOnlyReceivesMatching(t *testing.T) {
	serverURL, _, cleanup := startIntegrationServer(t)
	defer cleanup()

	sseEvents, sseCancel := startSSEClient(t, serverURL, "topics="+events.TopicTrackSubmitted)
	defer sseCancel()
	time.Sleep(50 * time.Millisecond)

	// Journey upsert is not subscribed.
	resp := doHTTPJSON(t, "PUT", serverURL+"/v1/journeys", map[string]any{
		"workspace_id": "ws-1", "name": "Filtered",
	})
	requireHTTPStatus(t, resp, 201)
	resp.Body.Close()

	resp = doHTTPJSON(t, "POST", serverURL+"/v1/track", map[string]any{
		"workspace_id": "ws-1", "user_id": "u-1", "event": "signup", "message_id": "m-sse",
	})
	requireHTTPStatus(t, resp, 200)
	resp.Body.Close()

	evt := waitForEvent(t, sseEvents, events.TopicTrackSubmitted, 2*time.Second)
	if !strings.Contains(evt.Data, "m-sse") {
		t.Fatalf("expected message id in track event, got %s", evt.Data)
	}

	select {
	case extra := <-sseEvents:
		if extra.Event == events.TopicJourneyUpserted {
			t.Fatal("received journey event that should have been filtered")
		}
	case <-time.After(200 * time.Millisecond):
	}
}

func TestSSEIntegration_MultipleClientsReceiveSameEvents(t *testing.T) {
	serverURL, _, cleanup := startIntegrationServer(t)
	defer cleanup()

	sseEvents1, sseCancel1 := startSSEClient(t, serverURL, "")
	defer sseCancel1()
	sseEvents2, sseCancel2 := startSSEClient(t, serverURL, "")
	defer sseCancel2()
	time.Sleep(50 * time.Millisecond)

	resp := doHTTPJSON(t, "POST", serverURL+"/v1/workspaces", map[string]any{"name": "Fan-out"})
	requireHTTPStatus(t, resp, 201)
	resp.Body.Close()

	evt1 := waitForEvent(t, sseEvents1, events.TopicWorkspaceCreated, 2*time.Second)
	evt2 := waitForEvent(t, sseEvents2, events.TopicWorkspaceCreated, 2*time.Second)
	if evt1.ID != evt2.ID || evt1.Data != evt2.Data {
		t.Fatalf("clients saw different events: %+v vs %+v", evt1, evt2)
	}
}
