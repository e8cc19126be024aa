package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dayuer/starfish-go/internal/metrics"
	"github.com/dayuer/starfish-go/internal/routing"
	"github.com/dayuer/starfish-go/internal/sessions"
)

type apiHarness struct {
	srv     *httptest.Server
	server  *Server
	apiKey  string
	route   *routing.MemoryAssignmentStore
	slots   *sessions.MemorySlots
	metrics *metrics.MemoryStore
}

func newAPIHarness(t *testing.T, apiKey string) *apiHarness {
	t.Helper()
	h := &apiHarness{
		apiKey:  apiKey,
		route:   routing.NewMemoryAssignmentStore(0, nil),
		slots:   sessions.NewMemorySlots(0, nil),
		metrics: metrics.NewMemoryStore(0, nil),
	}
	h.server = &Server{
		APIKey:      apiKey,
		Assignments: h.route,
		Lister:      h.route,
		Slots:       h.slots,
		Metrics:     h.metrics,
	}
	h.srv = httptest.NewServer(h.server.routes())
	t.Cleanup(h.srv.Close)
	return h
}

func (h *apiHarness) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, h.srv.URL+path, reader)
	require.NoError(t, err)
	if h.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.apiKey)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestServer_Health(t *testing.T) {
	h := newAPIHarness(t, "")

	resp := h.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	decode(t, resp, &body)
	assert.Equal(t, "ok", body["status"])
}

func TestServer_ResponseSlotRoundTrip(t *testing.T) {
	h := newAPIHarness(t, "")

	resp := h.do(t, http.MethodPost, "/api/sessions/response",
		map[string]string{"requestId": "req-1", "output": "done"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = h.do(t, http.MethodGet, "/api/sessions/response?requestId=req-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Output *string `json:"output"`
	}
	decode(t, resp, &body)
	require.NotNil(t, body.Output)
	assert.Equal(t, "done", *body.Output)

	// Read-and-clear: the second read reports null.
	resp = h.do(t, http.MethodGet, "/api/sessions/response?requestId=req-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body.Output = nil
	decode(t, resp, &body)
	assert.Nil(t, body.Output)
}

func TestServer_ResponseSlotValidation(t *testing.T) {
	h := newAPIHarness(t, "")

	resp := h.do(t, http.MethodPost, "/api/sessions/response", map[string]string{"output": "x"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = h.do(t, http.MethodGet, "/api/sessions/response", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_RoutingLifecycle(t *testing.T) {
	h := newAPIHarness(t, "")

	resp := h.do(t, http.MethodPost, "/api/routing",
		map[string]string{"conversationId": "telegram_1", "agentId": "agent-a"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = h.do(t, http.MethodGet, "/api/routing", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list struct {
		Assignments []Assignment `json:"assignments"`
	}
	decode(t, resp, &list)
	require.Len(t, list.Assignments, 1)
	assert.Equal(t, "telegram_1", list.Assignments[0].ConversationID)
	assert.Equal(t, "agent-a", list.Assignments[0].AgentID)

	resp = h.do(t, http.MethodDelete, "/api/routing?conversationId=telegram_1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	agent, err := h.route.AssignedAgent(context.Background(), "telegram_1")
	require.NoError(t, err)
	assert.Empty(t, agent)
}

func TestServer_MetricsEndpoints(t *testing.T) {
	h := newAPIHarness(t, "")
	ctx := context.Background()
	require.NoError(t, h.metrics.IncrementActions(ctx, "agent-a"))
	require.NoError(t, h.metrics.RecordAction(ctx, "agent-a", "action_bash"))

	resp := h.do(t, http.MethodGet, "/api/metrics?agentId=agent-a", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var single struct {
		AgentID string         `json:"agentId"`
		Metrics metrics.Record `json:"metrics"`
	}
	decode(t, resp, &single)
	assert.Equal(t, 1, single.Metrics.ActionsToday)
	assert.Equal(t, "action_bash", single.Metrics.LastAction)

	resp = h.do(t, http.MethodGet, "/api/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var all struct {
		Metrics map[string]metrics.Record `json:"metrics"`
	}
	decode(t, resp, &all)
	require.Contains(t, all.Metrics, "agent-a")
}

func TestServer_AuthRequired(t *testing.T) {
	h := newAPIHarness(t, "secret")

	req, err := http.NewRequest(http.MethodGet, h.srv.URL+"/api/routing", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Health stays open for probes.
	resp2, err := http.Get(h.srv.URL + "/health")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusOK, resp2.StatusCode)

	// The right key passes.
	resp3 := h.do(t, http.MethodGet, "/api/routing", nil)
	assert.Equal(t, http.StatusOK, resp3.StatusCode)
}

func TestHTTPSlots_AgainstServer(t *testing.T) {
	h := newAPIHarness(t, "secret")
	ctx := context.Background()

	slots := sessions.NewHTTPSlots(h.srv.URL)
	slots.APIKey = "secret"

	require.NoError(t, slots.Put(ctx, "req-9", "remote result"))

	output, ok, err := slots.Take(ctx, "req-9")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "remote result", output)

	_, ok, err = slots.Take(ctx, "req-9")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClient_AgainstServer(t *testing.T) {
	h := newAPIHarness(t, "secret")
	ctx := context.Background()
	require.NoError(t, h.route.Assign(ctx, "telegram_5", "agent-b"))

	client := NewClient(h.srv.URL, "secret")

	uptime, err := client.Health(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, uptime, 0)

	assignments, err := client.Assignments(ctx)
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	assert.Equal(t, "agent-b", assignments[0].AgentID)
}
