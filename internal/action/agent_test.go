package action

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dayuer/starfish-go/internal/bus"
	"github.com/dayuer/starfish-go/internal/event"
	"github.com/dayuer/starfish-go/internal/metrics"
)

type fakeShell struct {
	output string
	err    error
	last   string
}

func (s *fakeShell) Run(_ context.Context, command string) (string, error) {
	s.last = command
	if s.err != nil {
		return "", s.err
	}
	return s.output, nil
}

type fakeWeb struct {
	searched string
	fetched  string
}

func (w *fakeWeb) Search(_ context.Context, query string) (string, error) {
	w.searched = query
	return "search results", nil
}

func (w *fakeWeb) FetchURL(_ context.Context, rawURL string) (string, error) {
	w.fetched = rawURL
	return "page text", nil
}

type panicShell struct{}

func (panicShell) Run(context.Context, string) (string, error) { panic("boom") }

type actionHarness struct {
	bus     *bus.MemoryBus
	metrics *metrics.MemoryStore
	shell   *fakeShell
	web     *fakeWeb

	mu        sync.Mutex
	completed []event.Event
	failed    []event.Event
}

func newActionHarness(t *testing.T, mutate func(*Agent)) *actionHarness {
	t.Helper()
	h := &actionHarness{
		bus:     bus.NewMemoryBus("action"),
		metrics: metrics.NewMemoryStore(0, nil),
		shell:   &fakeShell{output: "ok"},
		web:     &fakeWeb{},
	}
	t.Cleanup(func() { h.bus.Close() })

	agent := &Agent{
		Bus:            h.bus,
		Metrics:        h.metrics,
		Shell:          h.shell,
		Web:            h.web,
		DefaultAgentID: "agent-a",
	}
	if mutate != nil {
		mutate(agent)
	}
	_, err := NewAgent(agent)
	require.NoError(t, err)
	agent.Start()

	h.bus.Subscribe(event.ActionCompleted, func(ev event.Event) {
		h.mu.Lock()
		h.completed = append(h.completed, ev)
		h.mu.Unlock()
	})
	h.bus.Subscribe(event.ActionFailed, func(ev event.Event) {
		h.mu.Lock()
		h.failed = append(h.failed, ev)
		h.mu.Unlock()
	})
	return h
}

func (h *actionHarness) publishIntent(t *testing.T, payload event.IntentDetectedPayload, correlationID string) {
	t.Helper()
	require.NoError(t, h.bus.Publish(event.IntentDetected, payload, correlationID))
	h.bus.Drain()
}

func (h *actionHarness) lastCompleted(t *testing.T) (event.Event, event.ActionCompletedPayload) {
	t.Helper()
	h.mu.Lock()
	defer h.mu.Unlock()
	require.NotEmpty(t, h.completed)
	ev := h.completed[len(h.completed)-1]
	var payload event.ActionCompletedPayload
	require.NoError(t, ev.Decode(&payload))
	return ev, payload
}

func TestAgent_BashIntentCompletes(t *testing.T) {
	h := newActionHarness(t, nil)

	h.publishIntent(t, event.IntentDetectedPayload{
		ConversationID: "telegram_1",
		Intent:         "bash",
		Params:         map[string]any{"command": "uptime"},
		AgentID:        "agent-b",
	}, "corr-1")

	ev, payload := h.lastCompleted(t)
	assert.Equal(t, "corr-1", ev.CorrelationID)
	assert.Equal(t, "ok", payload.Result.Output)
	assert.Equal(t, "agent-b", payload.AgentID)
	assert.Equal(t, "uptime", h.shell.last)
}

func TestAgent_PinnedAgentIgnoresIntentsForOthers(t *testing.T) {
	h := newActionHarness(t, func(a *Agent) {
		a.AgentID = "agent-a"
	})

	h.publishIntent(t, event.IntentDetectedPayload{
		ConversationID: "telegram_1",
		Intent:         "bash",
		Params:         map[string]any{"command": "uptime"},
		AgentID:        "agent-b",
	}, "")

	h.mu.Lock()
	assert.Empty(t, h.completed)
	assert.Empty(t, h.failed)
	h.mu.Unlock()
	assert.Empty(t, h.shell.last)

	// Intents addressed to this member, or unaddressed ones that fall to the
	// default, are still handled.
	h.publishIntent(t, event.IntentDetectedPayload{
		ConversationID: "telegram_1",
		Intent:         "bash",
		Params:         map[string]any{"command": "uptime"},
		AgentID:        "agent-a",
	}, "")
	h.publishIntent(t, event.IntentDetectedPayload{
		ConversationID: "telegram_1",
		Intent:         "bash",
		Params:         map[string]any{"command": "whoami"},
	}, "")

	h.mu.Lock()
	defer h.mu.Unlock()
	assert.Len(t, h.completed, 2)
}

func TestAgent_MetricsRecordedOnSuccess(t *testing.T) {
	h := newActionHarness(t, nil)

	h.publishIntent(t, event.IntentDetectedPayload{
		ConversationID: "telegram_1",
		Intent:         "bash",
		Params:         map[string]any{"command": "ls"},
	}, "")

	rec, err := h.metrics.Metrics(context.Background(), "agent-a", "")
	require.NoError(t, err)
	assert.Equal(t, 1, rec.ActionsToday)
	assert.Equal(t, "action_bash", rec.LastAction)
}

func TestAgent_FailureEmitsActionFailed(t *testing.T) {
	h := newActionHarness(t, func(a *Agent) {
		a.Shell = &fakeShell{err: errors.New("command blocked")}
	})

	h.publishIntent(t, event.IntentDetectedPayload{
		ConversationID: "telegram_1",
		Intent:         "bash",
		Params:         map[string]any{"command": "rm -rf /"},
	}, "corr-2")

	h.mu.Lock()
	defer h.mu.Unlock()
	assert.Empty(t, h.completed)
	require.Len(t, h.failed, 1)
	assert.Equal(t, "corr-2", h.failed[0].CorrelationID)

	var payload event.ActionFailedPayload
	require.NoError(t, h.failed[0].Decode(&payload))
	assert.Contains(t, payload.Error, "command blocked")

	// Failed actions do not count.
	rec, err := h.metrics.Metrics(context.Background(), "agent-a", "")
	require.NoError(t, err)
	assert.Equal(t, 0, rec.ActionsToday)
}

func TestAgent_PanicBecomesFailure(t *testing.T) {
	h := newActionHarness(t, func(a *Agent) {
		a.Shell = panicShell{}
	})

	h.publishIntent(t, event.IntentDetectedPayload{
		ConversationID: "telegram_1",
		Intent:         "bash",
		Params:         map[string]any{"command": "x"},
	}, "")

	h.mu.Lock()
	defer h.mu.Unlock()
	require.Len(t, h.failed, 1)
	var payload event.ActionFailedPayload
	require.NoError(t, h.failed[0].Decode(&payload))
	assert.Contains(t, payload.Error, "boom")
}

func TestAgent_UnknownIntentCompletesVisibly(t *testing.T) {
	h := newActionHarness(t, nil)

	h.publishIntent(t, event.IntentDetectedPayload{
		ConversationID: "telegram_1",
		Intent:         "summon_demon",
	}, "")

	_, payload := h.lastCompleted(t)
	assert.Equal(t, "Intent not recognized", payload.Result.Output)
}

func TestAgent_WebSearchRoutesURLsToFetch(t *testing.T) {
	h := newActionHarness(t, nil)

	h.publishIntent(t, event.IntentDetectedPayload{
		ConversationID: "telegram_1",
		Intent:         "websearch",
		Params:         map[string]any{"query": "https://go.dev/doc"},
	}, "")

	_, payload := h.lastCompleted(t)
	assert.Equal(t, "page text", payload.Result.Output)
	assert.Equal(t, "https://go.dev/doc", h.web.fetched)
	assert.Empty(t, h.web.searched)
}

func TestAgent_WebSearchRoutesQueriesToSearch(t *testing.T) {
	h := newActionHarness(t, nil)

	h.publishIntent(t, event.IntentDetectedPayload{
		ConversationID: "telegram_1",
		Intent:         "websearch",
		Params:         map[string]any{"query": "go 1.22 release notes"},
	}, "")

	_, payload := h.lastCompleted(t)
	assert.Equal(t, "search results", payload.Result.Output)
	assert.Equal(t, "go 1.22 release notes", h.web.searched)
}

func TestAgent_ResponseIntentEchoesText(t *testing.T) {
	h := newActionHarness(t, nil)

	h.publishIntent(t, event.IntentDetectedPayload{
		ConversationID: "telegram_1",
		Intent:         "response",
		Params:         map[string]any{"text": "sure thing"},
	}, "")

	_, payload := h.lastCompleted(t)
	assert.Equal(t, "sure thing", payload.Result.Output)
}

func TestAgent_DisabledToolFails(t *testing.T) {
	h := newActionHarness(t, func(a *Agent) {
		a.Shell = nil
	})

	h.publishIntent(t, event.IntentDetectedPayload{
		ConversationID: "telegram_1",
		Intent:         "bash",
		Params:         map[string]any{"command": "ls"},
	}, "")

	h.mu.Lock()
	defer h.mu.Unlock()
	require.Len(t, h.failed, 1)
}

func TestParseIntent(t *testing.T) {
	for _, in := range AllIntents() {
		parsed, ok := ParseIntent(string(in))
		assert.True(t, ok)
		assert.Equal(t, in, parsed)
	}
	_, ok := ParseIntent("nope")
	assert.False(t, ok)
}

func TestParams_StrSlice(t *testing.T) {
	p := Params{"steps": []any{"one", 2, "three"}}
	assert.Equal(t, []string{"one", "2", "three"}, p.StrSlice("steps"))
	assert.Nil(t, p.StrSlice("missing"))
	assert.Nil(t, Params{"steps": "not a list"}.StrSlice("steps"))
}
