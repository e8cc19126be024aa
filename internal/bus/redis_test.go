package bus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dayuer/starfish-go/internal/event"
)

func mustEvent(t *testing.T, name event.Name, payload any) event.Event {
	t.Helper()
	ev, err := event.New(name, payload, "", "test")
	require.NoError(t, err)
	return ev
}

func TestRedisBusDispatch_BlockedHandlerDoesNotStallLaterEvents(t *testing.T) {
	release := make(chan struct{})
	delivered := make(chan string, 2)

	b := &RedisBus{handlers: map[event.Name][]Handler{
		event.IntentDetected: {func(event.Event) {
			delivered <- "intent"
			<-release
		}},
		event.ActionCompleted: {func(event.Event) {
			delivered <- "completed"
		}},
	}}

	b.dispatch(mustEvent(t, event.IntentDetected, event.IntentDetectedPayload{Intent: "bash"}))
	b.dispatch(mustEvent(t, event.ActionCompleted, event.ActionCompletedPayload{}))

	got := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case name := <-delivered:
			got[name] = true
		case <-time.After(time.Second):
			t.Fatal("event not delivered while another handler was blocked")
		}
	}
	close(release)
	assert.True(t, got["intent"])
	assert.True(t, got["completed"])
}

// A delegation-style handler waits for a response that only a later event on
// the same bus can produce. It must still complete.
func TestRedisBusDispatch_HandlerCanWaitOnLaterEvent(t *testing.T) {
	nested := make(chan struct{})
	done := make(chan struct{})

	b := &RedisBus{handlers: map[event.Name][]Handler{
		event.IntentDetected: {func(event.Event) {
			<-nested
			close(done)
		}},
		event.MessageReceived: {func(event.Event) {
			close(nested)
		}},
	}}

	b.dispatch(mustEvent(t, event.IntentDetected, event.IntentDetectedPayload{Intent: "sessions_send"}))
	b.dispatch(mustEvent(t, event.MessageReceived, event.MessageReceivedPayload{Text: "task"}))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("waiting handler never observed the later event")
	}
}

func TestRedisBus_CloseReleasesConnections(t *testing.T) {
	// Nothing listens on the port; go-redis connects lazily, so construction
	// succeeds and Close must still tear down cleanly.
	b, err := NewRedisBus("redis://127.0.0.1:1", "test")
	require.NoError(t, err)
	require.NotNil(t, b.subscriber)
	require.NoError(t, b.Close())
}
