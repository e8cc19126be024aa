package bus

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dayuer/starfish-go/internal/event"
)

func TestMemoryBus_PublishAndSubscribe(t *testing.T) {
	b := NewMemoryBus("test")
	defer b.Close()

	var mu sync.Mutex
	var received []event.Event
	b.Subscribe(event.MessageReceived, func(ev event.Event) {
		mu.Lock()
		received = append(received, ev)
		mu.Unlock()
	})

	err := b.Publish(event.MessageReceived, event.MessageReceivedPayload{Text: "hello"}, "")
	require.NoError(t, err)
	b.Drain()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)

	var payload event.MessageReceivedPayload
	require.NoError(t, received[0].Decode(&payload))
	assert.Equal(t, "hello", payload.Text)
	assert.Equal(t, "test", received[0].AgentID)
	assert.NotEmpty(t, received[0].CorrelationID)
}

func TestMemoryBus_OnlyMatchingNameDelivered(t *testing.T) {
	b := NewMemoryBus("test")
	defer b.Close()

	var mu sync.Mutex
	counts := map[event.Name]int{}
	for _, name := range []event.Name{event.MessageReceived, event.ContextLoaded} {
		name := name
		b.Subscribe(name, func(event.Event) {
			mu.Lock()
			counts[name]++
			mu.Unlock()
		})
	}

	require.NoError(t, b.Publish(event.ContextLoaded, event.ContextLoadedPayload{}, ""))
	b.Drain()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 0, counts[event.MessageReceived])
	assert.Equal(t, 1, counts[event.ContextLoaded])
}

func TestMemoryBus_CorrelationFlowsThroughChain(t *testing.T) {
	b := NewMemoryBus("test")
	defer b.Close()

	var mu sync.Mutex
	var terminal event.Event
	b.Subscribe(event.MessageReceived, func(ev event.Event) {
		// Re-publish downstream on the same correlation, as stages do.
		b.Publish(event.ActionCompleted, event.ActionCompletedPayload{}, ev.CorrelationID)
	})
	b.Subscribe(event.ActionCompleted, func(ev event.Event) {
		mu.Lock()
		terminal = ev
		mu.Unlock()
	})

	require.NoError(t, b.Publish(event.MessageReceived, event.MessageReceivedPayload{}, "corr-abc"))
	b.Drain()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "corr-abc", terminal.CorrelationID)
}

func TestMemoryBus_HandlersFireInRegistrationOrder(t *testing.T) {
	b := NewMemoryBus("test")
	defer b.Close()

	var mu sync.Mutex
	var order []int
	for i := 0; i < 3; i++ {
		i := i
		b.Subscribe(event.AgentTick, func(event.Event) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
	}

	require.NoError(t, b.Publish(event.AgentTick, event.AgentTickPayload{}, ""))
	b.Drain()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0, 1, 2}, order)
}

func TestMemoryBus_PublishAfterCloseIsNoop(t *testing.T) {
	b := NewMemoryBus("test")

	fired := false
	b.Subscribe(event.AgentTick, func(event.Event) { fired = true })
	require.NoError(t, b.Close())

	assert.NoError(t, b.Publish(event.AgentTick, event.AgentTickPayload{}, ""))
	assert.False(t, fired)
}
