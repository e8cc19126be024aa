package bus

import (
	"encoding/json"
	"sync"

	"github.com/dayuer/starfish-go/internal/event"
)

// MemoryBus is an in-process Bus with the same delivery semantics as
// RedisBus: handlers fire in registration order, publishers receive their own
// events, delivery is at-most-once. Used by tests and by single-process
// development mode where all stages share one binary.
type MemoryBus struct {
	agentID string

	mu       sync.RWMutex
	handlers map[event.Name][]Handler
	closed   bool

	queue    chan event.Event
	inflight sync.WaitGroup
	wg       sync.WaitGroup
}

// NewMemoryBus creates a MemoryBus and starts its dispatch loop.
func NewMemoryBus(agentID string) *MemoryBus {
	b := &MemoryBus{
		agentID:  agentID,
		handlers: make(map[event.Name][]Handler),
		queue:    make(chan event.Event, 100),
	}
	b.wg.Add(1)
	go b.dispatchLoop()
	return b
}

// Publish enqueues the event for asynchronous dispatch. The envelope is
// round-tripped through JSON so handlers observe exactly what RedisBus
// subscribers would.
func (b *MemoryBus) Publish(name event.Name, payload any, correlationID string) error {
	ev, err := event.New(name, payload, correlationID, b.agentID)
	if err != nil {
		return err
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	var wire event.Event
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return nil
	}
	b.inflight.Add(1)
	b.queue <- wire
	return nil
}

// Subscribe registers handler for name.
func (b *MemoryBus) Subscribe(name event.Name, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], handler)
}

func (b *MemoryBus) dispatchLoop() {
	defer b.wg.Done()
	for ev := range b.queue {
		b.mu.RLock()
		handlers := append([]Handler(nil), b.handlers[ev.Name]...)
		b.mu.RUnlock()
		// Each event gets its own goroutine so a handler that blocks (the
		// delegation poll loop) cannot stall delivery of the completion it
		// is waiting for. Cross-name ordering is not part of the contract.
		go func(ev event.Event, handlers []Handler) {
			for _, h := range handlers {
				h(ev)
			}
			b.inflight.Done()
		}(ev, handlers)
	}
}

// Close drains and stops the dispatch loop.
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()
	close(b.queue)
	b.wg.Wait()
	return nil
}

// Drain blocks until every published event has been handled, including
// events published by handlers themselves. Test helper.
func (b *MemoryBus) Drain() {
	b.inflight.Wait()
}

var (
	_ Bus = (*MemoryBus)(nil)
	_ Bus = (*RedisBus)(nil)
)
