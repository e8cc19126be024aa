package bus

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dayuer/starfish-go/internal/event"
)

// RedisBus implements Bus over Redis pub/sub, one Redis channel per event
// name. Publisher and subscriber use separate connections because a
// subscribed go-redis connection cannot issue other commands.
//
// Transport errors degrade to "message not delivered": they are logged and
// go-redis's own reconnection policy takes over. Publish never blocks the
// caller on a broken transport beyond the client timeouts.
type RedisBus struct {
	agentID    string
	publisher  *redis.Client
	subscriber *redis.Client
	sub        *redis.PubSub

	mu       sync.RWMutex
	handlers map[event.Name][]Handler

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRedisBus connects to Redis and starts the receive loop. agentID tags
// every published event with its origin process.
func NewRedisBus(redisURL, agentID string) (*RedisBus, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.MaxRetries = 3

	publisher := redis.NewClient(opts)

	ctx, cancel := context.WithCancel(context.Background())
	b := &RedisBus{
		agentID:   agentID,
		publisher: publisher,
		handlers:  make(map[event.Name][]Handler),
		ctx:       ctx,
		cancel:    cancel,
	}

	// Subscribe with no channels yet; channels are added per Subscribe call.
	b.subscriber = redis.NewClient(opts)
	b.sub = b.subscriber.Subscribe(ctx)

	b.wg.Add(1)
	go b.receiveLoop()

	log.Printf("[EventBus] ✅ Connected (%s) as %s", opts.Addr, agentID)
	return b, nil
}

// Publish serializes payload into an envelope and broadcasts it.
func (b *RedisBus) Publish(name event.Name, payload any, correlationID string) error {
	ev, err := event.New(name, payload, correlationID, b.agentID)
	if err != nil {
		return err
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := b.publisher.Publish(b.ctx, string(name), data).Err(); err != nil {
		// Best-effort transport: log and move on, consumers time out.
		log.Printf("[EventBus] ⚠️ Publish failed (%s): %v", name, err)
	}
	return nil
}

// Subscribe registers handler and opens the Redis channel on first use.
func (b *RedisBus) Subscribe(name event.Name, handler Handler) {
	b.mu.Lock()
	first := len(b.handlers[name]) == 0
	b.handlers[name] = append(b.handlers[name], handler)
	b.mu.Unlock()

	if first {
		if err := b.sub.Subscribe(b.ctx, string(name)); err != nil {
			log.Printf("[EventBus] ⚠️ Subscribe failed (%s): %v", name, err)
		}
	}
}

func (b *RedisBus) receiveLoop() {
	defer b.wg.Done()
	ch := b.sub.Channel()
	for {
		select {
		case <-b.ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var ev event.Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Printf("[EventBus] ⚠️ Bad event on %s: %v", msg.Channel, err)
				continue
			}
			b.dispatch(ev)
		}
	}
}

// dispatch runs the event's handlers on a fresh goroutine, mirroring
// MemoryBus. A handler that blocks, like the delegation poll loop inside
// intent.detected, must not stall delivery of the events it is waiting for.
func (b *RedisBus) dispatch(ev event.Event) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[ev.Name]...)
	b.mu.RUnlock()
	go func() {
		for _, h := range handlers {
			h(ev)
		}
	}()
}

// Close stops the receive loop and closes all connections.
func (b *RedisBus) Close() error {
	b.cancel()
	b.sub.Close()
	b.wg.Wait()
	err := b.subscriber.Close()
	if perr := b.publisher.Close(); err == nil {
		err = perr
	}
	return err
}
