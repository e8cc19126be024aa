// Package sessions implements the delegation bridge: a blocking-call
// emulation built on the notification-only bus. A requester publishes a task
// under a synthetic session conversation id, then polls a response slot until
// the responder's terminal event is intercepted and written into it.
package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const slotPrefix = "session:response:"

// SlotTTL bounds how long an unread response survives. A slot written after
// its poller gave up simply expires unread. Accepted race, not a bug.
const SlotTTL = 120 * time.Second

// Slots is the response-slot contract. A slot is written at most once and
// read-and-deleted exactly once; Take must be atomic so two pollers could
// never both consume the same response.
type Slots interface {
	// Put stores output under requestID with the slot TTL.
	Put(ctx context.Context, requestID, output string) error

	// Take atomically reads and deletes the slot. ok is false when absent.
	Take(ctx context.Context, requestID string) (output string, ok bool, err error)
}

// RedisSlots stores slots under `session:response:` keys. Take uses GETDEL
// for the single-round-trip read-and-delete the contract requires.
type RedisSlots struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSlots wraps client. Zero ttl uses SlotTTL.
func NewRedisSlots(client *redis.Client, ttl time.Duration) *RedisSlots {
	if ttl <= 0 {
		ttl = SlotTTL
	}
	return &RedisSlots{client: client, ttl: ttl}
}

func (s *RedisSlots) Put(ctx context.Context, requestID, output string) error {
	return s.client.SetEx(ctx, slotPrefix+requestID, output, s.ttl).Err()
}

func (s *RedisSlots) Take(ctx context.Context, requestID string) (string, bool, error) {
	val, err := s.client.GetDel(ctx, slotPrefix+requestID).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// MemorySlots is the in-memory Slots used by tests. Expiry is lazy against
// the injected clock.
type MemorySlots struct {
	ttl time.Duration
	now func() time.Time

	mu    sync.Mutex
	slots map[string]memorySlot
}

type memorySlot struct {
	output    string
	expiresAt time.Time
}

// NewMemorySlots creates the in-memory store. Zero ttl uses SlotTTL; nil now
// uses time.Now.
func NewMemorySlots(ttl time.Duration, now func() time.Time) *MemorySlots {
	if ttl <= 0 {
		ttl = SlotTTL
	}
	if now == nil {
		now = time.Now
	}
	return &MemorySlots{ttl: ttl, now: now, slots: make(map[string]memorySlot)}
}

func (s *MemorySlots) Put(_ context.Context, requestID, output string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[requestID] = memorySlot{output: output, expiresAt: s.now().Add(s.ttl)}
	return nil
}

func (s *MemorySlots) Take(_ context.Context, requestID string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.slots[requestID]
	if !ok {
		return "", false, nil
	}
	delete(s.slots, requestID)
	if s.now().After(slot.expiresAt) {
		return "", false, nil
	}
	return slot.output, true, nil
}

var (
	_ Slots = (*RedisSlots)(nil)
	_ Slots = (*MemorySlots)(nil)
)
