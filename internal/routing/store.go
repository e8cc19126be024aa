// Package routing maps conversations to the agent that currently owns them.
// Ownership is time-limited: every message in a conversation renews the
// assignment, and 24 hours of silence decays it back to the default agent.
package routing

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "conversation:"

// DefaultTTL is the sliding expiration of an assignment.
const DefaultTTL = 24 * time.Hour

// AssignmentStore holds the conversation → agent ownership map. At most one
// owner per conversation; an absent entry means "default agent". The caller
// (memory stage) enforces the mention-wins ordering, not the store.
type AssignmentStore interface {
	// Assign sets the owner, overwriting any prior one, with the full TTL.
	Assign(ctx context.Context, conversationID, agentID string) error

	// AssignedAgent returns the owner, or "" when unassigned.
	AssignedAgent(ctx context.Context, conversationID string) (string, error)

	// Renew resets the TTL without changing the owner. No-op when unset.
	Renew(ctx context.Context, conversationID string) error

	// Unassign deletes the mapping.
	Unassign(ctx context.Context, conversationID string) error
}

// RedisAssignmentStore keeps assignments in Redis under `conversation:` keys
// with the TTL applied on write and refreshed by Renew.
type RedisAssignmentStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisAssignmentStore wraps client. A zero ttl uses DefaultTTL.
func NewRedisAssignmentStore(client *redis.Client, ttl time.Duration) *RedisAssignmentStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisAssignmentStore{client: client, ttl: ttl}
}

func (s *RedisAssignmentStore) key(conversationID string) string {
	return keyPrefix + conversationID
}

func (s *RedisAssignmentStore) Assign(ctx context.Context, conversationID, agentID string) error {
	return s.client.SetEx(ctx, s.key(conversationID), agentID, s.ttl).Err()
}

func (s *RedisAssignmentStore) AssignedAgent(ctx context.Context, conversationID string) (string, error) {
	val, err := s.client.Get(ctx, s.key(conversationID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		log.Printf("[Routing] ⚠️ get failed (%s): %v", conversationID, err)
		return "", err
	}
	return val, nil
}

func (s *RedisAssignmentStore) Renew(ctx context.Context, conversationID string) error {
	return s.client.Expire(ctx, s.key(conversationID), s.ttl).Err()
}

func (s *RedisAssignmentStore) Unassign(ctx context.Context, conversationID string) error {
	return s.client.Del(ctx, s.key(conversationID)).Err()
}

// MemoryAssignmentStore is an in-memory AssignmentStore with an injectable
// clock so tests can advance time instead of waiting out TTLs.
type MemoryAssignmentStore struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]memoryAssignment
}

type memoryAssignment struct {
	agentID   string
	expiresAt time.Time
}

// NewMemoryAssignmentStore creates the in-memory store. A nil now uses
// time.Now; a zero ttl uses DefaultTTL.
func NewMemoryAssignmentStore(ttl time.Duration, now func() time.Time) *MemoryAssignmentStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &MemoryAssignmentStore{
		ttl:     ttl,
		now:     now,
		entries: make(map[string]memoryAssignment),
	}
}

func (s *MemoryAssignmentStore) Assign(_ context.Context, conversationID, agentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[conversationID] = memoryAssignment{
		agentID:   agentID,
		expiresAt: s.now().Add(s.ttl),
	}
	return nil
}

func (s *MemoryAssignmentStore) AssignedAgent(_ context.Context, conversationID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[conversationID]
	if !ok {
		return "", nil
	}
	if !s.now().Before(entry.expiresAt) {
		delete(s.entries, conversationID)
		return "", nil
	}
	return entry.agentID, nil
}

func (s *MemoryAssignmentStore) Renew(_ context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[conversationID]
	if !ok || !s.now().Before(entry.expiresAt) {
		return nil
	}
	entry.expiresAt = s.now().Add(s.ttl)
	s.entries[conversationID] = entry
	return nil
}

func (s *MemoryAssignmentStore) Unassign(_ context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, conversationID)
	return nil
}

var (
	_ AssignmentStore = (*RedisAssignmentStore)(nil)
	_ AssignmentStore = (*MemoryAssignmentStore)(nil)
)
