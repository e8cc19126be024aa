package routing

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// AssignmentLister enumerates live assignments. Split from AssignmentStore
// because only the dashboard and sessions_list need it; the pipeline stages
// never iterate.
type AssignmentLister interface {
	// Assignments returns conversationID → agentID for every live entry.
	Assignments(ctx context.Context) (map[string]string, error)
}

// Assignments scans the `conversation:` keyspace. SCAN, not KEYS: the
// dashboard must not block a shared Redis.
func (s *RedisAssignmentStore) Assignments(ctx context.Context) (map[string]string, error) {
	out := make(map[string]string)
	iter := s.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		val, err := s.client.Get(ctx, key).Result()
		if err == redis.Nil {
			continue // expired between scan and get
		}
		if err != nil {
			return nil, err
		}
		out[key[len(keyPrefix):]] = val
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MemoryAssignmentStore) Assignments(_ context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.entries))
	for id, entry := range s.entries {
		if !s.now().Before(entry.expiresAt) {
			continue
		}
		out[id] = entry.agentID
	}
	return out, nil
}

var (
	_ AssignmentLister = (*RedisAssignmentStore)(nil)
	_ AssignmentLister = (*MemoryAssignmentStore)(nil)
)
