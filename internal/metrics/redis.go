package metrics

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "metrics:"

// Hash field names, shared with the dashboard readers.
const (
	fieldActions        = "actions"
	fieldCost           = "cost"
	fieldLastAction     = "lastAction"
	fieldLastActionTime = "lastActionTime"
	fieldNanos          = "nanos"
)

// RedisStore keeps one hash per `metrics:<agentId>:<YYYY-MM-DD>`.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisStore wraps client. Zero ttl uses DefaultTTL; nil now uses
// time.Now (injectable so tests can pin the day key).
func NewRedisStore(client *redis.Client, ttl time.Duration, now func() time.Time) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &RedisStore{client: client, ttl: ttl, now: now}
}

func (s *RedisStore) key(agentID, day string) string {
	if day == "" {
		day = dayKey(s.now())
	}
	return keyPrefix + agentID + ":" + day
}

func (s *RedisStore) touch(ctx context.Context, key string) error {
	return s.client.Expire(ctx, key, s.ttl).Err()
}

func (s *RedisStore) IncrementActions(ctx context.Context, agentID string) error {
	k := s.key(agentID, "")
	if err := s.client.HIncrBy(ctx, k, fieldActions, 1).Err(); err != nil {
		return err
	}
	return s.touch(ctx, k)
}

func (s *RedisStore) AddCost(ctx context.Context, agentID string, delta float64) error {
	if delta <= 0 {
		return nil
	}
	k := s.key(agentID, "")
	if err := s.client.HIncrByFloat(ctx, k, fieldCost, delta).Err(); err != nil {
		return err
	}
	return s.touch(ctx, k)
}

func (s *RedisStore) RecordAction(ctx context.Context, agentID, label string) error {
	k := s.key(agentID, "")
	now := strconv.FormatInt(s.now().UnixMilli(), 10)
	if err := s.client.HSet(ctx, k, fieldLastAction, label, fieldLastActionTime, now).Err(); err != nil {
		return err
	}
	return s.touch(ctx, k)
}

func (s *RedisStore) IncrementNano(ctx context.Context, agentID string) error {
	k := s.key(agentID, "")
	if err := s.client.HIncrBy(ctx, k, fieldNanos, 1).Err(); err != nil {
		return err
	}
	return s.touch(ctx, k)
}

func (s *RedisStore) Metrics(ctx context.Context, agentID, day string) (Record, error) {
	data, err := s.client.HGetAll(ctx, s.key(agentID, day)).Result()
	if err != nil {
		return Record{}, err
	}
	return recordFromHash(data), nil
}

// AgentIDsWithMetrics scans the metrics keyspace for day. SCAN, not KEYS,
// same as the routing lister.
func (s *RedisStore) AgentIDsWithMetrics(ctx context.Context, day string) ([]string, error) {
	if day == "" {
		day = dayKey(s.now())
	}
	var ids []string
	iter := s.client.Scan(ctx, 0, keyPrefix+"*:"+day, 100).Iterator()
	for iter.Next(ctx) {
		ids = append(ids, agentIDFromKey(iter.Val(), day))
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

func agentIDFromKey(key, day string) string {
	id := strings.TrimPrefix(key, keyPrefix)
	return strings.TrimSuffix(id, ":"+day)
}

func (s *RedisStore) AllMetrics(ctx context.Context) (map[string]Record, error) {
	ids, err := s.AgentIDsWithMetrics(ctx, "")
	if err != nil {
		return nil, err
	}
	out := make(map[string]Record, len(ids))
	for _, id := range ids {
		rec, err := s.Metrics(ctx, id, "")
		if err != nil {
			return nil, err
		}
		out[id] = rec
	}
	return out, nil
}

// recordFromHash decodes a hash, clamping counters at zero.
func recordFromHash(data map[string]string) Record {
	rec := Record{LastAction: "Never"}
	if v, err := strconv.Atoi(data[fieldActions]); err == nil && v > 0 {
		rec.ActionsToday = v
	}
	if v, err := strconv.ParseFloat(data[fieldCost], 64); err == nil && v > 0 {
		rec.CostToday = v
	}
	if v := data[fieldLastAction]; v != "" {
		rec.LastAction = v
	}
	if v, err := strconv.ParseInt(data[fieldLastActionTime], 10, 64); err == nil {
		rec.LastActionTime = v
	}
	if v, err := strconv.Atoi(data[fieldNanos]); err == nil && v > 0 {
		rec.NanoCount = v
	}
	return rec
}

var _ Store = (*RedisStore)(nil)
