package metrics

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the in-memory Store used by tests and by stages running
// without Redis. Expiry is checked lazily against the injected clock.
type MemoryStore struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	records map[string]*memoryRecord // key: agentID + ":" + day
}

type memoryRecord struct {
	rec       Record
	expiresAt time.Time
}

// NewMemoryStore creates the in-memory store. Zero ttl uses DefaultTTL; nil
// now uses time.Now.
func NewMemoryStore(ttl time.Duration, now func() time.Time) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		ttl:     ttl,
		now:     now,
		records: make(map[string]*memoryRecord),
	}
}

// get returns the live record for (agentID, day), creating it when mutate is
// set. Callers hold s.mu.
func (s *MemoryStore) get(agentID, day string, mutate bool) *memoryRecord {
	if day == "" {
		day = dayKey(s.now())
	}
	key := agentID + ":" + day
	entry, ok := s.records[key]
	if ok && s.now().After(entry.expiresAt) {
		delete(s.records, key)
		ok = false
	}
	if !ok {
		if !mutate {
			return nil
		}
		entry = &memoryRecord{rec: Record{LastAction: "Never"}}
		s.records[key] = entry
	}
	if mutate {
		entry.expiresAt = s.now().Add(s.ttl)
	}
	return entry
}

func (s *MemoryStore) IncrementActions(_ context.Context, agentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(agentID, "", true).rec.ActionsToday++
	return nil
}

func (s *MemoryStore) AddCost(_ context.Context, agentID string, delta float64) error {
	if delta <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(agentID, "", true).rec.CostToday += delta
	return nil
}

func (s *MemoryStore) RecordAction(_ context.Context, agentID, label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := s.get(agentID, "", true)
	entry.rec.LastAction = label
	entry.rec.LastActionTime = s.now().UnixMilli()
	return nil
}

func (s *MemoryStore) IncrementNano(_ context.Context, agentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(agentID, "", true).rec.NanoCount++
	return nil
}

func (s *MemoryStore) Metrics(_ context.Context, agentID, day string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := s.get(agentID, day, false)
	if entry == nil {
		return Record{LastAction: "Never"}, nil
	}
	return entry.rec, nil
}

func (s *MemoryStore) AgentIDsWithMetrics(_ context.Context, day string) ([]string, error) {
	if day == "" {
		day = dayKey(s.now())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	suffix := ":" + day
	for key, entry := range s.records {
		if len(key) > len(suffix) && key[len(key)-len(suffix):] == suffix && s.now().Before(entry.expiresAt) {
			ids = append(ids, key[:len(key)-len(suffix)])
		}
	}
	return ids, nil
}

func (s *MemoryStore) AllMetrics(ctx context.Context) (map[string]Record, error) {
	ids, err := s.AgentIDsWithMetrics(ctx, "")
	if err != nil {
		return nil, err
	}
	out := make(map[string]Record, len(ids))
	for _, id := range ids {
		rec, _ := s.Metrics(ctx, id, "")
		out[id] = rec
	}
	return out, nil
}

var _ Store = (*MemoryStore)(nil)
