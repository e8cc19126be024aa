// Package metrics records per-agent, per-day activity counters: actions
// taken, AI spend, the last action label, and delegation ("nano") counts.
// Records live in one hash per (agent, day) and outlive the day by a
// retention window so the dashboard can chart the past week.
package metrics

import (
	"context"
	"time"
)

// DefaultTTL is the retention window refreshed by every mutator.
const DefaultTTL = 7 * 24 * time.Hour

// Record is one agent's counters for one calendar day. Absent records read
// as zero values with LastAction "Never".
type Record struct {
	ActionsToday   int     `json:"actionsToday"`
	CostToday      float64 `json:"costToday"`
	LastAction     string  `json:"lastAction"`
	LastActionTime int64   `json:"lastActionTime"` // epoch millis
	NanoCount      int     `json:"nanoCount"`
}

// Store is the per-agent metrics contract. All mutators refresh the
// retention TTL as a side effect. No cross-agent aggregation happens in the
// store; callers sum the records they care about.
type Store interface {
	IncrementActions(ctx context.Context, agentID string) error

	// AddCost accumulates AI spend. Non-positive deltas are ignored.
	AddCost(ctx context.Context, agentID string, delta float64) error

	// RecordAction sets the last-action label and stamps it with now.
	RecordAction(ctx context.Context, agentID, label string) error

	IncrementNano(ctx context.Context, agentID string) error

	// Metrics returns the record for day (YYYY-MM-DD, "" = today).
	Metrics(ctx context.Context, agentID, day string) (Record, error)

	// AgentIDsWithMetrics lists agents that have a record for day.
	AgentIDsWithMetrics(ctx context.Context, day string) ([]string, error)

	// AllMetrics returns today's record for every agent that has one.
	AllMetrics(ctx context.Context) (map[string]Record, error)
}

// dayKey formats t as the calendar-day component of a metrics key.
func dayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
