// Package event defines the envelope and the closed set of event names that
// travel on the bus between pipeline stages.
package event

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Name identifies an event channel. The set is closed: every stage subscribes
// only to the names it consumes.
type Name string

const (
	MessageReceived        Name = "message.received"
	ContextLoaded          Name = "context.loaded"
	IntentDetected         Name = "intent.detected"
	ActionCompleted        Name = "action.completed"
	ActionFailed           Name = "action.failed"
	ConversationUnassigned Name = "conversation.unassigned"
	AgentTick              Name = "agent.tick"
)

// AllNames lists every known event name, in pipeline order.
func AllNames() []Name {
	return []Name{
		MessageReceived,
		ContextLoaded,
		IntentDetected,
		ActionCompleted,
		ActionFailed,
		ConversationUnassigned,
		AgentTick,
	}
}

// Valid reports whether n is one of the known event names.
func (n Name) Valid() bool {
	switch n {
	case MessageReceived, ContextLoaded, IntentDetected,
		ActionCompleted, ActionFailed, ConversationUnassigned, AgentTick:
		return true
	}
	return false
}

// Event is the wire envelope. ID is unique per publish and is only for
// display/dedup. CorrelationID is minted once per inbound message and carried
// unchanged through every downstream event it causes; it is the only way to
// trace a causal chain across stages.
type Event struct {
	ID            string          `json:"id"`
	Name          Name            `json:"name"`
	Payload       json.RawMessage `json:"payload"`
	Timestamp     int64           `json:"timestamp"` // epoch millis
	CorrelationID string          `json:"correlationId"`
	AgentID       string          `json:"agentId,omitempty"`
}

// New builds an envelope around payload. An empty correlationID starts a new
// causal chain with a fresh UUID.
func New(name Name, payload any, correlationID, agentID string) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	return Event{
		ID:            uuid.NewString(),
		Name:          name,
		Payload:       raw,
		Timestamp:     time.Now().UnixMilli(),
		CorrelationID: correlationID,
		AgentID:       agentID,
	}, nil
}

// Decode unmarshals the payload into out.
func (e Event) Decode(out any) error {
	return json.Unmarshal(e.Payload, out)
}

// HistoryEntry is one prior message in a conversation.
type HistoryEntry struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// MessageReceivedPayload enters the pipeline from a chat adapter or from the
// delegation bridge.
type MessageReceivedPayload struct {
	Platform       string `json:"platform"`
	UserID         string `json:"userId"`
	ConversationID string `json:"conversationId"`
	Text           string `json:"text"`
	// TargetAgentID, when set, names the only agent that should handle this
	// message (mention, existing assignment, or delegation target).
	TargetAgentID string `json:"targetAgentId,omitempty"`
}

// ContextLoadedPayload is published by the memory stage for the core stage.
type ContextLoadedPayload struct {
	ConversationID string         `json:"conversationId"`
	History        []HistoryEntry `json:"history"`
	CurrentMessage string         `json:"currentMessage"`
	TargetAgentID  string         `json:"targetAgentId,omitempty"`
	// AssignedAgentID mirrors TargetAgentID for older consumers.
	AssignedAgentID string `json:"assignedAgentId,omitempty"`
}

// IntentDetectedPayload is published by the core stage for the action stage.
type IntentDetectedPayload struct {
	ConversationID string         `json:"conversationId"`
	Intent         string         `json:"intent"`
	Params         map[string]any `json:"params,omitempty"`
	AgentID        string         `json:"agentId,omitempty"`
}

// ActionResult carries the output of a completed action.
type ActionResult struct {
	Output string   `json:"output"`
	Files  []string `json:"files,omitempty"`
}

// ActionCompletedPayload is one of the two terminal events.
type ActionCompletedPayload struct {
	ConversationID string       `json:"conversationId"`
	Result         ActionResult `json:"result"`
	AgentID        string       `json:"agentId,omitempty"`
}

// ActionFailedPayload is the other terminal event.
type ActionFailedPayload struct {
	ConversationID string `json:"conversationId"`
	Error          string `json:"error"`
}

// ConversationUnassignedPayload announces that a /reset cleared an assignment.
type ConversationUnassignedPayload struct {
	ConversationID string `json:"conversationId"`
}

// AgentTickPayload is published by the scheduler for autonomous runs.
type AgentTickPayload struct {
	AgentID string `json:"agentId"`
	Prompt  string `json:"prompt,omitempty"`
}
