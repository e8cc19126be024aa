package memory

import (
	"context"
	"log"

	"github.com/dayuer/starfish-go/internal/bus"
	"github.com/dayuer/starfish-go/internal/event"
	"github.com/dayuer/starfish-go/internal/routing"
)

// Agent is the memory stage. On every inbound message it persists the user
// turn, resolves which agent owns the conversation, loads bounded history,
// and publishes context.loaded on the same correlation chain. It also writes
// assistant replies back into history when terminal completions pass by.
type Agent struct {
	Bus         bus.Bus
	Store       *HistoryStore
	Assignments routing.AssignmentStore
	Team        []routing.TeamMember
}

// Start registers the stage's subscriptions.
func (a *Agent) Start() {
	a.Bus.Subscribe(event.MessageReceived, a.onMessageReceived)
	a.Bus.Subscribe(event.ActionCompleted, a.onActionCompleted)
	log.Println("[MemoryAgent] ✅ Subscribed")
}

func (a *Agent) onMessageReceived(ev event.Event) {
	var payload event.MessageReceivedPayload
	if err := ev.Decode(&payload); err != nil {
		log.Printf("[MemoryAgent] ⚠️ Bad message.received payload: %v", err)
		return
	}
	if payload.ConversationID == "" {
		return
	}
	ctx := context.Background()

	if err := a.Store.Save(ctx, payload.ConversationID, "user", payload.Text, ev.Timestamp); err != nil {
		log.Printf("[MemoryAgent] ⚠️ Save failed for %s: %v", payload.ConversationID, err)
	}

	target := a.resolveTarget(ctx, payload)

	history, err := a.Store.History(ctx, payload.ConversationID)
	if err != nil {
		log.Printf("[MemoryAgent] ⚠️ History load failed for %s: %v", payload.ConversationID, err)
		history = nil
	}

	log.Printf("[MemoryAgent] Context for %s: %d messages, target=%s",
		payload.ConversationID, len(history), orDefault(target))
	err = a.Bus.Publish(event.ContextLoaded, event.ContextLoadedPayload{
		ConversationID:  payload.ConversationID,
		History:         history,
		CurrentMessage:  payload.Text,
		TargetAgentID:   target,
		AssignedAgentID: target,
	}, ev.CorrelationID)
	if err != nil {
		log.Printf("[MemoryAgent] ❌ Publish context.loaded failed: %v", err)
	}
}

// resolveTarget applies the ordering the router contract relies on: an
// explicit target on the event (delegation) wins, then a fresh mention, then
// the stored assignment. Mention or traffic keeps the assignment alive.
func (a *Agent) resolveTarget(ctx context.Context, payload event.MessageReceivedPayload) string {
	if payload.TargetAgentID != "" {
		return payload.TargetAgentID
	}
	if a.Assignments == nil {
		return ""
	}

	if mentioned := routing.DetectMention(payload.Text, a.Team); mentioned != nil {
		if err := a.Assignments.Assign(ctx, payload.ConversationID, mentioned.ID); err != nil {
			log.Printf("[MemoryAgent] ⚠️ Assign failed for %s: %v", payload.ConversationID, err)
		}
		if err := a.Assignments.Renew(ctx, payload.ConversationID); err != nil {
			log.Printf("[MemoryAgent] ⚠️ Renew failed for %s: %v", payload.ConversationID, err)
		}
		log.Printf("[MemoryAgent] Mention: %s → %s", payload.ConversationID, mentioned.ID)
		return mentioned.ID
	}

	assigned, err := a.Assignments.AssignedAgent(ctx, payload.ConversationID)
	if err != nil {
		log.Printf("[MemoryAgent] ⚠️ Assignment lookup failed for %s: %v", payload.ConversationID, err)
		return ""
	}
	if assigned != "" {
		if err := a.Assignments.Renew(ctx, payload.ConversationID); err != nil {
			log.Printf("[MemoryAgent] ⚠️ Renew failed for %s: %v", payload.ConversationID, err)
		}
	}
	return assigned
}

func (a *Agent) onActionCompleted(ev event.Event) {
	var payload event.ActionCompletedPayload
	if err := ev.Decode(&payload); err != nil {
		return
	}
	if payload.ConversationID == "" || payload.Result.Output == "" {
		return
	}
	ctx := context.Background()
	if err := a.Store.Save(ctx, payload.ConversationID, "assistant", payload.Result.Output, ev.Timestamp); err != nil {
		log.Printf("[MemoryAgent] ⚠️ Save reply failed for %s: %v", payload.ConversationID, err)
	}
}

func orDefault(target string) string {
	if target == "" {
		return "(default)"
	}
	return target
}
