package core

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/dayuer/starfish-go/internal/bus"
	"github.com/dayuer/starfish-go/internal/event"
	"github.com/dayuer/starfish-go/internal/providers"
)

const defaultSystemPrompt = "You are a helpful, friendly assistant. Answer concisely and clearly."

// Agent is the core stage for one team member. Each member runs its own
// process; events addressed to another member are ignored, and events with
// no target are handled only by the default member.
type Agent struct {
	Bus      bus.Bus
	Provider providers.LLMProvider

	AgentID   string
	IsDefault bool
	Persona   string // system prompt override from the team roster
	Model     string

	classifier *Classifier
}

// Start wires the classifier and registers the stage's subscription.
func (a *Agent) Start() {
	a.classifier = &Classifier{Provider: a.Provider, Model: a.Model}
	a.Bus.Subscribe(event.ContextLoaded, a.onContextLoaded)
	log.Printf("[CoreAgent] ✅ %s subscribed (default=%v)", a.AgentID, a.IsDefault)
}

// addressedTo reports whether this agent should handle the event.
func (a *Agent) addressedTo(targetAgentID string) bool {
	if targetAgentID == "" {
		return a.IsDefault
	}
	return targetAgentID == a.AgentID
}

func (a *Agent) onContextLoaded(ev event.Event) {
	var payload event.ContextLoadedPayload
	if err := ev.Decode(&payload); err != nil {
		log.Printf("[CoreAgent] ⚠️ Bad context.loaded payload: %v", err)
		return
	}
	if !a.addressedTo(payload.TargetAgentID) {
		return
	}
	log.Printf("[CoreAgent] %s handling %s (%d history messages)",
		a.AgentID, payload.ConversationID, len(payload.History))

	ctx := context.Background()

	classification, err := a.classifier.Classify(ctx, payload.CurrentMessage)
	if err != nil {
		// A broken classifier must not break conversation.
		log.Printf("[CoreAgent] ⚠️ Intent classification failed: %v", err)
		classification = Classification{Intent: "response"}
	}

	if !classification.Conversational() {
		log.Printf("[CoreAgent] Intent %q for %s", classification.Intent, payload.ConversationID)
		err := a.Bus.Publish(event.IntentDetected, event.IntentDetectedPayload{
			ConversationID: payload.ConversationID,
			Intent:         classification.Intent,
			Params:         classification.Params,
			AgentID:        a.AgentID,
		}, ev.CorrelationID)
		if err != nil {
			log.Printf("[CoreAgent] ❌ Publish intent.detected failed: %v", err)
		}
		return
	}

	response, err := a.generateResponse(ctx, payload)
	if err != nil {
		log.Printf("[CoreAgent] ❌ Response generation failed: %v", err)
		a.publishFailed(payload.ConversationID, err.Error(), ev.CorrelationID)
		return
	}

	pub := a.Bus.Publish(event.ActionCompleted, event.ActionCompletedPayload{
		ConversationID: payload.ConversationID,
		Result:         event.ActionResult{Output: response},
		AgentID:        a.AgentID,
	}, ev.CorrelationID)
	if pub != nil {
		log.Printf("[CoreAgent] ❌ Publish action.completed failed: %v", pub)
	}
}

// generateResponse produces the conversational reply from bounded history.
func (a *Agent) generateResponse(ctx context.Context, payload event.ContextLoadedPayload) (string, error) {
	system := a.Persona
	if strings.TrimSpace(system) == "" {
		system = defaultSystemPrompt
	}

	messages := make([]providers.Message, 0, len(payload.History)+2)
	messages = append(messages, providers.Message{Role: "system", Content: system})
	for _, h := range payload.History {
		if h.Role != "user" && h.Role != "assistant" {
			continue
		}
		messages = append(messages, providers.Message{Role: h.Role, Content: h.Content})
	}
	messages = append(messages, providers.Message{Role: "user", Content: payload.CurrentMessage})

	response, err := a.Provider.Chat(ctx, providers.ChatRequest{
		Messages:    messages,
		Model:       a.Model,
		MaxTokens:   500,
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("generate response: %w", err)
	}
	if strings.TrimSpace(response) == "" {
		return "Sorry, I could not generate a response.", nil
	}
	return response, nil
}

func (a *Agent) publishFailed(conversationID, message, correlationID string) {
	err := a.Bus.Publish(event.ActionFailed, event.ActionFailedPayload{
		ConversationID: conversationID,
		Error:          message,
	}, correlationID)
	if err != nil {
		log.Printf("[CoreAgent] ❌ Publish action.failed failed: %v", err)
	}
}
