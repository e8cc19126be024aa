package chat

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/dayuer/starfish-go/internal/bus"
	"github.com/dayuer/starfish-go/internal/convo"
	"github.com/dayuer/starfish-go/internal/event"
	"github.com/dayuer/starfish-go/internal/routing"
	"github.com/dayuer/starfish-go/internal/sessions"
)

var (
	resetPattern  = regexp.MustCompile(`(?i)^/reset\s*$`)
	statusPattern = regexp.MustCompile(`(?i)^/status\s*$`)
)

// resetConfirmation is the reply to a /reset command.
const resetConfirmation = "Conversation unassigned. Next message will go to the default agent, or mention an agent (e.g. @Name)."

// StatusFunc produces the /status reply text.
type StatusFunc func(ctx context.Context) string

// Gateway owns the platform adapters. Inbound it handles the slash commands
// locally and publishes everything else as message.received; outbound it
// subscribes to the terminal events and routes each one by conversation id
// kind: platform ids go back to their adapter, session ids fill a delegation
// response slot, scheduler ids are forwarded to the report conversation.
type Gateway struct {
	Bus         bus.Bus
	Assignments routing.AssignmentStore
	Slots       sessions.Slots
	Adapters    []Adapter

	// SchedulerReportConversationID, when set, receives the output of
	// autonomous scheduler runs. Empty means scheduler output is only logged.
	SchedulerReportConversationID string

	// Status builds the /status reply. Nil falls back to a local summary.
	Status StatusFunc
}

// Start registers the terminal-event subscriptions and starts every adapter.
func (g *Gateway) Start(ctx context.Context) error {
	g.Bus.Subscribe(event.ActionCompleted, g.onActionCompleted)
	g.Bus.Subscribe(event.ActionFailed, g.onActionFailed)

	for _, ad := range g.Adapters {
		if err := ad.Start(ctx, g.handleIncoming); err != nil {
			return fmt.Errorf("start %s adapter: %w", ad.Platform(), err)
		}
		log.Printf("[ChatGateway] ✅ %s adapter started", ad.Platform())
	}
	return nil
}

// Stop stops every adapter.
func (g *Gateway) Stop() {
	for _, ad := range g.Adapters {
		if err := ad.Stop(); err != nil {
			log.Printf("[ChatGateway] ⚠️ Stop %s adapter: %v", ad.Platform(), err)
		}
	}
}

func (g *Gateway) adapterFor(platform string) Adapter {
	for _, ad := range g.Adapters {
		if ad.Platform() == platform {
			return ad
		}
	}
	return nil
}

func (g *Gateway) handleIncoming(in Incoming) {
	conversationID := convo.Platform(in.Platform, in.ChatID).String()
	text := strings.TrimSpace(in.Text)

	switch {
	case resetPattern.MatchString(text):
		g.handleReset(conversationID)
	case statusPattern.MatchString(text):
		g.handleStatus(in)
	default:
		err := g.Bus.Publish(event.MessageReceived, event.MessageReceivedPayload{
			Platform:       in.Platform,
			UserID:         in.UserID,
			ConversationID: conversationID,
			Text:           in.Text,
		}, "")
		if err != nil {
			log.Printf("[ChatGateway] ❌ Publish message.received failed: %v", err)
		}
	}
}

// handleReset clears the conversation's assignment. The confirmation travels
// as a normal action.completed so it reaches the user through the same egress
// path as every other reply.
func (g *Gateway) handleReset(conversationID string) {
	ctx := context.Background()
	if err := g.Assignments.Unassign(ctx, conversationID); err != nil {
		log.Printf("[ChatGateway] ⚠️ Unassign %s failed: %v", conversationID, err)
	}
	err := g.Bus.Publish(event.ConversationUnassigned, event.ConversationUnassignedPayload{
		ConversationID: conversationID,
	}, "")
	if err != nil {
		log.Printf("[ChatGateway] ⚠️ Publish conversation.unassigned failed: %v", err)
	}
	err = g.Bus.Publish(event.ActionCompleted, event.ActionCompletedPayload{
		ConversationID: conversationID,
		Result:         event.ActionResult{Output: resetConfirmation},
	}, "")
	if err != nil {
		log.Printf("[ChatGateway] ❌ Publish reset confirmation failed: %v", err)
	}
	log.Printf("[ChatGateway] 🔄 Reset %s", conversationID)
}

// handleStatus answers directly from the adapter without entering the
// pipeline: status must work even when the downstream stages are down.
func (g *Gateway) handleStatus(in Incoming) {
	text := g.statusText(context.Background())
	ad := g.adapterFor(in.Platform)
	if ad == nil {
		log.Printf("[ChatGateway] ⚠️ No adapter for platform %q", in.Platform)
		return
	}
	if err := ad.Send(in.ChatID, text); err != nil {
		log.Printf("[ChatGateway] ❌ Send status reply failed: %v", err)
	}
}

func (g *Gateway) statusText(ctx context.Context) string {
	if g.Status != nil {
		return g.Status(ctx)
	}
	platforms := make([]string, 0, len(g.Adapters))
	for _, ad := range g.Adapters {
		platforms = append(platforms, ad.Platform())
	}
	return fmt.Sprintf("Chat gateway up. Connected platforms: %s", strings.Join(platforms, ", "))
}

func (g *Gateway) onActionCompleted(ev event.Event) {
	var payload event.ActionCompletedPayload
	if err := ev.Decode(&payload); err != nil {
		log.Printf("[ChatGateway] ⚠️ Bad action.completed payload: %v", err)
		return
	}
	id, err := convo.Parse(payload.ConversationID)
	if err != nil {
		log.Printf("[ChatGateway] ⚠️ Unroutable conversation id %q: %v", payload.ConversationID, err)
		return
	}

	switch {
	case id.IsSession():
		// Delegation replies never reach a platform; they fill the response
		// slot the requesting agent is polling.
		if g.Slots == nil {
			log.Printf("[ChatGateway] ⚠️ Session reply for %s but no slot store", id.RequestID)
			return
		}
		if err := g.Slots.Put(context.Background(), id.RequestID, payload.Result.Output); err != nil {
			log.Printf("[ChatGateway] ❌ Store session response %s failed: %v", id.RequestID, err)
		}
	case id.IsScheduler():
		g.reportSchedulerRun(id.Name, payload.Result.Output)
	default:
		g.deliver(id, payload.Result.Output)
	}
}

func (g *Gateway) onActionFailed(ev event.Event) {
	var payload event.ActionFailedPayload
	if err := ev.Decode(&payload); err != nil {
		log.Printf("[ChatGateway] ⚠️ Bad action.failed payload: %v", err)
		return
	}
	id, err := convo.Parse(payload.ConversationID)
	if err != nil {
		log.Printf("[ChatGateway] ⚠️ Unroutable conversation id %q: %v", payload.ConversationID, err)
		return
	}
	// Session failures are not written to the slot: the poller's deadline
	// produces the timeout reply.
	if id.IsSession() || id.IsScheduler() {
		log.Printf("[ChatGateway] ⚠️ %s run failed: %s", payload.ConversationID, payload.Error)
		return
	}
	g.deliver(id, "Error: "+payload.Error)
}

func (g *Gateway) reportSchedulerRun(jobName, output string) {
	if g.SchedulerReportConversationID == "" {
		log.Printf("[ChatGateway] ⏰ Scheduler run %s completed (no report conversation configured)", jobName)
		return
	}
	id, err := convo.Parse(g.SchedulerReportConversationID)
	if err != nil || id.Kind != convo.KindPlatform {
		log.Printf("[ChatGateway] ⚠️ Bad scheduler report conversation id %q", g.SchedulerReportConversationID)
		return
	}
	g.deliver(id, fmt.Sprintf("⏰ [%s]\n\n%s", jobName, output))
}

func (g *Gateway) deliver(id convo.ID, text string) {
	ad := g.adapterFor(id.Platform)
	if ad == nil {
		log.Printf("[ChatGateway] ⚠️ No adapter for platform %q (conversation %s)", id.Platform, id.String())
		return
	}
	if err := ad.Send(id.ChatID, text); err != nil {
		log.Printf("[ChatGateway] ❌ Send to %s failed: %v", id.String(), err)
	}
}
