package action

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/dayuer/starfish-go/internal/bus"
	"github.com/dayuer/starfish-go/internal/event"
	"github.com/dayuer/starfish-go/internal/metrics"
	"github.com/dayuer/starfish-go/internal/sessions"
)

// ShellRunner executes guarded shell commands.
type ShellRunner interface {
	Run(ctx context.Context, command string) (string, error)
}

// WebSearcher answers search queries and fetches URLs.
type WebSearcher interface {
	Search(ctx context.Context, query string) (string, error)
	FetchURL(ctx context.Context, rawURL string) (string, error)
}

// FileWriter writes files inside the agent workspace.
type FileWriter interface {
	Write(relPath, content string) (string, error)
}

// SessionLister lists active conversation→agent assignments for the
// sessions_list intent (normally the vision API).
type SessionLister interface {
	ListSessions(ctx context.Context) ([]SessionInfo, error)
}

// SessionInfo is one assignment visible to sessions_list.
type SessionInfo struct {
	ConversationID string `json:"conversationId"`
	AgentID        string `json:"agentId"`
}

// handler executes one intent variant. The returned string becomes
// action.completed output; a non-nil error becomes action.failed.
type handler func(ctx context.Context, agentID string, params Params) (string, error)

// Agent is the action stage.
type Agent struct {
	Bus       bus.Bus
	Metrics   metrics.Store
	Delegator *sessions.Delegator

	Shell    ShellRunner
	Web      WebSearcher
	Files    FileWriter
	Sessions SessionLister

	// AgentID pins this stage to one team member when several action
	// processes run side by side. Empty means handle every intent.
	AgentID        string
	DefaultAgentID string

	handlers map[Intent]handler
}

// NewAgent wires the dispatch table and verifies it covers the whole intent
// enum; a missing variant fails fast at startup.
func NewAgent(a *Agent) (*Agent, error) {
	a.handlers = map[Intent]handler{
		IntentBash:         a.handleBash,
		IntentWebSearch:    a.handleWebSearch,
		IntentWriteFile:    a.handleWriteFile,
		IntentResponse:     a.handleResponse,
		IntentSessionsList: a.handleSessionsList,
		IntentSessionsSend: a.handleSessionsSend,
		IntentExecutePlan:  a.handleExecutePlan,
	}
	for _, in := range AllIntents() {
		if a.handlers[in] == nil {
			return nil, fmt.Errorf("no handler for intent %q", in)
		}
	}
	return a, nil
}

// Start registers the stage's subscription.
func (a *Agent) Start() {
	a.Bus.Subscribe(event.IntentDetected, a.onIntentDetected)
	log.Println("[ActionAgent] ✅ Subscribed")
}

func (a *Agent) onIntentDetected(ev event.Event) {
	var payload event.IntentDetectedPayload
	if err := ev.Decode(&payload); err != nil {
		log.Printf("[ActionAgent] ⚠️ Bad intent.detected payload: %v", err)
		return
	}

	agentID := payload.AgentID
	if agentID == "" {
		agentID = a.DefaultAgentID
	}
	if a.AgentID != "" && agentID != a.AgentID {
		// Another member's action stage owns this intent. Exactly one stage
		// may execute it and emit the terminal event.
		return
	}

	output, err := a.execute(context.Background(), agentID, payload)
	if err != nil {
		log.Printf("[ActionAgent] ❌ %s failed for %s: %v", payload.Intent, payload.ConversationID, err)
		a.publishFailed(payload.ConversationID, err.Error(), ev.CorrelationID)
		return
	}

	ctx := context.Background()
	if a.Metrics != nil {
		// Best effort: metric failures never block the terminal reply.
		if err := a.Metrics.IncrementActions(ctx, agentID); err != nil {
			log.Printf("[ActionAgent] ⚠️ Metrics increment failed: %v", err)
		}
		_ = a.Metrics.IncrementNano(ctx, agentID)
		_ = a.Metrics.RecordAction(ctx, agentID, "action_"+payload.Intent)
	}

	pub := a.Bus.Publish(event.ActionCompleted, event.ActionCompletedPayload{
		ConversationID: payload.ConversationID,
		Result:         event.ActionResult{Output: output},
		AgentID:        agentID,
	}, ev.CorrelationID)
	if pub != nil {
		log.Printf("[ActionAgent] ❌ Publish action.completed failed: %v", pub)
	}
}

// execute resolves and runs the handler. Panics become failures so no
// escape route skips the terminal event.
func (a *Agent) execute(ctx context.Context, agentID string, payload event.IntentDetectedPayload) (output string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("action panicked: %v", r)
		}
	}()

	intent, ok := ParseIntent(payload.Intent)
	if !ok {
		// Unknown intents terminate visibly rather than failing: the user
		// still gets a reply, matching the legacy behavior.
		return "Intent not recognized", nil
	}
	return a.handlers[intent](ctx, agentID, Params(payload.Params))
}

func (a *Agent) publishFailed(conversationID, message, correlationID string) {
	err := a.Bus.Publish(event.ActionFailed, event.ActionFailedPayload{
		ConversationID: conversationID,
		Error:          message,
	}, correlationID)
	if err != nil {
		log.Printf("[ActionAgent] ❌ Publish action.failed failed: %v", err)
	}
}

// --- Intent handlers ---

func (a *Agent) handleBash(ctx context.Context, _ string, params Params) (string, error) {
	if a.Shell == nil {
		return "", fmt.Errorf("bash execution is not enabled on this agent")
	}
	return a.Shell.Run(ctx, params.Str("command"))
}

func (a *Agent) handleWebSearch(ctx context.Context, _ string, params Params) (string, error) {
	if a.Web == nil {
		return "", fmt.Errorf("web search is not enabled on this agent")
	}
	query := params.Str("query")
	if looksLikeURL(query) {
		return a.Web.FetchURL(ctx, query)
	}
	return a.Web.Search(ctx, query)
}

var urlPattern = regexp.MustCompile(`^https?://\S+$`)

func looksLikeURL(query string) bool {
	return urlPattern.MatchString(strings.TrimSpace(query))
}

func (a *Agent) handleWriteFile(_ context.Context, _ string, params Params) (string, error) {
	if a.Files == nil {
		return "", fmt.Errorf("file writing is not enabled on this agent")
	}
	return a.Files.Write(params.Str("filePath"), params.Str("content"))
}

func (a *Agent) handleResponse(_ context.Context, _ string, params Params) (string, error) {
	if text := params.Str("text"); text != "" {
		return text, nil
	}
	return "No response", nil
}

func (a *Agent) handleSessionsList(ctx context.Context, _ string, _ Params) (string, error) {
	if a.Sessions == nil {
		return "", fmt.Errorf("session listing is not enabled on this agent")
	}
	list, err := a.Sessions.ListSessions(ctx)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (a *Agent) handleSessionsSend(ctx context.Context, _ string, params Params) (string, error) {
	if a.Delegator == nil {
		return "", fmt.Errorf("delegation is not enabled on this agent")
	}
	return a.Delegator.Send(ctx, params.Str("toAgentId"), params.Str("text"))
}

func (a *Agent) handleExecutePlan(ctx context.Context, agentID string, params Params) (string, error) {
	if a.Delegator == nil {
		return "", fmt.Errorf("delegation is not enabled on this agent")
	}
	// Plan steps loop back to the requesting agent itself.
	return a.Delegator.ExecutePlan(ctx, agentID, params.StrSlice("steps"))
}
