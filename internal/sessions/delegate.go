package sessions

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dayuer/starfish-go/internal/bus"
	"github.com/dayuer/starfish-go/internal/convo"
	"github.com/dayuer/starfish-go/internal/event"
)

// TimeoutOutput is the content-level timeout report. Delegation failure is
// reported as content inside a normal completion, never as a pipeline error,
// because the requester's caller still needs a terminal reply.
const TimeoutOutput = "No response from agent (timeout)."

const (
	// DefaultDeadline bounds one delegation wait.
	DefaultDeadline = 90 * time.Second
	// DefaultPollInterval is the gap between slot polls.
	DefaultPollInterval = 2 * time.Second
)

// Clock abstracts time for the poll loop so tests resolve delegations
// without real 90-second waits.
type Clock interface {
	Now() time.Time
	// Sleep waits for d or until ctx is done, whichever comes first.
	Sleep(ctx context.Context, d time.Duration)
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

func (wallClock) Sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// WallClock returns the real-time Clock.
func WallClock() Clock { return wallClock{} }

// Delegator runs the request side of the bridge: publish a task as a fresh
// session conversation, then poll the response slot until the responder's
// completion lands or the deadline elapses.
type Delegator struct {
	Bus          bus.Bus
	Slots        Slots
	AgentID      string // requester identity, used as userId on the task
	Deadline     time.Duration
	PollInterval time.Duration
	Clock        Clock

	// NewRequestID overrides request-id minting in tests.
	NewRequestID func() string
}

func (d *Delegator) deadline() time.Duration {
	if d.Deadline > 0 {
		return d.Deadline
	}
	return DefaultDeadline
}

func (d *Delegator) pollInterval() time.Duration {
	if d.PollInterval > 0 {
		return d.PollInterval
	}
	return DefaultPollInterval
}

func (d *Delegator) clock() Clock {
	if d.Clock != nil {
		return d.Clock
	}
	return wallClock{}
}

func (d *Delegator) requestID() string {
	if d.NewRequestID != nil {
		return d.NewRequestID()
	}
	return uuid.NewString()
}

// Send delegates text to toAgentID and blocks until its output arrives or
// the deadline elapses. The returned string is always usable as content; a
// timeout yields TimeoutOutput, not an error. The error return covers only
// local failures (bad arguments, bus serialization).
func (d *Delegator) Send(ctx context.Context, toAgentID, text string) (string, error) {
	toAgentID = strings.TrimSpace(toAgentID)
	text = strings.TrimSpace(text)
	if toAgentID == "" || text == "" {
		return "", fmt.Errorf("sessions_send requires toAgentId and text")
	}

	requestID := d.requestID()
	conversationID := convo.Session(requestID).String()

	// Re-enter the pipeline from the top, exactly as if a user had sent this
	// text in a brand-new conversation owned by the target agent.
	err := d.Bus.Publish(event.MessageReceived, event.MessageReceivedPayload{
		Platform:       "internal",
		UserID:         d.AgentID,
		ConversationID: conversationID,
		Text:           text,
		TargetAgentID:  toAgentID,
	}, "")
	if err != nil {
		return "", err
	}

	log.Printf("[Sessions] Delegated to %s (request %s)", toAgentID, requestID)
	return d.await(ctx, requestID), nil
}

// await is the blocking wait implemented as a non-blocking poll loop. The
// deadline is wall-clock and cannot be extended; cancellation of ctx only
// shortens the inter-poll sleeps.
func (d *Delegator) await(ctx context.Context, requestID string) string {
	clk := d.clock()
	deadline := clk.Now().Add(d.deadline())
	for clk.Now().Before(deadline) {
		clk.Sleep(ctx, d.pollInterval())
		output, ok, err := d.Slots.Take(ctx, requestID)
		if err != nil {
			// Slot store unreachable: keep polling, the deadline bounds us.
			continue
		}
		if ok {
			return output
		}
		if ctx.Err() != nil {
			break
		}
	}
	log.Printf("[Sessions] ⚠️ Request %s timed out", requestID)
	return TimeoutOutput
}

// ExecutePlan runs one delegation per step, strictly in order: step i+1 is
// not published until step i resolved (output or timeout). A timed-out step
// does not abort the rest. Blank steps are skipped without consuming a
// request id; a plan with no non-empty steps fails validation synchronously.
func (d *Delegator) ExecutePlan(ctx context.Context, toAgentID string, steps []string) (string, error) {
	nonEmpty := 0
	for _, s := range steps {
		if strings.TrimSpace(s) != "" {
			nonEmpty++
		}
	}
	if nonEmpty == 0 {
		return "", fmt.Errorf("execute_plan requires params.steps (array of step descriptions)")
	}

	var outputs []string
	for i, step := range steps {
		step = strings.TrimSpace(step)
		if step == "" {
			continue
		}
		output, err := d.Send(ctx, toAgentID, step)
		if err != nil {
			return "", err
		}
		if output == TimeoutOutput {
			output = "timeout"
		}
		outputs = append(outputs, fmt.Sprintf("Step %d: %s", i+1, output))
	}
	return strings.Join(outputs, "\n\n"), nil
}
