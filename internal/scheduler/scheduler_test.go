package scheduler

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dayuer/starfish-go/internal/bus"
	"github.com/dayuer/starfish-go/internal/config"
	"github.com/dayuer/starfish-go/internal/event"
)

func TestStage_RejectsInvalidCron(t *testing.T) {
	b := bus.NewMemoryBus("scheduler")
	defer b.Close()

	stage := &Stage{Bus: b, Jobs: []config.ScheduleJob{
		{Name: "bad", Cron: "not a cron", AgentID: "agent-a", Prompt: "x"},
	}}
	assert.Error(t, stage.Start())
}

func TestStage_RejectsIncompleteJob(t *testing.T) {
	b := bus.NewMemoryBus("scheduler")
	defer b.Close()

	stage := &Stage{Bus: b, Jobs: []config.ScheduleJob{
		{Name: "half", Cron: "@daily"},
	}}
	assert.Error(t, stage.Start())
}

func TestStage_SkipsDisabledJobs(t *testing.T) {
	b := bus.NewMemoryBus("scheduler")
	defer b.Close()

	stage := &Stage{Bus: b, Jobs: []config.ScheduleJob{
		{Name: "off", Cron: "not even parsed", AgentID: "agent-a", Prompt: "x", Disabled: true},
	}}
	require.NoError(t, stage.Start())
	stage.Stop()
}

func TestStage_FirePublishesTickAndMessage(t *testing.T) {
	b := bus.NewMemoryBus("scheduler")
	defer b.Close()

	var mu sync.Mutex
	var ticks, messages []event.Event
	b.Subscribe(event.AgentTick, func(ev event.Event) {
		mu.Lock()
		ticks = append(ticks, ev)
		mu.Unlock()
	})
	b.Subscribe(event.MessageReceived, func(ev event.Event) {
		mu.Lock()
		messages = append(messages, ev)
		mu.Unlock()
	})

	stage := &Stage{Bus: b}
	stage.fire(config.ScheduleJob{
		Name:    "morning-brief",
		Cron:    "0 9 * * *",
		AgentID: "agent-a",
		Prompt:  "summarize the night",
	})
	b.Drain()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, ticks, 1)
	require.Len(t, messages, 1)

	var tick event.AgentTickPayload
	require.NoError(t, ticks[0].Decode(&tick))
	assert.Equal(t, "agent-a", tick.AgentID)

	var msg event.MessageReceivedPayload
	require.NoError(t, messages[0].Decode(&msg))
	assert.Equal(t, "scheduler:morning-brief", msg.ConversationID)
	assert.Equal(t, "scheduler", msg.Platform)
	assert.Equal(t, "agent-a", msg.TargetAgentID)
	assert.Equal(t, "summarize the night", msg.Text)
}
