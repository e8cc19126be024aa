// Package scheduler runs cron-driven autonomous agent turns. Each firing
// publishes an agent.tick plus a message.received under a `scheduler:` id,
// so the rest of the pipeline treats the run as a normal conversation.
package scheduler

import (
	"fmt"
	"log"

	"github.com/robfig/cron/v3"

	"github.com/dayuer/starfish-go/internal/bus"
	"github.com/dayuer/starfish-go/internal/config"
	"github.com/dayuer/starfish-go/internal/convo"
	"github.com/dayuer/starfish-go/internal/event"
)

// Stage owns the cron runner.
type Stage struct {
	Bus  bus.Bus
	Jobs []config.ScheduleJob

	runner *cron.Cron
}

// Start registers every enabled job and starts the cron runner.
func (s *Stage) Start() error {
	s.runner = cron.New()

	registered := 0
	for _, job := range s.Jobs {
		if job.Disabled {
			log.Printf("[Scheduler] ⏸️ Job %q disabled", job.Name)
			continue
		}
		if job.Name == "" || job.Cron == "" || job.AgentID == "" {
			return fmt.Errorf("schedule job needs name, cron and agentId (got %+v)", job)
		}
		job := job
		if _, err := s.runner.AddFunc(job.Cron, func() { s.fire(job) }); err != nil {
			return fmt.Errorf("register job %q (%s): %w", job.Name, job.Cron, err)
		}
		registered++
	}

	s.runner.Start()
	log.Printf("[Scheduler] ✅ %d job(s) registered", registered)
	return nil
}

// Stop halts the runner; already-running jobs finish.
func (s *Stage) Stop() {
	if s.runner != nil {
		s.runner.Stop()
	}
}

func (s *Stage) fire(job config.ScheduleJob) {
	log.Printf("[Scheduler] ⏰ Firing %q for %s", job.Name, job.AgentID)

	err := s.Bus.Publish(event.AgentTick, event.AgentTickPayload{
		AgentID: job.AgentID,
		Prompt:  job.Prompt,
	}, "")
	if err != nil {
		log.Printf("[Scheduler] ⚠️ Publish agent.tick failed: %v", err)
	}

	err = s.Bus.Publish(event.MessageReceived, event.MessageReceivedPayload{
		Platform:       "scheduler",
		UserID:         "scheduler",
		ConversationID: convo.Scheduler(job.Name).String(),
		Text:           job.Prompt,
		TargetAgentID:  job.AgentID,
	}, "")
	if err != nil {
		log.Printf("[Scheduler] ❌ Publish scheduled message failed: %v", err)
	}
}
