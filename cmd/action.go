package cmd

import (
	"context"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dayuer/starfish-go/internal/action"
	"github.com/dayuer/starfish-go/internal/bus"
	"github.com/dayuer/starfish-go/internal/metrics"
	"github.com/dayuer/starfish-go/internal/sessions"
	"github.com/dayuer/starfish-go/internal/tools"
	"github.com/dayuer/starfish-go/internal/vision"
)

var actionAgentID string

var actionCmd = &cobra.Command{
	Use:   "action",
	Short: "Run the action stage (intent execution + delegation)",
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		team, _, err := loadRoster(cfg)
		if err != nil {
			return err
		}

		agentID := actionAgentID
		if agentID == "" {
			agentID = os.Getenv("AGENT_ID")
		}
		if agentID == "" {
			agentID = team.DefaultAgentID()
		}

		eventBus, err := bus.NewRedisBus(cfg.Redis.URL, agentID)
		if err != nil {
			return err
		}
		defer eventBus.Close()

		client, err := makeRedis(cfg)
		if err != nil {
			return err
		}
		defer client.Close()

		// Slot polling goes through the vision API when configured, matching a
		// deployment where only the dashboard process owns the slot store.
		var slots sessions.Slots = sessions.NewRedisSlots(client, 0)
		if cfg.Vision.BaseURL != "" {
			httpSlots := sessions.NewHTTPSlots(cfg.Vision.BaseURL)
			httpSlots.APIKey = cfg.Vision.APIKey
			slots = httpSlots
		}

		home, _ := os.UserHomeDir()
		workspace := filepath.Join(home, ".starfish", "workspace")

		agent := &action.Agent{
			Bus:     eventBus,
			Metrics: metrics.NewRedisStore(client, 0, nil),
			Delegator: &sessions.Delegator{
				Bus:     eventBus,
				Slots:   slots,
				AgentID: agentID,
			},
			Shell:          tools.NewShellRunner(workspace),
			Web:            tools.NewWebSearcher(""),
			Files:          tools.NewFileWriter(workspace),
			AgentID:        agentID,
			DefaultAgentID: team.DefaultAgentID(),
		}
		if vc := visionClient(cfg); vc != nil {
			agent.Sessions = &visionSessionLister{client: vc}
		}
		if _, err := action.NewAgent(agent); err != nil {
			return err
		}
		agent.Start()

		ctx, cancel := signalContext()
		defer cancel()
		log.Printf("[Action] ✅ Stage running as %s, press Ctrl+C to stop", agentID)
		<-ctx.Done()
		return nil
	},
}

// visionSessionLister answers sessions_list from the vision routing table.
type visionSessionLister struct {
	client *vision.Client
}

func (l *visionSessionLister) ListSessions(ctx context.Context) ([]action.SessionInfo, error) {
	assignments, err := l.client.Assignments(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]action.SessionInfo, 0, len(assignments))
	for _, a := range assignments {
		out = append(out, action.SessionInfo{
			ConversationID: a.ConversationID,
			AgentID:        a.AgentID,
		})
	}
	return out, nil
}

func init() {
	actionCmd.Flags().StringVar(&actionAgentID, "agent", "", "agent id this action stage executes for")
	rootCmd.AddCommand(actionCmd)
}
