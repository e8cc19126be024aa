package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/dayuer/starfish-go/internal/bus"
	"github.com/dayuer/starfish-go/internal/core"
)

var coreAgentID string

var coreCmd = &cobra.Command{
	Use:   "core",
	Short: "Run one core agent stage (reasoning + intent detection)",
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		team, _, err := loadRoster(cfg)
		if err != nil {
			return err
		}

		agentID := coreAgentID
		if agentID == "" {
			agentID = os.Getenv("AGENT_ID")
		}
		if agentID == "" {
			agentID = team.DefaultAgentID()
		}
		member := team.Member(agentID)
		if member == nil {
			return fmt.Errorf("agent %q is not in the team roster", agentID)
		}

		provider, err := makeProvider(cfg)
		if err != nil {
			return err
		}

		eventBus, err := bus.NewRedisBus(cfg.Redis.URL, agentID)
		if err != nil {
			return err
		}
		defer eventBus.Close()

		agent := &core.Agent{
			Bus:       eventBus,
			Provider:  provider,
			AgentID:   agentID,
			IsDefault: agentID == team.DefaultAgentID(),
			Persona:   member.Persona,
			Model:     cfg.Provider.Model,
		}
		agent.Start()

		ctx, cancel := signalContext()
		defer cancel()
		log.Printf("[Core] ✅ Agent %s running, press Ctrl+C to stop", agentID)
		<-ctx.Done()
		return nil
	},
}

func init() {
	coreCmd.Flags().StringVar(&coreAgentID, "agent", "", "agent id from the team roster (default: roster default)")
	rootCmd.AddCommand(coreCmd)
}
