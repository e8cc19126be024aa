package cmd

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/dayuer/starfish-go/internal/bus"
	"github.com/dayuer/starfish-go/internal/memory"
	"github.com/dayuer/starfish-go/internal/routing"
)

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Run the memory stage (history + conversation routing)",
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		eventBus, err := bus.NewRedisBus(cfg.Redis.URL, "memory")
		if err != nil {
			return err
		}
		defer eventBus.Close()

		client, err := makeRedis(cfg)
		if err != nil {
			return err
		}
		defer client.Close()

		store, err := memory.OpenHistoryStore(cfg.Memory.DBPath, cfg.Memory.HistoryLimit)
		if err != nil {
			return err
		}
		defer store.Close()

		_, members, err := loadRoster(cfg)
		if err != nil {
			return err
		}

		agent := &memory.Agent{
			Bus:         eventBus,
			Store:       store,
			Assignments: routing.NewRedisAssignmentStore(client, 0),
			Team:        members,
		}
		agent.Start()

		ctx, cancel := signalContext()
		defer cancel()
		log.Println("[Memory] ✅ Stage running, press Ctrl+C to stop")
		<-ctx.Done()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(memoryCmd)
}
