package cmd

import (
	"github.com/spf13/cobra"

	"github.com/dayuer/starfish-go/internal/bus"
	"github.com/dayuer/starfish-go/internal/metrics"
	"github.com/dayuer/starfish-go/internal/routing"
	"github.com/dayuer/starfish-go/internal/sessions"
	"github.com/dayuer/starfish-go/internal/vision"
)

var visionCmd = &cobra.Command{
	Use:   "vision",
	Short: "Run the vision stage (HTTP API + live event feed)",
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		eventBus, err := bus.NewRedisBus(cfg.Redis.URL, "vision")
		if err != nil {
			return err
		}
		defer eventBus.Close()

		client, err := makeRedis(cfg)
		if err != nil {
			return err
		}
		defer client.Close()

		store := routing.NewRedisAssignmentStore(client, 0)
		server := &vision.Server{
			Port:        cfg.Vision.Port,
			APIKey:      cfg.Vision.APIKey,
			Bus:         eventBus,
			Assignments: store,
			Lister:      store,
			Slots:       sessions.NewRedisSlots(client, 0),
			Metrics:     metrics.NewRedisStore(client, 0, nil),
		}

		ctx, cancel := signalContext()
		defer cancel()
		return server.Start(ctx)
	},
}

func init() {
	rootCmd.AddCommand(visionCmd)
}
