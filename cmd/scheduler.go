package cmd

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/dayuer/starfish-go/internal/bus"
	"github.com/dayuer/starfish-go/internal/scheduler"
)

var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run the scheduler stage (cron-driven autonomous turns)",
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		eventBus, err := bus.NewRedisBus(cfg.Redis.URL, "scheduler")
		if err != nil {
			return err
		}
		defer eventBus.Close()

		stage := &scheduler.Stage{
			Bus:  eventBus,
			Jobs: cfg.Scheduler.Jobs,
		}
		if err := stage.Start(); err != nil {
			return err
		}

		ctx, cancel := signalContext()
		defer cancel()
		log.Println("[Scheduler] Running, press Ctrl+C to stop")
		<-ctx.Done()
		stage.Stop()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(schedulerCmd)
}
