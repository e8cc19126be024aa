package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show system status via the vision API",
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		vc := visionClient(cfg)
		if vc == nil {
			return fmt.Errorf("vision API base URL not configured (set vision.baseUrl or VISION_CHAT_URL)")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		uptime, err := vc.Health(ctx)
		if err != nil {
			return fmt.Errorf("vision API unreachable: %w", err)
		}
		fmt.Printf("✅ Vision API up, uptime %ds\n", uptime)

		assignments, err := vc.Assignments(ctx)
		if err != nil {
			return fmt.Errorf("fetch routing table: %w", err)
		}
		if len(assignments) == 0 {
			fmt.Println("No active conversation assignments.")
			return nil
		}
		fmt.Printf("%d active assignment(s):\n", len(assignments))
		for _, a := range assignments {
			fmt.Printf("  %s → %s\n", a.ConversationID, a.AgentID)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
