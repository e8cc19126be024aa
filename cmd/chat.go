package cmd

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dayuer/starfish-go/internal/bus"
	"github.com/dayuer/starfish-go/internal/chat"
	"github.com/dayuer/starfish-go/internal/routing"
	"github.com/dayuer/starfish-go/internal/sessions"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Run the chat gateway stage (platform ingress/egress)",
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		eventBus, err := bus.NewRedisBus(cfg.Redis.URL, "chat")
		if err != nil {
			return err
		}
		defer eventBus.Close()

		client, err := makeRedis(cfg)
		if err != nil {
			return err
		}
		defer client.Close()

		var adapters []chat.Adapter
		if cfg.Chat.Telegram != nil && cfg.Chat.Telegram.Token != "" {
			adapters = append(adapters, chat.NewTelegramAdapter(cfg.Chat.Telegram.Token))
		}
		if len(adapters) == 0 {
			return fmt.Errorf("no chat platform configured (set chat.telegram.token or TELEGRAM_BOT_TOKEN)")
		}

		gateway := &chat.Gateway{
			Bus:                           eventBus,
			Assignments:                   routing.NewRedisAssignmentStore(client, 0),
			Slots:                         sessions.NewRedisSlots(client, 0),
			Adapters:                      adapters,
			SchedulerReportConversationID: cfg.Chat.SchedulerReportConversationID,
		}
		if vc := visionClient(cfg); vc != nil {
			gateway.Status = func(ctx context.Context) string {
				uptime, err := vc.Health(ctx)
				if err != nil {
					return fmt.Sprintf("⚠️ Vision API unreachable: %v", err)
				}
				assignments, err := vc.Assignments(ctx)
				if err != nil {
					return fmt.Sprintf("✅ Vision API up (%ds), routing table unavailable: %v", uptime, err)
				}
				lines := []string{fmt.Sprintf("✅ Vision API up (%ds), %d active assignment(s)", uptime, len(assignments))}
				for _, a := range assignments {
					lines = append(lines, fmt.Sprintf("  %s → %s", a.ConversationID, a.AgentID))
				}
				return strings.Join(lines, "\n")
			}
		}

		ctx, cancel := signalContext()
		defer cancel()

		if err := gateway.Start(ctx); err != nil {
			return err
		}
		log.Println("[Chat] ✅ Gateway running, press Ctrl+C to stop")
		<-ctx.Done()
		gateway.Stop()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
