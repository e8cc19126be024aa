package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/dayuer/starfish-go/internal/config"
	"github.com/dayuer/starfish-go/internal/providers"
	"github.com/dayuer/starfish-go/internal/routing"
	"github.com/dayuer/starfish-go/internal/vision"
)

// loadConfig loads dotenv files, then the JSON config with env overlays.
func loadConfig() (config.Config, error) {
	config.LoadDotenv()
	return config.Load("")
}

// makeProvider creates the LLM provider from config, falling back to common
// env vars for the key. A missing key is a startup error, not a runtime 401.
func makeProvider(cfg config.Config) (*providers.Provider, error) {
	apiKey := cfg.Provider.APIKey
	if apiKey == "" {
		for _, envKey := range []string{"OPENROUTER_API_KEY", "OPENAI_API_KEY"} {
			if v := os.Getenv(envKey); v != "" {
				apiKey = v
				break
			}
		}
	}
	if apiKey == "" {
		return nil, fmt.Errorf("no LLM API key configured (set provider.apiKey, OPENROUTER_API_KEY, or OPENAI_API_KEY)")
	}
	return providers.NewProvider(apiKey, cfg.Provider.APIBase, cfg.Provider.Model), nil
}

// makeRedis opens the shared Redis client used by the stores.
func makeRedis(cfg config.Config) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

// loadRoster loads the team and converts it to routing members.
func loadRoster(cfg config.Config) (config.Team, []routing.TeamMember, error) {
	team, err := config.LoadTeam(cfg.TeamFile)
	if err != nil {
		return config.Team{}, nil, err
	}
	members := make([]routing.TeamMember, 0, len(team.Members))
	for _, m := range team.Members {
		members = append(members, routing.TeamMember{
			ID:      m.ID,
			Name:    m.Name,
			Aliases: m.Aliases,
		})
	}
	return team, members, nil
}

// visionClient returns a client for the vision API, or nil when unset.
func visionClient(cfg config.Config) *vision.Client {
	if cfg.Vision.BaseURL == "" {
		return nil
	}
	return vision.NewClient(cfg.Vision.BaseURL, cfg.Vision.APIKey)
}

// signalContext returns a context cancelled by SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
