// Package config handles configuration loading, saving, and schema
// definition, plus the YAML team roster.
package config

// Config is the top-level starfish configuration.
// Uses json tags in camelCase to match the JSON config file format.
type Config struct {
	Redis     RedisConfig     `json:"redis"`
	Provider  ProviderConfig  `json:"provider"`
	Vision    VisionConfig    `json:"vision"`
	Chat      ChatConfig      `json:"chat"`
	Memory    MemoryConfig    `json:"memory"`
	Scheduler SchedulerConfig `json:"scheduler"`
	TeamFile  string          `json:"teamFile,omitempty"`
}

// RedisConfig holds the bus/store connection settings.
type RedisConfig struct {
	URL string `json:"url,omitempty"` // redis://host:port/db
}

// ProviderConfig holds LLM endpoint settings. APIKey falls back to
// OPENROUTER_API_KEY from the environment.
type ProviderConfig struct {
	APIKey  string `json:"apiKey,omitempty"`
	APIBase string `json:"apiBase,omitempty"`
	Model   string `json:"model,omitempty"`
}

// VisionConfig holds the dashboard/collaborator API settings.
type VisionConfig struct {
	Port   int    `json:"port,omitempty"`
	APIKey string `json:"apiKey,omitempty"` // empty disables auth
	// BaseURL is how other stages reach the vision API.
	BaseURL string `json:"baseUrl,omitempty"`
}

// ChatConfig holds the ingress/egress stage settings.
type ChatConfig struct {
	Telegram *TelegramConfig `json:"telegram,omitempty"`
	// SchedulerReportConversationID receives autonomous run reports.
	SchedulerReportConversationID string `json:"schedulerReportConversationId,omitempty"`
}

// TelegramConfig holds Telegram bot settings.
type TelegramConfig struct {
	Token     string   `json:"token"`
	AllowFrom []string `json:"allowFrom,omitempty"`
}

// MemoryConfig holds the history store settings.
type MemoryConfig struct {
	DBPath       string `json:"dbPath,omitempty"`
	HistoryLimit int    `json:"historyLimit,omitempty"`
}

// SchedulerConfig holds the autonomous tick schedules.
type SchedulerConfig struct {
	Jobs []ScheduleJob `json:"jobs,omitempty"`
}

// ScheduleJob is one cron entry feeding the pipeline.
type ScheduleJob struct {
	Name     string `json:"name"`
	Cron     string `json:"cron"` // standard 5-field cron expression
	AgentID  string `json:"agentId,omitempty"`
	Prompt   string `json:"prompt"`
	Disabled bool   `json:"disabled,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Redis: RedisConfig{
			URL: "redis://localhost:6379/0",
		},
		Provider: ProviderConfig{
			Model: "anthropic/claude-3.5-sonnet",
		},
		Vision: VisionConfig{
			Port:    3000,
			BaseURL: "http://localhost:3000",
		},
		Memory: MemoryConfig{
			DBPath:       "./starfish.db",
			HistoryLimit: 20,
		},
	}
}
