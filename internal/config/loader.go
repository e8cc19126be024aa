package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// GetConfigPath returns the default config file path (~/.starfish/config.json).
func GetConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".starfish", "config.json")
}

// Load reads configuration from a JSON file.
// If path is empty, uses the default config path.
// If the file doesn't exist, returns DefaultConfig().
func Load(path string) (Config, error) {
	if path == "" {
		path = GetConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return Config{}, err
	}

	cfg := DefaultConfig() // start with defaults so zero-value fields get filled
	if err := json.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), err
	}
	applyEnv(&cfg)
	return cfg, nil
}

// Save writes configuration to a JSON file.
// If path is empty, uses the default config path.
func Save(cfg Config, path string) error {
	if path == "" {
		path = GetConfigPath()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadDotenv loads .env files into the process environment, silently
// ignoring missing files. Every stage process calls this at startup, the
// same way the original stages loaded dotenv before reading their settings.
func LoadDotenv() {
	_ = godotenv.Load()
	if root := os.Getenv("STARFISH_ENV_FILE"); root != "" {
		_ = godotenv.Load(root)
	}
}

// applyEnv overlays environment variables on file values. Env wins so
// deployments can keep secrets out of the config file.
func applyEnv(cfg *Config) {
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("OPENROUTER_API_KEY"); v != "" && cfg.Provider.APIKey == "" {
		cfg.Provider.APIKey = v
	}
	if v := os.Getenv("AI_MODEL"); v != "" {
		cfg.Provider.Model = v
	}
	if v := os.Getenv("VISION_CHAT_URL"); v != "" {
		cfg.Vision.BaseURL = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		if cfg.Chat.Telegram == nil {
			cfg.Chat.Telegram = &TelegramConfig{}
		}
		cfg.Chat.Telegram.Token = v
	}
}
