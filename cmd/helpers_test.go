package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dayuer/starfish-go/internal/config"
)

func TestMakeProvider_FailsWithoutKey(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	_, err := makeProvider(config.Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no LLM API key configured")
}

func TestMakeProvider_ConfigKeyWins(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	cfg := config.Config{}
	cfg.Provider.APIKey = "sk-config"
	provider, err := makeProvider(cfg)
	require.NoError(t, err)
	assert.NotNil(t, provider)
}

func TestMakeProvider_EnvFallback(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "sk-env")

	provider, err := makeProvider(config.Config{})
	require.NoError(t, err)
	assert.NotNil(t, provider)
}
