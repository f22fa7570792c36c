package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearBackendEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"HOST", "PORT", "ROUTING_MODE",
		"ANTHROPIC_BASE_URL", "ANTHROPIC_API_KEY",
		"OPENAI_BASE_URL", "OPENAI_API_KEY",
		"UPSTREAM_BASE_URL", "UPSTREAM_API_KEY",
		"ANTHROPIC_PROXY_BASE_URL", "OPENROUTER_API_KEY",
		"REASONING_MODEL", "COMPLETION_MODEL",
		"DEBUG", "VERBOSE", "LOG_RAW_JSON", "PROXY_API_KEY",
	} {
		os.Unsetenv(key)
	}
}

func TestParseModeDefaultsToTransform(t *testing.T) {
	assert.Equal(t, ModeTransform, ParseMode(""))
	assert.Equal(t, ModeTransform, ParseMode("nonsense"))
	assert.Equal(t, ModePassthrough, ParseMode("anthropic"))
	assert.Equal(t, ModePassthrough, ParseMode("PASSTHROUGH"))
	assert.Equal(t, ModeAuto, ParseMode("Auto"))
	assert.Equal(t, ModeGateway, ParseMode("GATEWAY"))
}

func TestLoadStripsTrailingSlashAndAppliesPortDefault(t *testing.T) {
	clearBackendEnv(t)
	os.Setenv("ANTHROPIC_BASE_URL", "https://api.anthropic.com/")
	defer os.Unsetenv("ANTHROPIC_BASE_URL")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://api.anthropic.com", cfg.AnthropicNative.BaseURL)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultHost, cfg.Host)
}

func TestUpstreamAliases(t *testing.T) {
	clearBackendEnv(t)
	os.Setenv("ANTHROPIC_PROXY_BASE_URL", "https://openrouter.ai/api")
	os.Setenv("OPENROUTER_API_KEY", "sk-test")
	defer clearBackendEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://openrouter.ai/api", cfg.GenericUpstream.BaseURL)
	assert.Equal(t, "sk-test", cfg.GenericUpstream.APIKey)
	assert.True(t, cfg.HasGenericUpstream())
}

func TestValidate(t *testing.T) {
	cfg := &Config{Mode: ModeTransform}
	assert.Error(t, cfg.Validate())

	cfg.GenericUpstream = Backend{BaseURL: "https://openrouter.ai/api"}
	assert.NoError(t, cfg.Validate())

	cfg = &Config{Mode: ModePassthrough}
	assert.Error(t, cfg.Validate())
	cfg.AnthropicNative = Backend{BaseURL: "https://api.anthropic.com", APIKey: "key"}
	assert.NoError(t, cfg.Validate())
}

func TestBaseURLWarnings(t *testing.T) {
	cfg := &Config{AnthropicNative: Backend{BaseURL: "https://api.anthropic.com/v1"}}
	warnings := cfg.BaseURLWarnings()
	require.Len(t, warnings, 1)
}

func TestRedactedHidesKeys(t *testing.T) {
	cfg := &Config{AnthropicNative: Backend{BaseURL: "https://api.anthropic.com", APIKey: "secret"}}
	red := cfg.Redacted()
	assert.Equal(t, "****", red.AnthropicNative.APIKey)
	assert.Equal(t, "secret", cfg.AnthropicNative.APIKey)
}
