package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileOverlay is an optional YAML convenience file the `anyproxy config`
// subcommands read and write, mirroring the environment-variable schema of
// Config. It is never consulted by the running server (which loads only
// from the environment, per the read-once lifecycle invariant) — it
// exists purely so an operator can `anyproxy config generate` a starter
// file, edit it, then export it into their process environment.
type FileOverlay struct {
	Host            string `yaml:"host,omitempty"`
	Port            int    `yaml:"port,omitempty"`
	RoutingMode     string `yaml:"routing_mode,omitempty"`
	AnthropicBase   string `yaml:"anthropic_base_url,omitempty"`
	AnthropicAPIKey string `yaml:"anthropic_api_key,omitempty"`
	OpenAIBase      string `yaml:"openai_base_url,omitempty"`
	OpenAIAPIKey    string `yaml:"openai_api_key,omitempty"`
	UpstreamBase    string `yaml:"upstream_base_url,omitempty"`
	UpstreamAPIKey  string `yaml:"upstream_api_key,omitempty"`
	ReasoningModel  string `yaml:"reasoning_model,omitempty"`
	CompletionModel string `yaml:"completion_model,omitempty"`
	ProxyAPIKey     string `yaml:"proxy_api_key,omitempty"`
}

// DefaultOverlayPath returns the conventional overlay file path under a
// config directory.
func DefaultOverlayPath(baseDir string) string {
	return filepath.Join(baseDir, "config.yaml")
}

// ExampleOverlay returns a FileOverlay populated with placeholder values
// covering every supported backend, for `anyproxy config generate`.
func ExampleOverlay() *FileOverlay {
	return &FileOverlay{
		Host:            DefaultHost,
		Port:            DefaultPort,
		RoutingMode:     string(ModeTransform),
		AnthropicBase:   "https://api.anthropic.com",
		AnthropicAPIKey: "your-anthropic-api-key",
		OpenAIBase:      "https://api.openai.com",
		OpenAIAPIKey:    "your-openai-api-key",
		UpstreamBase:    "https://openrouter.ai/api",
		UpstreamAPIKey:  "your-upstream-api-key",
		ProxyAPIKey:     "your-proxy-api-key-here",
	}
}

func LoadFileOverlay(path string) (*FileOverlay, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config overlay: %w", err)
	}
	var overlay FileOverlay
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("unmarshal config overlay: %w", err)
	}
	return &overlay, nil
}

func SaveFileOverlay(path string, overlay *FileOverlay) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(overlay)
	if err != nil {
		return fmt.Errorf("marshal config overlay: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config overlay: %w", err)
	}
	return nil
}

// ApplyEnv exports every non-empty field of the overlay into the process
// environment under the names Config.Load reads, without overwriting a
// variable already set. No command calls it; Load keeps reading only the
// environment.
func (o *FileOverlay) ApplyEnv() {
	setIfAbsent := func(key, val string) {
		if val == "" {
			return
		}
		if _, ok := os.LookupEnv(key); ok {
			return
		}
		_ = os.Setenv(key, val)
	}
	if o.Port != 0 {
		setIfAbsent("PORT", fmt.Sprintf("%d", o.Port))
	}
	setIfAbsent("HOST", o.Host)
	setIfAbsent("ROUTING_MODE", o.RoutingMode)
	setIfAbsent("ANTHROPIC_BASE_URL", o.AnthropicBase)
	setIfAbsent("ANTHROPIC_API_KEY", o.AnthropicAPIKey)
	setIfAbsent("OPENAI_BASE_URL", o.OpenAIBase)
	setIfAbsent("OPENAI_API_KEY", o.OpenAIAPIKey)
	setIfAbsent("UPSTREAM_BASE_URL", o.UpstreamBase)
	setIfAbsent("UPSTREAM_API_KEY", o.UpstreamAPIKey)
	setIfAbsent("REASONING_MODEL", o.ReasoningModel)
	setIfAbsent("COMPLETION_MODEL", o.CompletionModel)
	setIfAbsent("PROXY_API_KEY", o.ProxyAPIKey)
}
