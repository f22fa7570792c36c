// Package config loads the proxy's typed, read-only configuration from
// the environment once at startup, per the operating-mode and backend
// model described in SPEC_FULL.md §3/§6.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Mode is the operating mode enumeration: Transform, Passthrough, Auto,
// Gateway.
type Mode string

const (
	ModeTransform   Mode = "transform"
	ModePassthrough Mode = "passthrough"
	ModeAuto        Mode = "auto"
	ModeGateway     Mode = "gateway"
)

// ParseMode maps the ROUTING_MODE env var onto a Mode, case-insensitively.
// "anthropic" is accepted as an alias for Passthrough. Anything
// unrecognised defaults to Transform.
func ParseMode(s string) Mode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "transform":
		return ModeTransform
	case "passthrough", "anthropic":
		return ModePassthrough
	case "auto":
		return ModeAuto
	case "gateway":
		return ModeGateway
	default:
		return ModeTransform
	}
}

// Backend holds a base URL and API key pair for one of the three backend
// tags (A-Native, O-Native, Generic-Upstream).
type Backend struct {
	BaseURL string
	APIKey  string
}

const (
	DefaultPort = 3000
	DefaultHost = "0.0.0.0"
)

// Config is the immutable, process-wide configuration loaded once at
// startup. Nothing in the core ever mutates a Config value.
type Config struct {
	Host string
	Port int
	Mode Mode

	AnthropicNative Backend
	OpenAINative    Backend
	GenericUpstream Backend

	ReasoningModel  string
	CompletionModel string

	Debug      bool
	Verbose    bool
	LogRawJSON bool

	ProxyAPIKey string

	OTELEndpoint string
}

// HasAnthropicNative reports whether the A-Native backend has both a base
// URL and an API key configured.
func (c *Config) HasAnthropicNative() bool {
	return c.AnthropicNative.BaseURL != "" && c.AnthropicNative.APIKey != ""
}

// HasOpenAINative reports whether the O-Native backend has both a base
// URL and an API key configured.
func (c *Config) HasOpenAINative() bool {
	return c.OpenAINative.BaseURL != "" && c.OpenAINative.APIKey != ""
}

// HasGenericUpstream reports whether a Generic-Upstream base URL is
// configured. Unlike the native backends, a key is optional here: the
// HTTP edge only adds the Authorization header when one is set.
func (c *Config) HasGenericUpstream() bool {
	return c.GenericUpstream.BaseURL != ""
}

func boolEnv(name string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(name)))
	return v == "1" || v == "true"
}

func stripTrailingSlash(url string) string {
	return strings.TrimRight(url, "/")
}

// warnIfVersionedBaseURL reports whether base ends in "/v1", which the
// caller should log a warning for (the proxy always appends "/v1/..."
// itself).
func warnIfVersionedBaseURL(base string) bool {
	return strings.HasSuffix(stripTrailingSlash(base), "/v1")
}

// BaseURLWarnings returns a human-readable warning for every configured
// backend base URL that already ends in "/v1".
func (c *Config) BaseURLWarnings() []string {
	var warnings []string
	check := func(label, url string) {
		if url != "" && warnIfVersionedBaseURL(url) {
			warnings = append(warnings, fmt.Sprintf("%s base URL %q already ends in /v1; the proxy appends /v1/... itself", label, url))
		}
	}
	check("ANTHROPIC_BASE_URL", c.AnthropicNative.BaseURL)
	check("OPENAI_BASE_URL", c.OpenAINative.BaseURL)
	check("UPSTREAM_BASE_URL", c.GenericUpstream.BaseURL)
	return warnings
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Load reads the full Config from environment variables, per SPEC_FULL.md
// §6. It never touches a filesystem config file; that is a separate
// opt-in convenience layer, see LoadFileOverlay.
func Load() (*Config, error) {
	cfg := &Config{
		Host: firstNonEmpty(os.Getenv("HOST"), DefaultHost),
		Port: DefaultPort,
		Mode: ParseMode(os.Getenv("ROUTING_MODE")),

		AnthropicNative: Backend{
			BaseURL: stripTrailingSlash(os.Getenv("ANTHROPIC_BASE_URL")),
			APIKey:  os.Getenv("ANTHROPIC_API_KEY"),
		},
		OpenAINative: Backend{
			BaseURL: stripTrailingSlash(os.Getenv("OPENAI_BASE_URL")),
			APIKey:  os.Getenv("OPENAI_API_KEY"),
		},
		GenericUpstream: Backend{
			BaseURL: stripTrailingSlash(firstNonEmpty(os.Getenv("UPSTREAM_BASE_URL"), os.Getenv("ANTHROPIC_PROXY_BASE_URL"))),
			APIKey:  firstNonEmpty(os.Getenv("UPSTREAM_API_KEY"), os.Getenv("OPENROUTER_API_KEY")),
		},

		ReasoningModel:  os.Getenv("REASONING_MODEL"),
		CompletionModel: os.Getenv("COMPLETION_MODEL"),

		Debug:      boolEnv("DEBUG"),
		Verbose:    boolEnv("VERBOSE"),
		LogRawJSON: boolEnv("LOG_RAW_JSON"),

		ProxyAPIKey: os.Getenv("PROXY_API_KEY"),

		OTELEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if portStr := os.Getenv("PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT %q: %w", portStr, err)
		}
		cfg.Port = port
	}

	return cfg, nil
}

// Validate runs the same checks the router would need at request time,
// without depending on any particular request — used by `anyproxy config
// validate` and at server startup to fail fast on an unusable mode.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeTransform:
		if !c.HasGenericUpstream() {
			return fmt.Errorf("mode %q requires UPSTREAM_BASE_URL to be set", c.Mode)
		}
	case ModePassthrough:
		if !c.HasAnthropicNative() {
			return fmt.Errorf("mode %q requires ANTHROPIC_BASE_URL and ANTHROPIC_API_KEY to be set", c.Mode)
		}
	case ModeAuto, ModeGateway:
		if !c.HasAnthropicNative() && !c.HasOpenAINative() && !c.HasGenericUpstream() {
			return fmt.Errorf("mode %q requires at least one backend to be configured", c.Mode)
		}
	default:
		return fmt.Errorf("unknown routing mode %q", c.Mode)
	}
	return nil
}

// ServesOEndpoint reports whether /v1/chat/completions should be mounted
// for this mode.
func (c *Config) ServesOEndpoint() bool {
	return c.Mode == ModeAuto || c.Mode == ModeGateway
}

// Redacted returns a copy with every API key replaced by a fixed-length
// placeholder, safe to print or log.
func (c *Config) Redacted() *Config {
	redact := func(b Backend) Backend {
		if b.APIKey != "" {
			b.APIKey = "****"
		}
		return b
	}
	cp := *c
	cp.AnthropicNative = redact(c.AnthropicNative)
	cp.OpenAINative = redact(c.OpenAINative)
	cp.GenericUpstream = redact(c.GenericUpstream)
	if cp.ProxyAPIKey != "" {
		cp.ProxyAPIKey = "****"
	}
	return &cp
}
