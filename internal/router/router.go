// Package router implements the pure routing decision engine (C4): given
// a request format, a model name, and the loaded configuration, decide
// which backend handles the request and whether/how to transform it.
package router

import (
	"strings"

	"github.com/shimmerhq/anyproxy/internal/apperror"
	"github.com/shimmerhq/anyproxy/internal/config"
)

// RequestFormat is the wire format of the inbound request.
type RequestFormat string

const (
	FormatA RequestFormat = "a"
	FormatO RequestFormat = "o"
)

// Backend is one of the three backend tags a Decision can route to.
type Backend string

const (
	BackendANative        Backend = "a_native"
	BackendONative         Backend = "o_native"
	BackendGenericUpstream Backend = "generic_upstream"
)

// Direction is the transform direction a Decision requires, if any.
type Direction string

const (
	DirectionNone Direction = ""
	DirectionAToO Direction = "a_to_o"
	DirectionOToA Direction = "o_to_a"
)

// Decision is an immutable routing outcome. NeedsTransform is always
// equivalent to Direction != DirectionNone.
type Decision struct {
	Backend        Backend
	NeedsTransform bool
	Direction      Direction
}

// inferFamily determines the target model family from the model string,
// case-insensitively, first match wins. Unrecognised models default to
// the O-family for compatibility with the large population of
// OpenAI-wire-compatible hosts.
func inferFamily(model string) RequestFormat {
	lower := strings.ToLower(model)

	switch {
	case strings.HasPrefix(lower, "claude"),
		strings.Contains(lower, "anthropic/"),
		strings.Contains(lower, "anthropic-"):
		return FormatA
	case strings.HasPrefix(lower, "gpt"),
		strings.HasPrefix(lower, "o1"),
		strings.HasPrefix(lower, "o3"),
		strings.HasPrefix(lower, "text-"),
		strings.HasPrefix(lower, "davinci"),
		strings.HasPrefix(lower, "curie"),
		strings.HasPrefix(lower, "babbage"),
		strings.HasPrefix(lower, "ada"),
		strings.Contains(lower, "openai/"):
		return FormatO
	default:
		return FormatO
	}
}

// Decide is the pure, total routing function described in SPEC_FULL.md
// §4.1. It never performs I/O; config is assumed already loaded.
func Decide(format RequestFormat, model string, cfg *config.Config) (*Decision, error) {
	switch cfg.Mode {
	case config.ModeTransform:
		return decideTransform(format, cfg)
	case config.ModePassthrough:
		return decidePassthrough(format, cfg)
	case config.ModeAuto, config.ModeGateway:
		return decideAutoOrGateway(format, model, cfg)
	default:
		return nil, apperror.Routing("unknown routing mode %q", cfg.Mode)
	}
}

func decideTransform(format RequestFormat, cfg *config.Config) (*Decision, error) {
	if format == FormatO {
		return nil, apperror.UnsupportedOperation("endpoint not supported in this mode")
	}
	if !cfg.HasGenericUpstream() {
		return nil, apperror.Config("generic upstream backend not configured (set UPSTREAM_BASE_URL)")
	}
	return &Decision{Backend: BackendGenericUpstream, NeedsTransform: true, Direction: DirectionAToO}, nil
}

func decidePassthrough(format RequestFormat, cfg *config.Config) (*Decision, error) {
	if format == FormatO {
		return nil, apperror.UnsupportedOperation("endpoint not supported in this mode")
	}
	if !cfg.HasAnthropicNative() {
		return nil, apperror.Config("anthropic native backend not configured (set ANTHROPIC_BASE_URL and ANTHROPIC_API_KEY)")
	}
	return &Decision{Backend: BackendANative, NeedsTransform: false, Direction: DirectionNone}, nil
}

func decideAutoOrGateway(format RequestFormat, model string, cfg *config.Config) (*Decision, error) {
	family := inferFamily(model)

	switch {
	case format == FormatA && family == FormatA:
		if !cfg.HasAnthropicNative() {
			return nil, apperror.Config("anthropic native backend not configured (set ANTHROPIC_BASE_URL and ANTHROPIC_API_KEY)")
		}
		return &Decision{Backend: BackendANative, NeedsTransform: false, Direction: DirectionNone}, nil

	case format == FormatO && family == FormatO:
		if !cfg.HasOpenAINative() {
			return nil, apperror.Config("openai native backend not configured (set OPENAI_BASE_URL and OPENAI_API_KEY)")
		}
		return &Decision{Backend: BackendONative, NeedsTransform: false, Direction: DirectionNone}, nil

	case format == FormatA && family == FormatO:
		if cfg.HasOpenAINative() {
			return &Decision{Backend: BackendONative, NeedsTransform: true, Direction: DirectionAToO}, nil
		}
		if cfg.HasGenericUpstream() {
			return &Decision{Backend: BackendGenericUpstream, NeedsTransform: true, Direction: DirectionAToO}, nil
		}
		return nil, apperror.Config("no O-family backend configured (set OPENAI_BASE_URL/OPENAI_API_KEY or UPSTREAM_BASE_URL)")

	case format == FormatO && family == FormatA:
		if !cfg.HasAnthropicNative() {
			return nil, apperror.Config("anthropic native backend not configured (set ANTHROPIC_BASE_URL and ANTHROPIC_API_KEY)")
		}
		return &Decision{Backend: BackendANative, NeedsTransform: true, Direction: DirectionOToA}, nil

	default:
		return nil, apperror.Routing("unreachable routing combination format=%s family=%s", format, family)
	}
}
