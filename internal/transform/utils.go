// Package transform implements the pure utility functions (C3), the
// request rewriters (C5), and the non-streaming response rewriters (C6)
// that sit between the router and the HTTP edge.
package transform

import (
	"encoding/json"
	"regexp"
)

var effortSuffixPattern = regexp.MustCompile(`^(.*)-(minimal|low|medium|high)$`)

// ParseModelWithEffort splits a trailing "-{minimal|low|medium|high}"
// reasoning-effort suffix off a model name. Only those four exact suffixes
// match; anything else (including "-turbo") is returned unchanged with a
// nil effort.
func ParseModelWithEffort(model string) (stem string, effort *string) {
	m := effortSuffixPattern.FindStringSubmatch(model)
	if m == nil {
		return model, nil
	}
	e := m[2]
	return m[1], &e
}

// CleanSchema recursively strips any `"format": "uri"` entry from a
// JSON-Schema document, at any depth, while leaving every other keyword
// (including other `format` values) untouched.
func CleanSchema(raw json.RawMessage) (json.RawMessage, error) {
	if len(raw) == 0 {
		return raw, nil
	}

	var tree interface{}
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, err
	}

	cleaned := cleanSchemaValue(tree)

	out, err := json.Marshal(cleaned)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func cleanSchemaValue(v interface{}) interface{} {
	switch node := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(node))
		for k, val := range node {
			if k == "format" {
				if s, ok := val.(string); ok && s == "uri" {
					continue
				}
			}
			out[k] = cleanSchemaValue(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(node))
		for i, val := range node {
			out[i] = cleanSchemaValue(val)
		}
		return out
	default:
		return node
	}
}

// StopReasonAToO maps an A-format stop_reason to an O-format
// finish_reason. Absent or unrecognised reasons map to "stop".
func StopReasonAToO(reason *string) string {
	if reason == nil {
		return "stop"
	}
	switch *reason {
	case "end_turn":
		return "stop"
	case "tool_use":
		return "tool_calls"
	case "max_tokens":
		return "length"
	default:
		return "stop"
	}
}

// StopReasonOToA maps an O-format finish_reason to an A-format
// stop_reason. Absent or unrecognised reasons map to "end_turn".
func StopReasonOToA(reason *string) string {
	if reason == nil {
		return "end_turn"
	}
	switch *reason {
	case "stop":
		return "end_turn"
	case "tool_calls", "function_call":
		return "tool_use"
	case "length":
		return "max_tokens"
	default:
		return "end_turn"
	}
}

var dataURLPattern = regexp.MustCompile(`^data:([^;,]+)(?:;[^,]*)?,(.*)$`)

// ParseDataURL splits a `data:MEDIA[;params],DATA` URI into its media type
// and payload. Non-`data:` URLs report ok == false.
func ParseDataURL(url string) (mediaType, data string, ok bool) {
	m := dataURLPattern.FindStringSubmatch(url)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}
