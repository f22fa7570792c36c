// Package model holds the typed wire representations of the A-format
// (Anthropic-style Messages API) and O-format (OpenAI-style chat
// completions) requests, responses, and stream events the proxy
// translates between.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Request is an A-format request body.
type Request struct {
	Model         string                     `json:"model"`
	Messages      []Message                  `json:"messages"`
	MaxTokens     int                        `json:"max_tokens"`
	System        *SystemPrompt              `json:"system,omitempty"`
	Temperature   *float64                   `json:"temperature,omitempty"`
	TopP          *float64                   `json:"top_p,omitempty"`
	TopK          *int                       `json:"top_k,omitempty"`
	StopSequences []string                   `json:"stop_sequences,omitempty"`
	Stream        *bool                      `json:"stream,omitempty"`
	Tools         []Tool                     `json:"tools,omitempty"`
	Metadata      json.RawMessage            `json:"metadata,omitempty"`
	Extra         map[string]json.RawMessage `json:"-"`
}

var requestKnownFields = map[string]bool{
	"model": true, "messages": true, "max_tokens": true, "system": true,
	"temperature": true, "top_p": true, "top_k": true, "stop_sequences": true,
	"stream": true, "tools": true, "metadata": true,
}

// UnmarshalJSON decodes known fields normally and collects every other
// top-level key into Extra, so round-tripping a request never silently
// drops a field the client sent (e.g. the `thinking` field used to select
// reasoning effort).
func (r *Request) UnmarshalJSON(data []byte) error {
	type shadow Request
	var s shadow
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*r = Request(s)

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Extra = make(map[string]json.RawMessage)
	for k, v := range raw {
		if !requestKnownFields[k] {
			r.Extra[k] = v
		}
	}
	return nil
}

// MarshalJSON re-merges Extra alongside the known fields.
func (r Request) MarshalJSON() ([]byte, error) {
	type shadow Request
	known, err := json.Marshal(shadow(r))
	if err != nil {
		return nil, err
	}
	if len(r.Extra) == 0 {
		return known, nil
	}

	var merged map[string]json.RawMessage
	if err := json.Unmarshal(known, &merged); err != nil {
		return nil, err
	}
	for k, v := range r.Extra {
		merged[k] = v
	}
	return json.Marshal(merged)
}

// ThinkingEnabled reports whether the request's `extra.thinking.type` field
// is the string "enabled".
func (r Request) ThinkingEnabled() bool {
	raw, ok := r.Extra["thinking"]
	if !ok {
		return false
	}
	var thinking struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &thinking); err != nil {
		return false
	}
	return thinking.Type == "enabled"
}

// SystemPrompt is a string-or-ordered-blocks union.
type SystemPrompt struct {
	Text   string
	Blocks []SystemBlock
}

type SystemBlock struct {
	Type         string          `json:"type"`
	Text         string          `json:"text"`
	CacheControl json.RawMessage `json:"cache_control,omitempty"`
}

func (s *SystemPrompt) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if trimmed[0] == '"' {
		return json.Unmarshal(trimmed, &s.Text)
	}
	return json.Unmarshal(trimmed, &s.Blocks)
}

func (s SystemPrompt) MarshalJSON() ([]byte, error) {
	if s.Blocks != nil {
		return json.Marshal(s.Blocks)
	}
	return json.Marshal(s.Text)
}

// Message is one A-format conversation turn.
type Message struct {
	Role    string         `json:"role"`
	Content MessageContent `json:"content"`
}

// MessageContent is a string-or-ordered-content-blocks union.
type MessageContent struct {
	Text   string
	Blocks []ContentBlock
	// IsString distinguishes an explicit empty string from an absent/empty
	// block list when re-marshalling.
	IsString bool
}

func (c *MessageContent) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if trimmed[0] == '"' {
		c.IsString = true
		return json.Unmarshal(trimmed, &c.Text)
	}
	return json.Unmarshal(trimmed, &c.Blocks)
}

func (c MessageContent) MarshalJSON() ([]byte, error) {
	if c.IsString || c.Blocks == nil {
		return json.Marshal(c.Text)
	}
	return json.Marshal(c.Blocks)
}

// ContentBlock is a tagged union over the five A-format content block
// variants: Text, Image, ToolUse, ToolResult, Thinking.
type ContentBlock struct {
	Type string `json:"type"`

	// Text
	Text         string          `json:"text,omitempty"`
	CacheControl json.RawMessage `json:"cache_control,omitempty"`

	// Image
	Source *ImageSource `json:"source,omitempty"`

	// ToolUse
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// ToolResult
	ToolUseID string             `json:"tool_use_id,omitempty"`
	Content   *ToolResultContent `json:"content,omitempty"`
	IsError   *bool              `json:"is_error,omitempty"`

	// Thinking
	Thinking string `json:"thinking,omitempty"`
}

const (
	BlockText       = "text"
	BlockImage      = "image"
	BlockToolUse    = "tool_use"
	BlockToolResult = "tool_result"
	BlockThinking   = "thinking"
)

type ImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

// ToolResultContent is a string-or-ordered-content-blocks union, same
// shape as MessageContent but kept distinct since a tool result's nested
// blocks are of the same ContentBlock type (only Text/Image make sense
// there, but the wire format does not forbid others).
type ToolResultContent struct {
	Text     string
	Blocks   []ContentBlock
	IsString bool
}

func (c *ToolResultContent) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if trimmed[0] == '"' {
		c.IsString = true
		return json.Unmarshal(trimmed, &c.Text)
	}
	return json.Unmarshal(trimmed, &c.Blocks)
}

func (c ToolResultContent) MarshalJSON() ([]byte, error) {
	if c.IsString || c.Blocks == nil {
		return json.Marshal(c.Text)
	}
	return json.Marshal(c.Blocks)
}

// FlattenText concatenates every Text sub-block with newlines and renders
// any Image sub-block as the literal placeholder "[image]", per the
// lossy-but-specified tool-result flattening rule.
func (c *ToolResultContent) FlattenText() string {
	if c == nil {
		return ""
	}
	if c.IsString || c.Blocks == nil {
		return c.Text
	}
	var buf bytes.Buffer
	for i, b := range c.Blocks {
		if i > 0 {
			buf.WriteByte('\n')
		}
		switch b.Type {
		case BlockImage:
			buf.WriteString("[image]")
		default:
			buf.WriteString(b.Text)
		}
	}
	return buf.String()
}

// Tool is an A-format tool definition.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema"`
	Type        string          `json:"type,omitempty"`
}

// Response is a non-streaming A-format response.
type Response struct {
	ID           string         `json:"id"`
	Type         string         `json:"type"`
	Role         string         `json:"role"`
	Model        string         `json:"model"`
	Content      []ContentBlock `json:"content"`
	StopReason   *string        `json:"stop_reason,omitempty"`
	StopSequence *string        `json:"stop_sequence,omitempty"`
	Usage        Usage          `json:"usage"`
}

type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// StreamEvent is a flexible decode target for any A-format SSE event; the
// `type` field (and for deltas, `delta.type`) discriminate which fields
// are meaningful, matching the self-describing real wire format.
type StreamEvent struct {
	Type         string          `json:"type"`
	Message      *EventMessage   `json:"message,omitempty"`
	Index        *int            `json:"index,omitempty"`
	ContentBlock *ContentBlock   `json:"content_block,omitempty"`
	Delta        *EventDelta     `json:"delta,omitempty"`
	Usage        *EventUsage     `json:"usage,omitempty"`
}

type EventMessage struct {
	ID    string `json:"id"`
	Model string `json:"model"`
}

type EventDelta struct {
	Type         string  `json:"type,omitempty"`
	Text         string  `json:"text,omitempty"`
	PartialJSON  string  `json:"partial_json,omitempty"`
	Thinking     string  `json:"thinking,omitempty"`
	StopReason   *string `json:"stop_reason,omitempty"`
	StopSequence *string `json:"stop_sequence,omitempty"`
}

type EventUsage struct {
	OutputTokens *int `json:"output_tokens,omitempty"`
}

// FormatSSE frames a single A-format event per §6: "event: <type>\ndata:
// <json>\n\n".
func FormatSSE(eventType string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal sse payload: %w", err)
	}
	return []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", eventType, data)), nil
}
