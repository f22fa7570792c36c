package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ChatRequest is an O-format chat-completions request body.
type ChatRequest struct {
	Model           string        `json:"model"`
	Messages        []ChatMessage `json:"messages"`
	MaxTokens       *int          `json:"max_tokens,omitempty"`
	Temperature     *float64      `json:"temperature,omitempty"`
	TopP            *float64      `json:"top_p,omitempty"`
	Stop            []string      `json:"stop,omitempty"`
	Stream          *bool         `json:"stream,omitempty"`
	Tools           []ChatTool    `json:"tools,omitempty"`
	ToolChoice      interface{}   `json:"tool_choice,omitempty"`
	ReasoningEffort string        `json:"reasoning_effort,omitempty"`
}

// ChatMessage is one O-format conversation turn.
type ChatMessage struct {
	Role       string          `json:"role"`
	Content    *ChatContent    `json:"content,omitempty"`
	ToolCalls  []ToolCall      `json:"tool_calls,omitempty"`
	ToolCallID string          `json:"tool_call_id,omitempty"`
	Name       string          `json:"name,omitempty"`
}

// ChatContent is a string-or-ordered-parts union.
type ChatContent struct {
	Text     string
	Parts    []ContentPart
	IsString bool
}

func NewChatText(text string) *ChatContent {
	return &ChatContent{Text: text, IsString: true}
}

func NewChatParts(parts []ContentPart) *ChatContent {
	return &ChatContent{Parts: parts}
}

func (c *ChatContent) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if trimmed[0] == '"' {
		c.IsString = true
		return json.Unmarshal(trimmed, &c.Text)
	}
	return json.Unmarshal(trimmed, &c.Parts)
}

func (c ChatContent) MarshalJSON() ([]byte, error) {
	if c.IsString || c.Parts == nil {
		return json.Marshal(c.Text)
	}
	return json.Marshal(c.Parts)
}

// ContentPart is a tagged union over the two O-format part variants: Text
// and ImageUrl.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

type ImageURL struct {
	URL string `json:"url"`
}

const (
	PartText     = "text"
	PartImageURL = "image_url"
)

// ToolCall is an O-format tool invocation, shared by non-streaming
// messages and streaming deltas (Index is only ever populated on a
// streaming delta).
type ToolCall struct {
	Index    *int             `json:"index,omitempty"`
	ID       string           `json:"id,omitempty"`
	Type     string           `json:"type,omitempty"`
	Function ToolCallFunction `json:"function"`
}

type ToolCallFunction struct {
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments"`
}

// ChatTool is an O-format function tool definition.
type ChatTool struct {
	Type     string           `json:"type"`
	Function ChatToolFunction `json:"function"`
}

type ChatToolFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// ChatResponse is a non-streaming O-format response.
type ChatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []ChatChoice `json:"choices"`
	Usage   *ChatUsage   `json:"usage,omitempty"`
}

type ChatChoice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason *string     `json:"finish_reason"`
}

type ChatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// StreamChunk is one O-format `chat.completion.chunk` SSE payload.
type StreamChunk struct {
	ID      string         `json:"id"`
	Object  string         `json:"object"`
	Created int64          `json:"created"`
	Model   string         `json:"model"`
	Choices []StreamChoice `json:"choices"`
	Usage   *ChatUsage     `json:"usage,omitempty"`
}

type StreamChoice struct {
	Index        int         `json:"index"`
	Delta        StreamDelta `json:"delta"`
	FinishReason *string     `json:"finish_reason"`
}

type StreamDelta struct {
	Role      string     `json:"role,omitempty"`
	Content   *string    `json:"content,omitempty"`
	Reasoning *string    `json:"reasoning,omitempty"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// FormatSSEData frames a single O-format event as "data: <json>\n\n" (no
// `event:` line, matching chat.completion.chunk framing).
func FormatSSEData(payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal sse payload: %w", err)
	}
	return []byte(fmt.Sprintf("data: %s\n\n", data)), nil
}

// DoneFrame is the O-format stream terminator.
var DoneFrame = []byte("data: [DONE]\n\n")
