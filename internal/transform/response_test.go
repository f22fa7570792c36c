package transform

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shimmerhq/anyproxy/internal/model"
)

func strPtr(s string) *string { return &s }

func TestResponseAToOFlattensTextAndMapsStopReason(t *testing.T) {
	resp := &model.Response{
		ID:    "msg_1",
		Model: "claude-3-5-sonnet",
		Content: []model.ContentBlock{
			{Type: model.BlockText, Text: "hello "},
			{Type: model.BlockText, Text: "world"},
		},
		StopReason: strPtr("end_turn"),
		Usage:      model.Usage{InputTokens: 10, OutputTokens: 5},
	}

	out, err := ResponseAToO(resp)
	require.NoError(t, err)
	assert.Equal(t, "chat.completion", out.Object)
	assert.Equal(t, "claude-3-5-sonnet", out.Model)
	require.Len(t, out.Choices, 1)
	assert.Equal(t, "hello world", out.Choices[0].Message.Content.Text)
	require.NotNil(t, out.Choices[0].FinishReason)
	assert.Equal(t, "stop", *out.Choices[0].FinishReason)
	require.NotNil(t, out.Usage)
	assert.Equal(t, 10, out.Usage.PromptTokens)
	assert.Equal(t, 5, out.Usage.CompletionTokens)
	assert.Equal(t, 15, out.Usage.TotalTokens)
}

func TestResponseAToOEmitsToolCalls(t *testing.T) {
	resp := &model.Response{
		ID:    "msg_2",
		Model: "claude-3-opus",
		Content: []model.ContentBlock{
			{Type: model.BlockToolUse, ID: "toolu_1", Name: "get_weather", Input: json.RawMessage(`{"city":"nyc"}`)},
		},
		StopReason: strPtr("tool_use"),
	}

	out, err := ResponseAToO(resp)
	require.NoError(t, err)
	require.Len(t, out.Choices[0].Message.ToolCalls, 1)
	call := out.Choices[0].Message.ToolCalls[0]
	assert.Equal(t, "toolu_1", call.ID)
	assert.Equal(t, "get_weather", call.Function.Name)
	assert.JSONEq(t, `{"city":"nyc"}`, call.Function.Arguments)
	assert.Equal(t, "tool_calls", *out.Choices[0].FinishReason)
}

func TestResponseAToODropsThinkingBlocks(t *testing.T) {
	resp := &model.Response{
		Content: []model.ContentBlock{
			{Type: model.BlockThinking, Thinking: "internal reasoning"},
			{Type: model.BlockText, Text: "final answer"},
		},
	}
	out, err := ResponseAToO(resp)
	require.NoError(t, err)
	assert.Equal(t, "final answer", out.Choices[0].Message.Content.Text)
}

func TestResponseOToAEmitsTextAndToolUse(t *testing.T) {
	resp := &model.ChatResponse{
		ID:    "chatcmpl_1",
		Model: "gpt-4o",
		Choices: []model.ChatChoice{{
			Index: 0,
			Message: model.ChatMessage{
				Role:    "assistant",
				Content: model.NewChatText("hi there"),
				ToolCalls: []model.ToolCall{{
					ID:   "call_1",
					Type: "function",
					Function: model.ToolCallFunction{
						Name:      "lookup",
						Arguments: `{"q":"go"}`,
					},
				}},
			},
			FinishReason: strPtr("tool_calls"),
		}},
		Usage: &model.ChatUsage{PromptTokens: 3, CompletionTokens: 7},
	}

	out, err := ResponseOToA(resp)
	require.NoError(t, err)
	assert.Equal(t, "message", out.Type)
	assert.Equal(t, "assistant", out.Role)
	require.Len(t, out.Content, 2)
	assert.Equal(t, model.BlockText, out.Content[0].Type)
	assert.Equal(t, "hi there", out.Content[0].Text)
	assert.Equal(t, model.BlockToolUse, out.Content[1].Type)
	assert.Equal(t, "call_1", out.Content[1].ID)
	assert.Equal(t, "lookup", out.Content[1].Name)
	assert.JSONEq(t, `{"q":"go"}`, string(out.Content[1].Input))
	require.NotNil(t, out.StopReason)
	assert.Equal(t, "tool_use", *out.StopReason)
	assert.Equal(t, 3, out.Usage.InputTokens)
	assert.Equal(t, 7, out.Usage.OutputTokens)
}

func TestResponseOToANoChoicesReturnsError(t *testing.T) {
	_, err := ResponseOToA(&model.ChatResponse{})
	assert.Error(t, err)
}

func TestResponseOToAMalformedArgumentsFallsBackToEmptyObject(t *testing.T) {
	resp := &model.ChatResponse{
		Choices: []model.ChatChoice{{
			Message: model.ChatMessage{
				Role: "assistant",
				ToolCalls: []model.ToolCall{{
					ID:       "call_2",
					Function: model.ToolCallFunction{Name: "broken", Arguments: "not json"},
				}},
			},
		}},
	}
	out, err := ResponseOToA(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(out.Content[0].Input))
}
