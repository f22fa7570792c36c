package transform

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shimmerhq/anyproxy/internal/apperror"
	"github.com/shimmerhq/anyproxy/internal/model"
)

// ResponseAToO flattens a non-streaming A-format response into an
// O-format response, per SPEC_FULL.md §4.3.
func ResponseAToO(resp *model.Response) (*model.ChatResponse, error) {
	var textParts []string
	var toolCalls []model.ToolCall

	for _, block := range resp.Content {
		switch block.Type {
		case model.BlockText:
			textParts = append(textParts, block.Text)
		case model.BlockToolUse:
			args := string(block.Input)
			if args == "" {
				args = "{}"
			}
			toolCalls = append(toolCalls, model.ToolCall{
				ID:   block.ID,
				Type: "function",
				Function: model.ToolCallFunction{
					Name:      block.Name,
					Arguments: args,
				},
			})
		case model.BlockThinking:
			// dropped: Thinking never surfaces in O-format output.
		}
	}

	finishReason := StopReasonAToO(resp.StopReason)

	msg := model.ChatMessage{Role: "assistant", ToolCalls: toolCalls}
	if len(textParts) > 0 {
		msg.Content = model.NewChatText(strings.Join(textParts, ""))
	}

	out := &model.ChatResponse{
		ID:      resp.ID,
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   resp.Model,
		Choices: []model.ChatChoice{{
			Index:        0,
			Message:      msg,
			FinishReason: &finishReason,
		}},
		Usage: &model.ChatUsage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
	}
	return out, nil
}

// ResponseOToA expands the first (only) choice of a non-streaming
// O-format response into an A-format response, per SPEC_FULL.md §4.3.
func ResponseOToA(resp *model.ChatResponse) (*model.Response, error) {
	if len(resp.Choices) == 0 {
		return nil, apperror.Transform("upstream response has no choices")
	}
	choice := resp.Choices[0]

	var blocks []model.ContentBlock
	if choice.Message.Content != nil {
		text := contentAsText(choice.Message.Content)
		if text != "" {
			blocks = append(blocks, model.ContentBlock{Type: model.BlockText, Text: text})
		}
	}
	for _, call := range choice.Message.ToolCalls {
		input := json.RawMessage("{}")
		if call.Function.Arguments != "" {
			var parsed json.RawMessage
			if err := json.Unmarshal([]byte(call.Function.Arguments), &parsed); err == nil {
				input = parsed
			}
		}
		blocks = append(blocks, model.ContentBlock{
			Type:  model.BlockToolUse,
			ID:    call.ID,
			Name:  call.Function.Name,
			Input: input,
		})
	}

	stopReason := StopReasonOToA(choice.FinishReason)

	out := &model.Response{
		ID:         resp.ID,
		Type:       "message",
		Role:       "assistant",
		Model:      resp.Model,
		Content:    blocks,
		StopReason: &stopReason,
	}
	if resp.Usage != nil {
		out.Usage = model.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		}
	}
	return out, nil
}
