package transform

import (
	"encoding/json"
	"strings"

	"github.com/shimmerhq/anyproxy/internal/config"
	"github.com/shimmerhq/anyproxy/internal/model"
)

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// RequestAToO rewrites an A-format request into an O-format request, per
// SPEC_FULL.md §4.2.
func RequestAToO(req *model.Request, cfg *config.Config) (*model.ChatRequest, error) {
	out := &model.ChatRequest{}

	out.Model, out.ReasoningEffort = selectAToOModel(req, cfg)

	if req.System != nil {
		if len(req.System.Blocks) > 0 {
			for _, block := range req.System.Blocks {
				out.Messages = append(out.Messages, model.ChatMessage{Role: "system", Content: model.NewChatText(block.Text)})
			}
		} else if req.System.Text != "" {
			out.Messages = append(out.Messages, model.ChatMessage{Role: "system", Content: model.NewChatText(req.System.Text)})
		}
	}

	for _, msg := range req.Messages {
		converted, err := convertAMessageToO(msg)
		if err != nil {
			return nil, err
		}
		out.Messages = append(out.Messages, converted...)
	}

	for _, tool := range req.Tools {
		if tool.Type == "BatchTool" {
			continue
		}
		cleaned, err := CleanSchema(tool.InputSchema)
		if err != nil {
			return nil, err
		}
		out.Tools = append(out.Tools, model.ChatTool{
			Type: "function",
			Function: model.ChatToolFunction{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  cleaned,
			},
		})
	}

	out.Temperature = req.Temperature
	out.TopP = req.TopP
	if len(req.StopSequences) > 0 {
		out.Stop = req.StopSequences
	}
	out.Stream = req.Stream

	maxTokens := maxInt(req.MaxTokens, 16)
	out.MaxTokens = &maxTokens

	return out, nil
}

func selectAToOModel(req *model.Request, cfg *config.Config) (model string, effort string) {
	base := req.Model
	if req.ThinkingEnabled() {
		if cfg.ReasoningModel != "" {
			base = cfg.ReasoningModel
		}
	} else if cfg.CompletionModel != "" {
		base = cfg.CompletionModel
	}
	stem, eff := ParseModelWithEffort(base)
	if eff != nil {
		return stem, *eff
	}
	return stem, ""
}

// convertAMessageToO converts one A-format message into zero or more
// O-format messages: each ToolResult block becomes its own "tool"
// message, and the remaining text/tool-call content (if any) becomes one
// message carrying the original role.
func convertAMessageToO(msg model.Message) ([]model.ChatMessage, error) {
	if msg.Content.IsString || msg.Content.Blocks == nil {
		return []model.ChatMessage{{Role: msg.Role, Content: model.NewChatText(msg.Content.Text)}}, nil
	}

	var out []model.ChatMessage
	var parts []model.ContentPart
	var toolCalls []model.ToolCall

	for _, block := range msg.Content.Blocks {
		switch block.Type {
		case model.BlockText:
			parts = append(parts, model.ContentPart{Type: model.PartText, Text: block.Text})
		case model.BlockImage:
			if block.Source != nil {
				url := "data:" + block.Source.MediaType + ";base64," + block.Source.Data
				parts = append(parts, model.ContentPart{Type: model.PartImageURL, ImageURL: &model.ImageURL{URL: url}})
			}
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
		case model.BlockToolResult:
			out = append(out, model.ChatMessage{
				Role:       "tool",
				ToolCallID: block.ToolUseID,
				Content:    model.NewChatText(block.Content.FlattenText()),
			})
		case model.BlockThinking:
			// dropped silently: Thinking blocks never appear in O-format output.
		}
	}

	if len(parts) > 0 || len(toolCalls) > 0 {
		envelope := model.ChatMessage{Role: msg.Role, ToolCalls: toolCalls}
		if len(parts) == 1 && parts[0].Type == model.PartText {
			envelope.Content = model.NewChatText(parts[0].Text)
		} else if len(parts) > 0 {
			envelope.Content = model.NewChatParts(parts)
		}
		out = append(out, envelope)
	}

	return out, nil
}

// RequestOToA rewrites an O-format request into an A-format request, per
// SPEC_FULL.md §4.2.
func RequestOToA(req *model.ChatRequest, cfg *config.Config) (*model.Request, error) {
	out := &model.Request{}

	if cfg.CompletionModel != "" {
		out.Model = cfg.CompletionModel
	} else {
		out.Model = req.Model
	}

	var systemParts []string
	for _, msg := range req.Messages {
		if msg.Role != "system" {
			continue
		}
		if msg.Content != nil {
			systemParts = append(systemParts, contentAsText(msg.Content))
		}
	}
	if len(systemParts) > 0 {
		out.System = &model.SystemPrompt{Text: strings.Join(systemParts, "\n")}
	}

	for _, msg := range req.Messages {
		switch msg.Role {
		case "system":
			continue
		case "tool":
			out.Messages = append(out.Messages, model.Message{
				Role: "user",
				Content: model.MessageContent{Blocks: []model.ContentBlock{{
					Type:      model.BlockToolResult,
					ToolUseID: msg.ToolCallID,
					Content:   &model.ToolResultContent{IsString: true, Text: contentAsText(msg.Content)},
				}}},
			})
		default:
			converted, err := convertOMessageToA(msg)
			if err != nil {
				return nil, err
			}
			out.Messages = append(out.Messages, converted)
		}
	}

	for _, tool := range req.Tools {
		out.Tools = append(out.Tools, model.Tool{
			Name:        tool.Function.Name,
			Description: tool.Function.Description,
			InputSchema: tool.Function.Parameters,
			Type:        "custom",
		})
	}

	if req.MaxTokens != nil {
		out.MaxTokens = *req.MaxTokens
	} else {
		out.MaxTokens = 4096
	}

	return out, nil
}

func contentAsText(c *model.ChatContent) string {
	if c == nil {
		return ""
	}
	if c.IsString || c.Parts == nil {
		return c.Text
	}
	var texts []string
	for _, p := range c.Parts {
		if p.Type == model.PartText {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, "\n")
}

func convertOMessageToA(msg model.ChatMessage) (model.Message, error) {
	var blocks []model.ContentBlock

	if msg.Content != nil {
		if msg.Content.IsString || msg.Content.Parts == nil {
			if msg.Content.Text != "" || len(msg.ToolCalls) == 0 {
				blocks = append(blocks, model.ContentBlock{Type: model.BlockText, Text: msg.Content.Text})
			}
		} else {
			for _, part := range msg.Content.Parts {
				switch part.Type {
				case model.PartText:
					blocks = append(blocks, model.ContentBlock{Type: model.BlockText, Text: part.Text})
				case model.PartImageURL:
					if part.ImageURL == nil {
						continue
					}
					mediaType, data, ok := ParseDataURL(part.ImageURL.URL)
					if !ok {
						// non-data: URLs are dropped without any log
						// entry; the transform layer has no logger.
						continue
					}
					blocks = append(blocks, model.ContentBlock{
						Type:   model.BlockImage,
						Source: &model.ImageSource{Type: "base64", MediaType: mediaType, Data: data},
					})
				}
			}
		}
	}

	for _, call := range msg.ToolCalls {
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

	content := model.MessageContent{Blocks: blocks}
	if len(blocks) == 1 && blocks[0].Type == model.BlockText && len(msg.ToolCalls) == 0 {
		content = model.MessageContent{IsString: true, Text: blocks[0].Text}
	}

	return model.Message{Role: msg.Role, Content: content}, nil
}
