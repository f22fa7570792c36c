package stream

import (
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/shimmerhq/anyproxy/internal/model"
	"github.com/shimmerhq/anyproxy/internal/transform"
)

// TranslateAToO consumes an A-format upstream SSE stream from src and
// writes the equivalent O-format chat.completion.chunk stream to dst,
// calling flush after every frame. It returns the upstream transport
// error, if any, after logging it; per §4.4 the A→O (O-emitting)
// direction never synthesises an error frame of its own.
func TranslateAToO(src io.Reader, dst io.Writer, flush func(), logger *slog.Logger) error {
	var messageID, modelName string

	emit := func(chunk *model.StreamChunk) error {
		data, err := model.FormatSSEData(chunk)
		if err != nil {
			return err
		}
		if _, err := dst.Write(data); err != nil {
			return err
		}
		flush()
		return nil
	}

	frameErr := scanFrames(src, func(frame string) error {
		for _, line := range strings.Split(frame, "\n") {
			data, ok := dataLine(line)
			if !ok {
				continue
			}

			var evt model.StreamEvent
			if err := json.Unmarshal([]byte(data), &evt); err != nil {
				logger.Debug("stream: skipping malformed a-format frame", "error", err)
				continue
			}

			switch evt.Type {
			case "message_start":
				if evt.Message != nil {
					messageID = evt.Message.ID
					modelName = evt.Message.Model
				}

			case "content_block_start":
				if evt.ContentBlock != nil && evt.ContentBlock.Type == model.BlockToolUse {
					if err := emit(toolOpenChunk(messageID, modelName, evt.ContentBlock)); err != nil {
						return err
					}
				}

			case "content_block_delta":
				if evt.Delta == nil {
					continue
				}
				switch evt.Delta.Type {
				case "text_delta":
					if err := emit(textDeltaChunk(messageID, modelName, evt.Delta.Text)); err != nil {
						return err
					}
				case "input_json_delta":
					if err := emit(toolArgsDeltaChunk(messageID, modelName, evt.Delta.PartialJSON)); err != nil {
						return err
					}
				}

			case "message_delta":
				if evt.Delta != nil && evt.Delta.StopReason != nil {
					if err := emit(finishChunk(messageID, modelName, *evt.Delta.StopReason)); err != nil {
						return err
					}
				}

			case "message_stop":
				if _, err := dst.Write(model.DoneFrame); err != nil {
					return err
				}
				flush()
			}
		}
		return nil
	})

	if frameErr != nil {
		logger.Warn("stream: a-format upstream ended with a transport error", "error", frameErr)
	}
	return frameErr
}

func toolOpenChunk(messageID, modelName string, block *model.ContentBlock) *model.StreamChunk {
	zero := 0
	return &model.StreamChunk{
		ID: messageID, Object: "chat.completion.chunk", Created: time.Now().Unix(), Model: modelName,
		Choices: []model.StreamChoice{{
			Index: 0,
			Delta: model.StreamDelta{ToolCalls: []model.ToolCall{{
				Index: &zero,
				ID:    block.ID,
				Type:  "function",
				Function: model.ToolCallFunction{
					Name:      block.Name,
					Arguments: "",
				},
			}}},
		}},
	}
}

func textDeltaChunk(messageID, modelName, text string) *model.StreamChunk {
	content := text
	return &model.StreamChunk{
		ID: messageID, Object: "chat.completion.chunk", Created: time.Now().Unix(), Model: modelName,
		Choices: []model.StreamChoice{{Index: 0, Delta: model.StreamDelta{Content: &content}}},
	}
}

func toolArgsDeltaChunk(messageID, modelName, partialJSON string) *model.StreamChunk {
	zero := 0
	return &model.StreamChunk{
		ID: messageID, Object: "chat.completion.chunk", Created: time.Now().Unix(), Model: modelName,
		Choices: []model.StreamChoice{{
			Index: 0,
			Delta: model.StreamDelta{ToolCalls: []model.ToolCall{{
				Index:    &zero,
				Function: model.ToolCallFunction{Arguments: partialJSON},
			}}},
		}},
	}
}

func finishChunk(messageID, modelName, stopReason string) *model.StreamChunk {
	finish := transform.StopReasonAToO(&stopReason)
	return &model.StreamChunk{
		ID: messageID, Object: "chat.completion.chunk", Created: time.Now().Unix(), Model: modelName,
		Choices: []model.StreamChoice{{Index: 0, Delta: model.StreamDelta{}, FinishReason: &finish}},
	}
}
