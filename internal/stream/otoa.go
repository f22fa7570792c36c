package stream

import (
	"encoding/json"
	"io"
	"log/slog"
	"strings"

	"github.com/shimmerhq/anyproxy/internal/model"
	"github.com/shimmerhq/anyproxy/internal/transform"
)

type otoaState struct {
	messageSent  bool
	currentBlock string // "" | "text" | "thinking" | "tool_use"
	blockIndex   int
	toolCallID   string
}

// TranslateOToA consumes an O-format upstream SSE stream from src and
// writes the equivalent A-format event stream (message_start,
// content_block_start/delta/stop, message_delta, message_stop) to dst,
// calling flush after every frame. Per §4.4 this, the A-emitting
// direction, additionally synthesises an `error` event if the upstream
// stream ends with a transport error.
func TranslateOToA(src io.Reader, dst io.Writer, flush func(), logger *slog.Logger) error {
	st := &otoaState{}

	emit := func(eventType string, payload interface{}) error {
		data, err := model.FormatSSE(eventType, payload)
		if err != nil {
			return err
		}
		if _, err := dst.Write(data); err != nil {
			return err
		}
		flush()
		return nil
	}

	closeCurrentBlock := func() error {
		if st.currentBlock == "" {
			return nil
		}
		if err := emit("content_block_stop", map[string]interface{}{
			"type": "content_block_stop", "index": st.blockIndex,
		}); err != nil {
			return err
		}
		st.blockIndex++
		st.currentBlock = ""
		return nil
	}

	openBlock := func(kind string, block interface{}) error {
		if st.currentBlock == kind {
			return nil
		}
		if err := closeCurrentBlock(); err != nil {
			return err
		}
		if err := emit("content_block_start", map[string]interface{}{
			"type": "content_block_start", "index": st.blockIndex, "content_block": block,
		}); err != nil {
			return err
		}
		st.currentBlock = kind
		return nil
	}

	emitDelta := func(deltaType, field, text string) error {
		return emit("content_block_delta", map[string]interface{}{
			"type": "content_block_delta", "index": st.blockIndex,
			"delta": map[string]string{"type": deltaType, field: text},
		})
	}

	frameErr := scanFrames(src, func(frame string) error {
		for _, line := range strings.Split(frame, "\n") {
			data, ok := dataLine(line)
			if !ok {
				continue
			}
			if strings.TrimSpace(data) == "[DONE]" {
				return emit("message_stop", map[string]string{"type": "message_stop"})
			}

			var chunk model.StreamChunk
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				logger.Debug("stream: skipping malformed o-format frame", "error", err)
				continue
			}

			if !st.messageSent {
				if err := emit("message_start", map[string]interface{}{
					"type": "message_start",
					"message": map[string]interface{}{
						"id": chunk.ID, "type": "message", "role": "assistant", "model": chunk.Model,
						"usage": map[string]int{"input_tokens": 0, "output_tokens": 0},
					},
				}); err != nil {
					return err
				}
				st.messageSent = true
			}

			if len(chunk.Choices) == 0 {
				continue
			}
			choice := chunk.Choices[0]
			delta := choice.Delta

			if delta.Reasoning != nil && *delta.Reasoning != "" {
				if err := openBlock("thinking", map[string]string{"type": "thinking", "thinking": ""}); err != nil {
					return err
				}
				if err := emitDelta("thinking_delta", "thinking", *delta.Reasoning); err != nil {
					return err
				}
			}

			if delta.Content != nil && *delta.Content != "" {
				if err := openBlock("text", map[string]string{"type": "text", "text": ""}); err != nil {
					return err
				}
				if err := emitDelta("text_delta", "text", *delta.Content); err != nil {
					return err
				}
			}

			for _, call := range delta.ToolCalls {
				if call.ID != "" {
					if err := closeCurrentBlock(); err != nil {
						return err
					}
					st.toolCallID = call.ID
				}
				if call.Function.Name != "" {
					if err := emit("content_block_start", map[string]interface{}{
						"type": "content_block_start", "index": st.blockIndex,
						"content_block": map[string]string{"type": "tool_use", "id": st.toolCallID, "name": call.Function.Name},
					}); err != nil {
						return err
					}
					st.currentBlock = "tool_use"
				}
				if call.Function.Arguments != "" {
					if err := emitDelta("input_json_delta", "partial_json", call.Function.Arguments); err != nil {
						return err
					}
				}
			}

			if choice.FinishReason != nil {
				if err := closeCurrentBlock(); err != nil {
					return err
				}
				stopReason := transform.StopReasonOToA(choice.FinishReason)
				var usage interface{}
				if chunk.Usage != nil {
					usage = map[string]int{"output_tokens": chunk.Usage.CompletionTokens}
				}
				if err := emit("message_delta", map[string]interface{}{
					"type":  "message_delta",
					"delta": map[string]interface{}{"stop_reason": stopReason, "stop_sequence": nil},
					"usage": usage,
				}); err != nil {
					return err
				}
			}
		}
		return nil
	})

	if frameErr != nil {
		logger.Warn("stream: o-format upstream ended with a transport error", "error", frameErr)
		if err := emit("error", map[string]interface{}{
			"type":  "error",
			"error": map[string]string{"type": "stream_error", "message": frameErr.Error()},
		}); err != nil {
			return err
		}
		return frameErr
	}
	return nil
}
