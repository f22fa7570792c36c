package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shimmerhq/anyproxy/internal/config"
	"github.com/shimmerhq/anyproxy/internal/httpclient"
	"github.com/shimmerhq/anyproxy/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEdge(t *testing.T, env map[string]string) *Edge {
	t.Helper()
	for k, v := range env {
		t.Setenv(k, v)
	}
	mgr, err := config.NewManager()
	require.NoError(t, err)
	return NewEdge(mgr, httpclient.New(), discardLogger())
}

func TestMessagesTransformModeTranslatesRequestAndResponse(t *testing.T) {
	var gotBody model.ChatRequest
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer upstream-key", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &gotBody))

		resp := model.ChatResponse{
			ID:    "chatcmpl-1",
			Model: gotBody.Model,
			Choices: []model.ChatChoice{{
				Index:   0,
				Message: model.ChatMessage{Role: "assistant", Content: model.NewChatText("hi there")},
			}},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer backend.Close()

	edge := newTestEdge(t, map[string]string{
		"ROUTING_MODE":      "transform",
		"UPSTREAM_BASE_URL": backend.URL,
		"UPSTREAM_API_KEY":  "upstream-key",
	})

	reqBody := `{"model":"claude-3-5-sonnet","max_tokens":100,"messages":[{"role":"user","content":"hello"}]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/messages", strings.NewReader(reqBody))
	w := httptest.NewRecorder()

	edge.Messages(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var got model.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got.Content, 1)
	assert.Equal(t, "hi there", got.Content[0].Text)
}

func TestMessagesPassthroughModeForwardsRawBody(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "anthropic-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"msg_1","type":"message","role":"assistant","content":[]}`))
	}))
	defer backend.Close()

	edge := newTestEdge(t, map[string]string{
		"ROUTING_MODE":       "passthrough",
		"ANTHROPIC_BASE_URL": backend.URL,
		"ANTHROPIC_API_KEY":  "anthropic-key",
	})

	reqBody := `{"model":"claude-3-5-sonnet","max_tokens":100,"messages":[]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/messages", strings.NewReader(reqBody))
	w := httptest.NewRecorder()

	edge.Messages(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"msg_1","type":"message","role":"assistant","content":[]}`, w.Body.String())
}

func TestMessagesUpstreamErrorForwardedAsUpstreamError(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"error":"boom"}`))
	}))
	defer backend.Close()

	edge := newTestEdge(t, map[string]string{
		"ROUTING_MODE":       "passthrough",
		"ANTHROPIC_BASE_URL": backend.URL,
		"ANTHROPIC_API_KEY":  "anthropic-key",
	})

	reqBody := `{"model":"claude-3-5-sonnet","max_tokens":100,"messages":[]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/messages", strings.NewReader(reqBody))
	w := httptest.NewRecorder()

	edge.Messages(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
}
