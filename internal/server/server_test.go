package server

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shimmerhq/anyproxy/internal/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, env map[string]string) *Server {
	t.Helper()
	for k, v := range env {
		t.Setenv(k, v)
	}
	mgr, err := config.NewManager()
	require.NoError(t, err)
	return New(mgr, discardLogger())
}

func TestSetupRoutesMountsHealthAndMessagesAlways(t *testing.T) {
	srv := newTestServer(t, map[string]string{
		"ROUTING_MODE":       "passthrough",
		"ANTHROPIC_BASE_URL": "http://127.0.0.1:1",
		"ANTHROPIC_API_KEY":  "key",
	})
	router := srv.setupRoutes()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/messages", strings.NewReader(`{}`)))
	assert.NotEqual(t, http.StatusNotFound, w.Code)
}

func TestSetupRoutesOnlyMountsChatCompletionsInGatewayOrAutoMode(t *testing.T) {
	transformSrv := newTestServer(t, map[string]string{
		"ROUTING_MODE":      "transform",
		"UPSTREAM_BASE_URL": "http://127.0.0.1:1",
	})
	w := httptest.NewRecorder()
	transformSrv.setupRoutes().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusNotFound, w.Code)

	gatewaySrv := newTestServer(t, map[string]string{
		"ROUTING_MODE":       "gateway",
		"ANTHROPIC_BASE_URL": "http://127.0.0.1:1",
		"ANTHROPIC_API_KEY":  "key",
	})
	w = httptest.NewRecorder()
	gatewaySrv.setupRoutes().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(`{}`)))
	assert.NotEqual(t, http.StatusNotFound, w.Code)
}
