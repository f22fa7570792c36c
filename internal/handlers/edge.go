// Package handlers implements the HTTP edge (C8): the two POST endpoints
// and the health check, wiring the router, transformers, stream
// translators, and outbound HTTP client together. Grounded on the
// teacher's internal/handlers/proxy.go for body handling, decompression,
// and SSE forwarding shape.
package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/shimmerhq/anyproxy/internal/apperror"
	"github.com/shimmerhq/anyproxy/internal/config"
	"github.com/shimmerhq/anyproxy/internal/httpclient"
	"github.com/shimmerhq/anyproxy/internal/model"
	"github.com/shimmerhq/anyproxy/internal/observability"
	"github.com/shimmerhq/anyproxy/internal/router"
	"github.com/shimmerhq/anyproxy/internal/stream"
	"github.com/shimmerhq/anyproxy/internal/tokencount"
	"github.com/shimmerhq/anyproxy/internal/transform"
)

// Edge serves POST /v1/messages and POST /v1/chat/completions.
type Edge struct {
	config *config.Manager
	client httpclient.Client
	logger *slog.Logger
	tracer trace.Tracer
}

func NewEdge(config *config.Manager, client httpclient.Client, logger *slog.Logger) *Edge {
	return &Edge{config: config, client: client, logger: logger, tracer: noop.NewTracerProvider().Tracer(observability.TracerName)}
}

// WithTracer returns a copy of the Edge that emits spans via tracer
// instead of the no-op default; used by the server once it has set up
// the real OpenTelemetry tracer provider.
func (e *Edge) WithTracer(tracer trace.Tracer) *Edge {
	cp := *e
	cp.tracer = tracer
	return &cp
}

// Messages serves the A-endpoint.
func (e *Edge) Messages(w http.ResponseWriter, r *http.Request) {
	e.serve(w, r, router.FormatA)
}

// ChatCompletions serves the O-endpoint (mounted only in Auto/Gateway).
func (e *Edge) ChatCompletions(w http.ResponseWriter, r *http.Request) {
	e.serve(w, r, router.FormatO)
}

type peekedRequest struct {
	Model  string `json:"model"`
	Stream *bool  `json:"stream"`
}

func (e *Edge) serve(w http.ResponseWriter, r *http.Request, format router.RequestFormat) {
	cfg := e.config.Get()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		apperror.WriteHTTP(w, apperror.HTTP("failed to read request body: %v", err))
		return
	}

	var peek peekedRequest
	if err := json.Unmarshal(body, &peek); err != nil {
		apperror.WriteHTTP(w, apperror.Serialization("invalid request JSON: %v", err))
		return
	}
	isStream := peek.Stream != nil && *peek.Stream

	e.logger.Info("estimated input tokens", "tokens", tokencount.EstimateTokens(string(body)), "model", peek.Model)

	decision, err := router.Decide(format, peek.Model, cfg)
	if err != nil {
		apperror.WriteHTTP(w, err)
		return
	}

	ctx, span := observability.StartRequestSpan(r.Context(), e.tracer, string(decision.Backend), string(decision.Direction), peek.Model)
	defer span.End()

	backend := backendFor(cfg, decision.Backend)
	upstreamURL := upstreamURLFor(decision.Backend, backend.BaseURL)
	headers := authHeadersFor(decision.Backend, backend.APIKey)

	if !decision.NeedsTransform {
		e.forward(w, ctx, upstreamURL, headers, body, isStream, passthroughCopy)
		return
	}

	outBody, err := e.transformRequest(format, decision.Direction, body, cfg)
	if err != nil {
		apperror.WriteHTTP(w, err)
		return
	}

	translator := e.responseTranslatorFor(decision.Direction)
	e.forward(w, ctx, upstreamURL, headers, outBody, isStream, translator)
}

// transformRequest rewrites the decoded inbound body into the backend's
// wire format per the decision's direction.
func (e *Edge) transformRequest(format router.RequestFormat, direction router.Direction, body []byte, cfg *config.Config) ([]byte, error) {
	switch direction {
	case router.DirectionAToO:
		var req model.Request
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, apperror.Serialization("decoding a-format request: %v", err)
		}
		out, err := transform.RequestAToO(&req, cfg)
		if err != nil {
			return nil, apperror.Transform("transforming request a->o: %v", err)
		}
		return json.Marshal(out)

	case router.DirectionOToA:
		var req model.ChatRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, apperror.Serialization("decoding o-format request: %v", err)
		}
		out, err := transform.RequestOToA(&req, cfg)
		if err != nil {
			return nil, apperror.Transform("transforming request o->a: %v", err)
		}
		return json.Marshal(out)

	default:
		return body, nil
	}
}

type responseFn struct {
	nonStreaming func([]byte) ([]byte, error)
	streaming    func(src io.Reader, dst io.Writer, flush func(), logger *slog.Logger) error
}

var passthroughCopy = responseFn{
	nonStreaming: func(body []byte) ([]byte, error) { return body, nil },
}

// responseTranslatorFor picks the response-direction transform, which is
// the inverse of the request direction: a request transformed A->O comes
// back from an O-format backend and must be rewritten O->A for the
// original A-format client, and vice versa.
func (e *Edge) responseTranslatorFor(requestDirection router.Direction) responseFn {
	switch requestDirection {
	case router.DirectionAToO:
		return responseFn{
			nonStreaming: func(body []byte) ([]byte, error) {
				var resp model.ChatResponse
				if err := json.Unmarshal(body, &resp); err != nil {
					return nil, apperror.Serialization("decoding o-format response: %v", err)
				}
				out, err := transform.ResponseOToA(&resp)
				if err != nil {
					return nil, apperror.Transform("transforming response o->a: %v", err)
				}
				return json.Marshal(out)
			},
			streaming: stream.TranslateOToA,
		}
	case router.DirectionOToA:
		return responseFn{
			nonStreaming: func(body []byte) ([]byte, error) {
				var resp model.Response
				if err := json.Unmarshal(body, &resp); err != nil {
					return nil, apperror.Serialization("decoding a-format response: %v", err)
				}
				out, err := transform.ResponseAToO(&resp)
				if err != nil {
					return nil, apperror.Transform("transforming response a->o: %v", err)
				}
				return json.Marshal(out)
			},
			streaming: stream.TranslateAToO,
		}
	default:
		return passthroughCopy
	}
}

func (e *Edge) forward(w http.ResponseWriter, ctx context.Context, url string, headers http.Header, body []byte, isStream bool, translate responseFn) {
	outReq := &httpclient.OutboundRequest{
		Method:  http.MethodPost,
		URL:     url,
		Headers: headers,
		Body:    body,
	}

	if isStream {
		e.forwardStreaming(w, ctx, outReq, translate)
		return
	}
	e.forwardNonStreaming(w, ctx, outReq, translate)
}

func (e *Edge) forwardNonStreaming(w http.ResponseWriter, ctx context.Context, outReq *httpclient.OutboundRequest, translate responseFn) {
	resp, err := e.client.Do(ctx, outReq)
	if err != nil {
		apperror.WriteHTTP(w, apperror.Upstream("upstream request failed: %v", err))
		return
	}

	if resp.StatusCode >= 400 {
		apperror.WriteHTTP(w, apperror.Upstream("upstream returned %d: %s", resp.StatusCode, string(resp.Body)))
		return
	}

	outBody, err := translate.nonStreaming(resp.Body)
	if err != nil {
		apperror.WriteHTTP(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	w.Write(outBody)
}

func (e *Edge) forwardStreaming(w http.ResponseWriter, ctx context.Context, outReq *httpclient.OutboundRequest, translate responseFn) {
	resp, err := e.client.DoStream(ctx, outReq)
	if err != nil {
		apperror.WriteHTTP(w, apperror.Upstream("upstream request failed: %v", err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		errBody, _ := io.ReadAll(resp.Body)
		apperror.WriteHTTP(w, apperror.Upstream("upstream returned %d: %s", resp.StatusCode, string(errBody)))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(resp.StatusCode)

	flusher, _ := w.(http.Flusher)
	flush := func() {
		if flusher != nil {
			flusher.Flush()
		}
	}

	if translate.streaming == nil {
		io.Copy(w, resp.Body)
		flush()
		return
	}

	if err := translate.streaming(resp.Body, w, flush, e.logger); err != nil {
		e.logger.Warn("stream translation ended with an error", "error", err)
	}
}

func backendFor(cfg *config.Config, backend router.Backend) config.Backend {
	switch backend {
	case router.BackendANative:
		return cfg.AnthropicNative
	case router.BackendONative:
		return cfg.OpenAINative
	default:
		return cfg.GenericUpstream
	}
}

func upstreamURLFor(backend router.Backend, base string) string {
	if backend == router.BackendANative {
		return base + "/v1/messages"
	}
	return base + "/v1/chat/completions"
}

func authHeadersFor(backend router.Backend, apiKey string) http.Header {
	headers := http.Header{"Content-Type": []string{"application/json"}}
	if apiKey == "" {
		return headers
	}
	if backend == router.BackendANative {
		headers.Set("x-api-key", apiKey)
		headers.Set("anthropic-version", "2023-06-01")
	} else {
		headers.Set("Authorization", "Bearer "+apiKey)
	}
	return headers
}
