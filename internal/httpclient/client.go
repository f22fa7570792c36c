// Package httpclient provides the single outbound HTTP client (C11) used
// for every upstream call: a pluggable interface plus a concrete
// implementation wrapping net/http with transparent gzip/br
// decompression, grounded on the teacher's
// internal/handlers/proxy.go decompressReader.
package httpclient

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/andybalholm/brotli"
)

const (
	totalTimeout        = 300 * time.Second
	dialTimeout         = 10 * time.Second
	maxIdleConnsPerHost = 10
)

// OutboundRequest is a fully-built upstream call: method, URL, headers,
// and body, already serialized by the caller.
type OutboundRequest struct {
	Method  string
	URL     string
	Headers http.Header
	Body    []byte
}

// OutboundResponse is a non-streaming upstream response with the body
// already buffered and decompressed.
type OutboundResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// StreamResponse is a streaming upstream response: the status/headers are
// available immediately, and Body is a decompressed reader of the raw SSE
// byte stream the caller must close.
type StreamResponse struct {
	StatusCode int
	Headers    http.Header
	Body       io.ReadCloser
}

// Client is the interface the routing/transform layer depends on; it
// never references *http.Client directly so it can be faked in tests.
type Client interface {
	Do(ctx context.Context, req *OutboundRequest) (*OutboundResponse, error)
	DoStream(ctx context.Context, req *OutboundRequest) (*StreamResponse, error)
}

// HTTPClient is the concrete, process-wide shared Client implementation.
type HTTPClient struct {
	inner *http.Client
}

// New builds the shared client with the pool sizing and timeouts
// mandated by §4.5/§4.8: a 300s total timeout, a 10s dial timeout, and
// up to 10 idle connections per host.
func New() *HTTPClient {
	transport := &http.Transport{
		MaxIdleConnsPerHost: maxIdleConnsPerHost,
		DialContext: (&net.Dialer{
			Timeout: dialTimeout,
		}).DialContext,
	}
	return &HTTPClient{inner: &http.Client{Transport: transport, Timeout: totalTimeout}}
}

func (c *HTTPClient) Do(ctx context.Context, req *OutboundRequest) (*OutboundResponse, error) {
	httpReq, err := c.build(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := c.inner.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	bodyReader, err := decompressReader(resp)
	if err != nil {
		return nil, err
	}
	body, err := io.ReadAll(bodyReader)
	if err != nil {
		return nil, err
	}

	return &OutboundResponse{StatusCode: resp.StatusCode, Headers: resp.Header, Body: body}, nil
}

func (c *HTTPClient) DoStream(ctx context.Context, req *OutboundRequest) (*StreamResponse, error) {
	httpReq, err := c.build(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := c.inner.Do(httpReq)
	if err != nil {
		return nil, err
	}

	body, err := decompressStream(resp)
	if err != nil {
		resp.Body.Close()
		return nil, err
	}

	return &StreamResponse{StatusCode: resp.StatusCode, Headers: resp.Header, Body: body}, nil
}

func (c *HTTPClient) build(ctx context.Context, req *OutboundRequest) (*http.Request, error) {
	var bodyReader io.Reader
	if req.Body != nil {
		bodyReader = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, bodyReader)
	if err != nil {
		return nil, err
	}
	if req.Headers != nil {
		httpReq.Header = req.Headers.Clone()
	}
	return httpReq, nil
}

// decompressReader transparently unwraps gzip/br content encodings for
// the non-streaming path, where the whole body is read before the
// response is returned and closing resp.Body separately is enough.
func decompressReader(resp *http.Response) (io.Reader, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		return gzip.NewReader(resp.Body)
	case "br":
		return brotli.NewReader(resp.Body), nil
	default:
		return resp.Body, nil
	}
}

// decompressStream does the same for the streaming path, where the
// returned ReadCloser must close both the decompressor (if any) and the
// underlying response body once the caller is done.
func decompressStream(resp *http.Response) (io.ReadCloser, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		return multiCloser{Reader: gz, closers: []io.Closer{gz, resp.Body}}, nil
	case "br":
		return multiCloser{Reader: brotli.NewReader(resp.Body), closers: []io.Closer{resp.Body}}, nil
	default:
		return resp.Body, nil
	}
}

type multiCloser struct {
	io.Reader
	closers []io.Closer
}

func (m multiCloser) Close() error {
	var firstErr error
	for _, c := range m.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
