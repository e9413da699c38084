package fetcher

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultHTTPTimeout     = 30 * time.Second
	defaultHTTPIdleTimeout = 90 * time.Second
	maxResourceSize        = 8 << 20
)

// HTTPOption configures the HTTP backend.
type HTTPOption func(*httpConfig)

type httpConfig struct {
	timeout       time.Duration
	idleTimeout   time.Duration
	transport     http.RoundTripper
	traceRequests bool
	header        http.Header
}

// WithHTTPTimeout sets the per request timeout.
func WithHTTPTimeout(timeout time.Duration) HTTPOption {
	return func(c *httpConfig) {
		c.timeout = timeout
	}
}

// WithHTTPTransport replaces the default otelhttp instrumented transport.
func WithHTTPTransport(transport http.RoundTripper) HTTPOption {
	return func(c *httpConfig) {
		c.transport = transport
	}
}

// WithHTTPTraceRequests logs every request and response.
func WithHTTPTraceRequests() HTTPOption {
	return func(c *httpConfig) {
		c.traceRequests = true
	}
}

// WithHTTPHeader adds a header sent with every request.
func WithHTTPHeader(key, value string) HTTPOption {
	return func(c *httpConfig) {
		c.header.Add(key, value)
	}
}

// HTTP serves resources from a base URL; the path is joined onto it.
type HTTP struct {
	base   *url.URL
	client *http.Client
	header http.Header
}

// NewHTTP builds an HTTP backend rooted at baseURL.
func NewHTTP(baseURL string, opts ...HTTPOption) (*HTTP, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q needs a scheme and host", baseURL)
	}

	cfg := &httpConfig{
		timeout:     defaultHTTPTimeout,
		idleTimeout: defaultHTTPIdleTimeout,
		header:      http.Header{},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.transport == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.IdleConnTimeout = cfg.idleTimeout
		cfg.transport = otelhttp.NewTransport(transport)
	}
	if cfg.traceRequests {
		cfg.transport = newLoggingTransport(cfg.transport)
	}

	return &HTTP{
		base:   base,
		client: &http.Client{Transport: cfg.transport, Timeout: cfg.timeout},
		header: cfg.header,
	}, nil
}

func (h *HTTP) FetchSync(path string) (string, error) {
	return h.Fetch(context.Background(), path)
}

func (h *HTTP) Fetch(ctx context.Context, path string) (string, error) {
	target := h.base.JoinPath(path).String()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", err
	}
	for k, v := range h.header {
		req.Header[k] = v
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", fmt.Errorf("http fetch %s: %w", path, fs.ErrNotExist)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return "", fmt.Errorf("http fetch %s: %w: %d", path, ErrUnexpectedStatus, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResourceSize))
	if err != nil {
		return "", fmt.Errorf("http fetch %s: %w", path, err)
	}
	return string(data), nil
}
