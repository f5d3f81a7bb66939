package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"strings"

	"github.com/kbukum/quizgen/errors"
	"github.com/kbukum/quizgen/httpclient/sse"
	"github.com/kbukum/quizgen/resilience"
)

// Client sends requests to one inference server. It satisfies
// provider.RequestResponse[Request, *Response].
type Client struct {
	cfg  Config
	http *http.Client
	// streams share the transport but not the whole-request timeout
	streams *http.Client
	cb      *resilience.CircuitBreaker
	rl      *resilience.RateLimiter
}

// New validates cfg and builds the client.
func New(cfg Config) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: cfg.ConnectTimeout}).DialContext
	tlsCfg, err := cfg.TLS.Build()
	if err != nil {
		return nil, fmt.Errorf("httpclient: %w", err)
	}
	if tlsCfg != nil {
		transport.TLSClientConfig = tlsCfg
	}

	c := &Client{
		cfg:     cfg,
		http:    &http.Client{Transport: transport, Timeout: cfg.Timeout},
		streams: &http.Client{Transport: transport},
	}
	if cfg.CircuitBreaker != nil {
		c.cb = resilience.NewCircuitBreaker(*cfg.CircuitBreaker)
	}
	if cfg.RateLimiter != nil {
		c.rl = resilience.NewRateLimiter(*cfg.RateLimiter)
	}
	return c, nil
}

// Name returns Config.Name.
func (c *Client) Name() string { return c.cfg.Name }

// IsAvailable is false while the circuit breaker is open.
func (c *Client) IsAvailable(context.Context) bool {
	return c.cb == nil || c.cb.State() != resilience.StateOpen
}

// Execute is Do.
func (c *Client) Execute(ctx context.Context, req Request) (*Response, error) {
	return c.Do(ctx, req)
}

// Close drops idle connections.
func (c *Client) Close(context.Context) error {
	c.http.CloseIdleConnections()
	return nil
}

// Do sends req and reads the whole response. A non-2xx status returns both
// the response and an *Error.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if c.cfg.Retry == nil {
		return c.guarded(ctx, req)
	}
	return resilience.Retry(ctx, *c.cfg.Retry, func() (*Response, error) {
		return c.guarded(ctx, req)
	})
}

// guarded sends one attempt through the rate limiter and circuit breaker.
func (c *Client) guarded(ctx context.Context, req Request) (*Response, error) {
	if c.rl != nil {
		if err := c.rl.Wait(ctx); err != nil {
			return nil, transportError(ctx, err)
		}
	}
	if c.cb == nil {
		return c.send(ctx, req)
	}

	var resp *Response
	err := c.cb.Execute(func() error {
		var err error
		resp, err = c.send(ctx, req)
		return err
	})
	if stderrors.Is(err, resilience.ErrCircuitOpen) {
		return nil, &Error{Kind: errors.ErrCodeNetwork, Message: "circuit open after repeated failures", Err: err}
	}
	return resp, err
}

func (c *Client) send(ctx context.Context, req Request) (*Response, error) {
	httpReq, err := c.build(ctx, req)
	if err != nil {
		return nil, err
	}
	raw, err := c.http.Do(httpReq)
	if err != nil {
		return nil, transportError(ctx, err)
	}
	defer func() { _ = raw.Body.Close() }()

	body, err := io.ReadAll(raw.Body)
	if err != nil {
		return nil, transportError(ctx, fmt.Errorf("read response body: %w", err))
	}
	resp := &Response{StatusCode: raw.StatusCode, Headers: firstValues(raw.Header), Body: body}
	if se := statusError(raw.StatusCode, body); se != nil {
		return resp, se
	}
	return resp, nil
}

// DoStream sends req and returns the open event stream. Only the context
// bounds a stream; retry and the circuit breaker are not applied.
func (c *Client) DoStream(ctx context.Context, req Request) (*Stream, error) {
	httpReq, err := c.build(ctx, req)
	if err != nil {
		return nil, err
	}
	raw, err := c.streams.Do(httpReq)
	if err != nil {
		return nil, transportError(ctx, err)
	}

	if raw.StatusCode >= 300 {
		body, _ := io.ReadAll(raw.Body)
		_ = raw.Body.Close()
		return nil, statusError(raw.StatusCode, body)
	}
	if mt, _, _ := mime.ParseMediaType(raw.Header.Get("Content-Type")); mt != "text/event-stream" {
		_ = raw.Body.Close()
		return nil, &Error{
			Kind:       errors.ErrCodeParse,
			StatusCode: raw.StatusCode,
			Message:    fmt.Sprintf("expected text/event-stream, got %q", raw.Header.Get("Content-Type")),
		}
	}
	return &Stream{
		StatusCode: raw.StatusCode,
		Headers:    firstValues(raw.Header),
		Reader:     sse.NewReader(raw.Body),
		raw:        raw,
	}, nil
}

func (c *Client) build(ctx context.Context, req Request) (*http.Request, error) {
	url := req.Path
	if c.cfg.BaseURL != "" && !strings.Contains(req.Path, "://") {
		url = strings.TrimRight(c.cfg.BaseURL, "/") + "/" + strings.TrimLeft(req.Path, "/")
	}

	body, contentType, err := encode(req.Body)
	if err != nil {
		return nil, requestError("encode body: %v", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, url, body)
	if err != nil {
		return nil, requestError("create request: %v", err)
	}

	for k, v := range c.cfg.Headers {
		httpReq.Header.Set(k, v)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if contentType != "" && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	if auth := firstAuth(req.Auth, c.cfg.Auth); auth != nil {
		auth(httpReq)
	}
	return httpReq, nil
}

func firstAuth(a, b Auth) Auth {
	if a != nil {
		return a
	}
	return b
}

func encode(body any) (io.Reader, string, error) {
	switch v := body.(type) {
	case nil:
		return nil, "", nil
	case io.Reader:
		return v, "", nil
	case []byte:
		return bytes.NewReader(v), "", nil
	case string:
		return strings.NewReader(v), "text/plain", nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, "", err
	}
	return bytes.NewReader(data), "application/json", nil
}

func firstValues(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}
