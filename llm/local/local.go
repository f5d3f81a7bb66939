// Package local is an llm.Provider for OpenAI-compatible inference servers
// running on the developer's machine (LM Studio, llama.cpp server, Ollama's
// /v1 API).
package local

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/kbukum/quizgen/errors"
	"github.com/kbukum/quizgen/httpclient"
	"github.com/kbukum/quizgen/llm"
	"github.com/kbukum/quizgen/logger"
	"github.com/kbukum/quizgen/util"
)

const (
	// ProviderID is the registry id.
	ProviderID = "local"

	DefaultEndpoint       = "http://localhost:1234/v1"
	DefaultModel          = "local-model"
	DefaultTimeout        = 120 * time.Second
	DefaultConnectTimeout = 10 * time.Second
)

func init() {
	llm.Register(ProviderID, Factory)
}

// Factory builds a local provider. The credential, when set, is sent as a
// bearer token.
func Factory(cfg llm.Config) (llm.Provider, error) {
	return New(cfg.Credential, cfg.Options)
}

// Provider talks to a chat completion endpoint in its Dialect.
type Provider struct {
	*llm.Runtime
	meta    llm.Metadata
	dialect Dialect
	opts    llm.Options
	client *httpclient.Client
	log    *logger.Logger
}

// New creates a local provider speaking the OpenAI dialect.
func New(apiKey string, opts llm.Options) (*Provider, error) {
	return NewWithDialect(apiKey, OpenAI{}, opts)
}

// NewWithDialect creates a local provider for a server speaking d. Endpoint,
// Model, Timeout and ConnectTimeout come from opts. Timeout also bounds a
// whole completion unless opts.CallTimeout is set.
func NewWithDialect(apiKey string, d Dialect, opts llm.Options) (*Provider, error) {
	endpoint := strings.TrimRight(util.Coalesce(opts.Endpoint, DefaultEndpoint), "/")
	model := util.Coalesce(opts.Model, DefaultModel)
	timeout := util.Coalesce(opts.Timeout, DefaultTimeout)
	connectTimeout := util.Coalesce(opts.ConnectTimeout, DefaultConnectTimeout)

	httpCfg := httpclient.Config{
		Name:           ProviderID,
		BaseURL:        endpoint,
		Timeout:        timeout,
		ConnectTimeout: min(connectTimeout, timeout),
		Headers:        map[string]string{"Accept": "application/json"},
		CircuitBreaker: httpclient.DefaultCircuitBreakerConfig(ProviderID),
		TLS:            opts.TLS,
	}
	if apiKey != "" {
		httpCfg.Auth = httpclient.BearerAuth(apiKey)
	}
	client, err := httpclient.New(httpCfg)
	if err != nil {
		return nil, errors.InvalidRequest(ProviderID, err.Error()).WithCause(err)
	}

	rc := opts.Runtime(ProviderID)
	if rc.CallTimeout <= 0 {
		rc.CallTimeout = timeout
	}
	rt := llm.NewRuntime(rc)
	p := &Provider{
		Runtime: rt,
		dialect: d,
		opts:    opts,
		client:  client,
		log:     rt.Logger(),
		meta: llm.Metadata{
			ID:                ProviderID,
			DisplayName:       "Local LLM (LM Studio)",
			Model:             model,
			SupportsStreaming: true,
			Endpoint:          endpoint,
		},
	}
	if !opts.MetadataOnly {
		p.log.Info("local provider initialized", logger.Fields(
			"endpoint", endpoint,
			"dialect", d.Name(),
			logger.FieldModel, model,
			"timeout", timeout.String(),
		))
	}
	return p, nil
}

// Metadata returns the provider description.
func (p *Provider) Metadata() llm.Metadata { return p.meta }

// IsAvailable probes GET /models.
func (p *Provider) IsAvailable(ctx context.Context) bool {
	return p.Probe(ctx, p.probe)
}

// Models lists the model ids the server reports as loaded.
func (p *Provider) Models(ctx context.Context) ([]string, error) {
	resp, err := p.client.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: p.dialect.ModelsPath()})
	if err != nil {
		return nil, p.classify(err)
	}
	ids, err := p.dialect.ParseModels(resp.Body)
	if err != nil {
		return nil, errors.Parse(ProviderID, "malformed model list").WithCause(err)
	}
	return ids, nil
}

// Complete posts a chat completion and waits for it.
func (p *Provider) Complete(ctx context.Context, req *llm.GenerationRequest) (*llm.CompletionResult, error) {
	return p.Runtime.Complete(ctx, req, p.complete)
}

// CompleteAsync posts a chat completion on a worker.
func (p *Provider) CompleteAsync(ctx context.Context, req *llm.GenerationRequest) *llm.Future {
	return p.Runtime.CompleteAsync(ctx, req, p.complete)
}

// Stream posts a chat completion with stream=true and relays SSE deltas.
func (p *Provider) Stream(ctx context.Context, req *llm.GenerationRequest) (<-chan llm.StreamEvent, error) {
	return p.Runtime.Stream(ctx, req, p.meta.SupportsStreaming, p.stream)
}

// Close stops the runtime and releases idle connections.
func (p *Provider) Close(ctx context.Context) error {
	first, err := p.Shutdown(ctx)
	if first {
		if cerr := p.client.Close(ctx); cerr != nil && err == nil {
			err = errors.Classify(ProviderID, cerr)
		}
	}
	return err
}

func (p *Provider) probe(ctx context.Context) error {
	resp, err := p.client.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: p.dialect.ModelsPath()})
	if err != nil {
		return p.classify(err)
	}
	if !statusOK(resp) {
		return errors.ProviderError(ProviderID, "unexpected probe status")
	}
	p.log.Debug("local server reachable", logger.Fields("models", string(resp.Body)))
	return nil
}

func (p *Provider) body(req *llm.GenerationRequest, stream bool) (any, error) {
	sampling, err := p.opts.Sampling(ProviderID, req)
	if err != nil {
		return nil, err
	}
	body, err := p.dialect.BuildRequest(req, p.meta.Model, sampling, stream)
	if err != nil {
		return nil, errors.InvalidRequest(ProviderID, err.Error()).WithCause(err)
	}
	return body, nil
}

func (p *Provider) complete(ctx context.Context, req *llm.GenerationRequest) (*llm.CompletionResult, error) {
	body, err := p.body(req, false)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	resp, err := p.client.Do(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   p.dialect.ChatPath(),
		Body:   body,
	})
	if err != nil {
		return nil, p.classify(err)
	}

	text, usage, err := p.dialect.ParseResponse(resp.Body)
	if err != nil {
		return nil, errors.Parse(ProviderID, "malformed chat completion response").WithCause(err)
	}
	p.log.Debug("local completion received", logger.Fields(
		logger.FieldRequestID, req.ID(),
		logger.FieldDuration, time.Since(start).Milliseconds(),
		"chars", len(text),
	))
	return llm.NewResult(req.ID(), text, llm.UsageMetadata(ProviderID, p.meta.Model, usage)), nil
}

func (p *Provider) stream(ctx context.Context, req *llm.GenerationRequest, emit func(string) bool) error {
	body, err := p.body(req, true)
	if err != nil {
		return err
	}
	resp, err := p.client.DoStream(ctx, httpclient.Request{
		Method:  http.MethodPost,
		Path:    p.dialect.ChatPath(),
		Body:    body,
		Headers: map[string]string{"Accept": "text/event-stream"},
	})
	if err != nil {
		return p.classify(err)
	}
	defer resp.Close()

	for ev, err := range resp.Events() {
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errors.Network(ProviderID, "stream interrupted").WithCause(err)
		}
		text, done, err := p.dialect.ParseStreamChunk(ev.Data)
		if err != nil {
			return errors.Parse(ProviderID, "malformed stream chunk").WithCause(err)
		}
		if done {
			return nil
		}
		if text == "" {
			continue
		}
		if !emit(text) {
			return ctx.Err()
		}
	}
	return nil
}
