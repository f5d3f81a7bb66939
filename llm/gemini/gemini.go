// Package gemini is an llm.Provider backed by the Google Gemini API through
// google.golang.org/genai.
package gemini

import (
	"context"
	"iter"
	"time"

	"google.golang.org/genai"

	"github.com/kbukum/quizgen/errors"
	"github.com/kbukum/quizgen/llm"
	"github.com/kbukum/quizgen/logger"
	"github.com/kbukum/quizgen/prompt"
	"github.com/kbukum/quizgen/provider"
	"github.com/kbukum/quizgen/resilience"
	"github.com/kbukum/quizgen/util"
)

const (
	// ProviderID is the registry id.
	ProviderID = "gemini"

	DefaultModel      = "gemini-2.5-flash"
	DefaultTimeout    = 60 * time.Second
	DefaultMaxRetries = 3
	DefaultEndpoint   = "https://generativelanguage.googleapis.com/v1beta"

	missingKey = "Gemini API key is required. Set GOOGLE_API_KEY or GEMINI_API_KEY"
)

func init() {
	llm.Register(ProviderID, Factory)
}

// Generator is the slice of the genai client the provider uses.
// *genai.Models satisfies it.
type Generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	GenerateContentStream(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]
}

// Factory builds a gemini provider. With Options.MetadataOnly an empty
// credential is accepted and no client is created.
func Factory(cfg llm.Config) (llm.Provider, error) {
	if cfg.Options.MetadataOnly {
		return NewWithGenerator(nil, cfg.Options), nil
	}
	return New(context.Background(), cfg.Credential, cfg.Options)
}

// Provider calls Gemini models.
type Provider struct {
	*llm.Runtime
	meta       llm.Metadata
	opts       llm.Options
	gen        Generator
	timeout    time.Duration
	resilience *provider.ResilienceState
	log        *logger.Logger
}

// New creates a provider for the Gemini API. An empty apiKey is an AUTH
// failure.
func New(ctx context.Context, apiKey string, opts llm.Options) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.Auth(ProviderID, missingKey)
	}
	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.Endpoint != "" {
		cc.HTTPOptions.BaseURL = opts.Endpoint
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, errors.ProviderError(ProviderID, "failed to create Gemini client").WithCause(err)
	}
	return NewWithGenerator(client.Models, opts), nil
}

// NewWithGenerator creates a provider around an existing generator.
// opts.Timeout bounds each attempt and, unless opts.CallTimeout is set, the
// whole completion.
func NewWithGenerator(gen Generator, opts llm.Options) *Provider {
	timeout := util.Coalesce(opts.Timeout, DefaultTimeout)
	rc := opts.Runtime(ProviderID)
	if rc.CallTimeout <= 0 {
		rc.CallTimeout = timeout
	}
	rt := llm.NewRuntime(rc)
	retries := util.Coalesce(opts.MaxRetries, DefaultMaxRetries)

	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = retries
	retry.InitialBackoff = 500 * time.Millisecond
	retry.RetryIf = retryable
	retry.OnRetry = func(attempt int, err error, backoff time.Duration) {
		rt.Logger().Warn("retrying Gemini call", logger.Fields(
			"attempt", attempt,
			logger.FieldError, err.Error(),
			"backoff_ms", backoff.Milliseconds(),
		))
	}
	resCfg := provider.ResilienceConfig{Retry: &retry}
	if opts.RequestsPerMinute > 0 {
		rl := resilience.PerMinute(ProviderID, opts.RequestsPerMinute)
		resCfg.RateLimiter = &rl
	}

	return &Provider{
		Runtime:    rt,
		opts:       opts,
		gen:        gen,
		timeout:    timeout,
		resilience: provider.BuildResilience(resCfg),
		log:        rt.Logger(),
		meta: llm.Metadata{
			ID:                ProviderID,
			DisplayName:       "Google Gemini",
			Model:             util.Coalesce(opts.Model, DefaultModel),
			SupportsStreaming: true,
			Endpoint:          util.Coalesce(opts.Endpoint, DefaultEndpoint),
		},
	}
}

// Metadata returns the provider description.
func (p *Provider) Metadata() llm.Metadata { return p.meta }

// IsAvailable sends a tiny prompt and reports whether it succeeded.
func (p *Provider) IsAvailable(ctx context.Context) bool {
	return p.Probe(ctx, func(ctx context.Context) error {
		req, err := llm.NewRequest(prompt.ProbePrompt).MaxTokens(10).Temperature(0.1).Build()
		if err != nil {
			return err
		}
		_, err = p.Complete(ctx, req)
		return err
	})
}

// Complete generates content and waits for it.
func (p *Provider) Complete(ctx context.Context, req *llm.GenerationRequest) (*llm.CompletionResult, error) {
	return p.Runtime.Complete(ctx, req, p.complete)
}

// CompleteAsync generates content on a worker.
func (p *Provider) CompleteAsync(ctx context.Context, req *llm.GenerationRequest) *llm.Future {
	return p.Runtime.CompleteAsync(ctx, req, p.complete)
}

// Stream relays GenerateContentStream chunks as partial events.
func (p *Provider) Stream(ctx context.Context, req *llm.GenerationRequest) (<-chan llm.StreamEvent, error) {
	return p.Runtime.Stream(ctx, req, p.meta.SupportsStreaming, p.stream)
}

// Close stops the runtime. The genai client holds no resources of its own.
func (p *Provider) Close(ctx context.Context) error {
	_, err := p.Shutdown(ctx)
	return err
}

// config maps the request's sampling parameters and hints onto the genai
// generation config.
func (p *Provider) config(req *llm.GenerationRequest) (*genai.GenerateContentConfig, error) {
	sampling, err := p.opts.Sampling(ProviderID, req)
	if err != nil {
		return nil, err
	}
	cfg := &genai.GenerateContentConfig{
		Temperature:     util.Ptr(float32(req.Temperature())),
		MaxOutputTokens: int32(req.MaxTokens()),
		StopSequences:   sampling.Stop,
	}
	if sampling.TopP != nil {
		cfg.TopP = util.Ptr(float32(*sampling.TopP))
	}
	if sampling.Seed != nil {
		cfg.Seed = util.Ptr(int32(*sampling.Seed))
	}
	return cfg, nil
}

func (p *Provider) complete(ctx context.Context, req *llm.GenerationRequest) (*llm.CompletionResult, error) {
	if p.gen == nil {
		return nil, errors.Auth(ProviderID, missingKey)
	}
	cfg, err := p.config(req)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	resp, err := provider.ExecuteWithResilience(ctx, p.resilience, ProviderID, func() (*genai.GenerateContentResponse, error) {
		callCtx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()
		return p.gen.GenerateContent(callCtx, p.meta.Model, genai.Text(req.Prompt()), cfg)
	})
	if err != nil {
		return nil, classify(err)
	}
	if resp == nil {
		return nil, errors.Parse(ProviderID, "empty Gemini response")
	}

	var usage llm.Usage
	if u := resp.UsageMetadata; u != nil {
		usage = llm.Usage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}
	text := resp.Text()
	p.log.Debug("gemini completion received", logger.Fields(
		logger.FieldRequestID, req.ID(),
		logger.FieldModel, p.meta.Model,
		logger.FieldDuration, time.Since(start).Milliseconds(),
		"chars", len(text),
	))
	return llm.NewResult(req.ID(), text, llm.UsageMetadata(ProviderID, p.meta.Model, usage)), nil
}

func (p *Provider) stream(ctx context.Context, req *llm.GenerationRequest, emit func(string) bool) error {
	if p.gen == nil {
		return errors.Auth(ProviderID, missingKey)
	}
	cfg, err := p.config(req)
	if err != nil {
		return err
	}
	for chunk, err := range p.gen.GenerateContentStream(ctx, p.meta.Model, genai.Text(req.Prompt()), cfg) {
		if err != nil {
			return classify(err)
		}
		if chunk == nil {
			continue
		}
		if text := chunk.Text(); text != "" && !emit(text) {
			return ctx.Err()
		}
	}
	return nil
}
