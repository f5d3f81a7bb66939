// Package mock is a canned-response llm.Provider for tests and offline runs.
package mock

import (
	"context"
	"strings"
	"time"

	"github.com/kbukum/quizgen/errors"
	"github.com/kbukum/quizgen/llm"
	"github.com/kbukum/quizgen/util"
)

const (
	// ProviderID is the registry id.
	ProviderID = "mock"

	DefaultResponse  = "Mock LLM response for testing"
	DefaultModel     = "mock-model-v1"
	DefaultEndpoint  = "mock://localhost"
	DefaultWordDelay = 50 * time.Millisecond
)

func init() {
	llm.Register(ProviderID, Factory)
}

// Factory builds a mock provider from registry config. No credential is
// needed.
func Factory(cfg llm.Config) (llm.Provider, error) {
	return New(cfg.Options), nil
}

// Provider returns canned text, optionally after a delay or as a failure.
type Provider struct {
	*llm.Runtime
	meta      llm.Metadata
	response  string
	delay     time.Duration
	wordDelay time.Duration
	fail      bool
}

// New creates a mock provider from options: MockResponse, MockDelay,
// MockWordDelay, MockError and Model are honored.
func New(opts llm.Options) *Provider {
	p := &Provider{
		Runtime:   llm.NewRuntime(opts.Runtime(ProviderID)),
		response:  util.Coalesce(opts.MockResponse, DefaultResponse),
		delay:     opts.MockDelay,
		wordDelay: opts.MockWordDelay,
		fail:      opts.MockError,
	}
	if p.wordDelay <= 0 {
		p.wordDelay = DefaultWordDelay
	}
	p.meta = llm.Metadata{
		ID:                ProviderID,
		DisplayName:       "Mock Provider (Testing)",
		Model:             util.Coalesce(opts.Model, DefaultModel),
		SupportsStreaming: true,
		Endpoint:          DefaultEndpoint,
	}
	return p
}

// Metadata returns the provider description.
func (p *Provider) Metadata() llm.Metadata { return p.meta }

// IsAvailable is false in error mode and after Close.
func (p *Provider) IsAvailable(ctx context.Context) bool {
	return p.Probe(ctx, func(context.Context) error {
		if p.fail {
			return errSimulated()
		}
		return nil
	})
}

// Complete returns the canned response.
func (p *Provider) Complete(ctx context.Context, req *llm.GenerationRequest) (*llm.CompletionResult, error) {
	return p.Runtime.Complete(ctx, req, p.complete)
}

// CompleteAsync returns the canned response through a future.
func (p *Provider) CompleteAsync(ctx context.Context, req *llm.GenerationRequest) *llm.Future {
	return p.Runtime.CompleteAsync(ctx, req, p.complete)
}

// Stream emits the canned response word by word.
func (p *Provider) Stream(ctx context.Context, req *llm.GenerationRequest) (<-chan llm.StreamEvent, error) {
	if p.fail && !p.IsClosed() {
		return nil, errSimulated()
	}
	return p.Runtime.Stream(ctx, req, p.meta.SupportsStreaming, p.stream)
}

// Close stops the runtime.
func (p *Provider) Close(ctx context.Context) error {
	_, err := p.Shutdown(ctx)
	return err
}

func (p *Provider) complete(ctx context.Context, req *llm.GenerationRequest) (*llm.CompletionResult, error) {
	if err := sleep(ctx, p.delay); err != nil {
		return nil, err
	}
	if p.fail {
		return nil, errSimulated()
	}
	promptTokens := util.CountWords(req.Prompt())
	completionTokens := util.CountWords(p.response)
	meta := llm.UsageMetadata(ProviderID, p.meta.Model, llm.Usage{
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      promptTokens + completionTokens,
	})
	return llm.NewResult(req.ID(), p.response, meta), nil
}

func (p *Provider) stream(ctx context.Context, req *llm.GenerationRequest, emit func(string) bool) error {
	words := strings.Fields(p.response)
	for i, w := range words {
		if i < len(words)-1 {
			w += " "
		}
		if !emit(w) {
			return ctx.Err()
		}
		if err := sleep(ctx, p.wordDelay); err != nil {
			return err
		}
	}
	return nil
}

func errSimulated() error {
	return errors.Network(ProviderID, "Simulated network error")
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
