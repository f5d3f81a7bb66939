package llm

import (
	"maps"

	"github.com/google/uuid"

	"github.com/kbukum/quizgen/validation"
)

// Request defaults.
const (
	DefaultMaxTokens   = 1000
	DefaultTemperature = 0.7
)

// GenerationRequest is an immutable completion request. Build one with
// NewRequest.
type GenerationRequest struct {
	id          string
	instruction string
	context     string
	maxTokens   int
	temperature float64
	stream      bool
	hints       map[string]string
}

// ID returns the request id used for tracking and cancellation.
func (r *GenerationRequest) ID() string { return r.id }

// Instruction returns the prompt text.
func (r *GenerationRequest) Instruction() string { return r.instruction }

// Context returns the optional system context.
func (r *GenerationRequest) Context() string { return r.context }

// MaxTokens returns the output token budget.
func (r *GenerationRequest) MaxTokens() int { return r.maxTokens }

// Temperature returns the sampling temperature.
func (r *GenerationRequest) Temperature() float64 { return r.temperature }

// Streaming reports whether the request was built for Stream.
func (r *GenerationRequest) Streaming() bool { return r.stream }

// Hints returns a copy of the provider hints.
func (r *GenerationRequest) Hints() map[string]string {
	return maps.Clone(r.hints)
}

// Hint returns a single provider hint.
func (r *GenerationRequest) Hint(key string) (string, bool) {
	v, ok := r.hints[key]
	return v, ok
}

// Prompt returns the instruction with the context prepended, separated by a
// blank line. Providers without a system role send this as the user turn.
func (r *GenerationRequest) Prompt() string {
	if r.context == "" {
		return r.instruction
	}
	return r.context + "\n\n" + r.instruction
}

// requestFields carries the builder state and its validation rules.
type requestFields struct {
	ID          string            `json:"id"`
	Instruction string            `json:"instruction" validate:"notblank"`
	Context     string            `json:"context"`
	MaxTokens   int               `json:"max_tokens" validate:"gt=0"`
	Temperature float64           `json:"temperature" validate:"gte=0,lte=2"`
	Stream      bool              `json:"stream"`
	Hints       map[string]string `json:"hints"`
}

// RequestBuilder assembles a GenerationRequest.
//
//	req, err := llm.NewRequest("Name three primes").
//		MaxTokens(200).
//		Temperature(0.2).
//		Build()
type RequestBuilder struct {
	f requestFields
}

// NewRequest starts a request for the given instruction with default token
// budget and temperature.
func NewRequest(instruction string) *RequestBuilder {
	return &RequestBuilder{f: requestFields{
		Instruction: instruction,
		MaxTokens:   DefaultMaxTokens,
		Temperature: DefaultTemperature,
	}}
}

// ID sets the request id. Without one, Build assigns a random UUID.
func (b *RequestBuilder) ID(id string) *RequestBuilder {
	b.f.ID = id
	return b
}

// Context sets the system context.
func (b *RequestBuilder) Context(context string) *RequestBuilder {
	b.f.Context = context
	return b
}

// MaxTokens sets the output token budget.
func (b *RequestBuilder) MaxTokens(n int) *RequestBuilder {
	b.f.MaxTokens = n
	return b
}

// Temperature sets the sampling temperature.
func (b *RequestBuilder) Temperature(t float64) *RequestBuilder {
	b.f.Temperature = t
	return b
}

// Stream marks the request for streaming delivery.
func (b *RequestBuilder) Stream(stream bool) *RequestBuilder {
	b.f.Stream = stream
	return b
}

// Hint adds a provider hint.
func (b *RequestBuilder) Hint(key, value string) *RequestBuilder {
	if b.f.Hints == nil {
		b.f.Hints = make(map[string]string)
	}
	b.f.Hints[key] = value
	return b
}

// Hints merges provider hints.
func (b *RequestBuilder) Hints(hints map[string]string) *RequestBuilder {
	for k, v := range hints {
		b.Hint(k, v)
	}
	return b
}

// Build validates the fields and returns the request. Invalid input yields an
// INVALID_REQUEST error.
func (b *RequestBuilder) Build() (*GenerationRequest, error) {
	if err := validation.Validate(b.f); err != nil {
		return nil, err
	}
	id := b.f.ID
	if id == "" {
		id = uuid.NewString()
	}
	return &GenerationRequest{
		id:          id,
		instruction: b.f.Instruction,
		context:     b.f.Context,
		maxTokens:   b.f.MaxTokens,
		temperature: b.f.Temperature,
		stream:      b.f.Stream,
		hints:       maps.Clone(b.f.Hints),
	}, nil
}
