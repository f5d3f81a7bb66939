package provider

import "context"

// RequestResponse represents a provider that takes one input and returns one output.
// LLM completions, question sources and HTTP calls all take this shape.
type RequestResponse[I, O any] interface {
	Provider
	Execute(ctx context.Context, input I) (O, error)
}

// Func adapts a plain function into a RequestResponse provider.
type Func[I, O any] struct {
	ProviderName string
	Fn           func(ctx context.Context, input I) (O, error)
	// Available overrides IsAvailable. Nil means always available.
	Available func(ctx context.Context) bool
}

// Name returns the provider name.
func (f *Func[I, O]) Name() string { return f.ProviderName }

// IsAvailable reports availability.
func (f *Func[I, O]) IsAvailable(ctx context.Context) bool {
	if f.Available == nil {
		return true
	}
	return f.Available(ctx)
}

// Execute calls the wrapped function.
func (f *Func[I, O]) Execute(ctx context.Context, input I) (O, error) {
	return f.Fn(ctx, input)
}
