package llm

import (
	"context"

	"github.com/kbukum/quizgen/errors"
	"github.com/kbukum/quizgen/provider"
)

// Metadata describes a provider. It is computed once at construction.
type Metadata struct {
	ID                string `json:"id"`
	DisplayName       string `json:"display_name"`
	Model             string `json:"model"`
	SupportsStreaming bool   `json:"supports_streaming"`
	Endpoint          string `json:"endpoint"`
}

// Provider is a text-generation backend.
//
// Every failure returned by a Provider is an *errors.AppError. After Close,
// all operations fail with PROVIDER_ERROR.
type Provider interface {
	provider.Provider
	provider.Closeable

	// Metadata returns the static provider description.
	Metadata() Metadata

	// Complete blocks until the completion finishes, the per-call timeout
	// elapses, or ctx is done.
	Complete(ctx context.Context, req *GenerationRequest) (*CompletionResult, error)

	// CompleteAsync starts the completion on a worker and returns at once.
	// Failures surface through the Future.
	CompleteAsync(ctx context.Context, req *GenerationRequest) *Future

	// Stream delivers the completion as fragments on a channel that buffers
	// at most one event and ends with exactly one terminal event. The
	// request must be built with Stream(true).
	Stream(ctx context.Context, req *GenerationRequest) (<-chan StreamEvent, error)

	// Cancel aborts the in-flight request with the given id. It returns true
	// only for a request that was still running, and at most once per id.
	Cancel(requestID string) bool
}

// Collect drains a stream, concatenating fragments until the terminal event.
// A channel that closes before a terminal event is a PROVIDER_ERROR.
func Collect(ctx context.Context, events <-chan StreamEvent) (string, error) {
	var text []byte
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return string(text), errors.ProviderError("", "stream closed without terminal event")
			}
			if ev.Err != nil {
				return string(text), ev.Err
			}
			if ev.Done {
				return string(text), nil
			}
			text = append(text, ev.Text...)
		case <-ctx.Done():
			return string(text), ctx.Err()
		}
	}
}

// completer adapts a Provider to provider.RequestResponse so the generic
// middleware chain can wrap it.
type completer struct {
	p Provider
}

// AsRequestResponse exposes p.Complete as a RequestResponse provider.
func AsRequestResponse(p Provider) provider.RequestResponse[*GenerationRequest, *CompletionResult] {
	return &completer{p: p}
}

func (c *completer) Name() string                         { return c.p.Name() }
func (c *completer) IsAvailable(ctx context.Context) bool { return c.p.IsAvailable(ctx) }
func (c *completer) Execute(ctx context.Context, req *GenerationRequest) (*CompletionResult, error) {
	return c.p.Complete(ctx, req)
}
