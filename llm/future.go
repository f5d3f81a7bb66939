package llm

import (
	"context"
	"sync"

	"github.com/kbukum/quizgen/errors"
)

// Future is the pending outcome of CompleteAsync. It resolves exactly once.
type Future struct {
	provider string

	once   sync.Once
	done   chan struct{}
	result *CompletionResult
	err    error
}

func newFuture(provider string) *Future {
	return &Future{provider: provider, done: make(chan struct{})}
}

// Resolved returns a future that is already complete. The provider of an
// AppError outcome is kept for Wait.
func Resolved(result *CompletionResult, err error) *Future {
	var provider string
	if appErr, ok := errors.AsAppError(err); ok {
		provider = appErr.Provider
	}
	f := newFuture(provider)
	f.resolve(result, err)
	return f
}

// resolve records the outcome. Later calls are ignored.
func (f *Future) resolve(result *CompletionResult, err error) bool {
	resolved := false
	f.once.Do(func() {
		f.result, f.err = result, err
		close(f.done)
		resolved = true
	})
	return resolved
}

// Done is closed once the future resolves.
func (f *Future) Done() <-chan struct{} { return f.done }

// Wait blocks until the future resolves or ctx is done. An outcome that is
// already available wins over an ended ctx. Giving up on the wait does not
// cancel the request; use Provider.Cancel for that.
func (f *Future) Wait(ctx context.Context) (*CompletionResult, error) {
	select {
	case <-f.done:
		return f.result, f.err
	default:
	}
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		return nil, errors.Classify(f.provider, ctx.Err())
	}
}
