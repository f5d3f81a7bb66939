package provider

import (
	"context"
	stderrors "errors"

	"github.com/kbukum/quizgen/errors"
	"github.com/kbukum/quizgen/resilience"
)

// ResilienceConfig selects the policies wrapped around a provider call.
// Nil policies are skipped; the zero value is a passthrough.
type ResilienceConfig struct {
	CircuitBreaker *resilience.CircuitBreakerConfig
	Retry          *resilience.RetryConfig
	RateLimiter    *resilience.RateLimiterConfig
	Bulkhead       *resilience.BulkheadConfig
}

func (c ResilienceConfig) IsEmpty() bool {
	return c.CircuitBreaker == nil && c.Retry == nil && c.RateLimiter == nil && c.Bulkhead == nil
}

// ResilienceState is the live form of a ResilienceConfig. Breaker, limiter
// and bulkhead state is shared by every call made through it, so build one
// per provider instance.
type ResilienceState struct {
	retry *resilience.RetryConfig
	cb    *resilience.CircuitBreaker
	rl    *resilience.RateLimiter
	bh    *resilience.Bulkhead
}

// BuildResilience returns nil for an empty config.
func BuildResilience(cfg ResilienceConfig) *ResilienceState {
	if cfg.IsEmpty() {
		return nil
	}
	s := &ResilienceState{retry: cfg.Retry}
	if c := cfg.CircuitBreaker; c != nil {
		s.cb = resilience.NewCircuitBreaker(*c)
	}
	if c := cfg.RateLimiter; c != nil {
		s.rl = resilience.NewRateLimiter(*c)
	}
	if c := cfg.Bulkhead; c != nil {
		s.bh = resilience.NewBulkhead(*c)
	}
	return s
}

// ExecuteWithResilience runs fn as
//
//	rate limiter wait -> bulkhead -> circuit breaker -> retry -> fn
//
// A nil state calls fn directly. Failures produced by the policies
// themselves become *errors.AppError attributed to providerName; errors
// that already carry a kind are returned as they are.
func ExecuteWithResilience[T any](ctx context.Context, s *ResilienceState, providerName string, fn func() (T, error)) (T, error) {
	if s == nil {
		return fn()
	}

	call := fn
	if s.retry != nil {
		next, cfg := call, *s.retry
		call = func() (T, error) { return resilience.Retry(ctx, cfg, next) }
	}
	if s.cb != nil {
		next := call
		call = func() (T, error) {
			var out T
			var callErr error
			if err := s.cb.Execute(func() error {
				out, callErr = next()
				return callErr
			}); callErr == nil && err != nil {
				return out, err
			}
			return out, callErr
		}
	}
	if s.bh != nil {
		next := call
		call = func() (T, error) { return resilience.ExecuteWithResult(ctx, s.bh, next) }
	}

	if s.rl != nil {
		if err := s.rl.Wait(ctx); err != nil {
			var zero T
			return zero, policyError(providerName, err)
		}
	}
	out, err := call()
	return out, policyError(providerName, err)
}

// WithResilience wraps p with the policies in cfg. An empty config returns
// p itself.
func WithResilience[I, O any](p RequestResponse[I, O], cfg ResilienceConfig) RequestResponse[I, O] {
	if cfg.IsEmpty() {
		return p
	}
	return &resilientRR[I, O]{inner: p, state: BuildResilience(cfg)}
}

type resilientRR[I, O any] struct {
	inner RequestResponse[I, O]
	state *ResilienceState
}

func (r *resilientRR[I, O]) Name() string                         { return r.inner.Name() }
func (r *resilientRR[I, O]) IsAvailable(ctx context.Context) bool { return r.inner.IsAvailable(ctx) }

func (r *resilientRR[I, O]) Execute(ctx context.Context, input I) (O, error) {
	return ExecuteWithResilience(ctx, r.state, r.inner.Name(), func() (O, error) {
		return r.inner.Execute(ctx, input)
	})
}

// policyError maps resilience sentinels and bare context errors onto the
// error taxonomy.
func policyError(providerName string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := errors.AsAppError(err); ok {
		return err
	}
	switch {
	case stderrors.Is(err, resilience.ErrCircuitOpen):
		return errors.Network(providerName, "circuit open, provider temporarily unavailable").WithCause(err)
	case stderrors.Is(err, resilience.ErrBulkheadFull), stderrors.Is(err, resilience.ErrBulkheadTimeout):
		return errors.ProviderError(providerName, "concurrency limit reached").WithCause(err)
	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.Timeout(providerName, "call").WithCause(err)
	case stderrors.Is(err, context.Canceled):
		return errors.ProviderError(providerName, "request cancelled").WithCause(err)
	}
	return err
}
