package llm

import (
	"time"

	"github.com/kbukum/quizgen/logger"
	"github.com/kbukum/quizgen/security"
)

// Options tune a provider at construction. Zero values select the provider's
// defaults.
type Options struct {
	// Model overrides the provider's default model.
	Model string
	// Endpoint overrides the provider's base URL.
	Endpoint string
	// Timeout bounds one transport call (HTTP request or SDK call).
	Timeout time.Duration
	// ConnectTimeout bounds connection setup where the transport supports it.
	ConnectTimeout time.Duration
	// CallTimeout bounds a whole sync or async completion.
	CallTimeout time.Duration
	// StreamTimeout is the stream watchdog.
	StreamTimeout time.Duration
	// Workers bounds concurrent completions.
	Workers int
	// MaxRetries is the number of transport attempts for retryable failures.
	MaxRetries int
	// RequestsPerMinute enables a client-side rate limiter when positive.
	RequestsPerMinute int
	// TLS configures the HTTP transport of providers that have one.
	TLS *security.TLSConfig
	// Hints are provider-specific extras.
	Hints map[string]string

	// MockResponse is the canned text of the mock provider.
	MockResponse string
	// MockDelay delays each mock completion.
	MockDelay time.Duration
	// MockWordDelay delays each streamed mock word.
	MockWordDelay time.Duration
	// MockError makes every mock call fail with NETWORK.
	MockError bool

	// MetadataOnly builds a provider for Metadata() alone. Credentials are
	// not required and no transport is opened.
	MetadataOnly bool
	// Logger defaults to logger.Get(provider id).
	Logger *logger.Logger
}

// Runtime derives the runtime configuration for providerID.
func (o Options) Runtime(providerID string) RuntimeConfig {
	return RuntimeConfig{
		ProviderID:    providerID,
		CallTimeout:   o.CallTimeout,
		StreamTimeout: o.StreamTimeout,
		Workers:       o.Workers,
		Logger:        o.Logger,
	}
}

// Hint returns a provider hint.
func (o Options) Hint(key string) (string, bool) {
	v, ok := o.Hints[key]
	return v, ok
}
