package httpclient

import (
	"fmt"
	"time"

	"github.com/kbukum/quizgen/logger"
	"github.com/kbukum/quizgen/resilience"
	"github.com/kbukum/quizgen/security"
)

const (
	defaultTimeout        = 30 * time.Second
	defaultConnectTimeout = 10 * time.Second
)

// Config configures the HTTP client.
type Config struct {
	// Name identifies the client in logs and circuit breaker callbacks.
	Name string `mapstructure:"name"`

	// BaseURL is the base URL prepended to all request paths.
	BaseURL string `mapstructure:"base_url"`

	// Timeout bounds a whole non-streaming request. Defaults to 30s.
	Timeout time.Duration `mapstructure:"timeout"`

	// ConnectTimeout bounds dialing the server. Defaults to 10s.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`

	// Auth configures default authentication applied to all requests.
	// Individual requests can override this.
	Auth Auth `mapstructure:"-"`

	// Headers are default headers applied to all requests.
	Headers map[string]string `mapstructure:"headers"`

	// Retry configures retry behavior. Nil disables retry.
	Retry *resilience.RetryConfig `mapstructure:"-"`

	// CircuitBreaker configures circuit breaker behavior. Nil disables it.
	CircuitBreaker *resilience.CircuitBreakerConfig `mapstructure:"-"`

	// RateLimiter configures rate limiting. Nil disables it.
	RateLimiter *resilience.RateLimiterConfig `mapstructure:"-"`

	// TLS overrides the transport's TLS settings. Nil keeps system defaults.
	TLS *security.TLSConfig `mapstructure:"-"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = defaultConnectTimeout
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("httpclient: timeout must be positive")
	}
	if c.ConnectTimeout > c.Timeout {
		return fmt.Errorf("httpclient: connect timeout %s exceeds request timeout %s", c.ConnectTimeout, c.Timeout)
	}
	if err := c.TLS.Validate(); err != nil {
		return fmt.Errorf("httpclient: %w", err)
	}
	return nil
}

// DefaultRetryConfig returns a default retry config suitable for HTTP clients.
func DefaultRetryConfig() *resilience.RetryConfig {
	cfg := resilience.DefaultRetryConfig()
	cfg.RetryIf = IsRetryable
	return &cfg
}

// DefaultCircuitBreakerConfig returns a circuit breaker that only counts
// failures of the remote service, not rejected requests, and logs its
// transitions on the logger named after the client.
func DefaultCircuitBreakerConfig(name string) *resilience.CircuitBreakerConfig {
	cfg := resilience.DefaultCircuitBreakerConfig(name)
	cfg.IsFailure = IsServiceFailure
	cfg.OnStateChange = func(name string, from, to resilience.State) {
		fields := logger.Fields("from", from.String(), "to", to.String())
		if to == resilience.StateOpen {
			logger.Get(name).Warn("circuit opened, failing fast", fields)
			return
		}
		logger.Get(name).Info("circuit state changed", fields)
	}
	return &cfg
}
