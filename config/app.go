package config

import (
	"fmt"
	"time"

	"github.com/kbukum/quizgen/security"
	"github.com/kbukum/quizgen/validation"
)

// ServiceName is the default service name.
const ServiceName = "quizgen"

// AppConfig is the full configuration of the quizgen binary.
type AppConfig struct {
	ServiceConfig `yaml:",inline" mapstructure:",squash"`

	LLM           LLMConfig           `yaml:"llm" mapstructure:"llm"`
	Questions     QuestionsConfig     `yaml:"questions" mapstructure:"questions"`
	Observability ObservabilityConfig `yaml:"observability" mapstructure:"observability"`
}

// LLMConfig configures provider selection and the shared provider runtime.
type LLMConfig struct {
	DefaultProvider string        `yaml:"default_provider" mapstructure:"default_provider" validate:"required,oneof=gemini local mock"`
	// CallTimeout overrides every provider's completion deadline. Zero keeps
	// each provider's own: gemini.timeout, local.timeout, 30s for mock.
	CallTimeout     time.Duration `yaml:"call_timeout" mapstructure:"call_timeout" validate:"gte=0"`
	StreamTimeout   time.Duration `yaml:"stream_timeout" mapstructure:"stream_timeout" validate:"gt=0"`
	Workers         int           `yaml:"workers" mapstructure:"workers" validate:"gte=1,lte=64"`

	Gemini GeminiConfig `yaml:"gemini" mapstructure:"gemini"`
	Local  LocalConfig  `yaml:"local" mapstructure:"local"`
}

// GeminiConfig configures the cloud provider.
type GeminiConfig struct {
	Model             string        `yaml:"model" mapstructure:"model" validate:"required"`
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gt=0"`
	MaxRetries        int           `yaml:"max_retries" mapstructure:"max_retries" validate:"gte=1,lte=10"`
	RequestsPerMinute int           `yaml:"requests_per_minute" mapstructure:"requests_per_minute" validate:"gte=0"`
}

// LocalConfig configures the OpenAI-compatible local provider.
type LocalConfig struct {
	Endpoint       string        `yaml:"endpoint" mapstructure:"endpoint" validate:"required,url"`
	Model          string        `yaml:"model" mapstructure:"model" validate:"required"`
	Timeout        time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gt=0"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" mapstructure:"connect_timeout" validate:"gt=0"`
	// TLS is only consulted for https endpoints.
	TLS security.TLSConfig `yaml:"tls" mapstructure:"tls"`
}

// QuestionsConfig configures the fallback chain.
type QuestionsConfig struct {
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gt=0"`
	CacheDir     string        `yaml:"cache_dir" mapstructure:"cache_dir" validate:"required"`
	WriteThrough bool          `yaml:"write_through" mapstructure:"write_through"`
	PreCheck     bool          `yaml:"pre_check" mapstructure:"pre_check"`
}

// ObservabilityConfig enables OTLP export. Disabled by default.
type ObservabilityConfig struct {
	Enabled    bool    `yaml:"enabled" mapstructure:"enabled"`
	Endpoint   string  `yaml:"endpoint" mapstructure:"endpoint" validate:"required_if=Enabled true"`
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate" validate:"gte=0,lte=1"`
}

// ApplyDefaults fills zero values.
func (c *AppConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = ServiceName
	}
	c.ServiceConfig.ApplyDefaults()

	l := &c.LLM
	if l.DefaultProvider == "" {
		l.DefaultProvider = DefaultProvider
	}
	if l.StreamTimeout <= 0 {
		l.StreamTimeout = 120 * time.Second
	}
	if l.Workers <= 0 {
		l.Workers = 4
	}
	if l.Gemini.Model == "" {
		l.Gemini.Model = "gemini-2.5-flash"
	}
	if l.Gemini.Timeout <= 0 {
		l.Gemini.Timeout = 60 * time.Second
	}
	if l.Gemini.MaxRetries <= 0 {
		l.Gemini.MaxRetries = 3
	}
	if l.Local.Endpoint == "" {
		l.Local.Endpoint = DefaultLocalEndpoint
	}
	if l.Local.Model == "" {
		l.Local.Model = DefaultLocalModel
	}
	if l.Local.Timeout <= 0 {
		l.Local.Timeout = 120 * time.Second
	}
	if l.Local.ConnectTimeout <= 0 {
		l.Local.ConnectTimeout = 10 * time.Second
	}

	if c.Questions.Timeout <= 0 {
		c.Questions.Timeout = 30 * time.Second
	}
	if c.Questions.CacheDir == "" {
		c.Questions.CacheDir = "questions"
	}
	if c.Observability.Enabled && c.Observability.SampleRate == 0 {
		c.Observability.SampleRate = 1.0
	}
}

// ApplySecrets lets resolved secrets override file values for the keys the
// secrets resolver owns (endpoint, model, default provider).
func (c *AppConfig) ApplySecrets(s *Secrets) {
	if s.Has(KeyLocalLLMEndpoint) {
		c.LLM.Local.Endpoint = s.Get(KeyLocalLLMEndpoint)
	}
	if s.Has(KeyLocalLLMModel) {
		c.LLM.Local.Model = s.Get(KeyLocalLLMModel)
	}
	if s.Has(KeyDefaultLLMProvider) {
		c.LLM.DefaultProvider = s.DefaultProvider()
	}
}

// Validate checks struct tags and cross-field rules.
func (c *AppConfig) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := validation.Validate(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.LLM.CallTimeout > 0 && c.LLM.StreamTimeout < c.LLM.CallTimeout {
		return fmt.Errorf("config: llm.stream_timeout (%s) must not be shorter than llm.call_timeout (%s)",
			c.LLM.StreamTimeout, c.LLM.CallTimeout)
	}
	return nil
}

// envAliases maps the flat variable names used by deployments onto nested keys.
var envAliases = map[string]string{
	"llm.default_provider": KeyDefaultLLMProvider,
	"llm.local.endpoint":   KeyLocalLLMEndpoint,
	"llm.local.model":      KeyLocalLLMModel,
}

// Load reads config.yml and .env, applies defaults and secrets, and validates.
func Load(secrets *Secrets, opts ...LoaderOption) (*AppConfig, error) {
	var cfg AppConfig
	opts = append([]LoaderOption{WithEnvAliases(envAliases)}, opts...)
	if err := decode(&cfg, opts...); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if secrets != nil {
		cfg.ApplySecrets(secrets)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
