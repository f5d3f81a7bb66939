package config

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"

	"github.com/kbukum/quizgen/logger"
)

// Secret keys understood by the providers.
const (
	KeyGoogleAPIKey       = "GOOGLE_API_KEY"
	KeyGeminiAPIKey       = "GEMINI_API_KEY"
	KeyOpenAIAPIKey       = "OPENAI_API_KEY"
	KeyLocalLLMEndpoint   = "LOCAL_LLM_ENDPOINT"
	KeyLocalLLMModel      = "LOCAL_LLM_MODEL"
	KeyDefaultLLMProvider = "DEFAULT_LLM_PROVIDER"
)

// Defaults used when a secret is absent.
const (
	DefaultLocalEndpoint = "http://localhost:1234/v1"
	DefaultLocalModel    = "local-model"
	DefaultProvider      = "gemini"
)

// CredentialsFile is the per-user credentials path relative to the home directory.
var CredentialsFile = filepath.Join(".quizgen", "credentials.properties")

var secretKeys = []string{
	KeyGoogleAPIKey,
	KeyGeminiAPIKey,
	KeyOpenAIAPIKey,
	KeyLocalLLMEndpoint,
	KeyLocalLLMModel,
	KeyDefaultLLMProvider,
}

// Secrets holds API keys and endpoints resolved from, in increasing priority:
// the home credentials file, a .env file, the process environment and
// explicit overrides. Values are never logged.
type Secrets struct {
	values map[string]string
}

type secretsOptions struct {
	fs        afero.Fs
	homeDir   string
	envFiles  []string
	lookupEnv func(string) (string, bool)
	overrides map[string]string
}

// SecretsOption configures LoadSecrets.
type SecretsOption func(*secretsOptions)

// WithSecretsFs reads credential files from fs instead of the OS filesystem.
func WithSecretsFs(fs afero.Fs) SecretsOption {
	return func(o *secretsOptions) { o.fs = fs }
}

// WithHomeDir overrides the directory holding CredentialsFile.
func WithHomeDir(dir string) SecretsOption {
	return func(o *secretsOptions) { o.homeDir = dir }
}

// WithEnvFiles sets the .env candidates; the first existing one is read.
func WithEnvFiles(paths ...string) SecretsOption {
	return func(o *secretsOptions) { o.envFiles = paths }
}

// WithLookupEnv replaces os.LookupEnv.
func WithLookupEnv(fn func(string) (string, bool)) SecretsOption {
	return func(o *secretsOptions) { o.lookupEnv = fn }
}

// WithOverrides sets values that win over every other source.
func WithOverrides(values map[string]string) SecretsOption {
	return func(o *secretsOptions) { o.overrides = values }
}

// LoadSecrets resolves all known secrets. Missing or unreadable files are
// skipped with a log line; LoadSecrets never fails.
func LoadSecrets(opts ...SecretsOption) *Secrets {
	o := secretsOptions{
		fs:        afero.NewOsFs(),
		envFiles:  []string{".env", filepath.Join("..", ".env")},
		lookupEnv: os.LookupEnv,
	}
	if home, err := os.UserHomeDir(); err == nil {
		o.homeDir = home
	}
	for _, opt := range opts {
		opt(&o)
	}

	log := logger.Get("config")
	s := &Secrets{values: make(map[string]string)}

	if o.homeDir != "" {
		path := filepath.Join(o.homeDir, CredentialsFile)
		if vals, ok := readKeyValueFile(o.fs, path, log); ok {
			for k, v := range vals {
				if v = strings.TrimSpace(v); v != "" {
					s.values[k] = v
				}
			}
			log.Debug("loaded home credentials", logger.Fields("keys", len(vals)))
		}
	}

	for _, path := range o.envFiles {
		vals, ok := readKeyValueFile(o.fs, path, log)
		if !ok {
			continue
		}
		for k, v := range vals {
			v = strings.TrimSpace(v)
			if v == "" || isPlaceholder(v) {
				continue
			}
			s.values[k] = v
		}
		log.Debug("loaded .env secrets", logger.Fields("path", path))
		break
	}

	for _, key := range secretKeys {
		if v, ok := o.lookupEnv(key); ok && strings.TrimSpace(v) != "" {
			s.values[key] = strings.TrimSpace(v)
		}
	}

	for k, v := range o.overrides {
		if v != "" {
			s.values[k] = v
		}
	}
	return s
}

func readKeyValueFile(fs afero.Fs, path string, log *logger.Logger) (map[string]string, bool) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, false
	}
	defer func() { _ = f.Close() }()

	vals, err := godotenv.Parse(f)
	if err != nil {
		log.Warn("unreadable credentials file", logger.Fields("path", path, logger.FieldError, err.Error()))
		return nil, false
	}
	return vals, true
}

// isPlaceholder reports template values such as "your_api_key_here".
func isPlaceholder(v string) bool {
	return strings.Contains(v, "your_") || strings.Contains(v, "_here")
}

// Get returns the secret for key, or "" when absent.
func (s *Secrets) Get(key string) string {
	return s.values[key]
}

// GetOr returns the secret for key, or def when absent.
func (s *Secrets) GetOr(key, def string) string {
	if v, ok := s.values[key]; ok {
		return v
	}
	return def
}

// Has reports whether a non-empty secret exists for key.
func (s *Secrets) Has(key string) bool {
	return s.values[key] != ""
}

// Keys lists the resolved secret names, never their values.
func (s *Secrets) Keys() []string {
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GeminiAPIKey prefers GOOGLE_API_KEY over the legacy GEMINI_API_KEY.
func (s *Secrets) GeminiAPIKey() string {
	if v := s.Get(KeyGoogleAPIKey); v != "" {
		return v
	}
	return s.Get(KeyGeminiAPIKey)
}

// LocalEndpoint returns the OpenAI-compatible server base URL.
func (s *Secrets) LocalEndpoint() string {
	return s.GetOr(KeyLocalLLMEndpoint, DefaultLocalEndpoint)
}

// LocalModel returns the model name sent to the local server.
func (s *Secrets) LocalModel() string {
	return s.GetOr(KeyLocalLLMModel, DefaultLocalModel)
}

// DefaultProvider returns the provider id used when none is requested.
func (s *Secrets) DefaultProvider() string {
	return strings.ToLower(s.GetOr(KeyDefaultLLMProvider, DefaultProvider))
}

// CredentialFor returns the credential a provider id needs, or "".
func (s *Secrets) CredentialFor(providerID string) string {
	switch providerID {
	case "gemini":
		return s.GeminiAPIKey()
	case "local":
		return s.Get(KeyOpenAIAPIKey)
	default:
		return ""
	}
}
