package llm

import (
	"context"
	"fmt"

	"github.com/kbukum/quizgen/errors"
	"github.com/kbukum/quizgen/logger"
	"github.com/kbukum/quizgen/provider"
)

// Config is what a provider factory receives.
type Config struct {
	// Credential is the API key, empty for providers that need none.
	Credential string
	Options    Options
}

// Factory builds a provider.
type Factory = provider.Factory[Provider, Config]

// Registry maps provider ids to factories.
type Registry struct {
	factories *provider.Registry[Provider, Config]
	log       *logger.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(log *logger.Logger) *Registry {
	if log == nil {
		log = logger.Get("llm")
	}
	return &Registry{
		factories: provider.NewRegistry[Provider, Config](log),
		log:       log,
	}
}

// Register adds a factory. The first registration of an id wins; a
// duplicate is logged and Register returns false.
func (r *Registry) Register(id string, f Factory) bool {
	return r.factories.Register(id, f)
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool { return r.factories.Has(id) }

// IDs returns the registered ids in sorted order.
func (r *Registry) IDs() []string { return r.factories.List() }

// Create instantiates the provider registered under id.
func (r *Registry) Create(id, credential string, opts Options) (Provider, error) {
	if !r.factories.Has(id) {
		return nil, errors.InvalidRequest(id,
			fmt.Sprintf("Provider not found: %s. Available: %v", id, r.IDs()))
	}
	p, err := r.factories.Create(id, Config{Credential: credential, Options: opts})
	if err != nil {
		return nil, errors.Classify(id, err)
	}
	return p, nil
}

// ListMetadata instantiates every provider transiently to read its
// metadata. Providers that fail to build are logged and skipped.
func (r *Registry) ListMetadata(ctx context.Context) []Metadata {
	ids := r.IDs()
	out := make([]Metadata, 0, len(ids))
	for _, id := range ids {
		p, err := r.Create(id, "", Options{MetadataOnly: true})
		if err != nil {
			r.log.Warn("skipping provider metadata", logger.Fields(
				logger.FieldProvider, id,
				logger.FieldError, err.Error(),
			))
			continue
		}
		out = append(out, p.Metadata())
		if err := p.Close(ctx); err != nil {
			r.log.Warn("closing metadata provider failed", logger.Fields(
				logger.FieldProvider, id,
				logger.FieldError, err.Error(),
			))
		}
	}
	return out
}

var defaultRegistry = NewRegistry(nil)

// DefaultRegistry returns the process-wide registry. Provider packages add
// themselves to it from init, so importing them is enough:
//
//	import (
//		_ "github.com/kbukum/quizgen/llm/gemini"
//		_ "github.com/kbukum/quizgen/llm/local"
//		_ "github.com/kbukum/quizgen/llm/mock"
//	)
func DefaultRegistry() *Registry { return defaultRegistry }

// Register adds a factory to the default registry.
func Register(id string, f Factory) bool { return defaultRegistry.Register(id, f) }
