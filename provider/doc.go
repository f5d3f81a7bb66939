// Package provider is the generic provider framework shared by the LLM
// backends and the question sources.
//
// A provider has a Name and an availability probe. RequestResponse[I, O]
// adds a single Execute call; Middleware wraps one with logging, metrics,
// tracing or resilience, and Chain composes them:
//
//	wrapped := provider.Chain(
//	    provider.WithLogging[Query, []Question](log),
//	    provider.WithMetrics[Query, []Question](metrics),
//	    provider.WithTracing[Query, []Question]("quizgen"),
//	)(source)
//
// Registry maps names to typed factories. The first registration of a name
// wins and later duplicates are logged and ignored.
package provider
