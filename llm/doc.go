// Package llm is the provider-neutral text generation layer.
//
// It defines the request and result model ([GenerationRequest],
// [CompletionResult], [StreamEvent]), the [Provider] contract with sync,
// async and streamed completion plus cancellation, and the [Runtime] that
// concrete providers embed for request tracking, the worker pool and the
// call and stream timeouts.
//
// Providers register themselves with the default [Registry] from init,
// similar to database/sql drivers:
//
//	import _ "github.com/kbukum/quizgen/llm/gemini"
//
//	p, err := llm.DefaultRegistry().Create("gemini", apiKey, llm.Options{})
//	req, err := llm.NewRequest("Say hello").MaxTokens(50).Build()
//	res, err := p.Complete(ctx, req)
//
// Every failure crossing the [Provider] boundary is an *errors.AppError
// carrying one of the taxonomy codes.
package llm
