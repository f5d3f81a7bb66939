package llm

import (
	"maps"
	"strconv"
)

// Metadata keys set on a CompletionResult.
const (
	MetaModel            = "model"
	MetaProvider         = "provider"
	MetaPromptTokens     = "prompt_tokens"
	MetaCompletionTokens = "completion_tokens"
	MetaTotalTokens      = "total_tokens"
)

// CompletionResult is the outcome of a successful completion.
type CompletionResult struct {
	RequestID string
	Text      string
	metadata  map[string]string
}

// NewResult builds a result. The metadata map is copied.
func NewResult(requestID, text string, metadata map[string]string) *CompletionResult {
	return &CompletionResult{
		RequestID: requestID,
		Text:      text,
		metadata:  maps.Clone(metadata),
	}
}

// Metadata returns a copy of the result metadata.
func (r *CompletionResult) Metadata() map[string]string {
	m := maps.Clone(r.metadata)
	if m == nil {
		m = map[string]string{}
	}
	return m
}

// Meta returns one metadata value, or "" when absent.
func (r *CompletionResult) Meta(key string) string {
	return r.metadata[key]
}

// Usage is a token accounting triple.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// UsageMetadata renders model, provider and token counts as result metadata.
func UsageMetadata(providerID, model string, u Usage) map[string]string {
	return map[string]string{
		MetaProvider:         providerID,
		MetaModel:            model,
		MetaPromptTokens:     strconv.Itoa(u.PromptTokens),
		MetaCompletionTokens: strconv.Itoa(u.CompletionTokens),
		MetaTotalTokens:      strconv.Itoa(u.TotalTokens),
	}
}
