package questions

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/kbukum/quizgen/errors"
	"github.com/kbukum/quizgen/llm"
	"github.com/kbukum/quizgen/logger"
	"github.com/kbukum/quizgen/prompt"
	"github.com/kbukum/quizgen/util"
)

// Generation parameters for question prompts.
const (
	DefaultMaxTokens   = 2000
	LocalMaxTokens     = 2500
	DefaultTemperature = 0.7
)

// AIOption configures an AISource.
type AIOption func(*AISource)

// WithPreamble prepends text to every question prompt.
func WithPreamble(preamble string) AIOption {
	return func(s *AISource) { s.preamble = preamble }
}

// WithMaxTokens overrides the completion budget.
func WithMaxTokens(n int) AIOption {
	return func(s *AISource) { s.maxTokens = n }
}

// WithPreCheck probes the provider before each generation and fails fast
// with NETWORK when it does not answer.
func WithPreCheck() AIOption {
	return func(s *AISource) { s.preCheck = true }
}

// WithWriteThrough stores every successful generation in cache.
func WithWriteThrough(cache *CacheSource) AIOption {
	return func(s *AISource) { s.cache = cache }
}

// LocalOptions are the settings used with locally hosted models: a stricter
// preamble, a larger token budget and a connectivity pre-check.
func LocalOptions() []AIOption {
	return []AIOption{WithPreamble(prompt.LocalPreamble), WithMaxTokens(LocalMaxTokens), WithPreCheck()}
}

// AISource asks an llm.Provider for a question set and parses the reply.
type AISource struct {
	provider  llm.Provider
	preamble  string
	maxTokens int
	preCheck  bool
	cache     *CacheSource
	seq       atomic.Int64
	log       *logger.Logger
}

// NewAISource creates the AI tier over p.
func NewAISource(p llm.Provider, opts ...AIOption) *AISource {
	s := &AISource{
		provider:  p,
		maxTokens: DefaultMaxTokens,
		log:       logger.Get("questions").WithComponent("ai"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns "ai:<provider id>".
func (s *AISource) Name() string { return "ai:" + s.provider.Name() }

// IsAvailable delegates to the provider.
func (s *AISource) IsAvailable(ctx context.Context) bool { return s.provider.IsAvailable(ctx) }

// Execute generates questions for q. The completion is bounded by the
// provider's call timeout. A reply without a single usable question is a
// PARSE failure.
func (s *AISource) Execute(ctx context.Context, q Query) ([]Question, error) {
	id := s.provider.Name()
	if s.preCheck && !s.provider.IsAvailable(ctx) {
		return nil, errors.Network(id, fmt.Sprintf("provider %s is not reachable", id))
	}

	req, err := llm.NewRequest(s.preamble+prompt.GenerateQuestions(q.Topic, q.Difficulty, q.Count)).
		ID(fmt.Sprintf("%s-game-%s-%d", id, slug(q.Topic), s.seq.Add(1))).
		MaxTokens(s.maxTokens).
		Temperature(DefaultTemperature).
		Build()
	if err != nil {
		return nil, err
	}

	res, err := s.provider.CompleteAsync(ctx, req).Wait(ctx)
	if err != nil {
		return nil, err
	}

	qs, err := s.parse(res.Text, q)
	if err != nil {
		s.log.Warn("unusable model response", logger.Fields(
			logger.FieldProvider, id,
			logger.FieldRequestID, req.ID(),
			"preview", util.Truncate(res.Text, 200),
		))
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Store(q.Topic, q.Difficulty, qs); err != nil {
			s.log.Warn("write-through to cache failed", logger.Fields(logger.FieldError, err.Error()))
		}
	}
	return pick(qs, q.Count), nil
}

func (s *AISource) parse(text string, q Query) ([]Question, error) {
	id := s.provider.Name()
	doc := prompt.Sanitize(prompt.ExtractJSON(text))

	var set Set
	if err := json.Unmarshal([]byte(doc), &set); err != nil {
		return nil, errors.Parse(id, "model response is not a question set").WithCause(err)
	}
	topic := util.Coalesce(strings.TrimSpace(set.Topic), DefaultTopic)
	prefix := strings.ToUpper(id) + "_" + strings.ToUpper(q.Difficulty)

	out := make([]Question, 0, len(set.Questions))
	for i, qu := range set.Questions {
		if err := qu.Check(); err != nil {
			s.log.Debug("skipping malformed question", logger.Fields("index", i, logger.FieldError, err.Error()))
			continue
		}
		out = append(out, Question{
			ID:           fmt.Sprintf("%s_%03d", prefix, len(out)+1),
			Text:         strings.TrimSpace(qu.Text),
			Choices:      qu.Choices,
			CorrectIndex: qu.CorrectIndex,
			Topic:        topic,
			Difficulty:   q.Difficulty,
		})
	}
	if len(out) == 0 {
		return nil, errors.Parse(id, "model response contained no usable questions")
	}
	return out, nil
}
