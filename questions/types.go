// Package questions serves quiz questions through a fallback chain: an AI
// provider first, then question sets cached on disk, then a static bank
// compiled into the binary.
package questions

import (
	"fmt"
	"strings"

	"github.com/kbukum/quizgen/errors"
	"github.com/kbukum/quizgen/prompt"
	"github.com/kbukum/quizgen/util"
	"github.com/kbukum/quizgen/validation"
)

// Tier names the source that served a request.
type Tier string

const (
	TierAI     Tier = "ai"
	TierCache  Tier = "cache"
	TierStatic Tier = "static"
	// TierNone is reported when every tier failed.
	TierNone Tier = "none"
)

// Difficulty levels.
const (
	Easy   = "Easy"
	Medium = "Medium"
	Hard   = "Hard"
)

// Built-in topics.
const (
	ComputerScience        = "Computer Science"
	ArtificialIntelligence = "Artificial Intelligence"
	Philosophy             = "Philosophy"
	// DefaultTopic labels AI question sets that came back without a topic.
	DefaultTopic = "General"
)

// Count bounds and topic length applied by Normalize.
const (
	MinCount       = 5
	MaxCount       = 10
	MaxTopicLength = 100
)

// Question is one multiple-choice question.
type Question struct {
	ID           string   `json:"id,omitempty"`
	Text         string   `json:"questionText"`
	Choices      []string `json:"choices"`
	CorrectIndex int      `json:"correctIndex"`
	Topic        string   `json:"topic,omitempty"`
	Difficulty   string   `json:"difficulty,omitempty"`
}

// Check returns an INVALID_REQUEST error listing every structural problem
// with q, or nil when q has text, exactly four non-blank choices and a
// correct index pointing at one of them.
func (q Question) Check() error {
	v := validation.New().
		Required("questionText", q.Text).
		Custom(len(q.Choices) == prompt.ChoiceCount, "choices",
			fmt.Sprintf("must have exactly %d entries", prompt.ChoiceCount)).
		Range("correctIndex", q.CorrectIndex, 0, prompt.ChoiceCount-1)
	for i, c := range q.Choices {
		v.Required(fmt.Sprintf("choices[%d]", i), c)
	}
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

// Valid reports whether Check passes.
func (q Question) Valid() bool {
	return q.Check() == nil
}

// Set is the question-set document models return and the cache stores.
type Set struct {
	Topic      string     `json:"topic"`
	Difficulty string     `json:"difficulty"`
	Questions  []Question `json:"questions"`
}

// Query asks for Count questions on Topic at Difficulty.
type Query struct {
	Topic      string `json:"topic"`
	Difficulty string `json:"difficulty"`
	Count      int    `json:"count"`
}

var topicAliases = map[string]string{
	"cs":                      ComputerScience,
	"computer science":        ComputerScience,
	"ai":                      ArtificialIntelligence,
	"artificial intelligence": ArtificialIntelligence,
	"phil":                    Philosophy,
	"philosophy":              Philosophy,
}

// Normalize canonicalizes a query: known topic aliases are expanded, other
// topics are stripped of control and special characters and cut to
// MaxTopicLength, difficulty is capitalized with unknown values becoming
// Medium, and Count is clamped to [MinCount, MaxCount]. An empty topic is an
// INVALID_REQUEST.
func Normalize(q Query) (Query, error) {
	topic := util.StripSpecial(util.SanitizeString(q.Topic))
	if canonical, ok := topicAliases[strings.ToLower(topic)]; ok {
		topic = canonical
	}
	topic = strings.TrimSpace(util.Truncate(topic, MaxTopicLength))
	if topic == "" {
		return Query{}, errors.InvalidRequest("", "topic is required")
	}
	return Query{
		Topic:      topic,
		Difficulty: NormalizeDifficulty(q.Difficulty),
		Count:      min(max(q.Count, MinCount), MaxCount),
	}, nil
}

// NormalizeDifficulty maps any casing of easy, medium or hard to its
// canonical form. Anything else is Medium.
func NormalizeDifficulty(d string) string {
	switch strings.ToLower(strings.TrimSpace(d)) {
	case "easy":
		return Easy
	case "hard":
		return Hard
	default:
		return Medium
	}
}

// TopicFolder is the cache directory name for a topic: cs, ai and philosophy
// for the built-in topics, otherwise a lowercase hyphenated slug.
func TopicFolder(topic string) string {
	switch topic {
	case ComputerScience:
		return "cs"
	case ArtificialIntelligence:
		return "ai"
	case Philosophy:
		return "philosophy"
	}
	return slug(topic)
}

func slug(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "-")
}

// pick returns at most n questions from qs.
func pick(qs []Question, n int) []Question {
	if n > 0 && len(qs) > n {
		qs = qs[:n]
	}
	out := make([]Question, len(qs))
	copy(out, qs)
	return out
}
