// Package prompt builds question-generation prompts and repairs the JSON
// that models send back.
package prompt

import "fmt"

// ProbePrompt is the cheapest prompt that proves a provider answers.
const ProbePrompt = "Say 'OK' if you can read this."

// TestPrompt asks for a fixed JSON document; a round trip through
// ExtractJSON proves the model follows format instructions.
const TestPrompt = `Respond with exactly this JSON: {"status":"ok","message":"Connection successful"}`

// LocalPreamble is prepended for local models, which drift into prose more
// readily than hosted ones.
const LocalPreamble = "You are a question generator for a quiz game. Generate questions in valid JSON format ONLY. " +
	"Do not include any explanation or markdown, just the JSON.\n\n"

const questionsTemplate = `Generate %d multiple-choice questions about %s at %s difficulty level.

CRITICAL CONSTRAINT: Every question must have EXACTLY 4 choices. Not 3, not 5, exactly 4.

You MUST respond with ONLY valid JSON matching this EXACT structure:

{
  "topic": %q,
  "difficulty": %q,
  "questions": [
    {
      "questionText": "Example question?",
      "choices": [
        "First choice",
        "Second choice",
        "Third choice",
        "Fourth choice"
      ],
      "correctIndex": 0
    }
  ]
}

MANDATORY RULES - FOLLOW EXACTLY:
1. EXACTLY 4 choices per question - count them: [0, 1, 2, 3]
2. correctIndex must be 0, 1, 2, or 3 (matching one of the 4 choices)
3. NO markdown formatting - pure JSON only
4. NO text outside the JSON structure
5. Each "choices" array MUST contain exactly 4 strings

Difficulty guidelines:
- Easy: Basic definitions, simple facts
- Medium: Applied concepts, moderate reasoning
- Hard: Deep analysis, complex scenarios

REMEMBER: 4 choices per question. Always 4. Never more, never less.

Generate valid JSON now:`

// GenerateQuestions builds the instruction asking for count questions on
// topic at the given difficulty, in the question-set JSON shape.
func GenerateQuestions(topic, difficulty string, count int) string {
	return fmt.Sprintf(questionsTemplate, count, topic, difficulty, topic, difficulty)
}
