package prompt

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/kbukum/quizgen/logger"
)

// ChoiceCount is the number of answer choices every question carries.
const ChoiceCount = 4

// PadChoice fills question choices when a model returns too few.
const PadChoice = "Additional option"

// Sanitize repairs structural mistakes in a question-set document:
//   - more than four choices are truncated to four; a correct index that
//     pointed past the cut resets to 0
//   - fewer than four choices are padded with PadChoice
//   - a correct index outside [0,3] is clamped
//
// It never fails. Input that does not parse, or that needs no repair, is
// returned unchanged, so Sanitize(Sanitize(x)) == Sanitize(x).
func Sanitize(doc string) string {
	log := logger.Get("prompt")

	var root map[string]any
	dec := json.NewDecoder(bytes.NewReader([]byte(doc)))
	dec.UseNumber()
	if err := dec.Decode(&root); err != nil {
		log.Warn("sanitization skipped, document does not parse", logger.Fields(logger.FieldError, err.Error()))
		return doc
	}
	questions, ok := root["questions"].([]any)
	if !ok {
		return doc
	}

	modified := false
	for i, item := range questions {
		q, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if repairQuestion(q, i, log) {
			modified = true
		}
	}
	if !modified {
		return doc
	}

	out, err := json.Marshal(root)
	if err != nil {
		log.Warn("sanitization failed", logger.Fields(logger.FieldError, err.Error()))
		return doc
	}
	log.Info("auto-fixed malformed model response", logger.Fields("questions", len(questions)))
	return string(out)
}

// repairQuestion fixes one question in place and reports whether it changed.
func repairQuestion(q map[string]any, index int, log *logger.Logger) bool {
	modified := false

	if choices, ok := q["choices"].([]any); ok {
		switch {
		case len(choices) > ChoiceCount:
			log.Debug("truncating choices", logger.Fields("question", index, "count", len(choices)))
			q["choices"] = choices[:ChoiceCount]
			modified = true
			if idx, ok := correctIndex(q); ok && idx >= ChoiceCount {
				// The answer was cut off; choice 0 is marked correct but may not be.
				log.Warn("correct choice truncated, index reset to 0", logger.Fields("question", index, "index", idx))
				q["correctIndex"] = 0
			}
		case len(choices) < ChoiceCount:
			log.Debug("padding choices", logger.Fields("question", index, "count", len(choices)))
			for len(choices) < ChoiceCount {
				choices = append(choices, PadChoice)
			}
			q["choices"] = choices
			modified = true
		}
	}

	if idx, ok := correctIndex(q); ok && (idx < 0 || idx > ChoiceCount-1) {
		log.Debug("clamping correct index", logger.Fields("question", index, "index", idx))
		q["correctIndex"] = min(max(idx, 0), ChoiceCount-1)
		modified = true
	}
	return modified
}

// correctIndex reads correctIndex as an integer, accepting numeric strings.
func correctIndex(q map[string]any) (int, bool) {
	switch v := q["correctIndex"].(type) {
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			f, ferr := v.Float64()
			if ferr != nil {
				return 0, false
			}
			return int(f), true
		}
		return int(n), true
	case int:
		return v, true
	case string:
		n, err := strconv.Atoi(v)
		return n, err == nil
	default:
		return 0, false
	}
}
