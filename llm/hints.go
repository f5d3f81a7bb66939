package llm

import (
	"strconv"

	"github.com/kbukum/quizgen/errors"
	"github.com/kbukum/quizgen/validation"
)

// Hint keys understood by the bundled providers. Other keys are ignored.
const (
	// HintTopP is the nucleus sampling cutoff, a number in [0,1].
	HintTopP = "top_p"
	// HintSeed fixes the sampling seed, an integer.
	HintSeed = "seed"
	// HintStop is a sequence that ends generation.
	HintStop = "stop"
)

// Sampling is the typed form of the sampling hints of one request.
type Sampling struct {
	TopP *float64
	Seed *int
	Stop []string
}

// Sampling merges the provider's Options.Hints with the request's own hints,
// the request winning, and parses the known keys. A malformed value is an
// INVALID_REQUEST error attributed to providerID.
func (o Options) Sampling(providerID string, req *GenerationRequest) (Sampling, error) {
	hints := make(map[string]string, len(o.Hints))
	for k, v := range o.Hints {
		hints[k] = v
	}
	for k, v := range req.Hints() {
		hints[k] = v
	}

	var s Sampling
	v := validation.New()
	if raw, ok := hints[HintTopP]; ok {
		f, err := strconv.ParseFloat(raw, 64)
		v.Custom(err == nil && f >= 0 && f <= 1, "hints."+HintTopP, "must be a number between 0 and 1")
		s.TopP = &f
	}
	if raw, ok := hints[HintSeed]; ok {
		n, err := strconv.Atoi(raw)
		v.Custom(err == nil, "hints."+HintSeed, "must be an integer")
		s.Seed = &n
	}
	if raw, ok := hints[HintStop]; ok && raw != "" {
		s.Stop = []string{raw}
	}
	if appErr := v.Validate(); appErr != nil {
		return Sampling{}, errors.InvalidRequest(providerID, appErr.Message).WithDetails(appErr.Details)
	}
	return s, nil
}
