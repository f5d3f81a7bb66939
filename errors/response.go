package errors

import (
	stderrors "errors"
)

// Report is the machine-readable form of a failure, as printed by
// `quizgen --error-format json`.
type Report struct {
	Error ReportBody `json:"error"`
}

type ReportBody struct {
	Code      ErrorCode      `json:"code"`
	Provider  string         `json:"provider,omitempty"`
	Message   string         `json:"message"`
	Retryable bool           `json:"retryable"`
	Details   map[string]any `json:"details,omitempty"`
}

// Report returns e in its serializable form.
func (e *AppError) Report() Report {
	return Report{Error: ReportBody{
		Code:      e.Code,
		Provider:  e.Provider,
		Message:   e.Message,
		Retryable: e.Retryable,
		Details:   e.Details,
	}}
}

// ReportOf classifies err first, so plain errors report as PROVIDER_ERROR
// with their text as the message.
func ReportOf(err error) Report {
	return Classify("", err).Report()
}

// AsAppError finds the first *AppError in err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
