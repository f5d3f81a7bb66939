package errors

import (
	"context"
	stderrors "errors"
	"fmt"
)

// AppError is a categorized failure.
type AppError struct {
	// Code is the failure category.
	Code ErrorCode `json:"code"`
	// Provider is the id of the provider that raised the failure, if any.
	Provider string `json:"provider,omitempty"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	prefix := string(e.Code)
	if e.Provider != "" {
		prefix = fmt.Sprintf("%s [%s]", e.Code, e.Provider)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, provider, message string) *AppError {
	return &AppError{
		Code:      code,
		Provider:  provider,
		Message:   message,
		Retryable: IsRetryableCode(code),
	}
}

// --- Constructors, one per category ---

// Auth creates an AUTH failure.
func Auth(provider, message string) *AppError {
	return New(ErrCodeAuth, provider, message)
}

// Network creates a NETWORK failure.
func Network(provider, message string) *AppError {
	return New(ErrCodeNetwork, provider, message)
}

// RateLimited creates a RATE_LIMIT failure.
func RateLimited(provider, message string) *AppError {
	if message == "" {
		message = "Too many requests. Please wait a moment and try again."
	}
	return New(ErrCodeRateLimit, provider, message)
}

// Timeout creates a TIMEOUT failure for the named operation.
func Timeout(provider, operation string) *AppError {
	return New(ErrCodeTimeout, provider, fmt.Sprintf("%s timed out", operation)).
		WithDetail("operation", operation)
}

// Parse creates a PARSE failure.
func Parse(provider, message string) *AppError {
	return New(ErrCodeParse, provider, message)
}

// ProviderError creates a PROVIDER_ERROR failure.
func ProviderError(provider, message string) *AppError {
	return New(ErrCodeProvider, provider, message)
}

// InvalidRequest creates an INVALID_REQUEST failure.
func InvalidRequest(provider, message string) *AppError {
	return New(ErrCodeInvalidRequest, provider, message)
}

// Closed is the failure returned by a provider after Close.
func Closed(provider string) *AppError {
	return ProviderError(provider, "Provider already closed")
}

// --- Classification ---

// CodeOf returns the category of err. Context deadlines classify as TIMEOUT,
// everything else that is not an AppError as PROVIDER_ERROR.
func CodeOf(err error) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return ErrCodeTimeout
	}
	return ErrCodeProvider
}

// Classify converts err into an AppError attributed to provider. Errors that
// are already categorized keep their code; a missing provider id is filled in.
func Classify(provider string, err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := AsAppError(err); ok {
		if appErr.Provider == "" {
			appErr.Provider = provider
		}
		return appErr
	}
	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		return Timeout(provider, "request").WithCause(err)
	case stderrors.Is(err, context.Canceled):
		return ProviderError(provider, "request cancelled").WithCause(err)
	default:
		return ProviderError(provider, err.Error()).WithCause(err)
	}
}

// Is reports whether err carries the given code.
func Is(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}
