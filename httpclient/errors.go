package httpclient

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"

	"github.com/kbukum/quizgen/errors"
)

// Error is a failed HTTP exchange. Kind places it in the error taxonomy;
// StatusCode is zero when no response arrived.
type Error struct {
	Kind       errors.ErrorCode
	StatusCode int
	Message    string
	// Body is the response body of a rejected request, if any.
	Body []byte
	Err  error
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("httpclient: %s (HTTP %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("httpclient: %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether sending the same request again may succeed.
// 5xx statuses retry except 501; 4xx statuses retry only for 408 and 429.
func (e *Error) Retryable() bool {
	switch {
	case e.StatusCode >= 500:
		return e.StatusCode != http.StatusNotImplemented
	case e.StatusCode > 0:
		return e.StatusCode == http.StatusRequestTimeout || e.StatusCode == http.StatusTooManyRequests
	}
	return errors.IsRetryableCode(e.Kind)
}

// transportError classifies a failure before any response arrived.
func transportError(ctx context.Context, err error) *Error {
	kind := errors.ErrCodeNetwork
	var ne net.Error
	if ctx.Err() != nil || (stderrors.As(err, &ne) && ne.Timeout()) {
		kind = errors.ErrCodeTimeout
	}
	return &Error{Kind: kind, Message: err.Error(), Err: err}
}

func requestError(format string, args ...any) *Error {
	return &Error{Kind: errors.ErrCodeInvalidRequest, Message: fmt.Sprintf(format, args...)}
}

// statusError classifies a response status, returning nil for 2xx.
func statusError(status int, body []byte) *Error {
	var kind errors.ErrorCode
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		kind = errors.ErrCodeAuth
	case status == http.StatusTooManyRequests:
		kind = errors.ErrCodeRateLimit
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		kind = errors.ErrCodeTimeout
	case status >= 400 && status < 500:
		kind = errors.ErrCodeInvalidRequest
	default:
		kind = errors.ErrCodeProvider
	}
	msg := http.StatusText(status)
	if msg == "" {
		msg = fmt.Sprintf("HTTP %d", status)
	}
	return &Error{Kind: kind, StatusCode: status, Message: msg, Body: body}
}

// AsError unwraps an *Error from err.
func AsError(err error) (*Error, bool) {
	var e *Error
	ok := stderrors.As(err, &e)
	return e, ok
}

// StatusOf returns the response status behind err, or zero.
func StatusOf(err error) int {
	if e, ok := AsError(err); ok {
		return e.StatusCode
	}
	return 0
}

// IsConnection reports a failure to reach the server, including an open
// circuit breaker.
func IsConnection(err error) bool {
	e, ok := AsError(err)
	return ok && e.StatusCode == 0 && e.Kind == errors.ErrCodeNetwork
}

// IsTimeout reports a request that ran out of time before a response.
func IsTimeout(err error) bool {
	e, ok := AsError(err)
	return ok && e.StatusCode == 0 && e.Kind == errors.ErrCodeTimeout
}

// IsServiceFailure reports whether err means the server itself is unhealthy:
// unreachable, timing out, or answering 5xx. Rejected requests are not.
// Errors from outside this package count.
func IsServiceFailure(err error) bool {
	e, ok := AsError(err)
	if !ok {
		return err != nil
	}
	return (e.StatusCode == 0 && e.Kind != errors.ErrCodeInvalidRequest) || e.StatusCode >= 500
}

// IsRetryable reports whether err is an *Error worth retrying.
func IsRetryable(err error) bool {
	e, ok := AsError(err)
	return ok && e.Retryable()
}
