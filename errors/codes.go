package errors

// ErrorCode is the category of a failure.
type ErrorCode string

const (
	// ErrCodeAuth indicates a missing, invalid or rejected credential.
	ErrCodeAuth ErrorCode = "AUTH"
	// ErrCodeNetwork indicates the provider endpoint could not be reached.
	ErrCodeNetwork ErrorCode = "NETWORK"
	// ErrCodeRateLimit indicates the provider throttled the request.
	ErrCodeRateLimit ErrorCode = "RATE_LIMIT"
	// ErrCodeTimeout indicates a deadline elapsed before a result arrived.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeParse indicates the provider output could not be decoded.
	ErrCodeParse ErrorCode = "PARSE"
	// ErrCodeProvider is the catch-all for provider-side failures.
	ErrCodeProvider ErrorCode = "PROVIDER_ERROR"
	// ErrCodeInvalidRequest indicates the caller asked for something invalid.
	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeNetwork:   true,
	ErrCodeRateLimit: true,
	ErrCodeTimeout:   true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}

// Codes returns every error code in declaration order.
func Codes() []ErrorCode {
	return []ErrorCode{
		ErrCodeAuth,
		ErrCodeNetwork,
		ErrCodeRateLimit,
		ErrCodeTimeout,
		ErrCodeParse,
		ErrCodeProvider,
		ErrCodeInvalidRequest,
	}
}
