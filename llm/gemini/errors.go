package gemini

import (
	"context"
	stderrors "errors"
	"net"
	"strconv"
	"strings"

	"google.golang.org/genai"

	"github.com/kbukum/quizgen/errors"
)

// statusCode extracts the HTTP status of a genai API failure, or 0.
func statusCode(err error) int {
	var apiErr genai.APIError
	if stderrors.As(err, &apiErr) {
		return apiErr.Code
	}
	var apiErrPtr *genai.APIError
	if stderrors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code
	}
	return 0
}

// retryable reports whether the API asked us to come back later.
func retryable(err error) bool {
	switch statusCode(err) {
	case 408, 429, 503:
		return true
	default:
		return false
	}
}

// classify maps SDK failures onto the taxonomy by status code and message.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := errors.AsAppError(err); ok {
		return err
	}

	code := statusCode(err)
	msg := err.Error()
	has := func(subs ...string) bool {
		for _, s := range subs {
			if strings.Contains(msg, s) {
				return true
			}
		}
		return false
	}

	switch {
	case code == 401 || code == 403 || has("401", "403", "API key", "PERMISSION_DENIED"):
		return errors.Auth(ProviderID, "Invalid API key or permission denied. Check GOOGLE_API_KEY.").WithCause(err)
	case code == 429 || has("429", "rate limit", "RESOURCE_EXHAUSTED"):
		return errors.RateLimited(ProviderID, "").WithCause(err)
	case stderrors.Is(err, context.DeadlineExceeded) || code == 408 || code == 504 || isNetTimeout(err) || has("timeout", "DEADLINE_EXCEEDED"):
		return errors.Timeout(ProviderID, "Gemini request").WithCause(err)
	case isConnection(err):
		return errors.Network(ProviderID, "Cannot reach the Gemini API").WithCause(err)
	case code != 0:
		return errors.ProviderError(ProviderID, "Gemini API error (HTTP "+strconv.Itoa(code)+"): "+apiMessage(err)).WithCause(err)
	default:
		return errors.ProviderError(ProviderID, "Gemini API error: "+msg).WithCause(err)
	}
}

func apiMessage(err error) string {
	var apiErr genai.APIError
	if stderrors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}

func isNetTimeout(err error) bool {
	var ne net.Error
	return stderrors.As(err, &ne) && ne.Timeout()
}

func isConnection(err error) bool {
	var opErr *net.OpError
	var dnsErr *net.DNSError
	return stderrors.As(err, &opErr) || stderrors.As(err, &dnsErr)
}
