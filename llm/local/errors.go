package local

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/kbukum/quizgen/errors"
	"github.com/kbukum/quizgen/httpclient"
	"github.com/kbukum/quizgen/util"
)

// classify keeps the transport's kind and adds LM Studio specific guidance.
func (p *Provider) classify(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := errors.AsAppError(err); ok {
		return err
	}
	httpErr, ok := httpclient.AsError(err)
	if !ok {
		return errors.Classify(ProviderID, err)
	}

	body := strings.TrimSpace(string(httpErr.Body))
	var out *errors.AppError
	switch {
	case httpclient.IsConnection(err):
		out = errors.Network(ProviderID, fmt.Sprintf(
			"Cannot connect to local LLM server at %s. Ensure LM Studio is running with the server enabled (Developer > Start Server).",
			p.meta.Endpoint))
	case httpErr.Kind == errors.ErrCodeTimeout:
		out = errors.Timeout(ProviderID, "local inference").
			WithDetail("hint", "Local inference can be slow on CPU. Try a smaller model or enable GPU acceleration.")
	case httpErr.StatusCode == http.StatusNotFound:
		out = errors.InvalidRequest(ProviderID,
			"Model not found. Ensure a model is loaded in LM Studio and the local server is started.")
	case httpErr.Kind == errors.ErrCodeInvalidRequest:
		out = errors.InvalidRequest(ProviderID, "Invalid request: "+util.Coalesce(body, httpErr.Message))
	case httpErr.Kind == errors.ErrCodeAuth:
		out = errors.Auth(ProviderID, fmt.Sprintf("Local LLM server rejected the credential (HTTP %d)", httpErr.StatusCode))
	case httpErr.StatusCode >= 500:
		out = errors.ProviderError(ProviderID, "Local LLM server error: "+util.Coalesce(body, httpErr.Message)).
			WithDetail("status", httpErr.StatusCode)
	default:
		out = errors.New(httpErr.Kind, ProviderID, httpErr.Message)
	}
	return out.WithCause(err)
}

// statusOK reports whether a probe response means the server is up.
func statusOK(resp *httpclient.Response) bool {
	return resp != nil && resp.StatusCode == http.StatusOK
}
