package httpclient

import "net/http"

// Auth sets credentials on an outgoing request.
type Auth func(*http.Request)

// BearerAuth sends token as an OAuth-style bearer token, the scheme
// OpenAI-compatible servers accept API keys in.
func BearerAuth(token string) Auth {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

// HeaderAuth sends value in the named header, for gateways that expect a
// key header such as X-API-Key.
func HeaderAuth(name, value string) Auth {
	return func(r *http.Request) { r.Header.Set(name, value) }
}
