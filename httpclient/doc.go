// Package httpclient is the HTTP transport behind the OpenAI-compatible
// local provider. It wraps net/http with auth, default headers, retry,
// circuit breaking and rate limiting from the resilience package, and
// exposes Server-Sent Event streams through the sse subpackage.
//
//	client, err := httpclient.New(httpclient.Config{
//	    Name:           "local",
//	    BaseURL:        "http://localhost:1234/v1",
//	    Timeout:        120 * time.Second,
//	    CircuitBreaker: httpclient.DefaultCircuitBreakerConfig("local"),
//	})
//
//	resp, err := client.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: "/models"})
//
// Failures are *Error values whose Kind is already an errors.ErrorCode, so
// providers only add their own wording. DoStream accepts text/event-stream
// responses only.
package httpclient
