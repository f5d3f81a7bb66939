package httpclient

import (
	"net/http"

	"github.com/kbukum/quizgen/httpclient/sse"
)

// Request describes an outbound call.
type Request struct {
	Method string
	// Path is joined to Config.BaseURL unless it is an absolute URL.
	Path string
	// Headers override Config.Headers.
	Headers map[string]string
	// Body is sent as is for []byte, string and io.Reader, and JSON-encoded
	// otherwise.
	Body any
	// Auth overrides Config.Auth.
	Auth Auth
}

// Response is a fully read response.
type Response struct {
	StatusCode int
	// Headers keeps the first value of each header.
	Headers map[string]string
	Body    []byte
}

// IsSuccess reports a 2xx status.
func (r *Response) IsSuccess() bool { return r.StatusCode >= 200 && r.StatusCode < 300 }

// IsError reports a 4xx or 5xx status.
func (r *Response) IsError() bool { return r.StatusCode >= 400 }

// Stream is an open text/event-stream response. Close it when done.
type Stream struct {
	StatusCode int
	Headers    map[string]string
	*sse.Reader
	raw *http.Response
}

// Close releases the connection.
func (s *Stream) Close() error {
	if s.Reader != nil {
		return s.Reader.Close()
	}
	return s.raw.Body.Close()
}
