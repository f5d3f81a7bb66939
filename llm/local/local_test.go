package local_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/quizgen/errors"
	"github.com/kbukum/quizgen/llm"
	"github.com/kbukum/quizgen/llm/local"
	"github.com/kbukum/quizgen/logger"
	"github.com/kbukum/quizgen/security"
)

func newProvider(t *testing.T, url string, opts llm.Options) *local.Provider {
	t.Helper()
	opts.Endpoint = url
	opts.Logger = logger.Nop()
	p, err := local.New("", opts)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	t.Cleanup(func() { p.Close(context.Background()) })
	return p
}

func request(t *testing.T, b *llm.RequestBuilder) *llm.GenerationRequest {
	t.Helper()
	req, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return req
}

func TestLocal_Complete(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" || r.Method != http.MethodPost {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"42"}}],"usage":{"prompt_tokens":7,"completion_tokens":1,"total_tokens":8}}`)
	}))
	defer srv.Close()

	p := newProvider(t, srv.URL+"/v1", llm.Options{Model: "qwen"})
	req := request(t, llm.NewRequest("What is six times seven?").Context("Answer tersely.").MaxTokens(20).Temperature(0.2))
	res, err := p.Complete(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != "42" {
		t.Errorf("Text = %q", res.Text)
	}
	if res.Meta(llm.MetaTotalTokens) != "8" || res.Meta(llm.MetaModel) != "qwen" || res.Meta(llm.MetaProvider) != "local" {
		t.Errorf("unexpected metadata %v", res.Metadata())
	}

	if got["model"] != "qwen" || got["stream"] != false || got["max_tokens"] != float64(20) {
		t.Errorf("unexpected request body %v", got)
	}
	msgs, _ := got["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("expected system and user messages, got %v", got["messages"])
	}
	if sys := msgs[0].(map[string]any); sys["role"] != "system" || sys["content"] != "Answer tersely." {
		t.Errorf("unexpected system message %v", sys)
	}
}

func TestLocal_StatusClassification(t *testing.T) {
	tests := []struct {
		status int
		want   errors.ErrorCode
		substr string
	}{
		{http.StatusBadRequest, errors.ErrCodeInvalidRequest, "Invalid request"},
		{http.StatusNotFound, errors.ErrCodeInvalidRequest, "Model not found"},
		{http.StatusUnauthorized, errors.ErrCodeAuth, "401"},
		{http.StatusForbidden, errors.ErrCodeAuth, "403"},
		{http.StatusTooManyRequests, errors.ErrCodeRateLimit, ""},
		{http.StatusInternalServerError, errors.ErrCodeProvider, "server error"},
		{http.StatusServiceUnavailable, errors.ErrCodeProvider, "server error"},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			}))
			defer srv.Close()

			p := newProvider(t, srv.URL, llm.Options{})
			_, err := p.Complete(context.Background(), request(t, llm.NewRequest("hi")))
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %s, got %v", tt.want, err)
			}
			if !strings.Contains(err.Error(), tt.substr) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.substr)
			}
		})
	}
}

func TestLocal_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices": [`)
	}))
	defer srv.Close()

	p := newProvider(t, srv.URL, llm.Options{})
	_, err := p.Complete(context.Background(), request(t, llm.NewRequest("hi")))
	if !errors.Is(err, errors.ErrCodeParse) {
		t.Errorf("expected PARSE, got %v", err)
	}
}

func TestLocal_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	p := newProvider(t, url, llm.Options{})
	_, err := p.Complete(context.Background(), request(t, llm.NewRequest("hi")))
	if !errors.Is(err, errors.ErrCodeNetwork) {
		t.Fatalf("expected NETWORK, got %v", err)
	}
	if !strings.Contains(err.Error(), "Cannot connect to local LLM server at "+url) {
		t.Errorf("unexpected message %q", err.Error())
	}
	if p.IsAvailable(context.Background()) {
		t.Error("expected probe to fail")
	}
}

func TestLocal_ClientTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	p := newProvider(t, srv.URL, llm.Options{Timeout: 50 * time.Millisecond, ConnectTimeout: 10 * time.Millisecond})
	_, err := p.Complete(context.Background(), request(t, llm.NewRequest("hi")))
	if !errors.Is(err, errors.ErrCodeTimeout) {
		t.Errorf("expected TIMEOUT, got %v", err)
	}
}

func TestLocal_Probe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{"data":[{"id":"qwen2.5-7b"},{"id":"llama-3"}]}`)
	}))
	defer srv.Close()

	p := newProvider(t, srv.URL, llm.Options{})
	if !p.IsAvailable(context.Background()) {
		t.Fatal("expected server to be available")
	}
	models, err := p.Models(context.Background())
	if err != nil {
		t.Fatalf("models: %v", err)
	}
	if strings.Join(models, ",") != "qwen2.5-7b,llama-3" {
		t.Errorf("models = %v", models)
	}
}

func TestLocal_Stream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["stream"] != true {
			t.Errorf("expected stream=true, got %v", body["stream"])
		}
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, part := range []string{"The ", "answer ", "is 42"} {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", part)
			flusher.Flush()
		}
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
		flusher.Flush()
	}))
	defer srv.Close()

	p := newProvider(t, srv.URL, llm.Options{})
	events, err := p.Stream(context.Background(), request(t, llm.NewRequest("q").Stream(true)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var text strings.Builder
	terminals := 0
	for ev := range events {
		if ev.IsTerminal() {
			terminals++
			if ev.Err != nil {
				t.Fatalf("stream failed: %v", ev.Err)
			}
			continue
		}
		text.WriteString(ev.Text)
	}
	if text.String() != "The answer is 42" || terminals != 1 {
		t.Errorf("text=%q terminals=%d", text.String(), terminals)
	}
}

func TestLocal_StreamMalformedChunk(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {not json\n\n")
	}))
	defer srv.Close()

	p := newProvider(t, srv.URL, llm.Options{})
	events, err := p.Stream(context.Background(), request(t, llm.NewRequest("q").Stream(true)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = llm.Collect(context.Background(), events)
	if !errors.Is(err, errors.ErrCodeParse) {
		t.Errorf("expected PARSE, got %v", err)
	}
}

func TestLocal_MetadataAndRegistry(t *testing.T) {
	p, err := llm.DefaultRegistry().Create(local.ProviderID, "", llm.Options{MetadataOnly: true, Logger: logger.Nop()})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer p.Close(context.Background())

	m := p.Metadata()
	if m.ID != "local" || m.DisplayName != "Local LLM (LM Studio)" || m.Model != local.DefaultModel ||
		m.Endpoint != local.DefaultEndpoint || !m.SupportsStreaming {
		t.Errorf("unexpected metadata %+v", m)
	}
}

func TestLocal_BearerCredential(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		fmt.Fprint(w, `{"choices":[{"message":{"content":"ok"}}]}`)
	}))
	defer srv.Close()

	p, err := local.New("sk-local", llm.Options{Endpoint: srv.URL, Logger: logger.Nop()})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer p.Close(context.Background())
	if _, err := p.Complete(context.Background(), request(t, llm.NewRequest("hi"))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if auth != "Bearer sk-local" {
		t.Errorf("Authorization = %q", auth)
	}
}

func TestLocal_InvalidTLS(t *testing.T) {
	_, err := local.New("", llm.Options{
		Endpoint: "https://inference.internal:8443/v1",
		TLS:      &security.TLSConfig{CAFile: "/nonexistent/ca.pem"},
		Logger:   logger.Nop(),
	})
	if !errors.Is(err, errors.ErrCodeInvalidRequest) {
		t.Errorf("err = %v, want INVALID_REQUEST", err)
	}
}

func TestLocal_SamplingHints(t *testing.T) {
	var got map[string]any
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`)
	}))
	defer srv.Close()

	p := newProvider(t, srv.URL, llm.Options{Hints: map[string]string{llm.HintSeed: "42", llm.HintTopP: "0.5"}})
	req := request(t, llm.NewRequest("hi").Hint(llm.HintTopP, "0.9").Hint(llm.HintStop, "END"))
	if _, err := p.Complete(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got["top_p"] != 0.9 || got["seed"] != float64(42) {
		t.Errorf("unexpected sampling fields %v", got)
	}
	if stop, _ := got["stop"].([]any); len(stop) != 1 || stop[0] != "END" {
		t.Errorf("stop = %v", got["stop"])
	}

	bad := request(t, llm.NewRequest("hi").Hint(llm.HintTopP, "high"))
	_, err := p.Complete(context.Background(), bad)
	if !errors.Is(err, errors.ErrCodeInvalidRequest) {
		t.Errorf("expected INVALID_REQUEST for a malformed hint, got %v", err)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("malformed hint must not reach the server, saw %d calls", n)
	}
}

func TestLocal_OmitsUnsetSamplingFields(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`)
	}))
	defer srv.Close()

	p := newProvider(t, srv.URL, llm.Options{})
	if _, err := p.Complete(context.Background(), request(t, llm.NewRequest("hi"))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, key := range []string{"top_p", "seed", "stop"} {
		if _, ok := got[key]; ok {
			t.Errorf("%s must be omitted when no hint is set", key)
		}
	}
}

func TestLocal_CallTimeoutDefaultsToTransportTimeout(t *testing.T) {
	tests := []struct {
		name string
		opts llm.Options
		want time.Duration
	}{
		{"default", llm.Options{}, local.DefaultTimeout},
		{"transport timeout", llm.Options{Timeout: 45 * time.Second}, 45 * time.Second},
		{"explicit call timeout", llm.Options{Timeout: 45 * time.Second, CallTimeout: 5 * time.Second}, 5 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newProvider(t, "http://localhost:1234/v1", tt.opts)
			if got := p.CallTimeout(); got != tt.want {
				t.Errorf("CallTimeout = %v, want %v", got, tt.want)
			}
		})
	}
}
