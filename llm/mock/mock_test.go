package mock_test

import (
	"context"
	"testing"
	"time"

	"github.com/kbukum/quizgen/errors"
	"github.com/kbukum/quizgen/llm"
	"github.com/kbukum/quizgen/llm/mock"
	"github.com/kbukum/quizgen/logger"
)

func request(t *testing.T, b *llm.RequestBuilder) *llm.GenerationRequest {
	t.Helper()
	req, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return req
}

func TestMock_CannedResponse(t *testing.T) {
	p := mock.New(llm.Options{Logger: logger.Nop()})
	defer p.Close(context.Background())

	res, err := p.Complete(context.Background(), request(t, llm.NewRequest("Hello there").ID("m-1")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != mock.DefaultResponse {
		t.Errorf("Text = %q", res.Text)
	}
	if res.RequestID != "m-1" {
		t.Errorf("RequestID = %q", res.RequestID)
	}
	if got := res.Meta(llm.MetaCompletionTokens); got != "5" {
		t.Errorf("completion tokens = %q, want 5", got)
	}
	if got := res.Meta(llm.MetaModel); got != mock.DefaultModel {
		t.Errorf("model = %q", got)
	}
}

func TestMock_Metadata(t *testing.T) {
	p := mock.New(llm.Options{Logger: logger.Nop()})
	defer p.Close(context.Background())

	m := p.Metadata()
	if m.ID != "mock" || m.Model != "mock-model-v1" || m.Endpoint != "mock://localhost" || !m.SupportsStreaming {
		t.Errorf("unexpected metadata %+v", m)
	}
	if p.Name() != "mock" {
		t.Errorf("Name = %q", p.Name())
	}
}

func TestMock_SimulatedError(t *testing.T) {
	p := mock.New(llm.Options{MockError: true, Logger: logger.Nop()})
	defer p.Close(context.Background())

	_, err := p.Complete(context.Background(), request(t, llm.NewRequest("x")))
	if !errors.Is(err, errors.ErrCodeNetwork) {
		t.Errorf("expected NETWORK, got %v", err)
	}
	if _, err := p.Stream(context.Background(), request(t, llm.NewRequest("x").Stream(true))); !errors.Is(err, errors.ErrCodeNetwork) {
		t.Errorf("expected NETWORK from Stream, got %v", err)
	}
	if p.IsAvailable(context.Background()) {
		t.Error("expected unavailable in error mode")
	}
}

func TestMock_Stream(t *testing.T) {
	p := mock.New(llm.Options{MockResponse: "alpha beta gamma", MockWordDelay: time.Millisecond, Logger: logger.Nop()})
	defer p.Close(context.Background())

	events, err := p.Stream(context.Background(), request(t, llm.NewRequest("x").Stream(true)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var fragments []string
	var terminals int
	for ev := range events {
		if ev.IsTerminal() {
			terminals++
			if !ev.Done {
				t.Errorf("unexpected failure %v", ev.Err)
			}
			continue
		}
		if terminals > 0 {
			t.Fatal("event after terminal")
		}
		fragments = append(fragments, ev.Text)
	}
	if terminals != 1 {
		t.Errorf("expected one terminal event, got %d", terminals)
	}
	want := []string{"alpha ", "beta ", "gamma"}
	if len(fragments) != len(want) {
		t.Fatalf("fragments = %q", fragments)
	}
	for i := range want {
		if fragments[i] != want[i] {
			t.Errorf("fragment %d = %q, want %q", i, fragments[i], want[i])
		}
	}
}

func TestMock_AsyncTimeoutWithSlowMock(t *testing.T) {
	p := mock.New(llm.Options{MockDelay: time.Second, CallTimeout: 50 * time.Millisecond, Logger: logger.Nop()})
	defer p.Close(context.Background())

	f := p.CompleteAsync(context.Background(), request(t, llm.NewRequest("x")))
	select {
	case <-f.Done():
	case <-time.After(500 * time.Millisecond):
		t.Fatal("future did not resolve within the call timeout")
	}
	if _, err := f.Wait(context.Background()); !errors.Is(err, errors.ErrCodeTimeout) {
		t.Errorf("expected TIMEOUT, got %v", err)
	}
}

func TestMock_CancelInFlight(t *testing.T) {
	p := mock.New(llm.Options{MockDelay: 5 * time.Second, Logger: logger.Nop()})
	defer p.Close(context.Background())

	req := request(t, llm.NewRequest("x").ID("slow-1"))
	f := p.CompleteAsync(context.Background(), req)

	deadline := time.Now().Add(time.Second)
	for p.InFlight() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if !p.Cancel("slow-1") {
		t.Fatal("expected cancel to succeed")
	}
	if p.Cancel("slow-1") {
		t.Error("expected second cancel to fail")
	}
	if _, err := f.Wait(context.Background()); err == nil {
		t.Error("expected cancelled request to fail")
	}
}

func TestMock_Closed(t *testing.T) {
	p := mock.New(llm.Options{Logger: logger.Nop()})
	if err := p.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := p.Close(context.Background()); err != nil {
		t.Fatalf("close twice: %v", err)
	}
	_, err := p.Complete(context.Background(), request(t, llm.NewRequest("x")))
	if !errors.Is(err, errors.ErrCodeProvider) {
		t.Errorf("expected PROVIDER_ERROR after close, got %v", err)
	}
	if p.IsAvailable(context.Background()) {
		t.Error("expected unavailable after close")
	}
}

func TestMock_RegisteredInDefaultRegistry(t *testing.T) {
	if !llm.DefaultRegistry().Has(mock.ProviderID) {
		t.Fatal("expected mock to be registered")
	}
	p, err := llm.DefaultRegistry().Create(mock.ProviderID, "", llm.Options{Logger: logger.Nop()})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer p.Close(context.Background())
	if p.Metadata().DisplayName != "Mock Provider (Testing)" {
		t.Errorf("unexpected metadata %+v", p.Metadata())
	}
}
