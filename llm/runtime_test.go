package llm_test

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/quizgen/errors"
	"github.com/kbukum/quizgen/llm"
	"github.com/kbukum/quizgen/logger"
)

func newRuntime(call, stream time.Duration) *llm.Runtime {
	return llm.NewRuntime(llm.RuntimeConfig{
		ProviderID:    "test",
		CallTimeout:   call,
		StreamTimeout: stream,
		Workers:       2,
		Logger:        logger.Nop(),
	})
}

func mustRequest(t *testing.T, b *llm.RequestBuilder) *llm.GenerationRequest {
	t.Helper()
	req, err := b.Build()
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	return req
}

func echo(ctx context.Context, req *llm.GenerationRequest) (*llm.CompletionResult, error) {
	return llm.NewResult(req.ID(), "echo: "+req.Instruction(), nil), nil
}

// blocking waits until its context ends.
func blocking(started chan<- struct{}) llm.CompleteFunc {
	return func(ctx context.Context, req *llm.GenerationRequest) (*llm.CompletionResult, error) {
		if started != nil {
			close(started)
		}
		<-ctx.Done()
		return nil, ctx.Err()
	}
}

func TestRuntime_Complete(t *testing.T) {
	rt := newRuntime(time.Second, time.Second)
	defer rt.Shutdown(context.Background())

	res, err := rt.Complete(context.Background(), mustRequest(t, llm.NewRequest("hi").ID("r1")), echo)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != "echo: hi" || res.RequestID != "r1" {
		t.Errorf("unexpected result %+v", res)
	}
	if rt.InFlight() != 0 {
		t.Errorf("expected no tracked requests, got %d", rt.InFlight())
	}
}

func TestRuntime_CompleteClassifiesBackendErrors(t *testing.T) {
	rt := newRuntime(time.Second, time.Second)
	defer rt.Shutdown(context.Background())

	fail := func(ctx context.Context, req *llm.GenerationRequest) (*llm.CompletionResult, error) {
		return nil, context.Canceled
	}
	_, err := rt.Complete(context.Background(), mustRequest(t, llm.NewRequest("hi")), fail)
	appErr, ok := errors.AsAppError(err)
	if !ok {
		t.Fatalf("expected AppError, got %T", err)
	}
	if appErr.Provider != "test" {
		t.Errorf("Provider = %q, want test", appErr.Provider)
	}
}

func TestRuntime_AsyncTimeout(t *testing.T) {
	rt := newRuntime(50*time.Millisecond, time.Second)
	defer rt.Shutdown(context.Background())

	start := time.Now()
	f := rt.CompleteAsync(context.Background(), mustRequest(t, llm.NewRequest("slow")), blocking(nil))
	_, err := f.Wait(context.Background())
	if !errors.Is(err, errors.ErrCodeTimeout) {
		t.Fatalf("expected TIMEOUT, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("timeout took too long: %v", elapsed)
	}
}

func TestRuntime_TimeoutWhenBackendIgnoresContext(t *testing.T) {
	rt := newRuntime(30*time.Millisecond, time.Second)

	release := make(chan struct{})
	stubborn := func(ctx context.Context, req *llm.GenerationRequest) (*llm.CompletionResult, error) {
		<-release
		return llm.NewResult(req.ID(), "late", nil), nil
	}
	_, err := rt.Complete(context.Background(), mustRequest(t, llm.NewRequest("slow")), stubborn)
	if !errors.Is(err, errors.ErrCodeTimeout) {
		t.Fatalf("expected TIMEOUT, got %v", err)
	}
	close(release)
	if _, err := rt.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestRuntime_Cancel(t *testing.T) {
	rt := newRuntime(5*time.Second, time.Second)
	defer rt.Shutdown(context.Background())

	started := make(chan struct{})
	req := mustRequest(t, llm.NewRequest("slow").ID("cancel-me"))
	f := rt.CompleteAsync(context.Background(), req, blocking(started))
	<-started

	if !rt.Cancel("cancel-me") {
		t.Fatal("expected Cancel to report an in-flight request")
	}
	if rt.Cancel("cancel-me") {
		t.Error("expected second Cancel to report false")
	}

	_, err := f.Wait(context.Background())
	if !errors.Is(err, errors.ErrCodeProvider) {
		t.Fatalf("expected PROVIDER_ERROR, got %v", err)
	}
	if !strings.Contains(err.Error(), "cancelled") {
		t.Errorf("expected cancellation message, got %q", err.Error())
	}
}

func TestRuntime_CancelUnknownOrFinished(t *testing.T) {
	rt := newRuntime(time.Second, time.Second)
	defer rt.Shutdown(context.Background())

	if rt.Cancel("nope") {
		t.Error("expected false for unknown id")
	}
	req := mustRequest(t, llm.NewRequest("hi").ID("done-1"))
	if _, err := rt.Complete(context.Background(), req, echo); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	deadline := time.Now().Add(time.Second)
	for rt.InFlight() > 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if rt.Cancel("done-1") {
		t.Error("expected false for finished id")
	}
}

func TestRuntime_DuplicateInFlightID(t *testing.T) {
	rt := newRuntime(5*time.Second, time.Second)
	defer rt.Shutdown(context.Background())

	started := make(chan struct{})
	req := mustRequest(t, llm.NewRequest("slow").ID("dup"))
	rt.CompleteAsync(context.Background(), req, blocking(started))
	<-started

	_, err := rt.CompleteAsync(context.Background(), req, echo).Wait(context.Background())
	if !errors.Is(err, errors.ErrCodeInvalidRequest) {
		t.Errorf("expected INVALID_REQUEST, got %v", err)
	}
	rt.Cancel("dup")
}

func TestRuntime_WorkerPoolBoundsConcurrency(t *testing.T) {
	rt := newRuntime(5*time.Second, time.Second)
	defer rt.Shutdown(context.Background())

	var (
		mu      sync.Mutex
		current int
		peak    int
	)
	work := func(ctx context.Context, req *llm.GenerationRequest) (*llm.CompletionResult, error) {
		mu.Lock()
		current++
		if current > peak {
			peak = current
		}
		mu.Unlock()
		time.Sleep(20 * time.Millisecond)
		mu.Lock()
		current--
		mu.Unlock()
		return llm.NewResult(req.ID(), "ok", nil), nil
	}

	futures := make([]*llm.Future, 6)
	for i := range futures {
		futures[i] = rt.CompleteAsync(context.Background(), mustRequest(t, llm.NewRequest("w")), work)
	}
	for _, f := range futures {
		if _, err := f.Wait(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if peak > 2 {
		t.Errorf("expected at most 2 concurrent workers, saw %d", peak)
	}
}

func TestRuntime_ShutdownCancelsAndRejects(t *testing.T) {
	rt := newRuntime(5*time.Second, time.Second)

	started := make(chan struct{})
	f := rt.CompleteAsync(context.Background(), mustRequest(t, llm.NewRequest("slow")), blocking(started))
	<-started

	first, err := rt.Shutdown(context.Background())
	if err != nil || !first {
		t.Fatalf("Shutdown = %v, %v", first, err)
	}
	if _, err := f.Wait(context.Background()); !errors.Is(err, errors.ErrCodeProvider) || !strings.Contains(err.Error(), "closed") {
		t.Errorf("expected in-flight request to fail with closed PROVIDER_ERROR, got %v", err)
	}
	if first, _ := rt.Shutdown(context.Background()); first {
		t.Error("expected second Shutdown to be a no-op")
	}

	_, err = rt.Complete(context.Background(), mustRequest(t, llm.NewRequest("late")), echo)
	if !errors.Is(err, errors.ErrCodeProvider) || !strings.Contains(err.Error(), "closed") {
		t.Errorf("expected closed PROVIDER_ERROR, got %v", err)
	}
	if _, err := rt.Stream(context.Background(), mustRequest(t, llm.NewRequest("late").Stream(true)), true, nil); err == nil {
		t.Error("expected Stream to fail after shutdown")
	}
}

func words(ws ...string) llm.StreamFunc {
	return func(ctx context.Context, req *llm.GenerationRequest, emit func(string) bool) error {
		for _, w := range ws {
			if !emit(w) {
				return ctx.Err()
			}
		}
		return nil
	}
}

func drain(t *testing.T, events <-chan llm.StreamEvent) []llm.StreamEvent {
	t.Helper()
	var out []llm.StreamEvent
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatal("stream did not finish")
		}
	}
}

func TestRuntime_StreamOneTerminalEvent(t *testing.T) {
	rt := newRuntime(time.Second, time.Second)
	defer rt.Shutdown(context.Background())

	req := mustRequest(t, llm.NewRequest("hi").Stream(true))
	events, err := rt.Stream(context.Background(), req, true, words("a ", "b ", "c"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := drain(t, events)
	if len(got) != 4 {
		t.Fatalf("expected 3 partials and a terminal, got %d events", len(got))
	}
	var text string
	for i, ev := range got {
		if ev.IsTerminal() != (i == len(got)-1) {
			t.Errorf("event %d terminal=%v", i, ev.IsTerminal())
		}
		text += ev.Text
	}
	if !got[3].Done || text != "a b c" {
		t.Errorf("unexpected stream %+v", got)
	}
}

func TestRuntime_StreamRejectsNonStreamingRequest(t *testing.T) {
	rt := newRuntime(time.Second, time.Second)
	defer rt.Shutdown(context.Background())

	_, err := rt.Stream(context.Background(), mustRequest(t, llm.NewRequest("hi")), true, words("x"))
	if !errors.Is(err, errors.ErrCodeInvalidRequest) {
		t.Errorf("expected INVALID_REQUEST, got %v", err)
	}
	_, err = rt.Stream(context.Background(), mustRequest(t, llm.NewRequest("hi").Stream(true)), false, words("x"))
	if !errors.Is(err, errors.ErrCodeInvalidRequest) {
		t.Errorf("expected INVALID_REQUEST for unsupported streaming, got %v", err)
	}
}

func TestRuntime_StreamWatchdog(t *testing.T) {
	rt := newRuntime(time.Second, 40*time.Millisecond)
	defer rt.Shutdown(context.Background())

	endless := func(ctx context.Context, req *llm.GenerationRequest, emit func(string) bool) error {
		for emit("tick ") {
			time.Sleep(5 * time.Millisecond)
		}
		return nil
	}
	events, err := rt.Stream(context.Background(), mustRequest(t, llm.NewRequest("hi").Stream(true)), true, endless)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := drain(t, events)
	last := got[len(got)-1]
	if !errors.Is(last.Err, errors.ErrCodeTimeout) {
		t.Fatalf("expected TIMEOUT terminal event, got %+v", last)
	}
	for _, ev := range got[:len(got)-1] {
		if ev.IsTerminal() {
			t.Fatal("terminal event before the end of the stream")
		}
	}
}

func TestRuntime_StreamBackendError(t *testing.T) {
	rt := newRuntime(time.Second, time.Second)
	defer rt.Shutdown(context.Background())

	broken := func(ctx context.Context, req *llm.GenerationRequest, emit func(string) bool) error {
		emit("partial")
		return errors.Network("test", "connection reset")
	}
	events, err := rt.Stream(context.Background(), mustRequest(t, llm.NewRequest("hi").Stream(true)), true, broken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text, err := llm.Collect(context.Background(), events)
	if text != "partial" {
		t.Errorf("text = %q", text)
	}
	if !errors.Is(err, errors.ErrCodeNetwork) {
		t.Errorf("expected NETWORK, got %v", err)
	}
}

// partThenBlock emits one fragment, signals started, and waits for its
// context to end.
func partThenBlock(started chan<- struct{}) llm.StreamFunc {
	return func(ctx context.Context, req *llm.GenerationRequest, emit func(string) bool) error {
		emit("part ")
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}
}

// terminalOf checks that got ends with exactly one terminal event and
// returns it.
func terminalOf(t *testing.T, got []llm.StreamEvent) llm.StreamEvent {
	t.Helper()
	if len(got) == 0 {
		t.Fatal("stream closed without any event")
	}
	for i, ev := range got[:len(got)-1] {
		if ev.IsTerminal() {
			t.Fatalf("event %d is terminal but not last: %+v", i, ev)
		}
	}
	last := got[len(got)-1]
	if !last.IsTerminal() {
		t.Fatalf("stream closed without a terminal event: %+v", got)
	}
	return last
}

func TestRuntime_StreamInterruptedByShutdown(t *testing.T) {
	for i := range 50 {
		rt := newRuntime(time.Second, 5*time.Second)
		started := make(chan struct{})
		req := mustRequest(t, llm.NewRequest("hi").Stream(true))
		events, err := rt.Stream(context.Background(), req, true, partThenBlock(started))
		if err != nil {
			t.Fatalf("run %d: unexpected error: %v", i, err)
		}

		collected := make(chan error, 1)
		go func() {
			_, err := llm.Collect(context.Background(), events)
			collected <- err
		}()
		<-started
		if _, err := rt.Shutdown(context.Background()); err != nil {
			t.Fatalf("run %d: Shutdown: %v", i, err)
		}

		select {
		case err := <-collected:
			if !errors.Is(err, errors.ErrCodeProvider) || !strings.Contains(err.Error(), "closed") {
				t.Fatalf("run %d: expected closed PROVIDER_ERROR, got %v", i, err)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("run %d: stream did not finish", i)
		}
	}
}

func TestRuntime_StreamInterruptedWithoutReader(t *testing.T) {
	rt := newRuntime(time.Second, 5*time.Second)
	started := make(chan struct{})
	events, err := rt.Stream(context.Background(), mustRequest(t, llm.NewRequest("hi").Stream(true)), true, partThenBlock(started))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	<-started

	// Nobody reads until Shutdown has returned, so it must not wait on the
	// consumer.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := rt.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	last := terminalOf(t, drain(t, events))
	if !errors.Is(last.Err, errors.ErrCodeProvider) || !strings.Contains(last.Err.Error(), "closed") {
		t.Errorf("expected closed PROVIDER_ERROR, got %+v", last)
	}
}

func TestRuntime_StreamCallerCancel(t *testing.T) {
	rt := newRuntime(time.Second, 5*time.Second)
	defer rt.Shutdown(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	events, err := rt.Stream(ctx, mustRequest(t, llm.NewRequest("hi").Stream(true)), true, partThenBlock(started))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	<-started
	cancel()

	last := terminalOf(t, drain(t, events))
	if !errors.Is(last.Err, errors.ErrCodeProvider) || !strings.Contains(last.Err.Error(), "cancelled") {
		t.Errorf("expected cancelled PROVIDER_ERROR, got %+v", last)
	}
}

func TestRuntime_StreamCancelByID(t *testing.T) {
	rt := newRuntime(time.Second, 5*time.Second)
	defer rt.Shutdown(context.Background())

	started := make(chan struct{})
	req := mustRequest(t, llm.NewRequest("hi").ID("s1").Stream(true))
	events, err := rt.Stream(context.Background(), req, true, partThenBlock(started))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	<-started
	if !rt.Cancel("s1") {
		t.Fatal("expected Cancel to find the stream")
	}
	last := terminalOf(t, drain(t, events))
	if last.Err == nil || last.RequestID != "s1" {
		t.Errorf("expected error terminal for s1, got %+v", last)
	}
	if rt.Cancel("s1") {
		t.Error("expected second Cancel to report false")
	}
}

func TestRuntime_StreamBackpressure(t *testing.T) {
	rt := newRuntime(time.Second, 5*time.Second)
	defer rt.Shutdown(context.Background())

	const total = 100
	var emitted atomic.Int32
	producer := func(ctx context.Context, req *llm.GenerationRequest, emit func(string) bool) error {
		for i := range total {
			if !emit(strconv.Itoa(i) + " ") {
				return ctx.Err()
			}
			emitted.Add(1)
		}
		return nil
	}
	events, err := rt.Stream(context.Background(), mustRequest(t, llm.NewRequest("hi").Stream(true)), true, producer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	if n := emitted.Load(); n > 1 {
		t.Errorf("producer ran %d fragments ahead of an idle consumer, want at most 1", n)
	}

	got := drain(t, events)
	if !terminalOf(t, got).Done {
		t.Fatalf("expected a successful stream, got %+v", got[len(got)-1])
	}
	if len(got) != total+1 {
		t.Fatalf("expected %d fragments, got %d events", total, len(got))
	}
	for i, ev := range got[:total] {
		if ev.Text != strconv.Itoa(i)+" " {
			t.Fatalf("fragment %d = %q, out of order", i, ev.Text)
		}
	}
}

func TestCollect_ClosedWithoutTerminal(t *testing.T) {
	events := make(chan llm.StreamEvent, 2)
	events <- llm.Partial("r1", "half")
	close(events)

	text, err := llm.Collect(context.Background(), events)
	if text != "half" {
		t.Errorf("text = %q", text)
	}
	if !errors.Is(err, errors.ErrCodeProvider) || !strings.Contains(err.Error(), "without terminal") {
		t.Errorf("expected PROVIDER_ERROR for a truncated stream, got %v", err)
	}
}

func TestFuture_WaitKeepsProvider(t *testing.T) {
	rt := newRuntime(5*time.Second, time.Second)
	defer rt.Shutdown(context.Background())

	started := make(chan struct{})
	req := mustRequest(t, llm.NewRequest("slow").ID("w1"))
	f := rt.CompleteAsync(context.Background(), req, blocking(started))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := f.Wait(ctx)
	appErr, ok := errors.AsAppError(err)
	if !ok || appErr.Code != errors.ErrCodeTimeout || appErr.Provider != "test" {
		t.Errorf("expected TIMEOUT attributed to test, got %#v", err)
	}
	rt.Cancel("w1")

	done := llm.Resolved(nil, errors.Network("gemini", "down"))
	cancelled, stop := context.WithCancel(context.Background())
	stop()
	if _, err := done.Wait(cancelled); !errors.Is(err, errors.ErrCodeNetwork) {
		t.Errorf("a resolved future must report its outcome, got %v", err)
	}
}

func TestRuntime_ProbeRecoversPanics(t *testing.T) {
	rt := newRuntime(time.Second, time.Second)
	defer rt.Shutdown(context.Background())

	if rt.Probe(context.Background(), func(ctx context.Context) error { panic("boom") }) {
		t.Error("expected panicking probe to report unavailable")
	}
	if !rt.Probe(context.Background(), func(ctx context.Context) error { return nil }) {
		t.Error("expected healthy probe to report available")
	}
}
