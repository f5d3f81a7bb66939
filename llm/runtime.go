package llm

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/kbukum/quizgen/errors"
	"github.com/kbukum/quizgen/logger"
	"github.com/kbukum/quizgen/resilience"
)

// Runtime defaults.
const (
	DefaultCallTimeout   = 30 * time.Second
	DefaultStreamTimeout = 120 * time.Second
	DefaultWorkers       = 4
)

// CompleteFunc performs one blocking completion against a backend. It must
// honor ctx cancellation.
type CompleteFunc func(ctx context.Context, req *GenerationRequest) (*CompletionResult, error)

// StreamFunc produces completion fragments through emit until the backend is
// exhausted. emit returns false once the stream has been abandoned, after
// which the function should return promptly.
type StreamFunc func(ctx context.Context, req *GenerationRequest, emit func(text string) bool) error

// ProbeFunc checks backend connectivity.
type ProbeFunc func(ctx context.Context) error

// RuntimeConfig configures a Runtime.
type RuntimeConfig struct {
	// ProviderID attributes errors and log lines.
	ProviderID string
	// CallTimeout bounds each sync or async completion, queueing included.
	CallTimeout time.Duration
	// StreamTimeout bounds a whole stream.
	StreamTimeout time.Duration
	// Workers is the number of completions that may run at once.
	Workers int
	// Logger defaults to logger.Get(ProviderID).
	Logger *logger.Logger
}

func (c *RuntimeConfig) applyDefaults() {
	if c.CallTimeout <= 0 {
		c.CallTimeout = DefaultCallTimeout
	}
	if c.StreamTimeout <= 0 {
		c.StreamTimeout = DefaultStreamTimeout
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.Logger == nil {
		c.Logger = logger.Get(c.ProviderID)
	}
}

// inflight is the cancel handle of one tracked request.
type inflight struct {
	cancel context.CancelFunc
}

// Runtime is the machinery shared by providers: request tracking and
// cancellation, a bounded worker pool, the two timeout layers and an
// orderly shutdown. Providers embed it and pass their backend calls to
// Complete, CompleteAsync and Stream.
type Runtime struct {
	cfg  RuntimeConfig
	log  *logger.Logger
	pool *resilience.Bulkhead

	root       context.Context
	cancelRoot context.CancelFunc
	wg         sync.WaitGroup

	mu       sync.Mutex
	closed   bool
	requests map[string]*inflight
}

// NewRuntime creates a runtime.
func NewRuntime(cfg RuntimeConfig) *Runtime {
	cfg.applyDefaults()
	root, cancel := context.WithCancel(context.Background())
	return &Runtime{
		cfg: cfg,
		log: cfg.Logger,
		pool: resilience.NewBulkhead(resilience.BulkheadConfig{
			Name:          cfg.ProviderID + "-workers",
			MaxConcurrent: cfg.Workers,
			MaxWait:       resilience.WaitForSlot,
		}),
		root:       root,
		cancelRoot: cancel,
		requests:   make(map[string]*inflight),
	}
}

// Name returns the provider id.
func (r *Runtime) Name() string { return r.cfg.ProviderID }

// Logger returns the provider logger.
func (r *Runtime) Logger() *logger.Logger { return r.log }

// CallTimeout returns the per-call timeout.
func (r *Runtime) CallTimeout() time.Duration { return r.cfg.CallTimeout }

// StreamTimeout returns the stream watchdog timeout.
func (r *Runtime) StreamTimeout() time.Duration { return r.cfg.StreamTimeout }

// IsClosed reports whether Close has been called.
func (r *Runtime) IsClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// InFlight returns the number of tracked requests.
func (r *Runtime) InFlight() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.requests)
}

// begin registers a request and derives its context: bounded by timeout,
// cancelled by Cancel, and cancelled when the runtime closes. The returned
// release must be called when the request finishes.
func (r *Runtime) begin(ctx context.Context, id string, timeout time.Duration) (context.Context, func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, nil, errors.Closed(r.cfg.ProviderID)
	}
	if _, busy := r.requests[id]; busy {
		return nil, nil, errors.InvalidRequest(r.cfg.ProviderID,
			fmt.Sprintf("request %s is already in flight", id))
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	reqCtx = logger.ContextWithRequestID(logger.ContextWithProvider(reqCtx, r.cfg.ProviderID), id)
	stop := context.AfterFunc(r.root, cancel)
	entry := &inflight{cancel: cancel}
	r.requests[id] = entry
	r.wg.Add(1)

	release := func() {
		r.mu.Lock()
		if r.requests[id] == entry {
			delete(r.requests, id)
		}
		r.mu.Unlock()
		stop()
		cancel()
		r.wg.Done()
	}
	return reqCtx, release, nil
}

// Cancel aborts a tracked request. It returns false for unknown or finished
// ids, so it reports true at most once per request.
func (r *Runtime) Cancel(requestID string) bool {
	r.mu.Lock()
	entry, ok := r.requests[requestID]
	if ok {
		delete(r.requests, requestID)
	}
	r.mu.Unlock()
	if !ok {
		return false
	}
	entry.cancel()
	r.log.Info("request cancelled", logger.Fields(logger.FieldRequestID, requestID))
	return true
}

// Complete runs fn through CompleteAsync and waits for the outcome.
func (r *Runtime) Complete(ctx context.Context, req *GenerationRequest, fn CompleteFunc) (*CompletionResult, error) {
	return r.CompleteAsync(ctx, req, fn).Wait(ctx)
}

// CompleteAsync schedules fn on the worker pool and returns immediately.
// The future resolves with fn's outcome, or with TIMEOUT when the call
// timeout elapses first, even if fn ignores its context.
func (r *Runtime) CompleteAsync(ctx context.Context, req *GenerationRequest, fn CompleteFunc) *Future {
	if req == nil {
		return Resolved(nil, errors.InvalidRequest(r.cfg.ProviderID, "request is required"))
	}
	reqCtx, release, err := r.begin(ctx, req.ID(), r.cfg.CallTimeout)
	if err != nil {
		return Resolved(nil, err)
	}

	f := newFuture(r.cfg.ProviderID)
	stopWatch := context.AfterFunc(reqCtx, func() {
		if f.resolve(nil, r.contextError(reqCtx, "completion")) {
			r.log.Warn("completion abandoned", logger.Fields(
				logger.FieldRequestID, req.ID(),
				logger.FieldError, reqCtx.Err().Error(),
			))
		}
	})

	go func() {
		defer release()
		defer stopWatch()
		start := time.Now()
		poolErr := r.pool.Execute(reqCtx, func() error {
			result, err := fn(reqCtx, req)
			if err != nil {
				err = r.classify(reqCtx, err, "completion")
			}
			f.resolve(result, err)
			return nil
		})
		if poolErr != nil {
			f.resolve(nil, r.classify(reqCtx, poolErr, "completion"))
		}
		r.log.Debug("completion finished", logger.Fields(
			logger.FieldRequestID, req.ID(),
			logger.FieldDuration, time.Since(start).Milliseconds(),
		))
	}()
	return f
}

// Stream runs fn on the worker pool and relays its fragments on a channel
// that holds at most one undelivered event, so a slow consumer blocks fn.
// The stream timeout acts as a watchdog: when it fires the channel receives
// one TIMEOUT terminal event and fn's context is cancelled. Every stream
// ends with exactly one terminal event, including streams cut short by
// Cancel, Close or the caller's context; the channel is closed after it.
func (r *Runtime) Stream(ctx context.Context, req *GenerationRequest, supported bool, fn StreamFunc) (<-chan StreamEvent, error) {
	if req == nil {
		return nil, errors.InvalidRequest(r.cfg.ProviderID, "request is required")
	}
	if r.IsClosed() {
		return nil, errors.Closed(r.cfg.ProviderID)
	}
	if !req.Streaming() {
		return nil, errors.InvalidRequest(r.cfg.ProviderID, "Request must have stream=true for streaming")
	}
	if !supported {
		return nil, errors.InvalidRequest(r.cfg.ProviderID, "Provider does not support streaming")
	}
	reqCtx, release, err := r.begin(ctx, req.ID(), r.cfg.StreamTimeout)
	if err != nil {
		return nil, err
	}

	events := make(chan StreamEvent, 1)
	var (
		emitMu   sync.Mutex
		finished bool
	)
	emit := func(text string) bool {
		emitMu.Lock()
		defer emitMu.Unlock()
		if finished {
			return false
		}
		select {
		case events <- Partial(req.ID(), text):
			return true
		case <-reqCtx.Done():
			return false
		}
	}

	produced := make(chan error, 1)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		produced <- r.pool.Execute(reqCtx, func() error {
			return fn(reqCtx, req, emit)
		})
	}()

	go func() {
		defer release()
		defer close(events)

		var streamErr error
		select {
		case streamErr = <-produced:
		case <-reqCtx.Done():
		}
		emitMu.Lock()
		finished = true
		emitMu.Unlock()

		terminal := Done(req.ID())
		if reqCtx.Err() != nil {
			streamErr = r.contextError(reqCtx, "stream")
		}
		if streamErr != nil {
			streamErr = r.classify(reqCtx, streamErr, "stream")
			terminal = Failed(req.ID(), streamErr)
			r.log.Warn("stream failed", logger.Fields(
				logger.FieldRequestID, req.ID(),
				logger.FieldKind, string(errors.CodeOf(streamErr)),
				logger.FieldError, streamErr.Error(),
			))
		}
		r.deliverTerminal(reqCtx, events, terminal)
	}()
	return events, nil
}

// deliverTerminal puts the terminal event on events, which no other
// goroutine sends on any more. While reqCtx is live it waits for the
// consumer. Once reqCtx has ended it must not block on a consumer that may
// have gone away: a successful terminal becomes the context failure, and an
// unread fragment still in the buffer is dropped to make room for it.
func (r *Runtime) deliverTerminal(reqCtx context.Context, events chan StreamEvent, terminal StreamEvent) {
	for {
		select {
		case events <- terminal:
			return
		default:
		}
		select {
		case events <- terminal:
			return
		case <-reqCtx.Done():
		}
		if terminal.Err == nil {
			terminal = Failed(terminal.RequestID, r.contextError(reqCtx, "stream"))
		}
		select {
		case <-events:
		default:
		}
	}
}

// Probe runs a connectivity check. It never panics and never fails: any
// error or panic is logged and reported as unavailable.
func (r *Runtime) Probe(ctx context.Context, fn ProbeFunc) (ok bool) {
	if r.IsClosed() {
		return false
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("connectivity probe panicked", logger.Fields(logger.FieldError, fmt.Sprint(rec)))
			ok = false
		}
	}()
	probeCtx, cancel := context.WithTimeout(ctx, r.cfg.CallTimeout)
	defer cancel()
	if err := fn(probeCtx); err != nil {
		r.log.Warn("connectivity probe failed", logger.Fields(logger.FieldError, err.Error()))
		return false
	}
	return true
}

// Shutdown cancels every tracked request and waits for the workers to exit
// or ctx to end. Only the first call reports first=true, so providers
// release their transport exactly once.
func (r *Runtime) Shutdown(ctx context.Context) (first bool, err error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return false, nil
	}
	r.closed = true
	// The root goes first so every interrupted request reports "closed".
	r.cancelRoot()
	pending := len(r.requests)
	for id, entry := range r.requests {
		entry.cancel()
		delete(r.requests, id)
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return true, errors.Timeout(r.cfg.ProviderID, "shutdown").WithCause(ctx.Err())
	}
	r.log.Debug("runtime closed", logger.Fields("cancelled", pending))
	return true, nil
}

// contextError converts the reason reqCtx ended into the taxonomy.
func (r *Runtime) contextError(reqCtx context.Context, operation string) error {
	if stderrors.Is(reqCtx.Err(), context.DeadlineExceeded) {
		return errors.Timeout(r.cfg.ProviderID, operation).WithCause(reqCtx.Err())
	}
	if r.root.Err() != nil {
		return errors.Closed(r.cfg.ProviderID)
	}
	return errors.ProviderError(r.cfg.ProviderID, "request cancelled").WithCause(reqCtx.Err())
}

// classify attributes err to the provider. A request whose context has ended
// reports why it ended rather than the transport symptom.
func (r *Runtime) classify(reqCtx context.Context, err error, operation string) error {
	if reqCtx.Err() != nil {
		if appErr, ok := errors.AsAppError(err); ok && appErr.Code == errors.ErrCodeTimeout {
			return appErr
		}
		return r.contextError(reqCtx, operation)
	}
	return errors.Classify(r.cfg.ProviderID, err)
}
