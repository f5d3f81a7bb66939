package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Operation is one traced generation: a span plus the request counters.
// Metrics may be nil.
type Operation struct {
	Service   string
	RequestID string
	Topic     string

	start   time.Time
	span    trace.Span
	metrics *Metrics
}

// StartOperation opens a span named name and counts the request as active.
func StartOperation(ctx context.Context, name, service, requestID, topic string, m *Metrics) (context.Context, *Operation) {
	op := &Operation{Service: service, RequestID: requestID, Topic: topic, start: time.Now(), metrics: m}
	ctx, op.span = StartSpan(ctx, name, trace.WithAttributes(
		attribute.String(AttrServiceName, service),
		attribute.String(AttrOperation, name),
		attribute.String(AttrRequestID, requestID),
	))
	if topic != "" {
		op.span.SetAttributes(attribute.String(AttrTopic, topic))
	}
	if m != nil {
		m.RecordRequestStart(ctx)
	}
	return ctx, op
}

// End closes the span and records the outcome. tier names the source that
// served the request, or "none" when every tier failed.
func (op *Operation) End(ctx context.Context, tier string, err error) {
	elapsed := time.Since(op.start)
	status := "ok"
	if err != nil {
		status = "error"
		SetSpanError(trace.ContextWithSpan(ctx, op.span), err)
	}
	op.span.SetAttributes(
		attribute.String(AttrStatus, status),
		attribute.String(AttrTier, tier),
		attribute.Int64(AttrDurationMs, elapsed.Milliseconds()),
	)
	op.span.End()
	if op.metrics != nil {
		op.metrics.RecordRequestEnd(ctx, op.Service, tier, status, elapsed)
	}
}

// Elapsed is the time since StartOperation.
func (op *Operation) Elapsed() time.Duration { return time.Since(op.start) }
