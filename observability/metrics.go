package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the instruments recorded by the generator and the provider
// middleware.
type Metrics struct {
	generations  metric.Int64Counter
	genDuration  metric.Float64Histogram
	active       metric.Int64UpDownCounter
	calls        metric.Int64Counter
	callDuration metric.Float64Histogram
	errorsByKind metric.Int64Counter
	questions    metric.Int64Counter
	fallbacks    metric.Int64Counter
}

// NewMetrics registers the quizgen instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error
	counter := func(dst *metric.Int64Counter, name, desc string) {
		if err == nil {
			*dst, err = meter.Int64Counter(name, metric.WithDescription(desc))
			err = wrapInstrument(name, err)
		}
	}
	seconds := func(dst *metric.Float64Histogram, name, desc string) {
		if err == nil {
			*dst, err = meter.Float64Histogram(name, metric.WithDescription(desc), metric.WithUnit("s"))
			err = wrapInstrument(name, err)
		}
	}

	counter(&m.generations, "quizgen.generate.total", "Question generation requests by serving tier")
	seconds(&m.genDuration, "quizgen.generate.duration", "End-to-end question generation latency")
	counter(&m.calls, "quizgen.provider.calls", "Provider calls by provider, operation and status")
	seconds(&m.callDuration, "quizgen.provider.duration", "Provider call latency")
	counter(&m.errorsByKind, "quizgen.errors", "Errors by kind and component")
	counter(&m.questions, "quizgen.questions", "Questions served by tier")
	counter(&m.fallbacks, "quizgen.fallbacks", "Tier fallbacks by source tier and reason")
	if err == nil {
		m.active, err = meter.Int64UpDownCounter("quizgen.generate.active",
			metric.WithDescription("Generation requests in flight"))
		err = wrapInstrument("quizgen.generate.active", err)
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func wrapInstrument(name string, err error) error {
	if err != nil {
		return fmt.Errorf("observability: instrument %s: %w", name, err)
	}
	return nil
}

func attrs(kv ...string) metric.MeasurementOption {
	set := make([]attribute.KeyValue, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		set = append(set, attribute.String(kv[i], kv[i+1]))
	}
	return metric.WithAttributes(set...)
}

// RecordRequestStart counts a generation as in flight.
func (m *Metrics) RecordRequestStart(ctx context.Context) {
	m.active.Add(ctx, 1)
}

// RecordRequestEnd closes a generation opened by RecordRequestStart.
func (m *Metrics) RecordRequestEnd(ctx context.Context, service, tier, status string, d time.Duration) {
	m.active.Add(ctx, -1)
	m.generations.Add(ctx, 1, attrs("service", service, "tier", tier, "status", status))
	m.genDuration.Record(ctx, d.Seconds(), attrs("service", service, "tier", tier))
}

// RecordOperation records one provider call.
func (m *Metrics) RecordOperation(ctx context.Context, provider, operation, status string, d time.Duration) {
	m.calls.Add(ctx, 1, attrs("provider", provider, "operation", operation, "status", status))
	m.callDuration.Record(ctx, d.Seconds(), attrs("provider", provider, "operation", operation))
}

// RecordError counts an error by kind (AUTH, NETWORK, ...) and component.
func (m *Metrics) RecordError(ctx context.Context, kind, component string) {
	m.errorsByKind.Add(ctx, 1, attrs("kind", kind, "component", component))
}

// RecordQuestions counts questions served from a tier.
func (m *Metrics) RecordQuestions(ctx context.Context, tier, topic string, n int) {
	m.questions.Add(ctx, int64(n), attrs("tier", tier, "topic", topic))
}

// RecordFallback counts a move from one tier to the next.
func (m *Metrics) RecordFallback(ctx context.Context, from, reason string) {
	m.fallbacks.Add(ctx, 1, attrs("from", from, "reason", reason))
}
