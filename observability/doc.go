// Package observability wires OpenTelemetry tracing and metrics into the
// question pipeline: provider call counters, per-tier generation metrics,
// fallback counts and spans around each generation.
//
//	shutdown, err := observability.Setup(ctx, observability.DefaultConfig("quizgen"))
//	defer shutdown(ctx)
//
//	metrics, err := observability.NewMetrics(observability.Meter("quizgen"))
//	metrics.RecordFallback(ctx, "ai", "TIMEOUT")
//
// Provider health is reported through ServiceHealth, one component per
// registered provider.
package observability
