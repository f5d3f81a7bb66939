package questions

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/quizgen/errors"
	"github.com/kbukum/quizgen/logger"
	"github.com/kbukum/quizgen/observability"
	"github.com/kbukum/quizgen/provider"
)

// DefaultTimeout bounds a whole Generate call.
const DefaultTimeout = 30 * time.Second

const serviceName = "quizgen"

// Source is one tier of the chain.
type Source = provider.RequestResponse[Query, []Question]

// Option configures a Generator.
type Option func(*Generator)

// WithPrimary sets the first tier, normally an AISource.
func WithPrimary(s Source) Option {
	return func(g *Generator) { g.primary = s }
}

// WithCache sets the second tier.
func WithCache(s Source) Option {
	return func(g *Generator) { g.cache = s }
}

// WithStatic replaces the built-in static tier. Nil keeps the default.
func WithStatic(s Source) Option {
	return func(g *Generator) {
		if s != nil {
			g.static = s
		}
	}
}

// WithTimeout sets the outer timeout. Non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(g *Generator) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithMetrics records per-tier outcomes and fallbacks.
func WithMetrics(m *observability.Metrics) Option {
	return func(g *Generator) { g.metrics = m }
}

// WithLogger overrides the "questions" logger.
func WithLogger(l *logger.Logger) Option {
	return func(g *Generator) { g.log = l }
}

// Generator runs the fallback chain: primary, then cache, then static.
// Intermediate failures are logged and swallowed. Only a static failure
// reaches the caller.
type Generator struct {
	primary Source
	cache   Source
	static  Source
	timeout time.Duration
	metrics *observability.Metrics
	log     *logger.Logger
}

// NewGenerator builds a chain. Missing primary or cache tiers are skipped.
// The primary tier is wrapped with logging, tracing and, when configured,
// metrics middleware.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		static:  NewStaticSource(),
		timeout: DefaultTimeout,
		log:     logger.Get("questions"),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.primary != nil {
		mws := []provider.Middleware[Query, []Question]{provider.WithLogging[Query, []Question](g.log)}
		if g.metrics != nil {
			mws = append(mws, provider.WithMetrics[Query, []Question](g.metrics))
		}
		mws = append(mws, provider.WithTracing[Query, []Question](serviceName))
		g.primary = provider.Chain(mws...)(g.primary)
	}
	return g
}

type state int

const (
	attemptPrimary state = iota
	attemptCache
	attemptStatic
)

func (s state) tier() Tier {
	switch s {
	case attemptPrimary:
		return TierAI
	case attemptCache:
		return TierCache
	default:
		return TierStatic
	}
}

// Generate normalizes q and returns questions from the first tier that
// succeeds, along with that tier. When the outer timeout fires the chain
// goes straight to static. If static also fails the error is an
// INVALID_REQUEST "All fallbacks failed".
func (g *Generator) Generate(ctx context.Context, q Query) (qs []Question, tier Tier, err error) {
	q, err = Normalize(q)
	if err != nil {
		return nil, TierNone, err
	}

	ctx, op := observability.StartOperation(ctx, observability.SpanGenerate, serviceName, uuid.NewString(), q.Topic, g.metrics)
	tier = TierNone
	defer func() { op.End(ctx, string(tier), err) }()

	log := g.log.WithContext(ctx).WithFields(logger.Fields(
		logger.FieldRequestID, op.RequestID,
		logger.FieldTopic, q.Topic,
		"difficulty", q.Difficulty,
	))

	chainCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	st := attemptPrimary
	for {
		src := g.source(st)
		if src == nil {
			st++
			continue
		}

		runCtx := chainCtx
		if st == attemptStatic {
			// Static must still answer after the outer timeout.
			runCtx = context.WithoutCancel(ctx)
		}
		res, runErr := g.attempt(runCtx, src, q)
		if runErr == nil {
			tier = st.tier()
			if g.metrics != nil {
				g.metrics.RecordQuestions(ctx, string(tier), q.Topic, len(res))
			}
			log.Info("questions served", logger.Fields(logger.FieldTier, string(tier), "count", len(res)))
			return res, tier, nil
		}

		if st == attemptStatic {
			log.Error("all fallbacks failed", logger.Fields(logger.FieldError, runErr.Error()))
			return nil, TierNone, errors.InvalidRequest("", "All fallbacks failed").WithCause(runErr)
		}

		kind := string(errors.CodeOf(runErr))
		if g.metrics != nil {
			g.metrics.RecordFallback(ctx, string(st.tier()), kind)
		}
		log.Warn("tier failed, falling back", logger.Fields(
			logger.FieldTier, string(st.tier()),
			logger.FieldKind, kind,
			logger.FieldError, runErr.Error(),
		))

		if chainCtx.Err() != nil {
			st = attemptStatic
		} else {
			st++
		}
	}
}

func (g *Generator) source(st state) Source {
	switch st {
	case attemptPrimary:
		return g.primary
	case attemptCache:
		return g.cache
	default:
		return g.static
	}
}

type outcome struct {
	qs  []Question
	err error
}

// attempt runs one tier and gives up when ctx ends, even if the tier does
// not watch ctx itself.
func (g *Generator) attempt(ctx context.Context, src Source, q Query) ([]Question, error) {
	done := make(chan outcome, 1)
	go func() {
		res, err := src.Execute(ctx, q)
		done <- outcome{res, err}
	}()
	select {
	case o := <-done:
		if o.err == nil && len(o.qs) == 0 {
			return nil, errors.Parse(src.Name(), "tier returned no questions")
		}
		return o.qs, o.err
	case <-ctx.Done():
		return nil, errors.Classify(src.Name(), ctx.Err())
	}
}
