package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/afero"

	"github.com/kbukum/quizgen/errors"
	"github.com/kbukum/quizgen/llm"
	"github.com/kbukum/quizgen/llm/local"
	"github.com/kbukum/quizgen/logger"
	"github.com/kbukum/quizgen/observability"
	"github.com/kbukum/quizgen/prompt"
	"github.com/kbukum/quizgen/provider"
	"github.com/kbukum/quizgen/questions"
	"github.com/kbukum/quizgen/version"
)

func (e *env) printJSON(v any) error {
	enc := json.NewEncoder(e.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type generateOutput struct {
	Tier      questions.Tier       `json:"tier"`
	Topic     string               `json:"topic"`
	Questions []questions.Question `json:"questions"`
}

func runGenerate(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "generate")
	var q questions.Query
	fs.StringVarP(&q.Topic, "topic", "t", "", "topic, e.g. cs, ai, philosophy or any free text")
	fs.StringVarP(&q.Difficulty, "difficulty", "d", questions.Medium, "Easy, Medium or Hard")
	fs.IntVarP(&q.Count, "count", "n", questions.MinCount, "number of questions (5-10)")
	providerID := fs.StringP("provider", "p", "", "provider id (default: llm.default_provider)")
	cacheDir := fs.String("cache-dir", "", "question cache directory (default: questions.cache_dir)")
	noAI := fs.Bool("no-ai", false, "skip the AI tier")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if q.Topic == "" {
		return usagef("--topic is required")
	}

	qc := e.cfg.Questions
	if *cacheDir != "" {
		qc.CacheDir = *cacheDir
	}
	cache := questions.NewCacheSource(afero.NewOsFs(), qc.CacheDir)
	if _, err := cache.Seed(); err != nil {
		e.log.Warn("cache seeding failed", logger.Fields(logger.FieldError, err.Error()))
	}

	opts := []questions.Option{
		questions.WithCache(cache),
		questions.WithTimeout(qc.Timeout),
		questions.WithMetrics(e.metrics),
	}
	if !*noAI {
		p, err := e.provider(*providerID)
		if err != nil {
			// The chain still answers from cache or static.
			e.log.Warn("AI tier unavailable", logger.Fields(
				logger.FieldKind, string(errors.CodeOf(err)),
				logger.FieldError, err.Error(),
			))
		} else {
			var aiOpts []questions.AIOption
			if p.Metadata().ID == local.ProviderID {
				aiOpts = append(aiOpts, questions.LocalOptions()...)
			} else if qc.PreCheck {
				aiOpts = append(aiOpts, questions.WithPreCheck())
			}
			if qc.WriteThrough {
				aiOpts = append(aiOpts, questions.WithWriteThrough(cache))
			}
			opts = append(opts, questions.WithPrimary(questions.NewAISource(p, aiOpts...)))
		}
	}

	qs, tier, err := questions.NewGenerator(opts...).Generate(ctx, q)
	if err != nil {
		return err
	}
	topic := q.Topic
	if n, nerr := questions.Normalize(q); nerr == nil {
		topic = n.Topic
	}
	return e.printJSON(generateOutput{Tier: tier, Topic: topic, Questions: qs})
}

func runProviders(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "providers")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	return e.printJSON(e.registry.ListMetadata(ctx))
}

func runComplete(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "complete")
	providerID := fs.StringP("provider", "p", "", "provider id (default: llm.default_provider)")
	instruction := fs.String("prompt", "", "instruction text")
	extra := fs.String("context", "", "optional context placed before the instruction")
	maxTokens := fs.Int("max-tokens", llm.DefaultMaxTokens, "completion token budget")
	temperature := fs.Float64("temperature", llm.DefaultTemperature, "sampling temperature (0-2)")
	stream := fs.Bool("stream", false, "print fragments as they arrive")
	showMeta := fs.Bool("meta", false, "print result metadata to stderr")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *instruction == "" {
		return usagef("--prompt is required")
	}

	req, err := llm.NewRequest(*instruction).
		Context(*extra).
		MaxTokens(*maxTokens).
		Temperature(*temperature).
		Stream(*stream).
		Build()
	if err != nil {
		return err
	}
	p, err := e.provider(*providerID)
	if err != nil {
		return err
	}

	if *stream {
		events, err := p.Stream(ctx, req)
		if err != nil {
			return err
		}
		for ev := range events {
			if ev.Err != nil {
				fmt.Fprintln(e.out)
				return ev.Err
			}
			if ev.Done {
				fmt.Fprintln(e.out)
				return nil
			}
			fmt.Fprint(e.out, ev.Text)
		}
		fmt.Fprintln(e.out)
		return errors.ProviderError(p.Name(), "stream closed without terminal event")
	}

	rr := provider.Chain(
		provider.WithLogging[*llm.GenerationRequest, *llm.CompletionResult](e.log),
		provider.WithTracing[*llm.GenerationRequest, *llm.CompletionResult]("quizgen"),
	)(llm.AsRequestResponse(p))
	res, err := rr.Execute(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintln(e.out, res.Text)
	if *showMeta {
		for k, v := range res.Metadata() {
			fmt.Fprintf(e.errOut, "%s=%s\n", k, v)
		}
	}
	return nil
}

func runProbe(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "probe")
	providerID := fs.StringP("provider", "p", "", "provider id (default: llm.default_provider)")
	roundTrip := fs.Bool("json", false, "also check that the model follows JSON instructions")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	p, err := e.provider(*providerID)
	if err != nil {
		return err
	}
	meta := p.Metadata()
	health := observability.NewServiceHealth(e.cfg.Name, version.Get().Short())
	available := p.IsAvailable(ctx)
	health.AddComponent(observability.HealthFromProbe(meta.ID, available, map[string]string{
		"model":    meta.Model,
		"endpoint": meta.Endpoint,
	}))
	if available && *roundTrip {
		health.AddComponent(jsonRoundTrip(ctx, p))
	}

	if err := e.printJSON(health); err != nil {
		return err
	}
	if health.Status != observability.HealthStatusUp {
		return errors.Network(meta.ID, fmt.Sprintf("%s is %s", meta.DisplayName, health.Status))
	}
	return nil
}

// jsonRoundTrip asks for a fixed JSON document and checks the reply parses.
func jsonRoundTrip(ctx context.Context, p llm.Provider) observability.Health {
	const name = "json-round-trip"
	req, err := llm.NewRequest(prompt.TestPrompt).MaxTokens(100).Temperature(0.1).Build()
	if err == nil {
		var res *llm.CompletionResult
		if res, err = p.Complete(ctx, req); err == nil {
			var doc struct {
				Status string `json:"status"`
			}
			if err = json.Unmarshal([]byte(prompt.ExtractJSON(res.Text)), &doc); err == nil && doc.Status == "ok" {
				return observability.HealthFromProbe(name, true, nil)
			}
		}
	}
	h := observability.HealthFromProbe(name, false, nil)
	h.Status = observability.HealthStatusDegraded
	if err != nil {
		h.Message = err.Error()
	} else {
		h.Message = "reply did not contain the expected JSON"
	}
	return h
}

func runVersion(_ context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "version")
	asJSON := fs.Bool("json", false, "print as JSON")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	info := version.Get()
	if *asJSON {
		return e.printJSON(info)
	}
	_, err := fmt.Fprintln(e.out, info.String())
	return err
}
