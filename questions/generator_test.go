package questions_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/kbukum/quizgen/errors"
	"github.com/kbukum/quizgen/llm"
	"github.com/kbukum/quizgen/llm/mock"
	"github.com/kbukum/quizgen/logger"
	"github.com/kbukum/quizgen/observability"
	"github.com/kbukum/quizgen/provider"
	"github.com/kbukum/quizgen/questions"
)

const modelReply = "Here you go:\n```json\n" + `{
  "topic": "Computer Science",
  "difficulty": "Easy",
  "questions": [
    {"questionText": "What does CPU stand for?", "choices": ["Central Processing Unit", "Core Power Unit", "Central Program Utility", "Compute Process Unit", "Other"], "correctIndex": 0},
    {"questionText": "Which is volatile memory?", "choices": ["SSD", "RAM"], "correctIndex": 1},
    {"questionText": "", "choices": ["a", "b", "c", "d"], "correctIndex": 0}
  ]
}` + "\n```"

func newMock(t *testing.T, opts llm.Options) *mock.Provider {
	t.Helper()
	opts.Logger = logger.Nop()
	p := mock.New(opts)
	t.Cleanup(func() { _ = p.Close(context.Background()) })
	return p
}

func TestAISource_ParsesAndRepairs(t *testing.T) {
	src := questions.NewAISource(newMock(t, llm.Options{MockResponse: modelReply}))
	qs, err := src.Execute(context.Background(), questions.Query{Topic: questions.ComputerScience, Difficulty: questions.Easy, Count: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(qs) != 2 {
		t.Fatalf("got %d questions, want 2 (empty text skipped)", len(qs))
	}
	if qs[0].ID != "MOCK_EASY_001" || qs[1].ID != "MOCK_EASY_002" {
		t.Errorf("ids = %s, %s", qs[0].ID, qs[1].ID)
	}
	if len(qs[0].Choices) != 4 || len(qs[1].Choices) != 4 {
		t.Errorf("choices not repaired: %v / %v", qs[0].Choices, qs[1].Choices)
	}
	if qs[1].Choices[2] != "Additional option" || qs[1].CorrectIndex != 1 {
		t.Errorf("padding lost: %+v", qs[1])
	}
	if qs[0].Topic != questions.ComputerScience || qs[0].Difficulty != questions.Easy {
		t.Errorf("labels = %s/%s", qs[0].Topic, qs[0].Difficulty)
	}
	if src.Name() != "ai:mock" {
		t.Errorf("Name = %q", src.Name())
	}
}

func TestAISource_DefaultTopic(t *testing.T) {
	reply := `{"questions":[{"questionText":"Q","choices":["a","b","c","d"],"correctIndex":2}]}`
	qs, err := questions.NewAISource(newMock(t, llm.Options{MockResponse: reply})).
		Execute(context.Background(), questions.Query{Topic: "Astronomy", Difficulty: questions.Hard, Count: 5})
	if err != nil {
		t.Fatal(err)
	}
	if qs[0].Topic != questions.DefaultTopic {
		t.Errorf("topic = %q", qs[0].Topic)
	}
}

func TestAISource_Failures(t *testing.T) {
	q := questions.Query{Topic: questions.Philosophy, Difficulty: questions.Easy, Count: 5}
	tests := []struct {
		name string
		opts llm.Options
		src  []questions.AIOption
		want errors.ErrorCode
	}{
		{"prose only", llm.Options{MockResponse: "I cannot help with that."}, nil, errors.ErrCodeParse},
		{"no usable questions", llm.Options{MockResponse: `{"questions":[]}`}, nil, errors.ErrCodeParse},
		{"provider error", llm.Options{MockError: true}, nil, errors.ErrCodeNetwork},
		{"pre-check", llm.Options{MockError: true}, []questions.AIOption{questions.WithPreCheck()}, errors.ErrCodeNetwork},
		{"call timeout", llm.Options{MockDelay: time.Second, CallTimeout: 50 * time.Millisecond}, nil, errors.ErrCodeTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := questions.NewAISource(newMock(t, tt.opts), tt.src...).Execute(context.Background(), q)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %s", err, tt.want)
			}
		})
	}
}

func TestAISource_WriteThrough(t *testing.T) {
	fs := afero.NewMemMapFs()
	cache := questions.NewCacheSource(fs, "q")
	src := questions.NewAISource(newMock(t, llm.Options{MockResponse: modelReply}), questions.WithWriteThrough(cache))

	q := questions.Query{Topic: questions.ComputerScience, Difficulty: questions.Easy, Count: 5}
	if _, err := src.Execute(context.Background(), q); err != nil {
		t.Fatal(err)
	}
	cached, err := cache.Execute(context.Background(), q)
	if err != nil {
		t.Fatalf("cache read: %v", err)
	}
	if len(cached) != 2 || cached[0].Text != "What does CPU stand for?" {
		t.Errorf("unexpected cached set %+v", cached)
	}
}

func TestAISource_LocalPreamble(t *testing.T) {
	rec := &recorder{Provider: newMock(t, llm.Options{})}
	src := questions.NewAISource(rec, questions.LocalOptions()...)
	_, _ = src.Execute(context.Background(), questions.Query{Topic: "Astronomy", Difficulty: questions.Easy, Count: 5})
	if !rec.probed {
		t.Error("pre-check did not probe the provider")
	}
	if rec.req == nil {
		t.Fatal("no request sent")
	}
	if !strings.HasPrefix(rec.req.Instruction(), "You are a question generator") {
		t.Errorf("instruction = %q", rec.req.Instruction())
	}
	if rec.req.MaxTokens() != questions.LocalMaxTokens {
		t.Errorf("max tokens = %d", rec.req.MaxTokens())
	}
}

// recorder is an llm.Provider that captures the request it receives.
type recorder struct {
	*mock.Provider
	req    *llm.GenerationRequest
	probed bool
}

func (r *recorder) IsAvailable(ctx context.Context) bool {
	r.probed = true
	return true
}

func (r *recorder) CompleteAsync(ctx context.Context, req *llm.GenerationRequest) *llm.Future {
	r.req = req
	return r.Provider.CompleteAsync(ctx, req)
}

func (r *recorder) Name() string { return "local" }

func query() questions.Query {
	return questions.Query{Topic: "cs", Difficulty: "easy", Count: 5}
}

func failing(name string, code errors.ErrorCode) questions.Source {
	return &provider.Func[questions.Query, []questions.Question]{
		ProviderName: name,
		Fn: func(context.Context, questions.Query) ([]questions.Question, error) {
			return nil, errors.New(code, name, "simulated failure")
		},
	}
}

func seededCache(t *testing.T) *questions.CacheSource {
	t.Helper()
	c := questions.NewCacheSource(afero.NewMemMapFs(), "q")
	if _, err := c.Seed(); err != nil {
		t.Fatal(err)
	}
	return c
}

func TestGenerator_PrimaryServes(t *testing.T) {
	metrics, err := observability.NewMetrics(noop.NewMeterProvider().Meter("test"))
	if err != nil {
		t.Fatal(err)
	}
	g := questions.NewGenerator(
		questions.WithPrimary(questions.NewAISource(newMock(t, llm.Options{MockResponse: modelReply}))),
		questions.WithCache(seededCache(t)),
		questions.WithMetrics(metrics),
		questions.WithLogger(logger.Nop()),
	)
	qs, tier, err := g.Generate(context.Background(), query())
	if err != nil {
		t.Fatal(err)
	}
	if tier != questions.TierAI || qs[0].ID != "MOCK_EASY_001" {
		t.Errorf("tier = %s, first = %+v", tier, qs[0])
	}
}

func TestGenerator_FallsBackToCache(t *testing.T) {
	c := seededCache(t)
	_ = c.Store(questions.ComputerScience, questions.Easy, []questions.Question{
		{Text: "Cached?", Choices: []string{"a", "b", "c", "d"}, CorrectIndex: 0},
	})
	g := questions.NewGenerator(
		questions.WithPrimary(questions.NewAISource(newMock(t, llm.Options{MockError: true}))),
		questions.WithCache(c),
		questions.WithLogger(logger.Nop()),
	)
	qs, tier, err := g.Generate(context.Background(), query())
	if err != nil {
		t.Fatalf("failure surfaced: %v", err)
	}
	if tier != questions.TierCache || len(qs) != 1 || qs[0].Text != "Cached?" {
		t.Errorf("tier = %s, questions = %+v", tier, qs)
	}
}

func TestGenerator_FallsBackToStatic(t *testing.T) {
	g := questions.NewGenerator(
		questions.WithPrimary(failing("primary", errors.ErrCodeAuth)),
		questions.WithCache(failing("cache", errors.ErrCodeParse)),
		questions.WithLogger(logger.Nop()),
	)
	qs, tier, err := g.Generate(context.Background(), query())
	if err != nil {
		t.Fatal(err)
	}
	if tier != questions.TierStatic || len(qs) != 5 || qs[0].ID != "CO_EASY_001" {
		t.Errorf("tier = %s, questions = %d", tier, len(qs))
	}
}

func TestGenerator_NoTiersConfigured(t *testing.T) {
	_, tier, err := questions.NewGenerator(questions.WithLogger(logger.Nop())).Generate(context.Background(), query())
	if err != nil || tier != questions.TierStatic {
		t.Errorf("tier = %s, err = %v", tier, err)
	}
}

func TestGenerator_AllFallbacksFailed(t *testing.T) {
	g := questions.NewGenerator(
		questions.WithPrimary(failing("primary", errors.ErrCodeNetwork)),
		questions.WithLogger(logger.Nop()),
	)
	_, tier, err := g.Generate(context.Background(), questions.Query{Topic: "Astronomy", Difficulty: "easy", Count: 5})
	if !errors.Is(err, errors.ErrCodeInvalidRequest) {
		t.Fatalf("err = %v, want INVALID_REQUEST", err)
	}
	if !strings.Contains(err.Error(), "All fallbacks failed") {
		t.Errorf("message = %q", err.Error())
	}
	if tier != questions.TierNone {
		t.Errorf("tier = %s", tier)
	}
}

func TestGenerator_OuterTimeoutSkipsToStatic(t *testing.T) {
	cacheCalled := false
	cache := &provider.Func[questions.Query, []questions.Question]{
		ProviderName: "cache",
		Fn: func(context.Context, questions.Query) ([]questions.Question, error) {
			cacheCalled = true
			return questions.Bank(questions.Philosophy, questions.Easy), nil
		},
	}
	hang := &provider.Func[questions.Query, []questions.Question]{
		ProviderName: "hang",
		Fn: func(context.Context, questions.Query) ([]questions.Question, error) {
			time.Sleep(time.Second)
			return nil, nil
		},
	}
	g := questions.NewGenerator(
		questions.WithPrimary(hang),
		questions.WithCache(cache),
		questions.WithTimeout(50*time.Millisecond),
		questions.WithLogger(logger.Nop()),
	)

	start := time.Now()
	_, tier, err := g.Generate(context.Background(), query())
	if err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("chain took %s", elapsed)
	}
	if tier != questions.TierStatic {
		t.Errorf("tier = %s, want static", tier)
	}
	if cacheCalled {
		t.Error("cache tier ran after the outer timeout")
	}
}

func TestGenerator_InvalidQuery(t *testing.T) {
	_, tier, err := questions.NewGenerator(questions.WithLogger(logger.Nop())).
		Generate(context.Background(), questions.Query{Topic: "  "})
	if !errors.Is(err, errors.ErrCodeInvalidRequest) || tier != questions.TierNone {
		t.Errorf("tier = %s, err = %v", tier, err)
	}
}
