package questions_test

import (
	"context"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/kbukum/quizgen/errors"
	"github.com/kbukum/quizgen/questions"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   questions.Query
		want questions.Query
	}{
		{"alias cs", questions.Query{Topic: "cs", Difficulty: "easy", Count: 5},
			questions.Query{Topic: questions.ComputerScience, Difficulty: questions.Easy, Count: 5}},
		{"alias ai upper", questions.Query{Topic: " AI ", Difficulty: "HARD", Count: 7},
			questions.Query{Topic: questions.ArtificialIntelligence, Difficulty: questions.Hard, Count: 7}},
		{"alias phil", questions.Query{Topic: "phil", Difficulty: "Medium", Count: 10},
			questions.Query{Topic: questions.Philosophy, Difficulty: questions.Medium, Count: 10}},
		{"unknown difficulty", questions.Query{Topic: "Astronomy", Difficulty: "extreme", Count: 6},
			questions.Query{Topic: "Astronomy", Difficulty: questions.Medium, Count: 6}},
		{"count clamped low", questions.Query{Topic: "Astronomy", Difficulty: "easy", Count: 0},
			questions.Query{Topic: "Astronomy", Difficulty: questions.Easy, Count: questions.MinCount}},
		{"count clamped high", questions.Query{Topic: "Astronomy", Difficulty: "easy", Count: 50},
			questions.Query{Topic: "Astronomy", Difficulty: questions.Easy, Count: questions.MaxCount}},
		{"special characters", questions.Query{Topic: "World <b>History</b>\x00!", Difficulty: "easy", Count: 5},
			questions.Query{Topic: "World bHistoryb", Difficulty: questions.Easy, Count: 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := questions.Normalize(tt.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Normalize(%+v) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalize_TopicLength(t *testing.T) {
	got, err := questions.Normalize(questions.Query{Topic: strings.Repeat("a", 300)})
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Topic) != questions.MaxTopicLength {
		t.Errorf("topic length = %d", len(got.Topic))
	}
}

func TestNormalize_EmptyTopic(t *testing.T) {
	for _, topic := range []string{"", "   ", "<>{}"} {
		if _, err := questions.Normalize(questions.Query{Topic: topic}); !errors.Is(err, errors.ErrCodeInvalidRequest) {
			t.Errorf("Normalize(%q) err = %v, want INVALID_REQUEST", topic, err)
		}
	}
}

func TestTopicFolder(t *testing.T) {
	tests := map[string]string{
		questions.ComputerScience:        "cs",
		questions.ArtificialIntelligence: "ai",
		questions.Philosophy:             "philosophy",
		"World History":                  "world-history",
	}
	for topic, want := range tests {
		if got := questions.TopicFolder(topic); got != want {
			t.Errorf("TopicFolder(%q) = %q, want %q", topic, got, want)
		}
	}
}

func TestQuestion_Check(t *testing.T) {
	four := []string{"a", "b", "c", "d"}
	tests := []struct {
		name string
		q    questions.Question
		want string
	}{
		{"valid", questions.Question{Text: "Q?", Choices: four, CorrectIndex: 3}, ""},
		{"blank text", questions.Question{Text: " ", Choices: four}, "questionText: is required"},
		{"three choices", questions.Question{Text: "Q?", Choices: four[:3]}, "choices: must have exactly 4 entries"},
		{"blank choice", questions.Question{Text: "Q?", Choices: []string{"a", "", "c", "d"}}, "choices[1]: is required"},
		{"index out of range", questions.Question{Text: "Q?", Choices: four, CorrectIndex: 4}, "correctIndex: must be between 0 and 3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.q.Check()
			if tt.want == "" {
				if err != nil || !tt.q.Valid() {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, errors.ErrCodeInvalidRequest) || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestBank(t *testing.T) {
	total := 0
	for _, topic := range questions.BankTopics() {
		for _, diff := range []string{questions.Easy, questions.Medium, questions.Hard} {
			qs := questions.Bank(topic, diff)
			if len(qs) != 5 {
				t.Errorf("%s/%s has %d questions", topic, diff, len(qs))
			}
			for _, q := range qs {
				if !q.Valid() {
					t.Errorf("invalid bank question %s", q.ID)
				}
				if q.Topic != topic || q.Difficulty != diff {
					t.Errorf("%s labelled %s/%s", q.ID, q.Topic, q.Difficulty)
				}
			}
			total += len(qs)
		}
	}
	if total != 45 {
		t.Errorf("bank size = %d, want 45", total)
	}

	first := questions.Bank(questions.ComputerScience, questions.Easy)[0]
	if first.ID != "CO_EASY_001" || first.CorrectIndex != 1 || first.Choices[1] != "Execute program instructions" {
		t.Errorf("unexpected first question %+v", first)
	}
	if id := questions.Bank(questions.Philosophy, questions.Medium)[4].ID; id != "PH_MEDI_005" {
		t.Errorf("id = %q", id)
	}
}

func TestBank_ReturnsCopies(t *testing.T) {
	qs := questions.Bank(questions.Philosophy, questions.Easy)
	qs[0].Choices[0] = "changed"
	if questions.Bank(questions.Philosophy, questions.Easy)[0].Choices[0] == "changed" {
		t.Error("bank shares choice slices with callers")
	}
}

func TestStaticSource(t *testing.T) {
	s := questions.NewStaticSource()
	qs, err := s.Execute(context.Background(), questions.Query{Topic: questions.ArtificialIntelligence, Difficulty: questions.Hard, Count: 3})
	if err != nil {
		t.Fatal(err)
	}
	if len(qs) != 3 {
		t.Errorf("got %d questions, want 3", len(qs))
	}

	_, err = s.Execute(context.Background(), questions.Query{Topic: "Astronomy", Difficulty: questions.Easy, Count: 5})
	if !errors.Is(err, errors.ErrCodeInvalidRequest) {
		t.Errorf("unknown topic err = %v", err)
	}
}

func TestCacheSource_SeedAndRead(t *testing.T) {
	fs := afero.NewMemMapFs()
	c := questions.NewCacheSource(fs, "questions")
	if c.IsAvailable(context.Background()) {
		t.Error("available before seeding")
	}

	n, err := c.Seed()
	if err != nil || n != 9 {
		t.Fatalf("Seed() = %d, %v", n, err)
	}
	if ok, _ := afero.Exists(fs, "questions/cs/easy.json"); !ok {
		t.Error("questions/cs/easy.json not written")
	}
	if n, _ := c.Seed(); n != 0 {
		t.Errorf("second Seed wrote %d files", n)
	}

	qs, err := c.Execute(context.Background(), questions.Query{Topic: questions.ComputerScience, Difficulty: questions.Easy, Count: 5})
	if err != nil {
		t.Fatal(err)
	}
	if len(qs) != 5 || qs[0].ID != "CO_EASY_001" {
		t.Errorf("unexpected cached questions %+v", qs)
	}
}

func TestCacheSource_Failures(t *testing.T) {
	fs := afero.NewMemMapFs()
	c := questions.NewCacheSource(fs, "q")
	q := questions.Query{Topic: "Astronomy", Difficulty: questions.Easy, Count: 5}

	if _, err := c.Execute(context.Background(), q); !errors.Is(err, errors.ErrCodeProvider) {
		t.Errorf("missing file err = %v", err)
	}

	_ = afero.WriteFile(fs, "q/astronomy/easy.json", []byte("{not json"), 0o644)
	if _, err := c.Execute(context.Background(), q); !errors.Is(err, errors.ErrCodeParse) {
		t.Errorf("malformed file err = %v", err)
	}

	_ = afero.WriteFile(fs, "q/astronomy/easy.json", []byte(`{"questions":[{"questionText":"Q","choices":["a","b"],"correctIndex":0}]}`), 0o644)
	if _, err := c.Execute(context.Background(), q); !errors.Is(err, errors.ErrCodeParse) {
		t.Errorf("no valid questions err = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Execute(ctx, q); err == nil {
		t.Error("expected error on cancelled context")
	}
}

func TestCacheSource_StoreSkipsInvalid(t *testing.T) {
	c := questions.NewCacheSource(afero.NewMemMapFs(), "q")
	valid := questions.Question{Text: "Q1", Choices: []string{"a", "b", "c", "d"}, CorrectIndex: 3}
	broken := questions.Question{Text: "Q2", Choices: []string{"a", "b", "c", "d"}, CorrectIndex: 7}
	if err := c.Store("Astronomy", questions.Hard, []questions.Question{broken, valid}); err != nil {
		t.Fatal(err)
	}

	qs, err := c.Execute(context.Background(), questions.Query{Topic: "Astronomy", Difficulty: questions.Hard, Count: 5})
	if err != nil {
		t.Fatal(err)
	}
	if len(qs) != 1 || qs[0].Text != "Q1" || qs[0].ID != "CACHE_HARD_001" || qs[0].Topic != "Astronomy" {
		t.Errorf("unexpected %+v", qs)
	}
}
