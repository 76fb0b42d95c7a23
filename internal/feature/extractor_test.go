package feature

import (
	"context"
	"errors"
	"testing"

	"github.com/FocuswithJustin/CanonScope/core/lexicon"
	"github.com/FocuswithJustin/CanonScope/core/verse"
)

// failingScorer always fails, for exercising the incomplete path.
type failingScorer struct{}

func (failingScorer) Name() string { return "failing" }
func (failingScorer) Score(context.Context, string) (float64, error) {
	return 0, errors.New("scorer unavailable")
}

// fixedScorer returns a constant and counts calls.
type fixedScorer struct {
	score float64
	calls int
}

func (s *fixedScorer) Name() string { return "fixed" }
func (s *fixedScorer) Score(context.Context, string) (float64, error) {
	s.calls++
	return s.score, nil
}

func loveSmiteLexicon() *lexicon.Set {
	return &lexicon.Set{
		Categories: []lexicon.Category{
			{Name: "compassion", Terms: []string{"love"}},
			{Name: "domination", Terms: []string{"smite"}},
		},
	}
}

func chapterVerses() []*verse.Verse {
	return []*verse.Verse{
		{Ref: verse.Ref{Book: "Test", Chapter: 1, Verse: 1}, Text: "And he said, love thy neighbour."},
		{Ref: verse.Ref{Book: "Test", Chapter: 1, Verse: 2}, Text: "He shall smite the wicked."},
		{Ref: verse.Ref{Book: "Test", Chapter: 1, Verse: 3}, Text: "And it was so."},
	}
}

func TestExtractLexiconRates(t *testing.T) {
	ex, err := New(loveSmiteLexicon(), nil)
	if err != nil {
		t.Fatal(err)
	}

	verses := chapterVerses()
	v1 := ex.Extract(context.Background(), verses[0])
	v2 := ex.Extract(context.Background(), verses[1])
	v3 := ex.Extract(context.Background(), verses[2])

	if v1.Rate("compassion") <= 0 {
		t.Errorf("verse 1 compassion rate = %v, want > 0", v1.Rate("compassion"))
	}
	if v1.Rate("domination") != 0 {
		t.Errorf("verse 1 domination rate = %v, want 0", v1.Rate("domination"))
	}
	if v2.Rate("domination") <= 0 {
		t.Errorf("verse 2 domination rate = %v, want > 0", v2.Rate("domination"))
	}
	if v2.Rate("compassion") != 0 {
		t.Errorf("verse 2 compassion rate = %v, want 0", v2.Rate("compassion"))
	}
	if v3.Rate("compassion") != 0 || v3.Rate("domination") != 0 {
		t.Errorf("verse 3 rates = %v, want all 0", v3.Rates)
	}
}

func TestExtractRateNormalization(t *testing.T) {
	ex, err := New(loveSmiteLexicon(), nil)
	if err != nil {
		t.Fatal(err)
	}

	v := &verse.Verse{Ref: verse.Ref{Book: "Test", Chapter: 1, Verse: 1}, Text: "love love hate like"}
	vec := ex.Extract(context.Background(), v)
	if vec.WordCount != 4 {
		t.Fatalf("WordCount = %d, want 4", vec.WordCount)
	}
	if vec.Rate("compassion") != 0.5 {
		t.Errorf("rate = %v, want 0.5", vec.Rate("compassion"))
	}
}

func TestExtractEmptyVerse(t *testing.T) {
	ex, err := New(loveSmiteLexicon(), nil)
	if err != nil {
		t.Fatal(err)
	}
	vec := ex.Extract(context.Background(), &verse.Verse{Text: "..."})
	if vec.WordCount != 0 {
		t.Errorf("WordCount = %d, want 0", vec.WordCount)
	}
	if vec.Rate("compassion") != 0 {
		t.Error("empty verse should have zero rates, not NaN")
	}
}

func TestExtractScorerFailureMarksIncomplete(t *testing.T) {
	ex, err := New(loveSmiteLexicon(), failingScorer{})
	if err != nil {
		t.Fatal(err)
	}

	vec := ex.Extract(context.Background(), chapterVerses()[0])
	if !vec.Incomplete {
		t.Fatal("vector should be marked incomplete on scorer failure")
	}
	if vec.Error == "" {
		t.Error("scorer error should be recorded")
	}
	// Rates are still computed for incomplete vectors.
	if vec.Rate("compassion") <= 0 {
		t.Error("rates should survive scorer failure")
	}
}

func TestExtractSentimentClamped(t *testing.T) {
	ex, err := New(loveSmiteLexicon(), &fixedScorer{score: 3.5})
	if err != nil {
		t.Fatal(err)
	}
	vec := ex.Extract(context.Background(), chapterVerses()[0])
	if vec.Sentiment != 1 {
		t.Errorf("Sentiment = %v, want clamped to 1", vec.Sentiment)
	}
}

func TestExtractAllOneVectorPerVerse(t *testing.T) {
	ex, err := New(loveSmiteLexicon(), nil)
	if err != nil {
		t.Fatal(err)
	}
	c := &verse.Corpus{Books: []*verse.Book{{Name: "Test", Order: 1, Verses: chapterVerses()}}}
	vectors := ex.ExtractAll(context.Background(), c)
	if len(vectors) != 3 {
		t.Fatalf("got %d vectors, want 3", len(vectors))
	}
	for i, vec := range vectors {
		if vec.Ref != c.Books[0].Verses[i].Ref {
			t.Errorf("vector %d ref = %v", i, vec.Ref)
		}
	}
}

func TestExtractDeterministicHash(t *testing.T) {
	ex, err := New(loveSmiteLexicon(), NewLexicalScorer(nil, nil))
	if err != nil {
		t.Fatal(err)
	}
	v := chapterVerses()[0]

	a := ex.Extract(context.Background(), v)
	b := ex.Extract(context.Background(), v)

	ha, err := a.Hash()
	if err != nil {
		t.Fatal(err)
	}
	hb, err := b.Hash()
	if err != nil {
		t.Fatal(err)
	}
	if ha != hb {
		t.Error("re-extraction must produce byte-identical vectors")
	}
}

func TestNewRejectsInvalidLexicon(t *testing.T) {
	if _, err := New(&lexicon.Set{}, nil); err == nil {
		t.Error("expected error for empty lexicon")
	}
}

func TestExtractorCategories(t *testing.T) {
	ex, err := New(loveSmiteLexicon(), nil)
	if err != nil {
		t.Fatal(err)
	}
	got := ex.Categories()
	if len(got) != 2 || got[0] != "compassion" || got[1] != "domination" {
		t.Errorf("Categories = %v", got)
	}
}
