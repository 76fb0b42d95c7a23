package feature

import (
	"context"
	"testing"

	"github.com/FocuswithJustin/CanonScope/internal/cache"
)

func TestLexicalScorerPolarity(t *testing.T) {
	s := NewLexicalScorer(nil, nil)

	pos, err := s.Score(context.Background(), "Blessed are the peacemakers, full of mercy and love.")
	if err != nil {
		t.Fatal(err)
	}
	if pos <= 0 {
		t.Errorf("positive text scored %v, want > 0", pos)
	}

	neg, err := s.Score(context.Background(), "Wrath and sorrow and death, an evil curse.")
	if err != nil {
		t.Fatal(err)
	}
	if neg >= 0 {
		t.Errorf("negative text scored %v, want < 0", neg)
	}

	neutral, err := s.Score(context.Background(), "And they went up out of the city.")
	if err != nil {
		t.Fatal(err)
	}
	if neutral != 0 {
		t.Errorf("neutral text scored %v, want 0", neutral)
	}
}

func TestLexicalScorerEmptyText(t *testing.T) {
	s := NewLexicalScorer(nil, nil)
	score, err := s.Score(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if score != 0 {
		t.Errorf("empty text scored %v, want 0", score)
	}
}

func TestLexicalScorerCustomVocabulary(t *testing.T) {
	s := NewLexicalScorer([]string{"light"}, []string{"dark"})
	score, err := s.Score(context.Background(), "light light dark")
	if err != nil {
		t.Fatal(err)
	}
	want := 1.0 / 3.0
	if score != want {
		t.Errorf("score = %v, want %v", score, want)
	}
}

func TestLexicalScorerRange(t *testing.T) {
	s := NewLexicalScorer(nil, nil)
	score, err := s.Score(context.Background(), "love")
	if err != nil {
		t.Fatal(err)
	}
	if score < -1 || score > 1 {
		t.Errorf("score %v outside [-1, 1]", score)
	}
}

func TestCachedScorerMemoizes(t *testing.T) {
	inner := &fixedScorer{score: 0.25}
	s := NewCachedScorer(inner, cache.NewDefaultScoreCache())

	for i := 0; i < 3; i++ {
		score, err := s.Score(context.Background(), "repeated verse text")
		if err != nil {
			t.Fatal(err)
		}
		if score != 0.25 {
			t.Errorf("score = %v, want 0.25", score)
		}
	}
	if inner.calls != 1 {
		t.Errorf("inner scorer called %d times, want 1", inner.calls)
	}
	if s.CacheStats().Hits != 2 {
		t.Errorf("cache hits = %d, want 2", s.CacheStats().Hits)
	}
}

func TestCachedScorerDoesNotCacheErrors(t *testing.T) {
	s := NewCachedScorer(failingScorer{}, nil)
	if _, err := s.Score(context.Background(), "text"); err == nil {
		t.Fatal("expected error")
	}
	if _, err := s.Score(context.Background(), "text"); err == nil {
		t.Fatal("errors must not be cached")
	}
	if s.Name() != "failing" {
		t.Errorf("Name = %q, want inner scorer name", s.Name())
	}
}
