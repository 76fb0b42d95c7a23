package feature

import (
	"context"

	"github.com/FocuswithJustin/CanonScope/core/lexicon"
	"github.com/FocuswithJustin/CanonScope/core/verse"
)

// Scorer scores the sentiment of a text in [-1, 1]. Implementations must
// be safe for concurrent use; the extractor may call Score from parallel
// workers.
type Scorer interface {
	// Name identifies the scorer implementation for logging and errors.
	Name() string

	// Score returns the sentiment polarity of the text.
	Score(ctx context.Context, text string) (float64, error)
}

// Default positive/negative vocabularies for the lexical scorer, tuned for
// early-modern English translations.
var (
	defaultPositive = []string{
		"good", "blessed", "joy", "peace", "love", "mercy",
		"grace", "glad", "righteous",
	}
	defaultNegative = []string{
		"evil", "wrath", "curse", "destroy", "sorrow", "fear",
		"weep", "death", "wicked",
	}
)

// LexicalScorer scores sentiment as (positive - negative) / word count
// using two term lexicons. It is deterministic, dependency-free, and never
// fails, which makes it the default scorer.
type LexicalScorer struct {
	positive *lexicon.Matcher
	negative *lexicon.Matcher
}

// NewLexicalScorer creates a LexicalScorer with the given vocabularies.
// Empty slices fall back to the built-in defaults.
func NewLexicalScorer(positive, negative []string) *LexicalScorer {
	if len(positive) == 0 {
		positive = defaultPositive
	}
	if len(negative) == 0 {
		negative = defaultNegative
	}
	pos := lexicon.Category{Name: "positive", Terms: positive}
	neg := lexicon.Category{Name: "negative", Terms: negative}
	return &LexicalScorer{
		positive: pos.Compile(),
		negative: neg.Compile(),
	}
}

// Name returns the scorer name.
func (s *LexicalScorer) Name() string { return "lexical" }

// Score implements Scorer.
func (s *LexicalScorer) Score(_ context.Context, text string) (float64, error) {
	words := verse.Tokenize(text)
	if len(words) == 0 {
		return 0, nil
	}
	diff := float64(s.positive.Count(words) - s.negative.Count(words))
	return clamp(diff / float64(len(words))), nil
}
