package feature

import (
	"context"
	"encoding/json"

	"github.com/FocuswithJustin/CanonScope/core/errors"
	"github.com/FocuswithJustin/CanonScope/core/lexicon"
	"github.com/FocuswithJustin/CanonScope/core/verse"
	"github.com/FocuswithJustin/CanonScope/internal/logging"
)

// jsonMarshal is a variable to allow testing of marshal errors.
var jsonMarshal = json.Marshal

// Extractor computes one Vector per Verse. It is safe for concurrent use
// when the underlying Scorer is.
type Extractor struct {
	matchers map[string]*lexicon.Matcher
	scorer   Scorer
}

// New creates an Extractor for the given lexicon set and scorer.
// A nil scorer disables sentiment; vectors then carry a zero sentiment
// and are never marked incomplete.
func New(set *lexicon.Set, scorer Scorer) (*Extractor, error) {
	if err := set.Validate(); err != nil {
		return nil, err
	}
	return &Extractor{
		matchers: lexicon.CompileSet(set),
		scorer:   scorer,
	}, nil
}

// Categories returns the configured category names in lexical order.
func (e *Extractor) Categories() []string {
	return lexicon.SortedNames(e.matchers)
}

// Extract computes the feature vector for a single verse. Scorer failures
// never abort extraction: the vector is marked incomplete and the error is
// recorded on it, per the batch error policy.
func (e *Extractor) Extract(ctx context.Context, v *verse.Verse) *Vector {
	words := v.Words()
	n := len(words)
	denom := float64(n)
	if denom == 0 {
		denom = 1
	}

	vec := &Vector{
		Ref:       v.Ref,
		Rates:     make(map[string]float64, len(e.matchers)),
		WordCount: n,
	}
	for name, m := range e.matchers {
		vec.Rates[name] = float64(m.Count(words)) / denom
	}

	if e.scorer == nil {
		return vec
	}

	score, err := e.scorer.Score(ctx, v.Text)
	if err != nil {
		serr := errors.NewScoring(v.Ref.String(), e.scorer.Name(), err)
		logging.ScorerFailure(ctx, v.Ref.String(), e.scorer.Name(), err)
		vec.Incomplete = true
		vec.Error = serr.Error()
		return vec
	}
	vec.Sentiment = clamp(score)
	return vec
}

// ExtractAll computes vectors for all verses of a corpus in canonical
// order. The returned slice always has one vector per verse.
func (e *Extractor) ExtractAll(ctx context.Context, c *verse.Corpus) []*Vector {
	verses := c.Verses()
	out := make([]*Vector, len(verses))
	for i, v := range verses {
		out[i] = e.Extract(ctx, v)
	}
	return out
}

func clamp(f float64) float64 {
	if f > 1 {
		return 1
	}
	if f < -1 {
		return -1
	}
	return f
}
