package feature

import (
	"context"

	"github.com/FocuswithJustin/CanonScope/core/verse"
	"github.com/FocuswithJustin/CanonScope/internal/cache"
)

// CachedScorer memoizes another scorer's results keyed by text hash.
// Errors are not cached; a failed verse is retried on the next call.
type CachedScorer struct {
	inner  Scorer
	scores *cache.ScoreCache
}

// NewCachedScorer wraps a scorer with an LRU score cache.
func NewCachedScorer(inner Scorer, scores *cache.ScoreCache) *CachedScorer {
	if scores == nil {
		scores = cache.NewDefaultScoreCache()
	}
	return &CachedScorer{inner: inner, scores: scores}
}

// Name returns the wrapped scorer's name.
func (s *CachedScorer) Name() string { return s.inner.Name() }

// Score implements Scorer.
func (s *CachedScorer) Score(ctx context.Context, text string) (float64, error) {
	key := verse.HashString(text)
	if score, ok := s.scores.Get(key); ok {
		return score, nil
	}
	score, err := s.inner.Score(ctx, text)
	if err != nil {
		return 0, err
	}
	s.scores.Put(key, score)
	return score, nil
}

// CacheStats returns the underlying cache statistics.
func (s *CachedScorer) CacheStats() cache.Stats {
	return s.scores.Stats()
}
