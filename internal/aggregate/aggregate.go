// Package aggregate folds per-verse feature vectors into named buckets
// with summary statistics. Buckets use a sum/sum-of-squares representation
// so merging is associative and commutative, which lets parallel workers
// aggregate partial slices and combine the results in any order.
package aggregate

import (
	"fmt"
	"sort"

	"github.com/FocuswithJustin/CanonScope/internal/feature"
)

// PartitionFunc assigns a vector to a bucket key.
type PartitionFunc func(v *feature.Vector) string

// ByBook partitions vectors by book name.
func ByBook(v *feature.Vector) string { return v.Ref.Book }

// ByChapter partitions vectors by book and chapter.
func ByChapter(v *feature.Vector) string {
	return fmt.Sprintf("%s %d", v.Ref.Book, v.Ref.Chapter)
}

// Whole returns a partition that places every vector under a single key.
func Whole(label string) PartitionFunc {
	return func(*feature.Vector) string { return label }
}

// CategoryStats accumulates one category's rates (or sentiment scores)
// within a bucket.
type CategoryStats struct {
	// Count is the number of samples folded in.
	Count int `json:"count"`

	// Sum and SumSq carry the running totals used for mean and variance.
	Sum   float64 `json:"sum"`
	SumSq float64 `json:"sum_sq"`

	// Min and Max are only meaningful when Count > 0.
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Defined reports whether any samples were folded in. Statistics on an
// undefined stats block return zero rather than NaN.
func (s *CategoryStats) Defined() bool { return s.Count > 0 }

// Mean returns the sample mean, or 0 when undefined.
func (s *CategoryStats) Mean() float64 {
	if s.Count == 0 {
		return 0
	}
	return s.Sum / float64(s.Count)
}

// Variance returns the population variance, or 0 when fewer than two
// samples were folded in.
func (s *CategoryStats) Variance() float64 {
	if s.Count < 2 {
		return 0
	}
	n := float64(s.Count)
	mean := s.Sum / n
	v := s.SumSq/n - mean*mean
	if v < 0 {
		// Guard against negative values from floating point cancellation.
		return 0
	}
	return v
}

// Add folds a single sample into the stats.
func (s *CategoryStats) Add(x float64) {
	if s.Count == 0 || x < s.Min {
		s.Min = x
	}
	if s.Count == 0 || x > s.Max {
		s.Max = x
	}
	s.Count++
	s.Sum += x
	s.SumSq += x * x
}

// Merge folds another stats block into this one.
func (s *CategoryStats) Merge(other *CategoryStats) {
	if other == nil || other.Count == 0 {
		return
	}
	if s.Count == 0 {
		*s = *other
		return
	}
	if other.Min < s.Min {
		s.Min = other.Min
	}
	if other.Max > s.Max {
		s.Max = other.Max
	}
	s.Count += other.Count
	s.Sum += other.Sum
	s.SumSq += other.SumSq
}

// Bucket holds the aggregated statistics for one partition key.
type Bucket struct {
	// Key is the partition key, e.g. a book name or "Genesis 3".
	Key string `json:"key"`

	// Count is the number of vectors folded into this bucket.
	Count int `json:"count"`

	// Incomplete counts vectors whose sentiment scoring failed. Their
	// category rates are still folded in; their sentiment is not.
	Incomplete int `json:"incomplete"`

	// Categories maps category name to its rate statistics.
	Categories map[string]*CategoryStats `json:"categories"`

	// Sentiment holds statistics over successfully scored vectors.
	Sentiment *CategoryStats `json:"sentiment"`
}

// NewBucket returns an empty bucket for key. Its statistics are
// undefined until vectors are added.
func NewBucket(key string) *Bucket {
	return &Bucket{
		Key:        key,
		Categories: make(map[string]*CategoryStats),
		Sentiment:  &CategoryStats{},
	}
}

// Add folds one vector into the bucket.
func (b *Bucket) Add(v *feature.Vector) {
	b.Count++
	for name, rate := range v.Rates {
		stats := b.Categories[name]
		if stats == nil {
			stats = &CategoryStats{}
			b.Categories[name] = stats
		}
		stats.Add(rate)
	}
	if v.Incomplete {
		b.Incomplete++
		return
	}
	b.Sentiment.Add(v.Sentiment)
}

// Merge folds another bucket into this one. Merge is associative and
// commutative, so partial buckets from parallel workers combine in any
// order.
func (b *Bucket) Merge(other *Bucket) {
	if other == nil {
		return
	}
	b.Count += other.Count
	b.Incomplete += other.Incomplete
	for name, stats := range other.Categories {
		mine := b.Categories[name]
		if mine == nil {
			mine = &CategoryStats{}
			b.Categories[name] = mine
		}
		mine.Merge(stats)
	}
	b.Sentiment.Merge(other.Sentiment)
}

// CategoryNames returns the bucket's category names sorted.
func (b *Bucket) CategoryNames() []string {
	names := make([]string, 0, len(b.Categories))
	for name := range b.Categories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Result is the outcome of aggregating a vector slice.
type Result struct {
	// Buckets maps partition key to its bucket.
	Buckets map[string]*Bucket `json:"buckets"`

	// Total is the number of vectors aggregated.
	Total int `json:"total"`
}

// Empty reports whether no vectors were aggregated.
func (r *Result) Empty() bool { return r.Total == 0 }

// Keys returns the bucket keys sorted.
func (r *Result) Keys() []string {
	keys := make([]string, 0, len(r.Buckets))
	for key := range r.Buckets {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Bucket returns the bucket for key, or an empty count-0 bucket when the
// partition has no vectors.
func (r *Result) Bucket(key string) *Bucket {
	if b, ok := r.Buckets[key]; ok {
		return b
	}
	return NewBucket(key)
}

// Merge folds another result into this one.
func (r *Result) Merge(other *Result) {
	if other == nil {
		return
	}
	r.Total += other.Total
	for key, bucket := range other.Buckets {
		mine := r.Buckets[key]
		if mine == nil {
			r.Buckets[key] = bucket
			continue
		}
		mine.Merge(bucket)
	}
}

// Aggregate partitions the vectors and folds each partition into a
// bucket. A nil or empty vector slice yields an empty result, not an
// error.
func Aggregate(vectors []*feature.Vector, partition PartitionFunc) *Result {
	result := &Result{Buckets: make(map[string]*Bucket)}
	for _, v := range vectors {
		if v == nil {
			continue
		}
		key := partition(v)
		bucket := result.Buckets[key]
		if bucket == nil {
			bucket = NewBucket(key)
			result.Buckets[key] = bucket
		}
		bucket.Add(v)
		result.Total++
	}
	return result
}
