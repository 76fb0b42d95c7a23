// Package render turns aggregated buckets into presentation artifacts.
// The core output is a declarative chart spec (marks plus encodings, no
// pixels) so downstream renderers stay swappable; the package also ships
// a terminal table and a static HTML rendering of the same spec.
package render

import (
	"encoding/json"
	"os"
	"sort"
	"time"

	"github.com/FocuswithJustin/CanonScope/core/errors"
	"github.com/FocuswithJustin/CanonScope/internal/aggregate"
)

// Field describes one encoding channel of the chart.
type Field struct {
	// Field names the data row field bound to this channel.
	Field string `json:"field"`

	// Type is "nominal" or "quantitative".
	Type string `json:"type"`

	// Title is an optional axis label.
	Title string `json:"title,omitempty"`
}

// Encoding binds data row fields to visual channels.
type Encoding struct {
	X     Field `json:"x"`
	Y     Field `json:"y"`
	Color Field `json:"color"`
}

// Row is one flattened data point: one category's statistics within one
// bucket.
type Row struct {
	Key        string  `json:"key"`
	Category   string  `json:"category"`
	Count      int     `json:"count"`
	Incomplete int     `json:"incomplete"`
	Mean       float64 `json:"mean"`
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	Variance   float64 `json:"variance"`
}

// Spec is the declarative chart description. It carries marks, encodings
// and data rows, never rendered output, so any renderer that understands
// the shape can draw it.
type Spec struct {
	// Title labels the chart.
	Title string `json:"title"`

	// Mark is the geometric primitive, currently always "bar".
	Mark string `json:"mark"`

	// Encoding binds row fields to channels.
	Encoding Encoding `json:"encoding"`

	// Data holds one row per (bucket, category) pair, sorted by key
	// then category.
	Data []Row `json:"data"`

	// Empty marks a spec built from zero vectors.
	Empty bool `json:"empty"`

	// Incomplete is the total count of vectors whose scoring failed.
	Incomplete int `json:"incomplete"`

	// GeneratedAt records when the spec was built.
	GeneratedAt time.Time `json:"generated_at"`
}

// sentimentCategory is the synthetic category name used for sentiment
// rows alongside lexicon categories.
const sentimentCategory = "sentiment"

// Build flattens an aggregation result into a chart spec. A nil result
// is malformed input; an empty result yields an empty-flagged spec.
func Build(result *aggregate.Result, title string) (*Spec, error) {
	if result == nil {
		return nil, errors.NewPresentation("chart", "nil aggregation result")
	}

	spec := &Spec{
		Title: title,
		Mark:  "bar",
		Encoding: Encoding{
			X:     Field{Field: "key", Type: "nominal", Title: "Partition"},
			Y:     Field{Field: "mean", Type: "quantitative", Title: "Mean rate"},
			Color: Field{Field: "category", Type: "nominal"},
		},
		Data:        make([]Row, 0, len(result.Buckets)),
		Empty:       result.Empty(),
		GeneratedAt: time.Now().UTC(),
	}

	for _, key := range result.Keys() {
		bucket := result.Buckets[key]
		spec.Incomplete += bucket.Incomplete
		for _, name := range bucket.CategoryNames() {
			spec.Data = append(spec.Data, statsRow(key, name, bucket, bucket.Categories[name]))
		}
		if bucket.Sentiment.Defined() {
			spec.Data = append(spec.Data, statsRow(key, sentimentCategory, bucket, bucket.Sentiment))
		}
	}
	sort.SliceStable(spec.Data, func(i, j int) bool {
		if spec.Data[i].Key != spec.Data[j].Key {
			return spec.Data[i].Key < spec.Data[j].Key
		}
		return spec.Data[i].Category < spec.Data[j].Category
	})
	return spec, nil
}

func statsRow(key, category string, bucket *aggregate.Bucket, stats *aggregate.CategoryStats) Row {
	return Row{
		Key:        key,
		Category:   category,
		Count:      bucket.Count,
		Incomplete: bucket.Incomplete,
		Mean:       stats.Mean(),
		Min:        stats.Min,
		Max:        stats.Max,
		Variance:   stats.Variance(),
	}
}

// Validate checks a spec for the shape renderers rely on.
func (s *Spec) Validate() error {
	if s == nil {
		return errors.NewPresentation("chart", "nil spec")
	}
	if s.Mark == "" {
		return errors.NewPresentation("chart", "spec has no mark")
	}
	if s.Encoding.X.Field == "" || s.Encoding.Y.Field == "" {
		return errors.NewPresentation("chart", "spec has unbound encoding channels")
	}
	if !s.Empty && len(s.Data) == 0 {
		return errors.NewPresentation("chart", "non-empty spec has no data rows")
	}
	return nil
}

// WriteJSON validates the spec and writes it as indented JSON to path.
func WriteJSON(s *Spec, path string) error {
	if err := s.Validate(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return errors.NewPresentation(path, err.Error())
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return errors.NewPresentation(path, err.Error())
	}
	return nil
}

// ReadJSON loads a previously written chart spec.
func ReadJSON(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewPresentation(path, err.Error())
	}
	var s Spec
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, errors.NewPresentation(path, err.Error())
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}
