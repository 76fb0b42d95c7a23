// Package feature computes per-verse feature vectors: lexicon category
// rates plus a sentiment score from a pluggable scorer.
package feature

import (
	"github.com/FocuswithJustin/CanonScope/core/verse"
)

// Vector holds the scored attributes of one verse. A Vector is created by
// the Extractor and never mutated afterwards; its category keys are always
// a subset of the configured lexicon set.
type Vector struct {
	// Ref identifies the verse this vector belongs to.
	Ref verse.Ref `json:"ref"`

	// Rates maps category name to match rate (matches / verse word count).
	Rates map[string]float64 `json:"rates"`

	// Sentiment is the scorer output in [-1, 1].
	Sentiment float64 `json:"sentiment"`

	// WordCount is the verse length used for normalization.
	WordCount int `json:"word_count"`

	// Incomplete is true when the sentiment scorer failed for this verse.
	// Rates are still valid; Sentiment is zero.
	Incomplete bool `json:"incomplete,omitempty"`

	// Error holds the scorer failure message when Incomplete is set.
	Error string `json:"error,omitempty"`
}

// Rate returns the rate for a category, or 0 if the category is absent.
func (v *Vector) Rate(category string) float64 {
	return v.Rates[category]
}

// Hash returns the SHA-256 hash of the vector's canonical JSON encoding.
// Go's JSON encoder emits map keys in sorted order, so identical vectors
// always hash identically; this is the determinism check for extraction.
func (v *Vector) Hash() (string, error) {
	data, err := jsonMarshal(v)
	if err != nil {
		return "", err
	}
	return verse.HashBytes(data), nil
}
