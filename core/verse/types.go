package verse

import (
	"regexp"
	"strings"
	"time"
)

// Corpus is the top-level container for one segmented canonical text.
type Corpus struct {
	// ID is the unique identifier for this corpus (e.g., "kjv", "quran_pickthall").
	ID string `json:"id"`

	// Title is the human-readable title of the translation.
	Title string `json:"title,omitempty"`

	// Tradition names the tradition the text belongs to (e.g., "christianity").
	Tradition string `json:"tradition,omitempty"`

	// Language is the BCP-47 language tag (e.g., "en").
	Language string `json:"language,omitempty"`

	// Source is the path or URL the text was ingested from.
	Source string `json:"source,omitempty"`

	// SourceHash is the SHA-256 hash of the raw source bytes.
	SourceHash string `json:"source_hash,omitempty"`

	// Fingerprint is the BLAKE3 hash of the normalized text.
	Fingerprint string `json:"fingerprint,omitempty"`

	// RetrievedAt records when the source was read.
	RetrievedAt time.Time `json:"retrieved_at,omitempty"`

	// Books contains all books in canonical order.
	Books []*Book `json:"books,omitempty"`

	// Attributes contains additional metadata as key-value pairs.
	Attributes map[string]string `json:"attributes,omitempty"`
}

// VerseCount returns the total number of verses across all books.
func (c *Corpus) VerseCount() int {
	n := 0
	for _, b := range c.Books {
		n += len(b.Verses)
	}
	return n
}

// Verses returns all verses in canonical order.
func (c *Corpus) Verses() []*Verse {
	out := make([]*Verse, 0, c.VerseCount())
	for _, b := range c.Books {
		out = append(out, b.Verses...)
	}
	return out
}

// Book returns the book with the given name, or nil if absent.
func (c *Corpus) Book(name string) *Book {
	for _, b := range c.Books {
		if b.Name == name {
			return b
		}
	}
	return nil
}

// Book represents a single book within a corpus.
type Book struct {
	// Name is the book name as recognized in the source (e.g., "Genesis").
	Name string `json:"name"`

	// Order is the position within the corpus (1-indexed).
	Order int `json:"order"`

	// Verses contains the book's verses in canonical order.
	Verses []*Verse `json:"verses,omitempty"`
}

// ChapterCount returns the number of distinct chapters in the book.
func (b *Book) ChapterCount() int {
	seen := map[int]bool{}
	for _, v := range b.Verses {
		seen[v.Ref.Chapter] = true
	}
	return len(seen)
}

// Verse is the smallest addressable unit of an ingested text.
// A Verse is immutable once created by the segmenter.
type Verse struct {
	// Ref is the canonical (book, chapter, verse) reference.
	Ref Ref `json:"ref"`

	// Text is the normalized verse text with collapsed whitespace.
	Text string `json:"text"`

	// Hash is the SHA-256 hash of the Text field.
	Hash string `json:"hash,omitempty"`
}

// Possessives split at the apostrophe so "love's" still matches the
// lexicon term "love".
var wordRegex = regexp.MustCompile(`[\p{L}\p{N}]+`)

// Words returns the lowercased word tokens of the verse text.
// Tokenization is shared with the feature extractor so term matching
// and length normalization agree on what counts as a word.
func (v *Verse) Words() []string {
	return wordRegex.FindAllString(strings.ToLower(v.Text), -1)
}

// Tokenize returns the lowercased word tokens of arbitrary text using
// the same rules as Verse.Words.
func Tokenize(text string) []string {
	return wordRegex.FindAllString(strings.ToLower(text), -1)
}
