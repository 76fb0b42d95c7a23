// Package lexicon defines lexicon categories: named sets of trigger terms
// used for per-verse rate scoring. Lexicons are static configuration data,
// loaded from YAML files or taken from the built-in defaults.
package lexicon

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/FocuswithJustin/CanonScope/core/errors"
	"github.com/FocuswithJustin/CanonScope/core/verse"
)

// Category is a named set of trigger terms. Terms are matched
// case-insensitively on word boundaries; multi-word terms match
// consecutive tokens.
type Category struct {
	// Name is the category identifier (e.g., "compassion").
	Name string `yaml:"name" json:"name"`

	// Terms are the trigger words and phrases.
	Terms []string `yaml:"terms" json:"terms"`
}

// Set is an ordered collection of categories.
type Set struct {
	Categories []Category `yaml:"categories" json:"categories"`
}

// Names returns the category names in declaration order.
func (s *Set) Names() []string {
	names := make([]string, len(s.Categories))
	for i, c := range s.Categories {
		names[i] = c.Name
	}
	return names
}

// Category returns the category with the given name, or nil if absent.
func (s *Set) Category(name string) *Category {
	for i := range s.Categories {
		if s.Categories[i].Name == name {
			return &s.Categories[i]
		}
	}
	return nil
}

// Validate checks the set for structural problems: empty names, empty
// categories, duplicate category names, and duplicate terms within a
// category.
func (s *Set) Validate() error {
	if len(s.Categories) == 0 {
		return errors.NewValidation("categories", "lexicon has no categories")
	}
	seen := map[string]bool{}
	for _, c := range s.Categories {
		if strings.TrimSpace(c.Name) == "" {
			return errors.NewValidation("name", "category with empty name")
		}
		if seen[c.Name] {
			return errors.NewValidation("name", fmt.Sprintf("duplicate category %q", c.Name))
		}
		seen[c.Name] = true

		if len(c.Terms) == 0 {
			return errors.NewValidation(c.Name, "category has no terms")
		}
		terms := map[string]bool{}
		for _, t := range c.Terms {
			norm := strings.ToLower(strings.TrimSpace(t))
			if norm == "" {
				return errors.NewValidation(c.Name, "empty term")
			}
			if terms[norm] {
				return errors.NewValidation(c.Name, fmt.Sprintf("duplicate term %q", norm))
			}
			terms[norm] = true
		}
	}
	return nil
}

// Matcher is a compiled category for fast token matching.
type Matcher struct {
	name    string
	words   map[string]bool
	phrases [][]string // multi-word terms as token sequences
}

// Compile builds a Matcher from a category. Terms are lowercased and
// tokenized with the same rules as verse text.
func (c *Category) Compile() *Matcher {
	m := &Matcher{name: c.Name, words: map[string]bool{}}
	for _, term := range c.Terms {
		tokens := verse.Tokenize(term)
		switch len(tokens) {
		case 0:
			// skip unmatched terms (pure punctuation)
		case 1:
			m.words[tokens[0]] = true
		default:
			m.phrases = append(m.phrases, tokens)
		}
	}
	return m
}

// Name returns the category name.
func (m *Matcher) Name() string { return m.name }

// Count returns the number of term matches in the token sequence.
// Single-word terms count each occurrence; phrase terms count each
// non-overlapping occurrence of the full token window.
func (m *Matcher) Count(tokens []string) int {
	n := 0
	for _, tok := range tokens {
		if m.words[tok] {
			n++
		}
	}
	for _, phrase := range m.phrases {
		for i := 0; i+len(phrase) <= len(tokens); i++ {
			match := true
			for j, p := range phrase {
				if tokens[i+j] != p {
					match = false
					break
				}
			}
			if match {
				n++
				i += len(phrase) - 1
			}
		}
	}
	return n
}

// CompileSet compiles all categories of a set, keyed by category name.
func CompileSet(s *Set) map[string]*Matcher {
	out := make(map[string]*Matcher, len(s.Categories))
	for i := range s.Categories {
		out[s.Categories[i].Name] = s.Categories[i].Compile()
	}
	return out
}

// Load reads a lexicon set from a YAML file and validates it.
func Load(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading lexicon %s", path)
	}
	var s Set
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrapf(err, "parsing lexicon %s", path)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Save writes a lexicon set to a YAML file.
func Save(s *Set, path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return errors.Wrap(err, "marshaling lexicon")
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrapf(err, "writing lexicon %s", path)
	}
	return nil
}

// SortedNames returns the category names of a compiled matcher map in
// lexical order, for deterministic iteration.
func SortedNames(matchers map[string]*Matcher) []string {
	names := make([]string, 0, len(matchers))
	for name := range matchers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
