// Package config loads pipeline run configuration from YAML files.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/FocuswithJustin/CanonScope/core/errors"
)

// Duration wraps time.Duration so YAML values like "90s" parse.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Scorer kinds accepted in ScorerConfig.Kind.
const (
	ScorerLexical = "lexical"
	ScorerOpenAI  = "openai"
	ScorerNone    = "none"
)

// ScorerConfig selects and configures the sentiment scorer.
type ScorerConfig struct {
	// Kind is "lexical" (default), "openai", or "none".
	Kind string `yaml:"kind"`

	// APIKey authenticates the OpenAI scorer. The OPENAI_API_KEY
	// environment variable is used when empty.
	APIKey string `yaml:"api_key,omitempty"`

	// BaseURL overrides the OpenAI endpoint for compatible servers.
	BaseURL string `yaml:"base_url,omitempty"`

	// Model is the chat model name.
	Model string `yaml:"model,omitempty"`

	// CacheSize bounds the score memoization cache. 0 disables caching.
	CacheSize int `yaml:"cache_size"`
}

// OutputConfig names the artifacts a run writes.
type OutputConfig struct {
	// Chart is the path for the declarative JSON chart spec.
	Chart string `yaml:"chart,omitempty"`

	// HTML is the path for the static HTML rendering.
	HTML string `yaml:"html,omitempty"`

	// Table prints the terminal table to stdout when true.
	Table bool `yaml:"table"`
}

// Config is a full pipeline run configuration.
type Config struct {
	// CorpusID identifies the corpus, e.g. "kjv".
	CorpusID string `yaml:"corpus_id"`

	// Title labels the corpus and its rendered artifacts.
	Title string `yaml:"title,omitempty"`

	// Source is the path or URL of the canonical text.
	Source string `yaml:"source"`

	// Translation names the translation for source metadata.
	Translation string `yaml:"translation,omitempty"`

	// LexiconPath points at a YAML lexicon file. Empty means the
	// built-in default categories.
	LexiconPath string `yaml:"lexicon,omitempty"`

	// Scorer selects the sentiment scorer.
	Scorer ScorerConfig `yaml:"scorer"`

	// Partition is "book" (default), "chapter", or "whole".
	Partition string `yaml:"partition"`

	// Workers bounds parallel feature extraction. 0 means GOMAXPROCS.
	Workers int `yaml:"workers"`

	// Timeout bounds the whole run. 0 means no timeout.
	Timeout Duration `yaml:"timeout,omitempty"`

	// Strict rejects verses that appear before any book heading.
	Strict bool `yaml:"strict"`

	// StorePath is the SQLite database path. Empty disables persistence.
	StorePath string `yaml:"store,omitempty"`

	// Output names the artifacts to write.
	Output OutputConfig `yaml:"output"`
}

// Default returns a config with the documented defaults applied.
func Default() *Config {
	return &Config{
		Scorer:    ScorerConfig{Kind: ScorerLexical, CacheSize: 4096},
		Partition: "book",
		Output:    OutputConfig{Table: true},
	}
}

// Load reads and validates a YAML config file. Missing fields keep
// their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewSource("read", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the config for contradictions before a run starts.
func (c *Config) Validate() error {
	if c.CorpusID == "" {
		return errors.NewValidation("corpus_id", "corpus ID is required")
	}
	if c.Source == "" {
		return errors.NewValidation("source", "source path or URL is required")
	}
	switch c.Scorer.Kind {
	case ScorerLexical, ScorerNone:
	case ScorerOpenAI:
		if c.Scorer.APIKey == "" && os.Getenv("OPENAI_API_KEY") == "" {
			return errors.NewValidation("scorer.api_key", "OpenAI scorer needs an API key")
		}
	default:
		return errors.NewValidation("scorer.kind",
			fmt.Sprintf("unknown scorer %q (want lexical, openai, or none)", c.Scorer.Kind))
	}
	switch c.Partition {
	case "book", "chapter", "whole":
	default:
		return errors.NewValidation("partition",
			fmt.Sprintf("unknown partition %q (want book, chapter, or whole)", c.Partition))
	}
	if c.Workers < 0 {
		return errors.NewValidation("workers", "workers cannot be negative")
	}
	if c.Scorer.CacheSize < 0 {
		return errors.NewValidation("scorer.cache_size", "cache size cannot be negative")
	}
	return nil
}

// Save writes the config as YAML, for `config init` style commands.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "encode config")
	}
	return os.WriteFile(path, data, 0o644)
}
