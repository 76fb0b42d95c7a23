// Command canonscope analyzes canonical religious texts: it ingests a
// source, segments it into verses, extracts lexicon and sentiment
// features, aggregates them into buckets, and renders the result.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"github.com/FocuswithJustin/CanonScope/core/errors"
	"github.com/FocuswithJustin/CanonScope/core/lexicon"
	"github.com/FocuswithJustin/CanonScope/core/verse"
	"github.com/FocuswithJustin/CanonScope/internal/config"
	"github.com/FocuswithJustin/CanonScope/internal/ingest"
	"github.com/FocuswithJustin/CanonScope/internal/logging"
	"github.com/FocuswithJustin/CanonScope/internal/pipeline"
	"github.com/FocuswithJustin/CanonScope/internal/render"
	"github.com/FocuswithJustin/CanonScope/internal/segment"
	"github.com/FocuswithJustin/CanonScope/internal/server"
	"github.com/FocuswithJustin/CanonScope/internal/store"
)

const version = "0.1.0"

// CLI defines the command-line interface for canonscope.
var CLI struct {
	// Global flags
	LogLevel  string `name:"log-level" default:"info" enum:"debug,info,warn,error" help:"Log level"`
	LogFormat string `name:"log-format" default:"text" enum:"text,json" help:"Log format"`

	// Command groups (noun-first organization)
	Corpus  CorpusGroup  `cmd:"" help:"Corpus operations (ingest, list, info, delete)"`
	Analyze AnalyzeGroup `cmd:"" help:"Feature extraction and aggregation"`
	Lexicon LexiconGroup `cmd:"" help:"Lexicon inspection and validation"`
	Render  RenderGroup  `cmd:"" help:"Render saved chart specs"`
	Run     RunCmd       `cmd:"" help:"Run the full pipeline from a config file"`
	Serve   ServeCmd     `cmd:"" help:"Start the HTTP API and progress server"`
	Version VersionCmd   `cmd:"" help:"Print version information"`
}

// CorpusGroup contains corpus lifecycle operations.
type CorpusGroup struct {
	Ingest CorpusIngestCmd `cmd:"" help:"Ingest and segment a source into the store"`
	List   CorpusListCmd   `cmd:"" help:"List stored corpora"`
	Info   CorpusInfoCmd   `cmd:"" help:"Show corpus details"`
	Verses CorpusVersesCmd `cmd:"" help:"Print the verses a reference addresses"`
	Delete CorpusDeleteCmd `cmd:"" help:"Delete a corpus"`
}

// AnalyzeGroup contains analysis operations.
type AnalyzeGroup struct {
	Extract ExtractCmd `cmd:"" help:"Extract feature vectors and write them as JSON"`
	Runs    RunsCmd    `cmd:"" help:"List recorded pipeline runs"`
}

// LexiconGroup contains lexicon operations.
type LexiconGroup struct {
	List  LexiconListCmd  `cmd:"" help:"List lexicon categories and term counts"`
	Check LexiconCheckCmd `cmd:"" help:"Validate a lexicon file"`
}

// RenderGroup renders previously written chart specs.
type RenderGroup struct {
	Table RenderTableCmd `cmd:"" help:"Print a chart spec as a terminal table"`
	HTML  RenderHTMLCmd  `cmd:"" help:"Render a chart spec as static HTML"`
}

// CorpusIngestCmd ingests and segments a source, storing the corpus.
type CorpusIngestCmd struct {
	ID          string `arg:"" help:"Corpus ID, e.g. kjv"`
	Source      string `required:"" help:"Source path or URL"`
	Translation string `help:"Translation name for source metadata"`
	Title       string `help:"Corpus title"`
	Strict      bool   `help:"Reject verses that appear before any book heading"`
	Store       string `default:"canonscope.db" help:"SQLite store path" type:"path"`
}

func (c *CorpusIngestCmd) Run() error {
	ctx := context.Background()

	doc, err := ingest.Ingest(ctx, c.Source, ingest.Options{Translation: c.Translation})
	if err != nil {
		return err
	}

	corpus, err := segment.Segment(doc.Text, segment.Options{CorpusID: c.ID, Strict: c.Strict})
	if err != nil {
		return err
	}
	corpus.Title = c.Title
	corpus.Source = doc.Meta.Source
	corpus.SourceHash = doc.Meta.SHA256
	corpus.Fingerprint = doc.Meta.Fingerprint
	corpus.RetrievedAt = doc.Meta.RetrievedAt
	if c.Translation != "" {
		corpus.Attributes = map[string]string{"translation": c.Translation}
	}

	s, err := store.Open(c.Store)
	if err != nil {
		return err
	}
	defer s.Close()
	if err := s.SaveCorpus(ctx, corpus); err != nil {
		return err
	}

	fmt.Printf("Ingested %s: %d book(s), %d verse(s)\n", c.ID, len(corpus.Books), corpus.VerseCount())
	fmt.Printf("Fingerprint: %s\n", corpus.Fingerprint)
	return nil
}

// CorpusListCmd lists stored corpora.
type CorpusListCmd struct {
	Store string `default:"canonscope.db" help:"SQLite store path" type:"path"`
}

func (c *CorpusListCmd) Run() error {
	s, err := store.Open(c.Store)
	if err != nil {
		return err
	}
	defer s.Close()

	corpora, err := s.ListCorpora(context.Background())
	if err != nil {
		return err
	}
	if len(corpora) == 0 {
		fmt.Println("No corpora stored.")
		return nil
	}
	for _, corpus := range corpora {
		title := corpus.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Printf("%-16s %s\n", corpus.ID, title)
	}
	return nil
}

// CorpusInfoCmd shows details of one corpus.
type CorpusInfoCmd struct {
	ID    string `arg:"" help:"Corpus ID"`
	Store string `default:"canonscope.db" help:"SQLite store path" type:"path"`
}

func (c *CorpusInfoCmd) Run() error {
	s, err := store.Open(c.Store)
	if err != nil {
		return err
	}
	defer s.Close()

	corpus, err := s.LoadCorpus(context.Background(), c.ID)
	if err != nil {
		return err
	}

	fmt.Printf("ID:          %s\n", corpus.ID)
	fmt.Printf("Title:       %s\n", corpus.Title)
	fmt.Printf("Source:      %s\n", corpus.Source)
	fmt.Printf("Fingerprint: %s\n", corpus.Fingerprint)
	if !corpus.RetrievedAt.IsZero() {
		fmt.Printf("Retrieved:   %s\n", corpus.RetrievedAt.Format("2006-01-02 15:04:05 UTC"))
	}
	fmt.Printf("Books:       %d\n", len(corpus.Books))
	fmt.Printf("Verses:      %d\n", corpus.VerseCount())
	for _, book := range corpus.Books {
		fmt.Printf("  %-24s %d chapter(s), %d verse(s)\n", book.Name, book.ChapterCount(), len(book.Verses))
	}
	return nil
}

// CorpusVersesCmd looks verses up by reference. The reference may
// address a whole book ("Genesis"), a chapter ("Genesis 3"), a single
// verse ("Genesis 3:16") or a range ("Genesis 3:16-18").
type CorpusVersesCmd struct {
	ID    string `arg:"" help:"Corpus ID"`
	Ref   string `arg:"" help:"Verse reference, e.g. 'Genesis 3:16' or '1 John 3:16-18'"`
	Store string `default:"canonscope.db" help:"SQLite store path" type:"path"`
}

func (c *CorpusVersesCmd) Run() error {
	ref, err := verse.ParseRef(c.Ref)
	if err != nil {
		return errors.NewValidation("ref", err.Error())
	}

	s, err := store.Open(c.Store)
	if err != nil {
		return err
	}
	defer s.Close()

	corpus, err := s.LoadCorpus(context.Background(), c.ID)
	if err != nil {
		return err
	}

	n := 0
	for _, v := range corpus.Verses() {
		if ref.Contains(v.Ref) {
			fmt.Printf("%-16s %s\n", v.Ref, v.Text)
			n++
		}
	}
	if n == 0 {
		return errors.Wrapf(errors.ErrNotFound, "no verses in %s match %s", c.ID, ref)
	}
	return nil
}

// CorpusDeleteCmd deletes a corpus and its verses.
type CorpusDeleteCmd struct {
	ID    string `arg:"" help:"Corpus ID"`
	Store string `default:"canonscope.db" help:"SQLite store path" type:"path"`
}

func (c *CorpusDeleteCmd) Run() error {
	s, err := store.Open(c.Store)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.DeleteCorpus(context.Background(), c.ID); err != nil {
		return err
	}
	fmt.Printf("Deleted %s\n", c.ID)
	return nil
}

// ExtractCmd runs ingestion through extraction and writes vectors JSON.
type ExtractCmd struct {
	ID      string `arg:"" help:"Corpus ID"`
	Source  string `required:"" help:"Source path or URL"`
	Lexicon string `help:"Lexicon YAML file (built-in categories when empty)" type:"path"`
	Scorer  string `default:"lexical" enum:"lexical,openai,none" help:"Sentiment scorer"`
	Workers int    `help:"Parallel extraction workers (0 = GOMAXPROCS)"`
	Out     string `required:"" help:"Output JSON path" type:"path"`
}

func (c *ExtractCmd) Run() error {
	cfg := config.Default()
	cfg.CorpusID = c.ID
	cfg.Source = c.Source
	cfg.LexiconPath = c.Lexicon
	cfg.Scorer.Kind = c.Scorer
	cfg.Workers = c.Workers
	cfg.Output.Table = false

	result, err := pipeline.Run(context.Background(), pipeline.Options{Config: cfg})
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(result.Vectors, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(c.Out, data, 0o644); err != nil {
		return err
	}
	fmt.Printf("Extracted %d vector(s) (%d incomplete) to %s\n",
		len(result.Vectors), result.Incomplete, c.Out)
	return nil
}

// RunsCmd lists recorded pipeline runs.
type RunsCmd struct {
	Corpus string `help:"Filter by corpus ID"`
	Store  string `default:"canonscope.db" help:"SQLite store path" type:"path"`
}

func (c *RunsCmd) Run() error {
	s, err := store.Open(c.Store)
	if err != nil {
		return err
	}
	defer s.Close()

	runs, err := s.ListRuns(context.Background(), c.Corpus)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}
	for _, run := range runs {
		fmt.Printf("%s  %-10s %-8s total=%d incomplete=%d  %s\n",
			run.ID, run.CorpusID, run.Status, run.Total, run.Incomplete,
			run.StartedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

// LexiconListCmd lists categories and their term counts.
type LexiconListCmd struct {
	File string `help:"Lexicon YAML file (built-in categories when empty)" type:"path"`
}

func (c *LexiconListCmd) Run() error {
	set, err := loadLexicon(c.File)
	if err != nil {
		return err
	}
	for _, name := range set.Names() {
		cat := set.Category(name)
		fmt.Printf("%-16s %d term(s)\n", name, len(cat.Terms))
	}
	return nil
}

// LexiconCheckCmd validates a lexicon file.
type LexiconCheckCmd struct {
	File string `arg:"" help:"Lexicon YAML file" type:"existingfile"`
}

func (c *LexiconCheckCmd) Run() error {
	set, err := lexicon.Load(c.File)
	if err != nil {
		return err
	}
	fmt.Printf("OK: %d categor(ies)\n", len(set.Categories))
	return nil
}

// RenderTableCmd prints a saved chart spec as a terminal table.
type RenderTableCmd struct {
	Spec string `arg:"" help:"Chart spec JSON path" type:"existingfile"`
}

func (c *RenderTableCmd) Run() error {
	spec, err := render.ReadJSON(c.Spec)
	if err != nil {
		return err
	}
	out, err := render.Table(spec)
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}

// RenderHTMLCmd renders a saved chart spec as static HTML.
type RenderHTMLCmd struct {
	Spec string `arg:"" help:"Chart spec JSON path" type:"existingfile"`
	Out  string `required:"" help:"Output HTML path" type:"path"`
}

func (c *RenderHTMLCmd) Run() error {
	spec, err := render.ReadJSON(c.Spec)
	if err != nil {
		return err
	}
	if err := render.WriteHTML(spec, c.Out); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", c.Out)
	return nil
}

// RunCmd runs the full pipeline from a YAML config file.
type RunCmd struct {
	Config string `arg:"" help:"Run config YAML path" type:"existingfile"`
}

func (c *RunCmd) Run() error {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return err
	}

	opts := pipeline.Options{Config: cfg}
	if cfg.StorePath != "" {
		s, err := store.Open(cfg.StorePath)
		if err != nil {
			return err
		}
		defer s.Close()
		opts.Store = s
	}

	result, err := pipeline.Run(context.Background(), opts)
	if err != nil {
		return err
	}

	fmt.Printf("Run %s: %d verse(s) in %s", result.RunID, len(result.Vectors), result.Duration.Round(time.Millisecond))
	if result.Incomplete > 0 {
		fmt.Printf(" (%d incompletely scored)", result.Incomplete)
	}
	fmt.Println()

	if cfg.Output.Table {
		out, err := render.Table(result.Spec)
		if err != nil {
			return err
		}
		fmt.Println(out)
	}
	return nil
}

// ServeCmd starts the HTTP API and WebSocket progress server.
type ServeCmd struct {
	Addr  string `default:"127.0.0.1:8321" help:"Listen address"`
	Store string `default:"canonscope.db" help:"SQLite store path" type:"path"`
}

func (c *ServeCmd) Run() error {
	s, err := store.Open(c.Store)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(server.Config{Addr: c.Addr, Store: s})
	return srv.Start(ctx)
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("canonscope version %s (sqlite driver: %s)\n", version, store.DriverType())
	return nil
}

func loadLexicon(path string) (*lexicon.Set, error) {
	if path == "" {
		return lexicon.Default(), nil
	}
	return lexicon.Load(path)
}

func initLogging() {
	level := logging.LevelInfo
	switch CLI.LogLevel {
	case "debug":
		level = logging.LevelDebug
	case "warn":
		level = logging.LevelWarn
	case "error":
		level = logging.LevelError
	}
	format := logging.FormatText
	if CLI.LogFormat == "json" {
		format = logging.FormatJSON
	}
	logging.InitLogger(level, format)
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("canonscope"),
		kong.Description("CanonScope - verse-level feature analysis for canonical texts"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	initLogging()
	err := ctx.Run(ctx)
	ctx.FatalIfErrorf(err)
}
