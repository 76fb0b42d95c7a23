// Package pipeline orchestrates a full analysis run: ingest, segment,
// extract, aggregate, render. Each stage is a pure function from the
// packages below; this package owns run identity, timing, parallel
// extraction, and persistence.
package pipeline

import (
	"context"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/FocuswithJustin/CanonScope/core/errors"
	"github.com/FocuswithJustin/CanonScope/core/lexicon"
	"github.com/FocuswithJustin/CanonScope/core/verse"
	"github.com/FocuswithJustin/CanonScope/internal/aggregate"
	"github.com/FocuswithJustin/CanonScope/internal/cache"
	"github.com/FocuswithJustin/CanonScope/internal/config"
	"github.com/FocuswithJustin/CanonScope/internal/feature"
	"github.com/FocuswithJustin/CanonScope/internal/ingest"
	"github.com/FocuswithJustin/CanonScope/internal/logging"
	"github.com/FocuswithJustin/CanonScope/internal/render"
	"github.com/FocuswithJustin/CanonScope/internal/segment"
	"github.com/FocuswithJustin/CanonScope/internal/store"
)

// Progress is a point-in-time snapshot of a running pipeline, delivered
// to the Options.Progress callback.
type Progress struct {
	RunID      string `json:"run_id"`
	Stage      string `json:"stage"`
	Done       int    `json:"done"`
	Total      int    `json:"total"`
	Incomplete int    `json:"incomplete"`
	Message    string `json:"message,omitempty"`
}

// Stage names reported in Progress.
const (
	StageIngest    = "ingest"
	StageSegment   = "segment"
	StageExtract   = "extract"
	StageAggregate = "aggregate"
	StageRender    = "render"
	StageDone      = "done"
)

// progressEvery is how many extracted verses pass between progress
// reports.
const progressEvery = 1000

// Options configures a pipeline run.
type Options struct {
	// Config drives every stage. Required.
	Config *config.Config

	// Scorer overrides the scorer the config would build. Optional.
	Scorer feature.Scorer

	// Store persists the corpus, vectors, and run record. Optional.
	Store *store.Store

	// Progress receives stage snapshots. Optional. Called from the
	// run goroutine, so callbacks must not block for long.
	Progress func(Progress)
}

// Result is the outcome of a completed run.
type Result struct {
	RunID      string
	Corpus     *verse.Corpus
	Vectors    []*feature.Vector
	Aggregate  *aggregate.Result
	Spec       *render.Spec
	Incomplete int
	Duration   time.Duration
}

func (o *Options) report(p Progress) {
	if o.Progress != nil {
		o.Progress(p)
	}
}

// Run executes the full pipeline. Ingestion and segmentation errors are
// fatal; per-verse scoring failures mark vectors incomplete and the run
// continues.
func Run(ctx context.Context, opts Options) (*Result, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, errors.NewValidation("config", "pipeline run needs a config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)
	if cfg.Timeout.Std() > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout.Std())
		defer cancel()
	}

	scorer, err := buildScorer(cfg, opts.Scorer)
	if err != nil {
		return nil, err
	}
	if opts.Store != nil {
		if _, err := opts.Store.CreateRun(ctx, runID, cfg.CorpusID, scorerName(scorer)); err != nil {
			return nil, err
		}
	}

	result, err := run(ctx, cfg, scorer, runID, &opts)
	if opts.Store != nil {
		status := store.RunComplete
		total, incomplete := 0, 0
		if result != nil {
			total = len(result.Vectors)
			incomplete = result.Incomplete
		}
		if err != nil {
			status = store.RunFailed
		}
		if ferr := opts.Store.FinishRun(context.WithoutCancel(ctx), runID, status, total, incomplete); ferr != nil {
			logging.ErrorContext(ctx, "finish_run_failed", "error", ferr.Error())
		}
	}
	return result, err
}

func run(ctx context.Context, cfg *config.Config, scorer feature.Scorer, runID string, opts *Options) (*Result, error) {
	start := time.Now()

	// Ingest.
	opts.report(Progress{RunID: runID, Stage: StageIngest, Message: cfg.Source})
	stageStart := time.Now()
	doc, err := ingest.Ingest(ctx, cfg.Source, ingest.Options{Translation: cfg.Translation})
	if err != nil {
		return nil, err
	}
	logging.PipelineStage(ctx, StageIngest, time.Since(stageStart),
		"source", cfg.Source, "bytes", len(doc.Text))

	// Segment.
	opts.report(Progress{RunID: runID, Stage: StageSegment})
	stageStart = time.Now()
	corpus, err := segment.Segment(doc.Text, segment.Options{
		CorpusID: cfg.CorpusID,
		Strict:   cfg.Strict,
	})
	if err != nil {
		return nil, err
	}
	corpus.Title = cfg.Title
	corpus.Source = doc.Meta.Source
	corpus.SourceHash = doc.Meta.SHA256
	corpus.Fingerprint = doc.Meta.Fingerprint
	corpus.RetrievedAt = doc.Meta.RetrievedAt
	if doc.Meta.Translation != "" {
		if corpus.Attributes == nil {
			corpus.Attributes = make(map[string]string)
		}
		corpus.Attributes["translation"] = doc.Meta.Translation
	}
	verses := corpus.Verses()
	logging.PipelineStage(ctx, StageSegment, time.Since(stageStart),
		"books", len(corpus.Books), "verses", len(verses))

	// Extract.
	set, err := loadLexicon(cfg)
	if err != nil {
		return nil, err
	}
	extractor, err := feature.New(set, scorer)
	if err != nil {
		return nil, err
	}

	opts.report(Progress{RunID: runID, Stage: StageExtract, Total: len(verses)})
	stageStart = time.Now()
	vectors, err := extractParallel(ctx, extractor, verses, cfg.Workers, func(done int) {
		opts.report(Progress{RunID: runID, Stage: StageExtract, Done: done, Total: len(verses)})
	})
	if err != nil {
		return nil, err
	}
	incomplete := 0
	for _, v := range vectors {
		if v.Incomplete {
			incomplete++
		}
	}
	logging.PipelineStage(ctx, StageExtract, time.Since(stageStart),
		"verses", len(vectors), "incomplete", incomplete, "scorer", scorerName(scorer))

	// Aggregate.
	opts.report(Progress{RunID: runID, Stage: StageAggregate, Done: len(verses), Total: len(verses), Incomplete: incomplete})
	stageStart = time.Now()
	agg := aggregate.Aggregate(vectors, partitionFunc(cfg.Partition))
	logging.PipelineStage(ctx, StageAggregate, time.Since(stageStart),
		"partition", cfg.Partition, "buckets", len(agg.Buckets))

	// Render.
	opts.report(Progress{RunID: runID, Stage: StageRender, Done: len(verses), Total: len(verses), Incomplete: incomplete})
	stageStart = time.Now()
	title := cfg.Title
	if title == "" {
		title = cfg.CorpusID
	}
	spec, err := render.Build(agg, title)
	if err != nil {
		return nil, err
	}
	if cfg.Output.Chart != "" {
		if err := render.WriteJSON(spec, cfg.Output.Chart); err != nil {
			return nil, err
		}
	}
	if cfg.Output.HTML != "" {
		if err := render.WriteHTML(spec, cfg.Output.HTML); err != nil {
			return nil, err
		}
	}
	logging.PipelineStage(ctx, StageRender, time.Since(stageStart),
		"rows", len(spec.Data))

	// Persist.
	if opts.Store != nil {
		if err := opts.Store.SaveCorpus(ctx, corpus); err != nil {
			return nil, err
		}
		if err := opts.Store.SaveVectors(ctx, runID, vectors); err != nil {
			return nil, err
		}
	}

	result := &Result{
		RunID:      runID,
		Corpus:     corpus,
		Vectors:    vectors,
		Aggregate:  agg,
		Spec:       spec,
		Incomplete: incomplete,
		Duration:   time.Since(start),
	}
	opts.report(Progress{RunID: runID, Stage: StageDone, Done: len(verses), Total: len(verses), Incomplete: incomplete})
	return result, nil
}

func scorerName(s feature.Scorer) string {
	if s == nil {
		return "none"
	}
	return s.Name()
}

// buildScorer constructs the configured scorer, wrapping it in a score
// cache when one is configured. An explicit override wins.
func buildScorer(cfg *config.Config, override feature.Scorer) (feature.Scorer, error) {
	var scorer feature.Scorer
	switch {
	case override != nil:
		scorer = override
	case cfg.Scorer.Kind == config.ScorerNone:
		return nil, nil
	case cfg.Scorer.Kind == config.ScorerOpenAI:
		key := cfg.Scorer.APIKey
		if key == "" {
			key = os.Getenv("OPENAI_API_KEY")
		}
		s, err := feature.NewOpenAIScorer(feature.OpenAIConfig{
			APIKey:  key,
			BaseURL: cfg.Scorer.BaseURL,
			Model:   cfg.Scorer.Model,
		})
		if err != nil {
			return nil, err
		}
		scorer = s
	default:
		scorer = feature.NewLexicalScorer(nil, nil)
	}

	if cfg.Scorer.CacheSize > 0 {
		scores := cache.NewScoreCache(cache.Config{MaxSize: cfg.Scorer.CacheSize})
		scorer = feature.NewCachedScorer(scorer, scores)
	}
	return scorer, nil
}

func loadLexicon(cfg *config.Config) (*lexicon.Set, error) {
	if cfg.LexiconPath == "" {
		return lexicon.Default(), nil
	}
	return lexicon.Load(cfg.LexiconPath)
}

func partitionFunc(name string) aggregate.PartitionFunc {
	switch name {
	case "chapter":
		return aggregate.ByChapter
	case "whole":
		return aggregate.Whole("corpus")
	default:
		return aggregate.ByBook
	}
}

// extractParallel fans verse extraction out over a worker pool. Output
// order matches input order regardless of worker scheduling; each
// worker owns its verse exclusively so no locking is needed on the
// result slice.
func extractParallel(ctx context.Context, extractor *feature.Extractor, verses []*verse.Verse, workers int, onProgress func(done int)) ([]*feature.Vector, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(verses) && len(verses) > 0 {
		workers = len(verses)
	}

	vectors := make([]*feature.Vector, len(verses))
	indices := make(chan int)
	var done atomic.Int64
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indices {
				vectors[i] = extractor.Extract(ctx, verses[i])
				if n := done.Add(1); onProgress != nil && n%progressEvery == 0 {
					onProgress(int(n))
				}
			}
		}()
	}

	var ctxErr error
feed:
	for i := range verses {
		select {
		case <-ctx.Done():
			ctxErr = ctx.Err()
			break feed
		case indices <- i:
		}
	}
	close(indices)
	wg.Wait()

	if ctxErr != nil {
		return nil, errors.Wrap(ctxErr, "extraction interrupted")
	}
	return vectors, nil
}
