package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/FocuswithJustin/CanonScope/core/errors"
	"github.com/FocuswithJustin/CanonScope/internal/config"
	"github.com/FocuswithJustin/CanonScope/internal/store"
)

const sampleSource = `GENESIS

1:1 In the beginning God created the heaven and the earth.
1:2 And the earth was without form, and void.
2:1 Thus the heavens and the earth were finished.

EXODUS

1:1 Now these are the names of the children of Israel.
`

func writeSource(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample.txt")
	if err := os.WriteFile(path, []byte(sampleSource), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.CorpusID = "sample"
	cfg.Title = "Sample Corpus"
	cfg.Source = writeSource(t)
	return cfg
}

type errorScorer struct{}

func (errorScorer) Name() string { return "error" }
func (errorScorer) Score(context.Context, string) (float64, error) {
	return 0, fmt.Errorf("always fails")
}

func TestRun(t *testing.T) {
	cfg := testConfig(t)
	outDir := t.TempDir()
	cfg.Output.Chart = filepath.Join(outDir, "chart.json")
	cfg.Output.HTML = filepath.Join(outDir, "index.html")

	result, err := Run(context.Background(), Options{Config: cfg})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.RunID == "" {
		t.Error("run has no ID")
	}
	if got := result.Corpus.VerseCount(); got != 4 {
		t.Errorf("verse count = %d, want 4", got)
	}
	if len(result.Vectors) != 4 {
		t.Errorf("got %d vectors, want 4", len(result.Vectors))
	}
	if result.Incomplete != 0 {
		t.Errorf("incomplete = %d, want 0", result.Incomplete)
	}
	if len(result.Aggregate.Buckets) != 2 {
		t.Errorf("got %d buckets, want 2 (Genesis, Exodus)", len(result.Aggregate.Buckets))
	}
	for _, path := range []string{cfg.Output.Chart, cfg.Output.HTML} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("artifact not written: %v", err)
		}
	}
}

func TestRunNilConfig(t *testing.T) {
	if _, err := Run(context.Background(), Options{}); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("error = %v, want ErrInvalidInput", err)
	}
}

func TestRunMissingSource(t *testing.T) {
	cfg := config.Default()
	cfg.CorpusID = "sample"
	cfg.Source = filepath.Join(t.TempDir(), "missing.txt")

	if _, err := Run(context.Background(), Options{Config: cfg}); !errors.Is(err, errors.ErrSourceUnavailable) {
		t.Errorf("error = %v, want ErrSourceUnavailable", err)
	}
}

func TestRunScorerFailuresDoNotAbort(t *testing.T) {
	cfg := testConfig(t)
	cfg.Scorer.CacheSize = 0

	result, err := Run(context.Background(), Options{Config: cfg, Scorer: errorScorer{}})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Incomplete != 4 {
		t.Errorf("incomplete = %d, want 4", result.Incomplete)
	}
	// Category rates survive scorer failure.
	for _, v := range result.Vectors {
		if !v.Incomplete {
			t.Errorf("%s not marked incomplete", v.Ref.String())
		}
		if v.Rates == nil {
			t.Errorf("%s lost its rates", v.Ref.String())
		}
	}
}

func TestRunDeterministic(t *testing.T) {
	cfg := testConfig(t)

	first, err := Run(context.Background(), Options{Config: cfg})
	if err != nil {
		t.Fatal(err)
	}
	second, err := Run(context.Background(), Options{Config: cfg})
	if err != nil {
		t.Fatal(err)
	}

	if len(first.Vectors) != len(second.Vectors) {
		t.Fatalf("vector counts differ: %d vs %d", len(first.Vectors), len(second.Vectors))
	}
	for i := range first.Vectors {
		h1, err := first.Vectors[i].Hash()
		if err != nil {
			t.Fatal(err)
		}
		h2, err := second.Vectors[i].Hash()
		if err != nil {
			t.Fatal(err)
		}
		if h1 != h2 {
			t.Errorf("vector %d differs between runs", i)
		}
	}
}

func TestRunPartitions(t *testing.T) {
	tests := []struct {
		partition string
		buckets   int
	}{
		{"book", 2},
		{"chapter", 3},
		{"whole", 1},
	}
	for _, tt := range tests {
		t.Run(tt.partition, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.Partition = tt.partition
			result, err := Run(context.Background(), Options{Config: cfg})
			if err != nil {
				t.Fatal(err)
			}
			if len(result.Aggregate.Buckets) != tt.buckets {
				t.Errorf("got %d buckets, want %d", len(result.Aggregate.Buckets), tt.buckets)
			}
		})
	}
}

func TestRunReportsProgress(t *testing.T) {
	cfg := testConfig(t)

	var stages []string
	_, err := Run(context.Background(), Options{
		Config: cfg,
		Progress: func(p Progress) {
			if len(stages) == 0 || stages[len(stages)-1] != p.Stage {
				stages = append(stages, p.Stage)
			}
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	want := []string{StageIngest, StageSegment, StageExtract, StageAggregate, StageRender, StageDone}
	if len(stages) != len(want) {
		t.Fatalf("stages = %v, want %v", stages, want)
	}
	for i := range want {
		if stages[i] != want[i] {
			t.Errorf("stage[%d] = %q, want %q", i, stages[i], want[i])
		}
	}
}

func TestRunPersists(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "canonscope.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	cfg := testConfig(t)
	ctx := context.Background()

	result, err := Run(ctx, Options{Config: cfg, Store: s})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	run, err := s.GetRun(ctx, result.RunID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if run.Status != store.RunComplete || run.Total != 4 {
		t.Errorf("run = %+v", run)
	}

	corpus, err := s.LoadCorpus(ctx, "sample")
	if err != nil {
		t.Fatalf("LoadCorpus failed: %v", err)
	}
	if corpus.VerseCount() != 4 {
		t.Errorf("stored verse count = %d, want 4", corpus.VerseCount())
	}

	vectors, err := s.LoadVectors(ctx, result.RunID)
	if err != nil {
		t.Fatalf("LoadVectors failed: %v", err)
	}
	if len(vectors) != 4 {
		t.Errorf("stored %d vectors, want 4", len(vectors))
	}
}

func TestRunRecordsFailure(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "canonscope.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	cfg := config.Default()
	cfg.CorpusID = "sample"
	cfg.Source = filepath.Join(t.TempDir(), "missing.txt")

	_, err = Run(context.Background(), Options{Config: cfg, Store: s})
	if err == nil {
		t.Fatal("expected run failure")
	}

	runs, err := s.ListRuns(context.Background(), "sample")
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].Status != store.RunFailed {
		t.Errorf("runs = %+v, want one failed run", runs)
	}
}
