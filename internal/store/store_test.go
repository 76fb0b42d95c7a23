package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/FocuswithJustin/CanonScope/core/errors"
	"github.com/FocuswithJustin/CanonScope/core/verse"
	"github.com/FocuswithJustin/CanonScope/internal/feature"
	"github.com/FocuswithJustin/CanonScope/internal/segment"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "canonscope.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testCorpus() *verse.Corpus {
	c := &verse.Corpus{
		ID:          "kjv",
		Title:       "King James Version",
		Tradition:   "Christianity",
		Language:    "en",
		Source:      "kjv.txt",
		RetrievedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Attributes:  map[string]string{"translation": "KJV"},
		Books: []*verse.Book{
			{
				Name:  "Genesis",
				Order: 1,
				Verses: []*verse.Verse{
					{Ref: verse.Ref{Book: "Genesis", Chapter: 1, Verse: 1}, Text: "In the beginning"},
					{Ref: verse.Ref{Book: "Genesis", Chapter: 1, Verse: 2}, Text: "And the earth"},
				},
			},
			{
				Name:  "Exodus",
				Order: 2,
				Verses: []*verse.Verse{
					{Ref: verse.Ref{Book: "Exodus", Chapter: 1, Verse: 1}, Text: "Now these are the names"},
				},
			},
		},
	}
	verse.ComputeAllHashes(c)
	return c
}

func TestDriverInfo(t *testing.T) {
	info := Info()
	if info.DriverName == "" || info.DriverType == "" {
		t.Errorf("incomplete driver info: %+v", info)
	}
	if info.DriverName != DriverName() {
		t.Errorf("DriverName mismatch: %q vs %q", info.DriverName, DriverName())
	}
}

func TestSaveAndLoadCorpus(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	c := testCorpus()
	if err := s.SaveCorpus(ctx, c); err != nil {
		t.Fatalf("SaveCorpus failed: %v", err)
	}

	got, err := s.LoadCorpus(ctx, "kjv")
	if err != nil {
		t.Fatalf("LoadCorpus failed: %v", err)
	}
	if got.Title != c.Title || got.Tradition != c.Tradition {
		t.Errorf("metadata mismatch: %+v", got)
	}
	if !got.RetrievedAt.Equal(c.RetrievedAt) {
		t.Errorf("RetrievedAt = %v, want %v", got.RetrievedAt, c.RetrievedAt)
	}
	if got.Attributes["translation"] != "KJV" {
		t.Errorf("attributes = %v", got.Attributes)
	}
	if len(got.Books) != 2 {
		t.Fatalf("got %d books, want 2", len(got.Books))
	}
	if got.Books[0].Name != "Genesis" || got.Books[1].Name != "Exodus" {
		t.Errorf("book order wrong: %s, %s", got.Books[0].Name, got.Books[1].Name)
	}
	if got.VerseCount() != 3 {
		t.Errorf("verse count = %d, want 3", got.VerseCount())
	}
	first := got.Books[0].Verses[0]
	if first.Text != "In the beginning" || first.Hash == "" {
		t.Errorf("first verse = %+v", first)
	}
}

func TestSaveCorpusReplaces(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	c := testCorpus()
	if err := s.SaveCorpus(ctx, c); err != nil {
		t.Fatal(err)
	}

	// Re-save with fewer verses; old rows must not survive.
	c.Books = c.Books[:1]
	if err := s.SaveCorpus(ctx, c); err != nil {
		t.Fatal(err)
	}

	got, err := s.LoadCorpus(ctx, "kjv")
	if err != nil {
		t.Fatal(err)
	}
	if got.VerseCount() != 2 {
		t.Errorf("verse count = %d, want 2 after replace", got.VerseCount())
	}
}

func TestSaveSegmentedRepeatedHeadingSource(t *testing.T) {
	// Page-header headings must not produce duplicate books; the verses
	// primary key would reject them on save.
	s := openTestStore(t)
	text := "GENESIS\n1:1 In the beginning.\nGENESIS\n1:2 And the earth was without form.\n"
	c, err := segment.Plain(text, segment.Options{CorpusID: "kjv"})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SaveCorpus(context.Background(), c); err != nil {
		t.Fatalf("SaveCorpus failed: %v", err)
	}
	loaded, err := s.LoadCorpus(context.Background(), "kjv")
	if err != nil {
		t.Fatal(err)
	}
	if got := loaded.VerseCount(); got != 2 {
		t.Errorf("VerseCount = %d, want 2", got)
	}
}

func TestLoadCorpusNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.LoadCorpus(context.Background(), "missing")
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestSaveCorpusValidation(t *testing.T) {
	s := openTestStore(t)
	if err := s.SaveCorpus(context.Background(), &verse.Corpus{}); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("error = %v, want ErrInvalidInput", err)
	}
}

func TestListAndDeleteCorpora(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.SaveCorpus(ctx, testCorpus()); err != nil {
		t.Fatal(err)
	}

	list, err := s.ListCorpora(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].ID != "kjv" {
		t.Fatalf("list = %+v", list)
	}

	if err := s.DeleteCorpus(ctx, "kjv"); err != nil {
		t.Fatalf("DeleteCorpus failed: %v", err)
	}
	if _, err := s.LoadCorpus(ctx, "kjv"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("corpus still present after delete: %v", err)
	}
	if err := s.DeleteCorpus(ctx, "kjv"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("second delete = %v, want ErrNotFound", err)
	}
}

func TestRunLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "run-1", "kjv", "lexical")
	if err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
	if run.Status != RunRunning {
		t.Errorf("status = %q, want running", run.Status)
	}

	if err := s.FinishRun(ctx, "run-1", RunComplete, 31102, 3); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}

	got, err := s.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.Status != RunComplete || got.Total != 31102 || got.Incomplete != 3 {
		t.Errorf("run = %+v", got)
	}
	if got.FinishedAt == nil {
		t.Error("FinishedAt not recorded")
	}

	runs, err := s.ListRuns(ctx, "kjv")
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].ID != "run-1" {
		t.Errorf("runs = %+v", runs)
	}

	if err := s.FinishRun(ctx, "missing", RunFailed, 0, 0); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("finish missing run = %v, want ErrNotFound", err)
	}
	if _, err := s.GetRun(ctx, "missing"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("get missing run = %v, want ErrNotFound", err)
	}
}

func TestSaveAndLoadVectors(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.CreateRun(ctx, "run-1", "kjv", "lexical"); err != nil {
		t.Fatal(err)
	}

	vectors := []*feature.Vector{
		{
			Ref:       verse.Ref{Book: "Genesis", Chapter: 1, Verse: 1},
			Rates:     map[string]float64{"compassion": 0.25},
			Sentiment: 0.5,
			WordCount: 4,
		},
		{
			Ref:        verse.Ref{Book: "Genesis", Chapter: 1, Verse: 2},
			Rates:      map[string]float64{"compassion": 0},
			WordCount:  3,
			Incomplete: true,
			Error:      "scorer timeout",
		},
	}
	if err := s.SaveVectors(ctx, "run-1", vectors); err != nil {
		t.Fatalf("SaveVectors failed: %v", err)
	}

	got, err := s.LoadVectors(ctx, "run-1")
	if err != nil {
		t.Fatalf("LoadVectors failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d vectors, want 2", len(got))
	}
	if got[0].Rates["compassion"] != 0.25 || got[0].Sentiment != 0.5 {
		t.Errorf("first vector = %+v", got[0])
	}
	if !got[1].Incomplete || got[1].Error != "scorer timeout" {
		t.Errorf("second vector = %+v", got[1])
	}
}
