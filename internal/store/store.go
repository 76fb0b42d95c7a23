package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/FocuswithJustin/CanonScope/core/errors"
	"github.com/FocuswithJustin/CanonScope/core/verse"
	"github.com/FocuswithJustin/CanonScope/internal/feature"
)

// Store wraps a SQLite database holding corpora, verses, feature
// vectors, and pipeline runs.
type Store struct {
	db *sql.DB
}

// Run records one pipeline execution.
type Run struct {
	ID         string     `json:"id"`
	CorpusID   string     `json:"corpus_id"`
	Scorer     string     `json:"scorer"`
	Status     string     `json:"status"`
	Total      int        `json:"total"`
	Incomplete int        `json:"incomplete"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Run status values.
const (
	RunRunning  = "running"
	RunComplete = "complete"
	RunFailed   = "failed"
)

const schema = `
CREATE TABLE IF NOT EXISTS corpora (
	id           TEXT PRIMARY KEY,
	title        TEXT NOT NULL DEFAULT '',
	tradition    TEXT NOT NULL DEFAULT '',
	language     TEXT NOT NULL DEFAULT '',
	source       TEXT NOT NULL DEFAULT '',
	source_hash  TEXT NOT NULL DEFAULT '',
	fingerprint  TEXT NOT NULL DEFAULT '',
	retrieved_at TEXT NOT NULL DEFAULT '',
	attributes   TEXT NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS verses (
	corpus_id  TEXT NOT NULL REFERENCES corpora(id) ON DELETE CASCADE,
	book       TEXT NOT NULL,
	book_order INTEGER NOT NULL,
	chapter    INTEGER NOT NULL,
	verse      INTEGER NOT NULL,
	text       TEXT NOT NULL,
	hash       TEXT NOT NULL,
	PRIMARY KEY (corpus_id, book, chapter, verse)
);

CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	corpus_id   TEXT NOT NULL,
	scorer      TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL,
	total       INTEGER NOT NULL DEFAULT 0,
	incomplete  INTEGER NOT NULL DEFAULT 0,
	started_at  TEXT NOT NULL,
	finished_at TEXT
);

CREATE TABLE IF NOT EXISTS vectors (
	run_id     TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	book       TEXT NOT NULL,
	chapter    INTEGER NOT NULL,
	verse      INTEGER NOT NULL,
	rates      TEXT NOT NULL,
	sentiment  REAL NOT NULL,
	word_count INTEGER NOT NULL,
	incomplete INTEGER NOT NULL DEFAULT 0,
	error      TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (run_id, book, chapter, verse)
);

CREATE INDEX IF NOT EXISTS idx_verses_corpus ON verses(corpus_id, book_order, chapter, verse);
CREATE INDEX IF NOT EXISTS idx_runs_corpus ON runs(corpus_id, started_at);
`

// Open opens (creating if needed) the store at path and applies the
// schema.
func Open(path string) (*Store, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open store %s", path)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "enable foreign keys")
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "apply schema")
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying handle for maintenance commands.
func (s *Store) DB() *sql.DB { return s.db }

// SaveCorpus inserts or replaces a corpus and all its verses.
func (s *Store) SaveCorpus(ctx context.Context, c *verse.Corpus) error {
	if c == nil || c.ID == "" {
		return errors.NewValidation("corpus", "corpus must have an ID")
	}
	attrs, err := json.Marshal(c.Attributes)
	if err != nil {
		return errors.Wrap(err, "encode attributes")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer tx.Rollback()

	retrieved := ""
	if !c.RetrievedAt.IsZero() {
		retrieved = c.RetrievedAt.UTC().Format(time.RFC3339Nano)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO corpora
		(id, title, tradition, language, source, source_hash, fingerprint, retrieved_at, attributes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Title, c.Tradition, c.Language, c.Source, c.SourceHash, c.Fingerprint, retrieved, string(attrs))
	if err != nil {
		return errors.Wrapf(err, "save corpus %s", c.ID)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM verses WHERE corpus_id = ?`, c.ID); err != nil {
		return errors.Wrapf(err, "clear verses for %s", c.ID)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO verses (corpus_id, book, book_order, chapter, verse, text, hash)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, "prepare verse insert")
	}
	defer stmt.Close()

	for _, book := range c.Books {
		for _, v := range book.Verses {
			_, err := stmt.ExecContext(ctx,
				c.ID, v.Ref.Book, book.Order, v.Ref.Chapter, v.Ref.Verse, v.Text, v.Hash)
			if err != nil {
				return errors.Wrapf(err, "save verse %s", v.Ref.String())
			}
		}
	}

	return tx.Commit()
}

// LoadCorpus reads a corpus and its verses by ID.
func (s *Store) LoadCorpus(ctx context.Context, id string) (*verse.Corpus, error) {
	var c verse.Corpus
	var retrieved, attrs string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, tradition, language, source, source_hash, fingerprint, retrieved_at, attributes
		FROM corpora WHERE id = ?`, id).
		Scan(&c.ID, &c.Title, &c.Tradition, &c.Language, &c.Source, &c.SourceHash, &c.Fingerprint, &retrieved, &attrs)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(errors.ErrNotFound, "corpus %s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load corpus %s", id)
	}
	if retrieved != "" {
		if t, err := time.Parse(time.RFC3339Nano, retrieved); err == nil {
			c.RetrievedAt = t
		}
	}
	if attrs != "" && attrs != "{}" {
		if err := json.Unmarshal([]byte(attrs), &c.Attributes); err != nil {
			return nil, errors.Wrapf(err, "decode attributes for %s", id)
		}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT book, book_order, chapter, verse, text, hash
		FROM verses WHERE corpus_id = ?
		ORDER BY book_order, chapter, verse`, id)
	if err != nil {
		return nil, errors.Wrapf(err, "load verses for %s", id)
	}
	defer rows.Close()

	var current *verse.Book
	for rows.Next() {
		var book string
		var order, chapter, num int
		var text, hash string
		if err := rows.Scan(&book, &order, &chapter, &num, &text, &hash); err != nil {
			return nil, errors.Wrap(err, "scan verse")
		}
		if current == nil || current.Name != book {
			current = &verse.Book{Name: book, Order: order}
			c.Books = append(c.Books, current)
		}
		current.Verses = append(current.Verses, &verse.Verse{
			Ref:  verse.Ref{Book: book, Chapter: chapter, Verse: num},
			Text: text,
			Hash: hash,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate verses")
	}
	return &c, nil
}

// ListCorpora returns all stored corpora without their verses.
func (s *Store) ListCorpora(ctx context.Context) ([]*verse.Corpus, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, tradition, language, source, fingerprint
		FROM corpora ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "list corpora")
	}
	defer rows.Close()

	var out []*verse.Corpus
	for rows.Next() {
		var c verse.Corpus
		if err := rows.Scan(&c.ID, &c.Title, &c.Tradition, &c.Language, &c.Source, &c.Fingerprint); err != nil {
			return nil, errors.Wrap(err, "scan corpus")
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// DeleteCorpus removes a corpus and its verses.
func (s *Store) DeleteCorpus(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM corpora WHERE id = ?`, id)
	if err != nil {
		return errors.Wrapf(err, "delete corpus %s", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Wrapf(errors.ErrNotFound, "corpus %s", id)
	}
	return nil
}

// CreateRun records the start of a pipeline run.
func (s *Store) CreateRun(ctx context.Context, id, corpusID, scorer string) (*Run, error) {
	run := &Run{
		ID:        id,
		CorpusID:  corpusID,
		Scorer:    scorer,
		Status:    RunRunning,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, corpus_id, scorer, status, started_at)
		VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.CorpusID, run.Scorer, run.Status, run.StartedAt.Format(time.RFC3339Nano))
	if err != nil {
		return nil, errors.Wrapf(err, "create run %s", id)
	}
	return run, nil
}

// FinishRun marks a run complete or failed with final counts.
func (s *Store) FinishRun(ctx context.Context, id, status string, total, incomplete int) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, total = ?, incomplete = ?, finished_at = ?
		WHERE id = ?`, status, total, incomplete, now, id)
	if err != nil {
		return errors.Wrapf(err, "finish run %s", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Wrapf(errors.ErrNotFound, "run %s", id)
	}
	return nil
}

// GetRun reads one run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	var run Run
	var started string
	var finished sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, corpus_id, scorer, status, total, incomplete, started_at, finished_at
		FROM runs WHERE id = ?`, id).
		Scan(&run.ID, &run.CorpusID, &run.Scorer, &run.Status, &run.Total, &run.Incomplete, &started, &finished)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(errors.ErrNotFound, "run %s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get run %s", id)
	}
	run.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
	if finished.Valid {
		if t, err := time.Parse(time.RFC3339Nano, finished.String); err == nil {
			run.FinishedAt = &t
		}
	}
	return &run, nil
}

// ListRuns returns runs for a corpus, newest first. An empty corpusID
// lists every run.
func (s *Store) ListRuns(ctx context.Context, corpusID string) ([]*Run, error) {
	query := `SELECT id, corpus_id, scorer, status, total, incomplete, started_at, finished_at FROM runs`
	args := []any{}
	if corpusID != "" {
		query += ` WHERE corpus_id = ?`
		args = append(args, corpusID)
	}
	query += ` ORDER BY started_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list runs")
	}
	defer rows.Close()

	var out []*Run
	for rows.Next() {
		var run Run
		var started string
		var finished sql.NullString
		if err := rows.Scan(&run.ID, &run.CorpusID, &run.Scorer, &run.Status, &run.Total, &run.Incomplete, &started, &finished); err != nil {
			return nil, errors.Wrap(err, "scan run")
		}
		run.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		if finished.Valid {
			if t, err := time.Parse(time.RFC3339Nano, finished.String); err == nil {
				run.FinishedAt = &t
			}
		}
		out = append(out, &run)
	}
	return out, rows.Err()
}

// SaveVectors stores the feature vectors produced by a run.
func (s *Store) SaveVectors(ctx context.Context, runID string, vectors []*feature.Vector) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO vectors
		(run_id, book, chapter, verse, rates, sentiment, word_count, incomplete, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, "prepare vector insert")
	}
	defer stmt.Close()

	for _, v := range vectors {
		rates, err := json.Marshal(v.Rates)
		if err != nil {
			return errors.Wrapf(err, "encode rates for %s", v.Ref.String())
		}
		incomplete := 0
		if v.Incomplete {
			incomplete = 1
		}
		_, err = stmt.ExecContext(ctx,
			runID, v.Ref.Book, v.Ref.Chapter, v.Ref.Verse,
			string(rates), v.Sentiment, v.WordCount, incomplete, v.Error)
		if err != nil {
			return errors.Wrapf(err, "save vector for %s", v.Ref.String())
		}
	}
	return tx.Commit()
}

// LoadVectors reads back the vectors of a run in canonical order.
func (s *Store) LoadVectors(ctx context.Context, runID string) ([]*feature.Vector, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT book, chapter, verse, rates, sentiment, word_count, incomplete, error
		FROM vectors WHERE run_id = ?
		ORDER BY book, chapter, verse`, runID)
	if err != nil {
		return nil, errors.Wrapf(err, "load vectors for run %s", runID)
	}
	defer rows.Close()

	var out []*feature.Vector
	for rows.Next() {
		var v feature.Vector
		var rates string
		var incomplete int
		if err := rows.Scan(&v.Ref.Book, &v.Ref.Chapter, &v.Ref.Verse,
			&rates, &v.Sentiment, &v.WordCount, &incomplete, &v.Error); err != nil {
			return nil, errors.Wrap(err, "scan vector")
		}
		if err := json.Unmarshal([]byte(rates), &v.Rates); err != nil {
			return nil, errors.Wrapf(err, "decode rates for %s", v.Ref.String())
		}
		v.Incomplete = incomplete != 0
		out = append(out, &v)
	}
	return out, rows.Err()
}
