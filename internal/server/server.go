// Package server exposes a local HTTP API over the store plus WebSocket
// progress streaming for long analysis runs.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/FocuswithJustin/CanonScope/core/errors"
	"github.com/FocuswithJustin/CanonScope/core/verse"
	"github.com/FocuswithJustin/CanonScope/internal/config"
	"github.com/FocuswithJustin/CanonScope/internal/logging"
	"github.com/FocuswithJustin/CanonScope/internal/pipeline"
	"github.com/FocuswithJustin/CanonScope/internal/store"
)

// Config configures the server.
type Config struct {
	// Addr is the listen address, e.g. "127.0.0.1:8080".
	Addr string

	// Store backs the corpus and run endpoints. Required.
	Store *store.Store

	// AllowedOrigins restricts CORS. Empty allows all origins.
	AllowedOrigins []string
}

// Server serves the HTTP API and WebSocket progress stream.
type Server struct {
	addr    string
	store   *store.Store
	hub     *Hub
	origins []string
}

// New creates a server.
func New(cfg Config) *Server {
	return &Server{
		addr:    cfg.Addr,
		store:   cfg.Store,
		hub:     NewHub(),
		origins: cfg.AllowedOrigins,
	}
}

// Hub returns the progress hub, so CLI-triggered runs can stream to
// connected clients too.
func (s *Server) Hub() *Hub { return s.hub }

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/corpora", s.handleListCorpora)
	mux.HandleFunc("GET /api/corpora/{id}", s.handleGetCorpus)
	mux.HandleFunc("GET /api/runs", s.handleListRuns)
	mux.HandleFunc("GET /api/runs/{id}", s.handleGetRun)
	mux.HandleFunc("GET /api/runs/{id}/vectors", s.handleRunVectors)
	mux.HandleFunc("POST /api/analyze", s.handleAnalyze)
	mux.HandleFunc("GET /ws", s.hub.ServeWS)
	return CORSMiddleware(CORSConfig{AllowedOrigins: s.origins}, withLogging(mux))
}

// Start runs the hub and HTTP server until ctx is canceled.
func (s *Server) Start(ctx context.Context) error {
	go s.hub.Run(ctx)

	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.ServerStartup(s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"driver": store.Info(),
	})
}

func (s *Server) handleListCorpora(w http.ResponseWriter, r *http.Request) {
	corpora, err := s.store.ListCorpora(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"corpora": corpora})
}

func (s *Server) handleGetCorpus(w http.ResponseWriter, r *http.Request) {
	c, err := s.store.LoadCorpus(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":           c.ID,
		"title":        c.Title,
		"tradition":    c.Tradition,
		"language":     c.Language,
		"source":       c.Source,
		"fingerprint":  c.Fingerprint,
		"retrieved_at": c.RetrievedAt,
		"books":        len(c.Books),
		"verses":       c.VerseCount(),
	})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.ListRuns(r.Context(), r.URL.Query().Get("corpus"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.store.GetRun(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleRunVectors(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.store.GetRun(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	vectors, err := s.store.LoadVectors(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if refStr := r.URL.Query().Get("ref"); refStr != "" {
		ref, err := verse.ParseRef(refStr)
		if err != nil {
			writeError(w, errors.NewValidation("ref", err.Error()))
			return
		}
		filtered := vectors[:0]
		for _, v := range vectors {
			if ref.Contains(v.Ref) {
				filtered = append(filtered, v)
			}
		}
		vectors = filtered
	}
	writeJSON(w, http.StatusOK, map[string]any{"vectors": vectors})
}

// analyzeRequest is the POST /api/analyze body. It is a subset of the
// run config; artifact outputs stay on the CLI side.
type analyzeRequest struct {
	CorpusID    string `json:"corpus_id"`
	Title       string `json:"title"`
	Source      string `json:"source"`
	Translation string `json:"translation"`
	Lexicon     string `json:"lexicon"`
	Partition   string `json:"partition"`
	Workers     int    `json:"workers"`
	Strict      bool   `json:"strict"`
	Scorer      string `json:"scorer"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewValidation("body", err.Error()))
		return
	}

	cfg := config.Default()
	cfg.CorpusID = req.CorpusID
	cfg.Title = req.Title
	cfg.Source = req.Source
	cfg.Translation = req.Translation
	cfg.LexiconPath = req.Lexicon
	cfg.Workers = req.Workers
	cfg.Strict = req.Strict
	if req.Partition != "" {
		cfg.Partition = req.Partition
	}
	if req.Scorer != "" {
		cfg.Scorer.Kind = req.Scorer
	}
	if err := cfg.Validate(); err != nil {
		writeError(w, err)
		return
	}

	// Runs outlive the request; progress streams over the WebSocket.
	go func() {
		result, err := pipeline.Run(context.Background(), pipeline.Options{
			Config:   cfg,
			Store:    s.store,
			Progress: s.hub.PublishProgress,
		})
		if err != nil {
			runID := ""
			if result != nil {
				runID = result.RunID
			}
			logging.Error("analysis run failed", "corpus", cfg.CorpusID, "error", err.Error())
			s.hub.PublishError(runID, err)
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status": "accepted",
		"corpus": cfg.CorpusID,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("encode response", "error", err.Error())
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, errors.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, errors.ErrInvalidInput):
		code = http.StatusBadRequest
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

// statusRecorder captures the response code for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// WebSocket upgrades need the raw ResponseWriter for hijacking.
		if r.URL.Path == "/ws" {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logging.HTTPRequest(r.Method, r.URL.Path, r.RemoteAddr, rec.status, time.Since(start))
	})
}
