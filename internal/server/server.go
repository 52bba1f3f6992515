// Package server exposes the analysis pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/huangsam/codetime/core/jobs"
	"github.com/huangsam/codetime/core/query"
	"github.com/huangsam/codetime/internal/contract"
	"github.com/huangsam/codetime/internal/metrics"
	"github.com/robfig/cron/v3"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// shutdownGrace bounds how long in-flight requests get on shutdown.
const shutdownGrace = 10 * time.Second

// AnalyzeRequest is the body of POST /analyze.
type AnalyzeRequest struct {
	RepoURL    string `json:"repo_url"`
	MaxCommits int    `json:"max_commits,omitempty"`
}

// QueryRequest is the body of POST /query.
type QueryRequest struct {
	RepoID string `json:"repo_id"`
	Query  string `json:"query"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Server is the HTTP API server.
type Server struct {
	jobs    *jobs.Manager
	engine  *query.Engine
	metrics *metrics.Metrics
	addr    string
	mux     *http.ServeMux
	cron    *cron.Cron
}

// NewServer creates a new API server. m may be nil, which disables /metrics.
func NewServer(mgr *jobs.Manager, engine *query.Engine, m *metrics.Metrics, addr string) *Server {
	s := &Server{
		jobs:    mgr,
		engine:  engine,
		metrics: m,
		addr:    addr,
		mux:     http.NewServeMux(),
		cron:    cron.New(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("POST /analyze", s.analyzeHandler())
	s.mux.HandleFunc("GET /analysis/{repo_id}", s.getAnalysisHandler())
	s.mux.HandleFunc("DELETE /analysis/{repo_id}", s.deleteAnalysisHandler())
	s.mux.HandleFunc("GET /analyses", s.listAnalysesHandler())
	s.mux.HandleFunc("POST /query", s.queryHandler())
	s.mux.HandleFunc("GET /visualize/{repo_id}", s.visualizeHandler())
	s.mux.HandleFunc("GET /suggestions", s.suggestionsHandler())
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics.Handler())
	}
}

// Handler returns the routed handler with request logging.
func (s *Server) Handler() http.Handler {
	return withRequestID(s.mux)
}

// ScheduleCleanup removes entries older than retention on the given cron
// schedule. It takes effect once Run starts.
func (s *Server) ScheduleCleanup(schedule string, retention time.Duration) error {
	_, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := s.jobs.Cleanup(ctx, retention); err != nil {
			contract.LogWarn("Scheduled cleanup failed", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid cleanup schedule %q: %w", schedule, err)
	}
	return nil
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.cron.Start()
	defer func() { <-s.cron.Stop().Done() }()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// withRequestID tags each request with an id and logs it.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("Request served", "method", r.Method, "path", r.URL.Path, "request_id", id, "elapsed", time.Since(start))
	})
}

func writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, ErrorResponse{Error: message})
}

// writeFailure maps pipeline errors to status codes with a short message.
func writeFailure(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, contract.ErrInvalidInput):
		code = http.StatusBadRequest
	case errors.Is(err, contract.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, contract.ErrNotReady):
		code = http.StatusConflict
	default:
		slog.Error("Request failed", "error", err)
	}
	writeError(w, code, contract.UserMessage(err))
}

// decodeBody reads a JSON request body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: malformed JSON body", contract.ErrInvalidInput)
	}
	return nil
}

func (s *Server) analyzeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AnalyzeRequest
		if err := decodeBody(w, r, &req); err != nil {
			writeFailure(w, err)
			return
		}
		res, err := s.jobs.Submit(r.Context(), req.RepoURL, req.MaxCommits)
		if err != nil {
			writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func (s *Server) getAnalysisHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := s.jobs.GetStatus(r.Context(), r.PathValue("repo_id"))
		if err != nil {
			writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func (s *Server) deleteAnalysisHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.jobs.Delete(r.Context(), r.PathValue("repo_id")); err != nil {
			writeFailure(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) listAnalysesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := contract.DefaultListLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				writeFailure(w, fmt.Errorf("%w: limit must be a positive integer", contract.ErrInvalidInput))
				return
			}
			limit = n
		}
		rows, err := s.jobs.List(r.Context(), limit)
		if err != nil {
			writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rows)
	}
}

func (s *Server) queryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req QueryRequest
		if err := decodeBody(w, r, &req); err != nil {
			writeFailure(w, err)
			return
		}
		res, err := s.engine.Ask(r.Context(), req.RepoID, req.Query)
		if err != nil {
			writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func (s *Server) visualizeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := s.engine.Visualize(r.Context(), r.PathValue("repo_id"))
		if err != nil {
			writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, data)
	}
}

func (s *Server) suggestionsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string][]string{
			"suggestions": query.Suggestions(r.URL.Query().Get("repo_url")),
		})
	}
}
