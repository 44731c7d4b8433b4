package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/askdocs-ai/askdocs/engine/domain"
	"github.com/askdocs-ai/askdocs/engine/ingest"
	"github.com/askdocs-ai/askdocs/engine/rag"
	"github.com/askdocs-ai/askdocs/engine/semantic"
	"github.com/askdocs-ai/askdocs/pkg/metrics"
)

type server struct {
	ingest  *ingest.Service
	rag     *rag.Service
	store   semantic.Store
	reg     *metrics.Registry
	log     *slog.Logger
	dataDir string
	loaded  atomic.Bool
}

func newServer(ing *ingest.Service, ragSvc *rag.Service, store semantic.Store, reg *metrics.Registry, log *slog.Logger, dataDir string) *server {
	return &server{ingest: ing, rag: ragSvc, store: store, reg: reg, log: log, dataDir: dataDir}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("POST /api/load-documents", s.handleLoadDocuments)
	mux.HandleFunc("POST /api/query", s.handleQuery)
	mux.Handle("GET /metrics", s.reg.Handler())
	return mux
}

// loadOnStartup ingests the data directory once if the store is empty, so a
// fresh deployment serves answers without a manual load call.
func (s *server) loadOnStartup(ctx context.Context) {
	n, err := s.store.Count(ctx)
	if err != nil {
		s.log.Warn("startup: count failed, skipping auto-load", "error", err)
		return
	}
	if n > 0 {
		s.loaded.Store(true)
		s.reg.Gauge("documents_loaded", "Whether documents are loaded.").Set(1)
		return
	}
	report, err := s.ingest.Run(ctx, s.dataDir)
	if err != nil {
		s.log.Warn("startup: document load failed", "error", err)
		return
	}
	s.loaded.Store(true)
	s.reg.Gauge("documents_loaded", "Whether documents are loaded.").Set(1)
	s.log.Info("startup: documents loaded", "chunks", report.ChunksWritten)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	connected := s.store.Ping(r.Context()) == nil
	status := "healthy"
	if !connected {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":             status,
		"database_connected": connected,
		"documents_loaded":   s.loaded.Load(),
	})
}

func (s *server) handleLoadDocuments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	if r.URL.Query().Get("clear") == "true" {
		if err := s.store.Clear(ctx); err != nil {
			s.log.Error("clear failed", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to clear store")
			return
		}
	}

	report, err := s.ingest.Run(ctx, s.dataDir)
	if err != nil {
		var nf *domain.NotFoundError
		if errors.As(err, &nf) {
			writeError(w, http.StatusNotFound, "documents directory not found: "+nf.Path)
			return
		}
		s.log.Error("document load failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load documents")
		return
	}

	s.loaded.Store(true)
	s.reg.Gauge("documents_loaded", "Whether documents are loaded.").Set(1)
	s.reg.Counter("chunks_ingested_total", "Chunks written across all loads.").Add(int64(report.ChunksWritten))
	s.reg.Histogram("ingest_seconds", "Document load duration.", nil).Since(start)

	writeJSON(w, http.StatusOK, loadResponse{
		Message: "Documents loaded successfully",
		Report:  report,
	})
}

type loadResponse struct {
	Message string `json:"message"`
	ingest.Report
}

type queryRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

func (s *server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	start := time.Now()
	answer, err := s.rag.Query(r.Context(), req.Query, req.TopK)
	if err != nil {
		s.log.Error("query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	s.reg.Counter("queries_total", "Answered queries.").Inc()
	s.reg.Histogram("query_seconds", "Query latency.", nil).Since(start)

	writeJSON(w, http.StatusOK, answer)
}
