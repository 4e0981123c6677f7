package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/dshills/smartsearch/internal/indexer"
	"github.com/dshills/smartsearch/internal/logger"
	"github.com/dshills/smartsearch/internal/searcher"
	"github.com/dshills/smartsearch/internal/storage"
	"github.com/dshills/smartsearch/pkg/types"
)

// SearchRequest is the JSON body of POST /api/search
type SearchRequest struct {
	Query string `json:"query"`
	Type  string `json:"type,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

// ReindexResponse acknowledges a background reindex
type ReindexResponse struct {
	Accepted bool              `json:"accepted"`
	Job      indexer.JobStatus `json:"job"`
}

// handleSearchGet handles GET /api/search?query=&type=&limit=
func (s *Server) handleSearchGet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := SearchRequest{
		Query: q.Get("query"),
		Type:  q.Get("type"),
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeBadRequest, "limit must be an integer")
			return
		}
		req.Limit = limit
	}
	s.search(w, r, req)
}

// handleSearchPost handles POST /api/search
func (s *Server) handleSearchPost(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	s.search(w, r, req)
}

func (s *Server) search(w http.ResponseWriter, r *http.Request, req SearchRequest) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		writeError(w, http.StatusBadRequest, codeEmptyQuery, types.ErrEmptyQuery.Error())
		return
	}
	if req.Limit < 0 {
		writeError(w, http.StatusBadRequest, codeBadRequest, "limit must be positive")
		return
	}

	var entityType *types.EntityType
	if req.Type != "" {
		t, err := types.ParseEntityType(req.Type)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidType, err.Error())
			return
		}
		entityType = &t
	}

	resp := s.searcher.Search(r.Context(), searcher.Request{
		Query: query,
		Type:  entityType,
		Limit: req.Limit,
	})
	writeJSON(w, http.StatusOK, resp)
}

// handleReindexAll handles POST /api/search/admin/reindex-all
func (s *Server) handleReindexAll(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobs.ReindexAll(r.Context())
	s.writeJob(w, r, job, err)
}

// handleReindexType handles POST /api/search/admin/reindex/{type}
func (s *Server) handleReindexType(w http.ResponseWriter, r *http.Request) {
	t, ok := entityTypeParam(w, r)
	if !ok {
		return
	}
	job, err := s.jobs.ReindexType(r.Context(), t)
	s.writeJob(w, r, job, err)
}

func (s *Server) writeJob(w http.ResponseWriter, r *http.Request, job indexer.JobStatus, err error) {
	switch {
	case errors.Is(err, indexer.ErrReindexInProgress):
		writeError(w, http.StatusConflict, codeConflict, err.Error())
	case errors.Is(err, indexer.ErrJobsClosed):
		writeError(w, http.StatusServiceUnavailable, codeUnavailable, err.Error())
	case err != nil:
		logger.FromContext(r.Context()).Error("failed to start reindex", zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to start reindex")
	default:
		writeJSON(w, http.StatusAccepted, ReindexResponse{Accepted: true, Job: job})
	}
}

// handleReindexOne handles POST /api/search/admin/reindex/{type}/{id}
func (s *Server) handleReindexOne(w http.ResponseWriter, r *http.Request) {
	t, ok := entityTypeParam(w, r)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, codeBadRequest, types.ErrInvalidEntityID.Error())
		return
	}

	err = s.jobs.ReindexOne(r.Context(), t, id)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, t.Scope()+" not found")
	case err != nil:
		logger.FromContext(r.Context()).Error("reindex failed",
			zap.String("type", string(t)), zap.Int64("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternal, "reindex failed")
	default:
		writeJSON(w, http.StatusOK, map[string]any{"indexed": true, "type": t, "id": id})
	}
}

// handleListJobs handles GET /api/search/admin/jobs
func (s *Server) handleListJobs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"jobs": s.jobs.List()})
}

// handleGetJob handles GET /api/search/admin/jobs/{id}
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobs.Status(chi.URLParam(r, "id"))
	if errors.Is(err, indexer.ErrJobNotFound) {
		writeError(w, http.StatusNotFound, codeNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to read job")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// handleCacheStats handles GET /api/search/admin/cache
func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	status, err := s.storage.GetStatus(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("failed to get index status", zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to get index status")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"cache": s.cache.Stats(),
		"index": status,
	})
}

// handleClearCache handles DELETE /api/search/admin/cache
func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	s.cache.Clear(r.Context())
	logger.FromContext(r.Context()).Info("embedding cache cleared")
	writeJSON(w, http.StatusOK, map[string]any{"cleared": true})
}

// handleHealth handles GET /healthz
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.health(r.Context()); err != nil {
		logger.FromContext(r.Context()).Warn("health check failed", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, codeUnavailable, "database unreachable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func entityTypeParam(w http.ResponseWriter, r *http.Request) (types.EntityType, bool) {
	t, err := types.ParseEntityType(chi.URLParam(r, "type"))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidType, err.Error())
		return "", false
	}
	return t, true
}
