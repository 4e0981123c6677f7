package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/dshills/smartsearch/internal/app"
	"github.com/dshills/smartsearch/internal/embedder"
	"github.com/dshills/smartsearch/internal/indexer"
	"github.com/dshills/smartsearch/internal/metrics"
	"github.com/dshills/smartsearch/internal/searcher"
	"github.com/dshills/smartsearch/internal/storage"
)

// maxBodyBytes bounds JSON request bodies
const maxBodyBytes = 1 << 20

const healthTimeout = 2 * time.Second

// Server serves the query and admin surfaces
type Server struct {
	searcher *searcher.Searcher
	jobs     *indexer.Jobs
	storage  storage.Storage
	cache    *embedder.Cache
	health   func(ctx context.Context) error
	logger   *zap.Logger
}

// NewServer creates an HTTP API server over the components of a
func NewServer(a *app.App) *Server {
	return &Server{
		searcher: a.Searcher,
		jobs:     a.Jobs,
		storage:  a.Storage,
		cache:    a.Generator.Cache(),
		health: func(ctx context.Context) error {
			return a.Health(ctx, healthTimeout)
		},
		logger: a.Logger.Named("http"),
	}
}

// Router builds the chi router. Admin routes require one of adminKeys.
func (s *Server) Router(adminKeys []string) http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(requestLogger(s.logger))
	r.Use(metrics.Middleware())

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/search", func(r chi.Router) {
		r.Get("/", s.handleSearchGet)
		r.Post("/", s.handleSearchPost)

		r.Route("/admin", func(r chi.Router) {
			r.Use(BearerAuthMiddleware(adminKeys))

			r.Post("/reindex-all", s.handleReindexAll)
			r.Post("/reindex/{type}", s.handleReindexType)
			r.Post("/reindex/{type}/{id}", s.handleReindexOne)
			r.Get("/jobs", s.handleListJobs)
			r.Get("/jobs/{id}", s.handleGetJob)
			r.Get("/cache", s.handleCacheStats)
			r.Delete("/cache", s.handleClearCache)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, codeBadRequest, "method not allowed")
	})
	return r
}

// Error codes carried in ErrorResponse.Code
const (
	codeBadRequest   = "bad_request"
	codeEmptyQuery   = "empty_query"
	codeInvalidType  = "invalid_type"
	codeUnauthorized = "unauthorized"
	codeNotFound     = "not_found"
	codeConflict     = "reindex_in_progress"
	codeInternal     = "internal_error"
	codeUnavailable  = "unavailable"
)

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}
