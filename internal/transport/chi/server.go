// Package chi exposes search and health over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/clientrag/internal/domain"
	logpkg "github.com/kailas-cloud/clientrag/internal/logger"
	"github.com/kailas-cloud/clientrag/internal/metrics"
	healthuc "github.com/kailas-cloud/clientrag/internal/usecase/health"
)

// MaxK caps the number of results per category a caller may request.
const MaxK = 100

// maxBodyBytes bounds POST request bodies.
const maxBodyBytes = 1 << 20

// Searcher answers multi-category queries.
type Searcher interface {
	Search(ctx context.Context, client, query string, k int) (domain.SearchResult, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// SearchRequest is the body of POST /v1/search.
type SearchRequest struct {
	Client string `json:"client"`
	Query  string `json:"query"`
	K      int    `json:"k,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status healthuc.Status                 `json:"status"`
	Checks map[string]healthuc.CheckResult `json:"checks"`
}

// Server holds the HTTP handlers.
type Server struct {
	search Searcher
	health HealthChecker
	logger *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(search Searcher, health HealthChecker, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{search: search, health: health, logger: logger}
}

// Router mounts the handlers with the standard middleware stack.
func (s *Server) Router(apiKeys []string) http.Handler {
	r := chi.NewRouter()
	r.Use(JSONRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(WideEventMiddleware(s.logger))
	r.Use(BearerAuthMiddleware(apiKeys))
	r.Use(metrics.Middleware())

	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/clients/{client}/search", s.SearchClient)
		r.Post("/search", s.SearchBody)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, CodeBadRequest, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, CodeBadRequest, "method not allowed")
	})
	return r
}

// SearchClient handles GET /v1/clients/{client}/search?q=&k=.
func (s *Server) SearchClient(w http.ResponseWriter, r *http.Request) {
	k := 0
	if raw := r.URL.Query().Get("k"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, CodeValidationFailed, "k must be an integer")
			return
		}
		k = n
	}
	s.runSearch(w, r, chi.URLParam(r, "client"), r.URL.Query().Get("q"), k)
}

// SearchBody handles POST /v1/search.
func (s *Server) SearchBody(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	s.runSearch(w, r, req.Client, req.Query, req.K)
}

func (s *Server) runSearch(w http.ResponseWriter, r *http.Request, client, query string, k int) {
	if k < 0 || k > MaxK {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, fmt.Sprintf("k must be between 0 and %d", MaxK))
		return
	}

	log := logpkg.FromContextOr(r.Context(), s.logger).With(zap.String("client", client))
	ctx := logpkg.ContextWithLogger(r.Context(), log)
	res, err := s.search.Search(ctx, client, query, k)
	if err != nil {
		s.handleDomainError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: report.Status,
		Checks: report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func (s *Server) handleDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	log := logpkg.FromContextOr(ctx, s.logger)
	for _, h := range errorHandlers {
		if h(w, err) {
			log.Warn("domain error", zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
