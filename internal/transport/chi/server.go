// Package chi exposes the HTTP API: POST /search, GET /healthz,
// GET /readyz, GET /metrics.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/civicgrid/permitsearch/internal/domain"
	"github.com/civicgrid/permitsearch/internal/domain/search/request"
	"github.com/civicgrid/permitsearch/internal/domain/search/result"
	healthuc "github.com/civicgrid/permitsearch/internal/usecase/health"
)

// SearchService runs one search transaction.
type SearchService interface {
	Search(ctx context.Context, req *request.Request) ([]result.Item, error)
}

// HealthService reports dependency health for the readiness probe.
type HealthService interface {
	Check(ctx context.Context) healthuc.Report
}

// Server holds the HTTP handlers.
type Server struct {
	search SearchService
	health HealthService
	logger *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(search SearchService, health HealthService, logger *zap.Logger) *Server {
	return &Server{search: search, health: health, logger: logger}
}

// Register mounts the API routes on the router.
func (s *Server) Register(r chi.Router) {
	r.Post("/search", s.Search)
	r.Get("/healthz", s.Healthz)
	r.Get("/readyz", s.Readyz)
	r.Get("/metrics", s.Metrics)
}

// searchRequest is the POST /search body.
type searchRequest struct {
	Query   string            `json:"query"`
	Filters map[string]string `json:"filters"`
	TopK    *int              `json:"top_k"`
}

// searchResultItem is one hit in the response.
type searchResultItem struct {
	Document        string            `json:"document"`
	Metadata        map[string]string `json:"metadata"`
	SimilarityScore float64           `json:"similarity_score"`
}

// searchResponse is the POST /search success body.
type searchResponse struct {
	Results []searchResultItem `json:"results"`
}

// Search handles POST /search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var body searchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	topK := 0
	if body.TopK != nil {
		if *body.TopK < 1 {
			writeError(w, http.StatusBadRequest, "top_k must be a positive integer")
			return
		}
		topK = *body.TopK
	}

	req, err := request.New(body.Query, body.Filters, topK)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, err := s.search.Search(r.Context(), &req)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	results := make([]searchResultItem, len(items))
	for i := range items {
		metadata := items[i].Metadata()
		if metadata == nil {
			metadata = map[string]string{}
		}
		results[i] = searchResultItem{
			Document:        items[i].Document(),
			Metadata:        metadata,
			SimilarityScore: items[i].Score(),
		}
	}

	writeJSON(w, http.StatusOK, searchResponse{Results: results})
}

// Healthz handles GET /healthz: a static liveness payload, independent
// of dependency health by contract.
func (s *Server) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		OK bool `json:"ok"`
	}{OK: true})
}

// Readyz handles GET /readyz with per-dependency checks.
func (s *Server) Readyz(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, struct {
		Status healthuc.Status                 `json:"status"`
		Checks map[string]healthuc.CheckResult `json:"checks"`
	}{Status: report.Status, Checks: report.Checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// handleDomainError maps sentinel errors to statuses. Clients get only
// the sentinel-level text; the wrapped detail stays in operator logs.
func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Error("search failed", zap.Error(err))

	switch {
	case errors.Is(err, domain.ErrEmbeddingProviderError):
		writeError(w, http.StatusInternalServerError, domain.ErrEmbeddingProviderError.Error())
	case errors.Is(err, domain.ErrIndexUnavailable):
		writeError(w, http.StatusInternalServerError, domain.ErrIndexUnavailable.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, struct {
		Detail string `json:"detail"`
	}{Detail: detail})
}
