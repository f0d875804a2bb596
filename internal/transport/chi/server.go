// Package chi implements the HTTP API over the chi router.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kensaku-io/kensaku/internal/domain"
	"github.com/kensaku-io/kensaku/internal/domain/search/filter"
	"github.com/kensaku-io/kensaku/internal/domain/search/mode"
	"github.com/kensaku-io/kensaku/internal/domain/search/request"
	"github.com/kensaku-io/kensaku/internal/domain/search/result"
	"github.com/kensaku-io/kensaku/internal/logger"
	healthuc "github.com/kensaku-io/kensaku/internal/usecase/health"
	"github.com/kensaku-io/kensaku/internal/usecase/postprocess"
	searchuc "github.com/kensaku-io/kensaku/internal/usecase/search"
)

// Error response codes.
const (
	codeBadRequest    = "bad_request"
	codeUnauthorized  = "unauthorized"
	codeInternalError = "internal_error"
)

// Server exposes the retrieval API. Handlers log through the
// request-scoped logger placed in the context by the middleware chain.
type Server struct {
	search *searchuc.Service
	health *healthuc.Service
}

// NewServer creates an HTTP API server.
func NewServer(search *searchuc.Service, health *healthuc.Service) *Server {
	return &Server{search: search, health: health}
}

// Register mounts all routes on the router.
func (s *Server) Register(r chi.Router) {
	r.Post("/api/v1/search", s.handleSearch)
	r.Get("/health", s.handleHealth)
	r.Get("/metrics", s.handleMetrics)
}

// searchRequestBody is the POST /api/v1/search payload.
type searchRequestBody struct {
	Query       string       `json:"query"`
	Project     string       `json:"project"`
	SearchType  string       `json:"search_type"`
	TopK        int          `json:"top_k"`
	UseFallback *bool        `json:"use_fallback"`
	Filters     *filtersBody `json:"filters"`
}

type filtersBody struct {
	Category      string   `json:"category"`
	Tags          []string `json:"tags"`
	CreatedAfter  string   `json:"created_after"`
	CreatedBefore string   `json:"created_before"`
}

// searchResponse is the response envelope.
type searchResponse struct {
	Query         string       `json:"query"`
	SearchType    string       `json:"search_type"`
	TotalFound    int          `json:"total_found"`
	Results       []resultItem `json:"results"`
	SearchHistory []string     `json:"search_history,omitempty"`
}

type resultItem struct {
	SourcePath  string            `json:"source_path"`
	Snippet     string            `json:"snippet"`
	Score       float64           `json:"weighted_score"`
	RawScore    float64           `json:"raw_score"`
	Method      string            `json:"search_method"`
	Source      string            `json:"source"`
	QueryOrigin string            `json:"search_query_origin,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Highlights  []result.Span     `json:"highlights,omitempty"`
}

// handleSearch handles POST /api/v1/search.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var body searchRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	filters, err := filtersFromBody(body.Filters)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	useFallback := true
	if body.UseFallback != nil {
		useFallback = *body.UseFallback
	}

	req, err := request.New(
		body.Query, mode.Mode(body.SearchType), body.Project, body.TopK, useFallback, filters,
	)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	outcome, err := s.search.Search(r.Context(), &req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	results := postprocess.Apply(outcome.Results, req.Filters(), req.Query())

	items := make([]resultItem, len(results))
	for i := range results {
		items[i] = resultToItem(&results[i])
	}

	writeJSON(w, http.StatusOK, searchResponse{
		Query:         postprocess.TruncateQuery(req.Query()),
		SearchType:    string(req.Mode()),
		TotalFound:    len(items),
		Results:       items,
		SearchHistory: outcome.History,
	})
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// handleMetrics handles GET /metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func filtersFromBody(f *filtersBody) (filter.Filters, error) {
	if f == nil {
		return filter.Filters{}, nil
	}

	after, err := parseFilterTime(f.CreatedAfter)
	if err != nil {
		return filter.Filters{}, errors.New("invalid created_after: " + err.Error())
	}
	before, err := parseFilterTime(f.CreatedBefore)
	if err != nil {
		return filter.Filters{}, errors.New("invalid created_before: " + err.Error())
	}

	return filter.New(f.Category, f.Tags, after, before), nil
}

// parseFilterTime accepts RFC3339 timestamps or bare dates.
func parseFilterTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return &ts, nil
	}
	ts, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, err
	}
	return &ts, nil
}

func resultToItem(r *result.Result) resultItem {
	return resultItem{
		SourcePath:  r.SourcePath(),
		Snippet:     r.Snippet(),
		Score:       r.WeightedScore(),
		RawScore:    r.RawScore(),
		Method:      string(r.Method()),
		Source:      string(r.Source()),
		QueryOrigin: r.QueryOrigin(),
		Metadata:    r.Metadata(),
		Highlights:  r.Highlights(),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"error":   code,
		"message": message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidRequest,
		domain.ErrUnsupportedMode,
		domain.ErrBackendUnavailable,
		domain.ErrEmbeddingProvider,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)

	switch {
	case errors.Is(err, domain.ErrInvalidRequest), errors.Is(err, domain.ErrUnsupportedMode):
		writeError(w, http.StatusBadRequest, codeBadRequest, msg)
	case errors.Is(err, domain.ErrBackendUnavailable), errors.Is(err, domain.ErrEmbeddingProvider):
		writeError(w, http.StatusBadGateway, codeInternalError, msg)
	default:
		log.Error("internal error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}
