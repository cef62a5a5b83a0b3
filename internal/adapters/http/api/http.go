// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/vantage/internal/domain/model"
	"github.com/okian/vantage/internal/domain/stats"
	"github.com/okian/vantage/pkg/logger"
)

// DefaultMaxBodyBytes caps request bodies when no limit is configured.
const DefaultMaxBodyBytes int64 = 1 << 20

// Dependencies required by HTTP handlers.
type Dependencies interface {
	// Latency aggregates a raw request body, falling back to the bundled
	// dataset when the body is absent.
	Latency(ctx context.Context, body []byte) (map[string]stats.Metrics, error)

	// Students lists the roster, filtered to classes when any are given.
	Students(ctx context.Context, classes []string) []model.Student
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	latencyHandler  *LatencyHandler
	studentsHandler *StudentsHandler
}

// NewServer creates a new API server with all handlers. A non-positive
// maxBodyBytes uses DefaultMaxBodyBytes.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxBodyBytes int64) *Server {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		latencyHandler:  NewLatencyHandler(deps, maxBodyBytes),
		studentsHandler: NewStudentsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", chain(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", chain(s.healthHandler.HandleMetrics, "metrics"))
	mux.HandleFunc("/stats", chain(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/api/latency", chain(CORSMiddleware(s.latencyHandler.HandlePostLatency, http.MethodPost), "latency"))
	mux.HandleFunc("/api", chain(CORSMiddleware(s.studentsHandler.HandleGetStudents, http.MethodGet), "students"))
}

// chain applies the middleware every route shares. Request IDs are assigned
// first so that access logs and handlers see them.
func chain(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return RequestIDMiddleware(AccessLogMiddleware(MetricsMiddleware(next, endpoint), endpoint))
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	if msg == "" {
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, op string, allow ...string) {
	logger.Get().Debug(r.Context(), "method rejected",
		logger.String("method", r.Method),
		logger.Error(NewKind(op, ErrMethodNotAllowed)),
	)
	for _, m := range allow {
		w.Header().Add("Allow", m)
	}
	writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
}
