package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hamed0406/smoketestexporter/internal/domain"
	"github.com/hamed0406/smoketestexporter/internal/repo"
)

// Server is the pull-based export surface: Prometheus text on /metrics
// plus JSON snapshots of the result store.
type Server struct {
	Logger  *zap.Logger
	Results repo.ResultStore
	Metrics http.Handler
}

func NewServer(l *zap.Logger, rs repo.ResultStore, metrics http.Handler) *Server {
	return &Server{Logger: l, Results: rs, Metrics: metrics}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.AllowAll().Handler)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Method(http.MethodGet, "/metrics", s.Metrics)
	r.Get("/api/results", s.handleListResults)
	r.Get("/api/results/{service}", s.handleGetResult)

	return r
}

func (s *Server) handleListResults(w http.ResponseWriter, r *http.Request) {
	out := make([]domain.CheckResult, 0)
	for _, res := range s.Results.All() {
		out = append(out, res)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetResult(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "service")
	res, err := s.Results.Get(name)
	if errors.Is(err, repo.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown service"})
		return
	}
	if err != nil {
		s.Logger.Warn("api_get_result_error", zap.String("service", name), zap.Error(err))
		http.Error(w, "lookup error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
