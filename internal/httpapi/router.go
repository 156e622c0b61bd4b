package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const healthTimeout = 2 * time.Second

// RouterConfig holds the router's collaborators. Health and Registry are
// optional.
type RouterConfig struct {
	Health        Pinger
	Registry      *prometheus.Registry
	AllowedOrigin string
	Logger        *zap.Logger
}

// NewRouter constructs the HTTP router for the backend.
func NewRouter(h *Handlers, cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	reg := cfg.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(WithLogging(logger.Named("http"), NewMetrics(reg)))
	r.Use(middleware.Recoverer)
	r.Use(CORS(cfg.AllowedOrigin))

	r.Get("/health", healthHandler(h, cfg.Health))
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	r.Route("/api", func(r chi.Router) {
		r.Post("/transcribe", h.Transcribe)
		r.Post("/submit_feedback", h.SubmitFeedback)
		r.Get("/feedback/{identity}", h.GetFeedback)
		r.Post("/feedback/{id}/summary", h.SaveSummary)
	})

	return r
}

type healthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func healthHandler(h *Handlers, p Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if p == nil {
			h.jsonResponse(w, http.StatusOK, healthResponse{Status: "ok"})
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			h.logger.Warn("health check failed", zap.Error(err))
			h.jsonResponse(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable", Error: err.Error()})
			return
		}
		h.jsonResponse(w, http.StatusOK, healthResponse{Status: "ok"})
	}
}
