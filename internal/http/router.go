package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/tempo-service/internal/observability"
)

// RouterConfig configures NewRouter. A nil Limiter disables rate limiting; a zero
// RequestTimeout disables the /weather deadline.
type RouterConfig struct {
	Limiter        *rate.Limiter
	RequestTimeout time.Duration
}

// NewRouter wires routes and middleware:
//
//	GET  /                 HTML screen
//	POST /refresh          HTML pull-to-refresh, 303 back to / (rate limited)
//	GET  /weather          screen JSON (rate limited)
//	POST /weather/refresh  refresh, 202 or 200 with ?wait=true (rate limited)
//	GET  /health           health status
//	GET  /metrics          Prometheus metrics
func NewRouter(h *Handler, logger *zap.Logger, cfg RouterConfig) *mux.Router {
	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(logger))
	router.Use(MetricsMiddleware)

	router.HandleFunc("/", h.GetScreenPage).Methods(http.MethodGet)
	router.HandleFunc("/health", h.GetHealth).Methods(http.MethodGet)
	router.Handle("/metrics", observability.MetricsHandler()).Methods(http.MethodGet)

	// Every route that can start an upstream fetch shares one limiter.
	refresh := router.NewRoute().Subrouter()
	refresh.Use(RateLimitMiddleware(cfg.Limiter))
	refresh.HandleFunc("/refresh", h.PostRefreshForm).Methods(http.MethodPost)

	weather := router.NewRoute().Subrouter()
	weather.Use(RateLimitMiddleware(cfg.Limiter))
	if cfg.RequestTimeout > 0 {
		weather.Use(TimeoutMiddleware(cfg.RequestTimeout))
	}
	weather.HandleFunc("/weather", h.GetWeather).Methods(http.MethodGet)
	weather.HandleFunc("/weather/refresh", h.PostRefresh).Methods(http.MethodPost)

	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
	})
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "NOT_FOUND", "Not found")
	})
	return router
}
