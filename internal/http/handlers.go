package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/tempo-service/internal/degraded"
	"github.com/kjstillabower/tempo-service/internal/lifecycle"
	"github.com/kjstillabower/tempo-service/internal/models"
	"github.com/kjstillabower/tempo-service/internal/observability"
	"github.com/kjstillabower/tempo-service/internal/overload"
)

// ScreenSource is the screen state the handlers serve. *service.ScreenService implements it.
type ScreenSource interface {
	Snapshot() models.Screen
	Refresh(ctx context.Context) <-chan models.Screen
}

// HealthConfig holds lifecycle thresholds for the health handler.
type HealthConfig struct {
	OverloadWindow       time.Duration
	OverloadThresholdPct int
	RateLimitRPS         int // 0 when rate limiter disabled
	DegradedWindow       time.Duration
	DegradedFallbackPct  int
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	screen           ScreenSource
	page             *PageRenderer
	healthConfig     *HealthConfig
	logger           *zap.Logger
	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a new Handler. healthConfig may be nil to report only shutdown and startup.
func NewHandler(screen ScreenSource, page *PageRenderer, healthConfig *HealthConfig, logger *zap.Logger) *Handler {
	return &Handler{
		screen:       screen,
		page:         page,
		healthConfig: healthConfig,
		logger:       logger,
	}
}

// GetScreenPage handles GET /. Renders the loading screen until the first fetch completes.
func (h *Handler) GetScreenPage(w http.ResponseWriter, r *http.Request) {
	body, err := h.page.Render(h.screen.Snapshot())
	if err != nil {
		if logger := loggerFrom(r); logger != nil {
			logger.Error("render screen page", zap.Error(err))
		}
		writeError(w, r, http.StatusInternalServerError, "RENDER_FAILED", "Unable to render page")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// PostRefreshForm handles POST /refresh, the page's pull-to-refresh. Starts a refresh and
// redirects back to the page, which shows the refreshing indicator until the fetch completes.
func (h *Handler) PostRefreshForm(w http.ResponseWriter, r *http.Request) {
	h.screen.Refresh(r.Context())
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// GetWeather handles GET /weather.
func (h *Handler) GetWeather(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.screen.Snapshot())
}

// PostRefresh handles POST /weather/refresh. Returns 202 with refreshing=true, or with
// ?wait=true blocks until the fetch completes and returns 200 with the final screen.
// If the request context ends first the refresh keeps running and 202 is returned.
func (h *Handler) PostRefresh(w http.ResponseWriter, r *http.Request) {
	wait := false
	if v := r.URL.Query().Get("wait"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "INVALID_PARAMETER", "wait must be a boolean")
			return
		}
		wait = b
	}

	done := h.screen.Refresh(r.Context())
	if !wait {
		writeJSON(w, http.StatusAccepted, h.screen.Snapshot())
		return
	}

	select {
	case screen := <-done:
		writeJSON(w, http.StatusOK, screen)
	case <-r.Context().Done():
		if logger := loggerFrom(r); logger != nil {
			logger.Debug("refresh wait ended before fetch completed", zap.Error(r.Context().Err()))
		}
		writeJSON(w, http.StatusAccepted, h.screen.Snapshot())
	}
}

// healthResult holds the computed health status and metadata for logging.
type healthResult struct {
	status     string
	statusCode int
	reason     string
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	screen := h.screen.Snapshot()
	result := h.computeHealthStatus(screen)

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	checks := map[string]string{
		"weatherApi": "healthy",
		"screen":     "ready",
	}
	if result.status == "degraded" {
		checks["weatherApi"] = "unhealthy"
	}
	if screen.Loading {
		checks["screen"] = "loading"
	}
	resp := map[string]interface{}{
		"status":    result.status,
		"service":   observability.ServiceName,
		"version":   "dev",
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	writeJSON(w, result.statusCode, resp)
}

// computeHealthStatus evaluates conditions in priority order:
// shutting-down > overloaded > degraded > starting > healthy.
func (h *Handler) computeHealthStatus(screen models.Screen) healthResult {
	if lifecycle.IsShuttingDown() {
		return healthResult{"shutting-down", http.StatusServiceUnavailable, "signal"}
	}
	if h.healthConfig != nil {
		if overload.IsOverloaded(h.healthConfig.OverloadWindow, h.healthConfig.RateLimitRPS, h.healthConfig.OverloadThresholdPct) {
			return healthResult{"overloaded", http.StatusServiceUnavailable, "overload_threshold"}
		}
		if degraded.IsDegraded(h.healthConfig.DegradedWindow, h.healthConfig.DegradedFallbackPct) {
			return healthResult{"degraded", http.StatusServiceUnavailable, "fallback_rate_breach"}
		}
	}
	if screen.Loading {
		return healthResult{"starting", http.StatusServiceUnavailable, "initial_fetch"}
	}
	return healthResult{"healthy", http.StatusOK, ""}
}

// loggerFrom returns the request-scoped logger set by CorrelationIDMiddleware, or nil.
func loggerFrom(r *http.Request) *zap.Logger {
	if logger, ok := r.Context().Value("logger").(*zap.Logger); ok && logger != nil {
		return logger
	}
	return nil
}

// writeJSON writes a JSON response with the specified HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an error response in the standard error format with code, message,
// and requestId (correlation ID) if available in request context.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	corrID := ""
	if v, ok := r.Context().Value("correlation_id").(string); ok {
		corrID = v
	}
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": corrID,
		},
	})
}
