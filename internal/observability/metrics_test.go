package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// TestMetrics_Usable verifies that label dimensions match usage in client, http and service.
// Route uses path template to avoid cardinality.
func TestMetrics_Usable(t *testing.T) {
	HTTPRequestsTotal.WithLabelValues("GET", "/weather", "2xx").Inc()
	HTTPRequestDuration.WithLabelValues("GET", "/weather").Observe(0.01)
	WeatherAPICallsTotal.WithLabelValues("weather", "success").Inc()
	WeatherAPICallsTotal.WithLabelValues("forecast", "error").Inc()
	WeatherAPIDuration.WithLabelValues("forecast", "success").Observe(0.1)
	RecordCircuitBreakerTransition("weather_api", "closed", "open")
	SetCircuitBreakerStateGauge("weather_api", CircuitBreakerStateValue(1))
	RecordShutdownInFlight(3)
}

// TestRecordScreenFetch verifies fallback fetches count their error category and live ones do not.
func TestRecordScreenFetch(t *testing.T) {
	liveBefore := testutil.ToFloat64(ScreenFetchesTotal.WithLabelValues("live"))
	fallbackBefore := testutil.ToFloat64(ScreenFetchesTotal.WithLabelValues("fallback"))
	malformedBefore := testutil.ToFloat64(ScreenFetchErrorsTotal.WithLabelValues("malformed"))

	RecordScreenFetch("live", "", 120*time.Millisecond)
	RecordScreenFetch("fallback", "malformed", 80*time.Millisecond)

	if got := testutil.ToFloat64(ScreenFetchesTotal.WithLabelValues("live")) - liveBefore; got != 1 {
		t.Errorf("live fetches delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(ScreenFetchesTotal.WithLabelValues("fallback")) - fallbackBefore; got != 1 {
		t.Errorf("fallback fetches delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(ScreenFetchErrorsTotal.WithLabelValues("malformed")) - malformedBefore; got != 1 {
		t.Errorf("malformed errors delta = %v, want 1", got)
	}
}

func TestSetScreenLoading(t *testing.T) {
	SetScreenLoading(true)
	if got := testutil.ToFloat64(ScreenLoading); got != 1 {
		t.Errorf("ScreenLoading = %v, want 1", got)
	}
	SetScreenLoading(false)
	if got := testutil.ToFloat64(ScreenLoading); got != 0 {
		t.Errorf("ScreenLoading = %v, want 0", got)
	}
}

// TestMetricsHandler_ServesPrometheusFormat verifies that MetricsHandler serves
// Prometheus text exposition format with correct HTTP status and metric output.
func TestMetricsHandler_ServesPrometheusFormat(t *testing.T) {
	HTTPRequestsTotal.WithLabelValues("GET", "/", "2xx").Inc()
	handler := MetricsHandler()
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("MetricsHandler status = %d, want 200", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "httpRequestsTotal") {
		t.Error("MetricsHandler response should contain metric output")
	}
}
