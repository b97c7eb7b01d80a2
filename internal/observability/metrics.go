package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kjstillabower/tempo-service/internal/overload"
)

var (
	registry *prometheus.Registry

	// HTTP request rate. Watch for: sudden drops (service down) or spikes (traffic surge).
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency per request.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent requests in flight.
	HTTPRequestsInFlight prometheus.Gauge

	// OpenWeatherMap calls per endpoint (weather, forecast). Watch for: error vs success ratio.
	WeatherAPICallsTotal *prometheus.CounterVec

	// Upstream latency per endpoint. Watch for: p95 approaching the client timeout.
	WeatherAPIDuration *prometheus.HistogramVec

	// Completed screen fetch cycles by source (live, fallback). Fallback share = masked failures.
	ScreenFetchesTotal *prometheus.CounterVec

	// Masked fetch failures by category. The screen never shows these.
	ScreenFetchErrorsTotal *prometheus.CounterVec

	// Duration of a full fetch cycle (both upstream calls plus reshaping).
	ScreenFetchDuration prometheus.Histogram

	// User-initiated refreshes.
	ScreenRefreshesTotal prometheus.Counter

	// Fetch cycles that started while another was still running.
	ScreenFetchOverlapTotal prometheus.Counter

	// 1 while any screen fetch cycle is in progress.
	ScreenLoading prometheus.Gauge

	// Rate limit denials on /weather.
	RateLimitDeniedTotal prometheus.Counter

	// Circuit breaker transitions and current state (0 closed, 1 open, 2 half-open).
	CircuitBreakerTransitionsTotal *prometheus.CounterVec
	CircuitBreakerState            *prometheus.GaugeVec

	// In-flight requests observed when shutdown started.
	ShutdownInFlight prometheus.Gauge

	rateLimitGaugesOnce sync.Once
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds (per request)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of HTTP requests currently being served",
		},
	)
	WeatherAPICallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherApiCallsTotal",
			Help: "Total number of OpenWeatherMap API calls",
		},
		[]string{"endpoint", "status"},
	)
	WeatherAPIDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weatherApiDurationSeconds",
			Help:    "OpenWeatherMap API latency in seconds (per request)",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"endpoint", "status"},
	)
	ScreenFetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screenFetchesTotal",
			Help: "Completed screen fetch cycles by data source (live or fallback)",
		},
		[]string{"source"},
	)
	ScreenFetchErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screenFetchErrorsTotal",
			Help: "Fetch failures masked by the fallback payload, by category",
		},
		[]string{"category"},
	)
	ScreenFetchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "screenFetchDurationSeconds",
			Help:    "Duration of a full screen fetch cycle in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 20},
		},
	)
	ScreenRefreshesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "screenRefreshesTotal",
			Help: "Total number of user-initiated screen refreshes",
		},
	)
	ScreenFetchOverlapTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "screenFetchOverlapTotal",
			Help: "Fetch cycles started while another fetch was still in progress",
		},
	)
	ScreenLoading = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "screenLoading",
			Help: "1 while any screen fetch cycle is in progress",
		},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rateLimitDeniedTotal",
			Help: "Total number of requests denied by rate limiter (429)",
		},
	)
	CircuitBreakerTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuitBreakerTransitionsTotal",
			Help: "Circuit breaker state transitions",
		},
		[]string{"component", "from", "to"},
	)
	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuitBreakerState",
			Help: "Circuit breaker state: 0 closed, 1 open, 2 half-open",
		},
		[]string{"component"},
	)
	ShutdownInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "shutdownInFlightRequests",
			Help: "In-flight requests when graceful shutdown started",
		},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		WeatherAPICallsTotal, WeatherAPIDuration,
		ScreenFetchesTotal, ScreenFetchErrorsTotal, ScreenFetchDuration,
		ScreenRefreshesTotal, ScreenFetchOverlapTotal, ScreenLoading,
		RateLimitDeniedTotal,
		CircuitBreakerTransitionsTotal, CircuitBreakerState,
		ShutdownInFlight,
	)
}

// RegisterRateLimitGauges registers load and rejects gauges for the rate-limited path.
// Call from main after config load with cfg.OverloadWindow.
func RegisterRateLimitGauges(window time.Duration) {
	rateLimitGaugesOnce.Do(func() {
		registry.MustRegister(
			prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: "rateLimitRequestsInWindow",
					Help: "Requests hitting rate-limited path in sliding window; load/capacity planning",
				},
				func() float64 { return float64(overload.RequestCount(window)) },
			),
			prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: "rateLimitRejectsInWindow",
					Help: "429 responses in sliding window; are we rejecting requests",
				},
				func() float64 { return float64(overload.DenialCount(window)) },
			),
		)
	})
}

// RecordScreenFetch records one completed fetch cycle. category is empty for live data.
func RecordScreenFetch(source string, category string, duration time.Duration) {
	ScreenFetchesTotal.WithLabelValues(source).Inc()
	ScreenFetchDuration.Observe(duration.Seconds())
	if category != "" {
		ScreenFetchErrorsTotal.WithLabelValues(category).Inc()
	}
}

// SetScreenLoading sets the loading gauge; the screen service holds it up while any fetch is pending.
func SetScreenLoading(on bool) {
	if on {
		ScreenLoading.Set(1)
		return
	}
	ScreenLoading.Set(0)
}

// CircuitBreakerStateValue converts a breaker state ordinal to the gauge value.
func CircuitBreakerStateValue(state int) float64 {
	return float64(state)
}

// RecordCircuitBreakerTransition counts one breaker transition.
func RecordCircuitBreakerTransition(component, from, to string) {
	CircuitBreakerTransitionsTotal.WithLabelValues(component, from, to).Inc()
}

// SetCircuitBreakerStateGauge sets the current breaker state for component.
func SetCircuitBreakerStateGauge(component string, value float64) {
	CircuitBreakerState.WithLabelValues(component).Set(value)
}

// RecordShutdownInFlight records how many requests were still running when shutdown began.
func RecordShutdownInFlight(n int64) {
	ShutdownInFlight.Set(float64(n))
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
