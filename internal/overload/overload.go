package overload

import (
	"time"

	"github.com/kjstillabower/tempo-service/internal/traffic"
)

// RecordServed records a request admitted by the rate limiter.
func RecordServed() {
	traffic.Record(traffic.Served)
}

// RecordDenial records a rate-limit denial (429). Call from middleware when returning 429.
func RecordDenial() {
	traffic.Record(traffic.Denied)
}

// RequestCount returns the number of requests (served + denied) within the window.
func RequestCount(window time.Duration) int {
	return traffic.Count(traffic.Served, window) + traffic.Count(traffic.Denied, window)
}

// DenialCount returns the number of denials within the window.
func DenialCount(window time.Duration) int {
	return traffic.Count(traffic.Denied, window)
}

// IsOverloaded reports whether load in window exceeds thresholdPct of the limiter's capacity
// (rps * window). Always false when rps <= 0 (limiter disabled).
func IsOverloaded(window time.Duration, rps, thresholdPct int) bool {
	if rps <= 0 || window <= 0 || thresholdPct <= 0 {
		return false
	}
	threshold := float64(rps) * window.Seconds() * float64(thresholdPct) / 100
	return float64(RequestCount(window)) > threshold
}

// Reset clears all recorded data. For tests only.
func Reset() {
	traffic.Reset()
}
