// Package degraded derives the fallback rate of recent fetch cycles. A screen that keeps
// showing canned data looks healthy to users, so /health reports it instead.
package degraded

import (
	"time"

	"github.com/kjstillabower/tempo-service/internal/traffic"
)

// RecordLive records a fetch cycle that produced live data.
func RecordLive() {
	traffic.Record(traffic.Live)
}

// RecordFallback records a fetch cycle that ended on the fallback payload.
func RecordFallback() {
	traffic.Record(traffic.Fallback)
}

// FallbackRate returns (fallbackCount, totalCount) of fetch cycles within the window.
func FallbackRate(window time.Duration) (fallbacks, total int) {
	fallbacks = traffic.Count(traffic.Fallback, window)
	return fallbacks, fallbacks + traffic.Count(traffic.Live, window)
}

// IsDegraded reports whether the fallback share in window is at least thresholdPct.
// No fetches in the window is not degraded.
func IsDegraded(window time.Duration, thresholdPct int) bool {
	if window <= 0 || thresholdPct <= 0 {
		return false
	}
	fallbacks, total := FallbackRate(window)
	if total == 0 {
		return false
	}
	return float64(fallbacks)*100/float64(total) >= float64(thresholdPct)
}

// Reset clears all recorded data. For tests only.
func Reset() {
	traffic.Reset()
}
