// Package traffic keeps sliding windows of request and fetch outcomes.
// It is the single source of truth for overload (served, denied) and
// degraded (live, fallback) health decisions.
package traffic

import (
	"sync"
	"time"
)

// Outcome is one kind of recorded event.
type Outcome int

const (
	// Served is a request admitted on the rate-limited path.
	Served Outcome = iota
	// Denied is a rate-limit rejection (429).
	Denied
	// Live is a fetch cycle that produced live data.
	Live
	// Fallback is a fetch cycle that ended on the fallback payload.
	Fallback

	numOutcomes
)

// MaxWindow bounds how long timestamps are retained. Config rejects health windows longer
// than this, since Count could not see events past it.
const MaxWindow = 10 * time.Minute

var defaultTracker Tracker

// Record records o at the current time on the process-wide tracker.
func Record(o Outcome) {
	defaultTracker.Record(o)
}

// Count returns how many o events fall within window on the process-wide tracker.
func Count(o Outcome, window time.Duration) int {
	return defaultTracker.Count(o, window)
}

// Reset clears the process-wide tracker. For tests only.
func Reset() {
	defaultTracker.Reset()
}

// Tracker maintains per-outcome timestamp windows. The zero value is ready to use.
type Tracker struct {
	mu    sync.Mutex
	times [numOutcomes][]time.Time
	now   func() time.Time
}

// Record appends the current time to o's window and prunes expired entries.
func (t *Tracker) Record(o Outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.clock()
	t.times[o] = append(t.times[o], now)
	t.pruneLocked(now)
}

// Count returns the number of o events not older than window.
func (t *Tracker) Count(o Outcome, window time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.clock().Add(-window)
	n := 0
	for _, ts := range t.times[o] {
		if !ts.Before(cutoff) {
			n++
		}
	}
	return n
}

// Reset clears all recorded outcomes.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.times {
		t.times[i] = nil
	}
}

func (t *Tracker) clock() time.Time {
	if t.now != nil {
		return t.now()
	}
	return time.Now()
}

// pruneLocked drops timestamps older than MaxWindow. Timestamps are appended in order.
func (t *Tracker) pruneLocked(now time.Time) {
	cutoff := now.Add(-MaxWindow)
	for o, times := range t.times {
		i := 0
		for ; i < len(times) && times[i].Before(cutoff); i++ {
		}
		if i > 0 {
			t.times[o] = append(times[:0], times[i:]...)
		}
	}
}
