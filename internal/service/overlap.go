package service

import (
	"sync"
)

// overlapTracker counts fetch cycles currently in progress. Refreshes are allowed to overlap;
// the count only feeds metrics and logs.
type overlapTracker struct {
	mu     sync.Mutex // protects active
	active int
}

func newOverlapTracker() *overlapTracker {
	return &overlapTracker{}
}

// Begin records a fetch start and returns the number of fetches now running, including this one.
// Caller should defer End.
func (o *overlapTracker) Begin() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.active++
	return o.active
}

// End records a fetch completion.
func (o *overlapTracker) End() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active > 0 {
		o.active--
	}
}

// Active returns the number of fetches in progress.
func (o *overlapTracker) Active() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active
}
