package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned by Call while the circuit is open. The wrapped function is not run.
var ErrOpen = errors.New("circuit breaker open")

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

// State is the circuit breaker state (Closed, Open, HalfOpen).
type State int

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// CircuitBreaker fails upstream calls fast after repeated failures. While open, the
// screen gets an immediate error and shows the fallback payload instead of waiting
// on a dead provider. After Timeout one probe is let through (half-open).
type CircuitBreaker struct {
	mu               sync.Mutex
	state            State
	failureCount     int
	successCount     int
	openedAt         time.Time
	failureThreshold int
	successThreshold int
	timeout          time.Duration
	component        string
	onStateChange    func(from, to State)
	now              func() time.Time
}

// Config holds circuit breaker parameters. Zero values use defaults (5 failures, 2 successes, 30s).
type Config struct {
	FailureThreshold int
	SuccessThreshold int
	Timeout          time.Duration
	Component        string
	OnStateChange    func(from, to State)
}

// New creates a new CircuitBreaker with the given config.
func New(cfg Config) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 2
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &CircuitBreaker{
		state:            StateClosed,
		failureThreshold: cfg.FailureThreshold,
		successThreshold: cfg.SuccessThreshold,
		timeout:          cfg.Timeout,
		component:        cfg.Component,
		onStateChange:    cfg.OnStateChange,
		now:              time.Now,
	}
}

// Call runs fn when the circuit allows it and records the outcome.
// Returns ErrOpen without running fn while open, or ctx.Err() if ctx is already done.
func (cb *CircuitBreaker) Call(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cb.mu.Lock()
	if cb.state == StateOpen {
		if cb.now().Sub(cb.openedAt) < cb.timeout {
			cb.mu.Unlock()
			return ErrOpen
		}
		cb.successCount = 0
		changed := cb.transitionLocked(StateHalfOpen)
		cb.mu.Unlock()
		cb.notify(changed)
	} else {
		cb.mu.Unlock()
	}

	err := fn()

	cb.mu.Lock()
	var changed []State
	if err != nil {
		cb.failureCount++
		if cb.state == StateHalfOpen || cb.failureCount >= cb.failureThreshold {
			cb.openedAt = cb.now()
			cb.failureCount = 0
			changed = cb.transitionLocked(StateOpen)
		}
	} else {
		cb.successCount++
		cb.failureCount = 0
		if cb.state == StateHalfOpen && cb.successCount >= cb.successThreshold {
			cb.successCount = 0
			changed = cb.transitionLocked(StateClosed)
		}
	}
	cb.mu.Unlock()
	cb.notify(changed)
	return err
}

// transitionLocked moves to state and returns the (from, to) pair, or nil when unchanged.
func (cb *CircuitBreaker) transitionLocked(to State) []State {
	from := cb.state
	if from == to {
		return nil
	}
	cb.state = to
	return []State{from, to}
}

// notify runs the state-change hook outside the lock so hooks may call State.
func (cb *CircuitBreaker) notify(change []State) {
	if change != nil && cb.onStateChange != nil {
		cb.onStateChange(change[0], change[1])
	}
}

// State returns the current state (for metrics and health).
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Component returns the label the breaker was created with.
func (cb *CircuitBreaker) Component() string {
	return cb.component
}
