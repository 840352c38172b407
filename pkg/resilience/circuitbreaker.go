// Package resilience provides fault-tolerance primitives: a circuit breaker,
// exponential-backoff retry and a context-bounded call.
package resilience

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/tagcloud/pkg/errors"
)

// ErrCircuitOpen is returned without calling fn while the breaker rejects
// calls. It wraps errors.ErrUnavailable.
var ErrCircuitOpen = fmt.Errorf("circuit breaker is open: %w", apperrors.ErrUnavailable)

// State is the phase of a circuit breaker. The numeric values are exported
// as the circuit_breaker_state gauge.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig controls failure thresholds and recovery timing.
// Zero fields take defaults. OnStateChange is called with the breaker lock
// held and must not call back into the breaker.
type CircuitBreakerConfig struct {
	FailureThreshold    int
	ResetTimeout        time.Duration
	HalfOpenMaxRequests int
	OnStateChange       func(name string, from, to State)
}

// CircuitBreaker opens after FailureThreshold consecutive failures, rejects
// calls for ResetTimeout, then lets up to HalfOpenMaxRequests concurrent
// probes through. A successful probe closes it; a failed one reopens it.
type CircuitBreaker struct {
	name   string
	cfg    CircuitBreakerConfig
	logger *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	state    State
	gen      uint64 // bumped on every transition
	failures int
	openedAt time.Time
	probes   int
}

func NewCircuitBreaker(name string, cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.HalfOpenMaxRequests <= 0 {
		cfg.HalfOpenMaxRequests = 1
	}
	return &CircuitBreaker{
		name:   name,
		cfg:    cfg,
		logger: slog.Default().With("component", "circuit-breaker", "name", name),
		now:    time.Now,
	}
}

// Execute runs fn if the breaker allows it and records the outcome.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	return cb.ExecuteIf(fn, nil)
}

// ExecuteIf is Execute with a filter: an error for which counts returns
// false is returned to the caller but recorded as a success. The cache uses
// it so that a miss does not trip the breaker.
func (cb *CircuitBreaker) ExecuteIf(fn func() error, counts func(error) bool) error {
	gen, err := cb.admit()
	if err != nil {
		return err
	}
	err = fn()
	cb.record(gen, err != nil && (counts == nil || counts(err)))
	return err
}

// GetState returns the current state. An open breaker whose reset timeout
// has passed still reports open until the next call probes it.
func (cb *CircuitBreaker) GetState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Reset closes the breaker.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.transition(StateClosed)
	cb.logger.Info("circuit reset")
}

func (cb *CircuitBreaker) admit() (uint64, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen {
		wait := cb.cfg.ResetTimeout - cb.now().Sub(cb.openedAt)
		if wait > 0 {
			return 0, fmt.Errorf("%s: %w (retry after %v)", cb.name, ErrCircuitOpen, wait)
		}
		cb.transition(StateHalfOpen)
		cb.logger.Info("circuit half-open", "after", cb.cfg.ResetTimeout)
	}
	if cb.state == StateHalfOpen {
		if cb.probes >= cb.cfg.HalfOpenMaxRequests {
			return 0, fmt.Errorf("%s: %w (probe in flight)", cb.name, ErrCircuitOpen)
		}
		cb.probes++
	}
	return cb.gen, nil
}

// record applies the outcome of a call admitted in generation gen. Results
// from an earlier generation are stale and ignored.
func (cb *CircuitBreaker) record(gen uint64, failed bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if gen != cb.gen {
		return
	}

	switch cb.state {
	case StateClosed:
		if !failed {
			cb.failures = 0
			return
		}
		cb.failures++
		if cb.failures >= cb.cfg.FailureThreshold {
			cb.logger.Warn("circuit opened", "consecutive_failures", cb.failures)
			cb.transition(StateOpen)
		}
	case StateHalfOpen:
		if failed {
			cb.logger.Warn("circuit reopened, probe failed")
			cb.transition(StateOpen)
			return
		}
		cb.logger.Info("circuit closed, probe succeeded")
		cb.transition(StateClosed)
	}
}

// transition moves to state `to` and clears the counters of the old state.
func (cb *CircuitBreaker) transition(to State) {
	from := cb.state
	cb.state = to
	cb.gen++
	cb.failures = 0
	cb.probes = 0
	if to == StateOpen {
		cb.openedAt = cb.now()
	}
	if from != to && cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(cb.name, from, to)
	}
}
