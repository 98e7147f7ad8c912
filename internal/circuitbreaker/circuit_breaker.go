// Package circuitbreaker stops calling a failing dependency for a cool-down period.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/portal-admin/internal/logging"
)

// State represents the circuit breaker state
type State string

const (
	// StateClosed means calls go through
	StateClosed State = "closed"
	// StateOpen means calls are rejected until the cool-down ends
	StateOpen State = "open"
	// StateHalfOpen lets a few trial calls through
	StateHalfOpen State = "half_open"
)

// ErrCircuitOpen is returned when the circuit breaker is open
var ErrCircuitOpen = errors.New("circuit breaker is open")

// ErrTooManyRequests is returned when the half-open trial budget is used up
var ErrTooManyRequests = errors.New("too many requests in half-open state")

// Config configures a circuit breaker
type Config struct {
	Name string
	// MinCalls is the number of calls observed before the failure rate counts
	MinCalls int
	// FailureThreshold is the failure rate (0.0-1.0) that opens the circuit
	FailureThreshold float64
	// ConsecutiveFailures opens the circuit regardless of rate
	ConsecutiveFailures int
	Timeout             time.Duration
	HalfOpenMaxCalls    int
	// OnStateChange is called with the new state, outside the lock
	OnStateChange func(name string, state State)
}

// DefaultConfig returns a default circuit breaker configuration
func DefaultConfig(name string) *Config {
	return &Config{
		Name:                name,
		MinCalls:            5,
		FailureThreshold:    0.5,
		ConsecutiveFailures: 5,
		Timeout:             30 * time.Second,
		HalfOpenMaxCalls:    2,
	}
}

// CircuitBreaker implements the circuit breaker pattern
type CircuitBreaker struct {
	cfg Config
	now func() time.Time

	mu               sync.Mutex
	state            State
	calls            int
	failures         int
	consecutiveFails int
	halfOpenCalls    int
	halfOpenOK       int
	openedAt         time.Time
}

// NewCircuitBreaker creates a new circuit breaker
func NewCircuitBreaker(cfg *Config) *CircuitBreaker {
	if cfg == nil {
		cfg = DefaultConfig("default")
	}
	return &CircuitBreaker{
		cfg:   *cfg,
		now:   time.Now,
		state: StateClosed,
	}
}

// Execute runs fn unless the circuit is open
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := cb.beforeCall(); err != nil {
		return err
	}

	err := fn(ctx)
	cb.afterCall(err)
	return err
}

// State returns the current state
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Reset closes the circuit and clears its counters
func (cb *CircuitBreaker) Reset() {
	cb.transition(StateClosed)
}

func (cb *CircuitBreaker) beforeCall() error {
	cb.mu.Lock()

	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.openedAt) < cb.cfg.Timeout {
			cb.mu.Unlock()
			return ErrCircuitOpen
		}
		cb.mu.Unlock()
		cb.transition(StateHalfOpen)
		cb.mu.Lock()
		cb.halfOpenCalls++
		cb.mu.Unlock()
		return nil

	case StateHalfOpen:
		defer cb.mu.Unlock()
		if cb.halfOpenCalls >= cb.cfg.HalfOpenMaxCalls {
			return ErrTooManyRequests
		}
		cb.halfOpenCalls++
		return nil

	default:
		cb.mu.Unlock()
		return nil
	}
}

func (cb *CircuitBreaker) afterCall(err error) {
	cb.mu.Lock()
	var next State

	switch cb.state {
	case StateHalfOpen:
		if err != nil {
			next = StateOpen
		} else {
			cb.halfOpenOK++
			if cb.halfOpenOK >= cb.cfg.HalfOpenMaxCalls {
				next = StateClosed
			}
		}

	case StateClosed:
		cb.calls++
		if err == nil {
			cb.consecutiveFails = 0
			break
		}
		cb.failures++
		cb.consecutiveFails++
		if cb.shouldOpen() {
			next = StateOpen
		}
	}
	cb.mu.Unlock()

	if next != "" {
		cb.transition(next)
	}
}

// shouldOpen must be called with mu held
func (cb *CircuitBreaker) shouldOpen() bool {
	if cb.cfg.ConsecutiveFailures > 0 && cb.consecutiveFails >= cb.cfg.ConsecutiveFailures {
		return true
	}
	if cb.calls < cb.cfg.MinCalls {
		return false
	}
	return float64(cb.failures)/float64(cb.calls) >= cb.cfg.FailureThreshold
}

func (cb *CircuitBreaker) transition(state State) {
	cb.mu.Lock()
	cb.state = state
	cb.calls, cb.failures, cb.consecutiveFails = 0, 0, 0
	cb.halfOpenCalls, cb.halfOpenOK = 0, 0
	if state == StateOpen {
		cb.openedAt = cb.now()
	}
	cb.mu.Unlock()

	logger := logging.WithFields(map[string]interface{}{
		"circuit_breaker": cb.cfg.Name,
		"state":           state,
	})
	if state == StateOpen {
		logger.Warn("circuit breaker opened")
	} else {
		logger.Info("circuit breaker state changed")
	}

	if cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(cb.cfg.Name, state)
	}
}
