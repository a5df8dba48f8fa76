package circuitbreaker

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrCircuitOpen is returned when the circuit breaker is open
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State represents the state of a circuit breaker
type State int

const (
	// StateClosed lets every call through
	StateClosed State = iota
	// StateOpen rejects calls until Timeout has passed since the last failure
	StateOpen
	// StateHalfOpen lets trial calls through to test the dependency
	StateHalfOpen
)

// String returns a string representation of the state
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

// Config holds circuit breaker configuration
type Config struct {
	// MaxFailures is the number of consecutive failures that opens the circuit
	MaxFailures int
	// Timeout is how long the circuit stays open before probing
	Timeout time.Duration
	// SuccessThreshold is the number of half-open successes that close the circuit
	SuccessThreshold int
}

// DefaultConfig returns a default circuit breaker configuration
func DefaultConfig() Config {
	return Config{
		MaxFailures:      5,
		Timeout:          30 * time.Second,
		SuccessThreshold: 2,
	}
}

// CircuitBreaker stops calling a dependency after repeated failures
type CircuitBreaker struct {
	mu              sync.Mutex
	state           State
	failureCount    int
	successCount    int
	lastFailureTime time.Time
	config          Config
	logger          *zap.Logger
	name            string
	now             func() time.Time
}

// New creates a new circuit breaker
func New(name string, config Config, logger *zap.Logger) *CircuitBreaker {
	return &CircuitBreaker{
		state:  StateClosed,
		config: config,
		logger: logger,
		name:   name,
		now:    time.Now,
	}
}

// Execute runs fn unless the circuit is open
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if err := cb.beforeRequest(); err != nil {
		return err
	}
	err := fn()
	cb.afterRequest(err)
	return err
}

func (cb *CircuitBreaker) beforeRequest() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state != StateOpen {
		return nil
	}
	if cb.now().Sub(cb.lastFailureTime) < cb.config.Timeout {
		return ErrCircuitOpen
	}
	cb.state = StateHalfOpen
	cb.successCount = 0
	cb.logger.Info("Circuit breaker transitioning to half-open",
		zap.String("name", cb.name))
	return nil
}

func (cb *CircuitBreaker) afterRequest(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		if err == nil {
			cb.failureCount = 0
			return
		}
		cb.failureCount++
		cb.lastFailureTime = cb.now()
		cb.logger.Warn("Circuit breaker failure",
			zap.String("name", cb.name),
			zap.Int("failure_count", cb.failureCount),
			zap.Error(err))
		if cb.failureCount >= cb.config.MaxFailures {
			cb.state = StateOpen
			cb.logger.Error("Circuit breaker opened",
				zap.String("name", cb.name),
				zap.Int("failure_count", cb.failureCount))
		}

	case StateHalfOpen:
		if err != nil {
			cb.state = StateOpen
			cb.lastFailureTime = cb.now()
			cb.logger.Error("Circuit breaker re-opened after half-open failure",
				zap.String("name", cb.name),
				zap.Error(err))
			return
		}
		cb.successCount++
		if cb.successCount >= cb.config.SuccessThreshold {
			cb.state = StateClosed
			cb.failureCount = 0
			cb.successCount = 0
			cb.logger.Info("Circuit breaker closed after successful recovery",
				zap.String("name", cb.name))
		}
	}
}

// State returns the current state of the circuit breaker
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
