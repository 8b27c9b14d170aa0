package circuitbreaker

import (
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	gobreaker "github.com/sony/gobreaker/v2"

	"music-search-api-go/logcolors"
	"music-search-api-go/metrics"
)

// State represents the circuit breaker state
type State int

const (
	StateClosed   State = iota // Normal operation, requests allowed
	StateOpen                  // Circuit tripped, requests blocked
	StateHalfOpen              // Testing if service recovered
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF-OPEN"
	default:
		return "UNKNOWN"
	}
}

var (
	ErrCircuitOpen = errors.New("circuit breaker is open")
)

// Config holds circuit breaker configuration
type Config struct {
	Name      string        // Name for logging and metrics
	Threshold int           // Number of consecutive failures before opening
	Cooldown  time.Duration // How long to stay open before testing
	// IsFailure decides which errors count toward the threshold. Nil counts every error.
	IsFailure func(error) bool
	// OnStateChange is called on every transition while the breaker is locked.
	// It must not call back into the breaker.
	OnStateChange func(name string, from, to State)
}

// CircuitBreaker stops calls to a failing dependency for a cooldown period
type CircuitBreaker struct {
	name      string
	threshold int
	cooldown  time.Duration
	isFailure func(error) bool
	onChange  func(name string, from, to State)

	mu       sync.RWMutex
	cb       *gobreaker.CircuitBreaker[any]
	openedAt time.Time
}

// New creates a new circuit breaker
func New(cfg Config) *CircuitBreaker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = time.Minute
	}
	if cfg.Name == "" {
		cfg.Name = "default"
	}
	if cfg.IsFailure == nil {
		cfg.IsFailure = func(err error) bool { return err != nil }
	}

	cb := &CircuitBreaker{
		name:      cfg.Name,
		threshold: cfg.Threshold,
		cooldown:  cfg.Cooldown,
		isFailure: cfg.IsFailure,
		onChange:  cfg.OnStateChange,
	}
	cb.cb = cb.newBreaker()
	metrics.CircuitBreakerState.WithLabelValues(cb.name).Set(0)
	return cb
}

func (cb *CircuitBreaker) newBreaker() *gobreaker.CircuitBreaker[any] {
	threshold := uint32(cb.threshold)
	return gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        cb.name,
		MaxRequests: 1, // one probe while half-open
		Timeout:     cb.cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return !cb.isFailure(err)
		},
		OnStateChange: cb.onStateChange,
	})
}

func (cb *CircuitBreaker) onStateChange(_ string, from, to gobreaker.State) {
	prefix := logcolors.CircuitBreakerPrefix(cb.name)
	switch to {
	case gobreaker.StateOpen:
		cb.mu.Lock()
		cb.openedAt = time.Now()
		cb.mu.Unlock()
		log.Warnf("%s Transitioning %s -> OPEN (cooldown: %v)", prefix, fromGobreaker(from), cb.cooldown)
	case gobreaker.StateHalfOpen:
		log.Infof("%s Cooldown passed, transitioning to HALF-OPEN", prefix)
	case gobreaker.StateClosed:
		log.Infof("%s Test request succeeded, transitioning to CLOSED", prefix)
	}
	metrics.CircuitBreakerState.WithLabelValues(cb.name).Set(float64(stateValue(to)))
	if cb.onChange != nil {
		cb.onChange(cb.name, fromGobreaker(from), fromGobreaker(to))
	}
}

func (cb *CircuitBreaker) breaker() *gobreaker.CircuitBreaker[any] {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.cb
}

// Execute runs fn unless the circuit is open. While open it returns an error
// wrapping ErrCircuitOpen without calling fn.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	_, err := cb.breaker().Execute(func() (any, error) {
		return nil, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%s: %w", cb.name, ErrCircuitOpen)
	}
	return err
}

// Do is Execute for functions returning a value
func Do[T any](cb *CircuitBreaker, fn func() (T, error)) (T, error) {
	var out T
	err := cb.Execute(func() error {
		v, err := fn()
		out = v
		return err
	})
	return out, err
}

// State returns the current state
func (cb *CircuitBreaker) State() State {
	return fromGobreaker(cb.breaker().State())
}

// Failures returns the current consecutive failure count
func (cb *CircuitBreaker) Failures() int {
	return int(cb.breaker().Counts().ConsecutiveFailures)
}

// IsOpen returns true if the circuit is open (blocking requests)
func (cb *CircuitBreaker) IsOpen() bool {
	return cb.State() == StateOpen
}

// Threshold returns the configured failure threshold
func (cb *CircuitBreaker) Threshold() int {
	return cb.threshold
}

// TimeUntilRetry returns the remaining cooldown while open, else 0
func (cb *CircuitBreaker) TimeUntilRetry() time.Duration {
	if !cb.IsOpen() {
		return 0
	}
	cb.mu.RLock()
	elapsed := time.Since(cb.openedAt)
	cb.mu.RUnlock()
	if elapsed >= cb.cooldown {
		return 0
	}
	return cb.cooldown - elapsed
}

// Stats returns circuit breaker statistics
func (cb *CircuitBreaker) Stats() (state State, failures int, openedAt time.Time) {
	cb.mu.RLock()
	openedAt = cb.openedAt
	cb.mu.RUnlock()
	return cb.State(), cb.Failures(), openedAt
}

// Reset manually resets the circuit breaker to closed state
func (cb *CircuitBreaker) Reset() {
	fresh := cb.newBreaker()
	cb.mu.Lock()
	cb.cb = fresh
	cb.openedAt = time.Time{}
	cb.mu.Unlock()
	metrics.CircuitBreakerState.WithLabelValues(cb.name).Set(0)
	log.Infof("%s Manually reset to CLOSED", logcolors.CircuitBreakerPrefix(cb.name))
}

func fromGobreaker(s gobreaker.State) State {
	switch s {
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateClosed
	}
}

// stateValue is the gauge value: 0 closed, 1 half-open, 2 open
func stateValue(s gobreaker.State) int {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
