package infra

import (
	"errors"
	"sync"
	"time"
)

// Circuit breaker guarding the SEFAZ authorization web service. When the
// service stops answering, issuance calls fast-fail instead of stacking up
// behind timeouts; after OpenTimeout a probe is let through and the circuit
// closes again once enough probes succeed.

// ErrCircuitOpen is the fast-fail error while the circuit is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

type CBState int

const (
	CBClosed CBState = iota
	CBOpen
	CBHalfOpen
)

func (s CBState) String() string {
	switch s {
	case CBClosed:
		return "closed"
	case CBOpen:
		return "open"
	case CBHalfOpen:
		return "half-open"
	}
	return "unknown"
}

type CircuitBreakerConfig struct {
	// FailureThreshold is the run of consecutive failures that trips the
	// circuit open.
	FailureThreshold int
	// SuccessThreshold is the run of successful probes that closes it again.
	SuccessThreshold int
	// OpenTimeout is how long the circuit stays open before probing.
	OpenTimeout time.Duration
}

func DefaultCBConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		OpenTimeout:      60 * time.Second,
	}
}

type CircuitBreaker struct {
	cfg CircuitBreakerConfig

	mu        sync.Mutex
	state     CBState
	failures  int
	successes int
	openedAt  time.Time
}

func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	def := DefaultCBConfig()
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = def.SuccessThreshold
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = def.OpenTimeout
	}
	return &CircuitBreaker{cfg: cfg}
}

// State reports the current state, promoting open → half-open once the
// open window has elapsed.
func (cb *CircuitBreaker) State() CBState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.stateLocked(time.Now())
}

func (cb *CircuitBreaker) stateLocked(now time.Time) CBState {
	if cb.state == CBOpen && now.Sub(cb.openedAt) >= cb.cfg.OpenTimeout {
		cb.state = CBHalfOpen
		cb.successes = 0
	}
	return cb.state
}

// Execute runs fn unless the circuit is open, and feeds the outcome back
// into the state machine. fn's error is returned unchanged.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if cb.State() == CBOpen {
		return ErrCircuitOpen
	}

	err := fn()

	cb.mu.Lock()
	cb.record(err)
	cb.mu.Unlock()
	return err
}

// record applies one call outcome. Caller holds the lock.
func (cb *CircuitBreaker) record(err error) {
	if err == nil {
		switch cb.state {
		case CBClosed:
			cb.failures = 0
		case CBHalfOpen:
			cb.successes++
			if cb.successes >= cb.cfg.SuccessThreshold {
				cb.state = CBClosed
				cb.failures = 0
				cb.successes = 0
			}
		}
		return
	}

	switch cb.state {
	case CBClosed:
		cb.failures++
		if cb.failures >= cb.cfg.FailureThreshold {
			cb.state = CBOpen
			cb.openedAt = time.Now()
			cb.successes = 0
		}
	case CBHalfOpen:
		// Failed probe: back to open for another full window.
		cb.state = CBOpen
		cb.openedAt = time.Now()
		cb.failures = 0
	}
}
