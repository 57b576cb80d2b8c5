package infra

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// CBState is the breaker position: closed lets calls through, open rejects
// them, half-open lets a single probe through.
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
	return fmt.Sprintf("CBState(%d)", int(s))
}

var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerConfig tunes a breaker. Zero values take the defaults of
// DefaultCBConfig.
type CircuitBreakerConfig struct {
	Name             string
	FailureThreshold int           // consecutive failures that open the breaker
	SuccessThreshold int           // consecutive probe successes that close it
	OpenTimeout      time.Duration // wait before the first probe
	Now              func() time.Time
	// OnStateChange defaults to a zerolog line per transition.
	OnStateChange func(name string, from, to CBState)
}

func DefaultCBConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		OpenTimeout:      time.Minute,
	}
}

// CircuitBreaker guards calls to one downstream. The alert workers share a
// single breaker so a dead webhook receiver is probed by one worker at a time.
type CircuitBreaker struct {
	cfg CircuitBreakerConfig

	mu        sync.Mutex
	state     CBState
	failures  int
	successes int
	openedAt  time.Time
	probing   bool
}

func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	def := DefaultCBConfig(cfg.Name)
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = def.SuccessThreshold
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = def.OpenTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.OnStateChange == nil {
		cfg.OnStateChange = logStateChange
	}
	return &CircuitBreaker{cfg: cfg}
}

func logStateChange(name string, from, to CBState) {
	evt := log.Info()
	if to == CBOpen {
		evt = log.Warn()
	}
	evt.Str("breaker", name).Stringer("from", from).Stringer("to", to).Msg("circuit breaker state change")
}

func (cb *CircuitBreaker) Name() string { return cb.cfg.Name }

func (cb *CircuitBreaker) State() CBState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.expireOpenLocked()
	return cb.state
}

// Execute calls fn unless the breaker is open or a half-open probe is already
// in flight, in which case it returns ErrCircuitOpen without calling fn.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if err := cb.admit(); err != nil {
		return err
	}
	err := fn()
	cb.record(err)
	return err
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.expireOpenLocked()
	switch cb.state {
	case CBOpen:
		return ErrCircuitOpen
	case CBHalfOpen:
		if cb.probing {
			return ErrCircuitOpen
		}
		cb.probing = true
	}
	return nil
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == CBHalfOpen {
		cb.probing = false
		if err != nil {
			cb.setStateLocked(CBOpen)
			return
		}
		cb.successes++
		if cb.successes >= cb.cfg.SuccessThreshold {
			cb.setStateLocked(CBClosed)
		}
		return
	}

	if err == nil {
		cb.failures = 0
		return
	}
	cb.failures++
	if cb.state == CBClosed && cb.failures >= cb.cfg.FailureThreshold {
		cb.setStateLocked(CBOpen)
	}
}

func (cb *CircuitBreaker) expireOpenLocked() {
	if cb.state == CBOpen && cb.cfg.Now().Sub(cb.openedAt) >= cb.cfg.OpenTimeout {
		cb.setStateLocked(CBHalfOpen)
	}
}

func (cb *CircuitBreaker) setStateLocked(to CBState) {
	from := cb.state
	cb.state = to
	cb.failures = 0
	cb.successes = 0
	cb.probing = false
	if to == CBOpen {
		cb.openedAt = cb.cfg.Now()
	}
	if from != to {
		cb.cfg.OnStateChange(cb.cfg.Name, from, to)
	}
}
