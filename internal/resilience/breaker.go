// Package resilience protects calls to remote secret backends.
package resilience

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when the circuit breaker is open and rejecting calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

type state int

const (
	stateClosed state = iota
	stateOpen
	stateHalfOpen
)

// Breaker opens after maxFailures consecutive failed calls and rejects
// calls with ErrCircuitOpen until timeout elapses. The first call after
// that is a trial: success closes the circuit, failure reopens it.
//
// Errors matching one of the expected errors (errors.Is) are answers, not
// failures. A missing bucket reported as fs.ErrNotExist, for instance,
// must not trip the breaker of an optional source.
type Breaker struct {
	mu          sync.Mutex
	state       state
	failures    int
	maxFailures int
	timeout     time.Duration
	openedAt    time.Time
	expected    []error
	now         func() time.Time
}

// NewBreaker creates a closed Breaker.
func NewBreaker(maxFailures int, timeout time.Duration, expected ...error) *Breaker {
	return &Breaker{
		maxFailures: maxFailures,
		timeout:     timeout,
		expected:    expected,
		now:         time.Now,
	}
}

// Execute runs fn unless the circuit is open.
func (b *Breaker) Execute(fn func() error) error {
	if !b.allow() {
		return ErrCircuitOpen
	}

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil && !b.isExpected(err) {
		b.onFailure()
		return err
	}
	b.onSuccess()
	return err
}

// Open reports whether calls are currently being rejected.
func (b *Breaker) Open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state == stateOpen && b.now().Sub(b.openedAt) < b.timeout
}

func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == stateOpen {
		if b.now().Sub(b.openedAt) < b.timeout {
			return false
		}
		b.state = stateHalfOpen
	}
	return true
}

func (b *Breaker) isExpected(err error) bool {
	for _, e := range b.expected {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}

// onFailure must be called with b.mu held.
func (b *Breaker) onFailure() {
	b.failures++
	if b.state == stateHalfOpen || b.failures >= b.maxFailures {
		b.state = stateOpen
		b.openedAt = b.now()
	}
}

// onSuccess must be called with b.mu held.
func (b *Breaker) onSuccess() {
	b.failures = 0
	b.state = stateClosed
}
