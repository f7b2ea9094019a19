package sqlite

import (
	"errors"
	"sync"
	"time"

	"github.com/hasna/convo/internal/storage"
)

// ErrBreakerOpen is returned while the breaker is rejecting calls.
var ErrBreakerOpen = errors.New("storage breaker open")

// countsAsFailure reports whether err signals database trouble. Not-found,
// duplicate, and invalid-argument are normal results of a working store and
// must not trip the breaker.
func countsAsFailure(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, storage.ErrNotFound) ||
		errors.Is(err, storage.ErrDuplicate) ||
		errors.Is(err, storage.ErrInvalidArgument) {
		return false
	}
	return true
}

type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

func (s breakerState) String() string {
	switch s {
	case breakerClosed:
		return "closed"
	case breakerOpen:
		return "open"
	case breakerHalfOpen:
		return "half_open"
	}
	return "unknown"
}

// Breaker stops hammering a failing database: after threshold consecutive
// failures it rejects calls outright until resetAfter has elapsed, then
// lets a single probe through.
type Breaker struct {
	mu         sync.Mutex
	state      breakerState
	failures   int
	threshold  int
	resetAfter time.Duration
	openedAt   time.Time
	now        func() time.Time
}

// NewBreaker creates a breaker that opens after threshold consecutive
// failures and probes again after resetAfter.
func NewBreaker(threshold int, resetAfter time.Duration) *Breaker {
	return &Breaker{threshold: threshold, resetAfter: resetAfter, now: time.Now}
}

// Do runs fn unless the breaker is open.
func (b *Breaker) Do(fn func() error) error {
	b.mu.Lock()
	switch b.state {
	case breakerClosed:
		b.mu.Unlock()
		err := fn()
		b.record(err)
		return err
	case breakerOpen:
		if b.now().Sub(b.openedAt) < b.resetAfter {
			b.mu.Unlock()
			return ErrBreakerOpen
		}
		b.state = breakerHalfOpen
		b.mu.Unlock()
		err := fn()
		b.settleProbe(err)
		return err
	default: // half-open: a probe is already in flight
		b.mu.Unlock()
		return ErrBreakerOpen
	}
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !countsAsFailure(err) {
		b.failures = 0
		return
	}
	b.failures++
	if b.failures >= b.threshold {
		b.state = breakerOpen
		b.openedAt = b.now()
	}
}

func (b *Breaker) settleProbe(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if countsAsFailure(err) {
		b.state = breakerOpen
		b.openedAt = b.now()
		return
	}
	b.state = breakerClosed
	b.failures = 0
}

// State returns the breaker's current state name.
func (b *Breaker) State() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state.String()
}
